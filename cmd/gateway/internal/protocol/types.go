// Package protocol holds the push-channel framing and the JSON error shape
// returned by the proxy endpoints.
package protocol

import "bytes"

const (
	ContentTypeEventStream = "text/event-stream"
	ContentTypeJSON        = "application/json; charset=utf-8"
)

// KindUpstreamUnavailable marks an error caused by a provider failure.
const (
	KindUpstreamUnavailable = "upstream_unavailable"
	KindBadRequest          = "bad_request"
	KindTimeout             = "timeout"
	KindInternal            = "internal"
)

// ErrorResponse is the body of every non-2xx proxy response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Kind    string `json:"kind"`
	Details string `json:"details,omitempty"`
}

// HealthResponse is served on the root path.
type HealthResponse struct {
	Status      string `json:"status"`
	Subscribers int    `json:"subscribers"`
	Poller      string `json:"poller"`
}

var keepAlive = []byte(": keep-alive\n\n")

// SSEFrame wraps payload as one server-sent event. Each payload line gets
// its own data field so embedded newlines survive framing.
func SSEFrame(payload []byte) []byte {
	var buf bytes.Buffer
	for _, line := range bytes.Split(payload, []byte("\n")) {
		buf.WriteString("data: ")
		buf.Write(line)
		buf.WriteByte('\n')
	}
	buf.WriteByte('\n')
	return buf.Bytes()
}

// SSEKeepAlive is a comment frame that holds idle connections open.
func SSEKeepAlive() []byte { return keepAlive }
