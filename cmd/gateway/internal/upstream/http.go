package upstream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	json "github.com/goccy/go-json"
)

const (
	maxBodySize   = 4 << 20
	maxErrSnippet = 256
)

// get performs one GET and returns the body when it is a 2xx JSON document.
func get(ctx context.Context, client *http.Client, provider, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &Error{Provider: provider, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, &Error{Provider: provider, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, &Error{Provider: provider, StatusCode: resp.StatusCode, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &Error{Provider: provider, StatusCode: resp.StatusCode, Err: errors.New(snippet(body))}
	}

	if !json.Valid(body) {
		return nil, &Error{Provider: provider, StatusCode: resp.StatusCode, Err: fmt.Errorf("invalid JSON body: %s", snippet(body))}
	}

	return body, nil
}

func snippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > maxErrSnippet {
		s = s[:maxErrSnippet] + "..."
	}
	if s == "" {
		return "empty body"
	}
	return s
}
