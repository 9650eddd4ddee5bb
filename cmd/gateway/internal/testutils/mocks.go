package testutils

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/YATIN072007/OPENSOURCE-Crypto-Stock-Market-Tracker/cmd/gateway/internal/journal"
	"github.com/YATIN072007/OPENSOURCE-Crypto-Stock-Market-Tracker/pkg/models"
)

// ErrMockSend is returned by a MockClient configured to fail.
var ErrMockSend = errors.New("mock sink write failed")

// MockClient simulates a connected push-channel sink
type MockClient struct {
	RawBytes  []string
	Closed    bool
	FailSend  bool
	PanicSend bool
	Mu        sync.Mutex

	// Gate, when set, holds the next SendBytes until it is closed. Entered
	// is closed once that send has started.
	Gate    chan struct{}
	Entered chan struct{}
}

func NewMockClient() *MockClient {
	return &MockClient{}
}

func (m *MockClient) SendBytes(b []byte) error {
	m.Mu.Lock()
	gate, entered := m.Gate, m.Entered
	m.Gate = nil
	m.Mu.Unlock()
	if gate != nil {
		close(entered)
		<-gate
	}

	m.Mu.Lock()
	defer m.Mu.Unlock()

	if m.PanicSend {
		panic("mock sink exploded")
	}
	if m.FailSend || m.Closed {
		return ErrMockSend
	}
	m.RawBytes = append(m.RawBytes, string(b))
	return nil
}

func (m *MockClient) Close() {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.Closed = true
}

func (m *MockClient) Received() []string {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	out := make([]string, len(m.RawBytes))
	copy(out, m.RawBytes)
	return out
}

func (m *MockClient) IsClosed() bool {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	return m.Closed
}

// MockCryptoGateway simulates CoinGecko
type MockCryptoGateway struct {
	body  string
	chart string
	err   error
	delay time.Duration
	calls int
	Mu    sync.Mutex
}

func NewMockCryptoGateway(body string) *MockCryptoGateway {
	return &MockCryptoGateway{body: body, chart: `{"prices":[],"market_caps":[],"total_volumes":[]}`}
}

func (m *MockCryptoGateway) SimplePrice(ctx context.Context, ids []string, vs string) ([]byte, error) {
	m.Mu.Lock()
	m.calls++
	body, err, delay := m.body, m.err, m.delay
	m.Mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return []byte(body), nil
}

func (m *MockCryptoGateway) MarketChart(ctx context.Context, coin, days, vs string) ([]byte, error) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return []byte(m.chart), nil
}

func (m *MockCryptoGateway) SetBody(body string) { m.Mu.Lock(); m.body = body; m.Mu.Unlock() }
func (m *MockCryptoGateway) SetChart(body string) { m.Mu.Lock(); m.chart = body; m.Mu.Unlock() }
func (m *MockCryptoGateway) SetErr(err error)     { m.Mu.Lock(); m.err = err; m.Mu.Unlock() }
func (m *MockCryptoGateway) SetDelay(d time.Duration) {
	m.Mu.Lock()
	m.delay = d
	m.Mu.Unlock()
}

func (m *MockCryptoGateway) CallCount() int {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	return m.calls
}

// MockEquityGateway simulates Alpha Vantage
type MockEquityGateway struct {
	quotes map[string]string
	err    error
	calls  map[string]int
	Mu     sync.Mutex
}

func NewMockEquityGateway() *MockEquityGateway {
	return &MockEquityGateway{quotes: make(map[string]string), calls: make(map[string]int)}
}

func (m *MockEquityGateway) GlobalQuote(ctx context.Context, symbol string) ([]byte, error) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.calls[symbol]++
	if m.err != nil {
		return nil, m.err
	}
	q, ok := m.quotes[symbol]
	if !ok {
		return []byte(`{"Global Quote":{}}`), nil
	}
	return []byte(q), nil
}

func (m *MockEquityGateway) SetQuote(symbol, body string) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.quotes[symbol] = body
}

func (m *MockEquityGateway) SetErr(err error) { m.Mu.Lock(); m.err = err; m.Mu.Unlock() }

func (m *MockEquityGateway) CallCount(symbol string) int {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	return m.calls[symbol]
}

// MockJournal records published snapshots
type MockJournal struct {
	Snapshots []models.PriceSnapshot
	Err       error
	Mu        sync.Mutex
}

func (m *MockJournal) Publish(ctx context.Context, snap models.PriceSnapshot) error {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Snapshots = append(m.Snapshots, snap)
	return nil
}

// MockKafkaWriter records written messages
type MockKafkaWriter struct {
	Messages []kafka.Message
	Err      error
	Closed   bool
	Mu       sync.Mutex
}

func (m *MockKafkaWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Messages = append(m.Messages, msgs...)
	return nil
}

func (m *MockKafkaWriter) Close() error {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.Closed = true
	return nil
}

// MockKafkaConn records topic creation; partitions appear after ReadyAfter reads.
type MockKafkaConn struct {
	CreatedTopics []string
	ReadyAfter    int
	CreateErr     error
	reads         int
	Closed        int
	Mu            sync.Mutex
}

func (m *MockKafkaConn) Controller() (kafka.Broker, error) {
	return kafka.Broker{Host: "localhost", Port: 9092}, nil
}

func (m *MockKafkaConn) Close() error {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.Closed++
	return nil
}

func (m *MockKafkaConn) CreateTopics(topics ...kafka.TopicConfig) error {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	for _, t := range topics {
		m.CreatedTopics = append(m.CreatedTopics, t.Topic)
	}
	return m.CreateErr
}

func (m *MockKafkaConn) ReadPartitions(topics ...string) ([]kafka.Partition, error) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.reads++
	if m.reads <= m.ReadyAfter {
		return nil, errors.New("unknown topic")
	}
	return []kafka.Partition{{ID: 0}}, nil
}

// MockKafkaDialer hands out ConnSpy, or fails every dial when Err is set.
type MockKafkaDialer struct {
	ConnSpy *MockKafkaConn
	Err     error
	Dialed  []string
	Mu      sync.Mutex
}

func (m *MockKafkaDialer) DialContext(ctx context.Context, network, address string) (journal.KafkaConn, error) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.Dialed = append(m.Dialed, address)
	if m.Err != nil {
		return nil, m.Err
	}
	if m.ConnSpy == nil {
		m.ConnSpy = &MockKafkaConn{}
	}
	return m.ConnSpy, nil
}

// MockSleeper counts back-off sleeps without waiting.
type MockSleeper struct {
	Slept []time.Duration
}

func (m *MockSleeper) Sleep(d time.Duration) { m.Slept = append(m.Slept, d) }

func AssertTrue(t *testing.T, condition bool, msg string) {
	t.Helper()
	if !condition {
		t.Errorf("Assertion failed: %s", msg)
	}
}
