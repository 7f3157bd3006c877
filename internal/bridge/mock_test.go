package bridge

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/nerrad567/switchbot-mqtt/internal/device"
)

// MockMQTTClient implements MQTTClient for testing.
type MockMQTTClient struct {
	mu            sync.Mutex
	published     []mockPublish
	subscriptions []mockSubscription
	connected     bool
	handlers      map[string]func(topic string, payload []byte, retained bool)
	publishErr    error
}

type mockPublish struct {
	Topic    string
	Payload  []byte
	QoS      byte
	Retained bool
}

type mockSubscription struct {
	Topic string
	QoS   byte
}

func NewMockMQTTClient() *MockMQTTClient {
	return &MockMQTTClient{
		connected: true,
		handlers:  make(map[string]func(topic string, payload []byte, retained bool)),
	}
}

func (m *MockMQTTClient) Publish(topic string, payload []byte, qos byte, retained bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.publishErr != nil {
		return m.publishErr
	}
	m.published = append(m.published, mockPublish{
		Topic:    topic,
		Payload:  payload,
		QoS:      qos,
		Retained: retained,
	})
	return nil
}

func (m *MockMQTTClient) Subscribe(topic string, qos byte, handler func(topic string, payload []byte, retained bool)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscriptions = append(m.subscriptions, mockSubscription{Topic: topic, QoS: qos})
	m.handlers[topic] = handler
	return nil
}

func (m *MockMQTTClient) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

func (m *MockMQTTClient) GetPublished() []mockPublish {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]mockPublish(nil), m.published...)
}

func (m *MockMQTTClient) GetSubscriptions() []mockSubscription {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]mockSubscription(nil), m.subscriptions...)
}

// PublishedTo returns payloads published to topic, in order.
func (m *MockMQTTClient) PublishedTo(topic string) []string {
	var payloads []string
	for _, p := range m.GetPublished() {
		if p.Topic == topic {
			payloads = append(payloads, string(p.Payload))
		}
	}
	return payloads
}

// SimulateMessage delivers a message to every matching subscription,
// as the broker would. Returns false if nothing matched.
func (m *MockMQTTClient) SimulateMessage(topic string, payload []byte, retained bool) bool {
	m.mu.Lock()
	var matched []func(string, []byte, bool)
	for filter, handler := range m.handlers {
		if topicMatches(filter, topic) {
			matched = append(matched, handler)
		}
	}
	m.mu.Unlock()

	for _, handler := range matched {
		handler(topic, payload, retained)
	}
	return len(matched) > 0
}

// topicMatches implements MQTT filter matching for "+" and "#".
func topicMatches(filter, topic string) bool {
	f := strings.Split(filter, "/")
	t := strings.Split(topic, "/")
	for i, part := range f {
		if part == "#" {
			return true
		}
		if i >= len(t) {
			return false
		}
		if part != "+" && part != t[i] {
			return false
		}
	}
	return len(f) == len(t)
}

// MockProtocol implements device.Protocol, records calls and detects
// overlapping use of one device.
type MockProtocol struct {
	mu        sync.Mutex
	calls     []string
	positions []int
	active    int
	overlaps  int

	// failures is the number of leading calls that fail.
	failures int
	failAll  bool
	delay    time.Duration

	// started is signalled (non-blocking) at the start of every call.
	started chan string
	// release, when set, blocks every call until closed.
	release chan struct{}

	battery  int
	position int
}

var errLinkLost = errors.New("link lost")

func NewMockProtocol() *MockProtocol {
	return &MockProtocol{battery: 87, position: 40}
}

func (m *MockProtocol) call(name string) error {
	m.mu.Lock()
	m.active++
	if m.active > 1 {
		m.overlaps++
	}
	m.calls = append(m.calls, name)
	fail := m.failAll || m.failures > 0
	if m.failures > 0 {
		m.failures--
	}
	started, release, delay := m.started, m.release, m.delay
	m.mu.Unlock()

	if started != nil {
		select {
		case started <- name:
		default:
		}
	}
	if release != nil {
		<-release
	}
	if delay > 0 {
		time.Sleep(delay)
	}

	m.mu.Lock()
	m.active--
	m.mu.Unlock()

	if fail {
		return errLinkLost
	}
	return nil
}

func (m *MockProtocol) TurnOn(context.Context) error  { return m.call("TurnOn") }
func (m *MockProtocol) TurnOff(context.Context) error { return m.call("TurnOff") }
func (m *MockProtocol) Open(context.Context) error    { return m.call("Open") }
func (m *MockProtocol) Close(context.Context) error   { return m.call("Close") }
func (m *MockProtocol) Stop(context.Context) error    { return m.call("Stop") }

func (m *MockProtocol) SetPosition(_ context.Context, percent int) error {
	m.mu.Lock()
	m.positions = append(m.positions, percent)
	m.mu.Unlock()
	return m.call("SetPosition")
}

func (m *MockProtocol) GetBatteryPercent(context.Context) (int, error) {
	if err := m.call("GetBatteryPercent"); err != nil {
		return 0, err
	}
	return m.battery, nil
}

func (m *MockProtocol) GetPosition(context.Context) (int, error) {
	if err := m.call("GetPosition"); err != nil {
		return 0, err
	}
	return m.position, nil
}

func (m *MockProtocol) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

func (m *MockProtocol) Positions() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int(nil), m.positions...)
}

func (m *MockProtocol) Overlaps() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.overlaps
}

// protocolSet hands out preconfigured protocols per address, creating
// default ones for unknown addresses.
type protocolSet struct {
	mu        sync.Mutex
	protocols map[string]*MockProtocol
}

func newProtocolSet() *protocolSet {
	return &protocolSet{protocols: make(map[string]*MockProtocol)}
}

func (s *protocolSet) get(address string) *MockProtocol {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.protocols[address]
	if !ok {
		p = NewMockProtocol()
		s.protocols[address] = p
	}
	return p
}

func (s *protocolSet) factory(address, _ string) device.Protocol {
	return s.get(address)
}

// mockSink records telemetry.
type mockSink struct {
	mu      sync.Mutex
	entries []sinkEntry
}

type sinkEntry struct {
	Address  string
	Class    string
	Battery  int
	Position *int
}

func (s *mockSink) WriteDeviceInfo(address, class string, battery int, position *int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, sinkEntry{address, class, battery, position})
}

func (s *mockSink) Entries() []sinkEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sinkEntry(nil), s.entries...)
}

// mockLogger counts messages per level.
type mockLogger struct {
	mu     sync.Mutex
	errors []string
	warns  []string
}

func (l *mockLogger) Debug(string, ...any) {}
func (l *mockLogger) Info(string, ...any)  {}

func (l *mockLogger) Warn(msg string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warns = append(l.warns, msg)
}

func (l *mockLogger) Error(msg string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errors = append(l.errors, msg)
}

func (l *mockLogger) Counts() (warns, errs int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.warns), len(l.errors)
}
