package device

import (
	"context"
	"sync"
)

// MockProtocol records calls and detects overlapping use.
type MockProtocol struct {
	mu       sync.Mutex
	calls    []string
	active   int
	overlaps int
	hold     chan struct{}
}

func (m *MockProtocol) enter(name string) {
	m.mu.Lock()
	m.active++
	if m.active > 1 {
		m.overlaps++
	}
	m.calls = append(m.calls, name)
	hold := m.hold
	m.mu.Unlock()

	if hold != nil {
		<-hold
	}

	m.mu.Lock()
	m.active--
	m.mu.Unlock()
}

func (m *MockProtocol) TurnOn(context.Context) error  { m.enter("TurnOn"); return nil }
func (m *MockProtocol) TurnOff(context.Context) error { m.enter("TurnOff"); return nil }
func (m *MockProtocol) Open(context.Context) error    { m.enter("Open"); return nil }
func (m *MockProtocol) Close(context.Context) error   { m.enter("Close"); return nil }
func (m *MockProtocol) Stop(context.Context) error    { m.enter("Stop"); return nil }
func (m *MockProtocol) SetPosition(context.Context, int) error {
	m.enter("SetPosition")
	return nil
}
func (m *MockProtocol) GetBatteryPercent(context.Context) (int, error) {
	m.enter("GetBatteryPercent")
	return 90, nil
}
func (m *MockProtocol) GetPosition(context.Context) (int, error) {
	m.enter("GetPosition")
	return 50, nil
}

func (m *MockProtocol) Overlaps() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.overlaps
}

// mockFactory hands out one MockProtocol per address and records passwords.
type mockFactory struct {
	mu        sync.Mutex
	protocols map[string]*MockProtocol
	passwords map[string]string
	created   int
}

func newMockFactory() *mockFactory {
	return &mockFactory{
		protocols: make(map[string]*MockProtocol),
		passwords: make(map[string]string),
	}
}

func (f *mockFactory) New(address, password string) Protocol {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := &MockProtocol{}
	f.protocols[address] = p
	f.passwords[address] = password
	f.created++
	return p
}
