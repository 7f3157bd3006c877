package bridge

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/nerrad567/switchbot-mqtt/internal/device"
)

// Bridge routes MQTT messages to SwitchBot devices and publishes results.
//
// Message handlers only decode and enqueue; device work runs on the
// per-handle queue, so commands for one address execute in arrival order
// and commands for different addresses run concurrently.
//
// Thread Safety: All methods are safe for concurrent use.
type Bridge struct {
	mqtt     MQTTClient
	registry *device.Registry
	exec     *Executor
	reporter *Reporter

	prefix          string
	qos             byte
	fetchDeviceInfo bool

	// ctx carries values but is never cancelled; device operations are
	// bounded by the protocol layer's own timeouts.
	ctx context.Context

	stopMu   sync.Mutex
	stopped  bool
	wg       sync.WaitGroup
	stopOnce sync.Once

	received atomic.Uint64
	ignored  atomic.Uint64
	dropped  atomic.Uint64
	executed atomic.Uint64
	failed   atomic.Uint64

	logger   Logger
	loggerMu sync.RWMutex
}

// MQTTClient is the interface for MQTT operations.
// This allows mocking in tests; main.go adapts the infrastructure client.
type MQTTClient interface {
	// Publish sends a message to a topic.
	Publish(topic string, payload []byte, qos byte, retained bool) error

	// Subscribe registers a handler for a topic pattern. Handlers are
	// called in arrival order and must not block on device I/O.
	Subscribe(topic string, qos byte, handler func(topic string, payload []byte, retained bool)) error

	// IsConnected returns true if connected to the broker.
	IsConnected() bool
}

// Logger defines the logging interface used by the bridge.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// BridgeOptions holds configuration for creating a bridge.
type BridgeOptions struct {
	// MQTTClient is the MQTT client implementation.
	MQTTClient MQTTClient

	// Registry resolves addresses to device handles.
	Registry *device.Registry

	// TopicPrefix precedes every topic, e.g. "homeassistant/".
	TopicPrefix string

	// QoS is used for subscriptions and publishes.
	QoS byte

	// Retry bounds attempts per operation.
	Retry RetryPolicy

	// FetchDeviceInfo enables reporting after successful commands.
	FetchDeviceInfo bool

	// Telemetry optionally receives device info snapshots.
	Telemetry TelemetrySink

	// Logger is optional.
	Logger Logger
}

// NewBridge creates a new bridge instance.
// Call Start() to begin operation.
func NewBridge(opts BridgeOptions) (*Bridge, error) {
	if opts.MQTTClient == nil {
		return nil, fmt.Errorf("MQTT client is required")
	}
	if opts.Registry == nil {
		return nil, fmt.Errorf("device registry is required")
	}

	b := &Bridge{
		mqtt:            opts.MQTTClient,
		registry:        opts.Registry,
		exec:            NewExecutor(opts.Retry),
		prefix:          opts.TopicPrefix,
		qos:             opts.QoS,
		fetchDeviceInfo: opts.FetchDeviceInfo,
		ctx:             context.Background(),
		logger:          opts.Logger,
	}
	b.reporter = NewReporter(b.exec, b.prefix, b.publishRetained, opts.Telemetry)

	return b, nil
}

// subscriptions lists every inbound topic pattern.
func (b *Bridge) subscriptions() []string {
	return []string{
		SubscriptionTopic(b.prefix, ClassSwitch, KindSet),
		SubscriptionTopic(b.prefix, ClassSwitch, KindRequestDeviceInfo),
		SubscriptionTopic(b.prefix, ClassCurtain, KindSet),
		SubscriptionTopic(b.prefix, ClassCurtain, KindPositionSet),
		SubscriptionTopic(b.prefix, ClassCurtain, KindRequestDeviceInfo),
	}
}

// Start subscribes to all command and request topics.
func (b *Bridge) Start(ctx context.Context) error {
	b.ctx = context.WithoutCancel(ctx)

	for _, topic := range b.subscriptions() {
		if err := b.mqtt.Subscribe(topic, b.qos, b.handleMessage); err != nil {
			return fmt.Errorf("subscribe to %s: %w", topic, err)
		}
		b.logDebug("subscribed", "topic", topic)
	}

	b.logInfo("bridge started",
		"prefix", b.prefix,
		"fetch_device_info", b.fetchDeviceInfo)
	return nil
}

// Stop stops accepting messages and waits for queued device work.
func (b *Bridge) Stop() {
	b.stopOnce.Do(func() {
		b.stopMu.Lock()
		b.stopped = true
		b.stopMu.Unlock()

		b.wg.Wait()
		b.logInfo("bridge stopped")
	})
}

// handleMessage decodes a message and queues it on the device's handle.
// It never blocks on device I/O and never returns an error to the transport.
func (b *Bridge) handleMessage(topic string, payload []byte, retained bool) {
	b.received.Add(1)

	if retained {
		b.ignored.Add(1)
		b.logDebug("ignoring retained message", "topic", topic)
		return
	}

	req, err := Decode(b.prefix, topic, payload)
	if err != nil {
		b.dropped.Add(1)
		b.logWarn("dropping message", "topic", topic, "error", err)
		return
	}

	h := b.registry.Resolve(req.Address)

	b.stopMu.Lock()
	if b.stopped {
		b.stopMu.Unlock()
		b.dropped.Add(1)
		b.logWarn("bridge stopped, dropping message", "topic", topic)
		return
	}
	b.wg.Add(1)
	b.stopMu.Unlock()

	h.Submit(func() {
		defer b.wg.Done()
		b.process(b.ctx, h, req)
	})
}

// process runs one decoded request. Errors are logged, never propagated.
func (b *Bridge) process(ctx context.Context, h *device.Handle, req Request) {
	switch req.Kind {
	case RequestCommand, RequestPositionSet:
		b.runCommand(ctx, h, req)
	case RequestDeviceInfo:
		b.report(ctx, h, req.Class, req.Class == ClassCurtain)
	}
}

func (b *Bridge) runCommand(ctx context.Context, h *device.Handle, req Request) {
	err := b.exec.Execute(ctx, h, req.Class, req.Command)
	h.Record(err)
	if err != nil {
		b.failed.Add(1)
		b.logError("command failed",
			"address", h.Address(),
			"class", req.Class.String(),
			"action", req.Command.Action.String(),
			"error", err)
		return
	}
	b.executed.Add(1)
	b.logInfo("command executed",
		"address", h.Address(),
		"class", req.Class.String(),
		"action", req.Command.Action.String())

	if state, ok := statePayload(req.Command.Action); ok {
		topic := Encode(b.prefix, req.Class, h.Address(), KindState)
		if err := b.publishRetained(topic, []byte(state)); err != nil {
			b.logError("failed to publish state", "topic", topic, "error", err)
		}
	}

	if b.fetchDeviceInfo && req.Kind == RequestCommand {
		b.report(ctx, h, req.Class, req.Command.Action == ActionStop)
	}
}

func (b *Bridge) report(ctx context.Context, h *device.Handle, class DeviceClass, includePosition bool) {
	if err := b.reporter.Report(ctx, h, class, includePosition); err != nil {
		b.logWarn("device info report incomplete",
			"address", h.Address(),
			"class", class.String(),
			"error", err)
	}
}

func (b *Bridge) publishRetained(topic string, payload []byte) error {
	return b.mqtt.Publish(topic, payload, b.qos, true)
}

// Devices returns snapshots of all known device handles.
func (b *Bridge) Devices() []device.HandleInfo {
	return b.registry.List()
}

// IsConnected reports the MQTT connection state.
func (b *Bridge) IsConnected() bool {
	return b.mqtt.IsConnected()
}

// SetLogger sets the logger for the bridge.
func (b *Bridge) SetLogger(logger Logger) {
	b.loggerMu.Lock()
	b.logger = logger
	b.loggerMu.Unlock()
}

func (b *Bridge) getLogger() Logger {
	b.loggerMu.RLock()
	defer b.loggerMu.RUnlock()
	return b.logger
}

func (b *Bridge) logDebug(msg string, keysAndValues ...any) {
	if logger := b.getLogger(); logger != nil {
		logger.Debug(msg, keysAndValues...)
	}
}

func (b *Bridge) logInfo(msg string, keysAndValues ...any) {
	if logger := b.getLogger(); logger != nil {
		logger.Info(msg, keysAndValues...)
	}
}

func (b *Bridge) logWarn(msg string, keysAndValues ...any) {
	if logger := b.getLogger(); logger != nil {
		logger.Warn(msg, keysAndValues...)
	}
}

func (b *Bridge) logError(msg string, keysAndValues ...any) {
	if logger := b.getLogger(); logger != nil {
		logger.Error(msg, keysAndValues...)
	}
}

// Metrics contains counters for the status API.
type Metrics struct {
	Connected bool
	Received  uint64
	Ignored   uint64
	Dropped   uint64
	Executed  uint64
	Failed    uint64
	Devices   int
}

// GetMetrics returns current bridge counters.
func (b *Bridge) GetMetrics() Metrics {
	return Metrics{
		Connected: b.mqtt.IsConnected(),
		Received:  b.received.Load(),
		Ignored:   b.ignored.Load(),
		Dropped:   b.dropped.Load(),
		Executed:  b.executed.Load(),
		Failed:    b.failed.Load(),
		Devices:   b.registry.Count(),
	}
}
