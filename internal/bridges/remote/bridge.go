package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/nerrad567/lumen-core/internal/auth"
	"github.com/nerrad567/lumen-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/lumen-core/internal/state"
)

// MQTTClient is the subset of *mqtt.Client the bridge uses.
type MQTTClient interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topic string) error
}

// Console is the subset of *console.Service the bridge drives.
type Console interface {
	Subscribe(l state.Listener)
	State() state.RuntimeState
	ApplyUpdate(u state.Update) (state.RuntimeState, error)
}

// Logger is the logging interface used by the bridge.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Debug(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Debug(string, ...any) {}

// Options configures a Bridge.
type Options struct {
	MQTT    MQTTClient
	Console Console
	Topics  mqtt.Topics
	// Role is granted to every command.
	Role   auth.Role
	QoS    byte
	Logger Logger
}

// Stats are the bridge counters.
type Stats struct {
	Published uint64 `json:"published"`
	Commands  uint64 `json:"commands"`
	Rejected  uint64 `json:"rejected"`
}

// Bridge publishes state to MQTT and applies MQTT commands.
//
// State changes are coalesced: the listener only records that a publish is
// due, and one goroutine publishes the latest snapshot. A slow broker never
// holds up the state writer.
type Bridge struct {
	mqtt      MQTTClient
	console   Console
	topics    mqtt.Topics
	principal auth.Principal
	qos       byte
	logger    Logger

	mu      sync.Mutex
	latest  *state.RuntimeState
	pending chan struct{}

	subscribeOnce sync.Once
	runMu         sync.Mutex
	cancel        context.CancelFunc
	done          chan struct{}

	published atomic.Uint64
	commands  atomic.Uint64
	rejected  atomic.Uint64
}

// New creates a bridge. Call Start to begin.
func New(opts Options) (*Bridge, error) {
	if opts.MQTT == nil {
		return nil, fmt.Errorf("MQTT client is required")
	}
	if opts.Console == nil {
		return nil, fmt.Errorf("console is required")
	}
	if !opts.Role.Valid() {
		return nil, fmt.Errorf("%w: %d", auth.ErrInvalidRole, int(opts.Role))
	}
	if opts.Topics.Prefix == "" {
		opts.Topics = mqtt.NewTopics("")
	}
	var logger Logger = noopLogger{}
	if opts.Logger != nil {
		logger = opts.Logger
	}
	return &Bridge{
		mqtt:      opts.MQTT,
		console:   opts.Console,
		topics:    opts.Topics,
		principal: auth.Principal{ClientID: "mqtt", Record: auth.ClientRecord{Role: opts.Role}},
		qos:       opts.QoS,
		logger:    logger,
		pending:   make(chan struct{}, 1),
	}, nil
}

// Start subscribes to the command topics, publishes the current state and
// keeps publishing on every change until Stop or ctx is done.
func (b *Bridge) Start(ctx context.Context) error {
	b.runMu.Lock()
	defer b.runMu.Unlock()
	if b.cancel != nil {
		return nil
	}

	if err := b.mqtt.Subscribe(b.topics.AllCommands(), b.qos, b.HandleMessage); err != nil {
		return fmt.Errorf("subscribe to commands: %w", err)
	}
	b.subscribeOnce.Do(func() {
		b.console.Subscribe(b.queue)
	})

	ctx, cancel := context.WithCancel(ctx)
	b.cancel = cancel
	b.done = make(chan struct{})
	go b.publishLoop(ctx, b.done)

	b.Resync()
	b.logger.Info("remote bridge started",
		"commands", b.topics.AllCommands(),
		"state", b.topics.State(),
		"role", b.principal.Record.Role.String(),
	)
	return nil
}

// Stop unsubscribes and waits for the publisher to finish.
func (b *Bridge) Stop() {
	b.runMu.Lock()
	defer b.runMu.Unlock()
	if b.cancel == nil {
		return
	}
	b.cancel()
	<-b.done
	b.cancel, b.done = nil, nil

	if err := b.mqtt.Unsubscribe(b.topics.AllCommands()); err != nil && !errors.Is(err, mqtt.ErrNotConnected) {
		b.logger.Warn("failed to unsubscribe remote commands", "error", err)
	}
	b.logger.Info("remote bridge stopped")
}

// Resync queues the current state for publishing. Wire it to the MQTT
// client's reconnect callback.
func (b *Bridge) Resync() {
	b.queue(b.console.State())
}

// Stats returns the bridge counters.
func (b *Bridge) Stats() Stats {
	return Stats{
		Published: b.published.Load(),
		Commands:  b.commands.Load(),
		Rejected:  b.rejected.Load(),
	}
}

// queue is the state listener. It must not block.
func (b *Bridge) queue(s state.RuntimeState) {
	b.mu.Lock()
	b.latest = &s
	b.mu.Unlock()
	select {
	case b.pending <- struct{}{}:
	default:
	}
}

func (b *Bridge) publishLoop(ctx context.Context, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return
		case <-b.pending:
			b.publishLatest()
		}
	}
}

func (b *Bridge) publishLatest() {
	b.mu.Lock()
	s := b.latest
	b.latest = nil
	b.mu.Unlock()
	if s == nil {
		return
	}

	payload, err := json.Marshal(s)
	if err != nil {
		b.logger.Warn("failed to encode state", "error", err)
		return
	}
	if err := b.mqtt.Publish(b.topics.State(), payload, b.qos, true); err != nil {
		b.logger.Warn("failed to publish state", "topic", b.topics.State(), "error", err)
		return
	}
	b.published.Add(1)
}

// HandleMessage applies one command message. Errors are returned to the MQTT
// client, which logs them.
func (b *Bridge) HandleMessage(topic string, payload []byte) error {
	b.commands.Add(1)

	if !b.principal.Can(auth.CapEdit, "") {
		b.rejected.Add(1)
		return ErrReadOnly
	}
	u, err := ParseCommand(b.topics, topic, payload)
	if err != nil {
		b.rejected.Add(1)
		return err
	}
	if _, err := b.console.ApplyUpdate(u); err != nil {
		b.rejected.Add(1)
		return fmt.Errorf("apply %s: %w", topic, err)
	}
	b.logger.Debug("remote command applied", "topic", topic)
	return nil
}
