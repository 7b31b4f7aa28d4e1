package output

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/lumen-core/internal/dmx"
	"github.com/nerrad567/lumen-core/internal/show"
	"github.com/nerrad567/lumen-core/internal/state"
)

// DefaultRestartDelay is the pause between stop and start on Restart, long
// enough for the OS to release the old sockets.
const DefaultRestartDelay = 250 * time.Millisecond

// DefaultSourceName is the sACN source name used when none is configured.
const DefaultSourceName = "Lumen"

// Logger is the logging interface used by the engine.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Source provides the model and state for each frame. *state.Store
// satisfies it.
type Source interface {
	View() (*show.Model, state.RuntimeState)
}

// Options configures an Engine.
type Options struct {
	// CID identifies this server to sACN receivers. A random one is
	// generated when zero.
	CID uuid.UUID

	// SourceName is used when the show does not set one.
	SourceName string

	MulticastTTL int
	RestartDelay time.Duration

	Logger  Logger
	Metrics *Metrics

	// Listen opens sockets. Defaults to ListenUDP.
	Listen ListenFunc
}

// Stats is a snapshot of engine counters. Counters are cumulative across
// restarts.
type Stats struct {
	Running    bool          `json:"running"`
	Protocol   show.Protocol `json:"protocol,omitempty"`
	FrameRate  int           `json:"frameRate,omitempty"`
	Universes  int           `json:"universes"`
	Frames     uint64        `json:"frames"`
	Packets    uint64        `json:"packets"`
	SendErrors uint64        `json:"sendErrors"`
	Skipped    uint64        `json:"skipped"`
	Restarts   uint64        `json:"restarts"`
	StartedAt  time.Time     `json:"startedAt,omitzero"`
	LastFrame  time.Time     `json:"lastFrame,omitzero"`
}

// run is one Start..Stop lifetime.
type run struct {
	settings  show.OutputSettings
	builder   *dmx.Builder
	tx        transmitter
	startedAt time.Time
	cancel    context.CancelFunc
	done      chan struct{}
}

// Engine transmits frames at the show's frame rate.
//
// Thread Safety:
//   - Start, Stop and Restart may be called from any goroutine; they are
//     serialised.
//   - Each run has exactly one ticker goroutine, so ticks never overlap.
type Engine struct {
	src     Source
	cid     [16]byte
	opts    Options
	logger  Logger
	metrics *Metrics

	lifecycle sync.Mutex // serialises Start/Stop/Restart
	mu        sync.RWMutex
	cur       *run

	frames     atomic.Uint64
	packets    atomic.Uint64
	sendErrors atomic.Uint64
	skipped    atomic.Uint64
	restarts   atomic.Uint64
	universes  atomic.Int64
	lastFrame  atomic.Int64
}

// NewEngine creates a stopped engine reading from src.
//
// Each tick reads one consistent model and state pair from src, builds the
// frame and hands it to the transmitter for the configured protocol. Nothing
// is opened until Start.
//
// Zero-valued options are filled in:
//   - CID: a random UUID, kept for the engine's lifetime
//   - SourceName: DefaultSourceName
//   - RestartDelay: DefaultRestartDelay
//   - Listen: ListenUDP
//   - Logger: discards
//   - Metrics: unregistered collectors
//
// Parameters:
//   - src: Model and state provider, usually the state store
//   - opts: Engine options
//
// Returns:
//   - *Engine: Stopped engine ready for Start
//
// Example:
//
//	engine := output.NewEngine(store, output.Options{
//	    SourceName: "Lumen",
//	    Metrics:    output.NewMetrics(reg),
//	})
//	if err := engine.Start(ctx); err != nil {
//	    return err
//	}
//	defer engine.Stop()
func NewEngine(src Source, opts Options) *Engine {
	if opts.CID == uuid.Nil {
		opts.CID = uuid.New()
	}
	if opts.SourceName == "" {
		opts.SourceName = DefaultSourceName
	}
	if opts.RestartDelay <= 0 {
		opts.RestartDelay = DefaultRestartDelay
	}
	if opts.Listen == nil {
		opts.Listen = ListenUDP
	}
	logger := opts.Logger
	if logger == nil {
		logger = noopLogger{}
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	return &Engine{
		src:     src,
		cid:     opts.CID,
		opts:    opts,
		logger:  logger,
		metrics: metrics,
	}
}

// CID returns the sACN component identifier.
func (e *Engine) CID() uuid.UUID { return uuid.UUID(e.cid) }

// Start opens sockets for the current output settings and begins ticking.
// The engine runs until Stop is called or ctx is cancelled.
func (e *Engine) Start(ctx context.Context) error {
	e.lifecycle.Lock()
	defer e.lifecycle.Unlock()
	return e.start(ctx)
}

func (e *Engine) start(ctx context.Context) error {
	e.mu.RLock()
	running := e.cur != nil
	e.mu.RUnlock()
	if running {
		return ErrAlreadyRunning
	}

	model, _ := e.src.View()
	settings := model.Output()
	tx, err := e.newTransmitter(settings)
	if err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	r := &run{
		settings:  settings,
		builder:   dmx.NewBuilder(settings.Protocol, e.logger),
		tx:        tx,
		startedAt: time.Now(),
		cancel:    cancel,
		done:      make(chan struct{}),
	}
	e.mu.Lock()
	e.cur = r
	e.mu.Unlock()

	go e.loop(runCtx, r)

	e.logger.Info("output engine started",
		"protocol", string(settings.Protocol),
		"frame_rate", settings.FrameRate,
	)
	return nil
}

// Stop halts ticking, closes every socket and discards all sessions. It is
// a no-op when the engine is stopped.
func (e *Engine) Stop() {
	e.lifecycle.Lock()
	defer e.lifecycle.Unlock()
	e.stop()
}

func (e *Engine) stop() {
	e.mu.Lock()
	r := e.cur
	e.cur = nil
	e.mu.Unlock()
	if r == nil {
		return
	}

	r.cancel()
	<-r.done
	if err := r.tx.close(); err != nil {
		e.logger.Warn("closing output sockets", "error", err)
	}
	e.universes.Store(0)
	e.metrics.Universes.Set(0)
	e.logger.Info("output engine stopped", "protocol", string(r.settings.Protocol))
}

// Restart stops the engine, waits the restart delay and starts it with the
// source's current output settings. It starts a stopped engine too.
func (e *Engine) Restart(ctx context.Context) error {
	e.lifecycle.Lock()
	defer e.lifecycle.Unlock()

	e.stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(e.opts.RestartDelay):
	}
	if err := e.start(ctx); err != nil {
		return err
	}
	e.restarts.Add(1)
	return nil
}

// Running reports whether the engine is ticking.
func (e *Engine) Running() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.cur != nil
}

// Frames returns a copy of the last transmitted frame. It is empty when
// stopped.
func (e *Engine) Frames() []dmx.Universe {
	e.mu.RLock()
	r := e.cur
	e.mu.RUnlock()
	if r == nil {
		return nil
	}
	return r.builder.Snapshot()
}

// Stats returns the engine counters.
func (e *Engine) Stats() Stats {
	s := Stats{
		Universes:  int(e.universes.Load()),
		Frames:     e.frames.Load(),
		Packets:    e.packets.Load(),
		SendErrors: e.sendErrors.Load(),
		Skipped:    e.skipped.Load(),
		Restarts:   e.restarts.Load(),
	}
	if ts := e.lastFrame.Load(); ts != 0 {
		s.LastFrame = time.Unix(0, ts)
	}

	e.mu.RLock()
	r := e.cur
	e.mu.RUnlock()
	if r != nil {
		s.Running = true
		s.Protocol = r.settings.Protocol
		s.FrameRate = r.settings.FrameRate
		s.StartedAt = r.startedAt
	}
	return s
}

func (e *Engine) newTransmitter(settings show.OutputSettings) (transmitter, error) {
	switch settings.Protocol {
	case show.ProtocolSACN:
		name := settings.SACN.SourceName
		if name == "" {
			name = e.opts.SourceName
		}
		return newSACNTransmitter(settings.SACN, e.cid, name, e.opts.MulticastTTL, e.opts.Listen, e.logger)
	case show.ProtocolArtNet:
		return newArtNetTransmitter(settings.ArtNet, e.opts.Listen, e.logger)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProtocol, settings.Protocol)
	}
}

func (e *Engine) loop(ctx context.Context, r *run) {
	defer close(r.done)

	ticker := time.NewTicker(frameInterval(r.settings.FrameRate))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.tick(r)
		}
	}
}

func (e *Engine) tick(r *run) {
	start := time.Now()

	model, st := e.src.View()
	frame := r.builder.Build(model, st)
	res := r.tx.send(frame)

	proto := string(r.tx.protocol())
	e.frames.Add(1)
	e.packets.Add(uint64(res.packets))
	e.sendErrors.Add(uint64(res.errors))
	e.universes.Store(int64(len(frame)))
	e.lastFrame.Store(start.UnixNano())

	e.metrics.Frames.Inc()
	e.metrics.Packets.WithLabelValues(proto).Add(float64(res.packets))
	if res.errors > 0 {
		e.metrics.SendErrors.WithLabelValues(proto).Add(float64(res.errors))
	}
	for reason, n := range res.skipped {
		e.skipped.Add(uint64(n))
		e.metrics.Skipped.WithLabelValues(proto, reason).Add(float64(n))
	}
	e.metrics.Universes.Set(float64(len(frame)))
	e.metrics.TickSeconds.Observe(time.Since(start).Seconds())
}

func frameInterval(rate int) time.Duration {
	if rate < show.MinFrameRate || rate > show.MaxFrameRate {
		rate = show.DefaultFrameRate
	}
	return time.Second / time.Duration(rate)
}
