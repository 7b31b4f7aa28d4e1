package telemetry

import (
	"context"
	"sync"
	"time"

	"github.com/nerrad567/lumen-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/lumen-core/internal/output"
	"github.com/nerrad567/lumen-core/internal/state"
)

// DefaultStatsInterval is used when the configured interval is not positive.
const DefaultStatsInterval = 10 * time.Second

// Writer is the subset of *influxdb.Client the recorder needs.
type Writer interface {
	WriteState(site string, blackout bool, activeLooks int)
	WriteLookLevel(site, lookID string, level float64)
	WriteOutput(site string, o influxdb.OutputCounters)
}

// Source provides state changes and output counters; *console.Service
// satisfies it.
type Source interface {
	Subscribe(l state.Listener)
	OutputStats() output.Stats
}

// Logger is the logging interface used by the recorder.
type Logger interface {
	Debug(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}

// Recorder writes state and output telemetry.
type Recorder struct {
	writer   Writer
	source   Source
	site     string
	interval time.Duration
	logger   Logger

	mu        sync.Mutex
	looks     map[string]float64
	running   bool
	cancel    context.CancelFunc
	done      chan struct{}
	subscribe sync.Once
}

// New creates a recorder. A non-positive interval selects
// DefaultStatsInterval.
func New(w Writer, src Source, site string, interval time.Duration) *Recorder {
	if interval <= 0 {
		interval = DefaultStatsInterval
	}
	return &Recorder{
		writer:   w,
		source:   src,
		site:     site,
		interval: interval,
		logger:   noopLogger{},
		looks:    make(map[string]float64),
	}
}

// SetLogger sets the logger.
func (r *Recorder) SetLogger(l Logger) {
	if l != nil {
		r.logger = l
	}
}

// Start subscribes to state changes and samples output counters until ctx
// is cancelled or Stop is called.
func (r *Recorder) Start(ctx context.Context) {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	r.running = true
	r.cancel = cancel
	r.done = make(chan struct{})
	done := r.done
	r.mu.Unlock()

	r.subscribe.Do(func() {
		r.source.Subscribe(r.RecordState)
	})

	go r.loop(ctx, done)
}

// Stop ends sampling and writes one final output point.
func (r *Recorder) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.running = false
	cancel, done := r.cancel, r.done
	r.mu.Unlock()

	cancel()
	<-done
	r.RecordOutput()
}

func (r *Recorder) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.RecordOutput()
		}
	}
}

// RecordState writes a state summary and the levels of looks that changed
// since the last call. Looks that disappeared are written once at zero.
// Changes arriving while the recorder is stopped are ignored.
func (r *Recorder) RecordState(s state.RuntimeState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.running {
		return
	}

	active := 0
	for id, level := range s.Looks {
		if level > 0 {
			active++
		}
		if prev, ok := r.looks[id]; !ok || prev != level {
			r.writer.WriteLookLevel(r.site, id, level)
			r.looks[id] = level
		}
	}
	for id := range r.looks {
		if _, ok := s.Looks[id]; !ok {
			r.writer.WriteLookLevel(r.site, id, 0)
			delete(r.looks, id)
		}
	}
	r.writer.WriteState(r.site, s.Blackout, active)
}

// RecordOutput samples the output engine counters.
func (r *Recorder) RecordOutput() {
	st := r.source.OutputStats()
	r.writer.WriteOutput(r.site, influxdb.OutputCounters{
		Protocol:   string(st.Protocol),
		Running:    st.Running,
		Universes:  st.Universes,
		Frames:     st.Frames,
		Packets:    st.Packets,
		SendErrors: st.SendErrors,
		Skipped:    st.Skipped,
		Restarts:   st.Restarts,
	})
	r.logger.Debug("telemetry output sample",
		"frames", st.Frames,
		"packets", st.Packets,
		"send_errors", st.SendErrors,
	)
}
