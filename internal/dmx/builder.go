package dmx

import (
	"sort"
	"sync"

	"github.com/nerrad567/lumen-core/internal/show"
	"github.com/nerrad567/lumen-core/internal/state"
)

// Logger is the logging interface used by the builder.
type Logger interface {
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Warn(string, ...any) {}

// Builder keeps universe buffers across passes for one output run.
//
// Buffers are created when a universe key first appears and are never
// dropped while the builder lives, so a universe whose fixtures were removed
// keeps sending zeros. Every pass starts by zeroing all of them.
type Builder struct {
	protocol show.Protocol
	logger   Logger

	buffers map[string]*Universe
	warned  map[string]bool

	mu   sync.Mutex
	last []Universe
}

// NewBuilder creates a builder for protocol.
func NewBuilder(protocol show.Protocol, logger Logger) *Builder {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Builder{
		protocol: protocol,
		logger:   logger,
		buffers:  make(map[string]*Universe),
		warned:   make(map[string]bool),
	}
}

// Build resolves model and st into universe buffers sorted by key. The
// returned buffers belong to the builder and are valid until the next call.
//
// A fixture whose footprint runs outside 1-512 is skipped and reported once.
// With blackout set nothing is resolved and every buffer is left zeroed.
func (b *Builder) Build(model *show.Model, st state.RuntimeState) []*Universe {
	for _, u := range b.buffers {
		u.Data = [Slots]byte{}
	}
	for _, pf := range model.Fixtures() {
		b.universeFor(pf.Fixture)
	}

	if !st.Blackout {
		resolved := Resolve(model, st)
		for _, pf := range model.Fixtures() {
			b.write(pf, resolved[pf.Fixture.ID])
		}
	}

	out := make([]*Universe, 0, len(b.buffers))
	for _, u := range b.buffers {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return keyLess(out[i], out[j]) })

	b.remember(out)
	return out
}

func (b *Builder) universeFor(f show.Fixture) *Universe {
	key := UniverseKey(b.protocol, f)
	u, ok := b.buffers[key]
	if !ok {
		u = newUniverse(b.protocol, f)
		b.buffers[key] = u
	}
	return u
}

func (b *Builder) write(pf *show.PatchedFixture, vals state.ChannelValues) {
	f := pf.Fixture
	first := f.StartAddress
	last := f.StartAddress + pf.Footprint() - 1
	if first < 1 || last > Slots {
		if !b.warned[f.ID] {
			b.warned[f.ID] = true
			b.logger.Warn("fixture footprint outside universe, skipping",
				"fixture", f.ID,
				"start_address", f.StartAddress,
				"footprint", pf.Footprint(),
			)
		}
		return
	}

	u := b.universeFor(f)
	for _, ch := range pf.Channels {
		u.Data[f.StartAddress+ch.Offset-1] = ToDMX(vals[ch.Name])
	}
}

func (b *Builder) remember(frame []*Universe) {
	cp := make([]Universe, len(frame))
	for i, u := range frame {
		cp[i] = *u
	}
	b.mu.Lock()
	b.last = cp
	b.mu.Unlock()
}

// Snapshot returns a copy of the last built frame.
func (b *Builder) Snapshot() []Universe {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Universe(nil), b.last...)
}

// keyLess orders universes numerically by universe number, then by key.
func keyLess(a, b *Universe) bool {
	if a.Number != b.Number {
		return a.Number < b.Number
	}
	return a.Key < b.Key
}
