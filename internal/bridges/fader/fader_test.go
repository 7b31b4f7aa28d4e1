package fader

import (
	"errors"
	"sync"
	"testing"

	"gitlab.com/gomidi/midi/v2"

	"github.com/nerrad567/lumen-core/internal/infrastructure/config"
	"github.com/nerrad567/lumen-core/internal/state"
)

func TestParseTarget(t *testing.T) {
	tests := []struct {
		in      string
		want    Target
		wantErr bool
	}{
		{in: "blackout", want: Target{Kind: TargetBlackout}},
		{in: " look:warm ", want: Target{Kind: TargetLook, LookID: "warm"}},
		{in: "fixture:par1:dimmer", want: Target{Kind: TargetFixture, FixtureID: "par1", Channel: "dimmer"}},
		{in: "look:", wantErr: true},
		{in: "fixture:par1", wantErr: true},
		{in: "fixture::dimmer", wantErr: true},
		{in: "master", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTarget(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidTarget) {
					t.Errorf("err = %v, want ErrInvalidTarget", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseTarget() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestTargetUpdate(t *testing.T) {
	look := Target{Kind: TargetLook, LookID: "warm"}
	fixture := Target{Kind: TargetFixture, FixtureID: "par1", Channel: "dimmer"}
	blackout := Target{Kind: TargetBlackout}

	tests := []struct {
		name  string
		got   func() float64
		value float64
	}{
		{"look full", func() float64 { return look.Update(127).Looks["warm"] }, 1},
		{"look off", func() float64 { return look.Update(0).Looks["warm"] }, 0},
		{"fixture full", func() float64 { return fixture.Update(127).Fixtures["par1"]["dimmer"] }, 100},
		{"fixture clamps", func() float64 { return fixture.Update(200).Fixtures["par1"]["dimmer"] }, 100},
	}
	for _, tt := range tests {
		if got := tt.got(); got != tt.value {
			t.Errorf("%s = %v, want %v", tt.name, got, tt.value)
		}
	}

	for value, want := range map[uint8]bool{0: false, 63: false, 64: true, 127: true} {
		u := blackout.Update(value)
		if u.Blackout == nil || *u.Blackout != want {
			t.Errorf("blackout(%d) = %v, want %v", value, u.Blackout, want)
		}
	}
	if !(Target{}).Update(10).IsEmpty() {
		t.Error("zero target produced a non-empty update")
	}
}

func TestNewMapper(t *testing.T) {
	m, err := NewMapper([]config.MIDIMapping{
		{Channel: 0, Controller: 70, Target: "look:warm"},
		{Channel: 0, Controller: 71, Target: "fixture:par1:dimmer"},
		{Channel: 1, Controller: 70, Target: "blackout"},
		{Channel: 0, Controller: 70, Target: "look:cold"},
	})
	if err != nil {
		t.Fatalf("NewMapper() error = %v", err)
	}
	if m.Len() != 3 {
		t.Errorf("Len() = %d, want 3", m.Len())
	}
	u, ok := m.Resolve(0, 70, 127)
	if !ok || u.Looks["cold"] != 1 {
		t.Errorf("Resolve(0, 70) = %+v, %v; want cold at 1", u, ok)
	}
	if _, ok := m.Resolve(2, 70, 127); ok {
		t.Error("unmapped channel resolved")
	}

	_, err = NewMapper([]config.MIDIMapping{
		{Channel: 16, Controller: 1, Target: "blackout"},
		{Channel: 0, Controller: 1, Target: "bogus"},
	})
	if !errors.Is(err, ErrInvalidTarget) {
		t.Errorf("NewMapper() error = %v, want ErrInvalidTarget", err)
	}
}

type fakeApplier struct {
	mu      sync.Mutex
	updates []state.Update
	err     error
}

func (f *fakeApplier) ApplyUpdate(u state.Update) (state.RuntimeState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return state.RuntimeState{}, f.err
	}
	f.updates = append(f.updates, u)
	return state.RuntimeState{}, nil
}

func TestSurfaceHandleMessage(t *testing.T) {
	applier := &fakeApplier{}
	s, err := New(config.MIDIConfig{
		Port:     "x-touch",
		Mappings: []config.MIDIMapping{{Channel: 0, Controller: 70, Target: "look:warm"}},
	}, applier)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	s.HandleMessage(midi.ControlChange(0, 70, 127))
	s.HandleMessage(midi.ControlChange(0, 71, 127))
	s.HandleMessage(midi.NoteOn(0, 70, 100))

	if len(applier.updates) != 1 || applier.updates[0].Looks["warm"] != 1 {
		t.Fatalf("updates = %+v, want one warm=1", applier.updates)
	}

	applier.err = state.ErrUnknownLook
	s.HandleMessage(midi.ControlChange(0, 70, 10))
	if applied, rejected := s.Counts(); applied != 1 || rejected != 1 {
		t.Errorf("Counts() = %d, %d; want 1, 1", applied, rejected)
	}
}

func TestNewRejectsBadMappings(t *testing.T) {
	_, err := New(config.MIDIConfig{Mappings: []config.MIDIMapping{{Target: "look"}}}, &fakeApplier{})
	if !errors.Is(err, ErrInvalidTarget) {
		t.Errorf("New() error = %v, want ErrInvalidTarget", err)
	}
}
