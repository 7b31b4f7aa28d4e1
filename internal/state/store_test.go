package state

import (
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/nerrad567/lumen-core/internal/show"
)

func testModel(t *testing.T) *show.Model {
	t.Helper()
	doc := show.Default()
	doc.Fixtures = []show.Fixture{
		{ID: "par1", Name: "Par 1", ProfileID: "dimmer", Universe: 1, StartAddress: 1},
		{ID: "led1", Name: "LED 1", ProfileID: "dimmer-rgb", Universe: 1, StartAddress: 10},
	}
	doc.Looks = []show.Look{
		{
			ID:    "blue",
			Name:  "Blue wash",
			Color: "#0000ff",
			Targets: map[string]map[show.ChannelName]float64{
				"par1": {"intensity": 80},
				"led1": {"intensity": 100, "red": 0, "green": 0, "blue": 100},
			},
		},
	}
	m, err := show.NewModel(doc)
	if err != nil {
		t.Fatalf("NewModel() error = %v", err)
	}
	return m
}

func boolPtr(b bool) *bool { return &b }

func TestNew_Defaults(t *testing.T) {
	s := New(testModel(t))
	st := s.Snapshot()

	if st.Blackout {
		t.Error("Blackout = true, want false")
	}
	if got := st.Fixtures["par1"]["intensity"]; got != 0 {
		t.Errorf("par1 intensity = %v, want 0", got)
	}
	if got := st.Fixtures["led1"]["red"]; got != 100 {
		t.Errorf("led1 red = %v, want 100", got)
	}
	if got, ok := st.Looks["blue"]; !ok || got != 0 {
		t.Errorf("look blue = %v (present %v), want 0", got, ok)
	}
	if len(st.OverriddenFixtures) != 0 {
		t.Errorf("OverriddenFixtures = %v, want empty", st.OverriddenFixtures)
	}
}

func TestApplyUpdate_MergesAndClamps(t *testing.T) {
	s := New(testModel(t))

	st, err := s.ApplyUpdate(Update{
		Fixtures: map[string]ChannelValues{"par1": {"intensity": 150}},
		Looks:    map[string]float64{"blue": -0.5},
	})
	if err != nil {
		t.Fatalf("ApplyUpdate() error = %v", err)
	}
	if got := st.Fixtures["par1"]["intensity"]; got != 100 {
		t.Errorf("intensity = %v, want clamped 100", got)
	}
	if got := st.Looks["blue"]; got != 0 {
		t.Errorf("look = %v, want clamped 0", got)
	}
	if got := st.Fixtures["led1"]["blue"]; got != 100 {
		t.Errorf("untouched led1 blue = %v, want 100", got)
	}

	st, err = s.ApplyUpdate(Update{Looks: map[string]float64{"blue": 0.5}})
	if err != nil {
		t.Fatalf("ApplyUpdate() error = %v", err)
	}
	if got := st.Fixtures["par1"]["intensity"]; got != 100 {
		t.Errorf("intensity after look update = %v, want 100", got)
	}
	if got := st.Looks["blue"]; got != 0.5 {
		t.Errorf("look = %v, want 0.5", got)
	}
}

func TestApplyUpdate_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		update  Update
		wantErr error
	}{
		{
			name:    "unknown fixture",
			update:  Update{Fixtures: map[string]ChannelValues{"ghost": {"intensity": 10}}},
			wantErr: ErrUnknownFixture,
		},
		{
			name:    "unknown channel",
			update:  Update{Fixtures: map[string]ChannelValues{"par1": {"red": 10}}},
			wantErr: ErrUnknownChannel,
		},
		{
			name:    "unknown look",
			update:  Update{Looks: map[string]float64{"nope": 1}},
			wantErr: ErrUnknownLook,
		},
		{
			name:    "NaN channel",
			update:  Update{Fixtures: map[string]ChannelValues{"par1": {"intensity": math.NaN()}}},
			wantErr: ErrInvalidValue,
		},
		{
			name:    "infinite look",
			update:  Update{Looks: map[string]float64{"blue": math.Inf(1)}},
			wantErr: ErrInvalidValue,
		},
		{
			name:    "override of unknown fixture",
			update:  Update{OverriddenFixtures: map[string]*Override{"ghost": {Active: true}}},
			wantErr: ErrUnknownFixture,
		},
		{
			name: "override naming unknown look",
			update: Update{OverriddenFixtures: map[string]*Override{
				"par1": {Active: true, Looks: []OverrideLook{{ID: "nope"}}},
			}},
			wantErr: ErrUnknownLook,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(testModel(t))
			before := s.Snapshot()

			_, err := s.ApplyUpdate(tt.update)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("ApplyUpdate() error = %v, want %v", err, tt.wantErr)
			}
			after := s.Snapshot()
			if after.Fixtures["par1"]["intensity"] != before.Fixtures["par1"]["intensity"] ||
				after.Looks["blue"] != before.Looks["blue"] ||
				len(after.OverriddenFixtures) != 0 {
				t.Errorf("state changed after rejected update: %+v", after)
			}
		})
	}
}

func TestApplyUpdate_RejectsWholeUpdate(t *testing.T) {
	s := New(testModel(t))

	_, err := s.ApplyUpdate(Update{
		Blackout: boolPtr(true),
		Fixtures: map[string]ChannelValues{
			"par1":  {"intensity": 50},
			"ghost": {"intensity": 50},
		},
	})
	if !errors.Is(err, ErrUnknownFixture) {
		t.Fatalf("ApplyUpdate() error = %v, want ErrUnknownFixture", err)
	}
	st := s.Snapshot()
	if st.Blackout {
		t.Error("Blackout applied from rejected update")
	}
	if st.Fixtures["par1"]["intensity"] != 0 {
		t.Error("par1 value applied from rejected update")
	}
}

func TestApplyUpdate_Overrides(t *testing.T) {
	s := New(testModel(t))

	st, err := s.ApplyUpdate(Update{OverriddenFixtures: map[string]*Override{
		"par1": {Active: true, Looks: []OverrideLook{{ID: "blue", Color: "#0000ff"}}},
	}})
	if err != nil {
		t.Fatalf("ApplyUpdate() error = %v", err)
	}
	if !st.Overridden("par1") {
		t.Fatal("par1 not overridden")
	}
	if len(st.OverriddenFixtures["par1"].Looks) != 1 {
		t.Errorf("override looks = %v, want 1 entry", st.OverriddenFixtures["par1"].Looks)
	}

	st, err = s.ApplyUpdate(Update{OverriddenFixtures: map[string]*Override{"par1": nil}})
	if err != nil {
		t.Fatalf("ApplyUpdate() error = %v", err)
	}
	if st.Overridden("par1") {
		t.Error("par1 still overridden after clearing")
	}
}

func TestApplyUpdate_Blackout(t *testing.T) {
	s := New(testModel(t))

	st, err := s.ApplyUpdate(Update{Blackout: boolPtr(true)})
	if err != nil {
		t.Fatalf("ApplyUpdate() error = %v", err)
	}
	if !st.Blackout {
		t.Error("Blackout = false, want true")
	}
	st, _ = s.ApplyUpdate(Update{Looks: map[string]float64{"blue": 1}})
	if !st.Blackout {
		t.Error("Blackout cleared by unrelated update")
	}
}

func TestSnapshot_IsCopy(t *testing.T) {
	s := New(testModel(t))

	snap := s.Snapshot()
	snap.Fixtures["par1"]["intensity"] = 99
	snap.Looks["blue"] = 1

	again := s.Snapshot()
	if again.Fixtures["par1"]["intensity"] != 0 || again.Looks["blue"] != 0 {
		t.Errorf("snapshot mutation leaked into store: %+v", again)
	}
}

func TestSubscribe_WriteOrder(t *testing.T) {
	s := New(testModel(t))

	var got []float64
	s.Subscribe(func(st RuntimeState) {
		got = append(got, st.Fixtures["par1"]["intensity"])
	})

	for _, v := range []float64{10, 20, 30} {
		if _, err := s.ApplyUpdate(Update{Fixtures: map[string]ChannelValues{"par1": {"intensity": v}}}); err != nil {
			t.Fatalf("ApplyUpdate(%v) error = %v", v, err)
		}
	}
	if _, err := s.ApplyUpdate(Update{Looks: map[string]float64{"nope": 1}}); err == nil {
		t.Fatal("expected error for unknown look")
	}

	want := []float64{10, 20, 30}
	if len(got) != len(want) {
		t.Fatalf("notifications = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("notification %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestApplyUpdate_Concurrent(t *testing.T) {
	s := New(testModel(t))

	var count int
	var mu sync.Mutex
	s.Subscribe(func(RuntimeState) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(v float64) {
			defer wg.Done()
			_, _ = s.ApplyUpdate(Update{Fixtures: map[string]ChannelValues{"par1": {"intensity": v}}})
			_ = s.Snapshot()
		}(float64(i))
	}
	wg.Wait()

	if count != 50 {
		t.Errorf("notifications = %d, want 50", count)
	}
}

func TestReinitialize_CarriesOver(t *testing.T) {
	m := testModel(t)
	s := New(m)

	if _, err := s.ApplyUpdate(Update{
		Blackout: boolPtr(true),
		Fixtures: map[string]ChannelValues{"par1": {"intensity": 40}, "led1": {"red": 20}},
		Looks:    map[string]float64{"blue": 0.7},
		OverriddenFixtures: map[string]*Override{
			"led1": {Active: true, Looks: []OverrideLook{{ID: "blue"}}},
		},
	}); err != nil {
		t.Fatalf("ApplyUpdate() error = %v", err)
	}

	doc := m.Document().Clone()
	doc.Fixtures = []show.Fixture{
		{ID: "led1", Name: "LED 1", ProfileID: "dimmer-rgb", Universe: 1, StartAddress: 10},
		{ID: "par2", Name: "Par 2", ProfileID: "dimmer", Universe: 1, StartAddress: 20},
	}
	doc.Looks = nil
	next, err := show.NewModel(doc)
	if err != nil {
		t.Fatalf("NewModel() error = %v", err)
	}

	var notified bool
	s.Subscribe(func(RuntimeState) { notified = true })
	st := s.Reinitialize(next)

	if !notified {
		t.Error("Reinitialize did not notify listeners")
	}
	if !st.Blackout {
		t.Error("Blackout not carried over")
	}
	if _, ok := st.Fixtures["par1"]; ok {
		t.Error("removed fixture par1 still present")
	}
	if got := st.Fixtures["led1"]["red"]; got != 20 {
		t.Errorf("led1 red = %v, want 20", got)
	}
	if got := st.Fixtures["par2"]["intensity"]; got != 0 {
		t.Errorf("new fixture par2 intensity = %v, want 0", got)
	}
	if len(st.Looks) != 0 {
		t.Errorf("Looks = %v, want empty", st.Looks)
	}
	ov, ok := st.OverriddenFixtures["led1"]
	if !ok || !ov.Active {
		t.Fatal("led1 override lost")
	}
	if len(ov.Looks) != 0 {
		t.Errorf("override looks = %v, want removed look dropped", ov.Looks)
	}
	if s.Model() != next {
		t.Error("Model() not switched")
	}
}

func TestDecodeUpdate(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr error
		check   func(t *testing.T, u Update)
	}{
		{
			name: "looks and blackout",
			data: `{"looks":{"warm":0.5},"blackout":true}`,
			check: func(t *testing.T, u Update) {
				if u.Looks["warm"] != 0.5 || u.Blackout == nil || !*u.Blackout {
					t.Errorf("decoded = %+v", u)
				}
			},
		},
		{
			name: "override cleared with null",
			data: `{"overriddenFixtures":{"par1":null}}`,
			check: func(t *testing.T, u Update) {
				if o, ok := u.OverriddenFixtures["par1"]; !ok || o != nil {
					t.Errorf("overriddenFixtures = %v", u.OverriddenFixtures)
				}
			},
		},
		{name: "empty", data: "  ", wantErr: ErrEmptyUpdate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := DecodeUpdate([]byte(tt.data))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodeUpdate() error = %v", err)
			}
			tt.check(t, u)
		})
	}

	for _, bad := range []string{`{"cues":{}}`, `{"looks":{"warm":"full"}}`, `[1]`, `{`} {
		if _, err := DecodeUpdate([]byte(bad)); err == nil {
			t.Errorf("DecodeUpdate(%s) succeeded, want error", bad)
		}
	}
}
