package output

import (
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/lumen-core/internal/show"
	"github.com/nerrad567/lumen-core/internal/state"
)

type sentPacket struct {
	data []byte
	addr string
}

// fakeNet records every socket the engine opens and every packet it sends.
type fakeNet struct {
	mu      sync.Mutex
	configs []SocketConfig
	sockets []*fakeSocket
	sent    []sentPacket
	sendErr error
}

func (f *fakeNet) listen(cfg SocketConfig) (Socket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := &fakeSocket{net: f}
	f.configs = append(f.configs, cfg)
	f.sockets = append(f.sockets, s)
	return s, nil
}

func (f *fakeNet) packets() []sentPacket {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentPacket(nil), f.sent...)
}

func (f *fakeNet) openSockets() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, s := range f.sockets {
		if !s.closed {
			n++
		}
	}
	return n
}

func (f *fakeNet) socketConfigs() []SocketConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]SocketConfig(nil), f.configs...)
}

func (f *fakeNet) socketClosed(i int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sockets[i].closed
}

type fakeSocket struct {
	net    *fakeNet
	closed bool
}

func (s *fakeSocket) WriteTo(b []byte, addr *net.UDPAddr) (int, error) {
	s.net.mu.Lock()
	defer s.net.mu.Unlock()
	if s.closed {
		return 0, errors.New("use of closed socket")
	}
	if s.net.sendErr != nil {
		return 0, s.net.sendErr
	}
	s.net.sent = append(s.net.sent, sentPacket{data: append([]byte(nil), b...), addr: addr.String()})
	return len(b), nil
}

func (s *fakeSocket) Close() error {
	s.net.mu.Lock()
	defer s.net.mu.Unlock()
	s.closed = true
	return nil
}

type warnLogger struct {
	noopLogger
	mu    sync.Mutex
	warns []string
}

func (l *warnLogger) Warn(msg string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warns = append(l.warns, msg)
}

func (l *warnLogger) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.warns)
}

// testStore patches a dimmer at full on each given sACN universe.
func testStore(t *testing.T, mutate func(*show.Document), universes ...int) *state.Store {
	t.Helper()
	doc := show.Default()
	doc.Output.FrameRate = show.MaxFrameRate
	direct := make(map[string]state.ChannelValues)
	for i, u := range universes {
		id := "dim" + string(rune('a'+i))
		doc.Fixtures = append(doc.Fixtures, show.Fixture{
			ID: id, Name: id, ProfileID: "dimmer", Universe: u, StartAddress: 1,
		})
		direct[id] = state.ChannelValues{"intensity": 100}
	}
	if mutate != nil {
		mutate(doc)
	}
	m, err := show.NewModel(doc)
	if err != nil {
		t.Fatalf("NewModel() error = %v", err)
	}
	s := state.New(m)
	if _, err := s.ApplyUpdate(state.Update{Fixtures: direct}); err != nil {
		t.Fatalf("ApplyUpdate() error = %v", err)
	}
	return s
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}
