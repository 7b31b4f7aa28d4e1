package fader

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"

	"github.com/nerrad567/lumen-core/internal/infrastructure/config"
	"github.com/nerrad567/lumen-core/internal/state"
)

// Applier applies state updates; *console.Service satisfies it.
type Applier interface {
	ApplyUpdate(u state.Update) (state.RuntimeState, error)
}

// Logger is the logging interface used by the surface.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Info(string, ...any) {}
func (noopLogger) Warn(string, ...any) {}

// Surface listens to one MIDI input port.
type Surface struct {
	portName string
	mapper   *Mapper
	console  Applier
	logger   Logger

	mu   sync.Mutex
	stop func()

	applied  atomic.Uint64
	rejected atomic.Uint64
}

// New parses the mappings in cfg. It does not open the port.
func New(cfg config.MIDIConfig, console Applier) (*Surface, error) {
	mapper, err := NewMapper(cfg.Mappings)
	if err != nil {
		return nil, err
	}
	return &Surface{
		portName: cfg.Port,
		mapper:   mapper,
		console:  console,
		logger:   noopLogger{},
	}, nil
}

// SetLogger sets the logger.
func (s *Surface) SetLogger(l Logger) {
	if l != nil {
		s.logger = l
	}
}

// Start opens the configured port and begins applying control changes.
func (s *Surface) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop != nil {
		return nil
	}

	port, err := FindInPort(s.portName)
	if err != nil {
		return err
	}
	stop, err := midi.ListenTo(port, func(msg midi.Message, _ int32) {
		s.HandleMessage(msg)
	})
	if err != nil {
		return fmt.Errorf("listen to %s: %w", port, err)
	}
	s.stop = stop
	s.logger.Info("MIDI surface listening", "port", port.String(), "mappings", s.mapper.Len())
	return nil
}

// Stop closes the listener.
func (s *Surface) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop != nil {
		s.stop()
		s.stop = nil
	}
}

// HandleMessage applies a control change if it is mapped. Other messages
// are ignored.
func (s *Surface) HandleMessage(msg midi.Message) {
	var channel, controller, value uint8
	if !msg.GetControlChange(&channel, &controller, &value) {
		return
	}
	u, ok := s.mapper.Resolve(channel, controller, value)
	if !ok {
		return
	}
	if _, err := s.console.ApplyUpdate(u); err != nil {
		s.rejected.Add(1)
		s.logger.Warn("MIDI control rejected",
			"channel", channel,
			"controller", controller,
			"error", err,
		)
		return
	}
	s.applied.Add(1)
}

// Counts returns how many control changes were applied and rejected.
func (s *Surface) Counts() (applied, rejected uint64) {
	return s.applied.Load(), s.rejected.Load()
}

// FindInPort returns the first input port whose name contains substr,
// ignoring case.
func FindInPort(substr string) (drivers.In, error) {
	lower := strings.ToLower(substr)
	for _, port := range midi.GetInPorts() {
		if strings.Contains(strings.ToLower(port.String()), lower) {
			return port, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrPortNotFound, substr)
}

// InPorts lists the input port names the driver reports.
func InPorts() []string {
	ports := midi.GetInPorts()
	names := make([]string, 0, len(ports))
	for _, p := range ports {
		names = append(names, p.String())
	}
	return names
}
