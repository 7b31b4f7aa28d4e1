package output

import (
	"errors"
	"fmt"
	"net"
	"strconv"

	"github.com/nerrad567/lumen-core/internal/dmx"
	"github.com/nerrad567/lumen-core/internal/show"
)

// Skip reasons reported to metrics.
const (
	reasonInvalidUniverse = "invalid_universe"
	reasonNoDestination   = "no_destination"
	reasonSocket          = "socket"
)

// tickResult counts what a transmitter did in one tick.
type tickResult struct {
	packets int
	errors  int
	skipped map[string]int
}

func (r *tickResult) skip(reason string) {
	if r.skipped == nil {
		r.skipped = make(map[string]int)
	}
	r.skipped[reason]++
}

// transmitter sends frames for one protocol. It is only used from the
// engine's tick goroutine.
type transmitter interface {
	protocol() show.Protocol
	send(frame []*dmx.Universe) tickResult
	close() error
}

// once remembers which problems were already logged in this run.
type once struct {
	logger Logger
	seen   map[string]bool
}

func newOnce(logger Logger) once {
	return once{logger: logger, seen: make(map[string]bool)}
}

func (o once) warn(key, msg string, args ...any) {
	if o.seen[key] {
		return
	}
	o.seen[key] = true
	o.logger.Warn(msg, args...)
}

type sacnStream struct {
	session *SACNSession
	addr    *net.UDPAddr
}

// sacnTransmitter sends sACN over one socket, with one session per
// universe and destination.
type sacnTransmitter struct {
	cid        [16]byte
	sourceName string
	priority   uint8
	multicast  bool
	dests      []*net.UDPAddr

	sock    Socket
	streams map[string]*sacnStream
	log     once
}

func newSACNTransmitter(settings show.SACNSettings, cid [16]byte, sourceName string, ttl int, listen ListenFunc, logger Logger) (*sacnTransmitter, error) {
	t := &sacnTransmitter{
		cid:        cid,
		sourceName: sourceName,
		priority:   uint8(settings.Priority),
		multicast:  settings.Multicast,
		streams:    make(map[string]*sacnStream),
		log:        newOnce(logger),
	}
	if !settings.Multicast {
		for _, d := range settings.UnicastDestinations {
			addr, err := resolveUDP(d, SACNPort)
			if err != nil {
				return nil, err
			}
			t.dests = append(t.dests, addr)
		}
	}

	sock, err := listen(SocketConfig{
		BindAddress:  settings.BindAddress,
		Multicast:    settings.Multicast,
		MulticastTTL: ttl,
	})
	if err != nil {
		return nil, fmt.Errorf("open sACN socket: %w", err)
	}
	t.sock = sock
	return t, nil
}

func (t *sacnTransmitter) protocol() show.Protocol { return show.ProtocolSACN }

func (t *sacnTransmitter) send(frame []*dmx.Universe) tickResult {
	var res tickResult
	for _, u := range frame {
		if err := checkSACNUniverse(u.Number); err != nil {
			t.log.warn("universe:"+u.Key, "skipping universe", "universe", u.Number, "error", err)
			res.skip(reasonInvalidUniverse)
			continue
		}

		if t.multicast {
			t.write(&res, u, MulticastAddr(u.Number))
			continue
		}
		if len(t.dests) == 0 {
			t.log.warn("nodest", "sACN unicast has no destinations, nothing sent")
			res.skip(reasonNoDestination)
			continue
		}
		for _, addr := range t.dests {
			t.write(&res, u, addr)
		}
	}
	return res
}

func (t *sacnTransmitter) write(res *tickResult, u *dmx.Universe, addr *net.UDPAddr) {
	key := u.Key + "@" + addr.String()
	st, ok := t.streams[key]
	if !ok {
		st = &sacnStream{
			session: NewSACNSession(t.cid, t.sourceName, t.priority, uint16(u.Number)),
			addr:    addr,
		}
		t.streams[key] = st
	}

	pkt := st.session.Encode(u.Data[:])
	if _, err := t.sock.WriteTo(pkt, st.addr); err != nil {
		t.log.warn("send:"+key, "sACN send failed", "universe", u.Number, "destination", addr.String(), "error", err)
		res.errors++
		return
	}
	res.packets++
}

func (t *sacnTransmitter) close() error {
	t.streams = nil
	return t.sock.Close()
}

type artnetStream struct {
	sock Socket
	buf  []byte
}

// artnetTransmitter sends ArtDmx with one socket per universe key.
type artnetTransmitter struct {
	addr      *net.UDPAddr
	bind      string
	broadcast bool
	listen    ListenFunc

	streams map[string]*artnetStream
	log     once
}

func newArtNetTransmitter(settings show.ArtNetSettings, listen ListenFunc, logger Logger) (*artnetTransmitter, error) {
	port := settings.Port
	if port == 0 {
		port = show.DefaultArtNetPort
	}
	dest := settings.Destination
	if dest == "" {
		dest = show.DefaultArtNetDestination
	}
	addr, err := resolveUDP(dest, port)
	if err != nil {
		return nil, err
	}
	return &artnetTransmitter{
		addr:      addr,
		bind:      settings.BindAddress,
		broadcast: IsBroadcastAddress(dest),
		listen:    listen,
		streams:   make(map[string]*artnetStream),
		log:       newOnce(logger),
	}, nil
}

func (t *artnetTransmitter) protocol() show.Protocol { return show.ProtocolArtNet }

func (t *artnetTransmitter) send(frame []*dmx.Universe) tickResult {
	var res tickResult
	for _, u := range frame {
		st, err := t.stream(u.Key)
		if err != nil {
			t.log.warn("socket:"+u.Key, "Art-Net socket unavailable", "universe", u.Key, "error", err)
			res.skip(reasonSocket)
			continue
		}

		a := u.ArtNet
		encodeArtDMXInto(st.buf, PortAddress(a.Net, a.Subnet, a.Universe), u.Data[:])
		if _, err := st.sock.WriteTo(st.buf, t.addr); err != nil {
			t.log.warn("send:"+u.Key, "Art-Net send failed", "universe", u.Key, "destination", t.addr.String(), "error", err)
			res.errors++
			continue
		}
		res.packets++
	}
	return res
}

func (t *artnetTransmitter) stream(key string) (*artnetStream, error) {
	if st, ok := t.streams[key]; ok {
		return st, nil
	}
	sock, err := t.listen(SocketConfig{BindAddress: t.bind, Broadcast: t.broadcast})
	if err != nil {
		return nil, err
	}
	st := &artnetStream{sock: sock, buf: make([]byte, ArtDMXSize)}
	t.streams[key] = st
	return st, nil
}

func (t *artnetTransmitter) close() error {
	var errs []error
	for _, st := range t.streams {
		if err := st.sock.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	t.streams = nil
	return errors.Join(errs...)
}

func resolveUDP(host string, port int) (*net.UDPAddr, error) {
	addr, err := net.ResolveUDPAddr("udp4", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidDestination, host, err)
	}
	return addr, nil
}
