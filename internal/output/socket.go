package output

import (
	"context"
	"fmt"
	"net"
	"strings"

	"golang.org/x/net/ipv4"
)

// Socket is an outbound UDP socket.
type Socket interface {
	WriteTo(b []byte, addr *net.UDPAddr) (int, error)
	Close() error
}

// SocketConfig describes how a socket is opened.
type SocketConfig struct {
	// BindAddress is a local IPv4 address to send from. Empty means any.
	BindAddress string

	// Broadcast enables SO_BROADCAST. It is explicitly disabled otherwise.
	Broadcast bool

	// Multicast sets the multicast TTL, and the outgoing interface when
	// BindAddress is set.
	Multicast    bool
	MulticastTTL int
}

// ListenFunc opens a socket. Tests replace it with a fake.
type ListenFunc func(cfg SocketConfig) (Socket, error)

// ListenUDP opens a UDP socket according to cfg.
func ListenUDP(cfg SocketConfig) (Socket, error) {
	laddr := "0.0.0.0:0"
	if cfg.BindAddress != "" {
		laddr = net.JoinHostPort(cfg.BindAddress, "0")
	}

	lc := net.ListenConfig{Control: socketControl(cfg)}
	pc, err := lc.ListenPacket(context.Background(), "udp4", laddr)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", laddr, err)
	}
	conn := pc.(*net.UDPConn)

	if cfg.Multicast {
		p := ipv4.NewPacketConn(conn)
		if cfg.MulticastTTL > 0 {
			if err := p.SetMulticastTTL(cfg.MulticastTTL); err != nil {
				_ = conn.Close()
				return nil, fmt.Errorf("set multicast ttl: %w", err)
			}
		}
		if cfg.BindAddress != "" {
			ifi, err := interfaceByAddr(cfg.BindAddress)
			if err != nil {
				_ = conn.Close()
				return nil, err
			}
			if err := p.SetMulticastInterface(ifi); err != nil {
				_ = conn.Close()
				return nil, fmt.Errorf("set multicast interface %s: %w", ifi.Name, err)
			}
		}
	}
	return &udpSocket{conn: conn}, nil
}

type udpSocket struct {
	conn *net.UDPConn
}

func (s *udpSocket) WriteTo(b []byte, addr *net.UDPAddr) (int, error) {
	return s.conn.WriteToUDP(b, addr)
}

func (s *udpSocket) Close() error {
	return s.conn.Close()
}

// IsBroadcastAddress reports whether dest is the limited broadcast address
// or ends in .255.
func IsBroadcastAddress(dest string) bool {
	return dest == "255.255.255.255" || strings.HasSuffix(dest, ".255")
}

func interfaceByAddr(addr string) (*net.Interface, error) {
	ip := net.ParseIP(addr)
	if ip == nil {
		return nil, fmt.Errorf("%w: bind address %q", ErrInvalidDestination, addr)
	}
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, fmt.Errorf("list interfaces: %w", err)
	}
	for i := range ifaces {
		addrs, err := ifaces[i].Addrs()
		if err != nil {
			continue
		}
		for _, a := range addrs {
			if ipn, ok := a.(*net.IPNet); ok && ipn.IP.Equal(ip) {
				return &ifaces[i], nil
			}
		}
	}
	return nil, fmt.Errorf("no interface has address %s", addr)
}
