package output

import (
	"fmt"
	"net"
)

// Interface is a local network interface usable as a bind address.
type Interface struct {
	Name      string   `json:"name"`
	Addresses []string `json:"addresses"`
	Up        bool     `json:"up"`
	Loopback  bool     `json:"loopback"`
	Multicast bool     `json:"multicast"`
	Broadcast bool     `json:"broadcast"`
}

// Interfaces lists interfaces that have at least one IPv4 address.
func Interfaces() ([]Interface, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, fmt.Errorf("list interfaces: %w", err)
	}

	out := make([]Interface, 0, len(ifaces))
	for _, ifi := range ifaces {
		addrs, err := ifi.Addrs()
		if err != nil {
			continue
		}
		var v4 []string
		for _, a := range addrs {
			if ipn, ok := a.(*net.IPNet); ok && ipn.IP.To4() != nil {
				v4 = append(v4, ipn.IP.String())
			}
		}
		if len(v4) == 0 {
			continue
		}
		out = append(out, Interface{
			Name:      ifi.Name,
			Addresses: v4,
			Up:        ifi.Flags&net.FlagUp != 0,
			Loopback:  ifi.Flags&net.FlagLoopback != 0,
			Multicast: ifi.Flags&net.FlagMulticast != 0,
			Broadcast: ifi.Flags&net.FlagBroadcast != 0,
		})
	}
	return out, nil
}
