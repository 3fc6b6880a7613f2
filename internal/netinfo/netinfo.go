// Package netinfo reports whether the host is on a local network and which
// address peers should dial.
package netinfo

import (
	"context"
	"fmt"
	"net/netip"
	"strings"

	"github.com/samber/lo"
	psnet "github.com/shirou/gopsutil/v3/net"
)

type Interface struct {
	Name      string   `json:"name"`
	Up        bool     `json:"up"`
	Loopback  bool     `json:"loopback"`
	Addresses []string `json:"addresses"`
}

type Status struct {
	Interfaces []Interface `json:"interfaces"`
	// Connected is true when some interface that is up has a non-loopback
	// IPv4 address.
	Connected bool   `json:"connected"`
	PrimaryIP string `json:"primary_ip,omitempty"`
}

// Snapshot reads the host's interfaces.
func Snapshot(ctx context.Context) (Status, error) {
	list, err := psnet.InterfacesWithContext(ctx)
	if err != nil {
		return Status{}, fmt.Errorf("listing interfaces: %w", err)
	}
	return Summarize(list), nil
}

func Summarize(list psnet.InterfaceStatList) Status {
	var st Status
	for _, iface := range list {
		in := Interface{
			Name:     iface.Name,
			Up:       lo.Contains(iface.Flags, "up"),
			Loopback: lo.Contains(iface.Flags, "loopback"),
			Addresses: lo.Map(iface.Addrs, func(a psnet.InterfaceAddr, _ int) string {
				return a.Addr
			}),
		}
		st.Interfaces = append(st.Interfaces, in)

		if !in.Up || in.Loopback || st.PrimaryIP != "" {
			continue
		}
		for _, a := range in.Addresses {
			ip, ok := parseAddr(a)
			if ok && ip.Is4() && !ip.IsLoopback() && !ip.IsLinkLocalUnicast() {
				st.Connected = true
				st.PrimaryIP = ip.String()
				break
			}
		}
	}
	return st
}

// parseAddr accepts both CIDR ("192.168.1.4/24") and bare addresses.
func parseAddr(s string) (netip.Addr, bool) {
	if strings.Contains(s, "/") {
		p, err := netip.ParsePrefix(s)
		if err != nil {
			return netip.Addr{}, false
		}
		return p.Addr(), true
	}
	ip, err := netip.ParseAddr(s)
	return ip, err == nil
}

// DisplayHost is the host to print for a listener bound to bindHost. A
// wildcard bind is shown as the primary address when there is one.
func DisplayHost(bindHost string, st Status) string {
	switch bindHost {
	case "", "0.0.0.0", "::":
		if st.PrimaryIP != "" {
			return st.PrimaryIP
		}
		return "127.0.0.1"
	}
	return bindHost
}
