package netinfo

import (
	"context"
	"testing"

	psnet "github.com/shirou/gopsutil/v3/net"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func iface(name string, flags []string, addrs ...string) psnet.InterfaceStat {
	st := psnet.InterfaceStat{Name: name, Flags: flags}
	for _, a := range addrs {
		st.Addrs = append(st.Addrs, psnet.InterfaceAddr{Addr: a})
	}
	return st
}

func TestSummarize(t *testing.T) {
	tests := []struct {
		name      string
		list      psnet.InterfaceStatList
		connected bool
		primary   string
	}{
		{
			name: "wifi up",
			list: psnet.InterfaceStatList{
				iface("lo", []string{"up", "loopback"}, "127.0.0.1/8", "::1/128"),
				iface("wlan0", []string{"up", "broadcast", "multicast"}, "fe80::1/64", "192.168.1.42/24"),
			},
			connected: true,
			primary:   "192.168.1.42",
		},
		{
			name: "only loopback",
			list: psnet.InterfaceStatList{
				iface("lo", []string{"up", "loopback"}, "127.0.0.1/8"),
			},
		},
		{
			name: "interface down",
			list: psnet.InterfaceStatList{
				iface("eth0", []string{"broadcast"}, "10.0.0.3/24"),
			},
		},
		{
			name: "link-local and ipv6 only",
			list: psnet.InterfaceStatList{
				iface("eth0", []string{"up"}, "169.254.10.1/16", "2001:db8::5/64"),
			},
		},
		{
			name: "first usable interface wins",
			list: psnet.InterfaceStatList{
				iface("eth0", []string{"up"}, "10.0.0.3"),
				iface("wlan0", []string{"up"}, "192.168.1.42/24"),
			},
			connected: true,
			primary:   "10.0.0.3",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := Summarize(tt.list)
			assert.Equal(t, tt.connected, st.Connected)
			assert.Equal(t, tt.primary, st.PrimaryIP)
			assert.Len(t, st.Interfaces, len(tt.list))
		})
	}
}

func TestSummarizeInterfaceFields(t *testing.T) {
	st := Summarize(psnet.InterfaceStatList{
		iface("lo", []string{"up", "loopback"}, "127.0.0.1/8"),
	})
	require.Len(t, st.Interfaces, 1)
	assert.Equal(t, Interface{
		Name:      "lo",
		Up:        true,
		Loopback:  true,
		Addresses: []string{"127.0.0.1/8"},
	}, st.Interfaces[0])
}

func TestDisplayHost(t *testing.T) {
	withIP := Status{Connected: true, PrimaryIP: "192.168.1.42"}

	assert.Equal(t, "192.168.1.42", DisplayHost("0.0.0.0", withIP))
	assert.Equal(t, "192.168.1.42", DisplayHost("", withIP))
	assert.Equal(t, "127.0.0.1", DisplayHost("0.0.0.0", Status{}))
	assert.Equal(t, "10.1.1.1", DisplayHost("10.1.1.1", withIP))
}

func TestSnapshot(t *testing.T) {
	st, err := Snapshot(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, st.Interfaces)
}
