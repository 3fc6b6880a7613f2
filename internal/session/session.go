// Package session tracks the peers currently connected to the transfer
// listener.
package session

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

type State int

const (
	Connecting State = iota
	Open
	Errored
	Closed
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Open:
		return "open"
	case Errored:
		return "errored"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(text []byte) error {
	for st := Connecting; st <= Closed; st++ {
		if st.String() == string(text) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown session state %q", text)
}

// ClientSession is one accepted TCP connection.
type ClientSession struct {
	ID            string    `json:"id"`
	RemoteAddress string    `json:"remote_address"`
	RemotePort    uint16    `json:"remote_port"`
	ConnectedAt   time.Time `json:"connected_at"`
	State         State     `json:"state"`
}

// ID derives a session id from the peer's address and port.
func ID(address string, port uint16) string {
	return net.JoinHostPort(address, strconv.Itoa(int(port)))
}

// New builds a Connecting session for the given remote address.
func New(remote net.Addr, now time.Time) (ClientSession, error) {
	host, portStr, err := net.SplitHostPort(remote.String())
	if err != nil {
		return ClientSession{}, fmt.Errorf("parsing remote address %q: %w", remote.String(), err)
	}

	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return ClientSession{}, fmt.Errorf("parsing remote port %q: %w", portStr, err)
	}

	return ClientSession{
		ID:            ID(host, uint16(port)),
		RemoteAddress: host,
		RemotePort:    uint16(port),
		ConnectedAt:   now,
		State:         Connecting,
	}, nil
}
