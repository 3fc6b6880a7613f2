package transfer

import (
	"errors"
	"io"
	"net"
	"os"
	"sync"
	"syscall"
	"time"
)

// peer is one accepted connection. Close may be called from the handler
// and from Stop concurrently.
type peer struct {
	conn      net.Conn
	sessionID string

	closeOnce sync.Once
	closeErr  error
}

func newPeer(conn net.Conn, sessionID string) *peer {
	return &peer{conn: conn, sessionID: sessionID}
}

func (p *peer) Read(buf []byte, idle time.Duration) (int, error) {
	if idle > 0 {
		if err := p.conn.SetReadDeadline(time.Now().Add(idle)); err != nil {
			return 0, err
		}
	}
	return p.conn.Read(buf)
}

func (p *peer) RemoteAddr() string {
	return p.conn.RemoteAddr().String()
}

func (p *peer) Close() error {
	p.closeOnce.Do(func() {
		p.closeErr = p.conn.Close()
	})
	return p.closeErr
}

// isDisconnect reports whether err is the peer going away: EOF, reset,
// broken pipe, or an idle deadline expiring.
func isDisconnect(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, io.EOF) || errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno == syscall.EPIPE || errno == syscall.ECONNRESET
	}
	return false
}

func isClosed(err error) bool {
	return errors.Is(err, net.ErrClosed)
}
