// Package transfer runs the TCP listener peers push files to.
package transfer

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/rudransh-shrivastava/rider-share/internal/events"
	"github.com/rudransh-shrivastava/rider-share/internal/receiver"
	"github.com/rudransh-shrivastava/rider-share/internal/session"
	"github.com/sirupsen/logrus"
)

var ErrBind = errors.New("bind failed")

type ServerState struct {
	BoundAddress string `json:"bound_address"`
	Port         uint16 `json:"port"`
	Listening    bool   `json:"listening"`
}

type Server struct {
	config   Config
	logger   *logrus.Logger
	registry *session.Registry
	notifier events.Notifier

	mu       sync.Mutex
	listener net.Listener
	state    ServerState
	peers    map[string]*peer
	stopping bool
	// stopped is closed once an in-progress Stop has finished.
	stopped chan struct{}
	done    chan struct{}
	wg      sync.WaitGroup
}

func NewServer(cfg Config) *Server {
	cfg = cfg.withDefaults()
	return &Server{
		config:   cfg,
		logger:   cfg.Logger,
		registry: cfg.Registry,
		notifier: cfg.Notifier,
		peers:    make(map[string]*peer),
	}
}

// Start listens on the configured host and port.
func (s *Server) Start(ctx context.Context) (ServerState, error) {
	return s.Listen(ctx, s.config.Host, s.config.Port)
}

// Listen binds host:port and starts accepting peers. If the server is
// already listening it returns the current state and binds nothing. The
// server stops when ctx is cancelled or Stop is called. A Listen that races
// a running Stop waits for it to finish first.
func (s *Server) Listen(ctx context.Context, host string, port uint16) (ServerState, error) {
	s.mu.Lock()
	for s.stopping {
		stopped := s.stopped
		s.mu.Unlock()
		select {
		case <-stopped:
		case <-ctx.Done():
			return ServerState{}, ctx.Err()
		}
		s.mu.Lock()
	}
	defer s.mu.Unlock()

	if s.state.Listening {
		return s.state, nil
	}
	if s.config.Store == nil {
		return ServerState{}, errors.New("transfer server has no store")
	}

	addr := net.JoinHostPort(host, strconv.Itoa(int(port)))
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return ServerState{}, fmt.Errorf("%w: %s: %w", ErrBind, addr, err)
	}

	tcpAddr, ok := ln.Addr().(*net.TCPAddr)
	if !ok {
		_ = ln.Close()
		return ServerState{}, fmt.Errorf("%w: unexpected address type %T", ErrBind, ln.Addr())
	}

	s.listener = ln
	s.done = make(chan struct{})
	s.state = ServerState{
		BoundAddress: host,
		Port:         uint16(tcpAddr.Port),
		Listening:    true,
	}

	s.logger.WithField("addr", ln.Addr().String()).Info("Transfer server started")

	s.wg.Add(1)
	go s.acceptLoop(ln, s.done)
	go s.stopOnCancel(ctx, s.done)

	return s.state, nil
}

// Stop closes the listener and every open session. Partial transfers are
// dropped. Calling Stop on a stopped server does nothing; calling it while
// another Stop runs waits for that one.
func (s *Server) Stop() error {
	s.mu.Lock()
	if !s.state.Listening {
		stopping, stopped := s.stopping, s.stopped
		s.mu.Unlock()
		if stopping {
			<-stopped
		}
		return nil
	}
	s.stopping = true
	s.stopped = make(chan struct{})
	s.state.Listening = false
	ln := s.listener
	s.listener = nil
	close(s.done)
	peers := make([]*peer, 0, len(s.peers))
	for _, p := range s.peers {
		peers = append(peers, p)
	}
	s.mu.Unlock()

	s.logger.Info("Shutting down transfer server")

	err := ln.Close()
	for _, p := range peers {
		_ = p.Close()
	}
	s.wg.Wait()

	s.mu.Lock()
	s.stopping = false
	s.state = ServerState{}
	close(s.stopped)
	s.mu.Unlock()

	if err != nil && !isClosed(err) {
		return err
	}
	return nil
}

func (s *Server) State() ServerState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Addr is the listener's address, or "" when stopped.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *Server) Sessions() []session.ClientSession {
	return s.registry.List()
}

func (s *Server) stopOnCancel(ctx context.Context, done <-chan struct{}) {
	select {
	case <-ctx.Done():
		if err := s.Stop(); err != nil {
			s.logger.WithError(err).Warn("Failed to stop transfer server")
		}
	case <-done:
	}
}

func (s *Server) isStopping() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopping
}

// nextAcceptDelay backs off after repeated accept failures, doubling from
// 5ms up to one second.
func nextAcceptDelay(d time.Duration) time.Duration {
	if d == 0 {
		return minAcceptDelay
	}
	d *= 2
	if d > maxAcceptDelay {
		d = maxAcceptDelay
	}
	return d
}

func (s *Server) acceptLoop(ln net.Listener, done <-chan struct{}) {
	defer s.wg.Done()

	var delay time.Duration
	for {
		conn, err := ln.Accept()
		if err != nil {
			if isClosed(err) || s.isStopping() {
				return
			}
			delay = nextAcceptDelay(delay)
			s.logger.WithError(err).WithField("retry_in", delay).Error("Failed to accept connection")
			select {
			case <-time.After(delay):
			case <-done:
				return
			}
			continue
		}
		delay = 0

		s.wg.Add(1)
		go s.handlePeer(conn)
	}
}

func (s *Server) track(p *peer) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopping {
		return false
	}
	s.peers[p.sessionID] = p
	return true
}

func (s *Server) untrack(p *peer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.peers, p.sessionID)
}

func (s *Server) handlePeer(conn net.Conn) {
	defer s.wg.Done()

	sess, err := session.New(conn.RemoteAddr(), time.Now())
	if err != nil {
		s.logger.WithError(err).Warn("Rejecting connection")
		_ = conn.Close()
		return
	}

	p := newPeer(conn, sess.ID)
	if !s.track(p) {
		_ = p.Close()
		return
	}
	defer s.untrack(p)

	sess.State = session.Open
	if err := s.registry.Add(sess); err != nil {
		s.logger.WithError(err).WithField("session", sess.ID).Error("Failed to register session")
		_ = p.Close()
		return
	}

	s.notifier.Notify(events.ClientConnected(sess))

	rcv := receiver.New(sess.ID, s.config.Store, s.notifier, s.config.Receiver, s.logger)
	s.receive(p, rcv)

	_ = p.Close()
	s.registry.SetState(sess.ID, session.Closed)
	s.notifier.Notify(events.ClientDisconnected(sess.ID))
}

// receive reads until the peer goes away, then completes or abandons the
// transfer.
func (s *Server) receive(p *peer, rcv *receiver.Receiver) {
	log := s.logger.WithField("session", p.sessionID)
	buf := make([]byte, readBufferSize)

	for {
		n, err := p.Read(buf, s.config.IdleTimeout)
		if n > 0 {
			if dataErr := rcv.OnData(buf[:n]); dataErr != nil {
				s.registry.SetState(p.sessionID, session.Errored)
			}
		}
		if err == nil {
			continue
		}

		switch {
		case s.isStopping():
			rcv.Abandon()
		case isDisconnect(err):
			log.WithError(err).Debug("Peer finished sending")
			if _, finishErr := rcv.Finish(context.Background()); finishErr != nil {
				s.registry.SetState(p.sessionID, session.Errored)
			}
		default:
			log.WithError(err).Warn("Socket error")
			rcv.Abandon()
			s.notifier.Notify(events.Error(events.ErrSocket, p.sessionID, err))
		}
		return
	}
}
