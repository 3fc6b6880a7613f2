package ws

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const EventsPath = "/events"

// Handler upgrades requests and registers them with b. Clients are read
// only to notice when they go away.
func Handler(b *Broadcaster) http.HandlerFunc {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(*http.Request) bool { return true },
	}

	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			b.logger.WithError(err).Warn("WebSocket upgrade failed")
			return
		}

		b.logger.WithField("remote", r.RemoteAddr).Debug("Event client connected")
		c := b.AddClient(conn)

		go func() {
			defer func() {
				b.RemoveClient(c)
				b.logger.WithField("remote", r.RemoteAddr).Debug("Event client disconnected")
			}()
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()
	}
}

// Serve serves the event stream on ln until ctx is cancelled.
func Serve(ctx context.Context, ln net.Listener, b *Broadcaster) error {
	mux := http.NewServeMux()
	mux.Handle(EventsPath, Handler(b))

	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		b.Close()
	}()

	b.logger.WithField("addr", ln.Addr().String()).Info("Event stream listening")
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
