package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/rudransh-shrivastava/rider-share/internal/config"
	"github.com/rudransh-shrivastava/rider-share/internal/events"
	"github.com/rudransh-shrivastava/rider-share/internal/history"
	"github.com/rudransh-shrivastava/rider-share/internal/netinfo"
	"github.com/rudransh-shrivastava/rider-share/internal/session"
	"github.com/rudransh-shrivastava/rider-share/internal/storage"
	"github.com/rudransh-shrivastava/rider-share/internal/transfer"
	"github.com/rudransh-shrivastava/rider-share/internal/ws"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

func newServeCmd(a *app) *cobra.Command {
	var (
		host       string
		port       uint16
		dir        string
		pathMode   string
		eventsAddr string
		noHistory  bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "run the receiving listener",
		Long:  `serve accepts peers on the configured port and stores every completed transfer under the receive directory`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			if flags.Changed("host") {
				a.cfg.Server.Host = host
			}
			if flags.Changed("port") {
				a.cfg.Server.Port = port
			}
			if flags.Changed("dir") {
				a.cfg.Receiver.Dir = dir
			}
			if flags.Changed("path-mode") {
				a.cfg.Receiver.PathMode = pathMode
			}
			if flags.Changed("events-addr") {
				a.cfg.Events.Addr = eventsAddr
			}
			if noHistory {
				a.cfg.History.Enabled = false
			}
			if err := a.cfg.Validate(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, a.cfg, a.log, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&host, "host", transfer.DefaultHost, "address to bind")
	cmd.Flags().Uint16VarP(&port, "port", "p", transfer.DefaultPort, "port to listen on")
	cmd.Flags().StringVarP(&dir, "dir", "d", "", "directory received files are written to")
	cmd.Flags().StringVar(&pathMode, "path-mode", "", "fixed, session or timestamp")
	cmd.Flags().StringVar(&eventsAddr, "events-addr", "", "serve the WebSocket event stream on this address")
	cmd.Flags().BoolVar(&noHistory, "no-history", false, "do not record transfers")
	return cmd
}

// service is a listener with its sinks wired up.
type service struct {
	server      *transfer.Server
	registry    *session.Registry
	bus         *events.Bus
	db          *gorm.DB
	broadcaster *ws.Broadcaster
	eventsLn    net.Listener
	log         *logrus.Logger
}

func newService(cfg *config.Config, log *logrus.Logger) (*service, error) {
	svc := &service{
		registry: session.NewRegistry(),
		bus:      events.NewBus(events.NewLogSink(log)),
		log:      log,
	}

	if cfg.History.Enabled {
		db, err := history.Open(cfg.History.Path)
		if err != nil {
			return nil, err
		}
		svc.db = db
		svc.bus.Subscribe(history.NewSink(history.NewStore(db), log))
	}

	if cfg.Events.Addr != "" {
		ln, err := net.Listen("tcp", cfg.Events.Addr)
		if err != nil {
			svc.close()
			return nil, fmt.Errorf("listening for event clients: %w", err)
		}
		svc.eventsLn = ln
		svc.broadcaster = ws.NewBroadcaster(svc.registry.List, log)
		svc.bus.Subscribe(svc.broadcaster)
	}

	svc.server = transfer.NewServer(transfer.Config{
		Host:        cfg.Server.Host,
		Port:        cfg.Server.Port,
		IdleTimeout: cfg.Server.IdleTimeout,
		Receiver:    cfg.ReceiverOptions(),
		Store:       storage.NewDisk(cfg.Receiver.Dir),
		Notifier:    svc.bus,
		Registry:    svc.registry,
		Logger:      log,
	})
	return svc, nil
}

func (s *service) start(ctx context.Context) (transfer.ServerState, error) {
	if s.eventsLn != nil {
		go func() {
			if err := ws.Serve(ctx, s.eventsLn, s.broadcaster); err != nil {
				s.log.WithError(err).Error("Event stream stopped")
			}
		}()
	}
	return s.server.Start(ctx)
}

func (s *service) close() {
	if s.server != nil {
		if err := s.server.Stop(); err != nil {
			s.log.WithError(err).Warn("Failed to stop listener")
		}
	}
	if s.eventsLn != nil {
		_ = s.eventsLn.Close()
	}
	if s.broadcaster != nil {
		s.broadcaster.Close()
	}
	if s.db != nil {
		if err := history.Close(s.db); err != nil {
			s.log.WithError(err).Warn("Failed to close history")
		}
	}
}

func runServe(ctx context.Context, cfg *config.Config, log *logrus.Logger, out io.Writer) error {
	svc, err := newService(cfg, log)
	if err != nil {
		return err
	}
	defer svc.close()

	state, err := svc.start(ctx)
	if err != nil {
		if errors.Is(err, transfer.ErrBind) {
			return fmt.Errorf("port %d unavailable: %w", cfg.Server.Port, err)
		}
		return err
	}

	status, err := netinfo.Snapshot(ctx)
	if err != nil {
		log.WithError(err).Warn("Failed to read network interfaces")
	} else if !status.Connected {
		log.Warn("Not connected to a local network; peers may not reach this host")
	}

	host := netinfo.DisplayHost(state.BoundAddress, status)
	_, _ = fmt.Fprintf(out, "Server running at %s\n", net.JoinHostPort(host, strconv.Itoa(int(state.Port))))

	<-ctx.Done()
	log.Info("Shutting down")
	return nil
}
