// Package cli is the rider-share command line.
package cli

import (
	"context"
	"os"

	"github.com/rudransh-shrivastava/rider-share/internal/config"
	"github.com/rudransh-shrivastava/rider-share/internal/logger"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// app is the state shared by every subcommand once flags are parsed.
type app struct {
	configPath string
	logLevel   string

	cfg *config.Config
	log *logrus.Logger
}

func (a *app) load(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	a.cfg = cfg
	a.log = logger.New(cmd.ErrOrStderr(), cfg.Log.Level)
	return nil
}

func NewRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "rider-share",
		Short:         "receive and send files over the local network",
		Long:          `rider-share listens on a TCP port for base64 encoded files pushed by peers on the same network and stores them on disk`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load(cmd)
		},
	}
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", os.Getenv("RIDERSHARE_CONFIG"), "path to a YAML config file")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level (trace, debug, info, warn, error)")

	root.AddCommand(
		newServeCmd(a),
		newSendCmd(a),
		newDevicesCmd(a),
		newNetinfoCmd(a),
		newHistoryCmd(a),
	)
	return root
}

func Execute() {
	if err := NewRootCmd().ExecuteContext(context.Background()); err != nil {
		logger.New(os.Stderr, "info").Fatal(err)
	}
}
