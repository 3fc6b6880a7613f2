package cli

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rudransh-shrivastava/rider-share/internal/storage"
	"github.com/rudransh-shrivastava/rider-share/internal/transfer"
	"github.com/spf13/cobra"
)

func newSendCmd(a *app) *cobra.Command {
	var (
		timeout time.Duration
		quiet   bool
	)

	cmd := &cobra.Command{
		Use:   "send path/to/file host[:port]",
		Short: "push a file to a listening peer",
		Long:  `send streams a file as base64 to a rider-share listener and waits until the listener has stored it`,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			addr := withDefaultPort(args[1], transfer.DefaultPort)

			f, err := os.Open(path)
			if err != nil {
				return err
			}
			defer func() { _ = f.Close() }()

			info, err := f.Stat()
			if err != nil {
				return err
			}
			sum, err := storage.HashFile(f)
			if err != nil {
				return fmt.Errorf("hashing %s: %w", path, err)
			}
			if _, err := f.Seek(0, io.SeekStart); err != nil {
				return err
			}

			ctx := cmd.Context()
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			opts := transfer.SendOptions{Description: filepath.Base(path)}
			if !quiet {
				opts.Progress = cmd.ErrOrStderr()
			}

			a.log.WithField("addr", addr).Debug("Sending file")
			n, err := transfer.Send(ctx, addr, f, info.Size(), opts)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Sent %s (%s) to %s\nsha256 %s\n", filepath.Base(path), humanize.Bytes(uint64(n)), addr, sum)
			return nil
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 0, "give up after this long (0 waits forever)")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "hide the progress bar")
	return cmd
}

// withDefaultPort appends port to addr when addr has none.
func withDefaultPort(addr string, port uint16) string {
	if _, _, err := net.SplitHostPort(addr); err == nil {
		return addr
	}
	return net.JoinHostPort(addr, strconv.Itoa(int(port)))
}
