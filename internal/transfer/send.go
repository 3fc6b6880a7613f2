package transfer

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/schollz/progressbar/v3"
)

type SendOptions struct {
	// Progress, when set, receives a progress bar sized to the encoded
	// payload.
	Progress    io.Writer
	Description string
}

// Send streams r to the listener at addr as base64 text, then half-closes
// the connection and waits for the listener to hang up. It returns the
// number of raw bytes read from r. size is only used for the progress bar
// and may be -1 when unknown.
func Send(ctx context.Context, addr string, r io.Reader, size int64, opts SendOptions) (int64, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return 0, fmt.Errorf("dialing %s: %w", addr, err)
	}
	defer func() { _ = conn.Close() }()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetDeadline(time.Now())
	})
	defer stop()

	var w io.Writer = conn
	var bar *progressbar.ProgressBar
	if opts.Progress != nil {
		total := int64(-1)
		if size >= 0 {
			total = int64(base64.StdEncoding.EncodedLen(int(size)))
		}
		bar = progressbar.NewOptions64(total,
			progressbar.OptionSetWriter(opts.Progress),
			progressbar.OptionSetDescription(opts.Description),
			progressbar.OptionShowBytes(true),
			progressbar.OptionThrottle(65*time.Millisecond),
			progressbar.OptionOnCompletion(func() {
				_, _ = fmt.Fprintln(opts.Progress)
			}),
		)
		w = io.MultiWriter(conn, bar)
	}

	enc := base64.NewEncoder(base64.StdEncoding, w)
	n, err := io.Copy(enc, r)
	if err != nil {
		return n, fmt.Errorf("sending to %s: %w", addr, err)
	}
	if err := enc.Close(); err != nil {
		return n, fmt.Errorf("flushing to %s: %w", addr, err)
	}
	if bar != nil {
		_ = bar.Finish()
	}

	if tc, ok := conn.(*net.TCPConn); ok {
		if err := tc.CloseWrite(); err != nil {
			return n, fmt.Errorf("closing write side: %w", err)
		}
	}

	// The listener closes its end once the file is stored.
	if _, err := io.Copy(io.Discard, conn); err != nil && !isDisconnect(err) {
		return n, fmt.Errorf("waiting for %s: %w", addr, err)
	}
	return n, ctx.Err()
}
