package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rudransh-shrivastava/rider-share/internal/history"
	"github.com/spf13/cobra"
)

func newHistoryCmd(a *app) *cobra.Command {
	var (
		limit    int
		sessions bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "list received files or past sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := history.Open(a.cfg.History.Path)
			if err != nil {
				return err
			}
			defer func() { _ = history.Close(db) }()
			store := history.NewStore(db)

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			if sessions {
				records, err := store.Sessions(cmd.Context(), limit)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintln(tw, "SESSION\tCONNECTED\tDURATION\tLAST ERROR")
				for _, r := range records {
					duration := "open"
					if r.DisconnectedAt != 0 {
						duration = time.Duration(r.DisconnectedAt - r.ConnectedAt).Round(time.Millisecond).String()
					}
					_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
						r.SessionID, humanize.Time(time.Unix(0, r.ConnectedAt)), duration, r.LastError)
				}
				return tw.Flush()
			}

			records, err := store.Files(cmd.Context(), limit)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(tw, "PATH\tSIZE\tFROM\tRECEIVED")
			for _, r := range records {
				_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
					r.Path, humanize.Bytes(uint64(r.Size)), r.SessionID, humanize.Time(time.Unix(0, r.CompletedAt)))
			}
			return tw.Flush()
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "show at most this many rows (0 for all)")
	cmd.Flags().BoolVar(&sessions, "sessions", false, "list sessions instead of files")
	return cmd
}
