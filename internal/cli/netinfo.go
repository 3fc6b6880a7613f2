package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/rudransh-shrivastava/rider-share/internal/netinfo"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

func newNetinfoCmd(a *app) *cobra.Command {
	var (
		asJSON bool
		all    bool
	)

	cmd := &cobra.Command{
		Use:   "netinfo",
		Short: "show local network status and the address peers should dial",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := netinfo.Snapshot(cmd.Context())
			if err != nil {
				return err
			}
			if !all {
				status.Interfaces = lo.Filter(status.Interfaces, func(i netinfo.Interface, _ int) bool {
					return i.Up && !i.Loopback
				})
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(status)
			}

			if status.Connected {
				_, _ = fmt.Fprintf(out, "Connected: yes (%s:%d)\n", status.PrimaryIP, a.cfg.Server.Port)
			} else {
				_, _ = fmt.Fprintln(out, "Connected: no")
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			for _, i := range status.Interfaces {
				_, _ = fmt.Fprintf(tw, "%s\t%s\n", i.Name, strings.Join(i.Addresses, ", "))
			}
			return tw.Flush()
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	cmd.Flags().BoolVarP(&all, "all", "a", false, "include loopback and down interfaces")
	return cmd
}
