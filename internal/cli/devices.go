package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/rudransh-shrivastava/rider-share/internal/discovery"
	"github.com/spf13/cobra"
)

func newDevicesCmd(a *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "devices",
		Short: "list paired bluetooth devices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc := discovery.NewService(
				discovery.NewBlueZ(a.cfg.Discovery.BlueZDir, a.cfg.Discovery.SysfsDir),
				discovery.FilePermissions{Dir: a.cfg.Discovery.BlueZDir},
				a.log,
			)

			devices, err := svc.ListPairedDevices(cmd.Context())
			switch {
			case errors.Is(err, discovery.ErrPermissionDenied):
				return fmt.Errorf("%w: run as a user that can read %s", err, a.cfg.Discovery.BlueZDir)
			case err != nil:
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if devices == nil {
					devices = []discovery.PairedDevice{}
				}
				return enc.Encode(devices)
			}
			if len(devices) == 0 {
				_, _ = fmt.Fprintln(out, "No paired devices")
				return nil
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			_, _ = fmt.Fprintln(tw, "ID\tNAME")
			for _, d := range devices {
				_, _ = fmt.Fprintf(tw, "%s\t%s\n", d.ID, d.Name)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}
