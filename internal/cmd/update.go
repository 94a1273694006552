package cmd

import (
	"github.com/spf13/cobra"

	nwota "github.com/AntonSeagull/nw-ota"
)

// newUpdateCmd runs the full update flow: check, download, unpack, swap,
// persist.
func newUpdateCmd() *cobra.Command {
	var noBackup bool

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Download and install the latest bundle for this channel",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()

			opts := []nwota.ClientOption{
				statusPrinter(logger),
				nwota.WithOnProgress(func(received, total int64) {
					logger.Debug("downloading", "received", received, "total", total)
				}),
				nwota.WithOnRestartNeeded(func() {
					logger.Info("restart the application to activate the new bundle")
				}),
			}
			if noBackup {
				opts = append(opts, nwota.WithBackup(false))
			}

			client, err := newClient(logger, opts...)
			if err != nil {
				return err
			}
			return client.Update(cmd.Context())
		},
	}

	cmd.Flags().BoolVar(&noBackup, "no-backup", false, "skip the pre-swap backup (a failed swap then cannot roll back)")
	return cmd
}
