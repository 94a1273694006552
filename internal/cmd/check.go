package cmd

import (
	"path/filepath"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/spf13/cobra"

	nwota "github.com/AntonSeagull/nw-ota"
)

// newCheckCmd reports whether a newer bundle is published, without touching
// the filesystem.
func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Check the update feed for a newer bundle",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			client, err := newClient(logger)
			if err != nil {
				return err
			}

			entry, err := client.CheckForUpdate(cmd.Context())
			if err != nil {
				return err
			}
			if entry == nil {
				logger.Info("bundle is up to date",
					"channel", client.Channel().String(),
					"installed", client.InstalledVersion())
				return nil
			}

			logger.Info("update available",
				"channel", client.Channel().String(),
				"installed", client.InstalledVersion(),
				"target", entry.Version,
				"download", entry.Download)
			return nil
		},
	}
}

// descriptorSource reads the app version from the bundle's package
// descriptor, trying the conventional field names in order.
func descriptorSource(bundlePath string) nwota.VersionSource {
	return nwota.DescriptorVersionSource{
		FS:     osfs.New("/"),
		Path:   filepath.Join(bundlePath, "package.json"),
		Fields: []string{"appVersion", "version"},
	}
}
