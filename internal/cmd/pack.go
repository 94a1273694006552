package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/spf13/cobra"

	nwota "github.com/AntonSeagull/nw-ota"
)

// newPackCmd produces one publishable unit: the versioned ZIP archive of a
// bundle directory plus the matching manifest entry appended to update.json
// in the output directory. Uploading the result to the object store is left
// to external tooling.
func newPackCmd() *cobra.Command {
	var (
		version      int
		outputDir    string
		downloadBase string
		disabled     bool
	)

	cmd := &cobra.Command{
		Use:   "pack <bundle-dir>",
		Short: "Archive a bundle directory and extend the local update manifest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			sourceDir, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}
			if version <= 0 {
				return fmt.Errorf("--version must be a positive integer")
			}

			if err := os.MkdirAll(outputDir, 0o755); err != nil {
				return fmt.Errorf("create output directory: %w", err)
			}

			archiveName := nwota.ArchiveName(version)
			archivePath := filepath.Join(outputDir, archiveName)
			archiver := nwota.NewZipArchiver(osfs.New("/"))
			if err := archiver.WriteArchive(cmd.Context(), sourceDir, archivePath); err != nil {
				return err
			}
			logger.Info("archive written", "path", archivePath)

			manifestPath := filepath.Join(outputDir, "update.json")
			entries, err := readLocalManifest(manifestPath)
			if err != nil {
				return err
			}
			for _, e := range entries {
				if e.Version == version {
					return fmt.Errorf("version %d already present in %s", version, manifestPath)
				}
			}

			entries = append(entries, nwota.UpdateEntry{
				Version:  version,
				Enable:   !disabled,
				Download: downloadBase + "/" + archiveName,
			})

			data, err := json.MarshalIndent(entries, "", "  ")
			if err != nil {
				return err
			}
			if err := os.WriteFile(manifestPath, data, 0o644); err != nil {
				return fmt.Errorf("write manifest: %w", err)
			}
			logger.Info("manifest updated", "path", manifestPath, "entries", len(entries))
			return nil
		},
	}

	cmd.Flags().IntVar(&version, "version", 0, "OTA version of this archive (required)")
	cmd.Flags().StringVar(&outputDir, "output", ".", "directory receiving the archive and update.json")
	cmd.Flags().StringVar(&downloadBase, "download-base", "", "base URL prepended to the archive name in the manifest entry")
	cmd.Flags().BoolVar(&disabled, "disabled", false, "publish the entry with enable=false")
	_ = cmd.MarkFlagRequired("version")

	return cmd
}

// readLocalManifest loads update.json, treating an absent file as empty.
func readLocalManifest(path string) ([]nwota.UpdateEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var entries []nwota.UpdateEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	return entries, nil
}
