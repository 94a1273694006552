// Package cmd contains the nw-ota command line interface.
package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	nwota "github.com/AntonSeagull/nw-ota"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

// Execute builds the command tree and runs it.
func Execute(version, commit, date string) error {
	rootCmd := &cobra.Command{
		Use:   "nw-ota",
		Short: "Over-the-air bundle updates for NW.js applications",
		Long: `nw-ota checks a remote update feed for a newer asset bundle,
downloads it, and swaps it in for the running bundle with backup and
rollback on failure. The host application is never restarted; activation
of a new bundle requires an external restart.`,
		Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/nw-ota/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().String("endpoint", "", "update feed endpoint, e.g. https://updates.example.com")
	rootCmd.PersistentFlags().String("project", "", "project key of the update channel")
	rootCmd.PersistentFlags().String("platform", string(nwota.CurrentPlatform()), "platform tag: win, mac, linux32, linux64")
	rootCmd.PersistentFlags().String("app-version", "", "application version string (defaults to the bundle's package descriptor)")
	rootCmd.PersistentFlags().String("bundle", "", "path of the bundle directory")

	for _, flag := range []string{"endpoint", "project", "platform", "app-version", "bundle"} {
		_ = viper.BindPFlag(flag, rootCmd.PersistentFlags().Lookup(flag))
	}

	cobra.OnInitialize(initConfig)

	rootCmd.AddCommand(newCheckCmd())
	rootCmd.AddCommand(newUpdateCmd())
	rootCmd.AddCommand(newPackCmd())

	return rootCmd.Execute()
}

// initConfig reads the config file and OTA_* environment variables.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home + "/.config/nw-ota")
		}
		viper.AddConfigPath(".")
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("OTA")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		newLogger().Debug("using config file", "path", viper.ConfigFileUsed())
	}
}

// newLogger builds the CLI logger honoring the verbose flag.
func newLogger() *log.Logger {
	logger := log.New(os.Stderr)
	if verbose {
		logger.SetLevel(log.DebugLevel)
	}
	return logger
}

// newClient builds an update client from flags and config.
func newClient(logger *log.Logger, extra ...nwota.ClientOption) (*nwota.Client, error) {
	endpoint := viper.GetString("endpoint")
	project := viper.GetString("project")
	bundle := viper.GetString("bundle")
	if endpoint == "" || project == "" || bundle == "" {
		return nil, fmt.Errorf("endpoint, project, and bundle must be configured (flags, config file, or OTA_* env)")
	}

	platform, err := nwota.ParsePlatform(viper.GetString("platform"))
	if err != nil {
		return nil, err
	}

	appVersion := nwota.ResolveAppVersion(
		nwota.StaticVersionSource{Source: "flag", Value: viper.GetString("app-version")},
		nwota.EnvVersionSource{Key: "OTA_APP_VERSION"},
		descriptorSource(bundle),
	)

	info := nwota.StaticPlatformInfo{Plat: platform, Version: appVersion}
	opts := append([]nwota.ClientOption{nwota.WithLogger(logger)}, extra...)
	return nwota.New(endpoint, project, bundle, info, opts...)
}

// statusPrinter logs each status transition of the flow.
func statusPrinter(logger *log.Logger) nwota.ClientOption {
	return nwota.WithOnStatus(func(s nwota.Status) {
		logger.Info("status", "stage", string(s), "at", time.Now().Format(time.TimeOnly))
	})
}
