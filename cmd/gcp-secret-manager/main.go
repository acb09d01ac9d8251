package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/magicorntech/gcp-secret-manager/cmd/gcp-secret-manager/commands"
	"github.com/magicorntech/gcp-secret-manager/internal/logging"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	opts := &commands.Options{
		Log: logging.NewDefaultOptions(),
	}

	rootCmd := &cobra.Command{
		Use:   "gcp-secret-manager",
		Short: "Sync a GCP Secret Manager secret into a Kubernetes secret",
		Long: `gcp-secret-manager keeps one Kubernetes secret synchronized with a JSON
payload stored in Google Cloud Secret Manager. It polls on a fixed interval
and exposes an HTTP API for health checks and on-demand sync triggers.`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	}

	rootCmd.PersistentFlags().StringVar(&opts.SettingsPath, "settings", "", "Optional YAML settings file (environment variables take precedence)")
	opts.Log.AddPFlags(rootCmd.PersistentFlags())

	rootCmd.AddCommand(
		commands.NewServeCommand(opts),
		commands.NewDoctorCommand(opts),
	)

	return rootCmd.Execute()
}
