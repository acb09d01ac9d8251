package commands

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/magicorntech/gcp-secret-manager/internal/config"
	"github.com/magicorntech/gcp-secret-manager/internal/gcp"
	"github.com/magicorntech/gcp-secret-manager/internal/kubernetes"
)

type checkResult struct {
	Name   string
	Status string
	Detail string
}

// NewDoctorCommand validates configuration and probes both collaborators
// without writing anything.
func NewDoctorCommand(opts *Options) *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check configuration and connectivity",
		Long: `Verify that the synchronizer is ready to run.

This command checks:
- Settings validity (required fields, credentials file)
- GCP Secret Manager access to the configured secret
- Kubernetes API access to the target namespace`,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := config.Load(opts.SettingsPath)
			if err != nil {
				return err
			}

			results := runChecks(settings, timeout)

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "CHECK\tSTATUS\tDETAIL")
			failed := false
			for _, r := range results {
				fmt.Fprintf(w, "%s\t%s\t%s\n", r.Name, r.Status, r.Detail)
				if r.Status != "ok" {
					failed = true
				}
			}
			_ = w.Flush()

			if failed {
				return fmt.Errorf("one or more checks failed")
			}
			return nil
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "Per-check timeout")
	return cmd
}

func runChecks(settings *config.Settings, timeout time.Duration) []checkResult {
	var results []checkResult

	if err := settings.Validate(); err != nil {
		results = append(results, checkResult{Name: "settings", Status: "error", Detail: err.Error()})
		// Connectivity checks need valid settings; stop here.
		return results
	}
	results = append(results, checkResult{Name: "settings", Status: "ok", Detail: settings.SourceResourceName()})

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	source, err := gcp.NewClient(ctx, settings)
	if err != nil {
		results = append(results, checkResult{Name: "gcp", Status: "error", Detail: err.Error()})
	} else {
		defer func() { _ = source.Close() }()
		if err := source.Probe(ctx); err != nil {
			results = append(results, checkResult{Name: "gcp", Status: "error", Detail: err.Error()})
		} else {
			results = append(results, checkResult{Name: "gcp", Status: "ok", Detail: "secret reachable"})
		}
	}

	sink, err := kubernetes.NewClient(settings)
	if err != nil {
		results = append(results, checkResult{Name: "kubernetes", Status: "error", Detail: err.Error()})
	} else if err := sink.Probe(ctx); err != nil {
		results = append(results, checkResult{Name: "kubernetes", Status: "error", Detail: err.Error()})
	} else {
		results = append(results, checkResult{Name: "kubernetes", Status: "ok", Detail: "namespace " + settings.K8sNamespace + " reachable"})
	}

	return results
}
