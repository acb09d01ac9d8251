// Package config loads and validates the synchronizer settings.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	syncerrors "github.com/magicorntech/gcp-secret-manager/internal/errors"
)

const (
	// DefaultSyncInterval is the cadence between successful sync cycles.
	DefaultSyncInterval = 300 * time.Second

	// DefaultFailureBackoff is the shortened wait after a failed cycle.
	DefaultFailureBackoff = 60 * time.Second

	// DefaultStepTimeout bounds each fetch/apply step inside a cycle.
	DefaultStepTimeout = 30 * time.Second

	// DefaultListenAddr is where the HTTP API listens.
	DefaultListenAddr = ":8000"

	// DefaultSecretVersion selects the newest enabled secret version.
	DefaultSecretVersion = "latest"
)

// Settings holds the full runtime configuration. Values come from an optional
// YAML settings file overlaid by environment variables; env always wins.
type Settings struct {
	// GCP source
	GCPProjectID       string `yaml:"gcp_project_id"`
	GCPSecretName      string `yaml:"gcp_secret_name"`
	GCPSecretVersion   string `yaml:"gcp_secret_version"`
	GCPCredentialsPath string `yaml:"gcp_credentials_path"`

	// Kubernetes sink
	K8sNamespace  string `yaml:"k8s_namespace"`
	K8sSecretName string `yaml:"k8s_secret_name"`

	// Sync cadence
	SyncIntervalSeconds int `yaml:"sync_interval_seconds"`

	// HTTP API
	APIToken   string `yaml:"api_token"`
	ListenAddr string `yaml:"listen_addr"`
}

// envBindings maps settings fields to their environment variables.
var envBindings = []struct {
	env string
	set func(*Settings, string) error
}{
	{"GCP_PROJECT_ID", func(s *Settings, v string) error { s.GCPProjectID = v; return nil }},
	{"GCP_SECRET_NAME", func(s *Settings, v string) error { s.GCPSecretName = v; return nil }},
	{"GCP_SECRET_VERSION", func(s *Settings, v string) error { s.GCPSecretVersion = v; return nil }},
	{"GCP_CREDENTIALS_PATH", func(s *Settings, v string) error { s.GCPCredentialsPath = v; return nil }},
	{"K8S_NAMESPACE", func(s *Settings, v string) error { s.K8sNamespace = v; return nil }},
	{"K8S_SECRET_NAME", func(s *Settings, v string) error { s.K8sSecretName = v; return nil }},
	{"API_TOKEN", func(s *Settings, v string) error { s.APIToken = v; return nil }},
	{"LISTEN_ADDR", func(s *Settings, v string) error { s.ListenAddr = v; return nil }},
	{"SYNC_INTERVAL_SECONDS", func(s *Settings, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return syncerrors.ConfigError{
				Field:      "SYNC_INTERVAL_SECONDS",
				Value:      v,
				Message:    "must be an integer number of seconds",
				Suggestion: "Use a plain number, e.g. SYNC_INTERVAL_SECONDS=300",
			}
		}
		s.SyncIntervalSeconds = n
		return nil
	}},
}

// Load builds Settings from the optional YAML file at path (empty path skips
// the file) and the process environment, then applies defaults. It does not
// validate; call Validate before using the result.
func Load(path string) (*Settings, error) {
	s := &Settings{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, syncerrors.ConfigError{
					Field:      "settings file",
					Value:      path,
					Message:    "settings file not found",
					Suggestion: "Check the --settings path or rely on environment variables only",
				}
			}
			return nil, fmt.Errorf("failed to read settings file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, s); err != nil {
			return nil, syncerrors.ConfigError{
				Field:      "settings file",
				Value:      path,
				Message:    "invalid YAML syntax",
				Suggestion: "Check for indentation errors, missing quotes, or invalid characters",
			}
		}
	}

	for _, b := range envBindings {
		if v, ok := os.LookupEnv(b.env); ok && v != "" {
			if err := b.set(s, v); err != nil {
				return nil, err
			}
		}
	}

	s.applyDefaults()
	return s, nil
}

func (s *Settings) applyDefaults() {
	if s.GCPSecretVersion == "" {
		s.GCPSecretVersion = DefaultSecretVersion
	}
	if s.SyncIntervalSeconds == 0 {
		s.SyncIntervalSeconds = int(DefaultSyncInterval / time.Second)
	}
	if s.ListenAddr == "" {
		s.ListenAddr = DefaultListenAddr
	}
}

// Validate checks that every required setting is present and plausible.
// It reports all missing fields at once so operators fix them in one pass.
func (s *Settings) Validate() error {
	var missing []string
	if s.GCPProjectID == "" {
		missing = append(missing, "gcp_project_id (GCP_PROJECT_ID)")
	}
	if s.GCPSecretName == "" {
		missing = append(missing, "gcp_secret_name (GCP_SECRET_NAME)")
	}
	if s.K8sNamespace == "" {
		missing = append(missing, "k8s_namespace (K8S_NAMESPACE)")
	}
	if s.K8sSecretName == "" {
		missing = append(missing, "k8s_secret_name (K8S_SECRET_NAME)")
	}
	if err := syncerrors.MissingFields(missing); err != nil {
		return err
	}

	if s.SyncIntervalSeconds < 1 {
		return syncerrors.ConfigError{
			Field:      "sync_interval_seconds",
			Value:      s.SyncIntervalSeconds,
			Message:    "must be at least 1 second",
			Suggestion: "Use the default of 300 by leaving it unset",
		}
	}

	if s.GCPCredentialsPath != "" {
		if _, err := os.Stat(s.GCPCredentialsPath); err != nil {
			return syncerrors.ConfigError{
				Field:      "gcp_credentials_path",
				Value:      s.GCPCredentialsPath,
				Message:    "credentials file is not readable",
				Suggestion: "Check the mounted service-account key path, or unset it to use workload identity",
			}
		}
	}

	return nil
}

// SyncInterval returns the configured cadence as a duration.
func (s *Settings) SyncInterval() time.Duration {
	return time.Duration(s.SyncIntervalSeconds) * time.Second
}

// SourceResourceName returns the fully qualified secret version resource.
func (s *Settings) SourceResourceName() string {
	return fmt.Sprintf("projects/%s/secrets/%s/versions/%s", s.GCPProjectID, s.GCPSecretName, s.GCPSecretVersion)
}
