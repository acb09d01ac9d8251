// Package gcp implements the secret source adapter over Google Cloud Secret
// Manager.
package gcp

import (
	"context"
	"errors"
	"fmt"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/magicorntech/gcp-secret-manager/internal/config"
	syncerrors "github.com/magicorntech/gcp-secret-manager/internal/errors"
)

// API is the subset of the Secret Manager client the adapter uses.
// The narrow surface keeps tests to a hand-written fake.
type API interface {
	AccessSecretVersion(ctx context.Context, req *secretmanagerpb.AccessSecretVersionRequest) (*secretmanagerpb.AccessSecretVersionResponse, error)
	GetSecret(ctx context.Context, req *secretmanagerpb.GetSecretRequest) (*secretmanagerpb.Secret, error)
	Close() error
}

// realAPI adapts *secretmanager.Client to the opts-free API surface.
type realAPI struct {
	client *secretmanager.Client
}

func (r *realAPI) AccessSecretVersion(ctx context.Context, req *secretmanagerpb.AccessSecretVersionRequest) (*secretmanagerpb.AccessSecretVersionResponse, error) {
	return r.client.AccessSecretVersion(ctx, req)
}

func (r *realAPI) GetSecret(ctx context.Context, req *secretmanagerpb.GetSecretRequest) (*secretmanagerpb.Secret, error) {
	return r.client.GetSecret(ctx, req)
}

func (r *realAPI) Close() error {
	return r.client.Close()
}

// Client fetches the configured secret payload. It performs no caching; every
// Fetch hits Secret Manager.
type Client struct {
	api       API
	projectID string
	secret    string
	version   string
}

// NewClient creates the Secret Manager client. An explicit credentials file
// path takes precedence over application default credentials, matching
// workload-identity deployments where the path is unset.
func NewClient(ctx context.Context, settings *config.Settings) (*Client, error) {
	var opts []option.ClientOption
	if settings.GCPCredentialsPath != "" {
		opts = append(opts, option.WithCredentialsFile(settings.GCPCredentialsPath))
	}

	client, err := secretmanager.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Secret Manager client: %w", err)
	}

	return NewClientWithAPI(&realAPI{client: client}, settings), nil
}

// NewClientWithAPI builds a Client over an existing API implementation.
func NewClientWithAPI(api API, settings *config.Settings) *Client {
	return &Client{
		api:       api,
		projectID: settings.GCPProjectID,
		secret:    settings.GCPSecretName,
		version:   settings.GCPSecretVersion,
	}
}

// ResourceName returns the fully qualified secret version resource.
func (c *Client) ResourceName() string {
	return fmt.Sprintf("projects/%s/secrets/%s/versions/%s", c.projectID, c.secret, c.version)
}

// Fetch returns the raw payload bytes of the configured secret version.
func (c *Client) Fetch(ctx context.Context) ([]byte, error) {
	name := c.ResourceName()

	resp, err := c.api.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
		Name: name,
	})
	if err != nil {
		return nil, &syncerrors.SourceError{
			Op:     "fetch",
			Secret: name,
			Err:    classify(err),
		}
	}

	if resp.Payload == nil || resp.Payload.Data == nil {
		return nil, &syncerrors.SourceError{
			Op:     "fetch",
			Secret: name,
			Err:    fmt.Errorf("empty payload: %w", syncerrors.ErrSourceUnavailable),
		}
	}

	return resp.Payload.Data, nil
}

// Probe checks that the configured secret exists and is reachable without
// touching any payload data.
func (c *Client) Probe(ctx context.Context) error {
	name := fmt.Sprintf("projects/%s/secrets/%s", c.projectID, c.secret)

	if _, err := c.api.GetSecret(ctx, &secretmanagerpb.GetSecretRequest{Name: name}); err != nil {
		return &syncerrors.SourceError{
			Op:     "probe",
			Secret: name,
			Err:    classify(err),
		}
	}
	return nil
}

// Close releases the underlying gRPC connection.
func (c *Client) Close() error {
	return c.api.Close()
}

// classify maps SDK errors onto the sync error taxonomy.
func classify(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("timed out: %w", syncerrors.ErrSourceUnavailable)
	}

	switch status.Code(err) {
	case codes.NotFound:
		return fmt.Errorf("%v: %w", err, syncerrors.ErrSourceNotFound)
	case codes.PermissionDenied:
		return fmt.Errorf("%v (check IAM permissions secretmanager.versions.access): %w", err, syncerrors.ErrSourceUnavailable)
	case codes.Unauthenticated:
		return fmt.Errorf("%v (check GOOGLE_APPLICATION_CREDENTIALS or workload identity): %w", err, syncerrors.ErrSourceUnavailable)
	case codes.DeadlineExceeded:
		return fmt.Errorf("timed out: %w", syncerrors.ErrSourceUnavailable)
	default:
		return fmt.Errorf("%v: %w", err, syncerrors.ErrSourceUnavailable)
	}
}
