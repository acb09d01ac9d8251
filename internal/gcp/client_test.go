package gcp_test

import (
	"context"
	"testing"

	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/magicorntech/gcp-secret-manager/internal/config"
	syncerrors "github.com/magicorntech/gcp-secret-manager/internal/errors"
	"github.com/magicorntech/gcp-secret-manager/internal/gcp"
)

// fakeAPI is a hand-written fake for the narrow Secret Manager surface.
type fakeAPI struct {
	accessFunc func(ctx context.Context, req *secretmanagerpb.AccessSecretVersionRequest) (*secretmanagerpb.AccessSecretVersionResponse, error)
	getFunc    func(ctx context.Context, req *secretmanagerpb.GetSecretRequest) (*secretmanagerpb.Secret, error)
	accessed   []string
}

func (f *fakeAPI) AccessSecretVersion(ctx context.Context, req *secretmanagerpb.AccessSecretVersionRequest) (*secretmanagerpb.AccessSecretVersionResponse, error) {
	f.accessed = append(f.accessed, req.Name)
	return f.accessFunc(ctx, req)
}

func (f *fakeAPI) GetSecret(ctx context.Context, req *secretmanagerpb.GetSecretRequest) (*secretmanagerpb.Secret, error) {
	if f.getFunc == nil {
		return &secretmanagerpb.Secret{Name: req.Name}, nil
	}
	return f.getFunc(ctx, req)
}

func (f *fakeAPI) Close() error { return nil }

func testSettings() *config.Settings {
	return &config.Settings{
		GCPProjectID:     "acme-prod",
		GCPSecretName:    "app-secrets",
		GCPSecretVersion: "latest",
	}
}

func TestFetchReturnsPayload(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{
		accessFunc: func(_ context.Context, req *secretmanagerpb.AccessSecretVersionRequest) (*secretmanagerpb.AccessSecretVersionResponse, error) {
			return &secretmanagerpb.AccessSecretVersionResponse{
				Name:    req.Name,
				Payload: &secretmanagerpb.SecretPayload{Data: []byte(`{"API_KEY":"x"}`)},
			}, nil
		},
	}
	client := gcp.NewClientWithAPI(api, testSettings())

	data, err := client.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"API_KEY":"x"}`), data)
	assert.Equal(t, []string{"projects/acme-prod/secrets/app-secrets/versions/latest"}, api.accessed)
}

func TestFetchNotFound(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{
		accessFunc: func(context.Context, *secretmanagerpb.AccessSecretVersionRequest) (*secretmanagerpb.AccessSecretVersionResponse, error) {
			return nil, status.Error(codes.NotFound, "secret version not found")
		},
	}
	client := gcp.NewClientWithAPI(api, testSettings())

	_, err := client.Fetch(context.Background())
	require.Error(t, err)
	assert.True(t, syncerrors.IsNotFound(err))
	assert.False(t, syncerrors.IsTransient(err))
}

func TestFetchTransientErrors(t *testing.T) {
	t.Parallel()

	for _, code := range []codes.Code{
		codes.Unavailable,
		codes.PermissionDenied,
		codes.Unauthenticated,
		codes.DeadlineExceeded,
		codes.Internal,
	} {
		t.Run(code.String(), func(t *testing.T) {
			api := &fakeAPI{
				accessFunc: func(context.Context, *secretmanagerpb.AccessSecretVersionRequest) (*secretmanagerpb.AccessSecretVersionResponse, error) {
					return nil, status.Error(code, "boom")
				},
			}
			client := gcp.NewClientWithAPI(api, testSettings())

			_, err := client.Fetch(context.Background())
			require.Error(t, err)
			assert.True(t, syncerrors.IsTransient(err))
		})
	}
}

func TestFetchContextTimeout(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{
		accessFunc: func(ctx context.Context, _ *secretmanagerpb.AccessSecretVersionRequest) (*secretmanagerpb.AccessSecretVersionResponse, error) {
			return nil, context.DeadlineExceeded
		},
	}
	client := gcp.NewClientWithAPI(api, testSettings())

	_, err := client.Fetch(context.Background())
	require.Error(t, err)
	assert.True(t, syncerrors.IsTransient(err))
	assert.Contains(t, err.Error(), "timed out")
}

func TestFetchEmptyPayload(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{
		accessFunc: func(_ context.Context, req *secretmanagerpb.AccessSecretVersionRequest) (*secretmanagerpb.AccessSecretVersionResponse, error) {
			return &secretmanagerpb.AccessSecretVersionResponse{Name: req.Name}, nil
		},
	}
	client := gcp.NewClientWithAPI(api, testSettings())

	_, err := client.Fetch(context.Background())
	require.Error(t, err)
	assert.True(t, syncerrors.IsTransient(err))
}

func TestProbe(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{
		accessFunc: func(context.Context, *secretmanagerpb.AccessSecretVersionRequest) (*secretmanagerpb.AccessSecretVersionResponse, error) {
			t.Fatal("Probe must not access payload data")
			return nil, nil
		},
	}
	client := gcp.NewClientWithAPI(api, testSettings())

	require.NoError(t, client.Probe(context.Background()))

	api.getFunc = func(context.Context, *secretmanagerpb.GetSecretRequest) (*secretmanagerpb.Secret, error) {
		return nil, status.Error(codes.NotFound, "no such secret")
	}
	err := client.Probe(context.Background())
	require.Error(t, err)
	assert.True(t, syncerrors.IsNotFound(err))
}
