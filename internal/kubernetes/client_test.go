package kubernetes_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/client-go/kubernetes/fake"
	k8stesting "k8s.io/client-go/testing"

	"github.com/magicorntech/gcp-secret-manager/internal/config"
	syncerrors "github.com/magicorntech/gcp-secret-manager/internal/errors"
	"github.com/magicorntech/gcp-secret-manager/internal/kubernetes"
)

func testSettings() *config.Settings {
	return &config.Settings{
		K8sNamespace:  "default",
		K8sSecretName: "app-secrets",
	}
}

func TestApplyCreatesMissingSecret(t *testing.T) {
	t.Parallel()

	clientset := fake.NewSimpleClientset()
	client := kubernetes.NewClientWithClientset(clientset, testSettings())

	err := client.Apply(context.Background(), map[string]string{"API_KEY": "x"})
	require.NoError(t, err)

	secret, err := clientset.CoreV1().Secrets("default").Get(context.Background(), "app-secrets", metav1.GetOptions{})
	require.NoError(t, err)
	assert.Equal(t, []byte("x"), secret.Data["API_KEY"])
	assert.Equal(t, corev1.SecretTypeOpaque, secret.Type)
	assert.Equal(t, "gcp-secret-manager", secret.Labels["app.kubernetes.io/managed-by"])
}

func TestApplyFullyOverwritesExistingKeys(t *testing.T) {
	t.Parallel()

	existing := &corev1.Secret{
		ObjectMeta: metav1.ObjectMeta{Name: "app-secrets", Namespace: "default"},
		Data: map[string][]byte{
			"A": []byte("1"),
			"B": []byte("2"),
		},
	}
	clientset := fake.NewSimpleClientset(existing)
	client := kubernetes.NewClientWithClientset(clientset, testSettings())

	err := client.Apply(context.Background(), map[string]string{"B": "2", "C": "3"})
	require.NoError(t, err)

	secret, err := clientset.CoreV1().Secrets("default").Get(context.Background(), "app-secrets", metav1.GetOptions{})
	require.NoError(t, err)

	// A must be gone; exactly {B, C} remain.
	assert.Len(t, secret.Data, 2)
	assert.Equal(t, []byte("2"), secret.Data["B"])
	assert.Equal(t, []byte("3"), secret.Data["C"])
	assert.NotContains(t, secret.Data, "A")
}

func TestApplyClassifiesRejection(t *testing.T) {
	t.Parallel()

	clientset := fake.NewSimpleClientset()
	clientset.PrependReactor("create", "secrets", func(k8stesting.Action) (bool, runtime.Object, error) {
		return true, nil, apierrors.NewInvalid(
			schema.GroupKind{Kind: "Secret"},
			"app-secrets",
			nil,
		)
	})
	client := kubernetes.NewClientWithClientset(clientset, testSettings())

	err := client.Apply(context.Background(), map[string]string{"K": "v"})
	require.Error(t, err)
	assert.ErrorIs(t, err, syncerrors.ErrSinkRejected)
	assert.False(t, syncerrors.IsTransient(err))
}

func TestApplyClassifiesTransientFailure(t *testing.T) {
	t.Parallel()

	clientset := fake.NewSimpleClientset()
	clientset.PrependReactor("get", "secrets", func(k8stesting.Action) (bool, runtime.Object, error) {
		return true, nil, apierrors.NewServiceUnavailable("apiserver overloaded")
	})
	client := kubernetes.NewClientWithClientset(clientset, testSettings())

	err := client.Apply(context.Background(), map[string]string{"K": "v"})
	require.Error(t, err)
	assert.ErrorIs(t, err, syncerrors.ErrSinkUnavailable)
	assert.True(t, syncerrors.IsTransient(err))
}

func TestProbe(t *testing.T) {
	t.Parallel()

	// Missing target secret is fine; the namespace is reachable.
	clientset := fake.NewSimpleClientset()
	client := kubernetes.NewClientWithClientset(clientset, testSettings())
	assert.NoError(t, client.Probe(context.Background()))

	clientset.PrependReactor("get", "secrets", func(k8stesting.Action) (bool, runtime.Object, error) {
		return true, nil, apierrors.NewForbidden(
			schema.GroupResource{Resource: "secrets"},
			"app-secrets",
			nil,
		)
	})
	err := client.Probe(context.Background())
	require.Error(t, err)
	assert.True(t, syncerrors.IsTransient(err))
}

func TestTarget(t *testing.T) {
	t.Parallel()

	client := kubernetes.NewClientWithClientset(fake.NewSimpleClientset(), testSettings())
	assert.Equal(t, "default/app-secrets", client.Target())
}
