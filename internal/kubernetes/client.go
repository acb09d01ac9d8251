// Package kubernetes implements the secret sink adapter over the cluster API.
package kubernetes

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"

	"github.com/magicorntech/gcp-secret-manager/internal/config"
	syncerrors "github.com/magicorntech/gcp-secret-manager/internal/errors"
)

// managedByLabel marks secrets written by this process.
const managedByLabel = "app.kubernetes.io/managed-by"

// Client applies secret payloads to a single namespace/name target.
type Client struct {
	clientset kubernetes.Interface
	namespace string
	name      string
}

// NewClient builds a clientset from in-cluster config, falling back to the
// local kubeconfig for out-of-cluster runs.
func NewClient(settings *config.Settings) (*Client, error) {
	restCfg, err := rest.InClusterConfig()
	if err != nil {
		kubeconfig := os.Getenv("KUBECONFIG")
		if kubeconfig == "" {
			home, homeErr := os.UserHomeDir()
			if homeErr != nil {
				return nil, fmt.Errorf("failed to load in-cluster config and no kubeconfig available: %w", err)
			}
			kubeconfig = filepath.Join(home, ".kube", "config")
		}
		restCfg, err = clientcmd.BuildConfigFromFlags("", kubeconfig)
		if err != nil {
			return nil, fmt.Errorf("failed to load kubeconfig: %w", err)
		}
	}

	clientset, err := kubernetes.NewForConfig(restCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kubernetes client: %w", err)
	}

	return NewClientWithClientset(clientset, settings), nil
}

// NewClientWithClientset builds a Client over an existing clientset.
func NewClientWithClientset(clientset kubernetes.Interface, settings *config.Settings) *Client {
	return &Client{
		clientset: clientset,
		namespace: settings.K8sNamespace,
		name:      settings.K8sSecretName,
	}
}

// Target returns the namespace/name the client writes to.
func (c *Client) Target() string {
	return fmt.Sprintf("%s/%s", c.namespace, c.name)
}

// Apply creates the target secret if absent, otherwise replaces its entire
// key set with data. Keys from a previous version that are not in data
// disappear.
func (c *Client) Apply(ctx context.Context, data map[string]string) error {
	secrets := c.clientset.CoreV1().Secrets(c.namespace)

	byteData := make(map[string][]byte, len(data))
	for k, v := range data {
		byteData[k] = []byte(v)
	}

	existing, err := secrets.Get(ctx, c.name, metav1.GetOptions{})
	if err != nil {
		if !apierrors.IsNotFound(err) {
			return c.wrap("get", err)
		}

		secret := &corev1.Secret{
			ObjectMeta: metav1.ObjectMeta{
				Name:      c.name,
				Namespace: c.namespace,
				Labels:    map[string]string{managedByLabel: "gcp-secret-manager"},
			},
			Type: corev1.SecretTypeOpaque,
			Data: byteData,
		}
		if _, err := secrets.Create(ctx, secret, metav1.CreateOptions{}); err != nil {
			return c.wrap("create", err)
		}
		return nil
	}

	// Full overwrite: Data is replaced wholesale, StringData cleared so no
	// stale server-side merge source remains.
	existing.Data = byteData
	existing.StringData = nil
	if existing.Labels == nil {
		existing.Labels = map[string]string{}
	}
	existing.Labels[managedByLabel] = "gcp-secret-manager"

	if _, err := secrets.Update(ctx, existing, metav1.UpdateOptions{}); err != nil {
		return c.wrap("update", err)
	}
	return nil
}

// Probe verifies API connectivity and namespace access without writing.
func (c *Client) Probe(ctx context.Context) error {
	_, err := c.clientset.CoreV1().Secrets(c.namespace).Get(ctx, c.name, metav1.GetOptions{})
	if err != nil && !apierrors.IsNotFound(err) {
		return c.wrap("probe", err)
	}
	return nil
}

func (c *Client) wrap(op string, err error) error {
	return &syncerrors.SinkError{
		Op:        op,
		Namespace: c.namespace,
		Name:      c.name,
		Err:       classify(err),
	}
}

// classify maps Kubernetes API errors onto the sync error taxonomy.
func classify(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || apierrors.IsTimeout(err) || apierrors.IsServerTimeout(err) {
		return fmt.Errorf("timed out: %w", syncerrors.ErrSinkUnavailable)
	}
	if apierrors.IsInvalid(err) || apierrors.IsBadRequest(err) {
		return fmt.Errorf("%v: %w", err, syncerrors.ErrSinkRejected)
	}
	return fmt.Errorf("%v: %w", err, syncerrors.ErrSinkUnavailable)
}
