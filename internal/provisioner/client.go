// Package provisioner seeds ephemeral Task Runners as Kubernetes Jobs on
// request (Provisioner.Spawn); nothing in the broker calls it on a
// resource shortage. It only ever supplies capacity: the runner it launches
// self-registers and long-polls the ordinary sync endpoint like any other
// agent, never bypassing the regular pull protocol.
package provisioner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
)

// NewClient creates a Kubernetes clientset, detecting in-cluster vs.
// kubeconfig-based configuration.
func NewClient(inCluster bool, kubeConfigPath string) (*kubernetes.Clientset, error) {
	var config *rest.Config
	var err error

	if inCluster {
		log.Info("using in-cluster Kubernetes configuration")
		config, err = rest.InClusterConfig()
		if err != nil {
			return nil, fmt.Errorf("in-cluster config: %w", err)
		}
	} else {
		if kubeConfigPath == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return nil, fmt.Errorf("home directory: %w", err)
			}
			kubeConfigPath = filepath.Join(home, ".kube", "config")
		}
		config, err = clientcmd.BuildConfigFromFlags("", kubeConfigPath)
		if err != nil {
			return nil, fmt.Errorf("kubeconfig %s: %w", kubeConfigPath, err)
		}
	}

	clientset, err := kubernetes.NewForConfig(config)
	if err != nil {
		return nil, fmt.Errorf("building clientset: %w", err)
	}
	return clientset, nil
}

// VerifyConnection checks that the cluster is reachable before the
// provisioner starts relying on it.
func VerifyConnection(ctx context.Context, clientset *kubernetes.Clientset) error {
	if _, err := clientset.Discovery().ServerVersion(); err != nil {
		return fmt.Errorf("connecting to cluster: %w", err)
	}
	return nil
}

// EnsureNamespace makes sure the namespace ephemeral Task Runner Jobs get
// spawned into exists, creating it if the cluster operator never
// provisioned it. The provisioner's Spawn assumes the namespace is already
// there; calling this once at startup means a fresh cluster doesn't reject
// the first runner with a NotFound. Takes the kubernetes.Interface rather
// than the concrete clientset so tests can pass a fake.
func EnsureNamespace(ctx context.Context, clientset kubernetes.Interface, namespace string) error {
	_, err := clientset.CoreV1().Namespaces().Get(ctx, namespace, metav1.GetOptions{})
	if err == nil {
		return nil
	}
	if !apierrors.IsNotFound(err) {
		return fmt.Errorf("checking namespace %s: %w", namespace, err)
	}

	log.WithField("namespace", namespace).Info("creating task runner provisioning namespace")
	ns := &corev1.Namespace{ObjectMeta: metav1.ObjectMeta{Name: namespace}}
	if _, err := clientset.CoreV1().Namespaces().Create(ctx, ns, metav1.CreateOptions{}); err != nil && !apierrors.IsAlreadyExists(err) {
		return fmt.Errorf("creating namespace %s: %w", namespace, err)
	}
	return nil
}
