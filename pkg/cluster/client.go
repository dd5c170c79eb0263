package cluster

// Package cluster holds the Kubernetes client context shared by the
// experiment commands: a typed clientset for pod listing and log streaming,
// and a controller-runtime client for deletes and drain checks.

import (
	"fmt"
	"os"
	"path/filepath"

	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/client-go/kubernetes"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
	"k8s.io/client-go/util/homedir"
	"sigs.k8s.io/controller-runtime/pkg/client"
)

// DefaultNamespace is the namespace the MTD ensemble is deployed into.
const DefaultNamespace = "mtd"

// Client is the explicitly constructed cluster context. It is read-mostly
// and needs no teardown.
type Client struct {
	Clientset kubernetes.Interface
	Ctrl      client.Client
	Namespace string
}

// NewClient builds a Client using kubeconfig (or in-cluster config).
func NewClient(namespace string) (*Client, error) {
	config, err := BuildConfig()
	if err != nil {
		return nil, fmt.Errorf("build kube config: %w", err)
	}
	cs, err := kubernetes.NewForConfig(config)
	if err != nil {
		return nil, fmt.Errorf("create clientset: %w", err)
	}

	scheme := runtime.NewScheme()
	if err := clientgoscheme.AddToScheme(scheme); err != nil {
		return nil, fmt.Errorf("add client-go scheme: %w", err)
	}
	c, err := client.New(config, client.Options{Scheme: scheme})
	if err != nil {
		return nil, fmt.Errorf("create controller-runtime client: %w", err)
	}

	return NewClientFrom(cs, c, namespace), nil
}

// NewClientFrom wraps already constructed clients, e.g. fakes in tests.
func NewClientFrom(cs kubernetes.Interface, c client.Client, namespace string) *Client {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	return &Client{Clientset: cs, Ctrl: c, Namespace: namespace}
}

// BuildConfig prefers KUBECONFIG, then ~/.kube/config, then in-cluster config.
func BuildConfig() (*rest.Config, error) {
	var kubeconfigPath string
	if env := os.Getenv("KUBECONFIG"); env != "" {
		kubeconfigPath = env
	} else if home := homedir.HomeDir(); home != "" {
		kubeconfigPath = filepath.Join(home, ".kube", "config")
	}

	if kubeconfigPath != "" {
		if _, err := os.Stat(kubeconfigPath); err == nil {
			if cfg, err := clientcmd.BuildConfigFromFlags("", kubeconfigPath); err == nil {
				return cfg, nil
			}
		}
	}

	return rest.InClusterConfig()
}
