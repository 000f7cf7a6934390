// Package k8sclient builds the kubernetes.Interface clientset the
// Kubernetes executor uses for namespace-access grant/revoke, preferring an
// explicit kubeconfig path and falling back to in-cluster config.
package k8sclient

import (
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
)

// New builds a clientset from kubeconfigPath, or from in-cluster config when
// kubeconfigPath is empty.
func New(kubeconfigPath string) (kubernetes.Interface, error) {
	var restCfg *rest.Config
	var err error
	if kubeconfigPath != "" {
		restCfg, err = clientcmd.BuildConfigFromFlags("", kubeconfigPath)
	} else {
		restCfg, err = rest.InClusterConfig()
	}
	if err != nil {
		return nil, err
	}
	return kubernetes.NewForConfig(restCfg)
}
