/*
 * Copyright (c) 2025, The Kubernetes Task Runner Authors. All rights reserved.
 * See LICENSE for license information.
 */

package k8sclient

import (
	"fmt"

	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"

	"github.com/kubernetes-task-runner/kubernetes-task-runner/pkg/config"
)

const (
	DefaultQPS   = 50
	DefaultBurst = 100
)

// NewClientSet builds a clientset from the configured API endpoint and bearer
// token. When no endpoint is configured the in-cluster service account is
// used instead.
func NewClientSet() (kubernetes.Interface, *rest.Config, error) {
	endpoint := config.GetKubernetesApiUrl()
	if endpoint == "" {
		return NewClientSetInCluster()
	}
	restConfig, err := createRestConfig(endpoint, config.GetKubernetesApiKey())
	if err != nil {
		return nil, nil, err
	}
	cli, err := NewClientSetWithRestConfig(restConfig)
	return cli, restConfig, err
}

// NewClientSetInCluster creates a new Kubernetes clientset and REST config for
// in-cluster usage.
func NewClientSetInCluster() (kubernetes.Interface, *rest.Config, error) {
	restConfig, err := rest.InClusterConfig()
	if err != nil {
		return nil, nil, err
	}
	restConfig.QPS = DefaultQPS
	restConfig.Burst = DefaultBurst
	cli, err := NewClientSetWithRestConfig(restConfig)
	return cli, restConfig, err
}

// NewClientSetWithRestConfig creates a new Kubernetes clientset using the
// provided REST config.
func NewClientSetWithRestConfig(cfg *rest.Config) (kubernetes.Interface, error) {
	client, err := kubernetes.NewForConfig(cfg)
	if err != nil {
		return nil, err
	}
	return client, nil
}

// createRestConfig creates a REST configuration for bearer-token access to a
// remote API endpoint. The original orchestrator talks to the API URL with an
// opaque key and without certificate pinning; insecure TLS matches that.
func createRestConfig(endpoint, token string) (*rest.Config, error) {
	if endpoint == "" || token == "" {
		return nil, fmt.Errorf("invalid input")
	}
	cfg := &rest.Config{
		Host:        endpoint,
		BearerToken: token,
		TLSClientConfig: rest.TLSClientConfig{
			Insecure: true,
		},
		QPS:   DefaultQPS,
		Burst: DefaultBurst,
	}
	return cfg, nil
}
