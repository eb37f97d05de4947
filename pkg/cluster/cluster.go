/*
 * Copyright (c) 2025, The Kubernetes Task Runner Authors. All rights reserved.
 * See LICENSE for license information.
 */

package cluster

import (
	"context"
	"os"
	"time"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/klog/v2"

	"github.com/kubernetes-task-runner/kubernetes-task-runner/pkg/batchjob"
	"github.com/kubernetes-task-runner/kubernetes-task-runner/pkg/config"
	trerrors "github.com/kubernetes-task-runner/kubernetes-task-runner/pkg/errors"
)

// Client is the capability layer over the Kubernetes API: it renders batch
// job records into typed manifests and performs CRUD in one namespace.
type Client struct {
	kube            kubernetes.Interface
	opts            manifestOptions
	credentialsPath string
	timeout         time.Duration
}

func NewClient(kube kubernetes.Interface) *Client {
	return &Client{
		kube:            kube,
		credentialsPath: config.GetCredentialsFilePath(),
		opts: manifestOptions{
			namespace:    config.GetKubernetesNamespace(),
			bucket:       config.GetBucketName(),
			gcsfuseImage: config.GetGcsfuseImage(),
			storageSize:  config.GetPvcStorageSize(),
			backoffLimit: int32(config.GetJobBackoffLimit()),
		},
		timeout: time.Duration(config.GetRequestTimeoutSecond()) * time.Second,
	}
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

// EnsureSecret creates the bucket credentials Secret if absent. Idempotent.
func (c *Client) EnsureSecret(ctx context.Context) error {
	credentials, err := os.ReadFile(c.credentialsPath)
	if err != nil {
		return trerrors.NewInternalError(err.Error())
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	secret := newSecretManifest(c.opts, credentials)
	_, err = c.kube.CoreV1().Secrets(c.opts.namespace).Create(ctx, secret, metav1.CreateOptions{})
	if err != nil && !apierrors.IsAlreadyExists(err) {
		return trerrors.NewClusterError(err.Error())
	}
	return nil
}

func (c *Client) CreatePvc(ctx context.Context, name string) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	pvc := newPvcManifest(c.opts, name)
	if _, err := c.kube.CoreV1().PersistentVolumeClaims(c.opts.namespace).Create(ctx, pvc, metav1.CreateOptions{}); err != nil {
		return trerrors.NewClusterError(err.Error())
	}
	return nil
}

func (c *Client) DeletePvc(ctx context.Context, name string) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	err := c.kube.CoreV1().PersistentVolumeClaims(c.opts.namespace).Delete(ctx, name, metav1.DeleteOptions{})
	if err != nil && !apierrors.IsNotFound(err) {
		return trerrors.NewClusterError(err.Error())
	}
	return nil
}

func (c *Client) CreateJob(ctx context.Context, record *batchjob.BatchJob) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	job := newBatchJobManifest(record, c.opts)
	if _, err := c.kube.BatchV1().Jobs(c.opts.namespace).Create(ctx, job, metav1.CreateOptions{}); err != nil {
		return trerrors.NewClusterError(err.Error())
	}
	klog.Infof("created batch job %s in namespace %s", record.Name, c.opts.namespace)
	return nil
}

func (c *Client) CreateCleanupJob(ctx context.Context, record *batchjob.BatchJob) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	job := newCleanupJobManifest(record, c.opts)
	if _, err := c.kube.BatchV1().Jobs(c.opts.namespace).Create(ctx, job, metav1.CreateOptions{}); err != nil {
		return trerrors.NewClusterError(err.Error())
	}
	klog.Infof("created cleanup job %s in namespace %s", job.Name, c.opts.namespace)
	return nil
}

// DeleteJob deletes with background propagation so pods are reaped with the
// Job. NotFound is success.
func (c *Client) DeleteJob(ctx context.Context, name string) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	propagation := metav1.DeletePropagationBackground
	err := c.kube.BatchV1().Jobs(c.opts.namespace).Delete(ctx, name, metav1.DeleteOptions{
		PropagationPolicy: &propagation,
	})
	if err != nil && !apierrors.IsNotFound(err) {
		return trerrors.NewClusterError(err.Error())
	}
	return nil
}

// ListJobObservations returns the observed counters of every Job this system
// owns, primary and cleanup alike, keyed by Job name.
func (c *Client) ListJobObservations(ctx context.Context) (map[string]Observation, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	jobs, err := c.kube.BatchV1().Jobs(c.opts.namespace).List(ctx, metav1.ListOptions{
		LabelSelector: JobTypeLabelKey,
	})
	if err != nil {
		return nil, trerrors.NewClusterError(err.Error())
	}
	result := make(map[string]Observation, len(jobs.Items))
	for _, job := range jobs.Items {
		observation := Observation{
			Active:    job.Status.Active,
			Succeeded: job.Status.Succeeded,
			Failed:    job.Status.Failed,
		}
		if job.Status.StartTime != nil {
			observation.StartTime = &job.Status.StartTime.Time
		}
		if job.Status.CompletionTime != nil {
			observation.CompletionTime = &job.Status.CompletionTime.Time
		}
		result[job.Name] = observation
	}
	return result, nil
}
