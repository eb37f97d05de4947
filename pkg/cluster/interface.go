/*
 * Copyright (c) 2025, The Kubernetes Task Runner Authors. All rights reserved.
 * See LICENSE for license information.
 */

package cluster

import (
	"context"
	"time"

	"github.com/kubernetes-task-runner/kubernetes-task-runner/pkg/batchjob"
)

// Observation is the per-Job view the reconciler diffs against the database.
type Observation struct {
	Active         int32
	Succeeded      int32
	Failed         int32
	StartTime      *time.Time
	CompletionTime *time.Time
}

func (o Observation) HasSucceeded() bool {
	return o.Succeeded > 0
}

func (o Observation) HasFailed() bool {
	return o.Failed > 0
}

type Interface interface {
	EnsureSecret(ctx context.Context) error
	CreatePvc(ctx context.Context, name string) error
	DeletePvc(ctx context.Context, name string) error
	CreateJob(ctx context.Context, record *batchjob.BatchJob) error
	CreateCleanupJob(ctx context.Context, record *batchjob.BatchJob) error
	DeleteJob(ctx context.Context, name string) error
	ListJobObservations(ctx context.Context) (map[string]Observation, error)
}
