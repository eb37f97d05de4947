/*
 * Copyright (c) 2025, The Kubernetes Task Runner Authors. All rights reserved.
 * See LICENSE for license information.
 */

package client

import (
	"context"

	sqrl "github.com/Masterminds/squirrel"
)

type Interface interface {
	BatchJobInterface
}

type BatchJobInterface interface {
	InsertBatchJob(ctx context.Context, job *BatchJob) error
	GetBatchJob(ctx context.Context, id string) (*BatchJob, error)
	SelectBatchJobs(ctx context.Context, query sqrl.Sqlizer, orderBy []string, limit, offset int) ([]*BatchJob, error)
	SelectBatchJobsByStatus(ctx context.Context, statuses ...string) ([]*BatchJob, error)
	CountBatchJobs(ctx context.Context, query sqrl.Sqlizer) (int, error)
	UpdateBatchJob(ctx context.Context, id string, delta map[string]interface{}) error
	CompareAndSetStatus(ctx context.Context, id, from, to string) (bool, error)
	SetSyncMisses(ctx context.Context, id string, misses int) error
}
