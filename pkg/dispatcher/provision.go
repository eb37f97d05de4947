/*
 * Copyright (c) 2025, The Kubernetes Task Runner Authors. All rights reserved.
 * See LICENSE for license information.
 */

package dispatcher

import (
	"context"

	"k8s.io/klog/v2"

	"github.com/kubernetes-task-runner/kubernetes-task-runner/pkg/batchjob"
	"github.com/kubernetes-task-runner/kubernetes-task-runner/pkg/coordinator"
	dbclient "github.com/kubernetes-task-runner/kubernetes-task-runner/pkg/database/client"
	trerrors "github.com/kubernetes-task-runner/kubernetes-task-runner/pkg/errors"
)

// ProvisionHandler runs the coordinator's provisioning protocol for queued
// records. Delivery is at-least-once; the handler re-checks the record status
// so replays and raced cancels fall through harmlessly.
type ProvisionHandler struct {
	db          dbclient.Interface
	coordinator *coordinator.Coordinator
}

func NewProvisionHandler(db dbclient.Interface, c *coordinator.Coordinator) *ProvisionHandler {
	return &ProvisionHandler{db: db, coordinator: c}
}

func (h *ProvisionHandler) Do(ctx context.Context, id string, input []byte) (Result, error) {
	row, err := h.db.GetBatchJob(ctx, id)
	if err != nil {
		// A record deleted since it was queued has nothing to provision.
		return Result{}, trerrors.IgnoreDoesNotExist(err)
	}
	if row.Status != string(batchjob.StatusCreated) {
		klog.Infof("skip provisioning task for job %s in status %s", id, row.Status)
		return Result{}, nil
	}
	record, err := row.ToDomain()
	if err != nil {
		return Result{}, err
	}
	if err = h.coordinator.Provision(ctx, record, input); err != nil {
		// The coordinator has already failed the record or lost the status
		// race; a retry would short-circuit on the status check above, so the
		// error is only reported for transient cases that left it created.
		return Result{}, err
	}
	return Result{}, nil
}

// Resume re-enqueues every record still in created: the database row is the
// durable form of the queue entry across restarts.
func Resume(ctx context.Context, db dbclient.Interface, d *Dispatcher) error {
	rows, err := db.SelectBatchJobsByStatus(ctx, string(batchjob.StatusCreated))
	if err != nil {
		return err
	}
	for _, row := range rows {
		d.Add(row.Id, nil)
	}
	if len(rows) > 0 {
		klog.Infof("resumed %d pending provisioning tasks", len(rows))
	}
	return nil
}
