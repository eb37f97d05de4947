/*
 * Copyright (c) 2025, The Kubernetes Task Runner Authors. All rights reserved.
 * See LICENSE for license information.
 */

package coordinator

import (
	"context"
	"time"

	"k8s.io/klog/v2"

	"github.com/kubernetes-task-runner/kubernetes-task-runner/pkg/batchjob"
	"github.com/kubernetes-task-runner/kubernetes-task-runner/pkg/cluster"
	dbclient "github.com/kubernetes-task-runner/kubernetes-task-runner/pkg/database/client"
	dbutils "github.com/kubernetes-task-runner/kubernetes-task-runner/pkg/database/utils"
	trerrors "github.com/kubernetes-task-runner/kubernetes-task-runner/pkg/errors"
	"github.com/kubernetes-task-runner/kubernetes-task-runner/pkg/gcs"
)

// Coordinator executes the multi-step provisioning, teardown and cancellation
// protocols for one batch job at a time. It owns no state; the database row
// is the single point of truth it advances.
type Coordinator struct {
	cluster cluster.Interface
	store   gcs.Interface
	db      dbclient.Interface
}

func NewCoordinator(clusterClient cluster.Interface, store gcs.Interface, db dbclient.Interface) *Coordinator {
	return &Coordinator{
		cluster: clusterClient,
		store:   store,
		db:      db,
	}
}

// Provision stages the cluster resource graph for a created record: secret,
// output PVC, optional input PVC plus payload upload, then the primary Job.
// On any failure it deletes what it created, in reverse order, and fails the
// record with the underlying error attached.
func (c *Coordinator) Provision(ctx context.Context, record *batchjob.BatchJob, input []byte) error {
	row, err := c.db.GetBatchJob(ctx, record.Id)
	if err != nil {
		return err
	}
	// A cancel may have raced the dispatcher; only created records proceed.
	if row.Status != string(batchjob.StatusCreated) {
		klog.Infof("skip provisioning of job %s in status %s", record.Id, row.Status)
		return nil
	}

	progress := provisionedNothing
	if err = c.cluster.EnsureSecret(ctx); err != nil {
		return c.failProvisioning(ctx, record, err, progress)
	}
	if err = c.cluster.CreatePvc(ctx, batchjob.OutputPvcClaimName(record.Name)); err != nil {
		return c.failProvisioning(ctx, record, err, progress)
	}
	progress = provisionedOutputPvc
	if record.HasInputFile {
		if err = c.cluster.CreatePvc(ctx, batchjob.InputPvcClaimName(record.Name)); err != nil {
			return c.failProvisioning(ctx, record, err, progress)
		}
		progress = provisionedInputPvc
		if len(input) == 0 {
			// The payload only lives in process memory; a restart between
			// insert and provisioning loses it.
			err = trerrors.NewInternalError("the input payload is no longer available")
			return c.failProvisioning(ctx, record, err, progress)
		}
		if err = c.store.Upload(ctx, batchjob.InputObjectKey(record.Name), input); err != nil {
			return c.failProvisioning(ctx, record, err, progress)
		}
		progress = provisionedInputUpload
	}

	// Every call above can stall up to its timeout; the reconciler's grace
	// sweep may have failed the record in the meantime. A Job created for a
	// terminal record would never be reclaimed, so re-check before launch.
	row, err = c.db.GetBatchJob(ctx, record.Id)
	if err != nil {
		c.releaseResources(ctx, record, progress)
		return err
	}
	if row.Status != string(batchjob.StatusCreated) {
		klog.Infof("abort provisioning of job %s in status %s", record.Id, row.Status)
		c.releaseResources(ctx, record, progress)
		return nil
	}
	if err = c.cluster.CreateJob(ctx, record); err != nil {
		return c.failProvisioning(ctx, record, err, progress)
	}
	klog.Infof("provisioned batch job %s (%s)", record.Name, record.Id)
	return nil
}

type provisionProgress int

const (
	provisionedNothing provisionProgress = iota
	provisionedOutputPvc
	provisionedInputPvc
	provisionedInputUpload
)

// releaseResources deletes the provisioned artifacts in reverse creation
// order.
func (c *Coordinator) releaseResources(ctx context.Context, record *batchjob.BatchJob, progress provisionProgress) {
	if progress >= provisionedInputUpload && record.HasInputFile {
		if err := c.store.Delete(ctx, batchjob.InputObjectKey(record.Name)); err != nil {
			klog.ErrorS(err, "failed to delete input object", "name", record.Name)
		}
	}
	if progress >= provisionedInputPvc {
		if err := c.cluster.DeletePvc(ctx, batchjob.InputPvcClaimName(record.Name)); err != nil {
			klog.ErrorS(err, "failed to delete input pvc", "name", record.Name)
		}
	}
	if progress >= provisionedOutputPvc {
		if err := c.cluster.DeletePvc(ctx, batchjob.OutputPvcClaimName(record.Name)); err != nil {
			klog.ErrorS(err, "failed to delete output pvc", "name", record.Name)
		}
	}
}

// failProvisioning compensates in reverse creation order, then moves the
// record to failed unless a cancel already won the status race.
func (c *Coordinator) failProvisioning(ctx context.Context, record *batchjob.BatchJob, cause error, progress provisionProgress) error {
	klog.ErrorS(cause, "provisioning failed, compensating", "id", record.Id, "name", record.Name)
	c.releaseResources(ctx, record, progress)

	won, err := c.db.CompareAndSetStatus(ctx, record.Id,
		string(batchjob.StatusCreated), string(batchjob.StatusFailed))
	if err != nil {
		return err
	}
	if !won {
		// Lost to a cancel; teardown already deletes the same resources.
		return cause
	}
	dbTags := dbclient.GetBatchJobFieldTags()
	delta := map[string]interface{}{
		dbclient.GetFieldTag(dbTags, "StopTime"):        dbutils.NullTime(time.Now().UTC()),
		dbclient.GetFieldTag(dbTags, "LastPodResponse"): dbutils.NullString(cause.Error()),
	}
	if err = c.db.UpdateBatchJob(ctx, record.Id, delta); err != nil {
		klog.ErrorS(err, "failed to attach provisioning error", "id", record.Id)
	}
	return cause
}

// Teardown reclaims every cluster and object-store artifact of one record.
// All steps run unconditionally; NotFound results are swallowed inside the
// adapters and other errors are logged without aborting later steps.
func (c *Coordinator) Teardown(ctx context.Context, record *batchjob.BatchJob) {
	if err := c.cluster.DeleteJob(ctx, record.Name); err != nil {
		klog.ErrorS(err, "teardown: failed to delete job", "name", record.Name)
	}
	if err := c.cluster.DeleteJob(ctx, batchjob.CleanupJobName(record.Name)); err != nil {
		klog.ErrorS(err, "teardown: failed to delete cleanup job", "name", record.Name)
	}
	if record.HasInputFile {
		if err := c.cluster.DeletePvc(ctx, batchjob.InputPvcClaimName(record.Name)); err != nil {
			klog.ErrorS(err, "teardown: failed to delete input pvc", "name", record.Name)
		}
		if err := c.store.Delete(ctx, batchjob.InputObjectKey(record.Name)); err != nil {
			klog.ErrorS(err, "teardown: failed to delete input object", "name", record.Name)
		}
	}
	if err := c.cluster.DeletePvc(ctx, batchjob.OutputPvcClaimName(record.Name)); err != nil {
		klog.ErrorS(err, "teardown: failed to delete output pvc", "name", record.Name)
	}
	klog.Infof("teardown completed for batch job %s", record.Name)
}

// Cancel kills a running or cleaning record: deletes its Jobs, moves it to
// killed and reclaims its resources. Cluster failures propagate so the API
// can surface them; an illegal starting status is InvalidParameters.
func (c *Coordinator) Cancel(ctx context.Context, id string) (*dbclient.BatchJob, error) {
	row, err := c.db.GetBatchJob(ctx, id)
	if err != nil {
		return nil, err
	}
	status := batchjob.Status(row.Status)
	if status != batchjob.StatusRunning && status != batchjob.StatusCleaning {
		return nil, trerrors.NewInvalidParameters(
			"cannot cancel a batch job in status " + row.Status)
	}
	if err = c.cluster.DeleteJob(ctx, row.Name); err != nil {
		return nil, err
	}
	if status == batchjob.StatusCleaning {
		if err = c.cluster.DeleteJob(ctx, batchjob.CleanupJobName(row.Name)); err != nil {
			return nil, err
		}
	}
	won, err := c.db.CompareAndSetStatus(ctx, id, row.Status, string(batchjob.StatusKilled))
	if err != nil {
		return nil, err
	}
	if !won {
		row, err = c.db.GetBatchJob(ctx, id)
		if err != nil {
			return nil, err
		}
		return nil, trerrors.NewInvalidParameters(
			"cannot cancel a batch job in status " + row.Status)
	}
	dbTags := dbclient.GetBatchJobFieldTags()
	delta := map[string]interface{}{
		dbclient.GetFieldTag(dbTags, "StopTime"): dbutils.NullTime(time.Now().UTC()),
	}
	if err = c.db.UpdateBatchJob(ctx, id, delta); err != nil {
		klog.ErrorS(err, "failed to record stop time", "id", id)
	}

	record, err := row.ToDomain()
	if err != nil {
		return nil, err
	}
	c.Teardown(ctx, record)
	return c.db.GetBatchJob(ctx, id)
}
