/*
 * Copyright (c) 2025, The Kubernetes Task Runner Authors. All rights reserved.
 * See LICENSE for license information.
 */

package syncer

import (
	"context"
	"time"

	"k8s.io/apimachinery/pkg/util/wait"
	"k8s.io/klog/v2"

	"github.com/kubernetes-task-runner/kubernetes-task-runner/pkg/batchjob"
	"github.com/kubernetes-task-runner/kubernetes-task-runner/pkg/cluster"
	"github.com/kubernetes-task-runner/kubernetes-task-runner/pkg/config"
	"github.com/kubernetes-task-runner/kubernetes-task-runner/pkg/coordinator"
	dbclient "github.com/kubernetes-task-runner/kubernetes-task-runner/pkg/database/client"
	dbutils "github.com/kubernetes-task-runner/kubernetes-task-runner/pkg/database/utils"
	"github.com/kubernetes-task-runner/kubernetes-task-runner/pkg/gcs"
)

// A record whose Job is not observable yet is tolerated for this many
// consecutive ticks before it is failed, to absorb eventual consistency in
// the cluster API.
const graceTicks = 2

// Syncer is the periodic reconciler: it diffs cluster Job observations
// against the non-terminal database records and advances each record along
// the lifecycle graph. One goroutine, non-sliding ticks, so executions never
// overlap.
type Syncer struct {
	db          dbclient.Interface
	cluster     cluster.Interface
	store       gcs.Interface
	coordinator *coordinator.Coordinator
	interval    time.Duration
}

func NewSyncer(db dbclient.Interface, clusterClient cluster.Interface, store gcs.Interface, c *coordinator.Coordinator) *Syncer {
	return &Syncer{
		db:          db,
		cluster:     clusterClient,
		store:       store,
		coordinator: c,
		interval:    time.Duration(config.GetJobSynchronizationIntervalSecond()) * time.Second,
	}
}

func (s *Syncer) Run(ctx context.Context) {
	klog.Infof("starting syncer with interval %s", s.interval)
	wait.NonSlidingUntilWithContext(ctx, s.SyncOnce, s.interval)
}

// SyncOnce performs a single reconciliation tick. Observations are listed
// before the records are loaded: a Job provisioned for a record inserted
// after the listing is then absent from the snapshot and cannot be mistaken
// for an orphan.
func (s *Syncer) SyncOnce(ctx context.Context) {
	observations, err := s.cluster.ListJobObservations(ctx)
	if err != nil {
		klog.ErrorS(err, "failed to list cluster jobs")
		return
	}
	rows, err := s.db.SelectBatchJobsByStatus(ctx,
		string(batchjob.StatusCreated), string(batchjob.StatusRunning), string(batchjob.StatusCleaning))
	if err != nil {
		klog.ErrorS(err, "failed to load batch jobs")
		return
	}
	known := make(map[string]struct{}, 2*len(rows))
	for _, row := range rows {
		known[row.Name] = struct{}{}
		known[batchjob.CleanupJobName(row.Name)] = struct{}{}
	}
	for _, row := range rows {
		if err := s.syncRecord(ctx, row, observations); err != nil {
			klog.ErrorS(err, "failed to sync batch job", "id", row.Id, "name", row.Name)
		}
	}
	s.reapOrphans(ctx, known, observations)
}

// reapOrphans deletes managed Jobs whose record is terminal or gone. Such
// Jobs can appear when provisioning loses a race with the grace sweep; no
// record transition will ever reclaim them, so the syncer does.
func (s *Syncer) reapOrphans(ctx context.Context, known map[string]struct{}, observations map[string]cluster.Observation) {
	for name := range observations {
		if _, ok := known[name]; ok {
			continue
		}
		klog.Infof("deleting orphan job %s", name)
		if err := s.cluster.DeleteJob(ctx, name); err != nil {
			klog.ErrorS(err, "failed to delete orphan job", "name", name)
		}
	}
}

func (s *Syncer) syncRecord(ctx context.Context, row *dbclient.BatchJob, observations map[string]cluster.Observation) error {
	switch batchjob.Status(row.Status) {
	case batchjob.StatusCreated:
		return s.syncCreated(ctx, row, observations)
	case batchjob.StatusRunning:
		return s.syncRunning(ctx, row, observations)
	case batchjob.StatusCleaning:
		return s.syncCleaning(ctx, row, observations)
	}
	return nil
}

func (s *Syncer) syncCreated(ctx context.Context, row *dbclient.BatchJob, observations map[string]cluster.Observation) error {
	observation, found := observations[row.Name]
	if !found {
		return s.handleMiss(ctx, row)
	}
	if observation.HasFailed() {
		return s.fail(ctx, row, observation.CompletionTime)
	}
	// The job is on the cluster, active or already done: the record started.
	won, err := s.db.CompareAndSetStatus(ctx, row.Id,
		string(batchjob.StatusCreated), string(batchjob.StatusRunning))
	if err != nil || !won {
		return err
	}
	startTime := time.Now().UTC()
	if observation.StartTime != nil {
		startTime = *observation.StartTime
	}
	dbTags := dbclient.GetBatchJobFieldTags()
	return s.db.UpdateBatchJob(ctx, row.Id, map[string]interface{}{
		dbclient.GetFieldTag(dbTags, "StartTime"):  dbutils.NullTime(startTime),
		dbclient.GetFieldTag(dbTags, "SyncMisses"): 0,
	})
}

func (s *Syncer) syncRunning(ctx context.Context, row *dbclient.BatchJob, observations map[string]cluster.Observation) error {
	observation, found := observations[row.Name]
	if !found {
		return s.handleMiss(ctx, row)
	}
	if observation.HasFailed() {
		return s.fail(ctx, row, observation.CompletionTime)
	}
	if !observation.HasSucceeded() {
		return s.clearMisses(ctx, row)
	}
	// Winning running -> cleaning is the at-most-once guard for the cleanup
	// job launch.
	won, err := s.db.CompareAndSetStatus(ctx, row.Id,
		string(batchjob.StatusRunning), string(batchjob.StatusCleaning))
	if err != nil || !won {
		return err
	}
	stopTime := time.Now().UTC()
	if observation.CompletionTime != nil {
		stopTime = *observation.CompletionTime
	}
	dbTags := dbclient.GetBatchJobFieldTags()
	if err = s.db.UpdateBatchJob(ctx, row.Id, map[string]interface{}{
		dbclient.GetFieldTag(dbTags, "StopTime"):   dbutils.NullTime(stopTime),
		dbclient.GetFieldTag(dbTags, "SyncMisses"): 0,
	}); err != nil {
		return err
	}
	record, err := row.ToDomain()
	if err != nil {
		return err
	}
	if err = s.cluster.CreateCleanupJob(ctx, record); err != nil {
		// The record stays cleaning with no cleanup job; the grace window
		// will fail it if the cluster keeps rejecting the launch.
		klog.ErrorS(err, "failed to launch cleanup job", "name", row.Name)
	}
	return nil
}

func (s *Syncer) syncCleaning(ctx context.Context, row *dbclient.BatchJob, observations map[string]cluster.Observation) error {
	observation, found := observations[batchjob.CleanupJobName(row.Name)]
	if !found {
		return s.handleMiss(ctx, row)
	}
	if observation.HasFailed() {
		return s.fail(ctx, row, observation.CompletionTime)
	}
	if !observation.HasSucceeded() {
		return s.clearMisses(ctx, row)
	}
	url, err := s.store.SignedUrl(batchjob.OutputObjectKey(row.Name))
	if err != nil {
		// Retry on the next tick; succeeded records must carry their URL.
		return err
	}
	won, err := s.db.CompareAndSetStatus(ctx, row.Id,
		string(batchjob.StatusCleaning), string(batchjob.StatusSucceeded))
	if err != nil || !won {
		return err
	}
	dbTags := dbclient.GetBatchJobFieldTags()
	if err = s.db.UpdateBatchJob(ctx, row.Id, map[string]interface{}{
		dbclient.GetFieldTag(dbTags, "OutputFileUrl"): dbutils.NullString(url),
	}); err != nil {
		klog.ErrorS(err, "failed to record output url", "id", row.Id)
	}
	klog.Infof("batch job %s succeeded", row.Name)
	return s.teardown(ctx, row)
}

// handleMiss counts a tick during which the expected Job was not observable
// and fails the record once the grace window is exhausted.
func (s *Syncer) handleMiss(ctx context.Context, row *dbclient.BatchJob) error {
	misses := row.SyncMisses + 1
	if misses <= graceTicks {
		return s.db.SetSyncMisses(ctx, row.Id, misses)
	}
	klog.Infof("batch job %s (%s) unobservable for %d ticks, failing", row.Name, row.Status, misses)
	return s.fail(ctx, row, nil)
}

func (s *Syncer) clearMisses(ctx context.Context, row *dbclient.BatchJob) error {
	if row.SyncMisses == 0 {
		return nil
	}
	return s.db.SetSyncMisses(ctx, row.Id, 0)
}

func (s *Syncer) fail(ctx context.Context, row *dbclient.BatchJob, completionTime *time.Time) error {
	won, err := s.db.CompareAndSetStatus(ctx, row.Id, row.Status, string(batchjob.StatusFailed))
	if err != nil || !won {
		return err
	}
	stopTime := time.Now().UTC()
	if completionTime != nil {
		stopTime = *completionTime
	}
	dbTags := dbclient.GetBatchJobFieldTags()
	if err = s.db.UpdateBatchJob(ctx, row.Id, map[string]interface{}{
		dbclient.GetFieldTag(dbTags, "StopTime"): dbutils.NullTime(stopTime),
	}); err != nil {
		klog.ErrorS(err, "failed to record stop time", "id", row.Id)
	}
	klog.Infof("batch job %s failed (was %s)", row.Name, row.Status)
	return s.teardown(ctx, row)
}

func (s *Syncer) teardown(ctx context.Context, row *dbclient.BatchJob) error {
	record, err := row.ToDomain()
	if err != nil {
		return err
	}
	s.coordinator.Teardown(ctx, record)
	return nil
}
