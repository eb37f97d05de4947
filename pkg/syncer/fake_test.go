/*
 * Copyright (c) 2025, The Kubernetes Task Runner Authors. All rights reserved.
 * See LICENSE for license information.
 */

package syncer

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	sqrl "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"github.com/kubernetes-task-runner/kubernetes-task-runner/pkg/batchjob"
	"github.com/kubernetes-task-runner/kubernetes-task-runner/pkg/cluster"
	dbclient "github.com/kubernetes-task-runner/kubernetes-task-runner/pkg/database/client"
	trerrors "github.com/kubernetes-task-runner/kubernetes-task-runner/pkg/errors"
)

type fakeDB struct {
	mu   sync.Mutex
	rows map[string]*dbclient.BatchJob
}

func newFakeDB(rows ...*dbclient.BatchJob) *fakeDB {
	db := &fakeDB{rows: make(map[string]*dbclient.BatchJob)}
	for _, row := range rows {
		copied := *row
		db.rows[row.Id] = &copied
	}
	return db
}

func (f *fakeDB) InsertBatchJob(ctx context.Context, job *dbclient.BatchJob) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *job
	f.rows[job.Id] = &copied
	return nil
}

func (f *fakeDB) GetBatchJob(ctx context.Context, id string) (*dbclient.BatchJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[id]
	if !ok {
		return nil, trerrors.NewDoesNotExist(fmt.Sprintf("batch job %s does not exist", id))
	}
	copied := *row
	return &copied, nil
}

func (f *fakeDB) SelectBatchJobs(ctx context.Context, query sqrl.Sqlizer, orderBy []string, limit, offset int) ([]*dbclient.BatchJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	result := make([]*dbclient.BatchJob, 0, len(f.rows))
	for _, row := range f.rows {
		copied := *row
		result = append(result, &copied)
	}
	return result, nil
}

func (f *fakeDB) SelectBatchJobsByStatus(ctx context.Context, statuses ...string) ([]*dbclient.BatchJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []*dbclient.BatchJob
	for _, row := range f.rows {
		for _, status := range statuses {
			if row.Status == status {
				copied := *row
				result = append(result, &copied)
				break
			}
		}
	}
	return result, nil
}

func (f *fakeDB) CountBatchJobs(ctx context.Context, query sqrl.Sqlizer) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rows), nil
}

func (f *fakeDB) UpdateBatchJob(ctx context.Context, id string, delta map[string]interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[id]
	if !ok {
		return nil
	}
	for column, value := range delta {
		switch column {
		case "start_time":
			row.StartTime = value.(pq.NullTime)
		case "stop_time":
			row.StopTime = value.(pq.NullTime)
		case "output_file_url":
			row.OutputFileUrl = value.(sql.NullString)
		case "last_pod_response":
			row.LastPodResponse = value.(sql.NullString)
		case "sync_misses":
			row.SyncMisses = value.(int)
		}
	}
	return nil
}

func (f *fakeDB) CompareAndSetStatus(ctx context.Context, id, from, to string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[id]
	if !ok || row.Status != from {
		return false, nil
	}
	row.Status = to
	return true, nil
}

func (f *fakeDB) SetSyncMisses(ctx context.Context, id string, misses int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if row, ok := f.rows[id]; ok {
		row.SyncMisses = misses
	}
	return nil
}

func (f *fakeDB) row(id string) dbclient.BatchJob {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.rows[id]
}

type fakeCluster struct {
	mu    sync.Mutex
	calls []string

	observations     map[string]cluster.Observation
	listErr          error
	createCleanupErr error
}

func newFakeCluster() *fakeCluster {
	return &fakeCluster{observations: make(map[string]cluster.Observation)}
}

func (f *fakeCluster) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeCluster) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeCluster) EnsureSecret(ctx context.Context) error {
	f.record("ensure-secret")
	return nil
}

func (f *fakeCluster) CreatePvc(ctx context.Context, name string) error {
	f.record("create-pvc " + name)
	return nil
}

func (f *fakeCluster) DeletePvc(ctx context.Context, name string) error {
	f.record("delete-pvc " + name)
	return nil
}

func (f *fakeCluster) CreateJob(ctx context.Context, record *batchjob.BatchJob) error {
	f.record("create-job " + record.Name)
	return nil
}

func (f *fakeCluster) CreateCleanupJob(ctx context.Context, record *batchjob.BatchJob) error {
	f.record("create-cleanup-job " + record.Name)
	return f.createCleanupErr
}

func (f *fakeCluster) DeleteJob(ctx context.Context, name string) error {
	f.record("delete-job " + name)
	return nil
}

func (f *fakeCluster) ListJobObservations(ctx context.Context) (map[string]cluster.Observation, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	result := make(map[string]cluster.Observation, len(f.observations))
	for name, observation := range f.observations {
		result[name] = observation
	}
	return result, nil
}

type fakeStore struct {
	mu      sync.Mutex
	calls   []string
	signErr error
	url     string
}

func newFakeStore() *fakeStore {
	return &fakeStore{url: "https://storage.example.com/signed"}
}

func (f *fakeStore) Upload(ctx context.Context, key string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "upload "+key)
	return nil
}

func (f *fakeStore) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "delete "+key)
	return nil
}

func (f *fakeStore) SignedUrl(key string) (string, error) {
	if f.signErr != nil {
		return "", f.signErr
	}
	return f.url + "/" + key, nil
}
