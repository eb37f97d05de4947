/*
 * Copyright (c) 2025, The Kubernetes Task Runner Authors. All rights reserved.
 * See LICENSE for license information.
 */

package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	sqrl "github.com/Masterminds/squirrel"
	"github.com/lib/pq"
	"k8s.io/klog/v2"

	dbutils "github.com/kubernetes-task-runner/kubernetes-task-runner/pkg/database/utils"
	trerrors "github.com/kubernetes-task-runner/kubernetes-task-runner/pkg/errors"
)

const (
	TBatchJob = "batch_job"

	// postgres unique_violation
	pqUniqueViolation = "23505"
)

var (
	insertBatchJobFormat = `INSERT INTO ` + TBatchJob + ` (%s) VALUES (%s)`
)

func (c *Client) InsertBatchJob(ctx context.Context, job *BatchJob) error {
	if job == nil {
		return nil
	}
	db, err := c.getDB()
	if err != nil {
		return err
	}
	cmd := generateCommand(*job, insertBatchJobFormat, "")
	if _, err = db.NamedExecContext(ctx, cmd, job); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
			return trerrors.NewAlreadyExist(fmt.Sprintf("the batch job name %s already exists", job.Name))
		}
		klog.ErrorS(err, "failed to insert batch job", "id", job.Id)
		return err
	}
	return nil
}

func (c *Client) SelectBatchJobs(ctx context.Context, query sqrl.Sqlizer, orderBy []string, limit, offset int) ([]*BatchJob, error) {
	startTime := time.Now().UTC()
	defer func() {
		if query != nil {
			if strQuery, args, err := query.ToSql(); err == nil {
				klog.V(2).Infof("select batch jobs, where: %s, args: %v, cost (%v)", strQuery, args, time.Since(startTime))
				return
			}
		}
	}()

	db, err := c.getDB()
	if err != nil {
		return nil, err
	}
	if limit < 0 {
		if limit, err = c.CountBatchJobs(ctx, query); err != nil {
			return nil, err
		}
	}
	if offset < 0 {
		offset = 0
	}
	sql, args, err := sqrl.Select("*").PlaceholderFormat(sqrl.Dollar).
		From(TBatchJob).
		Where(query).
		OrderBy(orderBy...).
		Limit(uint64(limit)).
		Offset(uint64(offset)).ToSql()
	if err != nil {
		return nil, err
	}

	var jobs []*BatchJob
	if c.RequestTimeout > 0 {
		ctx2, cancel := context.WithTimeout(ctx, c.RequestTimeout)
		defer cancel()
		err = db.SelectContext(ctx2, &jobs, sql, args...)
	} else {
		err = db.SelectContext(ctx, &jobs, sql, args...)
	}
	return jobs, err
}

func (c *Client) SelectBatchJobsByStatus(ctx context.Context, statuses ...string) ([]*BatchJob, error) {
	dbTags := GetBatchJobFieldTags()
	query := sqrl.Eq{GetFieldTag(dbTags, "Status"): statuses}
	return c.SelectBatchJobs(ctx, query, []string{CreateTime + " " + ASC}, -1, 0)
}

func (c *Client) CountBatchJobs(ctx context.Context, query sqrl.Sqlizer) (int, error) {
	db, err := c.getDB()
	if err != nil {
		return 0, err
	}
	sql, args, err := sqrl.Select("COUNT(*)").PlaceholderFormat(sqrl.Dollar).From(TBatchJob).Where(query).ToSql()
	if err != nil {
		return 0, err
	}
	var cnt int
	err = db.GetContext(ctx, &cnt, sql, args...)
	return cnt, err
}

func (c *Client) GetBatchJob(ctx context.Context, id string) (*BatchJob, error) {
	dbTags := GetBatchJobFieldTags()
	dbSql := sqrl.Eq{GetFieldTag(dbTags, "Id"): id}
	jobs, err := c.SelectBatchJobs(ctx, dbSql, nil, 1, 0)
	if err != nil {
		klog.ErrorS(err, "failed to select batch job", "sql", dbutils.CvtToSqlStr(dbSql))
		return nil, err
	}
	if len(jobs) == 0 {
		return nil, trerrors.NewDoesNotExist(fmt.Sprintf("batch job %s does not exist", id))
	}
	return jobs[0], nil
}

// UpdateBatchJob applies a partial column update. Status is excluded on
// purpose: status moves only through CompareAndSetStatus.
func (c *Client) UpdateBatchJob(ctx context.Context, id string, delta map[string]interface{}) error {
	if len(delta) == 0 {
		return nil
	}
	db, err := c.getDB()
	if err != nil {
		return err
	}
	dbTags := GetBatchJobFieldTags()
	if _, ok := delta[GetFieldTag(dbTags, "Status")]; ok {
		return trerrors.NewInternalError("status updates must use CompareAndSetStatus")
	}
	sql, args, err := sqrl.Update(TBatchJob).PlaceholderFormat(sqrl.Dollar).
		SetMap(delta).
		Where(sqrl.Eq{GetFieldTag(dbTags, "Id"): id}).ToSql()
	if err != nil {
		return err
	}
	if _, err = db.ExecContext(ctx, sql, args...); err != nil {
		klog.ErrorS(err, "failed to update batch job", "id", id)
		return err
	}
	return nil
}

// CompareAndSetStatus transitions a record from one status to another and
// reports whether this caller won the transition. The row count of the guarded
// UPDATE serializes the submitter, the cancel endpoint and the reconciler.
func (c *Client) CompareAndSetStatus(ctx context.Context, id, from, to string) (bool, error) {
	db, err := c.getDB()
	if err != nil {
		return false, err
	}
	cmd := fmt.Sprintf(`UPDATE %s SET status=$3 WHERE id=$1 AND status=$2`, TBatchJob)
	result, err := db.ExecContext(ctx, cmd, id, from, to)
	if err != nil {
		klog.ErrorS(err, "failed to compare-and-set status", "id", id, "from", from, "to", to)
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

func (c *Client) SetSyncMisses(ctx context.Context, id string, misses int) error {
	db, err := c.getDB()
	if err != nil {
		return err
	}
	cmd := fmt.Sprintf(`UPDATE %s SET sync_misses=$2 WHERE id=$1`, TBatchJob)
	if _, err = db.ExecContext(ctx, cmd, id, misses); err != nil {
		klog.ErrorS(err, "failed to update sync misses", "id", id)
		return err
	}
	return nil
}
