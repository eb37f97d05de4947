/*
 * Copyright (c) 2025, The Kubernetes Task Runner Authors. All rights reserved.
 * See LICENSE for license information.
 */

package client

import (
	"database/sql"
	"fmt"
	"reflect"
	"strings"

	"github.com/lib/pq"

	"github.com/kubernetes-task-runner/kubernetes-task-runner/pkg/batchjob"
	dbutils "github.com/kubernetes-task-runner/kubernetes-task-runner/pkg/database/utils"
	jsonutils "github.com/kubernetes-task-runner/kubernetes-task-runner/pkg/utils/jsonutils"
)

const (
	DESC = "desc"
	ASC  = "asc"

	CreateTime = "create_time"
)

type BatchJob struct {
	Id                   string         `db:"id"`
	Name                 string         `db:"name"`
	AccountId            string         `db:"account_id"`
	DockerImage          string         `db:"docker_image"`
	EnvironmentVariables sql.NullString `db:"environment_variables"`
	Resources            sql.NullString `db:"resources"`
	HasInputFile         bool           `db:"has_input_file"`
	Status               string         `db:"status"`
	CreateTime           pq.NullTime    `db:"create_time"`
	StartTime            pq.NullTime    `db:"start_time"`
	StopTime             pq.NullTime    `db:"stop_time"`
	OutputFileUrl        sql.NullString `db:"output_file_url"`
	LastPodResponse      sql.NullString `db:"last_pod_response"`
	SyncMisses           int            `db:"sync_misses"`
}

// GetBatchJobFieldTags returns the BatchJobFieldTags value.
func GetBatchJobFieldTags() map[string]string {
	b := BatchJob{}
	return getFieldTags(b)
}

// ToDomain converts a persisted row into the domain record.
func (b *BatchJob) ToDomain() (*batchjob.BatchJob, error) {
	record := &batchjob.BatchJob{
		Id:        b.Id,
		Name:      b.Name,
		AccountId: b.AccountId,
		Parameters: batchjob.Parameters{
			DockerImage: b.DockerImage,
		},
		HasInputFile:    b.HasInputFile,
		Status:          batchjob.Status(b.Status),
		CreateTime:      dbutils.ParseNullTime(b.CreateTime),
		StartTime:       dbutils.ParseNullTime(b.StartTime),
		StopTime:        dbutils.ParseNullTime(b.StopTime),
		OutputFileUrl:   dbutils.ParseNullString(b.OutputFileUrl),
		LastPodResponse: dbutils.ParseNullString(b.LastPodResponse),
		SyncMisses:      b.SyncMisses,
	}
	if env := dbutils.ParseNullString(b.EnvironmentVariables); env != "" {
		if err := jsonutils.Unmarshal([]byte(env), &record.Parameters.EnvironmentVariables); err != nil {
			return nil, fmt.Errorf("corrupt environment_variables of job %s: %v", b.Id, err)
		}
	}
	if res := dbutils.ParseNullString(b.Resources); res != "" {
		record.Parameters.Resources = &batchjob.Resources{}
		if err := jsonutils.Unmarshal([]byte(res), record.Parameters.Resources); err != nil {
			return nil, fmt.Errorf("corrupt resources of job %s: %v", b.Id, err)
		}
	}
	return record, nil
}

// FromDomain converts a domain record into its row form. The input payload is
// deliberately not part of the row.
func FromDomain(record *batchjob.BatchJob) *BatchJob {
	row := &BatchJob{
		Id:              record.Id,
		Name:            record.Name,
		AccountId:       record.AccountId,
		DockerImage:     record.Parameters.DockerImage,
		HasInputFile:    record.HasInputFile,
		Status:          string(record.Status),
		CreateTime:      dbutils.NullTime(record.CreateTime),
		StartTime:       dbutils.NullTime(record.StartTime),
		StopTime:        dbutils.NullTime(record.StopTime),
		OutputFileUrl:   dbutils.NullString(record.OutputFileUrl),
		LastPodResponse: dbutils.NullString(record.LastPodResponse),
		SyncMisses:      record.SyncMisses,
	}
	if len(record.Parameters.EnvironmentVariables) > 0 {
		row.EnvironmentVariables = dbutils.NullString(
			string(jsonutils.MarshalSilently(record.Parameters.EnvironmentVariables)))
	}
	if record.Parameters.Resources != nil {
		row.Resources = dbutils.NullString(
			string(jsonutils.MarshalSilently(record.Parameters.Resources)))
	}
	return row
}

// getFieldTags retrieves FieldTags for internal use.
func getFieldTags(obj interface{}) map[string]string {
	result := make(map[string]string)
	t := reflect.TypeOf(obj)
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		result[strings.ToLower(field.Name)] = field.Tag.Get("db")
	}
	return result
}

// generateCommand generates SQL command string using reflection
// Iterates through struct fields and builds column and value lists
// Skips fields with specified ignoreTag
// Returns formatted SQL command with columns and values
func generateCommand(obj interface{}, format, ignoreTag string) string {
	t := reflect.TypeOf(obj)
	columns := make([]string, 0, t.NumField())
	values := make([]string, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("db")
		if tag == ignoreTag {
			continue
		}
		columns = append(columns, tag)
		values = append(values, fmt.Sprintf(":%s", tag))
	}
	cmd := fmt.Sprintf(format, strings.Join(columns, ", "), strings.Join(values, ", "))
	return cmd
}

// GetFieldTag returns the FieldTag value.
func GetFieldTag(tags map[string]string, name string) string {
	name = strings.ToLower(name)
	return tags[name]
}
