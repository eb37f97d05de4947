/*
 * Copyright (c) 2025, The Kubernetes Task Runner Authors. All rights reserved.
 * See LICENSE for license information.
 */

package batch_handlers

import (
	dbclient "github.com/kubernetes-task-runner/kubernetes-task-runner/pkg/database/client"
	dbutils "github.com/kubernetes-task-runner/kubernetes-task-runner/pkg/database/utils"
	jsonutils "github.com/kubernetes-task-runner/kubernetes-task-runner/pkg/utils/jsonutils"
	"github.com/kubernetes-task-runner/kubernetes-task-runner/pkg/utils/timeutil"

	"github.com/kubernetes-task-runner/kubernetes-task-runner/pkg/batchjob"
)

const (
	ParamId = "id"
)

type CreateBatchJobRequest struct {
	Name          string              `json:"name"`
	AccountId     string              `json:"account_id"`
	JobParameters batchjob.Parameters `json:"job_parameters"`
}

type JobParametersResponse struct {
	DockerImage          string              `json:"docker_image"`
	EnvironmentVariables map[string]string   `json:"environment_variables,omitempty"`
	Resources            *batchjob.Resources `json:"resources,omitempty"`
}

// BatchJobResponse is the wire form of a record; timestamps are epoch
// milliseconds.
type BatchJobResponse struct {
	Id              string                `json:"id"`
	Name            string                `json:"name"`
	AccountId       string                `json:"account_id"`
	JobParameters   JobParametersResponse `json:"job_parameters"`
	HasInputFile    bool                  `json:"has_input_file"`
	Status          string                `json:"status"`
	Created         int64                 `json:"created"`
	StartTime       int64                 `json:"start_time,omitempty"`
	StopTime        int64                 `json:"stop_time,omitempty"`
	OutputFileUrl   string                `json:"output_file_url,omitempty"`
	LastPodResponse string                `json:"last_pod_response,omitempty"`
}

func cvtToBatchJobResponse(row *dbclient.BatchJob) *BatchJobResponse {
	rsp := &BatchJobResponse{
		Id:        row.Id,
		Name:      row.Name,
		AccountId: row.AccountId,
		JobParameters: JobParametersResponse{
			DockerImage: row.DockerImage,
		},
		HasInputFile:    row.HasInputFile,
		Status:          row.Status,
		Created:         timeutil.CvtTimeToMilliSec(dbutils.ParseNullTime(row.CreateTime)),
		StartTime:       timeutil.CvtTimeToMilliSec(dbutils.ParseNullTime(row.StartTime)),
		StopTime:        timeutil.CvtTimeToMilliSec(dbutils.ParseNullTime(row.StopTime)),
		OutputFileUrl:   dbutils.ParseNullString(row.OutputFileUrl),
		LastPodResponse: dbutils.ParseNullString(row.LastPodResponse),
	}
	if env := dbutils.ParseNullString(row.EnvironmentVariables); env != "" {
		_ = jsonutils.Unmarshal([]byte(env), &rsp.JobParameters.EnvironmentVariables)
	}
	if res := dbutils.ParseNullString(row.Resources); res != "" {
		rsp.JobParameters.Resources = &batchjob.Resources{}
		_ = jsonutils.Unmarshal([]byte(res), rsp.JobParameters.Resources)
	}
	return rsp
}

func cvtToBatchJobResponses(rows []*dbclient.BatchJob) []*BatchJobResponse {
	result := make([]*BatchJobResponse, 0, len(rows))
	for _, row := range rows {
		result = append(result, cvtToBatchJobResponse(row))
	}
	return result
}
