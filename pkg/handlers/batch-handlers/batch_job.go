/*
 * Copyright (c) 2025, The Kubernetes Task Runner Authors. All rights reserved.
 * See LICENSE for license information.
 */

package batch_handlers

import (
	"time"

	sqrl "github.com/Masterminds/squirrel"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/kubernetes-task-runner/kubernetes-task-runner/pkg/batchjob"
	dbclient "github.com/kubernetes-task-runner/kubernetes-task-runner/pkg/database/client"
	trerrors "github.com/kubernetes-task-runner/kubernetes-task-runner/pkg/errors"
)

func (h *Handler) CreateBatchJob(c *gin.Context) {
	handle(c, h.createBatchJob)
}

func (h *Handler) ListBatchJobs(c *gin.Context) {
	handle(c, h.listBatchJobs)
}

func (h *Handler) GetBatchJob(c *gin.Context) {
	handle(c, h.getBatchJob)
}

func (h *Handler) DeleteBatchJob(c *gin.Context) {
	handle(c, h.deleteBatchJob)
}

// createBatchJob validates the request, persists the record in status created
// and hands the provisioning work to the dispatcher. The response carries the
// inserted record; provisioning failures surface later as status=failed with
// the cluster response attached.
func (h *Handler) createBatchJob(c *gin.Context) (interface{}, error) {
	request := &CreateBatchJobRequest{}
	if _, err := getBodyFromRequest(c.Request, request); err != nil {
		return nil, err
	}
	if fields := batchjob.Validate(request.Name, request.AccountId, request.JobParameters); fields != nil {
		return nil, trerrors.NewInvalidParametersWithFields(fields)
	}

	createTime := time.Now().UTC()
	name := request.Name
	if name == "" {
		name = batchjob.GenerateName(request.JobParameters.DockerImage, createTime)
	}
	input, err := batchjob.DecodeInputZip(request.JobParameters)
	if err != nil {
		return nil, trerrors.NewInvalidParametersWithFields(
			map[string]string{"input_zip": "Value is not valid base64"})
	}
	record := &batchjob.BatchJob{
		Id:        uuid.NewString(),
		Name:      name,
		AccountId: request.AccountId,
		Parameters: batchjob.Parameters{
			DockerImage:          request.JobParameters.DockerImage,
			EnvironmentVariables: request.JobParameters.EnvironmentVariables,
			Resources:            request.JobParameters.Resources,
		},
		HasInputFile: len(input) > 0,
		Status:       batchjob.StatusCreated,
		CreateTime:   createTime,
	}
	ctx := c.Request.Context()
	if err = h.dbClient.InsertBatchJob(ctx, dbclient.FromDomain(record)); err != nil {
		if trerrors.IsAlreadyExist(err) {
			return nil, trerrors.NewInvalidParametersWithFields(
				map[string]string{"name": "A batch job with this name already exists"})
		}
		return nil, err
	}
	h.dispatcher.Add(record.Id, input)

	row, err := h.dbClient.GetBatchJob(ctx, record.Id)
	if err != nil {
		return nil, err
	}
	return cvtToBatchJobResponse(row), nil
}

// listBatchJobs returns the records in one status, newest first. Listing
// defaults to the running set.
func (h *Handler) listBatchJobs(c *gin.Context) (interface{}, error) {
	status := c.DefaultQuery("status", string(batchjob.StatusRunning))
	if !batchjob.IsValidStatus(status) {
		return nil, trerrors.NewInvalidParametersWithFields(
			map[string]string{"status": "Value is not a valid status"})
	}
	dbTags := dbclient.GetBatchJobFieldTags()
	query := sqrl.Eq{dbclient.GetFieldTag(dbTags, "Status"): status}
	orderBy := []string{dbclient.CreateTime + " " + dbclient.DESC}
	rows, err := h.dbClient.SelectBatchJobs(c.Request.Context(), query, orderBy, -1, 0)
	if err != nil {
		return nil, err
	}
	return cvtToBatchJobResponses(rows), nil
}

func (h *Handler) getBatchJob(c *gin.Context) (interface{}, error) {
	id := c.Param(ParamId)
	if id == "" {
		return nil, trerrors.NewInvalidParameters("the batch job id is empty")
	}
	row, err := h.dbClient.GetBatchJob(c.Request.Context(), id)
	if err != nil {
		return nil, err
	}
	return cvtToBatchJobResponse(row), nil
}

// deleteBatchJob runs the cancellation protocol synchronously; cluster
// failures propagate as ClusterError with the raw response.
func (h *Handler) deleteBatchJob(c *gin.Context) (interface{}, error) {
	id := c.Param(ParamId)
	if id == "" {
		return nil, trerrors.NewInvalidParameters("the batch job id is empty")
	}
	row, err := h.coordinator.Cancel(c.Request.Context(), id)
	if err != nil {
		return nil, err
	}
	return cvtToBatchJobResponse(row), nil
}
