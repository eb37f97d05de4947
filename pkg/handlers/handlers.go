/*
 * Copyright (c) 2025, The Kubernetes Task Runner Authors. All rights reserved.
 * See LICENSE for license information.
 */

package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kubernetes-task-runner/kubernetes-task-runner/pkg/apiutils"
	trerrors "github.com/kubernetes-task-runner/kubernetes-task-runner/pkg/errors"
	batchhandlers "github.com/kubernetes-task-runner/kubernetes-task-runner/pkg/handlers/batch-handlers"
)

// InitHttpHandlers initializes the HTTP handlers for the API server: a new
// gin engine with logging and recovery middleware, the batch job routes and a
// health endpoint.
func InitHttpHandlers(_ context.Context, h *batchhandlers.Handler) (*gin.Engine, error) {
	engine := gin.New()
	engine.Use(apiutils.Logger(), gin.Recovery())
	engine.NoRoute(func(c *gin.Context) {
		apiutils.AbortWithApiError(c, trerrors.NewDoesNotExist(c.Request.RequestURI+" not found"))
	})
	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, apiutils.NewSuccessResponse(gin.H{
			"status":             "ok",
			"pending_provisions": h.PendingProvisions(),
		}))
	})
	batchhandlers.InitBatchJobRouters(engine, h)
	return engine, nil
}
