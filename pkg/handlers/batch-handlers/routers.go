/*
 * Copyright (c) 2025, The Kubernetes Task Runner Authors. All rights reserved.
 * See LICENSE for license information.
 */

package batch_handlers

import (
	"fmt"

	"github.com/gin-gonic/gin"
)

func InitBatchJobRouters(e *gin.Engine, h *Handler) {
	group := e.Group("/batch")
	{
		group.GET("/", h.ListBatchJobs)
		group.POST("/", h.CreateBatchJob)
		group.GET(fmt.Sprintf("/:%s", ParamId), h.GetBatchJob)
		group.DELETE(fmt.Sprintf("/:%s", ParamId), h.DeleteBatchJob)
	}
}
