/*
 * Copyright (c) 2025, The Kubernetes Task Runner Authors. All rights reserved.
 * See LICENSE for license information.
 */

package batch_handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kubernetes-task-runner/kubernetes-task-runner/pkg/apiutils"
	"github.com/kubernetes-task-runner/kubernetes-task-runner/pkg/coordinator"
	dbclient "github.com/kubernetes-task-runner/kubernetes-task-runner/pkg/database/client"
	"github.com/kubernetes-task-runner/kubernetes-task-runner/pkg/dispatcher"
	trerrors "github.com/kubernetes-task-runner/kubernetes-task-runner/pkg/errors"
	jsonutils "github.com/kubernetes-task-runner/kubernetes-task-runner/pkg/utils/jsonutils"
)

type Handler struct {
	dbClient    dbclient.Interface
	coordinator *coordinator.Coordinator
	dispatcher  *dispatcher.Dispatcher
}

func NewHandler(db dbclient.Interface, c *coordinator.Coordinator, d *dispatcher.Dispatcher) *Handler {
	return &Handler{
		dbClient:    db,
		coordinator: c,
		dispatcher:  d,
	}
}

// PendingProvisions reports how many records are waiting in the provisioning
// queue; the health endpoint exposes it.
func (h *Handler) PendingProvisions() int {
	return h.dispatcher.GetQueueSize()
}

type handleFunc func(*gin.Context) (interface{}, error)

func handle(c *gin.Context, fn handleFunc) {
	rsp, err := fn(c)
	if err != nil {
		apiutils.AbortWithApiError(c, err)
		return
	}
	code := http.StatusOK
	// If a status was previously set, use that status in the response.
	if c.Writer.Status() > 0 {
		code = c.Writer.Status()
	}
	c.JSON(code, apiutils.NewSuccessResponse(rsp))
}

func getBodyFromRequest(req *http.Request, bodyStruct interface{}) ([]byte, error) {
	body, err := apiutils.ReadBody(req)
	if err != nil {
		return nil, err
	}
	if len(body) == 0 {
		return nil, nil
	}
	if err = jsonutils.UnmarshalWithCheck(body, bodyStruct); err != nil {
		return body, trerrors.NewInvalidParameters(err.Error())
	}
	return body, nil
}
