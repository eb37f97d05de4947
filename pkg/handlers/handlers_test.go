/*
 * Copyright (c) 2025, The Kubernetes Task Runner Authors. All rights reserved.
 * See LICENSE for license information.
 */

package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"gotest.tools/assert"

	"github.com/kubernetes-task-runner/kubernetes-task-runner/pkg/apiutils"
	"github.com/kubernetes-task-runner/kubernetes-task-runner/pkg/dispatcher"
	batchhandlers "github.com/kubernetes-task-runner/kubernetes-task-runner/pkg/handlers/batch-handlers"
)

type idleHandler struct{}

func (idleHandler) Do(context.Context, string, []byte) (dispatcher.Result, error) {
	return dispatcher.Result{}, nil
}

func newTestEngine(t *testing.T, d *dispatcher.Dispatcher) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine, err := InitHttpHandlers(context.Background(), batchhandlers.NewHandler(nil, nil, d))
	assert.NilError(t, err)
	return engine
}

func TestHealthzReportsQueueDepth(t *testing.T) {
	d := dispatcher.NewDispatcher(idleHandler{}, 1)
	// never started, so the entries stay queued
	d.Add("id-1", nil)
	d.Add("id-2", nil)
	engine := newTestEngine(t, d)

	recorder := httptest.NewRecorder()
	engine.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, recorder.Code, http.StatusOK)

	var rsp apiutils.Response
	assert.NilError(t, json.Unmarshal(recorder.Body.Bytes(), &rsp))
	assert.Equal(t, rsp.Result, apiutils.ResultSuccess)
	data := rsp.Data.(map[string]interface{})
	assert.Equal(t, data["status"], "ok")
	assert.Equal(t, data["pending_provisions"], float64(2))
}

func TestUnknownRouteReturnsNotFound(t *testing.T) {
	engine := newTestEngine(t, dispatcher.NewDispatcher(idleHandler{}, 1))

	recorder := httptest.NewRecorder()
	engine.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, recorder.Code, http.StatusNotFound)

	var rsp apiutils.Response
	assert.NilError(t, json.Unmarshal(recorder.Body.Bytes(), &rsp))
	assert.Equal(t, rsp.Result, apiutils.ResultFailure)
}
