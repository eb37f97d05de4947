/*
 * Copyright (c) 2025, The Kubernetes Task Runner Authors. All rights reserved.
 * See LICENSE for license information.
 */

package apiutils

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"

	trerrors "github.com/kubernetes-task-runner/kubernetes-task-runner/pkg/errors"
)

type apiError struct {
	HttpCode int
	Code     string
	Message  string
	Fields   map[string]string
}

func AbortWithApiError(c *gin.Context, err error) {
	handleErrors(c, err)
	rsp := cvtToErrResponse(err)
	var data interface{}
	if len(rsp.Fields) > 0 {
		data = rsp.Fields
	}
	c.AbortWithStatusJSON(rsp.HttpCode, NewFailureResponse(rsp.Code, rsp.Message, data))
}

func cvtToErrResponse(err error) apiError {
	var statusErr *apierrors.StatusError
	if !errors.As(err, &statusErr) {
		switch {
		case apierrors.IsNotFound(err):
			statusErr = trerrors.NewDoesNotExist(err.Error())
		case apierrors.IsBadRequest(err), apierrors.IsInvalid(err):
			statusErr = trerrors.NewInvalidParameters(err.Error())
		case apierrors.IsAlreadyExists(err):
			statusErr = trerrors.NewAlreadyExist(err.Error())
		default:
			statusErr = trerrors.NewInternalError(err.Error())
		}
	}
	status := statusErr.Status()
	code := strings.TrimPrefix(string(status.Reason), trerrors.TaskRunnerPrefix)
	return apiError{
		HttpCode: int(status.Code),
		Code:     code,
		Message:  status.Message,
		Fields:   trerrors.FieldMessages(statusErr),
	}
}

// handleErrors attaches every error to the request context so the logger
// middleware can report it.
func handleErrors(c *gin.Context, err error) {
	var errs []error
	if aggregate, ok := err.(utilerrors.Aggregate); ok {
		errs = aggregate.Errors()
	} else {
		errs = []error{err}
	}
	for _, val := range errs {
		if val != nil {
			_ = c.Error(val)
		}
	}
}
