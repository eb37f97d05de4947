/*
 * Copyright (c) 2025, The Kubernetes Task Runner Authors. All rights reserved.
 * See LICENSE for license information.
 */

package apiutils

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"k8s.io/klog/v2"

	trerrors "github.com/kubernetes-task-runner/kubernetes-task-runner/pkg/errors"
)

const (
	DefaultMaxRequestBodyBytes = int64(64 * 1024 * 1024)
)

// ReadBody reads the HTTP request body with a size limit to prevent excessive
// memory consumption; input payloads arrive base64-encoded inside the body.
func ReadBody(req *http.Request) ([]byte, error) {
	defer req.Body.Close()
	lr := &io.LimitedReader{
		R: req.Body,
		N: DefaultMaxRequestBodyBytes + 1,
	}
	data, err := io.ReadAll(lr)
	if err != nil {
		return nil, trerrors.NewInternalError(err.Error())
	}
	if lr.N <= 0 {
		return nil, trerrors.NewInvalidParameters(
			fmt.Sprintf("the max request length is %d bytes", DefaultMaxRequestBodyBytes))
	}
	return data, nil
}

// Logger reports every request with its status, latency and any errors the
// handlers attached.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()
		c.Next()
		if len(c.Errors) > 0 {
			klog.Errorf("%s %s status=%d cost=%v errors=%s",
				c.Request.Method, c.Request.URL.Path, c.Writer.Status(),
				time.Since(startTime), c.Errors.String())
			return
		}
		klog.V(2).Infof("%s %s status=%d cost=%v",
			c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(startTime))
	}
}
