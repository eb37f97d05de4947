/*
 * Copyright (c) 2025, The Kubernetes Task Runner Authors. All rights reserved.
 * See LICENSE for license information.
 */

package errors

import (
	"errors"
	"net/http"
	"testing"

	"gotest.tools/assert"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/runtime/schema"
)

func TestErrorPredicates(t *testing.T) {
	assert.Assert(t, IsInvalidParameters(NewInvalidParameters("bad")))
	assert.Assert(t, IsClusterError(NewClusterError("boom")))
	assert.Assert(t, IsStorageError(NewStorageError("boom")))
	assert.Assert(t, IsDoesNotExist(NewDoesNotExist("missing")))
	assert.Assert(t, IsAlreadyExist(NewAlreadyExist("dup")))
	assert.Assert(t, IsInternal(NewInternalError("boom")))

	assert.Assert(t, !IsClusterError(NewStorageError("boom")))
	assert.Assert(t, !IsDoesNotExist(errors.New("plain")))
	assert.Assert(t, !IsDoesNotExist(nil))
}

func TestIsTaskRunner(t *testing.T) {
	assert.Assert(t, IsTaskRunner(NewClusterError("boom")))
	assert.Assert(t, !IsTaskRunner(apierrors.NewNotFound(schema.GroupResource{Resource: "pods"}, "x")))
	assert.Assert(t, !IsTaskRunner(errors.New("plain")))
}

func TestStatusCodes(t *testing.T) {
	assert.Equal(t, int(NewInvalidParameters("bad").Status().Code), http.StatusBadRequest)
	assert.Equal(t, int(NewClusterError("boom").Status().Code), http.StatusInternalServerError)
	assert.Equal(t, int(NewStorageError("boom").Status().Code), http.StatusInternalServerError)
	assert.Equal(t, int(NewDoesNotExist("missing").Status().Code), http.StatusNotFound)
	assert.Equal(t, int(NewAlreadyExist("dup").Status().Code), http.StatusConflict)
}

func TestErrorName(t *testing.T) {
	assert.Equal(t, ErrorName(NewInvalidParameters("bad")), "InvalidParameters")
	assert.Equal(t, ErrorName(NewClusterError("boom")), "ClusterError")
	assert.Equal(t, ErrorName(errors.New("plain")), "")
}

func TestIgnoreDoesNotExist(t *testing.T) {
	assert.NilError(t, IgnoreDoesNotExist(nil))
	assert.NilError(t, IgnoreDoesNotExist(NewDoesNotExist("missing")))
	assert.Assert(t, IgnoreDoesNotExist(NewClusterError("boom")) != nil)
}

func TestFieldMessages(t *testing.T) {
	err := NewInvalidParametersWithFields(map[string]string{
		"docker_image": "Field is required",
		"account_id":   "Field is required",
	})
	fields := FieldMessages(err)
	assert.Equal(t, len(fields), 2)
	assert.Equal(t, fields["docker_image"], "Field is required")
	assert.Equal(t, fields["account_id"], "Field is required")

	assert.Assert(t, FieldMessages(NewInvalidParameters("bad")) == nil)
	assert.Assert(t, FieldMessages(NewClusterError("boom")) == nil)
	assert.Assert(t, FieldMessages(nil) == nil)
}
