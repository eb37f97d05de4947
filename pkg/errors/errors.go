/*
 * Copyright (c) 2025, The Kubernetes Task Runner Authors. All rights reserved.
 * See LICENSE for license information.
 */

package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

const TaskRunnerPrefix = "TaskRunner."

const (
	InternalError     = TaskRunnerPrefix + "InternalError"
	InvalidParameters = TaskRunnerPrefix + "InvalidParameters"
	ClusterError      = TaskRunnerPrefix + "ClusterError"
	StorageError      = TaskRunnerPrefix + "StorageError"
	DoesNotExist      = TaskRunnerPrefix + "DoesNotExist"
	AlreadyExist      = TaskRunnerPrefix + "AlreadyExist"
)

// returns true if the specified error carries a task-runner error code.
func IsTaskRunner(err error) bool {
	if err == nil {
		return false
	}
	return strings.HasPrefix(string(apierrors.ReasonForError(err)), TaskRunnerPrefix)
}

func IsInvalidParameters(err error) bool {
	return apierrors.ReasonForError(err) == InvalidParameters
}

func IsClusterError(err error) bool {
	return apierrors.ReasonForError(err) == ClusterError
}

func IsStorageError(err error) bool {
	return apierrors.ReasonForError(err) == StorageError
}

func IsDoesNotExist(err error) bool {
	return apierrors.ReasonForError(err) == DoesNotExist
}

func IsAlreadyExist(err error) bool {
	return apierrors.ReasonForError(err) == AlreadyExist
}

func IsInternal(err error) bool {
	return apierrors.ReasonForError(err) == InternalError
}

func IgnoreDoesNotExist(err error) error {
	if err == nil || IsDoesNotExist(err) {
		return nil
	}
	return err
}

func GetErrorCode(err error) string {
	if err == nil || !IsTaskRunner(err) {
		return ""
	}
	return string(apierrors.ReasonForError(err))
}

// ErrorName returns the error code without the task-runner prefix,
// which is the value carried in the API response envelope.
func ErrorName(err error) string {
	return strings.TrimPrefix(GetErrorCode(err), TaskRunnerPrefix)
}

func NewInvalidParameters(message string) *apierrors.StatusError {
	return &apierrors.StatusError{ErrStatus: metav1.Status{
		Status:  metav1.StatusFailure,
		Code:    http.StatusBadRequest,
		Reason:  InvalidParameters,
		Message: message,
	}}
}

// NewInvalidParametersWithFields attaches per-field validation messages as
// status causes so the API layer can render them back as a field map.
func NewInvalidParametersWithFields(fields map[string]string) *apierrors.StatusError {
	causes := make([]metav1.StatusCause, 0, len(fields))
	for field, message := range fields {
		causes = append(causes, metav1.StatusCause{
			Field:   field,
			Message: message,
		})
	}
	return &apierrors.StatusError{ErrStatus: metav1.Status{
		Status:  metav1.StatusFailure,
		Code:    http.StatusBadRequest,
		Reason:  InvalidParameters,
		Message: "Invalid parameters.",
		Details: &metav1.StatusDetails{
			Causes: causes,
		},
	}}
}

// FieldMessages extracts the per-field validation messages from an
// InvalidParameters error. Returns nil for any other error.
func FieldMessages(err error) map[string]string {
	if !IsInvalidParameters(err) {
		return nil
	}
	var statusErr *apierrors.StatusError
	if !errors.As(err, &statusErr) {
		return nil
	}
	details := statusErr.Status().Details
	if details == nil || len(details.Causes) == 0 {
		return nil
	}
	result := make(map[string]string, len(details.Causes))
	for _, cause := range details.Causes {
		result[cause.Field] = cause.Message
	}
	return result
}

func NewClusterError(message string) *apierrors.StatusError {
	return &apierrors.StatusError{ErrStatus: metav1.Status{
		Status:  metav1.StatusFailure,
		Code:    http.StatusInternalServerError,
		Reason:  ClusterError,
		Message: fmt.Sprintf("Cluster error. %s", message),
	}}
}

func NewStorageError(message string) *apierrors.StatusError {
	return &apierrors.StatusError{ErrStatus: metav1.Status{
		Status:  metav1.StatusFailure,
		Code:    http.StatusInternalServerError,
		Reason:  StorageError,
		Message: fmt.Sprintf("Storage error. %s", message),
	}}
}

func NewDoesNotExist(message string) *apierrors.StatusError {
	return &apierrors.StatusError{ErrStatus: metav1.Status{
		Status:  metav1.StatusFailure,
		Code:    http.StatusNotFound,
		Reason:  DoesNotExist,
		Message: message,
	}}
}

func NewAlreadyExist(message string) *apierrors.StatusError {
	return &apierrors.StatusError{ErrStatus: metav1.Status{
		Status:  metav1.StatusFailure,
		Code:    http.StatusConflict,
		Reason:  AlreadyExist,
		Message: message,
	}}
}

func NewInternalError(message string) *apierrors.StatusError {
	return &apierrors.StatusError{ErrStatus: metav1.Status{
		Status:  metav1.StatusFailure,
		Code:    http.StatusInternalServerError,
		Reason:  InternalError,
		Message: fmt.Sprintf("Internal error. %s", message),
	}}
}
