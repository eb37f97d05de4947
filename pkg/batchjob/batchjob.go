/*
 * Copyright (c) 2025, The Kubernetes Task Runner Authors. All rights reserved.
 * See LICENSE for license information.
 */

package batchjob

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/kubernetes-task-runner/kubernetes-task-runner/pkg/utils/timeutil"
)

type Status string

const (
	StatusCreated   Status = "created"
	StatusRunning   Status = "running"
	StatusFailed    Status = "failed"
	StatusKilled    Status = "killed"
	StatusCleaning  Status = "cleaning"
	StatusSucceeded Status = "succeeded"
)

func (s Status) IsTerminal() bool {
	return s == StatusFailed || s == StatusKilled || s == StatusSucceeded
}

func IsValidStatus(value string) bool {
	switch Status(value) {
	case StatusCreated, StatusRunning, StatusFailed, StatusKilled, StatusCleaning, StatusSucceeded:
		return true
	}
	return false
}

type ResourceSpec struct {
	CPU    string `json:"cpu,omitempty"`
	Memory string `json:"memory,omitempty"`
}

type Resources struct {
	Limits   ResourceSpec `json:"limits,omitempty"`
	Requests ResourceSpec `json:"requests,omitempty"`
}

// Parameters is the client-supplied workload description. InputZip only lives
// on the create request and the dispatcher task; it is never persisted.
type Parameters struct {
	DockerImage          string            `json:"docker_image"`
	EnvironmentVariables map[string]string `json:"environment_variables,omitempty"`
	Resources            *Resources        `json:"resources,omitempty"`
	InputZip             string            `json:"input_zip,omitempty"`
}

type BatchJob struct {
	Id              string
	Name            string
	AccountId       string
	Parameters      Parameters
	HasInputFile    bool
	Status          Status
	CreateTime      time.Time
	StartTime       time.Time
	StopTime        time.Time
	OutputFileUrl   string
	LastPodResponse string
	SyncMisses      int
}

// Derived cluster and object-store names, all pure functions of Name.

func InputPvcClaimName(name string) string {
	return fmt.Sprintf("job-%s-input", name)
}

func OutputPvcClaimName(name string) string {
	return fmt.Sprintf("job-%s-output", name)
}

func CleanupJobName(name string) string {
	return fmt.Sprintf("%s-cleanup", name)
}

func InputObjectKey(name string) string {
	return fmt.Sprintf("%s-input.zip", name)
}

func OutputObjectKey(name string) string {
	return fmt.Sprintf("%s-output.zip", name)
}

// The longest derived name is job-<name>-output; keep generated names short
// enough that every derived name still fits a DNS-1123 label.
const maxNameLength = 52

var nonAlphanumeric = regexp.MustCompile(`[^a-z0-9]+`)

// GenerateName derives a cluster-unique name from the image reference and the
// creation instant, e.g. alpine-1466699283982.
func GenerateName(dockerImage string, createTime time.Time) string {
	slug := Slugify(dockerImage)
	suffix := fmt.Sprintf("%d", timeutil.CvtTimeToMilliSec(createTime))
	maxSlug := maxNameLength - len(suffix) - 1
	if len(slug) > maxSlug {
		slug = strings.Trim(slug[:maxSlug], "-")
	}
	if slug == "" {
		return suffix
	}
	return slug + "-" + suffix
}

// Slugify lowers the input and collapses every non-alphanumeric run into a
// single dash, matching the name scheme of the original records.
func Slugify(value string) string {
	slug := nonAlphanumeric.ReplaceAllString(strings.ToLower(value), "-")
	return strings.Trim(slug, "-")
}
