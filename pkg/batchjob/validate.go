/*
 * Copyright (c) 2025, The Kubernetes Task Runner Authors. All rights reserved.
 * See LICENSE for license information.
 */

package batchjob

import (
	"encoding/base64"
	"fmt"
	"regexp"

	"k8s.io/apimachinery/pkg/api/resource"
	"k8s.io/apimachinery/pkg/util/validation"
)

const (
	fieldRequiredMessage = "Field is required"
)

var (
	// image references: registry/repository[:tag][@digest]
	imagePattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._/:@-]*$`)
	// environment variable names follow the C identifier rule
	envNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

// Validate checks a create request and returns one message per offending
// field. Every string that later reaches a manifest is constrained here, so
// the manifest builders never see an unsafe value.
func Validate(name, accountId string, params Parameters) map[string]string {
	fields := map[string]string{}
	if accountId == "" {
		fields["account_id"] = fieldRequiredMessage
	}
	if params.DockerImage == "" {
		fields["docker_image"] = fieldRequiredMessage
	} else if !imagePattern.MatchString(params.DockerImage) {
		fields["docker_image"] = "Value contains illegal characters"
	}
	if name != "" {
		if msgs := validation.IsDNS1123Label(name); len(msgs) > 0 {
			fields["name"] = msgs[0]
		} else if len(name) > maxNameLength {
			fields["name"] = fmt.Sprintf("Value must be at most %d characters", maxNameLength)
		}
	}
	for envName := range params.EnvironmentVariables {
		if !envNamePattern.MatchString(envName) {
			fields["environment_variables"] = fmt.Sprintf("Illegal variable name %q", envName)
			break
		}
	}
	if params.Resources != nil {
		validateResourceSpec("resources.limits", params.Resources.Limits, fields)
		validateResourceSpec("resources.requests", params.Resources.Requests, fields)
	}
	if params.InputZip != "" {
		if _, err := base64.StdEncoding.DecodeString(params.InputZip); err != nil {
			fields["input_zip"] = "Value is not valid base64"
		}
	}
	if len(fields) == 0 {
		return nil
	}
	return fields
}

func validateResourceSpec(prefix string, spec ResourceSpec, fields map[string]string) {
	if spec.CPU != "" {
		if _, err := resource.ParseQuantity(spec.CPU); err != nil {
			fields[prefix+".cpu"] = "Value is not a valid quantity"
		}
	}
	if spec.Memory != "" {
		if _, err := resource.ParseQuantity(spec.Memory); err != nil {
			fields[prefix+".memory"] = "Value is not a valid quantity"
		}
	}
}

// DecodeInputZip returns the raw payload bytes of a validated request.
func DecodeInputZip(params Parameters) ([]byte, error) {
	if params.InputZip == "" {
		return nil, nil
	}
	return base64.StdEncoding.DecodeString(params.InputZip)
}
