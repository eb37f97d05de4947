/*
 * Copyright (c) 2025, The Kubernetes Task Runner Authors. All rights reserved.
 * See LICENSE for license information.
 */

package main

import (
	"k8s.io/klog/v2"

	"github.com/kubernetes-task-runner/kubernetes-task-runner/pkg/server"
)

func main() {
	s, err := server.NewApiServer()
	if err != nil {
		klog.Fatalf("failed to create api-server: %v", err)
	}
	s.Start()
}
