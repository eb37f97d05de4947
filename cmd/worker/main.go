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
	s, err := server.NewWorkerServer()
	if err != nil {
		klog.Fatalf("failed to create worker: %v", err)
	}
	s.Start()
}
