/*
 * Copyright (c) 2025, The Kubernetes Task Runner Authors. All rights reserved.
 * See LICENSE for license information.
 */

package klog

import (
	"flag"
	"strconv"
	"strings"

	"k8s.io/klog/v2"
)

// Init initializes the klog logging system with the specified log file path and
// maximum log file size. It sets up logging to both file and stderr, skips log
// headers, and parses the flags. The level string follows the original
// orchestrator's LOG_LEVEL values (DEBUG/INFO/WARNING/ERROR).
func Init(logfilePath string, logFileSize int, level string) error {
	klog.InitFlags(nil)
	flag.Set("log_file", logfilePath)
	flag.Set("alsologtostderr", "true")
	flag.Set("logtostderr", "false")
	flag.Set("skip_log_headers", "true")
	flag.Set("v", strconv.Itoa(verbosity(level)))
	if logFileSize != 0 {
		flag.Set("log_file_max_size", strconv.Itoa(logFileSize))
	}
	flag.Parse()
	return nil
}

func verbosity(level string) int {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return 4
	case "INFO":
		return 2
	default:
		return 0
	}
}
