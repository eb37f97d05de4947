/*
 * Copyright (c) 2025, The Kubernetes Task Runner Authors. All rights reserved.
 * See LICENSE for license information.
 */

package timeutil

import (
	"time"
)

// Timestamps cross the API as epoch milliseconds.

func CvtTimeToMilliSec(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano() / int64(time.Millisecond)
}
