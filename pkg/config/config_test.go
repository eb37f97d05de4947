/*
 * Copyright (c) 2025, The Kubernetes Task Runner Authors. All rights reserved.
 * See LICENSE for license information.
 */

package config

import (
	"testing"

	"gotest.tools/assert"
)

func TestDefaults(t *testing.T) {
	InitEnv()
	assert.Equal(t, GetApiHost(), DefaultApiHost)
	assert.Equal(t, GetApiPort(), DefaultApiPort)
	assert.Equal(t, GetDBPort(), DefaultDBPort)
	assert.Equal(t, GetDBName(), DefaultDBName)
	assert.Equal(t, GetDBSslMode(), DefaultDBSslMode)
	assert.Equal(t, GetKubernetesNamespace(), DefaultNamespace)
	assert.Equal(t, GetJobSynchronizationIntervalSecond(), DefaultSyncIntervalSecond)
	assert.Equal(t, GetDispatcherWorkers(), DefaultDispatcherWorkers)
	assert.Equal(t, GetPvcStorageSize(), DefaultPvcStorageSize)
	assert.Equal(t, GetLogLevel(), DefaultLogLevel)
}

func TestSetValue(t *testing.T) {
	InitEnv()
	SetValue("api_port", 8080)
	SetValue("kubernetes_namespace", "workloads")
	SetValue("job_synchronization_interval", 5)
	assert.Equal(t, GetApiPort(), 8080)
	assert.Equal(t, GetKubernetesNamespace(), "workloads")
	assert.Equal(t, GetJobSynchronizationIntervalSecond(), 5)
}

func TestEnvBinding(t *testing.T) {
	InitEnv()
	t.Setenv("GC_BUCKET_NAME", "my-bucket")
	t.Setenv("LOG_LEVEL", "DEBUG")
	assert.Equal(t, GetBucketName(), "my-bucket")
	assert.Equal(t, GetLogLevel(), "DEBUG")
}
