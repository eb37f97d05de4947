/*
 * Copyright (c) 2025, The Kubernetes Task Runner Authors. All rights reserved.
 * See LICENSE for license information.
 */

package config

const (
	// api server
	apiHost = "api_host"
	apiPort = "api_port"

	// database
	dbHost                 = "db_host"
	dbPort                 = "db_port"
	dbName                 = "db_name"
	dbUser                 = "db_user"
	dbPassword             = "db_password"
	dbSslMode              = "db_ssl_mode"
	dbMaxOpenConns         = "db_max_open_conns"
	dbMaxIdleConns         = "db_max_idle_conns"
	dbMaxLifetimeSecond    = "db_max_lifetime_second"
	dbMaxIdleTimeSecond    = "db_max_idle_time_second"
	dbConnectTimeoutSecond = "db_connect_timeout_second"
	dbRequestTimeoutSecond = "db_request_timeout_second"

	// kubernetes
	kubernetesApiUrl    = "kubernetes_api_url"
	kubernetesApiKey    = "kubernetes_api_key"
	kubernetesNamespace = "kubernetes_namespace"

	// object store
	gcBucketName          = "gc_bucket_name"
	gcCredentialsFilePath = "gc_credentials_file_path"

	// lifecycle engine
	jobSynchronizationInterval = "job_synchronization_interval"
	jobBackoffLimit            = "job_backoff_limit"
	dispatcherWorkers          = "dispatcher_workers"
	requestTimeoutSecond       = "request_timeout_second"
	gcsfuseImage               = "gcsfuse_image"
	pvcStorageSize             = "pvc_storage_size"

	// logging
	logLevel = "log_level"
)

const (
	DefaultApiHost                = "0.0.0.0"
	DefaultApiPort                = 4898
	DefaultDBPort                 = 5432
	DefaultDBName                 = "kubernetes_task_runner"
	DefaultDBSslMode              = "disable"
	DefaultNamespace              = "default"
	DefaultSyncIntervalSecond     = 30
	DefaultRequestTimeoutSecond   = 30
	DefaultDispatcherWorkers      = 4
	DefaultGcsfuseImage           = "docker.io/library/gcsfuse-tools:latest"
	DefaultPvcStorageSize         = "100Gi"
	DefaultLogLevel               = "WARNING"
	DefaultDBConnectTimeoutSecond = 10
)
