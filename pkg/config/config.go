/*
 * Copyright (c) 2025, The Kubernetes Task Runner Authors. All rights reserved.
 * See LICENSE for license information.
 */

package config

import (
	"github.com/spf13/viper"
)

// InitEnv binds every known key to its upper-cased environment variable,
// e.g. api_port reads API_PORT. Call once before any getter.
func InitEnv() {
	viper.AutomaticEnv()
}

func SetValue(key string, value interface{}) {
	viper.Set(key, value)
}

// LoadConfig reads an optional YAML file on top of the environment.
func LoadConfig(path string) error {
	viper.SetConfigFile(path)
	viper.SetConfigType("yaml")
	return viper.ReadInConfig()
}

func getString(key, defaultValue string) string {
	if !viper.IsSet(key) {
		return defaultValue
	}
	return viper.GetString(key)
}

func getInt(key string, defaultValue int) int {
	if !viper.IsSet(key) {
		return defaultValue
	}
	return viper.GetInt(key)
}

func GetApiHost() string {
	return getString(apiHost, DefaultApiHost)
}

func GetApiPort() int {
	return getInt(apiPort, DefaultApiPort)
}

func GetDBHost() string {
	return getString(dbHost, "")
}

func GetDBPort() int {
	return getInt(dbPort, DefaultDBPort)
}

func GetDBName() string {
	return getString(dbName, DefaultDBName)
}

func GetDBUser() string {
	return getString(dbUser, "")
}

func GetDBPassword() string {
	return getString(dbPassword, "")
}

func GetDBSslMode() string {
	return getString(dbSslMode, DefaultDBSslMode)
}

func GetDBMaxOpenConns() int {
	return getInt(dbMaxOpenConns, 0)
}

func GetDBMaxIdleConns() int {
	return getInt(dbMaxIdleConns, 0)
}

func GetDBMaxLifetimeSecond() int {
	return getInt(dbMaxLifetimeSecond, 0)
}

func GetDBMaxIdleTimeSecond() int {
	return getInt(dbMaxIdleTimeSecond, 0)
}

func GetDBConnectTimeoutSecond() int {
	return getInt(dbConnectTimeoutSecond, DefaultDBConnectTimeoutSecond)
}

func GetDBRequestTimeoutSecond() int {
	return getInt(dbRequestTimeoutSecond, DefaultRequestTimeoutSecond)
}

func GetKubernetesApiUrl() string {
	return getString(kubernetesApiUrl, "")
}

func GetKubernetesApiKey() string {
	return getString(kubernetesApiKey, "")
}

func GetKubernetesNamespace() string {
	return getString(kubernetesNamespace, DefaultNamespace)
}

func GetBucketName() string {
	return getString(gcBucketName, "")
}

func GetCredentialsFilePath() string {
	return getString(gcCredentialsFilePath, "")
}

func GetJobSynchronizationIntervalSecond() int {
	return getInt(jobSynchronizationInterval, DefaultSyncIntervalSecond)
}

func GetJobBackoffLimit() int {
	return getInt(jobBackoffLimit, 0)
}

func GetDispatcherWorkers() int {
	return getInt(dispatcherWorkers, DefaultDispatcherWorkers)
}

func GetRequestTimeoutSecond() int {
	return getInt(requestTimeoutSecond, DefaultRequestTimeoutSecond)
}

func GetGcsfuseImage() string {
	return getString(gcsfuseImage, DefaultGcsfuseImage)
}

func GetPvcStorageSize() string {
	return getString(pvcStorageSize, DefaultPvcStorageSize)
}

func GetLogLevel() string {
	return getString(logLevel, DefaultLogLevel)
}
