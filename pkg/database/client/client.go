/*
 * Copyright (c) 2025, The Kubernetes Task Runner Authors. All rights reserved.
 * See LICENSE for license information.
 */

package client

import (
	"fmt"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"
	"k8s.io/klog/v2"

	"github.com/kubernetes-task-runner/kubernetes-task-runner/pkg/config"
	"github.com/kubernetes-task-runner/kubernetes-task-runner/pkg/database/utils"
	trerrors "github.com/kubernetes-task-runner/kubernetes-task-runner/pkg/errors"
	trbackoff "github.com/kubernetes-task-runner/kubernetes-task-runner/pkg/utils/backoff"
)

var (
	once     sync.Once
	instance *Client
)

// Client wraps the sqlx connection pool together with its configuration.
type Client struct {
	db              *sqlx.DB
	*utils.DBConfig // Embedded database configuration
}

// NewClient creates a singleton instance of the database Client. It reads the
// connection settings from configuration, validates them and connects. The
// initialization happens only once even if called multiple times.
func NewClient() *Client {
	once.Do(func() {
		cfg := &utils.DBConfig{
			DBName:         config.GetDBName(),
			Username:       config.GetDBUser(),
			Password:       config.GetDBPassword(),
			Host:           config.GetDBHost(),
			Port:           config.GetDBPort(),
			SSLMode:        config.GetDBSslMode(),
			MaxOpenConns:   config.GetDBMaxOpenConns(),
			MaxIdleConns:   config.GetDBMaxIdleConns(),
			MaxLifetime:    time.Duration(config.GetDBMaxLifetimeSecond()) * time.Second,
			MaxIdleTime:    time.Duration(config.GetDBMaxIdleTimeSecond()) * time.Second,
			ConnectTimeout: config.GetDBConnectTimeoutSecond(),
			RequestTimeout: time.Duration(config.GetDBRequestTimeoutSecond()) * time.Second,
		}
		if err := checkParams(cfg); err != nil {
			klog.ErrorS(err, "failed to check db params")
			return
		}
		db, err := utils.Connect(cfg, utils.PgDriver)
		if err != nil {
			klog.Errorf("%s", err.Error())
			return
		}
		// The database may still be coming up when the pod starts.
		if err = trbackoff.Retry(db.Ping, 30*time.Second, 5*time.Second); err != nil {
			klog.ErrorS(err, "failed to ping db")
			return
		}
		instance = &Client{db: db, DBConfig: cfg}
		klog.Infof("init db-client successfully! conn-timeout: %d(s), request-timeout: %d(s)",
			cfg.ConnectTimeout, config.GetDBRequestTimeoutSecond())
	})
	return instance
}

// Close performs the Close operation.
func (c *Client) Close() {
	err := c.db.Close()
	if err != nil {
		klog.ErrorS(err, "failed to close db connection")
	}
}

// getDB retrieves DB for internal use.
func (c *Client) getDB() (*sqlx.DB, error) {
	if c.db == nil {
		return nil, trerrors.NewInternalError("The client of db has not been initialized")
	}
	return c.db.Unsafe(), nil
}

// checkParams checks Params and returns the result.
func checkParams(cfg *utils.DBConfig) error {
	var errs []error
	if cfg.DBName == "" {
		errs = append(errs, fmt.Errorf("dbname not found"))
	}
	if cfg.Username == "" {
		errs = append(errs, fmt.Errorf("username not found"))
	}
	if cfg.Password == "" {
		errs = append(errs, fmt.Errorf("password not found"))
	}
	if cfg.Host == "" {
		errs = append(errs, fmt.Errorf("host not found"))
	}
	if cfg.SSLMode == "" {
		errs = append(errs, fmt.Errorf("ssl_mode not found"))
	}
	if cfg.Port == 0 {
		errs = append(errs, fmt.Errorf("port not found"))
	}
	return utilerrors.NewAggregate(errs)
}
