/*
 * Copyright (c) 2025, The Kubernetes Task Runner Authors. All rights reserved.
 * See LICENSE for license information.
 */

package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"k8s.io/klog/v2"

	"github.com/kubernetes-task-runner/kubernetes-task-runner/pkg/cluster"
	"github.com/kubernetes-task-runner/kubernetes-task-runner/pkg/config"
	"github.com/kubernetes-task-runner/kubernetes-task-runner/pkg/coordinator"
	dbclient "github.com/kubernetes-task-runner/kubernetes-task-runner/pkg/database/client"
	"github.com/kubernetes-task-runner/kubernetes-task-runner/pkg/dispatcher"
	"github.com/kubernetes-task-runner/kubernetes-task-runner/pkg/gcs"
	"github.com/kubernetes-task-runner/kubernetes-task-runner/pkg/handlers"
	batchhandlers "github.com/kubernetes-task-runner/kubernetes-task-runner/pkg/handlers/batch-handlers"
	"github.com/kubernetes-task-runner/kubernetes-task-runner/pkg/k8sclient"
	trklog "github.com/kubernetes-task-runner/kubernetes-task-runner/pkg/klog"
	"github.com/kubernetes-task-runner/kubernetes-task-runner/pkg/options"
)

type ApiServer struct {
	opts       *options.Options
	httpServer *http.Server
	dispatcher *dispatcher.Dispatcher
	dbClient   *dbclient.Client
	ctx        context.Context
	cancel     context.CancelFunc
	isInited   bool
}

func NewApiServer() (*ApiServer, error) {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	s := &ApiServer{
		opts:   &options.Options{},
		ctx:    ctx,
		cancel: cancel,
	}
	if err := s.init(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *ApiServer) init() error {
	gin.SetMode(gin.ReleaseMode)
	var err error
	if err = s.opts.InitFlags(); err != nil {
		klog.ErrorS(err, "failed to parse flags")
		return err
	}
	if err = initConfig(s.opts); err != nil {
		klog.ErrorS(err, "failed to init config")
		return err
	}
	if err = trklog.Init(s.opts.LogfilePath, s.opts.LogFileSize, config.GetLogLevel()); err != nil {
		klog.ErrorS(err, "failed to init logs")
		return err
	}
	if s.dbClient = dbclient.NewClient(); s.dbClient == nil {
		return fmt.Errorf("failed to new db client")
	}
	kube, _, err := k8sclient.NewClientSet()
	if err != nil {
		klog.ErrorS(err, "failed to init kubernetes client")
		return err
	}
	store, err := gcs.NewClient(s.ctx)
	if err != nil {
		klog.ErrorS(err, "failed to init object store client")
		return err
	}

	clusterClient := cluster.NewClient(kube)
	coord := coordinator.NewCoordinator(clusterClient, store, s.dbClient)
	s.dispatcher = dispatcher.NewDispatcher(
		dispatcher.NewProvisionHandler(s.dbClient, coord), config.GetDispatcherWorkers())

	handler, err := handlers.InitHttpHandlers(s.ctx, batchhandlers.NewHandler(s.dbClient, coord, s.dispatcher))
	if err != nil {
		return err
	}
	addr := fmt.Sprintf("%s:%d", config.GetApiHost(), config.GetApiPort())
	s.httpServer = &http.Server{Addr: addr, Handler: handler}
	s.isInited = true
	return nil
}

func (s *ApiServer) Start() {
	if !s.isInited {
		klog.Errorf("please init api-server first")
		return
	}
	gin.EnableJsonDecoderDisallowUnknownFields()

	klog.Infof("starting api-server")
	s.dispatcher.Run(s.ctx)
	if err := dispatcher.Resume(s.ctx, s.dbClient, s.dispatcher); err != nil {
		klog.ErrorS(err, "failed to resume pending provisioning tasks")
	}

	go func() {
		klog.Infof("http-server listen address: %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			klog.ErrorS(err, "failed to start http server")
			os.Exit(-1)
		}
	}()

	<-s.ctx.Done()
	s.Stop()
}

func (s *ApiServer) Stop() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		klog.ErrorS(err, "failed to shutdown httpserver")
	}
	s.dbClient.Close()
	s.cancel()
	klog.Info("api-server is stopped")
	klog.Flush()
}

func initConfig(opts *options.Options) error {
	config.InitEnv()
	if opts.Config == "" {
		return nil
	}
	fullPath, err := filepath.Abs(opts.Config)
	if err != nil {
		return err
	}
	if err = config.LoadConfig(fullPath); err != nil {
		return fmt.Errorf("config path: %s, err: %v", fullPath, err)
	}
	return nil
}
