/*
 * Copyright (c) 2025, The Kubernetes Task Runner Authors. All rights reserved.
 * See LICENSE for license information.
 */

package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"k8s.io/klog/v2"

	"github.com/kubernetes-task-runner/kubernetes-task-runner/pkg/cluster"
	"github.com/kubernetes-task-runner/kubernetes-task-runner/pkg/config"
	"github.com/kubernetes-task-runner/kubernetes-task-runner/pkg/coordinator"
	dbclient "github.com/kubernetes-task-runner/kubernetes-task-runner/pkg/database/client"
	"github.com/kubernetes-task-runner/kubernetes-task-runner/pkg/gcs"
	"github.com/kubernetes-task-runner/kubernetes-task-runner/pkg/k8sclient"
	trklog "github.com/kubernetes-task-runner/kubernetes-task-runner/pkg/klog"
	"github.com/kubernetes-task-runner/kubernetes-task-runner/pkg/options"
	"github.com/kubernetes-task-runner/kubernetes-task-runner/pkg/syncer"
)

// WorkerServer runs the status synchronizer as its own binary, mirroring the
// api-server/worker split of the original deployment.
type WorkerServer struct {
	opts     *options.Options
	syncer   *syncer.Syncer
	dbClient *dbclient.Client
	ctx      context.Context
	cancel   context.CancelFunc
	isInited bool
}

func NewWorkerServer() (*WorkerServer, error) {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	s := &WorkerServer{
		opts:   &options.Options{},
		ctx:    ctx,
		cancel: cancel,
	}
	if err := s.init(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *WorkerServer) init() error {
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
	s.syncer = syncer.NewSyncer(s.dbClient, clusterClient, store, coord)
	s.isInited = true
	return nil
}

func (s *WorkerServer) Start() {
	if !s.isInited {
		klog.Errorf("please init worker first")
		return
	}
	klog.Infof("starting worker")
	s.syncer.Run(s.ctx)
	s.Stop()
}

func (s *WorkerServer) Stop() {
	s.dbClient.Close()
	s.cancel()
	klog.Info("worker is stopped")
	klog.Flush()
}
