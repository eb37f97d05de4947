/*
 * Copyright (c) 2025, The Kubernetes Task Runner Authors. All rights reserved.
 * See LICENSE for license information.
 */

package dispatcher

import (
	"context"
	"sync"
	"time"

	"k8s.io/apimachinery/pkg/util/wait"
	"k8s.io/client-go/util/workqueue"
)

// Dispatcher is a rate-limited worker pool that moves provisioning work off
// the HTTP handlers. Queue items are record ids; the in-memory input payloads
// ride alongside in a side table because they are never persisted.
type Dispatcher struct {
	queue         workqueue.RateLimitingInterface
	handler       Handler
	MaxConcurrent int

	mu     sync.Mutex
	inputs map[string][]byte
}

type Result struct {
	Requeue      bool
	RequeueAfter time.Duration
}

type Handler interface {
	Do(ctx context.Context, id string, input []byte) (Result, error)
}

func NewDispatcher(h Handler, concurrent int) *Dispatcher {
	return &Dispatcher{
		handler:       h,
		queue:         workqueue.NewNamedRateLimitingQueue(workqueue.DefaultControllerRateLimiter(), "provision"),
		MaxConcurrent: concurrent,
		inputs:        make(map[string][]byte),
	}
}

func (d *Dispatcher) Run(ctx context.Context) {
	go func() {
		<-ctx.Done()
		d.queue.ShutDown()
	}()
	for i := 0; i < d.MaxConcurrent; i++ {
		go wait.UntilWithContext(ctx, func(ctx context.Context) {
			for {
				if !d.processNext(ctx) {
					break
				}
			}
		}, time.Minute)
	}
}

func (d *Dispatcher) processNext(ctx context.Context) bool {
	req, shutdown := d.queue.Get()
	if shutdown {
		return false
	}
	defer d.queue.Done(req)
	id := req.(string)
	if result, err := d.handler.Do(ctx, id, d.getInput(id)); err != nil {
		d.queue.AddRateLimited(req)
		return true
	} else if result.RequeueAfter > 0 {
		d.queue.Forget(req)
		d.queue.AddAfter(req, result.RequeueAfter)
		return true
	} else if result.Requeue {
		d.queue.AddRateLimited(req)
		return true
	}
	d.queue.Forget(req)
	d.dropInput(id)
	return true
}

// Add enqueues a record id for provisioning with its decoded input payload.
func (d *Dispatcher) Add(id string, input []byte) {
	if len(input) > 0 {
		d.mu.Lock()
		d.inputs[id] = input
		d.mu.Unlock()
	}
	d.queue.Add(id)
}

func (d *Dispatcher) getInput(id string) []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.inputs[id]
}

func (d *Dispatcher) dropInput(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.inputs, id)
}

func (d *Dispatcher) GetQueueSize() int {
	return d.queue.Len()
}
