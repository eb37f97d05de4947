/*
 * Copyright (c) 2025, The Kubernetes Task Runner Authors. All rights reserved.
 * See LICENSE for license information.
 */

package dispatcher

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"gotest.tools/assert"
)

type stubHandler struct {
	mu        sync.Mutex
	attempts  map[string]int
	inputs    map[string][]byte
	failTimes int
	result    Result
	done      chan string
}

func newStubHandler() *stubHandler {
	return &stubHandler{
		attempts: make(map[string]int),
		inputs:   make(map[string][]byte),
		done:     make(chan string, 16),
	}
}

func (h *stubHandler) Do(ctx context.Context, id string, input []byte) (Result, error) {
	h.mu.Lock()
	h.attempts[id]++
	attempt := h.attempts[id]
	h.inputs[id] = input
	h.mu.Unlock()
	if attempt <= h.failTimes {
		return Result{}, errors.New("transient")
	}
	h.done <- id
	return h.result, nil
}

func (h *stubHandler) attemptCount(id string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.attempts[id]
}

func waitFor(t *testing.T, done <-chan string, id string) {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case got := <-done:
			if got == id {
				return
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s", id)
		}
	}
}

func TestDispatcherProcessesQueuedWork(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	handler := newStubHandler()
	d := NewDispatcher(handler, 2)
	d.Run(ctx)

	d.Add("id-1", []byte("payload"))
	waitFor(t, handler.done, "id-1")

	handler.mu.Lock()
	assert.Equal(t, string(handler.inputs["id-1"]), "payload")
	handler.mu.Unlock()
}

func TestDispatcherDropsInputAfterSuccess(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	handler := newStubHandler()
	d := NewDispatcher(handler, 1)
	d.Run(ctx)

	d.Add("id-1", []byte("payload"))
	waitFor(t, handler.done, "id-1")

	// the payload table must not grow without bound
	deadline := time.Now().Add(5 * time.Second)
	for len(d.getInput("id-1")) > 0 {
		if time.Now().After(deadline) {
			t.Fatal("input payload was not released")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestDispatcherRetriesOnError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	handler := newStubHandler()
	handler.failTimes = 2
	d := NewDispatcher(handler, 1)
	d.Run(ctx)

	d.Add("id-1", nil)
	waitFor(t, handler.done, "id-1")
	assert.Equal(t, handler.attemptCount("id-1"), 3)
}

func TestDispatcherShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	handler := newStubHandler()
	d := NewDispatcher(handler, 1)
	d.Run(ctx)

	d.Add("id-1", nil)
	waitFor(t, handler.done, "id-1")
	cancel()

	deadline := time.Now().Add(5 * time.Second)
	for d.GetQueueSize() > 0 {
		if time.Now().After(deadline) {
			t.Fatal("queue did not drain on shutdown")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
