/*
Copyright 2025 The goARRG Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package soft

import (
	"sync"
	"time"

	"goarrg.com/nova/internal/hal"
)

type fence struct {
	object
	mtx      sync.Mutex
	signaled bool
	pending  int
	ch       chan struct{}
}

var _ hal.Fence = (*fence)(nil)

func (d *Device) CreateFence(signaled bool) (hal.Fence, error) {
	f := &fence{ch: make(chan struct{})}
	f.init(d, "fence")
	if signaled {
		f.signaled = true
		close(f.ch)
	}
	return f, nil
}

// submitted records a queued signal, a fence may only be owned by one submission at a time.
func (f *fence) submitted() {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	if f.pending > 0 {
		f.device.validationf("fence submitted while a previous signal is still pending")
	}
	if f.signaled {
		f.device.validationf("fence submitted while signaled")
	}
	f.pending++
}

func (f *fence) signal() {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	if f.pending > 0 {
		f.pending--
	}
	if !f.signaled {
		f.signaled = true
		close(f.ch)
	}
}

func (f *fence) Wait(timeout time.Duration) error {
	f.check()
	f.mtx.Lock()
	ch := f.ch
	f.mtx.Unlock()

	select {
	case <-ch:
		return nil
	default:
	}

	switch {
	case timeout < 0:
		<-ch
		return nil
	case timeout == 0:
		return hal.ErrorTimeout{}
	}

	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case <-ch:
		return nil
	case <-t.C:
		return hal.ErrorTimeout{}
	}
}

func (f *fence) Reset() error {
	f.check()
	f.mtx.Lock()
	defer f.mtx.Unlock()
	if f.pending > 0 {
		f.device.validationf("fence reset while a submission that signals it is in flight")
	}
	if f.signaled {
		f.signaled = false
		f.ch = make(chan struct{})
	}
	return nil
}

func (f *fence) Destroy() {
	f.release()
}

// semaphore is binary, a second signal before a wait is a validation error.
type semaphore struct {
	object
	ch chan struct{}
}

var _ hal.Semaphore = (*semaphore)(nil)

func (d *Device) CreateSemaphore() (hal.Semaphore, error) {
	s := &semaphore{ch: make(chan struct{}, 1)}
	s.init(d, "semaphore")
	return s, nil
}

func (s *semaphore) signal() {
	select {
	case s.ch <- struct{}{}:
	default:
		s.device.validationf("semaphore signaled while already signaled")
	}
}

func (s *semaphore) wait() {
	<-s.ch
}

func (s *semaphore) Destroy() {
	s.release()
}
