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
	"slices"
	"sync"
	"time"

	"goarrg.com/debug"

	"goarrg.com/nova/internal/hal"
)

type queue struct {
	device *Device
	family int
	work   chan func()

	mtx     sync.Mutex
	idle    *sync.Cond
	pending int
}

var _ hal.Queue = (*queue)(nil)

func newQueue(d *Device, family int) *queue {
	q := &queue{
		device: d,
		family: family,
		work:   make(chan func(), 64),
	}
	q.idle = sync.NewCond(&q.mtx)
	go q.run()
	return q
}

func (q *queue) run() {
	for job := range q.work {
		job()
		q.mtx.Lock()
		q.pending--
		q.idle.Broadcast()
		q.mtx.Unlock()
	}
}

func (q *queue) enqueue(job func()) {
	q.mtx.Lock()
	q.pending++
	q.mtx.Unlock()
	q.work <- job
}

func (q *queue) close() {
	close(q.work)
}

func (q *queue) Submit(info hal.SubmitInfo) error {
	if q.device.destroyed.Load() {
		return hal.ErrorDeviceLost{}
	}

	var ops []func()
	for _, c := range info.CommandBuffers {
		cb := c.(*commandBuffer)
		if cb.state != stateExecutable {
			return debug.Errorf("Submitted command buffer is not executable")
		}
		if cb.pool.family != q.family {
			q.device.validationf("command buffer from family %d submitted to family %d", cb.pool.family, q.family)
		}
		ops = append(ops, cb.ops...)
	}
	waits := slices.Clone(info.Waits)
	signals := slices.Clone(info.Signals)
	fence, _ := info.Fence.(*fence)
	if fence != nil {
		fence.submitted()
	}
	latency := q.device.opts.Latency

	q.enqueue(func() {
		for _, w := range waits {
			w.Semaphore.(*semaphore).wait()
		}
		if latency > 0 {
			time.Sleep(latency)
		}
		for _, op := range ops {
			op()
		}
		for _, s := range signals {
			s.(*semaphore).signal()
		}
		if fence != nil {
			fence.signal()
		}
	})
	return nil
}

func (q *queue) Present(info hal.PresentInfo) error {
	sc := info.Swapchain.(*swapchain)
	sc.check()
	if int(info.ImageIndex) >= len(sc.images) {
		q.device.validationf("present of image %d out of %d", info.ImageIndex, len(sc.images))
	}
	// A rejected present still consumes its wait semaphores.
	err := sc.presentable()
	waits := slices.Clone(info.Waits)
	window := sc.surface.window
	q.enqueue(func() {
		for _, w := range waits {
			w.(*semaphore).wait()
		}
		if err == nil {
			window.presents.Add(1)
		}
	})
	return err
}

func (q *queue) WaitIdle() error {
	q.mtx.Lock()
	defer q.mtx.Unlock()
	for q.pending > 0 {
		q.idle.Wait()
	}
	return nil
}
