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

package nova

import (
	"errors"
	"fmt"
	"sync"

	"goarrg.com/debug"

	"goarrg.com/nova/internal/hal"
)

// QueueID identifies one hardware queue, the device opens a single queue per family so Index is always 0.
type QueueID struct {
	Index  int
	Family int
}

func (q QueueID) String() string {
	return fmt.Sprintf("{Family: %d, Index: %d}", q.Family, q.Index)
}

func findGraphicsFamily(families []hal.QueueFamily) (int, bool) {
	for _, f := range families {
		if f.Graphics {
			return f.Index, true
		}
	}
	return 0, false
}

// findTransferFamily prefers a family that does neither graphics nor compute, falling back to graphics.
func findTransferFamily(families []hal.QueueFamily) (int, bool) {
	for _, f := range families {
		if !f.Graphics && !f.Compute && f.Transfer {
			return f.Index, true
		}
	}
	return findGraphicsFamily(families)
}

func findPresentFamily(families []hal.QueueFamily, supports func(family int) bool) (int, bool) {
	for _, f := range families {
		if supports(f.Index) {
			return f.Index, true
		}
	}
	return 0, false
}

type queue struct {
	mtx sync.Mutex
	id  QueueID
	raw hal.Queue
}

/*
Queues holds every queue of a Context. Submit and Present are safe for
concurrent use, each queue is guarded by its own mutex so the loader and the
renderer can submit at the same time.
*/
type Queues struct {
	families []hal.QueueFamily
	graphics QueueID
	transfer QueueID
	queues   map[int]*queue
}

func newQueues(device hal.Device) (*Queues, error) {
	families := device.QueueFamilies()
	q := &Queues{
		families: families,
		queues:   map[int]*queue{},
	}

	graphics, ok := findGraphicsFamily(families)
	if !ok {
		return nil, ErrorNoGraphicsQueue{}
	}
	transfer, _ := findTransferFamily(families)
	q.graphics = QueueID{Family: graphics}
	q.transfer = QueueID{Family: transfer}

	for _, f := range families {
		raw := device.Queue(f.Index)
		if raw == nil {
			return nil, debug.Errorf("Device did not open a queue for family %d", f.Index)
		}
		q.queues[f.Index] = &queue{id: QueueID{Family: f.Index}, raw: raw}
	}
	return q, nil
}

func (q *Queues) Graphics() QueueID {
	return q.graphics
}

// Transfer returns the dedicated transfer queue, or the graphics queue when the device has none.
func (q *Queues) Transfer() QueueID {
	return q.transfer
}

func (q *Queues) get(id QueueID) *queue {
	queue, ok := q.queues[id.Family]
	if !ok || id.Index != 0 {
		abort("Unknown queue: %s", id)
	}
	return queue
}

type SemaphoreWait struct {
	Semaphore *Semaphore
	Stage     PipelineStage
}

type Submission struct {
	QueueID          QueueID
	Lists            []*List
	WaitSemaphores   []SemaphoreWait
	SignalSemaphores []*Semaphore
	// Fence is optional.
	Fence *Fence
}

// Clear empties the submission while keeping its backing arrays.
func (s *Submission) Clear() {
	s.Lists = s.Lists[:0]
	s.WaitSemaphores = s.WaitSemaphores[:0]
	s.SignalSemaphores = s.SignalSemaphores[:0]
	s.Fence = nil
}

/*
Submit hands the lists to the queue named by s.QueueID. Every list must have
been recorded for that queue and finished, mixing queues is a fault.
*/
func (q *Queues) Submit(s *Submission) error {
	queue := q.get(s.QueueID)

	info := hal.SubmitInfo{
		CommandBuffers: make([]hal.CommandBuffer, 0, len(s.Lists)),
		Waits:          make([]hal.SemaphoreWait, 0, len(s.WaitSemaphores)),
		Signals:        make([]hal.Semaphore, 0, len(s.SignalSemaphores)),
	}
	for i, l := range s.Lists {
		if l.pool.queueID != s.QueueID {
			abort("Submission to %s contains list %d recorded for %s", s.QueueID, i, l.pool.queueID)
		}
		if l.state != listExecutable {
			abort("Submission to %s contains list %d that is not finished", s.QueueID, i)
		}
		info.CommandBuffers = append(info.CommandBuffers, l.raw.Get())
	}
	for _, w := range s.WaitSemaphores {
		info.Waits = append(info.Waits, hal.SemaphoreWait{Semaphore: w.Semaphore.raw.Get(), Stage: w.Stage})
	}
	for _, sem := range s.SignalSemaphores {
		info.Signals = append(info.Signals, sem.raw.Get())
	}
	if s.Fence != nil {
		info.Fence = s.Fence.raw.Get()
	}

	queue.mtx.Lock()
	defer queue.mtx.Unlock()
	if err := queue.raw.Submit(info); err != nil {
		return debug.ErrorWrapf(err, "Failed to submit to %s", s.QueueID)
	}
	return nil
}

/*
Present queues the backbuffer for presentation once every wait semaphore is
signaled. It returns ErrorOutOfDate when the swapchain must be recreated and
ErrorSurfaceLost when the window is gone.
*/
func (q *Queues) Present(id QueueID, b *Backbuffer, waits ...*Semaphore) error {
	queue := q.get(id)
	info := hal.PresentInfo{
		Swapchain:  b.swapchain,
		ImageIndex: b.index,
		Waits:      make([]hal.Semaphore, 0, len(waits)),
	}
	for _, s := range waits {
		info.Waits = append(info.Waits, s.raw.Get())
	}

	queue.mtx.Lock()
	defer queue.mtx.Unlock()
	err := queue.raw.Present(info)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrorOutOfDate{}):
		return ErrorOutOfDate{}
	case errors.Is(err, ErrorSurfaceLost{}):
		return ErrorSurfaceLost{}
	default:
		return debug.ErrorWrapf(err, "Failed to present on %s", id)
	}
}

func (q *Queues) WaitIdle(id QueueID) error {
	queue := q.get(id)
	queue.mtx.Lock()
	defer queue.mtx.Unlock()
	if err := queue.raw.WaitIdle(); err != nil {
		return debug.ErrorWrapf(err, "Failed to wait for %s", id)
	}
	return nil
}
