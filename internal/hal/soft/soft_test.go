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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goarrg.com/nova/internal/hal"
)

func openDevice(t *testing.T, opts Options) *Device {
	t.Helper()
	d, err := New(opts).Open(hal.DeviceDescriptor{ApplicationName: "test"})
	require.NoError(t, err)
	return d.(*Device)
}

func TestFence(t *testing.T) {
	assert := assert.New(t)
	d := openDevice(t, Options{})
	defer d.Destroy()

	f, err := d.CreateFence(false)
	require.NoError(t, err)
	assert.ErrorIs(f.Wait(time.Millisecond), hal.ErrorTimeout{})

	q := d.Queue(0)
	require.NoError(t, q.Submit(hal.SubmitInfo{Fence: f}))
	assert.NoError(f.Wait(hal.WaitForever))
	assert.NoError(f.Wait(0))

	assert.NoError(f.Reset())
	assert.ErrorIs(f.Wait(0), hal.ErrorTimeout{})

	f.Destroy()
	assert.Panics(f.Destroy)
	assert.Zero(d.LiveObjects())
}

func TestFence_SignaledNeverTimesOut(t *testing.T) {
	d := openDevice(t, Options{})
	defer d.Destroy()

	f, err := d.CreateFence(true)
	require.NoError(t, err)
	defer f.Destroy()
	for i := 0; i < 1000; i++ {
		require.NoError(t, f.Wait(0))
		require.NoError(t, f.Wait(time.Nanosecond))
	}
}

func TestFence_PendingSignal(t *testing.T) {
	assert := assert.New(t)
	d := openDevice(t, Options{Latency: 50 * time.Millisecond})
	defer d.Destroy()

	f, err := d.CreateFence(false)
	require.NoError(t, err)
	defer f.Destroy()

	q := d.Queue(0)
	require.NoError(t, q.Submit(hal.SubmitInfo{Fence: f}))
	assert.NoError(f.Reset())
	assert.Len(d.ValidationErrors(), 1)
	require.NoError(t, q.Submit(hal.SubmitInfo{Fence: f}))
	assert.Len(d.ValidationErrors(), 2)

	require.NoError(t, d.WaitIdle())
	require.NoError(t, f.Wait(0))
	require.NoError(t, f.Reset())
	require.NoError(t, q.Submit(hal.SubmitInfo{Fence: f}))
	require.NoError(t, f.Wait(hal.WaitForever))
	assert.Len(d.ValidationErrors(), 2)
}

func TestQueue_SemaphoreOrdering(t *testing.T) {
	assert := assert.New(t)
	d := openDevice(t, Options{Latency: 5 * time.Millisecond})
	defer d.Destroy()

	src, err := d.CreateBuffer(hal.BufferDescriptor{Size: 4, Usage: hal.BufferUsageTransferSrc, Memory: hal.MemoryHostVisible})
	require.NoError(t, err)
	dst, err := d.CreateBuffer(hal.BufferDescriptor{Size: 4, Usage: hal.BufferUsageTransferDst, Memory: hal.MemoryHostVisible})
	require.NoError(t, err)
	sem, err := d.CreateSemaphore()
	require.NoError(t, err)
	fence, err := d.CreateFence(false)
	require.NoError(t, err)

	pool, err := d.CreateCommandPool(0)
	require.NoError(t, err)
	cb, err := pool.Allocate()
	require.NoError(t, err)
	require.NoError(t, cb.Begin())
	cb.CopyBuffer(src, dst, []hal.BufferCopy{{Size: 4}})
	require.NoError(t, cb.End())

	// The signal is submitted after the wait, on another queue.
	require.NoError(t, d.Queue(0).Submit(hal.SubmitInfo{
		CommandBuffers: []hal.CommandBuffer{cb},
		Waits:          []hal.SemaphoreWait{{Semaphore: sem, Stage: hal.PipelineStageTransfer}},
		Fence:          fence,
	}))
	require.NoError(t, src.Write(0, []byte{9, 8, 7, 6}))
	require.NoError(t, d.Queue(1).Submit(hal.SubmitInfo{Signals: []hal.Semaphore{sem}}))
	require.NoError(t, fence.Wait(hal.WaitForever))

	got := make([]byte, 4)
	require.NoError(t, dst.Read(0, got))
	assert.Equal([]byte{9, 8, 7, 6}, got)
	assert.Empty(d.ValidationErrors())

	pool.Free(cb)
	for _, o := range []interface{ Destroy() }{pool, fence, sem, dst, src} {
		o.Destroy()
	}
	assert.Zero(d.LiveObjects())
}

func TestValidation(t *testing.T) {
	assert := assert.New(t)
	d := openDevice(t, Options{})
	defer d.Destroy()

	img, err := d.CreateImage(hal.ImageDescriptor{Extent: hal.Extent{Width: 2, Height: 2}, Format: hal.FormatR8G8B8A8Unorm})
	require.NoError(t, err)
	defer img.Destroy()
	buf, err := d.CreateBuffer(hal.BufferDescriptor{Size: 16, Memory: hal.MemoryDeviceLocal})
	require.NoError(t, err)
	defer buf.Destroy()
	pool, err := d.CreateCommandPool(0)
	require.NoError(t, err)
	defer pool.Destroy()
	cb, err := pool.Allocate()
	require.NoError(t, err)
	fence, err := d.CreateFence(false)
	require.NoError(t, err)
	defer fence.Destroy()

	assert.Error(buf.Write(0, []byte{1}), "device local")

	require.NoError(t, cb.Begin())
	cb.PipelineBarrier(hal.PipelineStageTopOfPipe, hal.PipelineStageTransfer, []hal.Barrier{{
		Image:     img,
		OldLayout: hal.ImageLayoutShaderReadOnlyOptimal,
		NewLayout: hal.ImageLayoutTransferDstOptimal,
	}})
	require.NoError(t, cb.End())
	require.NoError(t, d.Queue(0).Submit(hal.SubmitInfo{CommandBuffers: []hal.CommandBuffer{cb}, Fence: fence}))
	require.NoError(t, fence.Wait(hal.WaitForever))

	assert.Equal(hal.ImageLayoutTransferDstOptimal, ImageLayout(img))
	assert.Len(d.ValidationErrors(), 1)
	pool.Free(cb)
}

func TestMemoryLimit(t *testing.T) {
	d := openDevice(t, Options{MemoryLimit: 24})
	defer d.Destroy()

	b, err := d.CreateBuffer(hal.BufferDescriptor{Size: 16})
	require.NoError(t, err)
	_, err = d.CreateImage(hal.ImageDescriptor{Extent: hal.Extent{Width: 2, Height: 2}, Format: hal.FormatR8G8B8A8Unorm})
	assert.ErrorIs(t, err, hal.ErrorOutOfDeviceMemory{})

	b.Destroy()
	img, err := d.CreateImage(hal.ImageDescriptor{Extent: hal.Extent{Width: 2, Height: 2}, Format: hal.FormatR8G8B8A8Unorm})
	require.NoError(t, err)
	img.Destroy()
}

func TestSwapchain(t *testing.T) {
	assert := assert.New(t)
	w := NewWindow(8, 8)
	d := openDevice(t, Options{})
	defer d.Destroy()

	s, err := d.CreateSurface(w)
	require.NoError(t, err)
	defer s.Destroy()
	assert.True(s.SupportsQueueFamily(0))
	assert.False(s.SupportsQueueFamily(1))

	sc, err := s.CreateSwapchain(hal.SwapchainDescriptor{Extent: hal.Extent{Width: 8, Height: 8}, Format: hal.FormatB8G8R8A8Srgb, ImageCount: 2})
	require.NoError(t, err)
	defer sc.Destroy()
	assert.Len(sc.Images(), 2)

	sem, err := d.CreateSemaphore()
	require.NoError(t, err)
	defer sem.Destroy()

	w.ForceOutOfDate(1)
	_, err = sc.Acquire(sem, hal.WaitForever)
	assert.ErrorIs(err, hal.ErrorOutOfDate{})

	i, err := sc.Acquire(sem, hal.WaitForever)
	require.NoError(t, err)
	require.NoError(t, d.Queue(0).Present(hal.PresentInfo{Swapchain: sc, ImageIndex: i, Waits: []hal.Semaphore{sem}}))
	require.NoError(t, d.WaitIdle())
	assert.Equal(1, w.PresentCount())

	w.Resize(4, 4)
	_, err = sc.Acquire(sem, hal.WaitForever)
	assert.ErrorIs(err, hal.ErrorOutOfDate{})
	assert.Equal(3, w.AcquireCount())
	assert.Empty(d.ValidationErrors())
}
