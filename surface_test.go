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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"goarrg.com/gmath"

	"goarrg.com/nova/internal/hal"
	"goarrg.com/nova/internal/hal/soft"
)

type testSurface struct {
	ctx     *Context
	window  *soft.Window
	surface *Surface
	signal  *Semaphore
}

func newTestSurface(t *testing.T, config Config) *testSurface {
	t.Helper()
	window := soft.NewWindow(640, 480)
	ctx, _ := newTestContext(t, soft.Options{}, window, config)

	surface, err := NewSurface(ctx, window)
	require.NoError(t, err)
	pass, err := NewRenderPass(ctx, surface.Format(), AttachmentLoadOpClear, ImageLayoutPresentSrc)
	require.NoError(t, err)
	t.Cleanup(func() {
		surface.Destroy()
		pass.Destroy()
	})
	surface.UseRenderPass(pass)

	signal, err := NewSemaphore(ctx)
	require.NoError(t, err)
	t.Cleanup(signal.Destroy)
	return &testSurface{ctx: ctx, window: window, surface: surface, signal: signal}
}

// present hands the backbuffer back, consuming the acquire semaphore.
func (s *testSurface) present(t *testing.T, b *Backbuffer) {
	t.Helper()
	require.NoError(t, b.Present(s.signal))
	require.NoError(t, s.ctx.WaitIdle())
}

func TestSurface_AcquirePresent(t *testing.T) {
	s := newTestSurface(t, testConfig())
	assert.Equal(t, FormatB8G8R8A8Srgb, s.surface.Format())
	assert.Equal(t, QueueID{Family: 0}, s.surface.PresentQueue())

	for i := range 4 {
		b, err := s.surface.Acquire(s.signal)
		require.NoError(t, err)
		assert.Equal(t, uint32(i%3), b.Index())
		assert.Equal(t, gmath.Extent2i32{X: 640, Y: 480}, b.Image().Size())
		assert.Equal(t, b.Image().Size(), b.Framebuffer().Size())
		s.present(t, b)
	}
	assert.Equal(t, 1, s.window.SwapchainCount())
	assert.Equal(t, 4, s.window.PresentCount())
}

func TestSurface_ResizeRecreatesSwapchain(t *testing.T) {
	s := newTestSurface(t, testConfig())

	b, err := s.surface.Acquire(s.signal)
	require.NoError(t, err)
	s.present(t, b)

	before := s.surface.Size()
	s.window.Resize(800, 600)
	s.surface.Resize(gmath.Extent2i32{X: 800, Y: 600})
	assert.NotEqual(t, before, s.surface.Size())

	b, err = s.surface.Acquire(s.signal)
	require.NoError(t, err)
	assert.Equal(t, gmath.Extent2i32{X: 800, Y: 600}, b.Image().Size())
	assert.Equal(t, 2, s.window.SwapchainCount())
	s.present(t, b)
}

func TestSurface_OutOfDateAcquireRecreates(t *testing.T) {
	s := newTestSurface(t, testConfig())

	b, err := s.surface.Acquire(s.signal)
	require.NoError(t, err)
	s.present(t, b)

	s.window.Resize(1024, 768)
	b, err = s.surface.Acquire(s.signal)
	require.NoError(t, err)
	assert.Equal(t, gmath.Extent2i32{X: 1024, Y: 768}, s.surface.Size())
	assert.Equal(t, gmath.Extent2i32{X: 1024, Y: 768}, b.Image().Size())
	s.present(t, b)
}

func TestSurface_OutOfDatePresentIsAbsorbed(t *testing.T) {
	s := newTestSurface(t, testConfig())

	b, err := s.surface.Acquire(s.signal)
	require.NoError(t, err)
	s.window.Resize(320, 200)
	s.present(t, b)
	assert.Equal(t, 0, s.window.PresentCount())

	b, err = s.surface.Acquire(s.signal)
	require.NoError(t, err)
	assert.Equal(t, gmath.Extent2i32{X: 320, Y: 200}, b.Image().Size())
	s.present(t, b)
	assert.Equal(t, 1, s.window.PresentCount())
}

func TestSurface_ResizeBetweenAcquireAndPresent(t *testing.T) {
	s := newTestSurface(t, testConfig())
	rendered, err := NewSemaphore(s.ctx)
	require.NoError(t, err)
	defer rendered.Destroy()

	frame := func() *Backbuffer {
		b, err := s.surface.Acquire(s.signal)
		require.NoError(t, err)
		require.NoError(t, s.ctx.Queues().Submit(&Submission{
			QueueID:          s.ctx.Queues().Graphics(),
			WaitSemaphores:   []SemaphoreWait{{Semaphore: s.signal, Stage: PipelineStageColorAttachmentOutput}},
			SignalSemaphores: []*Semaphore{rendered},
		}))
		return b
	}

	b := frame()
	s.window.Resize(80, 80)
	s.surface.Resize(gmath.Extent2i32{X: 80, Y: 80})
	require.NoError(t, b.Present(rendered))
	require.NoError(t, s.ctx.WaitIdle())
	assert.Equal(t, 0, s.window.PresentCount())

	b = frame()
	require.NoError(t, b.Present(rendered))
	require.NoError(t, s.ctx.WaitIdle())
	assert.Equal(t, 1, s.window.PresentCount())
	assert.Equal(t, gmath.Extent2i32{X: 80, Y: 80}, b.Image().Size())
}

func TestSurface_AcquireRetriesBounded(t *testing.T) {
	config := testConfig()
	config.MaxAcquireAttempts = 3
	s := newTestSurface(t, config)

	s.window.ForceOutOfDate(-1)
	_, err := s.surface.Acquire(s.signal)
	assert.ErrorIs(t, err, ErrorAcquireRetriesExceeded{})
	assert.Equal(t, ErrorAcquireRetriesExceeded{Attempts: 3}, err)
	assert.Equal(t, 3, s.window.AcquireCount())
	assert.Equal(t, 3, s.window.SwapchainCount())

	s.window.ForceOutOfDate(2)
	b, err := s.surface.Acquire(s.signal)
	require.NoError(t, err)
	assert.Equal(t, 6, s.window.AcquireCount())
	s.present(t, b)
}

func TestSurface_Lost(t *testing.T) {
	s := newTestSurface(t, testConfig())

	s.window.SetSurfaceLost(true)
	_, err := s.surface.Acquire(s.signal)
	assert.ErrorIs(t, err, ErrorSurfaceLost{})

	s.window.SetSurfaceLost(false)
	b, err := s.surface.Acquire(s.signal)
	require.NoError(t, err)
	s.present(t, b)
}

func TestSurface_NoPresentQueue(t *testing.T) {
	window := soft.NewWindow(64, 64)
	ctx, _ := newTestContext(t, soft.Options{
		Families:        soft.DefaultFamilies(),
		PresentFamilies: []int{},
	}, window, testConfig())

	_, err := NewSurface(ctx, window)
	assert.ErrorIs(t, err, ErrorNoPresentQueue{})
}

func TestSurface_PresentFromTransferFamily(t *testing.T) {
	window := soft.NewWindow(64, 64)
	ctx, _ := newTestContext(t, soft.Options{
		Families: []hal.QueueFamily{
			{Index: 0, Graphics: true, Compute: true, Transfer: true},
			{Index: 1, Transfer: true},
		},
		PresentFamilies: []int{1},
	}, window, testConfig())

	surface, err := NewSurface(ctx, window)
	require.NoError(t, err)
	defer surface.Destroy()
	assert.Equal(t, QueueID{Family: 1}, surface.PresentQueue())
}

func TestSurface_RenderPassFormatMismatchPanics(t *testing.T) {
	s := newTestSurface(t, testConfig())
	pass, err := NewRenderPass(s.ctx, FormatR8G8B8A8Unorm, AttachmentLoadOpClear, ImageLayoutPresentSrc)
	require.NoError(t, err)
	defer pass.Destroy()

	assert.Panics(t, func() { s.surface.UseRenderPass(pass) })
}
