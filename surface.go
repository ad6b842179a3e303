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

	"goarrg.com/debug"
	"goarrg.com/gmath"

	"goarrg.com/nova/internal/hal"
	"goarrg.com/nova/internal/util"
)

/*
Surface is the presentable side of a window. It owns the swapchain, which is
either created or destroyed, and one framebuffer per swapchain image. A Surface
is not safe for concurrent use.
*/
type Surface struct {
	ctx     *Context
	raw     util.Droppable[hal.Surface]
	present QueueID
	format  Format
	pass    *RenderPass
	size    gmath.Extent2i32

	swapchain    hal.Swapchain
	images       []*Image
	framebuffers []*Framebuffer
}

func NewSurface(ctx *Context, window Window) (*Surface, error) {
	raw, err := ctx.device.CreateSurface(window)
	if err != nil {
		return nil, debug.ErrorWrapf(err, "Failed to create surface")
	}
	family, ok := findPresentFamily(ctx.queues.families, raw.SupportsQueueFamily)
	if !ok {
		raw.Destroy()
		return nil, ErrorNoPresentQueue{}
	}
	caps, err := raw.Capabilities()
	if err != nil {
		raw.Destroy()
		return nil, debug.ErrorWrapf(err, "Failed to query surface capabilities")
	}

	w, h := window.FramebufferSize()
	ctx.retain()
	s := &Surface{
		ctx:     ctx,
		present: QueueID{Family: family},
		format:  caps.Format,
		size:    gmath.Extent2i32{X: int32(w), Y: int32(h)},
	}
	s.raw.Set(raw)
	instance.logger.IPrintf("Created surface, format: %s, present queue: %s", s.format, s.present)
	return s, nil
}

// Format is the format of the swapchain images, render passes used with the surface must match it.
func (s *Surface) Format() Format {
	return s.format
}

func (s *Surface) PresentQueue() QueueID {
	return s.present
}

// UseRenderPass selects the render pass framebuffers are created for.
func (s *Surface) UseRenderPass(pass *RenderPass) {
	if pass.format != s.format {
		abort("Render pass format %s does not match surface format %s", pass.format, s.format)
	}
	if s.pass == pass {
		return
	}
	s.destroySwapchain()
	s.pass = pass
}

// Size is the size the next swapchain will be created at.
func (s *Surface) Size() gmath.Extent2i32 {
	return s.size
}

// Resize records a new desired size, the swapchain is recreated on the next Acquire.
func (s *Surface) Resize(size gmath.Extent2i32) {
	if size == s.size {
		return
	}
	instance.logger.VPrintf("Surface resized: %+v -> %+v", s.size, size)
	s.size = size
	s.destroySwapchain()
}

func (s *Surface) ensureSwapchain() error {
	if s.swapchain != nil {
		return nil
	}
	if s.pass == nil {
		abort("Surface has no render pass, call UseRenderPass first")
	}

	raw := s.raw.Get()
	caps, err := raw.Capabilities()
	if err != nil {
		return err
	}
	extent := caps.CurrentExtent
	if extent.Width == 0 || extent.Height == 0 {
		extent = extentOf(s.size)
	}
	if extent.Width == 0 || extent.Height == 0 {
		return debug.Errorf("Cannot create a swapchain for a %dx%d surface", extent.Width, extent.Height)
	}
	count := caps.MinImageCount + 1
	if caps.MaxImageCount > 0 {
		count = min(count, caps.MaxImageCount)
	}
	families := []int{s.ctx.queues.graphics.Family}
	if s.present.Family != s.ctx.queues.graphics.Family {
		families = append(families, s.present.Family)
	}

	sc, err := raw.CreateSwapchain(hal.SwapchainDescriptor{
		Extent:        extent,
		Format:        s.format,
		ImageCount:    count,
		QueueFamilies: families,
	})
	if err != nil {
		return err
	}
	s.swapchain = sc
	extent = sc.Extent()
	s.size = gmath.Extent2i32{X: int32(extent.Width), Y: int32(extent.Height)}

	for _, rawImage := range sc.Images() {
		img := borrowImage(s.ctx, rawImage)
		fb, err := NewFramebuffer(s.pass, img)
		if err != nil {
			s.destroySwapchain()
			return debug.ErrorWrapf(err, "Failed to create swapchain framebuffer")
		}
		s.images = append(s.images, img)
		s.framebuffers = append(s.framebuffers, fb)
	}
	instance.logger.IPrintf("Created swapchain: %dx%d, %d images", extent.Width, extent.Height, len(s.images))
	return nil
}

func (s *Surface) destroySwapchain() {
	if s.swapchain == nil {
		return
	}
	if err := s.ctx.WaitIdle(); err != nil {
		instance.logger.WPrintf("%v", err)
	}
	for _, fb := range s.framebuffers {
		fb.Destroy()
	}
	for _, img := range s.images {
		img.Destroy()
	}
	s.swapchain.Destroy()
	s.swapchain = nil
	s.framebuffers = nil
	s.images = nil
	instance.logger.IPrintf("Destroyed swapchain")
}

/*
Acquire returns the next image to render into, signal is signaled once the
image is ready. An out of date swapchain is recreated and acquiring retried up
to Config.MaxAcquireAttempts times, a lost surface is returned immediately.
*/
func (s *Surface) Acquire(signal *Semaphore) (*Backbuffer, error) {
	sem := signal.raw.Get()
	attempts := int(s.ctx.config.MaxAcquireAttempts)
	for i := 0; i < attempts; i++ {
		if err := s.ensureSwapchain(); err != nil {
			if errors.Is(err, ErrorSurfaceLost{}) {
				return nil, ErrorSurfaceLost{}
			}
			return nil, debug.ErrorWrapf(err, "Failed to create swapchain")
		}

		index, err := s.swapchain.Acquire(sem, hal.WaitForever)
		switch {
		case err == nil:
			return &Backbuffer{
				surface:     s,
				swapchain:   s.swapchain,
				index:       index,
				image:       s.images[index],
				framebuffer: s.framebuffers[index],
			}, nil
		case errors.Is(err, ErrorOutOfDate{}):
			instance.logger.WPrintf("Swapchain out of date on acquire, attempt %d/%d", i+1, attempts)
			s.destroySwapchain()
		case errors.Is(err, ErrorSurfaceLost{}):
			return nil, ErrorSurfaceLost{}
		default:
			return nil, debug.ErrorWrapf(err, "Failed to acquire swapchain image")
		}
	}
	return nil, ErrorAcquireRetriesExceeded{Attempts: attempts}
}

func (s *Surface) Destroy() {
	raw, ok := s.raw.Take()
	if !ok {
		return
	}
	s.destroySwapchain()
	raw.Destroy()
	s.ctx.release()
}

// Backbuffer is one acquired swapchain image, valid until it is presented.
type Backbuffer struct {
	surface     *Surface
	swapchain   hal.Swapchain
	index       uint32
	image       *Image
	framebuffer *Framebuffer
}

func (b *Backbuffer) Index() uint32 {
	return b.index
}

func (b *Backbuffer) Image() *Image {
	return b.image
}

func (b *Backbuffer) Framebuffer() *Framebuffer {
	return b.framebuffer
}

/*
Present queues the image on the surface's present queue after waits. An out of
date swapchain is destroyed and nil returned, the next Acquire recreates it.
A backbuffer whose swapchain was destroyed since Acquire is not presented, its
waits are still consumed.
*/
func (b *Backbuffer) Present(waits ...*Semaphore) error {
	s := b.surface
	if s.swapchain != b.swapchain {
		instance.logger.WPrintf("Dropped present of image %d from a destroyed swapchain", b.index)
		return s.consume(waits)
	}
	err := s.ctx.queues.Present(s.present, b, waits...)
	if errors.Is(err, ErrorOutOfDate{}) {
		instance.logger.WPrintf("Swapchain out of date on present")
		s.destroySwapchain()
		return nil
	}
	return err
}

// consume unsignals binary semaphores that will never reach a present.
func (s *Surface) consume(waits []*Semaphore) error {
	if len(waits) == 0 {
		return nil
	}
	submission := Submission{QueueID: s.present}
	for _, w := range waits {
		submission.WaitSemaphores = append(submission.WaitSemaphores, SemaphoreWait{Semaphore: w, Stage: PipelineStageBottomOfPipe})
	}
	return s.ctx.queues.Submit(&submission)
}
