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
	_ "embed"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"goarrg.com/debug"
	"goarrg.com/gmath"

	"goarrg.com/nova/internal/util"
	"goarrg.com/nova/managed"
)

//go:embed shaders/quad.wgsl
var quadShaderWGSL string

const (
	quadVertexEntryPoint   = "vs_main"
	quadFragmentEntryPoint = "fs_main"
)

type quadVertex struct {
	Position [2]float32
	UV       [2]float32
}

type quadTransform struct {
	Scale  [2]float32
	Offset [2]float32
}

var quadVertices = []quadVertex{
	{Position: [2]float32{-1, -1}, UV: [2]float32{0, 0}},
	{Position: [2]float32{1, -1}, UV: [2]float32{1, 0}},
	{Position: [2]float32{-1, 1}, UV: [2]float32{0, 1}},
	{Position: [2]float32{1, 1}, UV: [2]float32{1, 1}},
}

/*
RendererOptions configures the textured quad drawn every frame. Custom shaders
are SPIR-V and must use the entry points vs_main and fs_main with the bindings
of the built-in shaders/quad.wgsl.
*/
type RendererOptions struct {
	TextureSize gmath.Extent2i32
	// TexturePixels are tightly packed RGBA8, a 2x2 checkerboard is used when empty.
	TexturePixels  []byte
	VertexShader   []byte
	FragmentShader []byte
	// Tint multiplies the texture, white when zero.
	Tint [4]float32
}

func (o *RendererOptions) fill() {
	if len(o.TexturePixels) == 0 {
		o.TextureSize = gmath.Extent2i32{X: 2, Y: 2}
		o.TexturePixels = []byte{
			255, 255, 255, 255, 96, 96, 96, 255,
			96, 96, 96, 255, 255, 255, 255, 255,
		}
	}
	if o.Tint == ([4]float32{}) {
		o.Tint = [4]float32{1, 1, 1, 1}
	}
}

type rendererMessage interface {
	rendererMessage()
}

type resizeSurfaceMessage struct {
	size gmath.Extent2i32
}

type setTextureMessage struct {
	size   gmath.Extent2i32
	pixels []byte
}

type shutDownMessage struct{}

func (resizeSurfaceMessage) rendererMessage() {}
func (setTextureMessage) rendererMessage()    {}
func (shutDownMessage) rendererMessage()      {}

/*
Renderer draws frames on its own goroutine at Config.FrameRate until it is shut
down or an error stops it. The Renderer only holds the channels used to talk to
that goroutine, every GPU object is owned by the goroutine.
*/
type Renderer struct {
	control  chan rendererMessage
	done     chan struct{}
	shutDown sync.Once
	err      error
	frames   atomic.Int64
}

/*
StartRenderer creates the renderer's resources on a new goroutine, uploading
the initial data through loader, and returns once they exist. logger may be
nil to use the package logger.
*/
func StartRenderer(ctx *Context, window Window, loader *Loader, logger *debug.Logger, opts RendererOptions) (*Renderer, error) {
	if logger == nil {
		logger = instance.logger
	}
	opts.fill()
	r := &Renderer{
		control: make(chan rendererMessage, 16),
		done:    make(chan struct{}),
	}
	setup := make(chan error)
	go r.run(ctx, window, loader, logger, opts, setup)
	if err := <-setup; err != nil {
		return nil, debug.ErrorWrapf(err, "Failed to start renderer")
	}
	logger.IPrintf("Renderer started at %.2f Hz", ctx.config.FrameRate)
	return r, nil
}

func (r *Renderer) send(m rendererMessage) {
	select {
	case r.control <- m:
	case <-r.done:
	}
}

// ResizeSurface tells the renderer the window's framebuffer changed size.
func (r *Renderer) ResizeSurface(size gmath.Extent2i32) {
	r.send(resizeSurfaceMessage{size: size})
}

// SetTexture replaces the quad's texture once the upload of rgba completes.
func (r *Renderer) SetTexture(size gmath.Extent2i32, rgba []byte) {
	if size.X < 1 || size.Y < 1 || uint64(len(rgba)) != uint64(size.X)*uint64(size.Y)*4 {
		abort("SetTexture: %d bytes is not a %dx%d RGBA8 image", len(rgba), size.X, size.Y)
	}
	r.send(setTextureMessage{size: size, pixels: rgba})
}

/*
ShutDown stops the renderer after the frame in progress and blocks until every
resource it owned is destroyed. It returns the error that stopped the renderer
early, if any, and may be called more than once.
*/
func (r *Renderer) ShutDown() error {
	r.shutDown.Do(func() {
		r.send(shutDownMessage{})
	})
	<-r.done
	return r.err
}

// Done is closed once the renderer stopped, either by ShutDown or an error.
func (r *Renderer) Done() <-chan struct{} {
	return r.done
}

// FrameCount returns the number of frames presented so far.
func (r *Renderer) FrameCount() int64 {
	return r.frames.Load()
}

func (r *Renderer) run(ctx *Context, window Window, loader *Loader, logger *debug.Logger, opts RendererOptions, setup chan<- error) {
	defer close(r.done)

	s, err := newRenderState(ctx, window, loader, logger, opts)
	setup <- err
	if err != nil {
		return
	}
	defer s.destroy()

	ticker := time.NewTicker(time.Duration(float64(time.Second) / ctx.config.FrameRate))
	defer ticker.Stop()

	for {
		for drained := false; !drained; {
			select {
			case m := <-r.control:
				if s.handle(m) {
					logger.IPrintf("Renderer shutting down after %d frames", r.frames.Load())
					return
				}
			default:
				drained = true
			}
		}

		presented, err := s.render()
		if err != nil {
			logger.EPrintf("Renderer stopped: %v", err)
			r.err = err
			return
		}
		if presented {
			r.frames.Add(1)
		}

		select {
		case <-ticker.C:
		case m := <-r.control:
			if s.handle(m) {
				logger.IPrintf("Renderer shutting down after %d frames", r.frames.Load())
				return
			}
		}
	}
}

type frame struct {
	list       *List
	fence      *Fence
	acquired   *Semaphore
	rendered   *Semaphore
	set        *DescriptorSet
	submission Submission
	// version of the texture set is pointing at.
	version int
}

func (f *frame) Destroy() {
	if f.list != nil {
		f.list.Destroy()
	}
	if f.fence != nil {
		f.fence.Destroy()
	}
	if f.acquired != nil {
		f.acquired.Destroy()
	}
	if f.rendered != nil {
		f.rendered.Destroy()
	}
}

type renderState struct {
	ctx    *Context
	window Window
	loader *Loader
	logger *debug.Logger
	clear  [4]float32
	tint   [4]float32

	pass           *RenderPass
	surface        *Surface
	vertexShader   *ShaderModule
	fragmentShader *ShaderModule
	layout         *DescriptorLayout
	descriptorPool *DescriptorPool
	sampler        *Sampler
	pipeline       *Pipeline
	pool           *Pool
	frames         *Chain[*frame]
	retirer        *managed.Retirer

	vertices       *Buffer
	uniforms       *Buffer
	texture        *Image
	pendingTexture *LoaderResult[*Image]
	version        int
}

func newRenderState(ctx *Context, window Window, loader *Loader, logger *debug.Logger, opts RendererOptions) (*renderState, error) {
	s := &renderState{
		ctx:    ctx,
		window: window,
		loader: loader,
		logger: logger,
		clear:  ctx.config.ClearColor,
		tint:   opts.Tint,
	}
	if err := s.setup(opts); err != nil {
		s.destroy()
		return nil, err
	}
	return s, nil
}

func (s *renderState) setupShaders(opts RendererOptions) error {
	var err error
	if len(opts.VertexShader) == 0 || len(opts.FragmentShader) == 0 {
		spirv, err := CompileWGSL(quadShaderWGSL)
		if err != nil {
			return err
		}
		if s.vertexShader, err = NewShaderModule(s.ctx, spirv); err != nil {
			return err
		}
		s.fragmentShader = s.vertexShader
		return nil
	}
	if s.vertexShader, err = NewShaderModule(s.ctx, opts.VertexShader); err != nil {
		return debug.ErrorWrapf(err, "Invalid vertex shader")
	}
	if s.fragmentShader, err = NewShaderModule(s.ctx, opts.FragmentShader); err != nil {
		return debug.ErrorWrapf(err, "Invalid fragment shader")
	}
	return nil
}

func (s *renderState) setup(opts RendererOptions) (err error) {
	ctx := s.ctx

	// Uploads run while the rest is created.
	vertices := LoadBuffer(s.loader, BufferKindVertex, quadVertices)
	uniforms := LoadBuffer(s.loader, BufferKindUniform, []quadTransform{{Scale: [2]float32{0.8, 0.8}}})
	texture := s.loader.LoadImage(opts.TextureSize, opts.TexturePixels)
	defer func() {
		if err == nil {
			return
		}
		for _, res := range []*LoaderResult[*Buffer]{vertices, uniforms} {
			if b, err := res.Recv(); err == nil {
				b.Destroy()
			}
		}
		if img, err := texture.Recv(); err == nil {
			img.Destroy()
		}
	}()

	if s.surface, err = NewSurface(ctx, s.window); err != nil {
		return err
	}
	if s.pass, err = NewRenderPass(ctx, s.surface.Format(), AttachmentLoadOpClear, ImageLayoutPresentSrc); err != nil {
		return err
	}
	s.surface.UseRenderPass(s.pass)

	if err := s.setupShaders(opts); err != nil {
		return err
	}
	if s.layout, err = NewDescriptorLayout(ctx, ShaderStageGraphics,
		DescriptorKindUniformBuffer, DescriptorKindSampledImage, DescriptorKindSampler); err != nil {
		return err
	}
	n := int(ctx.config.MaxFramesInFlight)
	if s.descriptorPool, err = NewDescriptorPool(s.layout, uint32(n)); err != nil {
		return err
	}
	if s.sampler, err = NewSampler(ctx, SamplerFilterLinear); err != nil {
		return err
	}
	if s.pipeline, err = NewGraphicsPipeline(ctx, GraphicsPipelineCreateInfo{
		RenderPass:         s.pass,
		VertexShader:       s.vertexShader,
		FragmentShader:     s.fragmentShader,
		VertexEntryPoint:   quadVertexEntryPoint,
		FragmentEntryPoint: quadFragmentEntryPoint,
		VertexBuffers: []VertexBufferLayout{{
			Stride: uint32(util.SizeOf[quadVertex]()),
			Attributes: []VertexAttribute{
				{Location: 0, Format: FormatR32G32Sfloat, Offset: 0},
				{Location: 1, Format: FormatR32G32Sfloat, Offset: 8},
			},
		}},
		DescriptorLayouts: []*DescriptorLayout{s.layout},
		PushConstantSize:  uint32(util.SizeOf[[4]float32]()),
		Topology:          PrimitiveTopologyTriangleStrip,
	}); err != nil {
		return err
	}
	if s.pool, err = NewPool(ctx, ctx.queues.Graphics()); err != nil {
		return err
	}
	if s.frames, err = NewChain(n, s.newFrame); err != nil {
		return err
	}
	s.retirer = managed.NewRetirer(n)

	if s.vertices, err = vertices.Recv(); err != nil {
		return debug.ErrorWrapf(err, "Failed to upload quad vertices")
	}
	if s.uniforms, err = uniforms.Recv(); err != nil {
		return debug.ErrorWrapf(err, "Failed to upload quad transform")
	}
	if s.texture, err = texture.Recv(); err != nil {
		return debug.ErrorWrapf(err, "Failed to upload texture")
	}

	s.frames.Each(func(f *frame) {
		f.set.Write(0, DescriptorBufferInfo{Buffer: s.uniforms})
		f.set.Write(2, DescriptorSamplerInfo{Sampler: s.sampler})
		f.version = -1
	})
	return nil
}

func (s *renderState) newFrame(i int) (*frame, error) {
	f := &frame{}
	var err error
	if f.list, err = NewList(s.pool); err != nil {
		f.Destroy()
		return nil, err
	}
	if f.fence, err = NewFence(s.ctx, true); err != nil {
		f.Destroy()
		return nil, err
	}
	if f.acquired, err = NewSemaphore(s.ctx); err != nil {
		f.Destroy()
		return nil, err
	}
	if f.rendered, err = NewSemaphore(s.ctx); err != nil {
		f.Destroy()
		return nil, err
	}
	if f.set, err = s.descriptorPool.Allocate(); err != nil {
		f.Destroy()
		return nil, err
	}
	return f, nil
}

// handle applies a control message and reports whether the renderer should stop.
func (s *renderState) handle(m rendererMessage) bool {
	switch m := m.(type) {
	case resizeSurfaceMessage:
		s.surface.Resize(m.size)
	case setTextureMessage:
		if s.pendingTexture != nil {
			if img, err := s.pendingTexture.Recv(); err == nil {
				img.Destroy()
			}
		}
		s.pendingTexture = s.loader.LoadImage(m.size, m.pixels)
	case shutDownMessage:
		return true
	}
	return false
}

// pollTexture swaps in a finished texture upload, the old texture is retired with the most recent frame.
func (s *renderState) pollTexture() {
	if s.pendingTexture == nil {
		return
	}
	img, ok, err := s.pendingTexture.TryRecv()
	if !ok {
		return
	}
	s.pendingTexture = nil
	if err != nil {
		s.logger.WPrintf("Texture upload failed: %v", err)
		return
	}
	s.retirer.Retire(s.frames.Index(), s.texture)
	s.texture = img
	s.version++
	s.logger.VPrintf("Texture replaced, version %d", s.version)
}

// render draws one frame and reports whether it was presented.
func (s *renderState) render() (bool, error) {
	if w, h := s.window.FramebufferSize(); w <= 0 || h <= 0 {
		return false, nil
	}
	s.pollTexture()

	f := s.frames.Next()
	if err := f.fence.WaitAndReset(); err != nil {
		return false, err
	}
	s.retirer.Release(s.frames.Index())
	if f.version != s.version {
		f.set.Write(1, DescriptorImageInfo{Image: s.texture, Layout: ImageLayoutShaderReadOnlyOptimal})
		f.version = s.version
	}

	backbuffer, err := s.surface.Acquire(f.acquired)
	if err != nil {
		// The window was minimized mid acquire.
		if w, h := s.window.FramebufferSize(); errors.Is(err, ErrorAcquireRetriesExceeded{}) && (w <= 0 || h <= 0) {
			s.logger.VPrintf("Skipped frame, window minimized during acquire")
			return false, s.signalFence(f)
		}
		return false, err
	}

	fb := backbuffer.Framebuffer()
	area := gmath.Recti32{W: fb.Size().X, H: fb.Size().Y}
	r := f.list.Record()
	r.BeginRenderPass(fb, s.clear)
	r.SetViewport(area)
	r.SetScissor(area)
	r.BindPipeline(s.pipeline)
	r.BindDescriptorSets(0, f.set)
	r.BindVertexBuffers(0, s.vertices)
	PushConstants(r, s.tint)
	r.Draw(uint32(len(quadVertices)), 1, 0, 0)
	r.EndRenderPass()
	r.Finish()

	f.submission.Clear()
	f.submission.QueueID = s.ctx.queues.Graphics()
	f.submission.Lists = append(f.submission.Lists, f.list)
	f.submission.WaitSemaphores = append(f.submission.WaitSemaphores,
		SemaphoreWait{Semaphore: f.acquired, Stage: PipelineStageColorAttachmentOutput})
	f.submission.SignalSemaphores = append(f.submission.SignalSemaphores, f.rendered)
	f.submission.Fence = f.fence
	if err := s.ctx.queues.Submit(&f.submission); err != nil {
		return false, err
	}

	if err := backbuffer.Present(f.rendered); err != nil {
		return false, err
	}
	return true, nil
}

// signalFence submits nothing but the fence, so a skipped frame does not deadlock its slot.
func (s *renderState) signalFence(f *frame) error {
	f.submission.Clear()
	f.submission.QueueID = s.ctx.queues.Graphics()
	f.submission.Fence = f.fence
	return s.ctx.queues.Submit(&f.submission)
}

func (s *renderState) destroy() {
	if err := s.ctx.WaitIdle(); err != nil {
		s.logger.WPrintf("%v", err)
	}
	if s.pendingTexture != nil {
		if img, err := s.pendingTexture.Recv(); err == nil {
			img.Destroy()
		}
	}
	if s.frames != nil {
		s.frames.Each(func(f *frame) { f.Destroy() })
	}
	if s.retirer != nil {
		s.retirer.Destroy()
	}
	if s.pool != nil {
		s.pool.Destroy()
	}
	if s.pipeline != nil {
		s.pipeline.Destroy()
	}
	if s.descriptorPool != nil {
		s.descriptorPool.Destroy()
	}
	if s.layout != nil {
		s.layout.Destroy()
	}
	if s.sampler != nil {
		s.sampler.Destroy()
	}
	if s.texture != nil {
		s.texture.Destroy()
	}
	if s.vertices != nil {
		s.vertices.Destroy()
	}
	if s.uniforms != nil {
		s.uniforms.Destroy()
	}
	if s.vertexShader != nil {
		s.vertexShader.Destroy()
	}
	if s.fragmentShader != nil {
		s.fragmentShader.Destroy()
	}
	if s.surface != nil {
		s.surface.Destroy()
	}
	if s.pass != nil {
		s.pass.Destroy()
	}
}
