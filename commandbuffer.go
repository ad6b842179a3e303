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
	"sync"
	"sync/atomic"

	"goarrg.com/debug"
	"goarrg.com/gmath"

	"goarrg.com/nova/internal/container"
	"goarrg.com/nova/internal/hal"
	"goarrg.com/nova/internal/util"
)

/*
Pool owns the command buffers of one queue family. Lists check buffers out of
the pool and return them when destroyed, the pool grows whenever no returned
buffer is available. Only one Recorder may be open per pool at a time.
*/
type Pool struct {
	ctx       *Context
	queueID   QueueID
	raw       util.Droppable[hal.CommandPool]
	recording atomic.Bool

	mtx       sync.Mutex
	free      container.Stack[hal.CommandBuffer]
	allocated int
}

func NewPool(ctx *Context, id QueueID) (*Pool, error) {
	ctx.queues.get(id)
	raw, err := ctx.device.CreateCommandPool(id.Family)
	if err != nil {
		return nil, debug.ErrorWrapf(err, "Failed to create command pool for %s", id)
	}
	ctx.retain()
	p := &Pool{ctx: ctx, queueID: id}
	p.raw.Set(raw)
	return p, nil
}

func (p *Pool) QueueID() QueueID {
	return p.queueID
}

func (p *Pool) checkOut() (hal.CommandBuffer, error) {
	raw := p.raw.Get()
	p.mtx.Lock()
	defer p.mtx.Unlock()
	if cb, ok := p.free.TryPop(); ok {
		return cb, nil
	}
	cb, err := raw.Allocate()
	if err != nil {
		return nil, debug.ErrorWrapf(err, "Failed to allocate command buffer")
	}
	p.allocated++
	instance.logger.VPrintf("Pool for %s grew to %d command buffers", p.queueID, p.allocated)
	return cb, nil
}

func (p *Pool) checkIn(cb hal.CommandBuffer) {
	if !p.raw.Alive() {
		return
	}
	p.mtx.Lock()
	p.free.Push(cb)
	p.mtx.Unlock()
}

// Destroy frees every command buffer of the pool, lists still checked out become unusable.
func (p *Pool) Destroy() {
	raw, ok := p.raw.Take()
	if !ok {
		return
	}
	p.mtx.Lock()
	p.free.Drain(raw.Free)
	p.mtx.Unlock()
	raw.Destroy()
	p.ctx.release()
}

type listState int

const (
	listInitial listState = iota
	listRecording
	listExecutable
)

// List is one command buffer checked out of a Pool.
type List struct {
	pool  *Pool
	raw   util.Droppable[hal.CommandBuffer]
	state listState
}

func NewList(pool *Pool) (*List, error) {
	cb, err := pool.checkOut()
	if err != nil {
		return nil, err
	}
	l := &List{pool: pool}
	l.raw.Set(cb)
	return l, nil
}

func (l *List) QueueID() QueueID {
	return l.pool.queueID
}

/*
Record begins recording into the list, discarding what it held before. It is a
fault to call Record while another Recorder of the same pool is still open.
*/
func (l *List) Record() *Recorder {
	cb := l.raw.Get()
	if !l.pool.recording.CompareAndSwap(false, true) {
		abort("Pool for %s already has an open Recorder", l.pool.queueID)
	}
	if err := cb.Begin(); err != nil {
		l.pool.recording.Store(false)
		abort("Failed to begin command buffer: %v", err)
	}
	l.state = listRecording

	r := &Recorder{list: l, cb: cb}
	r.noCopy.Init()
	return r
}

// Destroy returns the command buffer to its pool.
func (l *List) Destroy() {
	cb, ok := l.raw.Take()
	if !ok {
		return
	}
	if l.state == listRecording {
		abort("List destroyed while recording")
	}
	l.pool.checkIn(cb)
}

// Recorder is an exclusive recording session of one List, it ends with Finish.
type Recorder struct {
	noCopy       util.NoCopy
	list         *List
	cb           hal.CommandBuffer
	inRenderPass bool
	framebuffer  *Framebuffer
	pipeline     *Pipeline
}

func (r *Recorder) requireRenderPass(op string) {
	if !r.inRenderPass {
		abort("%s called outside a render pass", op)
	}
}

func (r *Recorder) BeginRenderPass(fb *Framebuffer, clear [4]float32) {
	r.noCopy.Check()
	if r.inRenderPass {
		abort("BeginRenderPass called inside a render pass")
	}
	r.cb.BeginRenderPass(fb.pass.raw.Get(), fb.raw.Get(), hal.Rect{Extent: extentOf(fb.size)}, clear)
	r.inRenderPass = true
	r.framebuffer = fb
}

func (r *Recorder) EndRenderPass() {
	r.noCopy.Check()
	r.requireRenderPass("EndRenderPass")
	r.cb.EndRenderPass()
	r.inRenderPass = false
	r.framebuffer = nil
}

func (r *Recorder) BindPipeline(p *Pipeline) {
	r.noCopy.Check()
	r.cb.BindPipeline(p.raw.Get())
	r.pipeline = p
}

func (r *Recorder) BindVertexBuffers(first int, buffers ...*Buffer) {
	r.noCopy.Check()
	raws := make([]hal.Buffer, len(buffers))
	offsets := make([]uint64, len(buffers))
	for i, b := range buffers {
		if b.kind != BufferKindVertex {
			abort("BindVertexBuffers: buffer %d is a %s buffer", i, b.kind)
		}
		raws[i] = b.raw.Get()
	}
	r.cb.BindVertexBuffers(first, raws, offsets)
}

func (r *Recorder) BindIndexBuffer(b *Buffer, t IndexType) {
	r.noCopy.Check()
	if b.kind != BufferKindIndex {
		abort("BindIndexBuffer: buffer is a %s buffer", b.kind)
	}
	r.cb.BindIndexBuffer(b.raw.Get(), 0, t)
}

// BindDescriptorSets binds sets starting at first using the layout of the bound pipeline.
func (r *Recorder) BindDescriptorSets(first int, sets ...*DescriptorSet) {
	r.noCopy.Check()
	if r.pipeline == nil {
		abort("BindDescriptorSets called without a bound pipeline")
	}
	if first+len(sets) > len(r.pipeline.descriptorLayouts) {
		abort("BindDescriptorSets: binding %d sets at %d, pipeline has %d", len(sets), first, len(r.pipeline.descriptorLayouts))
	}
	raws := make([]hal.DescriptorSet, len(sets))
	for i, s := range sets {
		if s.pool.layout != r.pipeline.descriptorLayouts[first+i] {
			abort("BindDescriptorSets: set %d does not match pipeline layout", first+i)
		}
		s.pool.raw.Get()
		raws[i] = s.raw
	}
	r.cb.BindDescriptorSets(r.pipeline.layout.Get(), first, raws)
}

// PushConstants uploads data to the bound pipeline, data must match the pipeline's push constant size exactly.
func (r *Recorder) PushConstants(data []byte) {
	r.noCopy.Check()
	if r.pipeline == nil {
		abort("PushConstants called without a bound pipeline")
	}
	if uint32(len(data)) != r.pipeline.pushConstantSize {
		abort("PushConstants: got %d bytes, pipeline expects %d", len(data), r.pipeline.pushConstantSize)
	}
	r.cb.PushConstants(r.pipeline.layout.Get(), pushConstantStages, 0, data)
}

// PushConstants pushes the in memory representation of v.
func PushConstants[T any](r *Recorder, v T) {
	r.PushConstants(util.Bytes(&v))
}

func (r *Recorder) SetViewport(v gmath.Recti32) {
	r.noCopy.Check()
	r.requireRenderPass("SetViewport")
	r.cb.SetViewport(rectOf(v))
}

func (r *Recorder) SetScissor(s gmath.Recti32) {
	r.noCopy.Check()
	r.requireRenderPass("SetScissor")
	r.cb.SetScissor(rectOf(s))
}

func (r *Recorder) Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	r.noCopy.Check()
	r.requireRenderPass("Draw")
	if r.pipeline == nil {
		abort("Draw called without a bound pipeline")
	}
	r.cb.Draw(vertexCount, instanceCount, firstVertex, firstInstance)
}

func (r *Recorder) DrawIndexed(indexCount, instanceCount, firstIndex uint32, vertexOffset int32, firstInstance uint32) {
	r.noCopy.Check()
	r.requireRenderPass("DrawIndexed")
	if r.pipeline == nil {
		abort("DrawIndexed called without a bound pipeline")
	}
	r.cb.DrawIndexed(indexCount, instanceCount, firstIndex, vertexOffset, firstInstance)
}

/*
PipelineBarrier makes the work of stages.Src visible to stages.Dst. Image
layouts are only ever changed through barriers, the caller states both the
layout the image is in and the one it moves to.
*/
func (r *Recorder) PipelineBarrier(stages StageRange, barriers ...Barrier) {
	r.noCopy.Check()
	if r.inRenderPass {
		abort("PipelineBarrier called inside a render pass")
	}
	if stages.Src == 0 || stages.Dst == 0 {
		abort("PipelineBarrier with an empty stage mask: %s -> %s", stages.Src, stages.Dst)
	}
	raws := make([]hal.Barrier, len(barriers))
	for i, b := range barriers {
		raws[i] = b.barrier()
	}
	r.cb.PipelineBarrier(stages.Src, stages.Dst, raws)
}

// BufferCopyRegion is measured in elements of the buffers' stride.
type BufferCopyRegion struct {
	SrcIndex uint64
	DstIndex uint64
	Len      uint64
}

func (r *Recorder) CopyBuffer(src, dst *Buffer, regions ...BufferCopyRegion) {
	r.noCopy.Check()
	if src.stride != dst.stride {
		abort("CopyBuffer: stride mismatch, src %d dst %d", src.stride, dst.stride)
	}
	raws := make([]hal.BufferCopy, len(regions))
	for i, region := range regions {
		if region.SrcIndex+region.Len > src.Len() || region.DstIndex+region.Len > dst.Len() {
			abort("CopyBuffer: region %+v out of range (src %d, dst %d)", region, src.Len(), dst.Len())
		}
		raws[i] = hal.BufferCopy{
			SrcOffset: region.SrcIndex * src.stride,
			DstOffset: region.DstIndex * dst.stride,
			Size:      region.Len * src.stride,
		}
	}
	r.copyBytes(src, dst, raws...)
}

func (r *Recorder) copyBytes(src, dst *Buffer, regions ...hal.BufferCopy) {
	r.noCopy.Check()
	if r.inRenderPass {
		abort("Copy called inside a render pass")
	}
	r.cb.CopyBuffer(src.raw.Get(), dst.raw.Get(), regions)
}

// ImageCopyRegion places Extent texels at Offset in the image, buffer data is tightly packed from BufferOffset.
type ImageCopyRegion struct {
	BufferOffset uint64
	Offset       gmath.Extent2i32
	Extent       gmath.Extent2i32
}

func (region ImageCopyRegion) raw(img *Image) hal.BufferImageCopy {
	if region.Extent == (gmath.Extent2i32{}) {
		region.Extent = img.size
	}
	if region.Offset.X < 0 || region.Offset.Y < 0 ||
		region.Offset.X+region.Extent.X > img.size.X || region.Offset.Y+region.Extent.Y > img.size.Y {
		abort("Image copy region %+v out of range of image %+v", region, img.size)
	}
	return hal.BufferImageCopy{
		BufferOffset: region.BufferOffset,
		ImageOffset:  hal.Offset{X: region.Offset.X, Y: region.Offset.Y},
		ImageExtent:  extentOf(region.Extent),
	}
}

// CopyBufferToImage copies into img which must be in layout, a zero Extent copies the whole image.
func (r *Recorder) CopyBufferToImage(src *Buffer, img *Image, layout ImageLayout, regions ...ImageCopyRegion) {
	r.noCopy.Check()
	if r.inRenderPass {
		abort("CopyBufferToImage called inside a render pass")
	}
	img.requireUsage("CopyBufferToImage", ImageUsageTransferDst)
	raws := make([]hal.BufferImageCopy, len(regions))
	for i, region := range regions {
		raws[i] = region.raw(img)
		if raws[i].BufferOffset+img.regionSize(raws[i]) > src.size {
			abort("CopyBufferToImage: region %+v reads past the end of the buffer", region)
		}
	}
	r.cb.CopyBufferToImage(src.raw.Get(), img.raw.Get(), layout, raws)
}

func (r *Recorder) CopyImageToBuffer(img *Image, layout ImageLayout, dst *Buffer, regions ...ImageCopyRegion) {
	r.noCopy.Check()
	if r.inRenderPass {
		abort("CopyImageToBuffer called inside a render pass")
	}
	img.requireUsage("CopyImageToBuffer", ImageUsageTransferSrc)
	raws := make([]hal.BufferImageCopy, len(regions))
	for i, region := range regions {
		raws[i] = region.raw(img)
		if raws[i].BufferOffset+img.regionSize(raws[i]) > dst.size {
			abort("CopyImageToBuffer: region %+v writes past the end of the buffer", region)
		}
	}
	r.cb.CopyImageToBuffer(img.raw.Get(), layout, dst.raw.Get(), raws)
}

/*
Finish ends recording and frees the pool for the next Recorder, an open render
pass is closed first. The Recorder must not be used afterwards.
*/
func (r *Recorder) Finish() {
	r.noCopy.Check()
	if r.inRenderPass {
		instance.logger.VPrintf("Finish closed an open render pass")
		r.EndRenderPass()
	}
	err := r.cb.End()
	r.list.state = listExecutable
	r.list.pool.recording.Store(false)
	r.noCopy.Close()
	if err != nil {
		r.list.state = listInitial
		abort("Failed to end command buffer: %v", err)
	}
}

func extentOf(e gmath.Extent2i32) hal.Extent {
	return hal.Extent{Width: uint32(max(e.X, 0)), Height: uint32(max(e.Y, 0))}
}

func rectOf(r gmath.Recti32) hal.Rect {
	return hal.Rect{
		Offset: hal.Offset{X: r.X, Y: r.Y},
		Extent: hal.Extent{Width: uint32(max(r.W, 0)), Height: uint32(max(r.H, 0))},
	}
}
