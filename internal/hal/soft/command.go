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

	"goarrg.com/debug"

	"goarrg.com/nova/internal/hal"
)

type commandPool struct {
	object
	family int

	mtx       sync.Mutex
	allocated map[*commandBuffer]struct{}
}

var _ hal.CommandPool = (*commandPool)(nil)

func (d *Device) CreateCommandPool(family int) (hal.CommandPool, error) {
	if d.Queue(family) == nil {
		return nil, debug.Errorf("Invalid queue family: %d", family)
	}
	p := &commandPool{family: family, allocated: map[*commandBuffer]struct{}{}}
	p.init(d, "command pool")
	return p, nil
}

func (p *commandPool) Allocate() (hal.CommandBuffer, error) {
	p.check()
	cb := &commandBuffer{pool: p}
	p.mtx.Lock()
	p.allocated[cb] = struct{}{}
	p.mtx.Unlock()
	return cb, nil
}

func (p *commandPool) Free(c hal.CommandBuffer) {
	cb := c.(*commandBuffer)
	p.mtx.Lock()
	defer p.mtx.Unlock()
	if _, ok := p.allocated[cb]; !ok {
		p.device.validationf("command buffer freed twice or to the wrong pool")
		return
	}
	delete(p.allocated, cb)
}

func (p *commandPool) Destroy() {
	p.release()
}

const (
	stateInitial = iota
	stateRecording
	stateExecutable
)

/*
commandBuffer records closures that the owning queue runs in order. Validation
that only depends on the recording (render pass nesting, bound pipeline) is
done while recording, everything touching resource state is done on execution.
*/
type commandBuffer struct {
	pool  *commandPool
	state int
	ops   []func()

	inRenderPass bool
	pass         *renderPass
	fb           *framebuffer
	pipeline     *pipeline
}

var _ hal.CommandBuffer = (*commandBuffer)(nil)

func (cb *commandBuffer) validationf(format string, args ...any) {
	cb.pool.device.validationf(format, args...)
}

func (cb *commandBuffer) record(op func()) {
	if cb.state != stateRecording {
		cb.validationf("command recorded outside of Begin/End")
		return
	}
	cb.ops = append(cb.ops, op)
}

func (cb *commandBuffer) Begin() error {
	if cb.state == stateRecording {
		return debug.Errorf("Command buffer is already recording")
	}
	cb.ops = nil
	cb.inRenderPass = false
	cb.pass = nil
	cb.fb = nil
	cb.pipeline = nil
	cb.state = stateRecording
	return nil
}

func (cb *commandBuffer) End() error {
	if cb.state != stateRecording {
		return debug.Errorf("Command buffer is not recording")
	}
	if cb.inRenderPass {
		cb.validationf("command buffer ended inside a render pass")
	}
	cb.state = stateExecutable
	return nil
}

func (cb *commandBuffer) BeginRenderPass(p hal.RenderPass, f hal.Framebuffer, area hal.Rect, clear [4]float32) {
	pass := p.(*renderPass)
	fb := f.(*framebuffer)
	if cb.inRenderPass {
		cb.validationf("render pass begun inside a render pass")
	}
	if fb.pass != pass {
		cb.validationf("framebuffer was created for a different render pass")
	}
	cb.inRenderPass = true
	cb.pass = pass
	cb.fb = fb

	attachments := fb.attachments
	cb.record(func() {
		for _, img := range attachments {
			img.setLayout(hal.ImageLayoutColorAttachmentOptimal)
			if pass.desc.LoadOp == hal.AttachmentLoadOpClear {
				img.fill(area, encodeTexel(img.desc.Format, clear))
			}
		}
	})
}

func (cb *commandBuffer) EndRenderPass() {
	if !cb.inRenderPass {
		cb.validationf("render pass ended outside of a render pass")
		return
	}
	cb.inRenderPass = false
	final := cb.pass.desc.FinalLayout
	attachments := cb.fb.attachments
	cb.record(func() {
		for _, img := range attachments {
			img.setLayout(final)
		}
	})
}

func (cb *commandBuffer) BindPipeline(p hal.Pipeline) {
	cb.pipeline = p.(*pipeline)
	cb.pipeline.check()
}

func (cb *commandBuffer) BindVertexBuffers(first int, buffers []hal.Buffer, offsets []uint64) {
	if len(buffers) != len(offsets) {
		cb.validationf("BindVertexBuffers: %d buffers but %d offsets", len(buffers), len(offsets))
	}
	for _, b := range buffers {
		if b.(*buffer).desc.Usage&hal.BufferUsageVertex == 0 {
			cb.validationf("buffer bound as vertex buffer without vertex usage")
		}
	}
}

func (cb *commandBuffer) BindIndexBuffer(b hal.Buffer, offset uint64, t hal.IndexType) {
	if b.(*buffer).desc.Usage&hal.BufferUsageIndex == 0 {
		cb.validationf("buffer bound as index buffer without index usage")
	}
}

func (cb *commandBuffer) BindDescriptorSets(layout hal.PipelineLayout, first int, sets []hal.DescriptorSet) {
	l := layout.(*pipelineLayout)
	if first+len(sets) > len(l.desc.SetLayouts) {
		cb.validationf("BindDescriptorSets: binding %d sets at %d, layout has %d", len(sets), first, len(l.desc.SetLayouts))
	}
}

func (cb *commandBuffer) PushConstants(layout hal.PipelineLayout, stages hal.ShaderStage, offset uint32, data []byte) {
	l := layout.(*pipelineLayout)
	if offset+uint32(len(data)) > l.desc.PushConstants.Size {
		cb.validationf("PushConstants: %d bytes at %d exceed range of %d", len(data), offset, l.desc.PushConstants.Size)
	}
	if stages&l.desc.PushConstants.Stages != stages {
		cb.validationf("PushConstants: stages %#x not in layout range %#x", stages, l.desc.PushConstants.Stages)
	}
}

func (cb *commandBuffer) SetViewport(v hal.Rect) {}

func (cb *commandBuffer) SetScissor(r hal.Rect) {}

func (cb *commandBuffer) draw() {
	if !cb.inRenderPass {
		cb.validationf("draw outside of a render pass")
	}
	if cb.pipeline == nil {
		cb.validationf("draw without a bound pipeline")
	}
	d := cb.pool.device
	cb.record(func() { d.draws.Add(1) })
}

func (cb *commandBuffer) Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	cb.draw()
}

func (cb *commandBuffer) DrawIndexed(indexCount, instanceCount, firstIndex uint32, vertexOffset int32, firstInstance uint32) {
	cb.draw()
}

func (cb *commandBuffer) PipelineBarrier(src, dst hal.PipelineStage, barriers []hal.Barrier) {
	if cb.inRenderPass {
		cb.validationf("pipeline barrier inside a render pass")
	}
	if src == 0 || dst == 0 {
		cb.validationf("pipeline barrier with empty stage mask: %s -> %s", src, dst)
	}
	for _, b := range barriers {
		if b.Image == nil {
			continue
		}
		img := b.Image.(*image)
		b := b
		cb.record(func() {
			if b.OldLayout != hal.ImageLayoutUndefined && img.Layout() != b.OldLayout {
				cb.validationf("barrier expected layout %s but image is in %s", b.OldLayout, img.Layout())
			}
			img.setLayout(b.NewLayout)
		})
	}
}

func (cb *commandBuffer) CopyBuffer(s, d hal.Buffer, regions []hal.BufferCopy) {
	src := s.(*buffer)
	dst := d.(*buffer)
	if src.desc.Usage&hal.BufferUsageTransferSrc == 0 || dst.desc.Usage&hal.BufferUsageTransferDst == 0 {
		cb.validationf("CopyBuffer without transfer usage")
	}
	for _, r := range regions {
		if r.SrcOffset+r.Size > src.Size() || r.DstOffset+r.Size > dst.Size() {
			cb.validationf("CopyBuffer region %+v out of range (src %d, dst %d)", r, src.Size(), dst.Size())
			return
		}
	}
	cb.record(func() {
		for _, r := range regions {
			copy(dst.data[r.DstOffset:r.DstOffset+r.Size], src.data[r.SrcOffset:r.SrcOffset+r.Size])
		}
	})
}

func transferable(l hal.ImageLayout, want hal.ImageLayout) bool {
	return l == want || l == hal.ImageLayoutGeneral
}

func (cb *commandBuffer) CopyBufferToImage(s hal.Buffer, d hal.Image, layout hal.ImageLayout, regions []hal.BufferImageCopy) {
	src := s.(*buffer)
	dst := d.(*image)
	if !transferable(layout, hal.ImageLayoutTransferDstOptimal) {
		cb.validationf("CopyBufferToImage into image in layout %s", layout)
	}
	for _, r := range regions {
		if !dst.contains(r) || r.BufferOffset+dst.regionSize(r) > src.Size() {
			cb.validationf("CopyBufferToImage region %+v out of range", r)
			return
		}
	}
	cb.record(func() {
		if dst.Layout() != layout {
			cb.validationf("CopyBufferToImage: image is in %s, not %s", dst.Layout(), layout)
		}
		for _, r := range regions {
			dst.copyRegion(r, src.data, true)
		}
	})
}

func (cb *commandBuffer) CopyImageToBuffer(s hal.Image, layout hal.ImageLayout, d hal.Buffer, regions []hal.BufferImageCopy) {
	src := s.(*image)
	dst := d.(*buffer)
	if !transferable(layout, hal.ImageLayoutTransferSrcOptimal) {
		cb.validationf("CopyImageToBuffer from image in layout %s", layout)
	}
	for _, r := range regions {
		if !src.contains(r) || r.BufferOffset+src.regionSize(r) > dst.Size() {
			cb.validationf("CopyImageToBuffer region %+v out of range", r)
			return
		}
	}
	cb.record(func() {
		if src.Layout() != layout {
			cb.validationf("CopyImageToBuffer: image is in %s, not %s", src.Layout(), layout)
		}
		for _, r := range regions {
			src.copyRegion(r, dst.data, false)
		}
	})
}
