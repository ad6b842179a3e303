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

package vulkan

import (
	"unsafe"

	vk "github.com/vulkan-go/vulkan"
	"goarrg.com/debug"

	"goarrg.com/nova/internal/hal"
)

type commandPool struct {
	device *Device
	handle vk.CommandPool
}

func (d *Device) CreateCommandPool(family int) (hal.CommandPool, error) {
	info := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
		QueueFamilyIndex: uint32(family),
	}
	p := &commandPool{device: d}
	if err := result(vk.CreateCommandPool(d.handle, &info, nil, &p.handle)); err != nil {
		return nil, debug.ErrorWrapf(err, "Failed to create command pool for family %d", family)
	}
	return p, nil
}

func (p *commandPool) Allocate() (hal.CommandBuffer, error) {
	info := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        p.handle,
		Level:              vk.CommandBufferLevelPrimary,
		CommandBufferCount: 1,
	}
	handles := make([]vk.CommandBuffer, 1)
	if err := result(vk.AllocateCommandBuffers(p.device.handle, &info, handles)); err != nil {
		return nil, debug.ErrorWrapf(err, "Failed to allocate command buffer")
	}
	return &commandBuffer{pool: p, handle: handles[0]}, nil
}

func (p *commandPool) Free(cb hal.CommandBuffer) {
	vk.FreeCommandBuffers(p.device.handle, p.handle, 1, []vk.CommandBuffer{cb.(*commandBuffer).handle})
}

func (p *commandPool) Destroy() {
	vk.DestroyCommandPool(p.device.handle, p.handle, nil)
}

type commandBuffer struct {
	pool   *commandPool
	handle vk.CommandBuffer
}

// Begin implicitly resets the buffer, the pool allows per buffer resets.
func (cb *commandBuffer) Begin() error {
	info := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit),
	}
	return result(vk.BeginCommandBuffer(cb.handle, &info))
}

func (cb *commandBuffer) End() error {
	return result(vk.EndCommandBuffer(cb.handle))
}

func rect2D(r hal.Rect) vk.Rect2D {
	return vk.Rect2D{
		Offset: vk.Offset2D{X: r.Offset.X, Y: r.Offset.Y},
		Extent: vk.Extent2D{Width: r.Extent.Width, Height: r.Extent.Height},
	}
}

func (cb *commandBuffer) BeginRenderPass(pass hal.RenderPass, fb hal.Framebuffer, area hal.Rect, clear [4]float32) {
	info := vk.RenderPassBeginInfo{
		SType:           vk.StructureTypeRenderPassBeginInfo,
		RenderPass:      pass.(*renderPass).handle,
		Framebuffer:     fb.(*framebuffer).handle,
		RenderArea:      rect2D(area),
		ClearValueCount: 1,
		PClearValues:    []vk.ClearValue{vk.NewClearValue(clear[:])},
	}
	vk.CmdBeginRenderPass(cb.handle, &info, vk.SubpassContentsInline)
}

func (cb *commandBuffer) EndRenderPass() {
	vk.CmdEndRenderPass(cb.handle)
}

func (cb *commandBuffer) BindPipeline(p hal.Pipeline) {
	vk.CmdBindPipeline(cb.handle, vk.PipelineBindPointGraphics, p.(*pipeline).handle)
}

func (cb *commandBuffer) BindVertexBuffers(first int, buffers []hal.Buffer, offsets []uint64) {
	handles := make([]vk.Buffer, len(buffers))
	sizes := make([]vk.DeviceSize, len(buffers))
	for i, b := range buffers {
		handles[i] = b.(*buffer).handle
		if i < len(offsets) {
			sizes[i] = vk.DeviceSize(offsets[i])
		}
	}
	vk.CmdBindVertexBuffers(cb.handle, uint32(first), uint32(len(handles)), handles, sizes)
}

func (cb *commandBuffer) BindIndexBuffer(b hal.Buffer, offset uint64, t hal.IndexType) {
	vk.CmdBindIndexBuffer(cb.handle, b.(*buffer).handle, vk.DeviceSize(offset), vk.IndexType(t))
}

func (cb *commandBuffer) BindDescriptorSets(layout hal.PipelineLayout, first int, sets []hal.DescriptorSet) {
	handles := make([]vk.DescriptorSet, len(sets))
	for i, s := range sets {
		handles[i] = s.(*descriptorSet).handle
	}
	vk.CmdBindDescriptorSets(cb.handle, vk.PipelineBindPointGraphics, layout.(*pipelineLayout).handle,
		uint32(first), uint32(len(handles)), handles, 0, nil)
}

func (cb *commandBuffer) PushConstants(layout hal.PipelineLayout, stages hal.ShaderStage, offset uint32, data []byte) {
	if len(data) == 0 {
		return
	}
	vk.CmdPushConstants(cb.handle, layout.(*pipelineLayout).handle, vk.ShaderStageFlags(stages),
		offset, uint32(len(data)), unsafe.Pointer(&data[0]))
}

func (cb *commandBuffer) SetViewport(v hal.Rect) {
	vk.CmdSetViewport(cb.handle, 0, 1, []vk.Viewport{{
		X:        float32(v.Offset.X),
		Y:        float32(v.Offset.Y),
		Width:    float32(v.Extent.Width),
		Height:   float32(v.Extent.Height),
		MinDepth: 0,
		MaxDepth: 1,
	}})
}

func (cb *commandBuffer) SetScissor(r hal.Rect) {
	vk.CmdSetScissor(cb.handle, 0, 1, []vk.Rect2D{rect2D(r)})
}

func (cb *commandBuffer) Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	vk.CmdDraw(cb.handle, vertexCount, instanceCount, firstVertex, firstInstance)
}

func (cb *commandBuffer) DrawIndexed(indexCount, instanceCount, firstIndex uint32, vertexOffset int32, firstInstance uint32) {
	vk.CmdDrawIndexed(cb.handle, indexCount, instanceCount, firstIndex, vertexOffset, firstInstance)
}

func (cb *commandBuffer) PipelineBarrier(src, dst hal.PipelineStage, barriers []hal.Barrier) {
	var (
		memory  []vk.MemoryBarrier
		buffers []vk.BufferMemoryBarrier
		images  []vk.ImageMemoryBarrier
	)
	for _, b := range barriers {
		switch {
		case b.Image != nil:
			images = append(images, vk.ImageMemoryBarrier{
				SType:               vk.StructureTypeImageMemoryBarrier,
				SrcAccessMask:       vk.AccessFlags(b.SrcAccess),
				DstAccessMask:       vk.AccessFlags(b.DstAccess),
				OldLayout:           vk.ImageLayout(b.OldLayout),
				NewLayout:           vk.ImageLayout(b.NewLayout),
				SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
				DstQueueFamilyIndex: vk.QueueFamilyIgnored,
				Image:               b.Image.(*image).handle,
				SubresourceRange:    colorSubresource,
			})
		case b.Buffer != nil:
			buf := b.Buffer.(*buffer)
			buffers = append(buffers, vk.BufferMemoryBarrier{
				SType:               vk.StructureTypeBufferMemoryBarrier,
				SrcAccessMask:       vk.AccessFlags(b.SrcAccess),
				DstAccessMask:       vk.AccessFlags(b.DstAccess),
				SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
				DstQueueFamilyIndex: vk.QueueFamilyIgnored,
				Buffer:              buf.handle,
				Size:                vk.DeviceSize(buf.size),
			})
		default:
			memory = append(memory, vk.MemoryBarrier{
				SType:         vk.StructureTypeMemoryBarrier,
				SrcAccessMask: vk.AccessFlags(b.SrcAccess),
				DstAccessMask: vk.AccessFlags(b.DstAccess),
			})
		}
	}
	vk.CmdPipelineBarrier(cb.handle, vk.PipelineStageFlags(src), vk.PipelineStageFlags(dst), 0,
		uint32(len(memory)), memory, uint32(len(buffers)), buffers, uint32(len(images)), images)
}

func (cb *commandBuffer) CopyBuffer(src, dst hal.Buffer, regions []hal.BufferCopy) {
	list := make([]vk.BufferCopy, len(regions))
	for i, r := range regions {
		list[i] = vk.BufferCopy{
			SrcOffset: vk.DeviceSize(r.SrcOffset),
			DstOffset: vk.DeviceSize(r.DstOffset),
			Size:      vk.DeviceSize(r.Size),
		}
	}
	vk.CmdCopyBuffer(cb.handle, src.(*buffer).handle, dst.(*buffer).handle, uint32(len(list)), list)
}

func bufferImageCopies(regions []hal.BufferImageCopy) []vk.BufferImageCopy {
	list := make([]vk.BufferImageCopy, len(regions))
	for i, r := range regions {
		list[i] = vk.BufferImageCopy{
			BufferOffset: vk.DeviceSize(r.BufferOffset),
			ImageSubresource: vk.ImageSubresourceLayers{
				AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
				LayerCount: 1,
			},
			ImageOffset: vk.Offset3D{X: r.ImageOffset.X, Y: r.ImageOffset.Y},
			ImageExtent: vk.Extent3D{Width: r.ImageExtent.Width, Height: r.ImageExtent.Height, Depth: 1},
		}
	}
	return list
}

func (cb *commandBuffer) CopyBufferToImage(src hal.Buffer, dst hal.Image, layout hal.ImageLayout, regions []hal.BufferImageCopy) {
	list := bufferImageCopies(regions)
	vk.CmdCopyBufferToImage(cb.handle, src.(*buffer).handle, dst.(*image).handle, vk.ImageLayout(layout), uint32(len(list)), list)
}

func (cb *commandBuffer) CopyImageToBuffer(src hal.Image, layout hal.ImageLayout, dst hal.Buffer, regions []hal.BufferImageCopy) {
	list := bufferImageCopies(regions)
	vk.CmdCopyImageToBuffer(cb.handle, src.(*image).handle, vk.ImageLayout(layout), dst.(*buffer).handle, uint32(len(list)), list)
}
