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
	vk "github.com/vulkan-go/vulkan"

	"goarrg.com/nova/internal/hal"
)

type queue struct {
	device *Device
	family int
	handle vk.Queue
}

func (q *queue) Submit(info hal.SubmitInfo) error {
	cbs := make([]vk.CommandBuffer, len(info.CommandBuffers))
	for i, cb := range info.CommandBuffers {
		cbs[i] = cb.(*commandBuffer).handle
	}
	waits := make([]vk.Semaphore, len(info.Waits))
	stages := make([]vk.PipelineStageFlags, len(info.Waits))
	for i, w := range info.Waits {
		waits[i] = w.Semaphore.(*semaphore).handle
		stages[i] = vk.PipelineStageFlags(w.Stage)
	}
	signals := semaphoreHandles(info.Signals)

	submit := vk.SubmitInfo{
		SType:                vk.StructureTypeSubmitInfo,
		WaitSemaphoreCount:   uint32(len(waits)),
		PWaitSemaphores:      waits,
		PWaitDstStageMask:    stages,
		CommandBufferCount:   uint32(len(cbs)),
		PCommandBuffers:      cbs,
		SignalSemaphoreCount: uint32(len(signals)),
		PSignalSemaphores:    signals,
	}
	f := vk.Fence(vk.NullHandle)
	if info.Fence != nil {
		f = info.Fence.(*fence).handle
	}
	return result(vk.QueueSubmit(q.handle, 1, []vk.SubmitInfo{submit}, f))
}

func (q *queue) Present(info hal.PresentInfo) error {
	waits := semaphoreHandles(info.Waits)
	sc := info.Swapchain.(*swapchain)
	present := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: uint32(len(waits)),
		PWaitSemaphores:    waits,
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{sc.handle},
		PImageIndices:      []uint32{info.ImageIndex},
	}
	return result(vk.QueuePresent(q.handle, &present))
}

func (q *queue) WaitIdle() error {
	return result(vk.QueueWaitIdle(q.handle))
}
