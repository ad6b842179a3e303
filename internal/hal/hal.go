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

/*
Package hal is the boundary between the nova core and a concrete graphics API.
Exactly one Backend is linked in at build time, see goarrg.com/nova/backend.

Objects returned by a Device are owned by the caller and must be destroyed
exactly once, before the Device itself is destroyed.
*/
package hal

import (
	"time"
)

// WaitForever can be passed as a timeout to block until the operation completes.
const WaitForever time.Duration = -1

type Backend interface {
	Name() string
	Open(desc DeviceDescriptor) (Device, error)
}

type DeviceDescriptor struct {
	ApplicationName string
	// Window may be nil for headless devices, no surfaces can be created then.
	Window     Window
	Validation bool
}

/*
Window is the minimal windowing contract every backend understands.
Backends may type assert for additional capabilities, e.g. the vulkan backend
requires a window that can create a VkSurfaceKHR.
*/
type Window interface {
	FramebufferSize() (width, height int)
}

type QueueFamily struct {
	Index    int
	Graphics bool
	Compute  bool
	Transfer bool
}

type Device interface {
	Name() string
	QueueFamilies() []QueueFamily
	// Queue returns the single queue opened for the given family.
	Queue(family int) Queue

	CreateSurface(w Window) (Surface, error)
	CreateFence(signaled bool) (Fence, error)
	CreateSemaphore() (Semaphore, error)
	CreateCommandPool(family int) (CommandPool, error)
	CreateBuffer(desc BufferDescriptor) (Buffer, error)
	CreateImage(desc ImageDescriptor) (Image, error)
	CreateSampler(desc SamplerDescriptor) (Sampler, error)
	CreateShaderModule(code []byte) (ShaderModule, error)
	CreateDescriptorSetLayout(bindings []DescriptorBinding) (DescriptorSetLayout, error)
	CreateDescriptorPool(desc DescriptorPoolDescriptor) (DescriptorPool, error)
	CreateRenderPass(desc RenderPassDescriptor) (RenderPass, error)
	CreatePipelineLayout(desc PipelineLayoutDescriptor) (PipelineLayout, error)
	CreateGraphicsPipeline(desc GraphicsPipelineDescriptor) (Pipeline, error)
	CreateFramebuffer(desc FramebufferDescriptor) (Framebuffer, error)

	WaitIdle() error
	Destroy()
}

type Fence interface {
	// Wait returns ErrorTimeout if the fence was not signaled in time.
	Wait(timeout time.Duration) error
	Reset() error
	Destroy()
}

type Semaphore interface {
	Destroy()
}

type CommandPool interface {
	Allocate() (CommandBuffer, error)
	Free(cb CommandBuffer)
	Destroy()
}

type CommandBuffer interface {
	Begin() error
	End() error

	BeginRenderPass(pass RenderPass, fb Framebuffer, area Rect, clear [4]float32)
	EndRenderPass()

	BindPipeline(p Pipeline)
	BindVertexBuffers(first int, buffers []Buffer, offsets []uint64)
	BindIndexBuffer(b Buffer, offset uint64, t IndexType)
	BindDescriptorSets(layout PipelineLayout, first int, sets []DescriptorSet)
	PushConstants(layout PipelineLayout, stages ShaderStage, offset uint32, data []byte)
	SetViewport(v Rect)
	SetScissor(r Rect)
	Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32)
	DrawIndexed(indexCount, instanceCount, firstIndex uint32, vertexOffset int32, firstInstance uint32)

	PipelineBarrier(src, dst PipelineStage, barriers []Barrier)
	CopyBuffer(src, dst Buffer, regions []BufferCopy)
	CopyBufferToImage(src Buffer, dst Image, layout ImageLayout, regions []BufferImageCopy)
	CopyImageToBuffer(src Image, layout ImageLayout, dst Buffer, regions []BufferImageCopy)
}

type SemaphoreWait struct {
	Semaphore Semaphore
	Stage     PipelineStage
}

type SubmitInfo struct {
	CommandBuffers []CommandBuffer
	Waits          []SemaphoreWait
	Signals        []Semaphore
	// Fence is optional.
	Fence Fence
}

type PresentInfo struct {
	Swapchain  Swapchain
	ImageIndex uint32
	Waits      []Semaphore
}

/*
Queue is not safe for concurrent use, callers serialize access.
Present returns nil on success or suboptimal, ErrorOutOfDate when the swapchain
must be recreated and any other error when presentation failed outright.
*/
type Queue interface {
	Submit(info SubmitInfo) error
	Present(info PresentInfo) error
	WaitIdle() error
}

type SurfaceCapabilities struct {
	CurrentExtent Extent
	MinImageCount uint32
	MaxImageCount uint32
	Format        Format
}

type Surface interface {
	SupportsQueueFamily(family int) bool
	Capabilities() (SurfaceCapabilities, error)
	CreateSwapchain(desc SwapchainDescriptor) (Swapchain, error)
	Destroy()
}

type SwapchainDescriptor struct {
	Extent     Extent
	Format     Format
	ImageCount uint32
	// QueueFamilies lists every family that touches the images.
	QueueFamilies []int
}

type Swapchain interface {
	// Images are owned by the swapchain and must not be destroyed separately.
	Images() []Image
	Extent() Extent
	Format() Format
	// Acquire returns ErrorOutOfDate or ErrorSurfaceLost when no image can be handed out.
	Acquire(signal Semaphore, timeout time.Duration) (uint32, error)
	Destroy()
}

type Buffer interface {
	Size() uint64
	// Write and Read are only valid for MemoryHostVisible buffers.
	Write(offset uint64, data []byte) error
	Read(offset uint64, data []byte) error
	Destroy()
}

type Image interface {
	Extent() Extent
	Format() Format
	Destroy()
}

type Sampler interface {
	Destroy()
}

type ShaderModule interface {
	Destroy()
}

type DescriptorSetLayout interface {
	Destroy()
}

type DescriptorPool interface {
	Allocate(layout DescriptorSetLayout) (DescriptorSet, error)
	Destroy()
}

// DescriptorSet is freed together with the pool it was allocated from.
type DescriptorSet interface {
	Write(writes []DescriptorWrite)
}

type RenderPass interface {
	Destroy()
}

type Framebuffer interface {
	Destroy()
}

type PipelineLayout interface {
	Destroy()
}

type Pipeline interface {
	Destroy()
}
