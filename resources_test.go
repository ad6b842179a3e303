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
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"goarrg.com/gmath"

	"goarrg.com/nova/internal/hal/soft"
)

func TestBuffer_Layout(t *testing.T) {
	ctx, _ := newTestContext(t, soft.Options{}, nil, testConfig())

	b, err := NewBufferOf[[4]float32](ctx, BufferKindUniform, 3)
	require.NoError(t, err)
	defer b.Destroy()
	assert.Equal(t, BufferKindUniform, b.Kind())
	assert.Equal(t, uint64(48), b.Size())
	assert.Equal(t, uint64(16), b.Stride())
	assert.Equal(t, uint64(3), b.Len())

	assert.Panics(t, func() { _, _ = NewBuffer(ctx, BufferKindVertex, 0) })
	assert.Panics(t, func() { _, _ = newBuffer(ctx, BufferKindVertex, 10, 4) })
}

func TestBuffer_HostAccess(t *testing.T) {
	ctx, _ := newTestContext(t, soft.Options{}, nil, testConfig())

	staging, err := NewBuffer(ctx, BufferKindStaging, 8)
	require.NoError(t, err)
	defer staging.Destroy()
	vertex, err := NewBuffer(ctx, BufferKindVertex, 8)
	require.NoError(t, err)
	defer vertex.Destroy()

	staging.HostWrite(2, []byte{1, 2, 3})
	got := make([]byte, 8)
	staging.HostRead(0, got)
	assert.Equal(t, []byte{0, 0, 1, 2, 3, 0, 0, 0}, got)

	assert.Panics(t, func() { vertex.HostWrite(0, []byte{1}) }, "device local buffer")
	assert.Panics(t, func() { vertex.HostRead(0, got) }, "device local buffer")
	assert.Panics(t, func() { staging.HostWrite(6, []byte{1, 2, 3}) }, "out of range")
}

func TestBuffer_OutOfDeviceMemory(t *testing.T) {
	ctx, _ := newTestContext(t, soft.Options{MemoryLimit: 64}, nil, testConfig())

	a, err := NewBuffer(ctx, BufferKindStorage, 48)
	require.NoError(t, err)
	defer a.Destroy()

	_, err = NewBuffer(ctx, BufferKindStorage, 32)
	assert.Error(t, err)
}

func TestFence(t *testing.T) {
	ctx, _ := newTestContext(t, soft.Options{}, nil, testConfig())

	signaled, err := NewFence(ctx, true)
	require.NoError(t, err)
	defer signaled.Destroy()
	assert.NoError(t, signaled.Wait())
	assert.NoError(t, signaled.Reset())
	assert.ErrorIs(t, signaled.WaitTimeout(time.Millisecond), ErrorTimeout{})

	unsignaled, err := NewFence(ctx, false)
	require.NoError(t, err)
	defer unsignaled.Destroy()
	assert.ErrorIs(t, unsignaled.WaitTimeout(5*time.Millisecond), ErrorTimeout{})

	pool, err := NewPool(ctx, ctx.Queues().Graphics())
	require.NoError(t, err)
	defer pool.Destroy()
	l, err := NewList(pool)
	require.NoError(t, err)
	defer l.Destroy()
	l.Record().Finish()

	require.NoError(t, ctx.Queues().Submit(&Submission{QueueID: ctx.Queues().Graphics(), Lists: []*List{l}, Fence: unsignaled}))
	assert.NoError(t, unsignaled.WaitAndReset())
	assert.ErrorIs(t, unsignaled.WaitTimeout(0), ErrorTimeout{})
}

func TestFence_ResetInFlightIsReported(t *testing.T) {
	ctx, err := NewContext(soft.New(soft.Options{Latency: 50 * time.Millisecond}), nil, testConfig())
	require.NoError(t, err)
	device := ctx.device.(*soft.Device)

	f, err := NewFence(ctx, false)
	require.NoError(t, err)
	pool, err := NewPool(ctx, ctx.Queues().Graphics())
	require.NoError(t, err)
	l, err := NewList(pool)
	require.NoError(t, err)
	l.Record().Finish()

	require.NoError(t, ctx.Queues().Submit(&Submission{QueueID: ctx.Queues().Graphics(), Lists: []*List{l}, Fence: f}))
	assert.NoError(t, f.Reset())
	assert.Len(t, device.ValidationErrors(), 1)

	require.NoError(t, f.Wait())
	l.Destroy()
	pool.Destroy()
	f.Destroy()
	ctx.Release()
	assert.Zero(t, device.LiveObjects())
	assert.Len(t, device.ValidationErrors(), 1)
}

func newTestPipeline(t *testing.T, ctx *Context, pushConstantSize uint32) (*RenderPass, *Pipeline) {
	t.Helper()
	pass, err := NewRenderPass(ctx, FormatR8G8B8A8Unorm, AttachmentLoadOpClear, ImageLayoutTransferSrcOptimal)
	require.NoError(t, err)
	t.Cleanup(pass.Destroy)
	shader, err := NewShaderModule(ctx, fakeSPIRV())
	require.NoError(t, err)
	t.Cleanup(shader.Destroy)

	pipeline, err := NewGraphicsPipeline(ctx, GraphicsPipelineCreateInfo{
		RenderPass:       pass,
		VertexShader:     shader,
		FragmentShader:   shader,
		PushConstantSize: pushConstantSize,
		Topology:         PrimitiveTopologyTriangleList,
	})
	require.NoError(t, err)
	t.Cleanup(pipeline.Destroy)
	return pass, pipeline
}

func TestRecorder_Draw(t *testing.T) {
	ctx, device := newTestContext(t, soft.Options{}, nil, testConfig())
	pass, pipeline := newTestPipeline(t, ctx, 16)

	target, err := NewImage(ctx, gmath.Extent2i32{X: 2, Y: 1}, FormatR8G8B8A8Unorm, ImageUsageColorAttachment|ImageUsageTransferSrc)
	require.NoError(t, err)
	defer target.Destroy()
	fb, err := NewFramebuffer(pass, target)
	require.NoError(t, err)
	defer fb.Destroy()
	assert.Equal(t, target.Size(), fb.Size())

	record(t, ctx, ctx.Queues().Graphics(), func(r *Recorder) {
		assert.Panics(t, func() { r.Draw(3, 1, 0, 0) }, "outside a render pass")
		r.BeginRenderPass(fb, [4]float32{1, 0, 0, 1})
		assert.Panics(t, func() { r.Draw(3, 1, 0, 0) }, "no pipeline")
		r.BindPipeline(pipeline)
		PushConstants(r, [4]float32{1, 1, 1, 1})
		r.Draw(3, 1, 0, 0)
	})

	assert.EqualValues(t, 1, device.DrawCount())
	assert.Equal(t, ImageLayoutTransferSrcOptimal, soft.ImageLayout(target.raw.Get()))
	assert.Equal(t, []byte{255, 0, 0, 255, 255, 0, 0, 255}, soft.ImageData(target.raw.Get()))
}

func TestRecorder_PushConstantSizeMismatchPanics(t *testing.T) {
	ctx, _ := newTestContext(t, soft.Options{}, nil, testConfig())
	_, pipeline := newTestPipeline(t, ctx, 16)

	record(t, ctx, ctx.Queues().Graphics(), func(r *Recorder) {
		assert.Panics(t, func() { r.PushConstants(make([]byte, 16)) }, "no pipeline")
		r.BindPipeline(pipeline)
		assert.Panics(t, func() { r.PushConstants(make([]byte, 8)) })
		assert.Panics(t, func() { PushConstants(r, [5]float32{}) })
		assert.NotPanics(t, func() { PushConstants(r, [4]float32{}) })
	})
}

func TestFramebuffer_Checks(t *testing.T) {
	ctx, _ := newTestContext(t, soft.Options{}, nil, testConfig())
	pass, err := NewRenderPass(ctx, FormatR8G8B8A8Unorm, AttachmentLoadOpClear, ImageLayoutTransferSrcOptimal)
	require.NoError(t, err)
	defer pass.Destroy()

	wrongFormat, err := NewImage(ctx, gmath.Extent2i32{X: 1, Y: 1}, FormatB8G8R8A8Unorm, ImageUsageColorAttachment)
	require.NoError(t, err)
	defer wrongFormat.Destroy()
	sampledOnly, err := NewImage(ctx, gmath.Extent2i32{X: 1, Y: 1}, FormatR8G8B8A8Unorm, ImageUsageSampled)
	require.NoError(t, err)
	defer sampledOnly.Destroy()

	assert.Panics(t, func() { _, _ = NewFramebuffer(pass, wrongFormat) })
	assert.Panics(t, func() { _, _ = NewFramebuffer(pass, sampledOnly) })
}

func TestDescriptorSet_Write(t *testing.T) {
	ctx, _ := newTestContext(t, soft.Options{}, nil, testConfig())

	layout, err := NewDescriptorLayout(ctx, ShaderStageGraphics, DescriptorKindUniformBuffer, DescriptorKindSampler)
	require.NoError(t, err)
	defer layout.Destroy()
	assert.Equal(t, []DescriptorKind{DescriptorKindUniformBuffer, DescriptorKindSampler}, layout.Kinds())

	pool, err := NewDescriptorPool(layout, 1)
	require.NoError(t, err)
	defer pool.Destroy()
	set, err := pool.Allocate()
	require.NoError(t, err)
	_, err = pool.Allocate()
	assert.Error(t, err)

	uniforms, err := NewBuffer(ctx, BufferKindUniform, 16)
	require.NoError(t, err)
	defer uniforms.Destroy()
	staging, err := NewBuffer(ctx, BufferKindStaging, 16)
	require.NoError(t, err)
	defer staging.Destroy()
	sampler, err := NewSampler(ctx, SamplerFilterNearest)
	require.NoError(t, err)
	defer sampler.Destroy()

	assert.NotPanics(t, func() {
		set.Write(0, DescriptorBufferInfo{Buffer: uniforms})
		set.Write(1, DescriptorSamplerInfo{Sampler: sampler})
	})
	assert.Panics(t, func() { set.Write(1, DescriptorBufferInfo{Buffer: uniforms}) }, "kind mismatch")
	assert.Panics(t, func() { set.Write(0, DescriptorBufferInfo{Buffer: staging}) }, "staging buffer")
	assert.Panics(t, func() { set.Write(2, DescriptorSamplerInfo{Sampler: sampler}) }, "binding out of range")
}

func TestDestroy_Idempotent(t *testing.T) {
	window := soft.NewWindow(64, 64)
	ctx, _ := newTestContext(t, soft.Options{}, window, testConfig())

	var objects []interface{ Destroy() }
	add := func(o interface{ Destroy() }, err error) {
		t.Helper()
		require.NoError(t, err)
		objects = append(objects, o)
	}

	buffer, err := NewBuffer(ctx, BufferKindStaging, 16)
	add(buffer, err)
	image, err := NewImage(ctx, gmath.Extent2i32{X: 4, Y: 4}, FormatR8G8B8A8Unorm, ImageUsageColorAttachment)
	add(image, err)
	fence, err := NewFence(ctx, true)
	add(fence, err)
	semaphore, err := NewSemaphore(ctx)
	add(semaphore, err)
	sampler, err := NewSampler(ctx, SamplerFilterLinear)
	add(sampler, err)
	pool, err := NewPool(ctx, ctx.Queues().Graphics())
	add(pool, err)
	list, err := NewList(pool)
	add(list, err)
	shader, err := NewShaderModule(ctx, fakeSPIRV())
	add(shader, err)
	layout, err := NewDescriptorLayout(ctx, ShaderStageFragment, DescriptorKindSampler)
	add(layout, err)
	descriptorPool, err := NewDescriptorPool(layout, 2)
	add(descriptorPool, err)
	pass, err := NewRenderPass(ctx, FormatR8G8B8A8Unorm, AttachmentLoadOpDontCare, ImageLayoutShaderReadOnlyOptimal)
	add(pass, err)
	fb, err := NewFramebuffer(pass, image)
	add(fb, err)
	pipeline, err := NewGraphicsPipeline(ctx, GraphicsPipelineCreateInfo{
		RenderPass:        pass,
		VertexShader:      shader,
		FragmentShader:    shader,
		DescriptorLayouts: []*DescriptorLayout{layout},
	})
	add(pipeline, err)
	surface, err := NewSurface(ctx, window)
	add(surface, err)

	// Dependents first, the list before its pool.
	for i := len(objects) - 1; i >= 0; i-- {
		o := objects[i]
		assert.NotPanics(t, o.Destroy)
		assert.NotPanics(t, o.Destroy)
	}
}
