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
	"goarrg.com/debug"
	"goarrg.com/gmath"

	"goarrg.com/nova/internal/hal"
	"goarrg.com/nova/internal/util"
)

// Push constants are always visible to both graphics stages at offset 0.
const pushConstantStages = ShaderStageGraphics

const maxPushConstantSize = 128

// RenderPass has a single color attachment.
type RenderPass struct {
	ctx         *Context
	raw         util.Droppable[hal.RenderPass]
	format      Format
	loadOp      AttachmentLoadOp
	finalLayout ImageLayout
}

func NewRenderPass(ctx *Context, format Format, loadOp AttachmentLoadOp, finalLayout ImageLayout) (*RenderPass, error) {
	if format.BlockSize() == 0 {
		abort("Unsupported render pass format: %s", format)
	}
	raw, err := ctx.device.CreateRenderPass(hal.RenderPassDescriptor{
		Format:      format,
		LoadOp:      loadOp,
		FinalLayout: finalLayout,
	})
	if err != nil {
		return nil, debug.ErrorWrapf(err, "Failed to create render pass")
	}
	ctx.retain()
	p := &RenderPass{ctx: ctx, format: format, loadOp: loadOp, finalLayout: finalLayout}
	p.raw.Set(raw)
	return p, nil
}

func (p *RenderPass) Format() Format {
	return p.format
}

func (p *RenderPass) FinalLayout() ImageLayout {
	return p.finalLayout
}

func (p *RenderPass) Destroy() {
	raw, ok := p.raw.Take()
	if !ok {
		return
	}
	raw.Destroy()
	p.ctx.release()
}

type Framebuffer struct {
	ctx  *Context
	pass *RenderPass
	raw  util.Droppable[hal.Framebuffer]
	size gmath.Extent2i32
}

// NewFramebuffer binds target to pass, the image's format must match the pass.
func NewFramebuffer(pass *RenderPass, target *Image) (*Framebuffer, error) {
	if target.format != pass.format {
		abort("Framebuffer image is %s, render pass expects %s", target.format, pass.format)
	}
	target.requireUsage("NewFramebuffer", ImageUsageColorAttachment)
	raw, err := pass.ctx.device.CreateFramebuffer(hal.FramebufferDescriptor{
		RenderPass:  pass.raw.Get(),
		Attachments: []hal.Image{target.raw.Get()},
		Extent:      extentOf(target.size),
	})
	if err != nil {
		return nil, debug.ErrorWrapf(err, "Failed to create framebuffer")
	}
	pass.ctx.retain()
	fb := &Framebuffer{ctx: pass.ctx, pass: pass, size: target.size}
	fb.raw.Set(raw)
	return fb, nil
}

func (fb *Framebuffer) Size() gmath.Extent2i32 {
	return fb.size
}

func (fb *Framebuffer) Destroy() {
	raw, ok := fb.raw.Take()
	if !ok {
		return
	}
	raw.Destroy()
	fb.ctx.release()
}

type GraphicsPipelineCreateInfo struct {
	RenderPass     *RenderPass
	VertexShader   *ShaderModule
	FragmentShader *ShaderModule
	// Entry points default to "main".
	VertexEntryPoint   string
	FragmentEntryPoint string

	VertexBuffers     []VertexBufferLayout
	DescriptorLayouts []*DescriptorLayout
	PushConstantSize  uint32
	Topology          PrimitiveTopology
	Blend             bool
}

/*
Pipeline is a graphics pipeline together with its pipeline layout. The render
pass, shaders and descriptor layouts it was created from must outlive it.
*/
type Pipeline struct {
	ctx               *Context
	raw               util.Droppable[hal.Pipeline]
	layout            util.Droppable[hal.PipelineLayout]
	pass              *RenderPass
	descriptorLayouts []*DescriptorLayout
	pushConstantSize  uint32
}

func NewGraphicsPipeline(ctx *Context, info GraphicsPipelineCreateInfo) (*Pipeline, error) {
	if info.RenderPass == nil || info.VertexShader == nil || info.FragmentShader == nil {
		abort("Graphics pipeline requires a render pass and both shaders")
	}
	if info.PushConstantSize%4 != 0 || info.PushConstantSize > maxPushConstantSize {
		abort("Push constant size must be a multiple of 4 and <= %d: %d", maxPushConstantSize, info.PushConstantSize)
	}

	setLayouts := make([]hal.DescriptorSetLayout, len(info.DescriptorLayouts))
	for i, l := range info.DescriptorLayouts {
		setLayouts[i] = l.raw.Get()
	}
	pushConstants := hal.PushConstantRange{Size: info.PushConstantSize}
	if info.PushConstantSize > 0 {
		pushConstants.Stages = pushConstantStages
	}
	layout, err := ctx.device.CreatePipelineLayout(hal.PipelineLayoutDescriptor{
		SetLayouts:    setLayouts,
		PushConstants: pushConstants,
	})
	if err != nil {
		return nil, debug.ErrorWrapf(err, "Failed to create pipeline layout")
	}

	raw, err := ctx.device.CreateGraphicsPipeline(hal.GraphicsPipelineDescriptor{
		Layout:             layout,
		RenderPass:         info.RenderPass.raw.Get(),
		VertexShader:       info.VertexShader.raw.Get(),
		FragmentShader:     info.FragmentShader.raw.Get(),
		VertexEntryPoint:   info.VertexEntryPoint,
		FragmentEntryPoint: info.FragmentEntryPoint,
		VertexBuffers:      info.VertexBuffers,
		Topology:           info.Topology,
		Blend:              info.Blend,
	})
	if err != nil {
		layout.Destroy()
		return nil, debug.ErrorWrapf(err, "Failed to create graphics pipeline")
	}

	ctx.retain()
	p := &Pipeline{
		ctx:               ctx,
		pass:              info.RenderPass,
		descriptorLayouts: append([]*DescriptorLayout(nil), info.DescriptorLayouts...),
		pushConstantSize:  info.PushConstantSize,
	}
	p.raw.Set(raw)
	p.layout.Set(layout)
	return p, nil
}

func (p *Pipeline) PushConstantSize() uint32 {
	return p.pushConstantSize
}

func (p *Pipeline) Destroy() {
	raw, ok := p.raw.Take()
	if !ok {
		return
	}
	raw.Destroy()
	if layout, ok := p.layout.Take(); ok {
		layout.Destroy()
	}
	p.ctx.release()
}
