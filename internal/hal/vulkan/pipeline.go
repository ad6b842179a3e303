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
	"encoding/binary"

	vk "github.com/vulkan-go/vulkan"
	"goarrg.com/debug"

	"goarrg.com/nova/internal/hal"
)

type shaderModule struct {
	device *Device
	handle vk.ShaderModule
}

func (d *Device) CreateShaderModule(code []byte) (hal.ShaderModule, error) {
	words := make([]uint32, len(code)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(code[i*4:])
	}
	info := vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint(len(code)),
		PCode:    words,
	}
	m := &shaderModule{device: d}
	if err := result(vk.CreateShaderModule(d.handle, &info, nil, &m.handle)); err != nil {
		return nil, debug.ErrorWrapf(err, "Failed to create shader module")
	}
	return m, nil
}

func (m *shaderModule) Destroy() {
	vk.DestroyShaderModule(m.device.handle, m.handle, nil)
}

type descriptorSetLayout struct {
	device *Device
	handle vk.DescriptorSetLayout
}

func (d *Device) CreateDescriptorSetLayout(bindings []hal.DescriptorBinding) (hal.DescriptorSetLayout, error) {
	list := make([]vk.DescriptorSetLayoutBinding, len(bindings))
	for i, b := range bindings {
		list[i] = vk.DescriptorSetLayoutBinding{
			Binding:         uint32(b.Binding),
			DescriptorType:  vk.DescriptorType(b.Kind),
			DescriptorCount: 1,
			StageFlags:      vk.ShaderStageFlags(b.Stages),
		}
	}
	info := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(list)),
		PBindings:    list,
	}
	l := &descriptorSetLayout{device: d}
	if err := result(vk.CreateDescriptorSetLayout(d.handle, &info, nil, &l.handle)); err != nil {
		return nil, debug.ErrorWrapf(err, "Failed to create descriptor set layout")
	}
	return l, nil
}

func (l *descriptorSetLayout) Destroy() {
	vk.DestroyDescriptorSetLayout(l.device.handle, l.handle, nil)
}

type descriptorPool struct {
	device *Device
	handle vk.DescriptorPool
}

func (d *Device) CreateDescriptorPool(desc hal.DescriptorPoolDescriptor) (hal.DescriptorPool, error) {
	counts := map[hal.DescriptorKind]uint32{}
	var kinds []hal.DescriptorKind
	for _, b := range desc.Bindings {
		if counts[b.Kind] == 0 {
			kinds = append(kinds, b.Kind)
		}
		counts[b.Kind] += desc.MaxSets
	}
	sizes := make([]vk.DescriptorPoolSize, len(kinds))
	for i, k := range kinds {
		sizes[i] = vk.DescriptorPoolSize{
			Type:            vk.DescriptorType(k),
			DescriptorCount: counts[k],
		}
	}

	info := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		MaxSets:       desc.MaxSets,
		PoolSizeCount: uint32(len(sizes)),
		PPoolSizes:    sizes,
	}
	p := &descriptorPool{device: d}
	if err := result(vk.CreateDescriptorPool(d.handle, &info, nil, &p.handle)); err != nil {
		return nil, debug.ErrorWrapf(err, "Failed to create descriptor pool for %d sets", desc.MaxSets)
	}
	return p, nil
}

func (p *descriptorPool) Allocate(layout hal.DescriptorSetLayout) (hal.DescriptorSet, error) {
	info := vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     p.handle,
		DescriptorSetCount: 1,
		PSetLayouts:        []vk.DescriptorSetLayout{layout.(*descriptorSetLayout).handle},
	}
	s := &descriptorSet{device: p.device}
	if err := result(vk.AllocateDescriptorSets(p.device.handle, &info, &s.handle)); err != nil {
		return nil, debug.ErrorWrapf(err, "Failed to allocate descriptor set")
	}
	return s, nil
}

func (p *descriptorPool) Destroy() {
	vk.DestroyDescriptorPool(p.device.handle, p.handle, nil)
}

type descriptorSet struct {
	device *Device
	handle vk.DescriptorSet
}

func (s *descriptorSet) Write(writes []hal.DescriptorWrite) {
	list := make([]vk.WriteDescriptorSet, len(writes))
	for i, w := range writes {
		list[i] = vk.WriteDescriptorSet{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstSet:          s.handle,
			DstBinding:      uint32(w.Binding),
			DescriptorCount: 1,
			DescriptorType:  vk.DescriptorType(w.Kind),
		}
		switch w.Kind {
		case hal.DescriptorKindUniformBuffer, hal.DescriptorKindStorageBuffer:
			b := w.Buffer.(*buffer)
			list[i].PBufferInfo = []vk.DescriptorBufferInfo{{
				Buffer: b.handle,
				Range:  vk.DeviceSize(b.size),
			}}
		default:
			info := vk.DescriptorImageInfo{ImageLayout: vk.ImageLayout(w.Layout)}
			if w.Image != nil {
				info.ImageView = w.Image.(*image).view
			}
			if w.Sampler != nil {
				info.Sampler = w.Sampler.(*sampler).handle
			}
			list[i].PImageInfo = []vk.DescriptorImageInfo{info}
		}
	}
	vk.UpdateDescriptorSets(s.device.handle, uint32(len(list)), list, 0, nil)
}

type renderPass struct {
	device *Device
	handle vk.RenderPass
}

func (d *Device) CreateRenderPass(desc hal.RenderPassDescriptor) (hal.RenderPass, error) {
	initial := vk.ImageLayoutUndefined
	if desc.LoadOp == hal.AttachmentLoadOpLoad {
		initial = vk.ImageLayout(desc.FinalLayout)
	}
	attachments := []vk.AttachmentDescription{{
		Format:         vk.Format(desc.Format),
		Samples:        vk.SampleCount1Bit,
		LoadOp:         vk.AttachmentLoadOp(desc.LoadOp),
		StoreOp:        vk.AttachmentStoreOpStore,
		StencilLoadOp:  vk.AttachmentLoadOpDontCare,
		StencilStoreOp: vk.AttachmentStoreOpDontCare,
		InitialLayout:  initial,
		FinalLayout:    vk.ImageLayout(desc.FinalLayout),
	}}
	subpasses := []vk.SubpassDescription{{
		PipelineBindPoint:    vk.PipelineBindPointGraphics,
		ColorAttachmentCount: 1,
		PColorAttachments: []vk.AttachmentReference{{
			Attachment: 0,
			Layout:     vk.ImageLayoutColorAttachmentOptimal,
		}},
	}}
	dependencies := []vk.SubpassDependency{{
		SrcSubpass:    vk.MaxUint32,
		DstSubpass:    0,
		SrcStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		DstStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		DstAccessMask: vk.AccessFlags(vk.AccessColorAttachmentReadBit | vk.AccessColorAttachmentWriteBit),
	}}
	info := vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: uint32(len(attachments)),
		PAttachments:    attachments,
		SubpassCount:    uint32(len(subpasses)),
		PSubpasses:      subpasses,
		DependencyCount: uint32(len(dependencies)),
		PDependencies:   dependencies,
	}
	p := &renderPass{device: d}
	if err := result(vk.CreateRenderPass(d.handle, &info, nil, &p.handle)); err != nil {
		return nil, debug.ErrorWrapf(err, "Failed to create render pass for %s", desc.Format)
	}
	return p, nil
}

func (p *renderPass) Destroy() {
	vk.DestroyRenderPass(p.device.handle, p.handle, nil)
}

type framebuffer struct {
	device *Device
	handle vk.Framebuffer
}

func (d *Device) CreateFramebuffer(desc hal.FramebufferDescriptor) (hal.Framebuffer, error) {
	views := make([]vk.ImageView, len(desc.Attachments))
	for i, a := range desc.Attachments {
		views[i] = a.(*image).view
	}
	info := vk.FramebufferCreateInfo{
		SType:           vk.StructureTypeFramebufferCreateInfo,
		RenderPass:      desc.RenderPass.(*renderPass).handle,
		AttachmentCount: uint32(len(views)),
		PAttachments:    views,
		Width:           desc.Extent.Width,
		Height:          desc.Extent.Height,
		Layers:          1,
	}
	fb := &framebuffer{device: d}
	if err := result(vk.CreateFramebuffer(d.handle, &info, nil, &fb.handle)); err != nil {
		return nil, debug.ErrorWrapf(err, "Failed to create framebuffer of %+v", desc.Extent)
	}
	return fb, nil
}

func (fb *framebuffer) Destroy() {
	vk.DestroyFramebuffer(fb.device.handle, fb.handle, nil)
}

type pipelineLayout struct {
	device *Device
	handle vk.PipelineLayout
}

func (d *Device) CreatePipelineLayout(desc hal.PipelineLayoutDescriptor) (hal.PipelineLayout, error) {
	sets := make([]vk.DescriptorSetLayout, len(desc.SetLayouts))
	for i, l := range desc.SetLayouts {
		sets[i] = l.(*descriptorSetLayout).handle
	}
	var ranges []vk.PushConstantRange
	if desc.PushConstants.Size > 0 {
		ranges = append(ranges, vk.PushConstantRange{
			StageFlags: vk.ShaderStageFlags(desc.PushConstants.Stages),
			Size:       desc.PushConstants.Size,
		})
	}
	info := vk.PipelineLayoutCreateInfo{
		SType:                  vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount:         uint32(len(sets)),
		PSetLayouts:            sets,
		PushConstantRangeCount: uint32(len(ranges)),
		PPushConstantRanges:    ranges,
	}
	l := &pipelineLayout{device: d}
	if err := result(vk.CreatePipelineLayout(d.handle, &info, nil, &l.handle)); err != nil {
		return nil, debug.ErrorWrapf(err, "Failed to create pipeline layout")
	}
	return l, nil
}

func (l *pipelineLayout) Destroy() {
	vk.DestroyPipelineLayout(l.device.handle, l.handle, nil)
}

type pipeline struct {
	device *Device
	handle vk.Pipeline
}

func entryPoint(name string) string {
	if name == "" {
		return cString("main")
	}
	return cString(name)
}

func (d *Device) CreateGraphicsPipeline(desc hal.GraphicsPipelineDescriptor) (hal.Pipeline, error) {
	stages := []vk.PipelineShaderStageCreateInfo{
		{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  vk.ShaderStageVertexBit,
			Module: desc.VertexShader.(*shaderModule).handle,
			PName:  entryPoint(desc.VertexEntryPoint),
		},
		{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  vk.ShaderStageFragmentBit,
			Module: desc.FragmentShader.(*shaderModule).handle,
			PName:  entryPoint(desc.FragmentEntryPoint),
		},
	}

	var (
		bindings   []vk.VertexInputBindingDescription
		attributes []vk.VertexInputAttributeDescription
	)
	for i, b := range desc.VertexBuffers {
		bindings = append(bindings, vk.VertexInputBindingDescription{
			Binding:   uint32(i),
			Stride:    b.Stride,
			InputRate: vk.VertexInputRateVertex,
		})
		for _, a := range b.Attributes {
			attributes = append(attributes, vk.VertexInputAttributeDescription{
				Location: a.Location,
				Binding:  uint32(i),
				Format:   vk.Format(a.Format),
				Offset:   a.Offset,
			})
		}
	}
	vertexInput := vk.PipelineVertexInputStateCreateInfo{
		SType:                           vk.StructureTypePipelineVertexInputStateCreateInfo,
		VertexBindingDescriptionCount:   uint32(len(bindings)),
		PVertexBindingDescriptions:      bindings,
		VertexAttributeDescriptionCount: uint32(len(attributes)),
		PVertexAttributeDescriptions:    attributes,
	}
	inputAssembly := vk.PipelineInputAssemblyStateCreateInfo{
		SType:    vk.StructureTypePipelineInputAssemblyStateCreateInfo,
		Topology: vk.PrimitiveTopology(desc.Topology),
	}
	viewport := vk.PipelineViewportStateCreateInfo{
		SType:         vk.StructureTypePipelineViewportStateCreateInfo,
		ViewportCount: 1,
		ScissorCount:  1,
	}
	rasterizer := vk.PipelineRasterizationStateCreateInfo{
		SType:       vk.StructureTypePipelineRasterizationStateCreateInfo,
		PolygonMode: vk.PolygonModeFill,
		CullMode:    vk.CullModeFlags(vk.CullModeNone),
		FrontFace:   vk.FrontFaceCounterClockwise,
		LineWidth:   1,
	}
	multisample := vk.PipelineMultisampleStateCreateInfo{
		SType:                vk.StructureTypePipelineMultisampleStateCreateInfo,
		RasterizationSamples: vk.SampleCount1Bit,
	}

	attachment := vk.PipelineColorBlendAttachmentState{
		ColorWriteMask: vk.ColorComponentFlags(vk.ColorComponentRBit | vk.ColorComponentGBit |
			vk.ColorComponentBBit | vk.ColorComponentABit),
	}
	if desc.Blend {
		attachment.BlendEnable = vk.True
		attachment.SrcColorBlendFactor = vk.BlendFactorSrcAlpha
		attachment.DstColorBlendFactor = vk.BlendFactorOneMinusSrcAlpha
		attachment.ColorBlendOp = vk.BlendOpAdd
		attachment.SrcAlphaBlendFactor = vk.BlendFactorOne
		attachment.DstAlphaBlendFactor = vk.BlendFactorOneMinusSrcAlpha
		attachment.AlphaBlendOp = vk.BlendOpAdd
	}
	blend := vk.PipelineColorBlendStateCreateInfo{
		SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
		LogicOp:         vk.LogicOpCopy,
		AttachmentCount: 1,
		PAttachments:    []vk.PipelineColorBlendAttachmentState{attachment},
	}

	dynamicStates := []vk.DynamicState{vk.DynamicStateViewport, vk.DynamicStateScissor}
	dynamic := vk.PipelineDynamicStateCreateInfo{
		SType:             vk.StructureTypePipelineDynamicStateCreateInfo,
		DynamicStateCount: uint32(len(dynamicStates)),
		PDynamicStates:    dynamicStates,
	}

	infos := []vk.GraphicsPipelineCreateInfo{{
		SType:               vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount:          uint32(len(stages)),
		PStages:             stages,
		PVertexInputState:   &vertexInput,
		PInputAssemblyState: &inputAssembly,
		PViewportState:      &viewport,
		PRasterizationState: &rasterizer,
		PMultisampleState:   &multisample,
		PColorBlendState:    &blend,
		PDynamicState:       &dynamic,
		Layout:              desc.Layout.(*pipelineLayout).handle,
		RenderPass:          desc.RenderPass.(*renderPass).handle,
		BasePipelineIndex:   -1,
	}}

	handles := make([]vk.Pipeline, 1)
	if err := result(vk.CreateGraphicsPipelines(d.handle, vk.PipelineCache(vk.NullHandle), 1, infos, nil, handles)); err != nil {
		return nil, debug.ErrorWrapf(err, "Failed to create graphics pipeline")
	}
	return &pipeline{device: d, handle: handles[0]}, nil
}

func (p *pipeline) Destroy() {
	vk.DestroyPipeline(p.device.handle, p.handle, nil)
}
