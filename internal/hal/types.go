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

package hal

import (
	"fmt"
	"strings"
)

// Enum and flag values mirror their Vulkan counterparts so backends can convert by cast.

type PipelineStage uint32

const (
	PipelineStageTopOfPipe             PipelineStage = 0x00000001
	PipelineStageDrawIndirect          PipelineStage = 0x00000002
	PipelineStageVertexInput           PipelineStage = 0x00000004
	PipelineStageVertexShader          PipelineStage = 0x00000008
	PipelineStageFragmentShader        PipelineStage = 0x00000080
	PipelineStageColorAttachmentOutput PipelineStage = 0x00000400
	PipelineStageComputeShader         PipelineStage = 0x00000800
	PipelineStageTransfer              PipelineStage = 0x00001000
	PipelineStageBottomOfPipe          PipelineStage = 0x00002000
	PipelineStageHost                  PipelineStage = 0x00004000
	PipelineStageAllGraphics           PipelineStage = 0x00008000
	PipelineStageAllCommands           PipelineStage = 0x00010000
)

var pipelineStageNames = []struct {
	bit  PipelineStage
	name string
}{
	{PipelineStageTopOfPipe, "TopOfPipe"},
	{PipelineStageDrawIndirect, "DrawIndirect"},
	{PipelineStageVertexInput, "VertexInput"},
	{PipelineStageVertexShader, "VertexShader"},
	{PipelineStageFragmentShader, "FragmentShader"},
	{PipelineStageColorAttachmentOutput, "ColorAttachmentOutput"},
	{PipelineStageComputeShader, "ComputeShader"},
	{PipelineStageTransfer, "Transfer"},
	{PipelineStageBottomOfPipe, "BottomOfPipe"},
	{PipelineStageHost, "Host"},
	{PipelineStageAllGraphics, "AllGraphics"},
	{PipelineStageAllCommands, "AllCommands"},
}

func (s PipelineStage) String() string {
	str := ""
	for _, n := range pipelineStageNames {
		if (s & n.bit) == n.bit {
			str += n.name + "|"
		}
	}
	if str == "" {
		return "None"
	}
	return strings.TrimSuffix(str, "|")
}

type Access uint32

const (
	AccessNone                 Access = 0
	AccessIndexRead            Access = 0x00000002
	AccessVertexAttributeRead  Access = 0x00000004
	AccessUniformRead          Access = 0x00000008
	AccessShaderRead           Access = 0x00000020
	AccessShaderWrite          Access = 0x00000040
	AccessColorAttachmentRead  Access = 0x00000080
	AccessColorAttachmentWrite Access = 0x00000100
	AccessTransferRead         Access = 0x00000800
	AccessTransferWrite        Access = 0x00001000
	AccessHostRead             Access = 0x00002000
	AccessHostWrite            Access = 0x00004000
	AccessMemoryRead           Access = 0x00008000
	AccessMemoryWrite          Access = 0x00010000
)

type ImageLayout uint32

const (
	ImageLayoutUndefined              ImageLayout = 0
	ImageLayoutGeneral                ImageLayout = 1
	ImageLayoutColorAttachmentOptimal ImageLayout = 2
	ImageLayoutShaderReadOnlyOptimal  ImageLayout = 5
	ImageLayoutTransferSrcOptimal     ImageLayout = 6
	ImageLayoutTransferDstOptimal     ImageLayout = 7
	ImageLayoutPresentSrc             ImageLayout = 1000001002
)

func (l ImageLayout) String() string {
	switch l {
	case ImageLayoutUndefined:
		return "Undefined"
	case ImageLayoutGeneral:
		return "General"
	case ImageLayoutColorAttachmentOptimal:
		return "ColorAttachmentOptimal"
	case ImageLayoutShaderReadOnlyOptimal:
		return "ShaderReadOnlyOptimal"
	case ImageLayoutTransferSrcOptimal:
		return "TransferSrcOptimal"
	case ImageLayoutTransferDstOptimal:
		return "TransferDstOptimal"
	case ImageLayoutPresentSrc:
		return "PresentSrc"
	default:
		return fmt.Sprintf("ImageLayout(%d)", uint32(l))
	}
}

type Format uint32

const (
	FormatUndefined          Format = 0
	FormatR8G8B8A8Unorm      Format = 37
	FormatR8G8B8A8Srgb       Format = 43
	FormatB8G8R8A8Unorm      Format = 44
	FormatB8G8R8A8Srgb       Format = 50
	FormatR32G32Sfloat       Format = 103
	FormatR32G32B32Sfloat    Format = 106
	FormatR32G32B32A32Sfloat Format = 109
)

func (f Format) String() string {
	switch f {
	case FormatUndefined:
		return "Undefined"
	case FormatR8G8B8A8Unorm:
		return "R8G8B8A8Unorm"
	case FormatR8G8B8A8Srgb:
		return "R8G8B8A8Srgb"
	case FormatB8G8R8A8Unorm:
		return "B8G8R8A8Unorm"
	case FormatB8G8R8A8Srgb:
		return "B8G8R8A8Srgb"
	case FormatR32G32Sfloat:
		return "R32G32Sfloat"
	case FormatR32G32B32Sfloat:
		return "R32G32B32Sfloat"
	case FormatR32G32B32A32Sfloat:
		return "R32G32B32A32Sfloat"
	default:
		return fmt.Sprintf("Format(%d)", uint32(f))
	}
}

// BlockSize returns the size in bytes of one texel, 0 for unknown formats.
func (f Format) BlockSize() uint64 {
	switch f {
	case FormatR8G8B8A8Unorm, FormatR8G8B8A8Srgb, FormatB8G8R8A8Unorm, FormatB8G8R8A8Srgb:
		return 4
	case FormatR32G32Sfloat:
		return 8
	case FormatR32G32B32Sfloat:
		return 12
	case FormatR32G32B32A32Sfloat:
		return 16
	default:
		return 0
	}
}

type BufferUsage uint32

const (
	BufferUsageTransferSrc BufferUsage = 0x00000001
	BufferUsageTransferDst BufferUsage = 0x00000002
	BufferUsageUniform     BufferUsage = 0x00000010
	BufferUsageStorage     BufferUsage = 0x00000020
	BufferUsageIndex       BufferUsage = 0x00000040
	BufferUsageVertex      BufferUsage = 0x00000080
)

type ImageUsage uint32

const (
	ImageUsageTransferSrc     ImageUsage = 0x00000001
	ImageUsageTransferDst     ImageUsage = 0x00000002
	ImageUsageSampled         ImageUsage = 0x00000004
	ImageUsageColorAttachment ImageUsage = 0x00000010
)

type MemoryKind uint32

const (
	MemoryDeviceLocal MemoryKind = iota
	MemoryHostVisible
)

type ShaderStage uint32

const (
	ShaderStageVertex   ShaderStage = 0x00000001
	ShaderStageFragment ShaderStage = 0x00000010
	ShaderStageCompute  ShaderStage = 0x00000020
)

type DescriptorKind uint32

const (
	DescriptorKindSampler              DescriptorKind = 0
	DescriptorKindCombinedImageSampler DescriptorKind = 1
	DescriptorKindSampledImage         DescriptorKind = 2
	DescriptorKindStorageImage         DescriptorKind = 3
	DescriptorKindUniformBuffer        DescriptorKind = 6
	DescriptorKindStorageBuffer        DescriptorKind = 7
)

func (k DescriptorKind) String() string {
	switch k {
	case DescriptorKindSampler:
		return "Sampler"
	case DescriptorKindCombinedImageSampler:
		return "CombinedImageSampler"
	case DescriptorKindSampledImage:
		return "SampledImage"
	case DescriptorKindStorageImage:
		return "StorageImage"
	case DescriptorKindUniformBuffer:
		return "UniformBuffer"
	case DescriptorKindStorageBuffer:
		return "StorageBuffer"
	default:
		return fmt.Sprintf("DescriptorKind(%d)", uint32(k))
	}
}

type IndexType uint32

const (
	IndexTypeUint16 IndexType = 0
	IndexTypeUint32 IndexType = 1
)

type Filter uint32

const (
	FilterNearest Filter = 0
	FilterLinear  Filter = 1
)

type PrimitiveTopology uint32

const (
	PrimitiveTopologyTriangleList  PrimitiveTopology = 3
	PrimitiveTopologyTriangleStrip PrimitiveTopology = 4
)

type AttachmentLoadOp uint32

const (
	AttachmentLoadOpLoad     AttachmentLoadOp = 0
	AttachmentLoadOpClear    AttachmentLoadOp = 1
	AttachmentLoadOpDontCare AttachmentLoadOp = 2
)

type Extent struct {
	Width  uint32
	Height uint32
}

type Offset struct {
	X int32
	Y int32
}

type Rect struct {
	Offset Offset
	Extent Extent
}

type Barrier struct {
	SrcAccess Access
	DstAccess Access
	// Buffer and Image are mutually exclusive, both nil makes a global memory barrier.
	Buffer    Buffer
	Image     Image
	OldLayout ImageLayout
	NewLayout ImageLayout
}

type BufferCopy struct {
	SrcOffset uint64
	DstOffset uint64
	Size      uint64
}

// BufferImageCopy copies tightly packed texels, rows are Extent.Width texels long.
type BufferImageCopy struct {
	BufferOffset uint64
	ImageOffset  Offset
	ImageExtent  Extent
}

type BufferDescriptor struct {
	Size   uint64
	Usage  BufferUsage
	Memory MemoryKind
}

type ImageDescriptor struct {
	Extent Extent
	Format Format
	Usage  ImageUsage
}

type SamplerDescriptor struct {
	Filter Filter
}

type DescriptorBinding struct {
	Binding int
	Kind    DescriptorKind
	Stages  ShaderStage
}

type DescriptorPoolDescriptor struct {
	MaxSets  uint32
	Bindings []DescriptorBinding
}

type DescriptorWrite struct {
	Binding int
	Kind    DescriptorKind
	Buffer  Buffer
	Image   Image
	Layout  ImageLayout
	Sampler Sampler
}

type RenderPassDescriptor struct {
	Format      Format
	LoadOp      AttachmentLoadOp
	FinalLayout ImageLayout
}

type FramebufferDescriptor struct {
	RenderPass  RenderPass
	Attachments []Image
	Extent      Extent
}

type PushConstantRange struct {
	Stages ShaderStage
	Size   uint32
}

type PipelineLayoutDescriptor struct {
	SetLayouts    []DescriptorSetLayout
	PushConstants PushConstantRange
}

type VertexAttribute struct {
	Location uint32
	Format   Format
	Offset   uint32
}

type VertexBufferLayout struct {
	Stride     uint32
	Attributes []VertexAttribute
}

type GraphicsPipelineDescriptor struct {
	Layout         PipelineLayout
	RenderPass     RenderPass
	VertexShader   ShaderModule
	FragmentShader ShaderModule
	// EntryPoint defaults to "main" when empty.
	VertexEntryPoint   string
	FragmentEntryPoint string
	VertexBuffers      []VertexBufferLayout
	Topology           PrimitiveTopology
	Blend              bool
}
