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
	"goarrg.com/nova/internal/hal"
)

type (
	Backend = hal.Backend
	Window  = hal.Window

	Format            = hal.Format
	ImageLayout       = hal.ImageLayout
	ImageUsage        = hal.ImageUsage
	PipelineStage     = hal.PipelineStage
	Access            = hal.Access
	ShaderStage       = hal.ShaderStage
	DescriptorKind    = hal.DescriptorKind
	IndexType         = hal.IndexType
	PrimitiveTopology = hal.PrimitiveTopology
	AttachmentLoadOp  = hal.AttachmentLoadOp
	SamplerFilter     = hal.Filter

	VertexAttribute    = hal.VertexAttribute
	VertexBufferLayout = hal.VertexBufferLayout
)

const (
	FormatUndefined          = hal.FormatUndefined
	FormatR8G8B8A8Unorm      = hal.FormatR8G8B8A8Unorm
	FormatR8G8B8A8Srgb       = hal.FormatR8G8B8A8Srgb
	FormatB8G8R8A8Unorm      = hal.FormatB8G8R8A8Unorm
	FormatB8G8R8A8Srgb       = hal.FormatB8G8R8A8Srgb
	FormatR32G32Sfloat       = hal.FormatR32G32Sfloat
	FormatR32G32B32Sfloat    = hal.FormatR32G32B32Sfloat
	FormatR32G32B32A32Sfloat = hal.FormatR32G32B32A32Sfloat
)

const (
	ImageLayoutUndefined              = hal.ImageLayoutUndefined
	ImageLayoutGeneral                = hal.ImageLayoutGeneral
	ImageLayoutColorAttachmentOptimal = hal.ImageLayoutColorAttachmentOptimal
	ImageLayoutShaderReadOnlyOptimal  = hal.ImageLayoutShaderReadOnlyOptimal
	ImageLayoutTransferSrcOptimal     = hal.ImageLayoutTransferSrcOptimal
	ImageLayoutTransferDstOptimal     = hal.ImageLayoutTransferDstOptimal
	ImageLayoutPresentSrc             = hal.ImageLayoutPresentSrc
)

const (
	ImageUsageTransferSrc     = hal.ImageUsageTransferSrc
	ImageUsageTransferDst     = hal.ImageUsageTransferDst
	ImageUsageSampled         = hal.ImageUsageSampled
	ImageUsageColorAttachment = hal.ImageUsageColorAttachment
)

const (
	PipelineStageTopOfPipe             = hal.PipelineStageTopOfPipe
	PipelineStageDrawIndirect          = hal.PipelineStageDrawIndirect
	PipelineStageVertexInput           = hal.PipelineStageVertexInput
	PipelineStageVertexShader          = hal.PipelineStageVertexShader
	PipelineStageFragmentShader        = hal.PipelineStageFragmentShader
	PipelineStageColorAttachmentOutput = hal.PipelineStageColorAttachmentOutput
	PipelineStageComputeShader         = hal.PipelineStageComputeShader
	PipelineStageTransfer              = hal.PipelineStageTransfer
	PipelineStageBottomOfPipe          = hal.PipelineStageBottomOfPipe
	PipelineStageHost                  = hal.PipelineStageHost
	PipelineStageAllGraphics           = hal.PipelineStageAllGraphics
	PipelineStageAllCommands           = hal.PipelineStageAllCommands
)

const (
	AccessNone                 = hal.AccessNone
	AccessIndexRead            = hal.AccessIndexRead
	AccessVertexAttributeRead  = hal.AccessVertexAttributeRead
	AccessUniformRead          = hal.AccessUniformRead
	AccessShaderRead           = hal.AccessShaderRead
	AccessShaderWrite          = hal.AccessShaderWrite
	AccessColorAttachmentRead  = hal.AccessColorAttachmentRead
	AccessColorAttachmentWrite = hal.AccessColorAttachmentWrite
	AccessTransferRead         = hal.AccessTransferRead
	AccessTransferWrite        = hal.AccessTransferWrite
	AccessHostRead             = hal.AccessHostRead
	AccessHostWrite            = hal.AccessHostWrite
	AccessMemoryRead           = hal.AccessMemoryRead
	AccessMemoryWrite          = hal.AccessMemoryWrite
)

const (
	ShaderStageVertex   = hal.ShaderStageVertex
	ShaderStageFragment = hal.ShaderStageFragment
	ShaderStageCompute  = hal.ShaderStageCompute
	ShaderStageGraphics = hal.ShaderStageVertex | hal.ShaderStageFragment
)

const (
	DescriptorKindSampler              = hal.DescriptorKindSampler
	DescriptorKindCombinedImageSampler = hal.DescriptorKindCombinedImageSampler
	DescriptorKindSampledImage         = hal.DescriptorKindSampledImage
	DescriptorKindStorageImage         = hal.DescriptorKindStorageImage
	DescriptorKindUniformBuffer        = hal.DescriptorKindUniformBuffer
	DescriptorKindStorageBuffer        = hal.DescriptorKindStorageBuffer
)

const (
	IndexTypeUint16 = hal.IndexTypeUint16
	IndexTypeUint32 = hal.IndexTypeUint32
)

const (
	PrimitiveTopologyTriangleList  = hal.PrimitiveTopologyTriangleList
	PrimitiveTopologyTriangleStrip = hal.PrimitiveTopologyTriangleStrip
)

const (
	AttachmentLoadOpLoad     = hal.AttachmentLoadOpLoad
	AttachmentLoadOpClear    = hal.AttachmentLoadOpClear
	AttachmentLoadOpDontCare = hal.AttachmentLoadOpDontCare
)

const (
	SamplerFilterNearest = hal.FilterNearest
	SamplerFilterLinear  = hal.FilterLinear
)
