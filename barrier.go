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

type StageRange struct {
	Src PipelineStage
	Dst PipelineStage
}

type AccessTransition struct {
	Src Access
	Dst Access
}

type LayoutTransition struct {
	Src ImageLayout
	Dst ImageLayout
}

// Barrier is one of MemoryBarrier, BufferBarrier or ImageBarrier.
type Barrier interface {
	barrier() hal.Barrier
}

type MemoryBarrier struct {
	Access AccessTransition
}

func (b MemoryBarrier) barrier() hal.Barrier {
	return hal.Barrier{SrcAccess: b.Access.Src, DstAccess: b.Access.Dst}
}

type BufferBarrier struct {
	Buffer *Buffer
	Access AccessTransition
}

func (b BufferBarrier) barrier() hal.Barrier {
	return hal.Barrier{SrcAccess: b.Access.Src, DstAccess: b.Access.Dst, Buffer: b.Buffer.raw.Get()}
}

type ImageBarrier struct {
	Image  *Image
	Access AccessTransition
	Layout LayoutTransition
}

func (b ImageBarrier) barrier() hal.Barrier {
	if b.Layout.Dst == ImageLayoutUndefined {
		abort("ImageBarrier cannot transition to ImageLayoutUndefined")
	}
	return hal.Barrier{
		SrcAccess: b.Access.Src,
		DstAccess: b.Access.Dst,
		Image:     b.Image.raw.Get(),
		OldLayout: b.Layout.Src,
		NewLayout: b.Layout.Dst,
	}
}
