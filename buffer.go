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
	"fmt"

	"goarrg.com/debug"

	"goarrg.com/nova/internal/hal"
	"goarrg.com/nova/internal/util"
)

type BufferKind int

const (
	BufferKindVertex BufferKind = iota
	BufferKindIndex
	BufferKindUniform
	BufferKindStorage
	// BufferKindStaging is host visible and the only kind HostWrite and HostRead accept.
	BufferKindStaging
)

func (k BufferKind) String() string {
	switch k {
	case BufferKindVertex:
		return "Vertex"
	case BufferKindIndex:
		return "Index"
	case BufferKindUniform:
		return "Uniform"
	case BufferKindStorage:
		return "Storage"
	case BufferKindStaging:
		return "Staging"
	default:
		return fmt.Sprintf("BufferKind(%d)", int(k))
	}
}

func (k BufferKind) descriptor(size uint64) hal.BufferDescriptor {
	usage := hal.BufferUsageTransferSrc | hal.BufferUsageTransferDst
	memory := hal.MemoryDeviceLocal
	switch k {
	case BufferKindVertex:
		usage |= hal.BufferUsageVertex
	case BufferKindIndex:
		usage |= hal.BufferUsageIndex
	case BufferKindUniform:
		usage |= hal.BufferUsageUniform
	case BufferKindStorage:
		usage |= hal.BufferUsageStorage
	case BufferKindStaging:
		memory = hal.MemoryHostVisible
	default:
		abort("Unknown buffer kind: %s", k)
	}
	return hal.BufferDescriptor{Size: size, Usage: usage, Memory: memory}
}

// Buffer is a linear allocation of Len elements of Stride bytes each.
type Buffer struct {
	ctx    *Context
	raw    util.Droppable[hal.Buffer]
	kind   BufferKind
	size   uint64
	stride uint64
}

func newBuffer(ctx *Context, kind BufferKind, size, stride uint64) (*Buffer, error) {
	if size == 0 || stride == 0 {
		abort("Buffer size and stride must be > 0")
	}
	if size%stride != 0 {
		abort("Buffer size %d is not a multiple of stride %d", size, stride)
	}
	raw, err := ctx.device.CreateBuffer(kind.descriptor(size))
	if err != nil {
		return nil, debug.ErrorWrapf(err, "Failed to create %s buffer of %s", kind, byteSize(size))
	}
	ctx.retain()
	b := &Buffer{ctx: ctx, kind: kind, size: size, stride: stride}
	b.raw.Set(raw)
	return b, nil
}

// NewBuffer creates a buffer of size bytes.
func NewBuffer(ctx *Context, kind BufferKind, size uint64) (*Buffer, error) {
	return newBuffer(ctx, kind, size, 1)
}

// NewBufferOf creates a buffer holding n values of T.
func NewBufferOf[T any](ctx *Context, kind BufferKind, n uint64) (*Buffer, error) {
	stride := util.SizeOf[T]()
	return newBuffer(ctx, kind, n*stride, stride)
}

func (b *Buffer) Kind() BufferKind {
	return b.kind
}

func (b *Buffer) Size() uint64 {
	return b.size
}

func (b *Buffer) Stride() uint64 {
	return b.stride
}

func (b *Buffer) Len() uint64 {
	return b.size / b.stride
}

func (b *Buffer) checkHostAccess(op string, offset uint64, n int) hal.Buffer {
	raw := b.raw.Get()
	if b.kind != BufferKindStaging {
		abort("%s on %s buffer, only staging buffers are host visible", op, b.kind)
	}
	if offset+uint64(n) > b.size {
		abort("%s: range [%d, %d) out of bounds for buffer of size %d", op, offset, offset+uint64(n), b.size)
	}
	return raw
}

func (b *Buffer) HostWrite(offset uint64, data []byte) {
	raw := b.checkHostAccess("HostWrite", offset, len(data))
	if err := raw.Write(offset, data); err != nil {
		abort("HostWrite failed: %v", err)
	}
}

func (b *Buffer) HostRead(offset uint64, data []byte) {
	raw := b.checkHostAccess("HostRead", offset, len(data))
	if err := raw.Read(offset, data); err != nil {
		abort("HostRead failed: %v", err)
	}
}

// HostWriteSlice writes s at element index i of a staging buffer.
func HostWriteSlice[T any](b *Buffer, i uint64, s []T) {
	b.HostWrite(i*util.SizeOf[T](), util.SliceBytes(s))
}

// HostReadSlice fills s from element index i of a staging buffer.
func HostReadSlice[T any](b *Buffer, i uint64, s []T) {
	b.HostRead(i*util.SizeOf[T](), util.SliceBytes(s))
}

func (b *Buffer) Destroy() {
	raw, ok := b.raw.Take()
	if !ok {
		return
	}
	raw.Destroy()
	b.ctx.release()
}
