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

// Image is a single mip, single layer 2D image.
type Image struct {
	ctx    *Context
	raw    util.Droppable[hal.Image]
	size   gmath.Extent2i32
	format Format
	usage  ImageUsage
	// borrowed images belong to a swapchain, Destroy only forgets them.
	borrowed bool
}

func NewImage(ctx *Context, size gmath.Extent2i32, format Format, usage ImageUsage) (*Image, error) {
	if size.X < 1 || size.Y < 1 {
		abort("Image size must be >= 1: %+v", size)
	}
	if format.BlockSize() == 0 {
		abort("Unsupported image format: %s", format)
	}
	raw, err := ctx.device.CreateImage(hal.ImageDescriptor{
		Extent: extentOf(size),
		Format: format,
		Usage:  usage,
	})
	if err != nil {
		return nil, debug.ErrorWrapf(err, "Failed to create %s image of %dx%d", format, size.X, size.Y)
	}
	ctx.retain()
	img := &Image{ctx: ctx, size: size, format: format, usage: usage}
	img.raw.Set(raw)
	return img, nil
}

func borrowImage(ctx *Context, raw hal.Image) *Image {
	e := raw.Extent()
	img := &Image{
		ctx:      ctx,
		size:     gmath.Extent2i32{X: int32(e.Width), Y: int32(e.Height)},
		format:   raw.Format(),
		usage:    ImageUsageColorAttachment | ImageUsageTransferSrc,
		borrowed: true,
	}
	img.raw.Set(raw)
	return img
}

func (img *Image) Size() gmath.Extent2i32 {
	return img.size
}

func (img *Image) Format() Format {
	return img.format
}

func (img *Image) Usage() ImageUsage {
	return img.usage
}

func (img *Image) requireUsage(op string, usage ImageUsage) {
	if !hasBits(img.usage, usage) {
		abort("%s: image usage %#x lacks %#x", op, img.usage, usage)
	}
}

// ByteSize is the size of the tightly packed texels of the whole image.
func (img *Image) ByteSize() uint64 {
	return uint64(img.size.X) * uint64(img.size.Y) * img.format.BlockSize()
}

func (img *Image) regionSize(r hal.BufferImageCopy) uint64 {
	return uint64(r.ImageExtent.Width) * uint64(r.ImageExtent.Height) * img.format.BlockSize()
}

func (img *Image) Destroy() {
	raw, ok := img.raw.Take()
	if !ok || img.borrowed {
		return
	}
	raw.Destroy()
	img.ctx.release()
}

type Sampler struct {
	ctx    *Context
	raw    util.Droppable[hal.Sampler]
	filter SamplerFilter
}

func NewSampler(ctx *Context, filter SamplerFilter) (*Sampler, error) {
	raw, err := ctx.device.CreateSampler(hal.SamplerDescriptor{Filter: filter})
	if err != nil {
		return nil, debug.ErrorWrapf(err, "Failed to create sampler")
	}
	ctx.retain()
	s := &Sampler{ctx: ctx, filter: filter}
	s.raw.Set(raw)
	return s, nil
}

func (s *Sampler) Filter() SamplerFilter {
	return s.filter
}

func (s *Sampler) Destroy() {
	raw, ok := s.raw.Take()
	if !ok {
		return
	}
	raw.Destroy()
	s.ctx.release()
}
