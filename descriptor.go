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

	"goarrg.com/nova/internal/hal"
	"goarrg.com/nova/internal/util"
)

// DescriptorLayout has one binding per kind, numbered from 0 in order.
type DescriptorLayout struct {
	ctx    *Context
	raw    util.Droppable[hal.DescriptorSetLayout]
	kinds  []DescriptorKind
	stages ShaderStage
}

func NewDescriptorLayout(ctx *Context, stages ShaderStage, kinds ...DescriptorKind) (*DescriptorLayout, error) {
	if len(kinds) == 0 {
		abort("DescriptorLayout needs at least one binding")
	}
	bindings := make([]hal.DescriptorBinding, len(kinds))
	for i, k := range kinds {
		bindings[i] = hal.DescriptorBinding{Binding: i, Kind: k, Stages: stages}
	}
	raw, err := ctx.device.CreateDescriptorSetLayout(bindings)
	if err != nil {
		return nil, debug.ErrorWrapf(err, "Failed to create descriptor set layout")
	}
	ctx.retain()
	l := &DescriptorLayout{ctx: ctx, kinds: append([]DescriptorKind(nil), kinds...), stages: stages}
	l.raw.Set(raw)
	return l, nil
}

func (l *DescriptorLayout) Kinds() []DescriptorKind {
	return append([]DescriptorKind(nil), l.kinds...)
}

func (l *DescriptorLayout) Destroy() {
	raw, ok := l.raw.Take()
	if !ok {
		return
	}
	raw.Destroy()
	l.ctx.release()
}

// DescriptorPool allocates sets of a single layout, sets live until the pool is destroyed.
type DescriptorPool struct {
	ctx     *Context
	raw     util.Droppable[hal.DescriptorPool]
	layout  *DescriptorLayout
	maxSets uint32
}

func NewDescriptorPool(layout *DescriptorLayout, maxSets uint32) (*DescriptorPool, error) {
	layout.raw.Get()
	if maxSets == 0 {
		abort("DescriptorPool maxSets must be > 0")
	}
	bindings := make([]hal.DescriptorBinding, len(layout.kinds))
	for i, k := range layout.kinds {
		bindings[i] = hal.DescriptorBinding{Binding: i, Kind: k, Stages: layout.stages}
	}
	raw, err := layout.ctx.device.CreateDescriptorPool(hal.DescriptorPoolDescriptor{MaxSets: maxSets, Bindings: bindings})
	if err != nil {
		return nil, debug.ErrorWrapf(err, "Failed to create descriptor pool")
	}
	layout.ctx.retain()
	p := &DescriptorPool{ctx: layout.ctx, layout: layout, maxSets: maxSets}
	p.raw.Set(raw)
	return p, nil
}

func (p *DescriptorPool) Allocate() (*DescriptorSet, error) {
	raw, err := p.raw.Get().Allocate(p.layout.raw.Get())
	if err != nil {
		return nil, debug.ErrorWrapf(err, "Failed to allocate descriptor set")
	}
	return &DescriptorSet{pool: p, raw: raw}, nil
}

func (p *DescriptorPool) Destroy() {
	raw, ok := p.raw.Take()
	if !ok {
		return
	}
	raw.Destroy()
	p.ctx.release()
}

type DescriptorSet struct {
	pool *DescriptorPool
	raw  hal.DescriptorSet
}

type DescriptorInfo interface {
	write(binding int) hal.DescriptorWrite
}

// DescriptorBufferInfo binds a uniform or storage buffer.
type DescriptorBufferInfo struct {
	Buffer *Buffer
}

func (i DescriptorBufferInfo) write(binding int) hal.DescriptorWrite {
	w := hal.DescriptorWrite{Binding: binding, Buffer: i.Buffer.raw.Get()}
	switch i.Buffer.kind {
	case BufferKindUniform:
		w.Kind = DescriptorKindUniformBuffer
	case BufferKindStorage:
		w.Kind = DescriptorKindStorageBuffer
	default:
		abort("%s buffers cannot be bound to descriptors", i.Buffer.kind)
	}
	return w
}

type DescriptorImageInfo struct {
	Image  *Image
	Layout ImageLayout
}

func (i DescriptorImageInfo) write(binding int) hal.DescriptorWrite {
	return hal.DescriptorWrite{Binding: binding, Kind: DescriptorKindSampledImage, Image: i.Image.raw.Get(), Layout: i.Layout}
}

type DescriptorSamplerInfo struct {
	Sampler *Sampler
}

func (i DescriptorSamplerInfo) write(binding int) hal.DescriptorWrite {
	return hal.DescriptorWrite{Binding: binding, Kind: DescriptorKindSampler, Sampler: i.Sampler.raw.Get()}
}

type DescriptorCombinedImageSamplerInfo struct {
	Image   *Image
	Layout  ImageLayout
	Sampler *Sampler
}

func (i DescriptorCombinedImageSamplerInfo) write(binding int) hal.DescriptorWrite {
	return hal.DescriptorWrite{
		Binding: binding,
		Kind:    DescriptorKindCombinedImageSampler,
		Image:   i.Image.raw.Get(),
		Layout:  i.Layout,
		Sampler: i.Sampler.raw.Get(),
	}
}

// Write points binding at the resource described by info, the binding's kind must match.
func (s *DescriptorSet) Write(binding int, info DescriptorInfo) {
	s.pool.raw.Get()
	kinds := s.pool.layout.kinds
	if binding < 0 || binding >= len(kinds) {
		abort("Descriptor binding %d out of range [0, %d)", binding, len(kinds))
	}
	w := info.write(binding)
	if w.Kind != kinds[binding] {
		abort("Descriptor binding %d is %s, got %s", binding, kinds[binding], w.Kind)
	}
	s.raw.Write([]hal.DescriptorWrite{w})
}
