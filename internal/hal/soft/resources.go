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

package soft

import (
	"encoding/binary"
	"math"
	"slices"
	"sync"
	"sync/atomic"

	"goarrg.com/debug"

	"goarrg.com/nova/internal/hal"
)

type buffer struct {
	object
	desc hal.BufferDescriptor
	data []byte
}

var _ hal.Buffer = (*buffer)(nil)

func (d *Device) CreateBuffer(desc hal.BufferDescriptor) (hal.Buffer, error) {
	if desc.Size == 0 {
		return nil, debug.Errorf("Buffer size must be > 0")
	}
	if err := d.allocate(desc.Size); err != nil {
		return nil, err
	}
	b := &buffer{desc: desc, data: make([]byte, desc.Size)}
	b.init(d, "buffer")
	return b, nil
}

func (b *buffer) Size() uint64 {
	return b.desc.Size
}

func (b *buffer) hostAccess(offset uint64, n int) error {
	b.check()
	if b.desc.Memory != hal.MemoryHostVisible {
		return debug.Errorf("Buffer is not host visible")
	}
	if offset+uint64(n) > b.desc.Size {
		return debug.Errorf("Range [%d, %d) out of bounds for buffer of size %d", offset, offset+uint64(n), b.desc.Size)
	}
	return nil
}

func (b *buffer) Write(offset uint64, data []byte) error {
	if err := b.hostAccess(offset, len(data)); err != nil {
		return err
	}
	copy(b.data[offset:], data)
	return nil
}

func (b *buffer) Read(offset uint64, data []byte) error {
	if err := b.hostAccess(offset, len(data)); err != nil {
		return err
	}
	copy(data, b.data[offset:])
	return nil
}

func (b *buffer) Destroy() {
	b.release()
	b.device.free(b.desc.Size)
}

type image struct {
	object
	desc   hal.ImageDescriptor
	layout atomic.Uint32
	data   []byte
	// owned images belong to a swapchain and are not tracked as live objects.
	owned bool
}

var _ hal.Image = (*image)(nil)

func newImage(desc hal.ImageDescriptor) *image {
	size := uint64(desc.Extent.Width) * uint64(desc.Extent.Height) * desc.Format.BlockSize()
	return &image{desc: desc, data: make([]byte, size)}
}

func (d *Device) CreateImage(desc hal.ImageDescriptor) (hal.Image, error) {
	if desc.Extent.Width == 0 || desc.Extent.Height == 0 {
		return nil, debug.Errorf("Image extent must be > 0: %+v", desc.Extent)
	}
	if desc.Format.BlockSize() == 0 {
		return nil, hal.ErrorUnsupported{What: "image format " + desc.Format.String()}
	}
	img := newImage(desc)
	if err := d.allocate(uint64(len(img.data))); err != nil {
		return nil, err
	}
	img.init(d, "image")
	return img, nil
}

func (img *image) Extent() hal.Extent {
	return img.desc.Extent
}

func (img *image) Format() hal.Format {
	return img.desc.Format
}

func (img *image) Layout() hal.ImageLayout {
	return hal.ImageLayout(img.layout.Load())
}

func (img *image) setLayout(l hal.ImageLayout) {
	img.layout.Store(uint32(l))
}

func (img *image) contains(r hal.BufferImageCopy) bool {
	return r.ImageOffset.X >= 0 && r.ImageOffset.Y >= 0 &&
		uint64(r.ImageOffset.X)+uint64(r.ImageExtent.Width) <= uint64(img.desc.Extent.Width) &&
		uint64(r.ImageOffset.Y)+uint64(r.ImageExtent.Height) <= uint64(img.desc.Extent.Height)
}

func (img *image) regionSize(r hal.BufferImageCopy) uint64 {
	return uint64(r.ImageExtent.Width) * uint64(r.ImageExtent.Height) * img.desc.Format.BlockSize()
}

// copyRegion moves a region between buf and the image, toImage selects the direction.
func (img *image) copyRegion(r hal.BufferImageCopy, buf []byte, toImage bool) {
	bs := img.desc.Format.BlockSize()
	row := uint64(r.ImageExtent.Width) * bs
	for y := uint64(0); y < uint64(r.ImageExtent.Height); y++ {
		b := r.BufferOffset + y*row
		i := ((uint64(r.ImageOffset.Y)+y)*uint64(img.desc.Extent.Width) + uint64(r.ImageOffset.X)) * bs
		if toImage {
			copy(img.data[i:i+row], buf[b:b+row])
		} else {
			copy(buf[b:b+row], img.data[i:i+row])
		}
	}
}

func (img *image) fill(area hal.Rect, texel []byte) {
	r := hal.BufferImageCopy{ImageOffset: area.Offset, ImageExtent: area.Extent}
	if !img.contains(r) {
		r = hal.BufferImageCopy{ImageExtent: img.desc.Extent}
	}
	bs := uint64(len(texel))
	for y := uint64(0); y < uint64(r.ImageExtent.Height); y++ {
		for x := uint64(0); x < uint64(r.ImageExtent.Width); x++ {
			i := ((uint64(r.ImageOffset.Y)+y)*uint64(img.desc.Extent.Width) + uint64(r.ImageOffset.X) + x) * bs
			copy(img.data[i:i+bs], texel)
		}
	}
}

func (img *image) Destroy() {
	if img.owned {
		img.device.validationf("swapchain image destroyed")
		return
	}
	img.release()
	img.device.free(uint64(len(img.data)))
}

func unorm8(f float32) byte {
	return byte(math.Round(float64(min(max(f, 0), 1)) * 255))
}

func encodeTexel(f hal.Format, c [4]float32) []byte {
	switch f {
	case hal.FormatR8G8B8A8Unorm, hal.FormatR8G8B8A8Srgb:
		return []byte{unorm8(c[0]), unorm8(c[1]), unorm8(c[2]), unorm8(c[3])}
	case hal.FormatB8G8R8A8Unorm, hal.FormatB8G8R8A8Srgb:
		return []byte{unorm8(c[2]), unorm8(c[1]), unorm8(c[0]), unorm8(c[3])}
	}
	n := int(f.BlockSize() / 4)
	texel := make([]byte, f.BlockSize())
	for i := 0; i < n; i++ {
		binary.LittleEndian.PutUint32(texel[i*4:], math.Float32bits(c[i]))
	}
	return texel
}

// ImageLayout reports the layout the image is in after all executed commands.
func ImageLayout(i hal.Image) hal.ImageLayout {
	return i.(*image).Layout()
}

// ImageData returns a copy of the texels of the image.
func ImageData(i hal.Image) []byte {
	return slices.Clone(i.(*image).data)
}

type sampler struct {
	object
	desc hal.SamplerDescriptor
}

func (d *Device) CreateSampler(desc hal.SamplerDescriptor) (hal.Sampler, error) {
	s := &sampler{desc: desc}
	s.init(d, "sampler")
	return s, nil
}

func (s *sampler) Destroy() {
	s.release()
}

const spirvMagic = 0x07230203

type shaderModule struct {
	object
	words int
}

func (d *Device) CreateShaderModule(code []byte) (hal.ShaderModule, error) {
	if len(code) < 20 || len(code)%4 != 0 || binary.LittleEndian.Uint32(code) != spirvMagic {
		return nil, debug.Errorf("Invalid SPIR-V module of %d bytes", len(code))
	}
	m := &shaderModule{words: len(code) / 4}
	m.init(d, "shader module")
	return m, nil
}

func (m *shaderModule) Destroy() {
	m.release()
}

type descriptorSetLayout struct {
	object
	bindings []hal.DescriptorBinding
}

func (d *Device) CreateDescriptorSetLayout(bindings []hal.DescriptorBinding) (hal.DescriptorSetLayout, error) {
	seen := map[int]struct{}{}
	for _, b := range bindings {
		if _, ok := seen[b.Binding]; ok {
			return nil, debug.Errorf("Duplicate descriptor binding: %d", b.Binding)
		}
		seen[b.Binding] = struct{}{}
	}
	l := &descriptorSetLayout{bindings: slices.Clone(bindings)}
	l.init(d, "descriptor set layout")
	return l, nil
}

func (l *descriptorSetLayout) binding(n int) (hal.DescriptorBinding, bool) {
	for _, b := range l.bindings {
		if b.Binding == n {
			return b, true
		}
	}
	return hal.DescriptorBinding{}, false
}

func (l *descriptorSetLayout) Destroy() {
	l.release()
}

type descriptorPool struct {
	object
	desc hal.DescriptorPoolDescriptor

	mtx  sync.Mutex
	sets uint32
}

func (d *Device) CreateDescriptorPool(desc hal.DescriptorPoolDescriptor) (hal.DescriptorPool, error) {
	p := &descriptorPool{desc: desc}
	p.init(d, "descriptor pool")
	return p, nil
}

func (p *descriptorPool) Allocate(layout hal.DescriptorSetLayout) (hal.DescriptorSet, error) {
	p.check()
	p.mtx.Lock()
	defer p.mtx.Unlock()
	if p.sets >= p.desc.MaxSets {
		return nil, hal.ErrorTooManyObjects{}
	}
	p.sets++
	return &descriptorSet{pool: p, layout: layout.(*descriptorSetLayout), writes: map[int]hal.DescriptorWrite{}}, nil
}

func (p *descriptorPool) Destroy() {
	p.release()
}

type descriptorSet struct {
	pool   *descriptorPool
	layout *descriptorSetLayout

	mtx    sync.Mutex
	writes map[int]hal.DescriptorWrite
}

func (s *descriptorSet) Write(writes []hal.DescriptorWrite) {
	s.pool.check()
	s.mtx.Lock()
	defer s.mtx.Unlock()
	for _, w := range writes {
		b, ok := s.layout.binding(w.Binding)
		if !ok {
			s.pool.device.validationf("descriptor write to missing binding %d", w.Binding)
			continue
		}
		if b.Kind != w.Kind {
			s.pool.device.validationf("descriptor write of %s to binding %d of kind %s", w.Kind, w.Binding, b.Kind)
			continue
		}
		s.writes[w.Binding] = w
	}
}

type renderPass struct {
	object
	desc hal.RenderPassDescriptor
}

func (d *Device) CreateRenderPass(desc hal.RenderPassDescriptor) (hal.RenderPass, error) {
	if desc.Format.BlockSize() == 0 {
		return nil, hal.ErrorUnsupported{What: "render pass format " + desc.Format.String()}
	}
	p := &renderPass{desc: desc}
	p.init(d, "render pass")
	return p, nil
}

func (p *renderPass) Destroy() {
	p.release()
}

type framebuffer struct {
	object
	pass        *renderPass
	attachments []*image
	extent      hal.Extent
}

func (d *Device) CreateFramebuffer(desc hal.FramebufferDescriptor) (hal.Framebuffer, error) {
	pass := desc.RenderPass.(*renderPass)
	fb := &framebuffer{pass: pass, extent: desc.Extent}
	for _, a := range desc.Attachments {
		img := a.(*image)
		if img.desc.Format != pass.desc.Format {
			return nil, debug.Errorf("Attachment format %s does not match render pass format %s", img.desc.Format, pass.desc.Format)
		}
		if img.desc.Extent != desc.Extent {
			return nil, debug.Errorf("Attachment extent %+v does not match framebuffer extent %+v", img.desc.Extent, desc.Extent)
		}
		fb.attachments = append(fb.attachments, img)
	}
	fb.init(d, "framebuffer")
	return fb, nil
}

func (fb *framebuffer) Destroy() {
	fb.release()
}

type pipelineLayout struct {
	object
	desc hal.PipelineLayoutDescriptor
}

func (d *Device) CreatePipelineLayout(desc hal.PipelineLayoutDescriptor) (hal.PipelineLayout, error) {
	l := &pipelineLayout{desc: desc}
	l.init(d, "pipeline layout")
	return l, nil
}

func (l *pipelineLayout) Destroy() {
	l.release()
}

type pipeline struct {
	object
	desc hal.GraphicsPipelineDescriptor
}

func (d *Device) CreateGraphicsPipeline(desc hal.GraphicsPipelineDescriptor) (hal.Pipeline, error) {
	if desc.Layout == nil || desc.RenderPass == nil || desc.VertexShader == nil || desc.FragmentShader == nil {
		return nil, debug.Errorf("Incomplete graphics pipeline descriptor")
	}
	p := &pipeline{desc: desc}
	p.init(d, "pipeline")
	return p, nil
}

func (p *pipeline) Destroy() {
	p.release()
}
