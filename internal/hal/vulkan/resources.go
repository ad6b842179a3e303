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
	"unsafe"

	vk "github.com/vulkan-go/vulkan"
	"goarrg.com/debug"

	"goarrg.com/nova/internal/hal"
)

type buffer struct {
	device *Device
	handle vk.Buffer
	memory vk.DeviceMemory
	size   uint64
	// mapped is the persistent mapping of host visible buffers, nil otherwise.
	mapped unsafe.Pointer
}

func (d *Device) CreateBuffer(desc hal.BufferDescriptor) (hal.Buffer, error) {
	mode, families := d.sharingMode()
	info := vk.BufferCreateInfo{
		SType:                 vk.StructureTypeBufferCreateInfo,
		Size:                  vk.DeviceSize(desc.Size),
		Usage:                 vk.BufferUsageFlags(desc.Usage),
		SharingMode:           mode,
		QueueFamilyIndexCount: uint32(len(families)),
		PQueueFamilyIndices:   families,
	}

	b := &buffer{device: d, size: desc.Size}
	if err := result(vk.CreateBuffer(d.handle, &info, nil, &b.handle)); err != nil {
		return nil, debug.ErrorWrapf(err, "Failed to create buffer of %d bytes", desc.Size)
	}

	var reqs vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(d.handle, b.handle, &reqs)
	reqs.Deref()

	mem, err := d.allocate(reqs, desc.Memory)
	if err != nil {
		vk.DestroyBuffer(d.handle, b.handle, nil)
		return nil, err
	}
	b.memory = mem

	if err := result(vk.BindBufferMemory(d.handle, b.handle, b.memory, 0)); err != nil {
		b.Destroy()
		return nil, debug.ErrorWrapf(err, "Failed to bind buffer memory")
	}

	if desc.Memory == hal.MemoryHostVisible {
		var ptr unsafe.Pointer
		if err := result(vk.MapMemory(d.handle, b.memory, 0, vk.DeviceSize(desc.Size), 0, &ptr)); err != nil {
			b.Destroy()
			return nil, debug.ErrorWrapf(err, "Failed to map buffer memory")
		}
		b.mapped = ptr
	}
	return b, nil
}

func (b *buffer) Size() uint64 {
	return b.size
}

func (b *buffer) checkHostAccess(offset uint64, n int) error {
	if b.mapped == nil {
		return debug.Errorf("Buffer is not host visible")
	}
	if offset+uint64(n) > b.size {
		return debug.Errorf("Access of %d bytes at offset %d overflows buffer of %d bytes", n, offset, b.size)
	}
	return nil
}

func (b *buffer) Write(offset uint64, data []byte) error {
	if err := b.checkHostAccess(offset, len(data)); err != nil {
		return err
	}
	vk.Memcopy(unsafe.Add(b.mapped, offset), data)
	return nil
}

func (b *buffer) Read(offset uint64, data []byte) error {
	if err := b.checkHostAccess(offset, len(data)); err != nil {
		return err
	}
	copy(data, unsafe.Slice((*byte)(unsafe.Add(b.mapped, offset)), len(data)))
	return nil
}

func (b *buffer) Destroy() {
	if b.mapped != nil {
		vk.UnmapMemory(b.device.handle, b.memory)
		b.mapped = nil
	}
	vk.DestroyBuffer(b.device.handle, b.handle, nil)
	if b.memory != vk.DeviceMemory(vk.NullHandle) {
		vk.FreeMemory(b.device.handle, b.memory, nil)
	}
}

type image struct {
	device *Device
	handle vk.Image
	view   vk.ImageView
	// memory is null for swapchain images, those are owned by the swapchain.
	memory vk.DeviceMemory
	extent hal.Extent
	format hal.Format
}

var colorSubresource = vk.ImageSubresourceRange{
	AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
	LevelCount: 1,
	LayerCount: 1,
}

func (d *Device) CreateImage(desc hal.ImageDescriptor) (hal.Image, error) {
	mode, families := d.sharingMode()
	info := vk.ImageCreateInfo{
		SType:     vk.StructureTypeImageCreateInfo,
		ImageType: vk.ImageType2d,
		Format:    vk.Format(desc.Format),
		Extent: vk.Extent3D{
			Width:  desc.Extent.Width,
			Height: desc.Extent.Height,
			Depth:  1,
		},
		MipLevels:             1,
		ArrayLayers:           1,
		Samples:               vk.SampleCount1Bit,
		Tiling:                vk.ImageTilingOptimal,
		Usage:                 vk.ImageUsageFlags(desc.Usage),
		SharingMode:           mode,
		QueueFamilyIndexCount: uint32(len(families)),
		PQueueFamilyIndices:   families,
		InitialLayout:         vk.ImageLayoutUndefined,
	}

	img := &image{device: d, extent: desc.Extent, format: desc.Format}
	if err := result(vk.CreateImage(d.handle, &info, nil, &img.handle)); err != nil {
		return nil, debug.ErrorWrapf(err, "Failed to create %s image of %+v", desc.Format, desc.Extent)
	}

	var reqs vk.MemoryRequirements
	vk.GetImageMemoryRequirements(d.handle, img.handle, &reqs)
	reqs.Deref()

	mem, err := d.allocate(reqs, hal.MemoryDeviceLocal)
	if err != nil {
		vk.DestroyImage(d.handle, img.handle, nil)
		return nil, err
	}
	img.memory = mem

	if err := result(vk.BindImageMemory(d.handle, img.handle, img.memory, 0)); err != nil {
		vk.DestroyImage(d.handle, img.handle, nil)
		vk.FreeMemory(d.handle, img.memory, nil)
		return nil, debug.ErrorWrapf(err, "Failed to bind image memory")
	}

	if err := img.createView(); err != nil {
		vk.DestroyImage(d.handle, img.handle, nil)
		vk.FreeMemory(d.handle, img.memory, nil)
		return nil, err
	}
	return img, nil
}

func (img *image) createView() error {
	info := vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    img.handle,
		ViewType: vk.ImageViewType2d,
		Format:   vk.Format(img.format),
		Components: vk.ComponentMapping{
			R: vk.ComponentSwizzleIdentity,
			G: vk.ComponentSwizzleIdentity,
			B: vk.ComponentSwizzleIdentity,
			A: vk.ComponentSwizzleIdentity,
		},
		SubresourceRange: colorSubresource,
	}
	if err := result(vk.CreateImageView(img.device.handle, &info, nil, &img.view)); err != nil {
		return debug.ErrorWrapf(err, "Failed to create image view")
	}
	return nil
}

func (img *image) Extent() hal.Extent {
	return img.extent
}

func (img *image) Format() hal.Format {
	return img.format
}

// Destroy is a no-op for swapchain images, their views are destroyed with the swapchain.
func (img *image) Destroy() {
	if img.memory == vk.DeviceMemory(vk.NullHandle) {
		return
	}
	vk.DestroyImageView(img.device.handle, img.view, nil)
	vk.DestroyImage(img.device.handle, img.handle, nil)
	vk.FreeMemory(img.device.handle, img.memory, nil)
}

type sampler struct {
	device *Device
	handle vk.Sampler
}

func (d *Device) CreateSampler(desc hal.SamplerDescriptor) (hal.Sampler, error) {
	filter := vk.Filter(desc.Filter)
	mipmap := vk.SamplerMipmapModeNearest
	if desc.Filter == hal.FilterLinear {
		mipmap = vk.SamplerMipmapModeLinear
	}
	info := vk.SamplerCreateInfo{
		SType:         vk.StructureTypeSamplerCreateInfo,
		MagFilter:     filter,
		MinFilter:     filter,
		MipmapMode:    mipmap,
		AddressModeU:  vk.SamplerAddressModeClampToEdge,
		AddressModeV:  vk.SamplerAddressModeClampToEdge,
		AddressModeW:  vk.SamplerAddressModeClampToEdge,
		MaxAnisotropy: 1,
		CompareOp:     vk.CompareOpAlways,
		BorderColor:   vk.BorderColorFloatTransparentBlack,
	}
	s := &sampler{device: d}
	if err := result(vk.CreateSampler(d.handle, &info, nil, &s.handle)); err != nil {
		return nil, debug.ErrorWrapf(err, "Failed to create sampler")
	}
	return s, nil
}

func (s *sampler) Destroy() {
	vk.DestroySampler(s.device.handle, s.handle, nil)
}
