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
	"time"

	vk "github.com/vulkan-go/vulkan"
	"goarrg.com/debug"

	"goarrg.com/nova/internal/hal"
)

type surface struct {
	device *Device
	handle vk.Surface
}

func (d *Device) CreateSurface(w hal.Window) (hal.Surface, error) {
	win, ok := w.(SurfaceWindow)
	if !ok {
		return nil, hal.ErrorUnsupported{What: "window without vulkan surface support"}
	}
	if d.window == nil {
		return nil, hal.ErrorUnsupported{What: "surface on a headless device"}
	}
	ptr, err := win.CreateVulkanSurface(d.instance)
	if err != nil {
		return nil, debug.ErrorWrapf(err, "Failed to create window surface")
	}
	return &surface{device: d, handle: vk.SurfaceFromPointer(ptr)}, nil
}

func (s *surface) SupportsQueueFamily(family int) bool {
	var supported vk.Bool32
	if err := result(vk.GetPhysicalDeviceSurfaceSupport(s.device.physical, uint32(family), s.handle, &supported)); err != nil {
		instance.logger.WPrintf("Failed to query present support of family %d: %v", family, err)
		return false
	}
	return supported == vk.True
}

// pickFormat prefers an sRGB BGRA format, falling back to any format hal knows.
func (s *surface) pickFormat() (vk.SurfaceFormat, error) {
	var count uint32
	if err := result(vk.GetPhysicalDeviceSurfaceFormats(s.device.physical, s.handle, &count, nil)); err != nil {
		return vk.SurfaceFormat{}, err
	}
	formats := make([]vk.SurfaceFormat, count)
	if err := result(vk.GetPhysicalDeviceSurfaceFormats(s.device.physical, s.handle, &count, formats)); err != nil {
		return vk.SurfaceFormat{}, err
	}

	var fallback *vk.SurfaceFormat
	for i := range formats[:count] {
		formats[i].Deref()
		switch hal.Format(formats[i].Format) {
		case hal.FormatB8G8R8A8Srgb:
			return formats[i], nil
		case hal.FormatB8G8R8A8Unorm, hal.FormatR8G8B8A8Srgb, hal.FormatR8G8B8A8Unorm:
			if fallback == nil {
				fallback = &formats[i]
			}
		}
	}
	if fallback == nil {
		return vk.SurfaceFormat{}, hal.ErrorUnsupported{What: "surface without an 8 bit RGBA format"}
	}
	return *fallback, nil
}

func (s *surface) capabilities() (vk.SurfaceCapabilities, error) {
	var caps vk.SurfaceCapabilities
	if err := result(vk.GetPhysicalDeviceSurfaceCapabilities(s.device.physical, s.handle, &caps)); err != nil {
		return caps, err
	}
	caps.Deref()
	caps.CurrentExtent.Deref()
	caps.MinImageExtent.Deref()
	caps.MaxImageExtent.Deref()
	return caps, nil
}

func (s *surface) Capabilities() (hal.SurfaceCapabilities, error) {
	caps, err := s.capabilities()
	if err != nil {
		return hal.SurfaceCapabilities{}, err
	}
	format, err := s.pickFormat()
	if err != nil {
		return hal.SurfaceCapabilities{}, err
	}

	ret := hal.SurfaceCapabilities{
		MinImageCount: caps.MinImageCount,
		MaxImageCount: caps.MaxImageCount,
		Format:        hal.Format(format.Format),
	}
	// MaxUint32 means the window system lets the swapchain decide.
	if caps.CurrentExtent.Width != vk.MaxUint32 {
		ret.CurrentExtent = hal.Extent{Width: caps.CurrentExtent.Width, Height: caps.CurrentExtent.Height}
	}
	return ret, nil
}

func clamp(v, lo, hi uint32) uint32 {
	return max(lo, min(v, hi))
}

func (s *surface) CreateSwapchain(desc hal.SwapchainDescriptor) (hal.Swapchain, error) {
	caps, err := s.capabilities()
	if err != nil {
		return nil, err
	}
	format, err := s.pickFormat()
	if err != nil {
		return nil, err
	}
	if hal.Format(format.Format) != desc.Format {
		return nil, debug.Errorf("Surface format changed from %s to %s", desc.Format, hal.Format(format.Format))
	}

	extent := vk.Extent2D{
		Width:  clamp(desc.Extent.Width, caps.MinImageExtent.Width, caps.MaxImageExtent.Width),
		Height: clamp(desc.Extent.Height, caps.MinImageExtent.Height, caps.MaxImageExtent.Height),
	}
	mode := vk.SharingModeExclusive
	families := make([]uint32, len(desc.QueueFamilies))
	for i, f := range desc.QueueFamilies {
		families[i] = uint32(f)
	}
	if len(families) > 1 {
		mode = vk.SharingModeConcurrent
	} else {
		families = nil
	}

	info := vk.SwapchainCreateInfo{
		SType:                 vk.StructureTypeSwapchainCreateInfo,
		Surface:               s.handle,
		MinImageCount:         desc.ImageCount,
		ImageFormat:           format.Format,
		ImageColorSpace:       format.ColorSpace,
		ImageExtent:           extent,
		ImageArrayLayers:      1,
		ImageUsage:            vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit | vk.ImageUsageTransferSrcBit),
		ImageSharingMode:      mode,
		QueueFamilyIndexCount: uint32(len(families)),
		PQueueFamilyIndices:   families,
		PreTransform:          caps.CurrentTransform,
		CompositeAlpha:        vk.CompositeAlphaOpaqueBit,
		PresentMode:           vk.PresentModeFifo,
		Clipped:               vk.True,
	}

	sc := &swapchain{
		device: s.device,
		extent: hal.Extent{Width: extent.Width, Height: extent.Height},
		format: desc.Format,
	}
	if err := result(vk.CreateSwapchain(s.device.handle, &info, nil, &sc.handle)); err != nil {
		return nil, debug.ErrorWrapf(err, "Failed to create swapchain of %+v", extent)
	}
	if err := sc.getImages(); err != nil {
		sc.Destroy()
		return nil, err
	}
	instance.logger.VPrintf("Created swapchain: %+v %s with %d images", sc.extent, sc.format, len(sc.images))
	return sc, nil
}

func (s *surface) Destroy() {
	vk.DestroySurface(s.device.instance, s.handle, nil)
}

type swapchain struct {
	device *Device
	handle vk.Swapchain
	images []*image
	extent hal.Extent
	format hal.Format
}

func (sc *swapchain) getImages() error {
	var count uint32
	if err := result(vk.GetSwapchainImages(sc.device.handle, sc.handle, &count, nil)); err != nil {
		return debug.ErrorWrapf(err, "Failed to get swapchain images")
	}
	handles := make([]vk.Image, count)
	if err := result(vk.GetSwapchainImages(sc.device.handle, sc.handle, &count, handles)); err != nil {
		return debug.ErrorWrapf(err, "Failed to get swapchain images")
	}
	for _, h := range handles[:count] {
		img := &image{device: sc.device, handle: h, extent: sc.extent, format: sc.format}
		if err := img.createView(); err != nil {
			return err
		}
		sc.images = append(sc.images, img)
	}
	return nil
}

func (sc *swapchain) Images() []hal.Image {
	ret := make([]hal.Image, len(sc.images))
	for i, img := range sc.images {
		ret[i] = img
	}
	return ret
}

func (sc *swapchain) Extent() hal.Extent {
	return sc.extent
}

func (sc *swapchain) Format() hal.Format {
	return sc.format
}

func (sc *swapchain) Acquire(signal hal.Semaphore, timeout time.Duration) (uint32, error) {
	var index uint32
	ret := vk.AcquireNextImage(sc.device.handle, sc.handle, timeoutNanoseconds(timeout),
		signal.(*semaphore).handle, vk.Fence(vk.NullHandle), &index)
	if err := result(ret); err != nil {
		return 0, err
	}
	return index, nil
}

func (sc *swapchain) Destroy() {
	for _, img := range sc.images {
		vk.DestroyImageView(sc.device.handle, img.view, nil)
	}
	sc.images = nil
	vk.DestroySwapchain(sc.device.handle, sc.handle, nil)
}
