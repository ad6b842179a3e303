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
	"sync/atomic"

	vk "github.com/vulkan-go/vulkan"
	"goarrg.com/debug"

	"goarrg.com/nova/internal/hal"
)

const swapchainExtension = "VK_KHR_swapchain"

type Device struct {
	instance vk.Instance
	physical vk.PhysicalDevice
	handle   vk.Device
	name     string
	window   SurfaceWindow

	families []hal.QueueFamily
	// sharing lists every opened family, resources are shared concurrently across them.
	sharing []uint32
	queues  map[int]*queue
	memory  vk.PhysicalDeviceMemoryProperties

	destroyed atomic.Bool
}

var _ hal.Device = (*Device)(nil)

func physicalDevices(inst vk.Instance) ([]vk.PhysicalDevice, error) {
	var count uint32
	if err := result(vk.EnumeratePhysicalDevices(inst, &count, nil)); err != nil {
		return nil, debug.ErrorWrapf(err, "Failed to enumerate physical devices")
	}
	if count == 0 {
		return nil, hal.ErrorUnsupported{What: "no vulkan physical device"}
	}
	list := make([]vk.PhysicalDevice, count)
	if err := result(vk.EnumeratePhysicalDevices(inst, &count, list)); err != nil {
		return nil, debug.ErrorWrapf(err, "Failed to enumerate physical devices")
	}
	return list[:count], nil
}

func physicalDeviceName(pd vk.PhysicalDevice) (string, vk.PhysicalDeviceType) {
	var props vk.PhysicalDeviceProperties
	vk.GetPhysicalDeviceProperties(pd, &props)
	props.Deref()
	return vk.ToString(props.DeviceName[:]), props.DeviceType
}

func queueFamilies(pd vk.PhysicalDevice) []hal.QueueFamily {
	var count uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(pd, &count, nil)
	props := make([]vk.QueueFamilyProperties, count)
	vk.GetPhysicalDeviceQueueFamilyProperties(pd, &count, props)

	families := make([]hal.QueueFamily, 0, count)
	for i := range props[:count] {
		props[i].Deref()
		flags := props[i].QueueFlags
		if props[i].QueueCount == 0 {
			continue
		}
		f := hal.QueueFamily{
			Index:    i,
			Graphics: flags&vk.QueueFlags(vk.QueueGraphicsBit) != 0,
			Compute:  flags&vk.QueueFlags(vk.QueueComputeBit) != 0,
		}
		f.Transfer = f.Graphics || f.Compute || flags&vk.QueueFlags(vk.QueueTransferBit) != 0
		if f.Graphics || f.Compute || f.Transfer {
			families = append(families, f)
		}
	}
	return families
}

// pickPhysicalDevice prefers a discrete gpu, the device must offer a graphics family.
func pickPhysicalDevice(inst vk.Instance) (vk.PhysicalDevice, string, []hal.QueueFamily, error) {
	list, err := physicalDevices(inst)
	if err != nil {
		return nil, "", nil, err
	}

	var (
		picked   vk.PhysicalDevice
		name     string
		families []hal.QueueFamily
		discrete bool
	)
	for _, pd := range list {
		n, t := physicalDeviceName(pd)
		f := queueFamilies(pd)
		hasGraphics := false
		for _, family := range f {
			hasGraphics = hasGraphics || family.Graphics
		}
		if !hasGraphics {
			instance.logger.VPrintf("Skipping %q: no graphics queue family", n)
			continue
		}
		if picked == nil || (!discrete && t == vk.PhysicalDeviceTypeDiscreteGpu) {
			picked, name, families = pd, n, f
			discrete = t == vk.PhysicalDeviceTypeDiscreteGpu
		}
	}
	if picked == nil {
		return nil, "", nil, hal.ErrorUnsupported{What: "no physical device with a graphics queue"}
	}
	return picked, name, families, nil
}

func openDevice(inst vk.Instance, desc hal.DeviceDescriptor, window SurfaceWindow) (*Device, error) {
	pd, name, families, err := pickPhysicalDevice(inst)
	if err != nil {
		return nil, err
	}

	priority := []float32{1}
	queueInfos := make([]vk.DeviceQueueCreateInfo, 0, len(families))
	sharing := make([]uint32, 0, len(families))
	for _, f := range families {
		queueInfos = append(queueInfos, vk.DeviceQueueCreateInfo{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: uint32(f.Index),
			QueueCount:       1,
			PQueuePriorities: priority,
		})
		sharing = append(sharing, uint32(f.Index))
	}

	var extensions []string
	if window != nil {
		extensions = append(extensions, swapchainExtension)
	}
	var layers []string
	if desc.Validation {
		layers = append(layers, validationLayer)
	}
	info := vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queueInfos)),
		PQueueCreateInfos:       queueInfos,
		EnabledExtensionCount:   uint32(len(extensions)),
		PpEnabledExtensionNames: cStrings(extensions),
		EnabledLayerCount:       uint32(len(layers)),
		PpEnabledLayerNames:     cStrings(layers),
		PEnabledFeatures:        []vk.PhysicalDeviceFeatures{{}},
	}

	var handle vk.Device
	if err := result(vk.CreateDevice(pd, &info, nil, &handle)); err != nil {
		return nil, debug.ErrorWrapf(err, "Failed to create device on %q", name)
	}

	d := &Device{
		instance: inst,
		physical: pd,
		handle:   handle,
		name:     name,
		window:   window,
		families: families,
		sharing:  sharing,
		queues:   make(map[int]*queue, len(families)),
	}
	vk.GetPhysicalDeviceMemoryProperties(pd, &d.memory)
	d.memory.Deref()

	for _, f := range families {
		var q vk.Queue
		vk.GetDeviceQueue(handle, uint32(f.Index), 0, &q)
		d.queues[f.Index] = &queue{device: d, family: f.Index, handle: q}
	}

	instance.logger.IPrintf("Opened %q with queue families: %+v", name, families)
	return d, nil
}

func (d *Device) Name() string {
	return d.name
}

func (d *Device) QueueFamilies() []hal.QueueFamily {
	return append([]hal.QueueFamily(nil), d.families...)
}

func (d *Device) Queue(family int) hal.Queue {
	q, ok := d.queues[family]
	if !ok {
		return nil
	}
	return q
}

func (d *Device) WaitIdle() error {
	if err := result(vk.DeviceWaitIdle(d.handle)); err != nil {
		return debug.ErrorWrapf(err, "Failed to wait for device idle")
	}
	return nil
}

func (d *Device) Destroy() {
	if d.destroyed.Swap(true) {
		return
	}
	vk.DestroyDevice(d.handle, nil)
	vk.DestroyInstance(d.instance, nil)
	instance.logger.IPrintf("Destroyed %q", d.name)
}

// sharingMode returns the sharing parameters used for every buffer and image.
func (d *Device) sharingMode() (vk.SharingMode, []uint32) {
	if len(d.sharing) < 2 {
		return vk.SharingModeExclusive, nil
	}
	return vk.SharingModeConcurrent, d.sharing
}

func (d *Device) allocate(reqs vk.MemoryRequirements, kind hal.MemoryKind) (vk.DeviceMemory, error) {
	flags := vk.MemoryPropertyDeviceLocalBit
	if kind == hal.MemoryHostVisible {
		flags = vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit
	}
	index, ok := vk.FindMemoryTypeIndex(d.physical, reqs.MemoryTypeBits, flags)
	if !ok {
		return nil, hal.ErrorUnsupported{What: "memory type for requested properties"}
	}

	info := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  reqs.Size,
		MemoryTypeIndex: index,
	}
	var mem vk.DeviceMemory
	if err := result(vk.AllocateMemory(d.handle, &info, nil, &mem)); err != nil {
		return nil, debug.ErrorWrapf(err, "Failed to allocate %d bytes", reqs.Size)
	}
	return mem, nil
}
