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

/*
Package vulkan implements hal on top of github.com/vulkan-go/vulkan.

The device opens exactly one queue per queue family. Resources are created
with concurrent sharing across every opened family so the loader can upload on
a dedicated transfer queue without ownership transfers.
*/
package vulkan

import (
	"strings"
	"unsafe"

	vk "github.com/vulkan-go/vulkan"
	"goarrg.com/debug"

	"goarrg.com/nova/internal/hal"
)

var instance = struct {
	logger *debug.Logger
}{
	logger: debug.NewLogger("nova", "vulkan"),
}

const validationLayer = "VK_LAYER_KHRONOS_validation"

/*
SurfaceWindow is implemented by windows that can host a Vulkan swapchain.
Passing any other non nil hal.Window to Open fails with hal.ErrorUnsupported.
*/
type SurfaceWindow interface {
	hal.Window
	// VulkanProcAddr returns vkGetInstanceProcAddr as loaded by the windowing library.
	VulkanProcAddr() unsafe.Pointer
	VulkanInstanceExtensions() []string
	// CreateVulkanSurface returns a VkSurfaceKHR for the window as a raw handle.
	CreateVulkanSurface(instance any) (uintptr, error)
}

type Backend struct{}

var _ hal.Backend = Backend{}

func New() Backend {
	return Backend{}
}

func (Backend) Name() string {
	return "vulkan"
}

func (Backend) Open(desc hal.DeviceDescriptor) (hal.Device, error) {
	var window SurfaceWindow
	if desc.Window != nil {
		w, ok := desc.Window.(SurfaceWindow)
		if !ok {
			return nil, hal.ErrorUnsupported{What: "window without vulkan surface support"}
		}
		window = w
	}

	if err := loadVulkan(window); err != nil {
		return nil, err
	}

	inst, err := createInstance(desc, window)
	if err != nil {
		return nil, err
	}

	d, err := openDevice(inst, desc, window)
	if err != nil {
		vk.DestroyInstance(inst, nil)
		return nil, err
	}
	return d, nil
}

func loadVulkan(window SurfaceWindow) error {
	if window != nil {
		vk.SetGetInstanceProcAddr(window.VulkanProcAddr())
	} else if err := vk.SetDefaultGetInstanceProcAddr(); err != nil {
		return debug.ErrorWrapf(err, "Failed to load vulkan library")
	}
	if err := vk.Init(); err != nil {
		return debug.ErrorWrapf(err, "Failed to init vulkan")
	}
	return nil
}

func createInstance(desc hal.DeviceDescriptor, window SurfaceWindow) (vk.Instance, error) {
	var extensions []string
	if window != nil {
		extensions = window.VulkanInstanceExtensions()
	}
	var layers []string
	if desc.Validation {
		layers = append(layers, validationLayer)
	}

	appInfo := vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		PApplicationName:   cString(desc.ApplicationName),
		ApplicationVersion: vk.MakeVersion(1, 0, 0),
		PEngineName:        cString("nova"),
		EngineVersion:      vk.MakeVersion(1, 0, 0),
		ApiVersion:         vk.MakeVersion(1, 1, 0),
	}
	info := vk.InstanceCreateInfo{
		SType:                   vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo:        &appInfo,
		EnabledExtensionCount:   uint32(len(extensions)),
		PpEnabledExtensionNames: cStrings(extensions),
		EnabledLayerCount:       uint32(len(layers)),
		PpEnabledLayerNames:     cStrings(layers),
	}

	var inst vk.Instance
	if err := result(vk.CreateInstance(&info, nil, &inst)); err != nil {
		return nil, debug.ErrorWrapf(err, "Failed to create instance with extensions %v and layers %v", extensions, layers)
	}
	if err := vk.InitInstance(inst); err != nil {
		vk.DestroyInstance(inst, nil)
		return nil, debug.ErrorWrapf(err, "Failed to init instance")
	}
	return inst, nil
}

// result maps a vk.Result to nil or a hal error, Suboptimal counts as success.
func result(ret vk.Result) error {
	switch ret {
	case vk.Success, vk.Suboptimal:
		return nil
	case vk.Timeout, vk.NotReady:
		return hal.ErrorTimeout{}
	case vk.ErrorOutOfDate:
		return hal.ErrorOutOfDate{}
	case vk.ErrorSurfaceLost:
		return hal.ErrorSurfaceLost{}
	case vk.ErrorDeviceLost:
		return hal.ErrorDeviceLost{}
	case vk.ErrorOutOfHostMemory:
		return hal.ErrorOutOfHostMemory{}
	case vk.ErrorOutOfDeviceMemory:
		return hal.ErrorOutOfDeviceMemory{}
	case vk.ErrorTooManyObjects:
		return hal.ErrorTooManyObjects{}
	default:
		return vk.Error(ret)
	}
}

func cString(s string) string {
	if strings.HasSuffix(s, "\x00") {
		return s
	}
	return s + "\x00"
}

func cStrings(list []string) []string {
	ret := make([]string, len(list))
	for i, s := range list {
		ret[i] = cString(s)
	}
	return ret
}
