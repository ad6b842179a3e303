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

type fence struct {
	device *Device
	handle vk.Fence
}

func (d *Device) CreateFence(signaled bool) (hal.Fence, error) {
	info := vk.FenceCreateInfo{SType: vk.StructureTypeFenceCreateInfo}
	if signaled {
		info.Flags = vk.FenceCreateFlags(vk.FenceCreateSignaledBit)
	}
	f := &fence{device: d}
	if err := result(vk.CreateFence(d.handle, &info, nil, &f.handle)); err != nil {
		return nil, debug.ErrorWrapf(err, "Failed to create fence")
	}
	return f, nil
}

func timeoutNanoseconds(timeout time.Duration) uint64 {
	if timeout < 0 {
		return vk.MaxUint64
	}
	return uint64(timeout.Nanoseconds())
}

func (f *fence) Wait(timeout time.Duration) error {
	return result(vk.WaitForFences(f.device.handle, 1, []vk.Fence{f.handle}, vk.True, timeoutNanoseconds(timeout)))
}

func (f *fence) Reset() error {
	return result(vk.ResetFences(f.device.handle, 1, []vk.Fence{f.handle}))
}

func (f *fence) Destroy() {
	vk.DestroyFence(f.device.handle, f.handle, nil)
}

type semaphore struct {
	device *Device
	handle vk.Semaphore
}

func (d *Device) CreateSemaphore() (hal.Semaphore, error) {
	s := &semaphore{device: d}
	info := vk.SemaphoreCreateInfo{SType: vk.StructureTypeSemaphoreCreateInfo}
	if err := result(vk.CreateSemaphore(d.handle, &info, nil, &s.handle)); err != nil {
		return nil, debug.ErrorWrapf(err, "Failed to create semaphore")
	}
	return s, nil
}

func (s *semaphore) Destroy() {
	vk.DestroySemaphore(s.device.handle, s.handle, nil)
}

func semaphoreHandles(list []hal.Semaphore) []vk.Semaphore {
	handles := make([]vk.Semaphore, len(list))
	for i, s := range list {
		handles[i] = s.(*semaphore).handle
	}
	return handles
}
