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

package hal

// ErrorOutOfDate is recoverable: the swapchain has to be recreated.
type ErrorOutOfDate struct{}

func (ErrorOutOfDate) Is(target error) bool {
	_, ok := target.(ErrorOutOfDate)
	return ok
}

func (ErrorOutOfDate) Error() string {
	return "Swapchain Out Of Date"
}

type ErrorSurfaceLost struct{}

func (ErrorSurfaceLost) Is(target error) bool {
	_, ok := target.(ErrorSurfaceLost)
	return ok
}

func (ErrorSurfaceLost) Error() string {
	return "Surface Lost"
}

type ErrorDeviceLost struct{}

func (ErrorDeviceLost) Is(target error) bool {
	_, ok := target.(ErrorDeviceLost)
	return ok
}

func (ErrorDeviceLost) Error() string {
	return "Device Lost"
}

type ErrorOutOfHostMemory struct{}

func (ErrorOutOfHostMemory) Is(target error) bool {
	_, ok := target.(ErrorOutOfHostMemory)
	return ok
}

func (ErrorOutOfHostMemory) Error() string {
	return "Out Of Host Memory"
}

type ErrorOutOfDeviceMemory struct{}

func (ErrorOutOfDeviceMemory) Is(target error) bool {
	_, ok := target.(ErrorOutOfDeviceMemory)
	return ok
}

func (ErrorOutOfDeviceMemory) Error() string {
	return "Out Of Device Memory"
}

type ErrorTimeout struct{}

func (ErrorTimeout) Is(target error) bool {
	_, ok := target.(ErrorTimeout)
	return ok
}

func (ErrorTimeout) Error() string {
	return "Timeout"
}

type ErrorTooManyObjects struct{}

func (ErrorTooManyObjects) Is(target error) bool {
	_, ok := target.(ErrorTooManyObjects)
	return ok
}

func (ErrorTooManyObjects) Error() string {
	return "Too Many Objects"
}

// ErrorUnsupported is returned when a backend cannot provide a requested capability.
type ErrorUnsupported struct {
	What string
}

func (ErrorUnsupported) Is(target error) bool {
	_, ok := target.(ErrorUnsupported)
	return ok
}

func (e ErrorUnsupported) Error() string {
	return "Unsupported: " + e.What
}
