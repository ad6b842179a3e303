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

	"goarrg.com/nova/internal/hal"
)

type (
	ErrorOutOfDate         = hal.ErrorOutOfDate
	ErrorSurfaceLost       = hal.ErrorSurfaceLost
	ErrorDeviceLost        = hal.ErrorDeviceLost
	ErrorOutOfHostMemory   = hal.ErrorOutOfHostMemory
	ErrorOutOfDeviceMemory = hal.ErrorOutOfDeviceMemory
	ErrorTimeout           = hal.ErrorTimeout
	ErrorTooManyObjects    = hal.ErrorTooManyObjects
	ErrorUnsupported       = hal.ErrorUnsupported
)

type ErrorLoaderShutDown struct{}

func (ErrorLoaderShutDown) Is(target error) bool {
	_, ok := target.(ErrorLoaderShutDown)
	return ok
}

func (ErrorLoaderShutDown) Error() string {
	return "Loader Shut Down"
}

type ErrorNoPresentQueue struct{}

func (ErrorNoPresentQueue) Is(target error) bool {
	_, ok := target.(ErrorNoPresentQueue)
	return ok
}

func (ErrorNoPresentQueue) Error() string {
	return "No Queue Family Can Present To Surface"
}

type ErrorNoGraphicsQueue struct{}

func (ErrorNoGraphicsQueue) Is(target error) bool {
	_, ok := target.(ErrorNoGraphicsQueue)
	return ok
}

func (ErrorNoGraphicsQueue) Error() string {
	return "No Graphics Queue Family"
}

// ErrorAcquireRetriesExceeded is returned when the swapchain stayed out of date for every attempt.
type ErrorAcquireRetriesExceeded struct {
	Attempts int
}

func (ErrorAcquireRetriesExceeded) Is(target error) bool {
	_, ok := target.(ErrorAcquireRetriesExceeded)
	return ok
}

func (e ErrorAcquireRetriesExceeded) Error() string {
	return fmt.Sprintf("Swapchain Still Out Of Date After %d Acquire Attempts", e.Attempts)
}

type ErrorInvalidShader struct {
	Reason string
}

func (ErrorInvalidShader) Is(target error) bool {
	_, ok := target.(ErrorInvalidShader)
	return ok
}

func (e ErrorInvalidShader) Error() string {
	return "Invalid Shader: " + e.Reason
}
