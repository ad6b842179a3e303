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
Package window opens a GLFW window that nova can render to. Every function
except FramebufferSize and the Vulkan hooks must be called from the main thread,
which the program has to lock with runtime.LockOSThread during init.
*/
package window

import (
	"sync/atomic"
	"unsafe"

	"github.com/go-gl/glfw/v3.3/glfw"
	"goarrg.com/debug"
	"goarrg.com/gmath"
)

var instance = struct {
	logger *debug.Logger
}{
	logger: debug.NewLogger("nova", "window"),
}

type Window struct {
	handle *glfw.Window
	events eventQueue
	width  atomic.Int32
	height atomic.Int32
}

func New(title string, size gmath.Extent2i32) (*Window, error) {
	if size.X <= 0 || size.Y <= 0 {
		return nil, debug.Errorf("Invalid window size: %dx%d", size.X, size.Y)
	}
	if err := glfw.Init(); err != nil {
		return nil, debug.ErrorWrapf(err, "Failed to init glfw")
	}
	if !glfw.VulkanSupported() {
		glfw.Terminate()
		return nil, debug.Errorf("GLFW reports no vulkan support")
	}

	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	glfw.WindowHint(glfw.Resizable, glfw.True)
	handle, err := glfw.CreateWindow(int(size.X), int(size.Y), title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, debug.ErrorWrapf(err, "Failed to create window")
	}

	w := &Window{handle: handle}
	width, height := handle.GetFramebufferSize()
	w.width.Store(int32(width))
	w.height.Store(int32(height))

	handle.SetFramebufferSizeCallback(func(_ *glfw.Window, width, height int) {
		w.width.Store(int32(width))
		w.height.Store(int32(height))
		w.events.push(EventResized{Size: gmath.Extent2i32{X: int32(width), Y: int32(height)}})
	})
	handle.SetCloseCallback(func(_ *glfw.Window) {
		w.events.push(EventCloseRequested{})
	})

	instance.logger.IPrintf("Created window %q: %dx%d", title, width, height)
	return w, nil
}

// FramebufferSize returns the size last reported by the window system, it is safe to call from any goroutine.
func (w *Window) FramebufferSize() (int, int) {
	return int(w.width.Load()), int(w.height.Load())
}

func (w *Window) Size() gmath.Extent2i32 {
	return gmath.Extent2i32{X: w.width.Load(), Y: w.height.Load()}
}

func (w *Window) VulkanProcAddr() unsafe.Pointer {
	return glfw.GetVulkanGetInstanceProcAddress()
}

func (w *Window) VulkanInstanceExtensions() []string {
	return w.handle.GetRequiredInstanceExtensions()
}

func (w *Window) CreateVulkanSurface(vkInstance any) (uintptr, error) {
	return w.handle.CreateWindowSurface(vkInstance, nil)
}

// PollEvents processes pending window system events and returns the ones reported since the last call.
func (w *Window) PollEvents() []Event {
	glfw.PollEvents()
	return w.events.drain()
}

func (w *Window) ShouldClose() bool {
	return w.handle.ShouldClose()
}

func (w *Window) Destroy() {
	w.handle.Destroy()
	glfw.Terminate()
	instance.logger.IPrintf("Destroyed window")
}
