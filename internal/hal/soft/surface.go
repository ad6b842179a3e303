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
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"goarrg.com/debug"

	"goarrg.com/nova/internal/hal"
)

/*
Window is a headless hal.Window whose size and presentation failures can be
controlled, surfaces created from it report them the way a real window system
would.
*/
type Window struct {
	mtx        sync.Mutex
	width      int
	height     int
	lost       bool
	outOfDate  int
	acquires   atomic.Int64
	presents   atomic.Int64
	swapchains atomic.Int64
}

var _ hal.Window = (*Window)(nil)

func NewWindow(width, height int) *Window {
	return &Window{width: width, height: height}
}

func (w *Window) FramebufferSize() (int, int) {
	w.mtx.Lock()
	defer w.mtx.Unlock()
	return w.width, w.height
}

func (w *Window) Resize(width, height int) {
	w.mtx.Lock()
	w.width, w.height = width, height
	w.mtx.Unlock()
}

func (w *Window) SetSurfaceLost(lost bool) {
	w.mtx.Lock()
	w.lost = lost
	w.mtx.Unlock()
}

// ForceOutOfDate makes the next n acquires fail with hal.ErrorOutOfDate, n < 0 makes every acquire fail.
func (w *Window) ForceOutOfDate(n int) {
	w.mtx.Lock()
	w.outOfDate = n
	w.mtx.Unlock()
}

// AcquireCount returns the number of acquire attempts on swapchains of this window.
func (w *Window) AcquireCount() int {
	return int(w.acquires.Load())
}

// PresentCount returns the number of completed presents.
func (w *Window) PresentCount() int {
	return int(w.presents.Load())
}

// SwapchainCount returns the number of swapchains created for this window.
func (w *Window) SwapchainCount() int {
	return int(w.swapchains.Load())
}

func (w *Window) extent() hal.Extent {
	width, height := w.FramebufferSize()
	return hal.Extent{Width: uint32(max(width, 0)), Height: uint32(max(height, 0))}
}

type surface struct {
	object
	window *Window
}

func (d *Device) CreateSurface(w hal.Window) (hal.Surface, error) {
	win, ok := w.(*Window)
	if !ok {
		return nil, hal.ErrorUnsupported{What: "non soft window"}
	}
	s := &surface{window: win}
	s.init(d, "surface")
	return s, nil
}

func (s *surface) SupportsQueueFamily(family int) bool {
	return slices.Contains(s.device.opts.PresentFamilies, family)
}

func (s *surface) Capabilities() (hal.SurfaceCapabilities, error) {
	s.check()
	s.window.mtx.Lock()
	lost := s.window.lost
	s.window.mtx.Unlock()
	if lost {
		return hal.SurfaceCapabilities{}, hal.ErrorSurfaceLost{}
	}
	return hal.SurfaceCapabilities{
		CurrentExtent: s.window.extent(),
		MinImageCount: 2,
		MaxImageCount: 3,
		Format:        hal.FormatB8G8R8A8Srgb,
	}, nil
}

func (s *surface) CreateSwapchain(desc hal.SwapchainDescriptor) (hal.Swapchain, error) {
	s.check()
	if _, err := s.Capabilities(); err != nil {
		return nil, err
	}
	if desc.Extent.Width == 0 || desc.Extent.Height == 0 {
		return nil, debug.Errorf("Swapchain extent must be > 0: %+v", desc.Extent)
	}
	if desc.ImageCount < 2 || desc.ImageCount > 3 {
		return nil, debug.Errorf("Swapchain image count %d out of range [2, 3]", desc.ImageCount)
	}

	sc := &swapchain{surface: s, desc: desc}
	for i := uint32(0); i < desc.ImageCount; i++ {
		img := newImage(hal.ImageDescriptor{
			Extent: desc.Extent,
			Format: desc.Format,
			Usage:  hal.ImageUsageColorAttachment | hal.ImageUsageTransferSrc,
		})
		img.device = s.device
		img.kind = "swapchain image"
		img.owned = true
		sc.images = append(sc.images, img)
	}
	sc.init(s.device, "swapchain")
	s.window.swapchains.Add(1)
	return sc, nil
}

func (s *surface) Destroy() {
	s.release()
}

type swapchain struct {
	object
	surface *surface
	desc    hal.SwapchainDescriptor
	images  []*image
	next    uint32
}

func (sc *swapchain) Images() []hal.Image {
	images := make([]hal.Image, len(sc.images))
	for i, img := range sc.images {
		images[i] = img
	}
	return images
}

func (sc *swapchain) Extent() hal.Extent {
	return sc.desc.Extent
}

func (sc *swapchain) Format() hal.Format {
	return sc.desc.Format
}

func (sc *swapchain) presentable() error {
	w := sc.surface.window
	w.mtx.Lock()
	lost := w.lost
	w.mtx.Unlock()
	if lost {
		return hal.ErrorSurfaceLost{}
	}
	if w.extent() != sc.desc.Extent {
		return hal.ErrorOutOfDate{}
	}
	return nil
}

func (sc *swapchain) Acquire(signal hal.Semaphore, timeout time.Duration) (uint32, error) {
	sc.check()
	w := sc.surface.window
	w.acquires.Add(1)

	w.mtx.Lock()
	forced := w.outOfDate != 0
	if w.outOfDate > 0 {
		w.outOfDate--
	}
	w.mtx.Unlock()
	if err := sc.presentable(); err != nil {
		return 0, err
	}
	if forced {
		return 0, hal.ErrorOutOfDate{}
	}

	i := sc.next
	sc.next = (sc.next + 1) % uint32(len(sc.images))
	signal.(*semaphore).signal()
	return i, nil
}

func (sc *swapchain) Destroy() {
	sc.release()
}
