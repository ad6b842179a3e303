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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"goarrg.com/gmath"

	"goarrg.com/nova/internal/hal/soft"
)

type testRenderer struct {
	window   *soft.Window
	device   *soft.Device
	renderer *Renderer
}

func testRendererOptions() RendererOptions {
	return RendererOptions{VertexShader: fakeSPIRV(), FragmentShader: fakeSPIRV()}
}

func startTestRenderer(t *testing.T, opts RendererOptions) *testRenderer {
	t.Helper()
	window := soft.NewWindow(320, 240)
	ctx, device := newTestContext(t, soft.Options{}, window, testConfig())
	loader, err := NewLoader(ctx)
	require.NoError(t, err)
	t.Cleanup(loader.Close)

	r, err := StartRenderer(ctx, window, loader, nil, opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.ShutDown() })
	return &testRenderer{window: window, device: device, renderer: r}
}

func (r *testRenderer) waitFrames(t *testing.T, n int64) {
	t.Helper()
	target := r.renderer.FrameCount() + n
	require.Eventually(t, func() bool {
		return r.renderer.FrameCount() >= target
	}, 5*time.Second, time.Millisecond)
}

func TestRenderer_DrawsFrames(t *testing.T) {
	r := startTestRenderer(t, testRendererOptions())
	r.waitFrames(t, 5)

	require.NoError(t, r.renderer.ShutDown())
	assert.NoError(t, r.renderer.ShutDown())
	select {
	case <-r.renderer.Done():
	default:
		t.Fatal("Done not closed after ShutDown")
	}

	frames := r.renderer.FrameCount()
	assert.GreaterOrEqual(t, frames, int64(5))
	assert.Equal(t, frames, int64(r.window.PresentCount()))
	assert.Equal(t, frames, r.device.DrawCount())
	assert.Equal(t, 1, r.window.SwapchainCount())
}

func TestRenderer_Resize(t *testing.T) {
	r := startTestRenderer(t, testRendererOptions())
	r.waitFrames(t, 2)

	r.window.Resize(400, 300)
	r.renderer.ResizeSurface(gmath.Extent2i32{X: 400, Y: 300})
	r.waitFrames(t, 3)
	assert.GreaterOrEqual(t, r.window.SwapchainCount(), 2)
	require.NoError(t, r.renderer.ShutDown())
}

func TestRenderer_Minimized(t *testing.T) {
	r := startTestRenderer(t, testRendererOptions())
	r.waitFrames(t, 2)

	r.window.Resize(0, 0)
	time.Sleep(50 * time.Millisecond)
	frames := r.renderer.FrameCount()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, frames, r.renderer.FrameCount())

	r.window.Resize(320, 240)
	r.waitFrames(t, 3)
	require.NoError(t, r.renderer.ShutDown())
}

func TestRenderer_SetTexture(t *testing.T) {
	r := startTestRenderer(t, testRendererOptions())
	r.waitFrames(t, 1)

	size := gmath.Extent2i32{X: 4, Y: 4}
	for i := range 3 {
		pixels := make([]byte, 4*4*4)
		for j := range pixels {
			pixels[j] = byte(i * j)
		}
		r.renderer.SetTexture(size, pixels)
		r.waitFrames(t, 3)
	}
	assert.Panics(t, func() { r.renderer.SetTexture(size, make([]byte, 3)) })
	require.NoError(t, r.renderer.ShutDown())
}

func TestRenderer_SurfaceLostStops(t *testing.T) {
	r := startTestRenderer(t, testRendererOptions())
	r.waitFrames(t, 1)

	r.window.SetSurfaceLost(true)
	select {
	case <-r.renderer.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("renderer kept running on a lost surface")
	}
	assert.ErrorIs(t, r.renderer.ShutDown(), ErrorSurfaceLost{})
}

func TestRenderer_InvalidShader(t *testing.T) {
	window := soft.NewWindow(320, 240)
	ctx, _ := newTestContext(t, soft.Options{}, window, testConfig())
	loader, err := NewLoader(ctx)
	require.NoError(t, err)
	defer loader.Close()

	opts := testRendererOptions()
	opts.FragmentShader = []byte{1, 2, 3, 4}
	_, err = StartRenderer(ctx, window, loader, nil, opts)
	assert.Error(t, err)
}
