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
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"goarrg.com/gmath"

	"goarrg.com/nova/internal/hal"
	"goarrg.com/nova/internal/hal/soft"
)

func newTestLoader(t *testing.T, opts soft.Options) (*Context, *Loader) {
	t.Helper()
	ctx, _ := newTestContext(t, opts, nil, testConfig())
	loader, err := NewLoader(ctx)
	require.NoError(t, err)
	t.Cleanup(loader.Close)
	return ctx, loader
}

func TestLoader_LoadBytes(t *testing.T) {
	ctx, loader := newTestLoader(t, soft.Options{})

	b, err := loader.LoadBytes(BufferKindStorage, []byte{1, 2, 3, 4}).Recv()
	require.NoError(t, err)
	defer b.Destroy()

	assert.Equal(t, BufferKindStorage, b.Kind())
	assert.Equal(t, uint64(4), b.Size())
	assert.Equal(t, []byte{1, 2, 3, 4}, readBuffer(t, ctx, b))
}

func TestLoader_LoadBuffer(t *testing.T) {
	ctx, loader := newTestLoader(t, soft.Options{})
	data := []uint16{0x0102, 0x0304, 0x0506}

	result := LoadBuffer(loader, BufferKindIndex, data)
	data[0] = 0
	b, err := result.Recv()
	require.NoError(t, err)
	defer b.Destroy()

	assert.Equal(t, uint64(2), b.Stride())
	assert.Equal(t, uint64(3), b.Len())
	assert.Equal(t, []byte{2, 1, 4, 3, 6, 5}, readBuffer(t, ctx, b))

	again, err := result.Recv()
	assert.NoError(t, err)
	assert.Same(t, b, again)
}

func TestLoader_LoadImage(t *testing.T) {
	_, loader := newTestLoader(t, soft.Options{})
	size := gmath.Extent2i32{X: 3, Y: 2}
	pixels := make([]byte, 3*2*4)
	for i := range pixels {
		pixels[i] = byte(255 - i)
	}

	img, err := loader.LoadImage(size, pixels).Recv()
	require.NoError(t, err)
	defer img.Destroy()

	assert.Equal(t, size, img.Size())
	assert.Equal(t, FormatR8G8B8A8Srgb, img.Format())
	assert.Equal(t, ImageLayoutShaderReadOnlyOptimal, soft.ImageLayout(img.raw.Get()))
	assert.Equal(t, pixels, soft.ImageData(img.raw.Get()))
}

func TestLoader_InOrder(t *testing.T) {
	ctx, loader := newTestLoader(t, soft.Options{Latency: time.Millisecond})

	var results []*LoaderResult[*Buffer]
	for i := range 8 {
		results = append(results, loader.LoadBytes(BufferKindVertex, []byte{byte(i), byte(i)}))
	}
	for i, result := range results {
		b, err := result.Recv()
		require.NoError(t, err)
		assert.Equal(t, []byte{byte(i), byte(i)}, readBuffer(t, ctx, b))
		b.Destroy()
	}
}

func TestLoader_TryRecv(t *testing.T) {
	_, loader := newTestLoader(t, soft.Options{Latency: 20 * time.Millisecond})

	result := loader.LoadBytes(BufferKindUniform, make([]byte, 16))
	_, ok, err := result.TryRecv()
	assert.False(t, ok)
	assert.NoError(t, err)

	var b *Buffer
	require.Eventually(t, func() bool {
		b, ok, err = result.TryRecv()
		return ok
	}, time.Second, time.Millisecond)
	require.NoError(t, err)
	b.Destroy()
}

func TestLoader_Errors(t *testing.T) {
	_, loader := newTestLoader(t, soft.Options{})

	_, err := loader.LoadBytes(BufferKindVertex, nil).Recv()
	assert.Error(t, err)

	assert.Panics(t, func() { loader.LoadBytes(BufferKindVertex, make([]byte, (1<<20)+1)) }, "larger than staging")
	assert.Panics(t, func() { loader.LoadImage(gmath.Extent2i32{X: 2, Y: 2}, make([]byte, 4)) }, "wrong pixel count")
	assert.Panics(t, func() { loader.LoadImage(gmath.Extent2i32{}, nil) }, "empty image")
}

func TestLoader_ShutDown(t *testing.T) {
	_, loader := newTestLoader(t, soft.Options{})
	loader.Close()
	loader.Close()

	done := make(chan error)
	go func() {
		_, err := loader.LoadBytes(BufferKindVertex, []byte{1, 2, 3, 4}).Recv()
		done <- err
	}()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrorLoaderShutDown{})
	case <-time.After(5 * time.Second):
		t.Fatal("Recv blocked after the loader shut down")
	}

	_, ok, err := loader.LoadImage(gmath.Extent2i32{X: 1, Y: 1}, make([]byte, 4)).TryRecv()
	assert.True(t, ok)
	assert.ErrorIs(t, err, ErrorLoaderShutDown{})
}

func TestLoader_CloseFailsQueued(t *testing.T) {
	_, loader := newTestLoader(t, soft.Options{Latency: 5 * time.Millisecond})

	var results []*LoaderResult[*Buffer]
	for range 16 {
		results = append(results, loader.LoadBytes(BufferKindStorage, make([]byte, 64)))
	}
	loader.Close()

	failed := 0
	for _, result := range results {
		b, err := result.Recv()
		if err != nil {
			assert.ErrorIs(t, err, ErrorLoaderShutDown{})
			failed++
			continue
		}
		b.Destroy()
	}
	assert.Positive(t, failed)
}

func TestLoader_FailureIsPerRequest(t *testing.T) {
	config := testConfig()
	config.StagingBufferSize = 64
	ctx, _ := newTestContext(t, soft.Options{MemoryLimit: 100}, nil, config)
	loader, err := NewLoader(ctx)
	require.NoError(t, err)
	defer loader.Close()

	_, err = loader.LoadBytes(BufferKindStorage, make([]byte, 48)).Recv()
	assert.Error(t, err, "staging and destination exceed the memory limit")

	b, err := loader.LoadBytes(BufferKindStorage, []byte{1, 2, 3, 4}).Recv()
	require.NoError(t, err, "the loader keeps serving after a failed upload")
	defer b.Destroy()
	assert.Equal(t, []byte{1, 2, 3, 4}, readBuffer(t, ctx, b))
}

func TestLoader_SharesGraphicsQueue(t *testing.T) {
	ctx, loader := newTestLoader(t, soft.Options{
		Families: []hal.QueueFamily{{Index: 0, Graphics: true, Compute: true, Transfer: true}},
		Latency:  time.Millisecond,
	})
	require.Equal(t, ctx.Queues().Graphics(), ctx.Queues().Transfer())

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		pool, err := NewPool(ctx, ctx.Queues().Graphics())
		if !assert.NoError(t, err) {
			return
		}
		defer pool.Destroy()
		list, err := NewList(pool)
		if !assert.NoError(t, err) {
			return
		}
		defer list.Destroy()
		fence, err := NewFence(ctx, false)
		if !assert.NoError(t, err) {
			return
		}
		defer fence.Destroy()

		for range 16 {
			list.Record().Finish()
			if !assert.NoError(t, ctx.Queues().Submit(&Submission{QueueID: ctx.Queues().Graphics(), Lists: []*List{list}, Fence: fence})) {
				return
			}
			if !assert.NoError(t, fence.WaitAndReset()) {
				return
			}
		}
	}()

	var results []*LoaderResult[*Buffer]
	for i := range 16 {
		results = append(results, loader.LoadBytes(BufferKindStorage, []byte{byte(i), 1, 2, 3}))
	}
	for i, result := range results {
		b, err := result.Recv()
		require.NoError(t, err)
		assert.Equal(t, []byte{byte(i), 1, 2, 3}, readBuffer(t, ctx, b))
		b.Destroy()
	}
	wg.Wait()
}
