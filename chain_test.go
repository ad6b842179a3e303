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
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goarrg.com/nova/internal/hal/soft"
)

type chainItem struct {
	id        int
	destroyed *int
}

func (c *chainItem) Destroy() {
	*c.destroyed++
}

func TestChain_Cycle(t *testing.T) {
	destroyed := 0
	c, err := NewChain(3, func(i int) (*chainItem, error) {
		return &chainItem{id: i, destroyed: &destroyed}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, c.Len())

	var ids []int
	for range 7 {
		item := c.Next()
		assert.Same(t, item, c.Current())
		assert.Equal(t, item.id, c.Index())
		ids = append(ids, item.id)
	}
	assert.Equal(t, []int{0, 1, 2, 0, 1, 2, 0}, ids)

	c.Each(func(item *chainItem) { item.Destroy() })
	assert.Equal(t, 3, destroyed)
}

func TestChain_CreateFailureDestroysCreated(t *testing.T) {
	destroyed := 0
	failure := errors.New("no more")
	c, err := NewChain(4, func(i int) (*chainItem, error) {
		if i == 2 {
			return nil, failure
		}
		return &chainItem{id: i, destroyed: &destroyed}, nil
	})
	assert.Nil(t, c)
	assert.Error(t, err)
	assert.Equal(t, 2, destroyed)

	assert.Panics(t, func() { _, _ = NewChain(0, func(int) (int, error) { return 0, nil }) })
}

type frameSlot struct {
	list      *List
	fence     *Fence
	src       *Buffer
	dst       *Buffer
	submitted uint32
}

func (s *frameSlot) Destroy() {
	if s.dst != nil {
		s.dst.Destroy()
	}
	if s.src != nil {
		s.src.Destroy()
	}
	if s.fence != nil {
		s.fence.Destroy()
	}
	if s.list != nil {
		s.list.Destroy()
	}
}

func newFrameSlot(ctx *Context, pool *Pool) (*frameSlot, error) {
	s := &frameSlot{}
	var err error
	if s.list, err = NewList(pool); err != nil {
		s.Destroy()
		return nil, err
	}
	if s.fence, err = NewFence(ctx, true); err != nil {
		s.Destroy()
		return nil, err
	}
	if s.src, err = NewBufferOf[uint32](ctx, BufferKindStaging, 1); err != nil {
		s.Destroy()
		return nil, err
	}
	if s.dst, err = NewBufferOf[uint32](ctx, BufferKindStaging, 1); err != nil {
		s.Destroy()
		return nil, err
	}
	return s, nil
}

func TestChain_PartialSlotReleased(t *testing.T) {
	ctx, _ := newTestContext(t, soft.Options{MemoryLimit: 20}, nil, testConfig())
	pool, err := NewPool(ctx, ctx.Queues().Graphics())
	require.NoError(t, err)
	defer pool.Destroy()

	created := 0
	frames, err := NewChain(3, func(int) (*frameSlot, error) {
		s, err := newFrameSlot(ctx, pool)
		if err == nil {
			created++
		}
		return s, err
	})
	assert.Nil(t, frames)
	assert.Error(t, err)
	assert.Equal(t, 2, created)
}

// Every slot is reused only after the fence of its previous frame signaled.
func TestChain_FrameSlotsDoNotAlias(t *testing.T) {
	ctx, _ := newTestContext(t, soft.Options{Latency: 2 * time.Millisecond}, nil, testConfig())
	pool, err := NewPool(ctx, ctx.Queues().Graphics())
	require.NoError(t, err)
	defer pool.Destroy()

	frames, err := NewChain(3, func(int) (*frameSlot, error) {
		return newFrameSlot(ctx, pool)
	})
	require.NoError(t, err)
	defer frames.Each(func(s *frameSlot) { s.Destroy() })

	var submission Submission
	got := []uint32{0}
	for frame := uint32(1); frame <= 12; frame++ {
		s := frames.Next()
		require.NoError(t, s.fence.WaitAndReset())

		HostReadSlice(s.dst, 0, got)
		require.Equal(t, s.submitted, got[0], "slot %d reused before its frame completed", frames.Index())

		HostWriteSlice(s.src, 0, []uint32{frame})
		s.submitted = frame
		r := s.list.Record()
		r.CopyBuffer(s.src, s.dst, BufferCopyRegion{Len: 1})
		r.Finish()

		submission.Clear()
		submission.QueueID = ctx.Queues().Graphics()
		submission.Lists = append(submission.Lists, s.list)
		submission.Fence = s.fence
		require.NoError(t, ctx.Queues().Submit(&submission))
	}
	require.NoError(t, ctx.WaitIdle())
}
