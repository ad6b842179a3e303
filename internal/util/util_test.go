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

package util

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDroppable_TakeOnce(t *testing.T) {
	assert := assert.New(t)

	var d Droppable[int]
	d.Set(42)
	assert.True(d.Alive())
	assert.Equal(42, d.Get())

	var wg sync.WaitGroup
	var taken atomic.Int32
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if v, ok := d.Take(); ok {
				assert.Equal(42, v)
				taken.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(int32(1), taken.Load())
	assert.False(d.Alive())
	assert.Panics(func() { d.Get() })
}

func TestNoCopy(t *testing.T) {
	assert := assert.New(t)

	type wrapper struct {
		noCopy NoCopy
	}

	var w wrapper
	w.noCopy.Init()
	assert.NotPanics(func() { w.noCopy.Check() })
	assert.Panics(func() { w.noCopy.Init() })

	c := &wrapper{}
	*c = w //nolint:govet
	assert.Panics(func() { c.noCopy.Check() })

	w.noCopy.Close()
	assert.False(w.noCopy.Alive())
	assert.Panics(func() { w.noCopy.Check() })
}

func TestBytes(t *testing.T) {
	assert := assert.New(t)

	v := uint32(0x04030201)
	assert.Len(Bytes(&v), 4)
	assert.Equal(uint64(4), SizeOf[uint32]())
	assert.Len(SliceBytes([]float32{1, 2, 3}), 12)
	assert.Nil(SliceBytes([]float32{}))
}
