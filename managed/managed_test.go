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

package managed

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRetirer_ReleaseSlot(t *testing.T) {
	assert := assert.New(t)

	var order []string
	destroy := func(name string) Destroyer {
		return DestroyFunc(func() { order = append(order, name) })
	}

	r := NewRetirer(2)
	r.Retire(0, destroy("a"), destroy("b"))
	r.Retire(1, destroy("c"))
	r.Retire(0, nil)
	assert.Equal(3, r.Pending())

	assert.Equal(2, r.Release(0))
	assert.Equal([]string{"b", "a"}, order)
	assert.Equal(1, r.Pending())
	assert.Equal(0, r.Release(0))

	r.Destroy()
	assert.Equal([]string{"b", "a", "c"}, order)
	assert.NotPanics(r.Destroy)
}

func TestRetirer_SlotOutOfRange(t *testing.T) {
	assert := assert.New(t)

	assert.Panics(func() { NewRetirer(0) })
	r := NewRetirer(3)
	assert.Panics(func() { r.Retire(3, DestroyFunc(func() {})) })
	assert.Panics(func() { r.Release(-1) })

	// The slot stays usable after a fault.
	called := false
	r.Retire(2, DestroyFunc(func() { called = true }))
	assert.Equal(1, r.Pending())
	assert.Equal(1, r.Release(2))
	assert.True(called)
	r.Destroy()
}
