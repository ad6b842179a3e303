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

package container

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStack(t *testing.T) {
	assert := assert.New(t)

	var s Stack[int]
	assert.True(s.Empty())
	_, ok := s.TryPop()
	assert.False(ok)

	for i := range 4 {
		s.Push(i)
	}
	assert.Equal(4, s.Len())
	assert.Equal([]int{0, 1, 2, 3}, s.Data())
	assert.Equal(3, s.Pop())

	var drained []int
	s.Drain(func(i int) { drained = append(drained, i) })
	assert.Equal([]int{2, 1, 0}, drained)
	assert.True(s.Empty())
}
