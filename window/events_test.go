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

package window

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"goarrg.com/gmath"
)

func TestEventQueueMergesResizes(t *testing.T) {
	var q eventQueue
	q.push(EventResized{Size: gmath.Extent2i32{X: 1, Y: 1}})
	q.push(EventResized{Size: gmath.Extent2i32{X: 2, Y: 2}})
	q.push(EventCloseRequested{})
	q.push(EventResized{Size: gmath.Extent2i32{X: 3, Y: 3}})

	assert.Equal(t, []Event{
		EventResized{Size: gmath.Extent2i32{X: 2, Y: 2}},
		EventCloseRequested{},
		EventResized{Size: gmath.Extent2i32{X: 3, Y: 3}},
	}, q.drain())
	assert.Empty(t, q.drain())
}
