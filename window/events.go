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
	"sync"

	"goarrg.com/gmath"
)

type Event interface {
	isEvent()
}

// EventResized reports the new framebuffer size in pixels, a zero size means the window was minimized.
type EventResized struct {
	Size gmath.Extent2i32
}

type EventCloseRequested struct{}

func (EventResized) isEvent()        {}
func (EventCloseRequested) isEvent() {}

/*
eventQueue collects events from window callbacks. Consecutive resizes are
merged into the last one so a drag only reports the final size per poll.
*/
type eventQueue struct {
	mtx    sync.Mutex
	events []Event
}

func (q *eventQueue) push(e Event) {
	q.mtx.Lock()
	defer q.mtx.Unlock()
	if _, ok := e.(EventResized); ok && len(q.events) > 0 {
		if _, last := q.events[len(q.events)-1].(EventResized); last {
			q.events[len(q.events)-1] = e
			return
		}
	}
	q.events = append(q.events, e)
}

func (q *eventQueue) drain() []Event {
	q.mtx.Lock()
	defer q.mtx.Unlock()
	events := q.events
	q.events = nil
	return events
}
