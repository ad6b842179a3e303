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
Package managed defers the destruction of objects that may still be referenced
by GPU work. Objects are retired into the frame slot that last used them and
destroyed the next time that slot comes around, after its fence was waited.
*/
package managed

import (
	"sync"

	"goarrg.com/debug"

	"goarrg.com/nova/internal/container"
	"goarrg.com/nova/internal/util"
)

var instance = struct {
	logger *debug.Logger
}{
	logger: debug.NewLogger("nova", "managed"),
}

func abort(fmt string, args ...any) {
	instance.logger.EPrintf(fmt, args...)
	panic("Fatal Error")
}

type Destroyer interface {
	Destroy()
}

// DestroyFunc adapts a function to Destroyer.
type DestroyFunc func()

func (f DestroyFunc) Destroy() {
	f()
}

// Retirer holds retired objects per slot, it is safe for concurrent use.
type Retirer struct {
	noCopy util.NoCopy
	mtx    sync.Mutex
	slots  []container.Stack[Destroyer]
}

func NewRetirer(slots int) *Retirer {
	if slots < 1 {
		abort("Retirer needs at least one slot: %d", slots)
	}
	r := &Retirer{slots: make([]container.Stack[Destroyer], slots)}
	r.noCopy.Init()
	return r
}

func (r *Retirer) slot(i int) *container.Stack[Destroyer] {
	if i < 0 || i >= len(r.slots) {
		abort("Retirer slot %d out of range [0, %d)", i, len(r.slots))
	}
	return &r.slots[i]
}

// Retire queues objects for destruction on the next Release of slot.
func (r *Retirer) Retire(slot int, objects ...Destroyer) {
	r.noCopy.Check()
	r.mtx.Lock()
	defer r.mtx.Unlock()
	s := r.slot(slot)
	for _, o := range objects {
		if o != nil {
			s.Push(o)
		}
	}
}

/*
Release destroys everything retired into slot, most recently retired first, and
returns how many objects were destroyed. The caller must have waited for the
GPU work of the slot.
*/
func (r *Retirer) Release(slot int) int {
	r.noCopy.Check()
	objects := r.drain(slot)

	for _, o := range objects {
		o.Destroy()
	}
	if len(objects) > 0 {
		instance.logger.VPrintf("Released %d objects from slot %d", len(objects), slot)
	}
	return len(objects)
}

func (r *Retirer) drain(slot int) []Destroyer {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	var objects []Destroyer
	r.slot(slot).Drain(func(d Destroyer) {
		objects = append(objects, d)
	})
	return objects
}

// Pending returns the number of objects waiting in every slot.
func (r *Retirer) Pending() int {
	r.noCopy.Check()
	r.mtx.Lock()
	defer r.mtx.Unlock()
	n := 0
	for i := range r.slots {
		n += r.slots[i].Len()
	}
	return n
}

// Destroy releases every slot, the caller must have waited for the device to go idle.
func (r *Retirer) Destroy() {
	if !r.noCopy.Alive() {
		return
	}
	for i := range r.slots {
		r.Release(i)
	}
	r.noCopy.Close()
}
