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
	"sync/atomic"
	"unsafe"

	"goarrg.com"
	"goarrg.com/debug"
)

type platform struct{}

func (platform) Abort()                           { panic("Fatal Error") }
func (platform) AbortPopup(f string, args ...any) { panic("Fatal Error") }

var instance = struct {
	platform goarrg.PlatformInterface
	logger   *debug.Logger
}{
	platform: platform{},
	logger:   debug.NewLogger("nova", "internal", "util"),
}

func abort(fmt string, args ...any) {
	instance.logger.EPrintf(fmt, args...)
	instance.platform.Abort()
}

func Init(platform goarrg.PlatformInterface) {
	instance.platform = platform
}

// Bytes returns the in memory representation of v, the result aliases v.
func Bytes[T any](v *T) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(v)), unsafe.Sizeof(*v))
}

// SliceBytes returns the in memory representation of s, the result aliases s.
func SliceBytes[T any](s []T) []byte {
	if len(s) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(unsafe.SliceData(s))), uintptr(len(s))*unsafe.Sizeof(s[0]))
}

// SizeOf returns the size in bytes of one T.
func SizeOf[T any]() uint64 {
	var v T
	return uint64(unsafe.Sizeof(v))
}

/*
Droppable holds a value that is released exactly once. Take hands the value to
exactly one caller no matter how many race for it, every later Take reports
false and Get aborts.
*/
type Droppable[T any] struct {
	p atomic.Pointer[T]
}

func (d *Droppable[T]) Set(v T) {
	d.p.Store(&v)
}

// Get returns the held value and aborts if it was already taken.
func (d *Droppable[T]) Get() T {
	p := d.p.Load()
	if p == nil {
		abort("Use of destroyed object: \n%s", debug.StackTrace(0))
		var zero T
		return zero
	}
	return *p
}

func (d *Droppable[T]) Take() (T, bool) {
	p := d.p.Swap(nil)
	if p == nil {
		var zero T
		return zero, false
	}
	return *p, true
}

func (d *Droppable[T]) Alive() bool {
	return d.p.Load() != nil
}
