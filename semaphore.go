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
	"goarrg.com/debug"

	"goarrg.com/nova/internal/hal"
	"goarrg.com/nova/internal/util"
)

// Semaphore orders work between submissions on the device, it has no host visible state.
type Semaphore struct {
	ctx *Context
	raw util.Droppable[hal.Semaphore]
}

func NewSemaphore(ctx *Context) (*Semaphore, error) {
	raw, err := ctx.device.CreateSemaphore()
	if err != nil {
		return nil, debug.ErrorWrapf(err, "Failed to create semaphore")
	}
	ctx.retain()
	s := &Semaphore{ctx: ctx}
	s.raw.Set(raw)
	return s, nil
}

func (s *Semaphore) Destroy() {
	raw, ok := s.raw.Take()
	if !ok {
		return
	}
	raw.Destroy()
	s.ctx.release()
}
