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
	"time"

	"goarrg.com/debug"

	"goarrg.com/nova/internal/hal"
	"goarrg.com/nova/internal/util"
)

/*
Fence lets the host wait for submitted work. A fence must not be reset while a
submission that signals it is still pending, WaitAndReset is the safe way to
recycle it.
*/
type Fence struct {
	ctx *Context
	raw util.Droppable[hal.Fence]
}

func NewFence(ctx *Context, signaled bool) (*Fence, error) {
	raw, err := ctx.device.CreateFence(signaled)
	if err != nil {
		return nil, debug.ErrorWrapf(err, "Failed to create fence")
	}
	ctx.retain()
	f := &Fence{ctx: ctx}
	f.raw.Set(raw)
	return f, nil
}

func (f *Fence) Wait() error {
	return f.WaitTimeout(hal.WaitForever)
}

// WaitTimeout returns ErrorTimeout if the fence is still unsignaled after d, a negative d waits forever.
func (f *Fence) WaitTimeout(d time.Duration) error {
	err := f.raw.Get().Wait(d)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrorTimeout{}):
		return ErrorTimeout{}
	default:
		return debug.ErrorWrapf(err, "Failed to wait for fence")
	}
}

func (f *Fence) Reset() error {
	if err := f.raw.Get().Reset(); err != nil {
		return debug.ErrorWrapf(err, "Failed to reset fence")
	}
	return nil
}

func (f *Fence) WaitAndReset() error {
	if err := f.Wait(); err != nil {
		return err
	}
	return f.Reset()
}

func (f *Fence) Destroy() {
	raw, ok := f.raw.Take()
	if !ok {
		return
	}
	raw.Destroy()
	f.ctx.release()
}
