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
	"sync/atomic"

	"goarrg.com/debug"

	"goarrg.com/nova/internal/hal"
)

/*
Context is the opened graphics device together with its queues. Every object
created from a Context holds a reference to it, the device is destroyed once
the owner called Release and every object has been destroyed.
*/
type Context struct {
	device   hal.Device
	backend  string
	config   Config
	queues   *Queues
	refs     atomic.Int64
	released atomic.Bool
}

// NewContext opens a device on the backend, window may be nil for a headless context.
func NewContext(backend Backend, window Window, config Config) (*Context, error) {
	config.validate()
	instance.logger.IPrintf("Opening %q device with config: %s", backend.Name(), prettyString(&config))

	device, err := backend.Open(hal.DeviceDescriptor{
		ApplicationName: config.ApplicationName,
		Window:          window,
		Validation:      config.Validation,
	})
	if err != nil {
		return nil, debug.ErrorWrapf(err, "Failed to open device")
	}

	queues, err := newQueues(device)
	if err != nil {
		device.Destroy()
		return nil, err
	}

	c := &Context{
		device:  device,
		backend: backend.Name(),
		config:  config,
		queues:  queues,
	}
	c.refs.Store(1)
	instance.logger.IPrintf("Opened %q, graphics queue: %s, transfer queue: %s", device.Name(), queues.graphics, queues.transfer)
	return c, nil
}

func (c *Context) retain() {
	if c.refs.Add(1) <= 1 {
		abort("Use of released Context")
	}
}

func (c *Context) release() {
	switch n := c.refs.Add(-1); {
	case n == 0:
		c.destroy()
	case n < 0:
		abort("Context released more times than retained")
	}
}

func (c *Context) destroy() {
	if err := c.device.WaitIdle(); err != nil {
		instance.logger.WPrintf("Failed to wait for device idle: %v", err)
	}
	c.device.Destroy()
	instance.logger.IPrintf("Destroyed %q", c.device.Name())
}

// Release drops the owner's reference, calling it more than once is a no-op.
func (c *Context) Release() {
	if c.released.Swap(true) {
		return
	}
	if n := c.refs.Load(); n > 1 {
		instance.logger.VPrintf("Context released with %d live objects", n-1)
	}
	c.release()
}

func (c *Context) Backend() string {
	return c.backend
}

func (c *Context) DeviceName() string {
	return c.device.Name()
}

func (c *Context) Config() Config {
	return c.config
}

func (c *Context) Queues() *Queues {
	return c.queues
}

// WaitIdle blocks until every queue finished all submitted work.
func (c *Context) WaitIdle() error {
	if err := c.device.WaitIdle(); err != nil {
		return debug.ErrorWrapf(err, "Failed to wait for device idle")
	}
	return nil
}
