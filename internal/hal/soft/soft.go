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
Package soft implements hal on the host. Recorded commands are executed by one
goroutine per queue against plain byte slices, so uploads and readbacks behave
like they would on a GPU, including fence and semaphore ordering.

Misuse that a real driver would not catch either (wrong layouts, out of range
copies) is recorded as a validation error instead of crashing, see
Device.ValidationErrors. Destroying the same object twice panics.
*/
package soft

import (
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"goarrg.com/debug"

	"goarrg.com/nova/internal/hal"
)

var instance = struct {
	logger *debug.Logger
}{
	logger: debug.NewLogger("nova", "soft"),
}

type Options struct {
	// Families defaults to DefaultFamilies.
	Families []hal.QueueFamily
	// PresentFamilies lists the families able to present, defaults to every graphics family.
	PresentFamilies []int
	// Latency is added to every submission before its commands execute.
	Latency time.Duration
	// MemoryLimit caps the bytes of all live buffers and images, 0 means unlimited.
	MemoryLimit uint64
}

// DefaultFamilies is a general purpose family followed by a dedicated transfer family.
func DefaultFamilies() []hal.QueueFamily {
	return []hal.QueueFamily{
		{Index: 0, Graphics: true, Compute: true, Transfer: true},
		{Index: 1, Transfer: true},
	}
}

type Backend struct {
	opts Options
}

var _ hal.Backend = (*Backend)(nil)

func New(opts Options) *Backend {
	if opts.Families == nil {
		opts.Families = DefaultFamilies()
	}
	if opts.PresentFamilies == nil {
		for _, f := range opts.Families {
			if f.Graphics {
				opts.PresentFamilies = append(opts.PresentFamilies, f.Index)
			}
		}
	}
	return &Backend{opts: opts}
}

func (*Backend) Name() string {
	return "soft"
}

func (b *Backend) Open(desc hal.DeviceDescriptor) (hal.Device, error) {
	d := &Device{
		opts:   b.opts,
		name:   fmt.Sprintf("soft(%s)", desc.ApplicationName),
		window: desc.Window,
	}
	for _, f := range b.opts.Families {
		d.queues = append(d.queues, newQueue(d, f.Index))
	}
	instance.logger.VPrintf("Opened %s with %d queue families", d.name, len(d.queues))
	return d, nil
}

type Device struct {
	opts   Options
	name   string
	window hal.Window
	queues []*queue

	mtx        sync.Mutex
	memory     uint64
	validation []string

	live      atomic.Int64
	draws     atomic.Int64
	destroyed atomic.Bool
}

var _ hal.Device = (*Device)(nil)

func (d *Device) Name() string {
	return d.name
}

// LiveObjects returns the number of created but not yet destroyed objects.
func (d *Device) LiveObjects() int64 {
	return d.live.Load()
}

// DrawCount returns the number of executed draw commands.
func (d *Device) DrawCount() int64 {
	return d.draws.Load()
}

func (d *Device) ValidationErrors() []string {
	d.mtx.Lock()
	defer d.mtx.Unlock()
	return slices.Clone(d.validation)
}

func (d *Device) validationf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	instance.logger.WPrintf("validation: %s", msg)
	d.mtx.Lock()
	d.validation = append(d.validation, msg)
	d.mtx.Unlock()
}

func (d *Device) allocate(size uint64) error {
	d.mtx.Lock()
	defer d.mtx.Unlock()
	if d.opts.MemoryLimit > 0 && d.memory+size > d.opts.MemoryLimit {
		return hal.ErrorOutOfDeviceMemory{}
	}
	d.memory += size
	return nil
}

func (d *Device) free(size uint64) {
	d.mtx.Lock()
	d.memory -= size
	d.mtx.Unlock()
}

func (d *Device) QueueFamilies() []hal.QueueFamily {
	return slices.Clone(d.opts.Families)
}

func (d *Device) Queue(family int) hal.Queue {
	for _, q := range d.queues {
		if q.family == family {
			return q
		}
	}
	return nil
}

func (d *Device) WaitIdle() error {
	for _, q := range d.queues {
		if err := q.WaitIdle(); err != nil {
			return err
		}
	}
	return nil
}

func (d *Device) Destroy() {
	if d.destroyed.Swap(true) {
		panic("soft: device destroyed twice")
	}
	_ = d.WaitIdle()
	for _, q := range d.queues {
		q.close()
	}
	if n := d.live.Load(); n != 0 {
		d.validationf("device destroyed with %d live objects", n)
	}
	instance.logger.VPrintf("Destroyed %s", d.name)
}

// object is embedded by every destroyable soft object.
type object struct {
	device    *Device
	kind      string
	destroyed atomic.Bool
}

func (o *object) init(d *Device, kind string) {
	o.device = d
	o.kind = kind
	d.live.Add(1)
}

func (o *object) release() {
	if o.destroyed.Swap(true) {
		o.device.validationf("%s destroyed twice", o.kind)
		panic("soft: " + o.kind + " destroyed twice")
	}
	o.device.live.Add(-1)
}

func (o *object) check() {
	if o.destroyed.Load() {
		o.device.validationf("use of destroyed %s", o.kind)
	}
}
