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
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goarrg.com/nova/internal/hal"
	"goarrg.com/nova/internal/hal/soft"
)

func testConfig() Config {
	c := DefaultConfig()
	c.ApplicationName = "test"
	c.StagingBufferSize = 1 << 20
	c.FrameRate = 1000
	return c
}

/*
newTestContext opens a soft device and registers a cleanup that releases the
context and fails the test if any object leaked or the device recorded a
validation error.
*/
func newTestContext(t *testing.T, opts soft.Options, window Window, config Config) (*Context, *soft.Device) {
	t.Helper()
	ctx, err := NewContext(soft.New(opts), window, config)
	require.NoError(t, err)
	device := ctx.device.(*soft.Device)
	t.Cleanup(func() {
		ctx.Release()
		assert.Zero(t, device.LiveObjects(), "leaked objects")
		assert.Empty(t, device.ValidationErrors())
	})
	return ctx, device
}

// fakeSPIRV is a header only module, enough for backends that do not compile shaders.
func fakeSPIRV() []byte {
	code := make([]byte, 20)
	binary.LittleEndian.PutUint32(code, spirvMagic)
	return code
}

func TestContext_Queues(t *testing.T) {
	ctx, _ := newTestContext(t, soft.Options{}, nil, testConfig())

	assert.Equal(t, QueueID{Family: 0}, ctx.Queues().Graphics())
	assert.Equal(t, QueueID{Family: 1}, ctx.Queues().Transfer())
	assert.Equal(t, "soft", ctx.Backend())
	assert.Equal(t, "soft(test)", ctx.DeviceName())
}

func TestContext_TransferFallsBackToGraphics(t *testing.T) {
	ctx, _ := newTestContext(t, soft.Options{
		Families: []hal.QueueFamily{{Index: 0, Graphics: true, Compute: true, Transfer: true}},
	}, nil, testConfig())

	assert.Equal(t, ctx.Queues().Graphics(), ctx.Queues().Transfer())
}

func TestContext_NoGraphicsQueue(t *testing.T) {
	_, err := NewContext(soft.New(soft.Options{
		Families: []hal.QueueFamily{{Index: 0, Transfer: true}},
	}), nil, testConfig())
	assert.ErrorIs(t, err, ErrorNoGraphicsQueue{})
}

func TestContext_UnknownQueuePanics(t *testing.T) {
	ctx, _ := newTestContext(t, soft.Options{}, nil, testConfig())

	assert.Panics(t, func() { _, _ = NewPool(ctx, QueueID{Family: 7}) })
	assert.Panics(t, func() { _, _ = NewPool(ctx, QueueID{Family: 0, Index: 1}) })
}

func TestContext_OutlivedByObjects(t *testing.T) {
	ctx, err := NewContext(soft.New(soft.Options{}), nil, testConfig())
	require.NoError(t, err)
	device := ctx.device.(*soft.Device)

	fence, err := NewFence(ctx, true)
	require.NoError(t, err)

	ctx.Release()
	ctx.Release()
	assert.EqualValues(t, 1, device.LiveObjects())
	assert.NoError(t, fence.Wait())

	fence.Destroy()
	assert.Zero(t, device.LiveObjects())
	assert.Panics(t, func() { _, _ = NewFence(ctx, true) })
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(c *Config)
	}{
		{"NoFramesInFlight", func(c *Config) { c.MaxFramesInFlight = 0 }},
		{"TooManyFramesInFlight", func(c *Config) { c.MaxFramesInFlight = 9 }},
		{"NoAcquireAttempts", func(c *Config) { c.MaxAcquireAttempts = 0 }},
		{"NoStaging", func(c *Config) { c.StagingBufferSize = 0 }},
		{"NoFrameRate", func(c *Config) { c.FrameRate = 0 }},
		{"ClearColorOutOfRange", func(c *Config) { c.ClearColor[2] = 1.5 }},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			c := DefaultConfig()
			test.modify(&c)
			assert.Panics(t, func() { c.validate() })
		})
	}

	c := DefaultConfig()
	assert.NotPanics(t, func() { c.validate() })
}

func TestConfig_MarshalJSON(t *testing.T) {
	c := DefaultConfig()
	data, err := c.MarshalJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"ApplicationName": "nova",
		"Validation": false,
		"MaxFramesInFlight": 2,
		"MaxAcquireAttempts": 5,
		"StagingBufferSize": "64MiB",
		"FrameRate": 60,
		"ClearColor": [0.086, 0.086, 0.114, 1]
	}`, string(data))
}

func TestByteSize(t *testing.T) {
	assert.Equal(t, "3B", byteSize(3))
	assert.Equal(t, "1025B", byteSize(1025))
	assert.Equal(t, "4KiB", byteSize(4<<10))
	assert.Equal(t, "64MiB", byteSize(64<<20))
	assert.Equal(t, "2GiB", byteSize(2<<30))
}
