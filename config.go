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
	"bytes"
	"fmt"
	"math"

	"goarrg.com/gmath"
)

type Config struct {
	ApplicationName string
	// Validation enables the backend's validation layers when available.
	Validation bool

	// MaxFramesInFlight is the length of the renderer's frame chain.
	MaxFramesInFlight int32
	// MaxAcquireAttempts bounds how many times an out of date swapchain is recreated within one acquire.
	MaxAcquireAttempts int32
	StagingBufferSize  uint64
	FrameRate          float64
	ClearColor         [4]float32
}

func DefaultConfig() Config {
	return Config{
		ApplicationName:    "nova",
		MaxFramesInFlight:  2,
		MaxAcquireAttempts: 5,
		StagingBufferSize:  64 << 20,
		FrameRate:          60,
		ClearColor:         [4]float32{0.086, 0.086, 0.114, 1},
	}
}

func (c *Config) MarshalJSON() ([]byte, error) {
	buff := bytes.Buffer{}
	buff.WriteString("{")

	buff.WriteString(fmt.Sprintf("\"ApplicationName\": %q,", c.ApplicationName))
	buff.WriteString(fmt.Sprintf("\"Validation\": %t,", c.Validation))
	buff.WriteString(fmt.Sprintf("\"MaxFramesInFlight\": %d,", c.MaxFramesInFlight))
	buff.WriteString(fmt.Sprintf("\"MaxAcquireAttempts\": %d,", c.MaxAcquireAttempts))
	buff.WriteString(fmt.Sprintf("\"StagingBufferSize\": %q,", byteSize(c.StagingBufferSize)))
	buff.WriteString(fmt.Sprintf("\"FrameRate\": %g,", c.FrameRate))
	buff.WriteString(fmt.Sprintf("\"ClearColor\": %s,", jsonString(c.ClearColor)))

	buff.Truncate(buff.Len() - 1)
	buff.WriteString("}")
	return buff.Bytes(), nil
}

func (c *Config) validate() {
	if !gmath.InRange(c.MaxFramesInFlight, 1, 8) {
		abort("Config.MaxFramesInFlight must be in range [1, 8]")
	}
	if c.MaxAcquireAttempts < 1 {
		abort("Config.MaxAcquireAttempts must be >= 1")
	}
	if c.StagingBufferSize == 0 {
		abort("Config.StagingBufferSize must be > 0")
	}
	if math.IsNaN(c.FrameRate) || c.FrameRate <= 0 {
		abort("Config.FrameRate must be > 0")
	}
	for i, v := range c.ClearColor {
		if !gmath.InRange(v, 0, 1) {
			abort("Config.ClearColor[%d] must be in range [0, 1]", i)
		}
	}
}
