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

package engine

import "time"

// Clock is the engine time as of the current tick.
type Clock struct {
	Ticks uint64
	// Now is the time the clock last advanced.
	Now time.Time
	// Delta is the time between the last two ticks, zero on the first tick.
	Delta time.Duration
	Total time.Duration
}

func (c *Clock) advance(now time.Time) {
	if c.Ticks > 0 {
		c.Delta = now.Sub(c.Now)
		c.Total += c.Delta
	}
	c.Now = now
	c.Ticks++
}
