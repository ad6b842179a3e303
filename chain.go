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
)

/*
Chain is a fixed ring of per frame state. Next advances to the following
item, wrapping around, so an item is reused every Len calls. The first call
to Next returns the item created with index 0. Items already created are
destroyed when a later create fails, if they have a Destroy method. The item
returned with an error is discarded, create must release what it built.
*/
type Chain[T any] struct {
	items []T
	index int
}

func NewChain[T any](n int, create func(i int) (T, error)) (*Chain[T], error) {
	if n < 1 {
		abort("Chain length must be >= 1: %d", n)
	}
	c := &Chain[T]{items: make([]T, 0, n), index: n - 1}
	for i := 0; i < n; i++ {
		item, err := create(i)
		if err != nil {
			c.Each(func(item T) {
				if d, ok := any(item).(interface{ Destroy() }); ok {
					d.Destroy()
				}
			})
			return nil, debug.ErrorWrapf(err, "Failed to create chain item %d", i)
		}
		c.items = append(c.items, item)
	}
	return c, nil
}

func (c *Chain[T]) Next() T {
	c.index = (c.index + 1) % len(c.items)
	return c.items[c.index]
}

func (c *Chain[T]) Current() T {
	return c.items[c.index]
}

// Index of the item last returned by Next.
func (c *Chain[T]) Index() int {
	return c.index
}

func (c *Chain[T]) Len() int {
	return len(c.items)
}

func (c *Chain[T]) Each(f func(T)) {
	for _, item := range c.items {
		f(item)
	}
}
