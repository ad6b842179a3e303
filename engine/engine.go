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
Package engine drives a program one tick at a time. A tick runs three phases in
order: TickStarted, ClockTimeUpdated and TickEnding. The clock advances right
before ClockTimeUpdated. Systems added to the same phase run concurrently, a
phase only starts once every system of the previous phase returned.
*/
package engine

import (
	"bytes"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"goarrg.com/debug"
	"golang.org/x/exp/maps"
	"golang.org/x/sync/errgroup"
)

var instance = struct {
	logger *debug.Logger
}{
	logger: debug.NewLogger("nova", "engine"),
}

type Phase int

const (
	TickStarted Phase = iota
	ClockTimeUpdated
	TickEnding
)

func (p Phase) String() string {
	switch p {
	case TickStarted:
		return "TickStarted"
	case ClockTimeUpdated:
		return "ClockTimeUpdated"
	case TickEnding:
		return "TickEnding"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

type System interface {
	Run(ctx context.Context, clock Clock) error
}

type SystemFunc func(ctx context.Context, clock Clock) error

func (f SystemFunc) Run(ctx context.Context, clock Clock) error {
	return f(ctx, clock)
}

type namedSystem struct {
	name   string
	system System
}

type Engine struct {
	mtx     sync.Mutex
	systems map[Phase][]namedSystem
	clock   Clock
	now     func() time.Time
}

func New() *Engine {
	return &Engine{
		systems: map[Phase][]namedSystem{},
		now:     time.Now,
	}
}

func (e *Engine) AddSystem(phase Phase, name string, s System) {
	if phase < TickStarted || phase > TickEnding {
		panic(fmt.Sprintf("Invalid phase: %s", phase))
	}
	e.mtx.Lock()
	defer e.mtx.Unlock()
	e.systems[phase] = append(e.systems[phase], namedSystem{name: name, system: s})
	instance.logger.VPrintf("Added system %q to %s", name, phase)
}

func (e *Engine) Clock() Clock {
	e.mtx.Lock()
	defer e.mtx.Unlock()
	return e.clock
}

func (e *Engine) runPhase(ctx context.Context, phase Phase) error {
	e.mtx.Lock()
	systems := slices.Clone(e.systems[phase])
	clock := e.clock
	e.mtx.Unlock()

	g, ctx := errgroup.WithContext(ctx)
	for _, s := range systems {
		g.Go(func() error {
			if err := s.system.Run(ctx, clock); err != nil {
				return debug.ErrorWrapf(err, "System %q failed in %s", s.name, phase)
			}
			return nil
		})
	}
	return g.Wait()
}

// Tick runs every phase once, it stops at the first phase with a failed system.
func (e *Engine) Tick(ctx context.Context) error {
	if err := e.runPhase(ctx, TickStarted); err != nil {
		return err
	}

	e.mtx.Lock()
	e.clock.advance(e.now())
	e.mtx.Unlock()

	if err := e.runPhase(ctx, ClockTimeUpdated); err != nil {
		return err
	}
	return e.runPhase(ctx, TickEnding)
}

/*
Run ticks at rate ticks per second until until returns true, ctx is done or a
tick fails. A rate <= 0 ticks as fast as possible.
*/
func (e *Engine) Run(ctx context.Context, rate float64, until func() bool) error {
	var tick <-chan time.Time
	if rate > 0 {
		ticker := time.NewTicker(time.Duration(float64(time.Second) / rate))
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		if until() {
			return nil
		}
		if err := e.Tick(ctx); err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if tick == nil {
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-tick:
		}
	}
}

func (e *Engine) MarshalJSON() ([]byte, error) {
	e.mtx.Lock()
	defer e.mtx.Unlock()

	buff := bytes.Buffer{}
	buff.WriteString("{")
	phases := maps.Keys(e.systems)
	slices.Sort(phases)
	for i, p := range phases {
		if i > 0 {
			buff.WriteString(",")
		}
		fmt.Fprintf(&buff, "%q: [", p)
		for j, s := range e.systems[p] {
			if j > 0 {
				buff.WriteString(",")
			}
			fmt.Fprintf(&buff, "%q", s.name)
		}
		buff.WriteString("]")
	}
	buff.WriteString("}")
	return buff.Bytes(), nil
}
