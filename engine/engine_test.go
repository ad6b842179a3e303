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

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeNow(start time.Time, step time.Duration) func() time.Time {
	now := start
	return func() time.Time {
		ret := now
		now = now.Add(step)
		return ret
	}
}

func TestTickPhaseOrder(t *testing.T) {
	e := New()
	e.now = fakeNow(time.Unix(0, 0), 10*time.Millisecond)

	var (
		mtx   sync.Mutex
		order []string
	)
	record := func(name string) System {
		return SystemFunc(func(context.Context, Clock) error {
			mtx.Lock()
			order = append(order, name)
			mtx.Unlock()
			return nil
		})
	}
	e.AddSystem(TickEnding, "end", record("end"))
	e.AddSystem(ClockTimeUpdated, "clock", record("clock"))
	e.AddSystem(TickStarted, "start", record("start"))

	require.NoError(t, e.Tick(context.Background()))
	assert.Equal(t, []string{"start", "clock", "end"}, order)
}

func TestClockAdvances(t *testing.T) {
	e := New()
	e.now = fakeNow(time.Unix(0, 0), 10*time.Millisecond)

	var seen []Clock
	e.AddSystem(ClockTimeUpdated, "observe", SystemFunc(func(_ context.Context, c Clock) error {
		seen = append(seen, c)
		return nil
	}))

	for range 3 {
		require.NoError(t, e.Tick(context.Background()))
	}
	require.Len(t, seen, 3)
	assert.Equal(t, uint64(1), seen[0].Ticks)
	assert.Zero(t, seen[0].Delta)
	assert.Equal(t, 10*time.Millisecond, seen[1].Delta)
	assert.Equal(t, 20*time.Millisecond, seen[2].Total)
	assert.Equal(t, seen[2], e.Clock())
}

func TestPhaseSystemsRunConcurrently(t *testing.T) {
	e := New()
	var started sync.WaitGroup
	started.Add(2)
	both := func(context.Context, Clock) error {
		started.Done()
		started.Wait()
		return nil
	}
	e.AddSystem(TickStarted, "a", SystemFunc(both))
	e.AddSystem(TickStarted, "b", SystemFunc(both))

	done := make(chan error, 1)
	go func() { done <- e.Tick(context.Background()) }()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("systems of one phase did not run concurrently")
	}
}

func TestTickStopsAtFailedPhase(t *testing.T) {
	e := New()
	failure := errors.New("boom")
	var ran atomic.Bool
	e.AddSystem(TickStarted, "fail", SystemFunc(func(context.Context, Clock) error {
		return failure
	}))
	e.AddSystem(TickEnding, "never", SystemFunc(func(context.Context, Clock) error {
		ran.Store(true)
		return nil
	}))

	err := e.Tick(context.Background())
	require.Error(t, err)
	assert.False(t, ran.Load())
	assert.Zero(t, e.Clock().Ticks)
}

func TestRunUntil(t *testing.T) {
	e := New()
	var ticks atomic.Int64
	e.AddSystem(TickEnding, "count", SystemFunc(func(context.Context, Clock) error {
		ticks.Add(1)
		return nil
	}))

	require.NoError(t, e.Run(context.Background(), 0, func() bool { return ticks.Load() >= 5 }))
	assert.Equal(t, int64(5), ticks.Load())
}

func TestRunCanceled(t *testing.T) {
	e := New()
	ctx, cancel := context.WithCancel(context.Background())
	e.AddSystem(TickStarted, "cancel", SystemFunc(func(context.Context, Clock) error {
		cancel()
		return nil
	}))
	err := e.Run(ctx, 1000, func() bool { return false })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMarshalJSON(t *testing.T) {
	e := New()
	noop := SystemFunc(func(context.Context, Clock) error { return nil })
	e.AddSystem(TickEnding, "render", noop)
	e.AddSystem(TickStarted, "window", noop)
	e.AddSystem(TickStarted, "input", noop)

	data, err := json.Marshal(e)
	require.NoError(t, err)
	assert.JSONEq(t, `{"TickStarted": ["window", "input"], "TickEnding": ["render"]}`, string(data))
}

func TestAddSystemInvalidPhase(t *testing.T) {
	assert.Panics(t, func() {
		New().AddSystem(Phase(7), "bad", SystemFunc(func(context.Context, Clock) error { return nil }))
	})
}
