package frameloop

import (
	"context"
	"sync"
	"testing"
	"time"
)

type fakeVSync struct {
	waits int
	limit int
	stop  func()
}

func (v *fakeVSync) Wait(ctx context.Context) error {
	v.waits++
	if v.waits >= v.limit {
		v.stop()
	}
	return ctx.Err()
}

func TestQueueDrainOrder(t *testing.T) {
	var q Queue
	var got []int
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			q.Post(func() { got = append(got, len(got)) })
		}()
	}
	wg.Wait()

	if n := q.Len(); n != 10 {
		t.Errorf("Len()=%d; expected 10", n)
	}
	q.Post(func() {
		q.Post(func() { got = append(got, -1) })
	})
	if n := q.Drain(); n != 11 {
		t.Errorf("Drain()=%d; expected 11", n)
	}
	for i, v := range got {
		if v != i {
			t.Errorf("got[%d]=%d; expected %d", i, v, i)
		}
	}
	if n := q.Drain(); n != 1 || got[len(got)-1] != -1 {
		t.Errorf("closure posted while draining ran %d times on the next Drain", n)
	}
}

func TestClockElapsed(t *testing.T) {
	now := time.Unix(1000, 0)
	c := &Clock{Now: func() time.Time { return now }}
	c.Start()
	now = now.Add(1500 * time.Millisecond)
	if e := c.Elapsed(); e != 1.5 {
		t.Errorf("Elapsed()=%v; expected 1.5", e)
	}
}

func TestLoopStepsUntilStopped(t *testing.T) {
	q := &Queue{}
	now := time.Unix(0, 0)
	clock := &Clock{Now: func() time.Time { return now }}
	clock.Start()

	var elapsed []float64
	posted := 0
	loop := NewLoop(q, clock, func(e float64) {
		elapsed = append(elapsed, e)
		now = now.Add(time.Second / 30)
	})
	q.Post(func() { posted = len(elapsed) })

	vsync := &fakeVSync{limit: 5, stop: loop.Stop}
	if err := loop.Run(context.Background(), vsync); err != nil {
		t.Fatalf("Run()=%v; expected nil", err)
	}
	if loop.Running() {
		t.Errorf("Running()=true after Stop")
	}
	if n := loop.Frames(); n != 5 {
		t.Errorf("Frames()=%d; expected 5", n)
	}
	if posted != 0 {
		t.Errorf("posted closure ran after %d ticks; expected before the first", posted)
	}
	for i, e := range elapsed {
		if want := float64(i) / 30; e < want-1e-6 || e > want+1e-6 {
			t.Errorf("tick %d elapsed=%v; expected %v", i, e, want)
		}
	}
	if loop.Step() {
		t.Errorf("Step() after Stop returned true")
	}
}

func TestLoopContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	loop := NewLoop(&Queue{}, NewClock(), func(float64) {})
	vsync := &fakeVSync{limit: 3, stop: cancel}
	if err := loop.Run(ctx, vsync); err != nil {
		t.Errorf("Run()=%v; expected nil on cancel", err)
	}
	if loop.Running() {
		t.Errorf("Running()=true after cancel")
	}
}

func TestTickerVSync(t *testing.T) {
	v := NewTickerVSync(1000)
	defer v.Stop()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for i := 0; i < 3; i++ {
		if err := v.Wait(ctx); err != nil {
			t.Fatalf("Wait()=%v", err)
		}
	}

	cancel()
	if err := v.Wait(ctx); err == nil {
		// a tick may already be pending
		if err := v.Wait(ctx); err == nil {
			t.Errorf("Wait() on cancelled context returned nil twice")
		}
	}
}
