// Package frameloop runs the per frame work on a single goroutine.
//
// Other goroutines never touch frame state directly: they Post closures to
// the Queue, which the loop drains before each tick.
package frameloop

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"
)

// Clock measures time since it was started. Now can be replaced in tests.
type Clock struct {
	Now   func() time.Time
	start time.Time
}

func NewClock() *Clock {
	c := &Clock{Now: time.Now}
	c.Start()
	return c
}

func (c *Clock) Start() {
	c.start = c.Now()
}

// Elapsed returns seconds since Start.
func (c *Clock) Elapsed() float64 {
	return c.Now().Sub(c.start).Seconds()
}

// Queue holds closures posted from any goroutine until the loop drains them.
type Queue struct {
	mu    sync.Mutex
	tasks []func()
}

func (q *Queue) Post(fn func()) {
	q.mu.Lock()
	q.tasks = append(q.tasks, fn)
	q.mu.Unlock()
}

// Drain runs every queued closure in post order and returns how many ran.
// Closures posted while draining wait for the next call.
func (q *Queue) Drain() int {
	q.mu.Lock()
	tasks := q.tasks
	q.tasks = nil
	q.mu.Unlock()

	for _, fn := range tasks {
		fn()
	}
	return len(tasks)
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

// VSync blocks until the next frame is due.
type VSync interface {
	Wait(ctx context.Context) error
}

type TickerVSync struct {
	ticker *time.Ticker
}

func NewTickerVSync(fps int) *TickerVSync {
	if fps <= 0 {
		fps = 60
	}
	return &TickerVSync{ticker: time.NewTicker(time.Second / time.Duration(fps))}
}

func (v *TickerVSync) Wait(ctx context.Context) error {
	select {
	case <-v.ticker.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (v *TickerVSync) Stop() {
	v.ticker.Stop()
}

// TickFunc does one frame of work. elapsed is in seconds.
type TickFunc func(elapsed float64)

type Loop struct {
	Queue *Queue
	Clock *Clock

	tick    TickFunc
	running int32
	frames  uint64
	stop    chan struct{}
	once    sync.Once
}

func NewLoop(queue *Queue, clock *Clock, tick TickFunc) *Loop {
	return &Loop{
		Queue:   queue,
		Clock:   clock,
		tick:    tick,
		running: 1,
		stop:    make(chan struct{}),
	}
}

// Step drains the queue and runs one tick. It is a no-op once stopped.
func (l *Loop) Step() bool {
	if !l.Running() {
		return false
	}
	l.Queue.Drain()
	l.tick(l.Clock.Elapsed())
	atomic.AddUint64(&l.frames, 1)
	return true
}

// Run steps once per vsync until ctx is done or Stop is called.
func (l *Loop) Run(ctx context.Context, vsync VSync) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-l.stop:
			cancel()
		case <-ctx.Done():
		}
	}()

	log.Infof("[frameloop] Started")
	defer func() {
		log.Infof("[frameloop] Stopped after %d frames", l.Frames())
	}()
	for l.Step() {
		if err := vsync.Wait(ctx); err != nil {
			l.Stop()
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
	}
	return nil
}

func (l *Loop) Stop() {
	l.once.Do(func() {
		atomic.StoreInt32(&l.running, 0)
		close(l.stop)
	})
}

func (l *Loop) Running() bool {
	return atomic.LoadInt32(&l.running) == 1
}

func (l *Loop) Frames() uint64 {
	return atomic.LoadUint64(&l.frames)
}
