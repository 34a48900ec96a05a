// Package loaders fetches assets in the background and hands the results
// back to the render goroutine.
//
// A loader call starts one goroutine per asset and returns a Future.
// The onLoad continuation never runs on the loading goroutine: it is posted
// to the Poster given to the LoadingManager and runs wherever that poster is
// drained, which keeps every scene mutation on a single goroutine.
// Failed loads do not call onLoad; the error is logged and broadcast.
package loaders

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/mogaika/gamestop/status"
)

// Poster queues fn for execution on the owner goroutine.
type Poster interface {
	Post(fn func())
}

type Future[T any] struct {
	done  chan struct{}
	value T
	err   error
}

func newFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

func (f *Future[T]) resolve(value T, err error) {
	f.value = value
	f.err = err
	close(f.done)
}

func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the load finishes or ctx is done.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// LoadingManager tracks outstanding loads and owns the Poster continuations go to.
type LoadingManager struct {
	poster Poster

	mu          sync.Mutex
	itemsTotal  int
	itemsLoaded int
	itemsFailed int
	wg          sync.WaitGroup
}

func NewLoadingManager(poster Poster) *LoadingManager {
	return &LoadingManager{poster: poster}
}

func (m *LoadingManager) itemStart(url string) {
	m.mu.Lock()
	m.itemsTotal++
	m.mu.Unlock()
	m.wg.Add(1)
	log.Debugf("[loaders] Loading %s", url)
}

func (m *LoadingManager) itemEnd(url string, err error) {
	m.mu.Lock()
	if err != nil {
		m.itemsFailed++
	} else {
		m.itemsLoaded++
	}
	loaded, failed, total := m.itemsLoaded, m.itemsFailed, m.itemsTotal
	m.mu.Unlock()
	defer m.wg.Done()

	if err != nil {
		log.Errorf("[loaders] Failed to load %s: %v", url, err)
		status.Error("Failed to load %s: %v", url, err)
		return
	}
	log.Infof("[loaders] Loaded %s (%d/%d)", url, loaded+failed, total)
	status.Progress(float32(loaded+failed)/float32(total), "Loaded %s", url)
}

// Progress returns loaded, failed and total item counts.
func (m *LoadingManager) Progress() (loaded, failed, total int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.itemsLoaded, m.itemsFailed, m.itemsTotal
}

// Wait blocks until every started load has finished. Continuations may still be queued.
func (m *LoadingManager) Wait() {
	m.wg.Wait()
}

// start runs load in the background and posts onLoad on success.
func start[T any](m *LoadingManager, url string, load func() (T, error), onLoad func(T)) *Future[T] {
	f := newFuture[T]()
	m.itemStart(url)
	go func() {
		value, err := safeLoad(url, load)
		f.resolve(value, err)
		if err == nil && onLoad != nil {
			m.poster.Post(func() { onLoad(value) })
		}
		m.itemEnd(url, err)
	}()
	return f
}

// safeLoad turns a panic in a decoder into the load error.
func safeLoad[T any](url string, load func() (T, error)) (value T, err error) {
	defer func() {
		if r := recover(); r != nil {
			var zero T
			value, err = zero, errors.Errorf("%s: loader panic: %v", url, r)
		}
	}()
	return load()
}
