package utils

import (
	"sync"

	"github.com/Pallinder/go-randomdata"
)

// RandomNameGenerator hands out unique silly names. Safe for concurrent use.
type RandomNameGenerator struct {
	mu    sync.Mutex
	names map[string]struct{}
}

func (rng *RandomNameGenerator) RandomName() string {
	rng.mu.Lock()
	defer rng.mu.Unlock()

	if rng.names == nil {
		rng.names = make(map[string]struct{})
	}
	for {
		name := randomdata.SillyName()
		// avoid duplicate names
		if _, exists := rng.names[name]; !exists {
			rng.names[name] = struct{}{}
			return name
		}
	}
}

func (rng *RandomNameGenerator) Release(name string) {
	rng.mu.Lock()
	defer rng.mu.Unlock()
	delete(rng.names, name)
}
