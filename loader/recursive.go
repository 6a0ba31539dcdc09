package loader

import (
	"context"
	"sync"
)

// recursiveStrategy starts a goroutine for every newly discovered project.
// Siblings are evaluated concurrently, bounded by the shared evaluation slots.
type recursiveStrategy struct{}

func (s *recursiveStrategy) load(ctx context.Context, lc *loadContext, entries []string) error {
	var wg sync.WaitGroup

	var visit func(path string)
	visit = func(path string) {
		defer wg.Done()

		project, ok := lc.evaluate(ctx, path)
		if !ok {
			return
		}
		for _, child := range lc.references(project) {
			if lc.seen.tryAdd(child) {
				wg.Add(1)
				go visit(child)
			}
		}
	}

	for _, path := range lc.preloaded() {
		wg.Add(1)
		go visit(path)
	}
	for _, path := range entries {
		if lc.seen.tryAdd(path) {
			wg.Add(1)
			go visit(path)
		}
	}

	wg.Wait()
	return ctx.Err()
}
