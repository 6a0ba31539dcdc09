package loader

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// graphStrategy evaluates the project graph breadth first: every project of a
// level is evaluated concurrently, and the references they discover form the
// next level.
type graphStrategy struct{}

func (s *graphStrategy) load(ctx context.Context, lc *loadContext, entries []string) error {
	level := lc.preloaded()
	for _, path := range entries {
		if lc.seen.tryAdd(path) {
			level = append(level, path)
		}
	}

	for depth := 0; len(level) > 0; depth++ {
		var (
			mu   sync.Mutex
			next []string
		)

		g := new(errgroup.Group)
		g.SetLimit(lc.settings.MaxParallelism)

		for _, path := range level {
			g.Go(func() error {
				project, ok := lc.evaluate(ctx, path)
				if !ok {
					return nil
				}

				var discovered []string
				for _, child := range lc.references(project) {
					if lc.seen.tryAdd(child) {
						discovered = append(discovered, child)
					}
				}

				mu.Lock()
				next = append(next, discovered...)
				mu.Unlock()
				return nil
			})
		}

		if err := g.Wait(); err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		lc.settings.Logger.Verbose("Evaluated graph level {Depth} ({ProjectCount} project(s))", depth, len(level))
		level = next
	}
	return nil
}
