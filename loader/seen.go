package loader

import (
	"sync"

	"github.com/microsoft/slngen-sub001/msbuild"
)

// seenSet records the projects that have been discovered, keyed by normalized path.
type seenSet struct {
	mu    sync.Mutex
	paths map[string]struct{}
}

func newSeenSet() *seenSet {
	return &seenSet{paths: make(map[string]struct{})}
}

// tryAdd marks path as seen and reports whether it was not seen before.
func (s *seenSet) tryAdd(path string) bool {
	key := msbuild.NormalizePath(path)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.paths[key]; ok {
		return false
	}
	s.paths[key] = struct{}{}
	return true
}

func (s *seenSet) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.paths)
}
