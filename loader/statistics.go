package loader

import (
	"sort"
	"sync"
	"time"
)

// ProjectLoadTime is the evaluation time of one project.
type ProjectLoadTime struct {
	Path     string        `json:"path"`
	Duration time.Duration `json:"duration"`
}

// Statistics collects per-project evaluation times. Safe for concurrent use.
type Statistics struct {
	mu      sync.Mutex
	entries map[string]time.Duration
}

// NewStatistics creates an empty statistics sink.
func NewStatistics() *Statistics {
	return &Statistics{entries: make(map[string]time.Duration)}
}

// Record stores the evaluation time of path.
func (s *Statistics) Record(path string, d time.Duration) {
	s.mu.Lock()
	s.entries[path] = d
	s.mu.Unlock()
}

// Len returns the number of recorded projects.
func (s *Statistics) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Total returns the sum of all recorded evaluation times.
func (s *Statistics) Total() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	var total time.Duration
	for _, d := range s.entries {
		total += d
	}
	return total
}

// Sorted returns the recorded times, slowest first. Ties are ordered by path.
func (s *Statistics) Sorted() []ProjectLoadTime {
	s.mu.Lock()
	out := make([]ProjectLoadTime, 0, len(s.entries))
	for path, d := range s.entries {
		out = append(out, ProjectLoadTime{Path: path, Duration: d})
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Duration != out[j].Duration {
			return out[i].Duration > out[j].Duration
		}
		return out[i].Path < out[j].Path
	})
	return out
}
