package msbuild

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/microsoft/slngen-sub001/observability"
)

// DefaultCacheSize is the number of parsed files kept by an EvaluationContext.
const DefaultCacheSize = 2048

// ContextOptions configures an EvaluationContext.
type ContextOptions struct {
	// CacheSize bounds the number of parsed files kept in memory (default DefaultCacheSize)
	CacheSize int

	// Environment is the KEY=VALUE environment exposed as properties (default os.Environ())
	Environment []string
}

// EvaluationContext is shared by every evaluation of a load. It caches parsed
// project and import files and snapshots the environment once, so that the
// imports every project pulls in (Directory.Build.props, shared targets) are
// read from disk a single time. Safe for concurrent use.
type EvaluationContext struct {
	files *lru.Cache[string, *element]
	group singleflight.Group
	env   map[string]string
}

// NewEvaluationContext creates a shared evaluation context.
func NewEvaluationContext(opts ContextOptions) (*EvaluationContext, error) {
	size := opts.CacheSize
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[string, *element](size)
	if err != nil {
		return nil, fmt.Errorf("create evaluation cache: %w", err)
	}

	environ := opts.Environment
	if environ == nil {
		environ = os.Environ()
	}
	env := make(map[string]string, len(environ))
	for _, kv := range environ {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			continue
		}
		env[strings.ToLower(k)] = v
	}

	return &EvaluationContext{files: cache, env: env}, nil
}

// Environment returns the value of an environment variable captured when the context was created.
func (c *EvaluationContext) Environment(name string) (string, bool) {
	v, ok := c.env[strings.ToLower(name)]
	return v, ok
}

// CachedFiles returns the number of parsed files currently cached.
func (c *EvaluationContext) CachedFiles() int {
	return c.files.Len()
}

// load returns the parsed element tree of path, parsing it at most once
// across concurrent callers.
func (c *EvaluationContext) load(ctx context.Context, path string) (*element, error) {
	key := NormalizePath(path)

	if root, ok := c.files.Get(key); ok {
		observability.ImportCacheLookupsTotal.WithLabelValues("hit").Inc()
		observability.RecordImportCacheHit(ctx, path, true)
		return root, nil
	}
	observability.ImportCacheLookupsTotal.WithLabelValues("miss").Inc()
	observability.RecordImportCacheHit(ctx, path, false)

	v, err, _ := c.group.Do(key, func() (any, error) {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		root, err := parseElements(data)
		if err != nil {
			return nil, err
		}
		c.files.Add(key, root)
		return root, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*element), nil
}

// NormalizePath returns the identity of a project path: absolute, cleaned,
// symlinks resolved when the file exists, and lower-cased on case-insensitive
// file systems (Windows and macOS).
func NormalizePath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	path = filepath.Clean(path)
	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		path = resolved
	}
	if runtime.GOOS == "windows" || runtime.GOOS == "darwin" {
		path = strings.ToLower(path)
	}
	return path
}
