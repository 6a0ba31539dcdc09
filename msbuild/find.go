package msbuild

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// FindProjectFile returns the single project file (*.*proj) in dir.
func FindProjectFile(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("read directory %s: %w", dir, err)
	}

	var found []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.HasSuffix(strings.ToLower(filepath.Ext(entry.Name())), "proj") {
			found = append(found, filepath.Join(dir, entry.Name()))
		}
	}

	switch len(found) {
	case 0:
		return "", fmt.Errorf("no project file found in %s", dir)
	case 1:
		return found[0], nil
	default:
		return "", fmt.Errorf("multiple project files found in %s, specify which one to use", dir)
	}
}

// globFiles returns the files matching an absolute pattern in sorted order.
// Supports * and ? within a segment and ** across directories.
func globFiles(pattern string) ([]string, error) {
	if !strings.Contains(pattern, "**") {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, err
		}
		files := matches[:0]
		for _, m := range matches {
			if info, err := os.Stat(m); err == nil && !info.IsDir() {
				files = append(files, m)
			}
		}
		sort.Strings(files)
		return files, nil
	}

	segments := strings.Split(filepath.ToSlash(pattern), "/")
	fixed := 0
	for fixed < len(segments) && !strings.ContainsAny(segments[fixed], "*?[") {
		fixed++
	}
	base := filepath.FromSlash(strings.Join(segments[:fixed], "/"))
	if base == "" {
		base = string(filepath.Separator)
	}
	rest := segments[fixed:]

	for _, seg := range rest {
		if seg != "**" {
			if _, err := filepath.Match(seg, ""); err != nil {
				return nil, err
			}
		}
	}

	var files []string
	err := filepath.WalkDir(base, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == base {
				return fs.SkipAll
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(base, path)
		if err != nil {
			return nil
		}
		if matchSegments(rest, strings.Split(filepath.ToSlash(rel), "/")) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// matchSegments matches path segments against pattern segments where ** spans
// zero or more directories.
func matchSegments(pattern, path []string) bool {
	if len(pattern) == 0 {
		return len(path) == 0
	}
	if pattern[0] == "**" {
		for i := 0; i <= len(path); i++ {
			if matchSegments(pattern[1:], path[i:]) {
				return true
			}
		}
		return false
	}
	if len(path) == 0 {
		return false
	}
	ok, _ := filepath.Match(pattern[0], path[0])
	return ok && matchSegments(pattern[1:], path[1:])
}
