package solution

import (
	"path/filepath"
	"strings"
)

// NormalizePath converts Windows-style paths to forward slash format
func NormalizePath(path string) string {
	if path == "" {
		return ""
	}

	// UNC paths keep their leading double slash
	isUNC := strings.HasPrefix(path, `\\`) || strings.HasPrefix(path, "//")

	normalized := strings.ReplaceAll(path, `\`, "/")

	if isUNC {
		remainder := strings.TrimLeft(normalized, "/")
		for strings.Contains(remainder, "//") {
			remainder = strings.ReplaceAll(remainder, "//", "/")
		}
		return "//" + remainder
	}

	for strings.Contains(normalized, "//") {
		normalized = strings.ReplaceAll(normalized, "//", "/")
	}
	return normalized
}

// ToWindowsPath converts a path to backslash separators, the form used inside
// solution and solution filter files regardless of host OS.
func ToWindowsPath(path string) string {
	return strings.ReplaceAll(path, "/", `\`)
}

// ConvertToSystemPath converts a path to the current OS format
func ConvertToSystemPath(path string) string {
	return filepath.FromSlash(NormalizePath(path))
}

// ResolveProjectPath resolves a project path from a solution file
func ResolveProjectPath(solutionDir, projectPath string) string {
	if projectPath == "" {
		return ""
	}

	normalized := ConvertToSystemPath(projectPath)
	if filepath.IsAbs(normalized) {
		return filepath.Clean(normalized)
	}

	return filepath.Clean(filepath.Join(solutionDir, normalized))
}

// The helpers below treat both '/' and '\' as separators so that solution
// hierarchies can be computed for Windows paths on any host.

func lastSeparator(path string) int {
	return strings.LastIndexAny(path, `/\`)
}

// parentDirectory returns the directory containing path, or "" at the top.
func parentDirectory(path string) string {
	path = strings.TrimRight(path, `/\`)
	idx := lastSeparator(path)
	switch {
	case idx < 0:
		return ""
	case idx == 0:
		if len(path) == 1 {
			return ""
		}
		return path[:1]
	}
	return path[:idx]
}

// baseName returns the last element of path.
func baseName(path string) string {
	trimmed := strings.TrimRight(path, `/\`)
	if trimmed == "" {
		return path
	}
	return trimmed[lastSeparator(trimmed)+1:]
}

// pathKey returns the comparison key of a path: lower case with '\' separators.
func pathKey(path string) string {
	return strings.ToLower(strings.ReplaceAll(path, "/", `\`))
}

// pathSegments splits path on either separator, dropping empty segments, and
// returns each segment with the byte offset where it ends in path.
func pathSegments(path string) (segments []string, ends []int) {
	start := -1
	for i := 0; i <= len(path); i++ {
		if i < len(path) && path[i] != '/' && path[i] != '\\' {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			segments = append(segments, path[start:i])
			ends = append(ends, i)
			start = -1
		}
	}
	return segments, ends
}

// pathDepth returns the number of segments in path.
func pathDepth(path string) int {
	segments, _ := pathSegments(path)
	return len(segments)
}
