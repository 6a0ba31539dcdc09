package solution

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Parser reads a solution or solution filter file.
type Parser interface {
	Parse(path string) (*Solution, error)
	CanParse(path string) bool
}

// GetSolutionFormat returns "sln", "slnx" or "slnf" for a solution path, or "" otherwise.
func GetSolutionFormat(path string) string {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".sln", ".slnx", ".slnf":
		return ext[1:]
	}
	return ""
}

// IsSolutionFile checks if a file path has a solution file extension
func IsSolutionFile(path string) bool {
	return GetSolutionFormat(path) != ""
}

// GetParser returns the appropriate parser for a solution file
func GetParser(path string) (Parser, error) {
	if path == "" {
		return nil, errors.New("path cannot be empty")
	}

	switch GetSolutionFormat(path) {
	case "sln":
		return NewSlnParser(), nil
	case "slnx":
		return NewSlnxParser(), nil
	case "slnf":
		return NewSlnfParser(), nil
	}
	return nil, fmt.Errorf("unsupported solution format: %s (supported: .sln, .slnx, .slnf)", filepath.Ext(path))
}

// ParseSolution selects a parser by extension and parses path.
func ParseSolution(path string) (*Solution, error) {
	parser, err := GetParser(path)
	if err != nil {
		return nil, err
	}
	return parser.Parse(path)
}

// ValidateSolutionFile checks that path names an existing, readable solution file.
func ValidateSolutionFile(path string) error {
	if !IsSolutionFile(path) {
		return fmt.Errorf("not a solution file (must have .sln, .slnx, or .slnf extension): %s", path)
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("solution file not found: %s", path)
		}
		return fmt.Errorf("cannot access solution file: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("path is a directory, not a solution file: %s", path)
	}

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("cannot read solution file: %w", err)
	}
	return file.Close()
}
