// Package solution builds, writes and reads Visual Studio solution files
// (.sln) and solution filters (.slnf).
package solution

import (
	"fmt"
	"path/filepath"
	"strings"
)

// FolderTypeGUID identifies a solution folder to Visual Studio.
const FolderTypeGUID = "{2150E333-8FDC-42A3-9474-1A3956D46DE8}"

// DefaultFormatVersion is the solution file format written by Visual Studio 2012 and later.
const DefaultFormatVersion = "12.00"

// DefaultMinimumVisualStudioVersion is written when a Visual Studio version is set.
const DefaultMinimumVisualStudioVersion = "10.0.40219.1"

// Solution is a solution file read from disk.
type Solution struct {
	// FilePath is the absolute path to the solution file
	FilePath string

	// SolutionDir is the directory containing the solution file
	SolutionDir string

	// FormatVersion is the solution file format version (e.g., "12.00")
	FormatVersion string

	// VisualStudioVersion is the Visual Studio version that wrote the file
	VisualStudioVersion string

	// MinimumVisualStudioVersion is the minimum Visual Studio version required
	MinimumVisualStudioVersion string

	// Projects contains all projects in the solution (excludes solution folders)
	Projects []Project

	// SolutionFolders contains virtual folders, including "Solution Items"
	SolutionFolders []SolutionFolder

	// Configurations lists the solution configuration|platform pairs
	Configurations []string
}

// Project is a project entry of a solution file.
type Project struct {
	// Name is the display name of the project
	Name string

	// Path is the project path as written in the file, with forward slashes
	Path string

	// GUID is the unique identifier for this project instance
	GUID string

	// TypeGUID identifies the project type
	TypeGUID string

	// ParentFolderGUID is the GUID of the containing solution folder (if any)
	ParentFolderGUID string
}

// SolutionFolder is a virtual folder of a solution file.
type SolutionFolder struct {
	Name             string
	Path             string
	GUID             string
	ParentFolderGUID string

	// Items contains file references in SolutionItems sections
	Items []string
}

// ParseError is returned when a solution or filter file cannot be read.
type ParseError struct {
	// FilePath is the path to the file being parsed
	FilePath string

	// Line is the line number where the error occurred
	Line int

	// Column is the column number where the error occurred
	Column int

	// Message describes what went wrong
	Message string
}

// Error implements the error interface
func (e *ParseError) Error() string {
	if e.Line > 0 && e.Column > 0 {
		return fmt.Sprintf("%s:%d:%d: %s", e.FilePath, e.Line, e.Column, e.Message)
	}
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: %s", e.FilePath, e.Line, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.FilePath, e.Message)
}

// GetAbsolutePath returns the absolute path to the project file
func (p *Project) GetAbsolutePath(solutionDir string) string {
	return ResolveProjectPath(solutionDir, p.Path)
}

// GetProjects returns the absolute paths of all projects in the solution
func (s *Solution) GetProjects() []string {
	paths := make([]string, 0, len(s.Projects))
	for _, project := range s.Projects {
		paths = append(paths, project.GetAbsolutePath(s.SolutionDir))
	}
	return paths
}

// GetProjectByName finds a project by its name
func (s *Solution) GetProjectByName(name string) (*Project, bool) {
	for i := range s.Projects {
		if strings.EqualFold(s.Projects[i].Name, name) {
			return &s.Projects[i], true
		}
	}
	return nil, false
}

// GetProjectByPath finds a project by its path, relative to the solution or absolute.
// Paths are compared case-insensitively.
func (s *Solution) GetProjectByPath(path string) (*Project, bool) {
	searchPath := ResolveProjectPath(s.SolutionDir, path)

	for i := range s.Projects {
		if strings.EqualFold(s.Projects[i].GetAbsolutePath(s.SolutionDir), searchPath) {
			return &s.Projects[i], true
		}
	}
	return nil, false
}

// FolderByGUID finds a solution folder by GUID
func (s *Solution) FolderByGUID(guid string) (*SolutionFolder, bool) {
	for i := range s.SolutionFolders {
		if strings.EqualFold(s.SolutionFolders[i].GUID, guid) {
			return &s.SolutionFolders[i], true
		}
	}
	return nil, false
}

// SolutionItems returns the items of every SolutionItems section
func (s *Solution) SolutionItems() []string {
	var items []string
	for _, folder := range s.SolutionFolders {
		items = append(items, folder.Items...)
	}
	return items
}

// relativeTo returns path relative to dir when possible, else path unchanged.
func relativeTo(dir, path string) string {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return path
	}
	return rel
}
