package solution

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// SlnFile is the document model of a generated solution.
type SlnFile struct {
	// FormatVersion is written in the first line (default 12.00)
	FormatVersion string

	// VisualStudioVersion, when set, adds the version header lines (e.g. 17.0.31903.59)
	VisualStudioVersion string

	// MinimumVisualStudioVersion defaults to DefaultMinimumVisualStudioVersion
	MinimumVisualStudioVersion string

	projects      []*SlnProject
	solutionItems []string
	hierarchy     *SlnHierarchy
}

// NewSlnFile creates an empty solution.
func NewSlnFile() *SlnFile {
	return &SlnFile{
		FormatVersion:              DefaultFormatVersion,
		MinimumVisualStudioVersion: DefaultMinimumVisualStudioVersion,
	}
}

// AddProjects appends projects in the order they will be written.
func (s *SlnFile) AddProjects(projects ...*SlnProject) {
	s.projects = append(s.projects, projects...)
}

// AddSolutionItems appends files shown under the Solution Items folder.
func (s *SlnFile) AddSolutionItems(items ...string) {
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			s.solutionItems = append(s.solutionItems, item)
		}
	}
}

// SetHierarchy sets the folder tree written with the solution.
func (s *SlnFile) SetHierarchy(h *SlnHierarchy) {
	s.hierarchy = h
}

// Projects returns the projects in write order.
func (s *SlnFile) Projects() []*SlnProject { return s.projects }

// SolutionItems returns the solution items in write order.
func (s *SlnFile) SolutionItems() []string { return s.solutionItems }

// Hierarchy returns the folder tree, nil when none was set.
func (s *SlnFile) Hierarchy() *SlnHierarchy { return s.hierarchy }

// writesFolders reports whether folder and NestedProjects entries are written.
func (s *SlnFile) writesFolders() bool {
	return len(s.projects) > 1 && !s.hierarchy.IsEmpty()
}

// FolderCount returns the number of folders that Save writes.
func (s *SlnFile) FolderCount() int {
	if !s.writesFolders() {
		return 0
	}
	return len(s.hierarchy.folders)
}

// Write saves the solution to path, creating parent directories as needed.
func (s *SlnFile) Write(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create solution directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create solution file: %w", err)
	}
	if err := s.Save(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("write solution file %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close solution file %s: %w", path, err)
	}
	return nil
}

// Save writes the solution text to w.
func (s *SlnFile) Save(w io.Writer) error {
	sln := newStructuredWriter(w)
	sln.Raw(byteOrderMark)

	formatVersion := s.FormatVersion
	if formatVersion == "" {
		formatVersion = DefaultFormatVersion
	}
	sln.Println("Microsoft Visual Studio Solution File, Format Version %s", formatVersion)
	if err := s.writeVersionHeader(sln); err != nil {
		return err
	}

	for _, p := range s.projects {
		sln.Println(`Project("%s") = "%s", "%s", "%s"`, p.ProjectTypeGUID, p.Name, p.FullPath, p.ProjectGUID)
		sln.Println("EndProject")
	}

	if len(s.solutionItems) > 0 {
		sln.Println(`Project("%s") = "%s", "%s", "%s"`, FolderTypeGUID, "Solution Items", "Solution Items", NewGUID())
		sln.ScopeIndent(func() {
			sln.Println("ProjectSection(SolutionItems) = preProject")
			sln.ScopeIndent(func() {
				for _, item := range s.solutionItems {
					sln.Println("%s = %s", item, item)
				}
			})
			sln.Println("EndProjectSection")
		})
		sln.Println("EndProject")
	}

	if s.writesFolders() {
		for _, folder := range s.hierarchy.Folders() {
			sln.Println(`Project("%s") = "%s", "%s", "%s"`, FolderTypeGUID, folder.Name, folder.FullPath, folder.GUID)
			sln.Println("EndProject")
		}
	}

	sln.Println("Global")
	sln.ScopeIndent(func() {
		sln.Println("GlobalSection(SolutionConfigurationPlatforms) = preSolution")
		sln.ScopeIndent(func() {
			configurations, platforms := s.solutionConfigurations()
			for _, c := range configurations {
				for _, p := range platforms {
					sln.Println("%s|%s = %s|%s", c, p, c, p)
				}
			}
		})
		sln.Println("EndGlobalSection")

		sln.Println("GlobalSection(ProjectConfigurationPlatforms) = preSolution")
		sln.ScopeIndent(func() {
			for _, project := range s.projects {
				for _, c := range project.Configurations {
					for _, p := range project.Platforms {
						sln.Println("%s.%s|%s.ActiveCfg = %s|%s", project.ProjectGUID, c, p, c, p)
						sln.Println("%s.%s|%s.Build.0 = %s|%s", project.ProjectGUID, c, p, c, p)
						if project.IsDeployable {
							sln.Println("%s.%s|%s.Deploy.0 = %s|%s", project.ProjectGUID, c, p, c, p)
						}
					}
				}
			}
		})
		sln.Println("EndGlobalSection")

		if s.writesFolders() {
			sln.Println("GlobalSection(NestedProjects) = preSolution")
			sln.ScopeIndent(func() {
				for _, e := range s.hierarchy.Nested() {
					sln.Println("%s = %s", e.Child, e.Parent)
				}
			})
			sln.Println("EndGlobalSection")
		}
	})
	sln.Println("EndGlobal")

	return sln.Flush()
}

// writeVersionHeader writes the Visual Studio version lines. Visual Studio 2019
// (16) changed the comment line from "# Visual Studio 15" to "# Visual Studio Version 16".
func (s *SlnFile) writeVersionHeader(sln *structuredWriter) error {
	if s.VisualStudioVersion == "" {
		return nil
	}

	major := s.VisualStudioVersion
	if i := strings.IndexByte(major, '.'); i >= 0 {
		major = major[:i]
	}
	n, err := strconv.Atoi(major)
	if err != nil {
		return fmt.Errorf("invalid Visual Studio version %q: %w", s.VisualStudioVersion, err)
	}

	if n >= 16 {
		sln.Println("# Visual Studio Version %d", n)
	} else {
		sln.Println("# Visual Studio %d", n)
	}
	sln.Println("VisualStudioVersion = %s", s.VisualStudioVersion)

	minimum := s.MinimumVisualStudioVersion
	if minimum == "" {
		minimum = DefaultMinimumVisualStudioVersion
	}
	sln.Println("MinimumVisualStudioVersion = %s", minimum)
	return nil
}

// solutionConfigurations returns the union of every project's configurations
// and platforms, in order of first appearance.
func (s *SlnFile) solutionConfigurations() ([]string, []string) {
	var configurations, platforms []string
	seenConfigurations := make(map[string]bool)
	seenPlatforms := make(map[string]bool)

	for _, project := range s.projects {
		for _, c := range project.Configurations {
			if key := strings.ToLower(c); !seenConfigurations[key] {
				seenConfigurations[key] = true
				configurations = append(configurations, c)
			}
		}
		for _, p := range project.Platforms {
			if key := strings.ToLower(p); !seenPlatforms[key] {
				seenPlatforms[key] = true
				platforms = append(platforms, p)
			}
		}
	}
	return configurations, platforms
}
