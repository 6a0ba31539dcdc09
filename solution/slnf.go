package solution

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
)

// slnfDocument is the JSON structure of a .slnf file
type slnfDocument struct {
	Solution slnfSolution `json:"solution"`
}

type slnfSolution struct {
	Path     string   `json:"path"`
	Projects []string `json:"projects"`
}

// WriteFilter writes a solution filter at path that scopes solutionPath to
// projects. Paths are stored relative to the filter (solution) directory with
// backslash separators.
func WriteFilter(path, solutionPath string, projects []string) error {
	filterDir, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return fmt.Errorf("resolve filter directory: %w", err)
	}
	solutionAbs, err := filepath.Abs(solutionPath)
	if err != nil {
		return fmt.Errorf("resolve solution path: %w", err)
	}

	doc := slnfDocument{Solution: slnfSolution{
		Path:     ToWindowsPath(relativeTo(filterDir, solutionAbs)),
		Projects: make([]string, 0, len(projects)),
	}}
	solutionDir := filepath.Dir(solutionAbs)
	for _, p := range projects {
		doc.Solution.Projects = append(doc.Solution.Projects, ToWindowsPath(relativeTo(solutionDir, p)))
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode solution filter: %w", err)
	}

	if err := os.MkdirAll(filterDir, 0755); err != nil {
		return fmt.Errorf("create filter directory: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("write solution filter %s: %w", path, err)
	}
	return nil
}

// SlnfParser reads JSON .slnf solution filters. The result holds the projects
// of the parent solution that the filter selects.
type SlnfParser struct{}

// NewSlnfParser creates a new .slnf file parser
func NewSlnfParser() *SlnfParser {
	return &SlnfParser{}
}

// CanParse checks if this parser supports the given file
func (p *SlnfParser) CanParse(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".slnf")
}

// Parse reads and parses a .slnf file
func (p *SlnfParser) Parse(path string) (*Solution, error) {
	if !p.CanParse(path) {
		return nil, &ParseError{FilePath: path, Message: "not a .slnf file"}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ParseError{FilePath: path, Message: fmt.Sprintf("cannot open file: %v", err)}
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}

	var doc slnfDocument
	if err := json.Unmarshal(trimBOM(data), &doc); err != nil {
		return nil, &ParseError{FilePath: absPath, Message: fmt.Sprintf("failed to parse JSON: %v", err)}
	}
	if doc.Solution.Path == "" {
		return nil, &ParseError{FilePath: absPath, Message: "missing solution path in filter file"}
	}

	solutionPath := ResolveProjectPath(filepath.Dir(absPath), doc.Solution.Path)
	if _, err := os.Stat(solutionPath); err != nil {
		return nil, &ParseError{FilePath: absPath, Message: fmt.Sprintf("parent solution file not found: %s", solutionPath)}
	}

	parser, err := GetParser(solutionPath)
	if err != nil {
		return nil, &ParseError{FilePath: absPath, Message: fmt.Sprintf("unsupported parent solution format: %v", err)}
	}
	parent, err := parser.Parse(solutionPath)
	if err != nil {
		return nil, &ParseError{FilePath: absPath, Message: fmt.Sprintf("failed to parse parent solution: %v", err)}
	}

	filtered := &Solution{
		FilePath:                   absPath,
		SolutionDir:                parent.SolutionDir,
		FormatVersion:              parent.FormatVersion,
		VisualStudioVersion:        parent.VisualStudioVersion,
		MinimumVisualStudioVersion: parent.MinimumVisualStudioVersion,
		Projects:                   []Project{},
		SolutionFolders:            parent.SolutionFolders,
		Configurations:             parent.Configurations,
	}

	selected := make(map[string]bool, len(doc.Solution.Projects))
	for _, proj := range doc.Solution.Projects {
		selected[pathKey(ResolveProjectPath(parent.SolutionDir, proj))] = true
	}
	for _, project := range parent.Projects {
		if selected[pathKey(project.GetAbsolutePath(parent.SolutionDir))] {
			filtered.Projects = append(filtered.Projects, project)
		}
	}

	return filtered, nil
}

func trimBOM(data []byte) []byte {
	return []byte(strings.TrimPrefix(string(data), byteOrderMark))
}
