package solution

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var (
	formatVersionRegex = regexp.MustCompile(`^Microsoft Visual Studio Solution File, Format Version (\S+)`)
	vsVersionRegex     = regexp.MustCompile(`^VisualStudioVersion\s*=\s*(\S+)`)
	minVSVersionRegex  = regexp.MustCompile(`^MinimumVisualStudioVersion\s*=\s*(\S+)`)

	// Project("{TYPE}") = "Name", "Path", "{GUID}"
	projectRegex = regexp.MustCompile(
		`(?i)^Project\("(\{[A-F0-9-]+\})"\)\s*=\s*"([^"]*)",\s*"([^"]*)",\s*"(\{[A-F0-9-]+\})"`,
	)

	// {CHILD} = {PARENT}
	nestedProjectRegex = regexp.MustCompile(`(?i)^(\{[A-F0-9-]+\})\s*=\s*(\{[A-F0-9-]+\})$`)

	globalSectionRegex = regexp.MustCompile(`^GlobalSection\((\w+)\)`)
)

// SlnParser reads text .sln files.
type SlnParser struct{}

// NewSlnParser creates a new .sln file parser
func NewSlnParser() *SlnParser {
	return &SlnParser{}
}

// CanParse checks if this parser supports the given file
func (p *SlnParser) CanParse(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".sln")
}

// Parse reads and parses a .sln file
func (p *SlnParser) Parse(path string) (*Solution, error) {
	if !p.CanParse(path) {
		return nil, &ParseError{FilePath: path, Message: "not a .sln file"}
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, &ParseError{FilePath: path, Message: fmt.Sprintf("cannot open file: %v", err)}
	}
	defer file.Close()

	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}
	return p.ParseReader(absPath, file)
}

// ParseReader parses solution text read from r. path is used for SolutionDir and errors.
func (p *SlnParser) ParseReader(path string, r io.Reader) (*Solution, error) {
	sol := &Solution{
		FilePath:        path,
		SolutionDir:     filepath.Dir(path),
		Projects:        []Project{},
		SolutionFolders: []SolutionFolder{},
	}

	var (
		lineNum int
		section string
		project *Project
		folder  *SolutionFolder
		inItems bool
		parents = make(map[string]string)
	)

	fail := func(msg string) error {
		return &ParseError{FilePath: path, Line: lineNum, Message: msg}
	}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if lineNum == 1 {
			line = strings.TrimPrefix(line, byteOrderMark)
		}
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		switch {
		case inItems:
			if line == "EndProjectSection" {
				inItems = false
				continue
			}
			if item, _, _ := strings.Cut(line, "="); strings.TrimSpace(item) != "" {
				folder.Items = append(folder.Items, strings.TrimSpace(item))
			}

		case project != nil || folder != nil:
			switch {
			case line == "EndProject":
				if project != nil {
					sol.Projects = append(sol.Projects, *project)
				} else {
					sol.SolutionFolders = append(sol.SolutionFolders, *folder)
				}
				project, folder = nil, nil
			case folder != nil && strings.HasPrefix(line, "ProjectSection(SolutionItems)"):
				inItems = true
			case strings.HasPrefix(line, "Project("):
				return nil, fail("unexpected Project line: missing EndProject")
			}

		case section != "":
			if line == "EndGlobalSection" {
				section = ""
				continue
			}
			switch section {
			case "NestedProjects":
				m := nestedProjectRegex.FindStringSubmatch(line)
				if m == nil {
					return nil, fail(fmt.Sprintf("invalid NestedProjects entry %q", line))
				}
				parents[strings.ToUpper(m[1])] = strings.ToUpper(m[2])
			case "SolutionConfigurationPlatforms":
				if name, _, ok := strings.Cut(line, "="); ok {
					sol.Configurations = append(sol.Configurations, strings.TrimSpace(name))
				}
			}

		default:
			if m := formatVersionRegex.FindStringSubmatch(line); m != nil {
				sol.FormatVersion = m[1]
			} else if m := vsVersionRegex.FindStringSubmatch(line); m != nil {
				sol.VisualStudioVersion = m[1]
			} else if m := minVSVersionRegex.FindStringSubmatch(line); m != nil {
				sol.MinimumVisualStudioVersion = m[1]
			} else if m := projectRegex.FindStringSubmatch(line); m != nil {
				typeGUID := strings.ToUpper(m[1])
				guid := strings.ToUpper(m[4])
				if IsFolderType(typeGUID) {
					folder = &SolutionFolder{Name: m[2], Path: m[3], GUID: guid, Items: []string{}}
				} else {
					project = &Project{Name: m[2], Path: NormalizePath(m[3]), GUID: guid, TypeGUID: typeGUID}
				}
			} else if m := globalSectionRegex.FindStringSubmatch(line); m != nil {
				section = m[1]
			} else if line != "Global" && line != "EndGlobal" {
				return nil, fail(fmt.Sprintf("unexpected line %q", line))
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, &ParseError{FilePath: path, Message: fmt.Sprintf("error reading file: %v", err)}
	}
	if project != nil || folder != nil {
		return nil, fail("unexpected end of file: missing EndProject")
	}
	if sol.FormatVersion == "" {
		return nil, &ParseError{FilePath: path, Line: 1, Message: "missing solution file header"}
	}

	for i := range sol.Projects {
		sol.Projects[i].ParentFolderGUID = parents[sol.Projects[i].GUID]
	}
	for i := range sol.SolutionFolders {
		sol.SolutionFolders[i].ParentFolderGUID = parents[sol.SolutionFolders[i].GUID]
	}

	return sol, nil
}
