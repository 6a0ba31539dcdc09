package solution

import (
	"encoding/xml"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// SlnxParser reads XML .slnx solutions. They carry no GUIDs, so GUIDs are
// derived from the folder and project paths and stay the same across reads.
type SlnxParser struct{}

// NewSlnxParser creates a new .slnx file parser
func NewSlnxParser() *SlnxParser {
	return &SlnxParser{}
}

// CanParse checks if this parser supports the given file
func (p *SlnxParser) CanParse(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".slnx")
}

type slnxDocument struct {
	XMLName  xml.Name      `xml:"Solution"`
	Projects []slnxProject `xml:"Project"`
	Folders  []slnxFolder  `xml:"Folder"`
	Props    slnxProps     `xml:"Properties"`
}

type slnxFolder struct {
	Name     string        `xml:"Name,attr"`
	Projects []slnxProject `xml:"Project"`
	Folders  []slnxFolder  `xml:"Folder"`
	Files    []slnxFile    `xml:"File"`
}

type slnxProject struct {
	Path string `xml:"Path,attr"`
	Type string `xml:"Type,attr"`
	Name string `xml:"DisplayName,attr"`
}

type slnxFile struct {
	Path string `xml:"Path,attr"`
}

type slnxProps struct {
	Properties []slnxProperty `xml:"Property"`
}

type slnxProperty struct {
	Name  string `xml:"Name,attr"`
	Value string `xml:"Value,attr"`
}

// Parse reads and parses a .slnx file
func (p *SlnxParser) Parse(path string) (*Solution, error) {
	if !p.CanParse(path) {
		return nil, &ParseError{FilePath: path, Message: "not a .slnx file"}
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

	var doc slnxDocument
	if err := xml.NewDecoder(file).Decode(&doc); err != nil {
		var syntaxErr *xml.SyntaxError
		if errors.As(err, &syntaxErr) {
			return nil, &ParseError{FilePath: absPath, Line: syntaxErr.Line, Message: "XML syntax error: " + syntaxErr.Msg}
		}
		return nil, &ParseError{FilePath: absPath, Message: fmt.Sprintf("failed to parse XML: %v", err)}
	}

	sol := &Solution{
		FilePath:        absPath,
		SolutionDir:     filepath.Dir(absPath),
		FormatVersion:   DefaultFormatVersion,
		Projects:        []Project{},
		SolutionFolders: []SolutionFolder{},
	}

	for _, prop := range doc.Props.Properties {
		switch prop.Name {
		case "VisualStudioVersion":
			sol.VisualStudioVersion = prop.Value
		case "MinimumVisualStudioVersion":
			sol.MinimumVisualStudioVersion = prop.Value
		}
	}

	for _, proj := range doc.Projects {
		sol.Projects = append(sol.Projects, convertSlnxProject(proj, ""))
	}
	for _, folder := range doc.Folders {
		addSlnxFolder(sol, folder, "")
	}

	return sol, nil
}

func addSlnxFolder(sol *Solution, folder slnxFolder, parentGUID string) {
	guid := stableGUID("folder:" + folder.Name)

	sf := SolutionFolder{
		Name:             baseName(strings.Trim(folder.Name, "/")),
		Path:             folder.Name,
		GUID:             guid,
		ParentFolderGUID: parentGUID,
		Items:            []string{},
	}
	for _, file := range folder.Files {
		sf.Items = append(sf.Items, NormalizePath(file.Path))
	}
	sol.SolutionFolders = append(sol.SolutionFolders, sf)

	for _, proj := range folder.Projects {
		sol.Projects = append(sol.Projects, convertSlnxProject(proj, guid))
	}
	for _, nested := range folder.Folders {
		addSlnxFolder(sol, nested, guid)
	}
}

func convertSlnxProject(proj slnxProject, parentGUID string) Project {
	path := NormalizePath(proj.Path)

	name := proj.Name
	if name == "" {
		name = strings.TrimSuffix(baseName(path), filepath.Ext(path))
	}

	typeGUID, ok := FormatGUID(proj.Type)
	if !ok {
		typeGUID = ProjectTypeGUID(filepath.Ext(path), true, nil)
	}

	return Project{
		Name:             name,
		Path:             path,
		GUID:             stableGUID("project:" + strings.ToLower(path)),
		TypeGUID:         typeGUID,
		ParentFolderGUID: parentGUID,
	}
}

// stableGUID derives a name-based GUID so that repeated reads agree.
func stableGUID(name string) string {
	return "{" + strings.ToUpper(uuid.NewSHA1(uuid.NameSpaceURL, []byte(name)).String()) + "}"
}
