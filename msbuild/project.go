// Package msbuild provides a read-only evaluator for MSBuild project files
// (.csproj, .vbproj, .fsproj, traversal projects and friends).
package msbuild

import (
	"path/filepath"
	"strings"
)

// Well-known property names read by slngen.
const (
	PropertyAssemblyName          = "AssemblyName"
	PropertyProjectGUID           = "ProjectGuid"
	PropertyUsingMicrosoftNETSdk  = "UsingMicrosoftNETSdk"
	PropertyIsTraversal           = "IsTraversal"
	PropertyIncludeInSolutionFile = "IncludeInSolutionFile"
	PropertyConfiguration         = "Configuration"
	PropertyPlatform              = "Platform"
	PropertyConfigurations        = "Configurations"
	PropertyPlatforms             = "Platforms"
	PropertySlnGenProjectName     = "SlnGenProjectName"
	PropertySlnGenProjectTypeGUID = "SlnGenProjectTypeGuid"
	PropertySlnGenIsDeployable    = "SlnGenIsDeployable"
)

// Well-known item types read by slngen.
const (
	ItemProjectReference = "ProjectReference"
	ItemProjectFile      = "ProjectFile"
)

// Project is a read-only view of an evaluated project.
type Project interface {
	// FullPath is the absolute path of the project file
	FullPath() string

	// GetPropertyValue returns the evaluated value of a property, or "" when undefined.
	// Property names are case-insensitive.
	GetPropertyValue(name string) string

	// GetItems returns the evaluated items of the given type in evaluation order.
	GetItems(itemType string) []Item

	// GlobalProperties returns the global properties the project was evaluated with
	GlobalProperties() map[string]string

	// ConditionedPropertyValues returns the values a property was compared against
	// in conditions, e.g. "Debug" and "Release" for Configuration.
	ConditionedPropertyValues(name string) []string
}

// Item is one evaluated item.
type Item struct {
	// ItemType is the element name, e.g. ProjectReference
	ItemType string

	// EvaluatedInclude is the item specification after expansion
	EvaluatedInclude string

	// Metadata holds custom metadata by name
	Metadata map[string]string

	projectDir string
}

// GetMetadataValue returns custom or well-known metadata. Supported well-known
// metadata: Identity, FullPath, Filename, Extension, RelativeDir.
func (i Item) GetMetadataValue(name string) string {
	for k, v := range i.Metadata {
		if strings.EqualFold(k, name) {
			return v
		}
	}

	spec := ToSystemPath(i.EvaluatedInclude)
	switch strings.ToLower(name) {
	case "identity":
		return i.EvaluatedInclude
	case "fullpath":
		if filepath.IsAbs(spec) || i.projectDir == "" {
			return filepath.Clean(spec)
		}
		return filepath.Join(i.projectDir, spec)
	case "filename":
		base := filepath.Base(spec)
		return strings.TrimSuffix(base, filepath.Ext(base))
	case "extension":
		return filepath.Ext(spec)
	case "relativedir":
		dir, _ := filepath.Split(spec)
		return dir
	}
	return ""
}

// IsTrue reports whether an MSBuild boolean string is true ("true", "on", "yes", "!false").
func IsTrue(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "on", "yes", "!false", "!off", "!no":
		return true
	}
	return false
}

// IsFalse reports whether an MSBuild boolean string is explicitly false.
func IsFalse(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "false", "off", "no", "!true", "!on", "!yes":
		return true
	}
	return false
}

// SplitList splits a semicolon separated MSBuild list, dropping empty entries.
func SplitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ";") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// ToSystemPath converts backslash separated paths written in project files
// into the host separator.
func ToSystemPath(path string) string {
	if filepath.Separator == '\\' {
		return strings.ReplaceAll(path, "/", "\\")
	}
	return strings.ReplaceAll(path, "\\", "/")
}

// evaluatedProject is the Project produced by the XML evaluator.
type evaluatedProject struct {
	fullPath    string
	properties  map[string]string
	items       map[string][]Item
	global      map[string]string
	conditioned map[string][]string
	imports     []string

	// env is the shared environment snapshot, consulted for undefined properties
	env map[string]string
}

func (p *evaluatedProject) FullPath() string { return p.fullPath }

func (p *evaluatedProject) GetPropertyValue(name string) string {
	key := strings.ToLower(name)
	if v, ok := p.properties[key]; ok {
		return v
	}
	return p.env[key]
}

func (p *evaluatedProject) GetItems(itemType string) []Item {
	return p.items[strings.ToLower(itemType)]
}

func (p *evaluatedProject) GlobalProperties() map[string]string {
	out := make(map[string]string, len(p.global))
	for k, v := range p.global {
		out[k] = v
	}
	return out
}

func (p *evaluatedProject) ConditionedPropertyValues(name string) []string {
	return p.conditioned[strings.ToLower(name)]
}

// Imports returns the files imported while evaluating the project, in import order.
func (p *evaluatedProject) Imports() []string {
	return append([]string(nil), p.imports...)
}

// InMemoryProject is a Project whose values are supplied directly, used by hosts
// that already hold an evaluated project and by tests.
type InMemoryProject struct {
	Path        string
	Properties  map[string]string
	Items       map[string][]Item
	Global      map[string]string
	Conditioned map[string][]string
}

func (p *InMemoryProject) FullPath() string { return p.Path }

func (p *InMemoryProject) GetPropertyValue(name string) string {
	for k, v := range p.Properties {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}

func (p *InMemoryProject) GetItems(itemType string) []Item {
	for k, items := range p.Items {
		if strings.EqualFold(k, itemType) {
			out := make([]Item, len(items))
			for i, item := range items {
				item.ItemType = k
				item.projectDir = filepath.Dir(p.Path)
				out[i] = item
			}
			return out
		}
	}
	return nil
}

func (p *InMemoryProject) GlobalProperties() map[string]string {
	out := make(map[string]string, len(p.Global))
	for k, v := range p.Global {
		out[k] = v
	}
	return out
}

func (p *InMemoryProject) ConditionedPropertyValues(name string) []string {
	for k, v := range p.Conditioned {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return nil
}
