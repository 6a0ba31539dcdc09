package solution

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/microsoft/slngen-sub001/msbuild"
)

// SlnProject is a project as it appears in a generated solution.
type SlnProject struct {
	// FullPath is the absolute path of the project file
	FullPath string

	// Name is the display name
	Name string

	// ProjectGUID uniquely identifies the project within the solution
	ProjectGUID string

	// ProjectTypeGUID selects the Visual Studio project system
	ProjectTypeGUID string

	// Configurations and Platforms are the project's own build configurations
	Configurations []string
	Platforms      []string

	// IsMainProject is true for the entry projects requested by the caller
	IsMainProject bool

	// IsDeployable adds Deploy.0 entries to the project configuration section
	IsDeployable bool
}

// Defaults are used for projects that declare no configurations or platforms.
type Defaults struct {
	Configurations []string
	Platforms      []string
}

// DefaultConfigurations returns the defaults used when the caller supplies none.
func DefaultConfigurations() Defaults {
	return Defaults{
		Configurations: []string{"Debug", "Release"},
		Platforms:      []string{"Any CPU"},
	}
}

// NewDefaults builds defaults from caller supplied values, falling back to
// DefaultConfigurations for an empty list.
func NewDefaults(configurations, platforms []string) Defaults {
	d := DefaultConfigurations()
	if values := uniqueValues(configurations, nil); len(values) > 0 {
		d.Configurations = values
	}
	if values := uniqueValues(platforms, solutionPlatformName); len(values) > 0 {
		d.Platforms = values
	}
	return d
}

// FromProject builds the solution entry of an evaluated project.
// customTypeGUIDs is keyed as NormalizeProjectTypeGUIDs returns it.
func FromProject(project msbuild.Project, customTypeGUIDs map[string]string, isMainProject bool, defaults Defaults) (*SlnProject, error) {
	if project == nil {
		return nil, errors.New("project is nil")
	}

	fullPath := project.FullPath()
	ext := strings.ToLower(filepath.Ext(fullPath))
	isSDK := msbuild.IsTrue(project.GetPropertyValue(msbuild.PropertyUsingMicrosoftNETSdk))

	projectGUID := ""
	if !isSDK {
		if guid, ok := FormatGUID(project.GetPropertyValue(msbuild.PropertyProjectGUID)); ok {
			projectGUID = guid
		}
	}
	if projectGUID == "" {
		projectGUID = NewGUID()
	}

	typeGUID := ProjectTypeGUID(ext, isSDK, customTypeGUIDs)
	if value := strings.TrimSpace(project.GetPropertyValue(msbuild.PropertySlnGenProjectTypeGUID)); value != "" {
		guid, ok := FormatGUID(value)
		if !ok {
			return nil, fmt.Errorf("%s: %s %q is not a valid GUID", fullPath, msbuild.PropertySlnGenProjectTypeGUID, value)
		}
		typeGUID = guid
	} else if guid, ok := FormatGUID(typeGUID); ok {
		typeGUID = guid
	} else {
		return nil, fmt.Errorf("%s: project type GUID %q for extension %s is not a valid GUID", fullPath, typeGUID, ext)
	}

	isDeployable := ext == ".sfproj"
	if value := project.GetPropertyValue(msbuild.PropertySlnGenIsDeployable); strings.TrimSpace(value) != "" {
		isDeployable = msbuild.IsTrue(value)
	}

	return &SlnProject{
		FullPath:        filepath.Clean(fullPath),
		Name:            projectName(project),
		ProjectGUID:     projectGUID,
		ProjectTypeGUID: typeGUID,
		Configurations:  uniqueValues(declaredValues(project, msbuild.PropertyConfigurations, msbuild.PropertyConfiguration, defaults.Configurations), nil),
		Platforms:       uniqueValues(declaredValues(project, msbuild.PropertyPlatforms, msbuild.PropertyPlatform, defaults.Platforms), solutionPlatformName),
		IsMainProject:   isMainProject,
		IsDeployable:    isDeployable,
	}, nil
}

// ShouldIncludeInSolution reports whether a project gets a solution entry:
// it must not opt out with IncludeInSolutionFile=false and must not be a
// traversal project.
func ShouldIncludeInSolution(project msbuild.Project) bool {
	if msbuild.IsFalse(project.GetPropertyValue(msbuild.PropertyIncludeInSolutionFile)) {
		return false
	}
	return !msbuild.IsTrue(project.GetPropertyValue(msbuild.PropertyIsTraversal))
}

func projectName(project msbuild.Project) string {
	for _, name := range []string{msbuild.PropertySlnGenProjectName, msbuild.PropertyAssemblyName} {
		if v := strings.TrimSpace(project.GetPropertyValue(name)); v != "" {
			return v
		}
	}
	base := filepath.Base(msbuild.ToSystemPath(project.FullPath()))
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// declaredValues returns the list property (Configurations), else the values the
// singular property (Configuration) is compared against in conditions, else defaults.
func declaredValues(project msbuild.Project, listProperty, conditionedProperty string, defaults []string) []string {
	values := msbuild.SplitList(project.GetPropertyValue(listProperty))
	if len(values) == 0 {
		values = project.ConditionedPropertyValues(conditionedProperty)
	}
	if len(values) == 0 {
		values = defaults
	}
	return values
}

// uniqueValues removes case-insensitive duplicates, keeping the first spelling.
func uniqueValues(values []string, rename func(string) string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if rename != nil {
			v = rename(v)
		}
		key := strings.ToLower(v)
		if v == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, v)
	}
	return out
}

// solutionPlatformName writes AnyCPU the way Visual Studio does.
func solutionPlatformName(platform string) string {
	if strings.EqualFold(platform, "AnyCPU") {
		return "Any CPU"
	}
	return platform
}

// NewGUID returns a new random GUID in registry format ({UPPERCASE}).
func NewGUID() string {
	return "{" + strings.ToUpper(uuid.NewString()) + "}"
}

// FormatGUID parses s and returns it in registry format.
func FormatGUID(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return "", false
	}
	return "{" + strings.ToUpper(u.String()) + "}", true
}
