package solution

import (
	"fmt"
	"sort"
	"strings"
)

// Project type GUIDs for legacy (non-SDK) projects.
const (
	ProjectTypeCSProject      = "{FAE04EC0-301F-11D3-BF4B-00C04F79EFBC}"
	ProjectTypeVBProject      = "{F184B08F-C81C-45F6-A57F-5ABD9991F28F}"
	ProjectTypeFSProject      = "{F2A71F9B-5D33-465A-A702-920D77279786}"
	ProjectTypeVCXProject     = "{8BC9CEB8-8B4A-11D0-8D11-00A0C91BC942}"
	ProjectTypeSQLProject     = "{00D1A9C2-B5F0-4AF3-8072-F6C62B433612}"
	ProjectTypeCloudService   = "{CC5FD16D-436D-48AD-A40C-5A424C6E3E79}"
	ProjectTypeServiceFabric  = "{A07B5EB6-E848-4116-A8D0-A826331D98C6}"
	ProjectTypeNuProj         = "{FF286327-C783-4F7A-AB73-9BCBAD0D4460}"
	ProjectTypeWix            = "{930C7802-8A8C-48F9-8165-68863BCCD9DD}"
	ProjectTypeSharedProject  = "{D954291E-2A0B-460D-934E-DC6B0785DB48}"
	ProjectTypeNodeJS         = "{9092AA53-FB77-4645-B42D-1CCCA6BD08BD}"
	ProjectTypePython         = "{888888A0-9F3D-457C-B088-3A5042F75D52}"
	ProjectTypeJavaScript     = "{262852C6-CD72-467D-83FE-5EEB1973A190}"
	ProjectTypeDatabase       = "{C8D11400-126E-41CD-887F-60BD40844F9E}"
	ProjectTypeWindowsPackage = "{C7167F0D-BC9F-4E6E-AFE1-012C56B48DB5}"
)

// Project type GUIDs for SDK-style projects.
const (
	ProjectTypeCSProjectSDK = "{9A19103F-16F7-4668-BE54-9A1E7A4F7556}"
	ProjectTypeVBProjectSDK = "{778DAE3C-4631-46EA-AA77-85C1314464D9}"
	ProjectTypeFSProjectSDK = "{6EC3EE1D-3C4E-46DD-8F32-0CC8E7565705}"
)

// DefaultLegacyProjectTypeGUID is used for legacy projects with an unknown extension.
const DefaultLegacyProjectTypeGUID = ProjectTypeCSProject

// DefaultSDKProjectTypeGUID is used for SDK-style projects with an unknown extension.
const DefaultSDKProjectTypeGUID = ProjectTypeCSProjectSDK

var legacyProjectTypes = map[string]string{
	".csproj":  ProjectTypeCSProject,
	".vbproj":  ProjectTypeVBProject,
	".fsproj":  ProjectTypeFSProject,
	".vcxproj": ProjectTypeVCXProject,
	".sqlproj": ProjectTypeSQLProject,
	".ccproj":  ProjectTypeCloudService,
	".sfproj":  ProjectTypeServiceFabric,
	".nuproj":  ProjectTypeNuProj,
	".wixproj": ProjectTypeWix,
	".shproj":  ProjectTypeSharedProject,
	".njsproj": ProjectTypeNodeJS,
	".pyproj":  ProjectTypePython,
	".jsproj":  ProjectTypeJavaScript,
	".dbproj":  ProjectTypeDatabase,
	".wapproj": ProjectTypeWindowsPackage,
}

var sdkProjectTypes = map[string]string{
	".csproj": ProjectTypeCSProjectSDK,
	".vbproj": ProjectTypeVBProjectSDK,
	".fsproj": ProjectTypeFSProjectSDK,
}

// ProjectTypeGUID returns the type GUID for a project file extension. The
// overrides map, keyed as NormalizeProjectTypeGUIDs returns it, wins over the
// built-in tables; unknown extensions get the default GUID of their category.
func ProjectTypeGUID(extension string, isSDK bool, overrides map[string]string) string {
	ext := normalizeExtension(extension)

	if guid, ok := overrides[ext]; ok {
		return guid
	}

	if isSDK {
		if guid, ok := sdkProjectTypes[ext]; ok {
			return guid
		}
		return DefaultSDKProjectTypeGUID
	}
	if guid, ok := legacyProjectTypes[ext]; ok {
		return guid
	}
	return DefaultLegacyProjectTypeGUID
}

// NormalizeProjectTypeGUIDs keys overrides by lower case extension with a
// leading dot. Two keys naming the same extension must map to the same GUID.
func NormalizeProjectTypeGUIDs(overrides map[string]string) (map[string]string, error) {
	if len(overrides) == 0 {
		return nil, nil
	}

	keys := make([]string, 0, len(overrides))
	for k := range overrides {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	normalized := make(map[string]string, len(overrides))
	source := make(map[string]string, len(overrides))
	for _, k := range keys {
		ext := normalizeExtension(k)
		guid := strings.TrimSpace(overrides[k])
		if prev, ok := normalized[ext]; ok && !sameGUID(prev, guid) {
			return nil, fmt.Errorf("project type GUIDs for %q (%s) and %q (%s) conflict", source[ext], prev, k, guid)
		}
		normalized[ext] = guid
		source[ext] = k
	}
	return normalized, nil
}

func sameGUID(a, b string) bool {
	fa, okA := FormatGUID(a)
	fb, okB := FormatGUID(b)
	if okA && okB {
		return fa == fb
	}
	return strings.EqualFold(a, b)
}

// IsFolderType reports whether typeGUID identifies a solution folder.
func IsFolderType(typeGUID string) bool {
	return strings.EqualFold(typeGUID, FolderTypeGUID)
}

func normalizeExtension(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
