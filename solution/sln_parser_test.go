package solution

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleSolution = "\uFEFF" + `
Microsoft Visual Studio Solution File, Format Version 12.00
# Visual Studio Version 17
VisualStudioVersion = 17.0.31903.59
MinimumVisualStudioVersion = 10.0.40219.1
Project("{9A19103F-16F7-4668-BE54-9A1E7A4F7556}") = "WebApp", "src\WebApp\WebApp.csproj", "{11111111-1111-1111-1111-111111111111}"
EndProject
Project("{9a19103f-16f7-4668-be54-9a1e7a4f7556}") = "Core", "src\Core\Core.csproj", "{22222222-2222-2222-2222-222222222222}"
	ProjectSection(ProjectDependencies) = postProject
		{11111111-1111-1111-1111-111111111111} = {11111111-1111-1111-1111-111111111111}
	EndProjectSection
EndProject
Project("{2150E333-8FDC-42A3-9474-1A3956D46DE8}") = "Solution Items", "Solution Items", "{33333333-3333-3333-3333-333333333333}"
	ProjectSection(SolutionItems) = preProject
		README.md = README.md
		.editorconfig = .editorconfig
	EndProjectSection
EndProject
Project("{2150E333-8FDC-42A3-9474-1A3956D46DE8}") = "src", "src", "{44444444-4444-4444-4444-444444444444}"
EndProject
Global
	GlobalSection(SolutionConfigurationPlatforms) = preSolution
		Debug|Any CPU = Debug|Any CPU
		Release|Any CPU = Release|Any CPU
	EndGlobalSection
	GlobalSection(ProjectConfigurationPlatforms) = postSolution
		{11111111-1111-1111-1111-111111111111}.Debug|Any CPU.ActiveCfg = Debug|Any CPU
	EndGlobalSection
	GlobalSection(NestedProjects) = preSolution
		{11111111-1111-1111-1111-111111111111} = {44444444-4444-4444-4444-444444444444}
		{22222222-2222-2222-2222-222222222222} = {44444444-4444-4444-4444-444444444444}
	EndGlobalSection
EndGlobal
`

func writeSolution(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestSlnParser_Parse(t *testing.T) {
	path := writeSolution(t, "Sample.sln", strings.ReplaceAll(sampleSolution, "\n", "\r\n"))

	sol, err := NewSlnParser().Parse(path)
	require.NoError(t, err)

	assert.Equal(t, "12.00", sol.FormatVersion)
	assert.Equal(t, "17.0.31903.59", sol.VisualStudioVersion)
	assert.Equal(t, "10.0.40219.1", sol.MinimumVisualStudioVersion)
	assert.Equal(t, filepath.Dir(path), sol.SolutionDir)

	require.Len(t, sol.Projects, 2)
	assert.Equal(t, Project{
		Name:             "WebApp",
		Path:             "src/WebApp/WebApp.csproj",
		GUID:             "{11111111-1111-1111-1111-111111111111}",
		TypeGUID:         ProjectTypeCSProjectSDK,
		ParentFolderGUID: "{44444444-4444-4444-4444-444444444444}",
	}, sol.Projects[0])
	assert.Equal(t, ProjectTypeCSProjectSDK, sol.Projects[1].TypeGUID, "type GUIDs are upper-cased")

	require.Len(t, sol.SolutionFolders, 2)
	assert.Equal(t, []string{"README.md", ".editorconfig"}, sol.SolutionItems())
	assert.Equal(t, "src", sol.SolutionFolders[1].Path)

	assert.Equal(t, []string{"Debug|Any CPU", "Release|Any CPU"}, sol.Configurations)

	core, ok := sol.GetProjectByName("core")
	require.True(t, ok)
	assert.Equal(t, filepath.Join(sol.SolutionDir, "src", "Core", "Core.csproj"), core.GetAbsolutePath(sol.SolutionDir))

	byPath, ok := sol.GetProjectByPath(filepath.Join("src", "WebApp", "WebApp.csproj"))
	require.True(t, ok)
	assert.Equal(t, "WebApp", byPath.Name)
}

func TestSlnParser_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		line    int
		message string
	}{
		{
			name:    "missing EndProject",
			content: "Microsoft Visual Studio Solution File, Format Version 12.00\nProject(\"{9A19103F-16F7-4668-BE54-9A1E7A4F7556}\") = \"A\", \"a.csproj\", \"{11111111-1111-1111-1111-111111111111}\"\n",
			line:    2,
			message: "missing EndProject",
		},
		{
			name:    "garbage line",
			content: "Microsoft Visual Studio Solution File, Format Version 12.00\nhello\n",
			line:    2,
			message: "unexpected line",
		},
		{
			name:    "missing header",
			content: "Global\nEndGlobal\n",
			line:    1,
			message: "missing solution file header",
		},
		{
			name:    "bad nested entry",
			content: "Microsoft Visual Studio Solution File, Format Version 12.00\nGlobal\n\tGlobalSection(NestedProjects) = preSolution\n\t\tnope\n\tEndGlobalSection\nEndGlobal\n",
			line:    4,
			message: "invalid NestedProjects entry",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSlnParser().ParseReader("test.sln", strings.NewReader(tt.content))
			require.Error(t, err)

			var parseErr *ParseError
			require.True(t, errors.As(err, &parseErr))
			assert.Equal(t, tt.line, parseErr.Line)
			assert.Contains(t, parseErr.Message, tt.message)
		})
	}
}

func TestSlnParser_RejectsOtherExtensions(t *testing.T) {
	_, err := NewSlnParser().Parse("solution.txt")
	assert.Error(t, err)

	_, err = NewSlnParser().Parse(filepath.Join(t.TempDir(), "missing.sln"))
	assert.Error(t, err)
}

func TestParseError_Error(t *testing.T) {
	assert.Equal(t, "a.sln:3:7: bad", (&ParseError{FilePath: "a.sln", Line: 3, Column: 7, Message: "bad"}).Error())
	assert.Equal(t, "a.sln:3: bad", (&ParseError{FilePath: "a.sln", Line: 3, Message: "bad"}).Error())
	assert.Equal(t, "a.sln: bad", (&ParseError{FilePath: "a.sln", Message: "bad"}).Error())
}

func TestGetParser(t *testing.T) {
	for path, want := range map[string]Parser{
		"a.sln":  &SlnParser{},
		"A.SLNX": &SlnxParser{},
		"a.slnf": &SlnfParser{},
	} {
		p, err := GetParser(path)
		require.NoError(t, err, path)
		assert.IsType(t, want, p)
		assert.True(t, p.CanParse(path))
		assert.True(t, IsSolutionFile(path))
	}

	_, err := GetParser("a.csproj")
	assert.Error(t, err)
	_, err = GetParser("")
	assert.Error(t, err)
	assert.False(t, IsSolutionFile("a.csproj"))
}

func TestValidateSolutionFile(t *testing.T) {
	path := writeSolution(t, "ok.sln", sampleSolution)
	assert.NoError(t, ValidateSolutionFile(path))

	assert.ErrorContains(t, ValidateSolutionFile("a.txt"), "not a solution file")
	assert.ErrorContains(t, ValidateSolutionFile(filepath.Join(t.TempDir(), "none.sln")), "not found")

	dir := filepath.Join(t.TempDir(), "dir.sln")
	require.NoError(t, os.Mkdir(dir, 0755))
	assert.ErrorContains(t, ValidateSolutionFile(dir), "directory")
}
