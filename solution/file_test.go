package solution

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func saveToString(t *testing.T, s *SlnFile) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, s.Save(&buf))
	return buf.String()
}

// lines strips the byte order mark and splits on CRLF.
func lines(t *testing.T, text string) []string {
	t.Helper()
	require.True(t, strings.HasPrefix(text, byteOrderMark), "solution starts with a byte order mark")
	text = strings.TrimPrefix(text, byteOrderMark)
	require.True(t, strings.HasSuffix(text, "\r\n"))
	return strings.Split(strings.TrimSuffix(text, "\r\n"), "\r\n")
}

func TestSlnFile_SingleProject(t *testing.T) {
	project := &SlnProject{
		FullPath:        `D:\src\app\app.csproj`,
		Name:            "app",
		ProjectGUID:     "{11111111-1111-1111-1111-111111111111}",
		ProjectTypeGUID: ProjectTypeCSProjectSDK,
		Configurations:  []string{"Debug", "Release"},
		Platforms:       []string{"Any CPU"},
		IsMainProject:   true,
	}

	s := NewSlnFile()
	s.AddProjects(project)
	s.SetHierarchy(NewHierarchy(s.Projects(), false))

	expected := []string{
		"Microsoft Visual Studio Solution File, Format Version 12.00",
		`Project("{9A19103F-16F7-4668-BE54-9A1E7A4F7556}") = "app", "D:\src\app\app.csproj", "{11111111-1111-1111-1111-111111111111}"`,
		"EndProject",
		"Global",
		"\tGlobalSection(SolutionConfigurationPlatforms) = preSolution",
		"\t\tDebug|Any CPU = Debug|Any CPU",
		"\t\tRelease|Any CPU = Release|Any CPU",
		"\tEndGlobalSection",
		"\tGlobalSection(ProjectConfigurationPlatforms) = preSolution",
		"\t\t{11111111-1111-1111-1111-111111111111}.Debug|Any CPU.ActiveCfg = Debug|Any CPU",
		"\t\t{11111111-1111-1111-1111-111111111111}.Debug|Any CPU.Build.0 = Debug|Any CPU",
		"\t\t{11111111-1111-1111-1111-111111111111}.Release|Any CPU.ActiveCfg = Release|Any CPU",
		"\t\t{11111111-1111-1111-1111-111111111111}.Release|Any CPU.Build.0 = Release|Any CPU",
		"\tEndGlobalSection",
		"EndGlobal",
	}

	assert.Equal(t, expected, lines(t, saveToString(t, s)))
}

func TestSlnFile_SingleNonMainProjectOmitsFolders(t *testing.T) {
	s := NewSlnFile()
	s.AddProjects(newTestProject(`D:\src\lib\lib.csproj`, false))
	s.SetHierarchy(NewHierarchy(s.Projects(), false))

	require.False(t, s.Hierarchy().IsEmpty())

	text := saveToString(t, s)
	assert.NotContains(t, text, FolderTypeGUID)
	assert.NotContains(t, text, "NestedProjects")
	assert.Equal(t, 0, s.FolderCount())
}

func TestSlnFile_FoldersAndNesting(t *testing.T) {
	main := newTestProject(`D:\repo\app\app.csproj`, true)
	one := newTestProject(`D:\repo\lib\one\one.csproj`, false)
	two := newTestProject(`D:\repo\lib\two\two.csproj`, false)

	s := NewSlnFile()
	s.AddProjects(main, one, two)
	h := NewHierarchy(s.Projects(), false)
	s.SetHierarchy(h)

	out := lines(t, saveToString(t, s))

	var folderLines []string
	for _, l := range out {
		if strings.HasPrefix(l, `Project("`+FolderTypeGUID+`")`) {
			folderLines = append(folderLines, l)
		}
	}
	lib, _ := h.FolderByPath(`D:\repo\lib`)
	libOne, _ := h.FolderByPath(`D:\repo\lib\one`)
	libTwo, _ := h.FolderByPath(`D:\repo\lib\two`)
	assert.Equal(t, []string{
		`Project("` + FolderTypeGUID + `") = "lib", "D:\repo\lib", "` + lib.GUID + `"`,
		`Project("` + FolderTypeGUID + `") = "one", "D:\repo\lib\one", "` + libOne.GUID + `"`,
		`Project("` + FolderTypeGUID + `") = "two", "D:\repo\lib\two", "` + libTwo.GUID + `"`,
	}, folderLines)
	assert.Equal(t, 3, s.FolderCount())

	start := indexOf(out, "\tGlobalSection(NestedProjects) = preSolution")
	require.GreaterOrEqual(t, start, 0)
	assert.Equal(t, []string{
		"\t\t" + one.ProjectGUID + " = " + libOne.GUID,
		"\t\t" + two.ProjectGUID + " = " + libTwo.GUID,
		"\t\t" + libOne.GUID + " = " + lib.GUID,
		"\t\t" + libTwo.GUID + " = " + lib.GUID,
		"\tEndGlobalSection",
		"EndGlobal",
	}, out[start+1:])

	// folders follow every project entry
	assert.Greater(t, indexOf(out, folderLines[0]), indexOf(out, `Project("`+two.ProjectTypeGUID+`") = "two.csproj", "D:\repo\lib\two\two.csproj", "`+two.ProjectGUID+`"`))
}

func TestSlnFile_ConfigurationUnion(t *testing.T) {
	a := &SlnProject{
		FullPath: "/src/a/a.csproj", Name: "a",
		ProjectGUID: "{AAAAAAAA-AAAA-AAAA-AAAA-AAAAAAAAAAAA}", ProjectTypeGUID: ProjectTypeCSProjectSDK,
		Configurations: []string{"Debug", "Release"},
		Platforms:      []string{"Any CPU"},
	}
	b := &SlnProject{
		FullPath: "/src/b/b.sfproj", Name: "b",
		ProjectGUID: "{BBBBBBBB-BBBB-BBBB-BBBB-BBBBBBBBBBBB}", ProjectTypeGUID: ProjectTypeServiceFabric,
		Configurations: []string{"release", "Staging"},
		Platforms:      []string{"x64"},
		IsDeployable:   true,
	}

	s := NewSlnFile()
	s.AddProjects(a, b)
	out := lines(t, saveToString(t, s))

	start := indexOf(out, "\tGlobalSection(SolutionConfigurationPlatforms) = preSolution")
	require.GreaterOrEqual(t, start, 0)
	assert.Equal(t, []string{
		"\t\tDebug|Any CPU = Debug|Any CPU",
		"\t\tDebug|x64 = Debug|x64",
		"\t\tRelease|Any CPU = Release|Any CPU",
		"\t\tRelease|x64 = Release|x64",
		"\t\tStaging|Any CPU = Staging|Any CPU",
		"\t\tStaging|x64 = Staging|x64",
		"\tEndGlobalSection",
	}, out[start+1:start+8])

	// per-project entries use only the project's own pairs
	var bLines []string
	for _, l := range out {
		if strings.HasPrefix(l, "\t\t"+b.ProjectGUID) {
			bLines = append(bLines, strings.TrimPrefix(l, "\t\t"+b.ProjectGUID))
		}
	}
	assert.Equal(t, []string{
		".release|x64.ActiveCfg = release|x64",
		".release|x64.Build.0 = release|x64",
		".release|x64.Deploy.0 = release|x64",
		".Staging|x64.ActiveCfg = Staging|x64",
		".Staging|x64.Build.0 = Staging|x64",
		".Staging|x64.Deploy.0 = Staging|x64",
	}, bLines)

	// no hierarchy set
	assert.NotContains(t, out, "\tGlobalSection(NestedProjects) = preSolution")
}

func TestSlnFile_SolutionItems(t *testing.T) {
	s := NewSlnFile()
	s.AddProjects(newTestProject("/src/a/a.csproj", true))
	s.AddSolutionItems("README.md", "  ", `build\common.props`)

	out := lines(t, saveToString(t, s))

	start := -1
	for i, l := range out {
		if strings.HasPrefix(l, `Project("`+FolderTypeGUID+`") = "Solution Items", "Solution Items", "{`) {
			start = i
		}
	}
	require.GreaterOrEqual(t, start, 0)
	assert.Equal(t, []string{
		"\tProjectSection(SolutionItems) = preProject",
		"\t\tREADME.md = README.md",
		"\t\t" + `build\common.props = build\common.props`,
		"\tEndProjectSection",
		"EndProject",
	}, out[start+1:start+6])
}

func TestSlnFile_VisualStudioVersion(t *testing.T) {
	tests := []struct {
		version string
		comment string
	}{
		{"17.8.34330.188", "# Visual Studio Version 17"},
		{"16.0.28701.123", "# Visual Studio Version 16"},
		{"15.0.26124.0", "# Visual Studio 15"},
	}

	for _, tt := range tests {
		t.Run(tt.version, func(t *testing.T) {
			s := NewSlnFile()
			s.VisualStudioVersion = tt.version
			s.AddProjects(newTestProject("/src/a/a.csproj", true))

			out := lines(t, saveToString(t, s))
			assert.Equal(t, []string{
				"Microsoft Visual Studio Solution File, Format Version 12.00",
				tt.comment,
				"VisualStudioVersion = " + tt.version,
				"MinimumVisualStudioVersion = 10.0.40219.1",
			}, out[:4])
		})
	}

	s := NewSlnFile()
	s.VisualStudioVersion = "preview"
	assert.Error(t, s.Save(&bytes.Buffer{}))
}

func TestSlnFile_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	main := newTestProject(filepath.Join(dir, "app", "app.csproj"), true)
	one := newTestProject(filepath.Join(dir, "lib", "one", "one.csproj"), false)
	two := newTestProject(filepath.Join(dir, "lib", "two", "two.vbproj"), false)
	two.ProjectTypeGUID = ProjectTypeVBProjectSDK

	s := NewSlnFile()
	s.VisualStudioVersion = "17.0.31903.59"
	s.AddProjects(main, one, two)
	s.AddSolutionItems("README.md")
	h := NewHierarchy(s.Projects(), false)
	s.SetHierarchy(h)

	path := filepath.Join(dir, "out", "app.sln")
	require.NoError(t, s.Write(path))

	sol, err := NewSlnParser().Parse(path)
	require.NoError(t, err)

	assert.Equal(t, "12.00", sol.FormatVersion)
	assert.Equal(t, "17.0.31903.59", sol.VisualStudioVersion)
	assert.Equal(t, DefaultMinimumVisualStudioVersion, sol.MinimumVisualStudioVersion)

	require.Len(t, sol.Projects, 3)
	for i, want := range []*SlnProject{main, one, two} {
		got := sol.Projects[i]
		assert.Equal(t, want.Name, got.Name)
		assert.Equal(t, want.ProjectGUID, got.GUID)
		assert.Equal(t, want.ProjectTypeGUID, got.TypeGUID)
		assert.Equal(t, want.FullPath, got.GetAbsolutePath(sol.SolutionDir))
	}

	assert.Empty(t, sol.Projects[0].ParentFolderGUID)
	oneFolder, _ := h.FolderByPath(filepath.Join(dir, "lib", "one"))
	assert.Equal(t, oneFolder.GUID, sol.Projects[1].ParentFolderGUID)

	// Solution Items + lib, one, two
	require.Len(t, sol.SolutionFolders, 4)
	assert.Equal(t, []string{"README.md"}, sol.SolutionItems())
	lib, ok := sol.FolderByGUID(oneFolder.GUID)
	require.True(t, ok)
	assert.Equal(t, "one", lib.Name)

	assert.Equal(t, []string{"Debug|Any CPU", "Release|Any CPU"}, sol.Configurations)
}

func TestSlnFile_WriteCreatesDirectories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b", "x.sln")

	s := NewSlnFile()
	s.AddProjects(newTestProject("/src/a/a.csproj", true))
	require.NoError(t, s.Write(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte{0xEF, 0xBB, 0xBF}))
}

func TestSlnFile_WriteFailure(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0644))

	s := NewSlnFile()
	err := s.Write(filepath.Join(blocker, "x.sln"))
	assert.Error(t, err)
}

func indexOf(lines []string, line string) int {
	for i, l := range lines {
		if l == line {
			return i
		}
	}
	return -1
}
