package solution

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProject(path string, main bool) *SlnProject {
	return &SlnProject{
		FullPath:        path,
		Name:            baseName(path),
		ProjectGUID:     NewGUID(),
		ProjectTypeGUID: ProjectTypeCSProjectSDK,
		Configurations:  []string{"Debug", "Release"},
		Platforms:       []string{"Any CPU"},
		IsMainProject:   main,
	}
}

func folderPaths(h *SlnHierarchy) []string {
	var paths []string
	for _, f := range h.Folders() {
		paths = append(paths, f.FullPath)
	}
	return paths
}

func TestNewHierarchy_FoldersFollowDirectories(t *testing.T) {
	projects := []*SlnProject{
		newTestProject(`D:\foo\bar\baz\baz.csproj`, false),
		newTestProject(`D:\foo\bar\baz1\baz1.csproj`, false),
		newTestProject(`D:\foo\bar\baz2\baz2.csproj`, false),
		newTestProject(`D:\foo\bar1\bar1.csproj`, false),
	}

	h := NewHierarchy(projects, false)

	assert.Equal(t, []string{
		`D:\foo`,
		`D:\foo\bar`,
		`D:\foo\bar\baz`,
		`D:\foo\bar\baz1`,
		`D:\foo\bar\baz2`,
		`D:\foo\bar1`,
	}, folderPaths(h))

	for _, p := range projects {
		parentGUID, ok := h.Parent(p.ProjectGUID)
		require.True(t, ok, p.FullPath)

		folder, ok := h.FolderByPath(parentDirectory(p.FullPath))
		require.True(t, ok)
		assert.Equal(t, folder.GUID, parentGUID, p.FullPath)
	}

	root, ok := h.FolderByPath(`D:\foo`)
	require.True(t, ok)
	_, hasParent := h.Parent(root.GUID)
	assert.False(t, hasParent, "root folder has no parent")

	bar, _ := h.FolderByPath(`D:\foo\bar`)
	parentGUID, ok := h.Parent(bar.GUID)
	require.True(t, ok)
	assert.Equal(t, root.GUID, parentGUID)

	assert.Len(t, h.Roots(), 1)
	assert.Equal(t, "foo", h.Roots()[0].Name)
}

func TestNewHierarchy_NoDuplicateFolders(t *testing.T) {
	projects := []*SlnProject{
		newTestProject(`D:\repo\src\a\a.csproj`, false),
		newTestProject(`D:\REPO\src\A\a.Tests.csproj`, false),
		newTestProject(`D:\repo\src\b\b.csproj`, false),
	}

	h := NewHierarchy(projects, false)

	assert.Equal(t, []string{`D:\repo\src`, `D:\repo\src\a`, `D:\repo\src\b`}, folderPaths(h))

	a, _ := h.Parent(projects[0].ProjectGUID)
	aTests, _ := h.Parent(projects[1].ProjectGUID)
	assert.Equal(t, a, aTests, "paths compare case-insensitively")
}

func TestNewHierarchy_MainProjectExcluded(t *testing.T) {
	main := newTestProject(`D:\foo\app\app.csproj`, true)
	projects := []*SlnProject{
		main,
		newTestProject(`D:\foo\lib\one\one.csproj`, false),
		newTestProject(`D:\foo\lib\two\two.csproj`, false),
	}

	h := NewHierarchy(projects, false)

	_, ok := h.Parent(main.ProjectGUID)
	assert.False(t, ok, "main project is never nested")
	_, ok = h.FolderByPath(`D:\foo\app`)
	assert.False(t, ok)
	assert.Equal(t, []string{`D:\foo\lib`, `D:\foo\lib\one`, `D:\foo\lib\two`}, folderPaths(h))
}

func TestNewHierarchy_OnlyMainProjects(t *testing.T) {
	h := NewHierarchy([]*SlnProject{newTestProject(`D:\foo\app\app.csproj`, true)}, false)

	assert.True(t, h.IsEmpty())
	assert.Empty(t, h.Folders())
	assert.Empty(t, h.Nested())
}

func TestNewHierarchy_NestedOrder(t *testing.T) {
	projects := []*SlnProject{
		newTestProject(`/src/z/z.csproj`, false),
		newTestProject(`/src/a/a.csproj`, false),
	}

	h := NewHierarchy(projects, false)
	nested := h.Nested()
	require.Len(t, nested, 4)

	// projects in input order, then folders by path
	assert.Equal(t, projects[0].ProjectGUID, nested[0].Child)
	assert.Equal(t, projects[1].ProjectGUID, nested[1].Child)

	a, _ := h.FolderByPath("/src/a")
	z, _ := h.FolderByPath("/src/z")
	src, _ := h.FolderByPath("/src")
	assert.Equal(t, NestedEntry{Child: a.GUID, Parent: src.GUID}, nested[2])
	assert.Equal(t, NestedEntry{Child: z.GUID, Parent: src.GUID}, nested[3])
}

func TestNewHierarchy_CollapseFolders(t *testing.T) {
	projects := []*SlnProject{
		newTestProject(`D:\repo\src\libs\core\core.csproj`, false),
		newTestProject(`D:\repo\src\libs\util\util.csproj`, false),
		newTestProject(`D:\repo\test\unit\core\core.tests.csproj`, false),
	}

	h := NewHierarchy(projects, true)

	names := map[string]string{}
	for _, f := range h.Folders() {
		names[f.FullPath] = f.Name
	}
	assert.Equal(t, map[string]string{
		`D:\repo`:                "repo",
		`D:\repo\src\libs`:       `src\libs`,
		`D:\repo\src\libs\core`:  "core",
		`D:\repo\src\libs\util`:  "util",
		`D:\repo\test\unit\core`: `test\unit\core`,
	}, names)

	testFolder, ok := h.FolderByPath(`D:\repo\test\unit\core`)
	require.True(t, ok)
	parent, ok := h.Parent(projects[2].ProjectGUID)
	require.True(t, ok)
	assert.Equal(t, testFolder.GUID, parent)

	repo, _ := h.FolderByPath(`D:\repo`)
	parent, ok = h.Parent(testFolder.GUID)
	require.True(t, ok)
	assert.Equal(t, repo.GUID, parent)
}

func TestCommonDirectory(t *testing.T) {
	tests := []struct {
		name  string
		paths []string
		want  string
	}{
		{"single", []string{`D:\a\b\b.csproj`}, `D:\a\b`},
		{"siblings", []string{`D:\a\b\b.csproj`, `D:\a\c\c.csproj`}, `D:\a`},
		{"prefix is not a directory", []string{`D:\a\bar\x.csproj`, `D:\a\baz\y.csproj`}, `D:\a`},
		{"mixed separators", []string{`/a/b/x.csproj`, `\a\c\y.csproj`}, `/a`},
		{"unix root", []string{`/a/x.csproj`, `/b/y.csproj`}, `/`},
		{"different drives", []string{`C:\a\x.csproj`, `D:\b\y.csproj`}, ``},
		{"case differs", []string{`D:\Src\a\x.csproj`, `d:\src\b\y.csproj`}, `D:\Src`},
		{"lower case grows", []string{`D:\ȺȺȺȺ\x\p.csproj`, `D:\ȺȺȺȺ\x\q.csproj`}, `D:\ȺȺȺȺ\x`},
		{"lower case shrinks", []string{"D:\\src\\\u212a\u212a\\a\\a.csproj", "D:\\src\\\u212a\u212a\\b\\b.csproj"}, "D:\\src\\\u212a\u212a"},
		{"folded segments", []string{"D:\\src\\\u212a\\a\\a.csproj", `D:\src\k\b\b.csproj`}, "D:\\src\\\u212a"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var projects []*SlnProject
			for _, p := range tt.paths {
				projects = append(projects, newTestProject(p, false))
			}
			assert.Equal(t, tt.want, commonDirectory(projects))
		})
	}
}

func TestNewHierarchy_MultiByteDirectories(t *testing.T) {
	kelvin := "\u212a\u212a"
	projects := []*SlnProject{
		newTestProject(`D:\src\`+kelvin+`\a\a.csproj`, false),
		newTestProject(`D:\src\`+kelvin+`\b\b.csproj`, false),
		newTestProject(`D:\ȺȺȺȺ\x\p.csproj`, false),
	}

	h := NewHierarchy(projects[:2], false)
	assert.Equal(t, []string{
		`D:\src\` + kelvin,
		`D:\src\` + kelvin + `\a`,
		`D:\src\` + kelvin + `\b`,
	}, folderPaths(h))

	single := NewHierarchy(projects[2:], false)
	assert.Equal(t, []string{`D:\ȺȺȺȺ\x`}, folderPaths(single))
}
