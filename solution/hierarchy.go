package solution

import (
	"sort"
	"strings"
)

// SlnFolder is a solution folder standing for a directory.
type SlnFolder struct {
	// FullPath is the directory the folder represents
	FullPath string

	// Name is shown in Solution Explorer
	Name string

	// GUID identifies the folder within the solution
	GUID string

	// Folders and Projects are the direct children
	Folders  []*SlnFolder
	Projects []*SlnProject

	parent *SlnFolder
}

// NestedEntry is one child to parent edge of the NestedProjects section.
type NestedEntry struct {
	Child  string
	Parent string
}

// SlnHierarchy is the folder tree derived from project directories.
type SlnHierarchy struct {
	roots   []*SlnFolder
	folders map[string]*SlnFolder
	nested  []NestedEntry
}

// NewHierarchy builds the folder tree for projects. The root is the deepest
// directory shared by every non-main project; one folder is created for each
// directory between a project and the root, the root included. Main projects
// stay at the top level of the solution. With collapseFolders, a folder that
// holds no project and a single folder is merged with that folder.
func NewHierarchy(projects []*SlnProject, collapseFolders bool) *SlnHierarchy {
	h := &SlnHierarchy{folders: make(map[string]*SlnFolder)}

	var nested []*SlnProject
	for _, p := range projects {
		if !p.IsMainProject {
			nested = append(nested, p)
		}
	}
	if len(nested) == 0 {
		return h
	}

	root := commonDirectory(nested)
	rootDepth := pathDepth(root)

	for _, project := range nested {
		dir := parentDirectory(project.FullPath)
		folder := h.folderFor(dir)
		folder.Projects = append(folder.Projects, project)

		// walk up until an existing folder or the root is reached
		for child := folder; pathDepth(child.FullPath) > rootDepth; {
			parentDir := parentDirectory(child.FullPath)
			if parentDir == "" {
				break
			}
			parent, existed := h.folders[pathKey(parentDir)]
			if !existed {
				parent = h.folderFor(parentDir)
			}
			if child.parent == nil {
				child.parent = parent
				parent.Folders = append(parent.Folders, child)
			}
			if existed {
				break
			}
			child = parent
		}
	}

	for _, folder := range h.folders {
		if folder.parent == nil {
			h.roots = append(h.roots, folder)
		}
	}
	sortFolders(h.roots)

	if collapseFolders {
		for _, r := range h.roots {
			collapse(r)
		}
		h.reindex()
	}

	h.nested = h.buildNested(projects)
	return h
}

// folderFor returns the folder of dir, creating it when needed.
func (h *SlnHierarchy) folderFor(dir string) *SlnFolder {
	key := pathKey(dir)
	if folder, ok := h.folders[key]; ok {
		return folder
	}
	folder := &SlnFolder{FullPath: dir, Name: baseName(dir), GUID: NewGUID()}
	h.folders[key] = folder
	return folder
}

// commonDirectory returns the longest directory shared by the directories of
// projects. Path segments are compared case-insensitively with either
// separator, and the result is a prefix of the first project's directory.
func commonDirectory(projects []*SlnProject) string {
	first := parentDirectory(projects[0].FullPath)
	segments, ends := pathSegments(first)
	rooted := strings.HasPrefix(first, `\`) || strings.HasPrefix(first, "/")

	n := len(segments)
	for _, p := range projects[1:] {
		dir := parentDirectory(p.FullPath)
		other, _ := pathSegments(dir)
		if len(other) < n {
			n = len(other)
		}
		for i := 0; i < n; i++ {
			if !strings.EqualFold(segments[i], other[i]) {
				n = i
				break
			}
		}
		rooted = rooted && (strings.HasPrefix(dir, `\`) || strings.HasPrefix(dir, "/"))
	}

	switch {
	case n > 0:
		return first[:ends[n-1]]
	case rooted:
		return first[:1]
	}
	return ""
}

// collapse merges folder with its only child folder while folder holds no projects.
func collapse(folder *SlnFolder) {
	for len(folder.Projects) == 0 && len(folder.Folders) == 1 {
		child := folder.Folders[0]
		folder.Name = folder.Name + `\` + child.Name
		folder.FullPath = child.FullPath
		folder.Projects = child.Projects
		folder.Folders = child.Folders
		for _, f := range folder.Folders {
			f.parent = folder
		}
	}
	for _, f := range folder.Folders {
		collapse(f)
	}
}

// reindex rebuilds the folder index after collapsing.
func (h *SlnHierarchy) reindex() {
	h.folders = make(map[string]*SlnFolder)
	var walk func(*SlnFolder)
	walk = func(f *SlnFolder) {
		h.folders[pathKey(f.FullPath)] = f
		for _, child := range f.Folders {
			walk(child)
		}
	}
	for _, r := range h.roots {
		walk(r)
	}
}

func (h *SlnHierarchy) buildNested(projects []*SlnProject) []NestedEntry {
	var entries []NestedEntry

	parentOf := make(map[*SlnProject]*SlnFolder)
	for _, folder := range h.folders {
		for _, p := range folder.Projects {
			parentOf[p] = folder
		}
	}
	for _, p := range projects {
		if folder, ok := parentOf[p]; ok {
			entries = append(entries, NestedEntry{Child: p.ProjectGUID, Parent: folder.GUID})
		}
	}

	for _, folder := range h.Folders() {
		if folder.parent != nil {
			entries = append(entries, NestedEntry{Child: folder.GUID, Parent: folder.parent.GUID})
		}
	}
	return entries
}

// Folders returns every folder ordered by path.
func (h *SlnHierarchy) Folders() []*SlnFolder {
	folders := make([]*SlnFolder, 0, len(h.folders))
	for _, f := range h.folders {
		folders = append(folders, f)
	}
	sortFolders(folders)
	return folders
}

// Roots returns the folders without a parent.
func (h *SlnHierarchy) Roots() []*SlnFolder {
	return h.roots
}

// Nested returns the child to parent edges: projects first in input order, then folders by path.
func (h *SlnHierarchy) Nested() []NestedEntry {
	return h.nested
}

// Parent returns the GUID of the folder containing the project or folder with childGUID.
func (h *SlnHierarchy) Parent(childGUID string) (string, bool) {
	for _, e := range h.nested {
		if strings.EqualFold(e.Child, childGUID) {
			return e.Parent, true
		}
	}
	return "", false
}

// FolderByPath returns the folder standing for dir.
func (h *SlnHierarchy) FolderByPath(dir string) (*SlnFolder, bool) {
	f, ok := h.folders[pathKey(strings.TrimRight(dir, `/\`))]
	return f, ok
}

// IsEmpty reports whether the hierarchy has no folders.
func (h *SlnHierarchy) IsEmpty() bool {
	return h == nil || len(h.folders) == 0
}

// sortFolders orders folders by path one directory at a time, so a folder is
// followed by its subfolders before its next sibling.
func sortFolders(folders []*SlnFolder) {
	sort.Slice(folders, func(i, j int) bool {
		a := strings.Split(pathKey(folders[i].FullPath), `\`)
		b := strings.Split(pathKey(folders[j].FullPath), `\`)
		for k := 0; k < len(a) && k < len(b); k++ {
			if a[k] != b[k] {
				return a[k] < b[k]
			}
		}
		return len(a) < len(b)
	})
}
