package msbuild

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/microsoft/slngen-sub001/observability"
)

// LoadSettings controls how tolerant evaluation is of broken imports.
type LoadSettings struct {
	// IgnoreMissingImports skips <Import> elements whose file does not exist
	IgnoreMissingImports bool

	// IgnoreInvalidImports skips imported files that are not valid project XML
	IgnoreInvalidImports bool

	// IgnoreEmptyImports skips <Import> elements that expand to an empty path or an empty file
	IgnoreEmptyImports bool
}

// TolerantLoadSettings returns the settings used when loading projects for a solution:
// every kind of broken import is skipped.
func TolerantLoadSettings() LoadSettings {
	return LoadSettings{
		IgnoreMissingImports: true,
		IgnoreInvalidImports: true,
		IgnoreEmptyImports:   true,
	}
}

// Evaluator evaluates a project file under a set of global properties.
type Evaluator interface {
	Evaluate(ctx context.Context, path string, globalProperties map[string]string, settings LoadSettings) (Project, error)
}

// GraphCapable is implemented by evaluators that can be driven level by level
// by the graph loader.
type GraphCapable interface {
	SupportsGraph() bool
}

// XMLEvaluator evaluates project files directly from their XML: properties,
// imports and conditions first, items second. Targets are never run.
type XMLEvaluator struct {
	context *EvaluationContext
	logger  observability.Logger
}

// NewEvaluator creates an evaluator sharing the given context. A nil logger discards output.
func NewEvaluator(ec *EvaluationContext, logger observability.Logger) *XMLEvaluator {
	if logger == nil {
		logger = observability.NewNullLogger()
	}
	return &XMLEvaluator{context: ec, logger: logger}
}

// SupportsGraph reports that evaluations are independent and may be scheduled per level.
func (e *XMLEvaluator) SupportsGraph() bool { return true }

// Evaluate loads and evaluates the project at path.
func (e *XMLEvaluator) Evaluate(ctx context.Context, path string, globalProperties map[string]string, settings LoadSettings) (Project, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fullPath, err := filepath.Abs(path)
	if err != nil {
		return nil, &EvaluationError{Code: CodeProjectLoadFailed, File: path, Message: err.Error(), Err: err}
	}

	root, err := e.context.load(ctx, fullPath)
	if err != nil {
		return nil, projectLoadError(fullPath, err)
	}
	if !strings.EqualFold(root.Name, "Project") {
		return nil, &EvaluationError{
			Code:    CodeUnexpectedRoot,
			File:    fullPath,
			Line:    root.Line,
			Column:  root.Column,
			Message: fmt.Sprintf("The element <%s> is unrecognized, or not supported in this context.", root.Name),
		}
	}

	ev := newEvaluation(ctx, e, fullPath, globalProperties, settings)
	if err := ev.run(root); err != nil {
		return nil, err
	}

	e.logger.Debug("Evaluated {ProjectPath} ({PropertyCount} properties, {ImportCount} imports)",
		fullPath, len(ev.props), len(ev.imports))
	return ev.result(), nil
}

func projectLoadError(path string, err error) *EvaluationError {
	var perr *parseError
	switch {
	case errors.As(err, &perr):
		return &EvaluationError{
			Code:    CodeProjectLoadFailed,
			File:    path,
			Line:    perr.Line,
			Column:  perr.Column,
			Message: "The project file could not be loaded. " + perr.Msg,
			Err:     err,
		}
	case errors.Is(err, errEmptyFile):
		return &EvaluationError{
			Code:    CodeProjectLoadFailed,
			File:    path,
			Message: "The project file could not be loaded. Root element is missing.",
			Err:     err,
		}
	}
	return &EvaluationError{
		Code:    CodeProjectLoadFailed,
		File:    path,
		Message: "The project file could not be loaded. " + err.Error(),
		Err:     err,
	}
}

// deferredItemGroup is an ItemGroup seen during the property pass.
type deferredItemGroup struct {
	el   *element
	file string
}

// evaluation holds the state of evaluating one project.
type evaluation struct {
	ctx       context.Context
	evaluator *XMLEvaluator
	settings  LoadSettings

	projectPath string
	projectDir  string

	global      map[string]string
	globalNames map[string]string
	props       map[string]string

	conditioned    map[string][]string
	conditionedSet map[string]bool

	imports  []string
	imported map[string]bool

	itemGroups []deferredItemGroup
	items      map[string][]Item
}

func newEvaluation(ctx context.Context, e *XMLEvaluator, fullPath string, globalProperties map[string]string, settings LoadSettings) *evaluation {
	ev := &evaluation{
		ctx:            ctx,
		evaluator:      e,
		settings:       settings,
		projectPath:    fullPath,
		projectDir:     filepath.Dir(fullPath),
		global:         make(map[string]string, len(globalProperties)),
		globalNames:    make(map[string]string, len(globalProperties)),
		props:          make(map[string]string),
		conditioned:    make(map[string][]string),
		conditionedSet: make(map[string]bool),
		imported:       map[string]bool{NormalizePath(fullPath): true},
		items:          make(map[string][]Item),
	}
	for k, v := range globalProperties {
		ev.global[strings.ToLower(k)] = v
		ev.globalNames[k] = v
	}
	return ev
}

func (ev *evaluation) run(root *element) error {
	sdk := isSdkProject(root)

	if sdk {
		if err := ev.sdkProps(root); err != nil {
			return err
		}
	}
	if err := ev.processChildren(root.Children, ev.projectPath); err != nil {
		return err
	}
	if sdk {
		if err := ev.sdkTargets(root); err != nil {
			return err
		}
	}

	for _, group := range ev.itemGroups {
		if err := ev.evaluateItemGroup(group); err != nil {
			return err
		}
	}
	return nil
}

func (ev *evaluation) result() *evaluatedProject {
	properties := make(map[string]string, len(ev.props)+len(ev.global)+8)
	for k, v := range ev.props {
		properties[k] = v
	}
	for k, v := range ev.global {
		properties[k] = v
	}
	for _, name := range []string{
		"MSBuildProjectFullPath", "MSBuildProjectDirectory", "MSBuildProjectFile",
		"MSBuildProjectName", "MSBuildProjectExtension",
	} {
		v, _ := ev.reserved(name, ev.projectPath)
		properties[strings.ToLower(name)] = v
	}

	return &evaluatedProject{
		fullPath:    ev.projectPath,
		properties:  properties,
		items:       ev.items,
		global:      ev.globalNames,
		conditioned: ev.conditioned,
		imports:     ev.imports,
		env:         ev.evaluator.context.env,
	}
}

// isSdkProject reports whether the project uses an SDK via the Sdk attribute or <Sdk> elements.
func isSdkProject(root *element) bool {
	if sdk, ok := root.Attr("Sdk"); ok && strings.TrimSpace(sdk) != "" {
		return true
	}
	for _, child := range root.Children {
		if strings.EqualFold(child.Name, "Sdk") {
			return true
		}
	}
	return false
}

// sdkProps applies what the .NET SDK defines before the project body.
func (ev *evaluation) sdkProps(at *element) error {
	ev.setProperty(PropertyUsingMicrosoftNETSdk, "true")
	ev.setDefault(PropertyConfiguration, "Debug")
	ev.setDefault(PropertyPlatform, "AnyCPU")

	if IsFalse(ev.lookupOnly("ImportDirectoryBuildProps")) {
		return nil
	}
	path := ev.lookupOnly("DirectoryBuildPropsPath")
	if path == "" {
		path = findUpward(ev.projectDir, "Directory.Build.props")
	}
	if path == "" {
		return nil
	}
	return ev.importFile(path, ev.projectPath, at)
}

// sdkTargets applies what the .NET SDK defines after the project body.
func (ev *evaluation) sdkTargets(at *element) error {
	ev.setDefault(PropertyConfigurations, "Debug;Release")
	ev.setDefault(PropertyPlatforms, "AnyCPU")

	if IsFalse(ev.lookupOnly("ImportDirectoryBuildTargets")) {
		return nil
	}
	path := ev.lookupOnly("DirectoryBuildTargetsPath")
	if path == "" {
		path = findUpward(ev.projectDir, "Directory.Build.targets")
	}
	if path == "" {
		return nil
	}
	return ev.importFile(path, ev.projectPath, at)
}

// findUpward returns the first file named name in dir or one of its parents.
func findUpward(dir, name string) string {
	for {
		candidate := filepath.Join(dir, name)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// lookup resolves a property as seen from file: reserved, global, defined, then environment.
func (ev *evaluation) lookup(name, file string) (string, bool) {
	if v, ok := ev.reserved(name, file); ok {
		return v, true
	}
	key := strings.ToLower(name)
	if v, ok := ev.global[key]; ok {
		return v, true
	}
	if v, ok := ev.props[key]; ok {
		return v, true
	}
	return ev.evaluator.context.Environment(name)
}

func (ev *evaluation) lookupOnly(name string) string {
	v, _ := ev.lookup(name, ev.projectPath)
	return v
}

func (ev *evaluation) reserved(name, file string) (string, bool) {
	switch strings.ToLower(name) {
	case "msbuildprojectfullpath":
		return ev.projectPath, true
	case "msbuildprojectdirectory":
		return ev.projectDir, true
	case "msbuildprojectfile":
		return filepath.Base(ev.projectPath), true
	case "msbuildprojectname":
		base := filepath.Base(ev.projectPath)
		return strings.TrimSuffix(base, filepath.Ext(base)), true
	case "msbuildprojectextension":
		return filepath.Ext(ev.projectPath), true
	case "msbuildthisfilefullpath":
		return file, true
	case "msbuildthisfiledirectory":
		return filepath.Dir(file) + string(filepath.Separator), true
	case "msbuildthisfile":
		return filepath.Base(file), true
	case "msbuildthisfilename":
		base := filepath.Base(file)
		return strings.TrimSuffix(base, filepath.Ext(base)), true
	case "msbuildthisfileextension":
		return filepath.Ext(file), true
	}
	return "", false
}

// setProperty defines a property unless it is global or reserved.
func (ev *evaluation) setProperty(name, value string) {
	key := strings.ToLower(name)
	if _, ok := ev.global[key]; ok {
		return
	}
	if _, ok := ev.reserved(name, ""); ok {
		return
	}
	ev.props[key] = value
}

func (ev *evaluation) setDefault(name, value string) {
	if v, _ := ev.lookup(name, ev.projectPath); v == "" {
		ev.setProperty(name, value)
	}
}

func (ev *evaluation) expand(s, file string) string {
	return expandProperties(s, func(name string) (string, bool) { return ev.lookup(name, file) })
}

// condition evaluates the Condition attribute of el, recording conditioned properties.
func (ev *evaluation) condition(el *element, file string, items itemLookup) (bool, error) {
	cond, ok := el.Attr("Condition")
	if !ok {
		return true, nil
	}

	env := &conditionEnv{
		props:   func(name string) (string, bool) { return ev.lookup(name, file) },
		items:   items,
		baseDir: ev.projectDir,
	}
	result, parsed, err := evaluateCondition(cond, env)
	if parsed != nil {
		ev.recordConditioned(parsed)
	}
	if err != nil {
		return false, &EvaluationError{
			Code:    CodeInvalidCondition,
			File:    file,
			Line:    el.Line,
			Column:  el.Column,
			Message: err.Error(),
			Err:     err,
		}
	}
	return result, nil
}

func (ev *evaluation) recordConditioned(parsed *parsedCondition) {
	for _, pair := range parsed.conditionedProperties() {
		name := strings.ToLower(pair[0])
		seenKey := name + "|" + strings.ToLower(pair[1])
		if ev.conditionedSet[seenKey] {
			continue
		}
		ev.conditionedSet[seenKey] = true
		ev.conditioned[name] = append(ev.conditioned[name], pair[1])
	}
}

// processChildren runs the property pass over the children of a Project, When or Otherwise element.
func (ev *evaluation) processChildren(children []*element, file string) error {
	for _, el := range children {
		if err := ev.ctx.Err(); err != nil {
			return err
		}

		switch strings.ToLower(el.Name) {
		case "propertygroup":
			ok, err := ev.condition(el, file, nil)
			if err != nil {
				return err
			}
			if ok {
				if err := ev.processPropertyGroup(el, file); err != nil {
					return err
				}
			}
		case "itemgroup":
			ev.itemGroups = append(ev.itemGroups, deferredItemGroup{el: el, file: file})
		case "import":
			if err := ev.processImport(el, file); err != nil {
				return err
			}
		case "importgroup":
			ok, err := ev.condition(el, file, nil)
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
			for _, child := range el.Children {
				if strings.EqualFold(child.Name, "Import") {
					if err := ev.processImport(child, file); err != nil {
						return err
					}
				}
			}
		case "choose":
			if err := ev.processChoose(el, file); err != nil {
				return err
			}
		}
	}
	return nil
}

func (ev *evaluation) processPropertyGroup(group *element, file string) error {
	for _, el := range group.Children {
		ok, err := ev.condition(el, file, nil)
		if err != nil {
			return err
		}
		if ok {
			ev.setProperty(el.Name, ev.expand(el.Text, file))
		}
	}
	return nil
}

func (ev *evaluation) processChoose(choose *element, file string) error {
	for _, el := range choose.Children {
		switch strings.ToLower(el.Name) {
		case "when":
			ok, err := ev.condition(el, file, nil)
			if err != nil {
				return err
			}
			if ok {
				return ev.processChildren(el.Children, file)
			}
		case "otherwise":
			return ev.processChildren(el.Children, file)
		}
	}
	return nil
}

func (ev *evaluation) processImport(el *element, file string) error {
	ok, err := ev.condition(el, file, nil)
	if err != nil || !ok {
		return err
	}

	project, _ := el.Attr("Project")
	if sdk, ok := el.Attr("Sdk"); ok && strings.TrimSpace(sdk) != "" {
		// SDK imports are not resolved; their effect is modeled by sdkProps/sdkTargets.
		return nil
	}

	expanded := strings.TrimSpace(ev.expand(project, file))
	if expanded == "" {
		if ev.settings.IgnoreEmptyImports {
			return nil
		}
		return &EvaluationError{
			Code:    CodeImportInvalid,
			File:    file,
			Line:    el.Line,
			Column:  el.Column,
			Message: fmt.Sprintf("The value %q of the \"Project\" attribute in element <Import> is invalid.", project),
		}
	}

	for _, spec := range SplitList(expanded) {
		path := ToSystemPath(spec)
		if !filepath.IsAbs(path) {
			path = filepath.Join(filepath.Dir(file), path)
		}

		if strings.ContainsAny(path, "*?") {
			matches, err := globFiles(path)
			if err != nil {
				return &EvaluationError{Code: CodeImportInvalid, File: file, Line: el.Line, Column: el.Column, Message: err.Error(), Err: err}
			}
			for _, match := range matches {
				if err := ev.importFile(match, file, el); err != nil {
					return err
				}
			}
			continue
		}

		if err := ev.importFile(path, file, el); err != nil {
			return err
		}
	}
	return nil
}

// importFile evaluates the property pass of an imported file. Files already imported are skipped.
func (ev *evaluation) importFile(path, from string, at *element) error {
	path = filepath.Clean(path)
	key := NormalizePath(path)
	if ev.imported[key] {
		ev.evaluator.logger.Verbose("Skipping duplicate import {ImportPath} in {ProjectPath}", path, from)
		return nil
	}

	if info, err := os.Stat(path); err != nil || info.IsDir() {
		if ev.settings.IgnoreMissingImports {
			ev.evaluator.logger.Debug("Skipping missing import {ImportPath} in {ProjectPath}", path, from)
			return nil
		}
		return &EvaluationError{
			Code:    CodeImportNotFound,
			File:    from,
			Line:    at.Line,
			Column:  at.Column,
			Message: fmt.Sprintf("The imported project %q was not found. Confirm that the expression in the Import declaration is correct, and that the file exists on disk.", path),
		}
	}

	root, err := ev.evaluator.context.load(ev.ctx, path)
	if err != nil {
		if errors.Is(err, errEmptyFile) && ev.settings.IgnoreEmptyImports {
			return nil
		}
		if ev.settings.IgnoreInvalidImports {
			ev.evaluator.logger.Debug("Skipping invalid import {ImportPath}: {Error}", path, err)
			return nil
		}
		invalid := &EvaluationError{Code: CodeImportInvalid, File: path, Message: "The imported project file could not be loaded. " + err.Error(), Err: err}
		var perr *parseError
		if errors.As(err, &perr) {
			invalid.Line, invalid.Column = perr.Line, perr.Column
			invalid.Message = "The imported project file could not be loaded. " + perr.Msg
		}
		return invalid
	}
	if !strings.EqualFold(root.Name, "Project") {
		if ev.settings.IgnoreInvalidImports {
			return nil
		}
		return &EvaluationError{
			Code:    CodeImportInvalid,
			File:    path,
			Line:    root.Line,
			Column:  root.Column,
			Message: fmt.Sprintf("The imported project file could not be loaded. Unexpected root element <%s>.", root.Name),
		}
	}

	ev.imported[key] = true
	ev.imports = append(ev.imports, path)
	return ev.processChildren(root.Children, path)
}

// evaluateItemGroup runs the item pass over one ItemGroup.
func (ev *evaluation) evaluateItemGroup(group deferredItemGroup) error {
	items := ev.itemsOf
	ok, err := ev.condition(group.el, group.file, items)
	if err != nil || !ok {
		return err
	}

	for _, el := range group.el.Children {
		ok, err := ev.condition(el, group.file, items)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}

		itemType := strings.ToLower(el.Name)
		if remove, ok := el.Attr("Remove"); ok {
			ev.removeItems(itemType, ev.expandItemSpec(remove, group.file))
			continue
		}
		if update, ok := el.Attr("Update"); ok {
			ev.updateItems(itemType, ev.expandItemSpec(update, group.file), el, group.file)
			continue
		}

		include, _ := el.Attr("Include")
		exclude, _ := el.Attr("Exclude")
		excluded := make(map[string]bool)
		for _, spec := range ev.expandItemSpec(exclude, group.file) {
			excluded[itemKey(spec)] = true
		}

		for _, spec := range ev.expandItemSpec(include, group.file) {
			if excluded[itemKey(spec)] {
				continue
			}
			item := Item{ItemType: el.Name, EvaluatedInclude: spec, projectDir: ev.projectDir}
			item.Metadata = ev.itemMetadata(el, item, group.file)
			ev.items[itemType] = append(ev.items[itemType], item)
		}
	}
	return nil
}

func (ev *evaluation) itemsOf(itemType string) []Item {
	return ev.items[strings.ToLower(itemType)]
}

// expandItemSpec expands properties, item references and wildcards in an
// Include/Exclude/Remove/Update value.
func (ev *evaluation) expandItemSpec(value, file string) []string {
	expanded := expandItems(ev.expand(value, file), ev.itemsOf)

	var out []string
	for _, spec := range SplitList(expanded) {
		if !strings.ContainsAny(spec, "*?") {
			out = append(out, spec)
			continue
		}

		pattern := ToSystemPath(spec)
		relative := !filepath.IsAbs(pattern)
		if relative {
			pattern = filepath.Join(ev.projectDir, pattern)
		}
		matches, err := globFiles(pattern)
		if err != nil {
			ev.evaluator.logger.Debug("Ignoring invalid wildcard {Pattern}: {Error}", spec, err)
			continue
		}
		for _, match := range matches {
			if relative {
				if rel, err := filepath.Rel(ev.projectDir, match); err == nil {
					match = rel
				}
			}
			out = append(out, match)
		}
	}
	return out
}

func (ev *evaluation) itemMetadata(el *element, item Item, file string) map[string]string {
	var metadata map[string]string
	set := func(name, value string) {
		if metadata == nil {
			metadata = make(map[string]string)
		}
		metadata[name] = value
		item.Metadata = metadata
	}

	for _, attr := range el.Attrs {
		switch strings.ToLower(attr.Name.Local) {
		case "include", "exclude", "remove", "update", "condition", "keepmetadata", "removemetadata", "keepduplicates", "matchonmetadata", "matchonmetadataoptions":
			continue
		}
		if attr.Name.Space == "xmlns" || attr.Name.Local == "xmlns" {
			continue
		}
		set(attr.Name.Local, expandMetadata(ev.expand(attr.Value, file), item))
	}

	for _, child := range el.Children {
		ok, err := ev.condition(child, file, ev.itemsOf)
		if err != nil || !ok {
			continue
		}
		set(child.Name, expandMetadata(ev.expand(child.Text, file), item))
	}
	return metadata
}

func (ev *evaluation) removeItems(itemType string, specs []string) {
	existing := ev.items[itemType]
	if len(existing) == 0 || len(specs) == 0 {
		return
	}
	kept := existing[:0]
	for _, item := range existing {
		if !matchesAny(item.EvaluatedInclude, specs) {
			kept = append(kept, item)
		}
	}
	ev.items[itemType] = kept
}

func (ev *evaluation) updateItems(itemType string, specs []string, el *element, file string) {
	for i, item := range ev.items[itemType] {
		if !matchesAny(item.EvaluatedInclude, specs) {
			continue
		}
		updates := ev.itemMetadata(el, item, file)
		if len(updates) == 0 {
			continue
		}
		merged := make(map[string]string, len(item.Metadata)+len(updates))
		for k, v := range item.Metadata {
			merged[k] = v
		}
		for k, v := range updates {
			merged[k] = v
		}
		ev.items[itemType][i].Metadata = merged
	}
}

func matchesAny(include string, specs []string) bool {
	key := itemKey(include)
	for _, spec := range specs {
		if itemKey(spec) == key {
			return true
		}
	}
	return false
}

// itemKey normalizes an item specification for comparisons.
func itemKey(spec string) string {
	return strings.ToLower(filepath.Clean(ToSystemPath(strings.TrimSpace(spec))))
}
