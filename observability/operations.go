package observability

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	// TracerName is the tracer name for slngen operations
	TracerName = "github.com/microsoft/slngen-sub001"
)

// Common attribute keys
const (
	AttrProjectPath    = attribute.Key("msbuild.project.path")
	AttrProjectCount   = attribute.Key("msbuild.project.count")
	AttrLoaderMode     = attribute.Key("slngen.loader.mode")
	AttrSolutionPath   = attribute.Key("slngen.solution.path")
	AttrFolderCount    = attribute.Key("slngen.solution.folders")
	AttrOperation      = attribute.Key("slngen.operation")
	AttrImportPath     = attribute.Key("msbuild.import.path")
	AttrImportCacheHit = attribute.Key("msbuild.import.cache_hit")
)

// StartGenerateSpan starts the span covering one solution generation run
func StartGenerateSpan(ctx context.Context, entryCount int) (context.Context, trace.Span) {
	return StartSpan(ctx, TracerName, "solution.generate",
		trace.WithAttributes(
			attribute.Int("slngen.entry.count", entryCount),
			AttrOperation.String("generate"),
		),
	)
}

// StartLoadSpan starts a span for loading the project closure
func StartLoadSpan(ctx context.Context, mode string, entryCount int) (context.Context, trace.Span) {
	return StartSpan(ctx, TracerName, "project.load",
		trace.WithAttributes(
			AttrLoaderMode.String(mode),
			attribute.Int("slngen.entry.count", entryCount),
			AttrOperation.String("load"),
		),
	)
}

// StartEvaluateSpan starts a span for a single project evaluation
func StartEvaluateSpan(ctx context.Context, projectPath string) (context.Context, trace.Span) {
	return StartSpan(ctx, TracerName, "project.evaluate",
		trace.WithAttributes(
			AttrProjectPath.String(projectPath),
			AttrOperation.String("evaluate"),
		),
	)
}

// StartWriteSpan starts a span for writing a solution or solution filter file
func StartWriteSpan(ctx context.Context, solutionPath string, projectCount, folderCount int) (context.Context, trace.Span) {
	return StartSpan(ctx, TracerName, "solution.write",
		trace.WithAttributes(
			AttrSolutionPath.String(solutionPath),
			AttrProjectCount.Int(projectCount),
			AttrFolderCount.Int(folderCount),
			AttrOperation.String("write"),
		),
	)
}

// RecordImportCacheHit records an import cache hit/miss on the current span
func RecordImportCacheHit(ctx context.Context, importPath string, hit bool) {
	AddEvent(ctx, "import.cache", AttrImportPath.String(importPath), AttrImportCacheHit.Bool(hit))
}

// EndSpanWithError ends a span with an error status
func EndSpanWithError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
