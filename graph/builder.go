// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package graph

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/kodiak-analysis/kodiak/ast"
	"github.com/kodiak-analysis/kodiak/index"
	"github.com/kodiak-analysis/kodiak/resolve"
)

// excludedNotCallable tags calls that resolved to a non-callable target
// with no graph node to attach to.
const excludedNotCallable = "not_callable"

// ProgressPhase identifies a stage of graph construction.
type ProgressPhase string

// Build phases, in execution order.
const (
	PhaseCollectNodes ProgressPhase = "collect_nodes"
	PhaseResolveCalls ProgressPhase = "resolve_calls"
	PhaseFinalize     ProgressPhase = "finalize"
)

// BuildProgress is one progress report during graph construction.
type BuildProgress struct {
	// Phase is the current build stage.
	Phase ProgressPhase

	// File is the file being processed, when the phase walks files.
	File ast.FilePath

	// Done and Total count files within the current phase.
	Done  int
	Total int
}

// ProgressFunc receives progress reports. Called synchronously from the
// build goroutine; implementations must be fast.
type ProgressFunc func(BuildProgress)

// BuilderOptions configures graph construction.
type BuilderOptions struct {
	// Config supplies run-level settings (roots, chain depth).
	Config AnalysisConfig

	// Logger receives diagnostic output. Default: slog.Default().
	Logger *slog.Logger

	// Progress, when set, receives per-phase progress reports.
	Progress ProgressFunc

	// Roots are symbols forced into the entry point set, in addition to
	// any named in Config.Roots.
	Roots []ast.SymbolID
}

// BuilderOption is a functional option for configuring graph construction.
type BuilderOption func(*BuilderOptions)

// WithConfig sets the analysis config.
func WithConfig(config AnalysisConfig) BuilderOption {
	return func(o *BuilderOptions) {
		o.Config = config
	}
}

// WithBuildLogger sets the logger used during construction.
func WithBuildLogger(logger *slog.Logger) BuilderOption {
	return func(o *BuilderOptions) {
		o.Logger = logger
	}
}

// WithProgress sets the progress callback.
func WithProgress(fn ProgressFunc) BuilderOption {
	return func(o *BuilderOptions) {
		o.Progress = fn
	}
}

// WithRoots adds explicit entry point roots.
func WithRoots(roots ...ast.SymbolID) BuilderOption {
	return func(o *BuilderOptions) {
		o.Roots = append(o.Roots, roots...)
	}
}

// ExcludedCall is a call site left out of the graph because its target
// could not be resolved trustworthily. Retained as diagnostic data.
type ExcludedCall struct {
	// Caller is the enclosing callable, when one exists.
	Caller ast.SymbolID `json:"caller,omitempty"`

	// Name is the called name as written.
	Name string `json:"name"`

	// Receiver is the member-access receiver, if any.
	Receiver string `json:"receiver,omitempty"`

	// Site is the call site.
	Site ast.Location `json:"site"`

	// Confidence is the resolution confidence the call achieved.
	Confidence resolve.Confidence `json:"confidence"`

	// Reason is the resolution's reason tag.
	Reason string `json:"reason"`
}

// BuildStats summarizes one graph build.
type BuildStats struct {
	Files         int           `json:"files"`
	Nodes         int           `json:"nodes"`
	Edges         int           `json:"edges"`
	TotalCalls    int           `json:"total_calls"`
	EntryPoints   int           `json:"entry_points"`
	CallsResolved int           `json:"calls_resolved"`
	CallsExcluded int           `json:"calls_excluded"`
	Duration      time.Duration `json:"duration"`
}

// BuildResult is the outcome of one graph build. The run always completes:
// unresolvable calls become ExcludedCall records and diagnostics, never
// failures. Only structural defects (dangling edges) abort the build.
type BuildResult struct {
	// RunID uniquely identifies this build.
	RunID string `json:"run_id"`

	// Graph is the frozen call graph.
	Graph *Graph `json:"-"`

	// Excluded lists call sites left out of the graph.
	Excluded []ExcludedCall `json:"excluded,omitempty"`

	// Errors aggregates corpus diagnostics and build diagnostics.
	Errors []ast.AnalysisError `json:"errors,omitempty"`

	// Stats summarizes the build.
	Stats BuildStats `json:"stats"`

	// Chains holds precomputed call chains when the config asks for them.
	Chains *ChainAnalysisResult `json:"chains,omitempty"`
}

// Build materializes the call graph of a resolved corpus.
//
// Description:
//
//	Three phases. Collect: every callable definition becomes a node.
//	Resolve: every call reference is resolved through the resolver; high
//	and medium confidence targets with a node become edges, everything
//	else becomes an ExcludedCall. Finalize: the graph is frozen, entry
//	points and counts are derived, and invariants are checked fail-fast.
//
// Inputs:
//
//	ctx - Context for tracing. The build itself does no I/O.
//	corpus - The completed per-file indexes. Must not be nil.
//	resolver - The reference resolver over the same corpus.
//	opts - Optional configuration.
//
// Outputs:
//
//	*BuildResult - The completed build with its frozen graph.
//	error - Non-nil only for structural defects or invalid roots.
func Build(ctx context.Context, corpus *index.Corpus, resolver *resolve.Resolver, opts ...BuilderOption) (*BuildResult, error) {
	options := BuilderOptions{Config: DefaultAnalysisConfig()}
	for _, opt := range opts {
		opt(&options)
	}
	if options.Logger == nil {
		options.Logger = slog.Default()
	}
	if corpus == nil {
		return nil, fmt.Errorf("corpus must not be nil")
	}
	if resolver == nil {
		return nil, fmt.Errorf("resolver must not be nil")
	}

	files := corpus.Files()
	ctx, span := startBuildSpan(ctx, len(files))
	defer span.End()
	started := time.Now()

	result := &BuildResult{
		RunID: uuid.NewString(),
		Graph: New(),
	}
	result.Errors = append(result.Errors, corpus.Errors()...)

	collectNodes(corpus, files, result, options)
	resolveCalls(corpus, files, resolver, result, options)

	if err := finalize(corpus, result, options); err != nil {
		return nil, err
	}

	result.Stats.Files = len(files)
	result.Stats.Duration = time.Since(started)
	setBuildSpanResult(span, result.Stats)
	recordBuildMetrics(ctx, result.Stats, result.Stats.Duration.Seconds())

	options.Logger.Info("call graph built",
		slog.String("run_id", result.RunID),
		slog.Int("files", result.Stats.Files),
		slog.Int("nodes", result.Stats.Nodes),
		slog.Int("edges", result.Stats.Edges),
		slog.Int("calls_excluded", result.Stats.CallsExcluded),
		slog.Duration("duration", result.Stats.Duration),
	)
	return result, nil
}

// collectNodes registers every callable definition as a graph node.
func collectNodes(corpus *index.Corpus, files []ast.FilePath, result *BuildResult, options BuilderOptions) {
	for i, file := range files {
		report(options.Progress, BuildProgress{Phase: PhaseCollectNodes, File: file, Done: i, Total: len(files)})

		idx, _ := corpus.File(file)
		for _, def := range idx.Definitions() {
			if !def.Kind.Callable() {
				continue
			}
			if err := result.Graph.AddNode(def, file); err != nil {
				loc := def.Location
				result.Errors = append(result.Errors, ast.AnalysisError{
					Message:  fmt.Sprintf("registering %q: %v", def.Name, err),
					Location: &loc,
					Phase:    ast.PhaseCallGraph,
					Severity: ast.SeverityWarning,
				})
			}
		}
	}
}

// resolveCalls turns call references into edges or exclusion records.
func resolveCalls(corpus *index.Corpus, files []ast.FilePath, resolver *resolve.Resolver, result *BuildResult, options BuilderOptions) {
	for i, file := range files {
		report(options.Progress, BuildProgress{Phase: PhaseResolveCalls, File: file, Done: i, Total: len(files)})

		idx, _ := corpus.File(file)
		for _, ref := range idx.References() {
			if ref.Kind != ast.UsageKindCall {
				continue
			}

			caller, ok := idx.EnclosingCallable(ref.Location)
			if !ok {
				// Module-level call. There is no calling function to anchor
				// an edge on; the import linkage already accounts for the
				// dependency.
				loc := ref.Location
				result.Errors = append(result.Errors, ast.AnalysisError{
					Message:  fmt.Sprintf("call to %q outside any function", ref.Name),
					Location: &loc,
					Phase:    ast.PhaseCallGraph,
					Severity: ast.SeverityInfo,
				})
				continue
			}

			res := resolver.Resolve(file, ref)
			sym, resolved := res.Value()

			if !resolved || !res.AtLeast(resolve.ConfidenceMedium) {
				exclude(result, caller.ID(), ref, res.Confidence(), res.Reason())
				continue
			}

			if _, isNode := result.Graph.Node(sym.ID); !isNode {
				exclude(result, caller.ID(), ref, res.Confidence(), excludedNotCallable)
				continue
			}

			if err := result.Graph.AddEdge(caller.ID(), sym.ID, ref.Location); err != nil {
				loc := ref.Location
				result.Errors = append(result.Errors, ast.AnalysisError{
					Message:  fmt.Sprintf("adding edge for call to %q: %v", ref.Name, err),
					Location: &loc,
					Phase:    ast.PhaseCallGraph,
					Severity: ast.SeverityError,
				})
				continue
			}
			result.Stats.CallsResolved++
		}
	}
}

// exclude records a call site that did not produce an edge.
func exclude(result *BuildResult, caller ast.SymbolID, ref ast.Reference, confidence resolve.Confidence, reason string) {
	result.Excluded = append(result.Excluded, ExcludedCall{
		Caller:     caller,
		Name:       ref.Name,
		Receiver:   ref.Receiver,
		Site:       ref.Location,
		Confidence: confidence,
		Reason:     reason,
	})
	result.Stats.CallsExcluded++
}

// finalize freezes the graph and checks structural invariants.
func finalize(corpus *index.Corpus, result *BuildResult, options BuilderOptions) error {
	report(options.Progress, BuildProgress{Phase: PhaseFinalize, Done: corpus.Len(), Total: corpus.Len()})

	roots := make([]ast.SymbolID, 0, len(options.Roots)+len(options.Config.Roots))
	roots = append(roots, options.Roots...)
	for _, r := range options.Config.Roots {
		roots = append(roots, ast.SymbolID(r))
	}

	if err := result.Graph.Freeze(roots...); err != nil {
		return fmt.Errorf("freezing call graph: %w", err)
	}
	if err := result.Graph.Validate(); err != nil {
		return fmt.Errorf("call graph invariant violated: %w", err)
	}

	result.Stats.Nodes = result.Graph.NodeCount()
	result.Stats.Edges = result.Graph.EdgeCount()
	result.Stats.TotalCalls = result.Graph.TotalCalls()
	result.Stats.EntryPoints = len(result.Graph.EntryPoints())
	return nil
}

func report(fn ProgressFunc, p BuildProgress) {
	if fn != nil {
		fn(p)
	}
}
