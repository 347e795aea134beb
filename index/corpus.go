// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package index

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sort"
	"sync"

	"github.com/gobwas/glob"
	"golang.org/x/sync/errgroup"

	"github.com/kodiak-analysis/kodiak/ast"
)

// CorpusOptions configures corpus construction.
type CorpusOptions struct {
	// Workers bounds the number of files indexed in parallel.
	// Default: runtime.NumCPU().
	Workers int

	// Exclude lists glob patterns; files matching any pattern are skipped
	// before indexing. Patterns use '/' as the path separator.
	Exclude []string

	// Logger receives diagnostic output. Default: slog.Default().
	Logger *slog.Logger

	// Index holds per-file index options forwarded to Build.
	Index []Option
}

// CorpusOption is a functional option for configuring corpus construction.
type CorpusOption func(*CorpusOptions)

// WithWorkers bounds the number of files indexed in parallel.
func WithWorkers(n int) CorpusOption {
	return func(o *CorpusOptions) {
		o.Workers = n
	}
}

// WithExclude adds glob patterns for files to skip.
func WithExclude(patterns ...string) CorpusOption {
	return func(o *CorpusOptions) {
		o.Exclude = append(o.Exclude, patterns...)
	}
}

// WithCorpusLogger sets the logger used during construction.
func WithCorpusLogger(logger *slog.Logger) CorpusOption {
	return func(o *CorpusOptions) {
		o.Logger = logger
	}
}

// WithIndexOptions forwards per-file index options to Build.
func WithIndexOptions(opts ...Option) CorpusOption {
	return func(o *CorpusOptions) {
		o.Index = append(o.Index, opts...)
	}
}

// Corpus is the completed collection of per-file symbol indexes.
//
// Description:
//
//	Per-file indexing is embarrassingly parallel; the corpus is the
//	synchronization point. Every cross-file step (import linkage, graph
//	construction) takes a completed Corpus as input, never a partially
//	built one, so nothing downstream ever observes concurrent mutation.
//
// Thread Safety: Immutable after BuildCorpus; safe for concurrent readers.
type Corpus struct {
	files map[ast.FilePath]*SymbolIndex
	order []ast.FilePath
	errs  []ast.AnalysisError
}

// BuildCorpus indexes every file's facts, in parallel, into a Corpus.
//
// Description:
//
//	Runs Build for each FileFacts on a bounded worker pool. Each worker
//	produces an independently owned, immutable index; the corpus is
//	assembled only after every worker finishes. Files matching an exclude
//	pattern are skipped. Per-file failures (nil facts, symbol limits)
//	become diagnostics rather than failing the run.
//
// Inputs:
//
//	ctx - Context for cancellation, checked between files.
//	facts - One entry per file. Nil entries produce a diagnostic.
//	opts - Optional configuration.
//
// Outputs:
//
//	*Corpus - The completed, immutable corpus.
//	error - Non-nil only for invalid configuration or context cancellation.
func BuildCorpus(ctx context.Context, facts []*ast.FileFacts, opts ...CorpusOption) (*Corpus, error) {
	options := CorpusOptions{
		Workers: runtime.NumCPU(),
		Logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(&options)
	}
	if options.Workers <= 0 {
		options.Workers = runtime.NumCPU()
	}
	if options.Logger == nil {
		options.Logger = slog.Default()
	}

	excludes := make([]glob.Glob, 0, len(options.Exclude))
	for _, pattern := range options.Exclude {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, fmt.Errorf("compiling exclude pattern %q: %w", pattern, err)
		}
		excludes = append(excludes, g)
	}

	corpus := &Corpus{files: make(map[ast.FilePath]*SymbolIndex, len(facts))}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(options.Workers)

	for i, f := range facts {
		if f == nil {
			corpus.errs = append(corpus.errs, ast.AnalysisError{
				Message:  fmt.Sprintf("nil facts at position %d", i),
				Phase:    ast.PhaseParsing,
				Severity: ast.SeverityWarning,
			})
			continue
		}
		if excluded(excludes, f.File) {
			options.Logger.Debug("file excluded from analysis",
				slog.String("file", string(f.File)),
			)
			continue
		}

		f := f
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			idx, err := Build(f, options.Index...)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				corpus.errs = append(corpus.errs, ast.AnalysisError{
					Message:  fmt.Sprintf("indexing %s: %v", f.File, err),
					Phase:    ast.PhaseScopeAnalysis,
					Severity: ast.SeverityError,
				})
				return nil
			}
			if _, dup := corpus.files[f.File]; dup {
				corpus.errs = append(corpus.errs, ast.AnalysisError{
					Message:  fmt.Sprintf("duplicate facts for %s; keeping the first", f.File),
					Phase:    ast.PhaseParsing,
					Severity: ast.SeverityWarning,
				})
				return nil
			}
			corpus.files[f.File] = idx
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	corpus.order = make([]ast.FilePath, 0, len(corpus.files))
	for path := range corpus.files {
		corpus.order = append(corpus.order, path)
	}
	sort.Slice(corpus.order, func(i, j int) bool { return corpus.order[i] < corpus.order[j] })

	return corpus, nil
}

func excluded(patterns []glob.Glob, file ast.FilePath) bool {
	for _, g := range patterns {
		if g.Match(string(file)) {
			return true
		}
	}
	return false
}

// File returns the index for a file path.
func (c *Corpus) File(path ast.FilePath) (*SymbolIndex, bool) {
	idx, ok := c.files[path]
	return idx, ok
}

// Files returns the indexed file paths in sorted order.
func (c *Corpus) Files() []ast.FilePath {
	out := make([]ast.FilePath, len(c.order))
	copy(out, c.order)
	return out
}

// Len returns the number of indexed files.
func (c *Corpus) Len() int { return len(c.files) }

// Errors returns corpus-level diagnostics followed by every file's
// diagnostics, in file order.
func (c *Corpus) Errors() []ast.AnalysisError {
	out := make([]ast.AnalysisError, 0, len(c.errs))
	out = append(out, c.errs...)
	for _, path := range c.order {
		out = append(out, c.files[path].Errors()...)
	}
	return out
}

// UnresolvedNames returns the union of every file's unresolved names,
// sorted and de-duplicated.
func (c *Corpus) UnresolvedNames() []string {
	set := make(map[string]bool)
	for _, idx := range c.files {
		for _, name := range idx.UnresolvedNames() {
			set[name] = true
		}
	}
	out := make([]string, 0, len(set))
	for name := range set {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
