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

	"github.com/kodiak-analysis/kodiak/ast"
	"github.com/kodiak-analysis/kodiak/index"
	"github.com/kodiak-analysis/kodiak/resolve"
	"github.com/kodiak-analysis/kodiak/typeinfo"
)

// Analyze runs the full resolution pipeline over parsed facts: corpus
// indexing, type discovery, import linkage, reference resolution, graph
// construction, and optional chain enumeration.
//
// Description:
//
//	The convenience entry point for callers that do not need to hold the
//	intermediate structures. Per-file indexing runs in parallel on a
//	bounded pool; everything after the corpus completes is single
//	threaded over immutable inputs. The run always completes with a
//	best-effort graph and diagnostics; only invalid configuration or
//	structural defects fail it.
//
// Inputs:
//
//	ctx - Context for cancellation during indexing and for tracing.
//	facts - One entry per parsed file.
//	opts - Optional configuration, including the analysis config.
//
// Outputs:
//
//	*BuildResult - The completed analysis.
//	error - Non-nil for invalid configuration, cancellation, or graph
//	invariant violations.
func Analyze(ctx context.Context, facts []*ast.FileFacts, opts ...BuilderOption) (*BuildResult, error) {
	options := BuilderOptions{Config: DefaultAnalysisConfig()}
	for _, opt := range opts {
		opt(&options)
	}
	if err := options.Config.Validate(); err != nil {
		return nil, err
	}

	corpusOpts := []index.CorpusOption{
		index.WithWorkers(options.Config.Workers),
		index.WithExclude(options.Config.ExcludeFromAnalysis...),
	}
	if options.Logger != nil {
		corpusOpts = append(corpusOpts, index.WithCorpusLogger(options.Logger))
	}
	if options.Config.MaxSymbolsPerFile > 0 {
		corpusOpts = append(corpusOpts, index.WithIndexOptions(index.WithMaxSymbols(options.Config.MaxSymbolsPerFile)))
	}

	corpus, err := index.BuildCorpus(ctx, facts, corpusOpts...)
	if err != nil {
		return nil, fmt.Errorf("indexing corpus: %w", err)
	}

	var discoveries [][]typeinfo.Discovery
	for _, f := range facts {
		if f == nil {
			continue
		}
		idx, ok := corpus.File(f.File)
		if !ok {
			continue
		}
		discoveries = append(discoveries, typeinfo.Collect(f, idx))
	}
	tracker := typeinfo.NewTracker(discoveries...)

	linker := resolve.BuildLinker(corpus, facts, options.Logger)
	resolver := resolve.NewResolver(corpus, tracker, linker, options.Logger)

	result, err := Build(ctx, corpus, resolver, opts...)
	if err != nil {
		return nil, err
	}
	result.Errors = append(result.Errors, linker.Errors()...)

	if options.Config.PrecomputeChains {
		analyzer, err := NewAnalyzer(result.Graph, options.Config.MaxChainDepth, options.Logger)
		if err != nil {
			return nil, err
		}
		result.Chains = analyzer.Analyze()
	}

	return result, nil
}
