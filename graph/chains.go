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
	"fmt"
	"log/slog"

	"github.com/kodiak-analysis/kodiak/ast"
)

// ChainNode is one step of a call chain.
type ChainNode struct {
	// Symbol is the callable at this step.
	Symbol ast.SymbolID `json:"symbol"`

	// Location is the callable's definition site.
	Location ast.Location `json:"location"`

	// Depth is the 0-based distance from the chain's entry point.
	Depth int `json:"depth"`

	// Recursive marks the terminating node of a recursive branch: the
	// symbol already appeared earlier on the traversal stack.
	Recursive bool `json:"recursive,omitempty"`

	// Site is the call site that reached this node. Nil for the entry
	// point.
	Site *ast.Location `json:"site,omitempty"`
}

// CallChain is one execution path from an entry point to a leaf, a
// recursion point, or the depth limit.
type CallChain struct {
	// Entry is the chain's entry point symbol.
	Entry ast.SymbolID `json:"entry"`

	// Nodes is the ordered sequence of steps, entry point first.
	Nodes []ChainNode `json:"nodes"`

	// Path is the linear sequence of symbol IDs forming the execution
	// path, including a trailing recursive occurrence.
	Path []ast.SymbolID `json:"path"`

	// MaxDepth is the depth of the chain's deepest node.
	MaxDepth int `json:"max_depth"`

	// HasRecursion marks chains terminated by a cycle.
	HasRecursion bool `json:"has_recursion,omitempty"`
}

// ChainAnalysisResult aggregates every chain found in one traversal run.
type ChainAnalysisResult struct {
	// Chains lists every produced chain, grouped by entry point in entry
	// point order.
	Chains []CallChain `json:"chains"`

	// Graph is the graph the chains were produced from.
	Graph *Graph `json:"-"`

	// RecursiveChains is the subset of Chains with HasRecursion set.
	RecursiveChains []CallChain `json:"recursive_chains,omitempty"`

	// MaxDepth is the maximum depth reached across all chains.
	MaxDepth int `json:"max_depth"`

	// TotalCalls is the sum of every edge count in the graph, independent
	// of which edges appear on a chain.
	TotalCalls int `json:"total_calls"`
}

// Analyzer enumerates call chains over a frozen graph.
//
// Description:
//
//	Traversal is iterative with an explicit stack, so the bound on chain
//	depth comes from configuration rather than the call stack. A branch
//	stops at a leaf, at a symbol already on the traversal stack (flagged
//	recursive), or at the configured depth limit. Sibling edges are
//	visited in call-site source order, so output is deterministic.
//
// Thread Safety: Safe for concurrent use; traversal state is per call.
type Analyzer struct {
	graph    *Graph
	maxDepth int
	logger   *slog.Logger
}

// NewAnalyzer builds an analyzer over a frozen graph.
//
// Inputs:
//
//	g - The graph. Must be frozen.
//	maxDepth - Maximum node depth to traverse. Values below 1 fall back
//	           to DefaultMaxChainDepth.
//	logger - Diagnostic logger. Nil falls back to slog.Default().
//
// Outputs:
//
//	*Analyzer - The analyzer.
//	error - ErrNotFrozen when the graph is still mutable.
func NewAnalyzer(g *Graph, maxDepth int, logger *slog.Logger) (*Analyzer, error) {
	if g == nil || !g.Frozen() {
		return nil, fmt.Errorf("chain analysis needs a frozen graph: %w", ErrNotFrozen)
	}
	if maxDepth < 1 {
		maxDepth = DefaultMaxChainDepth
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{graph: g, maxDepth: maxDepth, logger: logger}, nil
}

// Analyze enumerates chains from every entry point.
func (a *Analyzer) Analyze() *ChainAnalysisResult {
	result := &ChainAnalysisResult{
		Graph:      a.graph,
		TotalCalls: a.graph.TotalCalls(),
	}

	for _, entry := range a.graph.EntryPoints() {
		for _, chain := range a.ChainsFrom(entry) {
			result.Chains = append(result.Chains, chain)
			if chain.HasRecursion {
				result.RecursiveChains = append(result.RecursiveChains, chain)
			}
			if chain.MaxDepth > result.MaxDepth {
				result.MaxDepth = chain.MaxDepth
			}
		}
	}

	a.logger.Debug("call chain analysis complete",
		slog.Int("entry_points", len(a.graph.EntryPoints())),
		slog.Int("chains", len(result.Chains)),
		slog.Int("recursive", len(result.RecursiveChains)),
		slog.Int("max_depth", result.MaxDepth),
	)
	return result
}

// frame is one level of the explicit traversal stack.
type frame struct {
	id    ast.SymbolID
	edges []CallEdge
	next  int
	site  *ast.Location

	// expandable is false for leaves and depth-limited nodes; such frames
	// were emitted when pushed and pop without descending.
	expandable bool
}

// ChainsFrom enumerates every chain rooted at one symbol.
func (a *Analyzer) ChainsFrom(entry ast.SymbolID) []CallChain {
	if _, ok := a.graph.Node(entry); !ok {
		return nil
	}

	var chains []CallChain
	onStack := make(map[ast.SymbolID]bool)
	stack := make([]frame, 0, a.maxDepth+1)

	push := func(id ast.SymbolID, site *ast.Location) {
		edges := a.graph.OutEdges(id)
		depth := len(stack)
		f := frame{
			id:         id,
			edges:      edges,
			site:       site,
			expandable: len(edges) > 0 && depth < a.maxDepth,
		}
		stack = append(stack, f)
		onStack[id] = true
		if !f.expandable {
			chains = append(chains, a.emit(stack, nil, nil))
		}
	}

	push(entry, nil)
	for len(stack) > 0 {
		top := &stack[len(stack)-1]

		if !top.expandable || top.next >= len(top.edges) {
			onStack[top.id] = false
			stack = stack[:len(stack)-1]
			continue
		}

		e := top.edges[top.next]
		top.next++

		if onStack[e.To] {
			// The branch cycles; record it and stop here instead of
			// looping.
			site := e.Site
			chains = append(chains, a.emit(stack, &e.To, &site))
			continue
		}

		site := e.Site
		push(e.To, &site)
	}

	return chains
}

// emit snapshots the traversal stack into a chain, optionally appending a
// recursive terminating node.
func (a *Analyzer) emit(stack []frame, recursive *ast.SymbolID, recursiveSite *ast.Location) CallChain {
	chain := CallChain{
		Entry: stack[0].id,
		Nodes: make([]ChainNode, 0, len(stack)+1),
		Path:  make([]ast.SymbolID, 0, len(stack)+1),
	}

	for depth, f := range stack {
		node, _ := a.graph.Node(f.id)
		chain.Nodes = append(chain.Nodes, ChainNode{
			Symbol:   f.id,
			Location: node.Location,
			Depth:    depth,
			Site:     f.site,
		})
		chain.Path = append(chain.Path, f.id)
	}

	if recursive != nil {
		node, _ := a.graph.Node(*recursive)
		chain.Nodes = append(chain.Nodes, ChainNode{
			Symbol:    *recursive,
			Location:  node.Location,
			Depth:     len(stack),
			Recursive: true,
			Site:      recursiveSite,
		})
		chain.Path = append(chain.Path, *recursive)
		chain.HasRecursion = true
	}

	chain.MaxDepth = len(chain.Nodes) - 1
	return chain
}
