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
	"testing"
)

func newAnalyzer(t *testing.T, g *Graph, maxDepth int) *Analyzer {
	t.Helper()
	a, err := NewAnalyzer(g, maxDepth, nil)
	if err != nil {
		t.Fatalf("NewAnalyzer: %v", err)
	}
	return a
}

func pathOf(chain CallChain) []string {
	out := make([]string, len(chain.Path))
	for i, id := range chain.Path {
		out[i] = string(id)
	}
	return out
}

func TestChains_LinearPath(t *testing.T) {
	g := New()
	a := mustAdd(t, g, fnDef("a", 1, true))
	b := mustAdd(t, g, fnDef("b", 10, false))
	c := mustAdd(t, g, fnDef("c", 20, false))
	if err := g.AddEdge(a, b, callAt(2)); err != nil {
		t.Fatal(err)
	}
	if err := g.AddEdge(b, c, callAt(11)); err != nil {
		t.Fatal(err)
	}
	if err := g.Freeze(); err != nil {
		t.Fatal(err)
	}

	result := newAnalyzer(t, g, 0).Analyze()
	if len(result.Chains) != 1 {
		t.Fatalf("got %d chains, want 1", len(result.Chains))
	}

	chain := result.Chains[0]
	if chain.Entry != a {
		t.Errorf("Entry = %s, want a", chain.Entry)
	}
	if len(chain.Nodes) != 3 || chain.MaxDepth != 2 {
		t.Fatalf("chain = %v (max depth %d), want a->b->c at depth 2", pathOf(chain), chain.MaxDepth)
	}
	if chain.HasRecursion {
		t.Error("linear chain must not be flagged recursive")
	}
	if chain.Nodes[0].Site != nil {
		t.Error("the entry node has no originating call site")
	}
	if chain.Nodes[1].Site == nil || chain.Nodes[1].Site.Line != 2 {
		t.Error("node b must carry the a->b call site")
	}
	if result.MaxDepth != 2 || result.TotalCalls != 2 {
		t.Errorf("result max depth %d total calls %d, want 2 and 2", result.MaxDepth, result.TotalCalls)
	}
}

func TestChains_SelfRecursion(t *testing.T) {
	g := New()
	f := mustAdd(t, g, fnDef("f", 1, true))
	if err := g.AddEdge(f, f, callAt(2)); err != nil {
		t.Fatal(err)
	}
	if err := g.Freeze(); err != nil {
		t.Fatal(err)
	}

	result := newAnalyzer(t, g, 0).Analyze()
	if len(result.Chains) != 1 {
		t.Fatalf("got %d chains, want 1", len(result.Chains))
	}

	chain := result.Chains[0]
	if !chain.HasRecursion {
		t.Fatal("self call must flag recursion")
	}
	if len(chain.Nodes) != 2 || chain.MaxDepth != 1 {
		t.Fatalf("chain depth = %d with %d nodes, want depth 1 with 2 nodes", chain.MaxDepth, len(chain.Nodes))
	}
	if !chain.Nodes[1].Recursive {
		t.Error("the terminating node must be marked recursive")
	}
	if len(result.RecursiveChains) != 1 {
		t.Errorf("RecursiveChains = %d, want 1", len(result.RecursiveChains))
	}
}

func TestChains_MutualRecursionStopsAtSecondOccurrence(t *testing.T) {
	g := New()
	a := mustAdd(t, g, fnDef("a", 1, false))
	b := mustAdd(t, g, fnDef("b", 10, false))
	if err := g.AddEdge(a, b, callAt(2)); err != nil {
		t.Fatal(err)
	}
	if err := g.AddEdge(b, a, callAt(11)); err != nil {
		t.Fatal(err)
	}
	if err := g.Freeze(a); err != nil {
		t.Fatal(err)
	}

	result := newAnalyzer(t, g, 0).Analyze()
	if len(result.Chains) != 1 {
		t.Fatalf("got %d chains, want 1", len(result.Chains))
	}

	chain := result.Chains[0]
	if !chain.HasRecursion {
		t.Fatal("a->b->a must flag recursion")
	}
	if len(chain.Path) != 3 || chain.Path[0] != a || chain.Path[1] != b || chain.Path[2] != a {
		t.Fatalf("path = %v, want [a b a]", pathOf(chain))
	}
}

func TestChains_SiblingOrderFollowsCallSites(t *testing.T) {
	g := New()
	a := mustAdd(t, g, fnDef("a", 1, true))
	b := mustAdd(t, g, fnDef("b", 10, false))
	c := mustAdd(t, g, fnDef("c", 20, false))

	// c is called first in source order even though its edge is added last.
	if err := g.AddEdge(a, b, callAt(4)); err != nil {
		t.Fatal(err)
	}
	if err := g.AddEdge(a, c, callAt(2)); err != nil {
		t.Fatal(err)
	}
	if err := g.Freeze(); err != nil {
		t.Fatal(err)
	}

	result := newAnalyzer(t, g, 0).Analyze()
	if len(result.Chains) != 2 {
		t.Fatalf("got %d chains, want 2", len(result.Chains))
	}
	if result.Chains[0].Path[1] != c {
		t.Errorf("first chain visits %s, want c (earlier call site)", result.Chains[0].Path[1])
	}
	if result.Chains[1].Path[1] != b {
		t.Errorf("second chain visits %s, want b", result.Chains[1].Path[1])
	}
}

func TestChains_DepthLimit(t *testing.T) {
	g := New()
	a := mustAdd(t, g, fnDef("a", 1, true))
	b := mustAdd(t, g, fnDef("b", 10, false))
	c := mustAdd(t, g, fnDef("c", 20, false))
	d := mustAdd(t, g, fnDef("d", 30, false))
	if err := g.AddEdge(a, b, callAt(2)); err != nil {
		t.Fatal(err)
	}
	if err := g.AddEdge(b, c, callAt(11)); err != nil {
		t.Fatal(err)
	}
	if err := g.AddEdge(c, d, callAt(21)); err != nil {
		t.Fatal(err)
	}
	if err := g.Freeze(); err != nil {
		t.Fatal(err)
	}

	result := newAnalyzer(t, g, 2).Analyze()
	if len(result.Chains) != 1 {
		t.Fatalf("got %d chains, want 1", len(result.Chains))
	}
	chain := result.Chains[0]
	if chain.MaxDepth != 2 {
		t.Errorf("MaxDepth = %d, want traversal cut at the configured limit 2", chain.MaxDepth)
	}
	if chain.Path[len(chain.Path)-1] != c {
		t.Errorf("chain ends at %s, want c (d is beyond the limit)", chain.Path[len(chain.Path)-1])
	}
}

func TestChains_NoEntryPoints(t *testing.T) {
	g := New()
	a := mustAdd(t, g, fnDef("a", 1, false))
	b := mustAdd(t, g, fnDef("b", 10, false))
	if err := g.AddEdge(a, b, callAt(2)); err != nil {
		t.Fatal(err)
	}
	if err := g.AddEdge(b, a, callAt(11)); err != nil {
		t.Fatal(err)
	}
	if err := g.Freeze(); err != nil {
		t.Fatal(err)
	}

	result := newAnalyzer(t, g, 0).Analyze()
	if len(result.Chains) != 0 {
		t.Fatalf("got %d chains, want none without entry points", len(result.Chains))
	}
	if result.TotalCalls != 2 {
		t.Errorf("TotalCalls = %d, want 2 regardless of chains", result.TotalCalls)
	}
}

func TestNewAnalyzer_RequiresFrozenGraph(t *testing.T) {
	if _, err := NewAnalyzer(New(), 0, nil); err == nil {
		t.Fatal("expected an error for a mutable graph")
	}
}
