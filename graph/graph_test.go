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
	"errors"
	"testing"

	"github.com/kodiak-analysis/kodiak/ast"
)

const graphFile = ast.FilePath("src/main.ts")

func fnDef(name string, line int, exported bool) ast.Definition {
	return ast.Definition{
		Name:     name,
		Kind:     ast.SymbolKindFunction,
		Location: ast.Location{File: graphFile, Line: line, Column: 0, EndLine: line + 4, EndColumn: 1},
		Scope:    ast.GlobalScope(graphFile, 200).ID(),
		Exported: exported,
	}
}

func callAt(line int) ast.Location {
	return ast.Location{File: graphFile, Line: line, Column: 2, EndLine: line, EndColumn: 20}
}

func mustAdd(t *testing.T, g *Graph, def ast.Definition) ast.SymbolID {
	t.Helper()
	if err := g.AddNode(def, graphFile); err != nil {
		t.Fatalf("AddNode(%s): %v", def.Name, err)
	}
	return def.ID()
}

func TestAddNode_RejectsNonCallable(t *testing.T) {
	g := New()
	def := fnDef("x", 1, false)
	def.Kind = ast.SymbolKindVariable
	if err := g.AddNode(def, graphFile); err == nil {
		t.Fatal("expected error for a non-callable definition")
	}
}

func TestAddNode_Duplicate(t *testing.T) {
	g := New()
	mustAdd(t, g, fnDef("foo", 1, false))
	if err := g.AddNode(fnDef("foo", 1, false), graphFile); !errors.Is(err, ErrDuplicateNode) {
		t.Fatalf("expected ErrDuplicateNode, got %v", err)
	}
}

func TestAddEdge_UnknownEndpointFailsFast(t *testing.T) {
	g := New()
	foo := mustAdd(t, g, fnDef("foo", 1, false))

	if err := g.AddEdge(foo, "nowhere#bar", callAt(2)); !errors.Is(err, ErrUnknownNode) {
		t.Fatalf("expected ErrUnknownNode, got %v", err)
	}
	if err := g.AddEdge("nowhere#bar", foo, callAt(2)); !errors.Is(err, ErrUnknownNode) {
		t.Fatalf("expected ErrUnknownNode, got %v", err)
	}
}

func TestAddEdge_AggregatesAndKeepsEarliestSite(t *testing.T) {
	g := New()
	foo := mustAdd(t, g, fnDef("foo", 1, false))
	bar := mustAdd(t, g, fnDef("bar", 10, false))

	// Later site inserted first; the edge must still retain the earliest.
	if err := g.AddEdge(foo, bar, callAt(4)); err != nil {
		t.Fatal(err)
	}
	if err := g.AddEdge(foo, bar, callAt(2)); err != nil {
		t.Fatal(err)
	}
	if err := g.AddEdge(foo, bar, callAt(3)); err != nil {
		t.Fatal(err)
	}
	if err := g.Freeze(); err != nil {
		t.Fatal(err)
	}

	edges := g.Edges()
	if len(edges) != 1 {
		t.Fatalf("got %d edges, want 1 aggregated edge", len(edges))
	}
	if edges[0].Count != 3 {
		t.Errorf("Count = %d, want 3", edges[0].Count)
	}
	if edges[0].Site.Line != 2 {
		t.Errorf("Site.Line = %d, want the earliest call site (2)", edges[0].Site.Line)
	}
	if g.TotalCalls() != 3 {
		t.Errorf("TotalCalls = %d, want 3", g.TotalCalls())
	}
}

func TestFreeze_DerivesCountsAndEntryPoints(t *testing.T) {
	g := New()
	main := mustAdd(t, g, fnDef("main", 1, true))
	helper := mustAdd(t, g, fnDef("helper", 10, true))
	hidden := mustAdd(t, g, fnDef("hidden", 20, false))

	if err := g.AddEdge(main, helper, callAt(2)); err != nil {
		t.Fatal(err)
	}
	if err := g.AddEdge(main, hidden, callAt(3)); err != nil {
		t.Fatal(err)
	}
	if err := g.Freeze(); err != nil {
		t.Fatal(err)
	}
	if err := g.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	n, _ := g.Node(main)
	if n.CallsOut != 2 || n.CallsIn != 0 {
		t.Errorf("main counts out=%d in=%d, want out=2 in=0", n.CallsOut, n.CallsIn)
	}
	n, _ = g.Node(helper)
	if n.CallsIn != 1 {
		t.Errorf("helper CallsIn = %d, want 1", n.CallsIn)
	}

	// main is exported and uncalled; helper is exported but called;
	// hidden is not exported.
	eps := g.EntryPoints()
	if len(eps) != 1 || eps[0] != main {
		t.Fatalf("EntryPoints = %v, want [main]", eps)
	}
}

func TestFreeze_SelfEdgeDoesNotDisqualifyEntryPoint(t *testing.T) {
	g := New()
	f := mustAdd(t, g, fnDef("f", 1, true))
	if err := g.AddEdge(f, f, callAt(2)); err != nil {
		t.Fatal(err)
	}
	if err := g.Freeze(); err != nil {
		t.Fatal(err)
	}

	eps := g.EntryPoints()
	if len(eps) != 1 || eps[0] != f {
		t.Fatalf("EntryPoints = %v, want the self-recursive f", eps)
	}
	n, _ := g.Node(f)
	if n.CallsIn != 1 || n.CallsOut != 1 {
		t.Errorf("self edge counts out=%d in=%d, want 1/1", n.CallsOut, n.CallsIn)
	}
}

func TestFreeze_ExplicitRoots(t *testing.T) {
	g := New()
	a := mustAdd(t, g, fnDef("a", 1, false))
	b := mustAdd(t, g, fnDef("b", 10, false))
	if err := g.AddEdge(b, a, callAt(11)); err != nil {
		t.Fatal(err)
	}

	if err := g.Freeze(a); err != nil {
		t.Fatal(err)
	}
	eps := g.EntryPoints()
	if len(eps) != 1 || eps[0] != a {
		t.Fatalf("EntryPoints = %v, want the designated root a", eps)
	}
}

func TestFreeze_UnknownRoot(t *testing.T) {
	g := New()
	if err := g.Freeze("nowhere#x"); !errors.Is(err, ErrUnknownNode) {
		t.Fatalf("expected ErrUnknownNode for an unknown root, got %v", err)
	}
}

func TestFrozenGraphRejectsMutation(t *testing.T) {
	g := New()
	foo := mustAdd(t, g, fnDef("foo", 1, false))
	if err := g.Freeze(); err != nil {
		t.Fatal(err)
	}

	if err := g.AddNode(fnDef("bar", 10, false), graphFile); !errors.Is(err, ErrFrozen) {
		t.Fatalf("AddNode after Freeze = %v, want ErrFrozen", err)
	}
	if err := g.AddEdge(foo, foo, callAt(2)); !errors.Is(err, ErrFrozen) {
		t.Fatalf("AddEdge after Freeze = %v, want ErrFrozen", err)
	}
	if err := g.Freeze(); !errors.Is(err, ErrFrozen) {
		t.Fatalf("second Freeze = %v, want ErrFrozen", err)
	}
}

func TestValidate_RequiresFrozen(t *testing.T) {
	g := New()
	if err := g.Validate(); !errors.Is(err, ErrNotFrozen) {
		t.Fatalf("Validate on mutable graph = %v, want ErrNotFrozen", err)
	}
}

func TestOutEdges_SourceOrder(t *testing.T) {
	g := New()
	a := mustAdd(t, g, fnDef("a", 1, true))
	b := mustAdd(t, g, fnDef("b", 10, false))
	c := mustAdd(t, g, fnDef("c", 20, false))

	// Insert out of source order.
	if err := g.AddEdge(a, c, callAt(4)); err != nil {
		t.Fatal(err)
	}
	if err := g.AddEdge(a, b, callAt(2)); err != nil {
		t.Fatal(err)
	}
	if err := g.Freeze(); err != nil {
		t.Fatal(err)
	}

	out := g.OutEdges(a)
	if len(out) != 2 {
		t.Fatalf("got %d out edges, want 2", len(out))
	}
	if out[0].To != b || out[1].To != c {
		t.Errorf("out edge order = [%s %s], want call-site order [b c]", out[0].To, out[1].To)
	}
}
