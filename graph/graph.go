// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package graph materializes and analyzes the call graph of an indexed
// corpus: construction from resolved call usages, entry point detection,
// and call chain enumeration.
package graph

import (
	"errors"
	"fmt"
	"sort"

	"github.com/kodiak-analysis/kodiak/ast"
)

// Graph construction errors. An edge referencing an unknown node is a
// programming defect and fails fast rather than producing a silently
// incomplete graph.
var (
	ErrFrozen        = errors.New("graph is frozen")
	ErrNotFrozen     = errors.New("graph is not frozen yet")
	ErrUnknownNode   = errors.New("edge endpoint is not a known node")
	ErrDuplicateNode = errors.New("node already exists")
)

// FunctionNode is one callable in the call graph.
type FunctionNode struct {
	// Symbol is the callable's symbol ID.
	Symbol ast.SymbolID `json:"symbol"`

	// Name is the callable's declared name.
	Name string `json:"name"`

	// Qualifier is the owning class for methods and constructors.
	Qualifier string `json:"qualifier,omitempty"`

	// Location is the declaring source range.
	Location ast.Location `json:"location"`

	// File is the declaring file.
	File ast.FilePath `json:"file"`

	// Exported marks callables visible outside their file.
	Exported bool `json:"exported,omitempty"`

	// EntryPoint marks callables used as traversal roots. Derived during
	// Freeze.
	EntryPoint bool `json:"entry_point,omitempty"`

	// CallsOut is the total outgoing call count, with multiplicity.
	// Derived during Freeze.
	CallsOut int `json:"calls_out"`

	// CallsIn is the total incoming call count, with multiplicity.
	// Derived during Freeze.
	CallsIn int `json:"calls_in"`
}

// CallEdge is the aggregate of every call from one callable to another.
// Multiple call sites between the same ordered pair collapse into a single
// edge; Site keeps the first occurrence in source order.
type CallEdge struct {
	// From is the calling symbol.
	From ast.SymbolID `json:"from"`

	// To is the called symbol. May equal From for recursive calls.
	To ast.SymbolID `json:"to"`

	// Site is the first call site in source order.
	Site ast.Location `json:"site"`

	// Count is the number of call sites aggregated into this edge.
	Count int `json:"count"`
}

// edgeKey identifies an ordered caller/callee pair.
type edgeKey struct {
	from ast.SymbolID
	to   ast.SymbolID
}

// Graph is the call graph of an analyzed corpus.
//
// Description:
//
//	Built in two phases: AddNode/AddEdge while mutable, then Freeze, which
//	derives per-node counts and entry points and seals the graph. Every
//	mutation after Freeze fails with ErrFrozen. Derived data (counts,
//	entry points, traversal order) is only available on a frozen graph.
//
// Thread Safety: Not safe for concurrent mutation. Immutable and safe for
// concurrent readers once frozen.
type Graph struct {
	nodes map[ast.SymbolID]*FunctionNode
	edges map[edgeKey]*CallEdge

	// nodeOrder and edgeOrder are derived during Freeze: nodes by symbol
	// ID, edges by first call site in source order.
	nodeOrder []ast.SymbolID
	edgeOrder []edgeKey

	// out maps each node to its outgoing edges sorted by call site.
	out map[ast.SymbolID][]edgeKey

	entryPoints []ast.SymbolID
	frozen      bool
}

// New returns an empty, mutable graph.
func New() *Graph {
	return &Graph{
		nodes: make(map[ast.SymbolID]*FunctionNode),
		edges: make(map[edgeKey]*CallEdge),
		out:   make(map[ast.SymbolID][]edgeKey),
	}
}

// AddNode registers a callable definition as a graph node.
//
// Inputs:
//
//	def - The definition. Must be of a callable kind.
//	file - The file the definition lives in.
//
// Outputs:
//
//	error - ErrFrozen after Freeze, ErrDuplicateNode for a repeated symbol,
//	or a validation error for non-callable kinds.
func (g *Graph) AddNode(def ast.Definition, file ast.FilePath) error {
	if g.frozen {
		return ErrFrozen
	}
	if !def.Kind.Callable() {
		return fmt.Errorf("definition %q has kind %s, want a callable", def.Name, def.Kind)
	}

	id := def.ID()
	if _, exists := g.nodes[id]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateNode, id)
	}

	g.nodes[id] = &FunctionNode{
		Symbol:    id,
		Name:      def.Name,
		Qualifier: def.Qualifier,
		Location:  def.Location,
		File:      file,
		Exported:  def.Exported,
	}
	return nil
}

// AddEdge records one call site from one node to another.
//
// Description:
//
//	The first call between a pair creates the edge; further calls
//	increment its count. The retained site is the earliest in source
//	order, regardless of insertion order. Self edges are valid and
//	represent direct recursion.
//
// Outputs:
//
//	error - ErrFrozen after Freeze, or ErrUnknownNode when either endpoint
//	was never added. Unknown endpoints are a defect in the caller, not a
//	recoverable input condition.
func (g *Graph) AddEdge(from, to ast.SymbolID, site ast.Location) error {
	if g.frozen {
		return ErrFrozen
	}
	if _, ok := g.nodes[from]; !ok {
		return fmt.Errorf("%w: from %s", ErrUnknownNode, from)
	}
	if _, ok := g.nodes[to]; !ok {
		return fmt.Errorf("%w: to %s", ErrUnknownNode, to)
	}

	key := edgeKey{from: from, to: to}
	if e, exists := g.edges[key]; exists {
		e.Count++
		if site.Before(e.Site) {
			e.Site = site
		}
		return nil
	}

	g.edges[key] = &CallEdge{From: from, To: to, Site: site, Count: 1}
	return nil
}

// Freeze seals the graph: derives per-node call counts, computes entry
// points, and fixes deterministic node and edge orders.
//
// Description:
//
//	Entry points are the exported callables that receive no incoming calls
//	from other nodes, plus every explicitly designated root. A recursive
//	self call does not disqualify a node: f calling only itself is still
//	externally reachable. An empty entry point list is a valid outcome.
//
// Inputs:
//
//	roots - Symbols to force into the entry point set. Unknown roots
//	        return ErrUnknownNode.
func (g *Graph) Freeze(roots ...ast.SymbolID) error {
	if g.frozen {
		return ErrFrozen
	}
	for _, r := range roots {
		if _, ok := g.nodes[r]; !ok {
			return fmt.Errorf("%w: root %s", ErrUnknownNode, r)
		}
	}

	inFromOthers := make(map[ast.SymbolID]int, len(g.nodes))
	for key, e := range g.edges {
		g.nodes[key.from].CallsOut += e.Count
		g.nodes[key.to].CallsIn += e.Count
		if key.from != key.to {
			inFromOthers[key.to] += e.Count
		}
		g.out[key.from] = append(g.out[key.from], key)
	}

	rootSet := make(map[ast.SymbolID]bool, len(roots))
	for _, r := range roots {
		rootSet[r] = true
	}
	for id, n := range g.nodes {
		if rootSet[id] || (n.Exported && inFromOthers[id] == 0) {
			n.EntryPoint = true
			g.entryPoints = append(g.entryPoints, id)
		}
	}
	sort.Slice(g.entryPoints, func(i, j int) bool { return g.entryPoints[i] < g.entryPoints[j] })

	g.nodeOrder = make([]ast.SymbolID, 0, len(g.nodes))
	for id := range g.nodes {
		g.nodeOrder = append(g.nodeOrder, id)
	}
	sort.Slice(g.nodeOrder, func(i, j int) bool { return g.nodeOrder[i] < g.nodeOrder[j] })

	g.edgeOrder = make([]edgeKey, 0, len(g.edges))
	for key := range g.edges {
		g.edgeOrder = append(g.edgeOrder, key)
	}
	sort.Slice(g.edgeOrder, func(i, j int) bool {
		a, b := g.edges[g.edgeOrder[i]], g.edges[g.edgeOrder[j]]
		if a.Site != b.Site {
			return a.Site.Before(b.Site)
		}
		if a.From != b.From {
			return a.From < b.From
		}
		return a.To < b.To
	})

	for id := range g.out {
		keys := g.out[id]
		sort.Slice(keys, func(i, j int) bool {
			a, b := g.edges[keys[i]], g.edges[keys[j]]
			if a.Site != b.Site {
				return a.Site.Before(b.Site)
			}
			return a.To < b.To
		})
	}

	g.frozen = true
	return nil
}

// Frozen reports whether the graph has been sealed.
func (g *Graph) Frozen() bool { return g.frozen }

// Node returns a node by symbol ID.
func (g *Graph) Node(id ast.SymbolID) (FunctionNode, bool) {
	n, ok := g.nodes[id]
	if !ok {
		return FunctionNode{}, false
	}
	return *n, true
}

// Nodes returns every node ordered by symbol ID. Valid only on a frozen
// graph.
func (g *Graph) Nodes() []FunctionNode {
	out := make([]FunctionNode, 0, len(g.nodeOrder))
	for _, id := range g.nodeOrder {
		out = append(out, *g.nodes[id])
	}
	return out
}

// Edges returns every edge ordered by first call site. Valid only on a
// frozen graph.
func (g *Graph) Edges() []CallEdge {
	out := make([]CallEdge, 0, len(g.edgeOrder))
	for _, key := range g.edgeOrder {
		out = append(out, *g.edges[key])
	}
	return out
}

// OutEdges returns a node's outgoing edges in call-site source order.
// Valid only on a frozen graph.
func (g *Graph) OutEdges(id ast.SymbolID) []CallEdge {
	keys := g.out[id]
	out := make([]CallEdge, 0, len(keys))
	for _, key := range keys {
		out = append(out, *g.edges[key])
	}
	return out
}

// EntryPoints returns the entry point symbols in sorted order. Valid only
// on a frozen graph.
func (g *Graph) EntryPoints() []ast.SymbolID {
	out := make([]ast.SymbolID, len(g.entryPoints))
	copy(out, g.entryPoints)
	return out
}

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// EdgeCount returns the number of distinct edges.
func (g *Graph) EdgeCount() int { return len(g.edges) }

// TotalCalls returns the sum of every edge's count.
func (g *Graph) TotalCalls() int {
	total := 0
	for _, e := range g.edges {
		total += e.Count
	}
	return total
}

// Validate checks structural invariants on a frozen graph: no dangling
// edge endpoints, and every node's derived counts matching its edge
// multiplicities.
func (g *Graph) Validate() error {
	if !g.frozen {
		return ErrNotFrozen
	}

	in := make(map[ast.SymbolID]int, len(g.nodes))
	out := make(map[ast.SymbolID]int, len(g.nodes))
	for key, e := range g.edges {
		if _, ok := g.nodes[key.from]; !ok {
			return fmt.Errorf("%w: dangling edge source %s", ErrUnknownNode, key.from)
		}
		if _, ok := g.nodes[key.to]; !ok {
			return fmt.Errorf("%w: dangling edge target %s", ErrUnknownNode, key.to)
		}
		out[key.from] += e.Count
		in[key.to] += e.Count
	}

	for id, n := range g.nodes {
		if n.CallsOut != out[id] || n.CallsIn != in[id] {
			return fmt.Errorf("node %s counts (out=%d in=%d) disagree with edges (out=%d in=%d)",
				id, n.CallsOut, n.CallsIn, out[id], in[id])
		}
	}
	return nil
}
