// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package typeinfo tracks heuristically inferred variable types.
//
// The tracker is an aid for method-call resolution, not a type checker: it
// records assignment-based observations (variable = new ClassName(...)) and
// answers "what class did this variable most recently hold" queries. No
// flow-sensitive analysis across function boundaries is attempted, and
// conflicting observations are resolved by last write wins.
package typeinfo

import (
	"sort"

	"github.com/kodiak-analysis/kodiak/ast"
)

// DiscoveryScope is the visibility of a type discovery.
type DiscoveryScope string

// Discovery scopes.
const (
	// ScopeLocal marks discoveries visible only within the enclosing
	// function.
	ScopeLocal DiscoveryScope = "local"

	// ScopeFile marks discoveries visible across the file (module-level
	// assignments).
	ScopeFile DiscoveryScope = "file"
)

// Discovery records that a variable was observed holding an instance of a
// named class at a point in the source.
type Discovery struct {
	// Variable is the observed variable name.
	Variable string

	// Class is the inferred class name.
	Class string

	// Scope is the discovery's visibility.
	Scope DiscoveryScope

	// File is the file the assignment appears in.
	File ast.FilePath

	// Location is the assignment site.
	Location ast.Location

	// Function is the enclosing function scope for local discoveries.
	// Empty for file-scope discoveries.
	Function ast.ScopeID
}

// ScopeWalker resolves a scope to its chain of enclosing scopes,
// innermost first. *index.SymbolIndex satisfies this.
type ScopeWalker interface {
	ScopeChain(scope ast.ScopeID) []ast.ScopeID
}

// Collect converts one file's assignment facts into discoveries.
//
// Description:
//
//	An assignment inside a function scope becomes a local discovery bound
//	to that function; an assignment at module, class, or global level
//	becomes a file-scope discovery. The scope walk uses the file's scope
//	tree, so assignments inside nested blocks attach to the right
//	function.
//
// Inputs:
//
//	facts - The file's facts. Nil yields nil.
//	scopes - Scope chain walker for the same file, typically the file's
//	         SymbolIndex. Nil treats every assignment as file scope.
//
// Outputs:
//
//	[]Discovery - Discoveries in source order.
func Collect(facts *ast.FileFacts, scopes ScopeWalker) []Discovery {
	if facts == nil || len(facts.Assignments) == 0 {
		return nil
	}

	out := make([]Discovery, 0, len(facts.Assignments))
	for _, a := range facts.Assignments {
		if a.Variable == "" || a.ClassName == "" {
			continue
		}

		d := Discovery{
			Variable: a.Variable,
			Class:    a.ClassName,
			Scope:    ScopeFile,
			File:     facts.File,
			Location: a.Location,
		}

		if scopes != nil {
			if fn, ok := enclosingFunction(scopes, a.Scope); ok {
				d.Scope = ScopeLocal
				d.Function = fn
			}
		}

		out = append(out, d)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Location.Before(out[j].Location) })
	return out
}

// enclosingFunction walks the scope chain for the nearest function scope.
func enclosingFunction(scopes ScopeWalker, from ast.ScopeID) (ast.ScopeID, bool) {
	for _, id := range scopes.ScopeChain(from) {
		s, err := ast.ParseScopeID(id)
		if err != nil {
			continue
		}
		if s.Kind == ast.ScopeKindFunction {
			return id, true
		}
	}
	return "", false
}

// trackerKey identifies a variable within a file.
type trackerKey struct {
	file     ast.FilePath
	variable string
}

// Tracker answers variable-type queries over a completed set of
// discoveries.
//
// Thread Safety: Immutable after NewTracker; safe for concurrent readers.
type Tracker struct {
	byKey map[trackerKey][]Discovery
}

// NewTracker builds a tracker from discoveries. The input slices are
// copied; later mutation of the arguments does not affect the tracker.
func NewTracker(discoveries ...[]Discovery) *Tracker {
	t := &Tracker{byKey: make(map[trackerKey][]Discovery)}
	for _, batch := range discoveries {
		for _, d := range batch {
			key := trackerKey{file: d.File, variable: d.Variable}
			t.byKey[key] = append(t.byKey[key], d)
		}
	}
	for key := range t.byKey {
		list := t.byKey[key]
		sort.Slice(list, func(i, j int) bool { return list[i].Location.Before(list[j].Location) })
	}
	return t
}

// TypeOf returns the class most recently observed for a variable at or
// before the given location.
//
// Description:
//
//	Implements the lookup policy for method dispatch: local discoveries
//	whose function scope appears in the usage's scope chain take
//	precedence over file-scope discoveries; within the same scope class,
//	the most recent assignment in source order wins. Local discoveries
//	from other functions are never visible.
//
// Inputs:
//
//	variable - The receiver variable name.
//	file - The file the usage appears in.
//	at - The usage location; discoveries after it are ignored.
//	chain - The usage's scope chain (innermost first), used to decide
//	        which local discoveries are visible. May be nil.
//
// Outputs:
//
//	string - The inferred class name.
//	bool - False if nothing was observed for the variable.
func (t *Tracker) TypeOf(variable string, file ast.FilePath, at ast.Location, chain []ast.ScopeID) (string, bool) {
	list := t.byKey[trackerKey{file: file, variable: variable}]
	if len(list) == 0 {
		return "", false
	}

	visible := make(map[ast.ScopeID]bool, len(chain))
	for _, id := range chain {
		visible[id] = true
	}

	bestLocal, bestFile := "", ""
	for _, d := range list {
		if d.Location.Before(at) || d.Location == at {
			switch d.Scope {
			case ScopeLocal:
				if visible[d.Function] {
					bestLocal = d.Class
				}
			case ScopeFile:
				bestFile = d.Class
			}
		}
	}

	if bestLocal != "" {
		return bestLocal, true
	}
	if bestFile != "" {
		return bestFile, true
	}
	return "", false
}

// Len returns the number of tracked (file, variable) pairs.
func (t *Tracker) Len() int { return len(t.byKey) }
