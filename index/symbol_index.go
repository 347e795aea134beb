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
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/kodiak-analysis/kodiak/ast"
)

// Default configuration values.
const (
	// DefaultMaxSymbols is the default maximum number of definitions a
	// single file index can hold.
	DefaultMaxSymbols = 1_000_000
)

// ErrMaxSymbolsExceeded is returned when a file declares more symbols
// than the configured limit.
var ErrMaxSymbolsExceeded = errors.New("maximum symbol count exceeded")

// Options configures SymbolIndex construction.
type Options struct {
	// MaxSymbols is the maximum number of definitions the index can hold.
	// Default: 1,000,000.
	MaxSymbols int

	// Logger receives diagnostic output. Default: slog.Default().
	Logger *slog.Logger
}

// DefaultOptions returns the default options.
func DefaultOptions() Options {
	return Options{
		MaxSymbols: DefaultMaxSymbols,
		Logger:     slog.Default(),
	}
}

// Option is a functional option for configuring SymbolIndex construction.
type Option func(*Options)

// WithMaxSymbols sets the maximum number of definitions the index can hold.
func WithMaxSymbols(max int) Option {
	return func(o *Options) {
		o.MaxSymbols = max
	}
}

// WithLogger sets the logger used during construction.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}

// IndexStats contains statistics about a symbol index.
type IndexStats struct {
	// TotalSymbols is the number of definitions in the index.
	TotalSymbols int

	// ByKind maps each SymbolKind to the count of definitions of that kind.
	ByKind map[ast.SymbolKind]int

	// UnresolvedNames is the number of distinct names that matched no
	// visible definition.
	UnresolvedNames int
}

// SymbolIndex is the per-file catalog of declared and referenced names.
//
// Description:
//
//	Built once from a front end's FileFacts and immutable afterwards: every
//	accessor returns copies or read-only views, and nothing mutates the
//	index after Build returns. Safe to share across goroutines without
//	locking.
//
//	The index maintains several maps for the resolver's access patterns:
//	  - defs:    SymbolID → Definition (primary)
//	  - usages:  SymbolID → usages recorded against it
//	  - scopeOf: SymbolID → declaring scope
//	  - byScope: scope → name → declared SymbolIDs, for scope-chain walks
//
// Thread Safety: Immutable after Build; safe for concurrent readers.
type SymbolIndex struct {
	file   ast.FilePath
	global ast.ScopeID

	defs    map[ast.SymbolID]ast.Definition
	usages  map[ast.SymbolID][]ast.SymbolUsage
	scopeOf map[ast.SymbolID]ast.ScopeID
	byName  map[string][]ast.SymbolID
	byScope map[ast.ScopeID]map[string][]ast.SymbolID

	// parent maps each scope to its enclosing scope. The global scope has
	// no entry.
	parent map[ast.ScopeID]ast.ScopeID

	unresolved []string
	refs       []ast.Reference
	errs       []ast.AnalysisError
}

// Build constructs a SymbolIndex from one file's facts.
//
// Description:
//
//	Derives the scope tree from location containment, registers every
//	definition under its declaring scope, and matches every reference
//	against the definitions visible from its scope. Reference names that
//	match no definition in any visible scope are recorded as unresolved;
//	that is diagnostic input, not an error.
//
// Inputs:
//
//	facts - One file's parsed facts. Must not be nil.
//	opts - Optional configuration.
//
// Outputs:
//
//	*SymbolIndex - The immutable index.
//	error - Non-nil for nil facts, an empty file path, or exceeding the
//	        symbol limit. Scope irregularities become diagnostics instead.
func Build(facts *ast.FileFacts, opts ...Option) (*SymbolIndex, error) {
	if facts == nil {
		return nil, fmt.Errorf("facts must not be nil")
	}
	if facts.File == "" {
		return nil, fmt.Errorf("facts file path must not be empty")
	}

	options := DefaultOptions()
	for _, opt := range opts {
		opt(&options)
	}
	if options.Logger == nil {
		options.Logger = slog.Default()
	}

	if len(facts.Definitions) > options.MaxSymbols {
		return nil, fmt.Errorf("%w: %d definitions in %s (limit %d)",
			ErrMaxSymbolsExceeded, len(facts.Definitions), facts.File, options.MaxSymbols)
	}

	idx := &SymbolIndex{
		file:    facts.File,
		defs:    make(map[ast.SymbolID]ast.Definition, len(facts.Definitions)),
		usages:  make(map[ast.SymbolID][]ast.SymbolUsage),
		scopeOf: make(map[ast.SymbolID]ast.ScopeID, len(facts.Definitions)),
		byName:  make(map[string][]ast.SymbolID),
		byScope: make(map[ast.ScopeID]map[string][]ast.SymbolID),
		parent:  make(map[ast.ScopeID]ast.ScopeID),
	}
	idx.errs = append(idx.errs, facts.Errors...)

	idx.buildScopeTree(facts, options.Logger)
	idx.registerDefinitions(facts)
	idx.matchReferences(facts)
	idx.finalize()

	return idx, nil
}

// buildScopeTree derives parent links from scope location containment.
// The global scope is synthesized when the front end did not emit one.
func (x *SymbolIndex) buildScopeTree(facts *ast.FileFacts, logger *slog.Logger) {
	scopes := make([]ast.Scope, 0, len(facts.Scopes)+1)
	haveGlobal := false
	for _, s := range facts.Scopes {
		if s.Kind == ast.ScopeKindGlobal {
			haveGlobal = true
		}
		scopes = append(scopes, s)
	}
	if !haveGlobal {
		scopes = append(scopes, ast.GlobalScope(facts.File, facts.LineCount))
	}

	ids := make([]ast.ScopeID, len(scopes))
	for i, s := range scopes {
		ids[i] = s.ID()
		if s.Kind == ast.ScopeKindGlobal {
			x.global = ids[i]
		}
	}

	for i, child := range scopes {
		if child.Kind == ast.ScopeKindGlobal {
			continue
		}

		// The parent is the tightest scope strictly containing the child:
		// start from any container and narrow whenever a candidate sits
		// inside the current best.
		bestIdx := -1
		for j, cand := range scopes {
			if j == i || ids[j] == ids[i] {
				continue
			}
			if !cand.Location.Contains(child.Location) {
				continue
			}
			if cand.Location == child.Location {
				continue
			}
			if bestIdx == -1 || scopes[bestIdx].Location.Contains(cand.Location) {
				bestIdx = j
			}
		}

		if bestIdx == -1 {
			// Orphan scope: not contained in anything, not even the global
			// scope. Record the violation and reparent under global.
			loc := child.Location
			x.errs = append(x.errs, ast.AnalysisError{
				Message:  fmt.Sprintf("scope %q (%s) is not contained in any enclosing scope", child.Name, child.Kind),
				Location: &loc,
				Phase:    ast.PhaseScopeAnalysis,
				Severity: ast.SeverityWarning,
			})
			logger.Warn("orphan scope reparented under global",
				slog.String("file", string(facts.File)),
				slog.String("kind", string(child.Kind)),
				slog.String("name", child.Name),
			)
			x.parent[ids[i]] = x.global
			continue
		}

		x.parent[ids[i]] = ids[bestIdx]
	}
}

// registerDefinitions indexes every definition under its declaring scope.
func (x *SymbolIndex) registerDefinitions(facts *ast.FileFacts) {
	for _, d := range facts.Definitions {
		id := d.ID()
		if _, dup := x.defs[id]; dup {
			loc := d.Location
			x.errs = append(x.errs, ast.AnalysisError{
				Message:  fmt.Sprintf("duplicate definition of %q in the same scope", d.Name),
				Location: &loc,
				Phase:    ast.PhaseScopeAnalysis,
				Severity: ast.SeverityWarning,
			})
			continue
		}

		x.defs[id] = d
		x.scopeOf[id] = d.Scope
		x.byName[d.Name] = append(x.byName[d.Name], id)

		names := x.byScope[d.Scope]
		if names == nil {
			names = make(map[string][]ast.SymbolID)
			x.byScope[d.Scope] = names
		}
		names[d.Name] = append(names[d.Name], id)
	}
}

// matchReferences records usages against visible definitions and collects
// unresolved names.
func (x *SymbolIndex) matchReferences(facts *ast.FileFacts) {
	seen := make(map[string]bool)

	for _, ref := range facts.References {
		x.refs = append(x.refs, ref)

		matched := false
		for _, scope := range x.ScopeChain(ref.Scope) {
			ids := x.lookupDirect(ref.Name, scope)
			if len(ids) == 0 {
				continue
			}
			matched = true
			// Record the usage against the nearest declaration in source
			// order; further candidates are the resolver's concern.
			target := ids[0]
			x.usages[target] = append(x.usages[target], ast.SymbolUsage{
				Symbol:   target,
				Kind:     ref.Kind,
				Location: ref.Location,
			})
			break
		}

		if !matched && !seen[ref.Name] {
			seen[ref.Name] = true
			x.unresolved = append(x.unresolved, ref.Name)
		}
	}
}

// finalize sorts retained slices so accessors are deterministic.
func (x *SymbolIndex) finalize() {
	sort.Strings(x.unresolved)
	sort.Slice(x.refs, func(i, j int) bool {
		return x.refs[i].Location.Before(x.refs[j].Location)
	})
	for name := range x.byName {
		x.sortByLocation(x.byName[name])
	}
	for _, names := range x.byScope {
		for name := range names {
			x.sortByLocation(names[name])
		}
	}
	for id := range x.usages {
		u := x.usages[id]
		sort.Slice(u, func(i, j int) bool { return u[i].Location.Before(u[j].Location) })
	}
}

func (x *SymbolIndex) sortByLocation(ids []ast.SymbolID) {
	sort.Slice(ids, func(i, j int) bool {
		return x.defs[ids[i]].Location.Before(x.defs[ids[j]].Location)
	})
}

// lookupDirect returns definitions named name declared directly in scope,
// in source order.
func (x *SymbolIndex) lookupDirect(name string, scope ast.ScopeID) []ast.SymbolID {
	names := x.byScope[scope]
	if names == nil {
		return nil
	}
	return names[name]
}

// File returns the path this index was built from.
func (x *SymbolIndex) File() ast.FilePath { return x.file }

// GlobalScopeID returns the file's global scope identifier.
func (x *SymbolIndex) GlobalScopeID() ast.ScopeID { return x.global }

// Definition returns the definition for a symbol ID.
func (x *SymbolIndex) Definition(id ast.SymbolID) (ast.Definition, bool) {
	d, ok := x.defs[id]
	return d, ok
}

// Definitions returns all definitions in source order.
func (x *SymbolIndex) Definitions() []ast.Definition {
	out := make([]ast.Definition, 0, len(x.defs))
	for _, d := range x.defs {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Location.Before(out[j].Location) })
	return out
}

// Usages returns the recorded usages of a symbol in source order.
func (x *SymbolIndex) Usages(id ast.SymbolID) []ast.SymbolUsage {
	u := x.usages[id]
	out := make([]ast.SymbolUsage, len(u))
	copy(out, u)
	return out
}

// ScopeOf returns the scope a symbol is declared in.
func (x *SymbolIndex) ScopeOf(id ast.SymbolID) (ast.ScopeID, bool) {
	s, ok := x.scopeOf[id]
	return s, ok
}

// UnresolvedNames returns the sorted set of names that matched no visible
// definition. Input for diagnostic reporting, not an error by itself.
func (x *SymbolIndex) UnresolvedNames() []string {
	out := make([]string, len(x.unresolved))
	copy(out, x.unresolved)
	return out
}

// References returns the raw references in source order.
func (x *SymbolIndex) References() []ast.Reference {
	out := make([]ast.Reference, len(x.refs))
	copy(out, x.refs)
	return out
}

// Errors returns diagnostics collected during construction, including any
// carried over from the front end.
func (x *SymbolIndex) Errors() []ast.AnalysisError {
	out := make([]ast.AnalysisError, len(x.errs))
	copy(out, x.errs)
	return out
}

// ScopeChain returns the scope chain from the given scope outward to the
// global scope, innermost first.
//
// Description:
//
//	Walks parent links derived during Build. Unknown scopes yield a chain
//	of themselves plus the global scope, so lookups still consult
//	file-level declarations. The walk is bounded to guard against cyclic
//	parent links from malformed input.
func (x *SymbolIndex) ScopeChain(scope ast.ScopeID) []ast.ScopeID {
	const maxDepth = 256

	chain := []ast.ScopeID{scope}
	current := scope
	for i := 0; i < maxDepth; i++ {
		p, ok := x.parent[current]
		if !ok {
			break
		}
		chain = append(chain, p)
		current = p
	}

	if current != x.global && x.global != "" {
		chain = append(chain, x.global)
	}
	return chain
}

// LookupName returns definitions named name visible from scope, walking
// the scope chain outward. The result groups candidates by scope depth:
// all candidates from the nearest scope that has any, in source order.
func (x *SymbolIndex) LookupName(name string, scope ast.ScopeID) []ast.SymbolID {
	for _, s := range x.ScopeChain(scope) {
		if ids := x.lookupDirect(name, s); len(ids) > 0 {
			out := make([]ast.SymbolID, len(ids))
			copy(out, ids)
			return out
		}
	}
	return nil
}

// DefinitionsInScope returns definitions declared directly in a scope, in
// source order.
func (x *SymbolIndex) DefinitionsInScope(scope ast.ScopeID) []ast.Definition {
	names := x.byScope[scope]
	if names == nil {
		return nil
	}
	var out []ast.Definition
	for _, ids := range names {
		for _, id := range ids {
			out = append(out, x.defs[id])
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Location.Before(out[j].Location) })
	return out
}

// EnclosingCallable returns the innermost function, method, or constructor
// definition whose location contains loc.
func (x *SymbolIndex) EnclosingCallable(loc ast.Location) (ast.Definition, bool) {
	var best ast.Definition
	found := false
	for _, d := range x.defs {
		if !d.Kind.Callable() {
			continue
		}
		if !d.Location.Contains(loc) {
			continue
		}
		if !found || best.Location.Contains(d.Location) {
			best = d
			found = true
		}
	}
	return best, found
}

// MembersOf returns the method and property definitions whose Qualifier is
// the given class name, in source order.
func (x *SymbolIndex) MembersOf(className string) []ast.Definition {
	var out []ast.Definition
	for _, d := range x.defs {
		if d.Qualifier != className {
			continue
		}
		if d.Kind == ast.SymbolKindMethod || d.Kind == ast.SymbolKindProperty || d.Kind == ast.SymbolKindConstructor {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Location.Before(out[j].Location) })
	return out
}

// Stats returns summary statistics for the index.
func (x *SymbolIndex) Stats() IndexStats {
	stats := IndexStats{
		TotalSymbols:    len(x.defs),
		ByKind:          make(map[ast.SymbolKind]int),
		UnresolvedNames: len(x.unresolved),
	}
	for _, d := range x.defs {
		stats.ByKind[d.Kind]++
	}
	return stats
}
