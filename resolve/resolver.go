// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package resolve

import (
	"log/slog"

	"github.com/kodiak-analysis/kodiak/ast"
	"github.com/kodiak-analysis/kodiak/index"
	"github.com/kodiak-analysis/kodiak/typeinfo"
)

// maxInheritanceDepth bounds extends-chain walking during method dispatch.
const maxInheritanceDepth = 10

// ResolvedSymbol is the target a reference resolved to.
type ResolvedSymbol struct {
	// ID is the resolved symbol.
	ID ast.SymbolID `json:"id"`

	// Definition is the resolved declaration.
	Definition ast.Definition `json:"definition"`

	// File is the file the declaration lives in.
	File ast.FilePath `json:"file"`
}

// Resolver answers "which definition does this reference point at" with a
// graded confidence.
//
// Description:
//
//	Resolution tries strategies in a fixed order and returns the first
//	hit; later strategies never upgrade an earlier grade. Member access
//	goes through type discovery first (inferred, medium). Plain names walk
//	the scope chain of the reference site: an unambiguous kind-compatible
//	candidate is a high-confidence hit, ambiguity degrades to low, and
//	names bound by imports resolve through the import table. A name with
//	no candidate anywhere fails with reason "not_found".
//
// Thread Safety: Immutable after NewResolver; safe for concurrent use.
type Resolver struct {
	corpus *index.Corpus
	types  *typeinfo.Tracker
	links  *ImportLinker
	logger *slog.Logger
}

// NewResolver builds a resolver over a completed corpus.
//
// Inputs:
//
//	corpus - The per-file indexes. Must not be nil.
//	types - Variable type discoveries. Nil disables inferred dispatch.
//	links - The import/export table. Nil disables cross-file resolution.
//	logger - Diagnostic logger. Nil falls back to slog.Default().
func NewResolver(corpus *index.Corpus, types *typeinfo.Tracker, links *ImportLinker, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{corpus: corpus, types: types, links: links, logger: logger}
}

// Resolve resolves one reference occurring in the given file.
//
// Outputs:
//
//	Resolution[ResolvedSymbol] - The graded result. A failed resolution
//	still carries a reason tag; callers decide whether to record it as a
//	diagnostic.
func (r *Resolver) Resolve(file ast.FilePath, ref ast.Reference) Resolution[ResolvedSymbol] {
	idx, ok := r.corpus.File(file)
	if !ok {
		return Failed[ResolvedSymbol](ReasonNotFound)
	}

	if ref.IsMemberAccess && ref.Receiver != "" {
		if res, ok := r.resolveMember(idx, file, ref); ok {
			return res
		}
	}

	candidates := idx.LookupName(ref.Name, ref.Scope)
	compatible := make([]ast.SymbolID, 0, len(candidates))
	for _, id := range candidates {
		def, ok := idx.Definition(id)
		if ok && kindCompatible(ref.Kind, def.Kind) {
			compatible = append(compatible, id)
		}
	}

	switch {
	case len(compatible) == 1:
		def, _ := idx.Definition(compatible[0])
		return High(ResolvedSymbol{ID: compatible[0], Definition: def, File: file})

	case len(compatible) > 1:
		// Same-depth ambiguity. LookupName returns candidates in source
		// order, so the first one is the stable pick.
		def, _ := idx.Definition(compatible[0])
		r.logger.Debug("ambiguous reference",
			slog.String("file", string(file)),
			slog.String("name", ref.Name),
			slog.Int("candidates", len(compatible)),
		)
		return Low(ResolvedSymbol{ID: compatible[0], Definition: def, File: file}, ReasonPartialMatch)
	}

	if res, ok := r.resolveImport(file, ref); ok {
		return res
	}

	// A candidate existed but its kind did not fit the usage. Better a weak
	// answer than none; the grade tells the caller how much to trust it.
	if len(candidates) > 0 {
		def, _ := idx.Definition(candidates[0])
		return Low(ResolvedSymbol{ID: candidates[0], Definition: def, File: file}, ReasonPartialMatch)
	}

	return Failed[ResolvedSymbol](ReasonNotFound)
}

// resolveMember performs type-discovery based member dispatch.
//
// Description:
//
//	The receiver's class comes from either the enclosing class (this/self
//	receivers) or the type tracker. The member is searched in that class
//	and then up its extends chain, across files when a parent class lives
//	elsewhere. Hits are medium confidence with reason "inferred": the
//	receiver's type is an observation, not a proof.
func (r *Resolver) resolveMember(idx *index.SymbolIndex, file ast.FilePath, ref ast.Reference) (Resolution[ResolvedSymbol], bool) {
	className, ok := r.receiverClass(idx, file, ref)
	if !ok {
		return Resolution[ResolvedSymbol]{}, false
	}

	name := className
	seen := make(map[string]bool)
	for depth := 0; depth <= maxInheritanceDepth && name != "" && !seen[name]; depth++ {
		seen[name] = true

		classDef, classFile, found := r.findClass(name, file)
		if !found {
			return Resolution[ResolvedSymbol]{}, false
		}

		classIdx, _ := r.corpus.File(classFile)
		for _, member := range classIdx.MembersOf(name) {
			if member.Name == ref.Name && kindCompatible(ref.Kind, member.Kind) {
				return Medium(ResolvedSymbol{
					ID:         member.ID(),
					Definition: member,
					File:       classFile,
				}, ReasonInferred), true
			}
		}

		name = classDef.Extends
		file = classFile
	}

	return Resolution[ResolvedSymbol]{}, false
}

// receiverClass determines the class of a member-access receiver.
func (r *Resolver) receiverClass(idx *index.SymbolIndex, file ast.FilePath, ref ast.Reference) (string, bool) {
	if ref.Receiver == "this" || ref.Receiver == "self" {
		if def, ok := idx.EnclosingCallable(ref.Location); ok && def.Qualifier != "" {
			return def.Qualifier, true
		}
		return "", false
	}

	if r.types == nil {
		return "", false
	}
	return r.types.TypeOf(ref.Receiver, file, ref.Location, idx.ScopeChain(ref.Scope))
}

// findClass locates a class-like definition by name, preferring the file
// the lookup started in, then its imports, then the rest of the corpus in
// file order.
func (r *Resolver) findClass(name string, preferFile ast.FilePath) (ast.Definition, ast.FilePath, bool) {
	if idx, ok := r.corpus.File(preferFile); ok {
		for _, id := range idx.LookupName(name, idx.GlobalScopeID()) {
			if def, ok := idx.Definition(id); ok && def.Kind.TypeLike() {
				return def, preferFile, true
			}
		}
	}

	if r.links != nil {
		if link, ok := r.links.Lookup(preferFile, name); ok && link.Definition.Kind.TypeLike() {
			return link.Definition, link.SourceFile, true
		}
	}

	for _, path := range r.corpus.Files() {
		if path == preferFile {
			continue
		}
		idx, _ := r.corpus.File(path)
		for _, id := range idx.LookupName(name, idx.GlobalScopeID()) {
			if def, ok := idx.Definition(id); ok && def.Kind.TypeLike() {
				return def, path, true
			}
		}
	}

	return ast.Definition{}, "", false
}

// resolveImport resolves a name through the import/export table.
func (r *Resolver) resolveImport(file ast.FilePath, ref ast.Reference) (Resolution[ResolvedSymbol], bool) {
	if r.links == nil {
		return Resolution[ResolvedSymbol]{}, false
	}

	link, ok := r.links.Lookup(file, ref.Name)
	if !ok {
		return Resolution[ResolvedSymbol]{}, false
	}
	if !kindCompatible(ref.Kind, link.Definition.Kind) {
		return Resolution[ResolvedSymbol]{}, false
	}

	resolved := ResolvedSymbol{
		ID:         link.Symbol,
		Definition: link.Definition,
		File:       link.SourceFile,
	}

	switch {
	case link.TypeOnly:
		return Medium(resolved, ReasonTypeOnlyImport), true
	case link.Renamed:
		return Medium(resolved, ReasonRenamedImport), true
	default:
		return High(resolved), true
	}
}

// kindCompatible reports whether a definition of the given kind can satisfy
// a usage of the given kind.
func kindCompatible(usage ast.UsageKind, kind ast.SymbolKind) bool {
	switch usage {
	case ast.UsageKindCall:
		// Calls hit callables, constructible classes, and callable-valued
		// bindings (variables, parameters, properties, imports).
		switch {
		case kind.Callable():
			return true
		case kind == ast.SymbolKindClass,
			kind == ast.SymbolKindVariable,
			kind == ast.SymbolKindParameter,
			kind == ast.SymbolKindProperty,
			kind == ast.SymbolKindImport:
			return true
		}
		return false

	case ast.UsageKindTypeReference:
		return kind.TypeLike() || kind == ast.SymbolKindImport

	default:
		return true
	}
}
