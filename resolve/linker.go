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
	"fmt"
	"log/slog"

	"github.com/kodiak-analysis/kodiak/ast"
	"github.com/kodiak-analysis/kodiak/index"
)

// maxReExportHops bounds re-export chain following. Real codebases rarely
// exceed two or three hops; the bound guards against cyclic re-exports.
const maxReExportHops = 10

// Link is one entry of the import/export lookup table: a local name in an
// importing file bound to a definition in its source file.
//
// Thread Safety: Immutable after construction.
type Link struct {
	// SourceFile is the file that ultimately defines the binding, after
	// following any re-export chain.
	SourceFile ast.FilePath

	// ExportedName is the name the definition is exported under in
	// SourceFile.
	ExportedName string

	// Symbol is the bound definition's symbol ID in SourceFile.
	Symbol ast.SymbolID

	// Definition is the bound definition.
	Definition ast.Definition

	// Renamed marks bindings whose local name differs from the exported
	// name (aliased imports or renamed exports anywhere on the chain).
	Renamed bool

	// TypeOnly marks type-only import bindings.
	TypeOnly bool

	// ReExportHops counts re-export links followed to reach SourceFile.
	// Zero for a direct export.
	ReExportHops int
}

// Direct reports whether the link resolves at high confidence: neither
// renamed nor type-only. Re-export hops alone do not weaken a link.
func (l Link) Direct() bool {
	return !l.Renamed && !l.TypeOnly
}

// linkKey identifies a local name within an importing file.
type linkKey struct {
	file  ast.FilePath
	local string
}

// ImportLinker is the cross-file lookup table mapping (importing file,
// local name) to the external definition the name is bound to.
//
// Description:
//
//	Built once per run, after every per-file index is available; this is
//	the synchronization point of the pipeline (§ concurrency model). An
//	import that cannot be linked degrades resolution confidence later; it
//	never fails the build, so unresolvable imports surface as warnings.
//
// Thread Safety: Immutable after BuildLinker; safe for concurrent readers.
type ImportLinker struct {
	links map[linkKey]Link
	errs  []ast.AnalysisError
}

// BuildLinker constructs the import/export table for a corpus.
//
// Inputs:
//
//	corpus - The completed per-file indexes. Must not be nil.
//	facts - The same files' facts, supplying import/export records. Files
//	        absent from the corpus (excluded or failed) are skipped.
//	logger - Diagnostic logger. Nil falls back to slog.Default().
//
// Outputs:
//
//	*ImportLinker - The completed table; unresolved imports are recorded
//	as import_resolution warnings, not errors.
func BuildLinker(corpus *index.Corpus, facts []*ast.FileFacts, logger *slog.Logger) *ImportLinker {
	if logger == nil {
		logger = slog.Default()
	}

	linker := &ImportLinker{links: make(map[linkKey]Link)}
	if corpus == nil {
		return linker
	}

	exportsByFile := make(map[ast.FilePath][]ast.Export, len(facts))
	for _, f := range facts {
		if f == nil {
			continue
		}
		exportsByFile[f.File] = f.Exports
	}

	for _, f := range facts {
		if f == nil {
			continue
		}
		if _, ok := corpus.File(f.File); !ok {
			continue
		}

		for _, imp := range f.Imports {
			if imp.LocalName == "" || imp.SourcePath == "" {
				continue
			}

			link, err := followExport(corpus, exportsByFile, imp)
			if err != nil {
				loc := imp.Location
				linker.errs = append(linker.errs, ast.AnalysisError{
					Message:  fmt.Sprintf("import %q in %s: %v", imp.LocalName, f.File, err),
					Location: &loc,
					Phase:    ast.PhaseImportResolution,
					Severity: ast.SeverityWarning,
				})
				logger.Debug("import not linked",
					slog.String("file", string(f.File)),
					slog.String("local_name", imp.LocalName),
					slog.String("source", string(imp.SourcePath)),
				)
				continue
			}

			linker.links[linkKey{file: f.File, local: imp.LocalName}] = link
		}
	}

	return linker
}

// followExport resolves one import to its defining file, walking renamed
// exports and re-export chains.
func followExport(corpus *index.Corpus, exportsByFile map[ast.FilePath][]ast.Export, imp ast.Import) (Link, error) {
	file := imp.SourcePath
	name := imp.ResolvedName()
	renamed := imp.Renamed()
	hops := 0

	for {
		exp, ok := findExport(exportsByFile[file], name, imp.IsDefault && hops == 0)
		if !ok {
			return Link{}, fmt.Errorf("no export %q in %s", name, file)
		}

		if exp.ExportedName != "" && exp.ExportedName != exp.LocalName {
			renamed = true
		}

		if exp.IsReExport && exp.SourcePath != "" {
			hops++
			if hops > maxReExportHops {
				return Link{}, fmt.Errorf("re-export chain exceeds %d hops", maxReExportHops)
			}
			file = exp.SourcePath
			name = exp.LocalName
			continue
		}

		idx, ok := corpus.File(file)
		if !ok {
			return Link{}, fmt.Errorf("source file %s is not in the corpus", file)
		}

		ids := idx.LookupName(exp.LocalName, idx.GlobalScopeID())
		if len(ids) == 0 {
			return Link{}, fmt.Errorf("export %q has no file-level definition in %s", exp.LocalName, file)
		}

		def, _ := idx.Definition(ids[0])
		return Link{
			SourceFile:   file,
			ExportedName: exp.VisibleName(),
			Symbol:       ids[0],
			Definition:   def,
			Renamed:      renamed,
			TypeOnly:     imp.IsTypeOnly,
			ReExportHops: hops,
		}, nil
	}
}

// findExport locates an export by its visible name. Default imports match
// the default export regardless of name.
func findExport(exports []ast.Export, name string, wantDefault bool) (ast.Export, bool) {
	for _, e := range exports {
		if wantDefault && e.IsDefault {
			return e, true
		}
		if e.VisibleName() == name {
			return e, true
		}
	}
	return ast.Export{}, false
}

// Lookup returns the link for a local name in an importing file.
func (l *ImportLinker) Lookup(file ast.FilePath, localName string) (Link, bool) {
	link, ok := l.links[linkKey{file: file, local: localName}]
	return link, ok
}

// Len returns the number of linked imports.
func (l *ImportLinker) Len() int { return len(l.links) }

// Errors returns the diagnostics collected while linking.
func (l *ImportLinker) Errors() []ast.AnalysisError {
	out := make([]ast.AnalysisError, len(l.errs))
	copy(out, l.errs)
	return out
}
