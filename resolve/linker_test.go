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
	"context"
	"testing"

	"github.com/kodiak-analysis/kodiak/ast"
	"github.com/kodiak-analysis/kodiak/index"
)

func lineAt(file ast.FilePath, line int) ast.Location {
	return ast.Location{File: file, Line: line, Column: 0, EndLine: line, EndColumn: 60}
}

// libFacts defines and exports a function "bar" plus a renamed export
// "helper as util" in src/lib.ts.
func libFacts(t *testing.T) *ast.FileFacts {
	t.Helper()
	file := ast.FilePath("src/lib.ts")
	global := ast.GlobalScope(file, 30)
	return &ast.FileFacts{
		File:      file,
		LineCount: 30,
		Definitions: []ast.Definition{
			{Name: "bar", Kind: ast.SymbolKindFunction, Location: lineAt(file, 1), Scope: global.ID(), Exported: true},
			{Name: "helper", Kind: ast.SymbolKindFunction, Location: lineAt(file, 10), Scope: global.ID(), Exported: true},
		},
		Exports: []ast.Export{
			{LocalName: "bar", Location: lineAt(file, 1)},
			{LocalName: "helper", ExportedName: "util", Location: lineAt(file, 10)},
		},
	}
}

// appFacts imports from src/lib.ts.
func appFacts(t *testing.T, imports ...ast.Import) *ast.FileFacts {
	t.Helper()
	file := ast.FilePath("src/app.ts")
	return &ast.FileFacts{
		File:      file,
		LineCount: 20,
		Imports:   imports,
	}
}

func buildTestCorpus(t *testing.T, facts ...*ast.FileFacts) *index.Corpus {
	t.Helper()
	corpus, err := index.BuildCorpus(context.Background(), facts)
	if err != nil {
		t.Fatalf("BuildCorpus: %v", err)
	}
	return corpus
}

func TestBuildLinker_DirectImport(t *testing.T) {
	lib := libFacts(t)
	app := appFacts(t, ast.Import{
		LocalName: "bar", SourcePath: "src/lib.ts", Location: lineAt("src/app.ts", 1),
	})
	corpus := buildTestCorpus(t, lib, app)

	linker := BuildLinker(corpus, []*ast.FileFacts{lib, app}, nil)
	if linker.Len() != 1 {
		t.Fatalf("linked %d imports, want 1", linker.Len())
	}

	link, ok := linker.Lookup("src/app.ts", "bar")
	if !ok {
		t.Fatal("Lookup(app, bar) missed")
	}
	if link.SourceFile != "src/lib.ts" || link.Definition.Name != "bar" {
		t.Errorf("link = %+v, want bar defined in src/lib.ts", link)
	}
	if !link.Direct() {
		t.Error("plain import must be direct")
	}
	if link.ReExportHops != 0 {
		t.Errorf("ReExportHops = %d, want 0", link.ReExportHops)
	}
}

func TestBuildLinker_RenamedExport(t *testing.T) {
	lib := libFacts(t)
	app := appFacts(t, ast.Import{
		LocalName: "util", SourcePath: "src/lib.ts", Location: lineAt("src/app.ts", 1),
	})
	corpus := buildTestCorpus(t, lib, app)

	linker := BuildLinker(corpus, []*ast.FileFacts{lib, app}, nil)
	link, ok := linker.Lookup("src/app.ts", "util")
	if !ok {
		t.Fatal("Lookup(app, util) missed")
	}
	if link.Definition.Name != "helper" {
		t.Errorf("bound definition = %q, want helper", link.Definition.Name)
	}
	if !link.Renamed || link.Direct() {
		t.Error("renamed export must degrade the link")
	}
}

func TestBuildLinker_AliasedImport(t *testing.T) {
	lib := libFacts(t)
	app := appFacts(t, ast.Import{
		LocalName: "b", ExternalName: "bar", SourcePath: "src/lib.ts",
		Location: lineAt("src/app.ts", 1),
	})
	corpus := buildTestCorpus(t, lib, app)

	linker := BuildLinker(corpus, []*ast.FileFacts{lib, app}, nil)
	link, ok := linker.Lookup("src/app.ts", "b")
	if !ok {
		t.Fatal("Lookup(app, b) missed")
	}
	if !link.Renamed {
		t.Error("aliased import must be marked renamed")
	}
	if link.Definition.Name != "bar" {
		t.Errorf("bound definition = %q, want bar", link.Definition.Name)
	}
}

func TestBuildLinker_ReExportChain(t *testing.T) {
	lib := libFacts(t)

	barrel := &ast.FileFacts{
		File:      "src/index.ts",
		LineCount: 5,
		Exports: []ast.Export{
			{LocalName: "bar", IsReExport: true, SourcePath: "src/lib.ts", Location: lineAt("src/index.ts", 1)},
		},
	}
	app := appFacts(t, ast.Import{
		LocalName: "bar", SourcePath: "src/index.ts", Location: lineAt("src/app.ts", 1),
	})
	corpus := buildTestCorpus(t, lib, barrel, app)

	linker := BuildLinker(corpus, []*ast.FileFacts{lib, barrel, app}, nil)
	link, ok := linker.Lookup("src/app.ts", "bar")
	if !ok {
		t.Fatal("Lookup through the barrel missed")
	}
	if link.SourceFile != "src/lib.ts" {
		t.Errorf("SourceFile = %q, want the defining file src/lib.ts", link.SourceFile)
	}
	if link.ReExportHops != 1 {
		t.Errorf("ReExportHops = %d, want 1", link.ReExportHops)
	}
	if !link.Direct() {
		t.Error("re-export hops alone must not degrade the link")
	}
}

func TestBuildLinker_CyclicReExportBounded(t *testing.T) {
	a := &ast.FileFacts{
		File: "src/a.ts", LineCount: 5,
		Exports: []ast.Export{
			{LocalName: "x", IsReExport: true, SourcePath: "src/b.ts", Location: lineAt("src/a.ts", 1)},
		},
	}
	b := &ast.FileFacts{
		File: "src/b.ts", LineCount: 5,
		Exports: []ast.Export{
			{LocalName: "x", IsReExport: true, SourcePath: "src/a.ts", Location: lineAt("src/b.ts", 1)},
		},
	}
	app := appFacts(t, ast.Import{
		LocalName: "x", SourcePath: "src/a.ts", Location: lineAt("src/app.ts", 1),
	})
	corpus := buildTestCorpus(t, a, b, app)

	linker := BuildLinker(corpus, []*ast.FileFacts{a, b, app}, nil)
	if linker.Len() != 0 {
		t.Fatal("cyclic re-export must not link")
	}

	errs := linker.Errors()
	if len(errs) != 1 {
		t.Fatalf("got %d diagnostics, want 1", len(errs))
	}
	if errs[0].Phase != ast.PhaseImportResolution || errs[0].Severity != ast.SeverityWarning {
		t.Errorf("diagnostic = %+v, want an import_resolution warning", errs[0])
	}
}

func TestBuildLinker_MissingExportWarns(t *testing.T) {
	lib := libFacts(t)
	app := appFacts(t, ast.Import{
		LocalName: "missing", SourcePath: "src/lib.ts", Location: lineAt("src/app.ts", 1),
	})
	corpus := buildTestCorpus(t, lib, app)

	linker := BuildLinker(corpus, []*ast.FileFacts{lib, app}, nil)
	if _, ok := linker.Lookup("src/app.ts", "missing"); ok {
		t.Fatal("missing export must not link")
	}
	if len(linker.Errors()) != 1 {
		t.Fatalf("got %d diagnostics, want 1", len(linker.Errors()))
	}
}

func TestBuildLinker_TypeOnlyImport(t *testing.T) {
	file := ast.FilePath("src/types.ts")
	global := ast.GlobalScope(file, 10)
	types := &ast.FileFacts{
		File:      file,
		LineCount: 10,
		Definitions: []ast.Definition{
			{Name: "Config", Kind: ast.SymbolKindInterface, Location: lineAt(file, 1), Scope: global.ID(), Exported: true},
		},
		Exports: []ast.Export{{LocalName: "Config", Location: lineAt(file, 1)}},
	}
	app := appFacts(t, ast.Import{
		LocalName: "Config", SourcePath: file, IsTypeOnly: true,
		Location: lineAt("src/app.ts", 1),
	})
	corpus := buildTestCorpus(t, types, app)

	linker := BuildLinker(corpus, []*ast.FileFacts{types, app}, nil)
	link, ok := linker.Lookup("src/app.ts", "Config")
	if !ok {
		t.Fatal("Lookup(app, Config) missed")
	}
	if !link.TypeOnly || link.Direct() {
		t.Error("type-only import must degrade the link")
	}
}
