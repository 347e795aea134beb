// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ast

// Import records one imported binding as detected by a front end.
type Import struct {
	// LocalName is the name the binding is visible as in the importing file.
	LocalName string `json:"local_name"`

	// ExternalName is the name in the source module. Empty means the
	// binding was not renamed (ExternalName == LocalName).
	ExternalName string `json:"external_name,omitempty"`

	// SourcePath is the file the binding is imported from, as resolved by
	// the front end. May point outside the analyzed corpus.
	SourcePath FilePath `json:"source_path"`

	// IsDefault marks default imports (import X from "mod").
	IsDefault bool `json:"is_default,omitempty"`

	// IsTypeOnly marks type-only imports (import type {X}).
	IsTypeOnly bool `json:"is_type_only,omitempty"`

	// Location is the import statement's source range.
	Location Location `json:"location"`
}

// ResolvedName returns the name to look up in the source module.
func (i Import) ResolvedName() string {
	if i.ExternalName != "" {
		return i.ExternalName
	}
	return i.LocalName
}

// Renamed reports whether the binding is visible under a different name
// than it was exported with.
func (i Import) Renamed() bool {
	return i.ExternalName != "" && i.ExternalName != i.LocalName
}

// Export records one exported binding as detected by a front end.
type Export struct {
	// LocalName is the name of the exported entity inside the file.
	LocalName string `json:"local_name"`

	// ExportedName is the name the entity is visible as from outside.
	// Empty means it was not renamed (ExportedName == LocalName).
	ExportedName string `json:"exported_name,omitempty"`

	// IsDefault marks default exports.
	IsDefault bool `json:"is_default,omitempty"`

	// IsReExport marks re-exports (export {X} from "mod"); SourcePath then
	// names the module the binding actually comes from.
	IsReExport bool `json:"is_re_export,omitempty"`

	// SourcePath is the origin file for re-exports. Empty otherwise.
	SourcePath FilePath `json:"source_path,omitempty"`

	// Location is the export statement's source range.
	Location Location `json:"location"`
}

// VisibleName returns the name the export is reachable under.
func (e Export) VisibleName() string {
	if e.ExportedName != "" {
		return e.ExportedName
	}
	return e.LocalName
}

// Assignment records an assignment-like fact used for type discovery:
// a variable observed to receive an instance of a named class
// (variable = new ClassName(...), or the per-language equivalent).
type Assignment struct {
	// Variable is the assigned variable name.
	Variable string `json:"variable"`

	// ClassName is the inferred class of the assigned value.
	ClassName string `json:"class_name"`

	// Scope is the innermost scope enclosing the assignment.
	Scope ScopeID `json:"scope"`

	// Location is the assignment's source range.
	Location Location `json:"location"`
}

// FileFacts is the complete set of syntactic facts a front end extracted
// from one file. It is the sole input the resolution core consumes; the
// core never reads source text.
type FileFacts struct {
	// File is the path the facts were extracted from.
	File FilePath `json:"file"`

	// LineCount is the number of lines in the file, used to anchor the
	// global scope. Zero is treated as one line.
	LineCount int `json:"line_count"`

	// Scopes lists every scope the front end detected, including the
	// global scope. Order is not significant; nesting is derived from
	// location containment.
	Scopes []Scope `json:"scopes"`

	// Definitions lists declared entities.
	Definitions []Definition `json:"definitions"`

	// References lists raw name usages.
	References []Reference `json:"references"`

	// Imports lists imported bindings.
	Imports []Import `json:"imports,omitempty"`

	// Exports lists exported bindings.
	Exports []Export `json:"exports,omitempty"`

	// Assignments lists type-discovery facts.
	Assignments []Assignment `json:"assignments,omitempty"`

	// Errors lists problems the front end encountered. Carried through to
	// the analysis diagnostics untouched.
	Errors []AnalysisError `json:"errors,omitempty"`
}
