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

// SymbolID uniquely identifies a declared entity within an analysis run.
//
// IDs are derived from the qualifying scope and the declared name, so they
// are stable across a single run and never collide with plain names.
type SymbolID string

// SymbolIDFor derives the SymbolID for a name declared in the given scope.
func SymbolIDFor(scope ScopeID, name string) SymbolID {
	return SymbolID(string(scope) + "#" + name)
}

// SymbolKind categorizes what a definition declares.
type SymbolKind string

// Symbol kinds produced by the parsing front ends.
const (
	SymbolKindVariable    SymbolKind = "variable"
	SymbolKindFunction    SymbolKind = "function"
	SymbolKindClass       SymbolKind = "class"
	SymbolKindMethod      SymbolKind = "method"
	SymbolKindConstructor SymbolKind = "constructor"
	SymbolKindProperty    SymbolKind = "property"
	SymbolKindParameter   SymbolKind = "parameter"
	SymbolKindType        SymbolKind = "type"
	SymbolKindInterface   SymbolKind = "interface"
	SymbolKindEnum        SymbolKind = "enum"
	SymbolKindImport      SymbolKind = "import"
	SymbolKindExport      SymbolKind = "export"
	SymbolKindNamespace   SymbolKind = "namespace"
	SymbolKindModule      SymbolKind = "module"
	SymbolKindGlobal      SymbolKind = "global"
)

// Callable reports whether the kind can appear as a call graph node.
func (k SymbolKind) Callable() bool {
	return k == SymbolKindFunction || k == SymbolKindMethod || k == SymbolKindConstructor
}

// TypeLike reports whether the kind declares a type.
func (k SymbolKind) TypeLike() bool {
	switch k {
	case SymbolKindClass, SymbolKindType, SymbolKindInterface, SymbolKindEnum:
		return true
	}
	return false
}

// Definition is a declared entity as reported by a parsing front end.
type Definition struct {
	// Name is the declared identifier.
	Name string `json:"name"`

	// Qualifier is the owning class or namespace, if any. Methods and
	// properties carry their class name here.
	Qualifier string `json:"qualifier,omitempty"`

	// Kind categorizes the declaration.
	Kind SymbolKind `json:"kind"`

	// Location is the declaring source range.
	Location Location `json:"location"`

	// Scope is the scope the name is declared in.
	Scope ScopeID `json:"scope"`

	// Exported marks definitions visible outside their file.
	Exported bool `json:"exported,omitempty"`

	// Extends names the parent class for class-like definitions, if the
	// front end detected one. Empty otherwise.
	Extends string `json:"extends,omitempty"`
}

// ID returns the definition's SymbolID, derived from its scope and name.
func (d Definition) ID() SymbolID {
	return SymbolIDFor(d.Scope, d.Name)
}

// UsageKind categorizes how a name is used at a reference site.
type UsageKind string

// Usage kinds produced by the parsing front ends.
const (
	UsageKindCall          UsageKind = "call"
	UsageKindReference     UsageKind = "reference"
	UsageKindImport        UsageKind = "import"
	UsageKindTypeReference UsageKind = "type_reference"
)

// Reference is a raw usage of a name, before resolution.
type Reference struct {
	// Name is the referenced identifier. For member access this is the
	// member name, with the receiver expression in Receiver.
	Name string `json:"name"`

	// Kind is how the name is used.
	Kind UsageKind `json:"kind"`

	// Location is the reference site.
	Location Location `json:"location"`

	// Scope is the innermost scope enclosing the reference.
	Scope ScopeID `json:"scope"`

	// Receiver is the object expression for member access ("obj" in
	// obj.member). Empty for plain references.
	Receiver string `json:"receiver,omitempty"`

	// IsMemberAccess marks obj.member style references.
	IsMemberAccess bool `json:"is_member_access,omitempty"`
}

// SymbolUsage records that a known symbol was used at a location.
// Produced by the symbol index once a reference's name matched a
// definition visible from the reference's scope.
type SymbolUsage struct {
	// Symbol is the referenced symbol.
	Symbol SymbolID `json:"symbol"`

	// Kind is how the symbol was used.
	Kind UsageKind `json:"kind"`

	// Location is the usage site.
	Location Location `json:"location"`
}
