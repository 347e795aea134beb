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

import (
	"fmt"
	"strings"
)

// ScopeKind categorizes a lexical scope.
type ScopeKind string

// Scope kinds, from widest to narrowest.
const (
	ScopeKindGlobal    ScopeKind = "global"
	ScopeKindModule    ScopeKind = "module"
	ScopeKindFunction  ScopeKind = "function"
	ScopeKindClass     ScopeKind = "class"
	ScopeKindBlock     ScopeKind = "block"
	ScopeKindParameter ScopeKind = "parameter"
	ScopeKindLocal     ScopeKind = "local"
)

// validScopeKinds is the set accepted by ParseScopeID.
var validScopeKinds = map[ScopeKind]bool{
	ScopeKindGlobal:    true,
	ScopeKindModule:    true,
	ScopeKindFunction:  true,
	ScopeKindClass:     true,
	ScopeKindBlock:     true,
	ScopeKindParameter: true,
	ScopeKindLocal:     true,
}

// ScopeID is the string encoding of a Scope, usable as a map key.
//
// The encoding is produced by Scope.ID and decoded by ParseScopeID; the
// round trip is lossless for kind, location, and name.
type ScopeID string

// scopeIDSep separates the kind, name, and location fields of a ScopeID.
// The location key is the final field and may itself contain separators
// (file paths), so decoding splits at most twice from the left.
const scopeIDSep = "|"

// Scope describes a lexical region within which names are declared.
//
// Scopes nest: a child scope's location is always contained in its
// parent's. The global scope's location spans the whole file.
type Scope struct {
	// Kind is the category of this scope.
	Kind ScopeKind `json:"kind"`

	// Location is the source range the scope covers.
	Location Location `json:"location"`

	// Name is the optional scope name (function or class name). Empty for
	// anonymous scopes such as blocks.
	Name string `json:"name,omitempty"`
}

// ID encodes the scope as a ScopeID.
//
// Description:
//
//	Produces "kind|name|locationKey". Name may be empty. The encoding is
//	lossless: ParseScopeID reproduces the same kind, location, and name.
//
// Outputs:
//
//	ScopeID - The encoded identifier.
func (s Scope) ID() ScopeID {
	return ScopeID(string(s.Kind) + scopeIDSep + s.Name + scopeIDSep + s.Location.Key())
}

// ParseScopeID decodes a ScopeID back into a Scope.
//
// Description:
//
//	Inverse of Scope.ID. The location key is taken as the remainder after
//	the second separator, so file paths containing the separator survive.
//
// Inputs:
//
//	id - The encoded scope identifier.
//
// Outputs:
//
//	Scope - The decoded scope.
//	error - Non-nil if the encoding is malformed or the kind is unknown.
func ParseScopeID(id ScopeID) (Scope, error) {
	parts := strings.SplitN(string(id), scopeIDSep, 3)
	if len(parts) != 3 {
		return Scope{}, fmt.Errorf("scope id %q: want 3 fields, got %d", id, len(parts))
	}

	kind := ScopeKind(parts[0])
	if !validScopeKinds[kind] {
		return Scope{}, fmt.Errorf("scope id %q: unknown scope kind %q", id, parts[0])
	}

	loc, err := ParseLocationKey(parts[2])
	if err != nil {
		return Scope{}, fmt.Errorf("scope id %q: %w", id, err)
	}

	return Scope{Kind: kind, Location: loc, Name: parts[1]}, nil
}

// GlobalScope returns the global scope for a file spanning the given
// number of lines. Line counts below 1 are clamped to 1.
func GlobalScope(file FilePath, lineCount int) Scope {
	if lineCount < 1 {
		lineCount = 1
	}
	return Scope{
		Kind: ScopeKindGlobal,
		Location: Location{
			File:    file,
			Line:    1,
			Column:  0,
			EndLine: lineCount,
			// A generous sentinel: the global scope must contain every
			// location in the file, including the last line's columns.
			EndColumn: 1 << 30,
		},
	}
}
