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
	"strconv"
	"strings"
)

// FilePath is a project-relative or absolute path to a source file.
//
// It is a distinct type (not a bare string) so file paths cannot be
// accidentally mixed with symbol names or scope keys at compile time.
type FilePath string

// Location identifies a half-open 2-D range of text within a single file.
//
// Lines are 1-based, columns are 0-based. EndLine/EndColumn point at the
// position just past the last character of the range.
type Location struct {
	// File is the path of the file this range belongs to.
	File FilePath `json:"file"`

	// Line is the 1-based start line.
	Line int `json:"line"`

	// Column is the 0-based start column on Line.
	Column int `json:"column"`

	// EndLine is the 1-based end line.
	EndLine int `json:"end_line"`

	// EndColumn is the 0-based end column on EndLine.
	EndColumn int `json:"end_column"`
}

// Contains reports whether target lies entirely within l's bounds.
//
// Description:
//
//	Boundary lines are inclusive: column comparison only applies on the
//	first and last line of the range. A location always contains itself.
//	Locations in different files never contain each other.
//
// Inputs:
//
//	target - The location to test for containment.
//
// Outputs:
//
//	bool - True iff target is within l.
//
// Thread Safety: Safe for concurrent use (value receiver, no state).
func (l Location) Contains(target Location) bool {
	if l.File != target.File {
		return false
	}
	if target.Line < l.Line || target.EndLine > l.EndLine {
		return false
	}
	if target.Line == l.Line && target.Column < l.Column {
		return false
	}
	if target.EndLine == l.EndLine && target.EndColumn > l.EndColumn {
		return false
	}
	return true
}

// Before reports whether l starts strictly before other in source order.
// Locations in different files compare by file path for determinism.
func (l Location) Before(other Location) bool {
	if l.File != other.File {
		return l.File < other.File
	}
	if l.Line != other.Line {
		return l.Line < other.Line
	}
	return l.Column < other.Column
}

// Key returns a string encoding of the location usable as a map key.
//
// Description:
//
//	The encoding is injective over (File, Line, Column, EndLine, EndColumn):
//	two distinct locations never produce the same key. The numeric fields
//	are appended after the file path, so file paths containing the
//	separator character still round-trip (parsing consumes the numeric
//	fields from the right).
//
// Outputs:
//
//	string - "file:line:column:endLine:endColumn".
func (l Location) Key() string {
	return fmt.Sprintf("%s:%d:%d:%d:%d", l.File, l.Line, l.Column, l.EndLine, l.EndColumn)
}

// ParseLocationKey decodes a key produced by Location.Key.
//
// Description:
//
//	Splits the trailing four numeric fields off the key; everything before
//	them is the file path. Returns an error if the key does not have four
//	trailing integer fields.
//
// Inputs:
//
//	key - A string previously produced by Location.Key.
//
// Outputs:
//
//	Location - The decoded location.
//	error - Non-nil if the key is malformed.
func ParseLocationKey(key string) (Location, error) {
	parts := strings.Split(key, ":")
	if len(parts) < 5 {
		return Location{}, fmt.Errorf("location key %q: want at least 5 fields, got %d", key, len(parts))
	}

	nums := parts[len(parts)-4:]
	fields := make([]int, 4)
	for i, s := range nums {
		n, err := strconv.Atoi(s)
		if err != nil {
			return Location{}, fmt.Errorf("location key %q: field %q is not an integer", key, s)
		}
		fields[i] = n
	}

	file := strings.Join(parts[:len(parts)-4], ":")
	return Location{
		File:      FilePath(file),
		Line:      fields[0],
		Column:    fields[1],
		EndLine:   fields[2],
		EndColumn: fields[3],
	}, nil
}
