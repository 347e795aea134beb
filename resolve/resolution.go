// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package resolve turns raw name references into graded resolutions.
//
// A Resolution carries a confidence tier rather than a bare hit/miss:
// downstream consumers (the call graph builder in particular) decide how
// much evidence they require. Confidence is assigned once at creation and
// never upgraded.
package resolve

// Confidence grades how trustworthy a resolution is.
//
// The ordering is total: ConfidenceHigh > ConfidenceMedium >
// ConfidenceLow > ConfidenceFailed.
type Confidence int

// Confidence tiers, weakest first so the zero value is ConfidenceFailed.
const (
	// ConfidenceFailed means no value could be resolved.
	ConfidenceFailed Confidence = iota

	// ConfidenceLow means a value was resolved from ambiguous or
	// kind-mismatched evidence.
	ConfidenceLow

	// ConfidenceMedium means a value was resolved through inference
	// (type discovery, renamed or type-only imports).
	ConfidenceMedium

	// ConfidenceHigh means an exact, unambiguous match.
	ConfidenceHigh
)

// String returns the wire name of the confidence tier.
func (c Confidence) String() string {
	switch c {
	case ConfidenceHigh:
		return "high"
	case ConfidenceMedium:
		return "medium"
	case ConfidenceLow:
		return "low"
	default:
		return "failed"
	}
}

// Reason tags attached to non-high resolutions.
const (
	// ReasonInferred marks type-discovery based method dispatch.
	ReasonInferred = "inferred"

	// ReasonPartialMatch marks ambiguous same-depth candidates or a
	// kind-incompatible single candidate.
	ReasonPartialMatch = "partial_match"

	// ReasonNotFound marks a name with no candidate anywhere.
	ReasonNotFound = "not_found"

	// ReasonRenamedImport marks an import bound under a different name
	// than it was exported with.
	ReasonRenamedImport = "renamed_import"

	// ReasonTypeOnlyImport marks type-only import bindings.
	ReasonTypeOnlyImport = "type_only_import"
)

// Resolution is the graded result of a lookup: a value at high, medium,
// or low confidence, or a failure. The zero value is a failed resolution
// with no reason.
//
// Thread Safety: Immutable; safe to copy and share.
type Resolution[T any] struct {
	value      T
	hasValue   bool
	confidence Confidence
	reason     string
}

// High returns an exact, unambiguous resolution.
func High[T any](value T) Resolution[T] {
	return Resolution[T]{value: value, hasValue: true, confidence: ConfidenceHigh}
}

// Medium returns an inference-based resolution with a reason tag.
func Medium[T any](value T, reason string) Resolution[T] {
	return Resolution[T]{value: value, hasValue: true, confidence: ConfidenceMedium, reason: reason}
}

// Low returns a weak resolution with a reason tag.
func Low[T any](value T, reason string) Resolution[T] {
	return Resolution[T]{value: value, hasValue: true, confidence: ConfidenceLow, reason: reason}
}

// Failed returns a resolution with no value and a reason tag.
func Failed[T any](reason string) Resolution[T] {
	return Resolution[T]{confidence: ConfidenceFailed, reason: reason}
}

// Value returns the resolved value and whether one exists.
func (r Resolution[T]) Value() (T, bool) {
	return r.value, r.hasValue
}

// Confidence returns the resolution's confidence tier.
func (r Resolution[T]) Confidence() Confidence {
	return r.confidence
}

// Reason returns the reason tag. Empty for high-confidence resolutions.
func (r Resolution[T]) Reason() string {
	return r.reason
}

// Resolved reports whether a value was resolved at any confidence.
func (r Resolution[T]) Resolved() bool {
	return r.hasValue
}

// AtLeast reports whether the resolution meets a minimum confidence.
func (r Resolution[T]) AtLeast(min Confidence) bool {
	return r.confidence >= min
}
