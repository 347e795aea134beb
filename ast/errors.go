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

import "fmt"

// Phase identifies which analysis stage produced a diagnostic.
type Phase string

// Analysis phases.
const (
	PhaseParsing             Phase = "parsing"
	PhaseScopeAnalysis       Phase = "scope_analysis"
	PhaseImportResolution    Phase = "import_resolution"
	PhaseExportDetection     Phase = "export_detection"
	PhaseTypeTracking        Phase = "type_tracking"
	PhaseCallGraph           Phase = "call_graph"
	PhaseClassDetection      Phase = "class_detection"
	PhaseReturnTypeInference Phase = "return_type_inference"
)

// Severity grades a diagnostic.
type Severity string

// Diagnostic severities.
const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// AnalysisError is a diagnostic produced during analysis.
//
// Diagnostics are data, not control flow: a run always completes and
// returns best-effort results plus its diagnostics. Callers decide which
// severities, if any, are build-breaking.
type AnalysisError struct {
	// Message describes the problem.
	Message string `json:"message"`

	// Location is the source range the problem relates to, if known.
	Location *Location `json:"location,omitempty"`

	// Phase is the analysis stage that detected the problem.
	Phase Phase `json:"phase"`

	// Severity grades the problem.
	Severity Severity `json:"severity"`
}

// Error implements the error interface for interop with error-typed APIs.
func (e AnalysisError) Error() string {
	if e.Location != nil {
		return fmt.Sprintf("[%s/%s] %s at %s", e.Phase, e.Severity, e.Message, e.Location.Key())
	}
	return fmt.Sprintf("[%s/%s] %s", e.Phase, e.Severity, e.Message)
}
