// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package graph

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, configFileName), []byte(content), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	config, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if config.MaxChainDepth != DefaultMaxChainDepth {
		t.Errorf("MaxChainDepth = %d, want default %d", config.MaxChainDepth, DefaultMaxChainDepth)
	}
	if config.Workers < 1 {
		t.Errorf("Workers = %d, want at least 1", config.Workers)
	}
}

func TestLoadConfig_EmptyRootUsesDefaults(t *testing.T) {
	config, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if config.MaxChainDepth != DefaultMaxChainDepth {
		t.Errorf("MaxChainDepth = %d, want default", config.MaxChainDepth)
	}
}

func TestLoadConfig_ParsesOverrides(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `
workers: 4
max_chain_depth: 16
exclude_from_analysis:
  - "vendor/**"
  - "**/*.test.ts"
precompute_chains: true
roots:
  - "global||src/main.ts:1:0:100:1073741824#main"
`)

	config, err := LoadConfig(dir)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if config.Workers != 4 {
		t.Errorf("Workers = %d, want 4", config.Workers)
	}
	if config.MaxChainDepth != 16 {
		t.Errorf("MaxChainDepth = %d, want 16", config.MaxChainDepth)
	}
	if len(config.ExcludeFromAnalysis) != 2 {
		t.Errorf("ExcludeFromAnalysis = %v, want 2 patterns", config.ExcludeFromAnalysis)
	}
	if !config.PrecomputeChains {
		t.Error("PrecomputeChains should be true")
	}
	if len(config.Roots) != 1 {
		t.Errorf("Roots = %v, want 1 entry", config.Roots)
	}
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "workers: [not a number")

	if _, err := LoadConfig(dir); err == nil {
		t.Fatal("expected a parse error")
	}
}

func TestLoadConfig_ValidationRejectsBadValues(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "max_chain_depth: 99999")

	if _, err := LoadConfig(dir); err == nil {
		t.Fatal("expected a validation error for an out-of-range depth")
	}
}

func TestDefaultAnalysisConfig_Valid(t *testing.T) {
	if err := DefaultAnalysisConfig().Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
}
