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
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// configFileName is the per-project analysis config file.
const configFileName = "kodiak.config.yaml"

// DefaultMaxChainDepth bounds call chain traversal when the config does
// not say otherwise.
const DefaultMaxChainDepth = 32

// AnalysisConfig holds user-provided overrides for an analysis run.
//
// Description:
//
//	Loaded from <projectRoot>/kodiak.config.yaml. All fields are optional.
//	A missing config file is not an error (zero-config works out of the
//	box).
//
// Thread Safety: Safe for concurrent reads after construction.
type AnalysisConfig struct {
	// Workers bounds parallel per-file indexing. Zero means NumCPU.
	Workers int `yaml:"workers" validate:"gte=0"`

	// ExcludeFromAnalysis lists glob patterns for files to skip.
	// Example: ["vendor/**", "**/*.test.ts"]
	ExcludeFromAnalysis []string `yaml:"exclude_from_analysis"`

	// MaxChainDepth bounds call chain traversal depth.
	MaxChainDepth int `yaml:"max_chain_depth" validate:"gte=1,lte=1024"`

	// MaxSymbolsPerFile caps the definitions a single file index can hold.
	MaxSymbolsPerFile int `yaml:"max_symbols_per_file" validate:"gte=0"`

	// Roots lists symbol IDs to force into the entry point set, for
	// callables reached through mechanisms the analysis cannot see
	// (frameworks, schedulers, FFI).
	Roots []string `yaml:"roots"`

	// PrecomputeChains enables call chain enumeration as part of the
	// analysis run. When false, chains are computed on demand.
	PrecomputeChains bool `yaml:"precompute_chains"`
}

// DefaultAnalysisConfig returns the zero-config defaults.
func DefaultAnalysisConfig() AnalysisConfig {
	return AnalysisConfig{
		Workers:       runtime.NumCPU(),
		MaxChainDepth: DefaultMaxChainDepth,
	}
}

// Validate checks field constraints.
func (c AnalysisConfig) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid analysis config: %w", err)
	}
	return nil
}

// LoadConfig reads kodiak.config.yaml from the project root.
//
// Description:
//
//	Reads and parses the analysis config file, filling unset fields from
//	the defaults. If the project root is empty or the file does not
//	exist, returns the defaults with no error. Only returns an error if
//	the file exists but cannot be parsed or fails validation.
//
// Inputs:
//
//	projectRoot - Absolute path to the project root. May be empty.
//
// Outputs:
//
//	AnalysisConfig - The effective config.
//	error - Non-nil only for invalid YAML or constraint violations.
//
// Thread Safety: Safe for concurrent use (stateless function).
func LoadConfig(projectRoot string) (AnalysisConfig, error) {
	config := DefaultAnalysisConfig()
	if projectRoot == "" {
		return config, nil
	}

	configPath := filepath.Join(projectRoot, configFileName)
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return config, nil
		}
		return config, fmt.Errorf("reading %s: %w", configFileName, err)
	}

	if err := yaml.Unmarshal(data, &config); err != nil {
		return config, fmt.Errorf("parsing %s: %w", configFileName, err)
	}
	if config.Workers == 0 {
		config.Workers = runtime.NumCPU()
	}
	if config.MaxChainDepth == 0 {
		config.MaxChainDepth = DefaultMaxChainDepth
	}

	if err := config.Validate(); err != nil {
		return config, err
	}
	return config, nil
}
