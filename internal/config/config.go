// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package config holds the configuration of the mdat converters.
package config // import "github.com/go-lpc/mdat/internal/config"

import (
	"compress/flate"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-lpc/mdat/internal/xcnv"
	"sigs.k8s.io/yaml"
)

// Config describes how an mdat file is converted.
type Config struct {
	Output      string `json:"output,omitempty"`    // output file name
	Tree        string `json:"tree,omitempty"`      // ROOT tree name
	Verbosity   string `json:"verbosity,omitempty"` // diagnostics selector
	Compression int    `json:"compression"`         // LCIO compression level
	Freq        int    `json:"freq"`                // progress report frequency
	DB          string `json:"db,omitempty"`        // run catalog database name
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		Tree:        xcnv.DefaultTree,
		Verbosity:   "none",
		Compression: flate.DefaultCompression,
		Freq:        xcnv.DefaultFreq,
	}
}

// Load reads the YAML configuration file fname.
// Fields absent from the file keep their default values.
func Load(fname string) (Config, error) {
	cfg := Default()

	raw, err := os.ReadFile(fname)
	if err != nil {
		return cfg, fmt.Errorf("config: could not read %q: %w", fname, err)
	}

	err = yaml.UnmarshalStrict(raw, &cfg)
	if err != nil {
		return cfg, fmt.Errorf("config: could not decode %q: %w", fname, err)
	}

	err = cfg.Validate()
	if err != nil {
		return cfg, fmt.Errorf("config: invalid configuration %q: %w", fname, err)
	}

	return cfg, nil
}

// Validate checks the configuration values.
func (cfg Config) Validate() error {
	if cfg.Freq < 0 {
		return fmt.Errorf("invalid progress frequency %d", cfg.Freq)
	}
	if cfg.Compression < flate.HuffmanOnly || cfg.Compression > flate.BestCompression {
		return fmt.Errorf("invalid compression level %d", cfg.Compression)
	}
	return nil
}

// Save writes the configuration as YAML to fname.
func (cfg Config) Save(fname string) error {
	raw, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("config: could not encode configuration: %w", err)
	}

	err = os.MkdirAll(filepath.Dir(fname), 0755)
	if err != nil {
		return fmt.Errorf("config: could not create directory for %q: %w", fname, err)
	}

	err = os.WriteFile(fname, raw, 0644)
	if err != nil {
		return fmt.Errorf("config: could not write %q: %w", fname, err)
	}
	return nil
}
