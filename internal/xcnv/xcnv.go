// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package xcnv provides tools to convert MCPD data to ROOT and LCIO.
package xcnv // import "github.com/go-lpc/mdat/internal/xcnv"

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/go-lpc/mdat/mcpd"
)

const (
	DefaultTree  = "rawdata"
	DefaultTitle = "Raw data converted from mdat to ROOT"
	DefaultFreq  = 10000

	lcioDetector   = "MCPD"
	lcioCollection = "MCPD_EVENTS"
)

// Writer is a record sink backed by a file.
type Writer interface {
	mcpd.Sink
	Close() error
}

// Options configures the creation of a converted output file.
type Options struct {
	Tree        string // name of the ROOT tree
	Compression int    // LCIO compression level
}

// Create creates an output file, selecting the file format from
// the extension of fname.
func Create(fname string, opts Options) (Writer, error) {
	switch ext := strings.ToLower(filepath.Ext(fname)); ext {
	case ".root":
		tree := opts.Tree
		if tree == "" {
			tree = DefaultTree
		}
		return NewROOTWriter(fname, tree)
	case ".slcio", ".lcio":
		return NewLCIOWriter(fname, opts.Compression)
	default:
		return nil, fmt.Errorf("xcnv: unknown output file format %q", ext)
	}
}
