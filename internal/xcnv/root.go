// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package xcnv

import (
	"fmt"

	"github.com/go-lpc/mdat/mcpd"
	"go-hep.org/x/hep/groot"
	"go-hep.org/x/hep/groot/rtree"
)

// rawEvent is the layout of a ROOT tree entry.
type rawEvent struct {
	X       uint16 `groot:"xpos"`
	Y       uint16 `groot:"ypos"`
	Amp     uint16 `groot:"amp"`
	Time    uint64 `groot:"time"`
	Kind    uint8  `groot:"eventID"`
	BufTime uint32 `groot:"eventTS"`
	MCPD    uint8  `groot:"mcpdID"`
	Status  uint8  `groot:"status"`
	Param0  uint64 `groot:"param0"`
	Param1  uint64 `groot:"param1"`
	Param2  uint64 `groot:"param2"`
	Param3  uint64 `groot:"param3"`
}

func (evt *rawEvent) set(rec mcpd.Record) {
	evt.X = rec.X
	evt.Y = rec.Y
	evt.Amp = rec.Amp
	evt.Time = rec.Time
	evt.Kind = uint8(rec.Kind)
	evt.BufTime = rec.BufTime
	evt.MCPD = rec.DeviceID
	evt.Status = rec.Status
	evt.Param0 = rec.Params[0]
	evt.Param1 = rec.Params[1]
	evt.Param2 = rec.Params[2]
	evt.Param3 = rec.Params[3]
}

// ROOTWriter writes records as entries of a ROOT tree.
type ROOTWriter struct {
	f    *groot.File
	tree rtree.Writer
	evt  rawEvent
}

// NewROOTWriter creates a ROOT file fname holding a tree named tree.
func NewROOTWriter(fname, tree string) (*ROOTWriter, error) {
	f, err := groot.Create(fname)
	if err != nil {
		return nil, fmt.Errorf("xcnv: could not create ROOT file %q: %w", fname, err)
	}

	w := &ROOTWriter{f: f}
	w.tree, err = rtree.NewWriter(
		f, tree, rtree.WriteVarsFromStruct(&w.evt),
		rtree.WithTitle(DefaultTitle),
	)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("xcnv: could not create ROOT tree %q: %w", tree, err)
	}

	return w, nil
}

// Write fills the tree with rec.
func (w *ROOTWriter) Write(rec mcpd.Record) error {
	w.evt.set(rec)
	_, err := w.tree.Write()
	if err != nil {
		return fmt.Errorf("xcnv: could not write ROOT entry: %w", err)
	}
	return nil
}

// Entries returns the number of entries written so far.
func (w *ROOTWriter) Entries() int64 {
	return w.tree.Entries()
}

// Close flushes the tree and closes the ROOT file.
// Close is a no-op once the file has been closed.
func (w *ROOTWriter) Close() error {
	if w.f == nil {
		return nil
	}
	defer func() { w.f = nil }()

	err := w.tree.Close()
	if err != nil {
		_ = w.f.Close()
		return fmt.Errorf("xcnv: could not close ROOT tree: %w", err)
	}

	err = w.f.Close()
	if err != nil {
		return fmt.Errorf("xcnv: could not close ROOT file: %w", err)
	}
	return nil
}

var (
	_ Writer = (*ROOTWriter)(nil)
)
