// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mcpd

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/xerrors"
)

// Verbosity selects the diagnostics printed while decoding.
type Verbosity struct {
	Buffers bool // buffer summaries
	Events  bool // event summaries
	Padding bool // padding words
}

// legacy bitmask values.
const (
	vBuffers = 1 << iota
	vEvents
	vPadding
)

// ParseVerbosity parses a verbosity selector.
//
// Accepted values are "" and "none", "all", a comma separated list of
// "buffers", "events" and "padding", or an integer bitmask
// (1: buffers, 2: events, 4: padding).
func ParseVerbosity(s string) (Verbosity, error) {
	var v Verbosity
	s = strings.TrimSpace(s)
	switch s {
	case "", "none":
		return v, nil
	case "all":
		return Verbosity{Buffers: true, Events: true, Padding: true}, nil
	}

	if mask, err := strconv.ParseUint(s, 0, 8); err == nil {
		if mask&^(vBuffers|vEvents|vPadding) != 0 {
			return v, xerrors.Errorf("mcpd: invalid verbosity mask 0x%x", mask)
		}
		v.Buffers = mask&vBuffers != 0
		v.Events = mask&vEvents != 0
		v.Padding = mask&vPadding != 0
		return v, nil
	}

	for _, name := range strings.Split(s, ",") {
		switch strings.TrimSpace(name) {
		case "buffers", "buffer":
			v.Buffers = true
		case "events", "event":
			v.Events = true
		case "padding":
			v.Padding = true
		default:
			return v, xerrors.Errorf("mcpd: invalid verbosity flag %q", name)
		}
	}
	return v, nil
}

func (v Verbosity) String() string {
	var flags []string
	if v.Buffers {
		flags = append(flags, "buffers")
	}
	if v.Events {
		flags = append(flags, "events")
	}
	if v.Padding {
		flags = append(flags, "padding")
	}
	if len(flags) == 0 {
		return "none"
	}
	return strings.Join(flags, ",")
}

// Printer is an Observer writing human-readable summaries.
type Printer struct {
	w io.Writer
	v Verbosity
}

// NewPrinter returns an observer printing to w the units selected by v.
func NewPrinter(w io.Writer, v Verbosity) *Printer {
	return &Printer{w: w, v: v}
}

func (p *Printer) OnBuffer(hdr BufferHeader) {
	if !p.v.Buffers {
		return
	}
	n, err := hdr.NumEvents()
	if err != nil {
		n = -1
	}
	fmt.Fprintf(p.w, "=== buffer %d ===\n", hdr.Number)
	fmt.Fprintf(p.w, "Buffer length: % 14d\n", hdr.Length)
	fmt.Fprintf(p.w, "Entries:       % 14d\n", n)
	fmt.Fprintf(p.w, "Header length: % 14d\n", hdr.HeaderLength)
	fmt.Fprintf(p.w, "Run ID:        % 14d\n", hdr.RunID)
	fmt.Fprintf(p.w, "MCPD ID:       % 14d\n", hdr.DeviceID)
	fmt.Fprintf(p.w, "Status:        % 14d\n", hdr.Status)
	fmt.Fprintf(p.w, "Timestamp:     % 14d\n", hdr.Timestamp)
	for i, v := range hdr.Params {
		fmt.Fprintf(p.w, "Parameter %d:   % 14d\n", i, v)
	}
}

func (p *Printer) OnEvent(evt Event) {
	if !p.v.Events {
		return
	}
	fmt.Fprintf(p.w, "  evt kind=%d x=%4d y=%4d amp=%3d ts=%6d time=%d\n",
		evt.Kind, evt.X, evt.Y, evt.Amp, evt.BufTime, evt.Time,
	)
}

func (p *Printer) OnPadding(pad [NumPaddingWords]uint16) {
	if !p.v.Padding {
		return
	}
	fmt.Fprintf(p.w, "  padding: %04x %04x %04x %04x\n", pad[0], pad[1], pad[2], pad[3])
}

var (
	_ Observer = (*Printer)(nil)
)
