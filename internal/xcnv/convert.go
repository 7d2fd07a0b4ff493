// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package xcnv

import (
	"fmt"
	"io"
	"log"

	"github.com/go-lpc/mdat/mcpd"
)

// Convert decodes the mdat stream r and writes all its records to sink.
//
// Progress is reported on msg every freq records.
// A nil observer is allowed.
func Convert(sink mcpd.Sink, r io.Reader, obs mcpd.Observer, freq int, msg *log.Logger) (mcpd.Stats, error) {
	if freq <= 0 {
		freq = DefaultFreq
	}

	var (
		dec = mcpd.NewReader(r)
		cnv = progress{sink: sink, freq: freq, msg: msg}
	)
	dec.Observer = obs

	var err error
	switch sink.(type) {
	case mcpd.BufferSink:
		err = dec.Run(&bufferProgress{cnv})
	default:
		err = dec.Run(&cnv)
	}
	if err != nil {
		return dec.Stats(), fmt.Errorf("xcnv: could not convert mdat stream: %w", err)
	}

	return dec.Stats(), nil
}

type progress struct {
	sink mcpd.Sink
	freq int
	msg  *log.Logger
	n    int64
}

func (p *progress) Write(rec mcpd.Record) error {
	err := p.sink.Write(rec)
	if err != nil {
		return err
	}
	p.n++
	if p.msg != nil && p.n%int64(p.freq) == 0 {
		p.msg.Printf("processing entry number: %d", p.n)
	}
	return nil
}

type bufferProgress struct {
	progress
}

func (p *bufferProgress) BeginBuffer(hdr mcpd.BufferHeader) error {
	return p.sink.(mcpd.BufferSink).BeginBuffer(hdr)
}

func (p *bufferProgress) EndBuffer(hdr mcpd.BufferHeader) error {
	return p.sink.(mcpd.BufferSink).EndBuffer(hdr)
}

var (
	_ mcpd.Sink       = (*progress)(nil)
	_ mcpd.BufferSink = (*bufferProgress)(nil)
)
