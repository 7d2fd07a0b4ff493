// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mcpd

import (
	"errors"
	"io"

	"golang.org/x/xerrors"
)

// Sink consumes decoded records.
type Sink interface {
	Write(rec Record) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(rec Record) error

func (f SinkFunc) Write(rec Record) error { return f(rec) }

// BufferSink is a Sink notified before the first record of a buffer
// and once all the records of a buffer have been written.
//
// EndBuffer is not called for a buffer cut short by a decoding error.
type BufferSink interface {
	Sink
	BeginBuffer(hdr BufferHeader) error
	EndBuffer(hdr BufferHeader) error
}

// Observer is notified of every decoded unit of a stream.
type Observer interface {
	OnBuffer(hdr BufferHeader)
	OnEvent(evt Event)
	OnPadding(pad [NumPaddingWords]uint16)
}

// Stats holds the number of fully decoded buffers of a stream and the
// number of records handed to the sink.
type Stats struct {
	Buffers int64
	Events  int64
}

// Reader decodes a whole mdat stream, buffer after buffer.
type Reader struct {
	Observer Observer // optional

	dec   *Decoder
	stats Stats
}

// NewReader returns a reader decoding the mdat stream r.
func NewReader(r io.Reader) *Reader {
	return &Reader{dec: NewDecoder(r)}
}

// Stats returns the decoding statistics so far.
func (r *Reader) Stats() Stats {
	return r.stats
}

// Offset returns the number of bytes consumed from the stream.
func (r *Reader) Offset() int64 {
	return r.dec.Offset()
}

// Run reads the file preamble and decodes all the buffers of the stream,
// handing each record to sink.
//
// Run returns nil when the stream ends at a buffer boundary or when a
// buffer is not a data buffer.
// Records already written to the sink are never retracted.
func (r *Reader) Run(sink Sink) error {
	_, err := r.dec.ReadPreamble()
	if err != nil {
		return err
	}

	bsink, _ := sink.(BufferSink)
	for {
		hdr, err := r.dec.DecodeHeader()
		if err != nil {
			if errors.Is(err, ErrEndOfStream) || errors.Is(err, io.EOF) {
				return nil
			}
			return xerrors.Errorf("mcpd: could not decode buffer #%d: %w", r.stats.Buffers, err)
		}

		if bsink != nil {
			err = bsink.BeginBuffer(hdr)
			if err != nil {
				return xerrors.Errorf("mcpd: could not begin buffer %d: %w", hdr.Number, err)
			}
		}

		err = r.readBuffer(hdr, sink)
		if err != nil {
			return err
		}

		if bsink != nil {
			err = bsink.EndBuffer(hdr)
			if err != nil {
				return xerrors.Errorf("mcpd: could not end buffer %d: %w", hdr.Number, err)
			}
		}
		r.stats.Buffers++
	}
}

func (r *Reader) readBuffer(hdr BufferHeader, sink Sink) error {
	if r.Observer != nil {
		r.Observer.OnBuffer(hdr)
	}

	n, err := hdr.NumEvents()
	if err != nil {
		return err
	}

	for i := 0; i < n; i++ {
		evt, err := r.dec.DecodeEvent(hdr.Timestamp)
		if err != nil {
			return xerrors.Errorf("mcpd: buffer %d: could not decode event %d/%d: %w", hdr.Number, i, n, err)
		}
		if r.Observer != nil {
			r.Observer.OnEvent(evt)
		}
		err = sink.Write(NewRecord(hdr, evt))
		if err != nil {
			return xerrors.Errorf("mcpd: buffer %d: could not write event %d/%d: %w", hdr.Number, i, n, err)
		}
		r.stats.Events++
	}

	pad, err := r.dec.ReadPadding()
	if err != nil {
		return xerrors.Errorf("mcpd: buffer %d: %w", hdr.Number, err)
	}
	if r.Observer != nil {
		r.Observer.OnPadding(pad)
	}

	return nil
}
