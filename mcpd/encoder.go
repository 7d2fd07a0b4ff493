// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mcpd

import (
	"encoding/binary"
	"io"

	"golang.org/x/xerrors"
)

// Encoder writes MCPD data to an underlying data sink.
type Encoder struct {
	w   io.Writer
	buf []byte
	err error
}

// NewEncoder creates an encoder that writes data to w.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{
		w:   w,
		buf: make([]byte, 2),
	}
}

// DefaultPreamble returns the preamble written by MCPD list-mode acquisitions.
func DefaultPreamble() []byte {
	const txt = "mesytec psd listmode data\nheader length: 2 lines\n"
	raw := make([]byte, PreambleSize)
	copy(raw, txt)
	for i, v := range separator {
		binary.BigEndian.PutUint16(raw[PreambleSize-2*NumPaddingWords+2*i:], v)
	}
	return raw
}

// WritePreamble writes the file preamble.
// A nil preamble is replaced with DefaultPreamble.
func (enc *Encoder) WritePreamble(raw []byte) error {
	if raw == nil {
		raw = DefaultPreamble()
	}
	if len(raw) != PreambleSize {
		return xerrors.Errorf("mcpd: invalid preamble size (got=%d, want=%d)", len(raw), PreambleSize)
	}
	enc.write(raw)
	if enc.err != nil {
		return xerrors.Errorf("mcpd: could not write file preamble: %w", enc.err)
	}
	return nil
}

// Encode writes a buffer, its events and its padding.
//
// A zero buffer length is replaced with the length computed from the
// number of events.
// A zero buffer type is replaced with DataBuffer.
func (enc *Encoder) Encode(buf *Buffer) error {
	if buf == nil {
		return nil
	}
	hdr := buf.Header
	if hdr.Length == 0 {
		hdr.Length = uint16(HeaderWords + EntryWords*len(buf.Events))
	}
	if hdr.Type == 0 {
		hdr.Type = DataBuffer
	}
	if hdr.HeaderLength == 0 {
		hdr.HeaderLength = HeaderWords
	}

	enc.writeWord(hdr.Length)
	enc.writeWord(hdr.Type)
	enc.writeWord(hdr.HeaderLength)
	enc.writeWord(hdr.Number)
	enc.writeWord(hdr.RunID)
	enc.writeU8(hdr.DeviceID)
	enc.writeU8(hdr.Status)
	enc.writeEntry(hdr.Timestamp)
	for _, v := range hdr.Params {
		enc.writeEntry(v)
	}
	if enc.err != nil {
		return xerrors.Errorf("mcpd: could not write buffer header: %w", enc.err)
	}

	for i, evt := range buf.Events {
		enc.writeEntry(Pack(evt))
		if enc.err != nil {
			return xerrors.Errorf("mcpd: could not write event %d: %w", i, enc.err)
		}
	}

	for _, v := range separator {
		enc.writeWord(v)
	}
	if enc.err != nil {
		return xerrors.Errorf("mcpd: could not write buffer padding: %w", enc.err)
	}

	return nil
}

// Close writes the closing signature of an mdat file.
// Close does not close the underlying writer.
func (enc *Encoder) Close() error {
	for _, v := range closing {
		enc.writeWord(v)
	}
	if enc.err != nil {
		return xerrors.Errorf("mcpd: could not write closing signature: %w", enc.err)
	}
	return nil
}

func (enc *Encoder) write(p []byte) {
	if enc.err != nil {
		return
	}
	_, enc.err = enc.w.Write(p)
}

func (enc *Encoder) writeU8(v uint8) {
	enc.buf[0] = v
	enc.write(enc.buf[:1])
}

func (enc *Encoder) writeWord(v uint16) {
	binary.BigEndian.PutUint16(enc.buf[:2], v)
	enc.write(enc.buf[:2])
}

func (enc *Encoder) writeEntry(v uint64) {
	enc.writeWord(uint16(v))
	enc.writeWord(uint16(v >> 16))
	enc.writeWord(uint16(v >> 32))
}
