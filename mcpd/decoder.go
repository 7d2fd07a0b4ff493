// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mcpd

import (
	"encoding/binary"
	"errors"
	"io"

	"golang.org/x/xerrors"
)

// Decoder reads MCPD data from an underlying data source.
//
// Decoder errors are sticky: once a read failed, all subsequent reads
// fail with the same error.
type Decoder struct {
	r io.Reader

	buf []byte
	err error
	off int64 // current offset in the stream
}

// NewDecoder creates a decoder that reads data from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{
		r:   r,
		buf: make([]byte, PreambleSize),
	}
}

// Err returns the first error encountered by the decoder.
func (dec *Decoder) Err() error {
	return dec.err
}

// Offset returns the number of bytes consumed from the stream.
func (dec *Decoder) Offset() int64 {
	return dec.off
}

// ReadPreamble reads the opaque file preamble.
func (dec *Decoder) ReadPreamble() ([]byte, error) {
	dec.load(PreambleSize)
	if dec.err != nil {
		return nil, xerrors.Errorf("mcpd: could not read file preamble: %w", dec.err)
	}
	raw := make([]byte, PreambleSize)
	copy(raw, dec.buf)
	return raw, nil
}

// DecodeHeader decodes the header of the next buffer.
//
// DecodeHeader returns ErrEndOfStream when the buffer is not a data buffer,
// after having consumed the buffer length and the buffer type.
// DecodeHeader returns io.EOF when the stream ended exactly at a buffer boundary.
func (dec *Decoder) DecodeHeader() (BufferHeader, error) {
	var hdr BufferHeader

	beg := dec.off
	hdr.Length = dec.readWord()
	if dec.err != nil {
		var te *TruncatedError
		if errors.As(dec.err, &te) && te.Got == 0 && te.Offset == beg {
			return hdr, io.EOF
		}
		return hdr, xerrors.Errorf("mcpd: could not read buffer length: %w", dec.err)
	}

	hdr.Type = dec.readWord()
	if dec.err != nil {
		return hdr, xerrors.Errorf("mcpd: could not read buffer type: %w", dec.err)
	}
	if hdr.Type != DataBuffer {
		return hdr, ErrEndOfStream
	}

	hdr.HeaderLength = dec.readWord()
	hdr.Number = dec.readWord()
	hdr.RunID = dec.readWord()
	hdr.DeviceID = dec.readU8()
	hdr.Status = dec.readU8()
	hdr.Timestamp = dec.readEntry()
	for i := range hdr.Params {
		hdr.Params[i] = dec.readEntry()
	}
	if dec.err != nil {
		return hdr, xerrors.Errorf("mcpd: could not read buffer header: %w", dec.err)
	}

	return hdr, nil
}

// DecodeEvent decodes the next event word.
// base is the timestamp of the enclosing buffer.
func (dec *Decoder) DecodeEvent(base uint64) (Event, error) {
	word := dec.readEntry()
	if dec.err != nil {
		return Event{}, xerrors.Errorf("mcpd: could not read event: %w", dec.err)
	}
	return Unpack(word, base), nil
}

// ReadPadding reads the padding words trailing a buffer.
func (dec *Decoder) ReadPadding() ([NumPaddingWords]uint16, error) {
	var pad [NumPaddingWords]uint16
	for i := range pad {
		pad[i] = dec.readWord()
	}
	if dec.err != nil {
		return pad, xerrors.Errorf("mcpd: could not read buffer padding: %w", dec.err)
	}
	return pad, nil
}

func (dec *Decoder) readU8() uint8 {
	dec.load(1)
	return dec.buf[0]
}

func (dec *Decoder) readWord() uint16 {
	const n = 2
	dec.load(n)
	return binary.BigEndian.Uint16(dec.buf[:n])
}

func (dec *Decoder) readEntry() uint64 {
	var (
		lo  = dec.readWord()
		mid = dec.readWord()
		hi  = dec.readWord()
	)
	return uint64(lo) | uint64(mid)<<16 | uint64(hi)<<32
}

func (dec *Decoder) load(n int) {
	if dec.err != nil {
		return
	}
	if cap(dec.buf) < n {
		dec.buf = append(dec.buf[:len(dec.buf)], make([]byte, n-cap(dec.buf))...)
	}
	dec.buf = dec.buf[:n]
	nn, err := io.ReadFull(dec.r, dec.buf[:n])
	beg := dec.off
	dec.off += int64(nn)
	switch {
	case err == nil:
		return
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		dec.err = &TruncatedError{Offset: beg, Want: n, Got: nn}
	default:
		dec.err = err
	}
	// never hand out partially read values.
	for i := range dec.buf[:n] {
		dec.buf[i] = 0
	}
}
