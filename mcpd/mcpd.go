// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package mcpd holds functions to decode and encode MCPD list-mode
// data files (mdat).
//
// An mdat file is made of a 58 bytes preamble followed by buffers.
// Each buffer holds a header, a sequence of 48-bit event words and
// 4 padding words.
// All multi-byte quantities are stored as big-endian 16-bit words.
package mcpd // import "github.com/go-lpc/mdat/mcpd"

import (
	"encoding/binary"
	"fmt"

	"golang.org/x/xerrors"
)

// BufferHeader describes a MCPD data buffer.
type BufferHeader struct {
	Length       uint16 // buffer length, in 16-bit words
	Type         uint16 // buffer type
	HeaderLength uint16
	Number       uint16 // buffer number
	RunID        uint16
	DeviceID     uint8 // MCPD ID
	Status       uint8
	Timestamp    uint64            // 48-bit header timestamp
	Params       [NumParams]uint64 // 48-bit parameters
}

// NumEvents returns the number of event words held by the buffer.
func (hdr BufferHeader) NumEvents() (int, error) {
	if hdr.Length < HeaderWords {
		return 0, xerrors.Errorf(
			"mcpd: buffer %d has length %d (min=%d): %w",
			hdr.Number, hdr.Length, HeaderWords, ErrBufferLength,
		)
	}
	return (int(hdr.Length) - HeaderWords) / EntryWords, nil
}

// Kind describes the kind of an event.
type Kind uint8

const (
	RealEvent   Kind = 0
	SelfTrigger Kind = 1
)

func (k Kind) String() string {
	switch k {
	case RealEvent:
		return "real"
	case SelfTrigger:
		return "self-trigger"
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Event is a single detector hit.
type Event struct {
	X       uint16 // wire number
	Y       uint16 // stripe number
	Amp     uint16 // time-over-threshold, in clock cycles (12.5 ns)
	Kind    Kind
	BufTime uint32 // 19-bit time within the buffer
	Time    uint64 // absolute time, in clock cycles (12.5 ns)
}

// Record is an event flattened with the data of its buffer header.
type Record struct {
	Event
	DeviceID uint8
	Status   uint8
	Params   [NumParams]uint64
}

// NewRecord returns the record for evt, decoded from the buffer described by hdr.
func NewRecord(hdr BufferHeader, evt Event) Record {
	return Record{
		Event:    evt,
		DeviceID: hdr.DeviceID,
		Status:   hdr.Status,
		Params:   hdr.Params,
	}
}

// RecordSize is the size in bytes of a marshaled record.
const RecordSize = 2 + 2 + 2 + 1 + 4 + 8 + 1 + 1 + NumParams*8

// MarshalBinary implements encoding.BinaryMarshaler.
func (rec Record) MarshalBinary() ([]byte, error) {
	p := make([]byte, RecordSize)
	binary.LittleEndian.PutUint16(p[0:], rec.X)
	binary.LittleEndian.PutUint16(p[2:], rec.Y)
	binary.LittleEndian.PutUint16(p[4:], rec.Amp)
	p[6] = uint8(rec.Kind)
	binary.LittleEndian.PutUint32(p[7:], rec.BufTime)
	binary.LittleEndian.PutUint64(p[11:], rec.Time)
	p[19] = rec.DeviceID
	p[20] = rec.Status
	for i, v := range rec.Params {
		binary.LittleEndian.PutUint64(p[21+8*i:], v)
	}
	return p, nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (rec *Record) UnmarshalBinary(p []byte) error {
	if len(p) != RecordSize {
		return xerrors.Errorf("mcpd: invalid record size (got=%d, want=%d)", len(p), RecordSize)
	}
	rec.X = binary.LittleEndian.Uint16(p[0:])
	rec.Y = binary.LittleEndian.Uint16(p[2:])
	rec.Amp = binary.LittleEndian.Uint16(p[4:])
	rec.Kind = Kind(p[6])
	rec.BufTime = binary.LittleEndian.Uint32(p[7:])
	rec.Time = binary.LittleEndian.Uint64(p[11:])
	rec.DeviceID = p[19]
	rec.Status = p[20]
	for i := range rec.Params {
		rec.Params[i] = binary.LittleEndian.Uint64(p[21+8*i:])
	}
	return nil
}

// Buffer is a fully decoded MCPD buffer.
type Buffer struct {
	Header BufferHeader
	Events []Event
}
