// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mcpd

// Field describes a bit-field of a 48-bit event word.
type Field struct {
	Name  string
	Shift uint // position of the least significant bit
	Width uint // number of bits
}

// Mask returns the mask selecting the field inside a word.
func (f Field) Mask() uint64 {
	return (uint64(1)<<f.Width - 1) << f.Shift
}

// Extract returns the value of the field held by word.
func (f Field) Extract(word uint64) uint64 {
	return (word & f.Mask()) >> f.Shift
}

// Insert returns word with the field set to v.
// Bits of v beyond the field width are dropped.
func (f Field) Insert(word, v uint64) uint64 {
	m := f.Mask()
	return (word &^ m) | ((v << f.Shift) & m)
}

// Fields of an event word, from most to least significant bits.
var (
	FieldKind    = Field{Name: "eventID", Shift: 47, Width: 1}
	FieldAmp     = Field{Name: "amp", Shift: 39, Width: 8}
	FieldY       = Field{Name: "ypos", Shift: 29, Width: 10}
	FieldX       = Field{Name: "xpos", Shift: 19, Width: 10}
	FieldBufTime = Field{Name: "eventTS", Shift: 0, Width: 19}
)

// EventFields lists the fields of an event word.
var EventFields = [...]Field{
	FieldKind,
	FieldAmp,
	FieldY,
	FieldX,
	FieldBufTime,
}

// EntryMask selects the 48 bits of an entry.
const EntryMask = 1<<48 - 1

// Unpack decodes an event word.
// The absolute time of the event is computed from the base timestamp
// of the enclosing buffer.
func Unpack(word, base uint64) Event {
	evt := Event{
		X:       uint16(FieldX.Extract(word)),
		Y:       uint16(FieldY.Extract(word)),
		Amp:     uint16(FieldAmp.Extract(word)),
		Kind:    Kind(FieldKind.Extract(word)),
		BufTime: uint32(FieldBufTime.Extract(word)),
	}
	evt.Time = uint64(evt.BufTime) + base
	return evt
}

// Pack encodes an event into an event word.
// The absolute time of the event is not part of the word.
func Pack(evt Event) uint64 {
	var word uint64
	word = FieldKind.Insert(word, uint64(evt.Kind))
	word = FieldAmp.Insert(word, uint64(evt.Amp))
	word = FieldY.Insert(word, uint64(evt.Y))
	word = FieldX.Insert(word, uint64(evt.X))
	word = FieldBufTime.Insert(word, uint64(evt.BufTime))
	return word
}
