// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mcpd

const (
	DataBuffer = 0x0002 // buffer type of a data buffer

	PreambleSize    = 58 // size in bytes of the opaque file preamble
	HeaderWords     = 21 // number of 16-bit words of a buffer header
	EntryWords      = 3  // number of 16-bit words of an entry
	NumPaddingWords = 4  // number of 16-bit words trailing each buffer
	NumParams       = 4  // number of 48-bit parameters of a buffer header
)

var (
	// buffer separator, used as padding after each buffer.
	separator = [NumPaddingWords]uint16{0x0000, 0xffff, 0x5555, 0xaaaa}

	// closing signature of an mdat file.
	closing = [NumPaddingWords]uint16{0xffff, 0xaaaa, 0x5555, 0x0000}
)
