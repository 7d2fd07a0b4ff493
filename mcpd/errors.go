// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mcpd

import (
	"errors"
	"fmt"
)

var (
	// ErrEndOfStream is returned by Decoder.DecodeHeader when the buffer
	// type is not DataBuffer.
	ErrEndOfStream = errors.New("mcpd: end of stream")

	// ErrTruncated reports a stream holding less bytes than required.
	ErrTruncated = errors.New("mcpd: truncated stream")

	// ErrBufferLength reports a buffer length smaller than a buffer header.
	ErrBufferLength = errors.New("mcpd: invalid buffer length")
)

// TruncatedError describes a short read.
type TruncatedError struct {
	Offset int64 // stream offset where the read started
	Want   int   // number of bytes requested
	Got    int   // number of bytes actually read
}

func (e *TruncatedError) Error() string {
	return fmt.Sprintf(
		"mcpd: truncated stream at offset %d (got=%d bytes, want=%d)",
		e.Offset, e.Got, e.Want,
	)
}

func (e *TruncatedError) Is(target error) bool {
	return target == ErrTruncated
}
