// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mmap

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func TestHandle(t *testing.T) {
	t.Run("nil-handle", func(t *testing.T) {
		var h *Handle

		_, err := h.ReadAt(nil, 0)
		if !errors.Is(err, os.ErrInvalid) {
			t.Fatalf("invalid read-at error: %+v", err)
		}

		_, err = h.Read(nil)
		if !errors.Is(err, os.ErrInvalid) {
			t.Fatalf("invalid read error: %+v", err)
		}

		err = h.Close()
		if !errors.Is(err, os.ErrInvalid) {
			t.Fatalf("invalid close error: %+v", err)
		}
	})
	t.Run("nil-data", func(t *testing.T) {
		var h Handle

		_, err := h.ReadAt(nil, 0)
		if !errors.Is(err, errClosed) {
			t.Fatalf("invalid read-at error: %+v", err)
		}

		_, err = h.Read(nil)
		if !errors.Is(err, errClosed) {
			t.Fatalf("invalid read error: %+v", err)
		}

		err = h.Close()
		if err != nil {
			t.Fatalf("error closing nil-data handle: %+v", err)
		}
	})
}

func TestHandleFrom(t *testing.T) {
	h := handleFrom([]byte{0, 1, 2, 3}, false)
	defer h.Close()

	if got, want := h.Len(), 4; got != want {
		t.Fatalf("invalid len: got=%d, want=%d", got, want)
	}

	if got, want := h.At(1), byte(1); got != want {
		t.Fatalf("invalid value: got=%d, want=%d", got, want)
	}

	_, err := h.ReadAt(nil, -1)
	if got, want := err.Error(), "mmap: invalid ReadAt offset -1"; got != want {
		t.Fatalf("invalid error: %+v", err)
	}

	p := make([]byte, 3)
	n, err := h.ReadAt(p, 2)
	if !errors.Is(err, io.EOF) {
		t.Fatalf("invalid error: %+v", err)
	}
	if got, want := p[:n], []byte{2, 3}; !bytes.Equal(got, want) {
		t.Fatalf("invalid read-at: got=%v, want=%v", got, want)
	}
}

func TestOpen(t *testing.T) {
	tmp := t.TempDir()

	for _, tc := range []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"small", []byte("hello")},
		{"large", bytes.Repeat([]byte{0xca, 0xfe}, 10000)},
	} {
		t.Run(tc.name, func(t *testing.T) {
			fname := filepath.Join(tmp, tc.name+".mdat")
			err := os.WriteFile(fname, tc.data, 0644)
			if err != nil {
				t.Fatalf("could not create file: %+v", err)
			}

			h, err := Open(fname)
			if err != nil {
				t.Fatalf("could not mmap file: %+v", err)
			}
			defer h.Close()

			if got, want := h.Len(), len(tc.data); got != want {
				t.Fatalf("invalid len: got=%d, want=%d", got, want)
			}

			got, err := io.ReadAll(h)
			if err != nil {
				t.Fatalf("could not read mmap handle: %+v", err)
			}
			if !bytes.Equal(got, tc.data) {
				t.Fatalf("invalid content")
			}

			err = h.Close()
			if err != nil {
				t.Fatalf("could not close mmap handle: %+v", err)
			}

			_, err = h.Read(make([]byte, 1))
			if !errors.Is(err, errClosed) {
				t.Fatalf("invalid error after close: %+v", err)
			}
		})
	}

	_, err := Open(filepath.Join(tmp, "not-there.mdat"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("invalid error: %+v", err)
	}
}
