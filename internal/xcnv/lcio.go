// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package xcnv

import (
	"fmt"

	"github.com/go-lpc/mdat/mcpd"
	"go-hep.org/x/hep/lcio"
)

// LCIOWriter writes the records of each MCPD buffer as one LCIO event.
//
// Records are stored in a GenericObject collection, one row per record:
//   - I32s: xpos, ypos, amp, eventID, eventTS, mcpdID, status
//   - F64s: time, param0, param1, param2, param3
//
// Records of a buffer that was never ended are written by Close as a
// last event, flagged with the "Partial" parameter.
type LCIOWriter struct {
	w    *lcio.Writer
	ievt int32
	run  bool // whether the run header was written
	hdr  mcpd.BufferHeader
	raw  lcio.GenericObject
}

// NewLCIOWriter creates a LCIO file with the provided compression level.
func NewLCIOWriter(fname string, lvl int) (*LCIOWriter, error) {
	w, err := lcio.Create(fname)
	if err != nil {
		return nil, fmt.Errorf("xcnv: could not create LCIO file %q: %w", fname, err)
	}
	w.SetCompressionLevel(lvl)

	return &LCIOWriter{w: w}, nil
}

// Write appends rec to the collection of the current buffer.
func (w *LCIOWriter) Write(rec mcpd.Record) error {
	w.raw.Data = append(w.raw.Data, lcio.GenericObjectData{
		I32s: []int32{
			int32(rec.X), int32(rec.Y), int32(rec.Amp),
			int32(rec.Kind), int32(rec.BufTime),
			int32(rec.DeviceID), int32(rec.Status),
		},
		F64s: []float64{
			float64(rec.Time),
			float64(rec.Params[0]), float64(rec.Params[1]),
			float64(rec.Params[2]), float64(rec.Params[3]),
		},
	})
	return nil
}

// BeginBuffer starts the collection of the records of a new buffer.
func (w *LCIOWriter) BeginBuffer(hdr mcpd.BufferHeader) error {
	w.hdr = hdr
	w.raw.Data = w.raw.Data[:0]
	return nil
}

// EndBuffer writes the collection of the current buffer as a LCIO event.
func (w *LCIOWriter) EndBuffer(hdr mcpd.BufferHeader) error {
	return w.flush(hdr, false)
}

func (w *LCIOWriter) flush(hdr mcpd.BufferHeader, partial bool) error {
	if !w.run {
		err := w.w.WriteRunHeader(&lcio.RunHeader{
			RunNumber: int32(hdr.RunID),
			Detector:  lcioDetector,
			Descr:     "MCPD list-mode data",
			Params: lcio.Params{
				Ints: map[string][]int32{
					"MCPD": {int32(hdr.DeviceID)},
				},
			},
		})
		if err != nil {
			return fmt.Errorf("xcnv: could not write LCIO run header: %w", err)
		}
		w.run = true
	}

	evt := lcio.Event{
		RunNumber:   int32(hdr.RunID),
		EventNumber: w.ievt,
		TimeStamp:   int64(hdr.Timestamp),
		Detector:    lcioDetector,
		Params: lcio.Params{
			Ints: map[string][]int32{
				"BufferNumber": {int32(hdr.Number)},
				"MCPD":         {int32(hdr.DeviceID)},
				"Status":       {int32(hdr.Status)},
			},
		},
	}
	if partial {
		evt.Params.Ints["Partial"] = []int32{1}
	}
	evt.Add(lcioCollection, &w.raw)

	err := w.w.WriteEvent(&evt)
	if err != nil {
		return fmt.Errorf("xcnv: could not write LCIO event %d: %w", w.ievt, err)
	}

	w.ievt++
	w.raw.Data = w.raw.Data[:0]
	return nil
}

// Close writes the records of an unfinished buffer and closes the LCIO file.
func (w *LCIOWriter) Close() error {
	if len(w.raw.Data) > 0 {
		err := w.flush(w.hdr, true)
		if err != nil {
			_ = w.w.Close()
			return err
		}
	}

	err := w.w.Close()
	if err != nil {
		return fmt.Errorf("xcnv: could not close LCIO file: %w", err)
	}
	return nil
}

// LCIORecords decodes the records stored in a LCIO event written by LCIOWriter.
func LCIORecords(evt *lcio.Event) ([]mcpd.Record, error) {
	if !evt.Has(lcioCollection) {
		return nil, fmt.Errorf("xcnv: LCIO event %d has no %q collection", evt.EventNumber, lcioCollection)
	}
	coll, ok := evt.Get(lcioCollection).(*lcio.GenericObject)
	if !ok {
		return nil, fmt.Errorf(
			"xcnv: LCIO event %d: invalid %q collection type %T",
			evt.EventNumber, lcioCollection, evt.Get(lcioCollection),
		)
	}

	recs := make([]mcpd.Record, len(coll.Data))
	for i, data := range coll.Data {
		if len(data.I32s) != 7 || len(data.F64s) != 1+mcpd.NumParams {
			return nil, fmt.Errorf(
				"xcnv: LCIO event %d: invalid record %d (i32s=%d, f64s=%d)",
				evt.EventNumber, i, len(data.I32s), len(data.F64s),
			)
		}
		recs[i] = mcpd.Record{
			Event: mcpd.Event{
				X:       uint16(data.I32s[0]),
				Y:       uint16(data.I32s[1]),
				Amp:     uint16(data.I32s[2]),
				Kind:    mcpd.Kind(data.I32s[3]),
				BufTime: uint32(data.I32s[4]),
				Time:    uint64(data.F64s[0]),
			},
			DeviceID: uint8(data.I32s[5]),
			Status:   uint8(data.I32s[6]),
		}
		for j := range recs[i].Params {
			recs[i].Params[j] = uint64(data.F64s[1+j])
		}
	}
	return recs, nil
}

var (
	_ Writer          = (*LCIOWriter)(nil)
	_ mcpd.BufferSink = (*LCIOWriter)(nil)
)
