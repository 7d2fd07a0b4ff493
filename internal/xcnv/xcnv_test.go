// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package xcnv

import (
	"bytes"
	"compress/flate"
	"errors"
	"io"
	"log"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/go-lpc/mdat/mcpd"
	"go-hep.org/x/hep/groot"
	"go-hep.org/x/hep/groot/rtree"
	"go-hep.org/x/hep/lcio"
)

var refBuffers = []mcpd.Buffer{
	{
		Header: mcpd.BufferHeader{
			Number: 1, RunID: 42, DeviceID: 1, Status: 0,
			Timestamp: 1000,
			Params:    [mcpd.NumParams]uint64{1, 2, 3, 4},
		},
		Events: []mcpd.Event{
			{X: 5, Y: 7, Amp: 3, BufTime: 100},
			{X: 1023, Y: 1023, Amp: 127, Kind: mcpd.SelfTrigger, BufTime: 1<<19 - 1},
		},
	},
	{
		Header: mcpd.BufferHeader{
			Number: 2, RunID: 42, DeviceID: 2, Status: 1,
			Timestamp: 0x0000_ffff_ffff,
		},
	},
	{
		Header: mcpd.BufferHeader{
			Number: 3, RunID: 42, DeviceID: 1, Status: 0,
			Timestamp: 1<<48 - 1,
			Params:    [mcpd.NumParams]uint64{10, 20, 30, 1<<48 - 1},
		},
		Events: []mcpd.Event{
			{X: 1, Y: 2, Amp: 4, BufTime: 8},
			{X: 16, Y: 32, Amp: 64, BufTime: 128},
			{X: 256, Y: 512, Amp: 0, Kind: mcpd.SelfTrigger, BufTime: 1024},
		},
	},
}

func refStream(t *testing.T) []byte {
	t.Helper()

	buf := new(bytes.Buffer)
	enc := mcpd.NewEncoder(buf)
	err := enc.WritePreamble(nil)
	if err != nil {
		t.Fatalf("could not write preamble: %+v", err)
	}
	for i := range refBuffers {
		err = enc.Encode(&refBuffers[i])
		if err != nil {
			t.Fatalf("could not encode buffer %d: %+v", i, err)
		}
	}
	err = enc.Close()
	if err != nil {
		t.Fatalf("could not close mdat stream: %+v", err)
	}
	return buf.Bytes()
}

func refRecords() []mcpd.Record {
	var recs []mcpd.Record
	for _, buf := range refBuffers {
		for _, evt := range buf.Events {
			evt.Time = uint64(evt.BufTime) + buf.Header.Timestamp
			recs = append(recs, mcpd.NewRecord(buf.Header, evt))
		}
	}
	return recs
}

func TestConvertROOT(t *testing.T) {
	var (
		fname = filepath.Join(t.TempDir(), "out.root")
		out   = new(strings.Builder)
		msg   = log.New(out, "", 0)
	)

	w, err := Create(fname, Options{})
	if err != nil {
		t.Fatalf("could not create ROOT file: %+v", err)
	}
	defer w.Close()

	stats, err := Convert(w, bytes.NewReader(refStream(t)), nil, 2, msg)
	if err != nil {
		t.Fatalf("could not convert mdat stream: %+v", err)
	}

	if got, want := stats, (mcpd.Stats{Buffers: 3, Events: 5}); got != want {
		t.Fatalf("invalid stats: got=%+v, want=%+v", got, want)
	}

	if got, want := w.(*ROOTWriter).Entries(), int64(5); got != want {
		t.Fatalf("invalid number of entries: got=%d, want=%d", got, want)
	}

	err = w.Close()
	if err != nil {
		t.Fatalf("could not close ROOT file: %+v", err)
	}

	if got, want := out.String(), "processing entry number: 2\nprocessing entry number: 4\n"; got != want {
		t.Fatalf("invalid progress report:\ngot:\n%s\nwant:\n%s", got, want)
	}

	f, err := groot.Open(fname)
	if err != nil {
		t.Fatalf("could not open ROOT file: %+v", err)
	}
	defer f.Close()

	o, err := f.Get(DefaultTree)
	if err != nil {
		t.Fatalf("could not retrieve tree: %+v", err)
	}
	tree := o.(rtree.Tree)
	if got, want := tree.Title(), DefaultTitle; got != want {
		t.Fatalf("invalid tree title: got=%q, want=%q", got, want)
	}

	for _, name := range []string{
		"xpos", "ypos", "amp", "time", "eventID", "eventTS",
		"mcpdID", "status", "param0", "param1", "param2", "param3",
	} {
		if tree.Branch(name) == nil {
			t.Fatalf("could not find branch %q", name)
		}
	}

	var (
		evt rawEvent
		got []rawEvent
	)
	r, err := rtree.NewReader(tree, rtree.ReadVarsFromStruct(&evt))
	if err != nil {
		t.Fatalf("could not create tree reader: %+v", err)
	}
	defer r.Close()

	err = r.Read(func(ctx rtree.RCtx) error {
		got = append(got, evt)
		return nil
	})
	if err != nil {
		t.Fatalf("could not read tree: %+v", err)
	}

	var want []rawEvent
	for _, rec := range refRecords() {
		var evt rawEvent
		evt.set(rec)
		want = append(want, evt)
	}

	if !reflect.DeepEqual(got, want) {
		t.Fatalf("invalid tree content:\ngot= %+v\nwant=%+v", got, want)
	}
}

func TestConvertLCIO(t *testing.T) {
	fname := filepath.Join(t.TempDir(), "out.slcio")

	w, err := Create(fname, Options{Compression: flate.BestCompression})
	if err != nil {
		t.Fatalf("could not create LCIO file: %+v", err)
	}
	defer w.Close()

	stats, err := Convert(w, bytes.NewReader(refStream(t)), nil, 0, nil)
	if err != nil {
		t.Fatalf("could not convert mdat stream: %+v", err)
	}
	if got, want := stats, (mcpd.Stats{Buffers: 3, Events: 5}); got != want {
		t.Fatalf("invalid stats: got=%+v, want=%+v", got, want)
	}

	err = w.Close()
	if err != nil {
		t.Fatalf("could not close LCIO file: %+v", err)
	}

	r, err := lcio.Open(fname)
	if err != nil {
		t.Fatalf("could not open LCIO file: %+v", err)
	}
	defer r.Close()

	var (
		ievt int
		recs = refRecords()
		irec int
	)
	for r.Next() {
		evt := r.Event()
		hdr := refBuffers[ievt].Header
		if got, want := evt.EventNumber, int32(ievt); got != want {
			t.Fatalf("invalid event number: got=%d, want=%d", got, want)
		}
		if got, want := evt.RunNumber, int32(hdr.RunID); got != want {
			t.Fatalf("invalid run number: got=%d, want=%d", got, want)
		}
		if got, want := evt.TimeStamp, int64(hdr.Timestamp); got != want {
			t.Fatalf("invalid event time stamp: got=%d, want=%d", got, want)
		}

		coll := evt.Get(lcioCollection).(*lcio.GenericObject)
		if got, want := len(coll.Data), len(refBuffers[ievt].Events); got != want {
			t.Fatalf("evt %d: invalid number of records: got=%d, want=%d", ievt, got, want)
		}

		got, err := LCIORecords(&evt)
		if err != nil {
			t.Fatalf("evt %d: could not decode records: %+v", ievt, err)
		}
		if want := recs[irec : irec+len(coll.Data)]; !reflect.DeepEqual(got, want) {
			t.Fatalf("evt %d: invalid records:\ngot= %+v\nwant=%+v", ievt, got, want)
		}

		for _, data := range coll.Data {
			rec := recs[irec]
			i32s := []int32{
				int32(rec.X), int32(rec.Y), int32(rec.Amp),
				int32(rec.Kind), int32(rec.BufTime),
				int32(rec.DeviceID), int32(rec.Status),
			}
			f64s := []float64{
				float64(rec.Time),
				float64(rec.Params[0]), float64(rec.Params[1]),
				float64(rec.Params[2]), float64(rec.Params[3]),
			}
			if !reflect.DeepEqual(data.I32s, i32s) {
				t.Fatalf("rec %d: invalid i32s: got=%v, want=%v", irec, data.I32s, i32s)
			}
			if !reflect.DeepEqual(data.F64s, f64s) {
				t.Fatalf("rec %d: invalid f64s: got=%v, want=%v", irec, data.F64s, f64s)
			}
			irec++
		}
		ievt++
	}
	err = r.Err()
	if err != nil && !errors.Is(err, io.EOF) {
		t.Fatalf("could not read LCIO file: %+v", err)
	}

	if got, want := ievt, len(refBuffers); got != want {
		t.Fatalf("invalid number of LCIO events: got=%d, want=%d", got, want)
	}
	if got, want := irec, len(recs); got != want {
		t.Fatalf("invalid number of records: got=%d, want=%d", got, want)
	}
}

func TestConvertTruncated(t *testing.T) {
	raw := refStream(t)
	raw = raw[:mcpd.PreambleSize+2*(mcpd.HeaderWords+mcpd.EntryWords)+3]

	var recs []mcpd.Record
	stats, err := Convert(mcpd.SinkFunc(func(rec mcpd.Record) error {
		recs = append(recs, rec)
		return nil
	}), bytes.NewReader(raw), nil, 1, nil)
	if !errors.Is(err, mcpd.ErrTruncated) {
		t.Fatalf("invalid error: %+v", err)
	}
	if got, want := stats, (mcpd.Stats{Events: 1}); got != want {
		t.Fatalf("invalid stats: got=%+v, want=%+v", got, want)
	}
	if got, want := recs, refRecords()[:1]; !reflect.DeepEqual(got, want) {
		t.Fatalf("invalid records:\ngot= %+v\nwant=%+v", got, want)
	}
}

func TestConvertTruncatedLCIO(t *testing.T) {
	var (
		raw   = refStream(t)
		fname = filepath.Join(t.TempDir(), "out.slcio")
		size  = func(n int) int {
			return 2 * (mcpd.HeaderWords + mcpd.EntryWords*n + mcpd.NumPaddingWords)
		}
	)
	// cut the stream inside the last event of the last buffer.
	raw = raw[:mcpd.PreambleSize+size(2)+size(0)+2*(mcpd.HeaderWords+2*mcpd.EntryWords)+3]

	w, err := Create(fname, Options{Compression: flate.DefaultCompression})
	if err != nil {
		t.Fatalf("could not create LCIO file: %+v", err)
	}

	stats, err := Convert(w, bytes.NewReader(raw), nil, 0, nil)
	if !errors.Is(err, mcpd.ErrTruncated) {
		t.Fatalf("invalid error: %+v", err)
	}
	if got, want := stats, (mcpd.Stats{Buffers: 2, Events: 4}); got != want {
		t.Fatalf("invalid stats: got=%+v, want=%+v", got, want)
	}

	err = w.Close()
	if err != nil {
		t.Fatalf("could not close LCIO file: %+v", err)
	}

	r, err := lcio.Open(fname)
	if err != nil {
		t.Fatalf("could not open LCIO file: %+v", err)
	}
	defer r.Close()

	var (
		recs    []mcpd.Record
		nevts   int
		partial []int32
	)
	for r.Next() {
		evt := r.Event()
		vs, err := LCIORecords(&evt)
		if err != nil {
			t.Fatalf("evt %d: could not decode records: %+v", nevts, err)
		}
		recs = append(recs, vs...)
		partial = append(partial, int32(len(evt.Params.Ints["Partial"])))
		nevts++
	}
	err = r.Err()
	if err != nil && !errors.Is(err, io.EOF) {
		t.Fatalf("could not read LCIO file: %+v", err)
	}

	if got, want := nevts, 3; got != want {
		t.Fatalf("invalid number of LCIO events: got=%d, want=%d", got, want)
	}
	if got, want := partial, []int32{0, 0, 1}; !reflect.DeepEqual(got, want) {
		t.Fatalf("invalid partial flags: got=%v, want=%v", got, want)
	}
	if got, want := int64(len(recs)), stats.Events; got != want {
		t.Fatalf("invalid number of records: got=%d, want=%d", got, want)
	}
	if got, want := recs, refRecords()[:4]; !reflect.DeepEqual(got, want) {
		t.Fatalf("invalid records:\ngot= %+v\nwant=%+v", got, want)
	}
}

func TestLCIORecordsErrors(t *testing.T) {
	evt := lcio.Event{EventNumber: 3}
	_, err := LCIORecords(&evt)
	if got, want := err.Error(), `xcnv: LCIO event 3 has no "MCPD_EVENTS" collection`; got != want {
		t.Fatalf("invalid error:\ngot= %s\nwant=%s", got, want)
	}

	evt.Add(lcioCollection, &lcio.GenericObject{
		Data: []lcio.GenericObjectData{
			{I32s: []int32{1, 2, 3}},
		},
	})
	_, err = LCIORecords(&evt)
	if got, want := err.Error(), "xcnv: LCIO event 3: invalid record 0 (i32s=3, f64s=0)"; got != want {
		t.Fatalf("invalid error:\ngot= %s\nwant=%s", got, want)
	}
}

func TestCreate(t *testing.T) {
	_, err := Create(filepath.Join(t.TempDir(), "out.txt"), Options{})
	if got, want := err.Error(), `xcnv: unknown output file format ".txt"`; got != want {
		t.Fatalf("invalid error:\ngot= %s\nwant=%s", got, want)
	}
}
