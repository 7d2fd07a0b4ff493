// Copyright 2021 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// lcio-dump decodes and displays MCPD records embedded in LCIO files.
//
// Usage: lcio-dump [OPTIONS] FILE1 [FILE2 [FILE3 ...]]
//
// Example:
//
//	$> lcio-dump -v all ./testdata/run42.slcio
//	=== buffer 1 ===
//	Buffer length:             30
//	Entries:                    3
//	Header length:             21
//	Run ID:                    42
//	MCPD ID:                    1
//	Status:                     0
//	Timestamp:               1000
//	Parameter 0:                1
//	Parameter 1:                2
//	Parameter 2:                3
//	Parameter 3:                4
//	  evt kind=0 x=   5 y=   7 amp=  3 ts=   100 time=1100
//	[...]
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/go-lpc/mdat/internal/xcnv"
	"github.com/go-lpc/mdat/mcpd"
	"go-hep.org/x/hep/lcio"
)

const usage = `lcio-dump decodes and displays MCPD records embedded in LCIO files.

Usage: lcio-dump [OPTIONS] FILE1 [FILE2 [FILE3 ...]]

Example:

 $> lcio-dump -v all ./testdata/run42.slcio
 === buffer 1 ===
 Buffer length:             30
 Entries:                    3
 [...]
   evt kind=0 x=   5 y=   7 amp=  3 ts=   100 time=1100
 [...]

Options:
`

func main() {
	xmain(os.Stdout, os.Args[1:])
}

func xmain(w io.Writer, args []string) {
	log.SetPrefix("lcio-dump: ")
	log.SetFlags(0)

	var (
		fset = flag.NewFlagSet("lcio-dump", flag.ExitOnError)

		verbose = fset.String("v", "all", "verbosity (none, all, or a list of buffers,events)")
	)

	fset.Usage = func() {
		fmt.Print(usage)
		fset.PrintDefaults()
	}

	err := fset.Parse(args)
	if err != nil {
		log.Fatalf("could not parse input arguments: %+v", err)
	}

	if fset.NArg() == 0 {
		fset.Usage()
		log.Fatalf("missing path to input LCIO file")
	}

	v, err := mcpd.ParseVerbosity(*verbose)
	if err != nil {
		log.Fatalf("could not parse verbosity: %+v", err)
	}

	for _, fname := range fset.Args() {
		err := process(w, fname, v)
		if err != nil {
			log.Fatalf("could not dump file %q: %+v", fname, err)
		}
	}
}

func process(w io.Writer, fname string, v mcpd.Verbosity) error {
	wbuf := bufio.NewWriter(w)
	defer wbuf.Flush()

	r, err := lcio.Open(fname)
	if err != nil {
		return fmt.Errorf("could not open LCIO file: %w", err)
	}
	defer r.Close()

	var (
		p     = mcpd.NewPrinter(wbuf, v)
		stats mcpd.Stats
	)
	for r.Next() {
		evt := r.Event()
		recs, err := xcnv.LCIORecords(&evt)
		if err != nil {
			return fmt.Errorf("could not decode LCIO event: %w", err)
		}

		p.OnBuffer(header(&evt, recs))
		for _, rec := range recs {
			p.OnEvent(rec.Event)
		}
		stats.Buffers++
		stats.Events += int64(len(recs))
	}

	err = r.Err()
	if err != nil && err != io.EOF {
		return fmt.Errorf("could not read LCIO file: %w", err)
	}

	fmt.Fprintf(wbuf, "A total of %d events were read from %d buffers\n", stats.Events, stats.Buffers)
	return nil
}

// header rebuilds the MCPD buffer header associated with a LCIO event.
func header(evt *lcio.Event, recs []mcpd.Record) mcpd.BufferHeader {
	param := func(name string) int32 {
		vs := evt.Params.Ints[name]
		if len(vs) == 0 {
			return 0
		}
		return vs[0]
	}

	hdr := mcpd.BufferHeader{
		Length:       uint16(mcpd.HeaderWords + mcpd.EntryWords*len(recs)),
		Type:         mcpd.DataBuffer,
		HeaderLength: mcpd.HeaderWords,
		Number:       uint16(param("BufferNumber")),
		RunID:        uint16(evt.RunNumber),
		DeviceID:     uint8(param("MCPD")),
		Status:       uint8(param("Status")),
		Timestamp:    uint64(evt.TimeStamp),
	}
	if len(recs) > 0 {
		hdr.Params = recs[0].Params
	}
	return hdr
}
