// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command lcio-rewrite-run reads a LCIO file produced by mdat2root and
// rewrites its run number with the provided value.
//
// Events without a valid MCPD records collection are rejected.
package main // import "github.com/go-lpc/mdat/cmd/lcio-rewrite-run"

import (
	"compress/flate"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/go-lpc/mdat/internal/xcnv"
	"go-hep.org/x/hep/lcio"
)

var msg = log.New(os.Stdout, "lcio-rewrite: ", 0)

func main() {
	xmain(os.Args[1:])
}

func xmain(args []string) {
	var (
		fset   = flag.NewFlagSet("lcio-rewrite-run", flag.ExitOnError)
		runnbr = fset.Int("run", 0, "run number to use for output LCIO file")
		oname  = fset.String("o", "out.slcio", "path to output rewritten LCIO file")
	)

	fset.Usage = func() {
		fmt.Printf(`Usage: lcio-rewrite-run [OPTIONS] FILE.slcio

ex:
 $> lcio-rewrite-run -o output.slcio -run=1234 ./input.slcio
 lcio-rewrite: processing event 0...
 lcio-rewrite: processing event 10...
 lcio-rewrite: processing event 20...
 lcio-rewrite: processing event 30...
 lcio-rewrite: processed 36 events (1234 records)

options:
`)
		fset.PrintDefaults()
	}

	err := fset.Parse(args)
	if err != nil {
		msg.Fatalf("could not parse input arguments: %+v", err)
	}

	if fset.NArg() != 1 {
		fset.Usage()
		msg.Fatalf("missing input LCIO file to rewrite")
	}

	_, err = rewrite(*oname, fset.Arg(0), int32(*runnbr))
	if err != nil {
		msg.Fatalf("could not rewrite %q: %+v", fset.Arg(0), err)
	}
}

func rewrite(oname, fname string, run int32) (int, error) {
	r, err := lcio.Open(fname)
	if err != nil {
		return 0, fmt.Errorf("could not open input LCIO file: %w", err)
	}
	defer r.Close()

	w, err := lcio.Create(oname)
	if err != nil {
		return 0, fmt.Errorf("could not create output LCIO file: %w", err)
	}
	defer w.Close()

	w.SetCompressionLevel(flate.BestCompression)

	n, err := process(w, r, run)
	if err != nil {
		return n, err
	}

	err = w.Close()
	if err != nil {
		return n, fmt.Errorf("could not close output file: %w", err)
	}
	return n, nil
}

func process(w *lcio.Writer, r *lcio.Reader, run int32) (int, error) {
	var (
		rhdr lcio.RunHeader
		i    = 0
		nrec = 0
	)
	for r.Next() {
		if i == 0 {
			rhdr = r.RunHeader()
			rhdr.RunNumber = run

			err := w.WriteRunHeader(&rhdr)
			if err != nil {
				return i, fmt.Errorf("could not write run header: %w", err)
			}
		}

		evt := r.Event()
		recs, err := xcnv.LCIORecords(&evt)
		if err != nil {
			return i, fmt.Errorf("could not decode MCPD records: %w", err)
		}
		nrec += len(recs)

		evt.RunNumber = run
		if i%10 == 0 {
			msg.Printf("processing event %d...", evt.EventNumber)
		}
		err = w.WriteEvent(&evt)
		if err != nil {
			return i, fmt.Errorf("could not write evt %d: %w", evt.EventNumber, err)
		}
		i++
	}

	err := r.Err()
	if err != nil && err != io.EOF {
		return i, fmt.Errorf("could not read LCIO file: %w", err)
	}

	msg.Printf("processed %d events (%d records)", i, nrec)

	return i, nil
}
