// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// mdat-dump decodes and displays MCPD list-mode data files.
//
// Usage: mdat-dump [OPTIONS] FILE1 [FILE2 [FILE3 ...]]
//
// Example:
//
//	$> mdat-dump -v buffers ./testdata/run-42.mdat
//	=== buffer 1 ===
//	Buffer length:             27
//	Entries:                    2
//	Header length:             21
//	Run ID:                    42
//	MCPD ID:                    1
//	Status:                     0
//	Timestamp:               1000
//	Parameter 0:                1
//	Parameter 1:                2
//	Parameter 2:                3
//	Parameter 3:                4
//	[...]
//	A total of 5 events were read from 3 buffers
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/go-lpc/mdat/mcpd"
)

func main() {
	log.SetPrefix("mdat-dump: ")
	log.SetFlags(0)

	xmain(os.Stdout, os.Args[1:])
}

func xmain(w io.Writer, args []string) {
	fset := flag.NewFlagSet("mdat-dump", flag.ExitOnError)
	verb := fset.String("v", "all", "verbosity (none|all|buffers,events,padding|bitmask)")

	fset.Usage = func() {
		fmt.Printf(`mdat-dump decodes and displays MCPD list-mode data files.

Usage: mdat-dump [OPTIONS] FILE1 [FILE2 [FILE3 ...]]

Example:

 $> mdat-dump -v buffers ./testdata/run-42.mdat
 $> mdat-dump -v 3 ./testdata/run-42.mdat

Options:
`)
		fset.PrintDefaults()
	}

	err := fset.Parse(args)
	if err != nil {
		log.Fatalf("could not parse input arguments: %+v", err)
	}

	if fset.NArg() == 0 {
		fset.Usage()
		log.Fatalf("missing path to input mdat file")
	}

	v, err := mcpd.ParseVerbosity(*verb)
	if err != nil {
		log.Fatalf("invalid verbosity: %+v", err)
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

	f, err := os.Open(fname)
	if err != nil {
		return fmt.Errorf("could not open %q: %w", fname, err)
	}
	defer f.Close()

	r := mcpd.NewReader(bufio.NewReader(f))
	r.Observer = mcpd.NewPrinter(wbuf, v)

	err = r.Run(mcpd.SinkFunc(func(mcpd.Record) error { return nil }))
	if err != nil {
		return fmt.Errorf("could not decode mdat file: %w", err)
	}

	stats := r.Stats()
	fmt.Fprintf(wbuf, "A total of %d events were read from %d buffers\n", stats.Events, stats.Buffers)

	return nil
}
