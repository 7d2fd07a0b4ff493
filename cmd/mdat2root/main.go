// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command mdat2root converts an MCPD list-mode data file to a ROOT or
// a LCIO file.
//
// The output file format is selected from the output file extension:
// ".root" for ROOT, ".slcio" or ".lcio" for LCIO.
package main // import "github.com/go-lpc/mdat/cmd/mdat2root"

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-lpc/mdat"
	"github.com/go-lpc/mdat/internal/config"
	"github.com/go-lpc/mdat/internal/mmap"
	"github.com/go-lpc/mdat/internal/xcnv"
	"github.com/go-lpc/mdat/mcpd"
	"github.com/go-lpc/mdat/rundb"
)

var (
	msg = log.New(os.Stdout, "mdat2root: ", 0)
)

func main() {
	xmain(os.Args[1:])
}

func xmain(args []string) {
	var (
		fset = flag.NewFlagSet("mdat2root", flag.ExitOnError)
		def  = config.Default()

		oname = fset.String("o", "", "path to output file (default: input file with .root extension)")
		verb  = fset.String("v", def.Verbosity, "verbosity (none|all|buffers,events,padding|bitmask)")
		cfg   = fset.String("cfg", "", "path to a YAML configuration file")
		tree  = fset.String("tree", def.Tree, "name of the output ROOT tree")
		lvl   = fset.Int("lvl", def.Compression, "compression level for output LCIO file")
		freq  = fset.Int("freq", def.Freq, "progress report frequency, in events")
		db    = fset.String("db", "", "name of the run catalog database")
		vers  = fset.Bool("version", false, "print version and exit")
	)

	fset.Usage = func() {
		fmt.Printf(`Usage: mdat2root [OPTIONS] file.mdat

ex:
 $> mdat2root ./run-42.mdat
 $> mdat2root -o out.slcio -lvl=9 ./run-42.mdat
 $> mdat2root -cfg mdat.yaml -v buffers ./run-42.mdat

options:
`)
		fset.PrintDefaults()
	}

	err := fset.Parse(args)
	if err != nil {
		msg.Fatalf("could not parse input arguments: %+v", err)
	}

	if *vers {
		version, sum := mdat.Version()
		msg.Printf("version: %s %s", version, sum)
		return
	}

	if fset.NArg() != 1 {
		fset.Usage()
		msg.Fatalf("missing input mdat file")
	}

	conf := def
	if *cfg != "" {
		conf, err = config.Load(*cfg)
		if err != nil {
			msg.Fatalf("could not load configuration: %+v", err)
		}
	}

	fset.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "o":
			conf.Output = *oname
		case "v":
			conf.Verbosity = *verb
		case "tree":
			conf.Tree = *tree
		case "lvl":
			conf.Compression = *lvl
		case "freq":
			conf.Freq = *freq
		case "db":
			conf.DB = *db
		}
	})

	err = conf.Validate()
	if err != nil {
		msg.Fatalf("invalid configuration: %+v", err)
	}

	fname := fset.Arg(0)
	if conf.Output == "" {
		conf.Output = outFileFrom(fname)
	}

	err = process(os.Stdout, conf, fname)
	if err != nil {
		msg.Fatalf("could not convert mdat file: %+v", err)
	}
}

func process(stdout io.Writer, cfg config.Config, fname string) error {
	v, err := mcpd.ParseVerbosity(cfg.Verbosity)
	if err != nil {
		return fmt.Errorf("invalid verbosity: %w", err)
	}

	var catalog *rundb.DB
	if cfg.DB != "" {
		catalog, err = rundb.Open(cfg.DB)
		if err != nil {
			return fmt.Errorf("could not open run catalog: %w", err)
		}
		defer catalog.Close()
	}

	obs := &runObserver{Observer: mcpd.NewPrinter(stdout, v)}
	stats, err := convert(cfg, fname, obs)
	if err != nil {
		msg.Printf("conversion failed after %d events from %d buffers", stats.Events, stats.Buffers)
	}

	if catalog != nil {
		status := "ok"
		if err != nil {
			status = err.Error()
		}
		cerr := catalog.AddConversion(context.Background(), rundb.Conversion{
			Input:   fname,
			Output:  cfg.Output,
			Run:     obs.run,
			Buffers: stats.Buffers,
			Events:  stats.Events,
			Status:  status,
		})
		if cerr != nil && err == nil {
			err = fmt.Errorf("could not record conversion: %w", cerr)
		}
	}

	if err != nil {
		return err
	}

	msg.Printf("A total of %d events were read from %d buffers", stats.Events, stats.Buffers)
	return nil
}

func convert(cfg config.Config, fname string, obs mcpd.Observer) (mcpd.Stats, error) {
	var stats mcpd.Stats

	f, err := mmap.Open(fname)
	if err != nil {
		return stats, fmt.Errorf("could not open mdat file: %w", err)
	}
	defer f.Close()

	w, err := xcnv.Create(cfg.Output, xcnv.Options{
		Tree:        cfg.Tree,
		Compression: cfg.Compression,
	})
	if err != nil {
		return stats, fmt.Errorf("could not create output file: %w", err)
	}
	defer w.Close()

	stats, err = xcnv.Convert(w, f, obs, cfg.Freq, msg)
	if err != nil {
		return stats, fmt.Errorf("could not convert mdat file: %w", err)
	}

	err = w.Close()
	if err != nil {
		return stats, fmt.Errorf("could not close output file: %w", err)
	}

	return stats, nil
}

// outFileFrom returns the default output file name for the input mdat file.
func outFileFrom(fname string) string {
	ext := filepath.Ext(fname)
	if strings.EqualFold(ext, ".mdat") {
		fname = strings.TrimSuffix(fname, ext)
	}
	return fname + ".root"
}

// runObserver records the run ID of the first decoded buffer.
type runObserver struct {
	mcpd.Observer

	run  uint16
	seen bool
}

func (o *runObserver) OnBuffer(hdr mcpd.BufferHeader) {
	if !o.seen {
		o.run = hdr.RunID
		o.seen = true
	}
	o.Observer.OnBuffer(hdr)
}
