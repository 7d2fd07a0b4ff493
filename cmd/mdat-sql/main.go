// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command mdat-sql inspects the catalog of mdat conversions.
//
// Example:
//
//	$> mdat-sql
//	mdat-sql: last: run=42 input="run-42.mdat" output="run-42.root" buffers=12 events=1234 status="ok"
//	$> mdat-sql -input run-42.mdat
//	mdat-sql: conversions: 2
//	mdat-sql: row[0]: 2024-02-01T10:11:12Z run=42 output="run-42.root" buffers=12 events=1234 status="ok"
//	mdat-sql: row[1]: 2024-02-02T08:00:00Z run=42 output="run-42.slcio" buffers=12 events=1234 status="ok"
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/go-lpc/mdat/rundb"
)

var (
	msg = log.New(os.Stdout, "mdat-sql: ", 0)
)

func main() {
	var (
		dbname = flag.String("db", "mdat", "name of the run catalog database")
		input  = flag.String("input", "", "mdat input file to inspect (default: last conversion)")
	)

	flag.Parse()

	db, err := rundb.Open(*dbname)
	if err != nil {
		msg.Fatalf("could not open run catalog: %+v", err)
	}
	defer db.Close()

	err = doQuery(db, *input)
	if err != nil {
		msg.Fatalf("could not do query: %+v", err)
	}
}

type catalog interface {
	LastConversion(ctx context.Context) (rundb.Conversion, error)
	Conversions(ctx context.Context, input string) ([]rundb.Conversion, error)
}

func doQuery(db catalog, input string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if input == "" {
		cnv, err := db.LastConversion(ctx)
		if err != nil {
			return fmt.Errorf("could not get last conversion: %w", err)
		}
		msg.Printf(
			"last: run=%d input=%q output=%q buffers=%d events=%d status=%q",
			cnv.Run, cnv.Input, cnv.Output, cnv.Buffers, cnv.Events, cnv.Status,
		)
		return nil
	}

	cnvs, err := db.Conversions(ctx, input)
	if err != nil {
		return fmt.Errorf("could not get conversions of %q: %w", input, err)
	}
	msg.Printf("conversions: %d", len(cnvs))
	for i, cnv := range cnvs {
		msg.Printf(
			"row[%d]: %s run=%d output=%q buffers=%d events=%d status=%q",
			i, cnv.Date.UTC().Format(time.RFC3339),
			cnv.Run, cnv.Output, cnv.Buffers, cnv.Events, cnv.Status,
		)
	}

	return nil
}
