// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package rundb holds types to record and retrieve the conversions of
// MCPD runs from the run catalog database.
package rundb // import "github.com/go-lpc/mdat/rundb"

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	"github.com/go-sql-driver/mysql"
)

const (
	timeout = 5 * time.Second
)

var (
	drvName = "mysql"
)

// Conversion describes the conversion of an mdat file.
type Conversion struct {
	Input   string    // input mdat file
	Output  string    // output file
	Run     uint16    // run ID of the first buffer
	Buffers int64     // number of decoded buffers
	Events  int64     // number of decoded events
	Status  string    // "ok" or the conversion error
	Date    time.Time // date of the conversion
}

// DB exposes convenience methods to record and retrieve conversions
// from the run catalog.
type DB struct {
	db   *sql.DB
	name string // name of the run catalog database
}

// Open opens a connection to the run catalog database dbname.
//
// Credentials and server address are taken from the MDAT_DB_USER,
// MDAT_DB_PASS and MDAT_DB_ADDR environment variables.
func Open(dbname string) (*DB, error) {
	db, err := sql.Open(drvName, dsn(dbname))
	if err != nil {
		return nil, fmt.Errorf("rundb: could not open %q db: %w", dbname, err)
	}

	err = ping(db, dbname)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &DB{db: db, name: dbname}, nil
}

func dsn(dbname string) string {
	cfg := mysql.NewConfig()
	cfg.User = getenv("MDAT_DB_USER", "username")
	cfg.Passwd = getenv("MDAT_DB_PASS", "s3cr3t")
	cfg.Net = "tcp"
	cfg.Addr = getenv("MDAT_DB_ADDR", "localhost:3306")
	cfg.DBName = dbname
	cfg.ParseTime = true
	cfg.Timeout = timeout
	return cfg.FormatDSN()
}

func getenv(k, def string) string {
	v, ok := os.LookupEnv(k)
	if !ok || v == "" {
		return def
	}
	return v
}

func ping(db *sql.DB, dbname string) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	err := db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("rundb: could not ping %q db: %w", dbname, err)
	}

	return nil
}

func (db *DB) Close() error {
	return db.db.Close()
}

func (db *DB) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	return db.db.QueryContext(ctx, query, args...)
}

// AddConversion records a conversion in the catalog.
// A zero conversion date is replaced with the current time.
func (db *DB) AddConversion(ctx context.Context, cnv Conversion) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if cnv.Date.IsZero() {
		cnv.Date = time.Now().UTC()
	}

	_, err := db.db.ExecContext(
		ctx,
		`INSERT INTO conversions (input, output, run, buffers, events, status, datetime) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		cnv.Input, cnv.Output, cnv.Run, cnv.Buffers, cnv.Events, cnv.Status, cnv.Date,
	)
	if err != nil {
		return fmt.Errorf("rundb: could not insert conversion of %q: %w", cnv.Input, err)
	}

	return nil
}

// Conversions returns all the conversions of the input file, oldest first.
func (db *DB) Conversions(ctx context.Context, input string) ([]Conversion, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var cnvs []Conversion
	rows, err := db.db.QueryContext(
		ctx,
		`SELECT input, output, run, buffers, events, status, datetime FROM conversions WHERE input=? ORDER BY datetime`,
		input,
	)
	if err != nil {
		return cnvs, fmt.Errorf("rundb: could not query conversions of %q: %w", input, err)
	}
	defer rows.Close()

	for rows.Next() {
		var cnv Conversion
		err = scan(rows, &cnv)
		if err != nil {
			return cnvs, fmt.Errorf("rundb: could not scan conversion of %q: %w", input, err)
		}
		cnvs = append(cnvs, cnv)
	}

	if err := rows.Err(); err != nil {
		return cnvs, fmt.Errorf("rundb: could not scan db for conversions: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return cnvs, fmt.Errorf("rundb: context error while retrieving conversions: %w", err)
	}

	return cnvs, nil
}

// LastConversion returns the most recent conversion.
// LastConversion returns sql.ErrNoRows when the catalog is empty.
func (db *DB) LastConversion(ctx context.Context) (Conversion, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var cnv Conversion
	rows, err := db.db.QueryContext(
		ctx,
		"SELECT input, output, run, buffers, events, status, datetime FROM conversions ORDER BY datetime DESC LIMIT 1",
	)
	if err != nil {
		return cnv, fmt.Errorf("rundb: could not query last conversion: %w", err)
	}
	defer rows.Close()

	n := 0
	for rows.Next() {
		err = scan(rows, &cnv)
		if err != nil {
			return cnv, fmt.Errorf("rundb: could not scan last conversion: %w", err)
		}
		n++
	}

	if err := rows.Err(); err != nil {
		return cnv, fmt.Errorf("rundb: could not scan db for last conversion: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return cnv, fmt.Errorf("rundb: context error while retrieving last conversion: %w", err)
	}

	if n == 0 {
		return cnv, fmt.Errorf("rundb: no conversion in %q db: %w", db.name, sql.ErrNoRows)
	}

	return cnv, nil
}

func scan(rows *sql.Rows, cnv *Conversion) error {
	return rows.Scan(
		&cnv.Input, &cnv.Output, &cnv.Run,
		&cnv.Buffers, &cnv.Events, &cnv.Status,
		&cnv.Date,
	)
}
