// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command mdat-srv starts a TDAQ server publishing the records of an
// MCPD list-mode data file.
//
// Each record is published on the "/mcpd" output as a marshaled
// mcpd.Record.
//
// Usage: mdat-srv [TDAQ-OPTIONS] file.mdat
package main // import "github.com/go-lpc/mdat/cmd/mdat-srv"

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"sync/atomic"

	"github.com/go-daq/tdaq"
	"github.com/go-daq/tdaq/flags"
	"github.com/go-lpc/mdat/internal/mmap"
	"github.com/go-lpc/mdat/mcpd"
)

func main() {
	cmd := flags.New()

	var dev server
	if len(cmd.Args) > 0 {
		dev.fname = cmd.Args[0]
	}

	srv := tdaq.New(cmd, os.Stdout)
	srv.CmdHandle("/config", dev.OnConfig)
	srv.CmdHandle("/init", dev.OnInit)
	srv.CmdHandle("/reset", dev.OnReset)
	srv.CmdHandle("/start", dev.OnStart)
	srv.CmdHandle("/stop", dev.OnStop)
	srv.CmdHandle("/quit", dev.OnQuit)

	srv.OutputHandle("/mcpd", dev.mcpd)

	srv.RunHandle(dev.run)

	err := srv.Run(context.Background())
	if err != nil {
		log.Panicf("error: %+v", err)
	}
}

type server struct {
	fname string // input mdat file

	f     *mmap.Handle
	data  chan []byte
	n     atomic.Int64 // number of published records
	stats mcpd.Stats
}

func (dev *server) OnConfig(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /config command...")
	if len(req.Body) > 0 {
		dec := tdaq.NewDecoder(bytes.NewReader(req.Body))
		fname := dec.ReadStr()
		if err := dec.Err(); err != nil {
			ctx.Msg.Errorf("could not decode /config request: %+v", err)
			return fmt.Errorf("could not decode /config request: %w", err)
		}
		dev.fname = fname
	}

	if dev.fname == "" {
		ctx.Msg.Errorf("no input mdat file")
		return fmt.Errorf("no input mdat file")
	}

	_, err := os.Stat(dev.fname)
	if err != nil {
		ctx.Msg.Errorf("could not stat mdat file %q: %+v", dev.fname, err)
		return fmt.Errorf("could not stat mdat file %q: %w", dev.fname, err)
	}

	ctx.Msg.Infof("mdat file: %q", dev.fname)
	return nil
}

func (dev *server) OnInit(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /init command...")
	return dev.open(ctx)
}

func (dev *server) OnReset(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /reset command...")
	dev.close()
	return dev.open(ctx)
}

func (dev *server) OnStart(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /start command...")
	if dev.f == nil {
		return fmt.Errorf("mdat file %q not initialized", dev.fname)
	}
	return nil
}

func (dev *server) OnStop(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	n := dev.n.Load()
	ctx.Msg.Debugf("received /stop command... -> n=%d", n)
	return nil
}

func (dev *server) OnQuit(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /quit command...")
	dev.close()
	return nil
}

func (dev *server) open(ctx tdaq.Context) error {
	f, err := mmap.Open(dev.fname)
	if err != nil {
		ctx.Msg.Errorf("could not open mdat file %q: %+v", dev.fname, err)
		return fmt.Errorf("could not open mdat file %q: %w", dev.fname, err)
	}
	dev.f = f
	dev.data = make(chan []byte, 1024)
	dev.n.Store(0)
	dev.stats = mcpd.Stats{}
	return nil
}

func (dev *server) close() {
	if dev.f == nil {
		return
	}
	_ = dev.f.Close()
	dev.f = nil
}

func (dev *server) mcpd(ctx tdaq.Context, dst *tdaq.Frame) error {
	select {
	case <-ctx.Ctx.Done():
		dst.Body = nil
		return nil
	case data := <-dev.data:
		dst.Body = data
	}
	return nil
}

func (dev *server) run(ctx tdaq.Context) error {
	src := io.NewSectionReader(dev.f, 0, int64(dev.f.Len()))
	r := mcpd.NewReader(src)
	err := r.Run(mcpd.SinkFunc(func(rec mcpd.Record) error {
		raw, err := rec.MarshalBinary()
		if err != nil {
			return fmt.Errorf("could not marshal record: %w", err)
		}
		select {
		case <-ctx.Ctx.Done():
			return ctx.Ctx.Err()
		case dev.data <- raw:
			dev.n.Add(1)
		}
		return nil
	}))
	dev.stats = r.Stats()

	switch {
	case err == nil:
		ctx.Msg.Infof("A total of %d events were read from %d buffers", dev.stats.Events, dev.stats.Buffers)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		ctx.Msg.Infof("run stopped after %d events", dev.stats.Events)
		return nil
	default:
		ctx.Msg.Errorf("could not decode mdat file %q: %+v", dev.fname, err)
		return fmt.Errorf("could not decode mdat file %q: %w", dev.fname, err)
	}

	<-ctx.Ctx.Done()
	return nil
}
