// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command mdat-batch converts a set of MCPD list-mode data files, running
// one mdat2root process per input file.
//
// The output of each conversion is stored under the log directory, as
// well as the optional pmon monitoring data of each process.
package main // import "github.com/go-lpc/mdat/cmd/mdat-batch"

import (
	"crypto/tls"
	"flag"
	"fmt"
	"log"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/sbinet/pmon"
	"golang.org/x/sync/errgroup"
	mail "gopkg.in/gomail.v2"
)

func main() {
	log.SetPrefix("mdat-batch: ")
	log.SetFlags(0)

	var (
		bin    = flag.String("bin", "mdat2root", "path to the mdat2root command")
		args   = flag.String("args", "", "space separated list of arguments passed to mdat2root")
		dir    = flag.String("log", os.Getenv("MDAT_LOGDIR"), "directory holding conversion logs (default: /var/log/mdat)")
		njobs  = flag.Int("j", runtime.NumCPU(), "maximum number of concurrent conversions")
		doMon  = flag.Bool("pmon", false, "enable pmon monitoring")
		doFreq = flag.Duration("freq", 1*time.Second, "pmon frequency")
		alert  = flag.Bool("alert", false, "send a mail alert when a conversion fails")
	)

	flag.Usage = func() {
		fmt.Printf(`Usage: mdat-batch [OPTIONS] file1.mdat [file2.mdat [...]]

ex:
 $> mdat-batch -j 4 -pmon ./runs/*.mdat
 $> mdat-batch -args="-lvl=9 -cfg=mdat.yaml" ./run-42.mdat

options:
`)
		flag.PrintDefaults()
	}

	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		log.Fatalf("missing input mdat files")
	}

	b := batch{
		bin:   *bin,
		args:  strings.Fields(*args),
		dir:   *dir,
		njobs: *njobs,
		mon:   *doMon,
		freq:  *doFreq,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	defer signal.Stop(stop)

	err := b.run(flag.Args(), stop)
	if err != nil {
		if *alert {
			alertMail(err)
		}
		log.Fatalf("%+v", err)
	}
}

type batch struct {
	bin   string   // converter command
	args  []string // converter arguments, prepended to the input file name
	dir   string   // log directory
	njobs int
	mon   bool
	freq  time.Duration
}

func (b batch) run(fnames []string, stop chan os.Signal) error {
	dir := b.dir
	if dir == "" {
		dir = "/var/log/mdat"
	}
	err := os.MkdirAll(dir, 0755)
	if err != nil {
		return fmt.Errorf("could not create log directory: %w", err)
	}

	var (
		grp  errgroup.Group
		kill = make(chan int)
		done = make(chan int)
	)
	defer close(done)

	if b.njobs > 0 {
		grp.SetLimit(b.njobs)
	}

	go func() {
		select {
		case <-stop:
			close(kill)
		case <-done:
		}
	}()

	for i, fname := range fnames {
		name := fmt.Sprintf("%03d-%s", i, filepath.Base(fname))
		args := append(append([]string(nil), b.args...), fname)
		cmd := exec.Command(b.bin, args...)
		grp.Go(func() error {
			return b.start(cmd, name, dir, kill)
		})
	}

	err = grp.Wait()
	if err != nil {
		return fmt.Errorf("could not convert mdat files: %w", err)
	}
	return nil
}

func (b batch) start(cmd *exec.Cmd, name, dir string, kill chan int) error {
	select {
	case <-kill:
		return nil
	default:
	}

	out, err := os.Create(filepath.Join(dir, name+".log"))
	if err != nil {
		return fmt.Errorf("could not create output log file for %q: %w", name, err)
	}
	defer out.Close()

	cmd.Stdout = out
	cmd.Stderr = out

	log.Printf("starting %q...", name)
	err = cmd.Start()
	if err != nil {
		return fmt.Errorf("could not start %q: %w", name, err)
	}

	if b.mon {
		p, err := pmon.Monitor(cmd.Process.Pid)
		if err != nil {
			return fmt.Errorf("could not start monitoring %q (pid=%d): %w", name, cmd.Process.Pid, err)
		}
		f, err := os.Create(filepath.Join(dir, name+"-pmon.log"))
		if err != nil {
			return fmt.Errorf("could not create pmon log file for %q: %w", name, err)
		}
		defer f.Close()
		p.W = f
		p.Freq = b.freq

		go func() {
			err := p.Run()
			if err != nil {
				log.Printf("could not start monitoring %q: %+v", name, err)
			}
		}()

		defer func() {
			err := p.Kill()
			if err != nil {
				log.Printf("could not stop monitoring %q: %+v", name, err)
			}
		}()
	}

	errch := make(chan error, 1)
	go func() {
		errch <- cmd.Wait()
	}()

	select {
	case <-kill:
		err = cmd.Process.Kill()
		if err != nil {
			return fmt.Errorf("could not kill %q: %w", name, err)
		}
		<-errch
		log.Printf("killed %q", name)
	case err = <-errch:
		if err != nil {
			return fmt.Errorf("could not run %q (see %s): %w",
				name, out.Name(), err,
			)
		}
		log.Printf("converted %q", name)
	}

	return nil
}

var (
	alertMailUsr  = os.Getenv("MAIL_USERNAME")
	alertMailPwd  = os.Getenv("MAIL_PASSWORD")
	alertMailSrv  = os.Getenv("MAIL_SERVER")
	alertMailPort = atoi(os.Getenv("MAIL_PORT"))
	alertMailTgts = strings.Split(os.Getenv("MAIL_TGTS"), ",")
)

func alertMail(err error) {
	m, ok := newAlert(err)
	if !ok {
		log.Printf("could not send mail alert: missing credentials")
		return
	}

	dial := mail.NewDialer(alertMailSrv, alertMailPort, alertMailUsr, alertMailPwd)
	dial.TLSConfig = &tls.Config{
		InsecureSkipVerify: true,
	}
	err = dial.DialAndSend(m)
	if err != nil {
		log.Printf("could not send mail alert: %+v", err)
	}
}

func newAlert(err error) (*mail.Message, bool) {
	if alertMailUsr == "" || alertMailPwd == "" ||
		alertMailSrv == "" || alertMailPort == 0 ||
		len(alertMailTgts) == 0 || alertMailTgts[0] == "" {
		return nil, false
	}

	host, _ := os.Hostname()
	msg := mail.NewMessage()
	msg.SetHeader("From", alertMailUsr)
	msg.SetHeader("Bcc", alertMailTgts...)
	msg.SetHeader("Subject", fmt.Sprintf("[mdat-batch] conversion failure on %q", host))
	msg.SetBody("text/plain", fmt.Sprintf("error: %+v\n", err))
	return msg, true
}

func atoi(s string) int {
	if s == "" {
		return 0
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		log.Printf("could not parse %q: %+v", s, err)
		return 0
	}
	return v
}
