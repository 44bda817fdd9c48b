/*
DESCRIPTION
  annexbdump reads an Annex-B H.264 elementary stream and prints one
  summary line per access unit: NAL count, kind, keyframe flag, and
  the active SPS's dimensions and codec string once one has been seen.

AUTHORS
  Dan Kereama <dan@streamhdr.io>
*/

// Command annexbdump prints a per-access-unit summary of an Annex-B
// H.264 elementary stream.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/streamhdr/annexb264/codec/h264"
	"github.com/streamhdr/annexb264/codec/h264/h264dec"
	"github.com/streamhdr/annexb264/internal/alog"
)

const (
	logPath      = "annexbdump.log"
	logMaxSizeMB = 10
	logMaxBackup = 3
	logMaxAgeDay = 28
)

func main() {
	verbose := flag.Bool("v", false, "verbose diagnostics")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: annexbdump <file.h264>")
		os.Exit(1)
	}

	level := alog.Info
	if *verbose {
		level = alog.Debug
	}
	log := alog.NewFileLogger(logPath, logMaxSizeMB, logMaxBackup, logMaxAgeDay, level, true)

	data, err := os.ReadFile(flag.Arg(0))
	if err != nil {
		log.Log(alog.Error, "could not read input file", "error", err.Error())
		os.Exit(1)
	}
	log.Log(alog.Debug, "read input file", "bytes", len(data))

	p := h264.NewParser()
	p.Push(data)
	p.Finish()

	var (
		n          int
		activeSps  *h264dec.Sps
		codecPrint string
	)
	for {
		au, err := p.NextAccessUnit()
		if err != nil {
			log.Log(alog.Error, "parse error", "error", err.Error())
			os.Exit(2)
		}
		if au == nil {
			break
		}
		n++
		if au.Sps != nil {
			activeSps = au.Sps
		}
		if activeSps != nil && codecPrint == "" {
			codecPrint = activeSps.CodecString()
		}

		dims := "unknown"
		if activeSps != nil {
			dims = fmt.Sprintf("%dx%d", activeSps.Width, activeSps.Height)
		}
		fmt.Printf("au=%d nals=%d kind=%v keyframe=%v dims=%s codec=%s\n",
			n, len(au.Nals), au.Kind, au.IsKeyframe, dims, codecPrint)
	}

	log.Log(alog.Info, "done", "access_units", n)
}
