/*
DESCRIPTION
  annexbroundtrip parses an Annex-B H.264 elementary stream into access
  units and re-serializes them back to Annex-B bytes, for byte-level
  verification that the demultiplexer loses nothing from the source
  stream.

AUTHORS
  Dan Kereama <dan@streamhdr.io>
*/

// Command annexbroundtrip parses then re-serializes an Annex-B H.264
// elementary stream, for round-trip verification.
package main

import (
	"bytes"
	"flag"
	"fmt"
	"os"

	"github.com/streamhdr/annexb264/codec/h264"
	"github.com/streamhdr/annexb264/internal/alog"
)

const (
	logPath      = "annexbroundtrip.log"
	logMaxSizeMB = 10
	logMaxBackup = 3
	logMaxAgeDay = 28
)

func main() {
	verbose := flag.Bool("v", false, "verbose diagnostics")
	out := flag.String("o", "", "output file (defaults to <input>.roundtrip)")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: annexbroundtrip [-o output] <file.h264>")
		os.Exit(1)
	}

	level := alog.Info
	if *verbose {
		level = alog.Debug
	}
	log := alog.NewFileLogger(logPath, logMaxSizeMB, logMaxBackup, logMaxAgeDay, level, true)

	inPath := flag.Arg(0)
	outPath := *out
	if outPath == "" {
		outPath = inPath + ".roundtrip"
	}

	data, err := os.ReadFile(inPath)
	if err != nil {
		log.Log(alog.Error, "could not read input file", "error", err.Error())
		os.Exit(1)
	}

	p := h264.NewParser()
	p.Push(data)
	p.Finish()

	var out2 bytes.Buffer
	var n int
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
		out2.Write(au.AnnexB())
	}

	if err := os.WriteFile(outPath, out2.Bytes(), 0o644); err != nil {
		log.Log(alog.Error, "could not write output file", "error", err.Error())
		os.Exit(1)
	}

	identical := bytes.Equal(data, out2.Bytes())
	log.Log(alog.Info, "round-trip complete", "access_units", n, "identical", identical, "output", outPath)
	fmt.Printf("access_units=%d identical=%v output=%s\n", n, identical, outPath)
}
