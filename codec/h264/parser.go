/*
DESCRIPTION
  parser.go is the top-level Annex-B demultiplexer: it drives a
  StartCodeScanner over pushed bytes, decodes each NAL's header,
  maintains the SPS/PPS registries referenced by slice headers, and
  feeds everything through an AccessUnitBuilder to produce a stream of
  access units.

AUTHORS
  Dan Kereama <dan@streamhdr.io>
*/

package h264

import (
	"github.com/pkg/errors"

	"github.com/streamhdr/annexb264/codec/h264/h264dec"
)

// AccessUnitOrError pairs a Drain result with the error that stopped
// production, if any. Exactly one of AU or Err is non-nil.
type AccessUnitOrError struct {
	AU  *h264dec.AccessUnit
	Err error
}

// AnnexBParser pulls access units out of an Annex-B byte stream fed in
// arbitrary chunks via Push. Not safe for concurrent use.
type AnnexBParser struct {
	scanner *StartCodeScanner
	builder *h264dec.AccessUnitBuilder
	spsByID map[uint8]*h264dec.Sps
	ppsByID map[uint8]*h264dec.Pps
}

// NewParser returns an empty parser.
func NewParser() *AnnexBParser {
	return &AnnexBParser{
		scanner: NewStartCodeScanner(),
		builder: h264dec.NewAccessUnitBuilder(),
		spsByID: make(map[uint8]*h264dec.Sps),
		ppsByID: make(map[uint8]*h264dec.Pps),
	}
}

// Push appends data to the parser's input.
func (p *AnnexBParser) Push(data []byte) {
	p.scanner.Push(data)
}

// Finish signals that no more data will be pushed, allowing the final
// NAL in the stream (which has no trailing start code) to be emitted.
func (p *AnnexBParser) Finish() {
	p.scanner.Finish()
}

// Reset clears the parser back to its zero state, discarding any
// buffered data, in-progress access unit, and registered parameter
// sets.
func (p *AnnexBParser) Reset() {
	p.scanner.Reset()
	p.builder = h264dec.NewAccessUnitBuilder()
	p.spsByID = make(map[uint8]*h264dec.Sps)
	p.ppsByID = make(map[uint8]*h264dec.Pps)
}

// NextAccessUnit returns the next completed access unit, or (nil, nil)
// if the parser needs more pushed data (or Finish) before one can be
// produced.
func (p *AnnexBParser) NextAccessUnit() (*h264dec.AccessUnit, error) {
	for {
		span, ok := p.scanner.NextNalSpan()
		if !ok {
			if !p.scanner.finished {
				// More data may still arrive to complete the current
				// NAL or start the next one; don't flush yet.
				return nil, nil
			}
			if au := p.builder.Flush(); au != nil {
				return au, nil
			}
			return nil, nil
		}

		// Copy out of the scanner's buffer now: the bytes backing span
		// are only valid until the next Push/ConsumeProcessed.
		nalData := append([]byte(nil), p.scanner.Data(span)...)

		nal, err := h264dec.ParseNal(span.StartCodeLen, nalData)
		if err != nil {
			return nil, errors.Wrap(err, "could not parse NAL header")
		}

		switch nal.Type {
		case h264dec.NalSps:
			sps, err := h264dec.ParseSps(nal.RBSP())
			if err != nil {
				return nil, errors.Wrap(err, "could not parse SPS")
			}
			p.spsByID[sps.SpsID] = sps
		case h264dec.NalPps:
			pps, err := h264dec.ParsePps(nal.RBSP())
			if err != nil {
				return nil, errors.Wrap(err, "could not parse PPS")
			}
			p.ppsByID[pps.PpsID] = pps
		}

		var (
			sliceHeader *h264dec.SliceHeader
			sps         *h264dec.Sps
			pps         *h264dec.Pps
		)
		if nal.Type.IsSlice() {
			rbsp := nal.RBSP()
			ppsID, err := h264dec.ParseMinimal(rbsp)
			if err != nil {
				return nil, errors.Wrap(err, "could not parse slice header prefix")
			}
			var ok bool
			pps, ok = p.ppsByID[ppsID]
			if !ok {
				return nil, &h264dec.Error{Kind: h264dec.KindMissingPps, ID: ppsID}
			}
			sps, ok = p.spsByID[pps.SpsID]
			if !ok {
				return nil, &h264dec.Error{Kind: h264dec.KindMissingSps, ID: pps.SpsID}
			}
			sliceHeader, err = h264dec.ParseFull(rbsp, nal.Type, sps, pps)
			if err != nil {
				return nil, errors.Wrap(err, "could not parse slice header")
			}
		}

		if au, ok := p.builder.AddNal(nal, sliceHeader, sps, pps); ok {
			return au, nil
		}
	}
}

// Drain calls Finish and runs the parser to completion, returning
// every access unit (and the first error, if any) the remaining
// pushed data yields — including the final access unit, which has no
// trailing start code to delimit it until Finish is called.
func (p *AnnexBParser) Drain() []AccessUnitOrError {
	p.Finish()
	var results []AccessUnitOrError
	for {
		au, err := p.NextAccessUnit()
		if err != nil {
			results = append(results, AccessUnitOrError{Err: err})
			return results
		}
		if au == nil {
			return results
		}
		results = append(results, AccessUnitOrError{AU: au})
	}
}
