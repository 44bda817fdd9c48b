/*
DESCRIPTION
  errors.go defines the error kind taxonomy raised by the SPS, PPS,
  slice-header, and SEI decoders, and by the bit-level readers they sit
  on top of.

AUTHORS
  Dan Kereama <dan@streamhdr.io>

LICENSE
  Copyright (C) 2026 streamhdr contributors.

  Use of this source code is governed by the MIT license found in the
  LICENSE file at the root of this module.
*/

package h264dec

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/streamhdr/annexb264/codec/h264/h264dec/bits"
)

// Kind classifies the error returned by a decoder or bit-level reader.
type Kind int

const (
	// KindInvalidNalHeader indicates forbidden_zero_bit != 0, or a
	// missing header byte.
	KindInvalidNalHeader Kind = iota
	// KindMalformedSps indicates an SPS range-check failure. A read
	// past the end of an SPS is reported as KindUnexpectedEOF.
	KindMalformedSps
	// KindMalformedPps is the PPS analogue of KindMalformedSps.
	KindMalformedPps
	// KindSliceParseError indicates a malformed slice header, or an
	// out-of-range referenced PPS id.
	KindSliceParseError
	// KindMissingPps indicates a slice referenced a PPS id not present
	// in the registry.
	KindMissingPps
	// KindMissingSps indicates a PPS referenced an SPS id not present
	// in the registry.
	KindMissingSps
	// KindUnexpectedEOF indicates a bit read past the end of the
	// buffer.
	KindUnexpectedEOF
	// KindInvalidStartCode is reserved for encoder-side pathways; the
	// scanner itself never raises it.
	KindInvalidStartCode
	// KindBitstreamError covers any other bit-level violation: bad
	// alignment, an invalid Exp-Golomb code, and so on.
	KindBitstreamError
)

func (k Kind) String() string {
	switch k {
	case KindInvalidNalHeader:
		return "invalid NAL header"
	case KindMalformedSps:
		return "malformed SPS"
	case KindMalformedPps:
		return "malformed PPS"
	case KindSliceParseError:
		return "slice parse error"
	case KindMissingPps:
		return "missing PPS"
	case KindMissingSps:
		return "missing SPS"
	case KindUnexpectedEOF:
		return "unexpected EOF"
	case KindInvalidStartCode:
		return "invalid start code"
	case KindBitstreamError:
		return "bitstream error"
	default:
		return "unknown error"
	}
}

// Error is the concrete error type surfaced by this package. Callers
// that need to branch on error kind should use errors.As.
type Error struct {
	Kind   Kind
	Detail string // human-readable reason; empty for the id-bearing kinds.
	ID     uint8  // populated for KindMissingPps / KindMissingSps.
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindMissingPps:
		return fmt.Sprintf("missing PPS with id %d", e.ID)
	case KindMissingSps:
		return fmt.Sprintf("missing SPS with id %d", e.ID)
	case KindInvalidNalHeader, KindUnexpectedEOF, KindInvalidStartCode:
		return e.Kind.String()
	default:
		if e.Detail == "" {
			return e.Kind.String()
		}
		return fmt.Sprintf("%s: %s", e.Kind.String(), e.Detail)
	}
}

func errInvalidNalHeader() error { return &Error{Kind: KindInvalidNalHeader} }

func errMalformedSps(detail string) error {
	return &Error{Kind: KindMalformedSps, Detail: detail}
}

func errMalformedPps(detail string) error {
	return &Error{Kind: KindMalformedPps, Detail: detail}
}

func errSliceParse(detail string) error {
	return &Error{Kind: KindSliceParseError, Detail: detail}
}

func errMissingPps(id uint8) error { return &Error{Kind: KindMissingPps, ID: id} }

func errMissingSps(id uint8) error { return &Error{Kind: KindMissingSps, ID: id} }

func errUnexpectedEOF() error { return &Error{Kind: KindUnexpectedEOF} }

func errBitstream(detail string) error {
	return &Error{Kind: KindBitstreamError, Detail: detail}
}

// wrapBitsErr classifies an error surfaced by the bits package while
// reading context, mapping it to the matching Kind instead of the
// generic wrap every other syntax-element read gets.
func wrapBitsErr(err error, context string) error {
	switch {
	case errors.Is(err, bits.ErrUnexpectedEOF):
		return errUnexpectedEOF()
	case errors.Is(err, bits.ErrMalformedBitstream):
		return errBitstream(context)
	default:
		return errors.Wrap(err, context)
	}
}
