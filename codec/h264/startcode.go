/*
DESCRIPTION
  startcode.go scans an Annex-B byte stream for start codes and turns
  them into NAL unit spans, the way lex.go scans for the same markers
  while lexing H.264 into access units — but restructured as a
  push/pull scanner so a caller can feed the stream in arbitrary
  chunks instead of owning an io.Reader.

AUTHORS
  Dan Kereama <dan@streamhdr.io>
*/

package h264

// NalSpan locates one NAL unit's payload within a StartCodeScanner's
// internal buffer: [DataStart, DataEnd) is everything after the start
// code, i.e. the NAL header byte followed by the EBSP.
type NalSpan struct {
	StartPos     int
	StartCodeLen uint8
	DataStart    int
	DataEnd      int
}

// StartCodeScanner finds Annex-B start codes (00 00 01 and 00 00 00
// 01, with the 4-byte form preferred on overlap) in an append-only
// buffer. Not safe for concurrent use.
type StartCodeScanner struct {
	buffer   []byte
	position int
	finished bool
}

// NewStartCodeScanner returns an empty scanner.
func NewStartCodeScanner() *StartCodeScanner {
	return &StartCodeScanner{}
}

// Push appends data to the scanner's buffer. A no-op after Finish.
func (s *StartCodeScanner) Push(data []byte) {
	if s.finished {
		return
	}
	s.buffer = append(s.buffer, data...)
}

// Finish signals that no further data will be pushed: the final NAL
// in the buffer, which has no trailing start code to delimit it, may
// now be safely emitted by NextNalSpan.
func (s *StartCodeScanner) Finish() {
	s.finished = true
}

// Reset clears the scanner back to its zero state.
func (s *StartCodeScanner) Reset() {
	s.buffer = s.buffer[:0]
	s.position = 0
	s.finished = false
}

// ConsumeProcessed discards the first n bytes of the buffer, which the
// caller has already extracted into owned storage, and rebases the
// scan cursor accordingly.
func (s *StartCodeScanner) ConsumeProcessed(n int) {
	if n <= 0 {
		return
	}
	if n > len(s.buffer) {
		n = len(s.buffer)
	}
	s.buffer = s.buffer[n:]
	s.position -= n
	if s.position < 0 {
		s.position = 0
	}
}

// FindNextStartCode scans forward from the cursor for the next start
// code. On a match it advances the cursor past the matched bytes and
// returns the code's start position and length. It returns ok=false,
// without committing past any byte whose role is still ambiguous,
// when no complete start code lies wholly within the buffer — this is
// what lets a later Push resume the search correctly instead of
// mis-splitting a start code that arrives across two pushes.
func (s *StartCodeScanner) FindNextStartCode() (startPos int, length uint8, ok bool) {
	buf := s.buffer
	pos := s.position

	for pos+1 < len(buf) {
		if buf[pos] != 0x00 || buf[pos+1] != 0x00 {
			pos++
			continue
		}

		if pos+2 >= len(buf) {
			// Only "00 00" confirmed so far; the next byte decides
			// between a 3-byte code, a 4-byte-code-in-progress, or no
			// match at all. Wait for it.
			s.position = pos
			return 0, 0, false
		}

		switch buf[pos+2] {
		case 0x01:
			s.position = pos + 3
			return pos, 3, true
		case 0x00:
			if pos+3 >= len(buf) {
				// "00 00 00" confirmed; the 4th byte decides whether
				// this is a 4-byte code. Wait for it rather than
				// guessing and skipping past a code that straddles
				// this push boundary.
				s.position = pos
				return 0, 0, false
			}
			if buf[pos+3] == 0x01 {
				s.position = pos + 4
				return pos, 4, true
			}
		}
		pos++
	}

	s.position = pos
	return 0, 0, false
}

// NextNalSpan locates the next NAL unit in the buffer: it consumes
// the current start code and peeks (without consuming) the following
// one to bound the payload. If no following start code is present yet
// and Finish has not been called, the NAL's end is still unknown and
// NextNalSpan returns ok=false, leaving the cursor positioned so a
// later call re-discovers the same NAL. Only once Finish has been
// called does the absence of a following start code mean "payload
// runs to the end of the buffer".
func (s *StartCodeScanner) NextNalSpan() (NalSpan, bool) {
	entryPos := s.position

	startPos, startCodeLen, ok := s.FindNextStartCode()
	if !ok {
		return NalSpan{}, false
	}
	dataStart := startPos + int(startCodeLen)
	savedPos := s.position

	nextStart, _, nextOk := s.FindNextStartCode()

	var dataEnd int
	switch {
	case nextOk:
		s.position = nextStart // leave cursor at the next code, unconsumed
		dataEnd = nextStart
	case s.finished:
		dataEnd = len(s.buffer)
		s.position = len(s.buffer)
	default:
		// The trailing start code hasn't arrived yet and the stream
		// isn't finished: we don't yet know where this NAL ends. Undo
		// consuming its start code entirely, so the next call
		// rediscovers it fresh instead of treating the start code
		// that was meant to bound it as a new "current" one.
		s.position = entryPos
		return NalSpan{}, false
	}

	if dataStart >= dataEnd {
		// Back-to-back start codes with nothing between them: no NAL
		// to emit, but the next start code is still there to find on
		// the following call.
		s.position = savedPos
		return NalSpan{}, false
	}

	return NalSpan{StartPos: startPos, StartCodeLen: startCodeLen, DataStart: dataStart, DataEnd: dataEnd}, true
}

// Data returns the bytes of span within the scanner's buffer. The
// caller must copy out anything it needs to keep past the next
// ConsumeProcessed or Push call.
func (s *StartCodeScanner) Data(span NalSpan) []byte {
	return s.buffer[span.DataStart:span.DataEnd]
}
