package h264

import "testing"

func TestFindStartCodes(t *testing.T) {
	s := NewStartCodeScanner()
	s.Push([]byte{0x00, 0x00, 0x01, 0x42, 0x00, 0x00, 0x00, 0x01, 0x43})
	s.Finish()

	span1, ok := s.NextNalSpan()
	if !ok {
		t.Fatal("expected first NAL span")
	}
	if span1.StartCodeLen != 3 {
		t.Errorf("StartCodeLen = %d, want 3", span1.StartCodeLen)
	}
	if got := s.Data(span1); string(got) != string([]byte{0x42}) {
		t.Errorf("span1 data = %v, want [0x42]", got)
	}

	span2, ok := s.NextNalSpan()
	if !ok {
		t.Fatal("expected second NAL span")
	}
	if span2.StartCodeLen != 4 {
		t.Errorf("StartCodeLen = %d, want 4", span2.StartCodeLen)
	}
	if got := s.Data(span2); string(got) != string([]byte{0x43}) {
		t.Errorf("span2 data = %v, want [0x43]", got)
	}

	if _, ok := s.NextNalSpan(); ok {
		t.Error("expected no more spans")
	}
}

func TestFourByteStartCodePreferredOnOverlap(t *testing.T) {
	s := NewStartCodeScanner()
	s.Push([]byte{0x00, 0x00, 0x00, 0x01, 0x67})
	s.Finish()

	_, _, ok := s.FindNextStartCode()
	if !ok {
		t.Fatal("expected a match")
	}
	if s.position != 4 {
		t.Errorf("cursor after match = %d, want 4 (consumed the 4-byte form)", s.position)
	}
}

func TestChunkingInvariantAcrossStartCodeSplit(t *testing.T) {
	data := []byte{0x00, 0x00, 0x01, 0x67, 0x42, 0x00, 0x00, 0x00, 0x01, 0x68}

	// Fed whole.
	whole := NewStartCodeScanner()
	whole.Push(data)
	whole.Finish()
	var wholeSpans []NalSpan
	for {
		span, ok := whole.NextNalSpan()
		if !ok {
			break
		}
		wholeSpans = append(wholeSpans, span)
	}

	// Fed one byte at a time, including splitting the 4-byte start
	// code across separate pushes.
	chunked := NewStartCodeScanner()
	var chunkedSpans []NalSpan
	for i := range data {
		chunked.Push(data[i : i+1])
		for {
			span, ok := chunked.NextNalSpan()
			if !ok {
				break
			}
			chunkedSpans = append(chunkedSpans, span)
		}
	}
	chunked.Finish()
	for {
		span, ok := chunked.NextNalSpan()
		if !ok {
			break
		}
		chunkedSpans = append(chunkedSpans, span)
	}

	if len(wholeSpans) != len(chunkedSpans) {
		t.Fatalf("whole produced %d spans, chunked produced %d", len(wholeSpans), len(chunkedSpans))
	}
	for i := range wholeSpans {
		if wholeSpans[i].StartCodeLen != chunkedSpans[i].StartCodeLen {
			t.Errorf("span %d: StartCodeLen whole=%d chunked=%d", i, wholeSpans[i].StartCodeLen, chunkedSpans[i].StartCodeLen)
		}
	}
}

func TestNoTrailingStartCodeWaitsForFinish(t *testing.T) {
	s := NewStartCodeScanner()
	s.Push([]byte{0x00, 0x00, 0x01, 0x67, 0x42})

	if _, ok := s.NextNalSpan(); ok {
		t.Fatal("must not emit the last NAL before Finish, since more data may still arrive")
	}

	s.Finish()
	span, ok := s.NextNalSpan()
	if !ok {
		t.Fatal("expected the final NAL to be emitted once Finish is called")
	}
	if got := s.Data(span); string(got) != string([]byte{0x67, 0x42}) {
		t.Errorf("final span data = %v, want [0x67 0x42]", got)
	}
}

func TestConsumeProcessedRebasesCursor(t *testing.T) {
	s := NewStartCodeScanner()
	s.Push([]byte{0x00, 0x00, 0x01, 0x67, 0x00, 0x00, 0x01, 0x68})
	s.Finish()

	span1, ok := s.NextNalSpan()
	if !ok {
		t.Fatal("expected first span")
	}
	s.ConsumeProcessed(span1.DataEnd)

	span2, ok := s.NextNalSpan()
	if !ok {
		t.Fatal("expected second span after consuming the first")
	}
	if got := s.Data(span2); string(got) != string([]byte{0x68}) {
		t.Errorf("span2 data after consume = %v, want [0x68]", got)
	}
}

func TestStreamingPartialStartCode(t *testing.T) {
	s := NewStartCodeScanner()
	s.Push([]byte{0x00, 0x00})
	if _, ok := s.NextNalSpan(); ok {
		t.Fatal("expected no span from a bare partial start code")
	}

	s.Push([]byte{0x01, 0x42, 0x00})
	if _, ok := s.NextNalSpan(); ok {
		t.Fatal("expected no span while the trailing start code is still incomplete")
	}

	s.Push([]byte{0x00, 0x01, 0x43})
	span, ok := s.NextNalSpan()
	if !ok {
		t.Fatal("expected a span once the trailing start code completed")
	}
	if got := s.Data(span); string(got) != string([]byte{0x42}) {
		t.Errorf("data = %v, want [0x42]", got)
	}
}
