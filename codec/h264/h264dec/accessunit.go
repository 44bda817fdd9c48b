/*
DESCRIPTION
  accessunit.go assembles NAL units into access units and decides
  where one access unit ends and the next begins (section 7.4.1.2.4 of
  the specification, restricted to the boundary rules needed for a
  header-only demultiplexer).

AUTHORS
  Dan Kereama <dan@streamhdr.io>
*/

package h264dec

// AccessUnitKindTag classifies an AccessUnit's Kind. RecoveryFrameCnt
// on AccessUnit is meaningful only when Kind == KindRecoveryPoint.
type AccessUnitKindTag int

const (
	KindNonIdr AccessUnitKindTag = iota
	KindIdr
	KindRecoveryPoint
)

func (k AccessUnitKindTag) String() string {
	switch k {
	case KindIdr:
		return "Idr"
	case KindRecoveryPoint:
		return "RecoveryPoint"
	default:
		return "NonIdr"
	}
}

// AccessUnit is one decoded access unit: an ordered run of NAL units
// that belong to the same coded picture, plus the parameter sets and
// picture identity that governed it.
type AccessUnit struct {
	Nals             []Nal
	IsKeyframe       bool
	Kind             AccessUnitKindTag
	RecoveryFrameCnt uint32
	Sps              *Sps
	Pps              *Pps
	PictureID        *PictureId
}

// AnnexB re-serializes the access unit as an Annex-B byte stream:
// each NAL prefixed by its original start code length and header
// byte, in reception order.
func (au *AccessUnit) AnnexB() []byte {
	var out []byte
	for _, nal := range au.Nals {
		out = append(out, nal.AnnexB()...)
	}
	return out
}

// addNal appends nal to the access unit, setting Kind/IsKeyframe if
// nal is an IDR slice.
func (au *AccessUnit) addNal(nal Nal) {
	if nal.Type == NalIdrSlice {
		au.Kind = KindIdr
		au.IsKeyframe = true
	}
	au.Nals = append(au.Nals, nal)
}

// checkRecoveryPoint scans the access unit's SEI NALs once, at
// finalization, for a recovery-point payload. A recovery_frame_cnt of
// 0 marks the access unit as a keyframe-equivalent recovery point.
func (au *AccessUnit) checkRecoveryPoint() {
	for _, nal := range au.Nals {
		if nal.Type != NalSei {
			continue
		}
		for _, msg := range ParseSeiMessages(nal.RBSP()) {
			if msg.Payload.Kind != SeiPayloadRecoveryPoint {
				continue
			}
			rp := msg.Payload.RecoveryPoint
			au.Kind = KindRecoveryPoint
			au.RecoveryFrameCnt = rp.RecoveryFrameCnt
			if rp.RecoveryFrameCnt == 0 {
				au.IsKeyframe = true
			}
		}
	}
}

// AccessUnitBuilder is the boundary state machine: it accumulates NAL
// units into the current access unit and emits it once a boundary is
// detected. Not safe for concurrent use.
type AccessUnitBuilder struct {
	currentAU        *AccessUnit
	currentPictureID *PictureId
}

// NewAccessUnitBuilder returns an empty builder.
func NewAccessUnitBuilder() *AccessUnitBuilder {
	return &AccessUnitBuilder{}
}

// isAUBoundary reports whether nal starts a new access unit given the
// builder's current state. sliceHeader and sps are nil for non-VCL
// NALs or when the slice header could not be parsed.
func (b *AccessUnitBuilder) isAUBoundary(nal Nal, sliceHeader *SliceHeader, sps *Sps) bool {
	if nal.Type == NalAud {
		return true
	}
	if !nal.Type.IsVCL() {
		return false
	}
	if b.currentPictureID == nil {
		// No VCL has contributed a PictureId to the open access unit
		// yet (it may hold only leading non-VCL NALs, or be brand
		// new): this one joins it and establishes its identity rather
		// than forcing a split.
		return false
	}
	if sliceHeader != nil && sps != nil {
		newID := NewPictureId(sliceHeader, nal.Type, sps)
		return !newID.Equal(b.currentPictureID)
	}
	return false
}

// AddNal feeds one NAL unit to the builder. sliceHeader/sps/pps are
// nil when nal is not a slice NAL, or when the slice header could not
// yet be resolved against a registry. Returns the just-completed
// access unit and true when adding nal closed out a prior one.
func (b *AccessUnitBuilder) AddNal(nal Nal, sliceHeader *SliceHeader, sps *Sps, pps *Pps) (*AccessUnit, bool) {
	isBoundary := b.isAUBoundary(nal, sliceHeader, sps)

	var completed *AccessUnit
	var ok bool
	if isBoundary && b.currentAU != nil {
		b.currentAU.checkRecoveryPoint()
		completed = b.currentAU
		ok = true
		b.currentAU = nil
		b.currentPictureID = nil
	}

	if b.currentAU == nil {
		b.currentAU = &AccessUnit{}
	}

	if sps != nil {
		b.currentAU.Sps = sps
	}
	if pps != nil {
		b.currentAU.Pps = pps
	}
	if sliceHeader != nil && b.currentAU.Sps != nil {
		pictureID := NewPictureId(sliceHeader, nal.Type, b.currentAU.Sps)
		b.currentPictureID = pictureID
		b.currentAU.PictureID = pictureID
	}

	b.currentAU.addNal(nal)

	return completed, ok
}

// Flush finalizes and returns any in-progress access unit, consuming
// the builder's state. Call once at end of stream.
func (b *AccessUnitBuilder) Flush() *AccessUnit {
	if b.currentAU == nil {
		return nil
	}
	au := b.currentAU
	au.checkRecoveryPoint()
	b.currentAU = nil
	b.currentPictureID = nil
	return au
}
