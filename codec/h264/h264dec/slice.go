/*
DESCRIPTION
  slice.go parses the prefix of a slice raw byte sequence payload
  needed for access-unit grouping (section 7.3.3 / 7.4.3 of the
  specification). It deliberately stops short of full slice-data
  parsing: macroblock prediction, reference-list modification,
  prediction-weight tables and deblocking parameters are not decoded.

AUTHORS
  Dan Kereama <dan@streamhdr.io>
*/

package h264dec

import (
	"github.com/streamhdr/annexb264/codec/h264/h264dec/bits"
)

// SliceType is the normalized (mod 5) slice type.
type SliceType uint8

const (
	SliceTypeP SliceType = iota
	SliceTypeB
	SliceTypeI
	SliceTypeSP
	SliceTypeSI
)

func (t SliceType) String() string {
	switch t {
	case SliceTypeP:
		return "P"
	case SliceTypeB:
		return "B"
	case SliceTypeI:
		return "I"
	case SliceTypeSP:
		return "SP"
	case SliceTypeSI:
		return "SI"
	default:
		return "unknown"
	}
}

// SliceHeader holds the fields of a slice header needed to group NAL
// units into access units. It is not a full slice header: it omits
// everything past the ref-idx override block.
type SliceHeader struct {
	FirstMbInSlice    uint32
	SliceType         SliceType
	PicParameterSetID uint8

	ColourPlaneID uint8 // valid only if SPS's SeparateColorPlaneFlag

	FrameNum uint32

	FieldPicFlag    bool
	BottomFieldFlag bool // valid only if FieldPicFlag

	IdrPicID uint32 // valid only for IDR slices

	PicOrderCntLsb         uint32   // valid only if pic_order_cnt_type == 0
	DeltaPicOrderCntBottom int32    // valid only if pic_order_cnt_type == 0 && the PPS condition holds
	DeltaPicOrderCnt       [2]int32 // valid only if pic_order_cnt_type == 1

	RedundantPicCnt uint32 // valid only if PPS.RedundantPicCntPresent

	DirectSpatialMvPredFlag bool // B slices only

	NumRefIdxActiveOverrideFlag bool
	NumRefIdxL0ActiveMinus1     uint8
	NumRefIdxL1ActiveMinus1     uint8 // B slices only
}

// ParseMinimal reads just enough of a slice RBSP to resolve the
// governing PPS: first_mb_in_slice, slice_type, pic_parameter_set_id.
func ParseMinimal(rbsp []byte) (ppsID uint8, err error) {
	br := bits.NewBitReader(rbsp)

	if _, err := bits.ReadUE(br); err != nil {
		return 0, wrapBitsErr(err, "could not read first_mb_in_slice")
	}
	if _, err := bits.ReadUE(br); err != nil {
		return 0, wrapBitsErr(err, "could not read slice_type")
	}

	id, err := bits.ReadUE(br)
	if err != nil {
		return 0, errSliceParse("could not read pic_parameter_set_id")
	}
	if id > 255 {
		return 0, errSliceParse("pic_parameter_set_id out of range")
	}
	return uint8(id), nil
}

// ParseFull parses the full slice-header prefix given the resolved
// SPS and PPS. nalType determines IDR-only fields.
func ParseFull(rbsp []byte, nalType NalUnitType, sps *Sps, pps *Pps) (*SliceHeader, error) {
	if sps == nil {
		return nil, errMissingSps(0)
	}
	if pps == nil {
		return nil, errMissingPps(0)
	}

	br := bits.NewBitReader(rbsp)
	h := &SliceHeader{}

	firstMb, err := bits.ReadUE(br)
	if err != nil {
		return nil, wrapBitsErr(err, "could not read first_mb_in_slice")
	}
	h.FirstMbInSlice = firstMb

	rawType, err := bits.ReadUE(br)
	if err != nil {
		return nil, wrapBitsErr(err, "could not read slice_type")
	}
	h.SliceType = SliceType(rawType % 5)

	ppsID, err := bits.ReadUE(br)
	if err != nil {
		return nil, wrapBitsErr(err, "could not read pic_parameter_set_id")
	}
	if ppsID > 255 {
		return nil, errSliceParse("pic_parameter_set_id out of range")
	}
	h.PicParameterSetID = uint8(ppsID)

	if sps.SeparateColorPlaneFlag {
		v, err := br.ReadBits(2)
		if err != nil {
			return nil, wrapBitsErr(err, "could not read colour_plane_id")
		}
		h.ColourPlaneID = uint8(v)
	}

	frameNumBits := uint(sps.Log2MaxFrameNumMinus4) + 4
	frameNum, err := br.ReadBits(frameNumBits)
	if err != nil {
		return nil, wrapBitsErr(err, "could not read frame_num")
	}
	h.FrameNum = frameNum

	if !sps.FrameMbsOnlyFlag {
		h.FieldPicFlag, err = readFlag(br)
		if err != nil {
			return nil, wrapBitsErr(err, "could not read field_pic_flag")
		}
		if h.FieldPicFlag {
			h.BottomFieldFlag, err = readFlag(br)
			if err != nil {
				return nil, wrapBitsErr(err, "could not read bottom_field_flag")
			}
		}
	}

	isIdr := nalType == NalIdrSlice
	if isIdr {
		idrPicID, err := bits.ReadUE(br)
		if err != nil {
			return nil, wrapBitsErr(err, "could not read idr_pic_id")
		}
		h.IdrPicID = idrPicID
	}

	switch sps.PicOrderCntType {
	case 0:
		lsbBits := uint(sps.Log2MaxPicOrderCntLsbMinus4) + 4
		lsb, err := br.ReadBits(lsbBits)
		if err != nil {
			return nil, wrapBitsErr(err, "could not read pic_order_cnt_lsb")
		}
		h.PicOrderCntLsb = lsb

		if pps.BottomFieldPicOrderInFramePresent && !h.FieldPicFlag {
			d, err := bits.ReadSE(br)
			if err != nil {
				return nil, wrapBitsErr(err, "could not read delta_pic_order_cnt_bottom")
			}
			h.DeltaPicOrderCntBottom = d
		}
	case 1:
		if !sps.DeltaPicOrderAlwaysZeroFlag {
			d0, err := bits.ReadSE(br)
			if err != nil {
				return nil, wrapBitsErr(err, "could not read delta_pic_order_cnt[0]")
			}
			h.DeltaPicOrderCnt[0] = d0

			if pps.BottomFieldPicOrderInFramePresent && !h.FieldPicFlag {
				d1, err := bits.ReadSE(br)
				if err != nil {
					return nil, wrapBitsErr(err, "could not read delta_pic_order_cnt[1]")
				}
				h.DeltaPicOrderCnt[1] = d1
			}
		}
	}

	if pps.RedundantPicCntPresent {
		r, err := bits.ReadUE(br)
		if err != nil {
			return nil, wrapBitsErr(err, "could not read redundant_pic_cnt")
		}
		h.RedundantPicCnt = r
	}

	if h.SliceType == SliceTypeB {
		h.DirectSpatialMvPredFlag, err = readFlag(br)
		if err != nil {
			return nil, wrapBitsErr(err, "could not read direct_spatial_mv_pred_flag")
		}
	}

	h.NumRefIdxL0ActiveMinus1 = pps.NumRefIdxL0DefaultActiveMinus1
	h.NumRefIdxL1ActiveMinus1 = pps.NumRefIdxL1DefaultActiveMinus1

	switch h.SliceType {
	case SliceTypeP, SliceTypeSP, SliceTypeB:
		h.NumRefIdxActiveOverrideFlag, err = readFlag(br)
		if err != nil {
			return nil, wrapBitsErr(err, "could not read num_ref_idx_active_override_flag")
		}
		if h.NumRefIdxActiveOverrideFlag {
			l0, err := bits.ReadUE(br)
			if err != nil {
				return nil, wrapBitsErr(err, "could not read num_ref_idx_l0_active_minus1")
			}
			h.NumRefIdxL0ActiveMinus1 = uint8(l0)

			if h.SliceType == SliceTypeB {
				l1, err := bits.ReadUE(br)
				if err != nil {
					return nil, wrapBitsErr(err, "could not read num_ref_idx_l1_active_minus1")
				}
				h.NumRefIdxL1ActiveMinus1 = uint8(l1)
			}
		}
	}

	return h, nil
}

// PictureId is the tuple used to decide whether two slices belong to
// the same picture (and hence the same access unit). Conditional
// fields are nil when the corresponding condition does not hold; a
// present-vs-absent mismatch compares unequal via Equal.
type PictureId struct {
	FrameNum          uint32
	PicParameterSetID uint8
	IdrPicID          *uint32
	PicOrderCntLsb    *uint32
	DeltaPicOrderCnt  *[2]int32
	FieldPicFlag      bool
	BottomFieldFlag   bool
}

// NewPictureId derives a PictureId from a parsed slice header.
func NewPictureId(h *SliceHeader, nalType NalUnitType, sps *Sps) *PictureId {
	p := &PictureId{
		FrameNum:          h.FrameNum,
		PicParameterSetID: h.PicParameterSetID,
		FieldPicFlag:      h.FieldPicFlag,
		BottomFieldFlag:   h.BottomFieldFlag,
	}
	if nalType == NalIdrSlice {
		v := h.IdrPicID
		p.IdrPicID = &v
	}
	if sps.PicOrderCntType == 0 {
		v := h.PicOrderCntLsb
		p.PicOrderCntLsb = &v
	}
	if sps.PicOrderCntType == 1 {
		v := h.DeltaPicOrderCnt
		p.DeltaPicOrderCnt = &v
	}
	return p
}

// Equal reports whether p and other identify the same picture.
// Present-vs-absent mismatches on any conditional field compare
// unequal, per the PictureId invariant.
func (p *PictureId) Equal(other *PictureId) bool {
	if p == nil || other == nil {
		return p == other
	}
	if p.FrameNum != other.FrameNum ||
		p.PicParameterSetID != other.PicParameterSetID ||
		p.FieldPicFlag != other.FieldPicFlag ||
		p.BottomFieldFlag != other.BottomFieldFlag {
		return false
	}
	if !equalUint32Ptr(p.IdrPicID, other.IdrPicID) {
		return false
	}
	if !equalUint32Ptr(p.PicOrderCntLsb, other.PicOrderCntLsb) {
		return false
	}
	if (p.DeltaPicOrderCnt == nil) != (other.DeltaPicOrderCnt == nil) {
		return false
	}
	if p.DeltaPicOrderCnt != nil && *p.DeltaPicOrderCnt != *other.DeltaPicOrderCnt {
		return false
	}
	return true
}

func equalUint32Ptr(a, b *uint32) bool {
	if (a == nil) != (b == nil) {
		return false
	}
	if a == nil {
		return true
	}
	return *a == *b
}
