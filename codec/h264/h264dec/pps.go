/*
DESCRIPTION
  pps.go decodes a Picture Parameter Set RBSP (section 7.3.2.2 /
  7.4.2.2 of the specification).

AUTHORS
  Dan Kereama <dan@streamhdr.io>
*/

package h264dec

import (
	"github.com/streamhdr/annexb264/codec/h264/h264dec/bits"
)

// Pps holds a decoded Picture Parameter Set.
type Pps struct {
	PpsID                               uint8
	SpsID                               uint8
	EntropyCodingModeFlag               bool
	BottomFieldPicOrderInFramePresent   bool

	NumSliceGroupsMinus1 uint32
	SliceGroupMapType    uint32

	NumRefIdxL0DefaultActiveMinus1 uint8
	NumRefIdxL1DefaultActiveMinus1 uint8
	WeightedPredFlag               bool
	WeightedBipredIdc              uint8
	PicInitQpMinus26               int8
	PicInitQsMinus26               int8
	ChromaQpIndexOffset            int8
	DeblockingFilterControlPresent bool
	ConstrainedIntraPredFlag       bool
	RedundantPicCntPresent         bool

	Transform8x8ModeFlag       bool
	PicScalingMatrixPresent    bool
	SecondChromaQpIndexOffset  int8
}

// ParsePps decodes a PPS from rbsp.
func ParsePps(rbsp []byte) (*Pps, error) {
	br := bits.NewBitReader(rbsp)
	p := &Pps{}

	ppsID, err := bits.ReadUE(br)
	if err != nil {
		return nil, wrapBitsErr(err, "could not read pic_parameter_set_id")
	}
	if ppsID > 255 {
		return nil, errMalformedPps("pic_parameter_set_id out of range")
	}
	p.PpsID = uint8(ppsID)

	spsID, err := bits.ReadUE(br)
	if err != nil {
		return nil, wrapBitsErr(err, "could not read seq_parameter_set_id")
	}
	if spsID > 31 {
		return nil, errMalformedPps("seq_parameter_set_id out of range")
	}
	p.SpsID = uint8(spsID)

	p.EntropyCodingModeFlag, err = readFlag(br)
	if err != nil {
		return nil, wrapBitsErr(err, "could not read entropy_coding_mode_flag")
	}
	p.BottomFieldPicOrderInFramePresent, err = readFlag(br)
	if err != nil {
		return nil, wrapBitsErr(err, "could not read bottom_field_pic_order_in_frame_present_flag")
	}

	p.NumSliceGroupsMinus1, err = bits.ReadUE(br)
	if err != nil {
		return nil, wrapBitsErr(err, "could not read num_slice_groups_minus1")
	}

	if p.NumSliceGroupsMinus1 > 0 {
		p.SliceGroupMapType, err = bits.ReadUE(br)
		if err != nil {
			return nil, wrapBitsErr(err, "could not read slice_group_map_type")
		}
		if err := parseSliceGroupMap(br, p.NumSliceGroupsMinus1, p.SliceGroupMapType); err != nil {
			return nil, wrapBitsErr(err, "could not parse slice group map")
		}
	}

	numRefIdxL0, err := bits.ReadUE(br)
	if err != nil {
		return nil, wrapBitsErr(err, "could not read num_ref_idx_l0_default_active_minus1")
	}
	if numRefIdxL0 > 31 {
		return nil, errMalformedPps("num_ref_idx_l0_default_active_minus1 out of range")
	}
	p.NumRefIdxL0DefaultActiveMinus1 = uint8(numRefIdxL0)

	numRefIdxL1, err := bits.ReadUE(br)
	if err != nil {
		return nil, wrapBitsErr(err, "could not read num_ref_idx_l1_default_active_minus1")
	}
	if numRefIdxL1 > 31 {
		return nil, errMalformedPps("num_ref_idx_l1_default_active_minus1 out of range")
	}
	p.NumRefIdxL1DefaultActiveMinus1 = uint8(numRefIdxL1)

	p.WeightedPredFlag, err = readFlag(br)
	if err != nil {
		return nil, wrapBitsErr(err, "could not read weighted_pred_flag")
	}
	weightedBipredIdc, err := br.ReadBits(2)
	if err != nil {
		return nil, wrapBitsErr(err, "could not read weighted_bipred_idc")
	}
	p.WeightedBipredIdc = uint8(weightedBipredIdc)

	picInitQp, err := bits.ReadSE(br)
	if err != nil {
		return nil, wrapBitsErr(err, "could not read pic_init_qp_minus26")
	}
	if picInitQp < -26 || picInitQp > 25 {
		return nil, errMalformedPps("pic_init_qp_minus26 out of range")
	}
	p.PicInitQpMinus26 = int8(picInitQp)

	picInitQs, err := bits.ReadSE(br)
	if err != nil {
		return nil, wrapBitsErr(err, "could not read pic_init_qs_minus26")
	}
	if picInitQs < -26 || picInitQs > 25 {
		return nil, errMalformedPps("pic_init_qs_minus26 out of range")
	}
	p.PicInitQsMinus26 = int8(picInitQs)

	chromaQpOffset, err := bits.ReadSE(br)
	if err != nil {
		return nil, wrapBitsErr(err, "could not read chroma_qp_index_offset")
	}
	if chromaQpOffset < -12 || chromaQpOffset > 12 {
		return nil, errMalformedPps("chroma_qp_index_offset out of range")
	}
	p.ChromaQpIndexOffset = int8(chromaQpOffset)
	p.SecondChromaQpIndexOffset = p.ChromaQpIndexOffset // default, §4.6

	p.DeblockingFilterControlPresent, err = readFlag(br)
	if err != nil {
		return nil, wrapBitsErr(err, "could not read deblocking_filter_control_present_flag")
	}
	p.ConstrainedIntraPredFlag, err = readFlag(br)
	if err != nil {
		return nil, wrapBitsErr(err, "could not read constrained_intra_pred_flag")
	}
	p.RedundantPicCntPresent, err = readFlag(br)
	if err != nil {
		return nil, wrapBitsErr(err, "could not read redundant_pic_cnt_present_flag")
	}

	if br.MoreRBSPData() {
		p.Transform8x8ModeFlag, err = readFlag(br)
		if err != nil {
			return nil, wrapBitsErr(err, "could not read transform_8x8_mode_flag")
		}
		p.PicScalingMatrixPresent, err = readFlag(br)
		if err != nil {
			return nil, wrapBitsErr(err, "could not read pic_scaling_matrix_present_flag")
		}
		if p.PicScalingMatrixPresent {
			numLists := 6
			if p.Transform8x8ModeFlag {
				numLists = 8
			}
			for i := 0; i < numLists; i++ {
				present, err := readFlag(br)
				if err != nil {
					return nil, wrapBitsErr(err, "could not read pic_scaling_list_present_flag")
				}
				if present {
					size := 16
					if i >= 6 {
						size = 64
					}
					if err := skipScalingList(br, size); err != nil {
						return nil, wrapBitsErr(err, "could not skip scaling list")
					}
				}
			}
		}
		secondChromaQpOffset, err := bits.ReadSE(br)
		if err != nil {
			return nil, wrapBitsErr(err, "could not read second_chroma_qp_index_offset")
		}
		if secondChromaQpOffset < -12 || secondChromaQpOffset > 12 {
			return nil, errMalformedPps("second_chroma_qp_index_offset out of range")
		}
		p.SecondChromaQpIndexOffset = int8(secondChromaQpOffset)
	}

	return p, nil
}

// parseSliceGroupMap reads the slice-group map syntax for the given map
// type, only to move the cursor past it. The values are not
// range-checked and are discarded: Pps carries no per-group storage for
// them.
func parseSliceGroupMap(br *bits.BitReader, numSliceGroupsMinus1, mapType uint32) error {
	switch mapType {
	case 0:
		for i := uint32(0); i <= numSliceGroupsMinus1; i++ {
			if _, err := bits.ReadUE(br); err != nil {
				return err
			}
		}
	case 2:
		for i := uint32(0); i < numSliceGroupsMinus1; i++ {
			if _, err := bits.ReadUE(br); err != nil { // top_left
				return err
			}
			if _, err := bits.ReadUE(br); err != nil { // bottom_right
				return err
			}
		}
	case 3, 4, 5:
		if _, err := readFlag(br); err != nil { // slice_group_change_direction_flag
			return err
		}
		if _, err := bits.ReadUE(br); err != nil { // slice_group_change_rate_minus1
			return err
		}
	case 6:
		picSizeInMapUnitsMinus1, err := bits.ReadUE(br)
		if err != nil {
			return err
		}
		numBits := ceilLog2(numSliceGroupsMinus1 + 1)
		for i := uint32(0); i <= picSizeInMapUnitsMinus1; i++ {
			if _, err := br.ReadBits(numBits); err != nil {
				return err
			}
		}
	}
	return nil
}

// ceilLog2 returns ceil(log2(v)) for v >= 1.
func ceilLog2(v uint32) uint {
	var n uint
	p := uint32(1)
	for p < v {
		p <<= 1
		n++
	}
	return n
}
