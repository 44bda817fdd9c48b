/*
DESCRIPTION
  sps.go decodes a Sequence Parameter Set RBSP (section 7.3.2.1.1 /
  7.4.2.1 of the specification) and derives the post-crop picture
  width and height.

AUTHORS
  Dan Kereama <dan@streamhdr.io>
  Saxon Nelson-Milton <saxon@ausocean.org>, The Australian Ocean Laboratory (AusOcean)
*/

package h264dec

import (
	"fmt"

	"github.com/streamhdr/annexb264/codec/h264/h264dec/bits"
)

// Sps holds a decoded Sequence Parameter Set.
type Sps struct {
	ProfileIdc       uint8
	ConstraintSet0   bool
	ConstraintSet1   bool
	ConstraintSet2   bool
	ConstraintSet3   bool
	ConstraintSet4   bool
	ConstraintSet5   bool
	LevelIdc         uint8
	SpsID            uint8

	ChromaFormatIDC             uint8
	SeparateColorPlaneFlag      bool
	BitDepthLumaMinus8          uint8
	BitDepthChromaMinus8        uint8
	QpPrimeYZeroTransformBypass bool
	SeqScalingMatrixPresent     bool

	Log2MaxFrameNumMinus4         uint8
	PicOrderCntType               uint8
	Log2MaxPicOrderCntLsbMinus4   uint8
	DeltaPicOrderAlwaysZeroFlag   bool
	OffsetForNonRefPic            int32
	OffsetForTopToBottomField     int32
	NumRefFramesInPicOrderCntCycle uint8

	MaxNumRefFrames             uint32
	GapsInFrameNumValueAllowed  bool
	PicWidthInMbsMinus1         uint32
	PicHeightInMapUnitsMinus1   uint32
	FrameMbsOnlyFlag            bool
	MbAdaptiveFrameFieldFlag    bool
	Direct8x8InferenceFlag      bool

	FrameCroppingFlag    bool
	CropLeft             uint32
	CropRight            uint32
	CropTop              uint32
	CropBottom           uint32

	VUIParametersPresentFlag bool

	// Width and Height are the derived, post-crop dimensions in luma
	// samples (§4.5).
	Width  uint32
	Height uint32
}

// extendedChromaProfiles is the set of profile_idc values whose SPS
// carries the chroma-format / bit-depth / scaling-matrix block.
var extendedChromaProfiles = map[uint8]bool{
	44: true, 83: true, 86: true, 100: true, 110: true, 118: true,
	122: true, 128: true, 134: true, 135: true, 138: true, 139: true, 244: true,
}

// ParseSps decodes an SPS from rbsp.
func ParseSps(rbsp []byte) (*Sps, error) {
	br := bits.NewBitReader(rbsp)
	s := &Sps{ChromaFormatIDC: 1}

	var err error
	s.ProfileIdc, err = br.ReadU8()
	if err != nil {
		return nil, wrapBitsErr(err, "could not read profile_idc")
	}

	flags, err := br.ReadBits(6)
	if err != nil {
		return nil, wrapBitsErr(err, "could not read constraint_set flags")
	}
	s.ConstraintSet0 = flags&0x20 != 0
	s.ConstraintSet1 = flags&0x10 != 0
	s.ConstraintSet2 = flags&0x08 != 0
	s.ConstraintSet3 = flags&0x04 != 0
	s.ConstraintSet4 = flags&0x02 != 0
	s.ConstraintSet5 = flags&0x01 != 0

	if err := br.SkipBits(2); err != nil { // reserved_zero_2bits
		return nil, wrapBitsErr(err, "could not skip reserved bits")
	}

	s.LevelIdc, err = br.ReadU8()
	if err != nil {
		return nil, wrapBitsErr(err, "could not read level_idc")
	}

	spsID, err := bits.ReadUE(br)
	if err != nil {
		return nil, wrapBitsErr(err, "could not read seq_parameter_set_id")
	}
	if spsID > 31 {
		return nil, errMalformedSps("seq_parameter_set_id out of range")
	}
	s.SpsID = uint8(spsID)

	if extendedChromaProfiles[s.ProfileIdc] {
		chromaFormatIDC, err := bits.ReadUE(br)
		if err != nil {
			return nil, wrapBitsErr(err, "could not read chroma_format_idc")
		}
		if chromaFormatIDC > 3 {
			return nil, errMalformedSps("chroma_format_idc out of range")
		}
		s.ChromaFormatIDC = uint8(chromaFormatIDC)

		if s.ChromaFormatIDC == 3 {
			s.SeparateColorPlaneFlag, err = readFlag(br)
			if err != nil {
				return nil, wrapBitsErr(err, "could not read separate_colour_plane_flag")
			}
		}

		bitDepthLuma, err := bits.ReadUE(br)
		if err != nil {
			return nil, wrapBitsErr(err, "could not read bit_depth_luma_minus8")
		}
		s.BitDepthLumaMinus8 = uint8(bitDepthLuma)

		bitDepthChroma, err := bits.ReadUE(br)
		if err != nil {
			return nil, wrapBitsErr(err, "could not read bit_depth_chroma_minus8")
		}
		s.BitDepthChromaMinus8 = uint8(bitDepthChroma)

		s.QpPrimeYZeroTransformBypass, err = readFlag(br)
		if err != nil {
			return nil, wrapBitsErr(err, "could not read qpprime_y_zero_transform_bypass_flag")
		}
		s.SeqScalingMatrixPresent, err = readFlag(br)
		if err != nil {
			return nil, wrapBitsErr(err, "could not read seq_scaling_matrix_present_flag")
		}

		if s.SeqScalingMatrixPresent {
			numLists := 8
			if s.ChromaFormatIDC == 3 {
				numLists = 12
			}
			for i := 0; i < numLists; i++ {
				present, err := readFlag(br)
				if err != nil {
					return nil, wrapBitsErr(err, "could not read seq_scaling_list_present_flag")
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
	}

	log2MaxFrameNum, err := bits.ReadUE(br)
	if err != nil {
		return nil, wrapBitsErr(err, "could not read log2_max_frame_num_minus4")
	}
	if log2MaxFrameNum > 12 {
		return nil, errMalformedSps("log2_max_frame_num_minus4 out of range")
	}
	s.Log2MaxFrameNumMinus4 = uint8(log2MaxFrameNum)

	picOrderCntType, err := bits.ReadUE(br)
	if err != nil {
		return nil, wrapBitsErr(err, "could not read pic_order_cnt_type")
	}
	if picOrderCntType > 2 {
		return nil, errMalformedSps("pic_order_cnt_type out of range")
	}
	s.PicOrderCntType = uint8(picOrderCntType)

	switch s.PicOrderCntType {
	case 0:
		v, err := bits.ReadUE(br)
		if err != nil {
			return nil, wrapBitsErr(err, "could not read log2_max_pic_order_cnt_lsb_minus4")
		}
		if v > 12 {
			return nil, errMalformedSps("log2_max_pic_order_cnt_lsb_minus4 out of range")
		}
		s.Log2MaxPicOrderCntLsbMinus4 = uint8(v)
	case 1:
		s.DeltaPicOrderAlwaysZeroFlag, err = readFlag(br)
		if err != nil {
			return nil, wrapBitsErr(err, "could not read delta_pic_order_always_zero_flag")
		}
		s.OffsetForNonRefPic, err = bits.ReadSE(br)
		if err != nil {
			return nil, wrapBitsErr(err, "could not read offset_for_non_ref_pic")
		}
		s.OffsetForTopToBottomField, err = bits.ReadSE(br)
		if err != nil {
			return nil, wrapBitsErr(err, "could not read offset_for_top_to_bottom_field")
		}
		numRefFrames, err := bits.ReadUE(br)
		if err != nil {
			return nil, wrapBitsErr(err, "could not read num_ref_frames_in_pic_order_cnt_cycle")
		}
		s.NumRefFramesInPicOrderCntCycle = uint8(numRefFrames)
		for i := uint32(0); i < numRefFrames; i++ {
			if _, err := bits.ReadSE(br); err != nil {
				return nil, wrapBitsErr(err, "could not read offset_for_ref_frame")
			}
		}
	}

	s.MaxNumRefFrames, err = bits.ReadUE(br)
	if err != nil {
		return nil, wrapBitsErr(err, "could not read max_num_ref_frames")
	}
	s.GapsInFrameNumValueAllowed, err = readFlag(br)
	if err != nil {
		return nil, wrapBitsErr(err, "could not read gaps_in_frame_num_value_allowed_flag")
	}

	s.PicWidthInMbsMinus1, err = bits.ReadUE(br)
	if err != nil {
		return nil, wrapBitsErr(err, "could not read pic_width_in_mbs_minus1")
	}
	s.PicHeightInMapUnitsMinus1, err = bits.ReadUE(br)
	if err != nil {
		return nil, wrapBitsErr(err, "could not read pic_height_in_map_units_minus1")
	}

	s.FrameMbsOnlyFlag, err = readFlag(br)
	if err != nil {
		return nil, wrapBitsErr(err, "could not read frame_mbs_only_flag")
	}
	if !s.FrameMbsOnlyFlag {
		s.MbAdaptiveFrameFieldFlag, err = readFlag(br)
		if err != nil {
			return nil, wrapBitsErr(err, "could not read mb_adaptive_frame_field_flag")
		}
	}

	s.Direct8x8InferenceFlag, err = readFlag(br)
	if err != nil {
		return nil, wrapBitsErr(err, "could not read direct_8x8_inference_flag")
	}

	s.FrameCroppingFlag, err = readFlag(br)
	if err != nil {
		return nil, wrapBitsErr(err, "could not read frame_cropping_flag")
	}
	if s.FrameCroppingFlag {
		s.CropLeft, err = bits.ReadUE(br)
		if err != nil {
			return nil, wrapBitsErr(err, "could not read frame_crop_left_offset")
		}
		s.CropRight, err = bits.ReadUE(br)
		if err != nil {
			return nil, wrapBitsErr(err, "could not read frame_crop_right_offset")
		}
		s.CropTop, err = bits.ReadUE(br)
		if err != nil {
			return nil, wrapBitsErr(err, "could not read frame_crop_top_offset")
		}
		s.CropBottom, err = bits.ReadUE(br)
		if err != nil {
			return nil, wrapBitsErr(err, "could not read frame_crop_bottom_offset")
		}
	}

	s.VUIParametersPresentFlag, err = readFlag(br)
	if err != nil {
		return nil, wrapBitsErr(err, "could not read vui_parameters_present_flag")
	}
	// VUI parameters themselves are out of scope: only the presence
	// flag is decoded, per the module's VUI non-goal.

	s.Width, s.Height = derivedDimensions(s)

	return s, nil
}

// derivedDimensions computes the post-crop picture width and height
// in luma samples, per §4.5.
func derivedDimensions(s *Sps) (width, height uint32) {
	subW, subH := chromaSubsampling(s.ChromaFormatIDC)

	width = (s.PicWidthInMbsMinus1 + 1) * 16
	frameMult := uint32(1)
	if !s.FrameMbsOnlyFlag {
		frameMult = 2
	}
	height = (s.PicHeightInMapUnitsMinus1 + 1) * 16 * frameMult

	if s.FrameCroppingFlag && subW > 0 {
		width -= subW * (s.CropLeft + s.CropRight)
	}
	if s.FrameCroppingFlag && subH > 0 {
		height -= subH * frameMult * (s.CropTop + s.CropBottom)
	}
	return width, height
}

func chromaSubsampling(chromaFormatIDC uint8) (subW, subH uint32) {
	switch chromaFormatIDC {
	case 1:
		return 2, 2
	case 2:
		return 2, 1
	case 3:
		return 1, 1
	default:
		return 0, 0
	}
}

// skipScalingList consumes a scaling list of the given size (16 for a
// 4x4 list, 64 for an 8x8 list), discarding the decoded deltas: only
// cursor position matters to callers.
func skipScalingList(br *bits.BitReader, size int) error {
	lastScale := 8
	nextScale := 8
	for i := 0; i < size; i++ {
		if nextScale != 0 {
			deltaScale, err := bits.ReadSE(br)
			if err != nil {
				return err
			}
			nextScale = (lastScale + int(deltaScale) + 256) % 256
		}
		if nextScale != 0 {
			lastScale = nextScale
		}
	}
	return nil
}

// readFlag reads a single u(1) flag.
func readFlag(br *bits.BitReader) (bool, error) {
	return br.ReadBit()
}

// CodecString returns the RFC 6381 avc1.PPCCLL codec string for s,
// built from profile_idc, the constraint-flag byte, and level_idc.
func (s *Sps) CodecString() string {
	constraints := uint8(0)
	if s.ConstraintSet0 {
		constraints |= 0x80
	}
	if s.ConstraintSet1 {
		constraints |= 0x40
	}
	if s.ConstraintSet2 {
		constraints |= 0x20
	}
	if s.ConstraintSet3 {
		constraints |= 0x10
	}
	if s.ConstraintSet4 {
		constraints |= 0x08
	}
	if s.ConstraintSet5 {
		constraints |= 0x04
	}
	return fmt.Sprintf("avc1.%02X%02X%02X", s.ProfileIdc, constraints, s.LevelIdc)
}
