package h264dec

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParsePpsBasic(t *testing.T) {
	// pic_parameter_set_id = 0: "1"
	// seq_parameter_set_id = 0: "1"
	// entropy_coding_mode_flag = 1: "1"
	// bottom_field_pic_order_in_frame_present_flag = 0: "0"
	// num_slice_groups_minus1 = 0 (ue): "1"
	// num_ref_idx_l0_default_active_minus1 = 2 (ue=2 -> "011"): "011"
	// num_ref_idx_l1_default_active_minus1 = 0 (ue=0): "1"
	// weighted_pred_flag = 0: "0"
	// weighted_bipred_idc = 0: "00"
	// pic_init_qp_minus26 = 0 (se=0 -> ue=0 -> "1"): "1"
	// pic_init_qs_minus26 = 0: "1"
	// chroma_qp_index_offset = 0: "1"
	// deblocking_filter_control_present_flag = 0: "0"
	// constrained_intra_pred_flag = 0: "0"
	// redundant_pic_cnt_present_flag = 0: "0"
	// rbsp_stop_one_bit: "1"
	data, err := binToSlice("1" + "1" + "1" + "0" + "1" + "011" + "1" + "0" + "00" + "1" + "1" + "1" + "0" + "0" + "0" + "1")
	if err != nil {
		t.Fatalf("binToSlice: %v", err)
	}

	pps, err := ParsePps(data)
	if err != nil {
		t.Fatalf("ParsePps: %v", err)
	}
	if pps.PpsID != 0 {
		t.Errorf("PpsID = %d, want 0", pps.PpsID)
	}
	if pps.SpsID != 0 {
		t.Errorf("SpsID = %d, want 0", pps.SpsID)
	}
	if !pps.EntropyCodingModeFlag {
		t.Error("EntropyCodingModeFlag = false, want true")
	}
	if pps.NumRefIdxL0DefaultActiveMinus1 != 2 {
		t.Errorf("NumRefIdxL0DefaultActiveMinus1 = %d, want 2", pps.NumRefIdxL0DefaultActiveMinus1)
	}
	if pps.SecondChromaQpIndexOffset != pps.ChromaQpIndexOffset {
		t.Error("SecondChromaQpIndexOffset should default to ChromaQpIndexOffset when trailing block absent")
	}
}

func TestParsePpsBasicStruct(t *testing.T) {
	// Same fixture as TestParsePpsBasic; here every field of the decoded
	// Pps is checked at once via a struct diff instead of field-by-field.
	data, err := binToSlice("1" + "1" + "1" + "0" + "1" + "011" + "1" + "0" + "00" + "1" + "1" + "1" + "0" + "0" + "0" + "1")
	if err != nil {
		t.Fatalf("binToSlice: %v", err)
	}

	got, err := ParsePps(data)
	if err != nil {
		t.Fatalf("ParsePps: %v", err)
	}

	want := &Pps{
		EntropyCodingModeFlag:          true,
		NumRefIdxL0DefaultActiveMinus1: 2,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ParsePps mismatch (-want +got):\n%s", diff)
	}
}

func TestParsePpsRealBytes(t *testing.T) {
	// EBSP taken from a real PPS (ebsp = [0xee, 0x3c, 0x80]); converted
	// to RBSP before decoding (no escape sequences present here, so
	// RBSP == EBSP for this fixture).
	ebsp := []byte{0xee, 0x3c, 0x80}
	rbsp := EBSPToRBSP(ebsp)
	pps, err := ParsePps(rbsp)
	if err != nil {
		t.Fatalf("ParsePps: %v", err)
	}
	if pps.PpsID != 0 {
		t.Errorf("PpsID = %d, want 0", pps.PpsID)
	}
	if pps.SpsID != 0 {
		t.Errorf("SpsID = %d, want 0", pps.SpsID)
	}
}

func TestParsePpsInvalidID(t *testing.T) {
	// 32 leading zero bits overflow the Exp-Golomb leading-zero count
	// (> 31), which ParsePps must surface as an error while reading
	// pic_parameter_set_id.
	data, err := binToSlice("00000000 00000000 00000000 00000000")
	if err != nil {
		t.Fatalf("binToSlice: %v", err)
	}
	if _, err := ParsePps(data); err == nil {
		t.Fatal("expected error for out-of-range pic_parameter_set_id")
	}
}

func TestCeilLog2(t *testing.T) {
	for _, tc := range []struct {
		v    uint32
		want uint
	}{
		{1, 0},
		{2, 1},
		{3, 2},
		{4, 2},
		{5, 3},
		{8, 3},
	} {
		if got := ceilLog2(tc.v); got != tc.want {
			t.Errorf("ceilLog2(%d) = %d, want %d", tc.v, got, tc.want)
		}
	}
}
