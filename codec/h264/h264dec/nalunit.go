/*
DESCRIPTION
  nalunit.go parses the 1-byte NAL unit header (section 7.3.1 /
  7.4.1 of the specification) and converts between EBSP and RBSP.

AUTHORS
  Dan Kereama <dan@streamhdr.io>
  Saxon Nelson-Milton <saxon@ausocean.org>, The Australian Ocean Laboratory (AusOcean)
*/

package h264dec

// NalUnitType is the 5-bit nal_unit_type field of a NAL header (Table
// 7-1). The raw code is the value itself: the 17-23 and 24-31 ranges
// are reserved / unspecified-extension respectively, and IsReserved /
// IsUnspecifiedExt recover which range a value falls in without
// losing the underlying code.
type NalUnitType uint8

// Named NAL unit types, Table 7-1.
const (
	NalUnspecified       NalUnitType = 0
	NalNonIdrSlice       NalUnitType = 1
	NalDataPartitionA    NalUnitType = 2
	NalDataPartitionB    NalUnitType = 3
	NalDataPartitionC    NalUnitType = 4
	NalIdrSlice          NalUnitType = 5
	NalSei               NalUnitType = 6
	NalSps               NalUnitType = 7
	NalPps               NalUnitType = 8
	NalAud               NalUnitType = 9
	NalEndOfSeq          NalUnitType = 10
	NalEndOfStream       NalUnitType = 11
	NalFiller            NalUnitType = 12
	NalSpsExt            NalUnitType = 13
	NalPrefix            NalUnitType = 14
	NalSubsetSps         NalUnitType = 15
	NalDepthParameterSet NalUnitType = 16
)

// IsReserved reports whether t falls in the reserved range 17-23.
func (t NalUnitType) IsReserved() bool { return t >= 17 && t <= 23 }

// IsUnspecifiedExt reports whether t falls in the unspecified-
// extension range 24-31.
func (t NalUnitType) IsUnspecifiedExt() bool { return t >= 24 && t <= 31 }

// Code returns the raw 5-bit nal_unit_type value.
func (t NalUnitType) Code() uint8 { return uint8(t) }

// IsVCL reports whether t is one of the Video Coding Layer NAL types
// that carries slice data: {1,2,3,4,5}.
func (t NalUnitType) IsVCL() bool {
	switch t {
	case NalNonIdrSlice, NalDataPartitionA, NalDataPartitionB, NalDataPartitionC, NalIdrSlice:
		return true
	default:
		return false
	}
}

// IsSlice reports whether t carries slice (or slice-data-partition)
// data — the same set as IsVCL, named separately to mirror the
// "is_slice vs is_vcl" distinction used elsewhere in the bitstream
// (they are currently identical sets for this NAL type enumeration).
func (t NalUnitType) IsSlice() bool { return t.IsVCL() }

func (t NalUnitType) String() string {
	switch t {
	case NalUnspecified:
		return "Unspecified"
	case NalNonIdrSlice:
		return "NonIdrSlice"
	case NalDataPartitionA:
		return "DataPartitionA"
	case NalDataPartitionB:
		return "DataPartitionB"
	case NalDataPartitionC:
		return "DataPartitionC"
	case NalIdrSlice:
		return "IdrSlice"
	case NalSei:
		return "Sei"
	case NalSps:
		return "Sps"
	case NalPps:
		return "Pps"
	case NalAud:
		return "Aud"
	case NalEndOfSeq:
		return "EndOfSeq"
	case NalEndOfStream:
		return "EndOfStream"
	case NalFiller:
		return "Filler"
	case NalSpsExt:
		return "SpsExt"
	case NalPrefix:
		return "Prefix"
	case NalSubsetSps:
		return "SubsetSps"
	case NalDepthParameterSet:
		return "DepthParameterSet"
	default:
		switch {
		case t.IsReserved():
			return "Reserved"
		case t.IsUnspecifiedExt():
			return "UnspecifiedExt"
		default:
			return "Unknown"
		}
	}
}

// Nal is one NAL unit extracted from an Annex-B stream: the start
// code length it was found behind, its header fields, and its EBSP
// payload (header byte excluded, emulation-prevention escapes still
// intact).
type Nal struct {
	StartCodeLen uint8
	RefIdc       uint8
	Type         NalUnitType
	EBSP         []byte
}

// ParseNal parses the header byte of data (start-code bytes already
// stripped by the scanner) and returns a Nal referencing the
// remaining bytes as EBSP. The caller owns data; ParseNal does not
// copy it.
func ParseNal(startCodeLen uint8, data []byte) (Nal, error) {
	if len(data) == 0 {
		return Nal{}, errInvalidNalHeader()
	}
	header := data[0]
	if header&0x80 != 0 { // forbidden_zero_bit
		return Nal{}, errInvalidNalHeader()
	}
	refIdc := (header >> 5) & 0x3
	nalType := NalUnitType(header & 0x1f)

	var ebsp []byte
	if len(data) > 1 {
		ebsp = data[1:]
	}

	return Nal{
		StartCodeLen: startCodeLen,
		RefIdc:       refIdc,
		Type:         nalType,
		EBSP:         ebsp,
	}, nil
}

// RBSP converts n's EBSP payload to RBSP by removing emulation-
// prevention escapes.
func (n Nal) RBSP() []byte {
	return EBSPToRBSP(n.EBSP)
}

// AnnexB serializes n as an Annex-B byte sequence: the start code
// (00 00 01 when StartCodeLen == 3, else 00 00 00 01), the
// reconstructed header byte, then the EBSP.
func (n Nal) AnnexB() []byte {
	var startCode []byte
	if n.StartCodeLen == 4 {
		startCode = []byte{0x00, 0x00, 0x00, 0x01}
	} else {
		startCode = []byte{0x00, 0x00, 0x01}
	}
	header := (n.RefIdc&0x3)<<5 | (uint8(n.Type) & 0x1f)

	out := make([]byte, 0, len(startCode)+1+len(n.EBSP))
	out = append(out, startCode...)
	out = append(out, header)
	out = append(out, n.EBSP...)
	return out
}

// EBSPToRBSP removes emulation-prevention escapes from ebsp: every
// 00 00 03 triple becomes 00 00, with the 03 dropped.
func EBSPToRBSP(ebsp []byte) []byte {
	rbsp := make([]byte, 0, len(ebsp))
	for i := 0; i < len(ebsp); {
		if i+2 < len(ebsp) && ebsp[i] == 0x00 && ebsp[i+1] == 0x00 && ebsp[i+2] == 0x03 {
			rbsp = append(rbsp, 0x00, 0x00)
			i += 3
			continue
		}
		rbsp = append(rbsp, ebsp[i])
		i++
	}
	return rbsp
}

// RBSPToEBSP inserts emulation-prevention escapes into rbsp: after
// every two consecutive zero bytes, if the next byte is <= 0x03, a
// 0x03 is inserted before it. The zero counter resets on any
// non-zero byte.
func RBSPToEBSP(rbsp []byte) []byte {
	ebsp := make([]byte, 0, len(rbsp)+len(rbsp)/3)
	zeroRun := 0
	for _, b := range rbsp {
		if zeroRun == 2 && b <= 0x03 {
			ebsp = append(ebsp, 0x03)
			zeroRun = 0
		}
		ebsp = append(ebsp, b)
		if b == 0x00 {
			zeroRun++
		} else {
			zeroRun = 0
		}
	}
	return ebsp
}
