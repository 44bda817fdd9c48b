/*
DESCRIPTION
  sei.go decodes the message list carried in a Supplemental Enhancement
  Information RBSP (section 7.3.2.3 / D.1 of the specification). Only
  the recovery-point and user-data-unregistered payloads are given
  structured shape; every other payload type is kept as raw bytes.

AUTHORS
  Dan Kereama <dan@streamhdr.io>
*/

package h264dec

// SeiPayloadKind tags which structured field of SeiPayload is valid.
type SeiPayloadKind int

const (
	SeiPayloadUnknown SeiPayloadKind = iota
	SeiPayloadRecoveryPoint
	SeiPayloadUserDataUnregistered
)

// RecoveryPointPayload is the decoded body of a recovery-point SEI
// message (payload_type 6).
type RecoveryPointPayload struct {
	RecoveryFrameCnt      uint32
	ExactMatchFlag        bool
	BrokenLinkFlag        bool
	ChangingSliceGroupIdc uint8
}

// SeiPayload is the decoded body of one SEI message. Exactly one of
// RecoveryPoint, UserDataUnregistered or Unknown is meaningful,
// selected by Kind.
type SeiPayload struct {
	Kind                 SeiPayloadKind
	RecoveryPoint        *RecoveryPointPayload
	UserDataUnregistered []byte
	Unknown              []byte
	UnknownType          uint32
}

// SeiMessage is one message out of an SEI NAL's message list.
type SeiMessage struct {
	PayloadType uint32
	PayloadSize uint32
	Payload     SeiPayload
}

// ParseSeiMessages decodes every message in an SEI RBSP. It never
// returns an error, since a malformed SEI message must not fail the
// access unit containing it: a payload that runs past the end of rbsp
// is clamped to the bytes present, an empty recovery-point payload and
// a user-data-unregistered payload shorter than 16 bytes are kept as
// SeiPayloadUnknown, and a recovery-point payload with no flag byte
// decodes with all of its flags clear.
func ParseSeiMessages(rbsp []byte) []SeiMessage {
	var messages []SeiMessage
	pos := 0

	for pos < len(rbsp) && rbsp[pos] != 0x80 {
		payloadType := uint32(0)
		for pos < len(rbsp) && rbsp[pos] == 0xFF {
			payloadType += 255
			pos++
		}
		if pos < len(rbsp) {
			payloadType += uint32(rbsp[pos])
			pos++
		}

		payloadSize := uint32(0)
		for pos < len(rbsp) && rbsp[pos] == 0xFF {
			payloadSize += 255
			pos++
		}
		if pos < len(rbsp) {
			payloadSize += uint32(rbsp[pos])
			pos++
		}

		end := pos + int(payloadSize)
		if end > len(rbsp) {
			end = len(rbsp)
		}
		payloadData := rbsp[pos:end]

		var payload SeiPayload
		switch payloadType {
		case 6:
			payload = parseRecoveryPoint(payloadData)
		case 5:
			if len(payloadData) >= 16 {
				payload = SeiPayload{Kind: SeiPayloadUserDataUnregistered, UserDataUnregistered: append([]byte(nil), payloadData...)}
			} else {
				payload = unknownPayload(payloadType, payloadData)
			}
		default:
			payload = unknownPayload(payloadType, payloadData)
		}

		messages = append(messages, SeiMessage{
			PayloadType: payloadType,
			PayloadSize: payloadSize,
			Payload:     payload,
		})

		pos = end
	}

	return messages
}

func unknownPayload(payloadType uint32, data []byte) SeiPayload {
	return SeiPayload{Kind: SeiPayloadUnknown, Unknown: append([]byte(nil), data...), UnknownType: payloadType}
}

// parseRecoveryPoint decodes a payload_type == 6 body: a variable-
// length 7-bit-per-byte big-endian recovery_frame_cnt followed by a
// single flag byte.
func parseRecoveryPoint(data []byte) SeiPayload {
	if len(data) == 0 {
		return unknownPayload(6, data)
	}

	recoveryFrameCnt := uint32(0)
	pos := 0
	for pos < len(data) {
		b := data[pos]
		recoveryFrameCnt = (recoveryFrameCnt << 7) | uint32(b&0x7F)
		pos++
		if b&0x80 == 0 {
			break
		}
	}

	var flags byte
	if pos < len(data) {
		flags = data[pos]
	}

	return SeiPayload{
		Kind: SeiPayloadRecoveryPoint,
		RecoveryPoint: &RecoveryPointPayload{
			RecoveryFrameCnt:      recoveryFrameCnt,
			ExactMatchFlag:        flags&0x80 != 0,
			BrokenLinkFlag:        flags&0x40 != 0,
			ChangingSliceGroupIdc: (flags & 0x30) >> 4,
		},
	}
}
