package s7

import (
	"encoding/binary"
	"fmt"
)

// TPKT (RFC 1006) and COTP (ISO 8073) framing. The S7 application layer
// rides inside the data field of a COTP DT (data transfer) TPDU, which in
// turn rides inside a TPKT packet.

const (
	tpktVersion  = 3
	tpktHeaderSz = 4

	minTelegramLen = 7    // shortest legal TPKT length field (4-byte TPKT + 3-byte COTP DT header, no payload)
	maxTelegramLen = 2048 // generous upper bound; real PDUs never exceed 960+overhead

	cotpTypeCR = 0xE0 // connect request
	cotpTypeCC = 0xD0 // connect confirm
	cotpTypeDT = 0xF0 // data transfer
	cotpEOT    = 0x80 // end-of-transmission bit (TPDU-NR byte), set on every DT here

	cotpParamTPDUSize = 0xC0
	cotpParamSrcTSAP  = 0xC1
	cotpParamDstTSAP  = 0xC2
	cotpTPDUSize1024  = 0x0A
)

// encodeTPKT wraps payload (the COTP TPDU) in a 4-byte TPKT header.
func encodeTPKT(payload []byte) []byte {
	frame := make([]byte, tpktHeaderSz+len(payload))
	frame[0] = tpktVersion
	frame[1] = 0
	binary.BigEndian.PutUint16(frame[2:4], uint16(len(frame)))
	copy(frame[tpktHeaderSz:], payload)
	return frame
}

// validateTPKTLength checks a just-parsed TPKT length field against the
// telegram bounds the transport enforces before reading the remainder.
func validateTPKTLength(length int) error {
	if length < minTelegramLen || length > maxTelegramLen {
		return newError(KindIsoInvalidTelegram, fmt.Errorf("tpkt length %d out of range [%d,%d]", length, minTelegramLen, maxTelegramLen))
	}
	return nil
}

// buildCOTPConnectRequest builds the COTP CR TPDU (everything after the
// TPKT header) for the ISO connection handshake.
func buildCOTPConnectRequest(localTSAP, remoteTSAP uint16) []byte {
	body := []byte{
		0x00,       // length, patched below
		cotpTypeCR, // CR
		0x00, 0x00, // destination reference (unknown at CR time)
		0x00, 0x01, // source reference
		0x00, // class/options

		cotpParamTPDUSize, 0x01, cotpTPDUSize1024,
		cotpParamSrcTSAP, 0x02, byte(localTSAP >> 8), byte(localTSAP),
		cotpParamDstTSAP, 0x02, byte(remoteTSAP >> 8), byte(remoteTSAP),
	}
	body[0] = byte(len(body) - 1)
	return body
}

// decodeCOTPConnectConfirm validates a COTP CC TPDU. frame is the telegram
// as returned by transport.recvFrame (TPKT header already stripped).
func decodeCOTPConnectConfirm(frame []byte) error {
	if len(frame) < 2 {
		return newError(KindIsoInvalidTelegram, fmt.Errorf("cotp cc too short: %d bytes", len(frame)))
	}
	if frame[1] != cotpTypeCC {
		return newError(KindIsoConnectionFailed, fmt.Errorf("expected cotp cc (0x%02X), got 0x%02X", cotpTypeCC, frame[1]))
	}
	return nil
}

// buildCOTPDataFrame wraps an S7 telegram in a 3-byte COTP DT header.
func buildCOTPDataFrame(s7Payload []byte) []byte {
	frame := make([]byte, 3+len(s7Payload))
	frame[0] = 0x02
	frame[1] = cotpTypeDT
	frame[2] = cotpEOT
	copy(frame[3:], s7Payload)
	return frame
}

// stripCOTPData validates and removes the COTP DT header, returning the S7
// application payload.
func stripCOTPData(frame []byte) ([]byte, error) {
	if len(frame) < 3 {
		return nil, newError(KindIsoInvalidTelegram, fmt.Errorf("cotp dt too short: %d bytes", len(frame)))
	}
	if frame[1] != cotpTypeDT {
		return nil, newError(KindIsoInvalidTelegram, fmt.Errorf("expected cotp dt (0x%02X), got 0x%02X", cotpTypeDT, frame[1]))
	}
	return frame[3:], nil
}
