package s7

import (
	"encoding/binary"
	"fmt"
)

// S7 application-layer constants and the Setup Communication / ReadVar /
// WriteVar telegram codecs. Every telegram here is the payload handed to
// buildCOTPDataFrame / returned by stripCOTPData — no TPKT or COTP bytes.

const (
	s7ProtocolID = 0x32

	msgJob     = 0x01
	msgAckData = 0x03

	funcSetupComm = 0xF0
	funcReadVar   = 0x04
	funcWriteVar  = 0x05

	// S7ANY variable specification, used in ReadVar/WriteVar item lists.
	s7AnySpecType = 0x12
	s7AnyLen      = 0x0A
	s7AnySyntaxID = 0x10

	// Transport-size codes inside an S7ANY item (request side).
	tsBit  byte = 0x01
	tsByte byte = 0x02

	// Transport-size codes inside a returned data item (response side).
	tsResBit  byte = 0x03
	tsResByte byte = 0x04

	setupAmqCalling uint16 = 1
	setupAmqCalled  uint16 = 1
	setupPDUSize    uint16 = 960

	minNegotiatedPDU = 16
	maxNegotiatedPDU = 960

	jobHeaderLen = 10
	ackHeaderLen = 12
)

// encodeJobHeader builds a 10-byte S7 Job header.
func encodeJobHeader(pduRef uint16, paramLen, dataLen int) []byte {
	h := make([]byte, jobHeaderLen)
	h[0] = s7ProtocolID
	h[1] = msgJob
	// h[2:4] reserved, left zero
	binary.BigEndian.PutUint16(h[4:6], pduRef)
	binary.BigEndian.PutUint16(h[6:8], uint16(paramLen))
	binary.BigEndian.PutUint16(h[8:10], uint16(dataLen))
	return h
}

// decodeAckDataHeader parses and validates the 12-byte Ack-Data header
// shared by Setup Communication, ReadVar and WriteVar replies.
func decodeAckDataHeader(data []byte) (pduRef uint16, paramLen, dataLen int, err *Error) {
	if len(data) < ackHeaderLen {
		return 0, 0, 0, newError(KindIsoInvalidTelegram, fmt.Errorf("s7 header too short: %d bytes", len(data)))
	}
	if data[0] != s7ProtocolID {
		return 0, 0, 0, newError(KindIsoInvalidHeader, fmt.Errorf("bad s7 protocol id 0x%02X", data[0]))
	}
	if data[1] != msgAckData {
		return 0, 0, 0, newError(KindIsoInvalidTelegram, fmt.Errorf("expected ack-data (0x%02X), got message type 0x%02X", msgAckData, data[1]))
	}
	pduRef = binary.BigEndian.Uint16(data[4:6])
	paramLen = int(binary.BigEndian.Uint16(data[6:8]))
	dataLen = int(binary.BigEndian.Uint16(data[8:10]))
	if e := classifyS7Error(data[10], data[11]); e != nil {
		return pduRef, paramLen, dataLen, e
	}
	return pduRef, paramLen, dataLen, nil
}

func checkPDURef(got, want uint16) *Error {
	if got != want {
		return newError(KindIsoInvalidTelegram, fmt.Errorf("pdu reference mismatch: got %d, want %d", got, want))
	}
	return nil
}

// buildSetupCommRequest builds the Setup Communication request telegram.
func buildSetupCommRequest(pduRef uint16, pduSize uint16) []byte {
	params := []byte{
		funcSetupComm,
		0x00, // reserved
		0x00, 0x00,
		0x00, 0x00,
		0x00, 0x00,
	}
	binary.BigEndian.PutUint16(params[2:4], setupAmqCalling)
	binary.BigEndian.PutUint16(params[4:6], setupAmqCalled)
	binary.BigEndian.PutUint16(params[6:8], pduSize)

	telegram := encodeJobHeader(pduRef, len(params), 0)
	telegram = append(telegram, params...)
	return telegram
}

// parseSetupCommResponse validates a Setup Communication reply and returns
// the PLC-negotiated PDU length.
func parseSetupCommResponse(data []byte, expectedRef uint16) (uint16, *Error) {
	pduRef, paramLen, _, err := decodeAckDataHeader(data)
	if err != nil {
		return 0, err
	}
	if err := checkPDURef(pduRef, expectedRef); err != nil {
		return 0, err
	}
	if paramLen < 8 || len(data) < ackHeaderLen+paramLen {
		return 0, newError(KindIsoInvalidTelegram, fmt.Errorf("setup comm response truncated"))
	}
	params := data[ackHeaderLen : ackHeaderLen+paramLen]
	negotiated := binary.BigEndian.Uint16(params[6:8])
	if negotiated < minNegotiatedPDU || negotiated > maxNegotiatedPDU {
		return 0, newError(KindPduNegotiationFailed, fmt.Errorf("negotiated pdu length %d out of range [%d,%d]", negotiated, minNegotiatedPDU, maxNegotiatedPDU))
	}
	return negotiated, nil
}

// encodeS7AnyItem builds a 12-byte S7ANY variable specification.
func encodeS7AnyItem(transportSize byte, count uint16, dbNumber uint16, area Area, bitAddr uint32) []byte {
	item := make([]byte, 12)
	item[0] = s7AnySpecType
	item[1] = s7AnyLen
	item[2] = s7AnySyntaxID
	item[3] = transportSize
	binary.BigEndian.PutUint16(item[4:6], count)
	binary.BigEndian.PutUint16(item[6:8], dbNumber)
	item[8] = byte(area)
	item[9] = byte(bitAddr >> 16)
	item[10] = byte(bitAddr >> 8)
	item[11] = byte(bitAddr)
	return item
}

// buildReadVarRequest builds a single-item ReadVar request.
func buildReadVarRequest(pduRef uint16, area Area, dbNumber uint16, transportSize byte, count uint16, bitAddr uint32) []byte {
	params := make([]byte, 0, 2+12)
	params = append(params, funcReadVar, 0x01) // function, item count
	params = append(params, encodeS7AnyItem(transportSize, count, dbNumber, area, bitAddr)...)

	telegram := encodeJobHeader(pduRef, len(params), 0)
	telegram = append(telegram, params...)
	return telegram
}

// parseReadVarResponse validates a single-item ReadVar reply and returns
// exactly wantBytes of the payload it carries, or an error if the reply
// carries fewer. The data item's own length field
// (bits for a bit read, count for a byte read) is advisory only — the
// caller already knows exactly how many bytes it asked for.
func parseReadVarResponse(data []byte, expectedRef uint16, wantBytes int) ([]byte, *Error) {
	pduRef, paramLen, _, err := decodeAckDataHeader(data)
	if err != nil {
		return nil, err
	}
	if err := checkPDURef(pduRef, expectedRef); err != nil {
		return nil, err
	}
	dataStart := ackHeaderLen + paramLen
	if len(data) < dataStart+4 {
		return nil, newError(KindIsoInvalidTelegram, fmt.Errorf("readvar response truncated before data item"))
	}
	item := data[dataStart:]
	returnCode := item[0]
	if e := classifyItemReturnCode(returnCode); e != nil {
		return nil, e
	}

	available := len(item) - 4
	if available < wantBytes {
		return nil, newError(KindIsoInvalidTelegram, fmt.Errorf("readvar response carries %d bytes, wanted %d", available, wantBytes))
	}
	payload := make([]byte, wantBytes)
	copy(payload, item[4:4+wantBytes])
	return payload, nil
}

// buildWriteVarRequest builds a single-item WriteVar request, embedding the
// payload directly in the request's data section.
func buildWriteVarRequest(pduRef uint16, area Area, dbNumber uint16, wordlen WordLen, bitAddr uint32, payload []byte) []byte {
	var transportSize, transportCode byte
	var count uint16
	if wordlen == WordLenBit {
		transportSize, transportCode, count = tsBit, tsResBit, 1
	} else {
		transportSize, transportCode, count = tsByte, tsResByte, uint16(len(payload))
	}

	params := make([]byte, 0, 2+12)
	params = append(params, funcWriteVar, 0x01)
	params = append(params, encodeS7AnyItem(transportSize, count, dbNumber, area, bitAddr)...)

	dataItem := make([]byte, 0, 4+len(payload))
	dataItem = append(dataItem, 0x00, transportCode)
	length := uint16(len(payload))
	if wordlen == WordLenBit {
		length = 1
	} else {
		length = uint16(len(payload)) * 8
	}
	lengthBuf := make([]byte, 2)
	binary.BigEndian.PutUint16(lengthBuf, length)
	dataItem = append(dataItem, lengthBuf...)
	dataItem = append(dataItem, payload...)

	telegram := encodeJobHeader(pduRef, len(params), len(dataItem))
	telegram = append(telegram, params...)
	telegram = append(telegram, dataItem...)
	return telegram
}

// parseWriteVarResponse validates a single-item WriteVar reply. The data
// section of a write reply is just the per-item return code, with no
// transport-size/length fields (there is no payload to describe).
func parseWriteVarResponse(data []byte, expectedRef uint16) *Error {
	pduRef, paramLen, _, err := decodeAckDataHeader(data)
	if err != nil {
		return err
	}
	if err := checkPDURef(pduRef, expectedRef); err != nil {
		return err
	}
	dataStart := ackHeaderLen + paramLen
	if len(data) < dataStart+1 {
		return newError(KindIsoInvalidTelegram, fmt.Errorf("writevar response truncated before return code"))
	}
	return classifyItemReturnCode(data[dataStart])
}
