package s7

import (
	"encoding/binary"
	"io"
	"net"
	"testing"
)

// This file implements a minimal, independent S7 PLC simulator used to
// drive end-to-end tests against the real Client over a real TCP
// connection. It deliberately does not call any encode/decode helper from
// the package under test, so a passing test actually exercises wire
// compatibility rather than a codec agreeing with itself.

type fakeDB struct {
	bytes []byte
}

type fakePLC struct {
	pduLength           uint16
	dbs                 map[uint16]*fakeDB
	closeAfterHandshake bool
}

func startFakePLC(t *testing.T, plc *fakePLC) (ip string, port uint16) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	addr := ln.Addr().(*net.TCPAddr)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		serveFakePLC(conn, plc)
	}()
	return "127.0.0.1", uint16(addr.Port)
}

func readFakeTPKT(conn net.Conn) ([]byte, error) {
	header := make([]byte, 4)
	if _, err := io.ReadFull(conn, header); err != nil {
		return nil, err
	}
	length := int(binary.BigEndian.Uint16(header[2:4]))
	rest := make([]byte, length-4)
	if _, err := io.ReadFull(conn, rest); err != nil {
		return nil, err
	}
	return rest, nil
}

func writeFakeTPKT(conn net.Conn, payload []byte) error {
	frame := make([]byte, 4+len(payload))
	frame[0] = 3
	binary.BigEndian.PutUint16(frame[2:4], uint16(len(frame)))
	copy(frame[4:], payload)
	_, err := conn.Write(frame)
	return err
}

func serveFakePLC(conn net.Conn, plc *fakePLC) {
	// COTP connect
	if _, err := readFakeTPKT(conn); err != nil {
		return
	}
	if err := writeFakeTPKT(conn, []byte{0x05, 0xD0, 0, 0, 0}); err != nil {
		return
	}

	// Setup Communication
	frame, err := readFakeTPKT(conn)
	if err != nil {
		return
	}
	s7req := frame[3:]
	ref := binary.BigEndian.Uint16(s7req[4:6])
	ack := fakeAckHeader(ref, 8, 0)
	params := []byte{0xF0, 0, 0, 1, 0, 1, byte(plc.pduLength >> 8), byte(plc.pduLength)}
	resp := append(ack, params...)
	if err := writeFakeTPKT(conn, append([]byte{0x02, 0xF0, 0x80}, resp...)); err != nil {
		return
	}
	if plc.closeAfterHandshake {
		return
	}

	for {
		frame, err := readFakeTPKT(conn)
		if err != nil {
			return
		}
		s7req := frame[3:]
		funcCode := s7req[10]
		ref := binary.BigEndian.Uint16(s7req[4:6])

		var reply []byte
		switch funcCode {
		case 0x04:
			reply = plc.handleReadVar(s7req, ref)
		case 0x05:
			reply = plc.handleWriteVar(s7req, ref)
		default:
			return
		}
		if err := writeFakeTPKT(conn, append([]byte{0x02, 0xF0, 0x80}, reply...)); err != nil {
			return
		}
	}
}

func fakeAckHeader(ref uint16, paramLen, dataLen int) []byte {
	h := make([]byte, 12)
	h[0] = 0x32
	h[1] = 0x03
	binary.BigEndian.PutUint16(h[4:6], ref)
	binary.BigEndian.PutUint16(h[6:8], uint16(paramLen))
	binary.BigEndian.PutUint16(h[8:10], uint16(dataLen))
	return h
}

func (p *fakePLC) handleReadVar(s7req []byte, ref uint16) []byte {
	item := s7req[12:24]
	transportSize := item[3]
	count := binary.BigEndian.Uint16(item[4:6])
	dbNumber := binary.BigEndian.Uint16(item[6:8])
	addr := uint32(item[9])<<16 | uint32(item[10])<<8 | uint32(item[11])

	db, returnCode, byteIdx := p.lookupDB(dbNumber, transportSize, addr, count)

	var payload []byte
	var transportRespCode byte = 0x04
	if returnCode == 0xFF {
		if transportSize == 0x01 {
			transportRespCode = 0x03
			bit := byte(0)
			bitIdx := addr % 8
			if db.bytes[byteIdx]&(1<<bitIdx) != 0 {
				bit = 1
			}
			payload = []byte{bit}
		} else {
			payload = append([]byte{}, db.bytes[byteIdx:byteIdx+int(count)]...)
		}
	}

	params := []byte{0x04, 0x01}
	dataItem := append([]byte{returnCode, transportRespCode, byte(len(payload) >> 8), byte(len(payload))}, payload...)
	ack := fakeAckHeader(ref, len(params), len(dataItem))
	resp := append(ack, params...)
	resp = append(resp, dataItem...)
	return resp
}

func (p *fakePLC) handleWriteVar(s7req []byte, ref uint16) []byte {
	item := s7req[12:24]
	transportSize := item[3]
	dbNumber := binary.BigEndian.Uint16(item[6:8])
	addr := uint32(item[9])<<16 | uint32(item[10])<<8 | uint32(item[11])

	paramLen := binary.BigEndian.Uint16(s7req[6:8])
	dataSection := s7req[10+int(paramLen):]
	dataLen := binary.BigEndian.Uint16(s7req[8:10])
	payload := dataSection[4:dataLen]

	db, returnCode, byteIdx := p.lookupDB(dbNumber, transportSize, addr, 1)
	if returnCode == 0xFF {
		if transportSize == 0x01 {
			bitIdx := addr % 8
			if payload[0] != 0 {
				db.bytes[byteIdx] |= 1 << bitIdx
			} else {
				db.bytes[byteIdx] &^= 1 << bitIdx
			}
		} else {
			copy(db.bytes[byteIdx:], payload)
		}
	}

	params := []byte{0x05, 0x01}
	dataItem := []byte{returnCode}
	ack := fakeAckHeader(ref, len(params), len(dataItem))
	resp := append(ack, params...)
	resp = append(resp, dataItem...)
	return resp
}

// lookupDB resolves a dbNumber/address pair to its backing buffer and a
// return code (0xFF success, 0x0A not found, 0x05 invalid address).
func (p *fakePLC) lookupDB(dbNumber uint16, transportSize byte, addr uint32, count uint16) (*fakeDB, byte, int) {
	db, ok := p.dbs[dbNumber]
	if !ok {
		return nil, 0x0A, 0
	}
	var byteIdx, span int
	if transportSize == 0x01 {
		byteIdx = int(addr / 8)
		span = 1
	} else {
		byteIdx = int(addr / 8)
		span = int(count)
	}
	if byteIdx < 0 || byteIdx+span > len(db.bytes) {
		return db, 0x05, 0
	}
	return db, 0xFF, byteIdx
}
