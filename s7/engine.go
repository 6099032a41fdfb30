package s7

import "time"

// activeSession is the state a successful handshake produces: a live
// transport plus the negotiated PDU length that bounds chunk sizing. It is
// the receiver for the chunked ReadVar/WriteVar request engine.
type activeSession struct {
	t          *transport
	pduLength  uint16
	pduRef     uint16
	rdTimeout  time.Duration
	wrTimeout  time.Duration
}

func (s *activeSession) nextRef() uint16 {
	s.pduRef++
	return s.pduRef
}

// readCapacity and writeCapacity are R_max/W_max: the largest single-chunk
// payload that fits in one negotiated PDU, derived from the ReadVar/WriteVar
// telegram overhead.
func readCapacity(pduLength uint16) int {
	c := int(pduLength) - 18
	if c < 1 {
		c = 1
	}
	return c
}

func writeCapacity(pduLength uint16) int {
	c := int(pduLength) - 28
	if c < 1 {
		c = 1
	}
	return c
}

// readArea performs a chunked ReadVar, filling buf and returning the number
// of request/response round trips it took.
func (s *activeSession) readArea(area Area, dbNumber uint16, start uint32, wordlen WordLen, buf []byte) (int, *Error) {
	total := len(buf)
	if wordlen == WordLenBit {
		total = 1
	}

	capacity := readCapacity(s.pduLength)
	offset := 0
	chunks := 0
	cur := start

	for offset < total {
		chunkLen := total - offset
		if wordlen == WordLenByte && chunkLen > capacity {
			chunkLen = capacity
		}

		var bitAddr uint32
		var count uint16
		var transportSize byte
		if wordlen == WordLenBit {
			bitAddr = cur
			count = 1
			transportSize = tsBit
		} else {
			bitAddr = cur * 8
			count = uint16(chunkLen)
			transportSize = tsByte
		}

		ref := s.nextRef()
		req := buildReadVarRequest(ref, area, dbNumber, transportSize, count, bitAddr)
		if err := s.t.sendFrame(buildCOTPDataFrame(req), s.wrTimeout); err != nil {
			return chunks, toS7Error(err)
		}

		frame, err := s.t.recvFrame(s.rdTimeout)
		if err != nil {
			return chunks, toS7Error(err)
		}
		payload, cerr := stripCOTPData(frame)
		if cerr != nil {
			return chunks, toS7Error(cerr)
		}

		data, perr := parseReadVarResponse(payload, ref, chunkLen)
		if perr != nil {
			return chunks, perr
		}
		copy(buf[offset:offset+chunkLen], data)

		chunks++
		offset += chunkLen
		cur += uint32(chunkLen)
	}

	return chunks, nil
}

// writeArea performs a chunked WriteVar, sending data and returning the
// number of request/response round trips it took.
func (s *activeSession) writeArea(area Area, dbNumber uint16, start uint32, wordlen WordLen, data []byte) (int, *Error) {
	total := len(data)
	if wordlen == WordLenBit {
		total = 1
	}

	capacity := writeCapacity(s.pduLength)
	offset := 0
	chunks := 0
	cur := start

	for offset < total {
		chunkLen := total - offset
		if wordlen == WordLenByte && chunkLen > capacity {
			chunkLen = capacity
		}

		var bitAddr uint32
		if wordlen == WordLenBit {
			bitAddr = cur
		} else {
			bitAddr = cur * 8
		}

		ref := s.nextRef()
		req := buildWriteVarRequest(ref, area, dbNumber, wordlen, bitAddr, data[offset:offset+chunkLen])
		if err := s.t.sendFrame(buildCOTPDataFrame(req), s.wrTimeout); err != nil {
			return chunks, toS7Error(err)
		}

		frame, err := s.t.recvFrame(s.rdTimeout)
		if err != nil {
			return chunks, toS7Error(err)
		}
		payload, cerr := stripCOTPData(frame)
		if cerr != nil {
			return chunks, toS7Error(cerr)
		}

		if perr := parseWriteVarResponse(payload, ref); perr != nil {
			return chunks, perr
		}

		chunks++
		offset += chunkLen
		cur += uint32(chunkLen)
	}

	return chunks, nil
}

// toS7Error normalizes the plain error type returned by lower layers
// (transport/wire helpers return *Error already, but this keeps call sites
// uniform if that ever changes) into *Error.
func toS7Error(err error) *Error {
	if err == nil {
		return nil
	}
	if se, ok := err.(*Error); ok {
		return se
	}
	return newError(KindIo, err)
}
