package s7

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"time"

	"s7link/logging"
)

// transport owns the TCP connection and speaks TPKT framing only; COTP and
// S7 are layered on top by session.go and engine.go.
type transport struct {
	conn   net.Conn
	tracer *logging.Tracer
}

func dialTransport(ip string, port uint16, timeout time.Duration, tracer *logging.Tracer) (*transport, error) {
	addr := net.JoinHostPort(ip, fmt.Sprintf("%d", port))
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, newError(KindTcpConnectionFailed, err)
	}
	return &transport{conn: conn, tracer: tracer}, nil
}

func (t *transport) close() error {
	if t.conn == nil {
		return nil
	}
	return t.conn.Close()
}

// sendFrame wraps payload in a TPKT header and writes it, enforcing timeout
// as a write deadline.
func (t *transport) sendFrame(payload []byte, timeout time.Duration) error {
	if err := t.conn.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
		return newError(KindIo, err)
	}
	frame := encodeTPKT(payload)
	if _, err := t.conn.Write(frame); err != nil {
		return newError(KindIo, err)
	}
	t.tracer.TX(frame)
	return nil
}

// recvFrame reads one TPKT-framed telegram and returns its payload (the
// COTP TPDU), with the TPKT header stripped and validated.
func (t *transport) recvFrame(timeout time.Duration) ([]byte, error) {
	if err := t.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return nil, newError(KindIo, err)
	}

	header := make([]byte, tpktHeaderSz)
	if _, err := io.ReadFull(t.conn, header); err != nil {
		return nil, newError(KindIo, err)
	}
	if header[0] != tpktVersion || header[1] != 0 {
		return nil, newError(KindIsoInvalidHeader, fmt.Errorf("bad tpkt header % x", header))
	}

	length := int(binary.BigEndian.Uint16(header[2:4]))
	if err := validateTPKTLength(length); err != nil {
		return nil, err
	}

	payload := make([]byte, length-tpktHeaderSz)
	if _, err := io.ReadFull(t.conn, payload); err != nil {
		return nil, newError(KindIsoFragmentedPacket, err)
	}
	frame := append(append([]byte{}, header...), payload...)
	t.tracer.RX(frame)
	return payload, nil
}
