package s7

import (
	"fmt"
	"time"

	"s7link/logging"
)

// Client is a single, blocking connection to one S7 PLC. It is not safe
// for concurrent use: every method assumes it owns the connection for the
// duration of the call, and the package does no internal locking,
// pipelining, retry, or reconnection — callers that need any of that build
// it on top.
type Client struct {
	params    ConnectionParams
	session   *activeSession
	connected bool
	lastTime  float64
	chunks    int
	tracer    *logging.Tracer
}

// New returns a Client configured with the usual Siemens defaults (TCP port
// 102, PG connection type, 3s connect / 1s read / 500ms write timeouts). Use
// the Set* methods before connecting to change them.
func New() *Client {
	return &Client{params: defaultConnectionParams()}
}

// SetTracer attaches a wire-level tracer. Pass nil to disable tracing.
func (c *Client) SetTracer(t *logging.Tracer) {
	c.tracer = t
}

// SetConnectionType changes how ConnectRackSlot derives the remote TSAP.
// A zero value is ignored. Ignored once connected.
func (c *Client) SetConnectionType(t ConnectionType) {
	if c.connected || t == 0 {
		return
	}
	c.params.ConnectionType = t
}

// SetTimeout sets the connect/read/write timeouts. A zero value leaves the
// corresponding timeout unchanged. Ignored once connected.
func (c *Client) SetTimeout(co, rd, wr time.Duration) {
	if c.connected {
		return
	}
	if co > 0 {
		c.params.COTimeout = co
	}
	if rd > 0 {
		c.params.RDTimeout = rd
	}
	if wr > 0 {
		c.params.WRTimeout = wr
	}
}

// SetConnectionPort overrides the default TCP port (102). Ignored once
// connected.
func (c *Client) SetConnectionPort(port uint16) {
	if c.connected {
		return
	}
	if port > 0 {
		c.params.TCPPort = port
	}
}

// ConnectS71200_1500 connects to an S7-1200/1500 at rack 0, slot 0.
func (c *Client) ConnectS71200_1500(ip string) error {
	return c.ConnectRackSlot(ip, 0, 0)
}

// ConnectS7300 connects to an S7-300/400 at rack 0, slot 2.
func (c *Client) ConnectS7300(ip string) error {
	return c.ConnectRackSlot(ip, 0, 2)
}

// ConnectRackSlot connects using the rack/slot addressing scheme. The local
// TSAP is always 0x0100; the client's configured ConnectionType goes into
// the high byte of the remote TSAP only, never into the local one.
func (c *Client) ConnectRackSlot(ip string, rack, slot uint16) error {
	remote := remoteTSAPForRackSlot(c.params.ConnectionType, rack, slot)
	return c.ConnectTSAP(ip, defaultLocalTSAP, remote)
}

// ConnectTSAP connects using explicit local/remote TSAP values, bypassing
// ConnectionType/rack/slot derivation entirely.
func (c *Client) ConnectTSAP(ip string, localTSAP, remoteTSAP uint16) error {
	c.connected = false
	c.lastTime = 0
	c.chunks = 0
	c.params.IP = ip
	c.params.LocalTSAP = localTSAP
	c.params.RemoteTSAP = remoteTSAP

	if c.tracer != nil {
		c.tracer.LogConnect(ip)
	}

	start := time.Now()
	sess, err := connectSession(c.params, c.tracer)
	if err != nil {
		if c.tracer != nil {
			c.tracer.LogConnectError(ip, err)
		}
		return err
	}

	c.session = sess
	c.connected = true
	c.lastTime = msSince(start)

	if c.tracer != nil {
		c.tracer.LogConnectSuccess(ip, fmt.Sprintf("pdu_length=%d", sess.pduLength))
	}
	return nil
}

// Disconnect closes the TCP connection, if any, and latches Connected to
// false. It is safe to call on an already-disconnected Client.
func (c *Client) Disconnect() {
	if c.session != nil {
		c.session.t.close()
		c.session = nil
		if c.tracer != nil {
			c.tracer.LogDisconnect(c.params.IP)
		}
	}
	c.connected = false
}

// Connected reports the latched connection state. It is not a live probe —
// a half-open TCP connection still reads as connected until an operation
// on it fails.
func (c *Client) Connected() bool {
	return c.connected
}

// LastTimeMs returns the wall-clock duration of the last Read/Write/Connect
// call, in milliseconds. It is reset to 0 at the start of every such call
// and left at 0 if that call fails.
func (c *Client) LastTimeMs() float64 {
	return c.lastTime
}

// Chunks returns how many request/response round trips the last Read/Write
// call took. Reset to 0 at the start of every such call.
func (c *Client) Chunks() int {
	return c.chunks
}

// ConnectionParams returns the parameters currently configured (including
// the IP and TSAPs of the most recent connect attempt, successful or not).
func (c *Client) ConnectionParams() ConnectionParams {
	return c.params
}

// PDULength returns the PLC-negotiated PDU length and true, or (0, false)
// if the client is not connected.
func (c *Client) PDULength() (uint16, bool) {
	if !c.connected || c.session == nil {
		return 0, false
	}
	return c.session.pduLength, true
}

// ReadArea reads len(buf) bytes (or, for WordLenBit, a single bit) starting
// at start from the given area/DB, chunking the request as needed for the
// negotiated PDU size.
func (c *Client) ReadArea(area Area, dbNumber uint16, start uint32, wordlen WordLen, buf []byte) error {
	c.lastTime = 0
	c.chunks = 0
	if !c.connected {
		return ErrNotConnected
	}

	startTime := time.Now()
	chunks, err := c.session.readArea(area, dbNumber, start, wordlen, buf)
	if err != nil {
		if err.Kind.lowLevel() {
			c.session.t.close()
			c.connected = false
			c.session = nil
		}
		return err
	}
	c.chunks = chunks
	c.lastTime = msSince(startTime)
	return nil
}

// WriteArea writes data (or, for WordLenBit, a single bit from data[0])
// starting at start to the given area/DB, chunking the request as needed.
func (c *Client) WriteArea(area Area, dbNumber uint16, start uint32, wordlen WordLen, data []byte) error {
	c.lastTime = 0
	c.chunks = 0
	if !c.connected {
		return ErrNotConnected
	}

	startTime := time.Now()
	chunks, err := c.session.writeArea(area, dbNumber, start, wordlen, data)
	if err != nil {
		if err.Kind.lowLevel() {
			c.session.t.close()
			c.connected = false
			c.session = nil
		}
		return err
	}
	c.chunks = chunks
	c.lastTime = msSince(startTime)
	return nil
}

// ReadDB reads len(buf) bytes from the given data block at byte offset
// start. Shorthand for ReadArea(AreaDB, ..., WordLenByte, buf).
func (c *Client) ReadDB(dbNumber uint16, start uint32, buf []byte) error {
	return c.ReadArea(AreaDB, dbNumber, start, WordLenByte, buf)
}

// WriteDB writes data to the given data block at byte offset start.
// Shorthand for WriteArea(AreaDB, ..., WordLenByte, data).
func (c *Client) WriteDB(dbNumber uint16, start uint32, data []byte) error {
	return c.WriteArea(AreaDB, dbNumber, start, WordLenByte, data)
}

// ReadBit reads a single bit at byteIndex.bitIndex within area/db.
func (c *Client) ReadBit(area Area, dbNumber uint16, byteIndex uint32, bitIndex uint8) (bool, error) {
	if bitIndex > 7 {
		return false, &Error{Kind: KindS7InvalidAddress, Err: fmt.Errorf("bit index %d out of range [0,7]", bitIndex)}
	}
	buf := make([]byte, 1)
	start := byteIndex*8 + uint32(bitIndex)
	if err := c.ReadArea(area, dbNumber, start, WordLenBit, buf); err != nil {
		return false, err
	}
	return buf[0] != 0, nil
}

// WriteBit writes a single bit at byteIndex.bitIndex within area/db,
// leaving the other 7 bits of that byte unchanged.
func (c *Client) WriteBit(area Area, dbNumber uint16, byteIndex uint32, bitIndex uint8, value bool) error {
	if bitIndex > 7 {
		return &Error{Kind: KindS7InvalidAddress, Err: fmt.Errorf("bit index %d out of range [0,7]", bitIndex)}
	}
	data := []byte{0}
	if value {
		data[0] = 1
	}
	start := byteIndex*8 + uint32(bitIndex)
	return c.WriteArea(area, dbNumber, start, WordLenBit, data)
}

func msSince(t time.Time) float64 {
	return float64(time.Since(t).Microseconds()) / 1000.0
}
