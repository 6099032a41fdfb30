// Package logging provides a small file-backed tracer for the s7 package's
// wire traffic and connection lifecycle events.
package logging

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"
)

// Tracer writes timestamped, hex-dumped wire traces to a file. A nil
// *Tracer is valid and every method on it is a no-op, so callers can wire
// it through unconditionally and only construct one when tracing is
// actually requested.
type Tracer struct {
	mu     sync.Mutex
	file   *os.File
	closed bool
}

// NewTracer creates (truncating if it exists) a trace file at path.
func NewTracer(path string) (*Tracer, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return nil, fmt.Errorf("open trace file: %w", err)
	}
	t := &Tracer{file: file}
	t.writeLine("TRACE", "started %s", time.Now().Format(time.RFC3339))
	return t, nil
}

// Close flushes a footer line and closes the underlying file.
func (t *Tracer) Close() error {
	if t == nil {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	fmt.Fprintf(t.file, "%s [TRACE] ended\n", time.Now().Format("2006-01-02 15:04:05.000"))
	return t.file.Close()
}

func (t *Tracer) writeLine(tag, format string, args ...any) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	timestamp := time.Now().Format("2006-01-02 15:04:05.000")
	fmt.Fprintf(t.file, "%s [%s] %s\n", timestamp, tag, fmt.Sprintf(format, args...))
}

// LogConnect records the start of a connection attempt.
func (t *Tracer) LogConnect(addr string) {
	t.writeLine("CONNECT", "to %s", addr)
}

// LogConnectSuccess records a successful connection, with caller-supplied
// detail (e.g. the negotiated PDU length).
func (t *Tracer) LogConnectSuccess(addr, detail string) {
	t.writeLine("CONNECT", "to %s ok - %s", addr, detail)
}

// LogConnectError records a failed connection attempt.
func (t *Tracer) LogConnectError(addr string, err error) {
	t.writeLine("CONNECT", "to %s failed: %v", addr, err)
}

// LogDisconnect records a disconnection.
func (t *Tracer) LogDisconnect(addr string) {
	t.writeLine("DISCONNECT", "from %s", addr)
}

// TX logs a transmitted telegram with a hex dump.
func (t *Tracer) TX(data []byte) {
	t.logPacket("TX", data)
}

// RX logs a received telegram with a hex dump.
func (t *Tracer) RX(data []byte) {
	t.logPacket("RX", data)
}

func (t *Tracer) logPacket(direction string, data []byte) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	timestamp := time.Now().Format("2006-01-02 15:04:05.000")
	fmt.Fprintf(t.file, "%s [%s] %d bytes:\n%s\n", timestamp, direction, len(data), hexDump(data))
}

// LogError records an error with free-form context.
func (t *Tracer) LogError(context string, err error) {
	t.writeLine("ERROR", "%s: %v", context, err)
}

// hexDump renders data as 16-bytes-per-line offset/hex/ascii, snap7-style.
func hexDump(data []byte) string {
	if len(data) == 0 {
		return "    (empty)"
	}
	var sb strings.Builder
	for offset := 0; offset < len(data); offset += 16 {
		sb.WriteString(fmt.Sprintf("    %04X: ", offset))
		for i := 0; i < 16; i++ {
			if offset+i < len(data) {
				sb.WriteString(fmt.Sprintf("%02X ", data[offset+i]))
			} else {
				sb.WriteString("   ")
			}
			if i == 7 {
				sb.WriteString(" ")
			}
		}
		sb.WriteString(" ")
		for i := 0; i < 16; i++ {
			if offset+i < len(data) {
				b := data[offset+i]
				if b >= 32 && b < 127 {
					sb.WriteByte(b)
				} else {
					sb.WriteByte('.')
				}
			}
		}
		sb.WriteString("\n")
	}
	return strings.TrimSuffix(sb.String(), "\n")
}
