// Package s7 implements a native client for the Siemens S7 communication
// protocol over ISO-on-TCP (RFC 1006): the PDU negotiation handshake and the
// ReadVar/WriteVar request engine. It trades in raw byte buffers only —
// higher-level value decoding (BCD, REAL, DATE_AND_TIME, ...) is left to the
// caller.
package s7

import "fmt"

// ConnectionType selects how the client identifies itself to the PLC during
// the ISO connection handshake. ConnectRackSlot embeds it in the high byte
// of the remote TSAP; ConnectTSAP ignores it entirely.
type ConnectionType uint8

const (
	ConnectionTypePG      ConnectionType = 1 // programming device (default)
	ConnectionTypeOP      ConnectionType = 2 // operator panel / HMI
	ConnectionTypeS7Basic ConnectionType = 3 // generic S7 basic connection
)

func (t ConnectionType) String() string {
	switch t {
	case ConnectionTypePG:
		return "PG"
	case ConnectionTypeOP:
		return "OP"
	case ConnectionTypeS7Basic:
		return "S7BASIC"
	default:
		return fmt.Sprintf("ConnectionType(%d)", uint8(t))
	}
}

// Area identifies an S7 memory area. These are the canonical S7 values;
// some vendor documentation lists AreaPA and AreaMK as both 0x84, which is
// a documentation error, not an alternate encoding (see DESIGN.md).
type Area uint8

const (
	AreaPE Area = 0x81 // Process Inputs
	AreaPA Area = 0x82 // Process Outputs
	AreaMK Area = 0x83 // Merkers / Flags
	AreaDB Area = 0x84 // Data Blocks
)

func (a Area) String() string {
	switch a {
	case AreaPE:
		return "PE"
	case AreaPA:
		return "PA"
	case AreaMK:
		return "MK"
	case AreaDB:
		return "DB"
	default:
		return fmt.Sprintf("Area(0x%02X)", uint8(a))
	}
}

// WordLen selects bit- or byte-addressed access within an Area.
type WordLen uint8

const (
	WordLenBit  WordLen = 0x01
	WordLenByte WordLen = 0x02
)

func (w WordLen) String() string {
	switch w {
	case WordLenBit:
		return "Bit"
	case WordLenByte:
		return "Byte"
	default:
		return fmt.Sprintf("WordLen(0x%02X)", uint8(w))
	}
}
