package s7

import "fmt"

// ErrorKind classifies an Error. Kinds in the low-level group invalidate the
// current session (Client.connected is latched false); kinds in the
// high-level group leave the session intact since the PLC answered the
// request, just not the way the caller hoped.
type ErrorKind int

const (
	// Low-level: the connection can no longer be trusted.
	KindNotConnected ErrorKind = iota
	KindTcpConnectionFailed
	KindIsoConnectionFailed
	KindPduNegotiationFailed
	KindIsoInvalidHeader
	KindIsoInvalidTelegram
	KindIsoFragmentedPacket
	KindS7Unspecified
	KindIo

	// High-level: the PLC rejected one item, the session is fine.
	KindNotFound
	KindS7InvalidAddress
)

func (k ErrorKind) String() string {
	switch k {
	case KindNotConnected:
		return "NotConnected"
	case KindTcpConnectionFailed:
		return "TcpConnectionFailed"
	case KindIsoConnectionFailed:
		return "IsoConnectionFailed"
	case KindPduNegotiationFailed:
		return "PduNegotiationFailed"
	case KindIsoInvalidHeader:
		return "IsoInvalidHeader"
	case KindIsoInvalidTelegram:
		return "IsoInvalidTelegram"
	case KindIsoFragmentedPacket:
		return "IsoFragmentedPacket"
	case KindS7Unspecified:
		return "S7Unspecified"
	case KindIo:
		return "Io"
	case KindNotFound:
		return "NotFound"
	case KindS7InvalidAddress:
		return "S7InvalidAddress"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

// lowLevel reports whether an error of this kind invalidates the session.
func (k ErrorKind) lowLevel() bool {
	switch k {
	case KindNotFound, KindS7InvalidAddress:
		return false
	default:
		return true
	}
}

// Error is the only error type this package returns. Callers switch on Kind
// rather than matching message text.
type Error struct {
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, s7.ErrNotConnected) match by Kind alone, ignoring
// whatever underlying cause is attached.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

func newError(kind ErrorKind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

// Sentinel errors for use with errors.Is. Only Kind is compared.
var (
	ErrNotConnected         = &Error{Kind: KindNotConnected}
	ErrTcpConnectionFailed  = &Error{Kind: KindTcpConnectionFailed}
	ErrIsoConnectionFailed  = &Error{Kind: KindIsoConnectionFailed}
	ErrPduNegotiationFailed = &Error{Kind: KindPduNegotiationFailed}
	ErrIsoInvalidHeader     = &Error{Kind: KindIsoInvalidHeader}
	ErrIsoInvalidTelegram   = &Error{Kind: KindIsoInvalidTelegram}
	ErrIsoFragmentedPacket  = &Error{Kind: KindIsoFragmentedPacket}
	ErrS7Unspecified        = &Error{Kind: KindS7Unspecified}
	ErrIo                   = &Error{Kind: KindIo}
	ErrNotFound             = &Error{Kind: KindNotFound}
	ErrS7InvalidAddress     = &Error{Kind: KindS7InvalidAddress}
)

// classifyItemReturnCode maps a ReadVar/WriteVar per-item return code to an
// Error, or nil for success (0xFF).
func classifyItemReturnCode(code byte) *Error {
	switch code {
	case 0xFF:
		return nil
	case 0x05:
		return newError(KindS7InvalidAddress, fmt.Errorf("item return code 0x05: invalid address"))
	case 0x0A:
		return newError(KindNotFound, fmt.Errorf("item return code 0x0A: object does not exist"))
	default:
		return newError(KindS7Unspecified, fmt.Errorf("item return code 0x%02X", code))
	}
}

// classifyS7Error maps the error class/code pair carried in every Ack-Data
// header to an Error, or nil if both are zero.
func classifyS7Error(class, code byte) *Error {
	if class == 0 && code == 0 {
		return nil
	}
	return newError(KindS7Unspecified, fmt.Errorf("s7 error class 0x%02X code 0x%02X", class, code))
}
