package s7

import (
	"time"

	"s7link/logging"
)

const (
	defaultTCPPort   = 102
	defaultCOTimeout = 3 * time.Second
	defaultRDTimeout = 1 * time.Second
	defaultWRTimeout = 500 * time.Millisecond
	defaultLocalTSAP = 0x0100
)

// ConnectionParams is the full set of knobs that go into a connection
// attempt. It is exported so callers can inspect what a Client would use
// (Client.ConnectionParams) and so the config package can round-trip it.
type ConnectionParams struct {
	IP             string
	TCPPort        uint16
	ConnectionType ConnectionType
	LocalTSAP      uint16
	RemoteTSAP     uint16
	COTimeout      time.Duration
	RDTimeout      time.Duration
	WRTimeout      time.Duration
}

func defaultConnectionParams() ConnectionParams {
	return ConnectionParams{
		TCPPort:        defaultTCPPort,
		ConnectionType: ConnectionTypePG,
		LocalTSAP:      defaultLocalTSAP,
		COTimeout:      defaultCOTimeout,
		RDTimeout:      defaultRDTimeout,
		WRTimeout:      defaultWRTimeout,
	}
}

// remoteTSAPForRackSlot computes the remote TSAP ConnectRackSlot uses: the
// connection type occupies the high byte, with rack/slot packed into the
// low byte as (rack<<5)|slot. This matches the reference client's
// connect_rack_slot, which puts the connection type in the *remote* TSAP —
// some prose descriptions of this handshake say "local", but the byte that
// travels on the wire is the one the PLC reads back as its peer's role.
func remoteTSAPForRackSlot(ct ConnectionType, rack, slot uint16) uint16 {
	return uint16(ct)<<8 | (rack << 5) | slot
}

// connectSession drives the full handshake: TCP dial, COTP connect, S7
// Setup Communication. On any failure it closes whatever it opened and
// returns an *Error whose Kind names the failed phase (TcpConnectionFailed,
// IsoConnectionFailed or PduNegotiationFailed), wrapping the underlying
// cause; on success it returns a session ready for engine.go's chunked
// read/write loops.
func connectSession(params ConnectionParams, tracer *logging.Tracer) (*activeSession, *Error) {
	t, err := dialTransport(params.IP, params.TCPPort, params.COTimeout, tracer)
	if err != nil {
		return nil, toS7Error(err)
	}

	if err := cotpConnect(t, params.LocalTSAP, params.RemoteTSAP, params.COTimeout); err != nil {
		t.close()
		if err.Kind != KindIsoConnectionFailed {
			err = newError(KindIsoConnectionFailed, err)
		}
		return nil, err
	}

	pduLength, sErr := setupComm(t, params.COTimeout)
	if sErr != nil {
		t.close()
		if sErr.Kind != KindPduNegotiationFailed {
			sErr = newError(KindPduNegotiationFailed, sErr)
		}
		return nil, sErr
	}

	return &activeSession{
		t:         t,
		pduLength: pduLength,
		rdTimeout: params.RDTimeout,
		wrTimeout: params.WRTimeout,
	}, nil
}

func cotpConnect(t *transport, localTSAP, remoteTSAP uint16, timeout time.Duration) *Error {
	req := buildCOTPConnectRequest(localTSAP, remoteTSAP)
	if err := t.sendFrame(req, timeout); err != nil {
		return toS7Error(err)
	}
	frame, err := t.recvFrame(timeout)
	if err != nil {
		return toS7Error(err)
	}
	if cerr := decodeCOTPConnectConfirm(frame); cerr != nil {
		return toS7Error(cerr)
	}
	return nil
}

func setupComm(t *transport, timeout time.Duration) (uint16, *Error) {
	const pduRef = 1
	req := buildSetupCommRequest(pduRef, setupPDUSize)
	if err := t.sendFrame(buildCOTPDataFrame(req), timeout); err != nil {
		return 0, toS7Error(err)
	}
	frame, err := t.recvFrame(timeout)
	if err != nil {
		return 0, toS7Error(err)
	}
	payload, cerr := stripCOTPData(frame)
	if cerr != nil {
		return 0, toS7Error(cerr)
	}
	pduLength, perr := parseSetupCommResponse(payload, pduRef)
	if perr != nil {
		return 0, perr
	}
	return pduLength, nil
}
