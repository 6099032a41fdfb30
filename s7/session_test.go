package s7

import (
	"testing"
	"time"
)

func TestRemoteTSAPForRackSlot(t *testing.T) {
	cases := []struct {
		name   string
		ct     ConnectionType
		rack   uint16
		slot   uint16
		want   uint16
	}{
		{"pg rack0 slot0", ConnectionTypePG, 0, 0, 0x0100},
		{"pg rack0 slot2", ConnectionTypePG, 0, 2, 0x0102},
		{"op rack0 slot0", ConnectionTypeOP, 0, 0, 0x0200},
		{"s7basic rack1 slot3", ConnectionTypeS7Basic, 1, 3, 0x0300 | (1 << 5) | 3},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := remoteTSAPForRackSlot(tc.ct, tc.rack, tc.slot)
			if got != tc.want {
				t.Errorf("remoteTSAPForRackSlot(%v,%d,%d) = 0x%04X, want 0x%04X", tc.ct, tc.rack, tc.slot, got, tc.want)
			}
		})
	}
}

func TestDefaultConnectionParams(t *testing.T) {
	p := defaultConnectionParams()
	if p.TCPPort != defaultTCPPort {
		t.Errorf("TCPPort = %d, want %d", p.TCPPort, defaultTCPPort)
	}
	if p.ConnectionType != ConnectionTypePG {
		t.Errorf("ConnectionType = %v, want PG", p.ConnectionType)
	}
	if p.LocalTSAP != defaultLocalTSAP {
		t.Errorf("LocalTSAP = 0x%04X, want 0x%04X", p.LocalTSAP, defaultLocalTSAP)
	}
	if p.COTimeout != 3*time.Second {
		t.Errorf("COTimeout = %v, want 3s", p.COTimeout)
	}
	if p.RDTimeout != 1*time.Second {
		t.Errorf("RDTimeout = %v, want 1s", p.RDTimeout)
	}
	if p.WRTimeout != 500*time.Millisecond {
		t.Errorf("WRTimeout = %v, want 500ms", p.WRTimeout)
	}
}
