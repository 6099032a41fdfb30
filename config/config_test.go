package config

import (
	"path/filepath"
	"testing"
	"time"

	"s7link/s7"
)

func TestLoadMissingFileReturnsEmptyConfig(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.PLCs) != 0 {
		t.Errorf("expected empty config, got %d entries", len(cfg.PLCs))
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := &Config{}
	cfg.Put(PLCEntry{
		Name: "line1",
		Params: PLCParams{
			IP:             "192.168.0.10",
			TCPPort:        102,
			ConnectionType: "OP",
			Rack:           0,
			Slot:           2,
			COTimeout:      3 * time.Second,
			RDTimeout:      time.Second,
			WRTimeout:      time.Second,
		},
	})

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	entry := loaded.Find("line1")
	if entry == nil {
		t.Fatal("entry \"line1\" not found after round trip")
	}
	if entry.Params.IP != "192.168.0.10" || entry.Params.Slot != 2 || entry.Params.ConnectionType != "OP" {
		t.Errorf("round-tripped params mismatch: %+v", entry.Params)
	}
	if entry.Params.COTimeout != 3*time.Second {
		t.Errorf("COTimeout = %v, want 3s", entry.Params.COTimeout)
	}
}

func TestFindMissingReturnsNil(t *testing.T) {
	cfg := &Config{}
	if cfg.Find("nope") != nil {
		t.Error("expected nil for missing entry")
	}
}

func TestPutReplacesExisting(t *testing.T) {
	cfg := &Config{}
	cfg.Put(PLCEntry{Name: "a", Params: PLCParams{IP: "1.1.1.1"}})
	cfg.Put(PLCEntry{Name: "a", Params: PLCParams{IP: "2.2.2.2"}})
	if len(cfg.PLCs) != 1 {
		t.Fatalf("expected 1 entry after replace, got %d", len(cfg.PLCs))
	}
	if cfg.Find("a").Params.IP != "2.2.2.2" {
		t.Errorf("Put did not replace existing entry")
	}
}

func TestRemove(t *testing.T) {
	cfg := &Config{}
	cfg.Put(PLCEntry{Name: "a"})
	cfg.Put(PLCEntry{Name: "b"})
	cfg.Remove("a")
	if cfg.Find("a") != nil {
		t.Error("entry \"a\" still present after Remove")
	}
	if cfg.Find("b") == nil {
		t.Error("entry \"b\" removed unexpectedly")
	}
}

func TestApplyToConfiguresClient(t *testing.T) {
	p := PLCParams{
		ConnectionType: "S7BASIC",
		TCPPort:        1102,
		COTimeout:      2 * time.Second,
		RDTimeout:      2 * time.Second,
		WRTimeout:      2 * time.Second,
	}
	c := s7.New()
	if err := p.ApplyTo(c); err != nil {
		t.Fatalf("ApplyTo: %v", err)
	}
	params := c.ConnectionParams()
	if params.ConnectionType != s7.ConnectionTypeS7Basic {
		t.Errorf("ConnectionType = %v, want S7Basic", params.ConnectionType)
	}
	if params.TCPPort != 1102 {
		t.Errorf("TCPPort = %d, want 1102", params.TCPPort)
	}
}

func TestApplyToRejectsUnknownConnectionType(t *testing.T) {
	p := PLCParams{ConnectionType: "BOGUS"}
	c := s7.New()
	if err := p.ApplyTo(c); err == nil {
		t.Error("expected error for unknown connection type")
	}
}

func TestFromConnectionParamsMapsConnectionType(t *testing.T) {
	c := s7.New()
	c.SetConnectionType(s7.ConnectionTypeOP)
	params := FromConnectionParams(c.ConnectionParams())
	if params.ConnectionType != "OP" {
		t.Errorf("ConnectionType = %q, want %q", params.ConnectionType, "OP")
	}
}
