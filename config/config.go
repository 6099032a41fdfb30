// Package config persists named S7 connection parameters to a YAML file on
// disk, the way a caller of the s7 client might save a handful of PLC
// targets between runs of a CLI or supervisor process.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"s7link/s7"
)

// PLCParams is the on-disk, YAML-tagged mirror of s7.ConnectionParams.
// ConnectionType is stored as its string name rather than a bare integer so
// the file stays readable and stable across any future reordering of the
// underlying constants.
type PLCParams struct {
	IP             string        `yaml:"ip"`
	TCPPort        uint16        `yaml:"tcp_port,omitempty"`
	ConnectionType string        `yaml:"connection_type,omitempty"`
	Rack           uint16        `yaml:"rack"`
	Slot           uint16        `yaml:"slot"`
	COTimeout      time.Duration `yaml:"co_timeout,omitempty"`
	RDTimeout      time.Duration `yaml:"rd_timeout,omitempty"`
	WRTimeout      time.Duration `yaml:"wr_timeout,omitempty"`
}

// PLCEntry names one configured PLC connection.
type PLCEntry struct {
	Name   string    `yaml:"name"`
	Params PLCParams `yaml:"params"`
}

// Config is the top-level on-disk document: a flat list of named PLC
// connections.
type Config struct {
	PLCs []PLCEntry `yaml:"plcs"`
}

// DefaultPath returns ~/.s7link/config.yaml, falling back to a relative
// path if the home directory cannot be determined.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "s7link.yaml"
	}
	return filepath.Join(home, ".s7link", "config.yaml")
}

// Load reads and parses path. A missing file is not an error; it returns an
// empty Config so first-run callers don't need a special case.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Save marshals and writes the config to path, creating its parent
// directory if needed.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}

// Find returns the entry named name, or nil if there isn't one.
func (c *Config) Find(name string) *PLCEntry {
	for i := range c.PLCs {
		if c.PLCs[i].Name == name {
			return &c.PLCs[i]
		}
	}
	return nil
}

// Put inserts or replaces the entry named entry.Name.
func (c *Config) Put(entry PLCEntry) {
	for i := range c.PLCs {
		if c.PLCs[i].Name == entry.Name {
			c.PLCs[i] = entry
			return
		}
	}
	c.PLCs = append(c.PLCs, entry)
}

// Remove deletes the entry named name, if present.
func (c *Config) Remove(name string) {
	for i := range c.PLCs {
		if c.PLCs[i].Name == name {
			c.PLCs = append(c.PLCs[:i], c.PLCs[i+1:]...)
			return
		}
	}
}

func connectionTypeName(t s7.ConnectionType) string {
	switch t {
	case s7.ConnectionTypePG:
		return "PG"
	case s7.ConnectionTypeOP:
		return "OP"
	case s7.ConnectionTypeS7Basic:
		return "S7BASIC"
	default:
		return "PG"
	}
}

func parseConnectionType(name string) (s7.ConnectionType, error) {
	switch name {
	case "", "PG":
		return s7.ConnectionTypePG, nil
	case "OP":
		return s7.ConnectionTypeOP, nil
	case "S7BASIC":
		return s7.ConnectionTypeS7Basic, nil
	default:
		return 0, fmt.Errorf("unknown connection_type %q", name)
	}
}

// FromConnectionParams builds a PLCParams from the parameters a Client
// reports via ConnectionParams(), for saving after a successful connect.
func FromConnectionParams(p s7.ConnectionParams) PLCParams {
	return PLCParams{
		IP:             p.IP,
		TCPPort:        p.TCPPort,
		ConnectionType: connectionTypeName(p.ConnectionType),
		COTimeout:      p.COTimeout,
		RDTimeout:      p.RDTimeout,
		WRTimeout:      p.WRTimeout,
	}
}

// ApplyTo configures c's connection type, port and timeouts from p. It must
// be called before connecting c.
func (p PLCParams) ApplyTo(c *s7.Client) error {
	ct, err := parseConnectionType(p.ConnectionType)
	if err != nil {
		return err
	}
	c.SetConnectionType(ct)
	if p.TCPPort > 0 {
		c.SetConnectionPort(p.TCPPort)
	}
	c.SetTimeout(p.COTimeout, p.RDTimeout, p.WRTimeout)
	return nil
}

// Connect applies p to c and connects using rack/slot addressing.
func (p PLCParams) Connect(c *s7.Client) error {
	if err := p.ApplyTo(c); err != nil {
		return err
	}
	return c.ConnectRackSlot(p.IP, p.Rack, p.Slot)
}
