// Package config loads the TOML configuration used by the CLIs. The session
// itself takes its Config programmatically; this package only feeds the
// command-line front ends.
package config

import (
	"fmt"
	"os"
	"time"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/ahrastnik/phantomlink/internal/protocol"
)

// Defaults for fields left empty in the file and on the command line.
const (
	DefaultPeer    = "127.0.0.1:6969"
	DefaultTimeout = 2 * time.Second
	DefaultRetries = 3
	DefaultRate    = 30.0
)

// File mirrors Config but uses strings for durations to keep the TOML
// friendly.
type File struct {
	Peer    string  `toml:"peer"`
	Listen  string  `toml:"listen"`
	Timeout string  `toml:"timeout"`
	Retries int     `toml:"retries"`
	Rate    float64 `toml:"rate"`
}

// Config is the resolved CLI configuration.
type Config struct {
	Peer    string        // controller endpoint, host:port
	Listen  string        // optional local bind for inbound datagrams
	Timeout time.Duration // communication timeout
	Retries int           // trajectory retry budget
	Rate    float64       // position send rate [Hz] for track mode
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Peer:    DefaultPeer,
		Timeout: DefaultTimeout,
		Retries: DefaultRetries,
		Rate:    DefaultRate,
	}
}

// Load reads a TOML file and resolves it against the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}

	var fc File
	if err := toml.Unmarshal(b, &fc); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}

	if fc.Peer != "" {
		cfg.Peer = fc.Peer
	}
	if fc.Listen != "" {
		cfg.Listen = fc.Listen
	}
	if fc.Timeout != "" {
		d, err := time.ParseDuration(fc.Timeout)
		if err != nil {
			return cfg, fmt.Errorf("invalid timeout %q: %w", fc.Timeout, err)
		}
		cfg.Timeout = d
	}
	if fc.Retries > 0 {
		cfg.Retries = fc.Retries
	}
	if fc.Rate > 0 {
		cfg.Rate = fc.Rate
	}

	return cfg, nil
}

// trajectoryFile is the on-disk shape of a trajectory definition.
type trajectoryFile struct {
	Points []struct {
		X float64 `toml:"x"`
		Y float64 `toml:"y"`
		Z float64 `toml:"z"`
	} `toml:"points"`
}

// LoadTrajectory reads a trajectory from a TOML file of [[points]] tables.
func LoadTrajectory(path string) ([]protocol.Point, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var tf trajectoryFile
	if err := toml.Unmarshal(b, &tf); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	points := make([]protocol.Point, 0, len(tf.Points))
	for _, p := range tf.Points {
		points = append(points, protocol.Point{X: p.X, Y: p.Y, Z: p.Z})
	}
	return points, nil
}
