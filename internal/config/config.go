// Package config loads rasp.toml project configuration: the VM tunables
// (register buffer size, call-frame depth, GC threshold) and the native
// procedure search path, validated against a CUE schema before use.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config is a decoded rasp.toml project file.
type Config struct {
	Project Project `toml:"project"`
	VM      VM      `toml:"vm"`
	Natives Natives `toml:"natives"`

	// Dir is the directory containing the rasp.toml file (set at load time).
	Dir string `toml:"-"`
}

// Project carries project metadata, mirrored from the teacher's
// manifest.Project.
type Project struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
	Entry   string `toml:"entry"`
}

// VM holds the engine.Config fields a project can override.
type VM struct {
	RegBufferLimit int `toml:"reg_buffer_limit"`
	CallFrameMax   int `toml:"call_frame_max"`
	GCThreshold    int `toml:"gc_threshold"`
}

// Natives holds the native-procedure search path. It is loaded and
// validated here; nothing in this module reads it to discover natives.
type Natives struct {
	SearchPath []string `toml:"search_path"`
}

const defaultFilename = "rasp.toml"

// Load parses a rasp.toml file from dir, applies VM defaults for any
// zero-valued tunable, and validates the result against schema.cue.
func Load(dir string) (*Config, error) {
	path := filepath.Join(dir, defaultFilename)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: cannot read %s: %w", path, err)
	}

	var c Config
	if err := toml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("config: parse error in %s: %w", path, err)
	}

	c.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("config: cannot resolve path %s: %w", dir, err)
	}
	applyDefaults(&c)

	if err := Validate(c); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return &c, nil
}

func applyDefaults(c *Config) {
	if c.VM.RegBufferLimit == 0 {
		c.VM.RegBufferLimit = 4096
	}
	if c.VM.CallFrameMax == 0 {
		c.VM.CallFrameMax = 256
	}
	if c.VM.GCThreshold == 0 {
		c.VM.GCThreshold = 64
	}
	if c.Natives.SearchPath == nil {
		c.Natives.SearchPath = []string{}
	}
}

// FindAndLoad walks up from startDir looking for a rasp.toml, the same
// upward-search convention as the teacher's manifest.FindAndLoad. It
// returns a nil Config, nil error if none is found — callers fall back
// to engine.DefaultConfig() in that case.
func FindAndLoad(startDir string) (*Config, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}
	for {
		path := filepath.Join(dir, defaultFilename)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, nil
		}
		dir = parent
	}
}
