package config

import (
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shibukawa/configdir"
	"gopkg.in/yaml.v3"
)

const (
	FileName = "readmem.yaml"
	Vendor   = "readmemlib"
	App      = "readmem"

	DefaultChunkSize = 64 << 10
	DefaultTimeout   = 10 * time.Second

	// SignaturePrefix marks a command line signature as a name to look up.
	SignaturePrefix = "@"
)

type Config struct {
	// ChunkSize is the scan read size in bytes.
	ChunkSize int `yaml:"chunk_size"`

	// Timeout bounds one operation, including the wait for the target to
	// stop. Zero disables it.
	Timeout time.Duration `yaml:"timeout"`

	// ScanLimit bounds a scan from a start address to this many bytes. Zero
	// scans until the readable range ends.
	ScanLimit uint64 `yaml:"scan_limit"`

	// Attach selects the ptrace handshake around every operation.
	Attach bool `yaml:"attach"`

	// Signatures maps names to signature text.
	Signatures map[string]string `yaml:"signatures"`
}

func Default() Config {
	return Config{
		ChunkSize:  DefaultChunkSize,
		Timeout:    DefaultTimeout,
		Attach:     true,
		Signatures: map[string]string{},
	}
}

// Parse overlays YAML data on the defaults.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, errors.Wrap(err, "parse config")
	}
	if cfg.Signatures == nil {
		cfg.Signatures = map[string]string{}
	}

	return cfg, cfg.Validate()
}

// LoadFile reads an explicit configuration file.
func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(err, "read config %s", path)
	}

	cfg, err := Parse(data)
	if err != nil {
		return Config{}, errors.Wrapf(err, "config %s", path)
	}

	return cfg, nil
}

// Load returns the first readmem.yaml found in the local, user and system
// configuration folders, or the defaults when there is none.
func Load() (Config, error) {
	dirs := configdir.New(Vendor, App)
	dirs.LocalPath, _ = os.Getwd()

	folder := dirs.QueryFolderContainsFile(FileName)
	if folder == nil {
		return Default(), nil
	}

	data, err := folder.ReadFile(FileName)
	if err != nil {
		return Config{}, errors.Wrapf(err, "read config in %s", folder.Path)
	}

	cfg, err := Parse(data)
	if err != nil {
		return Config{}, errors.Wrapf(err, "config in %s", folder.Path)
	}

	return cfg, nil
}

func (c Config) Validate() error {
	if c.ChunkSize <= 1 {
		return errors.Errorf("chunk_size %d too small", c.ChunkSize)
	}
	if c.Timeout < 0 {
		return errors.Errorf("negative timeout %s", c.Timeout)
	}
	for name, s := range c.Signatures {
		if name == "" || strings.TrimSpace(s) == "" {
			return errors.Errorf("empty signature entry %q", name)
		}
	}

	return nil
}

// ResolveSignature expands "@name" to the configured signature text. Any
// other input is returned unchanged.
func (c Config) ResolveSignature(s string) (string, error) {
	name, ok := strings.CutPrefix(s, SignaturePrefix)
	if !ok {
		return s, nil
	}

	text, ok := c.Signatures[name]
	if !ok {
		return "", errors.Errorf("unknown signature %q", name)
	}

	return text, nil
}
