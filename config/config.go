package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"sigscan/pattern"

	"gopkg.in/yaml.v3"
)

// Read bases that are not the name of an earlier read.
const (
	FromMatch  = "match"
	FromModule = "module"
)

// File is the on-disk YAML shape of a signature file.
type File struct {
	Process    string      `yaml:"process"`
	PID        int         `yaml:"pid"`
	Module     string      `yaml:"module"`
	Elevate    bool        `yaml:"elevate"`
	Signatures []Signature `yaml:"signatures"`
}

// Signature is one pattern and the reads to perform around its match.
type Signature struct {
	Name    string `yaml:"name"`
	Pattern string `yaml:"pattern"`
	Offset  uint   `yaml:"offset"`
	Reads   []Read `yaml:"reads"`
}

// Read describes a typed value read at base+Delta. The base is the match
// address (From empty or "match"), the module base ("module"), or the value
// of an earlier read: integers are module-relative offsets, pointers are
// absolute. A non-empty Path follows 8-byte pointers from there, as
// process.ReadPath does.
type Read struct {
	Name  string  `yaml:"name"`
	From  string  `yaml:"from"`
	Delta int64   `yaml:"delta"`
	Type  string  `yaml:"type"`
	Path  []int64 `yaml:"path"`
}

// ModuleName returns the module to attach to; it defaults to the process name.
func (f File) ModuleName() string {
	if f.Module != "" {
		return f.Module
	}
	return f.Process
}

// LoadFile reads a YAML signature file from the provided path. Unknown keys are errors.
func LoadFile(path string) (File, error) {
	var cfg File
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}

	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return cfg, fmt.Errorf("%s: empty config", path)
		}
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// LoadLocal searches for a signature file in dir.
// It supports .sigscan.yml/.yaml and sigscan.yml/.yaml.
func LoadLocal(dir string) (File, error) {
	var cfg File
	for _, name := range []string{".sigscan.yml", ".sigscan.yaml", "sigscan.yml", "sigscan.yaml"} {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err == nil {
			return LoadFile(p)
		}
	}
	return cfg, errors.New("no local config")
}

// Validate checks the file for everything that would otherwise fail half
// way through a run.
func (f File) Validate() error {
	if f.Process == "" && f.PID <= 0 {
		return errors.New("one of process or pid is required")
	}
	if f.ModuleName() == "" {
		return errors.New("module is required when only pid is given")
	}
	if len(f.Signatures) == 0 {
		return errors.New("no signatures")
	}

	seen := make(map[string]bool, len(f.Signatures))
	for i, sig := range f.Signatures {
		if sig.Name == "" {
			return fmt.Errorf("signature %d: name is required", i)
		}
		if seen[sig.Name] {
			return fmt.Errorf("signature %q: duplicate name", sig.Name)
		}
		seen[sig.Name] = true

		if err := sig.validate(); err != nil {
			return fmt.Errorf("signature %q: %w", sig.Name, err)
		}
	}
	return nil
}

// Compile compiles the signature's pattern with its offset.
func (s Signature) Compile() (*pattern.Pattern, error) {
	return pattern.Compile(s.Offset, s.Pattern)
}

func (s Signature) validate() error {
	if _, err := s.Compile(); err != nil {
		return err
	}

	types := make(map[string]string, len(s.Reads))
	for i, r := range s.Reads {
		switch {
		case r.Name == "":
			return fmt.Errorf("read %d: name is required", i)
		case r.Name == FromMatch || r.Name == FromModule:
			return fmt.Errorf("read %q: name is reserved", r.Name)
		case types[r.Name] != "":
			return fmt.Errorf("read %q: duplicate name", r.Name)
		}

		if _, ok := TypeSize(r.Type); !ok {
			return fmt.Errorf("read %q: unknown type %q", r.Name, r.Type)
		}

		switch r.From {
		case "", FromMatch, FromModule:
		default:
			fromType, ok := types[r.From]
			if !ok {
				return fmt.Errorf("read %q: from %q is not an earlier read", r.Name, r.From)
			}
			if !IsAddressType(fromType) {
				return fmt.Errorf("read %q: from %q has type %s, which cannot be an address", r.Name, r.From, fromType)
			}
		}

		types[r.Name] = r.Type
	}
	return nil
}
