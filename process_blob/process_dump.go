package process_blob

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"sigscan/process"

	"github.com/cespare/xxhash/v2"
)

const metadataFile = "metadata.json"

// ErrFingerprintMismatch is returned by Load when the module bytes on disk
// no longer hash to the fingerprint recorded at save time.
var ErrFingerprintMismatch = errors.New("dump fingerprint mismatch")

// Metadata describes a saved module capture.
type Metadata struct {
	PID         process.ProcessID `json:"pid"`
	Name        string            `json:"name"`
	Module      string            `json:"module"`
	Path        string            `json:"path"`
	Base        uint64            `json:"base"`
	Size        uint64            `json:"size"`
	Fingerprint string            `json:"fingerprint"`
}

func moduleFilename(base, size uint64) string {
	return fmt.Sprintf("module_0x%x_%d.bin", base, size)
}

// Fingerprint hashes captured module bytes.
func Fingerprint(data []byte) uint64 {
	return xxhash.Sum64(data)
}

// SaveModule writes a module capture to dirname as metadata.json plus one
// .bin file holding the raw bytes.
func SaveModule(dirname string, pid process.ProcessID, name string, module process.ModuleInfo, data []byte) error {
	if process.ProcessMemorySize(len(data)) != module.Size {
		return fmt.Errorf("module %s: have %d bytes, want %d", module.Name, len(data), module.Size)
	}

	if err := os.MkdirAll(dirname, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	metadata := Metadata{
		PID:         pid,
		Name:        name,
		Module:      module.Name,
		Path:        module.Path,
		Base:        uint64(module.Base),
		Size:        uint64(module.Size),
		Fingerprint: fmt.Sprintf("%016x", Fingerprint(data)),
	}

	metadataBytes, err := json.MarshalIndent(metadata, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dirname, metadataFile), metadataBytes, 0644); err != nil {
		return fmt.Errorf("failed to write metadata: %w", err)
	}

	filename := filepath.Join(dirname, moduleFilename(metadata.Base, metadata.Size))
	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write module %s: %w", filename, err)
	}

	return nil
}

// ReadMetadata reads metadata.json from a dump directory.
func ReadMetadata(dirname string) (Metadata, error) {
	var metadata Metadata

	metadataBytes, err := os.ReadFile(filepath.Join(dirname, metadataFile))
	if err != nil {
		return metadata, fmt.Errorf("failed to read metadata: %w", err)
	}
	if err := json.Unmarshal(metadataBytes, &metadata); err != nil {
		return metadata, fmt.Errorf("failed to unmarshal metadata: %w", err)
	}
	if metadata.Size == 0 {
		return metadata, fmt.Errorf("metadata: module %q has zero size", metadata.Module)
	}

	return metadata, nil
}

// Load reads a dump written by SaveModule back into a ProcessBlob that
// exposes the single saved module.
func Load(dirname string) (*ProcessBlob, error) {
	metadata, err := ReadMetadata(dirname)
	if err != nil {
		return nil, err
	}

	filename := filepath.Join(dirname, moduleFilename(metadata.Base, metadata.Size))
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read module %s: %w", filename, err)
	}
	if uint64(len(data)) != metadata.Size {
		return nil, fmt.Errorf("module %s: file holds %d bytes, metadata says %d", filename, len(data), metadata.Size)
	}

	if metadata.Fingerprint != "" {
		if got := fmt.Sprintf("%016x", Fingerprint(data)); got != metadata.Fingerprint {
			return nil, fmt.Errorf("%w: %s has %s, metadata says %s", ErrFingerprintMismatch, filename, got, metadata.Fingerprint)
		}
	}

	blob := NewProcessBlob(metadata.PID, metadata.Name)
	blob.AddModule(process.ModuleInfo{
		Name: metadata.Module,
		Path: metadata.Path,
		Base: process.ProcessMemoryAddress(metadata.Base),
		Size: process.ProcessMemorySize(metadata.Size),
	}, data)

	return blob, nil
}
