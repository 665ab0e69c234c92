package cmd

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ethereum-optimism/optimism/op-service/ioutil"
	"github.com/ethereum-optimism/optimism/op-service/jsonutil"

	"github.com/rv32emu/rv32emu/rvgo/fast"
)

func isBinaryPath(path string) bool {
	return strings.HasSuffix(path, ".bin") || strings.HasSuffix(path, ".bin.gz")
}

// LoadState reads a JSON state, or a binary one if the path has a .bin extension.
// Gzip compressed files are decompressed transparently.
func LoadState(path string) (*fast.VMState, error) {
	if !isBinaryPath(path) {
		return jsonutil.LoadJSON[fast.VMState](path)
	}
	f, err := ioutil.OpenDecompressed(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open state file %q: %w", path, err)
	}
	defer f.Close()
	var state fast.VMState
	if err := state.Deserialize(f); err != nil {
		return nil, fmt.Errorf("failed to decode binary state %q: %w", path, err)
	}
	return &state, nil
}

// WriteState writes the state as JSON, or binary for a .bin path.
// Nothing is written for an empty path, and "-" writes to stdout.
func WriteState(path string, state *fast.VMState) (err error) {
	if !isBinaryPath(path) {
		return jsonutil.WriteJSON(path, state, OutFilePerm)
	}
	if path == "-" {
		return writeBinaryState(os.Stdout, state)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, OutFilePerm)
	if err != nil {
		return fmt.Errorf("failed to open state output %q: %w", path, err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close state output %q: %w", path, closeErr)
		}
	}()
	if !strings.HasSuffix(path, ".gz") {
		return writeBinaryState(f, state)
	}
	gz := gzip.NewWriter(f)
	if err := writeBinaryState(gz, state); err != nil {
		_ = gz.Close()
		return err
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("failed to flush compressed state %q: %w", path, err)
	}
	return nil
}

func writeBinaryState(out io.Writer, state *fast.VMState) error {
	if err := state.Serialize(out); err != nil {
		return fmt.Errorf("failed to encode binary state: %w", err)
	}
	return nil
}
