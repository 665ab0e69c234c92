package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/ethereum/go-ethereum/log"

	"github.com/rv32emu/rv32emu/rvgo/fast"
)

func Logger(w io.Writer, lvl slog.Level) log.Logger {
	return log.NewLogger(log.LogfmtHandlerWithLevel(w, lvl))
}

// HexU32 to lazy-format integer attributes for logging
type HexU32 uint32

func (v HexU32) String() string {
	return fmt.Sprintf("%08x", uint32(v))
}

func (v HexU32) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// Accesses to lazy-format the memory accesses of a traced step
type Accesses []fast.MemAccess

func (a Accesses) String() string {
	parts := make([]string, len(a))
	for i, acc := range a {
		parts[i] = acc.String()
	}
	return strings.Join(parts, "; ")
}

func (a Accesses) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}
