package cmd

import (
	"debug/elf"
	"fmt"
	"sort"

	"github.com/rv32emu/rv32emu/rvgo/fast"
)

type Symbol struct {
	Name  string `json:"name"`
	Start uint32 `json:"start"`
	Size  uint32 `json:"size"`
}

type Metadata struct {
	Symbols []Symbol `json:"symbols"`
}

func MakeMetadata(elfProgram *elf.File) (*Metadata, error) {
	syms, err := fast.Symbols(elfProgram)
	if err != nil {
		return nil, err
	}
	out := &Metadata{Symbols: make([]Symbol, 0, len(syms))}
	for _, s := range syms {
		if s.Value > uint64(^uint32(0)) {
			return nil, fmt.Errorf("symbol %q at %#x is outside of the 32-bit address space", s.Name, s.Value)
		}
		out.Symbols = append(out.Symbols, Symbol{Name: s.Name, Start: uint32(s.Value), Size: uint32(s.Size)})
	}
	return out, nil
}

// LookupSymbol returns the name of the symbol addr falls in, "!unknown" if it precedes all symbols.
func (m *Metadata) LookupSymbol(addr uint32) string {
	if len(m.Symbols) == 0 {
		return "!unknown"
	}
	// find first symbol with higher start. Or n if no such symbol exists
	i := sort.Search(len(m.Symbols), func(i int) bool {
		return m.Symbols[i].Start > addr
	})
	if i == 0 {
		return "!unknown"
	}
	out := &m.Symbols[i-1]
	if out.Start+out.Size < addr { // addr may be pointing to a gap between symbols
		return "!gap"
	}
	return out.Name
}

// SymbolStart returns the name of a symbol starting exactly at addr, or "".
func (m *Metadata) SymbolStart(addr uint32) string {
	i := sort.Search(len(m.Symbols), func(i int) bool {
		return m.Symbols[i].Start >= addr
	})
	for ; i < len(m.Symbols) && m.Symbols[i].Start == addr; i++ {
		if m.Symbols[i].Name != "" {
			return m.Symbols[i].Name
		}
	}
	return ""
}
