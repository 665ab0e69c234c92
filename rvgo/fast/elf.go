package fast

import (
	"bytes"
	"debug/elf"
	"fmt"
	"io"
	"sort"
)

// LoadELF creates a running state from a 32-bit RISC-V ELF executable.
// PT_LOAD segments are copied to their virtual addresses, the part of a segment beyond its file size
// (e.g. .bss) is zero-filled, and the PC is set to the ELF entry point.
func LoadELF(f *elf.File, capacity uint64) (*VMState, error) {
	if f.Class != elf.ELFCLASS32 {
		return nil, fmt.Errorf("ELF is not 32-bit, but got %s", f.Class)
	}
	if f.Machine != elf.EM_RISCV {
		return nil, fmt.Errorf("ELF is not RISC-V, but got %q", f.Machine.String())
	}
	if f.Data != elf.ELFDATA2LSB {
		return nil, fmt.Errorf("ELF is not little-endian, but got %s", f.Data)
	}
	if f.Entry >= capacity {
		return nil, fmt.Errorf("entry point %#x lies outside of memory capacity %#x", f.Entry, capacity)
	}

	// statically prepare VM state:
	out := NewVMState(capacity, uint32(f.Entry))

	for i, prog := range f.Progs {
		if prog.Type == 0x70000003 {
			// RISC-V reuses the MIPS_ABIFLAGS program type to type its segment with the `.riscv.attributes` section.
			// See: https://github.com/riscv-non-isa/riscv-elf-psabi-doc/blob/master/riscv-elf.adoc#attributes
			// This section has 0 mem size because it is not loaded into memory.
			continue
		}
		if prog.Type != elf.PT_LOAD {
			continue
		}
		if prog.Filesz > prog.Memsz {
			return nil, fmt.Errorf("invalid PT_LOAD program segment %d, file size (%d) > mem size (%d)", i, prog.Filesz, prog.Memsz)
		}
		if prog.Vaddr+prog.Memsz > capacity {
			return nil, fmt.Errorf("program segment %d [%#x, %#x) does not fit in memory capacity %#x", i, prog.Vaddr, prog.Vaddr+prog.Memsz, capacity)
		}

		r := io.Reader(io.NewSectionReader(prog, 0, int64(prog.Filesz)))
		if prog.Filesz < prog.Memsz {
			r = io.MultiReader(r, bytes.NewReader(make([]byte, prog.Memsz-prog.Filesz)))
		}
		if err := out.Memory.SetMemoryRange(uint32(prog.Vaddr), r); err != nil {
			return nil, fmt.Errorf("failed to read program segment %d: %w", i, err)
		}
	}
	return out, nil
}

type SortedSymbols []elf.Symbol

// FindSymbol finds the symbol that intersects with the given addr, or nil if none exists
func (s SortedSymbols) FindSymbol(addr uint32) elf.Symbol {
	// find first symbol with higher start. Or n if no such symbol exists
	i := sort.Search(len(s), func(i int) bool {
		return s[i].Value > uint64(addr)
	})
	if i == 0 {
		return elf.Symbol{Name: "!start", Value: 0}
	}
	out := &s[i-1]
	if out.Value+out.Size < uint64(addr) { // addr may be pointing to a gap between symbols
		return elf.Symbol{Name: "!gap", Value: uint64(addr)}
	}
	return *out
}

func Symbols(f *elf.File) (SortedSymbols, error) {
	symbols, err := f.Symbols()
	if err != nil {
		return nil, fmt.Errorf("failed to read symbols data: %w", err)
	}
	// not every ELF has sorted symbols.
	out := make(SortedSymbols, len(symbols))
	copy(out, symbols)
	sort.Slice(out, func(i, j int) bool {
		return out[i].Value < out[j].Value
	})
	return out, nil
}
