package cmd

import (
	"debug/elf"
	"fmt"

	"github.com/ethereum-optimism/optimism/op-service/jsonutil"
	"github.com/urfave/cli/v2"

	"github.com/rv32emu/rv32emu/rvgo/fast"
)

func LoadELF(ctx *cli.Context) error {
	elfPath := ctx.Path(LoadELFPathFlag.Name)
	elfProgram, err := elf.Open(elfPath)
	if err != nil {
		return fmt.Errorf("failed to open ELF file %q: %w", elfPath, err)
	}
	defer elfProgram.Close()
	if elfProgram.Machine != elf.EM_RISCV {
		return fmt.Errorf("ELF is not RISC-V, but got %q", elfProgram.Machine.String())
	}
	state, err := fast.LoadELF(elfProgram, ctx.Uint64(MemorySizeFlag.Name))
	if err != nil {
		return fmt.Errorf("failed to load ELF data into VM state: %w", err)
	}
	if metaPath := ctx.Path(LoadELFMetaFlag.Name); metaPath != "" {
		meta, err := MakeMetadata(elfProgram)
		if err != nil {
			return fmt.Errorf("failed to compute program metadata: %w", err)
		}
		if err := jsonutil.WriteJSON(metaPath, meta, OutFilePerm); err != nil {
			return fmt.Errorf("failed to output metadata: %w", err)
		}
	}
	return WriteState(ctx.Path(LoadOutFlag.Name), state)
}

var LoadELFCommand = &cli.Command{
	Name:        "load-elf",
	Usage:       "Load ELF file into rv32emu state",
	Description: "Load a 32-bit RISC-V ELF executable into an rv32emu state, and write its symbol metadata",
	Action:      LoadELF,
	Flags: []cli.Flag{
		LoadELFPathFlag,
		LoadOutFlag,
		LoadELFMetaFlag,
		MemorySizeFlag,
	},
}
