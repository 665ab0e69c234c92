package cmd

import (
	"fmt"

	"github.com/ethereum-optimism/optimism/op-service/jsonutil"
	"github.com/urfave/cli/v2"

	"github.com/rv32emu/rv32emu/rvgo/fast"
)

func Disasm(ctx *cli.Context) error {
	state, err := LoadState(ctx.Path(DisasmInputFlag.Name))
	if err != nil {
		return err
	}
	addr := uint64(state.PC)
	if ctx.IsSet(DisasmAddrFlag.Name) {
		addr = ctx.Uint64(DisasmAddrFlag.Name)
	}
	if addr > uint64(^uint32(0)) {
		return fmt.Errorf("address %#x is outside of the 32-bit address space", addr)
	}
	count := ctx.Uint64(DisasmCountFlag.Name)
	if count > uint64(^uint32(0))/4 {
		return fmt.Errorf("count %d is too large", count)
	}

	var symbol func(addr uint32) string
	if metaPath := ctx.Path(DisasmMetaFlag.Name); metaPath != "" {
		meta, err := jsonutil.LoadJSON[Metadata](metaPath)
		if err != nil {
			return fmt.Errorf("failed to load metadata: %w", err)
		}
		symbol = meta.SymbolStart
	}
	return fast.Disassemble(ctx.App.Writer, state.Memory, uint32(addr), uint32(count), symbol)
}

var DisasmCommand = &cli.Command{
	Name:        "disasm",
	Usage:       "Disassemble the memory of an rv32emu state",
	Description: "Print the instructions in the memory of an rv32emu state, starting at the PC by default",
	Action:      Disasm,
	Flags: []cli.Flag{
		DisasmInputFlag,
		DisasmAddrFlag,
		DisasmCountFlag,
		DisasmMetaFlag,
	},
}
