package cmd

import (
	"fmt"

	"github.com/ethereum-optimism/optimism/op-service/ioutil"
	"github.com/urfave/cli/v2"

	"github.com/rv32emu/rv32emu/rvgo/fast"
)

func LoadBin(ctx *cli.Context) error {
	base := ctx.Uint64(LoadBinBaseFlag.Name)
	if base > uint64(^uint32(0)) {
		return fmt.Errorf("base address %#x is outside of the 32-bit address space", base)
	}
	entry := base
	if ctx.IsSet(LoadBinEntryFlag.Name) {
		entry = ctx.Uint64(LoadBinEntryFlag.Name)
	}
	if entry > uint64(^uint32(0)) {
		return fmt.Errorf("entry point %#x is outside of the 32-bit address space", entry)
	}

	binPath := ctx.Path(LoadBinPathFlag.Name)
	f, err := ioutil.OpenDecompressed(binPath)
	if err != nil {
		return fmt.Errorf("failed to open image %q: %w", binPath, err)
	}
	defer f.Close()

	state, err := fast.LoadImage(f, uint32(base), uint32(entry), ctx.Uint64(MemorySizeFlag.Name))
	if err != nil {
		return fmt.Errorf("failed to load image into VM state: %w", err)
	}
	return WriteState(ctx.Path(LoadOutFlag.Name), state)
}

var LoadBinCommand = &cli.Command{
	Name:        "load-bin",
	Usage:       "Load flat binary image into rv32emu state",
	Description: "Load a flat little-endian binary image at a base address into an rv32emu state",
	Action:      LoadBin,
	Flags: []cli.Flag{
		LoadBinPathFlag,
		LoadOutFlag,
		LoadBinBaseFlag,
		LoadBinEntryFlag,
		MemorySizeFlag,
	},
}
