package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ethereum-optimism/optimism/op-service/jsonutil"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"github.com/rv32emu/rv32emu/rvgo/asm"
	"github.com/rv32emu/rv32emu/rvgo/fast"
	"github.com/rv32emu/rv32emu/rvgo/riscv"
)

func runApp(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := &cli.App{
		Name:   "rv32emu",
		Writer: &out,
		Commands: []*cli.Command{
			LoadELFCommand,
			LoadBinCommand,
			RunCommand,
			WitnessCommand,
			DisasmCommand,
		},
	}
	err := app.Run(append([]string{"rv32emu"}, args...))
	return out.String(), err
}

func writeProgram(t *testing.T, dir string, words ...uint32) string {
	t.Helper()
	path := filepath.Join(dir, "prog.bin")
	require.NoError(t, os.WriteFile(path, asm.Program(words...), 0o644))
	return path
}

func TestLoadBinRun(t *testing.T) {
	dir := t.TempDir()
	prog := writeProgram(t, dir,
		asm.ADDI(10, 0, 5),
		asm.ADDI(10, 10, 7),
		asm.SW(10, 0, 0x100),
		asm.HALT(),
	)
	statePath := filepath.Join(dir, "state.json")
	outPath := filepath.Join(dir, "out.json")

	_, err := runApp(t, "load-bin", "--path", prog, "--base", "0x1000", "--out", statePath, "--memory-size", "0x10000")
	require.NoError(t, err)
	state, err := LoadState(statePath)
	require.NoError(t, err)
	require.Equal(t, uint32(0x1000), state.PC)
	require.Equal(t, uint64(0x10000), state.Memory.Capacity())

	_, err = runApp(t, "run", "--input", statePath, "--output", outPath, "--info-at", "never")
	require.NoError(t, err)
	out, err := LoadState(outPath)
	require.NoError(t, err)
	require.Equal(t, fast.StatusHalted, out.Status)
	require.Equal(t, fast.HaltSelfLoop, out.HaltReason)
	require.Equal(t, uint32(12), out.Registers.Read(riscv.RegA0))
	require.Equal(t, uint64(4), out.Step)
	v, err := out.Memory.LoadWord(0x100)
	require.NoError(t, err)
	require.Equal(t, uint32(12), v)

	t.Run("witness", func(t *testing.T) {
		witnessPath := filepath.Join(dir, "witness.json")
		printed, err := runApp(t, "witness", "--input", outPath, "--output", witnessPath)
		require.NoError(t, err)
		expected, err := out.EncodeWitness().StateHash()
		require.NoError(t, err)
		require.Equal(t, expected.Hex(), strings.TrimSpace(printed))

		witness, err := jsonutil.LoadJSON[WitnessOutput](witnessPath)
		require.NoError(t, err)
		require.Equal(t, expected, witness.StateHash)
		require.Len(t, witness.Witness, fast.StateWitnessSize)
	})

	t.Run("disasm", func(t *testing.T) {
		printed, err := runApp(t, "disasm", "--input", statePath, "--count", "4")
		require.NoError(t, err)
		require.Equal(t, strings.Join([]string{
			"00001000:\t00500513\tli a0, 5",
			"00001004:\t00750513\taddi a0, a0, 7",
			"00001008:\t10a02023\tsw a0, 256(zero)",
			"0000100c:\t0000006f\tj 0",
			"",
		}, "\n"), printed)
	})

	t.Run("max steps", func(t *testing.T) {
		limited := filepath.Join(dir, "limited.bin")
		_, err := runApp(t, "run", "--input", statePath, "--output", limited, "--max-steps", "2")
		require.NoError(t, err)
		out, err := LoadState(limited)
		require.NoError(t, err)
		require.Equal(t, fast.HaltStepLimit, out.HaltReason)
		require.Equal(t, uint64(2), out.Step)
		require.Equal(t, uint32(0x1008), out.PC)
	})

	t.Run("entry", func(t *testing.T) {
		_, err := runApp(t, "load-bin", "--path", prog, "--base", "0x1000", "--entry", "0x1004", "--out", statePath)
		require.NoError(t, err)
		state, err := LoadState(statePath)
		require.NoError(t, err)
		require.Equal(t, uint32(0x1004), state.PC)
		require.Equal(t, uint64(riscv.DefaultMemorySize), state.Memory.Capacity())
	})
}

func TestRunFault(t *testing.T) {
	dir := t.TempDir()
	prog := writeProgram(t, dir,
		asm.LUI(1, 0xfffff),
		asm.LW(2, 1, 0),
		asm.HALT(),
	)
	statePath := filepath.Join(dir, "state.bin.gz")
	outPath := filepath.Join(dir, "out.bin")

	_, err := runApp(t, "load-bin", "--path", prog, "--out", statePath)
	require.NoError(t, err)
	_, err = runApp(t, "run", "--input", statePath, "--output", outPath)
	require.ErrorContains(t, err, "failed at step 1")

	out, err := LoadState(outPath)
	require.NoError(t, err)
	require.Equal(t, fast.StatusFaulted, out.Status)
	require.NotNil(t, out.Fault)
	require.Equal(t, fast.FaultOutOfBounds, out.Fault.Kind)
	require.Equal(t, uint32(4), out.Fault.PC)
	require.Equal(t, uint32(0xfffff000), out.Fault.Addr)
	require.Equal(t, "lw sp, 0(ra)", out.Fault.Decoded)
	require.Zero(t, out.Registers.Read(2))
}

func TestLoadBinErrors(t *testing.T) {
	dir := t.TempDir()
	prog := writeProgram(t, dir, asm.HALT())

	_, err := runApp(t, "load-bin", "--path", prog, "--base", "0x100000000", "--out", "")
	require.ErrorContains(t, err, "outside of the 32-bit address space")

	_, err = runApp(t, "load-bin", "--path", prog, "--memory-size", "0x1000", "--base", "0xffe", "--out", "")
	require.ErrorContains(t, err, "failed to load image")

	_, err = runApp(t, "load-elf", "--path", prog, "--out", "", "--meta", "")
	require.ErrorContains(t, err, "failed to open ELF file")
}
