package cmd

import (
	"os"

	"github.com/urfave/cli/v2"

	"github.com/rv32emu/rv32emu/rvgo/riscv"
)

var OutFilePerm = os.FileMode(0o755)

var (
	MemorySizeFlag = &cli.Uint64Flag{
		Name:  "memory-size",
		Usage: "Memory capacity in bytes, addresses at or above it fault",
		Value: riscv.DefaultMemorySize,
	}
	LoadELFPathFlag = &cli.PathFlag{
		Name:      "path",
		Usage:     "Path to 32-bit RISC-V ELF file",
		TakesFile: true,
		Required:  true,
	}
	LoadOutFlag = &cli.PathFlag{
		Name:      "out",
		Usage:     "Output path to write state to. State is dumped to stdout if set to '-'. Not written if empty. A .bin path writes the binary encoding.",
		Value:     "state.json",
		TakesFile: true,
		Required:  false,
	}
	LoadELFMetaFlag = &cli.PathFlag{
		Name:      "meta",
		Usage:     "Write metadata file, for symbol lookup during program execution. None if empty.",
		Value:     "meta.json",
		TakesFile: true,
		Required:  false,
	}
	LoadBinPathFlag = &cli.PathFlag{
		Name:      "path",
		Usage:     "Path to flat binary image, optionally gzip compressed",
		TakesFile: true,
		Required:  true,
	}
	LoadBinBaseFlag = &cli.Uint64Flag{
		Name:  "base",
		Usage: "Address the image is loaded at",
		Value: 0,
	}
	LoadBinEntryFlag = &cli.Uint64Flag{
		Name:  "entry",
		Usage: "Initial PC, defaults to the base address",
	}
	RunInputFlag = &cli.PathFlag{
		Name:      "input",
		Usage:     "path of input JSON (or .bin) state.",
		TakesFile: true,
		Value:     "state.json",
		Required:  true,
	}
	RunOutputFlag = &cli.PathFlag{
		Name:      "output",
		Usage:     "path of output JSON (or .bin) state. Not written if empty, use - to write to Stdout.",
		TakesFile: true,
		Value:     "out.json",
		Required:  false,
	}
	RunSnapshotAtFlag = &cli.GenericFlag{
		Name:  "snapshot-at",
		Usage: "step pattern to output snapshots at: " + patternHelp,
		Value: MustStepMatcherFlag(""),
	}
	RunSnapshotFmtFlag = &cli.StringFlag{
		Name:  "snapshot-fmt",
		Usage: "format for snapshot output file names.",
		Value: "state-%d.json",
	}
	RunStopAtFlag = &cli.GenericFlag{
		Name:  "stop-at",
		Usage: "step pattern to stop at: " + patternHelp,
		Value: MustStepMatcherFlag(""),
	}
	RunInfoAtFlag = &cli.GenericFlag{
		Name:  "info-at",
		Usage: "step pattern to print info at: " + patternHelp,
		Value: MustStepMatcherFlag("%100000"),
	}
	RunMetaFlag = &cli.PathFlag{
		Name:     "meta",
		Usage:    "path to metadata file for symbol lookup for enhanced debugging info during execution. None if empty.",
		Required: false,
	}
	RunMaxStepsFlag = &cli.Uint64Flag{
		Name:  "max-steps",
		Usage: "halt once this many instructions have executed, 0 for no limit",
	}
	RunNoSelfLoopHaltFlag = &cli.BoolFlag{
		Name:  "no-halt-on-self-loop",
		Usage: "keep running when an instruction jumps to itself",
	}
	RunHaltOnEcallExitFlag = &cli.BoolFlag{
		Name:  "halt-on-ecall-exit",
		Usage: "halt on ecall with a7 set to exit (93) or exit_group (94), a0 is the exit code",
	}
	RunHaltOnEbreakFlag = &cli.BoolFlag{
		Name:  "halt-on-ebreak",
		Usage: "halt on ebreak",
	}
	RunTraceFlag = &cli.BoolFlag{
		Name:  "trace",
		Usage: "log every executed instruction with its memory accesses",
	}
	RunPProfCPU = &cli.BoolFlag{
		Name:  "pprof.cpu",
		Usage: "enable pprof cpu profiling",
	}
	WitnessInputFlag = &cli.PathFlag{
		Name:      "input",
		Usage:     "path of input JSON (or .bin) state.",
		TakesFile: true,
		Required:  true,
	}
	WitnessOutputFlag = &cli.PathFlag{
		Name:      "output",
		Usage:     "path to write the witness JSON to. Not written if empty, use - to write to Stdout.",
		TakesFile: true,
	}
	DisasmInputFlag = &cli.PathFlag{
		Name:      "input",
		Usage:     "path of input JSON (or .bin) state.",
		TakesFile: true,
		Required:  true,
	}
	DisasmAddrFlag = &cli.Uint64Flag{
		Name:  "addr",
		Usage: "first address to disassemble, defaults to the PC",
	}
	DisasmCountFlag = &cli.Uint64Flag{
		Name:  "count",
		Usage: "number of instruction words to disassemble",
		Value: 16,
	}
	DisasmMetaFlag = &cli.PathFlag{
		Name:  "meta",
		Usage: "path to metadata file, to label symbol starts. None if empty.",
	}
)

const patternHelp = "'never' (default), 'always', '=123' at exactly step 123, '%123' for every 123 steps"
