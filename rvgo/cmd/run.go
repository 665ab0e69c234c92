package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"

	"github.com/pkg/profile"

	"github.com/ethereum-optimism/optimism/op-service/jsonutil"

	"github.com/rv32emu/rv32emu/rvgo/fast"
)

func Run(ctx *cli.Context) error {
	if ctx.Bool(RunPProfCPU.Name) {
		defer profile.Start(profile.NoShutdownHook, profile.ProfilePath("."), profile.CPUProfile).Stop()
	}

	state, err := LoadState(ctx.Path(RunInputFlag.Name))
	if err != nil {
		return err
	}

	l := Logger(os.Stderr, log.LevelInfo)

	stopAt := ctx.Generic(RunStopAtFlag.Name).(*StepMatcherFlag).Matcher()
	snapshotAt := ctx.Generic(RunSnapshotAtFlag.Name).(*StepMatcherFlag).Matcher()
	infoAt := ctx.Generic(RunInfoAtFlag.Name).(*StepMatcherFlag).Matcher()

	var meta *Metadata
	if metaPath := ctx.Path(RunMetaFlag.Name); metaPath == "" {
		l.Info("no metadata file specified, defaulting to empty metadata")
		meta = &Metadata{Symbols: nil} // provide empty metadata by default
	} else {
		if m, err := jsonutil.LoadJSON[Metadata](metaPath); err != nil {
			return fmt.Errorf("failed to load metadata: %w", err)
		} else {
			meta = m
		}
	}

	core := fast.NewCore(state,
		fast.WithMaxSteps(ctx.Uint64(RunMaxStepsFlag.Name)),
		fast.WithHaltOnSelfLoop(!ctx.Bool(RunNoSelfLoopHaltFlag.Name)),
		fast.WithHaltOnEcallExit(ctx.Bool(RunHaltOnEcallExitFlag.Name)),
		fast.WithHaltOnEbreak(ctx.Bool(RunHaltOnEbreakFlag.Name)),
	)
	snapshotFmt := ctx.String(RunSnapshotFmtFlag.Name)
	trace := ctx.Bool(RunTraceFlag.Name)

	start := time.Now()
	startStep := state.Step

	for state.Running() {
		if state.Step%100 == 0 { // don't do the ctx err check (includes lock) too often
			if err := ctx.Context.Err(); err != nil {
				return err
			}
		}

		step := state.Step

		if infoAt(state) {
			delta := time.Since(start)
			l.Info("processing",
				"step", step,
				"pc", HexU32(state.PC),
				"insn", HexU32(state.Instr()),
				"ips", float64(step-startStep)/(float64(delta)/float64(time.Second)),
				"pages", state.Memory.PageCount(),
				"mem", state.Memory.Usage(),
				"name", meta.LookupSymbol(state.PC),
			)
		}

		if stopAt(state) {
			break
		}

		if snapshotAt(state) {
			if err := WriteState(fmt.Sprintf(snapshotFmt, step), state); err != nil {
				return fmt.Errorf("failed to write state snapshot: %w", err)
			}
		}

		tr, err := core.Step(trace)
		if tr != nil {
			l.Info("step",
				"step", tr.Step,
				"pc", HexU32(tr.PC),
				"insn", HexU32(tr.Instr),
				"asm", tr.Inst.String(),
				"next", HexU32(tr.NextPC),
				"mem", Accesses(tr.Accesses),
			)
		}
		if err != nil {
			// the fault is recorded in the state, which is still written out below
			l.Error("program faulted",
				"step", step,
				"pc", HexU32(state.PC),
				"name", meta.LookupSymbol(state.PC),
				"err", err,
			)
			break
		}
	}

	switch state.Status {
	case fast.StatusHalted:
		l.Info("program halted",
			"reason", state.HaltReason,
			"exit", state.ExitCode,
			"steps", state.Step,
			"pc", HexU32(state.PC),
		)
	case fast.StatusRunning:
		l.Info("program stopped", "steps", state.Step, "pc", HexU32(state.PC))
	}

	if err := WriteState(ctx.Path(RunOutputFlag.Name), state); err != nil {
		return fmt.Errorf("failed to write state output: %w", err)
	}
	if state.Status == fast.StatusFaulted {
		return fmt.Errorf("failed at step %d (PC: %08x): %s", state.Step, state.PC, state.Fault.Message)
	}
	return nil
}

var RunCommand = &cli.Command{
	Name:        "run",
	Usage:       "Run VM step(s) until halt, fault or stop condition.",
	Description: "Run VM step(s) until the program halts or faults. See flags to match when to output a snapshot, print info, or to stop early.",
	Action:      Run,
	Flags: []cli.Flag{
		RunInputFlag,
		RunOutputFlag,
		RunSnapshotAtFlag,
		RunSnapshotFmtFlag,
		RunStopAtFlag,
		RunMetaFlag,
		RunInfoAtFlag,
		RunMaxStepsFlag,
		RunNoSelfLoopHaltFlag,
		RunHaltOnEcallExitFlag,
		RunHaltOnEbreakFlag,
		RunTraceFlag,
		RunPProfCPU,
	},
}
