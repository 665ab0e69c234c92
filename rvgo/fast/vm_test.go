package fast_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rv32emu/rv32emu/rvgo/asm"
	"github.com/rv32emu/rv32emu/rvgo/fast"
	"github.com/rv32emu/rv32emu/rvgo/riscv"
)

const testCapacity = 0x10000

func loadProgram(t *testing.T, words ...uint32) *fast.VMState {
	t.Helper()
	state, err := fast.LoadImage(bytes.NewReader(asm.Program(words...)), 0, 0, testCapacity)
	require.NoError(t, err)
	return state
}

// sumProgram adds the numbers 1..n, skipping multiples of 3, and leaves the result in a0.
func sumProgram(n int32) []uint32 {
	return []uint32{
		asm.ADDI(10, 0, 0), // a0 = 0
		asm.ADDI(5, 0, 1),  // t0 = 1
		asm.ADDI(6, 0, n),  // t1 = n
		asm.ADDI(7, 0, 3),  // t2 = 3
		// loop:
		asm.BLT(6, 5, 36),  // if t1 < t0 goto done
		asm.ADDI(28, 5, 0), // t3 = t0
		asm.BLT(28, 7, 12), // while t3 >= 3 { t3 -= 3 }
		asm.SUB(28, 28, 7), //
		asm.JAL(0, -8),     //
		asm.BEQ(28, 0, 8),  // skip multiples of 3
		asm.ADD(10, 10, 5), // a0 += t0
		asm.ADDI(5, 5, 1),  // t0++
		asm.JAL(0, -32),    // goto loop
		asm.HALT(),         // done: j .
	}
}

func TestCoreSumProgram(t *testing.T) {
	state := loadProgram(t, sumProgram(10)...)
	core := fast.NewCore(state, fast.WithMaxSteps(10_000))
	require.NoError(t, core.Run(context.Background()))
	require.Equal(t, fast.StatusHalted, state.Status)
	require.Equal(t, fast.HaltSelfLoop, state.HaltReason)
	// 1+2+4+5+7+8+10
	require.Equal(t, uint32(37), state.Registers.Read(riscv.RegA0))
	require.Equal(t, uint32(13*4), state.PC, "halted on the self-loop")
}

func TestCoreStep(t *testing.T) {
	state := loadProgram(t, asm.ADDI(5, 0, 10), asm.ADDI(6, 5, -3), asm.HALT())
	core := fast.NewCore(state)
	require.Same(t, state, core.State())

	_, err := core.Step(false)
	require.NoError(t, err)
	require.Equal(t, uint32(4), state.PC)
	require.Equal(t, uint64(1), state.Step)

	_, err = core.Step(false)
	require.NoError(t, err)
	require.Equal(t, uint32(7), state.Registers.Read(6))

	_, err = core.Step(false)
	require.NoError(t, err)
	require.Equal(t, fast.StatusHalted, state.Status)
	require.Equal(t, uint64(3), state.Step)

	t.Run("halted is a no-op", func(t *testing.T) {
		tr, err := core.Step(true)
		require.NoError(t, err)
		require.Nil(t, tr)
		require.Equal(t, uint64(3), state.Step)
		require.Equal(t, uint32(8), state.PC)
	})
}

func TestCoreFaults(t *testing.T) {
	requireFault := func(t *testing.T, state *fast.VMState, err error, sentinel error, kind fast.FaultKind) *fast.Fault {
		t.Helper()
		require.ErrorIs(t, err, sentinel)
		var f *fast.Fault
		require.ErrorAs(t, err, &f)
		require.Equal(t, kind, f.Kind)
		require.Equal(t, fast.StatusFaulted, state.Status)
		require.NotNil(t, state.Fault)
		require.Equal(t, kind, state.Fault.Kind)
		require.Equal(t, state.Registers, state.Fault.Registers)
		return f
	}

	t.Run("illegal instruction leaves state unchanged", func(t *testing.T) {
		state := loadProgram(t, asm.ADDI(1, 0, 1), 0x0000000b)
		core := fast.NewCore(state)
		_, err := core.Step(false)
		require.NoError(t, err)
		before := state.Snapshot()

		_, err = core.Step(false)
		f := requireFault(t, state, err, fast.ErrDecode, fast.FaultDecode)
		require.Equal(t, uint32(4), f.PC)
		require.True(t, f.HasInstr)
		require.Equal(t, uint32(0x0000000b), f.Instr)
		require.Equal(t, before.PC, state.PC)
		require.Equal(t, before.Registers, state.Registers)
		require.Equal(t, before.Step, state.Step)
		require.Equal(t, before.Memory.Digest(), state.Memory.Digest())
	})

	t.Run("load out of bounds", func(t *testing.T) {
		li := asm.LI(1, testCapacity)
		state := loadProgram(t, li[0], li[1], asm.ADDI(2, 0, 0x55), asm.LW(2, 1, 0))
		core := fast.NewCore(state)
		err := core.Run(context.Background())
		f := requireFault(t, state, err, fast.ErrOutOfBounds, fast.FaultOutOfBounds)
		require.Equal(t, uint32(12), f.PC)
		require.Equal(t, uint32(testCapacity), f.Addr)
		require.Equal(t, uint32(0x55), state.Registers.Read(2), "no default value is loaded")
		require.Equal(t, "lw sp, 0(ra)", f.Decoded)
	})

	t.Run("store out of bounds", func(t *testing.T) {
		li := asm.LI(1, testCapacity-2)
		state := loadProgram(t, li[0], li[1], asm.ADDI(2, 0, -1), asm.SW(2, 1, 0))
		before := state.Memory.Digest()
		core := fast.NewCore(state)
		err := core.Run(context.Background())
		requireFault(t, state, err, fast.ErrOutOfBounds, fast.FaultOutOfBounds)
		require.Equal(t, before, state.Memory.Digest(), "memory must be unchanged")
	})

	t.Run("fetch out of bounds", func(t *testing.T) {
		state := fast.NewVMState(0x1000, 0x1000)
		err := fast.NewCore(state).Run(context.Background())
		f := requireFault(t, state, err, fast.ErrOutOfBounds, fast.FaultOutOfBounds)
		require.False(t, f.HasInstr)
		require.Nil(t, state.Fault.Instr)
	})

	t.Run("misaligned pc", func(t *testing.T) {
		state := loadProgram(t, asm.NOP, asm.NOP)
		state.PC = 2
		err := fast.NewCore(state).Run(context.Background())
		f := requireFault(t, state, err, fast.ErrMisalignedFetch, fast.FaultMisalignedFetch)
		require.Equal(t, uint32(2), f.Addr)
	})

	t.Run("misaligned jump", func(t *testing.T) {
		state := loadProgram(t, asm.ADDI(5, 0, 0x102), asm.JALR(1, 5, 0))
		err := fast.NewCore(state).Run(context.Background())
		f := requireFault(t, state, err, fast.ErrMisalignedFetch, fast.FaultMisalignedFetch)
		require.Equal(t, uint32(4), f.PC, "faults at the jump")
		require.Equal(t, uint32(0x102), f.Addr)
		require.Zero(t, state.Registers.Read(1))
	})

	t.Run("unsupported extension", func(t *testing.T) {
		state := loadProgram(t, asm.MUL(3, 1, 2))
		err := fast.NewCore(state).Run(context.Background())
		requireFault(t, state, err, fast.ErrUnsupportedInstruction, fast.FaultUnsupported)
		require.Equal(t, "mul gp, ra, sp", state.Fault.Decoded)
	})

	t.Run("faulted state stays faulted", func(t *testing.T) {
		state := loadProgram(t, 0)
		core := fast.NewCore(state)
		_, err := core.Step(false)
		require.ErrorIs(t, err, fast.ErrDecode)
		_, err = core.Step(false)
		require.ErrorIs(t, err, fast.ErrDecode, "stored fault is reported again")
		require.Equal(t, uint64(0), state.Step)
	})

	t.Run("state without memory", func(t *testing.T) {
		state := &fast.VMState{PC: 0x40}
		_, err := fast.NewCore(state).Step(false)
		var f *fast.Fault
		require.ErrorAs(t, err, &f)
		require.Equal(t, fast.FaultInternal, f.Kind)
		require.Equal(t, fast.StatusFaulted, state.Status)
		require.Equal(t, fast.FaultInternal, state.Fault.Kind)
		require.Zero(t, state.Step)
		require.Zero(t, state.Instr())
	})

	t.Run("unknown status", func(t *testing.T) {
		state := loadProgram(t, asm.ADDI(10, 0, 5))
		state.Status = fast.Status(9)
		_, err := fast.NewCore(state).Step(false)
		var f *fast.Fault
		require.ErrorAs(t, err, &f)
		require.Equal(t, fast.FaultInternal, f.Kind)
		require.Zero(t, state.Registers.Read(10), "nothing is executed")
		require.Zero(t, state.Step)
		require.Equal(t, fast.StatusFaulted, state.Status)
	})

	t.Run("run with unknown status", func(t *testing.T) {
		state := loadProgram(t, asm.ADDI(10, 0, 5))
		state.Status = fast.Status(9)
		err := fast.NewCore(state).Run(context.Background())
		var f *fast.Fault
		require.ErrorAs(t, err, &f)
		require.Equal(t, fast.FaultInternal, f.Kind)
		require.Equal(t, fast.StatusFaulted, state.Status)
	})
}

func TestCoreHalts(t *testing.T) {
	t.Run("step limit", func(t *testing.T) {
		state := loadProgram(t, asm.ADDI(1, 1, 1), asm.JAL(0, -4))
		core := fast.NewCore(state, fast.WithMaxSteps(11))
		require.NoError(t, core.Run(context.Background()))
		require.Equal(t, fast.StatusHalted, state.Status)
		require.Equal(t, fast.HaltStepLimit, state.HaltReason)
		require.Equal(t, uint64(11), state.Step)
		require.Equal(t, uint32(6), state.Registers.Read(1))
	})

	t.Run("self loop disabled", func(t *testing.T) {
		state := loadProgram(t, asm.HALT())
		core := fast.NewCore(state, fast.WithHaltOnSelfLoop(false), fast.WithMaxSteps(100))
		require.NoError(t, core.Run(context.Background()))
		require.Equal(t, fast.HaltStepLimit, state.HaltReason)
		require.Equal(t, uint64(100), state.Step)
	})

	t.Run("ecall exit", func(t *testing.T) {
		state := loadProgram(t,
			asm.ADDI(10, 0, 42),
			asm.ADDI(17, 0, riscv.SysExit),
			asm.ECALL,
			asm.ADDI(10, 0, 0),
		)
		core := fast.NewCore(state, fast.WithHaltOnEcallExit(true))
		require.NoError(t, core.Run(context.Background()))
		require.Equal(t, fast.HaltExit, state.HaltReason)
		require.Equal(t, uint32(42), state.ExitCode)
		require.Equal(t, uint32(12), state.PC, "halts after the ecall")
	})

	t.Run("ecall without exit number", func(t *testing.T) {
		state := loadProgram(t, asm.ADDI(17, 0, 64), asm.ECALL, asm.HALT())
		core := fast.NewCore(state, fast.WithHaltOnEcallExit(true))
		require.NoError(t, core.Run(context.Background()))
		require.Equal(t, fast.HaltSelfLoop, state.HaltReason)
	})

	t.Run("ecall is a no-op by default", func(t *testing.T) {
		state := loadProgram(t, asm.ADDI(17, 0, riscv.SysExitGroup), asm.ECALL, asm.EBREAK, asm.HALT())
		require.NoError(t, fast.NewCore(state).Run(context.Background()))
		require.Equal(t, fast.HaltSelfLoop, state.HaltReason)
		require.Equal(t, uint64(4), state.Step)
	})

	t.Run("ebreak", func(t *testing.T) {
		state := loadProgram(t, asm.NOP, asm.EBREAK, asm.NOP)
		require.NoError(t, fast.NewCore(state, fast.WithHaltOnEbreak(true)).Run(context.Background()))
		require.Equal(t, fast.HaltBreakpoint, state.HaltReason)
		require.Equal(t, uint32(8), state.PC)
	})
}

func TestCoreContextCancel(t *testing.T) {
	state := loadProgram(t, asm.JAL(0, 0))
	core := fast.NewCore(state, fast.WithHaltOnSelfLoop(false))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := core.Run(ctx)
	require.True(t, errors.Is(err, context.Canceled))
	require.Equal(t, fast.StatusRunning, state.Status)
}

func TestCoreParallel(t *testing.T) {
	var wg sync.WaitGroup
	results := make([]uint32, 8)
	errs := make([]error, 8)
	for i := range results {
		i := i
		state := loadProgram(t, sumProgram(int32(10*(i+1)))...)
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = fast.NewCore(state).Run(context.Background())
			results[i] = state.Registers.Read(riscv.RegA0)
		}()
	}
	wg.Wait()
	for i, got := range results {
		require.NoError(t, errs[i])
		n := uint32(10 * (i + 1))
		var want uint32
		for k := uint32(1); k <= n; k++ {
			if k%3 != 0 {
				want += k
			}
		}
		require.Equal(t, want, got, fmt.Sprintf("core %d", i))
	}
}

func TestCoreTrace(t *testing.T) {
	state := loadProgram(t,
		asm.ADDI(1, 0, 0x100),
		asm.ADDI(2, 0, -2),
		asm.SH(2, 1, 2),
		asm.LBU(3, 1, 3),
		asm.HALT(),
	)
	core := fast.NewCore(state)
	var traces []*fast.StepTrace
	for state.Running() {
		tr, err := core.Step(true)
		require.NoError(t, err)
		traces = append(traces, tr)
	}
	require.Len(t, traces, 5)

	store := traces[2]
	require.Equal(t, uint64(2), store.Step)
	require.Equal(t, uint32(8), store.PC)
	require.Equal(t, uint32(12), store.NextPC)
	require.Equal(t, fast.OpSH, store.Inst.Op)
	require.Equal(t, []fast.MemAccess{{Kind: fast.AccessStore, Addr: 0x102, Size: 2, Value: 0xfffe}}, store.Accesses)

	load := traces[3]
	require.Equal(t, []fast.MemAccess{{Kind: fast.AccessLoad, Addr: 0x103, Size: 1, Value: 0xff}}, load.Accesses)
	require.Equal(t, "load8 [00000103] = 0xff", load.Accesses[0].String())

	require.Empty(t, traces[0].Accesses)
	require.Equal(t, "li ra, 256", traces[0].Inst.String())
}
