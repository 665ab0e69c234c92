package fast

import (
	"context"
	"errors"
	"fmt"

	"github.com/rv32emu/rv32emu/rvgo/riscv"
)

// Core runs the fetch-decode-execute loop over one VMState.
// A Core is not safe for concurrent use; independent cores may run in parallel.
type Core struct {
	state *VMState

	maxSteps        uint64
	haltOnSelfLoop  bool
	haltOnEcallExit bool
	haltOnEbreak    bool
}

type Option func(c *Core)

// WithMaxSteps halts the run once n instructions have executed. 0 means no limit.
func WithMaxSteps(n uint64) Option {
	return func(c *Core) {
		c.maxSteps = n
	}
}

// WithHaltOnSelfLoop halts when an instruction jumps to itself (`j .`). Enabled by default.
func WithHaltOnSelfLoop(v bool) Option {
	return func(c *Core) {
		c.haltOnSelfLoop = v
	}
}

// WithHaltOnEcallExit halts on an ECALL with a7 set to the exit or exit_group syscall number,
// taking a0 as the exit code.
func WithHaltOnEcallExit(v bool) Option {
	return func(c *Core) {
		c.haltOnEcallExit = v
	}
}

// WithHaltOnEbreak halts on EBREAK.
func WithHaltOnEbreak(v bool) Option {
	return func(c *Core) {
		c.haltOnEbreak = v
	}
}

func NewCore(state *VMState, opts ...Option) *Core {
	c := &Core{
		state:          state,
		haltOnSelfLoop: true,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Core) State() *VMState {
	return c.state
}

// Step runs a single instruction. With trace set, the returned StepTrace describes what happened.
// Errors are terminal: the state is moved to StatusFaulted, keeping registers and memory as they were
// before the instruction, and a *Fault is returned. Stepping a halted state is a no-op.
func (c *Core) Step(trace bool) (*StepTrace, error) {
	s := c.state
	switch s.Status {
	case StatusHalted:
		return nil, nil
	case StatusFaulted:
		if s.Fault != nil {
			return nil, s.Fault.Fault()
		}
		return nil, &Fault{Kind: FaultInternal, PC: s.PC, Addr: s.PC, Err: errInternal}
	case StatusRunning:
	default:
		err := fmt.Errorf("%w: unknown status %d", errInternal, uint8(s.Status))
		return nil, c.fault(&Fault{PC: s.PC, Addr: s.PC, Err: err})
	}
	if s.Memory == nil {
		return nil, c.fault(&Fault{PC: s.PC, Addr: s.PC, Err: fmt.Errorf("%w: %v", errInternal, errNoMemory)})
	}

	if c.maxSteps != 0 && s.Step >= c.maxSteps {
		s.halt(HaltStepLimit)
		return nil, nil
	}

	pc := s.PC
	var tr *StepTrace
	var bus MemoryBus = s.Memory
	if trace {
		tr = &StepTrace{Step: s.Step, PC: pc}
		bus = &trackingBus{mem: s.Memory, trace: tr}
	}

	if pc&3 != 0 {
		return tr, c.fault(&Fault{PC: pc, Addr: pc, Err: &MisalignedError{Target: pc}})
	}
	instr, err := s.Memory.LoadWord(pc)
	if err != nil {
		return tr, c.fault(&Fault{PC: pc, Addr: pc, Err: err})
	}
	if tr != nil {
		tr.Instr = instr
	}

	inst, err := Decode(instr)
	if err != nil {
		return tr, c.fault(&Fault{PC: pc, Addr: pc, Instr: instr, HasInstr: true, Err: err})
	}
	if tr != nil {
		tr.Inst = inst
	}

	next, err := Execute(inst, pc, &s.Registers, bus)
	if err != nil {
		return tr, c.fault(&Fault{
			PC:       pc,
			Addr:     faultAddr(err, pc),
			Instr:    instr,
			HasInstr: true,
			Decoded:  inst.String(),
			Err:      err,
		})
	}
	s.PC = next
	s.Step++
	if tr != nil {
		tr.NextPC = next
	}

	switch {
	case inst.Op == OpECALL && c.haltOnEcallExit:
		switch s.Registers.Read(riscv.RegA7) {
		case riscv.SysExit, riscv.SysExitGroup:
			s.ExitCode = s.Registers.Read(riscv.RegA0)
			s.halt(HaltExit)
		}
	case inst.Op == OpEBREAK && c.haltOnEbreak:
		s.halt(HaltBreakpoint)
	case next == pc && c.haltOnSelfLoop:
		s.halt(HaltSelfLoop)
	}
	return tr, nil
}

// Run steps until the state halts or faults. Cancellation of ctx is checked before every
// instruction and returns ctx.Err() with the state still running.
func (c *Core) Run(ctx context.Context) error {
	if !c.state.Status.valid() {
		_, err := c.Step(false)
		return err
	}
	for c.state.Running() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := c.Step(false); err != nil {
			return err
		}
	}
	return nil
}

func (c *Core) fault(f *Fault) error {
	f.Kind = faultKindOf(f.Err)
	s := c.state
	s.Status = StatusFaulted
	s.Fault = newFaultReport(f, s.Registers)
	return f
}

func faultAddr(err error, pc uint32) uint32 {
	var memErr *MemoryError
	if errors.As(err, &memErr) {
		return memErr.Addr
	}
	var alignErr *MisalignedError
	if errors.As(err, &alignErr) {
		return alignErr.Target
	}
	return pc
}
