package fast

import (
	"errors"
	"fmt"
)

var (
	ErrDecode                 = errors.New("illegal instruction")
	ErrMisalignedFetch        = errors.New("misaligned instruction fetch")
	ErrOutOfBounds            = errors.New("memory access out of bounds")
	ErrUnsupportedInstruction = errors.New("unsupported instruction")
)

// FaultKind classifies why a run entered the faulted state.
type FaultKind uint8

const (
	FaultNone FaultKind = iota
	FaultDecode
	FaultMisalignedFetch
	FaultOutOfBounds
	FaultUnsupported
	FaultInternal
)

func (k FaultKind) String() string {
	switch k {
	case FaultNone:
		return "none"
	case FaultDecode:
		return "decode"
	case FaultMisalignedFetch:
		return "misaligned-fetch"
	case FaultOutOfBounds:
		return "out-of-bounds"
	case FaultUnsupported:
		return "unsupported-instruction"
	case FaultInternal:
		return "internal"
	default:
		return fmt.Sprintf("FaultKind(%d)", uint8(k))
	}
}

func (k FaultKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *FaultKind) UnmarshalText(text []byte) error {
	for c := FaultNone; c <= FaultInternal; c++ {
		if c.String() == string(text) {
			*k = c
			return nil
		}
	}
	return fmt.Errorf("unknown fault kind %q", text)
}

func faultKindOf(err error) FaultKind {
	switch {
	case errors.Is(err, ErrDecode):
		return FaultDecode
	case errors.Is(err, ErrMisalignedFetch):
		return FaultMisalignedFetch
	case errors.Is(err, ErrOutOfBounds):
		return FaultOutOfBounds
	case errors.Is(err, ErrUnsupportedInstruction):
		return FaultUnsupported
	default:
		return FaultInternal
	}
}

// DecodeError reports an instruction word that does not decode to a defined instruction.
type DecodeError struct {
	Instr  uint32
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%v %08x: %s", ErrDecode, e.Instr, e.Reason)
}

func (e *DecodeError) Unwrap() error {
	return ErrDecode
}

func decodeErr(instr uint32, format string, args ...any) error {
	return &DecodeError{Instr: instr, Reason: fmt.Sprintf(format, args...)}
}

// MemoryError reports an access that touches bytes outside the configured capacity.
type MemoryError struct {
	Addr     uint32
	Size     uint32
	Capacity uint64
}

func (e *MemoryError) Error() string {
	return fmt.Sprintf("%v: %d byte(s) at %08x, capacity %#x", ErrOutOfBounds, e.Size, e.Addr, e.Capacity)
}

func (e *MemoryError) Unwrap() error {
	return ErrOutOfBounds
}

// MisalignedError reports a control transfer or fetch at an address that is not a multiple of 4.
type MisalignedError struct {
	Target uint32
}

func (e *MisalignedError) Error() string {
	return fmt.Sprintf("%v: %08x", ErrMisalignedFetch, e.Target)
}

func (e *MisalignedError) Unwrap() error {
	return ErrMisalignedFetch
}

// UnsupportedError reports a decoded instruction outside the executed subset.
type UnsupportedError struct {
	Inst Instruction
}

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("%v: %s (%s)", ErrUnsupportedInstruction, e.Inst.String(), e.Inst.Ext)
}

func (e *UnsupportedError) Unwrap() error {
	return ErrUnsupportedInstruction
}

// Fault is the terminal error of a run, with the context of the instruction that caused it.
type Fault struct {
	Kind FaultKind
	PC   uint32
	// Addr is the faulting address: the PC for fetch faults, the effective address for
	// memory faults and the jump target for misaligned control transfers.
	Addr     uint32
	Instr    uint32
	HasInstr bool
	Decoded  string
	Err      error
}

func (f *Fault) Error() string {
	if f.HasInstr {
		if f.Decoded != "" {
			return fmt.Sprintf("%s fault at pc %08x (insn %08x %q, addr %08x): %v", f.Kind, f.PC, f.Instr, f.Decoded, f.Addr, f.Err)
		}
		return fmt.Sprintf("%s fault at pc %08x (insn %08x, addr %08x): %v", f.Kind, f.PC, f.Instr, f.Addr, f.Err)
	}
	return fmt.Sprintf("%s fault at pc %08x: %v", f.Kind, f.PC, f.Err)
}

func (f *Fault) Unwrap() error {
	return f.Err
}
