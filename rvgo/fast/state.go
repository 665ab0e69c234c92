package fast

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Status is the run state of a VM.
type Status uint8

const (
	StatusRunning Status = iota
	StatusHalted
	StatusFaulted
)

var statusNames = [...]string{"running", "halted", "faulted"}

func (s Status) valid() bool {
	return int(s) < len(statusNames)
}

func (s Status) String() string {
	if int(s) < len(statusNames) {
		return statusNames[s]
	}
	return fmt.Sprintf("Status(%d)", uint8(s))
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(text []byte) error {
	for i, name := range statusNames {
		if name == string(text) {
			*s = Status(i)
			return nil
		}
	}
	return fmt.Errorf("unknown status %q", text)
}

// HaltReason records which halt convention stopped a run.
type HaltReason uint8

const (
	HaltNone HaltReason = iota
	HaltStepLimit
	HaltSelfLoop
	HaltExit
	HaltBreakpoint
)

var haltNames = [...]string{"none", "step-limit", "self-loop", "exit", "breakpoint"}

func (h HaltReason) valid() bool {
	return int(h) < len(haltNames)
}

func (h HaltReason) String() string {
	if int(h) < len(haltNames) {
		return haltNames[h]
	}
	return fmt.Sprintf("HaltReason(%d)", uint8(h))
}

func (h HaltReason) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

func (h *HaltReason) UnmarshalText(text []byte) error {
	for i, name := range haltNames {
		if name == string(text) {
			*h = HaltReason(i)
			return nil
		}
	}
	return fmt.Errorf("unknown halt reason %q", text)
}

// FaultReport is the inspectable record of a fault, kept in the state after the run stops.
type FaultReport struct {
	Kind      FaultKind     `json:"kind"`
	PC        uint32        `json:"pc"`
	Addr      uint32        `json:"addr"`
	Instr     *hexutil.Uint `json:"instr,omitempty"` // nil if the fetch itself failed
	Decoded   string        `json:"decoded,omitempty"`
	Registers Registers     `json:"registers"`
	Message   string        `json:"message"`
}

func newFaultReport(f *Fault, regs Registers) *FaultReport {
	r := &FaultReport{
		Kind:      f.Kind,
		PC:        f.PC,
		Addr:      f.Addr,
		Decoded:   f.Decoded,
		Registers: regs,
		Message:   f.Err.Error(),
	}
	if f.HasInstr {
		v := hexutil.Uint(f.Instr)
		r.Instr = &v
	}
	return r
}

// Fault rebuilds the error of a stored report.
func (r *FaultReport) Fault() *Fault {
	f := &Fault{
		Kind:    r.Kind,
		PC:      r.PC,
		Addr:    r.Addr,
		Decoded: r.Decoded,
		Err:     fmt.Errorf("%w: %s", r.Kind.sentinel(), r.Message),
	}
	if r.Instr != nil {
		f.Instr = uint32(*r.Instr)
		f.HasInstr = true
	}
	return f
}

var (
	errInternal = errors.New("internal error")
	errNoMemory = errors.New("state has no memory")
)

func (k FaultKind) sentinel() error {
	switch k {
	case FaultDecode:
		return ErrDecode
	case FaultMisalignedFetch:
		return ErrMisalignedFetch
	case FaultOutOfBounds:
		return ErrOutOfBounds
	case FaultUnsupported:
		return ErrUnsupportedInstruction
	default:
		return errInternal
	}
}

type VMState struct {
	Memory *Memory `json:"memory"`

	PC uint32 `json:"pc"`

	Registers Registers `json:"registers"`

	// Step counts the executed instructions.
	Step uint64 `json:"step"`

	Status     Status     `json:"status"`
	HaltReason HaltReason `json:"haltReason"`
	ExitCode   uint32     `json:"exit"`

	Fault *FaultReport `json:"fault,omitempty"`
}

// NewVMState creates a running state with empty memory of the given capacity and the PC at entry.
func NewVMState(capacity uint64, entry uint32) *VMState {
	return &VMState{
		Memory: NewMemory(capacity),
		PC:     entry,
	}
}

func (state *VMState) UnmarshalJSON(data []byte) error {
	type stateJSON VMState
	var dat stateJSON
	if err := json.Unmarshal(data, &dat); err != nil {
		return err
	}
	if dat.Memory == nil {
		return errNoMemory
	}
	*state = VMState(dat)
	return nil
}

func (state *VMState) Running() bool {
	return state.Status == StatusRunning
}

// Instr returns the word at the PC, or 0 if it lies outside of memory.
func (state *VMState) Instr() uint32 {
	if state.Memory == nil {
		return 0
	}
	v, err := state.Memory.LoadWord(state.PC)
	if err != nil {
		return 0
	}
	return v
}

// Snapshot returns a deep copy of the state.
func (state *VMState) Snapshot() *VMState {
	out := *state
	if state.Memory != nil {
		out.Memory = state.Memory.Clone()
	}
	if state.Fault != nil {
		f := *state.Fault
		if f.Instr != nil {
			v := *f.Instr
			f.Instr = &v
		}
		out.Fault = &f
	}
	return &out
}

func (state *VMState) halt(reason HaltReason) {
	state.Status = StatusHalted
	state.HaltReason = reason
}

// Serialize writes the state in a simple binary format which can be read again using Deserialize
// The format is a simple concatenation of fields, using big endian encoding for numbers.
//
// PC          uint32
// Registers   [32]uint32
// Step        uint64
// Status      uint8
// HaltReason  uint8
// ExitCode    uint32
// HasFault    bool
// Fault       (only if HasFault)
//
//	Kind        uint8
//	PC          uint32
//	Addr        uint32
//	HasInstr    bool
//	Instr       uint32
//	Decoded     length-prefixed string
//	Registers   [32]uint32
//	Message     length-prefixed string
//
// Memory      see Memory.Serialize
func (state *VMState) Serialize(out io.Writer) error {
	bout := newBinWriter(out)
	bout.write(state.PC)
	bout.write(state.Registers)
	bout.write(state.Step)
	bout.write(state.Status)
	bout.write(state.HaltReason)
	bout.write(state.ExitCode)
	bout.write(state.Fault != nil)
	if f := state.Fault; f != nil {
		bout.write(f.Kind)
		bout.write(f.PC)
		bout.write(f.Addr)
		bout.write(f.Instr != nil)
		var instr uint32
		if f.Instr != nil {
			instr = uint32(*f.Instr)
		}
		bout.write(instr)
		bout.writeString(f.Decoded)
		bout.write(f.Registers)
		bout.writeString(f.Message)
	}
	if bout.err != nil {
		return bout.err
	}
	return state.Memory.Serialize(out)
}

func (state *VMState) Deserialize(in io.Reader) error {
	bin := newBinReader(in)
	bin.read(&state.PC)
	bin.read(&state.Registers)
	bin.read(&state.Step)
	bin.read(&state.Status)
	bin.read(&state.HaltReason)
	bin.read(&state.ExitCode)
	var hasFault bool
	bin.read(&hasFault)
	if bin.err != nil {
		return bin.err
	}
	if !state.Status.valid() {
		return fmt.Errorf("invalid status %d", uint8(state.Status))
	}
	if !state.HaltReason.valid() {
		return fmt.Errorf("invalid halt reason %d", uint8(state.HaltReason))
	}
	state.Fault = nil
	if hasFault {
		f := &FaultReport{}
		bin.read(&f.Kind)
		if bin.err == nil && f.Kind > FaultInternal {
			return fmt.Errorf("invalid fault kind %d", uint8(f.Kind))
		}
		bin.read(&f.PC)
		bin.read(&f.Addr)
		var hasInstr bool
		bin.read(&hasInstr)
		var instr uint32
		bin.read(&instr)
		if hasInstr {
			v := hexutil.Uint(instr)
			f.Instr = &v
		}
		f.Decoded = bin.readString()
		bin.read(&f.Registers)
		f.Message = bin.readString()
		state.Fault = f
	}
	if bin.err != nil {
		return bin.err
	}
	state.Memory = new(Memory)
	return state.Memory.Deserialize(in)
}

// maximum length of strings in the binary state format
const maxSerializedString = 1 << 16

type binWriter struct {
	w   io.Writer
	err error
}

func newBinWriter(w io.Writer) *binWriter {
	return &binWriter{w: w}
}

func (b *binWriter) write(v any) {
	if b.err != nil {
		return
	}
	b.err = binary.Write(b.w, binary.BigEndian, v)
}

func (b *binWriter) writeString(s string) {
	if len(s) > maxSerializedString {
		s = s[:maxSerializedString]
	}
	b.write(uint32(len(s)))
	if b.err != nil {
		return
	}
	_, b.err = io.WriteString(b.w, s)
}

type binReader struct {
	r   io.Reader
	err error
}

func newBinReader(r io.Reader) *binReader {
	return &binReader{r: r}
}

func (b *binReader) read(v any) {
	if b.err != nil {
		return
	}
	b.err = binary.Read(b.r, binary.BigEndian, v)
}

func (b *binReader) readString() string {
	var n uint32
	b.read(&n)
	if b.err != nil {
		return ""
	}
	if n > maxSerializedString {
		b.err = fmt.Errorf("string of %d bytes exceeds limit", n)
		return ""
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(b.r, buf); err != nil {
		b.err = err
		return ""
	}
	return string(buf)
}
