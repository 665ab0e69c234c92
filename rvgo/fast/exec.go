package fast

import "fmt"

// MemoryBus is the memory view the engine executes against.
// Loads return raw zero-extended values.
type MemoryBus interface {
	LoadByte(addr uint32) (uint8, error)
	LoadHalf(addr uint32) (uint16, error)
	LoadWord(addr uint32) (uint32, error)
	StoreByte(addr uint32, v uint8) error
	StoreHalf(addr uint32, v uint16) error
	StoreWord(addr uint32, v uint32) error
}

var _ MemoryBus = (*Memory)(nil)

// Execute applies the semantics of inst, located at pc, to regs and mem and returns the next PC.
// On error neither regs nor mem are modified.
//
// FENCE, FENCE.I, ECALL and EBREAK only advance the PC: there is no pipeline to order,
// and no execution environment to call into. Halting on ECALL/EBREAK is a decision of the Core.
func Execute(inst Instruction, pc uint32, regs *Registers, mem MemoryBus) (uint32, error) {
	next := pc + 4

	switch inst.Op {
	case OpLUI:
		regs.Write(inst.Rd, uint32(inst.Imm))
	case OpAUIPC:
		regs.Write(inst.Rd, pc+uint32(inst.Imm))
	case OpJAL:
		target := pc + uint32(inst.Imm)
		if err := checkTarget(target); err != nil {
			return 0, err
		}
		regs.Write(inst.Rd, next)
		next = target
	case OpJALR:
		// read rs1 before writing rd, they may be the same register
		target := (regs.Read(inst.Rs1) + uint32(inst.Imm)) &^ 1 // least significant bit is set to 0
		if err := checkTarget(target); err != nil {
			return 0, err
		}
		regs.Write(inst.Rd, next)
		next = target
	case OpBEQ, OpBNE, OpBLT, OpBGE, OpBLTU, OpBGEU:
		if branchTaken(inst.Op, regs.Read(inst.Rs1), regs.Read(inst.Rs2)) {
			// imm is a signed offset, in multiples of 2 bytes.
			target := pc + uint32(inst.Imm)
			if err := checkTarget(target); err != nil {
				return 0, err
			}
			next = target
		}
	case OpLB, OpLH, OpLW, OpLBU, OpLHU:
		v, err := load(inst.Op, regs.Read(inst.Rs1)+uint32(inst.Imm), mem)
		if err != nil {
			return 0, err
		}
		regs.Write(inst.Rd, v)
	case OpSB, OpSH, OpSW:
		if err := store(inst.Op, regs.Read(inst.Rs1)+uint32(inst.Imm), regs.Read(inst.Rs2), mem); err != nil {
			return 0, err
		}
	case OpADDI, OpSLTI, OpSLTIU, OpXORI, OpORI, OpANDI, OpSLLI, OpSRLI, OpSRAI:
		// shifts only look at the low 5 bits of the immediate
		regs.Write(inst.Rd, alu(inst.Op, regs.Read(inst.Rs1), uint32(inst.Imm)))
	case OpADD, OpSUB, OpSLL, OpSLT, OpSLTU, OpXOR, OpSRL, OpSRA, OpOR, OpAND:
		regs.Write(inst.Rd, alu(inst.Op, regs.Read(inst.Rs1), regs.Read(inst.Rs2)))
	case OpFENCE, OpFENCEI:
		// no-op: single hart, no caches, nothing to synchronize.
	case OpECALL, OpEBREAK:
		// no-op: no execution environment.
	case OpMUL, OpMULH, OpMULHSU, OpMULHU, OpDIV, OpDIVU, OpREM, OpREMU:
		return 0, &UnsupportedError{Inst: inst}
	case OpExtension:
		return 0, &UnsupportedError{Inst: inst}
	case OpInvalid:
		return 0, fmt.Errorf("%w: %08x was not decoded", ErrUnsupportedInstruction, inst.Raw)
	default:
		return 0, &UnsupportedError{Inst: inst}
	}
	return next, nil
}

func checkTarget(target uint32) error {
	if target&3 != 0 {
		return &MisalignedError{Target: target}
	}
	return nil
}

func load(op Op, addr uint32, mem MemoryBus) (uint32, error) {
	switch op {
	case OpLB:
		v, err := mem.LoadByte(addr)
		return signExtend32(uint32(v), 7), err
	case OpLH:
		v, err := mem.LoadHalf(addr)
		return signExtend32(uint32(v), 15), err
	case OpLW:
		return mem.LoadWord(addr)
	case OpLBU:
		v, err := mem.LoadByte(addr)
		return uint32(v), err
	case OpLHU:
		v, err := mem.LoadHalf(addr)
		return uint32(v), err
	default:
		panic("not a load: " + op.String())
	}
}

func store(op Op, addr uint32, v uint32, mem MemoryBus) error {
	switch op {
	case OpSB:
		return mem.StoreByte(addr, uint8(v))
	case OpSH:
		return mem.StoreHalf(addr, uint16(v))
	case OpSW:
		return mem.StoreWord(addr, v)
	default:
		panic("not a store: " + op.String())
	}
}
