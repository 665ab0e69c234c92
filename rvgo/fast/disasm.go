package fast

import (
	"fmt"
	"io"
	"strings"
)

// String renders the instruction as assembly, using ABI register names
// and the common pseudo-instructions where one applies.
// Branch and jump offsets are printed relative to the instruction.
func (inst Instruction) String() string {
	rd, rs1, rs2 := RegName(inst.Rd), RegName(inst.Rs1), RegName(inst.Rs2)
	name := inst.Op.String()
	switch inst.Op {
	case OpLUI, OpAUIPC:
		return fmt.Sprintf("%s %s, %#x", name, rd, uint32(inst.Imm)>>12)
	case OpJAL:
		switch inst.Rd {
		case 0:
			return fmt.Sprintf("j %d", inst.Imm)
		case 1:
			return fmt.Sprintf("jal %d", inst.Imm)
		}
		return fmt.Sprintf("jal %s, %d", rd, inst.Imm)
	case OpJALR:
		switch {
		case inst.Rd == 0 && inst.Rs1 == 1 && inst.Imm == 0:
			return "ret"
		case inst.Rd == 0 && inst.Imm == 0:
			return "jr " + rs1
		case inst.Rd == 1 && inst.Imm == 0:
			return "jalr " + rs1
		}
		return fmt.Sprintf("jalr %s, %d(%s)", rd, inst.Imm, rs1)
	case OpBEQ, OpBNE, OpBLT, OpBGE, OpBLTU, OpBGEU:
		if pseudo, ok := branchPseudo(inst); ok {
			return pseudo
		}
		return fmt.Sprintf("%s %s, %s, %d", name, rs1, rs2, inst.Imm)
	case OpLB, OpLH, OpLW, OpLBU, OpLHU:
		return fmt.Sprintf("%s %s, %d(%s)", name, rd, inst.Imm, rs1)
	case OpSB, OpSH, OpSW:
		return fmt.Sprintf("%s %s, %d(%s)", name, rs2, inst.Imm, rs1)
	case OpADDI:
		switch {
		case inst.Rd == 0 && inst.Rs1 == 0 && inst.Imm == 0:
			return "nop"
		case inst.Rs1 == 0:
			return fmt.Sprintf("li %s, %d", rd, inst.Imm)
		case inst.Imm == 0:
			return fmt.Sprintf("mv %s, %s", rd, rs1)
		}
	case OpXORI:
		if inst.Imm == -1 {
			return fmt.Sprintf("not %s, %s", rd, rs1)
		}
	case OpSLTIU:
		if inst.Imm == 1 {
			return fmt.Sprintf("seqz %s, %s", rd, rs1)
		}
	case OpSLLI, OpSRLI, OpSRAI:
		return fmt.Sprintf("%s %s, %s, %d", name, rd, rs1, inst.Shamt())
	case OpSUB:
		if inst.Rs1 == 0 {
			return fmt.Sprintf("neg %s, %s", rd, rs2)
		}
	case OpSLTU:
		if inst.Rs1 == 0 {
			return fmt.Sprintf("snez %s, %s", rd, rs2)
		}
	case OpFENCE:
		pred, succ := (inst.Imm>>4)&0xF, inst.Imm&0xF
		if pred == 0xF && succ == 0xF {
			return "fence"
		}
		return fmt.Sprintf("fence %s, %s", fenceSet(pred), fenceSet(succ))
	case OpFENCEI, OpECALL, OpEBREAK:
		return name
	case OpExtension:
		return fmt.Sprintf(".insn 0x%08x", inst.Raw)
	case OpInvalid:
		return fmt.Sprintf(".word 0x%08x", inst.Raw)
	}
	switch inst.Format {
	case FormatR:
		return fmt.Sprintf("%s %s, %s, %s", name, rd, rs1, rs2)
	default:
		return fmt.Sprintf("%s %s, %s, %d", name, rd, rs1, inst.Imm)
	}
}

func branchPseudo(inst Instruction) (string, bool) {
	rs1, rs2 := RegName(inst.Rs1), RegName(inst.Rs2)
	switch {
	case inst.Op == OpBEQ && inst.Rs2 == 0:
		return fmt.Sprintf("beqz %s, %d", rs1, inst.Imm), true
	case inst.Op == OpBNE && inst.Rs2 == 0:
		return fmt.Sprintf("bnez %s, %d", rs1, inst.Imm), true
	case inst.Op == OpBLT && inst.Rs2 == 0:
		return fmt.Sprintf("bltz %s, %d", rs1, inst.Imm), true
	case inst.Op == OpBLT && inst.Rs1 == 0:
		return fmt.Sprintf("bgtz %s, %d", rs2, inst.Imm), true
	case inst.Op == OpBGE && inst.Rs2 == 0:
		return fmt.Sprintf("bgez %s, %d", rs1, inst.Imm), true
	case inst.Op == OpBGE && inst.Rs1 == 0:
		return fmt.Sprintf("blez %s, %d", rs2, inst.Imm), true
	}
	return "", false
}

func fenceSet(bits int32) string {
	var sb strings.Builder
	for i, c := range "iorw" {
		if bits&(8>>i) != 0 {
			sb.WriteRune(c)
		}
	}
	if sb.Len() == 0 {
		return "0"
	}
	return sb.String()
}

// Disassemble writes one line per word for count words starting at addr.
// Words that do not decode are printed as data. symbol, if not nil, labels addresses.
func Disassemble(w io.Writer, mem *Memory, addr uint32, count uint32, symbol func(addr uint32) string) error {
	for i := uint32(0); i < count; i++ {
		at := addr + i*4
		instr, err := mem.LoadWord(at)
		if err != nil {
			return err
		}
		text := fmt.Sprintf(".word 0x%08x", instr)
		if inst, err := Decode(instr); err == nil {
			text = inst.String()
		}
		if symbol != nil {
			if name := symbol(at); name != "" {
				if _, err := fmt.Fprintf(w, "%08x <%s>:\n", at, name); err != nil {
					return err
				}
			}
		}
		if _, err := fmt.Fprintf(w, "%08x:\t%08x\t%s\n", at, instr, text); err != nil {
			return err
		}
	}
	return nil
}
