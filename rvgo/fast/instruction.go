package fast

import "fmt"

// Format is the encoding layout of an instruction word.
type Format uint8

const (
	FormatR Format = iota + 1
	FormatI
	FormatS
	FormatB
	FormatU
	FormatJ
)

func (f Format) String() string {
	switch f {
	case FormatR:
		return "R"
	case FormatI:
		return "I"
	case FormatS:
		return "S"
	case FormatB:
		return "B"
	case FormatU:
		return "U"
	case FormatJ:
		return "J"
	default:
		return fmt.Sprintf("Format(%d)", uint8(f))
	}
}

// Ext names the ISA module an instruction belongs to.
type Ext uint8

const (
	ExtI Ext = iota
	ExtZifencei
	ExtM
	ExtA
	ExtF // F, D and Q floating point encodings
	ExtV
	ExtZicsr
	ExtPriv
)

var extNames = [...]string{
	ExtI:        "RV32I",
	ExtZifencei: "Zifencei",
	ExtM:        "RV32M",
	ExtA:        "RV32A",
	ExtF:        "RV32F/D/Q",
	ExtV:        "RV32V",
	ExtZicsr:    "Zicsr",
	ExtPriv:     "privileged",
}

func (e Ext) String() string {
	if int(e) < len(extNames) {
		return extNames[e]
	}
	return fmt.Sprintf("Ext(%d)", uint8(e))
}

// Op identifies a concrete instruction.
type Op uint8

const (
	OpInvalid Op = iota

	OpLUI
	OpAUIPC
	OpJAL
	OpJALR

	OpBEQ
	OpBNE
	OpBLT
	OpBGE
	OpBLTU
	OpBGEU

	OpLB
	OpLH
	OpLW
	OpLBU
	OpLHU

	OpSB
	OpSH
	OpSW

	OpADDI
	OpSLTI
	OpSLTIU
	OpXORI
	OpORI
	OpANDI
	OpSLLI
	OpSRLI
	OpSRAI

	OpADD
	OpSUB
	OpSLL
	OpSLT
	OpSLTU
	OpXOR
	OpSRL
	OpSRA
	OpOR
	OpAND

	OpFENCE
	OpFENCEI
	OpECALL
	OpEBREAK

	// RV32M, recognised but not executed.
	OpMUL
	OpMULH
	OpMULHSU
	OpMULHU
	OpDIV
	OpDIVU
	OpREM
	OpREMU

	// OpExtension is any other recognised extension encoding; Ext tells which.
	OpExtension
)

var opNames = [...]string{
	OpInvalid: "invalid",
	OpLUI:     "lui",
	OpAUIPC:   "auipc",
	OpJAL:     "jal",
	OpJALR:    "jalr",
	OpBEQ:     "beq",
	OpBNE:     "bne",
	OpBLT:     "blt",
	OpBGE:     "bge",
	OpBLTU:    "bltu",
	OpBGEU:    "bgeu",
	OpLB:      "lb",
	OpLH:      "lh",
	OpLW:      "lw",
	OpLBU:     "lbu",
	OpLHU:     "lhu",
	OpSB:      "sb",
	OpSH:      "sh",
	OpSW:      "sw",
	OpADDI:    "addi",
	OpSLTI:    "slti",
	OpSLTIU:   "sltiu",
	OpXORI:    "xori",
	OpORI:     "ori",
	OpANDI:    "andi",
	OpSLLI:    "slli",
	OpSRLI:    "srli",
	OpSRAI:    "srai",
	OpADD:     "add",
	OpSUB:     "sub",
	OpSLL:     "sll",
	OpSLT:     "slt",
	OpSLTU:    "sltu",
	OpXOR:     "xor",
	OpSRL:     "srl",
	OpSRA:     "sra",
	OpOR:      "or",
	OpAND:     "and",
	OpFENCE:   "fence",
	OpFENCEI:  "fence.i",
	OpECALL:   "ecall",
	OpEBREAK:  "ebreak",
	OpMUL:     "mul",
	OpMULH:    "mulh",
	OpMULHSU:  "mulhsu",
	OpMULHU:   "mulhu",
	OpDIV:     "div",
	OpDIVU:    "divu",
	OpREM:     "rem",
	OpREMU:    "remu",
}

func (op Op) String() string {
	if op == OpExtension {
		return "ext"
	}
	if op < OpExtension {
		return opNames[op]
	}
	return fmt.Sprintf("Op(%d)", uint8(op))
}

// Instruction is a decoded instruction word.
// Fields that the format does not carry are zero.
type Instruction struct {
	Raw    uint32
	Format Format
	Op     Op
	Ext    Ext

	Opcode uint32
	Rd     uint8
	Rs1    uint8
	Rs2    uint8
	Funct3 uint32
	Funct7 uint32

	// Imm is sign-extended to 32 bits. U-type immediates keep their low 12 bits zero,
	// B- and J-type immediates are always even.
	Imm int32
}

// Shamt is the shift amount of SLLI/SRLI/SRAI.
func (inst Instruction) Shamt() uint32 {
	return uint32(inst.Imm) & 0x1F
}

// IsExecutable reports whether the instruction belongs to the subset the engine runs.
func (inst Instruction) IsExecutable() bool {
	return inst.Op != OpInvalid && inst.Op < OpMUL
}
