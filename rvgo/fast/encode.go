package fast

import "github.com/rv32emu/rv32emu/rvgo/riscv"

// Encode rebuilds the instruction word from the decoded fields.
// For every word w that decodes without error, Encode(Decode(w)) == w.
func Encode(inst Instruction) uint32 {
	switch inst.Format {
	case FormatR:
		return EncodeR(inst.Opcode, inst.Rd, inst.Funct3, inst.Rs1, inst.Rs2, inst.Funct7)
	case FormatI:
		return EncodeI(inst.Opcode, inst.Rd, inst.Funct3, inst.Rs1, inst.Imm)
	case FormatS:
		return EncodeS(inst.Opcode, inst.Funct3, inst.Rs1, inst.Rs2, inst.Imm)
	case FormatB:
		return EncodeB(inst.Opcode, inst.Funct3, inst.Rs1, inst.Rs2, inst.Imm)
	case FormatU:
		return EncodeU(inst.Opcode, inst.Rd, inst.Imm)
	case FormatJ:
		return EncodeJ(inst.Opcode, inst.Rd, inst.Imm)
	default:
		return inst.Raw
	}
}

func EncodeR(opcode uint32, rd uint8, funct3 uint32, rs1, rs2 uint8, funct7 uint32) uint32 {
	return (funct7&0x7F)<<25 | uint32(rs2&0x1F)<<20 | uint32(rs1&0x1F)<<15 | (funct3&0x7)<<12 |
		uint32(rd&0x1F)<<7 | opcode&riscv.OpcodeMask
}

func EncodeI(opcode uint32, rd uint8, funct3 uint32, rs1 uint8, imm int32) uint32 {
	return (uint32(imm)&0xFFF)<<20 | uint32(rs1&0x1F)<<15 | (funct3&0x7)<<12 | uint32(rd&0x1F)<<7 |
		opcode&riscv.OpcodeMask
}

func EncodeS(opcode uint32, funct3 uint32, rs1, rs2 uint8, imm int32) uint32 {
	v := uint32(imm)
	return ((v>>5)&0x7F)<<25 | uint32(rs2&0x1F)<<20 | uint32(rs1&0x1F)<<15 | (funct3&0x7)<<12 |
		(v&0x1F)<<7 | opcode&riscv.OpcodeMask
}

func EncodeB(opcode uint32, funct3 uint32, rs1, rs2 uint8, imm int32) uint32 {
	v := uint32(imm)
	return ((v>>12)&1)<<31 | ((v>>5)&0x3F)<<25 | uint32(rs2&0x1F)<<20 | uint32(rs1&0x1F)<<15 |
		(funct3&0x7)<<12 | ((v>>1)&0xF)<<8 | ((v>>11)&1)<<7 | opcode&riscv.OpcodeMask
}

// EncodeU takes the immediate as it appears in the register: the upper 20 bits.
func EncodeU(opcode uint32, rd uint8, imm int32) uint32 {
	return uint32(imm)&0xFFFFF000 | uint32(rd&0x1F)<<7 | opcode&riscv.OpcodeMask
}

func EncodeJ(opcode uint32, rd uint8, imm int32) uint32 {
	v := uint32(imm)
	return ((v>>20)&1)<<31 | ((v>>1)&0x3FF)<<21 | ((v>>11)&1)<<20 | ((v>>12)&0xFF)<<12 |
		uint32(rd&0x1F)<<7 | opcode&riscv.OpcodeMask
}
