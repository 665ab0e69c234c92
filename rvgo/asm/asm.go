// Package asm builds RV32I instruction words, for hand-written test programs and tools.
package asm

import (
	"encoding/binary"

	"github.com/rv32emu/rv32emu/rvgo/fast"
	"github.com/rv32emu/rv32emu/rvgo/riscv"
)

// Program lays out the words little-endian, ready to be loaded with fast.LoadImage.
func Program(words ...uint32) []byte {
	out := make([]byte, 4*len(words))
	for i, w := range words {
		binary.LittleEndian.PutUint32(out[i*4:], w)
	}
	return out
}

func LUI(rd uint8, imm uint32) uint32 {
	return fast.EncodeU(riscv.OpcodeLUI, rd, int32(imm<<12))
}

func AUIPC(rd uint8, imm uint32) uint32 {
	return fast.EncodeU(riscv.OpcodeAUIPC, rd, int32(imm<<12))
}

func JAL(rd uint8, offset int32) uint32 {
	return fast.EncodeJ(riscv.OpcodeJAL, rd, offset)
}

func JALR(rd, rs1 uint8, imm int32) uint32 {
	return fast.EncodeI(riscv.OpcodeJALR, rd, 0, rs1, imm)
}

func branch(funct3 uint32) func(rs1, rs2 uint8, offset int32) uint32 {
	return func(rs1, rs2 uint8, offset int32) uint32 {
		return fast.EncodeB(riscv.OpcodeBranch, funct3, rs1, rs2, offset)
	}
}

var (
	BEQ  = branch(0)
	BNE  = branch(1)
	BLT  = branch(4)
	BGE  = branch(5)
	BLTU = branch(6)
	BGEU = branch(7)
)

func load(funct3 uint32) func(rd, rs1 uint8, imm int32) uint32 {
	return func(rd, rs1 uint8, imm int32) uint32 {
		return fast.EncodeI(riscv.OpcodeLoad, rd, funct3, rs1, imm)
	}
}

var (
	LB  = load(0)
	LH  = load(1)
	LW  = load(2)
	LBU = load(4)
	LHU = load(5)
)

func store(funct3 uint32) func(rs2, rs1 uint8, imm int32) uint32 {
	return func(rs2, rs1 uint8, imm int32) uint32 {
		return fast.EncodeS(riscv.OpcodeStore, funct3, rs1, rs2, imm)
	}
}

// Stores take their operands in assembly order: `sw rs2, imm(rs1)`.
var (
	SB = store(0)
	SH = store(1)
	SW = store(2)
)

func opImm(funct3 uint32) func(rd, rs1 uint8, imm int32) uint32 {
	return func(rd, rs1 uint8, imm int32) uint32 {
		return fast.EncodeI(riscv.OpcodeOpImm, rd, funct3, rs1, imm)
	}
}

var (
	ADDI  = opImm(0)
	SLTI  = opImm(2)
	SLTIU = opImm(3)
	XORI  = opImm(4)
	ORI   = opImm(6)
	ANDI  = opImm(7)
)

func SLLI(rd, rs1 uint8, shamt uint32) uint32 {
	return fast.EncodeI(riscv.OpcodeOpImm, rd, 1, rs1, int32(shamt&0x1F))
}

func SRLI(rd, rs1 uint8, shamt uint32) uint32 {
	return fast.EncodeI(riscv.OpcodeOpImm, rd, 5, rs1, int32(shamt&0x1F))
}

func SRAI(rd, rs1 uint8, shamt uint32) uint32 {
	return fast.EncodeI(riscv.OpcodeOpImm, rd, 5, rs1, int32(shamt&0x1F|riscv.Funct7Alt<<5))
}

func op(funct3, funct7 uint32) func(rd, rs1, rs2 uint8) uint32 {
	return func(rd, rs1, rs2 uint8) uint32 {
		return fast.EncodeR(riscv.OpcodeOp, rd, funct3, rs1, rs2, funct7)
	}
}

var (
	ADD  = op(0, riscv.Funct7Base)
	SUB  = op(0, riscv.Funct7Alt)
	SLL  = op(1, riscv.Funct7Base)
	SLT  = op(2, riscv.Funct7Base)
	SLTU = op(3, riscv.Funct7Base)
	XOR  = op(4, riscv.Funct7Base)
	SRL  = op(5, riscv.Funct7Base)
	SRA  = op(5, riscv.Funct7Alt)
	OR   = op(6, riscv.Funct7Base)
	AND  = op(7, riscv.Funct7Base)

	MUL  = op(0, riscv.Funct7MulDiv)
	DIV  = op(4, riscv.Funct7MulDiv)
	REMU = op(7, riscv.Funct7MulDiv)
)

const (
	FENCE  uint32 = 0x0FF0000F // fence iorw, iorw
	FENCEI uint32 = 0x0000100F
	ECALL  uint32 = 0x00000073
	EBREAK uint32 = 0x00100073
	NOP    uint32 = 0x00000013 // addi zero, zero, 0
)

// LI loads a full 32-bit constant, as a LUI + ADDI pair.
func LI(rd uint8, v uint32) [2]uint32 {
	lo := int32(v<<20) >> 20
	hi := (v - uint32(lo)) >> 12
	return [2]uint32{LUI(rd, hi), ADDI(rd, rd, lo)}
}

// HALT is `j .`, the self-loop the core stops on by default.
func HALT() uint32 {
	return JAL(0, 0)
}
