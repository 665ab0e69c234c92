package fast

import (
	"encoding/binary"

	"github.com/rv32emu/rv32emu/rvgo/riscv"
)

// DecodeBytes decodes a little-endian 4 byte instruction.
func DecodeBytes(b []byte) (Instruction, error) {
	if len(b) != riscv.InstrSizeBytes {
		return Instruction{}, decodeErr(0, "need %d instruction bytes, got %d", riscv.InstrSizeBytes, len(b))
	}
	return Decode(binary.LittleEndian.Uint32(b))
}

// Decode turns a 32-bit instruction word into an Instruction.
// Words that are not defined RV32I encodings fail with ErrDecode. Encodings of other
// extensions decode with their Ext set, so the engine can report them as unsupported.
func Decode(instr uint32) (Instruction, error) {
	if instr&0x3 != 0x3 {
		// compressed encodings, and the all-zero word, are not part of the 32-bit base
		return Instruction{}, decodeErr(instr, "not a 32-bit encoding")
	}

	opcode := parseOpcode(instr)
	funct3 := parseFunct3(instr)
	funct7 := parseFunct7(instr)

	switch opcode {
	case riscv.OpcodeLUI: // 011_0111: LUI = Load upper immediate
		return decodeU(instr, OpLUI), nil
	case riscv.OpcodeAUIPC: // 001_0111: AUIPC = Add upper immediate to PC
		return decodeU(instr, OpAUIPC), nil
	case riscv.OpcodeJAL: // 110_1111: JAL = Jump and link
		return Instruction{
			Raw:    instr,
			Format: FormatJ,
			Op:     OpJAL,
			Opcode: opcode,
			Rd:     parseRd(instr),
			Imm:    parseImmTypeJ(instr),
		}, nil
	case riscv.OpcodeJALR: // 110_0111: JALR = Jump and link register
		if funct3 != 0 {
			return Instruction{}, decodeErr(instr, "jalr with funct3 %d", funct3)
		}
		return decodeI(instr, OpJALR), nil
	case riscv.OpcodeBranch: // 110_0011: branching
		var op Op
		switch funct3 {
		case 0: // 000 = BEQ
			op = OpBEQ
		case 1: // 001 = BNE
			op = OpBNE
		case 4: // 100 = BLT
			op = OpBLT
		case 5: // 101 = BGE
			op = OpBGE
		case 6: // 110 = BLTU
			op = OpBLTU
		case 7: // 111 = BGEU
			op = OpBGEU
		default:
			return Instruction{}, decodeErr(instr, "branch with funct3 %d", funct3)
		}
		return Instruction{
			Raw:    instr,
			Format: FormatB,
			Op:     op,
			Opcode: opcode,
			Rs1:    parseRs1(instr),
			Rs2:    parseRs2(instr),
			Funct3: funct3,
			Imm:    parseImmTypeB(instr),
		}, nil
	case riscv.OpcodeLoad: // 000_0011: memory loading
		var op Op
		switch funct3 {
		case 0: // 000 = LB
			op = OpLB
		case 1: // 001 = LH
			op = OpLH
		case 2: // 010 = LW
			op = OpLW
		case 4: // 100 = LBU
			op = OpLBU
		case 5: // 101 = LHU
			op = OpLHU
		default: // LD and LWU are RV64 only
			return Instruction{}, decodeErr(instr, "load with funct3 %d", funct3)
		}
		return decodeI(instr, op), nil
	case riscv.OpcodeStore: // 010_0011: memory storing
		var op Op
		switch funct3 {
		case 0: // 000 = SB
			op = OpSB
		case 1: // 001 = SH
			op = OpSH
		case 2: // 010 = SW
			op = OpSW
		default: // SD is RV64 only
			return Instruction{}, decodeErr(instr, "store with funct3 %d", funct3)
		}
		return Instruction{
			Raw:    instr,
			Format: FormatS,
			Op:     op,
			Opcode: opcode,
			Rs1:    parseRs1(instr),
			Rs2:    parseRs2(instr),
			Funct3: funct3,
			Imm:    parseImmTypeS(instr),
		}, nil
	case riscv.OpcodeOpImm: // 001_0011: immediate arithmetic and logic
		var op Op
		switch funct3 {
		case 0: // 000 = ADDI
			op = OpADDI
		case 1: // 001 = SLLI
			if funct7 != riscv.Funct7Base {
				return Instruction{}, decodeErr(instr, "slli with imm[11:5] %#x", funct7)
			}
			op = OpSLLI
		case 2: // 010 = SLTI
			op = OpSLTI
		case 3: // 011 = SLTIU
			op = OpSLTIU
		case 4: // 100 = XORI
			op = OpXORI
		case 5: // 101 = SR~, the top 7 bits select the shift type
			switch funct7 {
			case riscv.Funct7Base: // 0000000 = SRLI
				op = OpSRLI
			case riscv.Funct7Alt: // 0100000 = SRAI
				op = OpSRAI
			default:
				return Instruction{}, decodeErr(instr, "shift right immediate with imm[11:5] %#x", funct7)
			}
		case 6: // 110 = ORI
			op = OpORI
		case 7: // 111 = ANDI
			op = OpANDI
		}
		return decodeI(instr, op), nil
	case riscv.OpcodeOp: // 011_0011: register arithmetic and logic
		op, ext, ok := decodeOp(funct3, funct7)
		if !ok {
			return Instruction{}, decodeErr(instr, "op with funct3 %d funct7 %#x", funct3, funct7)
		}
		inst := decodeR(instr, op)
		inst.Ext = ext
		return inst, nil
	case riscv.OpcodeMiscMem: // 000_1111: fence
		switch funct3 {
		case 0: // 000 = FENCE
			return decodeI(instr, OpFENCE), nil
		case 1: // 001 = FENCE.I
			inst := decodeI(instr, OpFENCEI)
			inst.Ext = ExtZifencei
			return inst, nil
		default:
			return Instruction{}, decodeErr(instr, "misc-mem with funct3 %d", funct3)
		}
	case riscv.OpcodeSystem: // 111_0011: environment things
		switch funct3 {
		case 0:
			inst := decodeI(instr, OpExtension)
			if inst.Rd == 0 && inst.Rs1 == 0 {
				switch inst.Imm {
				case 0: // imm12 = 000000000000 ECALL
					inst.Op = OpECALL
					return inst, nil
				case 1: // imm12 = 000000000001 EBREAK
					inst.Op = OpEBREAK
					return inst, nil
				}
			}
			// MRET, SRET, WFI, SFENCE.VMA and friends
			inst.Ext = ExtPriv
			return inst, nil
		case 4:
			return Instruction{}, decodeErr(instr, "system with funct3 %d", funct3)
		default: // CSR instructions
			inst := decodeI(instr, OpExtension)
			inst.Ext = ExtZicsr
			return inst, nil
		}
	case riscv.OpcodeAMO: // 010_1111: atomic operations extension
		inst := decodeR(instr, OpExtension)
		inst.Ext = ExtA
		return inst, nil
	case riscv.OpcodeLoadFP: // FLW/FLD/FLQ
		inst := decodeI(instr, OpExtension)
		inst.Ext = ExtF
		return inst, nil
	case riscv.OpcodeStoreFP: // FSW/FSD/FSQ
		inst := decodeR(instr, OpExtension)
		inst.Format = FormatS
		inst.Rd = 0
		inst.Funct7 = 0
		inst.Imm = parseImmTypeS(instr)
		inst.Ext = ExtF
		return inst, nil
	case riscv.OpcodeMAdd, riscv.OpcodeMSub, riscv.OpcodeNMSub, riscv.OpcodeNMAdd, riscv.OpcodeOpFP:
		// fused multiply-add keeps rs3 and the format in the funct7 position
		inst := decodeR(instr, OpExtension)
		inst.Ext = ExtF
		return inst, nil
	case riscv.OpcodeOpV:
		inst := decodeR(instr, OpExtension)
		inst.Ext = ExtV
		return inst, nil
	case riscv.OpcodeOpImm32, riscv.OpcodeOp32:
		return Instruction{}, decodeErr(instr, "RV64 word operation, opcode %#02x", opcode)
	default:
		return Instruction{}, decodeErr(instr, "unknown opcode %#02x", opcode)
	}
}

func decodeOp(funct3, funct7 uint32) (Op, Ext, bool) {
	switch funct7 {
	case riscv.Funct7Base:
		switch funct3 {
		case 0: // 000 = ADD
			return OpADD, ExtI, true
		case 1: // 001 = SLL
			return OpSLL, ExtI, true
		case 2: // 010 = SLT
			return OpSLT, ExtI, true
		case 3: // 011 = SLTU
			return OpSLTU, ExtI, true
		case 4: // 100 = XOR
			return OpXOR, ExtI, true
		case 5: // 101 = SRL
			return OpSRL, ExtI, true
		case 6: // 110 = OR
			return OpOR, ExtI, true
		case 7: // 111 = AND
			return OpAND, ExtI, true
		}
	case riscv.Funct7Alt:
		switch funct3 {
		case 0: // 000 = SUB
			return OpSUB, ExtI, true
		case 5: // 101 = SRA
			return OpSRA, ExtI, true
		}
	case riscv.Funct7MulDiv: // RV M extension
		return [...]Op{OpMUL, OpMULH, OpMULHSU, OpMULHU, OpDIV, OpDIVU, OpREM, OpREMU}[funct3], ExtM, true
	}
	return OpInvalid, ExtI, false
}

func decodeR(instr uint32, op Op) Instruction {
	return Instruction{
		Raw:    instr,
		Format: FormatR,
		Op:     op,
		Opcode: parseOpcode(instr),
		Rd:     parseRd(instr),
		Rs1:    parseRs1(instr),
		Rs2:    parseRs2(instr),
		Funct3: parseFunct3(instr),
		Funct7: parseFunct7(instr),
	}
}

func decodeI(instr uint32, op Op) Instruction {
	return Instruction{
		Raw:    instr,
		Format: FormatI,
		Op:     op,
		Opcode: parseOpcode(instr),
		Rd:     parseRd(instr),
		Rs1:    parseRs1(instr),
		Funct3: parseFunct3(instr),
		Imm:    parseImmTypeI(instr),
	}
}

func decodeU(instr uint32, op Op) Instruction {
	return Instruction{
		Raw:    instr,
		Format: FormatU,
		Op:     op,
		Opcode: parseOpcode(instr),
		Rd:     parseRd(instr),
		Imm:    parseImmTypeU(instr),
	}
}
