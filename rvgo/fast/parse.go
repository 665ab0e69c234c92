package fast

// Field extraction for the 32-bit base encodings.
// Immediates are returned sign-extended to the full machine word.

func parseOpcode(instr uint32) uint32 {
	return instr & 0x7F
}

func parseRd(instr uint32) uint8 {
	return uint8((instr >> 7) & 0x1F)
}

func parseFunct3(instr uint32) uint32 {
	return (instr >> 12) & 0x7
}

func parseRs1(instr uint32) uint8 {
	return uint8((instr >> 15) & 0x1F)
}

func parseRs2(instr uint32) uint8 {
	return uint8((instr >> 20) & 0x1F)
}

func parseFunct7(instr uint32) uint32 {
	return instr >> 25
}

// parseImmTypeI: imm[11:0] = instr[31:20]
func parseImmTypeI(instr uint32) int32 {
	return int32(instr) >> 20
}

// parseImmTypeS: imm[11:5] = instr[31:25], imm[4:0] = instr[11:7]
func parseImmTypeS(instr uint32) int32 {
	return int32(signExtend32(((instr>>25)<<5)|((instr>>7)&0x1F), 11))
}

// parseImmTypeB: imm[12|10:5] = instr[31:25], imm[4:1|11] = instr[11:7]
func parseImmTypeB(instr uint32) int32 {
	v := ((instr >> 31) & 1) << 12
	v |= ((instr >> 7) & 1) << 11
	v |= ((instr >> 25) & 0x3F) << 5
	v |= ((instr >> 8) & 0xF) << 1
	return int32(signExtend32(v, 12))
}

// parseImmTypeU: imm[31:12] = instr[31:12], lower 12 bits zero
func parseImmTypeU(instr uint32) int32 {
	return int32(instr & 0xFFFFF000)
}

// parseImmTypeJ: imm[20|10:1|11|19:12] = instr[31:12]
func parseImmTypeJ(instr uint32) int32 {
	v := ((instr >> 31) & 1) << 20
	v |= ((instr >> 12) & 0xFF) << 12
	v |= ((instr >> 20) & 1) << 11
	v |= ((instr >> 21) & 0x3FF) << 1
	return int32(signExtend32(v, 20))
}
