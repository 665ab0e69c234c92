package fast

// 32-bit machine word helpers. Comparisons return 0 or 1, matching the SLT/SLTU result encoding.

func signExtend32(v uint32, bit uint32) uint32 {
	switch v & (1 << bit) {
	case 0:
		// fill with zeroes, by masking
		return v & (^uint32(0) >> (31 - bit))
	default:
		// fill with ones, by or-ing
		return v | (^uint32(0) << bit)
	}
}

func boolToU32(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

func slt32(x, y uint32) uint32 {
	return boolToU32(int32(x) < int32(y))
}

func lt32(x, y uint32) uint32 {
	return boolToU32(x < y)
}

func shamt32(v uint32) uint32 {
	return v & 0x1F
}

func sll32(x, y uint32) uint32 {
	return x << shamt32(y)
}

func srl32(x, y uint32) uint32 {
	return x >> shamt32(y)
}

func sra32(x, y uint32) uint32 {
	return uint32(int32(x) >> shamt32(y))
}

// alu evaluates the shared OP / OP-IMM operation selected by op on the two operands.
func alu(op Op, a, b uint32) uint32 {
	switch op {
	case OpADD, OpADDI:
		return a + b
	case OpSUB:
		return a - b
	case OpSLL, OpSLLI:
		return sll32(a, b)
	case OpSLT, OpSLTI:
		return slt32(a, b)
	case OpSLTU, OpSLTIU:
		return lt32(a, b)
	case OpXOR, OpXORI:
		return a ^ b
	case OpSRL, OpSRLI:
		return srl32(a, b)
	case OpSRA, OpSRAI:
		return sra32(a, b)
	case OpOR, OpORI:
		return a | b
	case OpAND, OpANDI:
		return a & b
	default:
		panic("not an ALU operation: " + op.String())
	}
}

// branchTaken evaluates the comparison of a conditional branch.
func branchTaken(op Op, a, b uint32) bool {
	switch op {
	case OpBEQ:
		return a == b
	case OpBNE:
		return a != b
	case OpBLT:
		return int32(a) < int32(b)
	case OpBGE:
		return int32(a) >= int32(b)
	case OpBLTU:
		return a < b
	case OpBGEU:
		return a >= b
	default:
		panic("not a branch: " + op.String())
	}
}
