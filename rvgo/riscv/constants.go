package riscv

// Major opcodes, the low 7 bits of a 32-bit instruction word.
const (
	OpcodeLoad     = 0x03 // 000_0011
	OpcodeLoadFP   = 0x07 // 000_0111
	OpcodeMiscMem  = 0x0F // 000_1111
	OpcodeOpImm    = 0x13 // 001_0011
	OpcodeAUIPC    = 0x17 // 001_0111
	OpcodeOpImm32  = 0x1B // 001_1011, RV64 only
	OpcodeStore    = 0x23 // 010_0011
	OpcodeStoreFP  = 0x27 // 010_0111
	OpcodeAMO      = 0x2F // 010_1111
	OpcodeOp       = 0x33 // 011_0011
	OpcodeLUI      = 0x37 // 011_0111
	OpcodeOp32     = 0x3B // 011_1011, RV64 only
	OpcodeMAdd     = 0x43 // 100_0011
	OpcodeMSub     = 0x47 // 100_0111
	OpcodeNMSub    = 0x4B // 100_1011
	OpcodeNMAdd    = 0x4F // 100_1111
	OpcodeOpFP     = 0x53 // 101_0011
	OpcodeOpV      = 0x57 // 101_0111
	OpcodeBranch   = 0x63 // 110_0011
	OpcodeJALR     = 0x67 // 110_0111
	OpcodeJAL      = 0x6F // 110_1111
	OpcodeSystem   = 0x73 // 111_0011
	OpcodeMask     = 0x7F
	InstrSizeBytes = 4
)

// funct7 selectors within OP / OP-IMM.
const (
	Funct7Base   = 0x00
	Funct7Alt    = 0x20 // SUB, SRA, SRAI
	Funct7MulDiv = 0x01 // RV32M
)

// Linux RISC-V syscall numbers recognised by the ecall exit convention.
const (
	SysExit      = 93
	SysExitGroup = 94
)

// ABI register indices used by the ecall convention.
const (
	RegA0 = 10
	RegA7 = 17
)

const (
	// DefaultMemorySize is the capacity used by the loaders when none is configured: 16 MiB.
	DefaultMemorySize = 1 << 24
	// MaxMemorySize is the full 32-bit address space.
	MaxMemorySize = 1 << 32
)
