package test

import (
	"bytes"
	"context"
	"io"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/rv32emu/rv32emu/rvgo/asm"
	"github.com/rv32emu/rv32emu/rvgo/fast"
	"github.com/rv32emu/rv32emu/rvgo/riscv"
)

const programCapacity = 0x2000

// ABI registers used by the hand-assembled programs
const (
	ra = 1
	sp = 2
	t0 = 5
	t1 = 6
	t2 = 7
	a0 = 10
	a1 = 11
	a2 = 12
	a7 = 17
	t3 = 28
)

func loadProgram(words []uint32) *fast.VMState {
	state, err := fast.LoadImage(bytes.NewReader(asm.Program(words...)), 0, 0, programCapacity)
	Expect(err).NotTo(HaveOccurred())
	return state
}

// callProgram calls main, which calls sum(n, 2) and stores sum+3 at 0x204.
// sum returns n+2 plus 15 if n < 10, else 25. _start stores 1 at 0x200 once main returns.
func callProgram(n int32) []uint32 {
	return []uint32{
		// _start:
		asm.ADDI(sp, 0, 0x7f0),
		asm.JAL(ra, 0x10), // call main
		asm.ADDI(t0, 0, 1),
		asm.SW(t0, 0, 0x200),
		asm.HALT(),
		// main:
		asm.ADDI(sp, sp, -16),
		asm.SW(ra, sp, 12),
		asm.ADDI(a0, 0, n),
		asm.ADDI(a1, 0, 2),
		asm.JAL(ra, 0x1c), // call sum
		asm.ADDI(a0, a0, 3),
		asm.SW(a0, 0, 0x204),
		asm.LW(ra, sp, 12),
		asm.ADDI(sp, sp, 16),
		asm.JALR(0, ra, 0), // ret
		asm.NOP,
		// sum:
		asm.ADD(t0, a0, a1),
		asm.ADDI(t1, 0, 10),
		asm.ADDI(t2, 0, 25),
		asm.BGEU(a0, t1, 8),
		asm.ADDI(t2, 0, 15),
		asm.ADD(a0, t0, t2),
		asm.JALR(0, ra, 0), // ret
	}
}

// fibProgram computes fib(n) and exits with it through the exit syscall.
func fibProgram(n int32) []uint32 {
	return []uint32{
		asm.ADDI(t0, 0, 0),
		asm.ADDI(t1, 0, 1),
		asm.ADDI(t2, 0, n),
		// loop:
		asm.BEQ(t2, 0, 24),
		asm.ADD(t3, t0, t1),
		asm.ADDI(t0, t1, 0),
		asm.ADDI(t1, t3, 0),
		asm.ADDI(t2, t2, -1),
		asm.JAL(0, -20),
		// done:
		asm.ADDI(a0, t0, 0),
		asm.ADDI(a7, 0, riscv.SysExit),
		asm.ECALL,
		asm.HALT(),
	}
}

// copyProgram copies 16 bytes from 0x400 to 0x500, then reloads the tail sign-extended.
var copyProgram = []uint32{
	asm.ADDI(a0, 0, 0x500),
	asm.ADDI(a1, 0, 0x400),
	asm.ADDI(a2, 0, 16),
	// loop:
	asm.BEQ(a2, 0, 28),
	asm.LBU(t0, a1, 0),
	asm.SB(t0, a0, 0),
	asm.ADDI(a0, a0, 1),
	asm.ADDI(a1, a1, 1),
	asm.ADDI(a2, a2, -1),
	asm.JAL(0, -24),
	// done:
	asm.LB(t1, a0, -1),
	asm.LH(t2, a0, -2),
	asm.HALT(),
}

var _ = Describe("Programs", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	DescribeTable("function calls through the stack",
		func(n int32, expected uint32, steps uint64) {
			state := loadProgram(callProgram(n))
			core := fast.NewCore(state, fast.WithMaxSteps(1000))
			Expect(core.Run(ctx)).To(Succeed())

			Expect(state.Status).To(Equal(fast.StatusHalted))
			Expect(state.HaltReason).To(Equal(fast.HaltSelfLoop))
			Expect(state.Step).To(Equal(steps))
			Expect(state.PC).To(Equal(uint32(0x10)))
			Expect(state.Registers.Read(sp)).To(Equal(uint32(0x7f0)), "stack pointer restored")

			result, err := state.Memory.LoadWord(0x200)
			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(Equal(uint32(1)))
			result2, err := state.Memory.LoadWord(0x204)
			Expect(err).NotTo(HaveOccurred())
			Expect(result2).To(Equal(expected))
		},
		Entry("small argument takes the first branch", int32(1), uint32(1+2+15+3), uint64(22)),
		Entry("large argument skips the first branch", int32(12), uint32(12+2+25+3), uint64(21)),
	)

	Describe("fibonacci", func() {
		It("exits through the exit syscall when enabled", func() {
			state := loadProgram(fibProgram(20))
			core := fast.NewCore(state, fast.WithHaltOnEcallExit(true))
			Expect(core.Run(ctx)).To(Succeed())

			Expect(state.HaltReason).To(Equal(fast.HaltExit))
			Expect(state.ExitCode).To(Equal(uint32(6765)))
			Expect(state.PC).To(Equal(uint32(12 * 4)))
		})

		It("treats ecall as a no-op by default", func() {
			state := loadProgram(fibProgram(10))
			core := fast.NewCore(state)
			Expect(core.Run(ctx)).To(Succeed())

			Expect(state.HaltReason).To(Equal(fast.HaltSelfLoop))
			Expect(state.ExitCode).To(BeZero())
			Expect(state.Registers.Read(a0)).To(Equal(uint32(55)))
		})

		It("produces the same state hash on every run", func() {
			hash := func() string {
				state := loadProgram(fibProgram(15))
				Expect(fast.NewCore(state).Run(ctx)).To(Succeed())
				h, err := state.EncodeWitness().StateHash()
				Expect(err).NotTo(HaveOccurred())
				return h.Hex()
			}
			Expect(hash()).To(Equal(hash()))
		})
	})

	Describe("byte copy", func() {
		src := append([]byte("RISC-V rv32i!!"), 0x01, 0x80)

		It("copies bytes and sign-extends narrow loads", func() {
			state := loadProgram(copyProgram)
			Expect(state.Memory.SetUnaligned(0x400, src)).To(Succeed())
			Expect(fast.NewCore(state).Run(ctx)).To(Succeed())

			dst, err := io.ReadAll(state.Memory.ReadMemoryRange(0x500, uint32(len(src))))
			Expect(err).NotTo(HaveOccurred())
			Expect(dst).To(Equal(src))
			Expect(state.Registers.Read(t0)).To(Equal(uint32(0x80)), "lbu zero-extends")
			Expect(state.Registers.Read(t1)).To(Equal(uint32(0xffffff80)))
			Expect(state.Registers.Read(t2)).To(Equal(uint32(0xffff8001)))
		})
	})

	Describe("halting", func() {
		It("stops at the step budget", func() {
			state := loadProgram([]uint32{asm.ADDI(t0, t0, 1), asm.JAL(0, -4)})
			Expect(fast.NewCore(state, fast.WithMaxSteps(1000)).Run(ctx)).To(Succeed())
			Expect(state.HaltReason).To(Equal(fast.HaltStepLimit))
			Expect(state.Step).To(Equal(uint64(1000)))
			Expect(state.Registers.Read(t0)).To(Equal(uint32(500)))
		})

		It("halts on ebreak when enabled", func() {
			state := loadProgram([]uint32{asm.ADDI(t0, 0, 1), asm.EBREAK, asm.ADDI(t0, 0, 2), asm.HALT()})
			Expect(fast.NewCore(state, fast.WithHaltOnEbreak(true)).Run(ctx)).To(Succeed())
			Expect(state.HaltReason).To(Equal(fast.HaltBreakpoint))
			Expect(state.PC).To(Equal(uint32(8)))
			Expect(state.Registers.Read(t0)).To(Equal(uint32(1)))
		})

		It("returns the context error when cancelled", func() {
			state := loadProgram([]uint32{asm.JAL(0, 4), asm.JAL(0, -4)})
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			Expect(fast.NewCore(state).Run(cctx)).To(MatchError(context.Canceled))
			Expect(state.Status).To(Equal(fast.StatusRunning))
		})
	})

	Describe("faults", func() {
		It("faults on a misaligned jump without writing the link register", func() {
			state := loadProgram([]uint32{asm.ADDI(a0, 0, 0x102), asm.JALR(ra, a0, 0)})
			err := fast.NewCore(state).Run(ctx)
			Expect(err).To(MatchError(fast.ErrMisalignedFetch))

			Expect(state.Status).To(Equal(fast.StatusFaulted))
			Expect(state.PC).To(Equal(uint32(4)))
			Expect(state.Registers.Read(ra)).To(BeZero())
			Expect(state.Fault.Kind).To(Equal(fast.FaultMisalignedFetch))
			Expect(state.Fault.Addr).To(Equal(uint32(0x102)))
		})

		It("faults when fetching outside of memory", func() {
			state := loadProgram([]uint32{asm.JAL(0, 0x4000)})
			err := fast.NewCore(state).Run(ctx)
			Expect(err).To(MatchError(fast.ErrOutOfBounds))
			Expect(state.PC).To(Equal(uint32(0x4000)))
			Expect(state.Fault.Instr).To(BeNil(), "nothing was fetched")
		})

		It("reports recognised extensions as unsupported", func() {
			state := loadProgram([]uint32{asm.ADDI(t0, 0, 6), asm.MUL(t1, t0, t0), asm.HALT()})
			err := fast.NewCore(state).Run(ctx)
			Expect(err).To(MatchError(fast.ErrUnsupportedInstruction))
			Expect(state.Fault.Kind).To(Equal(fast.FaultUnsupported))
			Expect(state.Fault.Decoded).To(Equal("mul t1, t0, t0"))
			Expect(state.Registers.Read(t1)).To(BeZero())
		})

		It("reports undecodable words", func() {
			state := loadProgram([]uint32{asm.NOP, 0xffffffff})
			err := fast.NewCore(state).Run(ctx)
			Expect(err).To(MatchError(fast.ErrDecode))
			Expect(state.Fault.Kind).To(Equal(fast.FaultDecode))
			Expect(state.Step).To(Equal(uint64(1)))
		})
	})
})
