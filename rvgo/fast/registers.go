package fast

import "fmt"

// Registers is the integer register file. x0 is hard-wired to zero:
// it is never written, so reads of index 0 always observe 0.
type Registers [32]uint32

// Read returns the value of register x[i]. i must be below 32.
func (r *Registers) Read(i uint8) uint32 {
	if i == 0 {
		return 0
	}
	return r[i]
}

// Write sets register x[i], writes to x0 are discarded. i must be below 32.
func (r *Registers) Write(i uint8, v uint32) {
	if i == 0 {
		return
	}
	r[i] = v
}

var abiNames = [32]string{
	"zero", "ra", "sp", "gp", "tp", "t0", "t1", "t2",
	"s0", "s1", "a0", "a1", "a2", "a3", "a4", "a5",
	"a6", "a7", "s2", "s3", "s4", "s5", "s6", "s7",
	"s8", "s9", "s10", "s11", "t3", "t4", "t5", "t6",
}

// RegName returns the ABI name of register x[i].
func RegName(i uint8) string {
	if int(i) < len(abiNames) {
		return abiNames[i]
	}
	return fmt.Sprintf("x%d", i)
}
