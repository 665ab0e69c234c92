package fast

import "fmt"

type AccessKind uint8

const (
	AccessLoad AccessKind = iota
	AccessStore
)

func (k AccessKind) String() string {
	if k == AccessStore {
		return "store"
	}
	return "load"
}

// MemAccess is one data access performed by an instruction. Values are the raw, unextended bytes.
type MemAccess struct {
	Kind  AccessKind
	Addr  uint32
	Size  uint8
	Value uint32
}

func (a MemAccess) String() string {
	return fmt.Sprintf("%s%d [%08x] = %#x", a.Kind, a.Size*8, a.Addr, a.Value)
}

// StepTrace describes a single executed (or faulted) instruction.
type StepTrace struct {
	Step     uint64
	PC       uint32
	Instr    uint32
	Inst     Instruction
	NextPC   uint32
	Accesses []MemAccess
}

// trackingBus remembers every successful data access made through it.
type trackingBus struct {
	mem   *Memory
	trace *StepTrace
}

var _ MemoryBus = (*trackingBus)(nil)

func (b *trackingBus) track(kind AccessKind, addr uint32, size uint8, v uint32) {
	b.trace.Accesses = append(b.trace.Accesses, MemAccess{Kind: kind, Addr: addr, Size: size, Value: v})
}

func (b *trackingBus) LoadByte(addr uint32) (uint8, error) {
	v, err := b.mem.LoadByte(addr)
	if err == nil {
		b.track(AccessLoad, addr, 1, uint32(v))
	}
	return v, err
}

func (b *trackingBus) LoadHalf(addr uint32) (uint16, error) {
	v, err := b.mem.LoadHalf(addr)
	if err == nil {
		b.track(AccessLoad, addr, 2, uint32(v))
	}
	return v, err
}

func (b *trackingBus) LoadWord(addr uint32) (uint32, error) {
	v, err := b.mem.LoadWord(addr)
	if err == nil {
		b.track(AccessLoad, addr, 4, v)
	}
	return v, err
}

func (b *trackingBus) StoreByte(addr uint32, v uint8) error {
	err := b.mem.StoreByte(addr, v)
	if err == nil {
		b.track(AccessStore, addr, 1, uint32(v))
	}
	return err
}

func (b *trackingBus) StoreHalf(addr uint32, v uint16) error {
	err := b.mem.StoreHalf(addr, v)
	if err == nil {
		b.track(AccessStore, addr, 2, uint32(v))
	}
	return err
}

func (b *trackingBus) StoreWord(addr uint32, v uint32) error {
	err := b.mem.StoreWord(addr, v)
	if err == nil {
		b.track(AccessStore, addr, 4, v)
	}
	return err
}
