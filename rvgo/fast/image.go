package fast

import (
	"fmt"
	"io"
)

// LoadImage creates a running state from a flat binary image, copied to memory at base.
// The PC starts at entry.
func LoadImage(r io.Reader, base uint32, entry uint32, capacity uint64) (*VMState, error) {
	if uint64(entry) >= capacity {
		return nil, fmt.Errorf("entry point %#x lies outside of memory capacity %#x", entry, capacity)
	}
	state := NewVMState(capacity, entry)
	if err := state.Memory.SetMemoryRange(base, r); err != nil {
		return nil, fmt.Errorf("failed to load image at %#x: %w", base, err)
	}
	return state, nil
}
