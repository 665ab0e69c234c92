package fast

import (
	"encoding/binary"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// StateWitness is the compact encoding of a VM state, with the memory replaced by its digest.
type StateWitness []byte

const (
	stateSizeMemDigest  = 32
	stateSizePC         = 4
	stateSizeStep       = 8
	stateSizeStatus     = 1
	stateSizeHaltReason = 1
	stateSizeExitCode   = 4
	stateSizeRegisters  = 4 * 32

	StateWitnessSize = stateSizeMemDigest + stateSizePC + stateSizeStep + stateSizeStatus +
		stateSizeHaltReason + stateSizeExitCode + stateSizeRegisters
)

func (state *VMState) EncodeWitness() StateWitness {
	out := make([]byte, 0, StateWitnessSize)
	memDigest := state.Memory.Digest()
	out = append(out, memDigest[:]...)
	out = binary.BigEndian.AppendUint32(out, state.PC)
	out = binary.BigEndian.AppendUint64(out, state.Step)
	out = append(out, uint8(state.Status), uint8(state.HaltReason))
	out = binary.BigEndian.AppendUint32(out, state.ExitCode)
	for _, r := range state.Registers {
		out = binary.BigEndian.AppendUint32(out, r)
	}
	return out
}

// StateHash is the Keccak-256 hash of the witness. Two states with equal hashes have
// equal registers, PC, status and memory contents.
func (sw StateWitness) StateHash() (common.Hash, error) {
	if len(sw) != StateWitnessSize {
		return common.Hash{}, fmt.Errorf("invalid witness length: got %d, expected %d", len(sw), StateWitnessSize)
	}
	return crypto.Keccak256Hash(sw), nil
}

// Digest hashes the capacity and every page that holds a non-zero byte.
// Allocated all-zero pages hash the same as unallocated ones.
func (m *Memory) Digest() common.Hash {
	h := crypto.NewKeccakState()
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], m.capacity)
	h.Write(buf[:])
	_ = m.ForEachPage(func(pageIndex uint32, page *Page) error {
		if page.IsZero() {
			return nil
		}
		binary.BigEndian.PutUint32(buf[:4], pageIndex)
		h.Write(buf[:4])
		h.Write(page[:])
		return nil
	})
	var out common.Hash
	h.Read(out[:])
	return out
}
