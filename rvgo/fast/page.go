package fast

import (
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Note: 2**12 = 4 KiB pages. Pages are allocated on first write,
// unallocated pages read as zero.
const (
	PageAddrSize = 12
	PageKeySize  = 32 - PageAddrSize
	PageSize     = 1 << PageAddrSize
	PageAddrMask = PageSize - 1
	MaxPageCount = 1 << PageKeySize
)

type Page [PageSize]byte

func (p *Page) MarshalJSON() ([]byte, error) {
	return json.Marshal(hexutil.Bytes(p[:]))
}

func (p *Page) UnmarshalJSON(dat []byte) error {
	var b hexutil.Bytes
	if err := json.Unmarshal(dat, &b); err != nil {
		return err
	}
	if len(b) != PageSize {
		return fmt.Errorf("invalid page size %d, expected %d", len(b), PageSize)
	}
	copy(p[:], b)
	return nil
}

// IsZero reports whether every byte of the page is zero.
func (p *Page) IsZero() bool {
	for _, b := range p {
		if b != 0 {
			return false
		}
	}
	return true
}
