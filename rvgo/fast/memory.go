package fast

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/rv32emu/rv32emu/rvgo/riscv"
)

// Memory is a little-endian byte-addressable space of fixed capacity,
// starting at address 0. Accesses touching any byte at or above the capacity fail with ErrOutOfBounds.
type Memory struct {
	capacity uint64

	// pageIndex -> page, allocated on first write
	pages map[uint32]*Page

	// two caches: we often read instructions from one page, and do memory things with another page.
	// this prevents map lookups each instruction
	lastPageKeys [2]uint32
	lastPage     [2]*Page
}

// invalid page key, page indices never exceed MaxPageCount-1
const noPage = ^uint32(0)

// NewMemory creates an empty memory of the given capacity in bytes.
// The capacity must be in (0, 1<<32].
func NewMemory(capacity uint64) *Memory {
	if capacity == 0 || capacity > riscv.MaxMemorySize {
		panic(fmt.Errorf("invalid memory capacity %#x", capacity))
	}
	return &Memory{
		capacity:     capacity,
		pages:        make(map[uint32]*Page),
		lastPageKeys: [2]uint32{noPage, noPage}, // default to invalid keys, to not match any pages
	}
}

func (m *Memory) Capacity() uint64 {
	return m.capacity
}

func (m *Memory) PageCount() int {
	return len(m.pages)
}

// ForEachPage calls fn for every allocated page, in ascending page order.
func (m *Memory) ForEachPage(fn func(pageIndex uint32, page *Page) error) error {
	for _, pageIndex := range m.pageIndices() {
		if err := fn(pageIndex, m.pages[pageIndex]); err != nil {
			return err
		}
	}
	return nil
}

func (m *Memory) pageIndices() []uint32 {
	out := make([]uint32, 0, len(m.pages))
	for k := range m.pages {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (m *Memory) pageLookup(pageIndex uint32) (*Page, bool) {
	// hit caches
	if pageIndex == m.lastPageKeys[0] {
		return m.lastPage[0], true
	}
	if pageIndex == m.lastPageKeys[1] {
		return m.lastPage[1], true
	}
	p, ok := m.pages[pageIndex]

	// only cache existing pages.
	if ok {
		m.lastPageKeys[1] = m.lastPageKeys[0]
		m.lastPage[1] = m.lastPage[0]
		m.lastPageKeys[0] = pageIndex
		m.lastPage[0] = p
	}

	return p, ok
}

func (m *Memory) allocPage(pageIndex uint32) *Page {
	p := new(Page)
	m.pages[pageIndex] = p
	return p
}

func (m *Memory) checkRange(addr uint64, size uint64) error {
	if addr+size > m.capacity {
		return &MemoryError{Addr: uint32(addr), Size: uint32(size), Capacity: m.capacity}
	}
	return nil
}

// GetUnaligned reads len(dest) bytes starting at addr. Nothing is read if any byte is out of range.
func (m *Memory) GetUnaligned(addr uint32, dest []byte) error {
	if err := m.checkRange(uint64(addr), uint64(len(dest))); err != nil {
		return err
	}
	m.get(uint64(addr), dest)
	return nil
}

func (m *Memory) get(addr uint64, dest []byte) {
	for len(dest) > 0 {
		pageIndex := uint32(addr >> PageAddrSize)
		pageAddr := addr & PageAddrMask
		var d int
		if p, ok := m.pageLookup(pageIndex); ok {
			d = copy(dest, p[pageAddr:])
		} else {
			d = len(dest)
			if l := int(PageSize - pageAddr); l < d {
				d = l
			}
			clear(dest[:d])
		}
		dest = dest[d:]
		addr += uint64(d)
	}
}

// SetUnaligned writes dat starting at addr. Nothing is written if any byte is out of range.
func (m *Memory) SetUnaligned(addr uint32, dat []byte) error {
	if err := m.checkRange(uint64(addr), uint64(len(dat))); err != nil {
		return err
	}
	m.set(uint64(addr), dat)
	return nil
}

func (m *Memory) set(addr uint64, dat []byte) {
	for len(dat) > 0 {
		pageIndex := uint32(addr >> PageAddrSize)
		pageAddr := addr & PageAddrMask
		p, ok := m.pageLookup(pageIndex)
		if !ok {
			// allocate the page if we have not already.
			p = m.allocPage(pageIndex)
		}
		d := copy(p[pageAddr:], dat)
		dat = dat[d:]
		addr += uint64(d)
	}
}

// The load functions return the raw bytes zero-extended, sign extension is up to the caller.

func (m *Memory) LoadByte(addr uint32) (uint8, error) {
	var buf [1]byte
	if err := m.GetUnaligned(addr, buf[:]); err != nil {
		return 0, err
	}
	return buf[0], nil
}

func (m *Memory) LoadHalf(addr uint32) (uint16, error) {
	var buf [2]byte
	if err := m.GetUnaligned(addr, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(buf[:]), nil
}

func (m *Memory) LoadWord(addr uint32) (uint32, error) {
	var buf [4]byte
	if err := m.GetUnaligned(addr, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(buf[:]), nil
}

func (m *Memory) StoreByte(addr uint32, v uint8) error {
	return m.SetUnaligned(addr, []byte{v})
}

func (m *Memory) StoreHalf(addr uint32, v uint16) error {
	var buf [2]byte
	binary.LittleEndian.PutUint16(buf[:], v)
	return m.SetUnaligned(addr, buf[:])
}

func (m *Memory) StoreWord(addr uint32, v uint32) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	return m.SetUnaligned(addr, buf[:])
}

// SetMemoryRange copies everything r produces into memory, starting at addr.
func (m *Memory) SetMemoryRange(addr uint32, r io.Reader) error {
	var buf [PageSize]byte
	at := uint64(addr)
	for {
		n, err := r.Read(buf[:PageSize-(at&PageAddrMask)])
		if n > 0 {
			if err := m.checkRange(at, uint64(n)); err != nil {
				return err
			}
			m.set(at, buf[:n])
			at += uint64(n)
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
	}
}

type memReader struct {
	m     *Memory
	addr  uint64
	count uint64
}

func (r *memReader) Read(dest []byte) (n int, err error) {
	if r.count == 0 {
		return 0, io.EOF
	}
	if uint64(len(dest)) > r.count {
		dest = dest[:r.count]
	}
	if err := r.m.checkRange(r.addr, uint64(len(dest))); err != nil {
		return 0, err
	}
	r.m.get(r.addr, dest)
	r.addr += uint64(len(dest))
	r.count -= uint64(len(dest))
	return len(dest), nil
}

// ReadMemoryRange returns a reader over count bytes starting at addr.
// Reading past the capacity fails with ErrOutOfBounds.
func (m *Memory) ReadMemoryRange(addr uint32, count uint32) io.Reader {
	return &memReader{m: m, addr: uint64(addr), count: uint64(count)}
}

// Clone returns a deep copy of the memory.
func (m *Memory) Clone() *Memory {
	out := NewMemory(m.capacity)
	for k, p := range m.pages {
		cp := *p
		out.pages[k] = &cp
	}
	return out
}

type pageEntry struct {
	Index uint32 `json:"index"`
	Data  *Page  `json:"data"`
}

type memoryJSON struct {
	Capacity uint64      `json:"capacity"`
	Pages    []pageEntry `json:"pages"`
}

func (m *Memory) MarshalJSON() ([]byte, error) {
	pages := make([]pageEntry, 0, len(m.pages))
	for _, k := range m.pageIndices() {
		pages = append(pages, pageEntry{
			Index: k,
			Data:  m.pages[k],
		})
	}
	return json.Marshal(memoryJSON{Capacity: m.capacity, Pages: pages})
}

func (m *Memory) UnmarshalJSON(data []byte) error {
	var dat memoryJSON
	if err := json.Unmarshal(data, &dat); err != nil {
		return err
	}
	if dat.Capacity == 0 || dat.Capacity > riscv.MaxMemorySize {
		return fmt.Errorf("invalid memory capacity %#x", dat.Capacity)
	}
	*m = *NewMemory(dat.Capacity)
	for i, p := range dat.Pages {
		if _, ok := m.pages[p.Index]; ok {
			return fmt.Errorf("cannot load duplicate page, entry %d, page index %d", i, p.Index)
		}
		if uint64(p.Index)<<PageAddrSize >= m.capacity {
			return fmt.Errorf("page %d of entry %d lies outside of capacity %#x", p.Index, i, m.capacity)
		}
		if p.Data == nil {
			return fmt.Errorf("missing data of page entry %d", i)
		}
		m.pages[p.Index] = p.Data
	}
	return nil
}

// Serialize writes the memory in a simple binary format which can be read again using Deserialize
// The format is a simple concatenation of fields, with prefixed item count for repeating items and using big endian
// encoding for numbers.
//
// capacity          uint64
// len(PageCount)    uint64
// For each page (ascending page index):
//
//	page index          uint32
//	page Data           [PageSize]byte
func (m *Memory) Serialize(out io.Writer) error {
	if err := binary.Write(out, binary.BigEndian, m.capacity); err != nil {
		return err
	}
	if err := binary.Write(out, binary.BigEndian, uint64(m.PageCount())); err != nil {
		return err
	}
	return m.ForEachPage(func(pageIndex uint32, page *Page) error {
		if err := binary.Write(out, binary.BigEndian, pageIndex); err != nil {
			return err
		}
		_, err := out.Write(page[:])
		return err
	})
}

func (m *Memory) Deserialize(in io.Reader) error {
	var capacity uint64
	if err := binary.Read(in, binary.BigEndian, &capacity); err != nil {
		return err
	}
	if capacity == 0 || capacity > riscv.MaxMemorySize {
		return fmt.Errorf("invalid memory capacity %#x", capacity)
	}
	var pageCount uint64
	if err := binary.Read(in, binary.BigEndian, &pageCount); err != nil {
		return err
	}
	if pageCount > MaxPageCount {
		return fmt.Errorf("too many pages: %d", pageCount)
	}
	*m = *NewMemory(capacity)
	for i := uint64(0); i < pageCount; i++ {
		var pageIndex uint32
		if err := binary.Read(in, binary.BigEndian, &pageIndex); err != nil {
			return err
		}
		if _, ok := m.pages[pageIndex]; ok {
			return fmt.Errorf("cannot load duplicate page, entry %d, page index %d", i, pageIndex)
		}
		if uint64(pageIndex)<<PageAddrSize >= capacity {
			return fmt.Errorf("page %d lies outside of capacity %#x", pageIndex, capacity)
		}
		page := m.allocPage(pageIndex)
		if _, err := io.ReadFull(in, page[:]); err != nil {
			return err
		}
	}
	return nil
}

func (m *Memory) Usage() string {
	total := uint64(len(m.pages)) * PageSize
	const unit = 1024
	if total < unit {
		return fmt.Sprintf("%d B", total)
	}
	div, exp := uint64(unit), 0
	for n := total / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	// KiB, MiB, GiB, TiB, ...
	return fmt.Sprintf("%.1f %ciB", float64(total)/float64(div), "KMGTPE"[exp])
}
