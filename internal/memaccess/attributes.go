package memaccess

import "strings"

// Attributes is the page protection attribute bitmask reported by the
// page table contract.
type Attributes uint64

const (
	// AttrReadProtect marks a page the debugger must not touch at all.
	AttrReadProtect Attributes = 1 << iota
	// AttrReadOnly marks a page writes are not permitted to. This is the
	// bit cleared during write elevation.
	AttrReadOnly
	// AttrExecuteProtect marks a non-executable page. Tracked so remaps
	// round-trip it, never interpreted by this layer.
	AttrExecuteProtect
)

// Has reports whether all bits in mask are set.
func (a Attributes) Has(mask Attributes) bool {
	return a&mask == mask
}

// String returns a compact attribute list for diagnostics.
func (a Attributes) String() string {
	if a == 0 {
		return "none"
	}
	var parts []string
	if a.Has(AttrReadProtect) {
		parts = append(parts, "read-protect")
	}
	if a.Has(AttrReadOnly) {
		parts = append(parts, "read-only")
	}
	if a.Has(AttrExecuteProtect) {
		parts = append(parts, "execute-protect")
	}
	return strings.Join(parts, "|")
}

// PageSize is the protection granularity assumed by this layer.
const PageSize uint64 = 0x1000

// PageMask isolates the page base of an address.
const PageMask = ^(PageSize - 1)

// PageTable is the page table contract consumed by the memory layer. The
// concrete implementation lives with the platform; only querying and
// remapping of a region's protection attributes are needed here.
type PageTable interface {
	// QueryRegion returns the attributes of the given region. An error
	// means the region is not mapped or spans inconsistent mappings.
	QueryRegion(addr, size uint64) (Attributes, error)
	// RemapRegion changes the attributes of the given region.
	RemapRegion(addr, size uint64, attrs Attributes) error
}

// Memory is raw access to the target's address space.
type Memory interface {
	// ReadAt fills buf from memory starting at addr.
	ReadAt(buf []byte, addr uint64) error
	// WriteAt copies data to memory starting at addr.
	WriteAt(data []byte, addr uint64) error
}

// Provider supplies the active page table and raw memory. The architecture
// abstraction implements this.
type Provider interface {
	// PageTable returns the currently active page table. Failure means
	// the platform cannot provide protection introspection right now.
	PageTable() (PageTable, error)
	// Memory returns the raw memory accessor.
	Memory() Memory
	// PokeTest probes a single address for accessibility. It catches
	// bogus ranges that are still mapped, which is common on the initial
	// breakpoint under inherited page tables.
	PokeTest(addr uint64) error
}
