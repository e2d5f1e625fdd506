package sim

import (
	"fmt"
	"sync"

	"github.com/muurk/fwdbg/internal/memaccess"
)

// PageTable is a map-backed page table for the simulated machine. Pages
// are mapped explicitly; querying an unmapped page fails like a missing
// translation would on hardware.
type PageTable struct {
	mu    sync.Mutex
	pages map[uint64]memaccess.Attributes
}

// NewPageTable creates an empty page table.
func NewPageTable() *PageTable {
	return &PageTable{pages: make(map[uint64]memaccess.Attributes)}
}

// Map maps the pages covering [addr, addr+size) with the given
// attributes.
func (pt *PageTable) Map(addr, size uint64, attrs memaccess.Attributes) {
	pt.mu.Lock()
	defer pt.mu.Unlock()
	for page := addr & memaccess.PageMask; page < addr+size; page += memaccess.PageSize {
		pt.pages[page] = attrs
	}
}

// Unmap removes the pages covering [addr, addr+size).
func (pt *PageTable) Unmap(addr, size uint64) {
	pt.mu.Lock()
	defer pt.mu.Unlock()
	for page := addr & memaccess.PageMask; page < addr+size; page += memaccess.PageSize {
		delete(pt.pages, page)
	}
}

// QueryRegion implements memaccess.PageTable. All pages in the region
// must be mapped with identical attributes.
func (pt *PageTable) QueryRegion(addr, size uint64) (memaccess.Attributes, error) {
	pt.mu.Lock()
	defer pt.mu.Unlock()

	if size == 0 {
		return 0, fmt.Errorf("zero-length region at %#x", addr)
	}

	var attrs memaccess.Attributes
	first := true
	for page := addr & memaccess.PageMask; page < addr+size; page += memaccess.PageSize {
		pageAttrs, ok := pt.pages[page]
		if !ok {
			return 0, fmt.Errorf("page %#x not mapped", page)
		}
		if first {
			attrs = pageAttrs
			first = false
		} else if pageAttrs != attrs {
			return 0, fmt.Errorf("inconsistent attributes across region %#x+%#x", addr, size)
		}
	}
	return attrs, nil
}

// RemapRegion implements memaccess.PageTable.
func (pt *PageTable) RemapRegion(addr, size uint64, attrs memaccess.Attributes) error {
	pt.mu.Lock()
	defer pt.mu.Unlock()

	for page := addr & memaccess.PageMask; page < addr+size; page += memaccess.PageSize {
		if _, ok := pt.pages[page]; !ok {
			return fmt.Errorf("cannot remap unmapped page %#x", page)
		}
	}
	for page := addr & memaccess.PageMask; page < addr+size; page += memaccess.PageSize {
		pt.pages[page] = attrs
	}
	return nil
}
