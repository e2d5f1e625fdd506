package memaccess

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/muurk/fwdbg/internal/logging"
)

// Read fills buf from target memory at addr. Unless unsafeRead is set,
// every page covering the range is validated first and a read-protected or
// unmapped page fails the whole read before any byte is copied. On success
// the full buffer length was read; this layer does not do partial
// transfers.
//
// unsafeRead is the operator-requested "disablechecks" mode: validation is
// skipped entirely and a bad address will fault the machine.
func Read(p Provider, addr uint64, buf []byte, unsafeRead bool) (int, error) {
	if len(buf) == 0 {
		return 0, nil
	}

	if !unsafeRead {
		pt, err := p.PageTable()
		if err != nil {
			return 0, &PageTableError{Op: "acquire", Err: err}
		}
		if err := checkRangeAccess(p, pt, addr, len(buf)); err != nil {
			return 0, err
		}
	}

	if err := p.Memory().ReadAt(buf, addr); err != nil {
		return 0, fmt.Errorf("memory read at %#x (len %#x): %w", addr, len(buf), err)
	}
	return len(buf), nil
}

// Write copies data to target memory at addr. The whole range is validated
// for accessibility first; nothing is written to a range that fails
// validation. Read-only pages are temporarily remapped writable for their
// own slice of the copy and restored immediately after, in ascending
// address order. A failed restore panics: continuing with firmware memory
// left writable is worse than halting.
func Write(p Provider, addr uint64, data []byte) error {
	if len(data) == 0 {
		return nil
	}

	pt, err := p.PageTable()
	if err != nil {
		return &PageTableError{Op: "acquire", Err: err}
	}
	if err := checkRangeAccess(p, pt, addr, len(data)); err != nil {
		return err
	}

	// Walk by chunk lengths rather than an exclusive end address, which
	// would wrap when the range abuts the top of the address space.
	offset := 0
	for offset < len(data) {
		current := addr + uint64(offset)
		page := current & PageMask
		n := int(PageSize - (current - page))
		if n > len(data)-offset {
			n = len(data) - offset
		}
		chunk := data[offset : offset+n]

		attrs, err := pt.QueryRegion(page, PageSize)
		if err != nil {
			// The range was validated above; a query failing now means
			// the page table changed underneath the debugger.
			return &PageTableError{Op: "query", Addr: page, Err: err}
		}

		readOnly := attrs.Has(AttrReadOnly)
		if readOnly {
			if err := pt.RemapRegion(page, PageSize, attrs&^AttrReadOnly); err != nil {
				return &PageTableError{Op: "remap", Addr: page, Err: err}
			}
			logging.Debug("Elevated page for write",
				zap.Uint64("page", page),
				zap.String("attrs", attrs.String()),
			)
		}

		werr := p.Memory().WriteAt(chunk, current)

		if readOnly {
			if err := pt.RemapRegion(page, PageSize, attrs); err != nil {
				// Protection-state integrity outranks availability.
				panic(fmt.Sprintf("failed to restore page attributes at %#x: %v", page, err))
			}
		}

		if werr != nil {
			return fmt.Errorf("memory write at %#x (len %#x): %w", current, len(chunk), werr)
		}

		offset += n
	}

	return nil
}

// checkRangeAccess validates that every page covering [addr, addr+length)
// is mapped and not read-protected, then probes the first address.
func checkRangeAccess(p Provider, pt PageTable, addr uint64, length int) error {
	if err := checkPagingRange(pt, addr, length); err != nil {
		return err
	}

	// Poke it with a stick. Catches bogus ranges that are still mapped.
	if err := p.PokeTest(addr); err != nil {
		return &AccessError{Addr: addr, Len: length, Page: addr & PageMask, Err: err}
	}
	return nil
}

// checkPagingRange walks the pages covering the range in ascending order.
// The walk stops at addr+length-1 to avoid overflow when the range abuts
// the top of the address space.
func checkPagingRange(pt PageTable, addr uint64, length int) error {
	last := addr + uint64(length) - 1
	page := addr & PageMask
	for page <= last {
		attrs, err := pt.QueryRegion(page, PageSize)
		if err != nil {
			return &AccessError{Addr: addr, Len: length, Page: page, Err: err}
		}
		if attrs.Has(AttrReadProtect) {
			return &AccessError{Addr: addr, Len: length, Page: page, Attrs: attrs}
		}

		next := page + PageSize
		if next < page {
			break
		}
		page = next
	}
	return nil
}
