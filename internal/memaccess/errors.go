package memaccess

import "fmt"

// AccessError reports a memory range the debugger refused to touch.
type AccessError struct {
	// Addr is the start of the requested range.
	Addr uint64
	// Len is the requested length in bytes.
	Len int
	// Page is the page that failed validation.
	Page uint64
	// Attrs are the page's attributes, if the query succeeded.
	Attrs Attributes
	// Underlying error from the page table query, if any.
	Err error
}

func (e *AccessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("memory access denied at %#x (len %#x): page %#x not mapped: %v",
			e.Addr, e.Len, e.Page, e.Err)
	}
	return fmt.Sprintf("memory access denied at %#x (len %#x): page %#x is %s",
		e.Addr, e.Len, e.Page, e.Attrs)
}

func (e *AccessError) Unwrap() error {
	return e.Err
}

// PageTableError reports a page table operation failure.
type PageTableError struct {
	// Op is the operation that failed ("query", "remap", "acquire").
	Op string
	// Addr is the page address involved, zero for acquire failures.
	Addr uint64
	// Underlying error.
	Err error
}

func (e *PageTableError) Error() string {
	if e.Addr != 0 {
		return fmt.Sprintf("page table %s failed at %#x: %v", e.Op, e.Addr, e.Err)
	}
	return fmt.Sprintf("page table %s failed: %v", e.Op, e.Err)
}

func (e *PageTableError) Unwrap() error {
	return e.Err
}
