// Package memaccess implements the debugger's safety-checked memory
// access layer.
//
// Every read validates the touched pages against the active page table
// before any byte is copied: a range containing even one read-protected
// page fails whole, leaving the caller's buffer untouched. Partial
// transfers are not supported.
//
// Writes additionally handle read-only pages. The target range is
// validated first, then written page by page in ascending address order;
// each read-only page is temporarily remapped writable for just its own
// copy and restored immediately after. Page-granular elevation bounds the
// window during which any single page is over-permissioned and avoids
// assuming the range has uniform attributes.
//
// A failure to restore a page's protection is fatal: the process panics
// rather than continue with the firmware's memory protection state in
// doubt.
//
// The page table and raw memory come from a Provider, normally the active
// architecture implementation. Two attribute bits matter here and are
// deliberately independent: AttrReadProtect gates whether the debugger may
// touch a page at all, AttrReadOnly gates writes and is the bit toggled
// during elevation.
package memaccess
