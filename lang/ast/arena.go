package ast

import "unsafe"

// slabSize is the size of each backing allocation an Arena grows by. It
// plays the role of the original tokenizer/parser's 64-byte block pool
// (Design Note "block pool for small node payloads"): ported here as a bump
// arena that amortizes many small string allocations (command names,
// argument text) across a handful of larger backing arrays instead of one
// allocation per string.
const slabSize = 4096

// Arena is a bump allocator for the strings backing a single parse. The
// caller is expected to drop all references to the Arena (and everything it
// produced) once compilation of that parse is complete; there is no
// incremental free.
type Arena struct {
	slab []byte
}

// Intern copies b into the arena and returns a string view over the copy.
// The returned string remains valid for the lifetime of the Arena.
func (a *Arena) Intern(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	if cap(a.slab)-len(a.slab) < len(b) {
		size := slabSize
		if len(b) > size {
			size = len(b)
		}
		a.slab = make([]byte, 0, size)
	}
	start := len(a.slab)
	a.slab = append(a.slab, b...)
	// Safe: a.slab is only ever grown by append at its current length, so
	// bytes [start:start+len(b)] are never subsequently overwritten, even if
	// a later append reallocates the backing array for bytes beyond it.
	return unsafe.String(&a.slab[start], len(b))
}
