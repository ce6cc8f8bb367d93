package stackgc

import "slices"

// Root is a registered global root: a reference the arena treats as live
// during CompactGlobal and the growth manager's salvage path,
// independent of any computation's local root list. The interpreter
// registers a Root for each long-lived binding and releases it when the
// binding is dropped; registration and release bracket the binding's
// lifetime.
//
// When a compaction moves the referent, the handle is rewritten in
// place, so Addr always returns the current address.
type Root struct {
	arena    *Arena
	addr     Addr
	released bool
}

// Register adds addr to the arena's global root set and returns its
// handle. Registration order is preserved; the global walk visits roots
// oldest first.
func (a *Arena) Register(addr Addr) (*Root, error) {
	if a.closed {
		return nil, ErrClosed
	}
	if addr == NilAddr {
		return nil, ErrNilRoot
	}
	r := &Root{arena: a, addr: addr}
	a.globals = append(a.globals, r)
	return r, nil
}

// Addr returns the referent's current address.
func (r *Root) Addr() Addr {
	return r.addr
}

// Release removes the root from its arena's global set. Releasing twice
// is a no-op. The referent stays valid until the next reclamation that
// no longer reaches it.
func (r *Root) Release() {
	if r.released || r.arena == nil || r.arena.closed {
		r.released = true
		return
	}
	if i := slices.Index(r.arena.globals, r); i >= 0 {
		r.arena.globals = slices.Delete(r.arena.globals, i, i+1)
	}
	r.released = true
}

// GlobalRoots returns the number of registered global roots.
func (a *Arena) GlobalRoots() int {
	return len(a.globals)
}
