package stackgc

import (
	"log/slog"
	"slices"
)

// Truncate is the O(1)-reclamation fast path: it declares that the
// records reachable from roots are exactly the contiguous block
// [cp, frontier), so nothing since cp is dead and every address stays
// valid. No bytes move and the roots are returned unchanged.
//
// The precondition is a caller obligation: it holds only when the
// computation consumed every temporary before (or while) building its
// result, leaving no discarded record between cp and the frontier.
// Unless the check was disabled with WithContiguityCheck(false), Truncate
// walks the roots and fails with a *ContiguityError when the live set
// does not tile [cp, frontier). The historical failure mode of this
// operation was silent corruption, detected only much later by wrong
// results. cp must be the most recent outstanding checkpoint; it remains
// outstanding afterwards so loops can keep reclaiming against it.
func (a *Arena) Truncate(cp Checkpoint, roots []Addr) ([]Addr, error) {
	if a.closed {
		return nil, ErrClosed
	}
	if err := a.requireTop("Truncate", cp); err != nil {
		return nil, err
	}
	if a.checkContiguity {
		if err := a.verifyContiguous(cp, roots); err != nil {
			return nil, err
		}
	}
	a.stats.truncations++
	a.collector.RecordCompaction(false, int(a.frontier-cp.frontier), 0)
	return roots, nil
}

// CopyCompact reclaims everything allocated since cp except the records
// reachable from roots. Live records are copied down to cp in walk
// order, every embedded reference is rewritten through a relocation map,
// and the rewritten roots are returned. Sharing survives: a record
// reachable from two roots is copied once. Correct for any layout; cost
// is proportional to the live size, not to the amount of garbage.
//
// Records allocated before cp are kept in place and are not walked; a
// record older than cp must not reference one younger (declaring such a
// younger record only via an old record's reference slot is a root
// omission, the same caller error as omitting it from roots).
//
// cp must be the most recent outstanding checkpoint and remains
// outstanding, so a loop can repeatedly compact its accumulator against
// the same checkpoint.
func (a *Arena) CopyCompact(cp Checkpoint, roots []Addr) ([]Addr, error) {
	if a.closed {
		return nil, ErrClosed
	}
	if err := a.requireTop("CopyCompact", cp); err != nil {
		return nil, err
	}
	oldFrontier := a.frontier
	newRoots, live := a.relocate(cp.frontier, roots)
	reclaimed := int(oldFrontier-cp.frontier) - live
	a.stats.compactions++
	a.stats.wordsCopied += uint64(live)
	a.collector.RecordCompaction(true, live, reclaimed)
	a.log.Debug("copy compaction",
		slog.Int("live_words", live),
		slog.Int("reclaimed_words", reclaimed))
	return newRoots, nil
}

// CompactGlobal compacts the whole arena down to its base, keeping only
// the records reachable from the registered global roots and rewriting
// each Root handle in place. It is the interpreter-level collection used
// between computations and by the growth manager's salvage path, and is
// only legal when no checkpoint is outstanding (a live checkpoint means
// some computation still owns unrooted records).
func (a *Arena) CompactGlobal() error {
	if a.closed {
		return ErrClosed
	}
	if len(a.marks) != 0 {
		return ErrOutstandingMarks
	}
	roots := make([]Addr, len(a.globals))
	for i, r := range a.globals {
		roots[i] = r.addr
	}
	oldFrontier := a.frontier
	newRoots, live := a.relocate(1, roots)
	for i, r := range a.globals {
		r.addr = newRoots[i]
	}
	a.stats.compactions++
	a.stats.wordsCopied += uint64(live)
	a.collector.RecordCompaction(true, live, int(oldFrontier)-1-live)
	return nil
}

// relocate copies every record reachable from roots that sits at or
// above cut into a scratch region, rewrites references through a
// relocation map, splices the scratch back at cut and resets the
// frontier past it. Records below cut are kept in place. Returns the
// rewritten roots and the live word count. The relocation map lives only
// for the duration of this one walk.
func (a *Arena) relocate(cut Addr, roots []Addr) ([]Addr, int) {
	reloc := make(map[Addr]Addr)
	scratch := make([]Word, 0, int(a.frontier)-int(cut))
	newRoots := make([]Addr, len(roots))
	for i, root := range roots {
		newRoots[i] = a.copyLive(&scratch, reloc, cut, root)
	}
	copy(a.words[cut:], scratch)
	a.frontier = cut + Addr(len(scratch))
	return newRoots, len(scratch)
}

// copyLive copies one record (and, recursively, everything it
// references) into scratch, returning its relocated address. The
// relocation map entry is recorded before the children are walked; the
// record graph is acyclic, so the recursion terminates, and a shared
// child found in the map is rewritten without being copied again.
func (a *Arena) copyLive(scratch *[]Word, reloc map[Addr]Addr, cut, old Addr) Addr {
	if old == NilAddr || old < cut {
		return old
	}
	if moved, ok := reloc[old]; ok {
		return moved
	}
	size := a.SizeOf(old)
	moved := cut + Addr(len(*scratch))
	reloc[old] = moved
	base := len(*scratch)
	*scratch = append(*scratch, a.words[old:int(old)+size]...)
	first, count := a.refSpan(old)
	for i := 0; i < count; i++ {
		slot := base + (first - int(old)) + i
		child := Addr((*scratch)[slot])
		(*scratch)[slot] = Word(a.copyLive(scratch, reloc, cut, child))
	}
	return moved
}

type extent struct {
	start Addr
	size  int
}

// verifyContiguous checks Truncate's precondition: the records reachable
// from roots at or above cp must cover [cp, frontier) exactly, with no
// dead gap and no trailing garbage. Cost is O(live), never O(region).
func (a *Arena) verifyContiguous(cp Checkpoint, roots []Addr) error {
	seen := make(map[Addr]struct{})
	var extents []extent
	live := 0
	var walk func(addr Addr)
	walk = func(addr Addr) {
		if addr == NilAddr || addr < cp.frontier {
			return
		}
		if _, ok := seen[addr]; ok {
			return
		}
		seen[addr] = struct{}{}
		size := a.SizeOf(addr)
		extents = append(extents, extent{start: addr, size: size})
		live += size
		first, count := a.refSpan(addr)
		for i := 0; i < count; i++ {
			walk(Addr(a.words[first+i]))
		}
	}
	for _, root := range roots {
		walk(root)
	}

	slices.SortFunc(extents, func(x, y extent) int {
		return int(x.start) - int(y.start)
	})
	cursor := cp.frontier
	for _, e := range extents {
		if e.start != cursor {
			return &ContiguityError{
				Mark:      cp,
				Frontier:  a.frontier,
				LiveWords: live,
				Roots:     len(roots),
				GapStart:  min(cursor, e.start),
				GapEnd:    max(cursor, e.start),
				Overlap:   e.start < cursor,
			}
		}
		cursor += Addr(e.size)
	}
	if cursor != a.frontier {
		return &ContiguityError{
			Mark:      cp,
			Frontier:  a.frontier,
			LiveWords: live,
			Roots:     len(roots),
			GapStart:  cursor,
			GapEnd:    a.frontier,
		}
	}
	return nil
}
