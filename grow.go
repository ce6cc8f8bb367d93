package stackgc

import (
	"log/slog"

	"github.com/dustin/go-humanize"
)

// grow resizes the arena so that needWords more words fit above the
// frontier. Capacity grows geometrically; because records address each
// other by arena-relative offset, a resize preserves every address and
// no reference needs rewriting (the relocation machinery only runs on
// the salvage path below).
//
// When the configured cap or the shared budget blocks the resize, grow
// falls back to salvaging space: if no checkpoint is outstanding it
// compacts the arena down to the registered global roots and retries the
// fit. Only when that also fails does it report an *OverflowError, which
// is fatal to the enclosing computation.
func (a *Arena) grow(needWords int) error {
	needed := int(a.frontier) + needWords
	target := a.nextCapacity(len(a.words), needed)

	if target >= needed {
		// Prefer the geometric target, but settle for an exact fit
		// if the budget will not cover the headroom.
		if a.budget.Reserve(wordBytes(target - len(a.words))) {
			return a.resize(target)
		}
		if target != needed && a.budget.Reserve(wordBytes(needed-len(a.words))) {
			return a.resize(needed)
		}
	}

	if len(a.marks) == 0 && len(a.globals) > 0 {
		if err := a.CompactGlobal(); err != nil {
			return err
		}
		if int(a.frontier)+needWords <= len(a.words) {
			return nil
		}
		// Salvage lowered the frontier; a smaller resize may now fit.
		needed = int(a.frontier) + needWords
		target = a.nextCapacity(len(a.words), needed)
		if target >= needed && a.budget.Reserve(wordBytes(target-len(a.words))) {
			return a.resize(target)
		}
	}

	return &OverflowError{
		RequestedWords: needWords,
		CapacityWords:  len(a.words),
		MaxWords:       a.maxWords,
		BudgetLimit:    a.budget.Limit(),
	}
}

// nextCapacity applies the growth factor until needed fits, clamped to
// the configured cap and to the Addr range. The result may still be
// below needed when a clamp is too tight; the caller handles that.
func (a *Arena) nextCapacity(cur, needed int) int {
	target := cur
	for target < needed {
		next := int(float64(target) * a.growthFactor)
		if next <= target {
			next = target + 1
		}
		target = next
	}
	if a.maxWords > 0 && target > a.maxWords {
		target = a.maxWords
	}
	if target > maxArenaWords {
		target = maxArenaWords
	}
	return target
}

// resize swaps in a larger backing region. The used prefix is copied
// verbatim; offsets are stable, so the copy is the whole relocation.
// Nothing observes the arena mid-copy: the swap below is the only write
// to a.words.
func (a *Arena) resize(target int) error {
	grown := make([]Word, target)
	copy(grown, a.words[:a.frontier])
	oldCap := len(a.words)
	a.words = grown
	a.stats.growths++
	a.collector.RecordGrowth(oldCap, target)
	a.log.Debug("arena grown",
		slog.String("old", humanize.IBytes(uint64(wordBytes(oldCap)))),
		slog.String("new", humanize.IBytes(uint64(wordBytes(target)))),
		slog.Int("live_words", int(a.frontier)))
	return nil
}
