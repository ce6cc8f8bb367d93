package stackgc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTruncateAllLive(t *testing.T) {
	a, tags := newTestArena(t)

	cp := a.Mark()
	coeff := newNum(t, a, tags, 5)
	term := newTerm(t, a, tags, 3, coeff)
	poly := newPoly(t, a, tags, 3, term)
	frontier := a.InUseWords()

	roots, err := a.Truncate(cp, []Addr{poly})
	require.NoError(t, err)
	assert.Equal(t, []Addr{poly}, roots, "addresses unchanged")
	assert.Equal(t, frontier, a.InUseWords(), "no bytes move")
	assert.Equal(t, Word(5), a.Word(coeff, 0))
}

func TestTruncateDetectsGap(t *testing.T) {
	a, tags := newTestArena(t)

	cp := a.Mark()
	x := newNum(t, a, tags, 1)
	dead := newNum(t, a, tags, 2, 3) // discarded along the way
	y := newNum(t, a, tags, 4)

	_, err := a.Truncate(cp, []Addr{x, y})
	var violation *ContiguityError
	require.ErrorAs(t, err, &violation)
	assert.Equal(t, dead, violation.GapStart)
	assert.Equal(t, y, violation.GapEnd)
	assert.Equal(t, 4, violation.LiveWords)
	assert.Equal(t, 2, violation.Roots)
	assert.False(t, violation.Overlap)
}

func TestTruncateDetectsTrailingDead(t *testing.T) {
	a, tags := newTestArena(t)

	cp := a.Mark()
	keep := newNum(t, a, tags, 1)
	newNum(t, a, tags, 2) // dead above the root

	_, err := a.Truncate(cp, []Addr{keep})
	var violation *ContiguityError
	require.ErrorAs(t, err, &violation)
	assert.Equal(t, Addr(3), violation.GapStart)
	assert.Equal(t, a.frontier, violation.GapEnd)
}

func TestTruncateRootsBelowCheckpoint(t *testing.T) {
	a, tags := newTestArena(t)

	old := newNum(t, a, tags, 9)
	cp := a.Mark()

	// Nothing allocated since the checkpoint: the old root is kept in
	// place and there is nothing to verify.
	roots, err := a.Truncate(cp, []Addr{old})
	require.NoError(t, err)
	assert.Equal(t, old, roots[0])

	// Records since the checkpoint must still tile the region even when
	// an old root is also declared.
	young := newNum(t, a, tags, 10)
	_, err = a.Truncate(cp, []Addr{old, young})
	require.NoError(t, err)
}

func TestTruncateUnchecked(t *testing.T) {
	a, tags := newTestArena(t, WithContiguityCheck(false))

	cp := a.Mark()
	keep := newNum(t, a, tags, 1)
	newNum(t, a, tags, 2) // dead, but the check is off

	_, err := a.Truncate(cp, []Addr{keep})
	require.NoError(t, err, "unchecked fast path accepts any layout")
}

func TestTruncateRequiresTopCheckpoint(t *testing.T) {
	a, tags := newTestArena(t)

	c1 := a.Mark()
	x := newNum(t, a, tags, 1)
	a.Mark()

	_, err := a.Truncate(c1, []Addr{x})
	var orderErr *CheckpointOrderError
	require.ErrorAs(t, err, &orderErr)
	assert.Equal(t, "Truncate", orderErr.Op)
}

func TestCopyCompactTransparency(t *testing.T) {
	a, tags := newTestArena(t)

	cp := a.Mark()
	var terms []Addr
	for i := 0; i < 8; i++ {
		newNum(t, a, tags, Word(1000+i)) // garbage interleaved with live data
		coeff := newNum(t, a, tags, Word(i), Word(i*i))
		newNum(t, a, tags, Word(2000+i)) // more garbage
		terms = append(terms, newTerm(t, a, tags, Word(i), coeff))
	}
	poly := newPoly(t, a, tags, 7, terms...)
	before := capture(a, poly)

	roots, err := a.CopyCompact(cp, []Addr{poly})
	require.NoError(t, err)
	requireShape(t, a, roots[0], before)
}

func TestCopyCompactPreservesSharing(t *testing.T) {
	a, tags := newTestArena(t)

	cp := a.Mark()
	shared := newNum(t, a, tags, 77)
	left := newTerm(t, a, tags, 1, shared)
	right := newTerm(t, a, tags, 2, shared)

	roots, err := a.CopyCompact(cp, []Addr{left, right})
	require.NoError(t, err)
	assert.Equal(t, a.Ref(roots[0], 0), a.Ref(roots[1], 0),
		"common sub-record relocated once, not duplicated")

	// Live size counts the shared record a single time: two terms of 3
	// words each plus one 2-word number.
	assert.Equal(t, int(cp.frontier)+8, a.InUseWords())
}

func TestCopyCompactReclaims(t *testing.T) {
	a, tags := newTestArena(t)

	cp := a.Mark()
	for i := 0; i < 100; i++ {
		newNum(t, a, tags, Word(i))
	}
	keep := newNum(t, a, tags, 42)

	roots, err := a.CopyCompact(cp, []Addr{keep})
	require.NoError(t, err)
	assert.Equal(t, int(cp.frontier)+2, a.InUseWords(), "frontier drops to checkpoint plus live size")
	assert.Equal(t, cp.frontier, roots[0], "survivor copied down to the checkpoint")
	assert.Equal(t, Word(42), a.Word(roots[0], 0))
}

func TestCopyCompactKeepsOldRecordsInPlace(t *testing.T) {
	a, tags := newTestArena(t)

	old := newNum(t, a, tags, 1)
	cp := a.Mark()
	young := newTerm(t, a, tags, 0, old)

	roots, err := a.CopyCompact(cp, []Addr{old, young})
	require.NoError(t, err)
	assert.Equal(t, old, roots[0], "records below the checkpoint do not move")
	assert.Equal(t, old, a.Ref(roots[1], 0), "references below the checkpoint are not rewritten")
}

func TestCopyCompactLoop(t *testing.T) {
	a, tags := newTestArena(t, WithInitialWords(256))

	cp := a.Mark()
	acc := newNum(t, a, tags, 1)
	for i := 1; i <= 50; i++ {
		// Grow the accumulator, leaving the previous one and the
		// scratch term dead.
		newTerm(t, a, tags, Word(i), acc)
		next := newNum(t, a, tags, a.Word(acc, 0)*Word(i))

		roots, err := a.CopyCompact(cp, []Addr{next})
		require.NoError(t, err)
		acc = roots[0]
		require.Equal(t, int(cp.frontier)+2, a.InUseWords())
	}
	require.NoError(t, a.Commit(cp))

	// 50! truncated to 64 bits, computed independently.
	want := Word(1)
	for i := 1; i <= 50; i++ {
		want *= Word(i)
	}
	assert.Equal(t, want, a.Word(acc, 0))
}

func TestCompactGlobal(t *testing.T) {
	a, tags := newTestArena(t)

	coeff := newNum(t, a, tags, 5)
	kept := newTerm(t, a, tags, 2, coeff)
	root, err := a.Register(kept)
	require.NoError(t, err)
	before := capture(a, kept)

	for i := 0; i < 64; i++ {
		newNum(t, a, tags, Word(i)) // interpreter garbage
	}

	require.NoError(t, a.CompactGlobal())
	assert.Equal(t, 1+3+2, a.InUseWords(), "only the rooted graph survives")
	requireShape(t, a, root.Addr(), before)
}

func TestCompactGlobalRequiresNoMarks(t *testing.T) {
	a, tags := newTestArena(t)

	kept := newNum(t, a, tags, 1)
	_, err := a.Register(kept)
	require.NoError(t, err)

	cp := a.Mark()
	assert.ErrorIs(t, a.CompactGlobal(), ErrOutstandingMarks)
	require.NoError(t, a.Restore(cp))
	assert.NoError(t, a.CompactGlobal())
}

func TestCompactGlobalSharedAcrossRoots(t *testing.T) {
	a, tags := newTestArena(t)

	shared := newNum(t, a, tags, 3)
	r1, err := a.Register(newTerm(t, a, tags, 1, shared))
	require.NoError(t, err)
	r2, err := a.Register(newTerm(t, a, tags, 2, shared))
	require.NoError(t, err)

	require.NoError(t, a.CompactGlobal())
	assert.Equal(t, a.Ref(r1.Addr(), 0), a.Ref(r2.Addr(), 0))
}
