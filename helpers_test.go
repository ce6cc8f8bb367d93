package stackgc

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// Test record kinds modeled on a multiprecision kernel: numbers are
// leaves holding limb words, terms pair an exponent with a coefficient
// reference, and polynomials hold a degree word plus term references.
type testTags struct {
	set  *TagSet
	num  Tag
	term Tag
	poly Tag
}

func newTestTags() testTags {
	ts := NewTagSet()
	return testTags{
		set:  ts,
		num:  ts.Register("number", 0, false),
		term: ts.Register("term", 1, true),
		poly: ts.Register("poly", 1, true),
	}
}

func newTestArena(t *testing.T, opts ...Option) (*Arena, testTags) {
	t.Helper()
	tags := newTestTags()
	a, err := New(append([]Option{WithTags(tags.set)}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(a.Close)
	return a, tags
}

func mustAlloc(t *testing.T, a *Arena, tag Tag, payload int) Addr {
	t.Helper()
	addr, err := a.Allocate(tag, payload)
	require.NoError(t, err)
	return addr
}

// newNum allocates a leaf number with the given limbs.
func newNum(t *testing.T, a *Arena, tags testTags, limbs ...Word) Addr {
	t.Helper()
	addr := mustAlloc(t, a, tags.num, len(limbs))
	for i, w := range limbs {
		a.SetWord(addr, i, w)
	}
	return addr
}

// newTerm allocates a term with one exponent word and one coefficient
// reference.
func newTerm(t *testing.T, a *Arena, tags testTags, exp Word, coeff Addr) Addr {
	t.Helper()
	addr := mustAlloc(t, a, tags.term, 2)
	a.SetWord(addr, 0, exp)
	a.SetRef(addr, 0, coeff)
	return addr
}

// newPoly allocates a polynomial with a degree word and the given term
// references.
func newPoly(t *testing.T, a *Arena, tags testTags, degree Word, terms ...Addr) Addr {
	t.Helper()
	addr := mustAlloc(t, a, tags.poly, 1+len(terms))
	a.SetWord(addr, 0, degree)
	for i, term := range terms {
		a.SetRef(addr, i, term)
	}
	return addr
}

// snap is an arena-independent copy of a record graph, used to compare
// structures across compactions and growths.
type snap struct {
	tag  Tag
	data []Word
	refs []*snap
}

func capture(a *Arena, addr Addr) *snap {
	if addr == NilAddr {
		return nil
	}
	s := &snap{tag: a.TagOf(addr)}
	d := a.descOf(addr)
	data := d.dataWords
	if !d.hasRefs {
		data = a.PayloadLen(addr)
	}
	for i := 0; i < data; i++ {
		s.data = append(s.data, a.Word(addr, i))
	}
	for i := 0; i < a.RefCount(addr); i++ {
		s.refs = append(s.refs, capture(a, a.Ref(addr, i)))
	}
	return s
}

func sameShape(a *Arena, addr Addr, s *snap) bool {
	if s == nil || addr == NilAddr {
		return s == nil && addr == NilAddr
	}
	if a.TagOf(addr) != s.tag || a.RefCount(addr) != len(s.refs) {
		return false
	}
	d := a.descOf(addr)
	data := d.dataWords
	if !d.hasRefs {
		data = a.PayloadLen(addr)
	}
	if data != len(s.data) {
		return false
	}
	for i, w := range s.data {
		if a.Word(addr, i) != w {
			return false
		}
	}
	for i, ref := range s.refs {
		if !sameShape(a, a.Ref(addr, i), ref) {
			return false
		}
	}
	return true
}

func requireShape(t *testing.T, a *Arena, addr Addr, s *snap) {
	t.Helper()
	require.True(t, sameShape(a, addr, s), "record at %d does not match its pre-compaction structure", addr)
}
