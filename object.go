package stackgc

import (
	"fmt"
	"math"
)

// Word is the unit of arena storage. All records are measured, addressed
// and copied in words.
type Word uint64

// Addr is an arena-relative word offset. Offset 0 is reserved as the nil
// reference, so a zeroed reference slot reads back as NilAddr.
type Addr uint32

// NilAddr is the null reference. No record is ever placed at offset 0.
const NilAddr Addr = 0

// Tag identifies a record kind. Tags index into a TagSet, which tells the
// compactor how to interpret a record's payload.
type Tag uint16

// maxRecordWords bounds a single record so its size always fits the
// header's size field and the Addr space.
const maxRecordWords = 1 << 30

// maxArenaWords is the largest capacity the 32-bit address space can
// reach; every frontier value must fit an Addr. On 32-bit platforms int
// caps it lower still.
const maxArenaWords = math.MaxUint32 & math.MaxInt

// A descriptor gives the layout of one record kind: how many payload
// words are plain data, and whether the remaining payload words are
// references to other records.
type descriptor struct {
	name      string
	dataWords int
	hasRefs   bool
}

// TagSet maps tags to record layouts. A TagSet is built up front by the
// consumer (the algebra layer registers one tag per node kind) and then
// shared read-only with every arena that stores such records.
type TagSet struct {
	descs []descriptor
}

// NewTagSet returns an empty tag set.
func NewTagSet() *TagSet {
	return &TagSet{}
}

// Register adds a record kind and returns its tag.
//
// For a leaf kind (hasRefs false) the whole payload is raw data and
// dataWords is the minimum payload length. For an interior kind (hasRefs
// true) the payload is exactly dataWords raw words followed by a variable
// number of reference slots running to the end of the record.
func (ts *TagSet) Register(name string, dataWords int, hasRefs bool) Tag {
	if dataWords < 0 {
		panic("stackgc: negative dataWords")
	}
	if len(ts.descs) >= 1<<16 {
		panic("stackgc: tag space exhausted")
	}
	ts.descs = append(ts.descs, descriptor{name: name, dataWords: dataWords, hasRefs: hasRefs})
	return Tag(len(ts.descs) - 1)
}

// Name returns the registered name of tag, or "" if unknown.
func (ts *TagSet) Name(tag Tag) string {
	if int(tag) >= len(ts.descs) {
		return ""
	}
	return ts.descs[tag].name
}

func (ts *TagSet) desc(tag Tag) (descriptor, bool) {
	if ts == nil || int(tag) >= len(ts.descs) {
		return descriptor{}, false
	}
	return ts.descs[tag], true
}

// Record layout: one header word followed by the payload. The header
// packs the total size in words (header included) above the tag.
func packHeader(tag Tag, sizeWords int) Word {
	return Word(sizeWords)<<16 | Word(tag)
}

func headerTag(h Word) Tag  { return Tag(h & 0xffff) }
func headerSize(h Word) int { return int(h >> 16) }

// TagOf returns the tag of the record at addr.
func (a *Arena) TagOf(addr Addr) Tag {
	return headerTag(a.header(addr))
}

// SizeOf returns the total size in words of the record at addr,
// including its header word.
func (a *Arena) SizeOf(addr Addr) int {
	return headerSize(a.header(addr))
}

// PayloadLen returns the number of payload words of the record at addr.
func (a *Arena) PayloadLen(addr Addr) int {
	return a.SizeOf(addr) - 1
}

// RefCount returns the number of reference slots of the record at addr.
// Leaf records have none.
func (a *Arena) RefCount(addr Addr) int {
	d := a.descOf(addr)
	if !d.hasRefs {
		return 0
	}
	return a.PayloadLen(addr) - d.dataWords
}

// Word returns the i-th data word of the record at addr.
func (a *Arena) Word(addr Addr, i int) Word {
	a.checkData(addr, i)
	return a.words[int(addr)+1+i]
}

// SetWord stores w into the i-th data word of the record at addr.
func (a *Arena) SetWord(addr Addr, i int, w Word) {
	a.checkData(addr, i)
	a.words[int(addr)+1+i] = w
}

// Ref returns the i-th reference slot of the record at addr.
func (a *Arena) Ref(addr Addr, i int) Addr {
	return Addr(a.words[a.refIndex(addr, i)])
}

// SetRef stores target into the i-th reference slot of the record at
// addr. The target must belong to the same arena.
func (a *Arena) SetRef(addr Addr, i int, target Addr) {
	a.words[a.refIndex(addr, i)] = Word(target)
}

// Payload returns the payload words of the record at addr as a view into
// the arena. The view is invalidated by any allocation, compaction or
// growth; callers that need the data past the next arena operation must
// copy it out.
func (a *Arena) Payload(addr Addr) []Word {
	size := a.SizeOf(addr)
	return a.words[int(addr)+1 : int(addr)+size]
}

func (a *Arena) header(addr Addr) Word {
	if addr == NilAddr || int(addr) >= int(a.frontier) {
		panic(fmt.Sprintf("stackgc: bad record address %d (frontier %d)", addr, a.frontier))
	}
	return a.words[addr]
}

func (a *Arena) descOf(addr Addr) descriptor {
	tag := a.TagOf(addr)
	d, ok := a.tags.desc(tag)
	if !ok {
		panic(fmt.Sprintf("stackgc: record at %d has unregistered tag %d", addr, tag))
	}
	return d
}

func (a *Arena) checkData(addr Addr, i int) {
	d := a.descOf(addr)
	limit := d.dataWords
	if !d.hasRefs {
		limit = a.PayloadLen(addr)
	}
	if i < 0 || i >= limit {
		panic(fmt.Sprintf("stackgc: data index %d out of range [0,%d) at %d (%s)",
			i, limit, addr, d.name))
	}
}

func (a *Arena) refIndex(addr Addr, i int) int {
	d := a.descOf(addr)
	if !d.hasRefs {
		panic(fmt.Sprintf("stackgc: record at %d (%s) has no reference slots", addr, d.name))
	}
	n := a.PayloadLen(addr) - d.dataWords
	if i < 0 || i >= n {
		panic(fmt.Sprintf("stackgc: reference index %d out of range [0,%d) at %d (%s)",
			i, n, addr, d.name))
	}
	return int(addr) + 1 + d.dataWords + i
}

// refSpan returns the index of the first reference slot and the slot
// count for the record at addr. Used by the compaction walks.
func (a *Arena) refSpan(addr Addr) (first, count int) {
	d := a.descOf(addr)
	if !d.hasRefs {
		return 0, 0
	}
	return int(addr) + 1 + d.dataWords, a.PayloadLen(addr) - d.dataWords
}

// Equal reports deep structural equality of the records at x and y: same
// tag, same payload length, identical data words, and pairwise Equal
// reference targets. Nil references are only equal to nil. Sharing is not
// compared; two isomorphic graphs are Equal whether or not they share
// sub-records.
func Equal(a *Arena, x, y Addr) bool {
	if x == NilAddr || y == NilAddr {
		return x == y
	}
	if a.TagOf(x) != a.TagOf(y) || a.PayloadLen(x) != a.PayloadLen(y) {
		return false
	}
	d := a.descOf(x)
	data := d.dataWords
	if !d.hasRefs {
		data = a.PayloadLen(x)
	}
	for i := 0; i < data; i++ {
		if a.Word(x, i) != a.Word(y, i) {
			return false
		}
	}
	for i := 0; i < a.RefCount(x); i++ {
		if !Equal(a, a.Ref(x, i), a.Ref(y, i)) {
			return false
		}
	}
	return true
}
