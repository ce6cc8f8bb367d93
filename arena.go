package stackgc

import (
	"io"
	"log/slog"
)

const (
	// DefaultInitialWords is the starting capacity of a new arena
	// (32 KiB at 8 bytes per word).
	DefaultInitialWords = 1 << 12

	// DefaultGrowthFactor is the geometric growth applied when the
	// arena is exhausted.
	DefaultGrowthFactor = 2.0
)

// Checkpoint is a saved frontier. Everything allocated after a checkpoint
// is disposable unless declared as a root at the next reclamation.
// Checkpoints are strictly nested: only the most recent outstanding
// checkpoint may be restored, committed or compacted against.
type Checkpoint struct {
	frontier Addr
	id       uint64
}

// Arena is a stack-disciplined bump allocator for tagged records. One
// contiguous word region, one monotonic frontier; reclamation is either
// a frontier reset (Restore) or an explicit compaction (Truncate,
// CopyCompact, CompactGlobal). An arena is owned by a single execution
// context and is not safe for concurrent use; records never reference
// across arenas.
type Arena struct {
	words    []Word
	frontier Addr
	tags     *TagSet
	marks    []Checkpoint
	markSeq  uint64
	globals  []*Root

	initialWords    int
	maxWords        int
	growthFactor    float64
	checkContiguity bool
	budget          *Budget
	collector       Collector
	log             *slog.Logger

	stats  counters
	closed bool
}

// Option configures an Arena.
type Option func(*Arena)

// WithTags sets the tag set used to interpret records. Every arena that
// stores records needs one; New installs an empty set otherwise.
func WithTags(ts *TagSet) Option {
	return func(a *Arena) { a.tags = ts }
}

// WithInitialWords sets the initial capacity in words.
func WithInitialWords(n int) Option {
	return func(a *Arena) {
		if n > 0 {
			a.initialWords = n
		}
	}
}

// WithMaxWords caps the arena capacity in words. Zero means unlimited
// (the budget, if any, still applies).
func WithMaxWords(n int) Option {
	return func(a *Arena) {
		if n > 0 {
			a.maxWords = n
		}
	}
}

// WithGrowthFactor sets the geometric growth factor. Values <= 1 are
// ignored.
func WithGrowthFactor(f float64) Option {
	return func(a *Arena) {
		if f > 1.0 {
			a.growthFactor = f
		}
	}
}

// WithContiguityCheck enables or disables the reachability verification
// performed by Truncate. It is on by default; disable it only for call
// sites where contiguity is provable from the caller's own control flow.
func WithContiguityCheck(on bool) Option {
	return func(a *Arena) { a.checkContiguity = on }
}

// WithBudget charges the arena's reserved bytes against a shared budget.
func WithBudget(b *Budget) Option {
	return func(a *Arena) { a.budget = b }
}

// WithMetrics installs a metrics collector.
func WithMetrics(c Collector) Option {
	return func(a *Arena) {
		if c != nil {
			a.collector = c
		}
	}
}

// WithLogger sets the structured logger. The default discards.
func WithLogger(l *slog.Logger) Option {
	return func(a *Arena) {
		if l != nil {
			a.log = l
		}
	}
}

// New creates an arena. It fails only when the initial reservation does
// not fit the shared budget.
func New(opts ...Option) (*Arena, error) {
	a := &Arena{
		initialWords:    DefaultInitialWords,
		growthFactor:    DefaultGrowthFactor,
		checkContiguity: true,
		collector:       NoopCollector{},
		log:             slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.tags == nil {
		a.tags = NewTagSet()
	}
	if a.maxWords > maxArenaWords {
		a.maxWords = maxArenaWords
	}
	if a.maxWords > 0 && a.initialWords > a.maxWords {
		a.initialWords = a.maxWords
	}
	if a.initialWords > maxArenaWords {
		a.initialWords = maxArenaWords
	}
	if !a.budget.Reserve(wordBytes(a.initialWords)) {
		return nil, &OverflowError{
			RequestedWords: a.initialWords,
			BudgetLimit:    a.budget.Limit(),
		}
	}
	a.words = make([]Word, a.initialWords)
	a.frontier = 1 // offset 0 is the nil reference
	return a, nil
}

// Mark returns a checkpoint at the current frontier.
func (a *Arena) Mark() Checkpoint {
	a.markSeq++
	cp := Checkpoint{frontier: a.frontier, id: a.markSeq}
	a.marks = append(a.marks, cp)
	return cp
}

// Allocate creates a zeroed record of the given tag with payloadWords
// payload words and returns its address. When the region is exhausted the
// arena grows once; if growth fails the error is an *OverflowError and
// the arena is unchanged.
func (a *Arena) Allocate(tag Tag, payloadWords int) (Addr, error) {
	if a.closed {
		return NilAddr, ErrClosed
	}
	d, ok := a.tags.desc(tag)
	if !ok {
		return NilAddr, ErrUnknownTag
	}
	size := 1 + payloadWords
	if payloadWords < d.dataWords || size > maxRecordWords {
		return NilAddr, &LayoutError{Tag: tag, Name: d.name, PayloadWords: payloadWords, MinWords: d.dataWords}
	}
	if int(a.frontier)+size > len(a.words) {
		if err := a.grow(size); err != nil {
			return NilAddr, err
		}
	}
	addr := a.frontier
	a.frontier += Addr(size)
	block := a.words[addr:a.frontier]
	clear(block)
	block[0] = packHeader(tag, size)
	a.stats.allocations++
	return addr, nil
}

// Restore unconditionally resets the frontier to cp, discarding every
// record allocated since, live or not. cp must be the most recent
// outstanding checkpoint. Callers that need survivors use Truncate or
// CopyCompact instead.
func (a *Arena) Restore(cp Checkpoint) error {
	if a.closed {
		return ErrClosed
	}
	if err := a.requireTop("Restore", cp); err != nil {
		return err
	}
	a.marks = a.marks[:len(a.marks)-1]
	a.frontier = cp.frontier
	return nil
}

// Commit discharges the most recent outstanding checkpoint while keeping
// everything allocated since it. Use it after a Truncate or a final
// CopyCompact has established that the region above cp is the result.
func (a *Arena) Commit(cp Checkpoint) error {
	if a.closed {
		return ErrClosed
	}
	if err := a.requireTop("Commit", cp); err != nil {
		return err
	}
	a.marks = a.marks[:len(a.marks)-1]
	return nil
}

func (a *Arena) requireTop(op string, cp Checkpoint) error {
	if len(a.marks) == 0 {
		return &CheckpointOrderError{Op: op, Mark: cp}
	}
	top := a.marks[len(a.marks)-1]
	if top.id != cp.id {
		return &CheckpointOrderError{Op: op, Mark: cp, Top: top, HaveTop: true}
	}
	return nil
}

// Close releases the arena's budget reservation and makes the arena
// unusable. Further operations fail with ErrClosed.
func (a *Arena) Close() {
	if a.closed {
		return
	}
	a.budget.Release(wordBytes(len(a.words)))
	a.words = nil
	a.frontier = 0
	a.marks = nil
	a.globals = nil
	a.closed = true
}

func wordBytes(n int) int64 { return int64(n) * 8 }
