package stackgc

import (
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"
)

var (
	// ErrClosed is returned by operations on a closed arena.
	ErrClosed = errors.New("stackgc: arena is closed")

	// ErrUnknownTag is returned when allocating with a tag that was
	// never registered in the arena's tag set.
	ErrUnknownTag = errors.New("stackgc: unknown tag")

	// ErrNilRoot is returned when registering the nil reference as a
	// global root.
	ErrNilRoot = errors.New("stackgc: cannot register nil root")

	// ErrOutstandingMarks is returned by CompactGlobal while a
	// checkpoint is outstanding: the computation that owns it may hold
	// records the global root set does not reach.
	ErrOutstandingMarks = errors.New("stackgc: checkpoint outstanding, global compaction would discard unrooted records")
)

// OverflowError reports that an allocation could not be satisfied and
// that growth (including the salvage compaction, when legal) failed. It
// is fatal to the enclosing computation: retrying with the same inputs
// fails the same way.
type OverflowError struct {
	RequestedWords int
	CapacityWords  int
	MaxWords       int   // 0 when uncapped
	BudgetLimit    int64 // bytes; 0 when unbudgeted
}

func (e *OverflowError) Error() string {
	msg := fmt.Sprintf("stackgc: stack overflow: need %d words (%s), capacity %d words (%s)",
		e.RequestedWords, humanize.IBytes(uint64(wordBytes(e.RequestedWords))),
		e.CapacityWords, humanize.IBytes(uint64(wordBytes(e.CapacityWords))))
	if e.MaxWords > 0 {
		msg += fmt.Sprintf(", cap %d words", e.MaxWords)
	}
	if e.BudgetLimit > 0 {
		msg += fmt.Sprintf(", budget %s", humanize.IBytes(uint64(e.BudgetLimit)))
	}
	return msg
}

// ContiguityError reports a Truncate whose roots do not reach exactly
// the block between the checkpoint and the frontier. Proceeding would
// have silently stranded live records in the reclaimed range; the error
// carries the checkpoint, the offending gap and the live size so the
// call site that misused the fast path can be localized.
type ContiguityError struct {
	Mark      Checkpoint
	Frontier  Addr
	LiveWords int
	Roots     int
	GapStart  Addr
	GapEnd    Addr
	Overlap   bool
}

func (e *ContiguityError) Error() string {
	kind := "dead gap"
	if e.Overlap {
		kind = "overlapping records"
	}
	return fmt.Sprintf("stackgc: contiguity violation: %d roots reach %d live words of [%d,%d) since checkpoint %d, %s at [%d,%d); use CopyCompact",
		e.Roots, e.LiveWords, e.Mark.frontier, e.Frontier, e.Mark.id, kind, e.GapStart, e.GapEnd)
}

// CheckpointOrderError reports a restore, commit or compaction against a
// checkpoint that is not the most recent outstanding one. Checkpoints
// are strictly nested; operating on an outer checkpoint while an inner
// one is live is a programming error, not retried.
type CheckpointOrderError struct {
	Op      string
	Mark    Checkpoint
	Top     Checkpoint
	HaveTop bool
}

func (e *CheckpointOrderError) Error() string {
	if !e.HaveTop {
		return fmt.Sprintf("stackgc: %s of checkpoint %d (frontier %d) with no checkpoint outstanding",
			e.Op, e.Mark.id, e.Mark.frontier)
	}
	return fmt.Sprintf("stackgc: %s of checkpoint %d (frontier %d) out of order: checkpoint %d (frontier %d) is still outstanding",
		e.Op, e.Mark.id, e.Mark.frontier, e.Top.id, e.Top.frontier)
}

// LayoutError reports an allocation whose payload does not fit the
// registered layout of its tag.
type LayoutError struct {
	Tag          Tag
	Name         string
	PayloadWords int
	MinWords     int
}

func (e *LayoutError) Error() string {
	return fmt.Sprintf("stackgc: invalid payload of %d words for tag %d (%s), minimum %d",
		e.PayloadWords, e.Tag, e.Name, e.MinWords)
}
