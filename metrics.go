package stackgc

// counters accumulates event counts. The arena is single-owner, so plain
// integers suffice.
type counters struct {
	allocations uint64
	truncations uint64
	compactions uint64
	growths     uint64
	wordsCopied uint64
}

// Stats is a snapshot of arena statistics.
type Stats struct {
	WordsInUse       int     // words below the frontier (nil word included)
	CapacityWords    int     // backing region size
	Utilization      float64 // WordsInUse / CapacityWords
	OutstandingMarks int     // checkpoints not yet restored or committed
	GlobalRoots      int     // registered global roots

	Allocations uint64 // records allocated
	Truncations uint64 // successful fast-path reclamations
	Compactions uint64 // copying compactions (local and global)
	Growths     uint64 // region resizes
	WordsCopied uint64 // total words moved by copying compactions
}

// InUseWords returns the number of words below the frontier.
func (a *Arena) InUseWords() int {
	return int(a.frontier)
}

// CapacityWords returns the size of the backing region in words.
func (a *Arena) CapacityWords() int {
	return len(a.words)
}

// Utilization returns the ratio of words in use to capacity (0.0 to 1.0).
func (a *Arena) Utilization() float64 {
	if len(a.words) == 0 {
		return 0
	}
	return float64(a.frontier) / float64(len(a.words))
}

// OutstandingMarks returns the number of checkpoints not yet restored or
// committed.
func (a *Arena) OutstandingMarks() int {
	return len(a.marks)
}

// Stats returns a snapshot of arena statistics.
func (a *Arena) Stats() Stats {
	return Stats{
		WordsInUse:       a.InUseWords(),
		CapacityWords:    a.CapacityWords(),
		Utilization:      a.Utilization(),
		OutstandingMarks: a.OutstandingMarks(),
		GlobalRoots:      a.GlobalRoots(),
		Allocations:      a.stats.allocations,
		Truncations:      a.stats.truncations,
		Compactions:      a.stats.compactions,
		Growths:          a.stats.growths,
		WordsCopied:      a.stats.wordsCopied,
	}
}

// Collector receives reclamation and growth events. Implement it to feed
// a monitoring system; the arena calls it synchronously, so
// implementations should be cheap.
type Collector interface {
	// RecordCompaction is called after each successful Truncate,
	// CopyCompact or CompactGlobal. moved is false for the truncate
	// fast path, where nothing is copied and nothing is reclaimed;
	// there liveWords is the span above the checkpoint, which equals
	// the reachable size only as far as the contiguity precondition
	// holds (it is nominal with the check disabled).
	RecordCompaction(moved bool, liveWords, reclaimedWords int)

	// RecordGrowth is called after each region resize.
	RecordGrowth(oldCapWords, newCapWords int)
}

// NoopCollector is the default Collector; it discards all events.
type NoopCollector struct{}

func (NoopCollector) RecordCompaction(bool, int, int) {}
func (NoopCollector) RecordGrowth(int, int)           {}
