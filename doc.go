// Package stackgc implements the stack-disciplined memory arena and
// manual reclamation layer of a multiprecision computation kernel.
//
// # Overview
//
// All intermediate values of a computation live on one growable,
// contiguous arena of 64-bit words. There is no tracing collector:
// callers take a checkpoint, allocate freely, and at loop boundaries or
// on return reclaim everything since the checkpoint except an explicit
// root list. Records are tagged, variable-length and reference each
// other by arena-relative offset; they form an acyclic graph in which
// sharing is allowed.
//
// # Basic Usage
//
//	tags := stackgc.NewTagSet()
//	num := tags.Register("number", 0, false)  // leaf: payload is raw data
//	pair := tags.Register("pair", 0, true)    // node: payload is references
//
//	a, _ := stackgc.New(stackgc.WithTags(tags))
//	defer a.Close()
//
//	cp := a.Mark()
//	x, _ := a.Allocate(num, 2)    // scratch and results alike
//	// ... build a result graph ...
//	roots, _ := a.CopyCompact(cp, []stackgc.Addr{x})
//	_ = a.Commit(cp)
//	_ = roots
//
// # Reclamation
//
// Two strategies reclaim the region above a checkpoint:
//
//   - Truncate is O(1) and moves nothing, but is valid only when the
//     records reachable from the roots are exactly the contiguous block
//     between the checkpoint and the frontier. The arena verifies this
//     by default and fails with a ContiguityError instead of silently
//     stranding live records, which is how the unchecked original
//     failed.
//   - CopyCompact walks the roots, copies every reachable record down
//     to the checkpoint through a relocation map (shared records are
//     copied once) and returns the rewritten roots. It is correct for
//     any layout and costs O(live size).
//
// Restore discards everything since a checkpoint unconditionally, and
// Commit keeps everything while discharging the checkpoint. Checkpoints
// are strictly nested; out-of-order use is a typed error.
//
// # Growth
//
// Allocation failure grows the region geometrically. References are
// offsets, so a resize preserves every address. When a capacity cap or a
// shared Budget blocks the resize, the arena salvages space by
// compacting down to the registered global roots before giving up with
// an OverflowError.
//
// # Concurrency
//
// An arena is owned by one execution context; operations are synchronous
// and no record may reference across arenas. Parallel workers each own
// an arena and may share only a Budget, which is concurrency-safe.
package stackgc
