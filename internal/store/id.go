package store

import (
	"sync"
	"time"
)

// idEpoch anchors the generator so ids stay roughly time-sortable and fit
// comfortably in an int64 for the lifetime of the project.
var idEpoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

var idGen = struct {
	mu       sync.Mutex
	lastMs   int64
	sequence int64
}{}

// NewID returns a monotonically increasing, time-sortable 64-bit id: the
// high 42 bits are milliseconds since idEpoch, the low 22 bits are a
// per-millisecond sequence. The teacher's id assignment
// (internal_callcontext.CallContext.BeforeCreate calling
// gorm_generator.ID()) isn't present in the retrieval pack, so this
// reimplements the same "assign a snowflake-style id in BeforeCreate"
// shape with a self-contained generator instead of guessing at the
// original package's internals.
func NewID() uint64 {
	idGen.mu.Lock()
	defer idGen.mu.Unlock()

	ms := time.Since(idEpoch).Milliseconds()
	if ms == idGen.lastMs {
		idGen.sequence++
	} else {
		idGen.lastMs = ms
		idGen.sequence = 0
	}
	return uint64(ms)<<22 | uint64(idGen.sequence&0x3FFFFF)
}
