package fec

import (
	"github.com/buldo/webrtcrelay/internal/logging"
)

var log = logging.DefaultLogger.WithTag("fec")

// Queue is a bounded reorder buffer: a deque of in-flight blocks
// indexed by a
// monotone block id. Fragments for blocks older than the current head
// are rejected; a fragment addressed to a block far enough ahead of
// the head forces the oldest block(s) to drain, counting whatever
// primary fragments were never recovered as irreversibly lost.
//
// Blocks drain in order: the head block is forwarded once it either
// arrives complete or is successfully reconstructed by Decode; a block
// behind the head that becomes fully recoverable does not jump ahead
// of an unresolved head, but once the head itself resolves (or is
// force-drained) the queue keeps draining through however many
// already-ready blocks follow.
type Queue struct {
	capacity int
	headID   int64
	blocks   map[int64]*Block
	order    []int64

	lost int // fragments dropped by force-drain, never recovered

	// Drained receives every block as it leaves the queue, in
	// ascending block-id order. Blocks leaving via force-drain may
	// still have PrimaryOK entries false.
	Drained func(id int64, b *Block)
}

// NewQueue creates a reorder queue holding at most capacity in-flight
// blocks (default 20).
func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = 20
	}
	return &Queue{
		capacity: capacity,
		blocks:   make(map[int64]*Block, capacity),
	}
}

// Open registers a new block under id; if id is already registered,
// Open leaves the existing block in place and ignores b. id must be at
// or after the queue's current head; an older id is rejected with
// ErrBlockTooOld.
func (q *Queue) Open(id int64, b *Block) error {
	if len(q.order) > 0 && id < q.headID {
		return ErrBlockTooOld
	}
	if _, ok := q.blocks[id]; ok {
		return nil
	}

	q.blocks[id] = b
	q.order = append(q.order, id)
	if len(q.order) == 1 {
		q.headID = id
	}

	for len(q.order) > q.capacity {
		q.forceDrainHead()
	}
	return nil
}

// Fragment reports that a fragment belonging to block id has arrived
// (status already applied to the block's PrimaryOK/SecondaryOK by the
// caller). Fragment then attempts to drain the head of the queue as
// far as it can go.
func (q *Queue) Fragment(id int64) {
	q.drainReady()
}

// forceDrainHead evicts the oldest block regardless of completeness,
// counting any still-missing primary fragments as irreversibly lost.
func (q *Queue) forceDrainHead() {
	if len(q.order) == 0 {
		return
	}
	id := q.order[0]
	b := q.blocks[id]
	dropped := 0
	for _, ok := range b.PrimaryOK {
		if !ok {
			dropped++
		}
	}
	if dropped > 0 {
		q.lost += dropped
		log.Warn("fec: force-drained block %d with %d unrecovered primary fragments", id, dropped)
	}
	q.evictHead()
}

// drainReady forwards blocks from the head while each is either fully
// available or successfully decodable, stopping at the first block
// that is neither.
func (q *Queue) drainReady() {
	for len(q.order) > 0 {
		id := q.order[0]
		b := q.blocks[id]

		if !allPrimaryAvailable(b) {
			if _, err := Decode(b); err != nil {
				return // head not yet resolvable; wait for more fragments
			}
		}
		q.evictHead()
	}
}

func (q *Queue) evictHead() {
	id := q.order[0]
	b := q.blocks[id]
	q.order = q.order[1:]
	delete(q.blocks, id)
	if len(q.order) > 0 {
		q.headID = q.order[0]
	} else {
		q.headID = id + 1
	}
	if q.Drained != nil {
		q.Drained(id, b)
	}
}

func allPrimaryAvailable(b *Block) bool {
	for _, ok := range b.PrimaryOK {
		if !ok {
			return false
		}
	}
	return true
}

// Lost returns the number of primary fragments counted as
// irreversibly lost by force-drains so far.
func (q *Queue) Lost() int {
	return q.lost
}
