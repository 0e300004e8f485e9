package ice

import (
	"fmt"
	"time"
)

// maxCachedTransactions bounds the per-pair memory of in-flight STUN
// transaction IDs awaiting a matching response.
const maxCachedTransactions = 30

type CandidatePair struct {
	id         string
	local      Candidate
	remote     Candidate
	foundation string
	component  int

	state     CandidatePairState
	nominated bool

	// txnIDs is a bounded FIFO of STUN transaction IDs we've issued for this
	// pair, oldest evicted first once maxCachedTransactions is exceeded.
	txnIDs []string

	lastSend time.Time
	lastRecv time.Time
}

// Candidate pair states
type CandidatePairState int

const (
	Frozen     CandidatePairState = 0
	Waiting                       = 1
	InProgress                    = 2
	Succeeded                     = 3
	Failed                        = 4
)

func newCandidatePair(seq int, local, remote Candidate) *CandidatePair {
	if local.component != remote.component {
		log.Panicf("Candidates in pair have different components: %d != %d", local.component, remote.component)
	}
	id := fmt.Sprintf("Pair#%d", seq)
	foundation := fmt.Sprintf("%s/%s", local.foundation, remote.foundation)
	return &CandidatePair{id: id, local: local, remote: remote, foundation: foundation, component: local.component}
}

func (p *CandidatePair) String() string {
	var state string
	switch p.state {
	case Frozen:
		state = "Frozen"
	case Waiting:
		state = "Waiting"
	case InProgress:
		state = "In Progress"
	case Succeeded:
		state = "Succeeded"
	case Failed:
		state = "Failed"
	}
	return fmt.Sprintf("%s: %s -> %s [%s]", p.id, p.local.address, p.remote.address, state)
}

// Priority computes the pair priority per RFC 5245 section 5.7.2, using the
// controlled-agent form (we are always controlled).
func (p *CandidatePair) Priority() uint64 {
	G := uint64(p.remote.priority)
	D := uint64(p.local.priority)
	var B uint64 = 0
	if G > D {
		B = 1
	}
	return min(G, D)<<32 + max(G, D)<<1 + B
}

// rememberTransaction records a transaction ID we've issued for this pair,
// evicting the oldest once the cache is full.
func (p *CandidatePair) rememberTransaction(txnID string) {
	if len(p.txnIDs) >= maxCachedTransactions {
		p.txnIDs = p.txnIDs[1:]
	}
	p.txnIDs = append(p.txnIDs, txnID)
}

// knowsTransaction reports whether txnID was previously remembered, and
// forgets it (a STUN transaction is consumed by its matching response).
func (p *CandidatePair) knowsTransaction(txnID string) bool {
	for i, id := range p.txnIDs {
		if id == txnID {
			p.txnIDs = append(p.txnIDs[:i], p.txnIDs[i+1:]...)
			return true
		}
	}
	return false
}

func min(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}

func max(a, b uint64) uint64 {
	if a > b {
		return a
	}
	return b
}
