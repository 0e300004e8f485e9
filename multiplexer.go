//////////////////////////////////////////////////////////////////////////////
//
// Stream multiplexer: an immutable, copy-on-write
// snapshot registry of peers. Registration and removal each publish a new
// snapshot; broadcast iterates the snapshot in effect at call time, so a
// concurrent register/remove never disturbs an in-flight broadcast.
//
//////////////////////////////////////////////////////////////////////////////

package relay

import (
	"sync"
	"sync/atomic"

	"github.com/buldo/webrtcrelay/internal/metrics"
	"github.com/buldo/webrtcrelay/internal/rtp"
)

type peerSnapshot map[PeerID]*Peer

// streamMultiplexer fans out ingest RTP packets to every registered peer.
type streamMultiplexer struct {
	metrics *metrics.Counters

	snapshot atomic.Value // peerSnapshot

	mu     sync.Mutex // serializes register/remove's read-copy-update
	closed bool
}

func newStreamMultiplexer(counters *metrics.Counters) *streamMultiplexer {
	m := &streamMultiplexer{metrics: counters}
	m.snapshot.Store(peerSnapshot{})
	return m
}

func (m *streamMultiplexer) current() peerSnapshot {
	return m.snapshot.Load().(peerSnapshot)
}

// Register adds peer to the broadcast set.
func (m *streamMultiplexer) Register(peer *Peer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}

	old := m.current()
	next := make(peerSnapshot, len(old)+1)
	for id, p := range old {
		next[id] = p
	}
	next[peer.ID()] = peer
	m.snapshot.Store(next)
}

// Remove drops a peer from the broadcast set. It does not close the peer;
// callers close peers independently of multiplexer membership.
func (m *streamMultiplexer) Remove(id PeerID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}

	old := m.current()
	if _, ok := old[id]; !ok {
		return
	}
	next := make(peerSnapshot, len(old)-1)
	for pid, p := range old {
		if pid != id {
			next[pid] = p
		}
	}
	m.snapshot.Store(next)
}

// Broadcast sends pkt to every peer in the current snapshot. A send
// failure on one peer is counted and does not affect the others.
func (m *streamMultiplexer) Broadcast(pkt *rtp.Packet) {
	for _, peer := range m.current() {
		if err := peer.Send(pkt); err != nil {
			m.metrics.IncPeerSendError()
		}
	}
}

// Close is idempotent; it empties the snapshot and refuses further
// registrations. Closing the peers themselves is the caller's
// responsibility (the control API closes each peer it created).
func (m *streamMultiplexer) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.closed = true
	m.snapshot.Store(peerSnapshot{})
}
