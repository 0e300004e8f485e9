// Package metrics holds a small set of dropped/lost counters: ingest
// back-pressure drops, unknown demux byte ranges, and FEC irreversible
// loss. This is a thin sync/atomic counter set rather than a push-based
// metrics system -- there is nothing here for a third-party client
// library to attach to.
package metrics

import "sync/atomic"

// Counters aggregates the service-wide drop/loss counts surfaced by
// Control API's Stop() for final reporting.
type Counters struct {
	ingestBufferPoolExhausted atomic.Uint64
	demuxUnknownByteRange     atomic.Uint64
	fecIrrecoverableLoss      atomic.Uint64
	peerSendErrors            atomic.Uint64
}

// IncIngestBufferPoolExhausted counts a dropped ingest datagram because
// the pooled UDP ingest source had no free buffer.
func (c *Counters) IncIngestBufferPoolExhausted() {
	c.ingestBufferPoolExhausted.Add(1)
}

// IncDemuxUnknownByteRange counts a datagram dropped by the UDP
// demultiplexer because its first byte matched none of
// the recognized ranges.
func (c *Counters) IncDemuxUnknownByteRange() {
	c.demuxUnknownByteRange.Add(1)
}

// IncFECIrrecoverableLoss counts a primary fragment force-drained by
// the FEC reorder queue before it could be reconstructed.
func (c *Counters) IncFECIrrecoverableLoss() {
	c.fecIrrecoverableLoss.Add(1)
}

// IncPeerSendError counts a best-effort per-peer send failure during
// fan-out; it never aborts the broadcast.
func (c *Counters) IncPeerSendError() {
	c.peerSendErrors.Add(1)
}

// Snapshot is a point-in-time copy of every counter, suitable for
// logging or returning from the control API's Stop() path.
type Snapshot struct {
	IngestBufferPoolExhausted uint64
	DemuxUnknownByteRange     uint64
	FECIrrecoverableLoss      uint64
	PeerSendErrors            uint64
}

func (c *Counters) Snapshot() Snapshot {
	return Snapshot{
		IngestBufferPoolExhausted: c.ingestBufferPoolExhausted.Load(),
		DemuxUnknownByteRange:     c.demuxUnknownByteRange.Load(),
		FECIrrecoverableLoss:      c.fecIrrecoverableLoss.Load(),
		PeerSendErrors:            c.peerSendErrors.Load(),
	}
}
