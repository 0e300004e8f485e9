//////////////////////////////////////////////////////////////////////////////
//
// Pooled UDP ingest source: a low-allocation RTP receiver. A fixed pool
// of MTU-sized buffers is pre-allocated once; each receive parses the RTP
// header in place and hands the packet to a synchronous fan-out callback,
// then returns the buffer to the pool. No RTCP is expected on this socket.
//
//////////////////////////////////////////////////////////////////////////////

package relay

import (
	"net"
	"sync"

	"github.com/pkg/errors"

	"github.com/buldo/webrtcrelay/internal/logging"
	"github.com/buldo/webrtcrelay/internal/metrics"
	"github.com/buldo/webrtcrelay/internal/rtp"
)

var ingestLog = logging.DefaultLogger.WithTag("ingest")

// ingestBufferSize is the common 1500-byte Ethernet MTU; there is no
// second allocation path for larger datagrams.
const ingestBufferSize = 1500

// ingestSource is the pooled UDP RTP receiver.
type ingestSource struct {
	conn    net.PacketConn
	metrics *metrics.Counters

	mu   sync.Mutex
	pool [][]byte // free buffers; back-pressure drops the oldest ingest datagram when empty

	onPacket func(*rtp.Packet)

	closeOnce sync.Once
	done      chan struct{}
}

// newIngestSource binds addr and pre-allocates poolSize MTU-sized buffers.
func newIngestSource(addr string, poolSize int, counters *metrics.Counters, onPacket func(*rtp.Packet)) (*ingestSource, error) {
	conn, err := net.ListenPacket("udp", addr)
	if err != nil {
		return nil, errors.Wrap(err, "relay: bind ingest socket")
	}

	pool := make([][]byte, poolSize)
	for i := range pool {
		pool[i] = make([]byte, ingestBufferSize)
	}

	s := &ingestSource{
		conn:     conn,
		metrics:  counters,
		pool:     pool,
		onPacket: onPacket,
		done:     make(chan struct{}),
	}

	go s.run()
	return s, nil
}

func (s *ingestSource) acquire() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.pool)
	if n == 0 {
		return nil
	}
	buf := s.pool[n-1]
	s.pool = s.pool[:n-1]
	return buf
}

func (s *ingestSource) release(buf []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pool = append(s.pool, buf[:cap(buf)])
}

// run is the ingest worker: it owns the ingest UDP socket exclusively.
func (s *ingestSource) run() {
	defer close(s.done)

	for {
		buf := s.acquire()
		if buf == nil {
			// Pool exhausted: drop this datagram rather than blocking
			// the ingest worker or growing the pool unbounded.
			discard := make([]byte, ingestBufferSize)
			n, _, err := s.conn.ReadFrom(discard)
			if err != nil {
				return
			}
			_ = n
			s.metrics.IncIngestBufferPoolExhausted()
			continue
		}

		n, _, err := s.conn.ReadFrom(buf)
		if err != nil {
			s.release(buf)
			return
		}

		pkt, err := rtp.Unmarshal(buf[:n])
		if err != nil {
			ingestLog.Warn("ingest: malformed RTP packet: %v", err)
			s.release(buf)
			continue
		}

		s.onPacket(pkt)
		s.release(buf)
	}
}

// Close shuts down the ingest socket and waits for the worker to drain.
func (s *ingestSource) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = s.conn.Close()
		<-s.done
	})
	return err
}
