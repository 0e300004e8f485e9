package mux

import (
	"io"
	"net"
	"sync"
	"time"
)

// Endpoint is a net.PacketConn view onto one protocol class of traffic
// demultiplexed by a Mux. Incoming datagrams are delivered by the Mux,
// tagged with the sender's address, and placed in a circular queue of
// buffers; readers pull datagrams from the queue with ReadFrom as they
// become available. Outbound datagrams are written directly to the
// shared underlying socket with WriteTo.
type Endpoint struct {
	mux *Mux

	// A circular queue of buffers, each of which can hold a single data packet.
	bufs [][]byte

	// The sender address recorded alongside each buffered packet.
	addrs []net.Addr

	// Number of buffers in the circular queue. This is just len(bufs).
	nbufs int

	// Number of buffers currently occupied with data. 0 <= nused <= nbufs.
	nused int

	// The index of the first used buffer. 0 <= first < nbufs.
	first int

	// Single-item channel indicating when there are packets waiting to be read.
	available chan struct{}

	// One-time channel indicating that the endpoint has been closed.
	dead chan struct{}

	// Mutex held when modifying circular queue state.
	sync.Mutex
}

func createEndpoint(mux *Mux, nbufs int, bufsize int) *Endpoint {
	// Create a large shared buffer pool, and split into nbuf individual buffers
	// of size bufsize.
	bufpool := make([]byte, nbufs*bufsize)
	bufs := make([][]byte, nbufs)
	for i := 0; i < nbufs; i++ {
		bufs[i] = bufpool[i*bufsize : (i+1)*bufsize]
	}
	return &Endpoint{
		mux:       mux,
		bufs:      bufs,
		addrs:     make([]net.Addr, nbufs),
		nbufs:     nbufs,
		nused:     0,
		first:     0,
		available: make(chan struct{}, 1),
		dead:      make(chan struct{}),
	}
}

// Close unregisters the endpoint from the Mux
func (e *Endpoint) Close() error {
	e.close()
	e.mux.RemoveEndpoint(e)
	return nil
}

func (e *Endpoint) close() {
	e.Lock()
	select {
	case <-e.dead:
	default:
		close(e.dead)
	}
	e.Unlock()
}

// deliver exchanges the provided buffer (containing a packet of data
// received from addr) with an unused buffer from this endpoint's circular
// queue.
func (e *Endpoint) deliver(buf []byte, addr net.Addr) []byte {
	e.Lock()
	defer e.Unlock()

	select {
	case <-e.dead:
		return buf
	case e.available <- struct{}{}:
	default:
	}

	if e.nused == e.nbufs {
		// All buffers are in use. Drop the oldest and add the new packet to the
		// end.
		ret := e.bufs[e.first]
		e.bufs[e.first] = buf
		e.addrs[e.first] = addr
		e.first = (e.first + 1) % e.nbufs
		return ret
	} else {
		// Swap the new packet with the next unused buffer in the queue.
		next := (e.first + e.nused) % e.nbufs
		ret := e.bufs[next]
		e.bufs[next] = buf
		e.addrs[next] = addr
		e.nused++
		return ret
	}
}

// If there are packets available, copy the first available one into p.
func (e *Endpoint) tryConsume(p []byte) (int, net.Addr, bool) {
	e.Lock()
	defer e.Unlock()

	if e.nused == 0 {
		return 0, nil, false
	}

	// Copy first used buffer to p, and advance e.first.
	n := copy(p, e.bufs[e.first])
	addr := e.addrs[e.first]
	e.addrs[e.first] = nil
	e.first = (e.first + 1) % e.nbufs
	e.nused--

	// Keep the available channel full if more packets are available.
	if e.nused > 0 {
		select {
		case e.available <- struct{}{}:
		default:
		}
	}

	return n, addr, true
}

// ReadFrom reads a single packet matched by this endpoint's MatchFunc into
// p, blocking until one is available or the endpoint is closed.
func (e *Endpoint) ReadFrom(p []byte) (int, net.Addr, error) {
	if e.nused > 0 {
		// There's a packet waiting. Try to consume it right away.
		n, addr, ok := e.tryConsume(p)
		if ok {
			return n, addr, nil
		}
	}

	// Otherwise, wait for a packet to arrive. Avoid racing with other readers.
	for {
		select {
		case <-e.dead:
			return 0, nil, io.EOF
		case <-e.available:
			n, addr, ok := e.tryConsume(p)
			if ok {
				return n, addr, nil
			}
		}
	}
}

// WriteTo writes p to the underlying socket, addressed to addr.
func (e *Endpoint) WriteTo(p []byte, addr net.Addr) (int, error) {
	return e.mux.conn.WriteTo(p, addr)
}

// LocalAddr returns the local address of the underlying socket.
func (e *Endpoint) LocalAddr() net.Addr {
	return e.mux.conn.LocalAddr()
}

// SetDeadline is a stub
func (e *Endpoint) SetDeadline(t time.Time) error {
	return nil
}

// SetReadDeadline is a stub
func (e *Endpoint) SetReadDeadline(t time.Time) error {
	return nil
}

// SetWriteDeadline is a stub
func (e *Endpoint) SetWriteDeadline(t time.Time) error {
	return nil
}
