// Package mux demultiplexes a single UDP socket (one peer's 5-tuple) into
// several protocol-specific Endpoints by inspecting each datagram's leading
// bytes: one Mux per peer, one Endpoint per protocol class (STUN, DTLS,
// RTP, RTCP). It operates directly on a net.PacketConn: a peer socket has
// no fixed remote address until ICE nominates a pair, so every dispatch
// needs the sender's net.Addr alongside the bytes, not just a byte stream.
package mux

import (
	"net"
	"sync"

	"github.com/buldo/webrtcrelay/internal/logging"
)

var log = logging.DefaultLogger.WithTag("mux")

const (
	// Number of packets to buffer for each endpoint.
	numBufferPackets = 32
)

// Mux multiplexes datagrams read from one net.PacketConn across a set of
// byte-pattern-matched Endpoints.
type Mux struct {
	lock       sync.Mutex
	conn       net.PacketConn
	endpoints  map[*Endpoint]MatchFunc
	bufferSize int
}

// NewMux creates a new Mux. The Mux takes ownership of conn and is
// responsible for closing it.
func NewMux(conn net.PacketConn, bufferSize int) *Mux {
	m := &Mux{
		conn:       conn,
		endpoints:  make(map[*Endpoint]MatchFunc),
		bufferSize: bufferSize,
	}

	go m.readLoop()

	return m
}

// NewEndpoint creates a new Endpoint whose traffic is selected by f.
func (m *Mux) NewEndpoint(f MatchFunc) *Endpoint {
	e := createEndpoint(m, numBufferPackets, m.bufferSize)

	m.lock.Lock()
	m.endpoints[e] = f
	m.lock.Unlock()

	return e
}

// RemoveEndpoint removes an endpoint from the Mux.
func (m *Mux) RemoveEndpoint(e *Endpoint) {
	m.lock.Lock()
	delete(m.endpoints, e)
	m.lock.Unlock()
}

// Close closes the Mux and all associated Endpoints.
func (m *Mux) Close() error {
	m.lock.Lock()
	for e := range m.endpoints {
		e.close()
		delete(m.endpoints, e)
	}
	m.lock.Unlock()

	return m.conn.Close()
}

// readLoop continually reads from the underlying socket and dispatches to
// the matching endpoint. It terminates on read error, e.g. when the
// underlying connection is closed.
func (m *Mux) readLoop() {
	defer m.Close()

	buf := make([]byte, m.bufferSize)
	for {
		n, addr, err := m.conn.ReadFrom(buf)
		if err != nil {
			return
		}

		// Dispatching to endpoints is done with a "give a penny, take a
		// penny" approach: the datagram is delivered to the endpoint in
		// exchange for one of its unused buffers.
		buf = m.dispatch(buf[:n], addr)

		// Resize the buffer to its full capacity, since dispatch may have
		// shrunk it.
		buf = buf[0:cap(buf)]
	}
}

func (m *Mux) dispatch(buf []byte, addr net.Addr) []byte {
	var endpoint *Endpoint

	m.lock.Lock()
	for e, f := range m.endpoints {
		if f(buf) {
			endpoint = e
			break
		}
	}
	m.lock.Unlock()

	if endpoint == nil {
		if len(buf) > 0 {
			log.Warn("no endpoint registered for packet from %s starting with byte %d", addr, buf[0])
		} else {
			log.Warn("dropping empty datagram from %s", addr)
		}
		return buf
	}

	return endpoint.deliver(buf, addr)
}
