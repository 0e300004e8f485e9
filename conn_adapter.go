//////////////////////////////////////////////////////////////////////////////
//
// pinnedConn adapts an internal/mux.Endpoint (a net.PacketConn view over one
// byte-range of a peer's shared UDP socket) into the net.Conn a DTLS engine
// expects: a stream-shaped transport with one fixed remote address. The
// remote address is unknown until the first datagram arrives -- ICE and
// DTLS share the same 5-tuple, but the DTLS content-type range has no
// connectivity check of its own to learn it from -- so it is pinned from
// whichever address the first accepted datagram came from.
//
//////////////////////////////////////////////////////////////////////////////

package relay

import (
	"net"
	"sync"
	"time"

	"github.com/pkg/errors"
)

type addrReaderWriter interface {
	ReadFrom(p []byte) (int, net.Addr, error)
	WriteTo(p []byte, addr net.Addr) (int, error)
	LocalAddr() net.Addr
}

type pinnedConn struct {
	ep addrReaderWriter

	mu     sync.Mutex
	remote net.Addr
}

func newPinnedConn(ep addrReaderWriter) *pinnedConn {
	return &pinnedConn{ep: ep}
}

// Read blocks until a datagram arrives from the pinned address, pinning it
// on the first datagram received. Datagrams from any other address are
// discarded; this only matters if the peer changes its source port
// mid-handshake, which a single 5-tuple session does not expect.
func (c *pinnedConn) Read(b []byte) (int, error) {
	for {
		n, addr, err := c.ep.ReadFrom(b)
		if err != nil {
			return 0, err
		}

		c.mu.Lock()
		if c.remote == nil {
			c.remote = addr
		}
		match := c.remote.String() == addr.String()
		c.mu.Unlock()

		if match {
			return n, nil
		}
	}
}

func (c *pinnedConn) Write(b []byte) (int, error) {
	c.mu.Lock()
	addr := c.remote
	c.mu.Unlock()
	if addr == nil {
		return 0, errors.New("relay: write before remote address is known")
	}
	return c.ep.WriteTo(b, addr)
}

// Close is a no-op: the underlying socket and mux are owned by the peer
// session, not by this adapter.
func (c *pinnedConn) Close() error { return nil }

func (c *pinnedConn) LocalAddr() net.Addr { return c.ep.LocalAddr() }

func (c *pinnedConn) RemoteAddr() net.Addr {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remote
}

func (c *pinnedConn) SetDeadline(t time.Time) error      { return nil }
func (c *pinnedConn) SetReadDeadline(t time.Time) error  { return nil }
func (c *pinnedConn) SetWriteDeadline(t time.Time) error { return nil }
