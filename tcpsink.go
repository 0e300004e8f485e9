//////////////////////////////////////////////////////////////////////////////
//
// TCP raw sink: a secondary restream path forwarding the same ingest RTP
// payloads to a single length-prefixed TCP consumer.
//
// The 16-byte startup header uses non-overlapping 4-byte fields at offsets
// 0, 4, 8, 12 (magic, width, height, fps).
//
//////////////////////////////////////////////////////////////////////////////

package relay

import (
	"encoding/binary"
	"net"
	"sync"

	"github.com/pkg/errors"

	"github.com/buldo/webrtcrelay/internal/logging"
)

var tcpSinkLog = logging.DefaultLogger.WithTag("tcpsink")

const tcpSinkMagic = 0x00042069

// tcpSink writes a 16-byte startup header followed by a stream of
// 4-byte-length-prefixed RTP payloads to one TCP consumer.
type tcpSink struct {
	conn net.Conn

	mu       sync.Mutex
	dead     bool
	deadOnce sync.Once
}

// dialTCPSink connects to addr and writes the 16-byte startup header.
func dialTCPSink(addr string, width, height, fps uint32) (*tcpSink, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, errors.Wrap(err, "relay: dial TCP sink")
	}

	var header [16]byte
	binary.LittleEndian.PutUint32(header[0:4], tcpSinkMagic)
	binary.LittleEndian.PutUint32(header[4:8], width)
	binary.LittleEndian.PutUint32(header[8:12], height)
	binary.LittleEndian.PutUint32(header[12:16], fps)

	if _, err := conn.Write(header[:]); err != nil {
		conn.Close()
		return nil, errors.Wrap(err, "relay: write TCP sink header")
	}

	return &tcpSink{conn: conn}, nil
}

// Write sends one length-prefixed RTP payload. Writes block on the
// caller's thread, applying back-pressure rather than buffering; on
// failure the sink is marked dead and every subsequent call fails fast.
func (s *tcpSink) Write(payload []byte) error {
	s.mu.Lock()
	dead := s.dead
	s.mu.Unlock()
	if dead {
		return errTCPSinkClosed
	}

	var lenPrefix [4]byte
	binary.LittleEndian.PutUint32(lenPrefix[:], uint32(len(payload)))

	if _, err := s.conn.Write(lenPrefix[:]); err != nil {
		s.kill(err)
		return err
	}
	if _, err := s.conn.Write(payload); err != nil {
		s.kill(err)
		return err
	}
	return nil
}

func (s *tcpSink) kill(cause error) {
	s.deadOnce.Do(func() {
		tcpSinkLog.Warn("tcpsink: write failed, terminating sink: %v", cause)
		s.mu.Lock()
		s.dead = true
		s.mu.Unlock()
		s.conn.Close()
	})
}

func (s *tcpSink) Close() error {
	s.kill(errTCPSinkClosed)
	return nil
}

var errTCPSinkClosed = errors.New("relay: TCP sink is closed")
