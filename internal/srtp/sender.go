// Copyright 2019 Lanikai Labs. All rights reserved.

package srtp

import (
	"net"

	"github.com/buldo/webrtcrelay/internal/rtp"
)

// Writer is the subset of net.PacketConn a Sender needs to emit datagrams
// to one fixed remote address. internal/mux.Endpoint satisfies this.
type Writer interface {
	WriteTo(p []byte, addr net.Addr) (int, error)
}

// Sender protects an ingested RTP stream for one peer: it rewrites the
// shared ingest SSRC to the peer's own local SSRC, rebases sequence
// numbers onto a per-peer local numbering so that two peers joining the
// stream at different times each see a sequence starting near zero, and
// encrypts via SRTP before writing to the peer's UDP socket. It is not
// safe for concurrent use by multiple goroutines; exactly one goroutine
// per peer pushes fan-out packets through its Sender.
type Sender struct {
	conn Writer
	addr net.Addr

	payloadType uint8
	localSSRC   uint32

	context *Context

	rebased    bool
	baseIngest uint16
	baseLocal  uint16
}

// NewSender derives an SRTP context from masterKey/masterSalt (the DTLS-SRTP
// exported keying material for the relay's own sending direction, i.e. the
// server write key and salt, since the relay always plays the DTLS server
// role) and prepares to emit to addr over conn.
func NewSender(conn Writer, addr net.Addr, payloadType uint8, localSSRC uint32, masterKey, masterSalt []byte) (*Sender, error) {
	ctx, err := CreateContext(masterKey, masterSalt)
	if err != nil {
		return nil, err
	}

	return &Sender{
		conn:        conn,
		addr:        addr,
		payloadType: payloadType,
		localSSRC:   localSSRC,
		context:     ctx,
	}, nil
}

// DecipherRTCP decrypts an SRTCP compound packet arriving from the peer,
// using the same session keys Send encrypts outbound SRTP with (DTLS-SRTP
// derives RTP and RTCP keys from one key exchange). The returned slice
// aliases dst when its capacity already matches src's length.
func (s *Sender) DecipherRTCP(dst, src []byte) ([]byte, error) {
	return s.context.DecipherRTCP(dst, src)
}

// Send rewrites pkt's SSRC and sequence number for this peer, encrypts it,
// and writes the resulting SRTP packet to the peer's address. The packet's
// timestamp and marker bit pass through unchanged; only identity fields a
// single shared ingest stream cannot hand out per-peer are rewritten.
func (s *Sender) Send(pkt *rtp.Packet) error {
	if !s.rebased {
		s.baseIngest = pkt.SequenceNumber
		s.baseLocal = 0
		s.rebased = true
	}

	localSeq := s.baseLocal + (pkt.SequenceNumber - s.baseIngest)

	payload := make([]byte, len(pkt.Payload))
	copy(payload, pkt.Payload)

	m := rtpMsg{
		payloadType:    s.payloadType,
		marker:         pkt.Marker,
		sequenceNumber: localSeq,
		timestamp:      pkt.Timestamp,
		ssrc:           s.localSSRC,
		payload:        payload,
	}

	if !s.context.encrypt(&m) {
		return errEncryptFailed
	}

	_, err := s.conn.WriteTo(m.marshal(), s.addr)
	return err
}
