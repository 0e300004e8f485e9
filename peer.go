//////////////////////////////////////////////////////////////////////////////
//
// Peer session: owns one peer's UDP socket and the ICE/DTLS/SRTP
// machinery layered over it, and tracks the state machine
// "new -> checking -> connected -> disconnected/failed -> closed".
//
//////////////////////////////////////////////////////////////////////////////

package relay

import (
	"context"
	"crypto/rand"
	"crypto/tls"
	"net"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/buldo/webrtcrelay/internal/dtls"
	"github.com/buldo/webrtcrelay/internal/ice"
	"github.com/buldo/webrtcrelay/internal/logging"
	"github.com/buldo/webrtcrelay/internal/metrics"
	"github.com/buldo/webrtcrelay/internal/mux"
	"github.com/buldo/webrtcrelay/internal/rtcp"
	"github.com/buldo/webrtcrelay/internal/rtp"
	"github.com/buldo/webrtcrelay/internal/srtp"
)

var peerLog = logging.DefaultLogger.WithTag("peer")

// dtlsHandshakeTimeout bounds how long a peer waits for the DTLS handshake
// to complete once its answer has been accepted.
const dtlsHandshakeTimeout = 30 * time.Second

const muxBufferSize = 1500

// PeerState is the peer session's own state machine, distinct from (and
// driven partly by) the ICE agent's ConnectionState: it additionally
// requires the DTLS handshake to have completed before reaching Connected.
type PeerState int

const (
	PeerNew PeerState = iota
	PeerChecking
	PeerConnected
	PeerDisconnected
	PeerFailed
	PeerClosed
)

func (s PeerState) String() string {
	switch s {
	case PeerNew:
		return "new"
	case PeerChecking:
		return "checking"
	case PeerConnected:
		return "connected"
	case PeerDisconnected:
		return "disconnected"
	case PeerFailed:
		return "failed"
	case PeerClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// PeerStateChange is published on a peer's state transitions, to the event
// bus the service shares among all its peers. The stream multiplexer does
// not subscribe to it: it sends to every registered peer, and Peer.Send
// does nothing until the peer's SRTP sender exists.
type PeerStateChange struct {
	PeerID    PeerID
	OldState  PeerState
	NewState  PeerState
	Timestamp time.Time
}

// Peer is one subscriber's WebRTC session: ICE-lite agent, DTLS server
// handshake, and SRTP sender, all multiplexed over a single UDP socket.
type Peer struct {
	id  PeerID
	cfg Config

	metrics *metrics.Counters

	cert             tls.Certificate
	localFingerprint string
	localSSRC        uint32

	conn net.PacketConn
	mux  *mux.Mux

	stunEndpoint *mux.Endpoint
	dtlsEndpoint *mux.Endpoint
	rtpEndpoint  *mux.Endpoint
	rtcpEndpoint *mux.Endpoint

	iceAgent *ice.Agent

	mu          sync.Mutex
	state       PeerState
	sender      *srtp.Sender
	dtlsStarted bool

	stateBus *EventBus[PeerStateChange]

	closeOnce sync.Once
	stopCh    chan struct{}
}

// newPeer allocates a peer session: binds its UDP socket, builds the
// protocol demultiplexer and ICE-lite agent, and starts the read loops
// that service STUN, RTCP, and (dropped) peer-originated RTP traffic. The
// DTLS accept loop is started separately, once AcceptAnswer supplies the
// expected remote fingerprint.
func newPeer(cfg Config, cert tls.Certificate, counters *metrics.Counters, bus *EventBus[PeerStateChange]) (*Peer, error) {
	conn, err := net.ListenPacket("udp", net.JoinHostPort(cfg.PeerListenIP, "0"))
	if err != nil {
		return nil, errors.Wrap(err, "relay: bind peer UDP socket")
	}

	fingerprint, err := dtls.Fingerprint(cert)
	if err != nil {
		conn.Close()
		return nil, err
	}

	m := mux.NewMux(conn, muxBufferSize)

	p := &Peer{
		id:               newPeerID(),
		cfg:              cfg,
		metrics:          counters,
		cert:             cert,
		localFingerprint: fingerprint,
		localSSRC:        randomSSRC(),
		conn:             conn,
		mux:              m,
		stunEndpoint:     m.NewEndpoint(mux.MatchSTUN),
		dtlsEndpoint:     m.NewEndpoint(mux.MatchDTLS),
		rtpEndpoint:      m.NewEndpoint(mux.MatchRTP),
		rtcpEndpoint:     m.NewEndpoint(mux.MatchRTCP),
		state:            PeerNew,
		stateBus:         bus,
		stopCh:           make(chan struct{}),
	}

	p.iceAgent = ice.NewAgent(p.stunEndpoint, "0", 1)
	p.iceAgent.OnStateChange(p.onICEStateChange)

	go p.stunLoop()
	go p.rtcpLoop()
	go p.rtpLoop()

	return p, nil
}

func randomSSRC() uint32 {
	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic(err)
	}
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}

// ID returns the peer's opaque identifier.
func (p *Peer) ID() PeerID { return p.id }

// State returns the peer session's current state.
func (p *Peer) State() PeerState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Subscribe returns a channel of state-change events from the bus this peer
// publishes to. The bus is shared by every peer of the service, so the
// channel carries all of their events, each tagged with its PeerID.
func (p *Peer) Subscribe(n int) <-chan PeerStateChange {
	return p.stateBus.Subscribe(n)
}

func (p *Peer) setState(s PeerState) {
	p.mu.Lock()
	if p.state == s || p.state == PeerClosed {
		p.mu.Unlock()
		return
	}
	old := p.state
	p.state = s
	p.mu.Unlock()

	peerLog.Info("peer %s -> %s", p.id, s)
	p.stateBus.Publish(PeerStateChange{PeerID: p.id, OldState: old, NewState: s, Timestamp: time.Now()})
}

func (p *Peer) onICEStateChange(s ice.ConnectionState) {
	switch s {
	case ice.StateChecking:
		p.setState(PeerChecking)
	case ice.StateConnected:
		p.maybeConnected()
	case ice.StateDisconnected:
		p.setState(PeerDisconnected)
	case ice.StateFailed:
		p.setState(PeerFailed)
	}
}

// maybeConnected transitions to Connected only once both conditions
// hold: a nominated ICE pair and a completed DTLS handshake (the
// sender is created only after that completes).
func (p *Peer) maybeConnected() {
	p.mu.Lock()
	ready := p.sender != nil
	p.mu.Unlock()
	if ready && p.iceAgent.State() == ice.StateConnected {
		p.setState(PeerConnected)
	}
}

// acceptAnswer applies rd's ICE credentials and candidates to the agent
// and, on the first call only, starts the DTLS accept loop with the peer's
// remote fingerprint. rd has already been validated by parseAnswer.
func (p *Peer) acceptAnswer(rd *remoteDescription) {
	p.iceAgent.SetRemoteCredentials(rd.iceUfrag, rd.icePassword)
	for _, c := range rd.candidates {
		p.iceAgent.AddRemoteCandidate(c)
	}

	p.mu.Lock()
	if p.dtlsStarted {
		p.mu.Unlock()
		return
	}
	p.dtlsStarted = true
	p.mu.Unlock()

	go p.runDTLS(rd.fingerprintHex)
}

func (p *Peer) stunLoop() {
	buf := make([]byte, muxBufferSize)
	for {
		n, addr, err := p.stunEndpoint.ReadFrom(buf)
		if err != nil {
			return
		}
		if _, err := p.iceAgent.HandlePacket(buf[:n], addr); err != nil {
			peerLog.Warn("peer %s: ICE error from %s: %v", p.id, addr, err)
		}
	}
}

// rtcpLoop logs inbound peer RTCP feedback (NACK, PLI, ...) for
// visibility; nothing currently acts on it. DTLS-SRTP protects RTCP the
// same way it protects RTP, so every datagram here is SRTCP-encrypted
// and must be deciphered with the peer's SRTP sender before parsing.
func (p *Peer) rtcpLoop() {
	buf := make([]byte, muxBufferSize)
	for {
		n, addr, err := p.rtcpEndpoint.ReadFrom(buf)
		if err != nil {
			return
		}

		p.mu.Lock()
		sender := p.sender
		p.mu.Unlock()
		if sender == nil {
			// RTCP arriving before the DTLS handshake completes cannot be
			// deciphered yet; drop it.
			continue
		}

		plain, err := sender.DecipherRTCP(nil, buf[:n])
		if err != nil {
			peerLog.Warn("peer %s: decipher RTCP from %s: %v", p.id, addr, err)
			continue
		}

		packets, err := rtcp.UnmarshalCompound(plain)
		if err != nil {
			peerLog.Warn("peer %s: malformed RTCP from %s: %v", p.id, addr, err)
		}
		for _, pkt := range packets {
			peerLog.Debug("peer %s: received RTCP %T", p.id, pkt)
		}
	}
}

// rtpLoop drains and discards RTP arriving on the peer socket: peers do
// not send video.
func (p *Peer) rtpLoop() {
	buf := make([]byte, muxBufferSize)
	for {
		_, _, err := p.rtpEndpoint.ReadFrom(buf)
		if err != nil {
			return
		}
		p.metrics.IncDemuxUnknownByteRange()
	}
}

func (p *Peer) runDTLS(expectedFingerprint string) {
	adapter := newPinnedConn(p.dtlsEndpoint)

	ctx, cancel := context.WithTimeout(context.Background(), dtlsHandshakeTimeout)
	defer cancel()

	conn, err := dtls.Accept(ctx, adapter, p.cert, expectedFingerprint)
	if err != nil {
		peerLog.Warn("peer %s: DTLS handshake failed: %v", p.id, err)
		p.setState(PeerFailed)
		return
	}

	keys, err := conn.ExportSRTPKeys()
	if err != nil {
		peerLog.Warn("peer %s: export SRTP keys: %v", p.id, err)
		p.setState(PeerFailed)
		return
	}

	// We are always the DTLS server, so our outbound SRTP is protected
	// with the server write key/salt (RFC 5764 section 4.2).
	sender, err := srtp.NewSender(p.dtlsEndpoint, adapter.RemoteAddr(), videoPayloadType, p.localSSRC, keys.ServerWriteKey, keys.ServerWriteSalt)
	if err != nil {
		peerLog.Warn("peer %s: create SRTP sender: %v", p.id, err)
		p.setState(PeerFailed)
		return
	}

	p.mu.Lock()
	p.sender = sender
	p.mu.Unlock()

	p.maybeConnected()
}

// Send encrypts and forwards one ingest RTP packet to this peer. It is a
// no-op before the SRTP sender is ready.
func (p *Peer) Send(pkt *rtp.Packet) error {
	p.mu.Lock()
	sender := p.sender
	p.mu.Unlock()
	if sender == nil {
		return nil
	}
	return sender.Send(pkt)
}

// Close tears down the peer session. Terminal: the UDP socket is
// closed exactly once.
func (p *Peer) Close() error {
	var err error
	p.closeOnce.Do(func() {
		close(p.stopCh)
		p.iceAgent.Close()
		err = p.mux.Close()
		p.setState(PeerClosed)
	})
	return err
}
