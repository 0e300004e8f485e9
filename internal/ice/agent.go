// Package ice implements the controlled, "lite" ICE agent role: gather a
// single host candidate per peer, verify and answer inbound STUN binding
// requests, and surface connection state as the remote peer nominates a
// pair.
package ice

import (
	"crypto/rand"
	"fmt"
	"net"
	"sync"
	"time"
)

// retransmissionTimeout is the base STUN retransmission interval (RTO)
// liveness timeouts below are expressed as a multiple of.
const retransmissionTimeout = 5 * time.Second

// livenessDisconnectAfter and livenessFailAfter: no successful liveness
// check in N x RTO transitions a peer to Disconnected; a longer timeout
// transitions it to Failed. N=5.
const (
	livenessDisconnectAfter = 5 * retransmissionTimeout
	livenessFailAfter       = livenessDisconnectAfter + 2*5*retransmissionTimeout
)

// Base is the local transport ("the address an ICE agent sends from") for a
// single peer's media component: one UDP socket, bound once at peer setup.
type Base struct {
	address   TransportAddress
	component int
	mid       string

	conn net.PacketConn
}

// ConnectionState is one of the ICE connection states a peer session
// transitions through.
type ConnectionState int

const (
	StateNew ConnectionState = iota
	StateChecking
	StateConnected
	StateDisconnected
	StateFailed
	StateClosed
)

func (s ConnectionState) String() string {
	switch s {
	case StateNew:
		return "new"
	case StateChecking:
		return "checking"
	case StateConnected:
		return "connected"
	case StateDisconnected:
		return "disconnected"
	case StateFailed:
		return "failed"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Agent runs the ICE-lite role for one peer's single media component. It
// answers STUN binding requests through the net.PacketConn given to
// NewAgent (the peer session passes its demultiplexer's STUN endpoint,
// which receives only datagrams whose first byte is 0-3); it does not own
// or close that connection.
type Agent struct {
	mu sync.Mutex

	base *Base

	localUfrag, localPassword   string
	remoteUfrag, remotePassword string

	checklist *Checklist

	state         ConnectionState
	onStateChange func(ConnectionState)

	remotes []Candidate
}

const iceChars = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789+/"

// generateCredential returns a random string of n characters drawn from the
// ice-char alphabet (RFC 8445 section 5.1.1.1).
func generateCredential(n int) string {
	b := make([]byte, n)
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		panic(err) // crypto/rand failure is unrecoverable
	}
	for i, v := range buf {
		b[i] = iceChars[int(v)%len(iceChars)]
	}
	return string(b)
}

// NewAgent creates an ICE-lite agent bound to conn, gathering the single
// host candidate derived from conn's local address.
func NewAgent(conn net.PacketConn, mid string, component int) *Agent {
	base := &Base{
		address:   makeTransportAddress(conn.LocalAddr()),
		component: component,
		mid:       mid,
		conn:      conn,
	}
	a := &Agent{
		base:          base,
		localUfrag:    generateCredential(12),
		localPassword: generateCredential(24),
		state:         StateNew,
	}
	return a
}

// LocalCandidates returns the candidates to place in the SDP offer.
func (a *Agent) LocalCandidates() []Candidate {
	return []Candidate{makeHostCandidate(a.base.mid, a.base)}
}

func (a *Agent) LocalUfrag() string    { return a.localUfrag }
func (a *Agent) LocalPassword() string { return a.localPassword }

// SetRemoteCredentials records the ufrag/password advertised by the peer in
// its SDP answer.
func (a *Agent) SetRemoteCredentials(ufrag, password string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.remoteUfrag = ufrag
	a.remotePassword = password
	a.checklist = newChecklist(a.localUfrag+":"+ufrag, a.localPassword, password)
	a.checklist.onStateChange = a.setState
}

// AddRemoteCandidate adds a candidate parsed from the SDP answer to the
// checklist.
func (a *Agent) AddRemoteCandidate(c Candidate) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.remotes = append(a.remotes, c)
	if a.checklist != nil {
		a.checklist.addCandidatePairs(a.LocalCandidates(), a.remotes)
	}
}

func (a *Agent) OnStateChange(f func(ConnectionState)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.onStateChange = f
}

func (a *Agent) setState(s ConnectionState) {
	a.mu.Lock()
	if a.state == s {
		a.mu.Unlock()
		return
	}
	a.state = s
	cb := a.onStateChange
	a.mu.Unlock()
	if cb != nil {
		cb(s)
	}
}

func (a *Agent) State() ConnectionState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Selected returns the nominated candidate pair's remote address, once
// connected.
func (a *Agent) Selected() (net.Addr, bool) {
	a.mu.Lock()
	cl := a.checklist
	a.mu.Unlock()
	if cl == nil {
		return nil, false
	}
	p := cl.Selected()
	if p == nil {
		return nil, false
	}
	return p.remote.address.netAddr(), true
}

// HandlePacket processes a single inbound STUN message arriving from raddr.
// It returns false if data does not look like a STUN message at all.
func (a *Agent) HandlePacket(data []byte, raddr net.Addr) (bool, error) {
	msg, err := parseStunMessage(data)
	if msg == nil {
		return false, err
	}
	if err != nil {
		return true, err
	}
	if msg.method != stunBindingMethod {
		return true, nil
	}

	a.mu.Lock()
	cl := a.checklist
	a.mu.Unlock()
	if cl == nil {
		return true, fmt.Errorf("ice: binding request before remote credentials set")
	}

	switch msg.class {
	case stunRequest:
		return true, a.handleBindingRequest(cl, msg, raddr)
	default:
		// We never send requests ourselves, so responses/indications
		// addressed to us are unexpected; ignore rather than error.
		return true, nil
	}
}

func (a *Agent) handleBindingRequest(cl *Checklist, req *stunMessage, raddr net.Addr) error {
	a.setState(StateChecking)

	expectedUsername := cl.username
	if req.getUsername() != expectedUsername {
		return a.reject(req, raddr, stunErrorUnauthorized, "bad username")
	}
	if !req.verifyMessageIntegrity(cl.localPassword) {
		return a.reject(req, raddr, stunErrorUnauthorized, "bad message integrity")
	}
	if !req.verifyFingerprint() {
		return fmt.Errorf("ice: binding request failed fingerprint check")
	}

	ta := makeTransportAddress(raddr)
	cl.handleBindingRequest(req, ta, a.base)

	resp := newStunBindingResponse(req.transactionID, raddr, cl.localPassword)
	_, err := a.base.conn.WriteTo(resp.Bytes(), raddr)
	return err
}

// reject answers a failed verification with a STUN error response
// (401/438 cause the remote side to retry).
func (a *Agent) reject(req *stunMessage, raddr net.Addr, code int, reason string) error {
	resp := newStunBindingErrorResponse(req.transactionID, code, reason)
	_, err := a.base.conn.WriteTo(resp.Bytes(), raddr)
	return err
}

// CheckLiveness runs the housekeeping liveness check against the
// nominated pair, transitioning to Disconnected or Failed if too much
// time has passed since its last successful check. Intended to be
// called periodically (e.g. every RTO) by the peer session's
// timer/housekeeping task.
func (a *Agent) CheckLiveness(now time.Time) {
	a.mu.Lock()
	cl := a.checklist
	a.mu.Unlock()
	if cl == nil {
		return
	}

	switch cl.CheckLiveness(now, livenessDisconnectAfter, livenessFailAfter) {
	case StateDisconnected:
		a.setState(StateDisconnected)
	case StateFailed:
		a.setState(StateFailed)
	}
}

// Close marks the agent Closed. The underlying socket is owned by the
// caller (the peer session), not the Agent.
func (a *Agent) Close() {
	a.setState(StateClosed)
}
