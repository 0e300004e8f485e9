package ice

import (
	"sort"
	"sync"
	"time"

	"github.com/buldo/webrtcrelay/internal/logging"
)

var log = logging.DefaultLogger.WithTag("ice")

// Checklist tracks candidate pairs for a single peer's media component. We
// are always the controlled, "lite" agent: we never originate connectivity
// checks, only verify and answer inbound ones. A
// pair reaches Succeeded the moment an inbound binding request on it
// passes verification (the reply is sent right after) -- there is no outbound check to
// wait on, so there is no InProgress phase driven from our side.
type Checklist struct {
	mu sync.Mutex

	state checklistState

	username       string // "local_ufrag:remote_ufrag"
	localPassword  string
	remotePassword string

	nextPairID int
	pairs      []*CandidatePair

	// selected is the first pair nominated via remote USE-CANDIDATE.
	selected *CandidatePair

	onStateChange func(ConnectionState)
}

type checklistState int

const (
	checklistRunning   checklistState = 0
	checklistCompleted checklistState = 1
	checklistFailed    checklistState = 2
)

func newChecklist(username, localPassword, remotePassword string) *Checklist {
	return &Checklist{
		username:       username,
		localPassword:  localPassword,
		remotePassword: remotePassword,
	}
}

// addCandidatePairs pairs up local candidates with remote candidates and
// adds any new pairs to the checklist, then re-sorts and prunes.
func (cl *Checklist) addCandidatePairs(locals, remotes []Candidate) {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	for _, local := range locals {
		for _, remote := range remotes {
			if canBePaired(local, remote) && !cl.hasPairLocked(local, remote) {
				p := newCandidatePair(cl.nextPairID, local, remote)
				cl.nextPairID++
				p.state = Waiting
				log.Debug("Adding candidate pair %s", p)
				cl.pairs = append(cl.pairs, p)
			}
		}
	}

	cl.pairs = sortAndPrune(cl.pairs)
}

func (cl *Checklist) hasPairLocked(local, remote Candidate) bool {
	for _, p := range cl.pairs {
		if p.local.address == local.address && p.remote.address == remote.address {
			return true
		}
	}
	return false
}

// Only pair candidates for the same component. Their transport addresses must be compatible.
func canBePaired(local, remote Candidate) bool {
	return local.component == remote.component &&
		local.address.protocol == remote.address.protocol &&
		local.address.family() == remote.address.family()
}

// sortAndPrune sorts the candidate pairs from highest to lowest priority, then
// prunes any redundant pairs.
func sortAndPrune(pairs []*CandidatePair) []*CandidatePair {
	// [RFC8445 §6.1.2.3] Sort pairs from highest to lowest priority.
	sort.Slice(pairs, func(i, j int) bool {
		return pairs[i].Priority() > pairs[j].Priority()
	})

	// [RFC8445 §6.1.2.4] Prune redundant pairs.
	for i := 0; i < len(pairs); i++ {
		p := pairs[i]
		switch p.state {
		case InProgress, Succeeded, Failed:
			continue
		}
		for j := 0; j < i; j++ {
			if isRedundant(p, pairs[j]) {
				log.Debug("Pruning %s in favor of %s", p.id, pairs[j].id)
				pairs = append(pairs[:i], pairs[i+1:]...)
				i--
				break
			}
		}
	}

	return pairs
}

// [RFC8445 §6.1.2.4] Two candidate pairs are redundant if they have the same
// remote candidate and same local base.
func isRedundant(p1, p2 *CandidatePair) bool {
	return p1.remote.address == p2.remote.address && p1.local.base.address == p2.local.base.address
}

// findPair returns the pair matching the given local base and remote address, if any.
func (cl *Checklist) findPair(base *Base, raddr TransportAddress) *CandidatePair {
	for _, p := range cl.pairs {
		if p.local.address == base.address && p.remote.address == raddr {
			return p
		}
	}
	return nil
}

// adoptPeerReflexiveCandidate creates a peer-reflexive remote candidate
// paired with base.
func (cl *Checklist) adoptPeerReflexiveCandidate(base *Base, raddr TransportAddress, priority uint32) *CandidatePair {
	local := makeHostCandidate(base.mid, base)
	remote := Candidate{
		mid:        base.mid,
		address:    raddr,
		typ:        prflxType,
		priority:   priority,
		foundation: computeFoundation(prflxType, raddr),
		component:  base.component,
	}
	log.Debug("New peer-reflexive candidate %s", remote)

	p := newCandidatePair(cl.nextPairID, local, remote)
	cl.nextPairID++
	p.state = Waiting
	cl.pairs = append(cl.pairs, p)
	cl.pairs = sortAndPrune(cl.pairs)
	return p
}

// handleBindingRequest processes a verified inbound STUN binding request:
// learn a peer-reflexive candidate for an unknown sender, mark the pair
// Succeeded, and nominate it if the request carries USE-CANDIDATE.
func (cl *Checklist) handleBindingRequest(req *stunMessage, raddr TransportAddress, base *Base) *CandidatePair {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	p := cl.findPair(base, raddr)
	if p == nil {
		p = cl.adoptPeerReflexiveCandidate(base, raddr, req.getPriority())
	}
	p.state = Succeeded
	p.lastRecv = time.Now()

	if req.hasUseCandidate() && !p.nominated {
		log.Info("Nominating %s", p)
		p.nominated = true
		cl.updateStateLocked()
	}

	return p
}

func (cl *Checklist) updateStateLocked() {
	if cl.state != checklistRunning {
		return
	}
	for _, p := range cl.pairs {
		if p.nominated && p.state == Succeeded {
			cl.selected = p
			cl.state = checklistCompleted
			if cl.onStateChange != nil {
				cl.onStateChange(StateConnected)
			}
			return
		}
	}
}

// fail marks the checklist Failed if no pair remains viable.
func (cl *Checklist) fail() {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	if cl.state != checklistRunning {
		return
	}
	for _, p := range cl.pairs {
		if p.state != Failed {
			return
		}
	}
	cl.state = checklistFailed
	if cl.onStateChange != nil {
		cl.onStateChange(StateFailed)
	}
}

func (cl *Checklist) Selected() *CandidatePair {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	return cl.selected
}

// CheckLiveness implements the housekeeping liveness task: once
// nominated, a pair that has gone disconnectAfter
// without a successful check transitions to StateDisconnected; one
// that has gone failAfter (always >= disconnectAfter) transitions to
// StateFailed. It is a no-op before nomination or once the checklist
// has already failed.
func (cl *Checklist) CheckLiveness(now time.Time, disconnectAfter, failAfter time.Duration) ConnectionState {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	if cl.selected == nil || cl.state != checklistCompleted {
		return StateNew
	}

	idle := now.Sub(cl.selected.lastRecv)
	switch {
	case idle >= failAfter:
		return StateFailed
	case idle >= disconnectAfter:
		return StateDisconnected
	default:
		return StateConnected
	}
}
