//////////////////////////////////////////////////////////////////////////////
//
// Control API: the three operations an outer signaling transport (kept
// out of scope here) drives a relay session through: AppendClient,
// AcceptAnswer, Stop.
//
//////////////////////////////////////////////////////////////////////////////

package relay

import (
	"sync"
	"time"

	"github.com/buldo/webrtcrelay/internal/logging"
	"github.com/buldo/webrtcrelay/internal/metrics"
	"github.com/buldo/webrtcrelay/internal/rtp"
)

var serviceLog = logging.DefaultLogger.WithTag("service")

// Service is the control-plane entry point: one ingest source, one stream
// multiplexer, and the set of peers negotiated against them.
type Service struct {
	cfg Config

	metrics *metrics.Counters

	mu      sync.Mutex
	peers   map[PeerID]*Peer
	stopped bool

	ingest *ingestSource
	mux    *streamMultiplexer
	sink   *tcpSink

	stateBus *EventBus[PeerStateChange]

	housekeepingStop chan struct{}
	housekeepingDone chan struct{}
}

// NewService constructs a relay session from cfg but does not start the
// ingest source; it is started lazily by the first AppendClient.
func NewService(cfg Config) *Service {
	counters := &metrics.Counters{}
	return &Service{
		cfg:              cfg,
		metrics:          counters,
		peers:            make(map[PeerID]*Peer),
		mux:              newStreamMultiplexer(counters),
		stateBus:         NewEventBus[PeerStateChange](),
		housekeepingStop: make(chan struct{}),
		housekeepingDone: make(chan struct{}),
	}
}

// AppendClient allocates a new peer, lazily starting the ingest source and
// the housekeeping task on the first call, and returns its id and SDP
// offer.
func (s *Service) AppendClient() (PeerID, string, error) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return PeerID{}, "", errServiceStopped
	}

	firstPeer := s.ingest == nil
	s.mu.Unlock()

	if firstPeer {
		if err := s.startIngest(); err != nil {
			return PeerID{}, "", err
		}
		go s.housekeeping()
	}

	cert, err := generateCertificate()
	if err != nil {
		return PeerID{}, "", err
	}

	peer, err := newPeer(s.cfg, cert, s.metrics, s.stateBus)
	if err != nil {
		return PeerID{}, "", err
	}

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		peer.Close()
		return PeerID{}, "", errServiceStopped
	}
	s.peers[peer.ID()] = peer
	s.mu.Unlock()

	s.mux.Register(peer)

	return peer.ID(), buildOffer(peer), nil
}

func (s *Service) startIngest() error {
	var sink *tcpSink
	if s.cfg.TCPSinkAddress != "" {
		var err error
		sink, err = dialTCPSink(s.cfg.TCPSinkAddress, s.cfg.TCPSinkWidth, s.cfg.TCPSinkHeight, s.cfg.TCPSinkFPS)
		if err != nil {
			serviceLog.Warn("service: TCP sink dial failed, continuing without it: %v", err)
			sink = nil
		} else {
			s.mu.Lock()
			s.sink = sink
			s.mu.Unlock()
		}
	}

	onPacket := s.mux.Broadcast
	if sink != nil {
		onPacket = func(pkt *rtp.Packet) {
			if err := sink.Write(pkt.Payload); err != nil {
				serviceLog.Warn("service: TCP sink write failed: %v", err)
			}
			s.mux.Broadcast(pkt)
		}
	}

	ingest, err := newIngestSource(s.cfg.IngestAddress, s.cfg.IngestBufferPoolSize, s.metrics, onPacket)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.ingest = ingest
	s.mu.Unlock()

	return nil
}

// AcceptAnswer sets a peer's remote description. Each peer serializes its
// own AcceptAnswer calls (a peer only ever receives one answer, so
// serialization here amounts to rejecting a second call).
func (s *Service) AcceptAnswer(id PeerID, answer string) (SetDescriptionResult, error) {
	s.mu.Lock()
	peer, ok := s.peers[id]
	s.mu.Unlock()
	if !ok {
		return Error, errUnknownPeer
	}

	rd, result, err := parseAnswer(answer)
	if err != nil {
		return result, err
	}

	peer.mu.Lock()
	already := peer.dtlsStarted
	peer.mu.Unlock()
	if already {
		return WrongSdpTypeOfferAfterOffer, errAlreadyAnswered
	}

	peer.acceptAnswer(rd)
	return OK, nil
}

// housekeeping runs an ICE liveness check against every peer, every
// Config.HousekeepingInterval.
func (s *Service) housekeeping() {
	defer close(s.housekeepingDone)

	interval := s.cfg.HousekeepingInterval
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.housekeepingStop:
			return
		case now := <-ticker.C:
			s.mu.Lock()
			peers := make([]*Peer, 0, len(s.peers))
			for _, p := range s.peers {
				peers = append(peers, p)
			}
			s.mu.Unlock()

			for _, p := range peers {
				p.iceAgent.CheckLiveness(now)
			}
		}
	}
}

// Stop closes all peers and the ingest source.
func (s *Service) Stop() error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	ingest := s.ingest
	sink := s.sink
	peers := make([]*Peer, 0, len(s.peers))
	for _, p := range s.peers {
		peers = append(peers, p)
	}
	s.peers = make(map[PeerID]*Peer)
	s.mu.Unlock()

	close(s.housekeepingStop)
	if ingest != nil {
		<-s.housekeepingDone
	}

	s.mux.Close()
	for _, p := range peers {
		p.Close()
	}
	if sink != nil {
		sink.Close()
	}
	if ingest != nil {
		ingest.Close()
	}
	s.stateBus.Close()

	counters := s.metrics.Snapshot()
	serviceLog.Info("service stopped: ingest_exhausted=%d demux_unknown=%d fec_loss=%d peer_send_errors=%d",
		counters.IngestBufferPoolExhausted, counters.DemuxUnknownByteRange, counters.FECIrrecoverableLoss, counters.PeerSendErrors)

	return nil
}
