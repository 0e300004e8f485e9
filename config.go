//////////////////////////////////////////////////////////////////////////////
//
// Config contains configuration data for Service, the control API.
//
// Copyright 2019 Lanikai Labs. All rights reserved.
//
//////////////////////////////////////////////////////////////////////////////

package relay

import "time"

// Config configures the relay service: where to listen for ingest RTP,
// where peer UDP sockets are bound from, and whether a secondary TCP
// restream sink is enabled.
type Config struct {
	// IngestAddress is the UDP listen address for the ingest source.
	// No RTCP is expected on this socket.
	IngestAddress string

	// PeerListenIP is the local address each peer's UDP socket binds
	// to; the bound port is chosen by the OS (":0").
	PeerListenIP string

	// TCPSinkAddress, if non-empty, is dialed once, when the first
	// AppendClient starts the ingest source, for the length-prefixed
	// restream sink.
	TCPSinkAddress string

	// TCPSinkWidth, TCPSinkHeight, TCPSinkFPS populate the 16-byte
	// startup header's width/height/fps fields.
	TCPSinkWidth, TCPSinkHeight, TCPSinkFPS uint32

	// IngestBufferPoolSize is the number of pre-allocated RTP packet
	// buffers the ingest source keeps.
	IngestBufferPoolSize int

	// HousekeepingInterval is how often the timer/housekeeping task
	// re-checks ICE liveness for every peer.
	HousekeepingInterval time.Duration
}

// DefaultConfig returns the configuration cmd/relayd falls back to when
// a flag is left unset.
func DefaultConfig() Config {
	return Config{
		IngestAddress:        "0.0.0.0:5000",
		PeerListenIP:         "0.0.0.0",
		IngestBufferPoolSize: 256,
		TCPSinkWidth:         1280,
		TCPSinkHeight:        720,
		TCPSinkFPS:           60,
		HousekeepingInterval: 1 * time.Second,
	}
}
