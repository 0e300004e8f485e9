// Copyright 2019 Lanikai Labs. All rights reserved.

package main

import (
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	flag "github.com/spf13/pflag"

	relay "github.com/buldo/webrtcrelay"
	"github.com/buldo/webrtcrelay/internal/logging"
)

func main() {
	flag.Parse()

	if flagHelp {
		help()
		os.Exit(0)
	}

	if flagVersion {
		version()
		os.Exit(0)
	}

	log.SetFlags(log.LstdFlags | log.Lshortfile | log.Lmicroseconds)

	if flagLogLevel != "" {
		level, err := parseLogLevel(flagLogLevel)
		if err != nil {
			log.Fatal(err)
		}
		logging.DefaultLogger.Level = level
	}

	cfg := relay.DefaultConfig()
	cfg.IngestAddress = flagIngestAddress
	cfg.PeerListenIP = flagPeerListenIP
	cfg.TCPSinkAddress = flagTCPSinkAddr
	cfg.TCPSinkWidth = uint32(flagTCPSinkWidth)
	cfg.TCPSinkHeight = uint32(flagTCPSinkHeight)
	cfg.TCPSinkFPS = uint32(flagTCPSinkFPS)
	cfg.IngestBufferPoolSize = flagPoolSize

	svc := relay.NewService(cfg)

	log.Printf("relayd listening for ingest RTP on %s (peers bind from %s)", cfg.IngestAddress, cfg.PeerListenIP)
	if cfg.TCPSinkAddress != "" {
		log.Printf("TCP sink enabled: %s (%dx%d@%d)", cfg.TCPSinkAddress, cfg.TCPSinkWidth, cfg.TCPSinkHeight, cfg.TCPSinkFPS)
	}

	// Driving AppendClient/AcceptAnswer requires an outer signaling
	// transport, which is intentionally out of scope for this binary.
	// It hosts the service and waits for a termination signal; an
	// embedder wires its own signaling into the relay.Service value
	// returned by NewService.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Print("shutting down")
	if err := svc.Stop(); err != nil {
		log.Fatal(err)
	}
}

// parseLogLevel accepts the same names internal/logging's LOGLEVEL
// environment variable does, since internal/logging.parseLevel is not
// exported. Per-tag overrides still require LOGLEVEL at process start;
// this only adjusts the root logger's level.
func parseLogLevel(s string) (logging.Level, error) {
	switch strings.ToUpper(s) {
	case "E", "ERROR":
		return logging.Error, nil
	case "W", "WARN":
		return logging.Warn, nil
	case "I", "INFO":
		return logging.Info, nil
	case "D", "DEBUG":
		return logging.Debug, nil
	case "T", "TRACE":
		return logging.MaxLevel, nil
	default:
		return 0, errInvalidLogLevel(s)
	}
}

type errInvalidLogLevel string

func (e errInvalidLogLevel) Error() string { return "invalid log level: " + string(e) }
