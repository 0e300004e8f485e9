package main

import (
	"fmt"

	"github.com/fatih/color"
	flag "github.com/spf13/pflag"
)

var (
	flagIngestAddress string
	flagPeerListenIP  string
	flagTCPSinkAddr   string
	flagTCPSinkWidth  int
	flagTCPSinkHeight int
	flagTCPSinkFPS    int
	flagPoolSize      int
	flagLogLevel      string
	flagHelp          bool
	flagVersion       bool
)

func init() {
	flag.StringVarP(&flagIngestAddress, "ingest", "i", "0.0.0.0:5000", "Ingest RTP listen address")
	flag.StringVarP(&flagPeerListenIP, "peer-ip", "p", "0.0.0.0", "Local address each peer's UDP socket binds to")
	flag.StringVarP(&flagTCPSinkAddr, "tcp-sink", "t", "", "Restream address for the length-prefixed TCP sink (disabled if empty)")
	flag.IntVarP(&flagTCPSinkWidth, "width", "x", 1280, "Width reported in the TCP sink startup header")
	flag.IntVarP(&flagTCPSinkHeight, "height", "y", 720, "Height reported in the TCP sink startup header")
	flag.IntVarP(&flagTCPSinkFPS, "fps", "f", 60, "Frame rate reported in the TCP sink startup header")
	flag.IntVarP(&flagPoolSize, "pool-size", "n", 256, "Number of pre-allocated ingest RTP buffers")
	flag.StringVarP(&flagLogLevel, "log-level", "l", "", "Log level override (error, warn, info, debug, trace)")

	flag.BoolVarP(&flagHelp, "help", "h", false, "Print usage information and exit")
	flag.BoolVarP(&flagVersion, "version", "v", false, "Print version information and exit")
}

const helpString = `Fan out one RTP video ingest to many WebRTC peers

Usage: relayd [OPTION]...

Ingest:
  -i, --ingest=ADDR       Ingest RTP listen address (default: 0.0.0.0:5000)
  -n, --pool-size=NUM     Pre-allocated ingest buffer count (default: 256)

Peers:
  -p, --peer-ip=ADDR      Local bind address for per-peer UDP sockets (default: 0.0.0.0)

TCP restream:
  -t, --tcp-sink=ADDR     Dial ADDR and restream length-prefixed RTP payloads
  -x, --width=NUM         Width reported in the sink startup header (default: 1280)
  -y, --height=NUM        Height reported in the sink startup header (default: 720)
  -f, --fps=NUM           FPS reported in the sink startup header (default: 60)

The FEC codec (internal/fec, internal/gf256) is a self-contained library
consumed by an adjacent radio pipeline outside this binary; relayd has
no flags for it.

Miscellaneous:
  -l, --log-level=LEVEL   Log level override (error, warn, info, debug, trace)
  -h, --help              Prints this help message and exits
  -v, --version           Prints version information and exits
`

// help prints usage information; main exits afterwards.
func help() {
	r := color.New(color.FgRed)
	y := color.New(color.FgYellow)
	b := color.New(color.FgCyan)

	//                 _                 _
	//  _ __  ___ | | __ _ _   _  __| |
	// | '__|/ _ \| |/ _` | | | |/ _` |
	// | |  |  __/| | (_| | |_| | (_| |
	// |_|   \___||_|\__,_|\__, |\__,_|
	//                     |___/

	r.Printf(" _ __ ")
	y.Printf(" ___ ")
	b.Printf("| | ")
	y.Printf("__ _ ")
	r.Printf(" _   _ ")
	y.Println(" __| |")

	r.Printf("| '__|")
	y.Printf("/ _ \\")
	b.Printf("| |")
	y.Printf("/ _` |")
	r.Printf("| | | |")
	y.Println("/ _` |")

	r.Printf("| |  ")
	y.Printf("|  __/")
	b.Printf("| |")
	y.Printf("| (_| |")
	r.Printf("| |_| |")
	y.Println("| (_| |")

	r.Printf("|_|   ")
	y.Printf(" \\___|")
	b.Printf("|_|")
	y.Printf(" \\__,_|")
	r.Printf(" \\__, |")
	y.Println(" \\__,_|")

	fmt.Println(helpString)
}

// relayVersion is set at build time via -ldflags; "dev" otherwise.
var relayVersion = "dev"

// version prints version information; main exits afterwards.
func version() {
	fmt.Printf("relayd version %s\n", relayVersion)
}
