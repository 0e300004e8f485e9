package ice

import (
	"bufio"
	"fmt"
	"hash/crc32"
	"net"
	"strings"
)

// An ICE candidate (either local or remote).
// See [RFC8445 §5.3] for a definition of fields.
type Candidate struct {
	// The data stream that this candidate belongs to, identified by its SDP "mid" field.
	mid string

	address    TransportAddress
	typ        string
	priority   uint32
	foundation string
	component  int
	attrs      []Attribute // Extension attributes

	base *Base // nil for remote candidates
}

type Attribute struct {
	name  string
	value string
}

const (
	hostType  = "host"
	srflxType = "srflx"
	prflxType = "prflx"
	relayType = "relay"
)

func makeHostCandidate(mid string, base *Base) Candidate {
	return Candidate{
		mid:        mid,
		address:    base.address,
		typ:        hostType,
		priority:   computePriority(hostType, base.component),
		foundation: computeFoundation(hostType, base.address),
		component:  base.component,
		base:       base,
	}
}

// makePeerReflexiveCandidate builds the candidate learned the first time a
// connectivity check arrives from an address not already on the checklist.
func makePeerReflexiveCandidate(mid string, addr net.Addr, base *Base, priority uint32) Candidate {
	ta := makeTransportAddress(addr)
	return Candidate{
		mid:        mid,
		address:    ta,
		typ:        prflxType,
		priority:   priority,
		foundation: computeFoundation(prflxType, ta),
		component:  base.component,
		base:       base,
	}
}

// computePriority implements the RFC 8445 priority formula:
// (type_pref<<24) | (local_pref<<8) | (256 - component), with
// host=126, prflx=110, srflx=100, relay=0.
func computePriority(typ string, component int) uint32 {
	var typePref int
	switch typ {
	case hostType:
		typePref = 126
	case prflxType:
		typePref = 110
	case srflxType:
		typePref = 100
	case relayType:
		typePref = 0
	default:
		panic("ice: illegal candidate type: " + typ)
	}

	const localPref = 65535
	return uint32((typePref << 24) + (localPref << 8) + (256 - component))
}

// computeFoundation derives a candidate's foundation as a CRC-32 of
// {type|address|protocol}.
func computeFoundation(typ string, addr TransportAddress) string {
	fingerprint := fmt.Sprintf("%s|%s|%s", typ, addr.displayIP(), addr.protocol)
	return fmt.Sprintf("%08x", crc32.ChecksumIEEE([]byte(fingerprint)))
}

func (c *Candidate) addAttribute(name, value string) {
	c.attrs = append(c.attrs, Attribute{name, value})
}

func (c *Candidate) isReflexive() bool {
	return c.typ == srflxType || c.typ == prflxType
}

// peerPriority computes the priority of this candidate as if it were
// peer-reflexive, for use in connectivity check responses.
func (c *Candidate) peerPriority() uint32 {
	return computePriority(prflxType, c.component)
}

func (c *Candidate) sdpString() string {
	var b strings.Builder
	fmt.Fprintf(&b, "candidate:%s %d %s %d %s %d typ %s",
		c.foundation, c.component, c.address.protocol, c.priority, c.address.displayIP(), c.address.port, c.typ)
	for _, a := range c.attrs {
		fmt.Fprintf(&b, " %s %s", a.name, a.value)
	}
	return b.String()
}

func (c *Candidate) Mid() string {
	return c.mid
}

func (c Candidate) String() string {
	return c.sdpString()
}

// ParseCandidate parses an SDP a=candidate attribute value of the form
//
//	candidate:{foundation} {component-id} {protocol} {priority} {address} {port} typ {type} ...
//
// See https://tools.ietf.org/html/draft-ietf-mmusic-ice-sip-sdp-24#section-4.1
func ParseCandidate(desc string, mid string) (Candidate, error) {
	c := Candidate{mid: mid}
	r := strings.NewReader(desc)

	var protocol, ip, port string
	_, err := fmt.Fscanf(r, "candidate:%s %d %s %d %s %s typ %s",
		&c.foundation, &c.component, &protocol, &c.priority, &ip, &port, &c.typ)
	if err != nil {
		return Candidate{}, err
	}
	if c.component < 1 || c.component > 256 {
		return Candidate{}, fmt.Errorf("ice: component ID out of range: %d", c.component)
	}

	ipPort := net.JoinHostPort(ip, port)
	network := strings.ToLower(protocol)
	addr, err := resolveAddr(network, ipPort)
	if err != nil {
		return Candidate{}, err
	}
	c.address = makeTransportAddress(addr)

	// The rest of the candidate line consists of "name value" pairs.
	scanner := bufio.NewScanner(r)
	scanner.Split(bufio.ScanWords)
	var name string
	for scanner.Scan() {
		if name == "" {
			name = scanner.Text()
			continue
		}
		value := scanner.Text()
		switch name {
		case "typ":
			c.typ = value
		default:
			c.addAttribute(name, value)
		}
		name = ""
	}
	if name != "" {
		return Candidate{}, fmt.Errorf("ice: unmatched attribute name: %s", name)
	}

	return c, nil
}

func resolveAddr(network, address string) (net.Addr, error) {
	switch strings.ToLower(network) {
	case "tcp":
		return net.ResolveTCPAddr(network, address)
	case "udp":
		return net.ResolveUDPAddr(network, address)
	default:
		return nil, fmt.Errorf("ice: invalid network type: %s", network)
	}
}
