package ice

import (
	"fmt"
	"net"
)

// Protocol identifies the transport protocol of a TransportAddress.
type Protocol string

const (
	UDP Protocol = "udp"
	TCP Protocol = "tcp"
)

// IPFamily classifies the resolved form of an IPAddress.
type IPFamily int

const (
	Unresolved IPFamily = iota
	IPv4
	IPv6
)

// IPAddress holds either a resolved IP (as its raw 4- or 16-byte form) or an
// unresolved hostname, verbatim.
type IPAddress string

// TransportAddress is a (protocol, IP, port) tuple, per RFC 8445 section 3.
type TransportAddress struct {
	protocol  Protocol
	ip        IPAddress
	port      int
	linkLocal bool
}

func makeTransportAddress(addr net.Addr) TransportAddress {
	var proto Protocol
	var ip net.IP
	var port int
	switch a := addr.(type) {
	case *net.TCPAddr:
		proto, ip, port = TCP, a.IP, a.Port
	case *net.UDPAddr:
		proto, ip, port = UDP, a.IP, a.Port
	default:
		panic("ice: unsupported net.Addr type")
	}

	var raw []byte
	if v4 := ip.To4(); v4 != nil {
		raw = v4
	} else {
		raw = ip.To16()
	}
	return TransportAddress{
		protocol:  proto,
		ip:        IPAddress(raw),
		port:      port,
		linkLocal: ip.IsLinkLocalUnicast(),
	}
}

func (ta TransportAddress) family() IPFamily {
	switch len(ta.ip) {
	case 4:
		return IPv4
	case 16:
		return IPv6
	default:
		return Unresolved
	}
}

func (ta TransportAddress) resolved() bool {
	return ta.family() != Unresolved
}

func (ta TransportAddress) displayIP() string {
	switch ta.family() {
	case IPv4, IPv6:
		return net.IP([]byte(ta.ip)).String()
	default:
		return string(ta.ip)
	}
}

func (ta TransportAddress) netAddr() net.Addr {
	hostport := net.JoinHostPort(ta.displayIP(), fmt.Sprintf("%d", ta.port))
	switch ta.protocol {
	case TCP:
		addr, _ := net.ResolveTCPAddr("tcp", hostport)
		return addr
	default:
		addr, _ := net.ResolveUDPAddr("udp", hostport)
		return addr
	}
}

func (ta TransportAddress) String() string {
	if ta.family() == IPv6 {
		return fmt.Sprintf("%s/[%s]:%d", ta.protocol, ta.displayIP(), ta.port)
	}
	return fmt.Sprintf("%s/%s:%d", ta.protocol, ta.displayIP(), ta.port)
}
