package mux

// MatchFunc reports whether buf's first bytes identify it as belonging
// to one particular protocol. The Mux tries each registered endpoint's
// MatchFunc in turn and delivers the packet to the first match.
type MatchFunc func(buf []byte) bool

// MatchRange returns a MatchFunc selecting packets whose first byte is
// within [lo, hi], inclusive.
func MatchRange(lo, hi byte) MatchFunc {
	return func(buf []byte) bool {
		if len(buf) == 0 {
			return false
		}
		return buf[0] >= lo && buf[0] <= hi
	}
}

// RTCP payload types occupy 200-207 (SR through XR). RTP is
// disambiguated from RTCP on the shared 128-191 byte-0 range by
// inspecting the second byte against this range.
const (
	rtcpPayloadTypeLow  = 200
	rtcpPayloadTypeHigh = 207
)

// MatchSTUN matches the STUN byte-0 range (0-3).
func MatchSTUN(buf []byte) bool {
	return MatchRange(0, 3)(buf)
}

// MatchDTLS matches the DTLS content-type byte-0 range (20-63).
func MatchDTLS(buf []byte) bool {
	return MatchRange(20, 63)(buf)
}

// MatchRTP matches the RTP/RTCP byte-0 range (128-191) whose second
// byte is NOT an RTCP packet type, i.e. plain RTP.
func MatchRTP(buf []byte) bool {
	if !MatchRange(128, 191)(buf) || len(buf) < 2 {
		return false
	}
	return buf[1] < rtcpPayloadTypeLow || buf[1] > rtcpPayloadTypeHigh
}

// MatchRTCP matches the RTP/RTCP byte-0 range (128-191) whose second
// byte falls in the RTCP packet-type range 200-207.
func MatchRTCP(buf []byte) bool {
	if !MatchRange(128, 191)(buf) || len(buf) < 2 {
		return false
	}
	return buf[1] >= rtcpPayloadTypeLow && buf[1] <= rtcpPayloadTypeHigh
}
