// MIT License
//
// Copyright (c) 2018 Pions
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package rtcp

// Packet represents an RTCP packet, a protocol used for out-of-band statistics and control information for an RTP session
type Packet interface {
	Header() Header
	// DestinationSSRC returns an array of SSRC values that this packet refers to.
	DestinationSSRC() []uint32

	Marshal() ([]byte, error)
	Unmarshal(rawPacket []byte) error
}

// Unmarshal is a factory a polymorphic RTCP packet, and its header,
func Unmarshal(rawPacket []byte) (Packet, Header, error) {
	var h Header
	var p Packet

	err := h.Unmarshal(rawPacket)
	if err != nil {
		return nil, h, err
	}

	switch h.Type {
	case TypeSenderReport:
		p = new(SenderReport)
	case TypeReceiverReport:
		p = new(ReceiverReport)
	case TypeSourceDescription:
		p = new(SourceDescription)
	case TypeGoodbye:
		p = new(Goodbye)
	case TypeTransportSpecificFeedback:
		switch h.Count {
		case FormatTLN:
			p = new(TransportLayerNack)
		default:
			p = new(RawPacket)
		}
	case TypePayloadSpecificFeedback:
		switch h.Count {
		case FormatPLI:
			p = new(PictureLossIndication)
		default:
			p = new(RawPacket)
		}
	default:
		return nil, h, errUnknownPacketType
	}

	err = p.Unmarshal(rawPacket)
	return p, h, err
}

// packetLen returns the total byte length (including the 4-byte common
// header) of the RTCP packet whose header is h: (length*4)+4.
func packetLen(h Header) int {
	return int(h.Length)*4 + 4
}

// UnmarshalCompound walks a compound RTCP packet -- a sequence of
// individual RTCP packets back-to-back, as delivered in a single UDP
// datagram per RFC 3550 section 6.1 -- and returns them in order.
//
// An unrecognized packet type aborts the walk; packets parsed before the
// unknown one are still returned, alongside the error -- truncating the
// last byte of a compound packet yields a parse error on the final
// packet but preserves the earlier ones.
func UnmarshalCompound(buf []byte) ([]Packet, error) {
	var packets []Packet

	for len(buf) > 0 {
		if len(buf) < headerLength {
			return packets, errPacketTooShort
		}

		var h Header
		if err := h.Unmarshal(buf); err != nil {
			return packets, err
		}

		n := packetLen(h)
		if n > len(buf) {
			return packets, errPacketTooShort
		}

		p, _, err := Unmarshal(buf[:n])
		if err != nil {
			return packets, err
		}
		packets = append(packets, p)
		buf = buf[n:]
	}

	return packets, nil
}

// MarshalCompound serializes packets back-to-back into a single compound
// RTCP buffer, in order.
func MarshalCompound(packets []Packet) ([]byte, error) {
	var out []byte
	for _, p := range packets {
		b, err := p.Marshal()
		if err != nil {
			return nil, err
		}
		out = append(out, b...)
	}
	return out, nil
}
