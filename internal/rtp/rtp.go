// Package rtp implements the RTP packet format (RFC 3550 section 5.1) used
// by the ingest and fan-out paths: a fixed 12-byte header, optional CSRC
// list, optional header extension, and an opaque payload.
package rtp

import "encoding/binary"

const (
	headerLength = 12
	version      = 2
)

// Header is the fixed and optional-CSRC portion of an RTP packet.
type Header struct {
	Version        uint8
	Padding        bool
	Extension      bool
	Marker         bool
	PayloadType    uint8
	SequenceNumber uint16
	Timestamp      uint32
	SSRC           uint32
	CSRC           []uint32

	// ExtensionProfile and ExtensionPayload are populated when Extension is
	// true. Unknown extension profile ids are tolerated: the bytes are kept
	// verbatim and round-tripped without interpretation.
	ExtensionProfile uint16
	ExtensionPayload []byte
}

// MarshalSize returns the number of bytes Header.Marshal will produce.
func (h Header) MarshalSize() int {
	n := headerLength + 4*len(h.CSRC)
	if h.Extension {
		n += 4 + len(h.ExtensionPayload)
	}
	return n
}

// Packet is a parsed RTP packet. Payload aliases the buffer it was parsed
// from -- callers must not retain it past the pooled buffer's lifetime
// without copying.
type Packet struct {
	Header
	Payload []byte
}

// Unmarshal parses an RTP packet from buf. The returned Packet's Payload
// field is a slice of buf; it is not copied.
func Unmarshal(buf []byte) (*Packet, error) {
	if len(buf) < headerLength {
		return nil, errPacketTooShort
	}

	p := &Packet{}
	h := &p.Header

	h.Version = buf[0] >> 6
	if h.Version != version {
		return nil, errBadVersion
	}
	h.Padding = (buf[0]>>5)&1 != 0
	h.Extension = (buf[0]>>4)&1 != 0
	csrcCount := int(buf[0] & 0x0f)

	h.Marker = buf[1]&0x80 != 0
	h.PayloadType = buf[1] & 0x7f

	h.SequenceNumber = binary.BigEndian.Uint16(buf[2:4])
	h.Timestamp = binary.BigEndian.Uint32(buf[4:8])
	h.SSRC = binary.BigEndian.Uint32(buf[8:12])

	offset := headerLength
	if len(buf) < offset+4*csrcCount {
		return nil, errPacketTooShort
	}
	if csrcCount > 0 {
		h.CSRC = make([]uint32, csrcCount)
		for i := 0; i < csrcCount; i++ {
			h.CSRC[i] = binary.BigEndian.Uint32(buf[offset:])
			offset += 4
		}
	}

	if h.Extension {
		if len(buf) < offset+4 {
			return nil, errPacketTooShort
		}
		h.ExtensionProfile = binary.BigEndian.Uint16(buf[offset:])
		extLenWords := int(binary.BigEndian.Uint16(buf[offset+2:]))
		offset += 4
		extLen := extLenWords * 4
		if len(buf) < offset+extLen {
			return nil, errPacketTooShort
		}
		// Unknown profile ids are tolerated: we still advance by the
		// declared length and keep the raw bytes for round-tripping.
		h.ExtensionPayload = buf[offset : offset+extLen]
		offset += extLen
	}

	if h.Padding {
		if len(buf) == 0 {
			return nil, errPacketTooShort
		}
		padLen := int(buf[len(buf)-1])
		if padLen == 0 || offset+padLen > len(buf) {
			return nil, errPacketTooShort
		}
		p.Payload = buf[offset : len(buf)-padLen]
	} else {
		p.Payload = buf[offset:]
	}

	return p, nil
}

// Marshal serializes the packet into a newly allocated buffer.
func (p *Packet) Marshal() ([]byte, error) {
	buf := make([]byte, p.MarshalSize()+len(p.Payload))
	n, err := p.MarshalTo(buf)
	if err != nil {
		return nil, err
	}
	return buf[:n], nil
}

// MarshalTo serializes the packet into buf, which must be at least
// MarshalSize()+len(Payload) bytes, and returns the number of bytes written.
func (p *Packet) MarshalTo(buf []byte) (int, error) {
	if len(p.CSRC) > 0x0f {
		return 0, errTooManyCSRC
	}

	need := p.MarshalSize() + len(p.Payload)
	if len(buf) < need {
		return 0, errBufferTooSmall
	}

	buf[0] = version << 6
	if p.Padding {
		buf[0] |= 1 << 5
	}
	if p.Extension {
		buf[0] |= 1 << 4
	}
	buf[0] |= byte(len(p.CSRC))

	buf[1] = p.PayloadType & 0x7f
	if p.Marker {
		buf[1] |= 0x80
	}

	binary.BigEndian.PutUint16(buf[2:4], p.SequenceNumber)
	binary.BigEndian.PutUint32(buf[4:8], p.Timestamp)
	binary.BigEndian.PutUint32(buf[8:12], p.SSRC)

	offset := headerLength
	for _, csrc := range p.CSRC {
		binary.BigEndian.PutUint32(buf[offset:], csrc)
		offset += 4
	}

	if p.Extension {
		binary.BigEndian.PutUint16(buf[offset:], p.ExtensionProfile)
		binary.BigEndian.PutUint16(buf[offset+2:], uint16(len(p.ExtensionPayload)/4))
		offset += 4
		copy(buf[offset:], p.ExtensionPayload)
		offset += len(p.ExtensionPayload)
	}

	n := copy(buf[offset:], p.Payload)
	return offset + n, nil
}
