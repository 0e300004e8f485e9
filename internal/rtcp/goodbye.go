package rtcp

import "encoding/binary"

// Goodbye (BYE, RFC 3550 section 6.6) indicates that one or more sources
// are no longer active.
type Goodbye struct {
	// Sources lists the SSRC/CSRC identifiers that are leaving.
	Sources []uint32
	// Reason is an optional, human-readable reason for leaving.
	Reason string
}

func (g Goodbye) Header() Header {
	return Header{
		Count:  uint8(len(g.Sources)),
		Type:   TypeGoodbye,
		Length: uint16((g.len() / 4) - 1),
	}
}

func (g Goodbye) len() int {
	n := headerLength + 4*len(g.Sources)
	if g.Reason != "" {
		n += 1 + len(g.Reason)
	}
	if rem := n % 4; rem != 0 {
		n += 4 - rem
	}
	return n
}

// DestinationSSRC returns the departing sources.
func (g Goodbye) DestinationSSRC() []uint32 {
	return g.Sources
}

func (g Goodbye) Marshal() ([]byte, error) {
	if len(g.Sources) > countMax {
		return nil, errTooManySources
	}
	if len(g.Reason) > 0xff {
		return nil, errReasonTooLong
	}

	h, err := g.Header().Marshal()
	if err != nil {
		return nil, err
	}

	b := make([]byte, g.len())
	copy(b, h)

	offset := headerLength
	for _, s := range g.Sources {
		binary.BigEndian.PutUint32(b[offset:], s)
		offset += 4
	}
	if g.Reason != "" {
		b[offset] = byte(len(g.Reason))
		copy(b[offset+1:], g.Reason)
	}

	return b, nil
}

func (g *Goodbye) Unmarshal(rawPacket []byte) error {
	var h Header
	if err := h.Unmarshal(rawPacket); err != nil {
		return err
	}
	if h.Type != TypeGoodbye {
		return errWrongType
	}

	offset := headerLength
	g.Sources = make([]uint32, h.Count)
	for i := range g.Sources {
		if offset+4 > len(rawPacket) {
			return errPacketTooShort
		}
		g.Sources[i] = binary.BigEndian.Uint32(rawPacket[offset:])
		offset += 4
	}

	g.Reason = ""
	if offset < len(rawPacket) {
		length := int(rawPacket[offset])
		offset++
		if offset+length > len(rawPacket) {
			return errPacketTooShort
		}
		g.Reason = string(rawPacket[offset : offset+length])
	}

	return nil
}
