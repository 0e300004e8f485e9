package rtcp

import "encoding/binary"

// NackPair is one (packet ID, bitmask) pair identifying a lost packet and up
// to 16 more packets following it. See RFC 4585 section 6.2.1.
type NackPair struct {
	PacketID    uint16
	LostPackets uint16
}

// TransportLayerNack (RTPFB, RFC 4585 section 6.2.1) requests
// retransmission of one or more lost RTP packets.
type TransportLayerNack struct {
	// Sender is the SSRC of the NACK originator.
	Sender uint32
	// Source is the SSRC of the media stream being NACKed.
	Source uint32
	Nacks  []NackPair
}

func (n TransportLayerNack) Header() Header {
	return Header{
		Count:  FormatTLN,
		Type:   TypeTransportSpecificFeedback,
		Length: uint16((n.len() / 4) - 1),
	}
}

func (n TransportLayerNack) len() int {
	return headerLength + 8 + 4*len(n.Nacks)
}

// DestinationSSRC returns the SSRC of the NACKed media stream.
func (n TransportLayerNack) DestinationSSRC() []uint32 {
	return []uint32{n.Source}
}

func (n TransportLayerNack) Marshal() ([]byte, error) {
	h, err := n.Header().Marshal()
	if err != nil {
		return nil, err
	}

	b := make([]byte, n.len())
	copy(b, h)
	binary.BigEndian.PutUint32(b[headerLength:], n.Sender)
	binary.BigEndian.PutUint32(b[headerLength+4:], n.Source)

	offset := headerLength + 8
	for _, pair := range n.Nacks {
		binary.BigEndian.PutUint16(b[offset:], pair.PacketID)
		binary.BigEndian.PutUint16(b[offset+2:], pair.LostPackets)
		offset += 4
	}

	return b, nil
}

func (n *TransportLayerNack) Unmarshal(rawPacket []byte) error {
	var h Header
	if err := h.Unmarshal(rawPacket); err != nil {
		return err
	}
	if h.Type != TypeTransportSpecificFeedback || h.Count != FormatTLN {
		return errWrongType
	}
	if len(rawPacket) < headerLength+8 {
		return errPacketTooShort
	}

	n.Sender = binary.BigEndian.Uint32(rawPacket[headerLength:])
	n.Source = binary.BigEndian.Uint32(rawPacket[headerLength+4:])

	body := rawPacket[headerLength+8:]
	n.Nacks = n.Nacks[:0]
	for len(body) >= 4 {
		n.Nacks = append(n.Nacks, NackPair{
			PacketID:    binary.BigEndian.Uint16(body),
			LostPackets: binary.BigEndian.Uint16(body[2:]),
		})
		body = body[4:]
	}

	return nil
}
