package rtcp

import "encoding/binary"

const pliBodyLength = 8

// PictureLossIndication (PSFB, RFC 4585 section 6.3.1) notifies the encoder
// that a decoder has lost the ability to decode part of a picture and
// requests a full intra frame.
type PictureLossIndication struct {
	// Sender is the SSRC of the PLI originator.
	Sender uint32
	// Source is the SSRC of the media stream requesting a key frame.
	Source uint32
}

func (p PictureLossIndication) Header() Header {
	return Header{
		Count:  FormatPLI,
		Type:   TypePayloadSpecificFeedback,
		Length: uint16((headerLength+pliBodyLength)/4 - 1),
	}
}

// DestinationSSRC returns the SSRC of the media stream being re-requested.
func (p PictureLossIndication) DestinationSSRC() []uint32 {
	return []uint32{p.Source}
}

func (p PictureLossIndication) Marshal() ([]byte, error) {
	h, err := p.Header().Marshal()
	if err != nil {
		return nil, err
	}

	b := make([]byte, headerLength+pliBodyLength)
	copy(b, h)
	binary.BigEndian.PutUint32(b[headerLength:], p.Sender)
	binary.BigEndian.PutUint32(b[headerLength+4:], p.Source)
	return b, nil
}

func (p *PictureLossIndication) Unmarshal(rawPacket []byte) error {
	var h Header
	if err := h.Unmarshal(rawPacket); err != nil {
		return err
	}
	if h.Type != TypePayloadSpecificFeedback || h.Count != FormatPLI {
		return errWrongType
	}
	if len(rawPacket) < headerLength+pliBodyLength {
		return errPacketTooShort
	}

	p.Sender = binary.BigEndian.Uint32(rawPacket[headerLength:])
	p.Source = binary.BigEndian.Uint32(rawPacket[headerLength+4:])
	return nil
}
