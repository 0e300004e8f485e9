package rtcp

// SDESType is the type of a source description (SDES) item.
type SDESType uint8

// SDES item types, RFC 3550 section 6.5.
const (
	SDESEnd      SDESType = 0
	SDESCNAME    SDESType = 1
	SDESName     SDESType = 2
	SDESEmail    SDESType = 3
	SDESPhone    SDESType = 4
	SDESLocation SDESType = 5
	SDESTool     SDESType = 6
	SDESNote     SDESType = 7
	SDESPrivate  SDESType = 8
)

// SourceDescriptionItem is a (type, text) pair carried in an SDES chunk.
type SourceDescriptionItem struct {
	Type SDESType
	Text string
}

func (s SourceDescriptionItem) len() int {
	return 2 + len(s.Text) // type + length octets + text
}

// SourceDescriptionChunk is a list of SDES items describing a single SSRC
// or CSRC, padded with one or more null octets to the next 4-byte boundary.
type SourceDescriptionChunk struct {
	Source uint32
	Items  []SourceDescriptionItem
}

func (c SourceDescriptionChunk) len() int {
	n := 4 // SSRC/CSRC
	for _, it := range c.Items {
		n += it.len()
	}
	n++ // terminating null item-type byte
	// pad to 4-byte boundary
	if rem := n % 4; rem != 0 {
		n += 4 - rem
	}
	return n
}

// SourceDescription (SDES, RFC 3550 section 6.5) carries descriptive
// information about session participants, one chunk per source.
type SourceDescription struct {
	Chunks []SourceDescriptionChunk
}

func (s SourceDescription) Header() Header {
	return Header{
		Count:  uint8(len(s.Chunks)),
		Type:   TypeSourceDescription,
		Length: uint16((s.len() / 4) - 1),
	}
}

func (s SourceDescription) len() int {
	n := headerLength
	for _, c := range s.Chunks {
		n += c.len()
	}
	return n
}

// DestinationSSRC returns the SSRC/CSRC of every chunk.
func (s SourceDescription) DestinationSSRC() []uint32 {
	out := make([]uint32, 0, len(s.Chunks))
	for _, c := range s.Chunks {
		out = append(out, c.Source)
	}
	return out
}

func (s SourceDescription) Marshal() ([]byte, error) {
	if len(s.Chunks) > countMax {
		return nil, errTooManyChunks
	}

	h, err := s.Header().Marshal()
	if err != nil {
		return nil, err
	}

	b := make([]byte, 0, s.len())
	b = append(b, h...)

	for _, c := range s.Chunks {
		start := len(b)
		b = appendUint32(b, c.Source)
		for _, it := range c.Items {
			if len(it.Text) > 0xff {
				return nil, errSDESTextTooLong
			}
			b = append(b, byte(it.Type), byte(len(it.Text)))
			b = append(b, it.Text...)
		}
		b = append(b, 0) // end-of-chunk marker
		for (len(b)-start)%4 != 0 {
			b = append(b, 0)
		}
	}

	return b, nil
}

func appendUint32(b []byte, v uint32) []byte {
	return append(b, byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
}

func (s *SourceDescription) Unmarshal(rawPacket []byte) error {
	var h Header
	if err := h.Unmarshal(rawPacket); err != nil {
		return err
	}
	if h.Type != TypeSourceDescription {
		return errWrongType
	}

	b := rawPacket[headerLength:]
	s.Chunks = make([]SourceDescriptionChunk, 0, h.Count)

	for i := uint8(0); i < h.Count; i++ {
		if len(b) < 4 {
			return errPacketTooShort
		}
		start := 0
		chunk := SourceDescriptionChunk{
			Source: uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3]),
		}
		pos := 4
		for {
			if pos >= len(b) {
				return errSDESMissingType
			}
			typ := SDESType(b[pos])
			pos++
			if typ == SDESEnd {
				break
			}
			if pos >= len(b) {
				return errPacketTooShort
			}
			length := int(b[pos])
			pos++
			if pos+length > len(b) {
				return errPacketTooShort
			}
			chunk.Items = append(chunk.Items, SourceDescriptionItem{
				Type: typ,
				Text: string(b[pos : pos+length]),
			})
			pos += length
		}
		for (pos-start)%4 != 0 {
			pos++
		}
		s.Chunks = append(s.Chunks, chunk)
		b = b[pos:]
	}

	return nil
}
