package rtcp

import "encoding/binary"

const srBodyLength = 24 // SSRC + NTP(8) + RTP timestamp(4) + packet count(4) + octet count(4)

// SenderReport (RFC 3550 section 6.4.1) reports transmission and reception
// statistics for an RTP stream, sent by an active sender.
type SenderReport struct {
	// SSRC of the sender of this report.
	SSRC uint32
	// NTPTime is the wallclock time the report was sent, as a 64-bit NTP
	// timestamp.
	NTPTime uint64
	// RTPTime is the RTP timestamp corresponding to NTPTime.
	RTPTime uint32
	// PacketCount is the total number of RTP data packets sent since
	// starting transmission.
	PacketCount uint32
	// OctetCount is the total number of payload octets sent since starting
	// transmission.
	OctetCount uint32
	// Reports is zero or more reception reports for other SSRCs heard by
	// this sender since the last report.
	Reports []ReceptionReport
}

func (sr SenderReport) Header() Header {
	return Header{
		Count:  uint8(len(sr.Reports)),
		Type:   TypeSenderReport,
		Length: uint16((sr.len() / 4) - 1),
	}
}

func (sr SenderReport) len() int {
	return headerLength + srBodyLength + len(sr.Reports)*receptionReportLength
}

// DestinationSSRC returns the SSRCs of every reception report carried here.
func (sr SenderReport) DestinationSSRC() []uint32 {
	out := make([]uint32, 0, len(sr.Reports))
	for _, rr := range sr.Reports {
		out = append(out, rr.SSRC)
	}
	return out
}

func (sr SenderReport) Marshal() ([]byte, error) {
	if len(sr.Reports) > countMax {
		return nil, errTooManyReports
	}

	h, err := sr.Header().Marshal()
	if err != nil {
		return nil, err
	}

	b := make([]byte, sr.len())
	copy(b, h)

	binary.BigEndian.PutUint32(b[headerLength:], sr.SSRC)
	binary.BigEndian.PutUint64(b[headerLength+4:], sr.NTPTime)
	binary.BigEndian.PutUint32(b[headerLength+12:], sr.RTPTime)
	binary.BigEndian.PutUint32(b[headerLength+16:], sr.PacketCount)
	binary.BigEndian.PutUint32(b[headerLength+20:], sr.OctetCount)

	offset := headerLength + srBodyLength
	for _, r := range sr.Reports {
		r.marshalTo(b[offset:])
		offset += receptionReportLength
	}

	return b, nil
}

func (sr *SenderReport) Unmarshal(rawPacket []byte) error {
	var h Header
	if err := h.Unmarshal(rawPacket); err != nil {
		return err
	}
	if h.Type != TypeSenderReport {
		return errWrongType
	}
	if len(rawPacket) < headerLength+srBodyLength {
		return errPacketTooShort
	}

	sr.SSRC = binary.BigEndian.Uint32(rawPacket[headerLength:])
	sr.NTPTime = binary.BigEndian.Uint64(rawPacket[headerLength+4:])
	sr.RTPTime = binary.BigEndian.Uint32(rawPacket[headerLength+12:])
	sr.PacketCount = binary.BigEndian.Uint32(rawPacket[headerLength+16:])
	sr.OctetCount = binary.BigEndian.Uint32(rawPacket[headerLength+20:])

	offset := headerLength + srBodyLength
	sr.Reports = make([]ReceptionReport, h.Count)
	for i := range sr.Reports {
		if err := sr.Reports[i].unmarshalFrom(rawPacket[offset:]); err != nil {
			return err
		}
		offset += receptionReportLength
	}

	return nil
}
