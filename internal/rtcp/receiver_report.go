package rtcp

import "encoding/binary"

// ReceiverReport (RFC 3550 section 6.4.2) is sent by a participant that is
// not an active sender to report reception statistics.
type ReceiverReport struct {
	// SSRC of the receiver that generated this report.
	SSRC uint32
	// Reports is zero or more reception reports for SSRCs heard by this
	// receiver since the last report.
	Reports []ReceptionReport
}

func (rr ReceiverReport) Header() Header {
	return Header{
		Count:  uint8(len(rr.Reports)),
		Type:   TypeReceiverReport,
		Length: uint16((rr.len() / 4) - 1),
	}
}

func (rr ReceiverReport) len() int {
	return headerLength + ssrcLength + len(rr.Reports)*receptionReportLength
}

const ssrcLength = 4

// DestinationSSRC returns the SSRCs of every reception report carried here.
func (rr ReceiverReport) DestinationSSRC() []uint32 {
	out := make([]uint32, 0, len(rr.Reports))
	for _, r := range rr.Reports {
		out = append(out, r.SSRC)
	}
	return out
}

func (rr ReceiverReport) Marshal() ([]byte, error) {
	if len(rr.Reports) > countMax {
		return nil, errTooManyReports
	}

	h, err := rr.Header().Marshal()
	if err != nil {
		return nil, err
	}

	b := make([]byte, rr.len())
	copy(b, h)
	binary.BigEndian.PutUint32(b[headerLength:], rr.SSRC)

	offset := headerLength + ssrcLength
	for _, r := range rr.Reports {
		r.marshalTo(b[offset:])
		offset += receptionReportLength
	}

	return b, nil
}

func (rr *ReceiverReport) Unmarshal(rawPacket []byte) error {
	var h Header
	if err := h.Unmarshal(rawPacket); err != nil {
		return err
	}
	if h.Type != TypeReceiverReport {
		return errWrongType
	}
	if len(rawPacket) < headerLength+ssrcLength {
		return errPacketTooShort
	}

	rr.SSRC = binary.BigEndian.Uint32(rawPacket[headerLength:])

	offset := headerLength + ssrcLength
	rr.Reports = make([]ReceptionReport, h.Count)
	for i := range rr.Reports {
		if err := rr.Reports[i].unmarshalFrom(rawPacket[offset:]); err != nil {
			return err
		}
		offset += receptionReportLength
	}

	return nil
}
