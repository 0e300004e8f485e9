package rtcp

import "encoding/binary"

// ReceptionReport is a block of statistics about packets received from a
// single SSRC, carried inside both SenderReport and ReceiverReport. See
// RFC 3550 section 6.4.1.
type ReceptionReport struct {
	// SSRC of the source being reported on.
	SSRC uint32
	// FractionLost is the fraction of packets lost since the last report,
	// expressed as a fixed-point number with the binary point at the left
	// edge of the field (i.e. 0-255 representing 0-255/256).
	FractionLost uint8
	// TotalLost is the cumulative number of packets lost since the
	// beginning of reception, a signed 24-bit value.
	TotalLost uint32
	// LastSequenceNumber is the extended highest sequence number received.
	LastSequenceNumber uint32
	// Jitter is an estimate of the statistical variance of RTP packet
	// interarrival time.
	Jitter uint32
	// LastSenderReport is the middle 32 bits of the NTP timestamp from the
	// most recent SR packet received from this source (RFC 3550's "LSR").
	// This field is at byte offset 16 of the report block.
	LastSenderReport uint32
	// Delay is the delay, in units of 1/65536 seconds, since LastSenderReport
	// was received (RFC 3550's "DLSR").
	Delay uint32
}

const receptionReportLength = 24

func (r ReceptionReport) marshalTo(b []byte) {
	binary.BigEndian.PutUint32(b[0:], r.SSRC)
	binary.BigEndian.PutUint32(b[4:], r.TotalLost&0x00ffffff|uint32(r.FractionLost)<<24)
	binary.BigEndian.PutUint32(b[8:], r.LastSequenceNumber)
	binary.BigEndian.PutUint32(b[12:], r.Jitter)
	binary.BigEndian.PutUint32(b[16:], r.LastSenderReport)
	binary.BigEndian.PutUint32(b[20:], r.Delay)
}

func (r *ReceptionReport) unmarshalFrom(b []byte) error {
	if len(b) < receptionReportLength {
		return errPacketTooShort
	}
	r.SSRC = binary.BigEndian.Uint32(b[0:])
	word := binary.BigEndian.Uint32(b[4:])
	r.FractionLost = byte(word >> 24)
	r.TotalLost = word & 0x00ffffff
	r.LastSequenceNumber = binary.BigEndian.Uint32(b[8:])
	r.Jitter = binary.BigEndian.Uint32(b[12:])
	r.LastSenderReport = binary.BigEndian.Uint32(b[16:])
	r.Delay = binary.BigEndian.Uint32(b[20:])
	return nil
}
