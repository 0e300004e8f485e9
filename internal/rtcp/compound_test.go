package rtcp

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCompoundRoundTrip(t *testing.T) {
	packets := []Packet{
		&SenderReport{
			SSRC:        1,
			NTPTime:     0x1122334455667788,
			RTPTime:     42,
			PacketCount: 10,
			OctetCount:  1000,
			Reports: []ReceptionReport{
				{SSRC: 2, FractionLost: 1, TotalLost: 2, LastSequenceNumber: 3, Jitter: 4, LastSenderReport: 5, Delay: 6},
			},
		},
		&SourceDescription{
			Chunks: []SourceDescriptionChunk{
				{Source: 1, Items: []SourceDescriptionItem{{Type: SDESCNAME, Text: "a"}}},
			},
		},
		&Goodbye{Sources: []uint32{1}, Reason: "x"},
	}

	buf, err := MarshalCompound(packets)
	require.NoError(t, err)

	got, err := UnmarshalCompound(buf)
	require.NoError(t, err)
	require.Len(t, got, 3)

	require.IsType(t, &SenderReport{}, got[0])
	require.IsType(t, &SourceDescription{}, got[1])
	require.IsType(t, &Goodbye{}, got[2])

	require.Equal(t, packets[0], got[0])
	require.Equal(t, packets[1], got[1])
	require.Equal(t, packets[2], got[2])

	// Re-serializing the parsed packets reproduces the exact input.
	reserialized, err := MarshalCompound(got)
	require.NoError(t, err)
	require.Equal(t, buf, reserialized)

	// Verify the length invariant: sum of packetLen(header) == len(buf).
	total := 0
	remaining := buf
	for len(remaining) > 0 {
		var h Header
		require.NoError(t, h.Unmarshal(remaining))
		n := packetLen(h)
		total += n
		remaining = remaining[n:]
	}
	require.Equal(t, len(buf), total)
}

func TestCompoundTruncated(t *testing.T) {
	packets := []Packet{
		&SenderReport{SSRC: 1, NTPTime: 1, RTPTime: 1, PacketCount: 1, OctetCount: 1},
		&Goodbye{Sources: []uint32{2}},
	}
	buf, err := MarshalCompound(packets)
	require.NoError(t, err)

	// Truncate the final packet's last byte.
	truncated := buf[:len(buf)-1]

	got, err := UnmarshalCompound(truncated)
	require.Error(t, err)
	// The earlier, fully-present packet is still returned.
	require.Len(t, got, 1)
	require.IsType(t, &SenderReport{}, got[0])
}

func TestReceptionReportLSRByteOffset(t *testing.T) {
	// LSR sits at byte offset 16 of the 24-byte reception report block, per
	// RFC 3550 (not 12, which is the jitter field).
	r := ReceptionReport{SSRC: 1, Jitter: 0x0A0A0A0A, LastSenderReport: 0x0B0B0B0B}
	b := make([]byte, receptionReportLength)
	r.marshalTo(b)
	require.Equal(t, byte(0x0B), b[16])
}
