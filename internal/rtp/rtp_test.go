package rtp

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	cases := []*Packet{
		{
			Header: Header{
				Version:        2,
				Marker:         true,
				PayloadType:    96,
				SequenceNumber: 0x1234,
				Timestamp:      0xdeadbeef,
				SSRC:           0xcafef00d,
			},
			Payload: []byte{1, 2, 3, 4, 5},
		},
		{
			Header: Header{
				Version:        2,
				PayloadType:    96,
				SequenceNumber: 0xffff,
				Timestamp:      0,
				SSRC:           1,
				CSRC:           []uint32{0x11111111, 0x22222222},
			},
			Payload: []byte{},
		},
		{
			Header: Header{
				Version:          2,
				PayloadType:      96,
				SequenceNumber:   7,
				Timestamp:        42,
				SSRC:             9,
				Extension:        true,
				ExtensionProfile: 0x1234, // unknown profile id, must round-trip untouched
				ExtensionPayload: []byte{0xaa, 0xbb, 0xcc, 0xdd},
			},
			Payload: []byte{9, 9, 9},
		},
	}

	for _, want := range cases {
		buf, err := want.Marshal()
		require.NoError(t, err)

		got, err := Unmarshal(buf)
		require.NoError(t, err)
		require.Equal(t, want.Header, got.Header)
		require.Equal(t, want.Payload, got.Payload)
	}
}

func TestUnmarshalBadVersion(t *testing.T) {
	buf := make([]byte, 12)
	buf[0] = 1 << 6 // version 1
	_, err := Unmarshal(buf)
	require.ErrorIs(t, err, errBadVersion)
}

func TestUnmarshalShortBuffer(t *testing.T) {
	_, err := Unmarshal([]byte{1, 2, 3})
	require.ErrorIs(t, err, errPacketTooShort)
}
