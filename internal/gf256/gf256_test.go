package gf256

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMulInverse(t *testing.T) {
	for x := 1; x < 256; x++ {
		require.EqualValuesf(t, 1, Mul(byte(x), Inverse(byte(x))), "x=%d", x)
	}
}

func TestMulRegionConstants(t *testing.T) {
	src := []byte{1, 2, 3, 4, 5}
	dst := make([]byte, len(src))

	MulRegion(dst, src, 0, len(src))
	require.Equal(t, []byte{0, 0, 0, 0, 0}, dst)

	MulRegion(dst, src, 1, len(src))
	require.Equal(t, src, dst)
}

func TestMaddRegionMatchesScalarLoop(t *testing.T) {
	src := []byte{0xde, 0xad, 0xbe, 0xef, 0x42, 0x07, 0x99}
	for c := 0; c < 256; c++ {
		got := make([]byte, len(src))
		MaddRegion(got, src, byte(c), len(src))

		want := make([]byte, len(src))
		for i, s := range src {
			want[i] ^= Mul(byte(c), s)
		}
		require.Equal(t, want, got, "c=%d", c)
	}
}
