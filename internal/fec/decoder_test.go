package fec

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/buldo/webrtcrelay/internal/gf256"
)

// encodeSecondary builds the secondary fragment at encoder position r from
// a full set of k primary fragments, inverting the reduce step in
// decoder.go: secondary[r] = XOR_c inverse((r+128) XOR c) * primary[c].
func encodeSecondary(primary [][]byte, r, fragSize int) []byte {
	out := make([]byte, fragSize)
	for c, p := range primary {
		coeff := gf256.Inverse(byte(r+fecOffset) ^ byte(c))
		gf256.MaddRegion(out, p, coeff, fragSize)
	}
	return out
}

func randomFragments(k, fragSize int, seed int64) [][]byte {
	r := rand.New(rand.NewSource(seed))
	out := make([][]byte, k)
	for i := range out {
		out[i] = make([]byte, fragSize)
		r.Read(out[i])
	}
	return out
}

// TestDecodeHappyPath covers k=4, m=2, S=5; erase p1 and p3; the decoder
// must restore them exactly.
func TestDecodeHappyPath(t *testing.T) {
	const k, fragSize = 4, 5
	primary := randomFragments(k, fragSize, 1)
	original := make([][]byte, k)
	for i, p := range primary {
		original[i] = append([]byte(nil), p...)
	}

	s0 := encodeSecondary(primary, 0, fragSize)
	s1 := encodeSecondary(primary, 1, fragSize)

	b := &Block{
		Primary: [][]byte{
			primary[0],
			make([]byte, fragSize), // erased
			primary[2],
			make([]byte, fragSize), // erased
		},
		PrimaryOK:    []bool{true, false, true, false},
		Secondary:    [][]byte{s0, s1},
		SecondaryOK:  []bool{true, true},
		FragmentSize: fragSize,
	}

	reconstructed, err := Decode(b)
	require.NoError(t, err)
	require.ElementsMatch(t, []int{1, 3}, reconstructed)

	require.True(t, bytes.Equal(b.Primary[1], original[1]))
	require.True(t, bytes.Equal(b.Primary[3], original[3]))
	// Untouched fragments remain unchanged.
	require.True(t, bytes.Equal(b.Primary[0], original[0]))
	require.True(t, bytes.Equal(b.Primary[2], original[2]))
}

// TestDecodeInsufficientSecondary is scenario 2: erase p0,p1,p2 but supply
// only one secondary fragment. The decoder must reject rather than guess.
func TestDecodeInsufficientSecondary(t *testing.T) {
	const k, fragSize = 4, 5
	primary := randomFragments(k, fragSize, 2)
	s0 := encodeSecondary(primary, 0, fragSize)

	erased0 := make([]byte, fragSize)
	erased1 := make([]byte, fragSize)
	erased2 := make([]byte, fragSize)

	b := &Block{
		Primary:      [][]byte{erased0, erased1, erased2, primary[3]},
		PrimaryOK:    []bool{false, false, false, true},
		Secondary:    [][]byte{s0},
		SecondaryOK:  []bool{true},
		FragmentSize: fragSize,
	}

	_, err := Decode(b)
	require.ErrorIs(t, err, ErrInsufficientSecondary)
	// Buffers must be untouched on failure.
	require.True(t, bytes.Equal(b.Primary[0], erased0))
	require.True(t, bytes.Equal(b.Primary[3], primary[3]))
}

// TestDecodeIdempotent checks the no-missing-primary no-op property.
func TestDecodeIdempotent(t *testing.T) {
	const k, fragSize = 3, 8
	primary := randomFragments(k, fragSize, 3)
	before := make([][]byte, k)
	for i, p := range primary {
		before[i] = append([]byte(nil), p...)
	}

	b := &Block{
		Primary:      primary,
		PrimaryOK:    []bool{true, true, true},
		Secondary:    nil,
		SecondaryOK:  nil,
		FragmentSize: fragSize,
	}

	reconstructed, err := Decode(b)
	require.NoError(t, err)
	require.Nil(t, reconstructed)
	for i := range primary {
		require.True(t, bytes.Equal(primary[i], before[i]))
	}
}

func TestQueueDrainsInOrder(t *testing.T) {
	var drained []int64
	q := NewQueue(4)
	q.Drained = func(id int64, b *Block) {
		drained = append(drained, id)
	}

	complete := func() *Block {
		return &Block{PrimaryOK: []bool{true, true}}
	}

	require.NoError(t, q.Open(0, complete()))
	require.NoError(t, q.Open(1, complete()))
	q.Fragment(0)
	require.Equal(t, []int64{0, 1}, drained)
}

func TestQueueForceDrainCountsLoss(t *testing.T) {
	q := NewQueue(2)
	incomplete := func() *Block {
		return &Block{PrimaryOK: []bool{false, true}}
	}

	require.NoError(t, q.Open(0, incomplete()))
	require.NoError(t, q.Open(1, incomplete()))
	require.NoError(t, q.Open(2, incomplete())) // forces block 0 out

	require.Equal(t, 1, q.Lost())
}

func TestQueueRejectsStaleBlock(t *testing.T) {
	q := NewQueue(4)
	require.NoError(t, q.Open(5, &Block{PrimaryOK: []bool{true}}))
	err := q.Open(2, &Block{PrimaryOK: []bool{true}})
	require.ErrorIs(t, err, ErrBlockTooOld)
}
