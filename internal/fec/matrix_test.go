package fec

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func identity(k int) *Matrix {
	m := NewMatrix(k)
	for i := 0; i < k; i++ {
		m.Set(i, i, 1)
	}
	return m
}

func TestInvertIdentity(t *testing.T) {
	m := identity(4)
	require.NoError(t, m.Invert())
	require.True(t, m.Equal(identity(4)))
}

func TestInvertRoundTrip(t *testing.T) {
	m := NewMatrix(3)
	vals := [][]byte{
		{1, 2, 3},
		{4, 5, 6},
		{7, 8, 10},
	}
	for r, row := range vals {
		for c, v := range row {
			m.Set(r, c, v)
		}
	}

	orig := NewMatrix(3)
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			orig.Set(r, c, m.Get(r, c))
		}
	}

	require.NoError(t, m.Invert())
	product := orig.Mul(m)
	require.True(t, product.Equal(identity(3)))

	require.NoError(t, m.Invert())
	require.True(t, m.Equal(orig))
}

func TestInvertSingular(t *testing.T) {
	m := NewMatrix(2)
	// Two identical rows is never invertible.
	m.Set(0, 0, 1)
	m.Set(0, 1, 2)
	m.Set(1, 0, 1)
	m.Set(1, 1, 2)
	require.ErrorIs(t, m.Invert(), ErrSingular)
}
