package fec

import (
	"github.com/pkg/errors"

	"github.com/buldo/webrtcrelay/internal/gf256"
)

// ErrSingular is returned by Invert when the matrix has no inverse
// over GF(256).
var ErrSingular = errors.New("fec: singular matrix")

// Matrix is a row-major k*k byte matrix.
type Matrix struct {
	k    int
	data []byte // len == k*k, row i at data[i*k : i*k+k]
}

// NewMatrix allocates a zeroed k*k matrix.
func NewMatrix(k int) *Matrix {
	return &Matrix{k: k, data: make([]byte, k*k)}
}

func (m *Matrix) at(row, col int) byte {
	return m.data[row*m.k+col]
}

func (m *Matrix) set(row, col int, v byte) {
	m.data[row*m.k+col] = v
}

func (m *Matrix) row(r int) []byte {
	return m.data[r*m.k : r*m.k+m.k]
}

// Set stores v at (row, col).
func (m *Matrix) Set(row, col int, v byte) {
	m.set(row, col, v)
}

// Get returns the value at (row, col).
func (m *Matrix) Get(row, col int) byte {
	return m.at(row, col)
}

// Mul returns the matrix product m*other.
func (m *Matrix) Mul(other *Matrix) *Matrix {
	k := m.k
	out := NewMatrix(k)
	for r := 0; r < k; r++ {
		for c := 0; c < k; c++ {
			var acc byte
			for i := 0; i < k; i++ {
				acc ^= gf256.Mul(m.at(r, i), other.at(i, c))
			}
			out.set(r, c, acc)
		}
	}
	return out
}

// Equal reports whether m and other have the same dimensions and
// contents.
func (m *Matrix) Equal(other *Matrix) bool {
	if m.k != other.k {
		return false
	}
	for i := range m.data {
		if m.data[i] != other.data[i] {
			return false
		}
	}
	return true
}

// Invert inverts m in place using Gauss-Jordan elimination over
// GF(256), per RFC-agnostic finite-field linear algebra: for each
// column, find a pivot, normalise it, eliminate it from every other
// row, then undo the column permutation recorded while pivoting.
//
// There is no third-party matrix-inversion library in the available
// stack operating over GF(256) (the closest analogues, e.g. gonum,
// work over the reals), so this is hand-rolled directly from the
// algorithm description.
func (m *Matrix) Invert() error {
	k := m.k
	indxr := make([]int, k)
	indxc := make([]int, k)
	ipiv := make([]int, k)

	for col := 0; col < k; col++ {
		big := byte(0)
		irow, icol := -1, -1
		// Prefer the diagonal element; search elsewhere only if it is
		// unusable.
		if ipiv[col] == 0 && m.at(col, col) != 0 {
			irow, icol = col, col
		}
		for j := 0; irow == -1 && j < k; j++ {
			if ipiv[j] == 1 {
				continue
			}
			for kk := 0; kk < k; kk++ {
				if ipiv[kk] == 0 {
					if v := m.at(j, kk); v != 0 && (irow == -1 || v >= big) {
						big = v
						irow, icol = j, kk
					}
				} else if ipiv[kk] > 1 {
					return ErrSingular
				}
			}
		}
		if irow == -1 {
			return ErrSingular
		}
		ipiv[icol]++

		if irow != icol {
			for l := 0; l < k; l++ {
				m.data[irow*k+l], m.data[icol*k+l] = m.data[icol*k+l], m.data[irow*k+l]
			}
		}
		indxr[col] = irow
		indxc[col] = icol

		pivot := m.at(icol, icol)
		if pivot == 0 {
			return ErrSingular
		}
		pivInv := gf256.Inverse(pivot)
		m.set(icol, icol, 1)
		gf256.MulRegion(m.row(icol), m.row(icol), pivInv, k)

		for r := 0; r < k; r++ {
			if r == icol {
				continue
			}
			c := m.at(r, icol)
			if c == 0 {
				continue
			}
			m.set(r, icol, 0)
			gf256.MaddRegion(m.row(r), m.row(icol), c, k)
		}
	}

	for col := k - 1; col >= 0; col-- {
		if indxr[col] != indxc[col] {
			for r := 0; r < k; r++ {
				a, b := indxr[col], indxc[col]
				m.data[r*k+a], m.data[r*k+b] = m.data[r*k+b], m.data[r*k+a]
			}
		}
	}
	return nil
}
