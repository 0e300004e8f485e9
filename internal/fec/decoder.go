// Package fec implements a forward-error-correction codec: a
// Vandermonde-like reduction over GF(256) followed by Gauss-Jordan
// resolution, used to reconstruct lost primary fragments from a mixture
// of received primary and secondary fragments. No corresponding
// FEC/Reed-Solomon/Galois-field library appears anywhere in the
// available third-party stack, so this package (along with
// internal/gf256) is implemented directly from the algorithm
// description rather than grounded on an example.
package fec

import "github.com/buldo/webrtcrelay/internal/gf256"

// fecOffset is the encoder's "+128" convention: secondary fragment
// position r and primary column c combine as inverse((r+128) XOR c).
// It must match the encoder bit-for-bit.
const fecOffset = 128

// Block is one FEC coding block: k primary fragments plus up to k
// secondary (repair) fragments, all of equal length. Primary and
// Secondary are owned by the caller; Decode mutates both in place.
type Block struct {
	// Primary holds k primary fragment buffers, each exactly
	// FragmentSize bytes. Entries where PrimaryOK[i] is false are
	// overwritten by Decode on success.
	Primary   [][]byte
	PrimaryOK []bool

	// Secondary holds the received secondary fragments, indexed by
	// their original encoder position (0-based, independent of k).
	// Only entries where SecondaryOK[j] is true are meaningful;
	// Decode treats the others as absent and never reads them.
	Secondary   [][]byte
	SecondaryOK []bool

	FragmentSize int
}

// Decode reconstructs b's missing primary fragments in place. If no
// primary fragments are missing, Decode is a no-op. If there are fewer
// received
// secondary fragments than missing primaries, it returns
// ErrInsufficientSecondary and leaves every buffer untouched.
func Decode(b *Block) ([]int, error) {
	var missing []int
	for i, ok := range b.PrimaryOK {
		if !ok {
			missing = append(missing, i)
		}
	}
	if len(missing) == 0 {
		return nil, nil
	}

	type secRow struct {
		pos int // original encoder position r
		buf []byte
	}
	var received []secRow
	for j, ok := range b.SecondaryOK {
		if ok {
			received = append(received, secRow{pos: j, buf: b.Secondary[j]})
		}
	}
	if len(received) < len(missing) {
		return nil, ErrInsufficientSecondary
	}
	// Use exactly as many equations as unknowns.
	received = received[:len(missing)]

	S := b.FragmentSize

	// Reduce step: cancel the contribution of every known primary
	// fragment out of every equation we're going to use.
	for c, ok := range b.PrimaryOK {
		if !ok {
			continue
		}
		primary := b.Primary[c]
		for _, row := range received {
			coeff := gf256.Inverse(byte(row.pos+fecOffset) ^ byte(c))
			gf256.MaddRegion(row.buf, primary, coeff, S)
		}
	}

	// Resolve step: build the f x f coefficient matrix and invert it.
	f := len(missing)
	m := NewMatrix(f)
	for row := 0; row < f; row++ {
		for col := 0; col < f; col++ {
			x := byte(fecOffset+received[row].pos) ^ byte(missing[col])
			m.Set(row, col, gf256.Inverse(x))
		}
	}
	if err := m.Invert(); err != nil {
		return nil, err
	}

	out := make([][]byte, f)
	for col := 0; col < f; col++ {
		out[col] = make([]byte, S)
		for row := 0; row < f; row++ {
			c := m.Get(col, row)
			if row == 0 {
				gf256.MulRegion(out[col], received[row].buf, c, S)
			} else {
				gf256.MaddRegion(out[col], received[row].buf, c, S)
			}
		}
	}

	reconstructed := make([]int, f)
	for col, idx := range missing {
		copy(b.Primary[idx], out[col])
		b.PrimaryOK[idx] = true
		reconstructed[col] = idx
	}
	return reconstructed, nil
}
