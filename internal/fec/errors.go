package fec

import "github.com/pkg/errors"

var (
	// ErrInsufficientSecondary is returned when a block does not carry
	// enough received secondary fragments to reconstruct its missing
	// primary fragments.
	ErrInsufficientSecondary = errors.New("fec: insufficient secondary fragments")

	// ErrBlockTooOld is returned when a fragment addresses a block
	// older than the reorder queue's current head, i.e. already
	// force-drained.
	ErrBlockTooOld = errors.New("fec: block index older than drained head")
)
