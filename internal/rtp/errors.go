package rtp

import "github.com/pkg/errors"

var (
	errPacketTooShort = errors.New("rtp: packet too short")
	errBadVersion     = errors.New("rtp: unsupported version")
	errTooManyCSRC    = errors.New("rtp: too many CSRC identifiers")
	errBufferTooSmall = errors.New("rtp: destination buffer too small")
)
