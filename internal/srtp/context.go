// Copyright 2019 Lanikai Labs. All rights reserved.

package srtp

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/binary"
	"errors"
)

// Key derivation labels, RFC 3711 section 4.3.
const (
	labelSRTPEncryption         = 0x00
	labelSRTPAuthenticationTag  = 0x01
	labelSRTPSalt               = 0x02
	labelSRTCPEncryption        = 0x03
	labelSRTCPAuthenticationTag = 0x04
	labelSRTCPSalt              = 0x05
)

const (
	masterKeyLen  = 16 // AES-CM-128
	masterSaltLen = 14

	authTagSize    = 10 // HMAC-SHA1-80
	srtcpIndexSize = 4

	// maxROCDisorder bounds how far a sequence number may appear to jump
	// backward or forward before updateRolloverCount treats it as wraparound
	// jitter rather than a rollover crossing. Component H is send-only and
	// emits sequence numbers in strictly increasing order, so this only
	// guards against reordering introduced upstream of the rebase.
	maxROCDisorder    = 100
	maxSequenceNumber = 65535
)

// Context holds the session keys derived from one DTLS-SRTP key exchange
// and the per-SSRC rollover state needed to encrypt/decrypt RTP and RTCP
// traffic on top of them. One Context is created per peer; it is not
// safe for concurrent use by multiple goroutines.
type Context struct {
	masterKey  []byte
	masterSalt []byte

	srtpBlock           cipher.Block
	srtpSessionSalt     []byte
	srtpSessionAuthTag  []byte

	srtcpBlock          cipher.Block
	srtcpSessionSalt    []byte
	srtcpSessionAuthTag []byte

	ssrcStates map[uint32]*ssrcState
}

// ssrcState tracks the 32-bit rollover counter RFC 3711 section 3.3.1 adds
// on top of RTP's 16-bit sequence number, per source.
type ssrcState struct {
	ssrc                 uint32
	rolloverCounter      uint32
	rolloverHasProcessed bool
	lastSequenceNumber   uint16
}

// CreateContext derives SRTP and SRTCP session keys from a DTLS-SRTP master
// key/salt pair via the AES-CM key derivation function (RFC 3711 section
// 4.3), for the AES-CM-128 / HMAC-SHA1-80 protection profile exported in
// internal/dtls.KeyingMaterial.
func CreateContext(masterKey, masterSalt []byte) (*Context, error) {
	if len(masterKey) != masterKeyLen {
		return nil, errors.New("srtp: master key must be 16 bytes")
	}
	if len(masterSalt) != masterSaltLen {
		return nil, errors.New("srtp: master salt must be 14 bytes")
	}

	c := &Context{
		masterKey:  masterKey,
		masterSalt: masterSalt,
		ssrcStates: map[uint32]*ssrcState{},
	}

	prfBlock, err := aes.NewCipher(masterKey)
	if err != nil {
		return nil, err
	}

	srtpSessionKey := c.deriveKeystream(prfBlock, labelSRTPEncryption, masterKeyLen)
	c.srtpSessionSalt = c.deriveKeystream(prfBlock, labelSRTPSalt, masterSaltLen)
	c.srtpSessionAuthTag = c.deriveKeystream(prfBlock, labelSRTPAuthenticationTag, sha1.Size)

	c.srtpBlock, err = aes.NewCipher(srtpSessionKey)
	if err != nil {
		return nil, err
	}

	srtcpSessionKey := c.deriveKeystream(prfBlock, labelSRTCPEncryption, masterKeyLen)
	c.srtcpSessionSalt = c.deriveKeystream(prfBlock, labelSRTCPSalt, masterSaltLen)
	c.srtcpSessionAuthTag = c.deriveKeystream(prfBlock, labelSRTCPAuthenticationTag, sha1.Size)

	c.srtcpBlock, err = aes.NewCipher(srtcpSessionKey)
	if err != nil {
		return nil, err
	}

	return c, nil
}

// deriveKeystream implements the AES-CM PRF of RFC 3711 section 4.3.1 with
// key_derivation_rate zero: XOR label into the master salt at the index
// position, then run it as the IV of an AES-CTR keystream keyed by the
// master key.
func (c *Context) deriveKeystream(prfBlock cipher.Block, label byte, outLen int) []byte {
	iv := make([]byte, masterSaltLen+2)
	copy(iv, c.masterSalt)
	iv[7] ^= label

	out := make([]byte, outLen)
	cipher.NewCTR(prfBlock, iv).XORKeyStream(out, out)
	return out
}

// generateCounter builds the 128-bit AES-CM IV of RFC 3711 section 4.1.1:
// SSRC, rollover counter, and sequence number packed into a 16-byte counter,
// XORed against the session salt.
func (c *Context) generateCounter(sequenceNumber uint16, rolloverCounter, ssrc uint32, sessionSalt []byte) []byte {
	counter := make([]byte, 16)
	binary.BigEndian.PutUint32(counter[4:], ssrc)
	binary.BigEndian.PutUint32(counter[8:], rolloverCounter)
	binary.BigEndian.PutUint16(counter[12:], sequenceNumber)

	for i := range sessionSalt {
		counter[i] ^= sessionSalt[i]
	}
	return counter
}

// generateAuthTag computes the truncated HMAC-SHA1-80 of RFC 3711 section
// 4.2 over buf (header, ciphertext, and the 4-byte rollover counter).
func (c *Context) generateAuthTag(buf, sessionAuthTag []byte) ([]byte, error) {
	mac := hmac.New(sha1.New, sessionAuthTag)
	if _, err := mac.Write(buf); err != nil {
		return nil, err
	}
	return mac.Sum(nil)[:authTagSize], nil
}

// allocateIfMismatch returns dst sized to match src's length, reusing dst's
// backing array when it is already large enough.
func allocateIfMismatch(dst, src []byte) []byte {
	if cap(dst) >= len(src) {
		return dst[:len(src)]
	}
	return make([]byte, len(src))
}
