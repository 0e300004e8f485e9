// Package dtls wraps pion/dtls/v3 into a peer-session-facing adapter: we
// act as the DTLS server for every peer (our SDP offer always declares
// a=setup:passive), authenticate the handshake against the fingerprint
// advertised in the peer's SDP answer rather than against a CA, and
// export SRTP keying material once the handshake completes.
package dtls

import (
	"context"
	"crypto/sha256"
	"crypto/tls"
	"crypto/x509"
	"encoding/hex"
	"fmt"
	"net"
	"strings"

	pion "github.com/pion/dtls/v3"

	"github.com/buldo/webrtcrelay/internal/logging"
)

var log = logging.DefaultLogger.WithTag("dtls")

// srtpProfile is the only SRTP protection profile this relay supports:
// AES-CM-128 with an 80-bit HMAC-SHA1 authentication tag.
const srtpProfile = pion.SRTP_AES128_CM_HMAC_SHA1_80

// KeyingMaterial holds the four values RFC 5764 section 4.2 derives from the
// DTLS-SRTP exporter, in the order the SRTP layer expects.
type KeyingMaterial struct {
	ClientWriteKey  []byte
	ServerWriteKey  []byte
	ClientWriteSalt []byte
	ServerWriteSalt []byte
}

const (
	srtpKeyLength  = 16 // AES-CM-128
	srtpSaltLength = 14
)

// Conn is an established DTLS-SRTP session with one peer.
type Conn struct {
	*pion.Conn
}

// FingerprintMismatchError is returned by Accept when the peer's
// certificate does not match the fingerprint advertised in its SDP answer.
type FingerprintMismatchError struct {
	Expected, Got string
}

func (e *FingerprintMismatchError) Error() string {
	return fmt.Sprintf("dtls: fingerprint mismatch: expected %s, got %s", e.Expected, e.Got)
}

// Accept runs the DTLS server handshake over transport (the peer session
// passes an adapter over its internal/mux DTLS endpoint, which receives only
// datagrams whose first byte is 20-63) and verifies the peer certificate
// against expectedFingerprint, the hex SHA-256 digest from the a=fingerprint
// attribute of the peer's SDP answer; colons and letter case are ignored.
func Accept(ctx context.Context, transport net.Conn, cert tls.Certificate, expectedFingerprint string) (*Conn, error) {
	var verifyErr error
	config := &pion.Config{
		Certificates:           []tls.Certificate{cert},
		InsecureSkipVerify:     true, // we verify the fingerprint ourselves below
		SRTPProtectionProfiles: []pion.SRTPProtectionProfile{srtpProfile},
		VerifyPeerCertificate: func(rawCerts [][]byte, _ [][]*x509.Certificate) error {
			verifyErr = verifyFingerprint(rawCerts, expectedFingerprint)
			return verifyErr
		},
	}

	conn, err := pion.Server(ctx, transport, config)
	if err != nil {
		if verifyErr != nil {
			return nil, verifyErr
		}
		return nil, err
	}

	state, ok := conn.ConnectionState()
	if !ok {
		conn.Close()
		return nil, fmt.Errorf("dtls: handshake did not complete")
	}
	if state.SRTPProtectionProfile != srtpProfile {
		conn.Close()
		return nil, fmt.Errorf("dtls: peer did not negotiate SRTP_AES128_CM_HMAC_SHA1_80")
	}

	log.Debug("DTLS handshake complete with %s", transport.RemoteAddr())
	return &Conn{conn}, nil
}

func verifyFingerprint(rawCerts [][]byte, expected string) error {
	if len(rawCerts) == 0 {
		return fmt.Errorf("dtls: no peer certificate presented")
	}
	sum := sha256.Sum256(rawCerts[0])
	got := hex.EncodeToString(sum[:])
	expected = strings.ToLower(strings.ReplaceAll(expected, ":", ""))
	if got != expected {
		return &FingerprintMismatchError{Expected: expected, Got: got}
	}
	return nil
}

// ExportSRTPKeys derives the four SRTP key/salt values via the
// "EXTRACTOR-dtls_srtp" exporter label, per RFC 5764 section 4.2.
func (c *Conn) ExportSRTPKeys() (*KeyingMaterial, error) {
	length := 2*srtpKeyLength + 2*srtpSaltLength
	material, err := c.Conn.ExportKeyingMaterial("EXTRACTOR-dtls_srtp", nil, length)
	if err != nil {
		return nil, err
	}

	offset := 0
	next := func(n int) []byte {
		b := material[offset : offset+n]
		offset += n
		return b
	}

	return &KeyingMaterial{
		ClientWriteKey:  next(srtpKeyLength),
		ServerWriteKey:  next(srtpKeyLength),
		ClientWriteSalt: next(srtpSaltLength),
		ServerWriteSalt: next(srtpSaltLength),
	}, nil
}

// Fingerprint computes the uppercase, colon-separated SHA-256 fingerprint
// of cert, for use in our own SDP offer's a=fingerprint attribute.
func Fingerprint(cert tls.Certificate) (string, error) {
	if len(cert.Certificate) == 0 {
		return "", fmt.Errorf("dtls: certificate has no leaf")
	}
	sum := sha256.Sum256(cert.Certificate[0])
	hexDigest := hex.EncodeToString(sum[:])
	var b strings.Builder
	for i := 0; i < len(hexDigest); i += 2 {
		if i > 0 {
			b.WriteByte(':')
		}
		b.WriteString(strings.ToUpper(hexDigest[i : i+2]))
	}
	return b.String(), nil
}
