// Portions of this file are:

// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package relay

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"time"

	"github.com/pkg/errors"
)

// generateCertificate produces a self-signed DTLS certificate for one
// peer connection: ECDSA over P-256, a randomly generated serial number,
// "WebRTC" as the common name, valid for 30 days (matching Chrome's own
// default). It is generated fresh for every peer rather than once for
// the whole service, since local/remote fingerprints are scoped per Peer.
func generateCertificate() (tls.Certificate, error) {
	notBefore := time.Now()
	notAfter := notBefore.Add(30 * 24 * time.Hour)

	serialNumberLimit := new(big.Int).Lsh(big.NewInt(1), 128)
	serialNumber, err := rand.Int(rand.Reader, serialNumberLimit)
	if err != nil {
		return tls.Certificate{}, errors.Wrap(err, "relay: generate certificate serial number")
	}

	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return tls.Certificate{}, errors.Wrap(err, "relay: generate certificate key")
	}

	template := x509.Certificate{
		SignatureAlgorithm: x509.ECDSAWithSHA256,
		SerialNumber:       serialNumber,
		Subject:            pkix.Name{CommonName: "WebRTC"},
		NotBefore:          notBefore,
		NotAfter:           notAfter,
	}

	der, err := x509.CreateCertificate(rand.Reader, &template, &template, &priv.PublicKey, priv)
	if err != nil {
		return tls.Certificate{}, errors.Wrap(err, "relay: create certificate")
	}

	return tls.Certificate{
		Certificate: [][]byte{der},
		PrivateKey:  priv,
	}, nil
}
