package relay

import "github.com/pkg/errors"

// SetDescriptionResult is the user-visible result code the control API
// returns from AcceptAnswer.
type SetDescriptionResult int

const (
	OK SetDescriptionResult = iota
	AudioIncompatible
	VideoIncompatible
	NoRemoteMedia
	NoMatchingMediaType
	Error
	DtlsFingerprintMissing
	DtlsFingerprintDigestNotSupported
	DataChannelTransportNotSupported
	WrongSdpTypeOfferAfterOffer
)

func (r SetDescriptionResult) String() string {
	switch r {
	case OK:
		return "OK"
	case AudioIncompatible:
		return "AudioIncompatible"
	case VideoIncompatible:
		return "VideoIncompatible"
	case NoRemoteMedia:
		return "NoRemoteMedia"
	case NoMatchingMediaType:
		return "NoMatchingMediaType"
	case DtlsFingerprintMissing:
		return "DtlsFingerprintMissing"
	case DtlsFingerprintDigestNotSupported:
		return "DtlsFingerprintDigestNotSupported"
	case DataChannelTransportNotSupported:
		return "DataChannelTransportNotSupported"
	case WrongSdpTypeOfferAfterOffer:
		return "WrongSdpTypeOfferAfterOffer"
	default:
		return "Error"
	}
}

// Sentinel errors surfaced by the control API and peer session.
// Parse/ICE/DTLS/FEC package-local errors live in their own packages
// (internal/ice/errors.go, internal/fec/errors.go,
// internal/rtcp/errors.go); these are the ones the control API and peer
// session surface directly.
var (
	errUnknownPeer     = errors.New("relay: unknown peer id")
	errNoVideoMedia    = errors.New("relay: SDP answer has no m=video section")
	errIngestClosed    = errors.New("relay: ingest source is closed")
	errServiceStopped  = errors.New("relay: service has been stopped")
	errAlreadyAnswered = errors.New("relay: peer already has a remote description")
)
