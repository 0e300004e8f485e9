//////////////////////////////////////////////////////////////////////////////
//
// Builds the relay's SDP offer and parses a peer's SDP answer, using a
// minimum-viable profile: one m=video/H264 line, rtcp-mux, setup:passive
// (we are always the DTLS server), our own fingerprint, and the single
// host candidate ICE-lite gathers.
//
//////////////////////////////////////////////////////////////////////////////

package relay

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/buldo/webrtcrelay/internal/ice"
	"github.com/buldo/webrtcrelay/internal/sdp"
)

// videoPayloadType is the dynamic payload type our offer assigns to H264,
// fixed at 96 (90000 Hz clock rate).
const videoPayloadType = 96

// buildOffer renders the SDP offer a newly created peer hands back from
// AppendClient.
func buildOffer(p *Peer) string {
	agent := p.iceAgent
	candidates := agent.LocalCandidates()

	media := sdp.Media{
		Type:   "video",
		Port:   9,
		Proto:  "UDP/TLS/RTP/SAVPF",
		Format: []string{strconv.Itoa(videoPayloadType)},
		Attributes: []sdp.Attribute{
			{Key: "rtpmap", Value: strconv.Itoa(videoPayloadType) + " H264/90000"},
			{Key: "rtcp-mux"},
			{Key: "setup", Value: "passive"},
			{Key: "fingerprint", Value: "sha-256 " + p.localFingerprint},
			{Key: "ice-lite"},
			{Key: "ice-ufrag", Value: agent.LocalUfrag()},
			{Key: "ice-pwd", Value: agent.LocalPassword()},
			{Key: "mid", Value: "0"},
		},
	}
	for _, c := range candidates {
		// c.String() already begins with "candidate:"; split it into the
		// attribute key/value pair the SDP writer expects so it serializes
		// as "a=candidate:...", not "a=candidate:candidate:...".
		line := strings.TrimPrefix(c.String(), "candidate:")
		media.Attributes = append(media.Attributes, sdp.Attribute{Key: "candidate", Value: line})
	}

	session := sdp.Session{
		Version: 0,
		Origin: sdp.Origin{
			Username:       "-",
			SessionId:      p.id.String(),
			SessionVersion: 1,
			NetworkType:    "IN",
			AddressType:    "IP4",
			Address:        "0.0.0.0",
		},
		Name: "-",
		Time: []sdp.Time{{}},
		Attributes: []sdp.Attribute{
			{Key: "group", Value: "BUNDLE 0"},
		},
		Media: []sdp.Media{media},
	}

	return session.String()
}

// remoteDescription is the subset of a peer's SDP answer the control API
// needs to finish the handshake.
type remoteDescription struct {
	fingerprintDigest string
	fingerprintHex    string
	iceUfrag          string
	icePassword       string
	candidates        []ice.Candidate
}

// parseAnswer validates and extracts the fields a peer's SDP answer must
// carry (fingerprint, ice-ufrag/pwd, candidates), returning the
// SetDescriptionResult code the control API surfaces on failure.
func parseAnswer(answer string) (*remoteDescription, SetDescriptionResult, error) {
	session, err := sdp.ParseSession(answer)
	if err != nil {
		return nil, Error, errors.Wrap(err, "relay: parse SDP answer")
	}

	var videoMedia *sdp.Media
	for i := range session.Media {
		if session.Media[i].Type == "video" {
			videoMedia = &session.Media[i]
			break
		}
	}
	if videoMedia == nil {
		return nil, NoRemoteMedia, errNoVideoMedia
	}

	rd := &remoteDescription{}
	var mid string
	for _, a := range videoMedia.Attributes {
		switch a.Key {
		case "mid":
			mid = a.Value
		case "ice-ufrag":
			rd.iceUfrag = a.Value
		case "ice-pwd":
			rd.icePassword = a.Value
		case "fingerprint":
			digest, hex, ferr := splitFingerprint(a.Value)
			if ferr != nil {
				return nil, Error, ferr
			}
			rd.fingerprintDigest = digest
			rd.fingerprintHex = hex
		case "candidate":
			c, cerr := ice.ParseCandidate("candidate:"+a.Value, mid)
			if cerr != nil {
				return nil, Error, errors.Wrap(cerr, "relay: parse candidate")
			}
			rd.candidates = append(rd.candidates, c)
		}
	}

	if rd.fingerprintHex == "" {
		return nil, DtlsFingerprintMissing, errors.New("relay: SDP answer has no a=fingerprint attribute")
	}
	if rd.fingerprintDigest != "sha-256" {
		return nil, DtlsFingerprintDigestNotSupported, errors.Errorf("relay: unsupported fingerprint digest %q", rd.fingerprintDigest)
	}

	return rd, OK, nil
}

func splitFingerprint(value string) (digest, hexValue string, err error) {
	for i := 0; i < len(value); i++ {
		if value[i] == ' ' {
			return value[:i], value[i+1:], nil
		}
	}
	return "", "", errors.New("relay: malformed a=fingerprint attribute")
}
