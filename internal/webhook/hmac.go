package webhook

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"hash"
	"strings"
)

// digests maps the algorithm name from the signature header to its
// constructor. GitHub signs with sha1 (X-Hub-Signature) and sha256
// (X-Hub-Signature-256); sha512 costs nothing to accept.
var digests = map[string]func() hash.Hash{
	"sha1":   sha1.New,
	"sha256": sha256.New,
	"sha512": sha512.New,
}

// verifySignature checks the "<algo>=<hexdigest>" header value against an
// HMAC computed over the raw body with the shared secret.
//
// The digest comparison uses hmac.Equal (constant time), so comparison time
// does not depend on where the first mismatching byte occurs. Structural
// failures (missing separator, unknown algorithm, bad hex) are reported
// distinctly from a mismatch.
func verifySignature(body []byte, header, secret string) (RejectReason, bool) {
	if header == "" {
		return RejectSignatureMissing, false
	}

	algo, hexDigest, found := strings.Cut(header, "=")
	if !found || algo == "" || hexDigest == "" {
		return RejectSignatureMalformed, false
	}

	newHash, ok := digests[algo]
	if !ok {
		return RejectSignatureMalformed, false
	}

	submitted, err := hex.DecodeString(hexDigest)
	if err != nil {
		return RejectSignatureMalformed, false
	}

	mac := hmac.New(newHash, []byte(secret))
	mac.Write(body)

	if !hmac.Equal(mac.Sum(nil), submitted) {
		return RejectSignatureMismatch, false
	}
	return "", true
}

// SignBody computes the "<algo>=<hexdigest>" header value for a body.
func SignBody(algo string, body []byte, secret string) string {
	newHash, ok := digests[algo]
	if !ok {
		return ""
	}
	mac := hmac.New(newHash, []byte(secret))
	mac.Write(body)
	return algo + "=" + hex.EncodeToString(mac.Sum(nil))
}
