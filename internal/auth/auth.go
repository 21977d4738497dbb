package auth

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"io"
	"net/http"
	"strings"
)

// Default header names for the two trigger authentication schemes.
const (
	SecretHeaderName    = "X-Deploy-Secret"
	SignatureHeaderName = "X-Hub-Signature-256"
)

// Authorizer decides whether a trigger request may run a deploy. The rest of
// the system trusts the boolean unconditionally; which scheme applies is
// selected by route, never by branching inside the handlers.
type Authorizer interface {
	Authorize(r *http.Request) bool
}

// SecretHeader authorizes requests carrying the shared secret verbatim in a
// header.
type SecretHeader struct {
	Header string
	Secret string
}

func NewSecretHeader(secret string) SecretHeader {
	return SecretHeader{Header: SecretHeaderName, Secret: secret}
}

func (a SecretHeader) Authorize(r *http.Request) bool {
	if a.Secret == "" {
		return false
	}
	got := r.Header.Get(a.Header)
	return subtle.ConstantTimeCompare([]byte(got), []byte(a.Secret)) == 1
}

// HMACSignature authorizes requests carrying a GitHub-style body signature:
// "sha256=" followed by the hex HMAC-SHA256 of the raw body under the shared
// secret. The body is read in full and restored so handlers can consume it.
type HMACSignature struct {
	Header string
	Secret string
}

func NewHMACSignature(secret string) HMACSignature {
	return HMACSignature{Header: SignatureHeaderName, Secret: secret}
}

func (a HMACSignature) Authorize(r *http.Request) bool {
	if a.Secret == "" {
		return false
	}

	sig := r.Header.Get(a.Header)
	rest, ok := strings.CutPrefix(sig, "sha256=")
	if !ok {
		return false
	}
	want, err := hex.DecodeString(rest)
	if err != nil {
		return false
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		return false
	}
	_ = r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(body))

	mac := hmac.New(sha256.New, []byte(a.Secret))
	mac.Write(body)
	return hmac.Equal(want, mac.Sum(nil))
}
