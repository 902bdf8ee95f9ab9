// Package pkce generates the client secrets for an RFC 7636 authorization request.
package pkce

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"

	"github.com/desertthunder/moodmix/internal/shared"
)

// VerifierLength is the number of characters in a code verifier (RFC 7636 allows 43 to 128).
const VerifierLength = 128

// stateLength is the number of random bytes behind an anti-CSRF token.
const stateLength = 32

// unreserved is the RFC 3986 unreserved character set allowed in a code verifier.
const unreserved = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-._~"

// Method is the only challenge method this client sends.
const Method = "S256"

// random is the entropy source. Replaced in tests to simulate failure.
var random io.Reader = rand.Reader

// GenerateChallengePair returns a fresh code verifier and its S256 challenge.
func GenerateChallengePair() (verifier, challenge string, err error) {
	verifier, err = randomString(VerifierLength)
	if err != nil {
		return "", "", err
	}
	return verifier, Challenge(verifier), nil
}

// Challenge computes BASE64URL(SHA256(verifier)) without padding.
func Challenge(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// GenerateAntiCsrfToken returns a random URL-safe state token, independent of any verifier.
func GenerateAntiCsrfToken() (string, error) {
	b := make([]byte, stateLength)
	if _, err := io.ReadFull(random, b); err != nil {
		return "", fmt.Errorf("%w: %v", shared.ErrRandomUnavailable, err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// randomString draws n characters from [unreserved] using rejection sampling so every character is equally likely.
func randomString(n int) (string, error) {
	// 66 symbols: accept bytes below 198 (3*66) and reduce mod 66.
	const limit = 256 - 256%len(unreserved)

	out := make([]byte, 0, n)
	buf := make([]byte, n)
	for len(out) < n {
		if _, err := io.ReadFull(random, buf); err != nil {
			return "", fmt.Errorf("%w: %v", shared.ErrRandomUnavailable, err)
		}
		for _, b := range buf {
			if int(b) >= limit {
				continue
			}
			out = append(out, unreserved[int(b)%len(unreserved)])
			if len(out) == n {
				break
			}
		}
	}
	return string(out), nil
}
