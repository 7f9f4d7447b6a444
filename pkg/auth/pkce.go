package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

// PKCEPair binds an authorization code to this client per RFC 7636. One
// pair is generated per attempt and never reused.
type PKCEPair struct {
	Verifier  string
	Challenge string
	Method    string
}

// GeneratePKCE returns a fresh verifier/challenge pair. The verifier is
// the unpadded base64url form of 32 random bytes (43 characters), the
// challenge the unpadded base64url SHA-256 of the verifier.
func GeneratePKCE() (PKCEPair, error) {
	verifier, err := randomToken(32)
	if err != nil {
		return PKCEPair{}, err
	}
	return PKCEPair{
		Verifier:  verifier,
		Challenge: ChallengeS256(verifier),
		Method:    "S256",
	}, nil
}

// ChallengeS256 computes the S256 code challenge for a verifier.
func ChallengeS256(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// NewStateToken returns the per-attempt CSRF state value.
func NewStateToken() (string, error) {
	return randomToken(32)
}

func randomToken(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate random token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(bytes), nil
}
