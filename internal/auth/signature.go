package auth

import (
	"crypto/ed25519"
	"encoding/base64"
	"errors"
)

var (
	ErrInvalidPublicKey = errors.New("Invalid public key")
	ErrInvalidSignature = errors.New("Invalid signature")
)

// ValidIdentity reports whether identity is a base64 ed25519 public key.
func ValidIdentity(identity string) bool {
	key, err := base64.StdEncoding.DecodeString(identity)
	return err == nil && len(key) == ed25519.PublicKeySize
}

// VerifySignature checks that signatureB64 is publicKeyB64's signature over
// the raw bytes of challenge.
func VerifySignature(publicKeyB64, challenge, signatureB64 string) error {
	publicKey, err := base64.StdEncoding.DecodeString(publicKeyB64)
	if err != nil || len(publicKey) != ed25519.PublicKeySize {
		return ErrInvalidPublicKey
	}
	if challenge == "" {
		return ErrInvalidSignature
	}

	signature, err := base64.StdEncoding.DecodeString(signatureB64)
	if err != nil || len(signature) != ed25519.SignatureSize {
		return ErrInvalidSignature
	}

	if !ed25519.Verify(ed25519.PublicKey(publicKey), []byte(challenge), signature) {
		return ErrInvalidSignature
	}
	return nil
}
