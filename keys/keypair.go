// Package keys implements the static X25519 key material used to
// authenticate mix-link sessions.
//
// Example:
//
//	kp, err := keys.Generate()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println("public key:", hex.EncodeToString(kp.Public[:]))
package keys

import (
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/curve25519"
)

// Size is the length in bytes of both halves of a KeyPair.
const Size = 32

// KeyPair is a static X25519 key pair: a 32-byte secret and its derived
// 32-byte public key.
type KeyPair struct {
	Public  [Size]byte
	Private [Size]byte
}

// Generate creates a new random X25519 static key pair.
func Generate() (*KeyPair, error) {
	logger := logrus.WithFields(logrus.Fields{
		"function": "Generate",
		"package":  "keys",
	})
	logger.Debug("generating new static key pair")

	var priv [Size]byte
	if _, err := rand.Read(priv[:]); err != nil {
		logger.WithError(err).Error("failed to read random bytes for private key")
		return nil, fmt.Errorf("keys: generate: %w", err)
	}

	kp, err := FromSecretKey(priv)
	ZeroBytes(priv[:])
	if err != nil {
		return nil, err
	}

	logger.WithFields(logrus.Fields{
		"public_key_preview": fmt.Sprintf("%x", kp.Public[:8]),
	}).Info("static key pair generated")
	return kp, nil
}

// FromSecretKey derives the public half of a KeyPair from an existing
// 32-byte secret key.
func FromSecretKey(secretKey [Size]byte) (*KeyPair, error) {
	logger := logrus.WithFields(logrus.Fields{
		"function": "FromSecretKey",
		"package":  "keys",
	})

	if isZeroKey(secretKey) {
		logger.Warn("refusing to derive a key pair from an all-zero secret")
		return nil, errors.New("keys: invalid secret key: all zeros")
	}

	var pub [Size]byte
	curve25519.ScalarBaseMult(&pub, &secretKey)

	return &KeyPair{
		Public:  pub,
		Private: secretKey,
	}, nil
}

// Equal reports whether two public keys are the same, using a
// constant-time comparison. Public keys are not secret, but they are
// compared against secret-adjacent state in the authenticator's admission
// decision, so the comparison is constant-time rather than plain byte
// equality.
func Equal(a, b [Size]byte) bool {
	return subtle.ConstantTimeCompare(a[:], b[:]) == 1
}

func isZeroKey(key [Size]byte) bool {
	var zero [Size]byte
	return subtle.ConstantTimeCompare(key[:], zero[:]) == 1
}
