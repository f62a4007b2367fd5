// Package auth implements the role-aware peer authenticator that decides,
// at the end of a handshake, whether the static key the Noise layer
// produced belongs to an admissible peer.
package auth

import "github.com/sphinx-cryptography/mix-link/keys"

// PeerCredentials is the (additional_data, public_key) pair a handshake
// establishes for the remote side, exactly once per session.
type PeerCredentials struct {
	// AdditionalData is the peer-supplied opaque blob carried in its
	// AuthenticateMessage. At most wire.MaxAdditionalDataSize bytes.
	AdditionalData []byte
	// PublicKey is the peer's static public key, as extracted from the
	// completed Noise handshake.
	PublicKey [keys.Size]byte
}

// Wipe clears AdditionalData. The public key is not secret and is left
// untouched.
func (c *PeerCredentials) Wipe() {
	if c == nil {
		return
	}
	keys.ZeroBytes(c.AdditionalData)
}
