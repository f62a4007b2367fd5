// Package noise drives the Noise-XXhfs handshake and transport state
// machine of the mix-link protocol: a Builder wraps exactly
// one Noise handshake state until IntoTransportMode converts it into a
// TransportBuilder that frames, encrypts, rekeys, and decrypts commands.
package noise

import (
	knoise "github.com/katzenpost/noise"
)

// cipherSuite returns the fixed, non-negotiable primitive set for
// Noise_XXhfs_25519+Kyber1024_ChaChaPoly_BLAKE2b (wire.NoiseSuite): classical
// X25519 Diffie-Hellman hybridised with the Kyber1024 KEM, ChaCha20-Poly1305
// AEAD, and BLAKE2b hashing.
func cipherSuite() knoise.CipherSuiteHFS {
	return knoise.NewCipherSuiteHFS(knoise.DH25519, knoise.CipherChaChaPoly, knoise.HashBLAKE2b, knoise.HFSKyber1024)
}
