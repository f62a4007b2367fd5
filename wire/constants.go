// Package wire defines the fixed on-wire layout of the mix-link protocol:
// size constants, the typed command codec, and the AuthenticateMessage
// codec carried inside Noise handshake messages two and three.
package wire

// Size constants fixed by the wire protocol. Any
// implementation that does not reproduce these exact sizes is
// incompatible with this protocol.
const (
	// KeySize is the length in bytes of an X25519 static key.
	KeySize = 32

	// MACSize is the length in bytes of the ChaChaPoly authentication tag.
	MACSize = 16

	// MaxAdditionalDataSize is the largest additional-data blob an
	// AuthenticateMessage can carry.
	MaxAdditionalDataSize = 255

	// AuthMessageSize is the fixed encoded length of an AuthenticateMessage:
	// 1 length byte + 255 bytes of additional-data region + 4-byte
	// big-endian Unix timestamp.
	AuthMessageSize = 1 + MaxAdditionalDataSize + 4

	// NoiseMessageMaxSize is the hard ceiling the underlying Noise
	// primitive itself enforces on a single transport message.
	NoiseMessageMaxSize = 65535

	// PrologueSize is the length of the fixed prologue mixed into the
	// handshake hash.
	PrologueSize = 1

	// HandshakeMessage1Size is the wire size of the initiator's first
	// handshake frame: the one-byte prologue plus the Noise message.
	HandshakeMessage1Size = 1601

	// HandshakeMessage2Size is the wire size of the responder's first
	// handshake frame, carrying the encrypted AuthMessageSize-byte
	// AuthenticateMessage.
	HandshakeMessage2Size = 1940

	// HandshakeMessage3Size is the wire size of the initiator's final
	// handshake frame, carrying the encrypted AuthenticateMessage.
	HandshakeMessage3Size = 328

	// TransportHeaderSize is the wire size of a transport length-frame:
	// a MAC plus a 4-byte big-endian plaintext length.
	TransportHeaderSize = MACSize + 4

	// MaxMsgLen bounds the ciphertext body (MACSize + plaintext length) of
	// any single transport message sent with SendCommand.
	MaxMsgLen = 1 << 20

	// NoiseSuite names the exact, non-negotiable Noise protocol string this
	// implementation speaks.
	NoiseSuite = "Noise_XXhfs_25519+Kyber1024_ChaChaPoly_BLAKE2b"
)

// Prologue is the fixed single byte prepended to the initiator's first
// handshake message and mixed into the Noise handshake hash on both sides.
var Prologue = [PrologueSize]byte{0x01}
