// Package mixlinkerr collects the sentinel errors returned by every layer
// of the mix-link protocol, grouped by the phase that raises them.
// Callers should compare with errors.Is against these
// sentinels rather than matching on error strings; call sites either return
// a sentinel as is or wrap it with fmt.Errorf("...: %w", err) to add context.
package mixlinkerr

import "errors"

// Handshake-lifecycle errors, raised by the noise package's Builder
// regardless of role, and by the session package's handshake finalization
// and Clone.
var (
	// ErrInvalidNoiseSpec indicates the hard-coded Noise protocol string
	// failed to parse into a usable cipher suite and pattern.
	ErrInvalidNoiseSpec = errors.New("mixlinkerr: invalid noise protocol spec")
	// ErrNoPeerKey indicates an initiator Builder was constructed without
	// the required expected peer public key.
	ErrNoPeerKey = errors.New("mixlinkerr: initiator requires a peer public key")
	// ErrSessionCreate indicates the underlying Noise handshake state could
	// not be constructed.
	ErrSessionCreate = errors.New("mixlinkerr: failed to create noise handshake state")
	// ErrInvalidState indicates a handshake step was invoked while the
	// Builder was not in the state that step requires.
	ErrInvalidState = errors.New("mixlinkerr: handshake step invoked in the wrong state")
	// ErrInvalidHandshakeFinalize indicates the mandatory post-handshake
	// NoOp exchange received something other than a NoOp.
	ErrInvalidHandshakeFinalize = errors.New("mixlinkerr: handshake finalization received a non-NoOp command")
	// ErrAlreadyTransport indicates IntoTransportMode was called on a
	// Builder that had already been converted.
	ErrAlreadyTransport = errors.New("mixlinkerr: handshake builder already converted to transport mode")
)

// Client-side handshake errors.
var (
	ErrNoise1Write             = errors.New("mixlinkerr: noise message 1 write failed")
	ErrNoise2Read              = errors.New("mixlinkerr: noise message 2 read failed")
	ErrNoise3Write             = errors.New("mixlinkerr: noise message 3 write failed")
	ErrAuthDecode              = errors.New("mixlinkerr: failed to decode authenticate message")
	ErrAuthenticationRejected  = errors.New("mixlinkerr: peer rejected by authenticator")
	ErrRemoteStaticUnavailable = errors.New("mixlinkerr: failed to extract peer static key from noise state")
)

// Server-side handshake errors.
var (
	ErrPrologueMismatch = errors.New("mixlinkerr: prologue byte mismatch")
	ErrNoise1Read       = errors.New("mixlinkerr: noise message 1 read failed")
	ErrNoise2Write      = errors.New("mixlinkerr: noise message 2 write failed")
	ErrNoise3Read       = errors.New("mixlinkerr: noise message 3 read failed")
)

// AuthenticateMessage codec errors.
var ErrInvalidAuthSize = errors.New("mixlinkerr: authenticate message has the wrong size")

// Transport send errors.
var (
	ErrMessageTooLarge = errors.New("mixlinkerr: command exceeds the maximum transport message size")
	ErrEncryptFailed   = errors.New("mixlinkerr: noise encryption failed")
)

// Transport receive errors.
var (
	ErrDecryptFailed = errors.New("mixlinkerr: noise decryption failed")
	ErrDecodeFailed  = errors.New("mixlinkerr: command decode failed")
)
