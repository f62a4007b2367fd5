package noise

import (
	"crypto/subtle"
	"fmt"
	"time"

	knoise "github.com/katzenpost/noise"
	"github.com/sirupsen/logrus"

	"github.com/sphinx-cryptography/mix-link/auth"
	"github.com/sphinx-cryptography/mix-link/keys"
	"github.com/sphinx-cryptography/mix-link/mixlinkerr"
	"github.com/sphinx-cryptography/mix-link/wire"
)

// State enumerates the lifecycle of a Builder.
type State int

const (
	StateInit State = iota
	StateSentClientHandshake1
	StateReceivedServerHandshake1
	StateReceivedClientHandshake1
	StateSentServerHandshake1
	StateDataTransfer
	StateDisconnected
	StateInvalid
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "Init"
	case StateSentClientHandshake1:
		return "SentClientHandshake1"
	case StateReceivedServerHandshake1:
		return "ReceivedServerHandshake1"
	case StateReceivedClientHandshake1:
		return "ReceivedClientHandshake1"
	case StateSentServerHandshake1:
		return "SentServerHandshake1"
	case StateDataTransfer:
		return "DataTransfer"
	case StateDisconnected:
		return "Disconnected"
	default:
		return "Invalid"
	}
}

// Config carries what a Builder needs to drive one side of the handshake
//.
type Config struct {
	// Authenticator decides whether the peer's static key is admissible.
	Authenticator auth.PeerAuthenticator
	// AuthenticationKey is this side's local static key pair.
	AuthenticationKey keys.KeyPair
	// PeerPublicKey is the expected peer static key. Required when this
	// Builder is the initiator.
	PeerPublicKey *[keys.Size]byte
	// AdditionalData is carried in this side's AuthenticateMessage. At
	// most wire.MaxAdditionalDataSize bytes.
	AdditionalData []byte
}

// Builder drives one side of the Noise-XXhfs handshake.
// It holds exactly one Noise handshake state until IntoTransportMode
// consumes it.
type Builder struct {
	state           State
	hs              *knoise.HandshakeState
	sendCipher      *knoise.CipherState
	recvCipher      *knoise.CipherState
	additionalData  []byte
	authenticator   auth.PeerAuthenticator
	isInitiator     bool
	clockSkew       uint32
	peerCredentials *auth.PeerCredentials
	transportTaken  bool
}

func newHandshakeState(cfg Config, isInitiator bool) (*knoise.HandshakeState, error) {
	hsConfig := knoise.Config{
		CipherSuite: cipherSuite(),
		Pattern:     knoise.HandshakeXXhfs,
		Initiator:   isInitiator,
		Prologue:    append([]byte(nil), wire.Prologue[:]...),
		StaticKeypair: knoise.DHKey{
			Private: append([]byte(nil), cfg.AuthenticationKey.Private[:]...),
			Public:  append([]byte(nil), cfg.AuthenticationKey.Public[:]...),
		},
	}

	if isInitiator {
		if cfg.PeerPublicKey == nil {
			return nil, mixlinkerr.ErrNoPeerKey
		}
		hsConfig.PeerStatic = append([]byte(nil), cfg.PeerPublicKey[:]...)
	}

	hs, err := knoise.NewHandshakeState(hsConfig)
	if err != nil {
		return nil, fmt.Errorf("noise: %w: %v", mixlinkerr.ErrSessionCreate, err)
	}
	return hs, nil
}

// NewInitiatorBuilder constructs a Builder for the side that dials and
// sends the first handshake message.
func NewInitiatorBuilder(cfg Config) (*Builder, error) {
	hs, err := newHandshakeState(cfg, true)
	if err != nil {
		return nil, err
	}
	return &Builder{
		state:          StateInit,
		hs:             hs,
		additionalData: append([]byte(nil), cfg.AdditionalData...),
		authenticator:  cfg.Authenticator,
		isInitiator:    true,
	}, nil
}

// NewResponderBuilder constructs a Builder for the side that listens and
// reads the first handshake message.
func NewResponderBuilder(cfg Config) (*Builder, error) {
	hs, err := newHandshakeState(cfg, false)
	if err != nil {
		return nil, err
	}
	return &Builder{
		state:          StateInit,
		hs:             hs,
		additionalData: append([]byte(nil), cfg.AdditionalData...),
		authenticator:  cfg.Authenticator,
		isInitiator:    false,
	}, nil
}

// State returns the Builder's current lifecycle state.
func (b *Builder) State() State { return b.state }

// IsInitiator reports whether this Builder is driving the initiator side.
func (b *Builder) IsInitiator() bool { return b.isInitiator }

// ClockSkew returns the cached, unsigned clock-skew value computed while
// processing the server's first handshake message. It is
// zero, and meaningless, until the initiator reaches ReceivedServerHandshake1.
func (b *Builder) ClockSkew() uint32 { return b.clockSkew }

// PeerCredentials returns the peer credentials established during the
// handshake, or nil before they exist. They are present iff the state is
// ReceivedServerHandshake1, DataTransfer, or Disconnected.
func (b *Builder) PeerCredentials() *auth.PeerCredentials { return b.peerCredentials }

// setCipherStates assigns the two ciphers Noise's Split() produces to the
// send/recv roles per this Builder's side, matching the Noise convention
// that cs1 always encrypts initiator->responder traffic and cs2 always
// encrypts responder->initiator traffic.
func (b *Builder) setCipherStates(cs1, cs2 *knoise.CipherState) {
	if b.isInitiator {
		b.sendCipher, b.recvCipher = cs1, cs2
	} else {
		b.sendCipher, b.recvCipher = cs2, cs1
	}
}

// WriteClientHandshake1 builds the initiator's first handshake frame: the
// one-byte prologue followed by Noise message 1, exactly
// wire.HandshakeMessage1Size bytes.
func (b *Builder) WriteClientHandshake1() ([]byte, error) {
	if b.state != StateInit {
		return nil, mixlinkerr.ErrInvalidState
	}

	msg, cs1, cs2, err := b.hs.WriteMessage(nil, nil)
	if err != nil {
		return nil, fmt.Errorf("noise: %w: %v", mixlinkerr.ErrNoise1Write, err)
	}
	if cs1 != nil || cs2 != nil {
		return nil, fmt.Errorf("noise: %w: handshake completed prematurely on message 1", mixlinkerr.ErrNoise1Write)
	}
	if len(msg) != wire.HandshakeMessage1Size-wire.PrologueSize {
		return nil, fmt.Errorf("noise: %w: produced %d bytes, want %d", mixlinkerr.ErrNoise1Write, len(msg), wire.HandshakeMessage1Size-wire.PrologueSize)
	}

	frame := make([]byte, wire.HandshakeMessage1Size)
	frame[0] = wire.Prologue[0]
	copy(frame[wire.PrologueSize:], msg)

	b.state = StateSentClientHandshake1
	return frame, nil
}

// ReadServerHandshake1 consumes the responder's wire.HandshakeMessage2Size
// frame, authenticates the peer, and caches the clock skew.
func (b *Builder) ReadServerHandshake1(frame []byte) error {
	logger := logrus.WithFields(logrus.Fields{"package": "noise", "function": "ReadServerHandshake1"})

	if b.state != StateSentClientHandshake1 {
		return mixlinkerr.ErrInvalidState
	}
	if len(frame) != wire.HandshakeMessage2Size {
		return fmt.Errorf("noise: %w: expected %d bytes, got %d", mixlinkerr.ErrNoise2Read, wire.HandshakeMessage2Size, len(frame))
	}

	now := uint32(time.Now().Unix())
	raw, _, _, err := b.hs.ReadMessage(nil, frame)
	if err != nil {
		return fmt.Errorf("noise: %w: %v", mixlinkerr.ErrNoise2Read, err)
	}

	peerAuth, err := wire.DecodeAuthenticateMessage(raw)
	if err != nil {
		return fmt.Errorf("noise: %w: %v", mixlinkerr.ErrAuthDecode, err)
	}

	creds, err := b.extractPeerCredentials(peerAuth)
	if err != nil {
		return err
	}
	if !b.authenticator.Authenticate(creds) {
		logger.Warn("peer rejected by authenticator")
		return mixlinkerr.ErrAuthenticationRejected
	}

	b.peerCredentials = &creds
	b.clockSkew = now - peerAuth.UnixTime
	b.state = StateReceivedServerHandshake1
	return nil
}

// WriteClientHandshake2 builds the initiator's final handshake frame
// carrying its own AuthenticateMessage, and transitions to DataTransfer
//.
func (b *Builder) WriteClientHandshake2() ([]byte, error) {
	if b.state != StateReceivedServerHandshake1 {
		return nil, mixlinkerr.ErrInvalidState
	}

	ours := wire.AuthenticateMessage{AdditionalData: b.additionalData, UnixTime: 0}
	payload, err := ours.Encode()
	if err != nil {
		return nil, fmt.Errorf("noise: %w: %v", mixlinkerr.ErrNoise3Write, err)
	}

	msg, cs1, cs2, err := b.hs.WriteMessage(nil, payload)
	if err != nil {
		return nil, fmt.Errorf("noise: %w: %v", mixlinkerr.ErrNoise3Write, err)
	}
	if len(msg) != wire.HandshakeMessage3Size {
		return nil, fmt.Errorf("noise: %w: produced %d bytes, want %d", mixlinkerr.ErrNoise3Write, len(msg), wire.HandshakeMessage3Size)
	}
	if cs1 == nil || cs2 == nil {
		return nil, fmt.Errorf("noise: %w: handshake did not complete on message 3", mixlinkerr.ErrNoise3Write)
	}

	b.setCipherStates(cs1, cs2)
	b.state = StateDataTransfer
	return msg, nil
}

// ReadClientHandshake1 verifies the prologue in constant time and consumes
// the initiator's wire.HandshakeMessage1Size frame.
func (b *Builder) ReadClientHandshake1(frame []byte) error {
	if b.state != StateInit {
		return mixlinkerr.ErrInvalidState
	}
	if len(frame) != wire.HandshakeMessage1Size {
		return fmt.Errorf("noise: %w: expected %d bytes, got %d", mixlinkerr.ErrNoise1Read, wire.HandshakeMessage1Size, len(frame))
	}
	if subtle.ConstantTimeCompare(frame[:wire.PrologueSize], wire.Prologue[:]) != 1 {
		return mixlinkerr.ErrPrologueMismatch
	}

	_, cs1, cs2, err := b.hs.ReadMessage(nil, frame[wire.PrologueSize:])
	if err != nil {
		return fmt.Errorf("noise: %w: %v", mixlinkerr.ErrNoise1Read, err)
	}
	if cs1 != nil || cs2 != nil {
		return fmt.Errorf("noise: %w: handshake completed prematurely on message 1", mixlinkerr.ErrNoise1Read)
	}

	b.state = StateReceivedClientHandshake1
	return nil
}

// WriteServerHandshake1 builds the responder's second handshake frame
// carrying its own AuthenticateMessage.
func (b *Builder) WriteServerHandshake1() ([]byte, error) {
	if b.state != StateReceivedClientHandshake1 {
		return nil, mixlinkerr.ErrInvalidState
	}

	ours := wire.AuthenticateMessage{AdditionalData: b.additionalData, UnixTime: uint32(time.Now().Unix())}
	payload, err := ours.Encode()
	if err != nil {
		return nil, fmt.Errorf("noise: %w: %v", mixlinkerr.ErrNoise2Write, err)
	}

	msg, cs1, cs2, err := b.hs.WriteMessage(nil, payload)
	if err != nil {
		return nil, fmt.Errorf("noise: %w: %v", mixlinkerr.ErrNoise2Write, err)
	}
	if len(msg) != wire.HandshakeMessage2Size {
		return nil, fmt.Errorf("noise: %w: produced %d bytes, want %d", mixlinkerr.ErrNoise2Write, len(msg), wire.HandshakeMessage2Size)
	}
	if cs1 != nil || cs2 != nil {
		return nil, fmt.Errorf("noise: %w: handshake completed prematurely on message 2", mixlinkerr.ErrNoise2Write)
	}

	b.state = StateSentServerHandshake1
	return msg, nil
}

// ReadClientHandshake2 consumes the initiator's final handshake frame,
// authenticates the peer, and transitions to DataTransfer.
func (b *Builder) ReadClientHandshake2(frame []byte) error {
	logger := logrus.WithFields(logrus.Fields{"package": "noise", "function": "ReadClientHandshake2"})

	if b.state != StateSentServerHandshake1 {
		return mixlinkerr.ErrInvalidState
	}
	if len(frame) != wire.HandshakeMessage3Size {
		return fmt.Errorf("noise: %w: expected %d bytes, got %d", mixlinkerr.ErrNoise3Read, wire.HandshakeMessage3Size, len(frame))
	}

	raw, cs1, cs2, err := b.hs.ReadMessage(nil, frame)
	if err != nil {
		return fmt.Errorf("noise: %w: %v", mixlinkerr.ErrNoise3Read, err)
	}
	if cs1 == nil || cs2 == nil {
		return fmt.Errorf("noise: %w: handshake did not complete on message 3", mixlinkerr.ErrNoise3Read)
	}

	peerAuth, err := wire.DecodeAuthenticateMessage(raw)
	if err != nil {
		return fmt.Errorf("noise: %w: %v", mixlinkerr.ErrAuthDecode, err)
	}

	creds, err := b.extractPeerCredentials(peerAuth)
	if err != nil {
		return err
	}
	if !b.authenticator.Authenticate(creds) {
		logger.Warn("peer rejected by authenticator")
		return mixlinkerr.ErrAuthenticationRejected
	}

	b.peerCredentials = &creds
	b.setCipherStates(cs1, cs2)
	b.state = StateDataTransfer
	return nil
}

func (b *Builder) extractPeerCredentials(peerAuth wire.AuthenticateMessage) (auth.PeerCredentials, error) {
	remoteStatic := b.hs.PeerStatic()
	if len(remoteStatic) != keys.Size {
		return auth.PeerCredentials{}, mixlinkerr.ErrRemoteStaticUnavailable
	}
	var peerKey [keys.Size]byte
	copy(peerKey[:], remoteStatic)
	return auth.PeerCredentials{AdditionalData: peerAuth.AdditionalData, PublicKey: peerKey}, nil
}

// IntoTransportMode consumes the handshake Builder, producing a
// TransportBuilder that frames, encrypts, rekeys, and decrypts commands.
// Calling it outside StateDataTransfer is a programming error, not a
// protocol error, and panics; calling it twice on the same
// Builder returns ErrAlreadyTransport.
func (b *Builder) IntoTransportMode() (*TransportBuilder, error) {
	if b.transportTaken {
		return nil, mixlinkerr.ErrAlreadyTransport
	}
	if b.state != StateDataTransfer {
		panic("noise: IntoTransportMode called outside DataTransfer state: " + b.state.String())
	}

	b.transportTaken = true
	tb := &TransportBuilder{
		send:            b.sendCipher,
		recv:            b.recvCipher,
		additionalData:  b.additionalData,
		peerCredentials: b.peerCredentials,
		authenticator:   b.authenticator,
		isInitiator:     b.isInitiator,
		clockSkew:       b.clockSkew,
	}
	b.hs = nil
	b.sendCipher = nil
	b.recvCipher = nil
	return tb, nil
}
