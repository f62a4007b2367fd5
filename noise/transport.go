package noise

import (
	"encoding/binary"
	"fmt"

	knoise "github.com/katzenpost/noise"
	"github.com/sirupsen/logrus"

	"github.com/sphinx-cryptography/mix-link/auth"
	"github.com/sphinx-cryptography/mix-link/mixlinkerr"
	"github.com/sphinx-cryptography/mix-link/wire"
)

// TransportBuilder frames, encrypts, rekeys, and decrypts commands once a
// Builder has completed its handshake. It holds exactly
// a transport Noise cipher pair, never a handshake state.
type TransportBuilder struct {
	send            *knoise.CipherState
	recv            *knoise.CipherState
	additionalData  []byte
	peerCredentials *auth.PeerCredentials
	authenticator   auth.PeerAuthenticator
	isInitiator     bool
	clockSkew       uint32
}

// PeerCredentials returns the peer credentials established during the
// handshake.
func (t *TransportBuilder) PeerCredentials() *auth.PeerCredentials { return t.peerCredentials }

// ClockSkew returns the clock skew cached during the handshake.
func (t *TransportBuilder) ClockSkew() uint32 { return t.clockSkew }

// IsInitiator reports whether this side drove the initiator half of the handshake.
func (t *TransportBuilder) IsInitiator() bool { return t.isInitiator }

// IsPeerClient reports whether the authenticator classified the peer as a
// client. Only meaningful for a Provider authenticator acting as a
// responder.
func (t *TransportBuilder) IsPeerClient() bool { return t.authenticator.IsPeerClient() }

// EncryptCommand produces the two wire frames for one outgoing command: a
// 20-byte length frame followed by a len(body)+16-byte body frame, then
// rekeys the outgoing cipher. cmdBytes is the already-encoded
// command (wire.Encode output).
func (t *TransportBuilder) EncryptCommand(cmdBytes []byte) ([]byte, error) {
	ctLen := wire.MACSize + len(cmdBytes)
	if ctLen > wire.MaxMsgLen {
		return nil, mixlinkerr.ErrMessageTooLarge
	}
	if ctLen > wire.NoiseMessageMaxSize {
		return nil, mixlinkerr.ErrMessageTooLarge
	}

	var lenHeader [4]byte
	binary.BigEndian.PutUint32(lenHeader[:], uint32(ctLen))

	headerFrame, err := t.send.Encrypt(nil, nil, lenHeader[:])
	if err != nil {
		return nil, fmt.Errorf("noise: %w: %v", mixlinkerr.ErrEncryptFailed, err)
	}
	if len(headerFrame) != wire.TransportHeaderSize {
		return nil, fmt.Errorf("noise: %w: length frame is %d bytes, want %d", mixlinkerr.ErrEncryptFailed, len(headerFrame), wire.TransportHeaderSize)
	}

	bodyFrame, err := t.send.Encrypt(nil, nil, cmdBytes)
	if err != nil {
		return nil, fmt.Errorf("noise: %w: %v", mixlinkerr.ErrEncryptFailed, err)
	}

	out := make([]byte, 0, len(headerFrame)+len(bodyFrame))
	out = append(out, headerFrame...)
	out = append(out, bodyFrame...)

	t.send.Rekey()
	return out, nil
}

// DecryptHeader decrypts a 20-byte length frame and returns the length of
// the body frame that follows (MACSize plus the plaintext command length),
// which is the number of bytes to read next. It does not rekey: call
// DecryptBody to complete one receive and rekey the incoming cipher.
func (t *TransportBuilder) DecryptHeader(headerFrame []byte) (uint32, error) {
	if len(headerFrame) != wire.TransportHeaderSize {
		return 0, fmt.Errorf("noise: %w: length frame is %d bytes, want %d", mixlinkerr.ErrDecryptFailed, len(headerFrame), wire.TransportHeaderSize)
	}
	plaintext, err := t.recv.Decrypt(nil, nil, headerFrame)
	if err != nil {
		logrus.WithFields(logrus.Fields{"package": "noise", "function": "DecryptHeader"}).Warn("length-frame decrypt failed")
		return 0, fmt.Errorf("noise: %w: %v", mixlinkerr.ErrDecryptFailed, err)
	}
	if len(plaintext) != 4 {
		return 0, fmt.Errorf("noise: %w: decrypted length is %d bytes, want 4", mixlinkerr.ErrDecryptFailed, len(plaintext))
	}
	bodyLen := binary.BigEndian.Uint32(plaintext)
	if bodyLen > wire.MaxMsgLen {
		return 0, fmt.Errorf("noise: %w: peer announced a %d-byte body, max %d", mixlinkerr.ErrMessageTooLarge, bodyLen, wire.MaxMsgLen)
	}
	return bodyLen, nil
}

// DecryptBody decrypts the body frame following a header decrypted by
// DecryptHeader, rekeys the incoming cipher, and returns the plaintext
// command bytes.
func (t *TransportBuilder) DecryptBody(bodyFrame []byte) ([]byte, error) {
	plaintext, err := t.recv.Decrypt(nil, nil, bodyFrame)
	if err != nil {
		logrus.WithFields(logrus.Fields{"package": "noise", "function": "DecryptBody"}).Warn("body-frame decrypt failed")
		return nil, fmt.Errorf("noise: %w: %v", mixlinkerr.ErrDecryptFailed, err)
	}
	t.recv.Rekey()
	return plaintext, nil
}

// Wipe advances both ciphers one final time so the keys that protected the
// last messages are no longer derivable, then clears the builder's
// additional-data buffer. The cipher states themselves are left to be
// garbage collected.
func (t *TransportBuilder) Wipe() {
	if t.send != nil {
		t.send.Rekey()
	}
	if t.recv != nil {
		t.recv.Rekey()
	}
	for i := range t.additionalData {
		t.additionalData[i] = 0
	}
}
