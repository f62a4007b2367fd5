package wire

import (
	"encoding/binary"
	"fmt"

	"github.com/sphinx-cryptography/mix-link/mixlinkerr"
)

// AuthenticateMessage is the fixed-width payload carried inside Noise
// handshake messages two and three. It conveys the
// sender's additional data and, for the server's copy, a timestamp used
// only for clock-skew detection.
type AuthenticateMessage struct {
	// AdditionalData is at most MaxAdditionalDataSize bytes.
	AdditionalData []byte
	// UnixTime is the sender's clock in seconds since the epoch. Clients
	// MUST encode zero here; servers SHOULD encode their current time.
	UnixTime uint32
}

// Encode serialises an AuthenticateMessage to exactly AuthMessageSize bytes:
// a length byte, the additional-data region zero-padded to
// MaxAdditionalDataSize, then a big-endian u32 timestamp.
func (m AuthenticateMessage) Encode() ([]byte, error) {
	if len(m.AdditionalData) > MaxAdditionalDataSize {
		return nil, fmt.Errorf("wire: additional data too large: %d bytes, max %d", len(m.AdditionalData), MaxAdditionalDataSize)
	}

	out := make([]byte, AuthMessageSize)
	out[0] = byte(len(m.AdditionalData))
	copy(out[1:], m.AdditionalData)
	binary.BigEndian.PutUint32(out[1+MaxAdditionalDataSize:], m.UnixTime)
	return out, nil
}

// DecodeAuthenticateMessage parses an AuthenticateMessage. It requires
// exactly AuthMessageSize bytes; the padding region (bytes L+1..256) is
// ignored on input, and the timestamp is never validated here; clock-skew
// interpretation belongs to the handshake layer.
func DecodeAuthenticateMessage(data []byte) (AuthenticateMessage, error) {
	if len(data) != AuthMessageSize {
		return AuthenticateMessage{}, fmt.Errorf("wire: %w: expected %d bytes, got %d", mixlinkerr.ErrInvalidAuthSize, AuthMessageSize, len(data))
	}

	adLen := int(data[0])
	if adLen > MaxAdditionalDataSize {
		return AuthenticateMessage{}, fmt.Errorf("wire: decode authenticate message: additional data length %d exceeds max %d", adLen, MaxAdditionalDataSize)
	}

	ad := make([]byte, adLen)
	copy(ad, data[1:1+adLen])
	unixTime := binary.BigEndian.Uint32(data[1+MaxAdditionalDataSize:])

	return AuthenticateMessage{AdditionalData: ad, UnixTime: unixTime}, nil
}
