package wire

import (
	"encoding/binary"
	"fmt"
)

// SURBIDSize is the length of the opaque SURB identifier carried by a
// MessageAck command. The Sphinx SURB format itself is out of scope for
// this protocol; only its fixed size matters here.
const SURBIDSize = 16

// headerSize is the length of the tag + reserved + body-length prefix
// common to every command on the wire.
const headerSize = 1 + 3 + 4

// Tag identifies a command's wire type. Tag values are frozen and form the
// interop boundary; never renumber an existing tag.
type Tag byte

const (
	TagNoOp            Tag = 0x00
	TagDisconnect      Tag = 0x01
	TagSendPacket      Tag = 0x02
	TagRetrieveMessage Tag = 0x10
	TagMessageEmpty    Tag = 0x11
	TagMessage         Tag = 0x12
	TagMessageAck      Tag = 0x13
	TagGetConsensus    Tag = 0x20
	TagConsensus       Tag = 0x21
)

// Command is a typed link-layer message. Every variant below implements it.
type Command interface {
	// Tag returns the command's wire type tag.
	Tag() Tag
	// body returns the command's wire body, excluding the shared header.
	body() []byte
}

// NoOp carries no payload. It is also the mandatory post-handshake
// finalization command.
type NoOp struct{}

// Disconnect signals a graceful close. The session package does not act on
// it: RecvCommand returns it to the caller like any other command.
type Disconnect struct{}

// SendPacket carries an opaque Sphinx mix packet. The Sphinx format itself
// is an external collaborator; this protocol only moves bytes.
type SendPacket struct {
	SphinxPacket []byte
}

// RetrieveMessage asks a provider for the message at Sequence in the
// client's receive queue.
type RetrieveMessage struct {
	Sequence uint32
}

// MessageEmpty answers a RetrieveMessage when the queue has nothing at
// Sequence.
type MessageEmpty struct {
	Sequence uint32
}

// Message answers a RetrieveMessage with a queued message.
// QueueSizeHint tells the client approximately how many messages remain
// queued after this one.
type Message struct {
	QueueSizeHint uint8
	Sequence      uint32
	Payload       []byte
}

// MessageAck answers a RetrieveMessage with a SURB-ACK carrying both a
// reply payload and the SURB identifier the recipient should use to
// acknowledge delivery.
type MessageAck struct {
	QueueSizeHint uint8
	Sequence      uint32
	ID            [SURBIDSize]byte
	Payload       []byte
}

// GetConsensus requests the network consensus document for Epoch.
type GetConsensus struct {
	Epoch uint64
}

// Consensus answers a GetConsensus. A non-zero ErrorCode indicates the
// request could not be satisfied and Payload carries no document.
type Consensus struct {
	ErrorCode uint8
	Payload   []byte
}

func (NoOp) Tag() Tag               { return TagNoOp }
func (NoOp) body() []byte           { return nil }
func (Disconnect) Tag() Tag         { return TagDisconnect }
func (Disconnect) body() []byte     { return nil }
func (c SendPacket) Tag() Tag       { return TagSendPacket }
func (c SendPacket) body() []byte   { return c.SphinxPacket }
func (c RetrieveMessage) Tag() Tag  { return TagRetrieveMessage }
func (c GetConsensus) Tag() Tag     { return TagGetConsensus }

func (c RetrieveMessage) body() []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, c.Sequence)
	return b
}

func (c MessageEmpty) Tag() Tag { return TagMessageEmpty }
func (c MessageEmpty) body() []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, c.Sequence)
	return b
}

func (c Message) Tag() Tag { return TagMessage }
func (c Message) body() []byte {
	b := make([]byte, 1+4+len(c.Payload))
	b[0] = c.QueueSizeHint
	binary.BigEndian.PutUint32(b[1:5], c.Sequence)
	copy(b[5:], c.Payload)
	return b
}

func (c MessageAck) Tag() Tag { return TagMessageAck }
func (c MessageAck) body() []byte {
	b := make([]byte, 1+4+SURBIDSize+len(c.Payload))
	b[0] = c.QueueSizeHint
	binary.BigEndian.PutUint32(b[1:5], c.Sequence)
	copy(b[5:5+SURBIDSize], c.ID[:])
	copy(b[5+SURBIDSize:], c.Payload)
	return b
}

func (c GetConsensus) body() []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, c.Epoch)
	return b
}

func (c Consensus) Tag() Tag { return TagConsensus }
func (c Consensus) body() []byte {
	b := make([]byte, 1+len(c.Payload))
	b[0] = c.ErrorCode
	copy(b[1:], c.Payload)
	return b
}

// Encode serialises a command to its on-wire byte representation: a
// one-byte tag, a three-byte zero reserved field, a big-endian u32 body
// length, then the body.
func Encode(c Command) []byte {
	body := c.body()
	out := make([]byte, headerSize+len(body))
	out[0] = byte(c.Tag())
	binary.BigEndian.PutUint32(out[4:8], uint32(len(body)))
	copy(out[headerSize:], body)
	return out
}

// Decode parses a command frame. Decoding is total: any malformed or
// truncated frame, any length-prefix mismatch for a fixed-size command, and
// any unknown tag all yield an error rather than a partially built value.
func Decode(data []byte) (Command, error) {
	if len(data) < headerSize {
		return nil, fmt.Errorf("wire: decode: frame too short: %d bytes", len(data))
	}
	tag := Tag(data[0])
	bodyLen := binary.BigEndian.Uint32(data[4:8])
	body := data[headerSize:]
	if int(bodyLen) != len(body) {
		return nil, fmt.Errorf("wire: decode: body length mismatch: header says %d, got %d", bodyLen, len(body))
	}

	switch tag {
	case TagNoOp:
		if len(body) != 0 {
			return nil, fmt.Errorf("wire: decode: NoOp must have empty body, got %d bytes", len(body))
		}
		return NoOp{}, nil
	case TagDisconnect:
		if len(body) != 0 {
			return nil, fmt.Errorf("wire: decode: Disconnect must have empty body, got %d bytes", len(body))
		}
		return Disconnect{}, nil
	case TagSendPacket:
		packet := make([]byte, len(body))
		copy(packet, body)
		return SendPacket{SphinxPacket: packet}, nil
	case TagRetrieveMessage:
		if len(body) != 4 {
			return nil, fmt.Errorf("wire: decode: RetrieveMessage body must be 4 bytes, got %d", len(body))
		}
		return RetrieveMessage{Sequence: binary.BigEndian.Uint32(body)}, nil
	case TagMessageEmpty:
		if len(body) != 4 {
			return nil, fmt.Errorf("wire: decode: MessageEmpty body must be 4 bytes, got %d", len(body))
		}
		return MessageEmpty{Sequence: binary.BigEndian.Uint32(body)}, nil
	case TagMessage:
		if len(body) < 5 {
			return nil, fmt.Errorf("wire: decode: Message body too short: %d bytes", len(body))
		}
		payload := make([]byte, len(body)-5)
		copy(payload, body[5:])
		return Message{
			QueueSizeHint: body[0],
			Sequence:      binary.BigEndian.Uint32(body[1:5]),
			Payload:       payload,
		}, nil
	case TagMessageAck:
		if len(body) < 5+SURBIDSize {
			return nil, fmt.Errorf("wire: decode: MessageAck body too short: %d bytes", len(body))
		}
		var id [SURBIDSize]byte
		copy(id[:], body[5:5+SURBIDSize])
		payload := make([]byte, len(body)-5-SURBIDSize)
		copy(payload, body[5+SURBIDSize:])
		return MessageAck{
			QueueSizeHint: body[0],
			Sequence:      binary.BigEndian.Uint32(body[1:5]),
			ID:            id,
			Payload:       payload,
		}, nil
	case TagGetConsensus:
		if len(body) != 8 {
			return nil, fmt.Errorf("wire: decode: GetConsensus body must be 8 bytes, got %d", len(body))
		}
		return GetConsensus{Epoch: binary.BigEndian.Uint64(body)}, nil
	case TagConsensus:
		if len(body) < 1 {
			return nil, fmt.Errorf("wire: decode: Consensus body too short: %d bytes", len(body))
		}
		payload := make([]byte, len(body)-1)
		copy(payload, body[1:])
		return Consensus{ErrorCode: body[0], Payload: payload}, nil
	default:
		return nil, fmt.Errorf("wire: decode: unknown command tag 0x%02x", tag)
	}
}
