package wire

import (
	"bytes"
	"encoding/hex"
	"testing"
)

// TestWireFormatFidelity checks encodings against fixed hex vectors.
func TestWireFormatFidelity(t *testing.T) {
	noOp := Encode(NoOp{})
	want, _ := hex.DecodeString("0000000000000000")
	if !bytes.Equal(noOp, want) {
		t.Fatalf("NoOp = %x, want %x", noOp, want)
	}

	messageEmpty := Encode(MessageEmpty{Sequence: 0})
	// tag(1) + reserved(3) + length(4) + body(4) = 0x11 00 00 00 | 00 00 00 04 | 00 00 00 00
	want = append([]byte{0x11, 0x00, 0x00, 0x00}, []byte{0x00, 0x00, 0x00, 0x04}...)
	want = append(want, []byte{0x00, 0x00, 0x00, 0x00}...)
	if !bytes.Equal(messageEmpty, want) {
		t.Fatalf("MessageEmpty = %x, want %x", messageEmpty, want)
	}

	const epoch = uint64(42)
	getConsensus := Encode(GetConsensus{Epoch: epoch})
	want = append([]byte{0x20, 0x00, 0x00, 0x00}, []byte{0x00, 0x00, 0x00, 0x08}...)
	want = append(want, []byte{0, 0, 0, 0, 0, 0, 0, 42}...)
	if !bytes.Equal(getConsensus, want) {
		t.Fatalf("GetConsensus = %x, want %x", getConsensus, want)
	}
}

func TestCommandRoundTrip(t *testing.T) {
	id := [SURBIDSize]byte{}
	for i := range id {
		id[i] = byte(i)
	}

	cases := []Command{
		NoOp{},
		Disconnect{},
		SendPacket{SphinxPacket: []byte{0xDE, 0xAD, 0xBE, 0xEF}},
		SendPacket{SphinxPacket: []byte{}},
		RetrieveMessage{Sequence: 1234567},
		MessageEmpty{Sequence: 0},
		MessageEmpty{Sequence: 0xFFFFFFFF},
		Message{QueueSizeHint: 7, Sequence: 99, Payload: []byte("hello, mix")},
		Message{QueueSizeHint: 0, Sequence: 0, Payload: nil},
		MessageAck{QueueSizeHint: 3, Sequence: 1, ID: id, Payload: []byte("ack payload")},
		GetConsensus{Epoch: 1234567890123},
		Consensus{ErrorCode: 0, Payload: []byte("consensus doc")},
		Consensus{ErrorCode: 7, Payload: nil},
	}

	for _, c := range cases {
		encoded := Encode(c)
		decoded, err := Decode(encoded)
		if err != nil {
			t.Fatalf("Decode(%#v) failed: %v", c, err)
		}
		reencoded := Encode(decoded)
		if !bytes.Equal(encoded, reencoded) {
			t.Fatalf("round-trip mismatch for %#v: %x != %x", c, encoded, reencoded)
		}
	}
}

func TestDecodeRejectsUnknownTag(t *testing.T) {
	frame := []byte{0xFE, 0, 0, 0, 0, 0, 0, 0}
	if _, err := Decode(frame); err == nil {
		t.Fatal("expected error for unknown tag")
	}
}

func TestDecodeRejectsTruncatedFrame(t *testing.T) {
	if _, err := Decode([]byte{0x00, 0, 0}); err == nil {
		t.Fatal("expected error for frame shorter than the header")
	}
}

func TestDecodeRejectsLengthMismatch(t *testing.T) {
	frame := Encode(NoOp{})
	// Claim a non-empty body for a command whose actual body is empty.
	frame[7] = 4
	if _, err := Decode(frame); err == nil {
		t.Fatal("expected error for body length mismatch")
	}
}

func TestDecodeRejectsWrongFixedSizeBody(t *testing.T) {
	frame := Encode(RetrieveMessage{Sequence: 1})
	// Truncate the body to 3 bytes but fix up the length prefix to match,
	// so the length-mismatch check passes and the fixed-size check fires.
	short := append([]byte{}, frame[:len(frame)-1]...)
	short[7] = byte(len(short) - headerSize)
	if _, err := Decode(short); err == nil {
		t.Fatal("expected error for wrong fixed-size body length")
	}
}
