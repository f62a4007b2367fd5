// Package session binds a byte stream to a noise.Builder and offers the
// blocking send/recv command interface applications use once a mix-link
// handshake completes.
package session

import (
	"fmt"
	"io"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/sphinx-cryptography/mix-link/auth"
	"github.com/sphinx-cryptography/mix-link/mixlinkerr"
	"github.com/sphinx-cryptography/mix-link/noise"
	"github.com/sphinx-cryptography/mix-link/wire"
)

// Conn is the byte-stream contract a Session requires: ordered, reliable,
// bidirectional transport with a shutdown signal. *net.TCPConn
// and any net.Conn satisfy it.
type Conn interface {
	io.Reader
	io.Writer
	io.Closer
}

// Config is the caller-supplied, immutable-after-use configuration for one
// session.
type Config = noise.Config

// Session is a mixnet link-layer protocol session: it owns a handshake
// Builder exclusively until transport mode, then shares a mutex-protected
// TransportBuilder with its clones. The mutex is held for the whole of each
// SendCommand and RecvCommand, including the blocking reads and writes on
// the connection, so a send on one handle waits while a receive on another
// handle is blocked waiting for data.
type Session struct {
	conn        Conn
	isInitiator bool

	// Exactly one of handshakeBuilder or (transportMu, transportBuilder)
	// is in use at a time.
	handshakeBuilder *noise.Builder

	transportMu      *sync.Mutex
	transportBuilder *noise.TransportBuilder

	closeOnce sync.Once
}

// New constructs a Session for one side of a handshake. Call Handshake to
// bind it to a connected Conn and run the handshake to completion.
func New(cfg Config, isInitiator bool) (*Session, error) {
	var hb *noise.Builder
	var err error
	if isInitiator {
		hb, err = noise.NewInitiatorBuilder(cfg)
	} else {
		hb, err = noise.NewResponderBuilder(cfg)
	}
	if err != nil {
		return nil, err
	}
	return &Session{isInitiator: isInitiator, handshakeBuilder: hb}, nil
}

// Handshake binds conn to the session, drives the three-message Noise-XXhfs
// exchange, converts to transport mode, and performs the mandatory post-
// handshake NoOp finalization. The session is exclusively
// owned by the calling goroutine until Handshake returns.
func (s *Session) Handshake(conn Conn) error {
	s.conn = conn

	logger := logrus.WithFields(logrus.Fields{
		"package":      "session",
		"function":     "Handshake",
		"is_initiator": s.isInitiator,
	})
	logger.Debug("starting handshake")

	if s.isInitiator {
		if err := s.runInitiatorHandshake(); err != nil {
			return err
		}
	} else {
		if err := s.runResponderHandshake(); err != nil {
			return err
		}
	}

	tb, err := s.handshakeBuilder.IntoTransportMode()
	if err != nil {
		return err
	}
	s.handshakeBuilder = nil
	s.transportMu = &sync.Mutex{}
	s.transportBuilder = tb

	if err := s.finalizeHandshake(); err != nil {
		return err
	}

	logger.Info("handshake complete, session in data-transfer mode")
	return nil
}

func (s *Session) runInitiatorHandshake() error {
	msg1, err := s.handshakeBuilder.WriteClientHandshake1()
	if err != nil {
		return err
	}
	if _, err := s.conn.Write(msg1); err != nil {
		return fmt.Errorf("session: write client handshake 1: %w", err)
	}

	msg2 := make([]byte, wire.HandshakeMessage2Size)
	if _, err := io.ReadFull(s.conn, msg2); err != nil {
		return fmt.Errorf("session: read server handshake 1: %w", err)
	}
	if err := s.handshakeBuilder.ReadServerHandshake1(msg2); err != nil {
		return err
	}

	msg3, err := s.handshakeBuilder.WriteClientHandshake2()
	if err != nil {
		return err
	}
	if _, err := s.conn.Write(msg3); err != nil {
		return fmt.Errorf("session: write client handshake 2: %w", err)
	}
	return nil
}

func (s *Session) runResponderHandshake() error {
	msg1 := make([]byte, wire.HandshakeMessage1Size)
	if _, err := io.ReadFull(s.conn, msg1); err != nil {
		return fmt.Errorf("session: read client handshake 1: %w", err)
	}
	if err := s.handshakeBuilder.ReadClientHandshake1(msg1); err != nil {
		return err
	}

	msg2, err := s.handshakeBuilder.WriteServerHandshake1()
	if err != nil {
		return err
	}
	if _, err := s.conn.Write(msg2); err != nil {
		return fmt.Errorf("session: write server handshake 1: %w", err)
	}

	msg3 := make([]byte, wire.HandshakeMessage3Size)
	if _, err := io.ReadFull(s.conn, msg3); err != nil {
		return fmt.Errorf("session: read client handshake 2: %w", err)
	}
	return s.handshakeBuilder.ReadClientHandshake2(msg3)
}

// finalizeHandshake performs the mandatory post-handshake NoOp exchange
//: the responder sends NoOp, the
// initiator receives and verifies it.
func (s *Session) finalizeHandshake() error {
	if s.isInitiator {
		cmd, err := s.RecvCommand()
		if err != nil {
			return err
		}
		if _, ok := cmd.(wire.NoOp); !ok {
			return mixlinkerr.ErrInvalidHandshakeFinalize
		}
		return nil
	}
	return s.SendCommand(wire.NoOp{})
}

// SendCommand encodes, frames, encrypts, and transmits cmd, then rekeys the
// outgoing cipher. A single send is atomic with respect to other senders
// sharing this Session's transport builder.
func (s *Session) SendCommand(cmd wire.Command) error {
	s.transportMu.Lock()
	defer s.transportMu.Unlock()

	frame, err := s.transportBuilder.EncryptCommand(wire.Encode(cmd))
	if err != nil {
		return err
	}
	if _, err := s.conn.Write(frame); err != nil {
		return fmt.Errorf("session: write command: %w", err)
	}
	return nil
}

// RecvCommand reads, decrypts, rekeys, and decodes the next command from
// the peer. A single receive is atomic with respect to other receivers
// sharing this Session's transport builder.
func (s *Session) RecvCommand() (wire.Command, error) {
	s.transportMu.Lock()
	defer s.transportMu.Unlock()

	header := make([]byte, wire.TransportHeaderSize)
	if _, err := io.ReadFull(s.conn, header); err != nil {
		return nil, fmt.Errorf("session: read command header: %w", err)
	}
	bodyLen, err := s.transportBuilder.DecryptHeader(header)
	if err != nil {
		return nil, err
	}

	body := make([]byte, bodyLen)
	if _, err := io.ReadFull(s.conn, body); err != nil {
		return nil, fmt.Errorf("session: read command body: %w", err)
	}
	plaintext, err := s.transportBuilder.DecryptBody(body)
	if err != nil {
		return nil, err
	}

	cmd, err := wire.Decode(plaintext)
	if err != nil {
		return nil, fmt.Errorf("session: %w: %v", mixlinkerr.ErrDecodeFailed, err)
	}
	return cmd, nil
}

// Close performs a final outgoing and incoming rekey, wipes the session's
// additional-data buffer, and shuts down the underlying connection. Close
// is idempotent.
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		if s.transportBuilder != nil {
			s.transportMu.Lock()
			s.transportBuilder.Wipe()
			s.transportMu.Unlock()
		}
		if s.conn != nil {
			err = s.conn.Close()
		}
	})
	return err
}

// Clone returns a second handle onto this Session sharing the same
// mutex-protected transport builder, for the common pattern of one reader
// goroutine and one writer goroutine per session. Clone is
// only valid once the session has reached transport mode.
func (s *Session) Clone() (*Session, error) {
	if s.transportBuilder == nil {
		return nil, mixlinkerr.ErrInvalidState
	}
	return &Session{
		conn:             s.conn,
		isInitiator:      s.isInitiator,
		transportMu:      s.transportMu,
		transportBuilder: s.transportBuilder,
	}, nil
}

// PeerCredentials returns the credentials established during the handshake.
func (s *Session) PeerCredentials() *auth.PeerCredentials {
	if s.transportBuilder != nil {
		return s.transportBuilder.PeerCredentials()
	}
	return nil
}

// ClockSkew returns the clock skew cached during the handshake.
func (s *Session) ClockSkew() uint32 {
	if s.transportBuilder != nil {
		return s.transportBuilder.ClockSkew()
	}
	return 0
}

// IsPeerClient reports whether a Provider authenticator classified the peer
// as a client. It is a programming error to call this on an initiator
// session, since only a responder authenticates both peer classes
//.
func (s *Session) IsPeerClient() bool {
	if s.isInitiator {
		panic("session: IsPeerClient called on an initiator session")
	}
	if s.transportBuilder == nil {
		panic("session: IsPeerClient called before transport mode")
	}
	return s.transportBuilder.IsPeerClient()
}
