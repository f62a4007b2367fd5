package noise

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sphinx-cryptography/mix-link/auth"
	"github.com/sphinx-cryptography/mix-link/keys"
	"github.com/sphinx-cryptography/mix-link/mixlinkerr"
	"github.com/sphinx-cryptography/mix-link/wire"
)

func mustKeyPair(t *testing.T) *keys.KeyPair {
	t.Helper()
	kp, err := keys.Generate()
	require.NoError(t, err)
	return kp
}

// runHandshake drives a full initiator/responder exchange entirely
// in-memory, returning both sides' TransportBuilder once complete.
func runHandshake(t *testing.T, clientCfg, serverCfg Config) (*TransportBuilder, *TransportBuilder) {
	t.Helper()

	client, err := NewInitiatorBuilder(clientCfg)
	require.NoError(t, err)
	server, err := NewResponderBuilder(serverCfg)
	require.NoError(t, err)

	msg1, err := client.WriteClientHandshake1()
	require.NoError(t, err)
	require.Len(t, msg1, wire.HandshakeMessage1Size)

	require.NoError(t, server.ReadClientHandshake1(msg1))

	msg2, err := server.WriteServerHandshake1()
	require.NoError(t, err)
	require.Len(t, msg2, wire.HandshakeMessage2Size)

	require.NoError(t, client.ReadServerHandshake1(msg2))

	msg3, err := client.WriteClientHandshake2()
	require.NoError(t, err)
	require.Len(t, msg3, wire.HandshakeMessage3Size)

	require.NoError(t, server.ReadClientHandshake2(msg3))

	clientTB, err := client.IntoTransportMode()
	require.NoError(t, err)
	serverTB, err := server.IntoTransportMode()
	require.NoError(t, err)
	return clientTB, serverTB
}

func TestHandshakeRoundTrip(t *testing.T) {
	clientKP := mustKeyPair(t)
	serverKP := mustKeyPair(t)
	serverPub := serverKP.Public

	clientCfg := Config{
		Authenticator:     auth.NewClientAuthenticator(serverKP.Public),
		AuthenticationKey: *clientKP,
		PeerPublicKey:     &serverPub,
		AdditionalData:    []byte("client-hello"),
	}
	serverCfg := Config{
		Authenticator:     auth.NewServerAuthenticator([][keys.Size]byte{clientKP.Public}),
		AuthenticationKey: *serverKP,
		AdditionalData:    []byte("server-hello"),
	}

	clientTB, serverTB := runHandshake(t, clientCfg, serverCfg)

	require.NotNil(t, clientTB.PeerCredentials())
	require.NotNil(t, serverTB.PeerCredentials())
	assert.Equal(t, "server-hello", string(clientTB.PeerCredentials().AdditionalData))
	assert.Equal(t, "client-hello", string(serverTB.PeerCredentials().AdditionalData))
	assert.Equal(t, serverKP.Public, clientTB.PeerCredentials().PublicKey)
	assert.Equal(t, clientKP.Public, serverTB.PeerCredentials().PublicKey)
}

func TestHandshakeRejectsUnknownPeer(t *testing.T) {
	clientKP := mustKeyPair(t)
	serverKP := mustKeyPair(t)
	impostorKP := mustKeyPair(t)
	serverPub := serverKP.Public

	clientCfg := Config{
		Authenticator:     auth.NewClientAuthenticator(serverKP.Public),
		AuthenticationKey: *clientKP,
		PeerPublicKey:     &serverPub,
	}
	// Server only admits the impostor's key, not the real client's.
	serverCfg := Config{
		Authenticator:     auth.NewServerAuthenticator([][keys.Size]byte{impostorKP.Public}),
		AuthenticationKey: *serverKP,
	}

	client, err := NewInitiatorBuilder(clientCfg)
	require.NoError(t, err)
	server, err := NewResponderBuilder(serverCfg)
	require.NoError(t, err)

	msg1, err := client.WriteClientHandshake1()
	require.NoError(t, err)
	require.NoError(t, server.ReadClientHandshake1(msg1))
	msg2, err := server.WriteServerHandshake1()
	require.NoError(t, err)
	require.NoError(t, client.ReadServerHandshake1(msg2))
	msg3, err := client.WriteClientHandshake2()
	require.NoError(t, err)

	require.ErrorIs(t, server.ReadClientHandshake2(msg3), mixlinkerr.ErrAuthenticationRejected)
}

func TestReadClientHandshake1RejectsBadPrologue(t *testing.T) {
	serverKP := mustKeyPair(t)
	serverCfg := Config{
		Authenticator:     auth.NewServerAuthenticator(nil),
		AuthenticationKey: *serverKP,
	}
	server, err := NewResponderBuilder(serverCfg)
	require.NoError(t, err)

	frame := make([]byte, wire.HandshakeMessage1Size)
	frame[0] = 0xFF // wrong prologue byte

	require.ErrorIs(t, server.ReadClientHandshake1(frame), mixlinkerr.ErrPrologueMismatch)
}

func TestWriteClientHandshake1RejectsWrongState(t *testing.T) {
	clientKP := mustKeyPair(t)
	serverKP := mustKeyPair(t)
	serverPub := serverKP.Public
	cfg := Config{
		Authenticator:     auth.NewClientAuthenticator(serverKP.Public),
		AuthenticationKey: *clientKP,
		PeerPublicKey:     &serverPub,
	}
	client, err := NewInitiatorBuilder(cfg)
	require.NoError(t, err)

	_, err = client.WriteClientHandshake1()
	require.NoError(t, err)
	_, err = client.WriteClientHandshake1()
	require.ErrorIs(t, err, mixlinkerr.ErrInvalidState)
}

func TestNewInitiatorBuilderRequiresPeerKey(t *testing.T) {
	clientKP := mustKeyPair(t)
	cfg := Config{
		Authenticator:     auth.NewClientAuthenticator([keys.Size]byte{}),
		AuthenticationKey: *clientKP,
	}
	_, err := NewInitiatorBuilder(cfg)
	require.ErrorIs(t, err, mixlinkerr.ErrNoPeerKey)
}

func TestIntoTransportModeRejectsDoubleConversion(t *testing.T) {
	clientKP := mustKeyPair(t)
	serverKP := mustKeyPair(t)
	serverPub := serverKP.Public
	clientCfg := Config{
		Authenticator:     auth.NewClientAuthenticator(serverKP.Public),
		AuthenticationKey: *clientKP,
		PeerPublicKey:     &serverPub,
	}
	serverCfg := Config{
		Authenticator:     auth.NewServerAuthenticator([][keys.Size]byte{clientKP.Public}),
		AuthenticationKey: *serverKP,
	}
	client, err := NewInitiatorBuilder(clientCfg)
	require.NoError(t, err)
	server, err := NewResponderBuilder(serverCfg)
	require.NoError(t, err)

	msg1, err := client.WriteClientHandshake1()
	require.NoError(t, err)
	require.NoError(t, server.ReadClientHandshake1(msg1))
	msg2, err := server.WriteServerHandshake1()
	require.NoError(t, err)
	require.NoError(t, client.ReadServerHandshake1(msg2))
	msg3, err := client.WriteClientHandshake2()
	require.NoError(t, err)
	require.NoError(t, server.ReadClientHandshake2(msg3))

	_, err = client.IntoTransportMode()
	require.NoError(t, err)
	_, err = client.IntoTransportMode()
	require.ErrorIs(t, err, mixlinkerr.ErrAlreadyTransport)
}
