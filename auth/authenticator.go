package auth

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/sphinx-cryptography/mix-link/keys"
)

// PeerAuthenticator decides whether a peer's credentials are admissible.
// It is invoked exactly once per side during the handshake, never during
// transport.
type PeerAuthenticator interface {
	// Authenticate reports whether creds belongs to an admissible peer.
	Authenticate(creds PeerCredentials) bool
	// IsPeerClient reports whether the last successful Authenticate call
	// classified the peer as a client. It is only meaningful for a
	// Provider authenticator acting as a responder.
	IsPeerClient() bool
}

// ClientAuthenticator admits exactly one configured peer public key. Use it
// when this session's local role is a client dialing a known server.
type ClientAuthenticator struct {
	expectedPeer [keys.Size]byte
}

// NewClientAuthenticator returns an authenticator that admits only expectedPeer.
func NewClientAuthenticator(expectedPeer [keys.Size]byte) *ClientAuthenticator {
	return &ClientAuthenticator{expectedPeer: expectedPeer}
}

// Authenticate reports whether creds.PublicKey equals the configured peer
// key, using a constant-time comparison.
func (c *ClientAuthenticator) Authenticate(creds PeerCredentials) bool {
	return keys.Equal(c.expectedPeer, creds.PublicKey)
}

// IsPeerClient always returns false: a client authenticator never
// classifies its peer, since its peer is always a server.
func (c *ClientAuthenticator) IsPeerClient() bool { return false }

// ServerAuthenticator admits any key from a configured set of mix keys. Use
// it when this session's local role is a mix or a provider's mix-facing
// listener.
type ServerAuthenticator struct {
	mixKeys map[[keys.Size]byte]struct{}
}

// NewServerAuthenticator returns an authenticator that admits members of mixKeys.
func NewServerAuthenticator(mixKeys [][keys.Size]byte) *ServerAuthenticator {
	set := make(map[[32]byte]struct{}, len(mixKeys))
	for _, k := range mixKeys {
		set[k] = struct{}{}
	}
	return &ServerAuthenticator{mixKeys: set}
}

// Authenticate reports whether creds.PublicKey is a member of the mix set.
func (s *ServerAuthenticator) Authenticate(creds PeerCredentials) bool {
	_, ok := s.mixKeys[creds.PublicKey]
	return ok
}

// IsPeerClient always returns false: a server authenticator's peers are
// always mixes.
func (s *ServerAuthenticator) IsPeerClient() bool { return false }

// ProviderAuthenticator admits keys from either a mix set or a client set,
// and records which set admitted the most recent peer. A key present in
// both sets is resolved in favour of the mix set.
type ProviderAuthenticator struct {
	mu         sync.Mutex
	mixKeys    map[[keys.Size]byte]struct{}
	clientKeys map[[keys.Size]byte]struct{}
	fromMix    bool
	fromClient bool
}

// NewProviderAuthenticator returns an authenticator that admits members of
// either mixKeys or clientKeys. from_mix and from_client start false.
func NewProviderAuthenticator(mixKeys, clientKeys [][keys.Size]byte) *ProviderAuthenticator {
	mixSet := make(map[[32]byte]struct{}, len(mixKeys))
	for _, k := range mixKeys {
		mixSet[k] = struct{}{}
	}
	clientSet := make(map[[32]byte]struct{}, len(clientKeys))
	for _, k := range clientKeys {
		clientSet[k] = struct{}{}
	}
	return &ProviderAuthenticator{mixKeys: mixSet, clientKeys: clientSet}
}

// Authenticate reports whether creds.PublicKey is in either set. Mix
// membership is checked first and wins the tie-break when a key is in both
// sets.
func (p *ProviderAuthenticator) Authenticate(creds PeerCredentials) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	logger := logrus.WithFields(logrus.Fields{
		"package":  "auth",
		"function": "ProviderAuthenticator.Authenticate",
	})

	if _, ok := p.mixKeys[creds.PublicKey]; ok {
		p.fromMix = true
		p.fromClient = false
		logger.Debug("peer admitted from mix set")
		return true
	}
	if _, ok := p.clientKeys[creds.PublicKey]; ok {
		p.fromClient = true
		p.fromMix = false
		logger.Debug("peer admitted from client set")
		return true
	}
	logger.Warn("peer rejected: key not present in mix or client set")
	return false
}

// IsPeerClient reports whether the most recent successful Authenticate call
// admitted the peer via the client set.
func (p *ProviderAuthenticator) IsPeerClient() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.fromClient
}

// FromMix reports whether the most recent successful Authenticate call
// admitted the peer via the mix set.
func (p *ProviderAuthenticator) FromMix() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.fromMix
}

var (
	_ PeerAuthenticator = (*ClientAuthenticator)(nil)
	_ PeerAuthenticator = (*ServerAuthenticator)(nil)
	_ PeerAuthenticator = (*ProviderAuthenticator)(nil)
)
