package types

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
//                              PeerID 测试
// ============================================================================

func TestPeerIDFromPublicKey(t *testing.T) {
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	id, err := PeerIDFromPublicKey(pub)
	require.NoError(t, err)
	assert.False(t, id.IsEmpty())
	assert.True(t, id.MatchesPublicKey(pub))

	// 相同公钥派生出相同 PeerID
	id2, err := PeerIDFromPublicKey(pub)
	require.NoError(t, err)
	assert.Equal(t, id, id2)

	// 可被解析
	parsed, err := ParsePeerID(id.String())
	require.NoError(t, err)
	assert.Equal(t, id, parsed)

	t.Log("✅ PeerID 派生与解析正确")
}

func TestPeerIDFromPublicKey_Invalid(t *testing.T) {
	_, err := PeerIDFromPublicKey([]byte{1, 2, 3})
	assert.ErrorIs(t, err, ErrInvalidPublicKey)
}

func TestParsePeerID_Invalid(t *testing.T) {
	_, err := ParsePeerID("")
	assert.ErrorIs(t, err, ErrEmptyPeerID)

	_, err = ParsePeerID("0OIl")
	assert.ErrorIs(t, err, ErrInvalidPeerID)

	_, err = ParsePeerID("abc")
	assert.ErrorIs(t, err, ErrInvalidPeerID)
}

func TestPeerID_ShortString(t *testing.T) {
	assert.Equal(t, "abc", PeerID("abc").ShortString())
	assert.Equal(t, "12345678", PeerID("1234567890").ShortString())
}

func TestConnectionID(t *testing.T) {
	assert.False(t, NoConnection.IsValid())
	assert.True(t, ConnectionID(7).IsValid())
	assert.Equal(t, "conn-7", ConnectionID(7).String())
	assert.Equal(t, "listener-3", ListenerID(3).String())
}

// ============================================================================
//                              Multiaddr 测试
// ============================================================================

func TestParseMultiaddr(t *testing.T) {
	addr, err := ParseMultiaddr("/ip4/127.0.0.1/tcp/4001")
	require.NoError(t, err)
	assert.Equal(t, "/ip4/127.0.0.1/tcp/4001", addr.String())

	_, err = ParseMultiaddr("not-an-addr")
	var ae *AddressError
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, "not-an-addr", ae.Addr)

	_, err = ParseMultiaddr("  ")
	assert.ErrorIs(t, err, ErrEmptyMultiaddr)
}

// ============================================================================
//                              错误类型测试
// ============================================================================

func TestDialError(t *testing.T) {
	cause := errors.New("connection refused")
	addr := MustParseMultiaddr("/ip4/10.0.0.1/tcp/1")
	err := NewDialError(DialErrorAddressUnreachable, addr, cause)

	assert.ErrorIs(t, err, cause)
	assert.True(t, IsDialErrorKind(err, DialErrorAddressUnreachable))
	assert.False(t, IsDialErrorKind(err, DialErrorCancelled))
	assert.Contains(t, err.Error(), "address unreachable")
	assert.Contains(t, err.Error(), "/ip4/10.0.0.1/tcp/1")
}

func TestHandlerError_Is(t *testing.T) {
	cause := errors.New("bad frame")
	err := &HandlerError{Protocol: "/echo/1.0.0", Err: cause}
	assert.ErrorIs(t, err, ErrHandler)
	assert.ErrorIs(t, err, cause)
}

func TestEventConnectionID(t *testing.T) {
	assert.Equal(t, ConnectionID(3), EventConnectionID(DialFailure{ID: 3}))
	assert.Equal(t, ConnectionID(4), EventConnectionID(ConnectionClosed{Info: ConnectionInfo{ID: 4}}))
	assert.Equal(t, NoConnection, EventConnectionID(NewListenAddr{ListenerID: 1}))
}
