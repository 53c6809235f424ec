package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-p2pcore/config"
	"github.com/dep2p/go-p2pcore/internal/core/identity"
	"github.com/dep2p/go-p2pcore/internal/core/security/noise"
	"github.com/dep2p/go-p2pcore/internal/core/security/plaintext"
	pkgif "github.com/dep2p/go-p2pcore/pkg/interfaces"
)

func ids(ts []pkgif.SecureTransport) []string {
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = string(t.ID())
	}
	return out
}

func TestNew_Order(t *testing.T) {
	id, err := identity.Generate()
	require.NoError(t, err)

	cfg := config.DefaultSecurityConfig()
	cfg.EnablePlaintext = true

	ts, err := New(cfg, id)
	require.NoError(t, err)
	assert.Equal(t, []string{string(noise.ID), string(plaintext.ID)}, ids(ts))
	t.Log("✅ Noise 优先于 Plaintext")
}

func TestNew_NoneEnabled(t *testing.T) {
	id, err := identity.Generate()
	require.NoError(t, err)

	_, err = New(config.SecurityConfig{}, id)
	assert.ErrorIs(t, err, ErrNoSecurityTransport)
}

func TestNew_NilIdentity(t *testing.T) {
	_, err := New(config.DefaultSecurityConfig(), nil)
	assert.ErrorIs(t, err, noise.ErrNilIdentity)
}

func TestProvide_UsesUnifiedConfig(t *testing.T) {
	id, err := identity.Generate()
	require.NoError(t, err)

	cfg := config.NewConfig()
	cfg.Security.EnableNoise = false
	cfg.Security.EnablePlaintext = true

	res, err := ProvideSecurityTransports(Params{Identity: id, UnifiedCfg: cfg})
	require.NoError(t, err)
	assert.Equal(t, []string{string(plaintext.ID)}, ids(res.SecurityTransports))
}
