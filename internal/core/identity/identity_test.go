package identity

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"

	"github.com/dep2p/go-p2pcore/config"
	"github.com/dep2p/go-p2pcore/pkg/interfaces"
)

func TestGenerate_SignVerify(t *testing.T) {
	id, err := Generate()
	require.NoError(t, err)
	assert.True(t, id.PeerID().MatchesPublicKey(id.PublicKey()))

	sig, err := id.Sign([]byte("hello"))
	require.NoError(t, err)
	assert.True(t, Verify(id.PublicKey(), []byte("hello"), sig))
	assert.False(t, Verify(id.PublicKey(), []byte("other"), sig))
	assert.False(t, Verify(id.PublicKey()[:5], []byte("hello"), sig))
}

func TestNew_InvalidKey(t *testing.T) {
	_, err := New([]byte{1, 2, 3})
	assert.ErrorIs(t, err, ErrInvalidKeySize)
}

func TestKeyFile_SaveLoad(t *testing.T) {
	id, err := Generate()
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "node.key")
	require.NoError(t, SaveKeyFile(id, path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := LoadKeyFile(path)
	require.NoError(t, err)
	assert.Equal(t, id.PeerID(), loaded.PeerID())

	_, err = LoadKeyFile(filepath.Join(t.TempDir(), "missing.key"))
	assert.ErrorIs(t, err, ErrKeyNotFound)

	bad := filepath.Join(t.TempDir(), "bad.key")
	require.NoError(t, os.WriteFile(bad, []byte("garbage"), 0600))
	_, err = LoadKeyFile(bad)
	assert.ErrorIs(t, err, ErrInvalidPEM)
}

func TestLoadOrGenerate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keys", "node.key")

	id1, generated, err := LoadOrGenerate(path, true)
	require.NoError(t, err)
	assert.True(t, generated)

	// 第二次加载同一身份
	id2, generated, err := LoadOrGenerate(path, true)
	require.NoError(t, err)
	assert.False(t, generated)
	assert.Equal(t, id1.PeerID(), id2.PeerID())

	_, _, err = LoadOrGenerate(filepath.Join(t.TempDir(), "none.key"), false)
	assert.ErrorIs(t, err, ErrKeyNotFound)

	_, _, err = LoadOrGenerate("", false)
	assert.ErrorIs(t, err, ErrNoIdentity)
}

func TestModule_ProvidesIdentity(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Identity.KeyFile = filepath.Join(t.TempDir(), "node.key")

	var id interfaces.Identity
	app := fxtest.New(t,
		fx.Supply(cfg),
		Module(),
		fx.Populate(&id),
	)
	app.RequireStart()
	defer app.RequireStop()

	require.NotNil(t, id)
	loaded, err := LoadKeyFile(cfg.Identity.KeyFile)
	require.NoError(t, err)
	assert.Equal(t, loaded.PeerID(), id.PeerID())
}
