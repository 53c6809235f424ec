package muxer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"

	"github.com/dep2p/go-p2pcore/internal/core/muxer/yamux"
	pkgif "github.com/dep2p/go-p2pcore/pkg/interfaces"
)

func TestModule_ProvidesYamux(t *testing.T) {
	var muxers []pkgif.StreamMuxer

	app := fxtest.New(t,
		Module(),
		fx.Invoke(func(p struct {
			fx.In
			Muxers []pkgif.StreamMuxer `name:"stream_muxers"`
		}) {
			muxers = p.Muxers
		}),
	)
	defer app.RequireStart().RequireStop()

	require.Len(t, muxers, 1)
	assert.Equal(t, yamux.ID, muxers[0].ID())
	t.Log("✅ Fx 模块提供 yamux")
}
