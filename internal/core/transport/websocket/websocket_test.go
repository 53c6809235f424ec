package websocket

import (
	"context"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgif "github.com/dep2p/go-p2pcore/pkg/interfaces"
	"github.com/dep2p/go-p2pcore/pkg/types"
)

func TestWebSocket_CanDial(t *testing.T) {
	tr := New(time.Second)
	assert.True(t, tr.CanDial(types.MustParseMultiaddr("/ip4/127.0.0.1/tcp/80/ws")))
	assert.False(t, tr.CanDial(types.MustParseMultiaddr("/ip4/127.0.0.1/tcp/80")))
	assert.False(t, tr.CanDial(nil))
}

func TestWebSocket_StreamSemantics(t *testing.T) {
	tr := New(5 * time.Second)
	defer tr.Close()

	ln, err := tr.Listen(types.MustParseMultiaddr("/ip4/127.0.0.1/tcp/0/ws"))
	require.NoError(t, err)
	require.True(t, isWSAddr(ln.Multiaddr()))

	accepted := make(chan pkgif.RawConn, 1)
	go func() {
		c, err := ln.Accept()
		if err == nil {
			accepted <- c
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c, err := tr.Dial(ctx, ln.Multiaddr())
	require.NoError(t, err)
	defer c.Close()

	var sc pkgif.RawConn
	select {
	case sc = <-accepted:
	case <-ctx.Done():
		t.Fatal("等待入站连接超时")
	}
	defer sc.Close()

	// 两条消息被按字节流读出
	cw := c.(net.Conn)
	_, err = cw.Write([]byte("hel"))
	require.NoError(t, err)
	_, err = cw.Write([]byte("lo"))
	require.NoError(t, err)

	buf := make([]byte, 5)
	_, err = io.ReadFull(sc.(net.Conn), buf)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(buf))

	// 正常关闭后对端读到 EOF
	require.NoError(t, c.Close())
	_, err = sc.(net.Conn).Read(buf)
	assert.ErrorIs(t, err, io.EOF)
	t.Log("✅ WebSocket 字节流语义")
}

func TestWebSocket_ListenerClose(t *testing.T) {
	tr := New(time.Second)
	ln, err := tr.Listen(types.MustParseMultiaddr("/ip4/127.0.0.1/tcp/0/ws"))
	require.NoError(t, err)

	require.NoError(t, tr.Close())
	_, err = ln.Accept()
	assert.ErrorIs(t, err, ErrListenerClosed)
}
