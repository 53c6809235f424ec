package codec

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrame_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, []byte("hello")))
	require.NoError(t, WriteFrame(&buf, nil))
	require.NoError(t, WriteFrame(&buf, bytes.Repeat([]byte{7}, 300)))

	r := NewReader(&buf)
	got, err := ReadFrame(r, 1024)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), got)

	got, err = ReadFrame(r, 1024)
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = ReadFrame(r, 1024)
	require.NoError(t, err)
	assert.Len(t, got, 300)

	_, err = ReadFrame(r, 1024)
	assert.ErrorIs(t, err, io.EOF)
}

func TestFrame_TooLarge(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, make([]byte, 100)))

	_, err := ReadFrame(&buf, 10)
	assert.ErrorIs(t, err, ErrFrameTooLarge)
}

func TestFrame_Truncated(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, []byte("hello")))
	truncated := bytes.NewReader(buf.Bytes()[:3])

	_, err := ReadFrame(truncated, 1024)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestLengthPrefixed(t *testing.T) {
	c := NewLengthPrefixed(0)
	assert.Equal(t, DefaultMaxFrameSize, c.MaxFrameSize)

	var buf bytes.Buffer
	require.NoError(t, c.WriteMessage(&buf, []byte("ping")))
	assert.ErrorIs(t, c.WriteMessage(&buf, "not bytes"), ErrUnexpectedType)

	msg, err := c.ReadMessage(&buf)
	require.NoError(t, err)
	assert.Equal(t, []byte("ping"), msg)
}
