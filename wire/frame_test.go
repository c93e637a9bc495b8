package wire_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ondergetekende/ibclient/wire"
)

func TestWriteFrameThenReadFrameRoundTrips(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	w := wire.NewWriter(&buf)
	fields := []string{"76", "1000", "AAPL", "", "STK"}
	require.NoError(t, w.WriteFrame(fields))

	r := wire.NewReader(&buf)
	got, err := r.ReadFrame()
	require.NoError(t, err)
	assert.Equal(t, fields, got)
}

func TestReadFrameMultipleFramesInSequence(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	w := wire.NewWriter(&buf)
	require.NoError(t, w.WriteFrame([]string{"1"}))
	require.NoError(t, w.WriteFrame([]string{"2", "3"}))

	r := wire.NewReader(&buf)
	first, err := r.ReadFrame()
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, first)

	second, err := r.ReadFrame()
	require.NoError(t, err)
	assert.Equal(t, []string{"2", "3"}, second)
}

func TestReadFrameEmptyPayloadIsNoFields(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	w := wire.NewWriter(&buf)
	require.NoError(t, w.WriteFrame(nil))

	r := wire.NewReader(&buf)
	fields, err := r.ReadFrame()
	require.NoError(t, err)
	assert.Empty(t, fields)
}

func TestReadFrameRejectsOversizedLengthPrefix(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	buf.Write([]byte{0xFF, 0xFF, 0xFF, 0xFF})

	r := wire.NewReader(&buf)
	_, err := r.ReadFrame()
	assert.Error(t, err)
}

func TestWriteHandshakeWritesPreambleAndRange(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, wire.WriteHandshake(&buf, "v100..187"))

	got := buf.Bytes()
	require.True(t, bytes.HasPrefix(got, []byte("API\x00")))
	rest := got[len("API\x00"):]
	require.Len(t, rest, 4+len("v100..187"))
	assert.Equal(t, "v100..187", string(rest[4:]))
}
