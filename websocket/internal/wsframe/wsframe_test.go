package wsframe

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteReadRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, Frame{Fin: true, Opcode: OpText, Payload: []byte("hello world")}))

	f, err := Read(&buf, 0)
	require.NoError(t, err)
	require.True(t, f.Fin)
	require.Equal(t, OpText, f.Opcode)
	require.Equal(t, []byte("hello world"), f.Payload)
}

func TestWriteMasksEveryFrame(t *testing.T) {
	var buf bytes.Buffer
	payload := []byte("payload-should-never-appear-on-the-wire-in-clear-text")
	require.NoError(t, Write(&buf, Frame{Fin: true, Opcode: OpBinary, Payload: payload}))
	require.NotContains(t, buf.String(), string(payload))
}

func TestWriteUsesDistinctMaskKeys(t *testing.T) {
	var a, b bytes.Buffer
	payload := []byte("same payload twice")
	require.NoError(t, Write(&a, Frame{Fin: true, Opcode: OpText, Payload: payload}))
	require.NoError(t, Write(&b, Frame{Fin: true, Opcode: OpText, Payload: payload}))
	require.NotEqual(t, a.Bytes(), b.Bytes(), "each frame must be masked with a fresh random key")
}

func TestReadLongPayloadLengths(t *testing.T) {
	payload := bytes.Repeat([]byte("x"), 70000)
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, Frame{Fin: true, Opcode: OpBinary, Payload: payload}))

	f, err := Read(&buf, 0)
	require.NoError(t, err)
	require.Equal(t, payload, f.Payload)
}

func TestReadRejectsOversizedFrame(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, Frame{Fin: true, Opcode: OpBinary, Payload: make([]byte, 1000)}))

	_, err := Read(&buf, 10)
	require.ErrorIs(t, err, ErrFrameTooLarge)
}

func TestWriteRejectsOversizedControlFrame(t *testing.T) {
	err := Write(&bytes.Buffer{}, Frame{Fin: true, Opcode: OpPing, Payload: make([]byte, 200)})
	require.ErrorIs(t, err, ErrControlPayloadTooLarge)
}

func TestReadUnmasksMaskedServerFrame(t *testing.T) {
	var raw bytes.Buffer
	require.NoError(t, Write(&raw, Frame{Fin: true, Opcode: OpText, Payload: []byte("abc")}))

	f, err := Read(bytes.NewReader(raw.Bytes()), 0)
	require.NoError(t, err)
	require.Equal(t, []byte("abc"), f.Payload)
}
