package api_test

import (
	"errors"
	"syscall"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/momentics/hioload-arena/api"
)

func TestMessageValidate(t *testing.T) {
	msg := api.NewMessage([]byte("abc"))
	require.Equal(t, uint32(7), msg.ByteLength)
	require.NoError(t, msg.Validate())
	require.Equal(t, 3, msg.PayloadLen())
	require.Equal(t, []byte("abc"), msg.Payload())

	short := api.Message{ByteLength: 2}
	require.ErrorIs(t, short.Validate(), api.ErrInvalidArgument)

	overrun := api.Message{ByteLength: 10, Bytes: []byte{1}}
	require.ErrorIs(t, overrun.Validate(), api.ErrInvalidArgument)

	empty := api.NewMessage(nil)
	require.NoError(t, empty.Validate())
	require.Empty(t, empty.Payload())
}

func TestTransportErrorUnwrap(t *testing.T) {
	err := error(api.NewTransportError("read", syscall.ECONNRESET))
	require.ErrorIs(t, err, syscall.ECONNRESET)
	require.Equal(t, "transport read: "+syscall.ECONNRESET.Error(), err.Error())

	var te *api.TransportError
	require.True(t, errors.As(err, &te))
	require.Equal(t, "read", te.Op)
}

func TestShutdownHowString(t *testing.T) {
	require.Equal(t, "read", api.ShutdownRead.String())
	require.Equal(t, "write", api.ShutdownWrite.String())
	require.Equal(t, "both", api.ShutdownBoth.String())
	require.Equal(t, "unknown", api.ShutdownHow(9).String())
}

func TestYieldFunc(t *testing.T) {
	calls := 0
	var y api.Yielder = api.YieldFunc(func() { calls++ })
	y.Yield()
	y.Yield()
	require.Equal(t, 2, calls)
}
