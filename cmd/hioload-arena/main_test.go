// File: cmd/hioload-arena/main_test.go
// Author: momentics <momentics@gmail.com>

package main

import (
	"bytes"
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gobwas/ws"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/momentics/hioload-arena/api"
	"github.com/momentics/hioload-arena/control"
	"github.com/momentics/hioload-arena/fake"
	"github.com/momentics/hioload-arena/internal/session"
	"github.com/momentics/hioload-arena/internal/transport"
	"github.com/momentics/hioload-arena/server"
)

func rootViper(t *testing.T, args ...string) *viper.Viper {
	t.Helper()
	v := viper.New()
	cmd := newRootCmd()
	f := cmd.Flags()
	require.NoError(t, f.Parse(args))
	require.NoError(t, v.BindPFlags(f))
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(newEnvReplacer())
	v.AutomaticEnv()
	return v
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := loadConfig(rootViper(t))
	require.NoError(t, err)
	require.Equal(t, server.DefaultConfig(), cfg)
}

func TestLoadConfigFlagsAndEnv(t *testing.T) {
	t.Setenv("HIOLOAD_ARENA_TICK_RATE", "30")
	v := rootViper(t, "--listen", "127.0.0.1:7000", "--max-players", "8")

	cfg, err := loadConfig(v)
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:7000", cfg.ListenAddr)
	require.Equal(t, 8, cfg.MaxPlayers)
	require.Equal(t, 30, cfg.TickRate)
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "arena.yaml")
	require.NoError(t, os.WriteFile(path, []byte("stats-every: 120\nmax-idle-backoff: 250us\n"), 0o600))

	cfg, err := loadConfig(rootViper(t, "--config", path))
	require.NoError(t, err)
	require.Equal(t, 120, cfg.StatsEveryTicks)
	require.Equal(t, 250*time.Microsecond, cfg.MaxIdleBackoff)
}

func TestLoadConfigInvalid(t *testing.T) {
	_, err := loadConfig(rootViper(t, "--tick-rate", "0"))
	require.ErrorIs(t, err, api.ErrInvalidArgument)

	_, err = loadConfig(rootViper(t, "--config", filepath.Join(t.TempDir(), "missing.yaml")))
	require.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	log, err := newLogger(rootViper(t, "--log-level", "debug", "--log-dev"))
	require.NoError(t, err)
	require.True(t, log.Core().Enabled(zap.DebugLevel))

	_, err = newLogger(rootViper(t, "--log-level", "loud"))
	require.Error(t, err)
}

func TestBotCommandRegistered(t *testing.T) {
	bot, _, err := newRootCmd().Find([]string{"bot"})
	require.NoError(t, err)
	require.Equal(t, "bot", bot.Name())
	require.NotNil(t, bot.Flags().Lookup("players"))
}

func TestRelay(t *testing.T) {
	reg := session.NewRegistry(0)
	conns := map[api.ConnID]*fake.Conn{}
	for id := api.ConnID(0); id < 3; id++ {
		conns[id] = fake.NewConn(nil)
		reg.Set(id, transport.NewSocket(conns[id], &fake.Yielder{}))
	}
	var tick control.TickCounters
	var fatal []error
	sender := server.NewSender(reg, &tick, nil, func(err error) { fatal = append(fatal, err) })
	r := newRelay(sender, zap.NewNop())
	ctx := context.Background()

	r.OnJoin(ctx, 2)
	f, err := ws.ReadFrame(bytes.NewReader(conns[2].Written()))
	require.NoError(t, err)
	require.Equal(t, uint32(2), binary.LittleEndian.Uint32(f.Payload))

	require.NoError(t, r.OnMessage(ctx, 0, []byte("pos")))
	require.Empty(t, conns[0].Written())
	require.NotEmpty(t, conns[1].Written())

	require.ErrorIs(t, r.OnMessage(ctx, 0, nil), server.ErrBogusMessage)

	r.OnJoin(ctx, 42)
	require.Len(t, fatal, 1)
	require.ErrorIs(t, fatal[0], api.ErrUnknownConnection)
}
