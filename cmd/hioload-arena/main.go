// File: cmd/hioload-arena/main.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Process bootstrap: flags and config, logging, metrics endpoint, signals.

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/momentics/hioload-arena/control"
	"github.com/momentics/hioload-arena/server"
)

const envPrefix = "HIOLOAD_ARENA"

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := viper.New()
	cmd := &cobra.Command{
		Use:   "hioload-arena",
		Short: "Real-time multiplayer arena server",
		Long: `hioload-arena accepts WebSocket players, relays their binary messages,
and prints operational statistics every few ticks.

Every flag can also be set through the environment (HIOLOAD_ARENA_<FLAG>,
dashes become underscores) or a config file passed with --config.`,
		Example:      "  $ hioload-arena --listen :6970 --max-players 64 --metrics-addr :9100",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), v)
		},
	}
	registerFlags(cmd.Flags())
	_ = v.BindPFlags(cmd.Flags())
	cmd.AddCommand(newBotCmd())
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(newEnvReplacer())
	v.AutomaticEnv()
	return cmd
}

// newEnvReplacer maps flag names to environment suffixes.
func newEnvReplacer() *strings.Replacer {
	return strings.NewReplacer("-", "_")
}

func registerFlags(f *pflag.FlagSet) {
	def := server.DefaultConfig()
	f.String("config", "", "config file (yaml, toml or json)")
	f.String("listen", def.ListenAddr, "TCP address to accept players on")
	f.Int("backlog", def.Backlog, "listen backlog, 0 uses the system maximum")
	f.Int("max-players", def.MaxPlayers, "concurrent players, 0 for unlimited")
	f.Int("tick-rate", def.TickRate, "ticks per second")
	f.Int("stats-every", def.StatsEveryTicks, "print statistics every N ticks, 0 to disable")
	f.Int("registry-shards", def.RegistryShards, "connection registry shards")
	f.Duration("max-idle-backoff", def.MaxIdleBackoff, "longest scheduler sleep when every task is waiting")
	f.String("metrics-addr", "", "serve /metrics and /debug/state on this address")
	f.String("log-level", "info", "log level (debug, info, warn, error)")
	f.Bool("log-dev", false, "human-friendly development logging")
}

func loadConfig(v *viper.Viper) (*server.Config, error) {
	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}
	cfg := &server.Config{
		ListenAddr:      v.GetString("listen"),
		Backlog:         v.GetInt("backlog"),
		MaxPlayers:      v.GetInt("max-players"),
		TickRate:        v.GetInt("tick-rate"),
		StatsEveryTicks: v.GetInt("stats-every"),
		RegistryShards:  v.GetInt("registry-shards"),
		MaxIdleBackoff:  v.GetDuration("max-idle-backoff"),
	}
	return cfg, cfg.Validate()
}

func newLogger(v *viper.Viper) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if v.GetBool("log-dev") {
		zc = zap.NewDevelopmentConfig()
	}
	lvl, err := zap.ParseAtomicLevel(v.GetString("log-level"))
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	zc.Level = lvl
	return zc.Build()
}

func run(ctx context.Context, v *viper.Viper) error {
	cfg, err := loadConfig(v)
	if err != nil {
		return err
	}
	log, err := newLogger(v)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv, err := server.NewServer(cfg, server.WithLogger(log))
	if err != nil {
		return err
	}
	if addr := v.GetString("metrics-addr"); addr != "" {
		go serveMetrics(ctx, log, addr, srv)
	}
	return srv.ListenAndServe(ctx, newRelay(srv.Sender(), log))
}

// serveMetrics exposes the statistics table to Prometheus and the debug
// probes as JSON until ctx is done.
func serveMetrics(ctx context.Context, log *zap.Logger, addr string, srv *server.Server) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		control.NewCollector(srv.Stats(), nil),
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.HandleFunc("/debug/state", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(srv.Probes().DumpState()); err != nil {
			log.Warn("debug state encode failed", zap.Error(err))
		}
	})

	hs := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = hs.Shutdown(shutdownCtx)
	}()
	log.Info("metrics endpoint listening", zap.String("addr", addr))
	if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("metrics endpoint failed", zap.Error(err))
	}
}
