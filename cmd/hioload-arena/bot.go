// File: cmd/hioload-arena/bot.go
// Author: momentics <momentics@gmail.com>
//
// "bot" subcommand: a swarm of synthetic players for load testing.

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/momentics/hioload-arena/client"
)

func newBotCmd() *cobra.Command {
	v := viper.New()
	cmd := &cobra.Command{
		Use:          "bot",
		Short:        "Connect a swarm of bot players to a running server",
		Example:      "  $ hioload-arena bot --url ws://127.0.0.1:6970/ --players 200 --interval 50ms",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBots(cmd.Context(), v)
		},
	}
	def := client.DefaultConfig()
	f := cmd.Flags()
	f.String("url", def.URL, "server WebSocket URL")
	f.Int("players", def.Players, "number of concurrent bots")
	f.Duration("interval", def.Interval, "delay between messages of one bot, 0 to only listen")
	f.Int("payload-size", def.PayloadSize, "random payload bytes per message")
	f.Duration("dial-timeout", def.DialTimeout, "connect and handshake timeout")
	f.Duration("report-every", 5*time.Second, "log swarm totals at this period")
	f.String("log-level", "info", "log level (debug, info, warn, error)")
	f.Bool("log-dev", false, "human-friendly development logging")
	_ = v.BindPFlags(f)
	v.SetEnvPrefix(envPrefix + "_BOT")
	v.SetEnvKeyReplacer(newEnvReplacer())
	v.AutomaticEnv()
	return cmd
}

func runBots(ctx context.Context, v *viper.Viper) error {
	log, err := newLogger(v)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	swarm, err := client.NewSwarm(client.Config{
		URL:         v.GetString("url"),
		Players:     v.GetInt("players"),
		Interval:    v.GetDuration("interval"),
		PayloadSize: v.GetInt("payload-size"),
		DialTimeout: v.GetDuration("dial-timeout"),
	}, log)
	if err != nil {
		return err
	}

	if every := v.GetDuration("report-every"); every > 0 {
		go reportSwarm(ctx, log, swarm, every)
	}
	err = swarm.Run(ctx)
	tot := swarm.Totals()
	log.Info("swarm finished",
		zap.Int64("joined", tot.Joined),
		zap.Int64("sent", tot.Sent),
		zap.Int64("received", tot.Received))
	return err
}

func reportSwarm(ctx context.Context, log *zap.Logger, swarm *client.Swarm, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			tot := swarm.Totals()
			log.Info("swarm totals",
				zap.Int64("joined", tot.Joined),
				zap.Int64("sent", tot.Sent),
				zap.Int64("received", tot.Received))
		}
	}
}
