// CLAUDE:SUMMARY CLI entry point for xptrail with fetch, serve, and mcp subcommands sharing config, logging, and retry flags.
// Command xptrail extracts XP timelines from public duome.eu profiles.
//
// Usage:
//
//	xptrail fetch alice bob --out ./data      # CSV + PNG per profile
//	xptrail fetch alice --json                # JSON result on stdout
//	xptrail serve --addr :8087                # HTTP API
//	xptrail mcp                               # MCP server on stdio
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/spf13/cobra"

	"github.com/hazyhaar/xptrail/tracker"
)

type globalFlags struct {
	configPath string
	logLevel   string
	timezone   string
	remote     string
	retries    int
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:           "xptrail",
		Short:         "xptrail reads the XP history of public language-learning profiles.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	pf := root.PersistentFlags()
	pf.StringVarP(&g.configPath, "config", "c", "", "path to xptrail.yaml")
	pf.StringVar(&g.logLevel, "log-level", "info", "log level: debug, info, warn, error")
	pf.StringVar(&g.timezone, "timezone", "", "IANA zone for local times (overrides config)")
	pf.StringVar(&g.remote, "remote", "", "DevTools WebSocket URL of an external Chrome (overrides config)")
	pf.IntVar(&g.retries, "retries", 0, "retry an extraction this many times when navigation fails")

	root.AddCommand(newFetchCmd(g), newServeCmd(g), newMCPCmd(g))
	return root
}

func newLogger(level string) *slog.Logger {
	var l slog.Level
	switch level {
	case "debug":
		l = slog.LevelDebug
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: l}))
}

// setup loads configuration, applies flag overrides and builds the tracker.
func (g *globalFlags) setup() (*tracker.Tracker, *tracker.Config, *slog.Logger, error) {
	logger := newLogger(g.logLevel)
	slog.SetDefault(logger)

	cfg := tracker.DefaultConfig()
	if g.configPath != "" {
		c, err := tracker.LoadConfigFile(g.configPath)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("load config: %w", err)
		}
		cfg = c
	}
	if g.timezone != "" {
		cfg.Timezone = g.timezone
		if _, err := cfg.Location(); err != nil {
			return nil, nil, nil, err
		}
	}
	if g.remote != "" {
		cfg.Browser.Remote = g.remote
	}
	tr := tracker.New(cfg, logger, tracker.WithRetry(g.retries, 2*time.Second))
	return tr, cfg, logger, nil
}
