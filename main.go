package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/nstehr/vimy/vimy-sc2/agent"
	"github.com/nstehr/vimy/vimy-sc2/config"
	"github.com/nstehr/vimy/vimy-sc2/ipc"
	"github.com/nstehr/vimy/vimy-sc2/metrics"
	"github.com/nstehr/vimy/vimy-sc2/strategy"
)

const banner = `
██╗   ██╗██╗███╗   ███╗██╗   ██╗
██║   ██║██║████╗ ████║╚██╗ ██╔╝
██║   ██║██║██╔████╔██║ ╚████╔╝
╚██╗ ██╔╝██║██║╚██╔╝██║  ╚██╔╝
 ╚████╔╝ ██║██║ ╚═╝ ██║   ██║
  ╚═══╝  ╚═╝╚═╝     ╚═╝   ╚═╝

Doctrine-Driven StarCraft II Intelligence`

type options struct {
	socket      string
	configPath  string
	logLevel    string
	metricsAddr string
	doctrine    string
}

func newRootCmd() *cobra.Command {
	var opts options
	cmd := &cobra.Command{
		Use:   "vimy-sc2",
		Short: "Decision core for a StarCraft II agent",
		Long: `vimy-sc2 listens on a Unix domain socket for a game bridge. Each observation
runs one step of macro scheduling, squad upkeep and unit micro, and is
answered with the commands for that step.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), opts)
		},
	}
	cmd.Flags().StringVar(&opts.socket, "socket", "/tmp/vimy.sock", "unix socket the bridge connects to")
	cmd.Flags().StringVar(&opts.configPath, "config", "", "YAML file with tuning and doctrine overrides")
	cmd.Flags().StringVar(&opts.logLevel, "log-level", "info", "debug, info, warn or error")
	cmd.Flags().StringVar(&opts.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address (e.g. :9090)")
	cmd.Flags().StringVar(&opts.doctrine, "doctrine", "", "YAML file with the doctrine (defaults to the config file's)")
	return cmd
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToLower(s))); err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return level, nil
}

func run(ctx context.Context, opts options) error {
	level, err := parseLevel(opts.logLevel)
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	color.New(color.FgCyan, color.Bold).Println(banner)

	tuning, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	config.NewLoader("VIMY").Apply(&tuning)
	tuning.Validate()

	doctrinePath := opts.doctrine
	if doctrinePath == "" {
		doctrinePath = opts.configPath
	}
	doctrine, err := strategy.LoadDoctrine(doctrinePath)
	if err != nil {
		return err
	}
	slog.Info("starting vimy", "doctrine", doctrine.Name, "socket", opts.socket)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if opts.metricsAddr != "" {
		srv := &http.Server{
			Addr:              opts.metricsAddr,
			Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			slog.Info("serving metrics", "addr", opts.metricsAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server failed", "error", err)
			}
		}()
		defer srv.Close()
	}

	// Unix sockets leave behind a file on unclean shutdown; remove it so we can rebind.
	if err := os.RemoveAll(opts.socket); err != nil {
		return fmt.Errorf("clean up socket %s: %w", opts.socket, err)
	}
	listener, err := net.Listen("unix", opts.socket)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", opts.socket, err)
	}
	defer os.Remove(opts.socket)
	context.AfterFunc(ctx, func() { listener.Close() })

	slog.Info("listening on domain socket", "path", opts.socket)

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				slog.Info("shutting down")
				return nil
			}
			slog.Error("failed to accept connection", "error", err)
			continue
		}
		go handleConn(ctx, conn, agent.Options{Tuning: &tuning, Doctrine: doctrine, Metrics: m, Logger: logger})
	}
}

func handleConn(ctx context.Context, conn net.Conn, opts agent.Options) {
	s := agent.New(opts)
	log := opts.Logger.With("session", s.ID.String())
	log.Info("new connection accepted")
	c := ipc.NewConnection(conn, nil, log)
	s.Register(c)
	c.ReadLoop(ctx)
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
