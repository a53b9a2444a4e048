package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/sanverite/statusboard/internal/api"
	"github.com/sanverite/statusboard/internal/broadcast"
	"github.com/sanverite/statusboard/internal/collector"
	"github.com/sanverite/statusboard/internal/config"
	"github.com/sanverite/statusboard/internal/core"
	"github.com/sanverite/statusboard/internal/desktop"
	"github.com/sanverite/statusboard/internal/logging"
	"github.com/sanverite/statusboard/internal/probe"
)

type serveOptions struct {
	configPath   string
	listen       string
	logLevel     string
	pollInterval time.Duration
	noNotify     bool
	shutdownSecs int
}

func newServeCmd() *cobra.Command {
	var opts serveOptions
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the status daemon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Flags(), opts)
		},
	}
	fs := cmd.Flags()
	fs.StringVarP(&opts.configPath, "config", "c", "", "Path to a YAML or JSONC config file (default $"+config.EnvConfig+")")
	fs.StringVar(&opts.listen, "listen", config.DefaultListen, "HTTP listen address")
	fs.StringVar(&opts.logLevel, "log-level", "", "Log level (trace, debug, info, warn, error)")
	fs.DurationVar(&opts.pollInterval, "poll-interval", collector.DefaultInterval, "Signal polling interval")
	fs.BoolVar(&opts.noNotify, "no-notify", false, "Disable desktop notifications on mode change")
	fs.IntVar(&opts.shutdownSecs, "shutdown-secs", 5, "Graceful shutdown timeout in seconds")
	return cmd
}

// applyFlags overrides file settings with flags the user set explicitly.
func applyFlags(cfg *config.Config, fs *pflag.FlagSet, opts serveOptions) error {
	if fs.Changed("listen") {
		cfg.Listen = opts.listen
	}
	if fs.Changed("poll-interval") {
		cfg.PollInterval = opts.pollInterval
	}
	if opts.noNotify {
		cfg.Notify = false
	}
	return cfg.Validate()
}

func runServe(fs *pflag.FlagSet, opts serveOptions) error {
	logger := logging.NewLogger("statusboard", opts.logLevel, os.Stderr)

	// Configuration
	path := config.Path(opts.configPath)
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	if err := applyFlags(&cfg, fs, opts); err != nil {
		return err
	}
	table, err := cfg.ModeTable()
	if err != nil {
		return err
	}
	if path != "" {
		logger.Info("loaded config", "path", path, "modes", table.Len())
	}

	sensor, err := probe.NewDesktop(cfg.ProbeConfig())
	if err != nil {
		return fmt.Errorf("probes: %w", err)
	}

	// Core state and fan-out
	bc := broadcast.New(table.Default(), broadcast.Options{
		Buffer: cfg.SubscriberBuffer,
		Logger: logger.Named("broadcast"),
	})
	pubs := core.Publishers{bc}
	if cfg.Notify {
		notifier := desktop.NewModeNotifier(desktop.NotifySend{}, logger.Named("notify"))
		defer notifier.Close()
		pubs = append(pubs, notifier)
	}
	store := core.NewStore(table, pubs)

	// API Server
	srv := api.NewServer(store, bc, api.ServerOptions{
		Addr:              cfg.Listen,
		ReadTimeout:       5 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
		ShutdownTimeout:   time.Duration(opts.shutdownSecs) * time.Second,
		Logger:            logger.Named("api"),
	})
	if err := srv.Start(); err != nil {
		return fmt.Errorf("listen %s: %w", cfg.Listen, err)
	}
	logURLs(logger, srv.Addr())

	// Collector and operator input
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	coll := collector.New(sensor, store, collector.Options{
		Interval:      cfg.PollInterval,
		ProbeTimeout:  cfg.ProbeTimeout,
		IdleThreshold: cfg.IdleThreshold,
		Logger:        logger.Named("collector"),
	})
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		if err := coll.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("collector stopped", "error", err)
		}
	}()
	go func() {
		defer wg.Done()
		desktop.Dispatch(ctx, desktop.SignalSource{}, store, logger.Named("input"))
	}()

	// Handle shutdown signals
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(signals)

	sig := <-signals
	logger.Info("received signal, shutting down", "signal", sig.String())

	cancel()
	wg.Wait()
	bc.Close()
	if err := srv.Stop(context.Background()); err != nil {
		logger.Warn("graceful shutdown error", "error", err)
	}
	logger.Info("stopped")
	return nil
}

// logURLs prints the addresses displays should connect to.
func logURLs(logger hclog.Logger, addr net.Addr) {
	tcp, ok := addr.(*net.TCPAddr)
	if !ok {
		logger.Info("serving", "addr", addr.String())
		return
	}
	port := tcp.Port
	logger.Info("local url", "url", fmt.Sprintf("http://127.0.0.1:%d/%s/status", port, api.APIVersion))
	if !tcp.IP.IsUnspecified() && !tcp.IP.IsLoopback() {
		logger.Info("lan url", "url", fmt.Sprintf("http://%s/%s/status", net.JoinHostPort(tcp.IP.String(), fmt.Sprint(port)), api.APIVersion))
		return
	}
	if ip, err := outboundIP(); err == nil && !tcp.IP.IsLoopback() {
		logger.Info("lan url", "url", fmt.Sprintf("http://%s/%s/status", net.JoinHostPort(ip.String(), fmt.Sprint(port)), api.APIVersion))
	}
}

// outboundIP reports the source address the host would use for LAN
// traffic. UDP dial sends no packets.
func outboundIP() (net.IP, error) {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return nil, err
	}
	defer conn.Close()
	addr, ok := conn.LocalAddr().(*net.UDPAddr)
	if !ok {
		return nil, errors.New("unexpected local address type")
	}
	return addr.IP, nil
}
