package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"vn310d/internal/config"
	"vn310d/internal/logging"
	"vn310d/internal/web"
)

func main() {
	var (
		configPath string
		shell      bool
		wait       time.Duration
	)
	flag.StringVar(&configPath, "config", "/etc/vn310d.yaml", "Path to YAML config")
	flag.BoolVar(&shell, "shell", false, "Run the interactive vn310 command shell")
	flag.DurationVar(&wait, "wait", 500*time.Millisecond, "How long a one-shot command waits for the device reply")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	logs := web.NewLogBuffer(500)
	logger, err := logging.New(cfg.Logging, logs)
	if err != nil {
		log.Fatalf("logger init failed: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	d, err := newDaemon(ctx, cfg, logger, logs)
	if err != nil {
		logger.Fatal("vn310d init failed", zap.Error(err))
	}
	defer d.Close()

	logger.Info("vn310d starting",
		zap.String("device", cfg.Serial.Device),
		zap.Int("baud", cfg.Serial.Baud),
		zap.Duration("tick", cfg.VN310.Tick),
		zap.String("broker", cfg.Routing.Broker))

	if len(flag.Args()) > 0 {
		if err := d.RunOnce(ctx, os.Stdout, wait, flag.Args()...); err != nil {
			logger.Error("command failed", zap.Error(err))
			os.Exit(1)
		}
		return
	}

	go func() {
		if err := d.Run(ctx); err != nil {
			logger.Error("vn310d stopped", zap.Error(err))
		}
		cancel()
	}()

	if shell {
		sh := d.Shell()
		go func() {
			sh.Run()
			cancel()
		}()
	}

	<-ctx.Done()
	logger.Info("vn310d stopping")
}
