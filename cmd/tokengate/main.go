package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime/debug"
	"strings"
	"syscall"
	authapi "tokengate/auth/api"
	"tokengate/common/flux"
	"tokengate/common/log"
	"tokengate/common/metrics"
	"tokengate/common/postgres"
	"tokengate/validators/static"

	goredis "github.com/redis/go-redis/v9"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := log.New()
	if err := run(ctx, logger); err != nil {
		logger.Error(err.Error())
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger) error {
	defer func() {
		// Recover from panics and log the error.
		if x := recover(); x != nil {
			logger.Error("A panic occurred.",
				slog.Any("error", x),
				slog.String("stack", string(debug.Stack())))
			panic(x)
		}
	}()

	var configPath, envFile string
	var hashToken bool
	flag.StringVar(&configPath, "config", "config.yaml", "path to config file")
	flag.StringVar(&envFile, "env", ".env", "path to optional env file")
	flag.BoolVar(&hashToken, "hash-token", false, "read a token from stdin, print its token_hash and exit")
	flag.Parse()

	if hashToken {
		return printTokenHash(os.Stdin, os.Stdout)
	}

	cfg, err := loadConfig(configPath, envFile)
	if err != nil {
		return err
	}

	if err := log.SetLevel(cfg.LogLevel); err != nil {
		return err
	}
	if cfg.Debug {
		log.SetDebug()
		logger.Debug("Debugging enabled.")
	}

	var b backends
	if cfg.uses(StrategySession) {
		db, err := postgres.New(ctx, cfg.Database)
		if err != nil {
			return err
		}
		defer db.Close()
		b.db = db
	}
	if cfg.uses(StrategyRedis) {
		rdb := goredis.NewClient(&goredis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			return err
		}
		defer rdb.Close()
		b.redis = rdb
		b.redisPrefix = cfg.Redis.KeyPrefix
	}

	names, strategies, err := newStrategies(ctx, cfg, b, logger)
	if err != nil {
		return err
	}

	ipExtractor, err := flux.ParseIPExtractor(cfg.Server.IPExtractor)
	if err != nil {
		return err
	}
	var m *metrics.Metrics
	var recorder metrics.Recorder = metrics.Noop{}
	if cfg.Server.Metrics {
		m = metrics.New()
		recorder = m
	}

	s := flux.NewServer(&flux.ServerOptions{
		Debug:             cfg.Debug,
		Logger:            logger,
		Port:              cfg.Server.Port,
		TLS:               cfg.Server.TLS,
		CertCacheDir:      cfg.Server.CertCacheDir,
		IPExtractor:       ipExtractor,
		Metrics:           recorder,
		RequestTimeout:    cfg.Server.RequestTimeout,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
		ShutdownTimeout:   cfg.Server.ShutdownTimeout,
	})
	for _, name := range names {
		s.AuthStrategy(name, strategies[name])
	}
	authapi.Handler(s, names)
	if m != nil {
		s.Handle("GET /metrics", m.Handler())
	}

	if err := s.Start(ctx); err != nil {
		return err
	}
	defer s.Stop()
	return nil
}

func printTokenHash(r io.Reader, w io.Writer) error {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	token := strings.TrimRight(line, "\r\n")
	if token == "" {
		return errors.New("no token on stdin")
	}
	hash, err := static.HashToken(token)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, hash)
	return err
}
