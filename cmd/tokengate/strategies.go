package main

import (
	"context"
	"fmt"
	"log/slog"
	"tokengate/auth"
	"tokengate/bearer"
	"tokengate/validators/jwt"
	"tokengate/validators/redis"
	"tokengate/validators/static"

	goredis "github.com/redis/go-redis/v9"
)

// backends holds the shared clients strategies are built on.
type backends struct {
	db          auth.DB
	redis       goredis.Cmdable
	redisPrefix string
}

// newValidator builds the validator for one strategy.
func newValidator(ctx context.Context, sc StrategyConfig, b backends, logger *slog.Logger) (bearer.Validator, error) {
	switch sc.Type {
	case StrategyStatic:
		v, err := static.Load(sc.TokenFile, logger)
		if err != nil {
			return nil, err
		}
		if sc.Watch {
			if err := v.Watch(ctx); err != nil {
				return nil, err
			}
		}
		return v, nil

	case StrategySession:
		if b.db == nil {
			return nil, fmt.Errorf("strategy %s: database not configured", sc.Name)
		}
		return auth.NewValidator(b.db, &auth.Config{BindIP: sc.BindIP}), nil

	case StrategyRedis:
		if b.redis == nil {
			return nil, fmt.Errorf("strategy %s: redis not configured", sc.Name)
		}
		return redis.New(redis.Config{Client: b.redis, KeyPrefix: b.redisPrefix})

	case StrategyJWT:
		cfg := jwt.Config{
			Issuer:      sc.Issuer,
			Audiences:   sc.Audiences,
			AllowedAlgs: sc.AllowedAlgs,
			Leeway:      sc.Leeway,
			JWKSURL:     sc.JWKSURL,
		}
		if sc.Discovery {
			return jwt.NewFromDiscovery(ctx, cfg)
		}
		return jwt.New(ctx, cfg)
	}
	return nil, fmt.Errorf("strategy %s: unknown type %q", sc.Name, sc.Type)
}

// newStrategies builds every configured strategy, in configuration order.
func newStrategies(ctx context.Context, cfg *Config, b backends, logger *slog.Logger) ([]string, map[string]*bearer.Strategy, error) {
	names := make([]string, 0, len(cfg.Strategies))
	strategies := make(map[string]*bearer.Strategy, len(cfg.Strategies))
	for _, sc := range cfg.Strategies {
		v, err := newValidator(ctx, sc, b, logger)
		if err != nil {
			return nil, nil, err
		}
		s, err := bearer.New(bearer.Options{
			Validator:     v,
			ExposeRequest: sc.ExposeRequest,
			Realm:         sc.Realm,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("strategy %s: %w", sc.Name, err)
		}
		names = append(names, sc.Name)
		strategies[sc.Name] = s
		logger.Debug("Configured auth strategy.", slog.String("name", sc.Name), slog.String("type", sc.Type))
	}
	return names, strategies, nil
}
