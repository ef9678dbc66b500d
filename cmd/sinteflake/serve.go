package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ceyewan/sinteflake/auth"
	"github.com/ceyewan/sinteflake/breaker"
	"github.com/ceyewan/sinteflake/clog"
	"github.com/ceyewan/sinteflake/config"
	"github.com/ceyewan/sinteflake/httpapi"
	"github.com/ceyewan/sinteflake/metrics"
	"github.com/ceyewan/sinteflake/ratelimit"
	"github.com/ceyewan/sinteflake/trace"
	"github.com/ceyewan/sinteflake/xerrors"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP ID service",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, loader, err := loadConfig(ctx, cmd)
			if err != nil {
				return err
			}
			if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
				cfg.HTTP.Addr = addr
			}
			return serve(ctx, cfg, loader)
		},
	}
	cmd.Flags().String("addr", "", "listen address, overrides http.addr")
	return cmd
}

func serve(ctx context.Context, cfg *appConfig, loader config.Loader) error {
	logger, err := clog.New(&cfg.Log,
		clog.WithNamespace(serviceName),
		clog.WithContextField(httpapi.RequestIDKey, "request_id"),
	)
	if err != nil {
		return err
	}
	defer logger.Flush()

	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)
	go watchLogLevel(ctx, loader, logger)

	meter, err := metrics.New(&cfg.Metrics, metrics.WithLogger(logger))
	if err != nil {
		return err
	}
	defer shutdown(logger, "metrics", meter.Shutdown)

	shutdownTrace, err := trace.Init(&cfg.Trace)
	if err != nil {
		return err
	}
	defer shutdown(logger, "trace", shutdownTrace)

	n, err := openNode(ctx, cfg, logger, meter)
	if err != nil {
		return err
	}
	defer n.Close()

	// 续租失败后其它进程可能已拿到同一个 NodeID，必须停止发号
	go func() {
		if err, ok := <-n.allocator.KeepAlive(ctx); ok && err != nil {
			logger.Error("node lease lost, stopping", clog.Error(err))
			cancel(err)
		}
	}()

	opts := []httpapi.Option{
		httpapi.WithLogger(logger),
		httpapi.WithMeter(meter),
		httpapi.WithHealthCheck(n.connectors()...),
	}
	if cfg.Auth.SecretKey != "" {
		authenticator, err := auth.New(&cfg.Auth, auth.WithLogger(logger), auth.WithMeter(meter))
		if err != nil {
			return err
		}
		opts = append(opts, httpapi.WithAuthenticator(authenticator))
	}
	if cfg.HTTP.RateLimit.Valid() {
		limitOpts := []ratelimit.Option{ratelimit.WithLogger(logger), ratelimit.WithMeter(meter)}
		if cfg.RateLimit.Driver == "distributed" {
			brk, err := breaker.New(&cfg.Breaker, breaker.WithLogger(logger), breaker.WithMeter(meter))
			if err != nil {
				return err
			}
			limitOpts = append(limitOpts, ratelimit.WithRedisConnector(n.redis), ratelimit.WithBreaker(brk))
		}
		limiter, err := ratelimit.New(&cfg.RateLimit, limitOpts...)
		if err != nil {
			return err
		}
		defer limiter.Close()
		opts = append(opts, httpapi.WithLimiter(limiter))
	}

	server, err := httpapi.New(&cfg.HTTP, n.gen, opts...)
	if err != nil {
		return err
	}
	if err := server.Run(ctx); err != nil {
		return err
	}
	if cause := context.Cause(ctx); cause != nil && !xerrors.Is(cause, context.Canceled) {
		return cause
	}
	return nil
}

// watchLogLevel 配置文件中的 log.level 变化时调整日志级别
func watchLogLevel(ctx context.Context, loader config.Loader, logger clog.Logger) {
	events, err := loader.Watch(ctx, "log.level")
	if err != nil {
		logger.Warn("watch log.level failed", clog.Error(err))
		return
	}
	for event := range events {
		level, err := clog.ParseLevel(fmt.Sprint(event.Value))
		if err != nil {
			logger.Warn("ignore invalid log level", clog.Any("value", event.Value))
			continue
		}
		if err := logger.SetLevel(level); err != nil {
			logger.Warn("set log level failed", clog.Error(err))
			continue
		}
		logger.Info("log level changed", clog.String("level", level.String()))
	}
}

func shutdown(logger clog.Logger, name string, fn func(context.Context) error) {
	if err := fn(context.Background()); err != nil {
		logger.Warn("shutdown failed", clog.String("component", name), clog.Error(err))
	}
}
