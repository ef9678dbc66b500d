// Package httpapi 通过 HTTP 对外提供发号与解码服务。
//
// 路由：
//
//	POST /v1/ids?count=n[&format=msgpack]   生成 n 个 ID（默认 1）
//	GET  /v1/ids/:id                         解码，需要 decoder 角色的 JWT
//	GET  /healthz                            健康检查
//	GET  /metrics                            Prometheus 采集
//
// 中间件顺序：请求 ID、otelgin、RED 指标、访问日志、限流。
package httpapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ceyewan/sinteflake/auth"
	"github.com/ceyewan/sinteflake/clog"
	"github.com/ceyewan/sinteflake/connector"
	"github.com/ceyewan/sinteflake/idgen"
	"github.com/ceyewan/sinteflake/metrics"
	"github.com/ceyewan/sinteflake/ratelimit"
	"github.com/ceyewan/sinteflake/trace"
	"github.com/ceyewan/sinteflake/xerrors"
)

// RoleDecoder 访问解码接口需要的角色
const RoleDecoder = "decoder"

// Server 发号 HTTP 服务
type Server struct {
	cfg    Config
	gen    *idgen.Generator
	logger clog.Logger
	engine *gin.Engine
	checks []connector.Connector
}

// New 创建服务并注册路由，此时不监听端口
func New(cfg *Config, gen *idgen.Generator, opts ...Option) (*Server, error) {
	if gen == nil {
		return nil, xerrors.Wrap(xerrors.ErrInvalidInput, "generator is required")
	}
	c := Config{}
	if cfg != nil {
		c = *cfg
	}
	c.setDefaults()
	if err := c.validate(); err != nil {
		return nil, err
	}

	o := applyOptions(opts)
	red, err := metrics.NewHTTPServerMetrics(o.meter, metrics.DefaultHTTPServerMetricsConfig(c.ServiceName))
	if err != nil {
		return nil, err
	}

	s := &Server{
		cfg:    c,
		gen:    gen,
		logger: o.logger,
		checks: o.checks,
	}

	engine := gin.New()
	engine.Use(
		gin.Recovery(),
		requestID(),
		trace.GinMiddleware(c.ServiceName),
		metrics.GinHTTPMiddleware(red),
		accessLog(s.logger),
	)
	engine.GET("/healthz", s.healthz)
	engine.GET("/metrics", gin.WrapH(metrics.HTTPHandler(o.meter)))

	v1 := engine.Group("/v1")
	if o.limiter != nil && c.RateLimit.Valid() {
		limit := c.RateLimit
		v1.Use(ratelimit.GinMiddlewareN(o.limiter, ratelimit.ClientIP,
			func(*gin.Context) ratelimit.Limit { return limit },
			s.requestedCount,
		))
	}
	v1.POST("/ids", s.generate)
	if o.authenticator != nil {
		v1.GET("/ids/:id", o.authenticator.GinMiddleware(), auth.RequireRoles(RoleDecoder), s.decode)
	}

	s.engine = engine
	return s, nil
}

// Handler 返回 http.Handler，便于挂载或测试
func (s *Server) Handler() http.Handler { return s.engine }

// Run 监听 Config.Addr，ctx 取消后优雅退出
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.engine,
		ReadHeaderTimeout: s.cfg.ReadHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", clog.String("addr", s.cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return xerrors.Wrap(err, "http server")
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	s.logger.Info("http server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return xerrors.Wrap(err, "shutdown http server")
	}
	return nil
}
