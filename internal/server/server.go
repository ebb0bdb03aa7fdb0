package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/traversoft/customer-portal/internal/audit"
	auditdomain "github.com/traversoft/customer-portal/internal/audit/domain"
	"github.com/traversoft/customer-portal/internal/auth"
	"github.com/traversoft/customer-portal/internal/auth/cookie"
	authdomain "github.com/traversoft/customer-portal/internal/auth/domain"
	"github.com/traversoft/customer-portal/internal/config"
	"github.com/traversoft/customer-portal/internal/customer"
	customerdomain "github.com/traversoft/customer-portal/internal/customer/domain"
	"github.com/traversoft/customer-portal/internal/erp"
	"github.com/traversoft/customer-portal/internal/identity"
	"github.com/traversoft/customer-portal/internal/observability"
	obslogger "github.com/traversoft/customer-portal/internal/observability/logger"
	obsmetrics "github.com/traversoft/customer-portal/internal/observability/metrics"
	obstracing "github.com/traversoft/customer-portal/internal/observability/tracing"
	"github.com/traversoft/customer-portal/internal/providers/email"
	"github.com/traversoft/customer-portal/internal/session"
	sessiondomain "github.com/traversoft/customer-portal/internal/session/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	audit.Module,
	auth.Module,
	customer.Module,
	session.Module,
	identity.Module,
	email.Module,
	erp.Module,
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, metrics *obsmetrics.Metrics, resolver *identity.Resolver, registry *prometheus.Registry) *gin.Engine {
	r := gin.New()
	// CF-Connecting-IP wins when present, then the forwarding headers.
	r.TrustedPlatform = gin.PlatformCloudflare

	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(obslogger.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(metrics))
	r.Use(resolver.Middleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	return r
}

func registerGin(obsCfg observability.Config, metrics *obsmetrics.Metrics, resolver *identity.Resolver, registry *prometheus.Registry) *gin.Engine {
	return NewEngine(obsCfg, metrics, resolver, registry)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config, log *zap.Logger) {
	srv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server failed", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", cfg.ListenAddr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine      *gin.Engine
	cfg         config.Config
	log         *zap.Logger
	genID       *snowflake.Node
	codec       *cookie.Codec
	authSvc     authdomain.Service
	customerSvc customerdomain.Service
	sessionSvc  sessiondomain.Service
	auditSvc    auditdomain.Service
	inventory   erp.Inventory
	mailer      email.Provider
}

type ServerParams struct {
	fx.In

	Gin         *gin.Engine
	Cfg         config.Config
	Log         *zap.Logger
	GenID       *snowflake.Node
	Codec       *cookie.Codec
	AuthSvc     authdomain.Service
	CustomerSvc customerdomain.Service
	SessionSvc  sessiondomain.Service
	AuditSvc    auditdomain.Service
	Inventory   erp.Inventory
	Mailer      email.Provider
}

func NewServer(p ServerParams) *Server {
	s := &Server{
		engine:      p.Gin,
		cfg:         p.Cfg,
		log:         p.Log.Named("http.server"),
		genID:       p.GenID,
		codec:       p.Codec,
		authSvc:     p.AuthSvc,
		customerSvc: p.CustomerSvc,
		sessionSvc:  p.SessionSvc,
		auditSvc:    p.AuditSvc,
		inventory:   p.Inventory,
		mailer:      p.Mailer,
	}

	s.registerCustomerRoutes()
	s.registerAdminRoutes()

	return s
}
