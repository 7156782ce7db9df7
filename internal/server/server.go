package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/guiyumin/socialdl/internal/core/cache"
	"github.com/guiyumin/socialdl/internal/core/config"
	"github.com/guiyumin/socialdl/internal/core/downloader"
	"github.com/guiyumin/socialdl/internal/core/platform"
	"github.com/guiyumin/socialdl/internal/core/stats"
)

// Response is the envelope for the informational endpoints. Download routes
// answer with envelope.DownloadResponse instead.
type Response struct {
	Code    int         `json:"code"`
	Data    interface{} `json:"data"`
	Message string      `json:"message"`
}

// Server is the HTTP gateway for socialdl
type Server struct {
	cfg    *config.Config
	svc    *downloader.Service
	cache  cache.Cache
	stats  stats.Recorder
	log    *zap.Logger
	redis  *redis.Client
	server *http.Server
	engine *gin.Engine
}

// NewServer builds the gateway around an existing download service.
// A nil cache disables caching and a nil recorder keeps stats in memory.
func NewServer(cfg *config.Config, svc *downloader.Service, c cache.Cache, rec stats.Recorder, log *zap.Logger) *Server {
	if c == nil {
		c = cache.Nop{}
	}
	if rec == nil {
		rec = stats.NewMemoryRecorder()
	}
	if log == nil {
		log = zap.NewNop()
	}

	s := &Server{
		cfg:   cfg,
		svc:   svc,
		cache: c,
		stats: rec,
		log:   log,
	}
	s.engine = s.routes()
	return s
}

// NewFromConfig wires the download service, redis and sentry from cfg.
// Redis is optional: when it is unreachable the cache is disabled and stats
// stay in memory.
func NewFromConfig(cfg *config.Config, log *zap.Logger) (*Server, error) {
	svc, err := downloader.NewFromConfig(cfg, log)
	if err != nil {
		return nil, err
	}

	if cfg.Sentry.DSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.Sentry.DSN,
			Environment: cfg.Sentry.Environment,
		}); err != nil {
			return nil, fmt.Errorf("failed to initialize sentry: %w", err)
		}
	}

	var (
		c   cache.Cache
		rec stats.Recorder
		rdb *redis.Client
	)
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		err := rdb.Ping(ctx).Err()
		cancel()
		if err != nil {
			log.Warn("failed to connect to redis, cache disabled", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
			_ = rdb.Close()
			rdb = nil
		} else {
			log.Info("connected to redis", zap.String("addr", cfg.Redis.Addr))
			c = cache.NewRedisCache(rdb, cfg.Redis.CacheTTL)
			rec = stats.NewRedisRecorder(rdb)
		}
	}

	s := NewServer(cfg, svc, c, rec, log)
	s.redis = rdb
	return s, nil
}

func ginMode(mode string) string {
	switch mode {
	case gin.DebugMode, gin.ReleaseMode, gin.TestMode:
		return mode
	default:
		return gin.ReleaseMode
	}
}

func (s *Server) routes() *gin.Engine {
	gin.SetMode(ginMode(s.cfg.Server.Mode))

	engine := gin.New()
	engine.Use(s.loggingMiddleware())
	engine.Use(s.recoveryMiddleware())
	engine.Use(corsMiddleware(s.cfg.CORS))

	engine.GET("/", s.handleIndex)
	engine.GET("/health", s.handleHealth)

	api := engine.Group("/api")
	api.GET("/health", s.handleAPIHealth)
	api.GET("/platforms", s.handlePlatforms)
	api.GET("/stats", s.handleStats)

	downloads := api.Group("")
	if s.cfg.RateLimit.RPS > 0 {
		downloads.Use(s.rateLimitMiddleware(newIPRateLimiter(s.cfg.RateLimit)))
	}
	downloads.GET("/download", s.handleDownload(platform.Unknown))
	for _, tag := range platform.Tags() {
		downloads.GET("/"+string(tag), s.handleDownload(tag))
	}

	engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, Response{
			Code:    404,
			Data:    nil,
			Message: "not found",
		})
	})

	return engine
}

// Handler returns the gin engine, e.g. for httptest
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start starts the HTTP server and blocks until it stops
func (s *Server) Start() error {
	if !config.Exists() {
		s.log.Warn("no config file found, using defaults", zap.String("hint", "run 'socialdl init' to create "+config.SavePath()))
	}

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.Server.Port),
		Handler:      s.engine,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	s.log.Info("starting socialdl server",
		zap.Int("port", s.cfg.Server.Port),
		zap.Int("platforms", len(s.svc.Registry().List())),
		zap.Bool("redis", s.redis != nil),
		zap.Bool("browser", s.cfg.Browser.Enabled),
	)

	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop gracefully shuts down the server
func (s *Server) Stop(ctx context.Context) error {
	var err error
	if s.server != nil {
		err = s.server.Shutdown(ctx)
	}
	if s.redis != nil {
		if cerr := s.redis.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	sentry.Flush(2 * time.Second)
	return err
}
