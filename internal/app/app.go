package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mmeshcher/scissor/internal/cache"
	"github.com/mmeshcher/scissor/internal/config"
	"github.com/mmeshcher/scissor/internal/handler"
	"github.com/mmeshcher/scissor/internal/middleware"
	"github.com/mmeshcher/scissor/internal/qrcode"
	"github.com/mmeshcher/scissor/internal/repository"
	"github.com/mmeshcher/scissor/internal/service"
	"github.com/mmeshcher/scissor/internal/shortcode"
)

const shutdownTimeout = 10 * time.Second

// App holds everything a running server needs. It is built once at startup.
type App struct {
	cfg    *config.Config
	repo   repository.Repository
	cache  cache.Cache
	router http.Handler
	logger *zap.Logger
}

// New connects the configured storage and cache and wires the services into
// an HTTP router.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	repo, err := openRepository(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	c, err := openCache(ctx, cfg, logger)
	if err != nil {
		repo.Close()
		return nil, err
	}

	var probe interface {
		Probe(ctx context.Context, target string) error
	} = service.NewHTTPProber(cfg.ProbeTimeout)
	if cfg.SkipReachabilityCheck {
		probe = service.NopProber{}
	}

	links := service.NewLinkService(
		repo,
		c,
		qrcode.NewStore(cfg.UploadPath),
		probe,
		service.LinkConfig{
			BaseURL:    cfg.BaseURL,
			CodeLength: cfg.ShortCodeLength,
			QROnCreate: cfg.QROnCreate,
			Resolver:   newResolver(cfg),
		},
		logger,
	)
	accounts := service.NewAccountService(repo, logger)
	session := middleware.NewSession(cfg.SecretKey, cfg.SessionTTL, logger)

	h := handler.NewHandler(links, accounts, session, logger, cfg.RateLimit)

	return &App{
		cfg:    cfg,
		repo:   repo,
		cache:  c,
		router: h.SetupRouter(),
		logger: logger,
	}, nil
}

func openRepository(ctx context.Context, cfg *config.Config, logger *zap.Logger) (repository.Repository, error) {
	if cfg.DatabaseDSN != "" {
		repo, err := repository.NewPostgresRepository(ctx, cfg.DatabaseDSN, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		logger.Info("Using PostgreSQL storage")
		return repo, nil
	}

	repo, err := repository.NewMemoryRepository(cfg.FileStoragePath, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open memory storage: %w", err)
	}
	logger.Info("Using in-memory storage", zap.String("file_storage_path", cfg.FileStoragePath))
	return repo, nil
}

func openCache(ctx context.Context, cfg *config.Config, logger *zap.Logger) (cache.Cache, error) {
	if cfg.RedisURL != "" {
		c, err := cache.NewRedisCacheFromURL(ctx, cfg.RedisURL, cfg.CacheTTL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		logger.Info("Using Redis QR code cache", zap.Duration("ttl", cfg.CacheTTL))
		return c, nil
	}

	return cache.NewMemoryCache(cfg.CacheSize, cfg.CacheTTL), nil
}

// newResolver lets a colliding code grow one symbol per
// shortcode.DefaultAttemptsPerLength misses, up to the configured maximum.
func newResolver(cfg *config.Config) *shortcode.Resolver {
	return shortcode.NewResolver(
		shortcode.WithMaxAttempts(cfg.CodeAttempts),
		shortcode.WithLengthEscalation(shortcode.DefaultAttemptsPerLength, cfg.CodeMaxLength),
	)
}

func (a *App) Handler() http.Handler {
	return a.router
}

// Run serves HTTP until ctx is cancelled, then shuts the server down and
// releases storage.
func (a *App) Run(ctx context.Context) error {
	defer a.close()

	server := &http.Server{
		Addr:              a.cfg.ServerAddress,
		Handler:           a.router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Info("Server starting", zap.String("address", server.Addr))

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error occurred: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()

		a.logger.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shutdown server: %w", err)
		}
		return nil
	})

	return g.Wait()
}

func (a *App) close() {
	if err := a.cache.Close(); err != nil {
		a.logger.Error("Failed to close cache", zap.Error(err))
	}
	if err := a.repo.Close(); err != nil {
		a.logger.Error("Failed to close storage", zap.Error(err))
	}
}
