package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"go-wechat-svc/internal/adapter/client"
	handler "go-wechat-svc/internal/adapter/http"
	"go-wechat-svc/internal/cache"
	"go-wechat-svc/internal/reply"
	"go-wechat-svc/internal/shared"
	"go-wechat-svc/internal/token"
	"go-wechat-svc/internal/wechat"
)

const shutdownTimeout = 10 * time.Second

// App 应用程序，组装所有组件
type App struct {
	server *http.Server
	cache  cache.Cache
	logger *slog.Logger
}

// NewApp 初始化应用：slog logger → Cache → Crypto → Token Manager → WeChat Service → gin 路由
func NewApp(ctx context.Context, cfg *shared.Config) (*App, error) {
	logger := initLogger(cfg.Log)

	store, err := newCache(ctx, cfg.Cache)
	if err != nil {
		return nil, fmt.Errorf("init cache: %w", err)
	}

	crypto, err := wechat.NewCrypto(cfg.WeChat.Token, cfg.WeChat.EncodingAESKey, cfg.WeChat.AppID)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("init crypto: %w", err)
	}
	if cfg.WeChat.EncodingAESKey == "" {
		logger.Warn("encoding_aes_key not set, only plaintext pushes are accepted")
	}

	tokenClient := client.NewTokenClient(cfg.WeChat, logger)
	tokens := token.NewManager(cfg.WeChat.AppID, cfg.Cache.KeyPrefix, tokenClient, store, logger)

	wxSvc := wechat.NewService(crypto, reply.NewEcho(logger), logger)

	callbackHandler := handler.NewCallbackHandler(wxSvc, logger)
	healthHandler := handler.NewHealthHandler(store, logger)

	var clientHandler *handler.ClientHandler
	if cfg.Server.ExposeTokenRoute {
		api := client.NewAPIClient(cfg.WeChat.APIBaseURL, tokens, &http.Client{Timeout: cfg.WeChat.TokenTimeout}, logger)
		clientHandler = handler.NewClientHandler(tokens, api, logger)
		logger.Warn("client debug routes exposed under /client")
	}

	gin.SetMode(gin.ReleaseMode)
	router := handler.NewRouter(logger, callbackHandler, healthHandler, clientHandler)

	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	return &App{server: server, cache: store, logger: logger}, nil
}

// Run 启动 HTTP 服务器，ctx 结束后优雅关闭并释放缓存连接
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Info("starting server", "addr", a.server.Addr)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		a.logger.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})

	err := g.Wait()
	if cerr := a.cache.Close(); cerr != nil {
		a.logger.Error("failed to close cache", "error", cerr)
	}
	return err
}

// newCache 按驱动创建缓存并确认后端可用
func newCache(ctx context.Context, cfg shared.CacheConfig) (cache.Cache, error) {
	var store cache.Cache
	switch cfg.Driver {
	case shared.CacheDriverRedis:
		store = cache.DialRedis(cfg.Redis.Addr, cfg.Redis.Username, cfg.Redis.Password, cfg.Redis.DB)
	case shared.CacheDriverSQLite:
		s, err := cache.OpenSQLite(ctx, cfg.SQLite.Path)
		if err != nil {
			return nil, err
		}
		store = s
	case shared.CacheDriverMemory, "":
		store = cache.NewMemory()
	default:
		return nil, fmt.Errorf("unknown cache driver %q", cfg.Driver)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := store.Ping(pingCtx); err != nil {
		store.Close()
		return nil, err
	}
	return store, nil
}

// initLogger 根据配置初始化 slog logger
func initLogger(cfg shared.LogConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}

	var h slog.Handler
	if strings.ToLower(cfg.Format) == "json" {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(h)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
