package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/gin-gonic/gin"

	"go-supa-todo/backend/internal/config"
	"go-supa-todo/backend/internal/database"
	"go-supa-todo/backend/internal/logger"
	"go-supa-todo/backend/internal/repositories"
	"go-supa-todo/backend/internal/routes"
	"go-supa-todo/backend/internal/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Fatal: Failed to load configuration: %v", err)
	}

	logg := logger.New(cfg.LogLevel, cfg.LogFormat, os.Stdout)
	slog.SetDefault(logg)
	gin.SetMode(cfg.GinMode)

	ctx := context.Background()
	backend, err := openBackend(ctx, cfg, logg)
	if err != nil {
		logg.Error("Failed to open backend", "driver", cfg.DBDriver, "error", err)
		os.Exit(1)
	}

	verifier, err := newVerifier(cfg)
	if err != nil {
		logg.Error("Failed to configure token verification", "error", err)
		backend.Close()
		os.Exit(1)
	}

	todoService := services.NewTodoService(backend, cfg.Table, logg)
	r := routes.SetupRouter(routes.Deps{
		Config:   cfg,
		Todos:    todoService,
		Verifier: verifier,
		Log:      logg,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	serveErr := make(chan error, 1)
	go func() {
		logg.Info("Server listening", "port", cfg.Port, "driver", cfg.DBDriver, "auth_mode", cfg.AuthMode)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	var once sync.Once
	stop := func(ctx context.Context) error {
		var err error
		once.Do(func() {
			logg.Info("Graceful shutdown initiated...")
			err = srv.Shutdown(ctx)
			backend.Close()
		})
		return err
	}

	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		cfg.ShutdownTimeout,
		map[string]gfshutdown.Operation{
			"http-server": stop,
		},
	)

	exitCode := waitForExit(wait, serveErr, stop, cfg.ShutdownTimeout, logg)
	logg.Info("Application exited", "code", exitCode)
	os.Exit(exitCode)
}

// waitForExit はシグナルによる停止かサーバーの異常終了を待ち、終了コードを返します。
// サーバーが異常終了した場合も stop を通してバックエンドを閉じます。
func waitForExit(wait <-chan int, serveErr <-chan error, stop func(context.Context) error, timeout time.Duration, logg *slog.Logger) int {
	select {
	case code := <-wait:
		return code
	case err := <-serveErr:
		logg.Error("Server failed", "error", err)
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := stop(ctx); err != nil {
			logg.Error("Shutdown failed", "error", err)
		}
		return 1
	}
}

// openBackend は DB_DRIVER に応じたストレージバックエンドを開きます。
func openBackend(ctx context.Context, cfg *config.Config, logg *slog.Logger) (repositories.Backend, error) {
	switch cfg.DBDriver {
	case config.DriverPostgres:
		pool, err := database.OpenPostgres(ctx, cfg.DatabaseURL, cfg.MaxConns)
		if err != nil {
			return nil, err
		}
		logg.Info("Successfully connected to Postgres database")
		return repositories.NewPostgresBackend(pool, cfg.Table, logg), nil
	case config.DriverMySQL:
		db, err := database.OpenMySQL(ctx, cfg.MySQL.DSN(), cfg.MaxConns)
		if err != nil {
			return nil, err
		}
		logg.Info("Successfully connected to MySQL database")
		b, err := repositories.NewMySQLBackend(db, cfg.Table, logg)
		if err != nil {
			db.Close()
			return nil, err
		}
		return b, nil
	case config.DriverMemory:
		logg.Warn("Using in-memory backend, data is lost on restart")
		return repositories.NewMemoryBackend(), nil
	}
	return nil, errors.New("unsupported DB_DRIVER " + cfg.DBDriver)
}

// newVerifier は設定からトークン検証器を選びます。JWT シークレットがあればローカル検証を優先します。
func newVerifier(cfg *config.Config) (services.TokenVerifier, error) {
	if cfg.AuthMode == config.AuthOff {
		return nil, nil
	}
	if cfg.JWTSecret != "" {
		return services.NewJWTVerifier(cfg.JWTSecret)
	}
	return services.NewRemoteVerifier(cfg.SupabaseURL, cfg.SupabaseAnonKey, nil)
}
