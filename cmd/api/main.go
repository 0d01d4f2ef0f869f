// Package main はAPIサーバーのエントリーポイントです。
package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/yourusername/auth-forge/internal/api"
	"github.com/yourusername/auth-forge/internal/auth"
	"github.com/yourusername/auth-forge/internal/config"
	"github.com/yourusername/auth-forge/internal/notify"
	"github.com/yourusername/auth-forge/internal/users"
)

func main() {
	// 設定の読み込み
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Ginのモードを設定
	gin.SetMode(cfg.GinMode)

	// データベース接続。接続できない場合は縮退運転せずプロセスを終了します。
	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		log.Fatalf("Error connecting to the database: %v", err)
	}
	if err := users.RunMigrations(ctx, db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// 通知キューの初期化（QUEUE_REDIS_URL が空の場合は通知なしで起動）
	var notifyManager *notify.Manager
	var notifier auth.WelcomeNotifier
	if cfg.QueueRedisURL != "" {
		manager, err := setupNotify(cfg)
		if err != nil {
			log.Fatalf("Failed to set up notifications: %v", err)
		}
		manager.StartWorkers()
		notifyManager = manager
		notifier = manager
	} else {
		log.Printf("QUEUE_REDIS_URL is empty, welcome notifications disabled")
	}

	// 認証サービスとハンドラーの組み立て
	store := users.NewPostgresStore(db)
	service := auth.NewService(store, notifier, log.Default())
	authManager := auth.NewManager(service, log.Default())

	// Ginルーターの初期化（デフォルトミドルウェア: Logger, Recovery）
	router := gin.Default()

	// CORSミドルウェアの設定
	corsConfig := cors.DefaultConfig()
	// CORS許可オリジンを設定（カンマ区切りの文字列を配列に変換）
	origins := strings.Split(cfg.CORSAllowedOrigins, ",")
	corsConfig.AllowOrigins = origins
	corsConfig.AllowCredentials = true
	router.Use(cors.New(corsConfig))

	// ルーティングの設定
	setupRoutes(router, authManager, cfg)

	// サーバーの起動
	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		log.Printf("Starting API server on %s (mode: %s)", addr, cfg.GinMode)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// SIGINT/SIGTERM を受けたら HTTPサーバー → 通知ワーカー の順で停止します。
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Printf("Shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
	if notifyManager != nil {
		if err := notifyManager.Shutdown(shutdownCtx); err != nil {
			log.Printf("Notify manager shutdown error: %v", err)
		}
	}
}

// setupRoutes は API グループと静的ファイル配信の配線を行います。
func setupRoutes(router *gin.Engine, authManager *auth.Manager, cfg *config.Config) {
	apiGroup := router.Group("/api")
	{
		// 誰でも叩けるヘルスチェック。ストアには依存しません。
		apiGroup.GET("/healthCheck", api.HealthCheck)

		userRoutes := apiGroup.Group("/user")
		{
			userRoutes.POST("/register", authManager.Register)
			userRoutes.POST("/login", authManager.Login)
			userRoutes.POST("/logout", authManager.Logout)
		}
	}

	// ルート直下は静的ファイル（public/）を配信
	router.NoRoute(staticHandler(cfg.StaticDir))
}

// staticHandler は静的ファイル配信用のフォールバックハンドラーを返します。
func staticHandler(dir string) gin.HandlerFunc {
	fileServer := http.FileServer(http.Dir(dir))
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
			c.JSON(http.StatusNotFound, api.NewError(http.StatusNotFound, "Not found"))
			return
		}
		fileServer.ServeHTTP(c.Writer, c.Request)
	}
}
