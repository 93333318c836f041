package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/khoslavarun/QuoteBuilder/api/swagger" // swagger docs
	"github.com/khoslavarun/QuoteBuilder/internal/cache"
	"github.com/khoslavarun/QuoteBuilder/internal/config"
	"github.com/khoslavarun/QuoteBuilder/internal/database"
	"github.com/khoslavarun/QuoteBuilder/internal/handler"
	"github.com/khoslavarun/QuoteBuilder/internal/logger"
	"github.com/khoslavarun/QuoteBuilder/internal/middleware"
	"github.com/khoslavarun/QuoteBuilder/internal/repository"
	"github.com/khoslavarun/QuoteBuilder/internal/service"
	"github.com/khoslavarun/QuoteBuilder/internal/telemetry"
	"github.com/khoslavarun/QuoteBuilder/internal/websocket"
)

// @title           QuoteBuilder API
// @version         1.0
// @description     Export quotation calculator: landed cost, financing and per-advance pricing scenarios.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, cfg.Otel)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			log.Warn("tracer shutdown", zap.Error(err))
		}
	}()

	db, err := database.NewConnection(cfg.DB, log)
	if err != nil {
		return err
	}
	defer func() { _ = database.Close(db) }()

	// Token revocations live in Redis when configured, in process otherwise.
	var store cache.Store = cache.NewMemoryStore()
	if cfg.Redis.Addr != "" {
		redisStore := cache.NewRedisStore(cfg.Redis)
		defer func() { _ = redisStore.Close() }()
		store = redisStore
		log.Info("token denylist backed by redis", zap.String("addr", cfg.Redis.Addr))
	} else {
		log.Warn("redis.addr is empty; token revocations are kept in memory")
	}
	denylist := cache.NewDenylist(store)

	// Set up WebSocket Hub
	wsHub := websocket.NewHub(log, cfg.Server.CORSOrigins)
	go wsHub.Run(ctx)

	secret := []byte(cfg.Auth.JWTSecret)
	auth := middleware.NewAuthenticator(secret, denylist, cfg.IsRelease(), log)
	issuer := middleware.NewTokenIssuer(secret, cfg.Auth.TokenTTL)
	tracer := telemetry.Tracer()

	// Set up dependencies (Repository -> Service -> Handler)
	txManager := repository.NewTransactionManager(db)
	userRepo := repository.NewUserRepository(db)
	productRepo := repository.NewProductRepository(db)
	runRepo := repository.NewRunRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	calcService := service.NewCalculationService(tracer, log)
	productService := service.NewProductService(productRepo, auditRepo, txManager, wsHub, log)
	runService := service.NewRunService(runRepo, productRepo, auditRepo, txManager, calcService, wsHub, tracer, log)
	userService := service.NewUserService(userRepo, auditRepo, txManager, log)
	authService := service.NewAuthService(userRepo, issuer, denylist, log)
	auditService := service.NewAuditService(auditRepo)

	if err := seed(ctx, cfg, log, userService, productService); err != nil {
		return err
	}

	// Set up Gin Router
	if cfg.IsRelease() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger(log))

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.Server.CORSOrigins
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.ExposeHeaders = []string{"Content-Disposition"}
	router.Use(cors.New(corsConfig))

	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// WebSocket endpoint
	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, c, func(ctx context.Context, token string) (string, error) {
			claims, err := auth.Verify(ctx, token)
			if err != nil {
				return "", err
			}
			return claims.Subject, nil
		})
	})

	// Register API Routes
	root := router.Group("")
	handler.NewHealthHandler(map[string]handler.Check{
		"database": database.Ping(db),
		"cache":    store.Ping,
	}, log).RegisterRoutes(root)
	handler.NewCalculationHandler(calcService, log).RegisterRoutes(root)
	handler.NewAuthHandler(authService, auth, log).RegisterRoutes(root)
	handler.NewUserHandler(userService, auth, log).RegisterRoutes(root)
	handler.NewProductHandler(productService, auth, log).RegisterRoutes(root)
	handler.NewHistoryHandler(runService, auth, log).RegisterRoutes(root)
	handler.NewAuditHandler(auditService, auth, log).RegisterRoutes(root)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("addr", srv.Addr), zap.String("env", cfg.App.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(sctx)
}

func seed(ctx context.Context, cfg config.Config, log *zap.Logger, users service.UserService, products service.ProductService) error {
	if _, err := users.EnsureAdmin(ctx, cfg.Auth.AdminEmail, cfg.Auth.AdminPassword); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	if cfg.Auth.AdminPassword == "" {
		log.Warn("auth.admin_password is empty; no admin account is seeded")
	}

	if !cfg.Catalog.SeedDemoProducts {
		return nil
	}
	n, err := products.SeedDemoProducts(ctx)
	if err != nil {
		return fmt.Errorf("seed products: %w", err)
	}
	if n > 0 {
		log.Info("seeded demo products", zap.Int("count", n))
	}
	return nil
}
