package main

import (
	"database/sql"
	"net/http"

	"kainindo-be/internal/catalog"
	"kainindo-be/internal/config"
	"kainindo-be/internal/db"
	"kainindo-be/internal/logger"
	"kainindo-be/internal/metrics"
	"kainindo-be/internal/middleware"
	"kainindo-be/internal/order"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Indirections so tests can run the startup path without a real
// database or a listening socket.
var (
	initDBFunc      = db.InitDB
	startServerFunc = func(addr string, handler http.Handler) error {
		return http.ListenAndServe(addr, handler)
	}
)

func main() {
	if err := run(); err != nil {
		logger.L().Fatal("server exited", zap.Error(err))
	}
}

func run() error {
	cfg := config.LoadConfig()

	logger.Init(cfg.AppEnv)
	defer logger.Sync()

	database := initDBFunc(cfg)
	defer database.Close()

	router := newServer(cfg, database)

	logger.L().Info("server listening", zap.String("port", cfg.AppPort))
	return startServerFunc(":"+cfg.AppPort, router)
}

// newServer wires repositories, services and the HTTP surface. Order
// mutations sit behind JWT admin checks, checkout and tracking are
// rate limited but public.
func newServer(cfg *config.Config, database *sql.DB) *gin.Engine {
	catalogRepo := catalog.NewRepository(database)
	orderRepo := order.NewRepository(database)
	orderSvc := order.NewService(orderRepo, catalogRepo, order.StatusPolicy{
		LockFinal: cfg.LockFinalStatuses,
	})
	orderHandler := order.NewHandler(orderSvc)

	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(
		gin.Recovery(),
		logger.RequestID(),
		logger.Logging(),
		metrics.Middleware(),
		middleware.Auth([]byte(cfg.JWTSecret)),
		middleware.RateLimit(),
	)

	router.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	api := router.Group("/api")
	orderHandler.RegisterRoutes(api, middleware.RequireAdmin())

	return router
}
