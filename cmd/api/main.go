package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"

	"github.com/clove/commerce-core/internal/async"
	"github.com/clove/commerce-core/internal/cache"
	"github.com/clove/commerce-core/internal/config"
	"github.com/clove/commerce-core/internal/events"
	"github.com/clove/commerce-core/internal/handler"
	"github.com/clove/commerce-core/internal/resolver"
	"github.com/clove/commerce-core/internal/seed"
	"github.com/clove/commerce-core/internal/service"
	"github.com/clove/commerce-core/internal/store"
	"github.com/clove/commerce-core/internal/store/memory"
	"github.com/clove/commerce-core/internal/store/postgres"
)

func main() {
	_ = godotenv.Load()

	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		log.Error("load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Store
	var st store.Store
	switch cfg.Store.Driver {
	case "postgres":
		poolCfg, err := pgxpool.ParseConfig(cfg.DB.DSN())
		if err != nil {
			log.Error("parse db config", "error", err)
			os.Exit(1)
		}
		poolCfg.MaxConns = cfg.DB.MaxConns

		dbPool, err := pgxpool.NewWithConfig(ctx, poolCfg)
		if err != nil {
			log.Error("connect to database", "error", err)
			os.Exit(1)
		}
		defer dbPool.Close()

		if err := dbPool.Ping(ctx); err != nil {
			log.Error("ping database", "error", err)
			os.Exit(1)
		}
		log.Info("connected to PostgreSQL")
		st = postgres.New(dbPool)
	case "memory":
		log.Info("using in-memory store")
		st = memory.New()
	default:
		log.Error("unknown store driver", "driver", cfg.Store.Driver)
		os.Exit(1)
	}

	// Cache
	var (
		qc          cache.Cache
		redisClient *redis.Client
	)
	switch cfg.Cache.Driver {
	case "redis":
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Cache.RedisAddr,
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
		})
		defer redisClient.Close()

		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Error("connect to Redis", "error", err)
			os.Exit(1)
		}
		log.Info("connected to Redis")
		qc = cache.NewRedis(redisClient, cfg.Cache.TTL)
	case "lru":
		qc = cache.NewLRU(cfg.Cache.Capacity, cfg.Cache.TTL)
	default:
		log.Error("unknown cache driver", "driver", cfg.Cache.Driver)
		os.Exit(1)
	}

	// Events
	pub := events.NewNop()
	var amqpConn *amqp.Connection
	if cfg.RabbitMQ.URL != "" {
		amqpConn, err = amqp.Dial(cfg.RabbitMQ.URL)
		if err != nil {
			log.Error("connect to RabbitMQ", "error", err)
			os.Exit(1)
		}
		defer amqpConn.Close()

		amqpCh, err := amqpConn.Channel()
		if err != nil {
			log.Error("open RabbitMQ channel", "error", err)
			os.Exit(1)
		}
		defer amqpCh.Close()

		pub, err = events.NewAMQP(amqpCh)
		if err != nil {
			log.Error("setup RabbitMQ", "error", err)
			os.Exit(1)
		}
		log.Info("connected to RabbitMQ")
	}

	// Bulk executor
	policy := async.Reject
	if cfg.Async.Policy == "block" {
		policy = async.Block
	}
	exec := async.New(async.Config{
		Workers:   cfg.Async.Workers,
		QueueSize: cfg.Async.QueueSize,
		Policy:    policy,
	})
	defer exec.Shutdown()

	if cfg.Seed.Enabled {
		if err := seed.Run(ctx, st, log); err != nil {
			log.Error("seed store", "error", err)
			os.Exit(1)
		}
	}

	// Services
	res := resolver.New(st)
	userSvc := service.NewUserService(st, res, qc, exec, log)
	productSvc := service.NewProductService(st, qc, exec, log)
	orderSvc := service.NewOrderService(st, res, qc, exec, pub, log)

	// Handlers
	userH := handler.NewUserHandler(userSvc, cfg.Async.AwaitTimeout)
	productH := handler.NewProductHandler(productSvc, cfg.Async.AwaitTimeout)
	orderH := handler.NewOrderHandler(orderSvc, cfg.Async.AwaitTimeout)
	healthH := handler.NewHealthHandler(st, redisClient, amqpConn)

	// Router
	router := gin.Default()
	router.GET("/healthz", healthH.Healthz)
	router.GET("/readyz", healthH.Readyz)

	v1 := router.Group("/api/v1")
	{
		users := v1.Group("/users")
		users.POST("", userH.Create)
		users.POST("/with-profile", userH.CreateWithProfile)
		users.GET("", userH.List)
		users.GET("/search", userH.Search)
		users.GET("/by-username", userH.ByUsername)
		users.GET("/by-email", userH.ByEmail)
		users.GET("/with-pending-orders", userH.WithPendingOrders)
		users.GET("/recent", userH.Recent)
		users.GET("/with-profiles", userH.WithProfiles)
		users.GET("/all-async", userH.AllAsync)
		users.GET("/:id", userH.GetByID)
		users.PUT("/:id", userH.Update)
		users.DELETE("/:id", userH.Delete)

		products := v1.Group("/products")
		products.POST("", productH.Create)
		products.POST("/with-images", productH.CreateWithImages)
		products.GET("", productH.List)
		products.GET("/search", productH.Search)
		products.GET("/category/:category", productH.ByCategory)
		products.GET("/price-range", productH.ByPriceRange)
		products.GET("/available", productH.Available)
		products.GET("/with-images", productH.WithImages)
		products.GET("/filter", productH.ByCategoryPriceStock)
		products.GET("/all-async", productH.AllAsync)
		products.GET("/:id", productH.GetByID)
		products.PUT("/:id", productH.Update)
		products.DELETE("/:id", productH.Delete)

		orders := v1.Group("/orders")
		orders.POST("", orderH.Create)
		orders.POST("/with-notes", orderH.CreateWithNotes)
		orders.GET("", orderH.List)
		orders.GET("/user/:userId", orderH.ByUser)
		orders.GET("/status/:status", orderH.ByStatus)
		orders.GET("/date-range", orderH.ByDateRange)
		orders.GET("/min-amount", orderH.ByMinAmount)
		orders.GET("/with-notes", orderH.WithNotes)
		orders.GET("/active", orderH.Active)
		orders.GET("/all-async", orderH.AllAsync)
		orders.GET("/:id", orderH.GetByID)
		orders.PUT("/:id", orderH.Update)
		orders.DELETE("/:id", orderH.Delete)
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info("starting HTTP server", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown", "error", err)
	}

	exec.Shutdown()
	cancel()
	log.Info("server stopped")
}
