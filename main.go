package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"lesson-shop/internal/config"
	"lesson-shop/internal/handlers"
	"lesson-shop/internal/kafka"
	"lesson-shop/internal/logger"
	"lesson-shop/internal/metrics"
	"lesson-shop/internal/middleware"
	rediswrap "lesson-shop/internal/redis"
	"lesson-shop/internal/services"
	"lesson-shop/internal/storage"
)

// Global logger instance
var log *logger.Logger

type routes struct {
	lessons  *handlers.LessonHandler
	orders   *handlers.OrderHandler
	images   *handlers.ImageHandler
	health   *handlers.HealthHandler
	registry *prometheus.Registry
}

func main() {
	log = logger.NewLogger()
	defer log.Close()

	if err := godotenv.Load(); err != nil {
		log.Warn("ENV", "Error loading .env file, using environment variables")
	}

	propertiesFile := os.Getenv("CONFIG_FILE")
	if propertiesFile == "" {
		propertiesFile = "conf/db.properties"
	}
	if err := config.LoadProperties(propertiesFile); err != nil {
		log.Warn("CONFIG", err.Error())
	}

	log.LogProcess("STARTUP", "Lesson shop starting up...")

	cfg := config.Load()
	log.Info("CONFIG", "Configuration loaded successfully")

	log.LogProcess("DATABASE", fmt.Sprintf("Initializing %s store...", cfg.Database.Driver))
	store, err := openStore(context.Background(), cfg)
	if err != nil {
		log.Fatal("DATABASE", "Failed to initialize store: "+err.Error())
	}
	defer store.Close()

	log.LogProcess("KAFKA", "Initializing Kafka producer...")
	producer, err := kafka.NewProducer(cfg.Kafka.Brokers, !cfg.Kafka.Enabled(), log)
	if err != nil {
		log.Fatal("KAFKA", "Failed to create Kafka producer: "+err.Error())
	}
	defer producer.Close()

	var lock services.OrderLock
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		r := rediswrap.NewRedis(client, cfg.Redis.LockTTL)
		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := r.Ping(pingCtx)
		cancel()
		if err != nil {
			log.Fatal("REDIS", "Failed to connect to Redis: "+err.Error())
		}
		defer r.Close()
		lock = r
		log.LogProcess("REDIS", "Redis order lock enabled at "+cfg.Redis.Addr)
	} else {
		log.Warn("REDIS", "REDIS_ADDR not set, idempotency keys are ignored")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	orderMetrics := metrics.NewOrderMetrics(registry)

	lessonService := services.NewLessonService(store, log)
	orderService := services.NewOrderService(store, producer, lock, orderMetrics,
		services.RetryConfigFrom(cfg.Order), cfg.Order.LookupConcurrency, log)
	log.LogProcess("SERVICE", "Lesson and order services initialized")

	router := setupRouter(cfg, routes{
		lessons:  handlers.NewLessonHandler(lessonService),
		orders:   handlers.NewOrderHandler(orderService),
		images:   handlers.NewImageHandler(cfg.Server.ImageDir),
		health:   handlers.NewHealthHandler(store),
		registry: registry,
	})
	log.LogProcess("ROUTER", "HTTP router configured")

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.LogProcess("SERVER", "Starting HTTP server on "+srv.Addr)
		log.Info("STARTUP", "Health check available at: http://localhost"+srv.Addr+"/health")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("SERVER", "Server failed to start: "+err.Error())
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Warn("SHUTDOWN", "Received shutdown signal, initiating graceful shutdown...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("SHUTDOWN", "Server forced to shutdown: "+err.Error())
		return
	}

	if producer.MockMode() {
		log.Info("KAFKA", fmt.Sprintf("%d events were held in memory and not sent", len(producer.Published())))
	}
	log.Info("SHUTDOWN", "Lesson shop shutdown completed successfully")
}

func openStore(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	switch cfg.Database.Driver {
	case config.DriverMongo:
		s, err := storage.NewMongoStore(ctx, cfg.Database, log)
		if err != nil {
			return nil, err
		}
		if err := s.EnsureIndexes(ctx); err != nil {
			log.Warn("DATABASE", "Failed to ensure indexes: "+err.Error())
		}
		return s, nil
	case config.DriverMySQL:
		s, err := storage.NewMySQLStore(cfg.MySQL, log)
		if err != nil {
			return nil, err
		}
		if err := s.InitTables(ctx); err != nil {
			s.Close()
			return nil, err
		}
		return s, nil
	case config.DriverMemory:
		log.Warn("DATABASE", "Using in-memory store, data is lost on restart")
		return storage.NewInMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.Database.Driver)
	}
}

func setupRouter(cfg *config.Config, h routes) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.RedirectTrailingSlash = false
	_ = router.SetTrustedProxies(nil)

	router.Use(middleware.RequestID())
	router.Use(middleware.EnhancedLogger(log))
	router.Use(middleware.Recovery(log))
	router.Use(middleware.SecurityHeaders(log))
	router.Use(middleware.CORS())
	router.Use(middleware.RateLimit(cfg.RateLimit, log))

	router.GET("/health", h.health.Health)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(h.registry, promhttp.HandlerOpts{})))

	for _, p := range []string{"/lessons", "/lessons/"} {
		router.GET(p, h.lessons.ListLessons)
	}
	router.GET("/lessons/:id", h.lessons.GetLesson)
	router.POST("/lessons", h.lessons.CreateLesson)
	router.PUT("/lessons/:id", h.lessons.UpdateLesson)
	router.DELETE("/lessons/:id", h.lessons.DeleteLesson)

	for _, p := range []string{"/search", "/search/"} {
		router.GET(p, h.lessons.SearchLessons)
	}

	for _, p := range []string{"/order", "/order/"} {
		router.POST(p, h.orders.PlaceLegacyOrder)
	}
	for _, p := range []string{"/orders", "/orders/"} {
		router.POST(p, h.orders.PlaceOrder)
		router.GET(p, h.orders.ListOrders)
	}
	router.GET("/orders/:id", h.orders.GetOrder)

	router.GET("/images/*filepath", h.images.ServeImage)

	log.LogProcess("ROUTER", "All routes registered successfully")
	return router
}
