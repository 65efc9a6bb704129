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

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/readme-readyou/readme-readyou/handlers"
	"github.com/readme-readyou/readme-readyou/internal/completion"
	"github.com/readme-readyou/readme-readyou/internal/config"
	"github.com/readme-readyou/readme-readyou/internal/database"
	"github.com/readme-readyou/readme-readyou/internal/github"
	"github.com/readme-readyou/readme-readyou/internal/lock"
	"github.com/readme-readyou/readme-readyou/internal/readme/handler"
	"github.com/readme-readyou/readme-readyou/internal/readme/repository"
	"github.com/readme-readyou/readme-readyou/internal/readme/service"
	"github.com/readme-readyou/readme-readyou/internal/render"
	"github.com/readme-readyou/readme-readyou/internal/storage"
	"github.com/readme-readyou/readme-readyou/pkg/logger"
	"github.com/readme-readyou/readme-readyou/pkg/metrics"
	"github.com/readme-readyou/readme-readyou/pkg/middleware"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
)

var startTime = time.Now()

func main() {
	// LOG_LEVEL: debug|info|warn|error|fatal
	logger.Init(os.Getenv("LOG_LEVEL"))
	defer logger.Sync()

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	logger.Init(cfg.LogLevel)
	logger.Infof("config loaded: mongo=%v redis=%v minio=%v github_token=%v",
		cfg.MongoDB.URI != "", cfg.Redis.Addr() != "", cfg.MinIO.Endpoint != "", cfg.GitHub.Token != "")

	ctx := context.Background()

	// README store: Mongo when configured, memory otherwise
	var store repository.Store
	var mongoClient *mongo.Client
	if cfg.MongoDB.URI != "" {
		mongoClient, err = database.ConnectWithRetry(ctx, cfg.MongoDB.URI, cfg.MongoDB.Timeout, 5)
		if err != nil {
			logger.Fatalf("could not connect to MongoDB: %v", err)
		}
		defer func() { _ = mongoClient.Disconnect(context.Background()) }()
		repo := repository.NewMongoRepo(mongoClient.Database(cfg.MongoDB.Database))
		ictx, cancel := context.WithTimeout(ctx, cfg.MongoDB.Timeout)
		if err := repo.EnsureIndexes(ictx); err != nil {
			logger.Warnf("failed to ensure indexes: %v", err)
		}
		cancel()
		store = repo
		logger.Infof("using MongoDB store %s", cfg.MongoDB.Database)
	} else {
		logger.Warnf("MONGODB_URI not set, READMEs are kept in memory only")
		store = repository.NewMemoryRepo()
	}

	// optional cross-replica generation lease
	var opts []service.Option
	var redisClient *redis.Client
	if addr := cfg.Redis.Addr(); addr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Warnf("failed to connect to Redis (%s), generation lease disabled: %v", addr, err)
			_ = redisClient.Close()
			redisClient = nil
		} else {
			opts = append(opts, service.WithLocker(lock.NewRedis(redisClient, "")))
			logger.Infof("generation lease enabled via Redis %s", addr)
		}
	}

	// optional snapshot cache for rendered cards
	var cards render.SnapshotCache
	if cfg.MinIO.Endpoint != "" {
		cc, err := storage.NewCardCache(ctx, cfg.MinIO)
		if err != nil {
			logger.Warnf("MinIO snapshot cache disabled: %v", err)
		} else {
			cards = cc
			logger.Infof("snapshot cache enabled in bucket %s", cfg.MinIO.Bucket)
		}
	}

	llm, err := completion.NewOpenAIClient(cfg.LLM)
	if err != nil {
		logger.Fatalf("failed to create completion client: %v", err)
	}
	svc := service.NewService(store, github.NewClient(cfg.GitHub), llm, cfg, opts...)
	renderer := render.NewRenderer(store, cards)

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery(), middleware.RequestID(), middleware.Metrics())

	// the browser UI and GitHub's image proxy call from other origins
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	})

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "healthy")
	})

	r.GET("/ready", func(c *gin.Context) {
		pctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		ready := true
		deps := map[string]bool{}
		if mongoClient != nil {
			deps["mongo"] = mongoClient.Ping(pctx, nil) == nil
			ready = ready && deps["mongo"]
		}
		if redisClient != nil {
			// the lease is an optimization; report it without failing readiness
			deps["redis"] = redisClient.Ping(pctx).Err() == nil
		}
		status, code := "ready", http.StatusOK
		if !ready {
			status, code = "not_ready", http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{"status": status, "deps": deps, "uptime": time.Since(startTime).String()})
	})

	handler.RegisterRoutes(r, svc, renderer, cfg.PublicBaseURL)
	handlers.RegisterSwagger(r)

	metrics.RegisterCollectors(prometheus.DefaultRegisterer)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		logger.Infof("starting readme-readyou on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Infof("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		logger.Errorf("graceful shutdown failed: %v", err)
	}
	if redisClient != nil {
		_ = redisClient.Close()
	}
}
