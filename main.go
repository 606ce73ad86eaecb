package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/cineverse/cineverse/backend/go-services/handlers"
	"github.com/cineverse/cineverse/backend/go-services/internal/avatars"
	"github.com/cineverse/cineverse/backend/go-services/internal/clerk"
	"github.com/cineverse/cineverse/backend/go-services/internal/config"
	"github.com/cineverse/cineverse/backend/go-services/internal/database"
	"github.com/cineverse/cineverse/backend/go-services/internal/oidc"
	"github.com/cineverse/cineverse/backend/go-services/internal/users"
	"github.com/cineverse/cineverse/backend/go-services/internal/webhook"
	"github.com/cineverse/cineverse/backend/go-services/pkg/logger"
	"github.com/cineverse/cineverse/backend/go-services/pkg/metrics"
	"github.com/cineverse/cineverse/backend/go-services/pkg/middleware"
)

var startTime = time.Now()

func main() {
	// initialize logging (can be controlled with LOG_LEVEL env: debug|info|warn|error|fatal)
	logger.Init(os.Getenv("LOG_LEVEL"))

	cfg, err := config.LoadConfig()
	if err != nil {
		// includes the missing webhook signing secret: do not serve traffic
		logger.Fatalf("failed to load config: %v", err)
	}
	logger.Infof("config loaded: mongo=%v redis=%v clerk_key_set=%v", cfg.MongoDB.URI != "", cfg.Redis.Host != "", cfg.Clerk.SecretKey != "")

	verifier, err := webhook.NewVerifier(cfg.Webhook.SigningSecret, cfg.Webhook.Tolerance)
	if err != nil {
		logger.Fatalf("invalid webhook signing secret: %v", err)
	}

	r := gin.New()

	// Lightweight CORS middleware for dev/test: set common headers and respond to OPTIONS.
	// (Keep this intentionally simple — production should use a stricter policy.)
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Content-Length")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(200)
			return
		}
		c.Next()
	})

	// Global middlewares: logging + recovery
	r.Use(gin.Logger(), gin.Recovery())

	// Connect to Redis early so the rate-limiter can use it when configured
	var importedRedis *redis.Client
	if cfg.Redis.Host != "" {
		importedRedis = redis.NewClient(&redis.Options{Addr: cfg.Redis.Host + ":" + cfg.Redis.Port, Password: cfg.Redis.Password})
		if err := importedRedis.Ping(context.Background()).Err(); err == nil {
			logger.Infof("Connected to Redis for rate limiting: %s:%s", cfg.Redis.Host, cfg.Redis.Port)
		} else {
			logger.Warnf("failed to connect to Redis (%s:%s): %v", cfg.Redis.Host, cfg.Redis.Port, err)
			importedRedis = nil
		}
	}
	if cfg.RateLimit.Enabled {
		if cfg.RateLimit.UseRedis && importedRedis != nil {
			win := time.Duration(cfg.RateLimit.WindowSeconds) * time.Second
			r.Use(middleware.RedisRateLimitMiddleware(importedRedis, cfg.RateLimit.RPS, cfg.RateLimit.Burst, win))
		} else {
			r.Use(middleware.RateLimitMiddleware(cfg.RateLimit.RPS, cfg.RateLimit.Burst))
		}
	}

	// shared runtime vars used by handlers/readiness
	var userRepo users.Repository
	var userSvc *users.Service

	// Basic health endpoint
	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "healthy")
	})

	// readiness endpoint — return 200 only when critical dependencies are available
	r.GET("/ready", func(c *gin.Context) {
		ready := true
		deps := map[string]bool{}

		deps["store"] = userRepo != nil
		if userRepo == nil {
			ready = false
		}

		// Redis readiness only matters when the limiter depends on it
		if cfg.Redis.Host != "" && cfg.RateLimit.UseRedis {
			deps["redis"] = importedRedis != nil
			if !deps["redis"] {
				ready = false
			}
		} else {
			deps["redis"] = true
		}

		if !ready {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "deps": deps, "uptime": fmt.Sprintf("%s", time.Since(startTime))})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready", "deps": deps, "uptime": fmt.Sprintf("%s", time.Since(startTime))})
	})

	ctx := context.Background()

	// Connect to MongoDB for the user store. Retry/backoff tolerates startup races.
	if cfg.MongoDB.URI != "" {
		const maxAttempts = 5
		backoff := time.Second
		var client *mongo.Client
		var errConn error
		for attempt := 1; attempt <= maxAttempts; attempt++ {
			client, errConn = database.ConnectMongo(ctx, cfg.MongoDB)
			if errConn == nil {
				break
			}
			logger.Warnf("attempt %d/%d: failed to connect to MongoDB: %v", attempt, maxAttempts, errConn)
			if attempt < maxAttempts {
				time.Sleep(backoff)
				backoff *= 2
			}
		}
		if errConn != nil {
			logger.Warnf("could not connect to MongoDB after %d attempts: %v", maxAttempts, errConn)
		} else {
			defer func() { _ = client.Disconnect(ctx) }()
			userRepo = users.NewMongoRepository(database.UsersCollection(client, cfg.MongoDB))
		}
	}
	if userRepo == nil {
		if strings.EqualFold(cfg.Server.Environment, "development") {
			logger.Warnf("MongoDB unavailable, using in-memory user store (records are lost on restart)")
			userRepo = users.NewMemoryRepository()
		} else {
			logger.Fatalf("no user store available: set MONGODB_URI")
		}
	}
	userSvc = users.NewService(userRepo)

	// Metadata writeback to the identity provider after local creation
	var meta webhook.MetadataWriter
	if cfg.Clerk.SecretKey != "" {
		meta = clerk.NewClient(cfg.Clerk.APIURL, cfg.Clerk.SecretKey, cfg.Clerk.Timeout)
	} else {
		logger.Warnf("CLERK_SECRET_KEY not set; internal ids will not be written back to the provider")
	}

	// Optional avatar mirror (enabled when MINIO_ENDPOINT is set)
	var mirror webhook.AvatarMirror
	if mcfg := avatars.LoadMinIOConfig(); mcfg.Endpoint != "" {
		store, err := avatars.NewStore(mcfg)
		if err != nil {
			logger.Warnf("avatar mirror disabled: %v", err)
		} else {
			mirror = store
			logger.Infof("avatar mirror enabled (bucket=%s)", mcfg.Bucket)
		}
	}

	sync := webhook.NewSynchronizer(userRepo, meta, mirror)
	wh := handlers.NewWebhookHandler(verifier, sync)
	wh.Register(r.Group("/"))

	// Session-verified read API. Falls back to an insecure claims-only parser
	// for integration tests when explicitly allowed.
	var sessionVerifier middleware.Verifier
	if cfg.Clerk.FrontendAPI != "" {
		ver, err := oidc.NewVerifier(ctx, strings.TrimRight(cfg.Clerk.FrontendAPI, "/"))
		if err != nil {
			logger.Warnf("failed to initialize session verifier: %v", err)
		} else {
			sessionVerifier = ver
		}
	}
	if sessionVerifier == nil && strings.EqualFold(strings.TrimSpace(os.Getenv("ALLOW_INSECURE_TOKEN")), "true") {
		logger.Warn("enabling insecure session verifier (integration mode)")
		sessionVerifier = oidc.NewInsecureVerifier()
	}
	if sessionVerifier != nil {
		uh := handlers.NewUsersHandler(userSvc)
		uh.Register(r.Group("/"), sessionVerifier)
	} else {
		logger.Warnf("user read API not registered because no session verifier is available")
	}

	// Expose Prometheus metrics
	metrics.RegisterCollectors(prometheus.DefaultRegisterer)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	logger.Infof("Starting identity sync service on %s", addr)
	if err := r.Run(addr); err != nil {
		logger.Fatalf("server failed: %v", err)
	}
}
