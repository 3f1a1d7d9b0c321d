package main

import (
	"log"
	"time"

	"cinesocial/internal/config"
	"cinesocial/internal/db"
	"cinesocial/internal/logging"
	"cinesocial/internal/middleware"
	"cinesocial/internal/router"
	"cinesocial/internal/services"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

// storage 按驱动选择的存储实现
type storage interface {
	services.Storage
	services.UserStore
	services.NotificationFeedStore
	services.MovieStore
}

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, finding env vars from system")
	}

	cfg := config.Load()
	logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	var store storage
	switch cfg.StoreDriver {
	case "memory":
		logging.Warn().Msg("using in-memory store, data is lost on restart")
		store = db.NewSeededMemoryStore()
	default:
		store = db.NewStore(db.Init(cfg.DatabaseURL, cfg.AutoMigrate))
	}

	discussion := services.NewDiscussionService(store, services.Options{
		MaxDepth:  cfg.MaxCommentDepth,
		ReplyCap:  cfg.ThreadReplyCap,
		CacheTTL:  cfg.ThreadCacheTTL,
		CacheSize: cfg.ThreadCacheSize,
	})

	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), logging.GinLogger())

	// Setup Sessions
	sessionStore := cookie.NewStore([]byte(cfg.SessionSecret))
	sessionStore.Options(sessions.Options{Path: "/", MaxAge: int((30 * 24 * time.Hour).Seconds()), HttpOnly: true})
	r.Use(sessions.Sessions("cinesocial_session", sessionStore))

	// Load Templates using Multitemplate to avoid collision and allow handler names
	r.HTMLRender = router.LoadTemplates(cfg.TemplatesDir)

	router.RegisterRoutes(r, router.Deps{
		Discussion:    discussion,
		Accounts:      services.NewAccountService(store),
		Notifications: services.NewNotificationService(store),
		Catalog:       services.NewCatalogService(store),
		Unread:        store,
		Tokens:        middleware.NewJWTManager(cfg.JWTSecret, cfg.JWTTTL),
		Limiter:       middleware.NewRateLimiter(cfg.WriteRatePerMinute),
	})

	logging.Info().
		Str("port", cfg.Port).
		Str("store", cfg.StoreDriver).
		Int("max_depth", cfg.MaxCommentDepth).
		Int("reply_cap", cfg.ThreadReplyCap).
		Msg("CineSocial server starting")
	if err := r.Run(":" + cfg.Port); err != nil {
		logging.Fatal().Err(err).Msg("server stopped")
	}
}
