// Package httpapi wires the HTTP transport (Gin) to the forum services,
// middleware and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, session resolution, logging/redaction, panic
// recovery, metrics, CORS, security headers, idempotency and rate limiting.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Resolve the session early so every later layer sees the actor
//   - Deterministic, minimal router setup; all dependencies injected
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	_ "github.com/tbourn/go-forum-backend/docs"
	"github.com/tbourn/go-forum-backend/internal/auth"
	"github.com/tbourn/go-forum-backend/internal/config"
	"github.com/tbourn/go-forum-backend/internal/events"
	"github.com/tbourn/go-forum-backend/internal/http/handlers"
	"github.com/tbourn/go-forum-backend/internal/http/middleware"
	"github.com/tbourn/go-forum-backend/internal/media"
	"github.com/tbourn/go-forum-backend/internal/repo"
	"github.com/tbourn/go-forum-backend/internal/services"
)

// Deps are the process-level collaborators the routes are built from.
type Deps struct {
	DB       *gorm.DB
	Hasher   *auth.PasswordHasher
	Sessions *auth.Manager
	Events   events.Publisher // nil discards events
	Media    media.Store      // nil disables avatar uploads
}

// postMessagePath is the only route that honors Idempotency-Key.
const postMessagePath = "/room/:id"

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. Session: resolve the actor (cookie or Bearer token)
//  4. Logger (debug) or RedactingLogger: structured logs tagged with the user
//  5. Recovery: capture panics after logger
//  6. Body size limiter
//  7. Metrics
//  8. Idempotency validator (before rate limiter to allow bypass on replay)
//  9. Rate limiter (per user/IP, bypass on replay)
//  10. CORS, security headers and gzip
func RegisterRoutes(r *gin.Engine, deps Deps, cfg config.Config) {
	r.HandleMethodNotAllowed = true
	db := deps.DB

	cookie := middleware.CookieOptions{
		Name:   cfg.Session.CookieName,
		Secure: cfg.Session.CookieSecure,
	}

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Who is asking
	var resolver middleware.SessionResolver
	if deps.Sessions != nil {
		resolver = deps.Sessions
	}
	r.Use(middleware.Session(resolver, cookie))

	// 4) Structured logging; PII is scrubbed outside local debugging
	if cfg.GinMode == gin.DebugMode {
		r.Use(middleware.Logger())
	} else {
		r.Use(middleware.RedactingLogger(middleware.RedactOptions{
			MaskHeaders: []string{middleware.HeaderIdempotencyKey},
		}))
	}

	// 5) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 6) Global body size limit; avatar uploads are the largest bodies
	r.Use(limitBody(cfg.MaxBodyBytes))

	// 7) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 8) Idempotency validation for message posts (before rate limiting)
	idem := middleware.IdempotencyValidator(
		middleware.IdempotencyOptions{MaxLen: 200},
		func(ctx context.Context, userID, roomID, key string, now time.Time) (bool, error) {
			_, err := repo.GetIdempotency(ctx, db, userID, roomID, key, now)
			if errors.Is(err, repo.ErrNotFound) {
				return false, nil
			}
			return err == nil, err
		},
	)
	r.Use(func(c *gin.Context) {
		if c.Request.Method == http.MethodPost && c.FullPath() == postMessagePath {
			idem(c)
			return
		}
		c.Next()
	})

	// 9) Token-bucket rate limiter per user/IP
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP())
	r.Use(rl.Handler())
	authRL := middleware.NewRateLimiter(cfg.AuthRateRPS, cfg.AuthRateBurst, middleware.KeyByIP())

	// 10) CORS posture
	r.Use(corsMiddleware(cfg.CORS.AllowedOrigins)...)

	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:      cfg.Security.EnableHSTS,
		HSTSMaxAge:      cfg.Security.HSTSMaxAge,
		PrivateForUsers: true,
		EnablePolicy:    true,
		CSP:             middleware.DefaultCSP,
	}))

	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness/health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// Locally stored avatars
	if _, ok := deps.Media.(*media.LocalStore); ok {
		r.Static(cfg.Media.URLPrefix, cfg.Media.Dir)
	}

	// Dependency injection: services <- db/publisher/store
	authSvc := services.NewAuthService(db, deps.Hasher, deps.Sessions, deps.Events)
	roomSvc := services.NewRoomService(db, deps.Events)
	msgSvc := services.NewMessageService(db, deps.Events)
	msgSvc.IdempotencyTTL = cfg.IdempotencyTTL
	browseSvc := services.NewBrowseService(db, cfg.SidebarTopics)
	userSvc := services.NewUserService(db, deps.Media)

	h := handlers.New(authSvc, roomSvc, msgSvc, browseSvc, userSvc, handlers.Options{
		Cookie:         cookie,
		AvatarMaxBytes: cfg.Media.AvatarMaxBytes,
		AllTopics: func(ctx context.Context) ([]repo.TopicWithCount, error) {
			return repo.ListTopics(ctx, db, 0)
		},
	})

	// Public pages
	r.GET("/", h.Home)
	r.GET("/topics", h.Topics)
	r.GET("/activity", h.Activity)
	r.GET("/profile/:id", h.Profile)
	r.GET("/room/:id", h.ViewRoom)
	r.GET("/logout", h.Logout)

	// Sign-in and sign-up
	anon := r.Group("", middleware.AnonymousOnly())
	{
		anon.GET("/login", h.LoginPage)
		anon.POST("/login", authRL.Handler(), h.Login)
		anon.GET("/register", h.RegisterPage)
		anon.POST("/register", authRL.Handler(), h.Register)
	}

	// Everything that changes state
	member := r.Group("", middleware.RequireLogin())
	{
		member.POST(postMessagePath, h.PostMessage)

		member.GET("/room/create", h.CreateRoomPage)
		member.POST("/room/create", h.CreateRoom)
		member.GET("/room/:id/update", h.UpdateRoomPage)
		member.POST("/room/:id/update", h.UpdateRoom)
		member.GET("/room/:id/delete", h.DeleteRoomPage)
		member.POST("/room/:id/delete", h.DeleteRoom)

		member.GET("/message/:id/delete", h.DeleteMessagePage)
		member.POST("/message/:id/delete", h.DeleteMessage)

		member.GET("/user/update", h.UpdateUserPage)
		member.POST("/user/update", h.UpdateUser)
	}
}

// corsMiddleware returns the CORS chain. Without an allowlist any origin may
// read public responses but credentials are never shared; with one, listed
// origins get credentialed access so the session cookie works cross-site.
func corsMiddleware(origins []string) []gin.HandlerFunc {
	methods := []string{"GET", "POST", "OPTIONS"}
	headers := []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.HeaderIdempotencyKey}
	expose := []string{"X-Request-ID", "Content-Length", "ETag", "Location"}

	if len(origins) == 0 {
		return []gin.HandlerFunc{
			func(c *gin.Context) {
				c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
				c.Next()
			},
			cors.New(cors.Config{
				AllowAllOrigins:  true,
				AllowMethods:     methods,
				AllowHeaders:     headers,
				ExposeHeaders:    expose,
				AllowCredentials: false, // must remain false with AllowAllOrigins
				MaxAge:           12 * time.Hour,
			}),
		}
	}

	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		allowed[o] = struct{}{}
	}
	return []gin.HandlerFunc{
		func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		},
		cors.New(cors.Config{
			AllowOrigins:     origins,
			AllowMethods:     methods,
			AllowHeaders:     headers,
			ExposeHeaders:    expose,
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}),
	}
}

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader. Requests exceeding the cap
// will cause downstream body reads to error.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
