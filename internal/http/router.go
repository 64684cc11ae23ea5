// Package httpapi mounts the LevelUp routes on a Gin engine together with the
// middleware chain every request passes through.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/tbourn/levelup-backend/internal/config"
	"github.com/tbourn/levelup-backend/internal/domain"
	"github.com/tbourn/levelup-backend/internal/errs"
	"github.com/tbourn/levelup-backend/internal/http/handlers"
	"github.com/tbourn/levelup-backend/internal/http/middleware"
	"github.com/tbourn/levelup-backend/internal/repo"
	"github.com/tbourn/levelup-backend/internal/services"
)

// IdempotencyFinder looks up a completed request.
type IdempotencyFinder interface {
	Find(ctx context.Context, userID, scope, key string, now time.Time) (*domain.IdempotencyRecord, error)
}

// idempotencyLookup adapts the idempotency repository to the middleware's
// lookup contract. A missing or expired record is a miss, not an error.
func idempotencyLookup(store IdempotencyFinder) middleware.IdempotencyLookup {
	return func(ctx context.Context, userID, scope, key string, now time.Time) (string, bool, error) {
		rec, err := store.Find(ctx, userID, scope, key, now)
		if errors.Is(err, errs.ErrNotFound) {
			return "", false, nil
		}
		if err != nil {
			return "", false, err
		}
		return rec.ResourceID, true, nil
	}
}

// Headers browsers may send and read across origins.
var (
	corsAllowHeaders = []string{
		"Origin", "Content-Type", "Accept", "Authorization", "If-Match",
		middleware.HeaderIdempotencyKey,
		middleware.HeaderPrincipalID,
		middleware.HeaderPrincipalName,
		middleware.HeaderPrincipal,
	}
	corsExposeHeaders = []string{"X-Request-ID", "Content-Length", "ETag", "Location", handlers.HeaderReplay}
	corsMethods       = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
)

// RegisterRoutes installs the middleware chain, the ops endpoints and the
// versioned API under cfg.APIBasePath.
//
// Identity runs before the idempotency validator, which runs before the rate
// limiter so that replays are never throttled. Security headers come after
// Identity because the cache policy depends on the caller.
func RegisterRoutes(r *gin.Engine, repos *repo.Repositories, svc *services.Services, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	r.Use(middleware.RequestID())

	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		MaskHeaders: []string{"X-API-Key"},
		SkipPaths:   []string{"/health", "/metrics"},
	}))

	r.Use(middleware.Recovery())

	// 1 MiB
	r.Use(limitBody(1 << 20))

	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.Use(middleware.Identity())

	r.Use(middleware.IdempotencyValidator(
		middleware.IdempotencyOptions{MaxLen: 200},
		idempotencyLookup(repos.Idempotency),
	))

	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP())
	r.Use(rl.Handler())

	// No configured origins means any origin without credentials.
	if len(cfg.CORS.AllowedOrigins) == 0 {
		// ACAO is set even without an Origin header.
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     corsMethods,
			AllowHeaders:     corsAllowHeaders,
			ExposeHeaders:    corsExposeHeaders,
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	} else {
		allowed := make(map[string]struct{}, len(cfg.CORS.AllowedOrigins))
		for _, o := range cfg.CORS.AllowedOrigins {
			allowed[o] = struct{}{}
		}
		r.Use(func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     corsMethods,
			AllowHeaders:     corsAllowHeaders,
			ExposeHeaders:    corsExposeHeaders,
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:     cfg.Security.EnableHSTS,
		HSTSMaxAge:     cfg.Security.HSTSMaxAge,
		PrivateNoStore: true,
		EnablePolicy:   true,
	}))

	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "time": time.Now().UTC()})
	})

	h := handlers.New(handlers.FromServices(svc, repos.Idempotency), handlers.Options{
		IdempotencyTTL: cfg.IdempotencyTTL,
		ExposeErrors:   cfg.IsDevelopment(),
	})

	api := groupWithPrefix(r, cfg.APIBasePath)
	{
		// Identity and profiles
		api.GET("/auth/me", h.AuthMe)
		api.POST("/users", h.Register)
		api.GET("/users", h.SearchUsers)
		api.GET("/users/me", h.Me)
		api.PATCH("/users/me", h.UpdateMe)
		api.GET("/users/:id", h.GetUser)
		api.GET("/users/:id/stats", h.UserStats)
		api.GET("/users/:id/achievements", h.UserAchievements)
		api.GET("/users/:id/activities", h.UserActivities)
		api.GET("/users/:id/leaderboards", h.UserLeaderboards)
		api.GET("/stats/top", h.TopStats)
		api.GET("/achievements/definitions", h.BadgeDefinitions)

		// Squads
		api.POST("/squads", h.CreateSquad)
		api.GET("/squads", h.ListSquads)
		api.GET("/squads/top", h.TopSquads)
		api.GET("/squads/:id", h.GetSquad)
		api.GET("/squads/:id/members", h.SquadMembers)
		api.POST("/squads/:id/join", h.JoinSquad)

		// Leaderboards
		api.GET("/leaderboards", h.ListLeaderboards)
		api.GET("/leaderboards/definitions", h.LeaderboardDefinitions)
		api.GET("/leaderboards/:type", h.GetLeaderboard)
		api.GET("/leaderboards/:type/around-me", h.AroundMe)

		// Challenges, goals and the feed
		api.GET("/challenges", h.ListChallenges)
		api.GET("/challenges/today", h.TodaysChallenge)
		api.GET("/challenges/active", h.ActiveChallenges)
		api.GET("/challenges/:date", h.ChallengeByDate)
		api.GET("/community-goals", h.RecentGoals)
		api.GET("/community-goals/current", h.CurrentGoal)
		api.GET("/activities/feed", h.ActivityFeed)

		// Notifications
		api.GET("/notifications", h.ListNotifications)
		api.GET("/notifications/unread-count", h.UnreadCount)
		api.POST("/notifications/read-all", h.ReadAll)
		api.DELETE("/notifications/:id", h.DeleteNotification)

		// Maintenance
		admin := api.Group("/admin", h.RequireAdmin())
		admin.PUT("/leaderboards/:type", h.PublishLeaderboard)
		admin.POST("/notifications", h.SendNotification)
		admin.POST("/notifications/sweep", h.SweepNotifications)
	}
}

// limitBody caps request bodies at maxBytes; larger bodies fail on read.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix treats "" and "/" as the engine root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
