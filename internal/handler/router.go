package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/fajarsembar01/home/internal/config"
)

// BuildInfo is reported by /health and /version
type BuildInfo struct {
	Version   string `json:"version"`
	BuildTime string `json:"build_time"`
	GitCommit string `json:"git_commit"`
}

// Pinger checks a backing store for /health
type Pinger interface {
	Ping(ctx context.Context) error
}

// RouterDeps wires the HTTP layer
type RouterDeps struct {
	Listings  Listings
	Assistant Asker // nil answers /ask with 503
	Users     UserStore
	DB        Pinger
	Limiter   RateCounter // nil disables rate limiting
	RateLimit int
	Server    config.ServerConfig
	Build     BuildInfo
	Logger    *slog.Logger
}

// NewRouter builds the gin engine with every API route registered.
func NewRouter(d RouterDeps) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), RequestID(), RequestLogger(d.Logger))

	corsConfig := cors.DefaultConfig()
	if origins := splitList(d.Server.AllowedOrigins); len(origins) == 0 || origins[0] == "*" {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = origins
	}
	if methods := splitList(d.Server.AllowedMethods); len(methods) > 0 {
		corsConfig.AllowMethods = methods
	}
	if headers := splitList(d.Server.AllowedHeaders); len(headers) > 0 {
		corsConfig.AllowHeaders = headers
	}
	corsConfig.ExposeHeaders = []string{HeaderRequestID}
	router.Use(cors.New(corsConfig))

	router.GET("/health", func(c *gin.Context) {
		status, code := "healthy", http.StatusOK
		if d.DB != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := d.DB.Ping(ctx); err != nil {
				d.Logger.Warn("health check: database unreachable", "error", err)
				status, code = "degraded", http.StatusServiceUnavailable
			}
		}
		c.JSON(code, gin.H{
			"status":     status,
			"service":    "propertibot",
			"version":    d.Build.Version,
			"build_time": d.Build.BuildTime,
			"git_commit": d.Build.GitCommit,
		})
	})

	router.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, d.Build)
	})

	h := NewListingHandler(d.Listings, d.Logger)
	ask := NewAskHandler(d.Assistant, d.Logger)
	limited := RateLimit(d.Limiter, d.RateLimit, d.Logger)

	apiV1 := router.Group("/api/v1", ResolveUser(d.Users, d.Logger))
	{
		// Model-backed endpoints
		apiV1.POST("/extract", limited, h.Extract)
		apiV1.POST("/search", limited, h.Search)
		apiV1.POST("/search/stream", limited, h.SearchStream)
		apiV1.POST("/search/parse", limited, h.ParseQuery)
		apiV1.POST("/listings", limited, h.Collect)
		apiV1.POST("/listings/import", limited, h.Import)
		apiV1.POST("/ask", limited, ask.Ask)

		apiV1.GET("/listings", h.List)
		apiV1.GET("/listings/by-location", h.ByLocation)
		apiV1.GET("/listings/:id", h.Get)
		apiV1.PATCH("/listings/:id", h.Update)
		apiV1.DELETE("/listings/:id", h.Delete)
		apiV1.GET("/listings/:id/summary", h.Summary)
		apiV1.POST("/listings/:id/images", h.AddImage)
		apiV1.GET("/listings/:id/images", h.ListImages)

		apiV1.GET("/locations/cities", h.Cities)
		apiV1.GET("/locations/districts", h.Districts)
		apiV1.GET("/stats", h.Stats)
	}

	router.NoRoute(func(c *gin.Context) {
		abortWithError(c, http.StatusNotFound, CodeNotFound, "route not found")
	})

	return router
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
