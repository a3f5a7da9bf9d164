// ABOUTME: This file wires every handler onto the echo router
// ABOUTME: All routes live under /v1
package handler

import (
	"github.com/labstack/echo/v4"
)

// Handlers bundles the handler set for route registration.
type Handlers struct {
	Health   *HealthHandler
	Feed     *FeedHandler
	Article  *ArticleHandler
	Digest   *DigestHandler
	Provider *ProviderHandler
}

// RegisterRoutes mounts all API routes on e.
func RegisterRoutes(e *echo.Echo, h *Handlers) {
	v1 := e.Group("/v1")

	v1.GET("/health", h.Health.Health)
	v1.GET("/health/ready", h.Health.Ready)

	v1.POST("/feeds", h.Feed.Create)
	v1.GET("/feeds", h.Feed.List)
	v1.GET("/feeds/health", h.Feed.Health)
	v1.POST("/feeds/sync", h.Feed.SyncAll)
	v1.GET("/feeds/:id", h.Feed.Get)
	v1.PUT("/feeds/:id", h.Feed.Update)
	v1.DELETE("/feeds/:id", h.Feed.Delete)
	v1.POST("/feeds/:id/fetch", h.Feed.SyncOne)

	v1.GET("/articles", h.Article.List)

	v1.POST("/digests/generate", h.Digest.Generate)
	v1.GET("/digests", h.Digest.List)
	v1.GET("/digests/:id", h.Digest.Get)
	v1.PUT("/digests/:id/status", h.Digest.UpdateStatus)
	v1.DELETE("/digests/:id", h.Digest.Delete)

	v1.POST("/digest-rules", h.Digest.CreateRule)
	v1.GET("/digest-rules", h.Digest.ListRules)
	v1.GET("/digest-rules/:id", h.Digest.GetRule)
	v1.PUT("/digest-rules/:id", h.Digest.UpdateRule)
	v1.DELETE("/digest-rules/:id", h.Digest.DeleteRule)

	v1.POST("/providers", h.Provider.Create)
	v1.GET("/providers", h.Provider.List)
	v1.GET("/providers/:id", h.Provider.Get)
	v1.PUT("/providers/:id", h.Provider.Update)
	v1.DELETE("/providers/:id", h.Provider.Delete)
	v1.POST("/providers/:id/test", h.Provider.Test)
	v1.GET("/providers/:id/models", h.Provider.Models)
}
