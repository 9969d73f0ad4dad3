package api

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// registerRoutes wires the handler's two endpoints plus a swagger UI route,
// matching the teacher's always-present docs route alongside its stats
// endpoint (internal/api/routes.go).
func registerRoutes(r *gin.Engine, h *Handler) {
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	r.GET("/healthz", h.Health)
	r.GET("/stats", h.Stats)
}
