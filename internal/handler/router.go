package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-merit/internal/middleware"
)

// Handlers groups every HTTP handler mounted by RegisterRoutes.
type Handlers struct {
	Auth    *AuthHandler
	Records *RecordHandler
	Backups *BackupHandler
	Exports *ExportHandler
	Metrics *MetricsHandler
}

// RegisterRoutes mounts the API under prefix. Everything except login, change-password
// and export downloads requires a bearer token.
func RegisterRoutes(r *gin.Engine, prefix string, h Handlers, tokens middleware.TokenValidator) {
	r.GET("/health", h.Metrics.Health)
	r.GET("/ready", h.Metrics.Ready)
	r.GET("/metrics", h.Metrics.Prometheus)

	api := r.Group(prefix)
	api.POST("/auth/login", h.Auth.Login)
	api.POST("/auth/change-password", h.Auth.ChangePassword)
	api.GET("/exports/:token", h.Exports.Download)

	secured := api.Group("")
	secured.Use(middleware.JWT(tokens))
	secured.GET("/records", h.Records.List)
	secured.POST("/records", h.Records.Create)
	secured.GET("/records/:id", h.Records.Get)
	secured.PUT("/records/:id", h.Records.Update)
	secured.DELETE("/records/:id", h.Records.Delete)
	secured.GET("/students/:studentId/records", h.Records.StudentRecords)
	secured.GET("/summaries", h.Records.Summaries)

	secured.POST("/maintenance/reset", h.Backups.Reset)
	secured.GET("/backups", h.Backups.List)
	secured.POST("/backups/:name/restore", h.Backups.Restore)

	secured.POST("/exports", h.Exports.Create)
	secured.GET("/system/metrics", h.Metrics.Snapshot)
}
