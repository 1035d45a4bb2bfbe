package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-merit/internal/models"
	"github.com/noah-isme/sma-merit/pkg/response"
)

type backupService interface {
	Reset(ctx context.Context) (*models.ResetResult, error)
	List(ctx context.Context) ([]models.BackupInfo, error)
	Restore(ctx context.Context, name string) (*models.BackupInfo, error)
}

// BackupHandler serves reset and backup maintenance endpoints.
type BackupHandler struct {
	service backupService
}

// NewBackupHandler constructs the handler.
func NewBackupHandler(svc backupService) *BackupHandler {
	return &BackupHandler{service: svc}
}

// Reset godoc
// @Summary Reset all data
// @Description Writes a backup of every record, then deletes them all
// @Tags Maintenance
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /maintenance/reset [post]
func (h *BackupHandler) Reset(c *gin.Context) {
	result, err := h.service.Reset(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}

// List godoc
// @Summary List backups
// @Tags Maintenance
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /backups [get]
func (h *BackupHandler) List(c *gin.Context) {
	backups, err := h.service.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, backups, map[string]interface{}{"count": len(backups)})
}

// Restore godoc
// @Summary Restore a backup
// @Description Saves the current records as a safety backup, then replaces them with the named backup
// @Tags Maintenance
// @Produce json
// @Param name path string true "Backup file name"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /backups/{name}/restore [post]
func (h *BackupHandler) Restore(c *gin.Context) {
	info, err := h.service.Restore(c.Request.Context(), c.Param("name"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, info)
}
