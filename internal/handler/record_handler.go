package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-merit/internal/models"
	"github.com/noah-isme/sma-merit/internal/service"
	appErrors "github.com/noah-isme/sma-merit/pkg/errors"
	"github.com/noah-isme/sma-merit/pkg/response"
)

type recordService interface {
	List(ctx context.Context, term string) ([]models.Record, error)
	Get(ctx context.Context, id int64) (*models.Record, error)
	StudentRecords(ctx context.Context, studentID string) ([]models.Record, error)
	Summaries(ctx context.Context, term string) ([]models.Summary, error)
	Create(ctx context.Context, req models.CreateRecordRequest) (*models.Record, error)
	Update(ctx context.Context, id int64, req models.UpdateRecordRequest) (*models.Record, error)
	Delete(ctx context.Context, id int64) error
}

// RecordHandler exposes point records and student summaries.
type RecordHandler struct {
	service recordService
}

// NewRecordHandler constructs the handler.
func NewRecordHandler(svc recordService) *RecordHandler {
	return &RecordHandler{service: svc}
}

// List godoc
// @Summary List point records
// @Description Records ordered by date, newest first. q filters by student id, name or reason.
// @Tags Records
// @Produce json
// @Param q query string false "Search term"
// @Success 200 {object} response.Envelope
// @Router /records [get]
func (h *RecordHandler) List(c *gin.Context) {
	term := c.Query("q")
	records, err := h.service.List(c.Request.Context(), term)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, map[string]interface{}{"count": len(records), "q": term})
}

// Get godoc
// @Summary Get a point record
// @Tags Records
// @Produce json
// @Param id path int true "Record ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /records/{id} [get]
func (h *RecordHandler) Get(c *gin.Context) {
	id, err := service.ParseRecordID(c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	record, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record)
}

// StudentRecords godoc
// @Summary List records of one student
// @Tags Records
// @Produce json
// @Param studentId path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{studentId}/records [get]
func (h *RecordHandler) StudentRecords(c *gin.Context) {
	records, err := h.service.StudentRecords(c.Request.Context(), c.Param("studentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, map[string]interface{}{"count": len(records)})
}

// Summaries godoc
// @Summary Per-student point summaries
// @Description Aggregated merit, demerit, offset and total per student. q filters by student id or name.
// @Tags Summaries
// @Produce json
// @Param q query string false "Search term"
// @Success 200 {object} response.Envelope
// @Router /summaries [get]
func (h *RecordHandler) Summaries(c *gin.Context) {
	term := c.Query("q")
	summaries, err := h.service.Summaries(c.Request.Context(), term)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summaries, map[string]interface{}{"count": len(summaries), "q": term})
}

// Create godoc
// @Summary Add a point record
// @Tags Records
// @Accept json
// @Produce json
// @Param payload body models.CreateRecordRequest true "Record payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /records [post]
func (h *RecordHandler) Create(c *gin.Context) {
	var req models.CreateRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid record payload"))
		return
	}
	record, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, record)
}

// Update godoc
// @Summary Replace a point record
// @Tags Records
// @Accept json
// @Produce json
// @Param id path int true "Record ID"
// @Param payload body models.UpdateRecordRequest true "Record payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /records/{id} [put]
func (h *RecordHandler) Update(c *gin.Context) {
	id, err := service.ParseRecordID(c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	var req models.UpdateRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid record payload"))
		return
	}
	record, err := h.service.Update(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record)
}

// Delete godoc
// @Summary Delete a point record
// @Tags Records
// @Param id path int true "Record ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /records/{id} [delete]
func (h *RecordHandler) Delete(c *gin.Context) {
	id, err := service.ParseRecordID(c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
