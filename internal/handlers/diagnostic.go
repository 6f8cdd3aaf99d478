package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vendalab/impact-backend/internal/requestdata"
	"github.com/vendalab/impact-backend/internal/services"
)

type DiagnosticHandler struct {
	diagnosticService services.DiagnosticService
}

func NewDiagnosticHandler(diagnosticService services.DiagnosticService) *DiagnosticHandler {
	return &DiagnosticHandler{diagnosticService: diagnosticService}
}

func (dh *DiagnosticHandler) Upsert(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())

	var req struct {
		EventDay int                `json:"event_day"`
		Scores   map[string]float64 `json:"scores"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	entry, err := dh.diagnosticService.Upsert(c.Request.Context(), rd.UserID, req.EventDay, req.Scores)
	if err != nil {
		if errors.Is(err, services.ErrInvalidScores) {
			RespondError(c, http.StatusUnprocessableEntity, "invalid_scores", err)
			return
		}
		RespondError(c, http.StatusBadRequest, "diagnostic_failed", err)
		return
	}
	RespondOK(c, entry)
}

func (dh *DiagnosticHandler) List(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	entries, err := dh.diagnosticService.GetForUser(c.Request.Context(), rd.UserID)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "internal", err)
		return
	}
	RespondOK(c, gin.H{"entries": entries})
}

func (dh *DiagnosticHandler) Summary(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	summary, err := dh.diagnosticService.Summary(c.Request.Context(), rd.UserID)
	if err != nil {
		if errors.Is(err, services.ErrNoDiagnostic) {
			RespondError(c, http.StatusNotFound, "no_diagnostic", err)
			return
		}
		RespondError(c, http.StatusInternalServerError, "internal", err)
		return
	}
	RespondOK(c, summary)
}
