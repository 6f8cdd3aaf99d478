package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vendalab/impact-backend/internal/services"
)

type PhaseHandler struct {
	phaseService services.PhaseService
}

func NewPhaseHandler(phaseService services.PhaseService) *PhaseHandler {
	return &PhaseHandler{phaseService: phaseService}
}

func (ph *PhaseHandler) Get(c *gin.Context) {
	state, err := ph.phaseService.Get(c.Request.Context())
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "internal", err)
		return
	}
	RespondOK(c, state)
}

func (ph *PhaseHandler) Transition(c *gin.Context) {
	var patch services.PhasePatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	state, err := ph.phaseService.Transition(c.Request.Context(), patch)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrForbidden):
			RespondError(c, http.StatusForbidden, "forbidden", err)
		case errors.Is(err, services.ErrPhaseConflict):
			RespondError(c, http.StatusConflict, "phase_conflict", err)
		case errors.Is(err, services.ErrInvalidTransition):
			RespondError(c, http.StatusUnprocessableEntity, "invalid_transition", err)
		default:
			RespondError(c, http.StatusBadRequest, "transition_failed", err)
		}
		return
	}
	RespondOK(c, state)
}

func (ph *PhaseHandler) Visibility(c *gin.Context) {
	v, err := ph.phaseService.Visibility(c.Request.Context(), time.Now().UTC())
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "internal", err)
		return
	}
	RespondOK(c, v)
}
