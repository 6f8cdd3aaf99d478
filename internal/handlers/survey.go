package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vendalab/impact-backend/internal/requestdata"
	"github.com/vendalab/impact-backend/internal/services"
)

type SurveyHandler struct {
	surveyService services.SurveyService
}

func NewSurveyHandler(surveyService services.SurveyService) *SurveyHandler {
	return &SurveyHandler{surveyService: surveyService}
}

func (sh *SurveyHandler) Submit(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())

	var req struct {
		Answers map[string]string `json:"answers"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	rows, err := sh.surveyService.SubmitResponses(c.Request.Context(), rd.UserID, req.Answers)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "survey_failed", err)
		return
	}
	RespondOK(c, gin.H{"responses": rows})
}

func (sh *SurveyHandler) List(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	rows, err := sh.surveyService.ListResponses(c.Request.Context(), rd.UserID)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "internal", err)
		return
	}
	RespondOK(c, gin.H{"responses": rows})
}

func (sh *SurveyHandler) LogInteraction(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())

	var req struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	row, err := sh.surveyService.LogInteraction(c.Request.Context(), rd.UserID, req.Role, req.Content)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "interaction_failed", err)
		return
	}
	RespondOK(c, row)
}

func (sh *SurveyHandler) RecentInteractions(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	rows, err := sh.surveyService.RecentInteractions(c.Request.Context(), rd.UserID)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "internal", err)
		return
	}
	RespondOK(c, gin.H{"interactions": rows})
}
