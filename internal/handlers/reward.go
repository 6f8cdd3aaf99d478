package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vendalab/impact-backend/internal/requestdata"
	"github.com/vendalab/impact-backend/internal/services"
)

type RewardHandler struct {
	rewardService services.RewardService
}

func NewRewardHandler(rewardService services.RewardService) *RewardHandler {
	return &RewardHandler{rewardService: rewardService}
}

func (rh *RewardHandler) Credit(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())

	var req services.CreditInput
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	result, err := rh.rewardService.Credit(c.Request.Context(), rd.UserID, req)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "credit_failed", err)
		return
	}
	RespondOK(c, result)
}

func (rh *RewardHandler) GetProgress(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	progress, err := rh.rewardService.GetProgress(c.Request.Context(), rd.UserID)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "internal", err)
		return
	}
	RespondOK(c, progress)
}

func (rh *RewardHandler) GetLedger(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	entries, err := rh.rewardService.GetLedger(c.Request.Context(), rd.UserID)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "internal", err)
		return
	}
	RespondOK(c, gin.H{"entries": entries})
}
