package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/vendalab/impact-backend/internal/repos"
	"github.com/vendalab/impact-backend/internal/requestdata"
	"github.com/vendalab/impact-backend/internal/services"
)

type UserHandler struct {
	userRepo      repos.UserRepo
	rewardService services.RewardService
}

func NewUserHandler(userRepo repos.UserRepo, rewardService services.RewardService) *UserHandler {
	return &UserHandler{userRepo: userRepo, rewardService: rewardService}
}

func (uh *UserHandler) GetMe(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", fmt.Errorf("no authenticated user"))
		return
	}
	users, err := uh.userRepo.GetByIDs(c.Request.Context(), nil, []uuid.UUID{rd.UserID})
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "internal", err)
		return
	}
	if len(users) == 0 {
		RespondError(c, http.StatusNotFound, "not_found", fmt.Errorf("user not found"))
		return
	}
	// Reads count as activity for the event dashboard.
	_ = uh.rewardService.TouchLastSeen(c.Request.Context(), rd.UserID)
	RespondOK(c, users[0])
}
