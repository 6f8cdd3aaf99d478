package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vendalab/impact-backend/internal/requestdata"
	"github.com/vendalab/impact-backend/internal/services"
)

type ContentHandler struct {
	contentService services.ContentService
}

func NewContentHandler(contentService services.ContentService) *ContentHandler {
	return &ContentHandler{contentService: contentService}
}

func (ch *ContentHandler) GetOrGenerate(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	kind := c.Param("kind")
	force := c.Query("force") == "true"

	result, err := ch.contentService.GetOrGenerate(c.Request.Context(), rd.UserID, kind, force)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrUnknownContentKind):
			RespondError(c, http.StatusNotFound, "unknown_kind", err)
		case errors.Is(err, services.ErrGenerationFailed):
			// A structured error object so the client can show its own
			// message; never a bare 500.
			c.JSON(http.StatusBadGateway, gin.H{
				"success": false,
				"error": APIError{
					Message: "Não foi possível gerar suas projeções agora. Tente novamente em instantes.",
					Code:    "generation_failed",
				},
			})
		default:
			RespondError(c, http.StatusInternalServerError, "internal", err)
		}
		return
	}
	RespondOK(c, gin.H{
		"success": true,
		"cached":  result.Cached,
		"payload": result.Payload,
	})
}
