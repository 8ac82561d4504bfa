package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"pdfchat/internal/app"
	"pdfchat/internal/transport/http/middleware"
	"pdfchat/internal/transport/http/response"
)

type HistoryHandler struct {
	querySvc *app.QueryService
}

func NewHistoryHandler(querySvc *app.QueryService) *HistoryHandler {
	return &HistoryHandler{querySvc: querySvc}
}

// Get returns the caller's conversation turns, oldest first. History is
// always scoped to the authenticated user.
func (h *HistoryHandler) Get(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	turns, err := h.querySvc.History(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, app.ErrInvalidRequest) {
			response.Failure(c, http.StatusBadRequest, response.CodeBadRequest, app.FailureKind(err), "invalid request")
			return
		}
		response.Failure(c, http.StatusInternalServerError, response.CodeInternalServer, app.FailureKind(err), "fetch history failed")
		return
	}

	response.OK(c, gin.H{
		"user_id": userID,
		"turns":   turns,
		"count":   len(turns),
	})
}

// Delete removes the caller's whole history.
func (h *HistoryHandler) Delete(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	deleted, err := h.querySvc.ClearHistory(c.Request.Context(), userID)
	if err != nil {
		response.Failure(c, http.StatusInternalServerError, response.CodeInternalServer, app.FailureKind(err), "delete history failed")
		return
	}

	response.OK(c, gin.H{
		"user_id":       userID,
		"deleted_count": deleted,
	})
}
