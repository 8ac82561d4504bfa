package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"pdfchat/internal/app"
	"pdfchat/internal/transport/http/middleware"
	"pdfchat/internal/transport/http/response"
)

type QueryHandler struct {
	querySvc       *app.QueryService
	requestTimeout time.Duration
}

type QueryRequest struct {
	Question            string            `json:"question" binding:"required"`
	TopK                *int              `json:"top_k"`
	ConversationHistory []app.HistoryTurn `json:"conversation_history"`
}

func NewQueryHandler(querySvc *app.QueryService, requestTimeout time.Duration) *QueryHandler {
	if requestTimeout <= 0 {
		requestTimeout = 120 * time.Second
	}
	return &QueryHandler{querySvc: querySvc, requestTimeout: requestTimeout}
}

func (h *QueryHandler) Ask(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	var req QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Failure(c, http.StatusBadRequest, response.CodeBadRequest, app.KindInvalidRequest, "invalid request payload")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.requestTimeout)
	defer cancel()

	result, err := h.querySvc.Ask(ctx, app.AskInput{
		UserID:   userID,
		Question: req.Question,
		TopK:     req.TopK,
		History:  req.ConversationHistory,
	})
	if err != nil {
		kind := app.FailureKind(err)
		if errors.Is(err, app.ErrInvalidRequest) {
			response.Failure(c, http.StatusBadRequest, response.CodeBadRequest, kind, "invalid request")
			return
		}
		response.Failure(c, http.StatusInternalServerError, response.CodeInternalServer, kind, "query failed")
		return
	}

	response.OK(c, result)
}
