package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fajarsembar01/home/internal/model"
	"github.com/fajarsembar01/home/internal/service"
)

// Asker answers general questions with the configured model
type Asker interface {
	Ask(ctx context.Context, question, contextText string) (string, error)
}

var _ Asker = (*service.Assistant)(nil)

// AskHandler handles the general question endpoint
type AskHandler struct {
	assistant Asker
	logger    *slog.Logger
}

// NewAskHandler creates a new ask handler. assistant may be nil.
func NewAskHandler(assistant Asker, logger *slog.Logger) *AskHandler {
	return &AskHandler{assistant: assistant, logger: logger}
}

// Ask handles POST /api/v1/ask
func (h *AskHandler) Ask(c *gin.Context) {
	var req model.AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request: "+err.Error())
		return
	}
	if h.assistant == nil {
		writeError(c, h.logger, service.ErrAssistantDisabled)
		return
	}

	start := time.Now()
	answer, err := h.assistant.Ask(c.Request.Context(), req.Question, req.Context)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, model.AskResponse{
		Answer: answer,
		Took:   time.Since(start).Milliseconds(),
	})
}
