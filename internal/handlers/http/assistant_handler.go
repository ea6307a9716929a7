package http

import (
	"net/http"

	"parley/internal/core/domain"
	"parley/internal/core/ports"
	apperrors "parley/pkg/errors"

	"github.com/gin-gonic/gin"
)

// AssistantHandler answers in-call questions through the configured language
// model. It is stateless: the client carries its own conversation history.
type AssistantHandler struct {
	assistantService ports.AssistantService
}

func NewAssistantHandler(assistantService ports.AssistantService) *AssistantHandler {
	return &AssistantHandler{assistantService: assistantService}
}

func (h *AssistantHandler) SetupRoutes(router *gin.Engine) {
	api := router.Group("/api/v1")
	{
		api.POST("/assistant/chat", h.Chat)
	}
}

func (h *AssistantHandler) Chat(c *gin.Context) {
	var req struct {
		Question string               `json:"question" binding:"required,max=4000"`
		History  []domain.ChatMessage `json:"history"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperrors.NewInvalidInputError(err.Error()))
		return
	}

	if len(req.History) > 50 {
		c.Error(apperrors.NewInvalidInputError("history too long"))
		return
	}

	answer, err := h.assistantService.Ask(c.Request.Context(), req.Question, req.History)
	if err != nil {
		c.Error(apperrors.WrapError(err, apperrors.ErrCodeServiceUnavailable, "assistant unavailable", http.StatusServiceUnavailable))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"answer": answer,
	})
}
