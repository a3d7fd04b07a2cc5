package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/legaldesk/insights/internal/engine"
	"github.com/legaldesk/insights/pkg/logger"
)

type SuggestionsHandler struct {
	engine *engine.Engine
}

func NewSuggestionsHandler(e *engine.Engine) *SuggestionsHandler {
	return &SuggestionsHandler{
		engine: e,
	}
}

func (h *SuggestionsHandler) GenerateSuggestions(c *fiber.Ctx) error {
	var req struct {
		Query  string `json:"query"`
		UserID string `json:"userId"`
		Limit  int    `json:"limit"`
	}

	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if sanitized, ok := c.Locals("sanitized_query").(string); ok {
		req.Query = sanitized
	}
	if req.Query == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Query is required",
		})
	}

	suggestions := h.engine.GenerateSearchSuggestions(c.Context(), req.Query, req.UserID, req.Limit)

	return c.JSON(fiber.Map{
		"query":       req.Query,
		"suggestions": suggestions,
	})
}
