package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/legaldesk/insights/internal/engine"
	"github.com/legaldesk/insights/internal/scoring"
	"github.com/legaldesk/insights/pkg/logger"
)

type DocumentHandler struct {
	engine *engine.Engine
}

func NewDocumentHandler(e *engine.Engine) *DocumentHandler {
	return &DocumentHandler{
		engine: e,
	}
}

func (h *DocumentHandler) ClassifyDocument(c *fiber.Ctx) error {
	documentID := c.Params("id")

	var req struct {
		Content  string                   `json:"content"`
		Metadata scoring.DocumentMetadata `json:"metadata"`
	}

	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	classification, err := h.engine.ClassifyDocument(c.Context(), documentID, req.Content, req.Metadata)
	if err != nil {
		logger.Error("Failed to classify document", zap.String("document_id", documentID), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to classify document",
		})
	}

	return c.JSON(classification)
}
