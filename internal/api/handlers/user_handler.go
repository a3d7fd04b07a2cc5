package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/legaldesk/insights/internal/engine"
	"github.com/legaldesk/insights/internal/scoring"
	"github.com/legaldesk/insights/pkg/logger"
)

type UserHandler struct {
	engine *engine.Engine
}

func NewUserHandler(e *engine.Engine) *UserHandler {
	return &UserHandler{
		engine: e,
	}
}

func (h *UserHandler) PredictBehavior(c *fiber.Ctx) error {
	userID := c.Params("id")

	prediction, err := h.engine.PredictUserBehavior(c.Context(), userID)
	if err != nil {
		logger.Error("Failed to predict user behavior", zap.String("user_id", userID), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to predict user behavior",
		})
	}

	return c.JSON(prediction)
}

func (h *UserHandler) Recommendations(c *fiber.Ctx) error {
	userID := c.Params("id")
	limit := c.QueryInt("limit", 0)
	if limit < 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Limit must not be negative",
		})
	}

	recommendations := h.engine.GenerateCaseRecommendations(c.Context(), userID, limit)

	return c.JSON(fiber.Map{
		"userId":          userID,
		"recommendations": recommendations,
	})
}

func (h *UserHandler) FraudCheck(c *fiber.Ctx) error {
	userID := c.Params("id")

	var req struct {
		Activity scoring.ActivityPayload `json:"activity"`
	}
	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.Activity.Name() == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Activity action is required",
		})
	}

	assessment, err := h.engine.DetectFraud(c.Context(), userID, req.Activity)
	if err != nil {
		logger.Error("Failed to assess activity", zap.String("user_id", userID), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to assess activity",
		})
	}

	return c.JSON(assessment)
}
