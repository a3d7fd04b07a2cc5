package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/legaldesk/insights/internal/engine"
	"github.com/legaldesk/insights/internal/storage/models"
	"github.com/legaldesk/insights/pkg/logger"
)

type ModelHandler struct {
	engine *engine.Engine
	db     Pinger
}

// Pinger reports whether the Persistence Gateway is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

func NewModelHandler(e *engine.Engine, db Pinger) *ModelHandler {
	return &ModelHandler{
		engine: e,
		db:     db,
	}
}

func (h *ModelHandler) Train(c *fiber.Ctx) error {
	summary, err := h.engine.TrainModels(c.Context())
	if err != nil {
		logger.Error("Failed to train models", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to train models",
		})
	}

	return c.JSON(summary)
}

func (h *ModelHandler) Performance(c *fiber.Ctx) error {
	perf, err := h.engine.GetModelPerformance(c.Context())
	if err != nil {
		logger.Error("Failed to load model performance", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load model performance",
		})
	}

	return c.JSON(fiber.Map{
		"models": perf,
	})
}

func (h *ModelHandler) Weights(c *fiber.Ctx) error {
	modelType := c.Params("type")
	if !knownModel(modelType) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Unknown model type",
		})
	}

	weights, err := h.engine.GetModelWeights(c.Context(), modelType)
	if err != nil {
		logger.Error("Failed to load model weights", zap.String("model_type", modelType), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load model weights",
		})
	}

	return c.JSON(fiber.Map{
		"modelType": modelType,
		"weights":   weights,
	})
}

func (h *ModelHandler) Health(c *fiber.Ctx) error {
	if h.db != nil {
		if err := h.db.Ping(c.Context()); err != nil {
			logger.Warn("Health check failed", zap.Error(err))
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"status": "unhealthy",
				"time":   time.Now().Unix(),
			})
		}
	}

	return c.JSON(fiber.Map{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

func knownModel(modelType string) bool {
	switch modelType {
	case models.ModelSuggestion, models.ModelBehavior, models.ModelClassification,
		models.ModelRecommendation, models.ModelFraud:
		return true
	default:
		return false
	}
}
