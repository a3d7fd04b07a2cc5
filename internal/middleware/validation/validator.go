package validation

import (
	"regexp"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

var xssPattern = regexp.MustCompile(`(?i)(<script|<iframe|javascript:|onerror=|onload=|onclick=)`)

type Config struct {
	MaxQueryLength      int
	MaxSuggestionLimit  int
	MaxDocumentSize     int
	AllowedContentTypes []string
	Logger              *zap.Logger
}

// Middleware rejects malformed scoring requests before they reach a handler.
// Sanitized suggestion queries are left in Locals under "sanitized_query".
func Middleware(cfg Config) fiber.Handler {
	if cfg.MaxQueryLength == 0 {
		cfg.MaxQueryLength = 500
	}
	if cfg.MaxSuggestionLimit == 0 {
		cfg.MaxSuggestionLimit = 50
	}
	if cfg.MaxDocumentSize == 0 {
		cfg.MaxDocumentSize = 10 * 1024 * 1024
	}
	if len(cfg.AllowedContentTypes) == 0 {
		cfg.AllowedContentTypes = []string{"application/json"}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return func(c *fiber.Ctx) error {
		if c.Method() != fiber.MethodPost {
			return c.Next()
		}

		if contentType := c.Get(fiber.HeaderContentType); contentType != "" && !allowedType(contentType, cfg.AllowedContentTypes) {
			return c.Status(fiber.StatusUnsupportedMediaType).JSON(fiber.Map{
				"error": "Unsupported content type",
			})
		}

		path := c.Path()
		switch {
		case strings.HasSuffix(path, "/suggestions"):
			return validateSuggestions(c, cfg)
		case strings.HasSuffix(path, "/classify"):
			return validateClassify(c, cfg)
		case strings.HasSuffix(path, "/fraud-check"):
			return validateFraudCheck(c)
		}
		return c.Next()
	}
}

func validateSuggestions(c *fiber.Ctx, cfg Config) error {
	var req struct {
		Query string `json:"query"`
		Limit int    `json:"limit"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	query := sanitizeString(req.Query)
	if query == "" {
		return badRequest(c, "Query is required and must be a string")
	}
	if len(query) > cfg.MaxQueryLength {
		return badRequest(c, "Query exceeds maximum length")
	}
	if containsXSS(query) {
		cfg.Logger.Warn("Potential XSS attempt",
			zap.String("ip", c.IP()),
			zap.String("query", query),
		)
		return badRequest(c, "Invalid query content")
	}
	if req.Limit < 0 || req.Limit > cfg.MaxSuggestionLimit {
		return badRequest(c, "Limit is out of range")
	}

	c.Locals("sanitized_query", query)
	return c.Next()
}

func validateClassify(c *fiber.Ctx, cfg Config) error {
	var req struct {
		Content  *string `json:"content"`
		Metadata struct {
			FileSize int64 `json:"fileSize"`
		} `json:"metadata"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if req.Content == nil {
		return badRequest(c, "Content is required and must be a string")
	}
	if len(*req.Content) > cfg.MaxDocumentSize {
		return c.Status(fiber.StatusRequestEntityTooLarge).JSON(fiber.Map{
			"error": "Document content exceeds maximum size",
		})
	}
	if req.Metadata.FileSize < 0 {
		return badRequest(c, "File size must not be negative")
	}
	return c.Next()
}

func validateFraudCheck(c *fiber.Ctx) error {
	var req struct {
		Activity struct {
			Action string `json:"action"`
			Type   string `json:"type"`
		} `json:"activity"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}
	if req.Activity.Action == "" && req.Activity.Type == "" {
		return badRequest(c, "Activity action is required")
	}
	return c.Next()
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
}

func allowedType(contentType string, allowed []string) bool {
	for _, t := range allowed {
		if strings.Contains(contentType, t) {
			return true
		}
	}
	return false
}

func containsXSS(input string) bool {
	return xssPattern.MatchString(input)
}

func sanitizeString(input string) string {
	input = strings.TrimSpace(input)
	return strings.ReplaceAll(input, "\x00", "")
}
