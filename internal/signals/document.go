package signals

import (
	"context"
	"fmt"
	"time"

	"github.com/legaldesk/insights/internal/storage"
)

// DocumentFeatureRow is a past classification with its stored feature JSON.
type DocumentFeatureRow struct {
	DocumentID string
	Category   string
	Confidence float64
	Features   string
}

type DocumentCollector struct {
	gw  storage.Gateway
	now Clock
}

func NewDocumentCollector(gw storage.Gateway, now Clock) *DocumentCollector {
	return &DocumentCollector{gw: gw, now: orDefault(now)}
}

func (c *DocumentCollector) FeatureRows(ctx context.Context, window time.Duration) ([]DocumentFeatureRow, error) {
	rows, err := c.gw.Query(ctx, `
		SELECT document_id, predicted_category, confidence, features
		FROM document_classifications
		WHERE created_at >= ?
		ORDER BY created_at DESC
	`, since(c.now, window))
	if err != nil {
		return nil, fmt.Errorf("failed to collect document features: %w", err)
	}

	out := make([]DocumentFeatureRow, 0, len(rows))
	for _, row := range rows {
		out = append(out, DocumentFeatureRow{
			DocumentID: row.String("document_id"),
			Category:   row.String("predicted_category"),
			Confidence: row.Float("confidence"),
			Features:   row.String("features"),
		})
	}
	return out, nil
}
