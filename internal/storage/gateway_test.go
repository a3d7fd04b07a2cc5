package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRow_Accessors(t *testing.T) {
	row := Row{
		"query":      []byte("contract review"),
		"frequency":  int64(7),
		"relevance":  0.75,
		"created_at": int64(1_700_000_000),
		"missing":    nil,
		"numeric":    "12",
	}

	assert.Equal(t, "contract review", row.String("query"))
	assert.Equal(t, int64(7), row.Int("frequency"))
	assert.Equal(t, 7.0, row.Float("frequency"))
	assert.Equal(t, 0.75, row.Float("relevance"))
	assert.Equal(t, time.Unix(1_700_000_000, 0), row.Time("created_at"))
	assert.Equal(t, int64(12), row.Int("numeric"))

	assert.Equal(t, "", row.String("missing"))
	assert.Zero(t, row.Int("missing"))
	assert.True(t, row.IsNull("missing"))
	assert.True(t, row.IsNull("absent"))
	assert.False(t, row.IsNull("query"))
	assert.True(t, row.Time("absent").IsZero())
}
