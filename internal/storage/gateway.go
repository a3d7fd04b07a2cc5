// Package storage defines the Persistence Gateway the scoring engine reads
// signals from and writes training artifacts to.
package storage

import (
	"context"
	"fmt"
	"strconv"
	"time"
)

// Gateway executes parameterized statements. Implementations are shared,
// stateless clients; no transaction spans more than one call.
type Gateway interface {
	Query(ctx context.Context, statement string, args ...any) ([]Row, error)
	Exec(ctx context.Context, statement string, args ...any) error
}

// Row is one result row keyed by column name.
type Row map[string]any

func (r Row) String(col string) string {
	switch v := r[col].(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	default:
		return fmt.Sprint(v)
	}
}

func (r Row) Int(col string) int64 {
	switch v := r[col].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	case []byte:
		n, _ := strconv.ParseInt(string(v), 10, 64)
		return n
	case string:
		n, _ := strconv.ParseInt(v, 10, 64)
		return n
	case bool:
		if v {
			return 1
		}
	}
	return 0
}

func (r Row) Float(col string) float64 {
	switch v := r[col].(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	case int:
		return float64(v)
	case []byte:
		f, _ := strconv.ParseFloat(string(v), 64)
		return f
	case string:
		f, _ := strconv.ParseFloat(v, 64)
		return f
	}
	return 0
}

// Time reads a unix-seconds column.
func (r Row) Time(col string) time.Time {
	if v, ok := r[col].(time.Time); ok {
		return v
	}
	sec := r.Int(col)
	if sec == 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0)
}

func (r Row) IsNull(col string) bool {
	v, ok := r[col]
	return !ok || v == nil
}
