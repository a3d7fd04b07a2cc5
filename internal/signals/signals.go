// Package signals holds the collectors that pull raw historical rows for each
// scoring model. Collectors do no scoring; they only shape rows into structs.
package signals

import (
	"strings"
	"time"
)

// Clock returns the current time. Collectors take one so windows are testable.
type Clock func() time.Time

func since(now Clock, window time.Duration) int64 {
	return now().Add(-window).Unix()
}

// likeContains builds a case-insensitive LIKE pattern matching text anywhere,
// with the LIKE wildcards in text escaped.
func likeContains(text string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.ToLower(text)) + "%"
}

func orDefault(now Clock) Clock {
	if now == nil {
		return time.Now
	}
	return now
}
