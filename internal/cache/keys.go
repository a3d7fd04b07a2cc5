package cache

import (
	"fmt"
	"time"
)

// Per-operation expiry. Fraud detection has no entry: it is never cached.
const (
	SuggestionsTTL     = 3600 * time.Second
	BehaviorTTL        = 1800 * time.Second
	ClassificationTTL  = 86400 * time.Second
	RecommendationsTTL = 3600 * time.Second
)

func SuggestionsKey(partialQuery, userID string) string {
	if userID == "" {
		userID = "anonymous"
	}
	return fmt.Sprintf("search_suggestions:%s:%s", partialQuery, userID)
}

func BehaviorKey(userID string) string {
	return "user_behavior_prediction:" + userID
}

func ClassificationKey(documentID string) string {
	return "document_classification:" + documentID
}

func RecommendationsKey(userID string) string {
	return "case_recommendations:" + userID
}
