package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/legaldesk/insights/internal/cache/memory"
)

type failingStore struct {
	getErr, setErr error
	sets           int
}

func (f *failingStore) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, f.getErr
}

func (f *failingStore) Set(context.Context, string, []byte, time.Duration) error {
	f.sets++
	return f.setErr
}

type result struct {
	Value string `json:"value"`
}

func TestReadThrough_PopulatesThenHits(t *testing.T) {
	store := memory.NewStore(10)
	ctx := context.Background()
	calls := 0
	compute := func(context.Context) (result, error) {
		calls++
		return result{Value: "fresh"}, nil
	}

	first, err := ReadThrough(ctx, store, "op", "key", time.Minute, compute)
	require.NoError(t, err)
	second, err := ReadThrough(ctx, store, "op", "key", time.Minute, compute)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, calls)
}

func TestReadThrough_ComputeErrorNotCached(t *testing.T) {
	store := memory.NewStore(10)
	ctx := context.Background()
	errDB := errors.New("db down")

	_, err := ReadThrough(ctx, store, "op", "key", time.Minute, func(context.Context) (result, error) {
		return result{}, errDB
	})
	assert.ErrorIs(t, err, errDB)
	assert.Zero(t, store.Len())
}

func TestReadThrough_FailOpenOnStoreErrors(t *testing.T) {
	store := &failingStore{getErr: errors.New("get"), setErr: errors.New("set")}
	calls := 0

	got, err := ReadThrough(context.Background(), store, "op", "key", time.Minute, func(context.Context) (result, error) {
		calls++
		return result{Value: "fresh"}, nil
	})

	require.NoError(t, err)
	assert.Equal(t, "fresh", got.Value)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, store.sets)
}

func TestReadThrough_UndecodableEntryIsMiss(t *testing.T) {
	store := memory.NewStore(10)
	ctx := context.Background()
	require.NoError(t, store.Set(ctx, "key", []byte("not json"), time.Minute))

	got, err := ReadThrough(ctx, store, "op", "key", time.Minute, func(context.Context) (result, error) {
		return result{Value: "fresh"}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "fresh", got.Value)
}

func TestReadThrough_NilStore(t *testing.T) {
	calls := 0
	for i := 0; i < 2; i++ {
		_, err := ReadThrough[result](context.Background(), nil, "op", "key", time.Minute, func(context.Context) (result, error) {
			calls++
			return result{}, nil
		})
		require.NoError(t, err)
	}
	assert.Equal(t, 2, calls)
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "search_suggestions:contr:anonymous", SuggestionsKey("contr", ""))
	assert.Equal(t, "search_suggestions:contr:u-1", SuggestionsKey("contr", "u-1"))
	assert.Equal(t, "user_behavior_prediction:u-1", BehaviorKey("u-1"))
	assert.Equal(t, "document_classification:d-9", ClassificationKey("d-9"))
	assert.Equal(t, "case_recommendations:u-1", RecommendationsKey("u-1"))
	assert.Equal(t, time.Hour, SuggestionsTTL)
	assert.Equal(t, 30*time.Minute, BehaviorTTL)
	assert.Equal(t, 24*time.Hour, ClassificationTTL)
	assert.Equal(t, time.Hour, RecommendationsTTL)
}
