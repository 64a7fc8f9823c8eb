package suggest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/djkgamc/ExcelDataAnalyzer/internal/domain"
)

func testBatch() domain.SuggestionBatch {
	return domain.SuggestionBatch{
		Tag:    "batch-1",
		Period: "lunch",
		Items: []domain.SuggestionItem{
			{Tag: "item-1", Allergen: domain.AllergenGluten, Ingredient: "pasta"},
			{Tag: "item-2", Allergen: domain.AllergenDairy, Ingredient: "cheese"},
		},
	}
}

func avoidSet() domain.AllergenSet {
	return domain.MustAllergenSet("gluten", "dairy")
}

func chatReply(t *testing.T, content string) []byte {
	t.Helper()
	raw, err := json.Marshal(map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"content": content}},
		},
	})
	require.NoError(t, err)
	return raw
}

func newTestClient(t *testing.T, url string) *Client {
	t.Helper()
	c, err := NewClient(Config{
		APIKey:     "test-key",
		BaseURL:    url,
		MaxRetries: 3,
		RetryDelay: time.Millisecond,
	}, zap.NewNop().Sugar())
	require.NoError(t, err)
	return c
}

func TestSuggestMapsRepliesByTag(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		w.Write(chatReply(t, `{"meals":[{"tag":"item-1","original":"pasta","substitution":"rice pasta","reason":"gluten-free"}]}`))
	}))
	defer srv.Close()

	result, err := newTestClient(t, srv.URL).Suggest(context.Background(), testBatch(), avoidSet())
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())

	require.Contains(t, result.Suggestions, "item-1")
	assert.Equal(t, "rice pasta", result.Suggestions["item-1"].Replacement)
	assert.Equal(t, "gluten-free", result.Suggestions["item-1"].Rationale)
	assert.NotContains(t, result.Suggestions, "item-2", "items the model skipped stay unanswered")
}

func TestSuggestRecoversAfterTransientFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write(chatReply(t, `{"meals":[{"tag":"item-1","substitution":"rice pasta"}]}`))
	}))
	defer srv.Close()

	result, err := newTestClient(t, srv.URL).Suggest(context.Background(), testBatch(), avoidSet())
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
	assert.Contains(t, result.Suggestions, "item-1")
}

func TestSuggestGivesUpAfterMaxRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv.URL).Suggest(context.Background(), testBatch(), avoidSet())
	var unavailable *UnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.Equal(t, 3, unavailable.Attempts)
	assert.Equal(t, int32(3), calls.Load(), "exactly MaxRetries attempts, no more")
}

func TestSuggestUnauthorizedFailsFast(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv.URL).Suggest(context.Background(), testBatch(), avoidSet())
	require.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, int32(1), calls.Load(), "credential rejection is never retried")
}

func TestSuggestClientErrorDoesNotRetry(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv.URL).Suggest(context.Background(), testBatch(), avoidSet())
	require.Error(t, err)
	var unavailable *UnavailableError
	assert.False(t, errors.As(err, &unavailable))
	assert.Equal(t, int32(1), calls.Load())
}

func TestSuggestRetriesUnusablePayload(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write(chatReply(t, "sorry, I ate the json"))
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv.URL).Suggest(context.Background(), testBatch(), avoidSet())
	var unavailable *UnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.Equal(t, int32(3), calls.Load())
}

func TestSuggestExtractsWrappedJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(chatReply(t, "Sure, here you go:\n```json\n{\"meals\":[{\"tag\":\"item-2\",\"substitution\":\"dairy-free cheese\"}]}\n```\nEnjoy!"))
	}))
	defer srv.Close()

	result, err := newTestClient(t, srv.URL).Suggest(context.Background(), testBatch(), avoidSet())
	require.NoError(t, err)
	assert.Equal(t, "dairy-free cheese", result.Suggestions["item-2"].Replacement)
}

func TestSuggestFallsBackToOriginalText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(chatReply(t, `{"meals":[{"original":"  Pasta ","substitution":"rice pasta"}]}`))
	}))
	defer srv.Close()

	result, err := newTestClient(t, srv.URL).Suggest(context.Background(), testBatch(), avoidSet())
	require.NoError(t, err)
	assert.Equal(t, "rice pasta", result.Suggestions["item-1"].Replacement,
		"replies without tags match on normalized original text")
}

func TestSuggestDropsUnknownTags(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(chatReply(t, `{"meals":[{"tag":"ghost","original":"pizza","substitution":"rice pizza"},{"tag":"item-1","original":"pasta","substitution":"rice pasta"}]}`))
	}))
	defer srv.Close()

	result, err := newTestClient(t, srv.URL).Suggest(context.Background(), testBatch(), avoidSet())
	require.NoError(t, err)
	assert.Len(t, result.Suggestions, 1, "entries for tags that were never sent are dropped")
	assert.Contains(t, result.Suggestions, "item-1")
}

func TestSuggestDiscardsUselessSubstitutions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(chatReply(t, `{"meals":[{"tag":"item-1","original":"pasta","substitution":" Pasta "},{"tag":"item-2","original":"cheese","substitution":"  "}]}`))
	}))
	defer srv.Close()

	result, err := newTestClient(t, srv.URL).Suggest(context.Background(), testBatch(), avoidSet())
	require.NoError(t, err)
	assert.Empty(t, result.Suggestions,
		"blank substitutions and ones that repeat the ingredient leave the item unresolved")
}

func TestSuggestStopsRetryingWhenCancelled(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c, err := NewClient(Config{
		APIKey:     "test-key",
		BaseURL:    srv.URL,
		MaxRetries: 3,
		RetryDelay: time.Hour,
	}, zap.NewNop().Sugar())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, err = c.Suggest(ctx, testBatch(), avoidSet())
	require.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Second, "cancellation interrupts the retry delay")
	assert.Equal(t, int32(1), calls.Load())
}

func TestSuggestEmptyBatchSkipsUpstream(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	result, err := newTestClient(t, srv.URL).Suggest(context.Background(),
		domain.SuggestionBatch{Tag: "empty"}, avoidSet())
	require.NoError(t, err)
	assert.Empty(t, result.Suggestions)
	assert.Equal(t, int32(0), calls.Load())
}

func TestNewClientRequiresKey(t *testing.T) {
	_, err := NewClient(Config{}, zap.NewNop().Sugar())
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}
