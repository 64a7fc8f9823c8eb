package suggest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/djkgamc/ExcelDataAnalyzer/internal/domain"
)

// CachedSuggester fronts another Suggester with a per-item redis
// cache. The same flagged ingredient shows up menu after menu, so a
// hit skips the upstream call entirely. Cache trouble is logged and
// ignored; the inner suggester always remains the source of truth.
type CachedSuggester struct {
	inner  Suggester
	rdb    *redis.Client
	ttl    time.Duration
	logger *zap.SugaredLogger
}

func NewCached(inner Suggester, rdb *redis.Client, ttl time.Duration, logger *zap.SugaredLogger) *CachedSuggester {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &CachedSuggester{inner: inner, rdb: rdb, ttl: ttl, logger: logger}
}

func (c *CachedSuggester) Suggest(ctx context.Context, batch domain.SuggestionBatch, avoid domain.AllergenSet) (*domain.SuggestionResult, error) {
	result := &domain.SuggestionResult{
		BatchTag:    batch.Tag,
		Suggestions: map[string]domain.Suggestion{},
	}

	var misses []domain.SuggestionItem
	for _, item := range batch.Items {
		cached, ok := c.lookup(ctx, item, avoid)
		if ok {
			result.Suggestions[item.Tag] = cached
			continue
		}
		misses = append(misses, item)
	}
	if len(misses) == 0 {
		return result, nil
	}

	fresh, err := c.inner.Suggest(ctx, domain.SuggestionBatch{
		Tag:    batch.Tag,
		Period: batch.Period,
		Items:  misses,
	}, avoid)
	if err != nil {
		return nil, err
	}

	for _, item := range misses {
		s, ok := fresh.Suggestions[item.Tag]
		if !ok {
			continue
		}
		result.Suggestions[item.Tag] = s
		c.store(ctx, item, avoid, s)
	}
	return result, nil
}

func (c *CachedSuggester) lookup(ctx context.Context, item domain.SuggestionItem, avoid domain.AllergenSet) (domain.Suggestion, bool) {
	raw, err := c.rdb.Get(ctx, cacheKey(item, avoid)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warnw("suggestion cache read failed", "error", err)
		}
		return domain.Suggestion{}, false
	}
	var s domain.Suggestion
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		c.logger.Warnw("suggestion cache entry corrupt", "key", cacheKey(item, avoid), "error", err)
		return domain.Suggestion{}, false
	}
	return s, true
}

func (c *CachedSuggester) store(ctx context.Context, item domain.SuggestionItem, avoid domain.AllergenSet, s domain.Suggestion) {
	raw, err := json.Marshal(s)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, cacheKey(item, avoid), raw, c.ttl).Err(); err != nil {
		c.logger.Warnw("suggestion cache write failed", "error", err)
	}
}

// cacheKey identifies a suggestion by ingredient, flagged allergen and
// the full avoid set. The avoid set is part of the key because a
// replacement valid for one selection may be unsafe for a wider one.
func cacheKey(item domain.SuggestionItem, avoid domain.AllergenSet) string {
	names := avoid.Strings()
	sort.Strings(names)
	return fmt.Sprintf("suggestion:%s:%s:%s",
		item.Allergen,
		domain.NormalizeIngredient(item.Ingredient),
		strings.Join(names, ","),
	)
}
