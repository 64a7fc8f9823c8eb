package suggest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/djkgamc/ExcelDataAnalyzer/internal/domain"
)

// Suggester produces replacements for flagged ingredients that no
// stored rule covered. Implementations must be safe for concurrent
// batches.
type Suggester interface {
	Suggest(ctx context.Context, batch domain.SuggestionBatch, avoid domain.AllergenSet) (*domain.SuggestionResult, error)
}

var (
	// ErrMissingAPIKey means the client was constructed without
	// credentials. Callers should treat it as fatal configuration.
	ErrMissingAPIKey = errors.New("suggestion api key is not configured")

	// ErrUnauthorized means the upstream rejected the configured
	// credentials. Retrying cannot help.
	ErrUnauthorized = errors.New("suggestion api rejected the configured credentials")
)

// UnavailableError reports that every retry attempt for a batch was
// exhausted. The menu conversion itself keeps going; the affected
// items surface as unresolved.
type UnavailableError struct {
	Attempts int
	Last     error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("suggestion service unavailable after %d attempts: %v", e.Attempts, e.Last)
}

func (e *UnavailableError) Unwrap() error { return e.Last }

type apiError struct {
	Status int
	Body   string
}

func (e *apiError) Error() string {
	body := e.Body
	if len(body) > 200 {
		body = body[:200]
	}
	return fmt.Sprintf("suggestion api returned %d: %s", e.Status, body)
}

type payloadError struct {
	reason string
}

func (e *payloadError) Error() string {
	return "unusable suggestion payload: " + e.reason
}

const (
	defaultBaseURL = "https://api.openai.com/v1"
	defaultModel   = "o4-mini"

	DefaultMaxRetries = 3
	DefaultRetryDelay = 2 * time.Second
)

type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	MaxRetries int
	RetryDelay time.Duration
	Timeout    time.Duration
}

// Client calls an OpenAI-compatible chat completion endpoint and maps
// its JSON reply back onto batch items.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *zap.SugaredLogger
}

func NewClient(cfg Config, logger *zap.SugaredLogger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = DefaultRetryDelay
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}, nil
}

// Suggest asks for replacements for every item in the batch. Transient
// failures are retried with a fixed delay; credential rejections abort
// immediately, and exhausted retries come back as *UnavailableError.
func (c *Client) Suggest(ctx context.Context, batch domain.SuggestionBatch, avoid domain.AllergenSet) (*domain.SuggestionResult, error) {
	if len(batch.Items) == 0 {
		return &domain.SuggestionResult{BatchTag: batch.Tag, Suggestions: map[string]domain.Suggestion{}}, nil
	}
	prompt := buildPrompt(batch, avoid)

	var last error
	for attempt := 1; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.cfg.RetryDelay):
			}
		}
		result, err := c.complete(ctx, prompt, batch)
		if err == nil {
			return result, nil
		}
		if !retryable(err) {
			return nil, err
		}
		last = err
		c.logger.Warnw("suggestion attempt failed",
			"batch", batch.Tag,
			"period", batch.Period,
			"attempt", attempt,
			"error", err,
		)
	}
	return nil, &UnavailableError{Attempts: c.cfg.MaxRetries, Last: last}
}

func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, ErrUnauthorized) {
		return false
	}
	var apiErr *apiError
	if errors.As(err, &apiErr) {
		return apiErr.Status == http.StatusTooManyRequests || apiErr.Status >= 500
	}
	// Everything else is transport trouble or an unusable payload,
	// both worth another attempt.
	return true
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type suggestionPayload struct {
	Meals []struct {
		Tag          string `json:"tag"`
		Original     string `json:"original"`
		Substitution string `json:"substitution"`
		Reason       string `json:"reason"`
	} `json:"meals"`
}

func (c *Client) complete(ctx context.Context, prompt userPrompt, batch domain.SuggestionBatch) (*domain.SuggestionResult, error) {
	body, err := json.Marshal(chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: prompt.system},
			{Role: "user", Content: prompt.user},
		},
		ResponseFormat: &responseFormat{Type: "json_object"},
	})
	if err != nil {
		return nil, fmt.Errorf("encoding suggestion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building suggestion request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling suggestion api: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("reading suggestion response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("status %d: %w", resp.StatusCode, ErrUnauthorized)
	case resp.StatusCode != http.StatusOK:
		return nil, &apiError{Status: resp.StatusCode, Body: string(raw)}
	}

	var chat chatResponse
	if err := json.Unmarshal(raw, &chat); err != nil {
		return nil, &payloadError{reason: fmt.Sprintf("decoding chat response: %v", err)}
	}
	if len(chat.Choices) == 0 {
		return nil, &payloadError{reason: "no choices in chat response"}
	}
	return mapPayload(chat.Choices[0].Message.Content, batch)
}

// mapPayload matches the model reply to batch items, by tag first and
// by normalized original text when the model dropped the tags.
func mapPayload(content string, batch domain.SuggestionBatch) (*domain.SuggestionResult, error) {
	object, ok := extractJSON(content)
	if !ok {
		return nil, &payloadError{reason: "no json object in model reply"}
	}
	var payload suggestionPayload
	if err := json.Unmarshal([]byte(object), &payload); err != nil {
		return nil, &payloadError{reason: fmt.Sprintf("decoding model reply: %v", err)}
	}

	byTag := map[string]domain.SuggestionItem{}
	byText := map[string]domain.SuggestionItem{}
	for _, item := range batch.Items {
		byTag[item.Tag] = item
		byText[domain.NormalizeIngredient(item.Ingredient)] = item
	}

	result := &domain.SuggestionResult{
		BatchTag:    batch.Tag,
		Suggestions: map[string]domain.Suggestion{},
	}
	for _, meal := range payload.Meals {
		if strings.TrimSpace(meal.Substitution) == "" {
			continue
		}
		item, ok := byTag[meal.Tag]
		if !ok {
			item, ok = byText[domain.NormalizeIngredient(meal.Original)]
		}
		if !ok {
			continue
		}
		// A substitution that repeats the flagged ingredient is no
		// substitution. The item stays unresolved.
		if domain.NormalizeIngredient(meal.Substitution) == domain.NormalizeIngredient(item.Ingredient) {
			continue
		}
		result.Suggestions[item.Tag] = domain.Suggestion{
			Replacement: strings.TrimSpace(meal.Substitution),
			Rationale:   strings.TrimSpace(meal.Reason),
		}
	}
	return result, nil
}

// extractJSON trims prose around the outermost JSON object. Models
// sometimes wrap the object in commentary or code fences even when
// asked for JSON only.
func extractJSON(s string) (string, bool) {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return s[start : end+1], true
}

type userPrompt struct {
	system string
	user   string
}

func buildPrompt(batch domain.SuggestionBatch, avoid domain.AllergenSet) userPrompt {
	names := avoid.Strings()
	sort.Strings(names)

	var b strings.Builder
	fmt.Fprintf(&b, "Allergens to avoid entirely: %s.\n", strings.Join(names, ", "))
	b.WriteString("Suggest one replacement for every item below. Each replacement must be free of ALL the allergens listed above, not only the allergen the item was flagged for, and must fit the same meal for a school menu.\n")
	fmt.Fprintf(&b, "Items (meal period: %s):\n", batch.Period)
	for _, item := range batch.Items {
		fmt.Fprintf(&b, "- tag=%s allergen=%s ingredient=%q\n", item.Tag, item.Allergen, item.Ingredient)
	}
	b.WriteString(`Respond with JSON only, in the form {"meals":[{"tag":"...","original":"...","substitution":"...","reason":"..."}]} with one entry per item, echoing the item tag.`)

	return userPrompt{
		system: "You are a school nutrition specialist. You replace ingredients that contain allergens with safe, kid-friendly alternatives that work in the same dish.",
		user:   b.String(),
	}
}
