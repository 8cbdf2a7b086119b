package gemini

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/deusflow/newsbrief/internal/cache"
	"github.com/deusflow/newsbrief/internal/logger"
	"github.com/deusflow/newsbrief/internal/ratelimit"
)

const (
	DefaultModel   = "gemini-1.5-flash"
	maxPromptRunes = 6000
	maxExcerpt     = 600
)

var (
	ErrBudgetExhausted = errors.New("gemini request budget exhausted")
	ErrEmptyResponse   = errors.New("no response from Gemini")
)

type Options struct {
	APIKey      string
	Model       string
	MaxRequests int           // per run, 0 = unlimited
	CacheTTL    time.Duration // 0 disables memoisation
}

type generateFunc func(ctx context.Context, prompt string) (string, error)

// Client writes short excerpts for highlights. Results are memoised by
// content so the same article is summarised once per cache lifetime, and
// every call to the service is charged against a per-run budget.
type Client struct {
	client   *genai.Client
	generate generateFunc
	model    string
	cache    *cache.Cache[string]
	ttl      time.Duration
	budget   *ratelimit.Budget
}

func NewClient(ctx context.Context, opts Options) (*Client, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(opts.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	c := newClient(nil, opts)
	c.client = client
	c.generate = func(ctx context.Context, prompt string) (string, error) {
		resp, err := client.GenerativeModel(c.model).GenerateContent(ctx, genai.Text(prompt))
		if err != nil {
			return "", fmt.Errorf("failed to generate content: %w", err)
		}
		return responseText(resp)
	}
	return c, nil
}

func newClient(generate generateFunc, opts Options) *Client {
	model := opts.Model
	if model == "" {
		model = DefaultModel
	}
	return &Client{
		generate: generate,
		model:    model,
		cache:    cache.New[string](10 * time.Minute),
		ttl:      opts.CacheTTL,
		budget:   ratelimit.NewBudget(opts.MaxRequests),
	}
}

func (c *Client) Close() {
	c.cache.Close()
	if c.client != nil {
		c.client.Close()
	}
}

// Used reports how many requests were sent to the service.
func (c *Client) Used() int {
	return c.budget.Used()
}

// Summarize returns a two or three sentence excerpt for the article.
func (c *Client) Summarize(ctx context.Context, title, text string) (string, error) {
	key := cache.Key(c.model, title, text)
	if c.ttl > 0 {
		if cached, ok := c.cache.Get(key); ok {
			logger.Debug("gemini cache hit", "title", title)
			return cached, nil
		}
	}

	if !c.budget.Take() {
		return "", ErrBudgetExhausted
	}

	resp, err := c.generate(ctx, buildPrompt(title, text))
	if err != nil {
		return "", err
	}
	excerpt, err := parseResponse(resp)
	if err != nil {
		return "", err
	}

	if c.ttl > 0 {
		c.cache.Set(key, excerpt, c.ttl)
	}
	return excerpt, nil
}

func buildPrompt(title, text string) string {
	text = strings.ReplaceAll(text, "\r", "")
	text = strings.Join(strings.Fields(text), " ")
	if utf8.RuneCountInString(text) > maxPromptRunes {
		runes := []rune(text)
		trimmed := string(runes[:maxPromptRunes])
		if idx := strings.LastIndex(trimmed, ". "); idx > 1200 {
			trimmed = trimmed[:idx+1]
		}
		text = trimmed + "\n[TRUNCATED]"
	}

	return fmt.Sprintf(`Summarise this news article for a daily highlights digest.

ARTICLE:
Title: %s
Text: %s

REQUIREMENTS:
- Two or three plain sentences, at most 500 characters.
- State what happened and who is affected. No opinions, no lead-ins such as "This article".
- Keep names of products and organisations unchanged.

Answer strictly in this format:

SUMMARY: <the summary>
`, title, text)
}

var reSummaryLabel = regexp.MustCompile(`(?i)^\**\s*summary\s*\**\s*:\s*\**\s*`)

// parseResponse extracts the summary text. Responses without the label are
// accepted as-is since the model sometimes drops it.
func parseResponse(resp string) (string, error) {
	var parts []string
	for _, raw := range strings.Split(resp, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		if reSummaryLabel.MatchString(line) {
			parts = parts[:0]
			line = strings.TrimSpace(reSummaryLabel.ReplaceAllString(line, ""))
			if line == "" {
				continue
			}
		}
		parts = append(parts, line)
	}

	summary := strings.Join(parts, " ")
	if summary == "" {
		return "", ErrEmptyResponse
	}
	if utf8.RuneCountInString(summary) > maxExcerpt {
		summary = string([]rune(summary)[:maxExcerpt]) + "..."
	}
	return summary, nil
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", ErrEmptyResponse
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	if b.Len() == 0 {
		return "", ErrEmptyResponse
	}
	return b.String(), nil
}
