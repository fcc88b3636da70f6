package classifier

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	readability "codeberg.org/readeck/go-readability/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	maxReferenceBody    = 2 << 20
	referenceFetchLimit = 10 * time.Second
	referenceRetryDelay = 30 * time.Second
)

// ReferenceContext fetches a legal reference page, extracts its readable
// text and keeps a bounded excerpt for prompts. A failed refresh keeps the
// previous excerpt, which is empty before the first success, and is retried
// after a short delay rather than the full TTL.
type ReferenceContext struct {
	url      string
	client   *http.Client
	maxChars int
	ttl      time.Duration
	logger   *zap.Logger

	group      singleflight.Group
	mu         sync.RWMutex
	excerpt    string
	refreshAt  time.Time
	retryDelay time.Duration
	now        func() time.Time
}

// NewReferenceContext returns nil when rawURL is empty.
func NewReferenceContext(rawURL string, maxChars int, ttl time.Duration, client *http.Client, logger *zap.Logger) *ReferenceContext {
	if strings.TrimSpace(rawURL) == "" {
		return nil
	}
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReferenceContext{
		url:      rawURL,
		client:   client,
		maxChars: maxChars,
		ttl:        ttl,
		logger:     logger,
		retryDelay: referenceRetryDelay,
		now:        time.Now,
	}
}

// Excerpt returns the cached excerpt, refreshing it when stale. The refresh
// is detached from ctx so one cancelled request cannot fail it for everyone;
// a caller whose ctx ends first gets the excerpt held so far.
func (r *ReferenceContext) Excerpt(ctx context.Context) string {
	if r == nil {
		return ""
	}
	r.mu.RLock()
	excerpt, refreshAt := r.excerpt, r.refreshAt
	r.mu.RUnlock()
	if !refreshAt.IsZero() && r.now().Before(refreshAt) {
		return excerpt
	}

	ch := r.group.DoChan("excerpt", func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), referenceFetchLimit)
		defer cancel()

		text, err := r.fetch(fetchCtx)
		r.mu.Lock()
		defer r.mu.Unlock()
		if err != nil {
			r.logger.Warn("reference context unavailable", zap.String("url", r.url), zap.Error(err))
			r.refreshAt = r.now().Add(r.retryDelay)
			return r.excerpt, nil
		}
		r.excerpt = text
		r.refreshAt = r.now().Add(r.ttl)
		return text, nil
	})
	select {
	case res := <-ch:
		return res.Val.(string)
	case <-ctx.Done():
		return excerpt
	}
}

func (r *ReferenceContext) fetch(ctx context.Context) (string, error) {
	parsedURL, err := url.Parse(r.url)
	if err != nil {
		return "", fmt.Errorf("invalid reference url: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.url, nil)
	if err != nil {
		return "", err
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("reference fetch: HTTP %d", resp.StatusCode)
	}

	body := io.LimitReader(resp.Body, maxReferenceBody)
	if !strings.Contains(resp.Header.Get("Content-Type"), "text/html") {
		raw, err := io.ReadAll(body)
		if err != nil {
			return "", err
		}
		return truncateRunes(strings.TrimSpace(string(raw)), r.maxChars), nil
	}

	article, err := readability.FromReader(body, parsedURL)
	if err != nil {
		return "", fmt.Errorf("reference parse: %w", err)
	}
	var buf bytes.Buffer
	if err := article.RenderText(&buf); err != nil {
		return "", fmt.Errorf("reference render: %w", err)
	}
	return truncateRunes(strings.TrimSpace(buf.String()), r.maxChars), nil
}

func truncateRunes(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
