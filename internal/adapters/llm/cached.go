package llm

import (
	"context"
	"encoding/json"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/okian/rehabchat/internal/domain/model"
	"github.com/okian/rehabchat/pkg/metrics"
)

// Cached memoizes successful parses per question and context. Failures are
// never cached.
type Cached struct {
	next  Parser
	cache *lru.Cache[string, string]
}

// NewCached wraps next with an LRU cache of size entries.
func NewCached(next Parser, size int) (*Cached, error) {
	c, err := lru.New[string, string](size)
	if err != nil {
		return nil, err
	}
	return &Cached{next: next, cache: c}, nil
}

// Name implements Parser.
func (c *Cached) Name() string { return c.next.Name() }

// Len returns the number of cached parses.
func (c *Cached) Len() int { return c.cache.Len() }

// Parse implements Parser.
func (c *Cached) Parse(ctx context.Context, question string, mc model.Context) (string, error) {
	key := cacheKey(question, mc)
	if v, ok := c.cache.Get(key); ok {
		metrics.RecordParseCacheHit()
		return v, nil
	}
	metrics.RecordParseCacheMiss()
	v, err := c.next.Parse(ctx, question, mc)
	if err != nil {
		return "", err
	}
	c.cache.Add(key, v)
	return v, nil
}

func cacheKey(question string, mc model.Context) string {
	q := strings.ToLower(strings.Join(strings.Fields(question), " "))
	if mc.IsZero() {
		return q
	}
	b, _ := json.Marshal(mc)
	return q + "\x00" + string(b)
}
