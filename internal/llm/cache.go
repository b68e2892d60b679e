package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	lru "github.com/hashicorp/golang-lru/v2"

	"moxigen/internal/llmclient"
)

// WithCache memoizes successful responses keyed by (prompt, input) so a
// resumed run does not re-pay for batches the service already answered.
// Errors are never cached.
func WithCache(size int) Middleware {
	if size <= 0 {
		size = 256
	}
	return func(next llmclient.Client) llmclient.Client {
		cache, err := lru.New[string, json.RawMessage](size)
		if err != nil {
			return next
		}
		return &cached{next: next, cache: cache}
	}
}

type cached struct {
	next  llmclient.Client
	cache *lru.Cache[string, json.RawMessage]
}

func (c *cached) Name() string { return c.next.Name() }
func (c *cached) Close() error { return c.next.Close() }

func (c *cached) GenerateJSON(ctx context.Context, prompt string, input any) (json.RawMessage, error) {
	key := requestKey(prompt, input)
	if raw, ok := c.cache.Get(key); ok {
		return raw, nil
	}
	raw, err := c.next.GenerateJSON(ctx, prompt, input)
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, raw)
	return raw, nil
}

func requestKey(prompt string, input any) string {
	in, _ := json.Marshal(input)
	h := sha256.New()
	h.Write([]byte(prompt))
	h.Write([]byte{0})
	h.Write(in)
	return hex.EncodeToString(h.Sum(nil))
}
