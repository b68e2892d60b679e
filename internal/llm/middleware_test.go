package llm

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"strings"
	"sync/atomic"
	"testing"

	"moxigen/internal/tester"
)

type countingClient struct {
	calls int32
	raw   json.RawMessage
	err   error
}

func (c *countingClient) Name() string { return "counting" }
func (c *countingClient) Close() error { return nil }
func (c *countingClient) GenerateJSON(ctx context.Context, prompt string, input any) (json.RawMessage, error) {
	atomic.AddInt32(&c.calls, 1)
	return c.raw, c.err
}

func TestWrapPreservesName(t *testing.T) {
	inner := &countingClient{raw: json.RawMessage(`[]`)}
	wrapped := Wrap(inner, WithLogging(log.New(nullWriter{}, "", 0)), WithCache(8), RateLimit(0, 0))
	tester.Eq(t, wrapped.Name(), "counting")
}

type nullWriter struct{}

func (nullWriter) Write(p []byte) (int, error) { return len(p), nil }

func TestCacheHitSkipsSecondCall(t *testing.T) {
	inner := &countingClient{raw: json.RawMessage(`["a"]`)}
	cli := Wrap(inner, WithCache(8))
	ctx := context.Background()

	first, err := cli.GenerateJSON(ctx, "p", map[string]string{"k": "v"})
	tester.NoErr(t, err)
	second, err := cli.GenerateJSON(ctx, "p", map[string]string{"k": "v"})
	tester.NoErr(t, err)
	tester.Eq(t, first, second)
	tester.Eq(t, int(inner.calls), 1, "second request served from cache")

	_, err = cli.GenerateJSON(ctx, "p", map[string]string{"k": "other"})
	tester.NoErr(t, err)
	tester.Eq(t, int(inner.calls), 2, "different input misses")
}

func TestCacheNeverStoresErrors(t *testing.T) {
	inner := &countingClient{err: errors.New("down")}
	cli := Wrap(inner, WithCache(8))
	ctx := context.Background()

	_, err := cli.GenerateJSON(ctx, "p", nil)
	tester.True(t, err != nil)
	_, err = cli.GenerateJSON(ctx, "p", nil)
	tester.True(t, err != nil)
	tester.Eq(t, int(inner.calls), 2, "errors are retried, not cached")
}

func TestRateLimitDisabledPassesThrough(t *testing.T) {
	inner := &countingClient{raw: json.RawMessage(`[]`)}
	cli := Wrap(inner, RateLimit(0, 0))
	for i := 0; i < 5; i++ {
		_, err := cli.GenerateJSON(context.Background(), "p", nil)
		tester.NoErr(t, err)
	}
	tester.Eq(t, int(inner.calls), 5)
}

func TestRateLimitHonorsCancellation(t *testing.T) {
	inner := &countingClient{raw: json.RawMessage(`[]`)}
	cli := Wrap(inner, RateLimit(0.001, 1))
	ctx := context.Background()

	// First call consumes the burst token.
	_, err := cli.GenerateJSON(ctx, "p", nil)
	tester.NoErr(t, err)

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = cli.GenerateJSON(canceled, "p", nil)
	tester.ErrIs(t, err, context.Canceled)
	tester.Eq(t, int(inner.calls), 1)
}

func TestRateLimitCloseStopsLimiter(t *testing.T) {
	inner := &countingClient{raw: json.RawMessage(`[]`)}
	cli := Wrap(inner, RateLimit(0.001, 1))
	ctx := context.Background()

	// Consume the only burst token; the next refill is ~17 minutes away.
	_, err := cli.GenerateJSON(ctx, "p", nil)
	tester.NoErr(t, err)

	tester.NoErr(t, cli.Close())
	tester.NoErr(t, cli.Close(), "closing twice is safe")

	// A stopped limiter rejects instead of blocking forever.
	_, err = cli.GenerateJSON(ctx, "p", nil)
	tester.ErrIs(t, err, context.Canceled)
	tester.Eq(t, int(inner.calls), 1)
}

func TestLoggingPassesResultThrough(t *testing.T) {
	inner := &countingClient{raw: json.RawMessage(`["ok"]`)}
	var sb strings.Builder
	cli := Wrap(inner, WithLogging(log.New(&sb, "", 0)))

	raw, err := cli.GenerateJSON(context.Background(), "p", nil)
	tester.NoErr(t, err)
	tester.Eq(t, string(raw), `["ok"]`)
	tester.True(t, strings.Contains(sb.String(), "counting"), "request line names the client")
}

func TestFakeClientMatchesItemCount(t *testing.T) {
	cli := NewFakeClient()
	input := map[string]any{"items": []map[string]string{{"a": "1"}, {"a": "2"}, {"a": "3"}}}
	raw, err := cli.GenerateJSON(context.Background(), "p", input)
	tester.NoErr(t, err)
	var got []string
	tester.NoErr(t, json.Unmarshal(raw, &got))
	tester.Eq(t, len(got), 3)

	raw, err = cli.GenerateJSON(context.Background(), "p", nil)
	tester.NoErr(t, err)
	tester.NoErr(t, json.Unmarshal(raw, &got))
	tester.Eq(t, len(got), 1, "inputs without items get one instruction")
}
