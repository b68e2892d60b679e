package llm

import (
	"context"
	"encoding/json"
	"fmt"
)

// FakeClient returns deterministic instruction lists for offline runs and
// tests. It answers any request whose input carries an "items" array with one
// canned instruction per item.
type FakeClient struct{}

func NewFakeClient() *FakeClient { return &FakeClient{} }

func (f *FakeClient) Name() string { return "FakeLLM" }
func (f *FakeClient) Close() error { return nil }

func (f *FakeClient) GenerateJSON(ctx context.Context, prompt string, input any) (json.RawMessage, error) {
	n := itemCount(input)
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("Generate a README section for this project given the file structure (item %d).", i+1)
	}
	b, _ := json.Marshal(out)
	return json.RawMessage(b), nil
}

func itemCount(input any) int {
	b, err := json.Marshal(input)
	if err != nil {
		return 1
	}
	var probe struct {
		Items []json.RawMessage `json:"items"`
	}
	if err := json.Unmarshal(b, &probe); err != nil || len(probe.Items) == 0 {
		return 1
	}
	return len(probe.Items)
}
