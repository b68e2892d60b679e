package synth

import (
	"encoding/json"
	"fmt"
	"strings"

	"moxigen/internal/analyzer"
	"moxigen/internal/chunker"
	"moxigen/internal/types"
)

const (
	chunkPreviewLen  = 500
	treePreviewFiles = 30
	structureHint    = "Include standard sections: About, Built With, Getting Started, Usage, License."
)

// batchItem is what the service sees for one chunk: a bounded preview, never
// the full text, plus the shape of the repository. TreeView is the rendered
// tree; models follow it better than a flat path list.
type batchItem struct {
	ChunkPreview string   `json:"chunk_preview"`
	FileTree     []string `json:"file_tree"`
	TreeView     string   `json:"tree_view,omitempty"`
	ProjectType  string   `json:"project_type"`
}

type batchInput struct {
	Items []batchItem `json:"items"`
}

// buildRequest renders the per-batch prompt and structured input. The prompt
// pins the response contract: a JSON array of strings, one instruction per
// item, in input order.
func buildRequest(batch []types.Chunk) (string, batchInput) {
	input := batchInput{Items: make([]batchItem, len(batch))}
	for i, c := range batch {
		tree := c.FileTree
		if len(tree) > treePreviewFiles {
			tree = tree[:treePreviewFiles]
		}
		input.Items[i] = batchItem{
			ChunkPreview: truncate(c.Text, chunkPreviewLen),
			FileTree:     tree,
			TreeView:     analyzer.RenderTree(tree),
			ProjectType:  c.ProjectType,
		}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, `You are helping build a training dataset for a model that generates README content from a project's file structure.

The input JSON contains %d README sections (chunks) with their repo file trees. For each item, output exactly ONE short instruction that describes what kind of README to generate for that project. %s

Output ONLY a JSON array of strings: one instruction per item, in order. No other text.
Example format: ["Generate a README for a C# OIDC server library with these files.", "Generate a README for a Python CLI tool."]`,
		len(batch), structureHint)
	return sb.String(), input
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	cut := chunker.SplitIndex(s, maxLen-3)
	return strings.TrimRight(s[:cut], " \t\n") + "..."
}

// parseInstructions accepts the documented array-of-strings shape, an object
// wrapping it under "instructions", or an array embedded in surrounding text.
// Anything else is a validation failure.
func parseInstructions(raw json.RawMessage) ([]string, error) {
	text := strings.TrimSpace(string(raw))
	if text == "" {
		return nil, fmt.Errorf("synth: empty response")
	}

	var list []string
	if err := json.Unmarshal([]byte(text), &list); err == nil {
		return trimAll(list), nil
	}
	var wrapped struct {
		Instructions []string `json:"instructions"`
	}
	if err := json.Unmarshal([]byte(text), &wrapped); err == nil && wrapped.Instructions != nil {
		return trimAll(wrapped.Instructions), nil
	}
	// Last resort: the model wrapped the array in prose.
	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start >= 0 && end > start {
		if err := json.Unmarshal([]byte(text[start:end+1]), &list); err == nil {
			return trimAll(list), nil
		}
	}
	return nil, fmt.Errorf("synth: response is not a JSON array of strings")
}

func trimAll(list []string) []string {
	out := make([]string, len(list))
	for i, s := range list {
		out[i] = strings.TrimSpace(s)
	}
	return out
}
