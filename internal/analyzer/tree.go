package analyzer

import (
	"sort"
	"strings"

	"moxigen/internal/types"
)

// RenderTree converts a normalized file tree into a visual tree string for
// prompt embedding.
// Example:
// src
// ├── main.go
// └── utils
//     └── helper.go
func RenderTree(tree types.FileTree) string {
	if len(tree) == 0 {
		return ""
	}

	root := make(map[string]any)
	for _, p := range tree {
		parts := strings.Split(p, "/")
		current := root
		for _, part := range parts {
			if part == "" || part == "." {
				continue
			}
			if _, ok := current[part]; !ok {
				current[part] = make(map[string]any)
			}
			current = current[part].(map[string]any)
		}
	}

	var sb strings.Builder
	renderNode(&sb, root, "")
	return strings.TrimSpace(sb.String())
}

func renderNode(sb *strings.Builder, node map[string]any, prefix string) {
	keys := make([]string, 0, len(node))
	for k := range node {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for i, k := range keys {
		isLast := i == len(keys)-1
		sb.WriteString(prefix)
		if isLast {
			sb.WriteString("└── ")
		} else {
			sb.WriteString("├── ")
		}
		sb.WriteString(k)
		sb.WriteString("\n")

		children := node[k].(map[string]any)
		if len(children) > 0 {
			newPrefix := prefix
			if isLast {
				newPrefix += "    "
			} else {
				newPrefix += "│   "
			}
			renderNode(sb, children, newPrefix)
		}
	}
}
