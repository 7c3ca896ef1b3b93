package openapi

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Render serializes the specification (or any plain data structure) to an
// indentation-based human-readable document. Nil values are skipped,
// nothing is quoted, and empty arrays render as [] inline.
func Render(v any) string {
	node := normalize(v)
	var sb strings.Builder
	renderNode(&sb, node, 0)
	return sb.String()
}

// RenderSpec serializes a generated specification document.
func RenderSpec(spec Spec) string {
	return Render(spec)
}

// normalize converts arbitrary values (including structs) into the
// map/slice/scalar shape the renderer walks, via a JSON round trip so
// struct tags and omitempty apply.
func normalize(v any) any {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	var node any
	if err := json.Unmarshal(data, &node); err != nil {
		return string(data)
	}
	return node
}

func renderNode(sb *strings.Builder, node any, depth int) {
	switch n := node.(type) {
	case map[string]any:
		for _, key := range sortedKeys(n) {
			value := n[key]
			if value == nil {
				continue
			}
			renderEntry(sb, key, value, depth)
		}

	case []any:
		for _, item := range n {
			if item == nil {
				continue
			}
			indent(sb, depth)
			switch item.(type) {
			case map[string]any, []any:
				sb.WriteString("-\n")
				renderNode(sb, item, depth+1)
			default:
				sb.WriteString("- " + scalar(item) + "\n")
			}
		}
	}
}

func renderEntry(sb *strings.Builder, key string, value any, depth int) {
	switch v := value.(type) {
	case map[string]any:
		if len(v) == 0 {
			return
		}
		indent(sb, depth)
		sb.WriteString(key + ":\n")
		renderNode(sb, v, depth+1)

	case []any:
		indent(sb, depth)
		if len(v) == 0 {
			sb.WriteString(key + ": []\n")
			return
		}
		sb.WriteString(key + ":\n")
		renderNode(sb, v, depth+1)

	default:
		indent(sb, depth)
		sb.WriteString(key + ": " + scalar(v) + "\n")
	}
}

func scalar(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case bool:
		return strconv.FormatBool(s)
	case float64:
		// JSON numbers arrive as float64; render integers without a dot.
		if s == float64(int64(s)) {
			return strconv.FormatInt(int64(s), 10)
		}
		return strconv.FormatFloat(s, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func indent(sb *strings.Builder, depth int) {
	sb.WriteString(strings.Repeat("  ", depth))
}
