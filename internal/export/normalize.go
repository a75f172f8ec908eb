// Package export renders persisted documents for download: content
// normalization to HTML fragments and DOCX packaging.
package export

import (
	"fmt"
	"html"
	"sort"
	"strings"
)

// NormalizeHTML converts any stored unit content into an HTML fragment.
// Strings that already contain markup pass through; plain text is
// paragraph-wrapped; lists become <ul> and table-shaped rows become a
// <table>. The result is never empty for non-empty input.
func NormalizeHTML(content any) string {
	switch v := content.(type) {
	case nil:
		return ""
	case string:
		return normalizeString(v)
	case []any:
		return normalizeSlice(v)
	case map[string]any:
		return mapToTable(v)
	default:
		return "<p>" + html.EscapeString(fmt.Sprintf("%v", v)) + "</p>"
	}
}

func normalizeString(s string) string {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return ""
	}
	// Markup passes through untouched.
	if strings.Contains(trimmed, "<") && strings.Contains(trimmed, ">") {
		return trimmed
	}
	// Plain text: paragraph per blank-line-separated block.
	var b strings.Builder
	for _, block := range strings.Split(trimmed, "\n\n") {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}
		b.WriteString("<p>")
		b.WriteString(html.EscapeString(block))
		b.WriteString("</p>")
	}
	return b.String()
}

func normalizeSlice(items []any) string {
	if len(items) == 0 {
		return ""
	}

	// A slice of objects renders as a table, anything else as a list.
	if _, ok := items[0].(map[string]any); ok {
		return rowsToTable(items)
	}

	var b strings.Builder
	b.WriteString("<ul>")
	for _, item := range items {
		b.WriteString("<li>")
		switch v := item.(type) {
		case string:
			b.WriteString(html.EscapeString(v))
		default:
			b.WriteString(html.EscapeString(fmt.Sprintf("%v", v)))
		}
		b.WriteString("</li>")
	}
	b.WriteString("</ul>")
	return b.String()
}

// rowsToTable renders a slice of row objects with a header derived from
// the first row's keys, sorted for stable output.
func rowsToTable(rows []any) string {
	first, ok := rows[0].(map[string]any)
	if !ok || len(first) == 0 {
		return ""
	}

	cols := make([]string, 0, len(first))
	for k := range first {
		cols = append(cols, k)
	}
	sort.Strings(cols)

	var b strings.Builder
	b.WriteString("<table><thead><tr>")
	for _, col := range cols {
		b.WriteString("<th>")
		b.WriteString(html.EscapeString(col))
		b.WriteString("</th>")
	}
	b.WriteString("</tr></thead><tbody>")

	for _, r := range rows {
		row, ok := r.(map[string]any)
		if !ok {
			continue
		}
		b.WriteString("<tr>")
		for _, col := range cols {
			b.WriteString("<td>")
			if v, ok := row[col]; ok && v != nil {
				b.WriteString(html.EscapeString(fmt.Sprintf("%v", v)))
			}
			b.WriteString("</td>")
		}
		b.WriteString("</tr>")
	}
	b.WriteString("</tbody></table>")
	return b.String()
}

// mapToTable renders a single object as a two-column key/value table.
func mapToTable(m map[string]any) string {
	if len(m) == 0 {
		return ""
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("<table><tbody>")
	for _, k := range keys {
		b.WriteString("<tr><th>")
		b.WriteString(html.EscapeString(k))
		b.WriteString("</th><td>")
		if v := m[k]; v != nil {
			b.WriteString(html.EscapeString(fmt.Sprintf("%v", v)))
		}
		b.WriteString("</td></tr>")
	}
	b.WriteString("</tbody></table>")
	return b.String()
}
