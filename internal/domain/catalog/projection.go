package catalog

import (
	"strconv"
	"strings"
)

const (
	FallbackLabel  = "Category"
	EmptyGroupText = "No tools in this category yet."
	EmptyText      = "No categories yet."
)

// Row is a category ready to be rendered.
type Row struct {
	Key   string
	Label string
	Tools []Tool
	Empty bool
}

// Project keeps the upstream order and membership as is.
func Project(groups []Group) []Row {
	rows := make([]Row, 0, len(groups))
	for i, g := range groups {
		label := Label(g)
		if label == "" {
			label = FallbackLabel
		}
		rows = append(rows, Row{
			Key:   RowKey(g, i),
			Label: label,
			Tools: g.Tools,
			Empty: len(g.Tools) == 0,
		})
	}
	return rows
}

type keyField struct {
	prefix string
	get    func(Group) Scalar
}

// order matters: the first present candidate wins
var keyFields = []keyField{
	{"id", func(g Group) Scalar { return g.ID }},
	{"category_id", func(g Group) Scalar { return g.CategoryID }},
	{"categoryId", func(g Group) Scalar { return g.CategoryIDJS }},
	{"name", func(g Group) Scalar { return g.Name }},
	{"category", func(g Group) Scalar { return g.Category }},
	{"title", func(g Group) Scalar { return g.Title }},
}

// RowKey resolves a stable identity for a category row. Present-but-blank
// values are skipped; the positional index is the last resort. The source
// field is part of the key so an id "3" never collides with index 3.
func RowKey(g Group, index int) string {
	for _, f := range keyFields {
		v := f.get(g)
		if v.Set() && strings.TrimSpace(v.String()) != "" {
			return f.prefix + ":" + v.String()
		}
	}
	return "idx:" + strconv.Itoa(index)
}

// Label category -> name -> category_name -> title, trimmed.
func Label(g Group) string {
	for _, v := range []Scalar{g.Category, g.Name, g.CategoryName, g.Title} {
		if v.Set() {
			return strings.TrimSpace(v.String())
		}
	}
	return ""
}

// ToolKey tools are keyed by id, name when the id is missing.
func ToolKey(t Tool) string {
	if t.ID != 0 {
		return "id:" + strconv.FormatInt(t.ID, 10)
	}
	return "name:" + t.Name
}

// FindRow by key; -1 when the row is gone after a reload.
func FindRow(rows []Row, key string) int {
	for i, r := range rows {
		if r.Key == key {
			return i
		}
	}
	return -1
}

// Tools flattens the catalog in display order.
func Tools(groups []Group) []Tool {
	var out []Tool
	for _, g := range groups {
		out = append(out, g.Tools...)
	}
	return out
}
