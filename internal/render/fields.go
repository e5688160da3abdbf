package render

import (
	"fmt"
	"sort"
	"strings"

	"phPortfolio/internal/profile"
)

// FieldKind 标记自定义字段值的展示形态。
type FieldKind string

const (
	FieldList      FieldKind = "list"
	FieldLink      FieldKind = "link"
	FieldMultiline FieldKind = "multiline"
	FieldPlain     FieldKind = "plain"
)

// FieldView 是单个自定义字段的展示变体。
// Kind 为 FieldList 时读 Items，其余情况读 Text。
type FieldView struct {
	Name  string
	Kind  FieldKind
	Theme string
	Items []string
	Text  string
}

// ClassifyFieldValue 把自由格式的字段值归类为展示变体。
// 优先级是固定契约，按序短路：
//  1. 数组或含逗号的字符串 -> 列表
//  2. http/https 前缀 -> 链接
//  3. 含换行 -> 保留换行的段落
//  4. 其余 -> 纯文本
//
// 这是展示层的猜测，不得反向影响持久化的值。
func ClassifyFieldValue(value any) FieldView {
	switch v := value.(type) {
	case nil:
		return FieldView{Kind: FieldPlain, Text: ""}
	case []string:
		return FieldView{Kind: FieldList, Items: trimItems(v)}
	case []any:
		items := make([]string, 0, len(v))
		for _, item := range v {
			items = append(items, stringify(item))
		}
		return FieldView{Kind: FieldList, Items: trimItems(items)}
	case string:
		return classifyString(v)
	default:
		return classifyString(stringify(v))
	}
}

func classifyString(value string) FieldView {
	if strings.Contains(value, ",") {
		return FieldView{Kind: FieldList, Items: profile.SplitList(value)}
	}
	trimmed := strings.TrimSpace(value)
	if strings.HasPrefix(trimmed, "http://") || strings.HasPrefix(trimmed, "https://") {
		return FieldView{Kind: FieldLink, Text: trimmed}
	}
	if strings.Contains(value, "\n") {
		return FieldView{Kind: FieldMultiline, Text: value}
	}
	return FieldView{Kind: FieldPlain, Text: trimmed}
}

func stringify(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		if v == float64(int64(v)) {
			return fmt.Sprintf("%d", int64(v))
		}
		return fmt.Sprintf("%g", v)
	case bool:
		return fmt.Sprintf("%t", v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func trimItems(items []string) []string {
	result := make([]string, 0, len(items))
	for _, item := range items {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// FieldTheme 根据字段名猜一个样式主题，仅影响展示配色。
func FieldTheme(name string) string {
	lower := strings.ToLower(name)
	switch {
	case strings.Contains(lower, "date") || strings.Contains(lower, "year"):
		return "muted"
	case strings.Contains(lower, "url") || strings.Contains(lower, "link"):
		return "accent"
	default:
		return "default"
	}
}

// customItemView 是自定义分区单条记录的展示形态：字段按 schema 顺序排列。
type customItemView struct {
	Fields []FieldView
}

// buildCustomItems 按分区 schema 的字段顺序展开每条记录。
// schema 未声明但记录里出现的字段追加在末尾，避免静默丢数据。
func buildCustomItems(section profile.CustomSection) []customItemView {
	items := make([]customItemView, 0, len(section.Items))
	for _, item := range section.Items {
		view := customItemView{Fields: make([]FieldView, 0, len(item.Fields))}
		seen := make(map[string]bool, len(item.Fields))
		for _, schema := range section.FieldsSchema {
			value, ok := item.Fields[schema.Name]
			if !ok {
				continue
			}
			seen[schema.Name] = true
			view.Fields = append(view.Fields, namedFieldView(schema.Name, value))
		}
		extras := make([]string, 0)
		for name := range item.Fields {
			if !seen[name] {
				extras = append(extras, name)
			}
		}
		sort.Strings(extras)
		for _, name := range extras {
			view.Fields = append(view.Fields, namedFieldView(name, item.Fields[name]))
		}
		items = append(items, view)
	}
	return items
}

func namedFieldView(name string, value any) FieldView {
	view := ClassifyFieldValue(value)
	view.Name = name
	view.Theme = FieldTheme(name)
	return view
}
