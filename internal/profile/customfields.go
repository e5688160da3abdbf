package profile

import "strings"

// FlatField 是某个编辑界面使用的扁平自定义字段形态。
// 它只是视图变换，绝不直接落库；持久化形态永远是 CustomSection。
type FlatField struct {
	FieldName    string   `json:"fieldName"`
	FieldType    string   `json:"fieldType"`
	FieldValue   any      `json:"fieldValue"`
	FieldOptions []string `json:"fieldOptions,omitempty"`
}

// 支持的自定义字段类型。
var supportedFieldTypes = map[string]struct{}{
	"text":     {},
	"textarea": {},
	"url":      {},
	"date":     {},
	"select":   {},
}

// IsSupportedFieldType 判断类型是否受支持；未知类型按 text 处理。
func IsSupportedFieldType(fieldType string) bool {
	_, ok := supportedFieldTypes[fieldType]
	return ok
}

// BuildSection 把一组扁平字段组装成一个自定义分区（单条记录）。
// text/textarea/url/date 的往返是无损的。
// 已知缺口：select 的 fieldOptions 不写入 schema，往返后丢失；
// 该行为待产品决策，不要在这里擅自补齐。
func BuildSection(name, label string, fields []FlatField) CustomSection {
	section := CustomSection{
		Name:  strings.TrimSpace(name),
		Label: strings.TrimSpace(label),
	}
	if section.Label == "" {
		section.Label = section.Name
	}

	values := make(map[string]any, len(fields))
	for _, f := range fields {
		fieldName := strings.TrimSpace(f.FieldName)
		if fieldName == "" {
			continue
		}
		fieldType := f.FieldType
		if !IsSupportedFieldType(fieldType) {
			fieldType = "text"
		}
		section.FieldsSchema = append(section.FieldsSchema, CustomFieldSchema{
			Name: fieldName,
			Type: fieldType,
		})
		values[fieldName] = f.FieldValue
	}

	section.Items = []CustomItem{{Order: 0, Fields: values}}
	return section
}

// FlattenSection 把自定义分区展开回扁平字段形态（取首条记录）。
func FlattenSection(section CustomSection) []FlatField {
	if len(section.Items) == 0 {
		return []FlatField{}
	}

	values := section.Items[0].Fields
	fields := make([]FlatField, 0, len(section.FieldsSchema))
	for _, schema := range section.FieldsSchema {
		fields = append(fields, FlatField{
			FieldName:    schema.Name,
			FieldType:    schema.Type,
			FieldValue:   values[schema.Name],
			FieldOptions: schema.Options,
		})
	}
	return fields
}
