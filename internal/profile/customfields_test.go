package profile

import "testing"

func TestFlatSectionRoundTrip(t *testing.T) {
	fields := []FlatField{
		{FieldName: "motto", FieldType: "text", FieldValue: "ship it"},
		{FieldName: "about", FieldType: "textarea", FieldValue: "line one\nline two"},
		{FieldName: "blog", FieldType: "url", FieldValue: "https://example.com"},
		{FieldName: "since", FieldType: "date", FieldValue: "2020-01-15"},
	}

	section := BuildSection("extras", "Extras", fields)
	back := FlattenSection(section)

	if len(back) != len(fields) {
		t.Fatalf("round trip changed field count: %d -> %d", len(fields), len(back))
	}
	for i, f := range fields {
		if back[i].FieldName != f.FieldName {
			t.Errorf("field %d name %q -> %q", i, f.FieldName, back[i].FieldName)
		}
		if back[i].FieldType != f.FieldType {
			t.Errorf("field %d type %q -> %q", i, f.FieldType, back[i].FieldType)
		}
		if back[i].FieldValue != f.FieldValue {
			t.Errorf("field %d value %v -> %v", i, f.FieldValue, back[i].FieldValue)
		}
	}
}

func TestBuildSection_UnknownTypeFallsBackToText(t *testing.T) {
	section := BuildSection("misc", "", []FlatField{
		{FieldName: "thing", FieldType: "hologram", FieldValue: "x"},
	})

	if section.Label != "misc" {
		t.Errorf("label should default to name, got %q", section.Label)
	}
	if section.FieldsSchema[0].Type != "text" {
		t.Errorf("unknown type should become text, got %q", section.FieldsSchema[0].Type)
	}
}

// select 的 fieldOptions 往返会丢失：这是记录在案的已知缺口，
// 测试钉住现状，避免悄悄变更行为。
func TestBuildSection_SelectOptionsKnownGap(t *testing.T) {
	section := BuildSection("prefs", "Prefs", []FlatField{
		{FieldName: "level", FieldType: "select", FieldValue: "senior", FieldOptions: []string{"junior", "senior"}},
	})
	back := FlattenSection(section)

	if back[0].FieldValue != "senior" {
		t.Errorf("select value must survive, got %v", back[0].FieldValue)
	}
	if len(back[0].FieldOptions) != 0 {
		t.Errorf("select options currently do not round trip; got %v", back[0].FieldOptions)
	}
}

func TestFlattenSection_EmptyItems(t *testing.T) {
	back := FlattenSection(CustomSection{Name: "empty"})
	if len(back) != 0 {
		t.Errorf("expected no fields, got %v", back)
	}
}
