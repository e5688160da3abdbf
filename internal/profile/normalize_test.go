package profile

import (
	"encoding/json"
	"testing"
)

func strPtr(s string) *string { return &s }

func TestNormalize_EndDateEmptyStringMeansOngoing(t *testing.T) {
	doc := Document{
		Experience: []Experience{
			{Company: "Acme", StartDate: "2020-01", EndDate: strPtr("")},
			{Company: "Beta", StartDate: "2021-03", EndDate: strPtr("  ")},
			{Company: "Gamma", StartDate: "2022-05", EndDate: strPtr("2023-01")},
		},
	}
	doc.Normalize()

	if doc.Experience[0].EndDate != nil {
		t.Errorf("empty string end date should normalize to nil, got %q", *doc.Experience[0].EndDate)
	}
	if doc.Experience[1].EndDate != nil {
		t.Errorf("whitespace end date should normalize to nil, got %q", *doc.Experience[1].EndDate)
	}
	if doc.Experience[2].EndDate == nil || *doc.Experience[2].EndDate != "2023-01" {
		t.Errorf("real end date should survive normalization")
	}
}

func TestNormalize_AssignsItemIDs(t *testing.T) {
	doc := Document{
		Education: []Education{{Institution: "MIT"}},
		Projects:  []Project{{Name: "widget", ID: "keep-me"}},
	}
	doc.Normalize()

	if doc.Education[0].ID == "" {
		t.Error("education item should get an id")
	}
	if doc.Projects[0].ID != "keep-me" {
		t.Errorf("existing id must not be regenerated, got %q", doc.Projects[0].ID)
	}
}

func TestNormalize_DefaultSectionOrder(t *testing.T) {
	doc := Document{}
	doc.Normalize()
	if len(doc.SectionOrder) != len(DefaultSectionOrder) {
		t.Fatalf("expected default section order, got %v", doc.SectionOrder)
	}
}

func TestStringList_AcceptsBothShapes(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want []string
	}{
		{"array", `["Go","Postgres"]`, []string{"Go", "Postgres"}},
		{"comma string", `"Go, Postgres , Redis"`, []string{"Go", "Postgres", "Redis"}},
		{"empty string", `""`, []string{}},
		{"array with blanks", `["Go","","  "]`, []string{"Go"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var list StringList
			if err := json.Unmarshal([]byte(tc.raw), &list); err != nil {
				t.Fatalf("unmarshal %s: %v", tc.raw, err)
			}
			if len(list) != len(tc.want) {
				t.Fatalf("got %v, want %v", list, tc.want)
			}
			for i := range list {
				if list[i] != tc.want[i] {
					t.Errorf("item %d = %q, want %q", i, list[i], tc.want[i])
				}
			}
		})
	}
}

func TestSkillGroupList_NormalizesLegacyFlatShape(t *testing.T) {
	raw := `[
		{"name":"Go","level":"expert","category":"Backend"},
		{"name":"Postgres","category":"Backend"},
		{"name":"React","category":"Frontend"},
		{"name":"Docker"}
	]`

	var groups SkillGroupList
	if err := json.Unmarshal([]byte(raw), &groups); err != nil {
		t.Fatalf("unmarshal flat skills: %v", err)
	}

	if len(groups) != 3 {
		t.Fatalf("expected 3 groups, got %d: %+v", len(groups), groups)
	}
	if groups[0].Header != "Backend" || len(groups[0].Skills) != 2 {
		t.Errorf("backend group wrong: %+v", groups[0])
	}
	if groups[1].Header != "Frontend" {
		t.Errorf("group order not preserved: %+v", groups)
	}
	if groups[2].Header != "Skills" {
		t.Errorf("uncategorized skills should fall into %q, got %q", "Skills", groups[2].Header)
	}
}

func TestSkillGroupList_AcceptsGroupedShape(t *testing.T) {
	raw := `[{"header":"Backend","skills":"Go, Postgres"}]`

	var groups SkillGroupList
	if err := json.Unmarshal([]byte(raw), &groups); err != nil {
		t.Fatalf("unmarshal grouped skills: %v", err)
	}
	if len(groups) != 1 || groups[0].Header != "Backend" || len(groups[0].Skills) != 2 {
		t.Fatalf("grouped shape not preserved: %+v", groups)
	}
}

func TestSkillGroup_MarshalsCommaJoined(t *testing.T) {
	raw, err := json.Marshal(SkillGroup{Header: "Backend", Skills: StringList{"Go", "Postgres"}})
	if err != nil {
		t.Fatalf("marshal skill group: %v", err)
	}
	want := `{"header":"Backend","skills":"Go, Postgres"}`
	if string(raw) != want {
		t.Errorf("got %s, want %s", raw, want)
	}
}
