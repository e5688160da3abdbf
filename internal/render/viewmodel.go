package render

import (
	"sort"
	"strings"

	"phPortfolio/internal/profile"
)

// ViewModel 返回文档的渲染视图副本：所有可选列表补为空切片，
// 可选标量补为空字符串。下游模板与前端视图不需要判空。
func ViewModel(doc profile.Document) profile.Document {
	if doc.Education == nil {
		doc.Education = []profile.Education{}
	}
	if doc.Experience == nil {
		doc.Experience = []profile.Experience{}
	}
	if doc.Projects == nil {
		doc.Projects = []profile.Project{}
	}
	if doc.Skills == nil {
		doc.Skills = profile.SkillGroupList{}
	}
	if doc.Certifications == nil {
		doc.Certifications = []profile.Certification{}
	}
	if doc.CustomSections == nil {
		doc.CustomSections = []profile.CustomSection{}
	}
	if len(doc.SectionOrder) == 0 {
		doc.SectionOrder = append([]string{}, profile.DefaultSectionOrder...)
	}

	for i := range doc.Education {
		if doc.Education[i].Technologies == nil {
			doc.Education[i].Technologies = profile.StringList{}
		}
	}
	for i := range doc.Experience {
		if doc.Experience[i].Technologies == nil {
			doc.Experience[i].Technologies = profile.StringList{}
		}
	}
	for i := range doc.Projects {
		if doc.Projects[i].Technologies == nil {
			doc.Projects[i].Technologies = profile.StringList{}
		}
	}
	for i := range doc.Skills {
		if doc.Skills[i].Skills == nil {
			doc.Skills[i].Skills = profile.StringList{}
		}
	}
	for i := range doc.CustomSections {
		if doc.CustomSections[i].FieldsSchema == nil {
			doc.CustomSections[i].FieldsSchema = []profile.CustomFieldSchema{}
		}
		if doc.CustomSections[i].Items == nil {
			doc.CustomSections[i].Items = []profile.CustomItem{}
		}
	}

	return doc
}

// sectionView 是渲染顺序中的一个分区。builtin 分区 Custom 为 nil。
type sectionView struct {
	Key    string
	Title  string
	Custom *profile.CustomSection
}

var builtinSectionTitles = map[string]string{
	"experience":    "Experience",
	"education":     "Education",
	"projects":      "Projects",
	"skills":        "Skills",
	"certification": "Certifications",
}

// orderedSections 按 SectionOrder 展开 builtin 分区，跳过空分区，
// 自定义分区按其 Order 追加在末尾。两个渲染器共用同一顺序。
func orderedSections(doc profile.Document) []sectionView {
	order := doc.SectionOrder
	if len(order) == 0 {
		order = profile.DefaultSectionOrder
	}

	sections := make([]sectionView, 0, len(order)+len(doc.CustomSections))
	seen := make(map[string]bool, len(order))
	for _, key := range order {
		key = strings.ToLower(strings.TrimSpace(key))
		title, ok := builtinSectionTitles[key]
		if !ok || seen[key] {
			continue
		}
		seen[key] = true
		if sectionEmpty(doc, key) {
			continue
		}
		sections = append(sections, sectionView{Key: key, Title: title})
	}

	customs := make([]profile.CustomSection, len(doc.CustomSections))
	copy(customs, doc.CustomSections)
	sort.SliceStable(customs, func(i, j int) bool { return customs[i].Order < customs[j].Order })
	for i := range customs {
		if len(customs[i].Items) == 0 {
			continue
		}
		section := customs[i]
		sections = append(sections, sectionView{Key: "custom", Title: section.Label, Custom: &section})
	}

	return sections
}

func sectionEmpty(doc profile.Document, key string) bool {
	switch key {
	case "experience":
		return len(doc.Experience) == 0
	case "education":
		return len(doc.Education) == 0
	case "projects":
		return len(doc.Projects) == 0
	case "skills":
		return len(doc.Skills) == 0
	case "certification":
		return len(doc.Certifications) == 0
	}
	return true
}

// dateRange 渲染时间区间；EndDate 为 nil 的条目显示 Present。
func dateRange(start string, end *string) string {
	start = strings.TrimSpace(start)
	if end == nil {
		if start == "" {
			return ""
		}
		return start + " – Present"
	}
	trimmedEnd := strings.TrimSpace(*end)
	switch {
	case start == "" && trimmedEnd == "":
		return ""
	case start == "":
		return trimmedEnd
	case trimmedEnd == "":
		return start + " – Present"
	}
	return start + " – " + trimmedEnd
}
