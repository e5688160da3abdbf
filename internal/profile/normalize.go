package profile

import (
	"strings"

	"github.com/google/uuid"
)

// Normalize 在存取边界把文档收敛为规范形态：
// - 空字符串的 endDate 归一为 nil（「至今」的唯一标记是 null）
// - 列表项缺失的 id 补齐为 uuid
// - 分区顺序为空时填入默认顺序
// - 技能/技术栈的历史形态已由解码层归并，这里只做清理
// 任何业务逻辑都只允许在规范形态上运行。
func (d *Document) Normalize() {
	d.Personal.Name = strings.TrimSpace(d.Personal.Name)
	d.Personal.Email = strings.TrimSpace(d.Personal.Email)

	for i := range d.Education {
		if d.Education[i].ID == "" {
			d.Education[i].ID = uuid.NewString()
		}
		d.Education[i].EndDate = normalizeEndDate(d.Education[i].EndDate)
	}
	for i := range d.Experience {
		if d.Experience[i].ID == "" {
			d.Experience[i].ID = uuid.NewString()
		}
		d.Experience[i].EndDate = normalizeEndDate(d.Experience[i].EndDate)
	}
	for i := range d.Projects {
		if d.Projects[i].ID == "" {
			d.Projects[i].ID = uuid.NewString()
		}
		d.Projects[i].EndDate = normalizeEndDate(d.Projects[i].EndDate)
	}
	for i := range d.Certifications {
		if d.Certifications[i].ID == "" {
			d.Certifications[i].ID = uuid.NewString()
		}
	}

	groups := make(SkillGroupList, 0, len(d.Skills))
	for _, g := range d.Skills {
		g.Header = strings.TrimSpace(g.Header)
		if g.Header == "" && len(g.Skills) == 0 {
			continue
		}
		if g.Header == "" {
			g.Header = "Skills"
		}
		groups = append(groups, g)
	}
	d.Skills = groups

	for i := range d.CustomSections {
		d.CustomSections[i].Name = strings.TrimSpace(d.CustomSections[i].Name)
		if d.CustomSections[i].Label == "" {
			d.CustomSections[i].Label = d.CustomSections[i].Name
		}
	}

	if len(d.SectionOrder) == 0 {
		d.SectionOrder = append([]string(nil), DefaultSectionOrder...)
	}
}

// normalizeEndDate 把空字符串与 null 统一收敛为 nil。
// 消费方绝不允许区别对待这两种输入。
func normalizeEndDate(end *string) *string {
	if end == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*end)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
