package profile

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// AvatarRef 描述存放在对象存储中的头像资产。
// PublicID 用于删除远端资产；URL 用于展示。
type AvatarRef struct {
	URL          string `json:"url"`
	PublicID     string `json:"publicId"`
	OriginalName string `json:"originalName,omitempty"`
	Mimetype     string `json:"mimetype,omitempty"`
	ResourceType string `json:"resourceType,omitempty"`
}

// Personal 是档案的标量身份字段。
type Personal struct {
	Name        string     `json:"name"`
	Bio         string     `json:"bio"`
	Designation string     `json:"designation"`
	Location    string     `json:"location"`
	Website     string     `json:"website"`
	Email       string     `json:"email"`
	Phone       string     `json:"phone"`
	GitHub      string     `json:"github"`
	LinkedIn    string     `json:"linkedin"`
	Twitter     string     `json:"twitter"`
	Avatar      *AvatarRef `json:"avatar,omitempty"`
}

// StringList 接受两种历史形态：JSON 字符串数组，或逗号分隔的单个字符串。
// 序列化始终输出数组（规范形态）。
type StringList []string

func (l *StringList) UnmarshalJSON(data []byte) error {
	var items []string
	if err := json.Unmarshal(data, &items); err == nil {
		*l = trimNonEmpty(items)
		return nil
	}

	var joined string
	if err := json.Unmarshal(data, &joined); err != nil {
		return fmt.Errorf("string list: expected array or string, got %s", shorten(data))
	}
	*l = SplitList(joined)
	return nil
}

// SplitList 将逗号分隔的字符串拆为去空白的条目列表。
func SplitList(joined string) []string {
	return trimNonEmpty(strings.Split(joined, ","))
}

func trimNonEmpty(items []string) []string {
	result := make([]string, 0, len(items))
	for _, item := range items {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func shorten(data []byte) string {
	const max = 40
	if len(data) > max {
		return string(data[:max]) + "..."
	}
	return string(data)
}

// Education 表示一段教育经历。EndDate 为 nil 表示「至今」。
type Education struct {
	ID           string     `json:"id"`
	Institution  string     `json:"institution"`
	Degree       string     `json:"degree"`
	Field        string     `json:"field,omitempty"`
	StartDate    string     `json:"startDate"`
	EndDate      *string    `json:"endDate"`
	Description  string     `json:"description,omitempty"`
	Technologies StringList `json:"technologies,omitempty"`
}

// Experience 表示一段工作经历。
type Experience struct {
	ID           string     `json:"id"`
	Company      string     `json:"company"`
	Position     string     `json:"position"`
	Location     string     `json:"location,omitempty"`
	StartDate    string     `json:"startDate"`
	EndDate      *string    `json:"endDate"`
	Description  string     `json:"description,omitempty"`
	Technologies StringList `json:"technologies,omitempty"`
}

// Project 表示一个项目条目。
type Project struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	URL          string     `json:"url,omitempty"`
	StartDate    string     `json:"startDate,omitempty"`
	EndDate      *string    `json:"endDate"`
	Description  string     `json:"description,omitempty"`
	Technologies StringList `json:"technologies,omitempty"`
}

// Certification 表示一条认证记录。
type Certification struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Issuer string `json:"issuer,omitempty"`
	Date   string `json:"date,omitempty"`
	URL    string `json:"url,omitempty"`
}

// SkillGroup 是技能的规范形态：分组标题 + 技能名集合。
// 落库时 skills 以逗号拼接的字符串存储（历史契约），读取时两种形态都接受。
type SkillGroup struct {
	Header string     `json:"header"`
	Skills StringList `json:"skills"`
}

// MarshalJSON 输出落库形态：skills 为逗号拼接字符串。
func (g SkillGroup) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Header string `json:"header"`
		Skills string `json:"skills"`
	}{
		Header: g.Header,
		Skills: strings.Join(g.Skills, ", "),
	})
}

// flatSkill 是遗留的扁平技能形态 {name, level, category}。
type flatSkill struct {
	Name     string `json:"name"`
	Level    string `json:"level,omitempty"`
	Category string `json:"category,omitempty"`
}

// SkillGroupList 在反序列化时同时接受分组形态与遗留扁平形态，
// 并保证解码结果只会是分组形态。渲染层绝不会见到扁平形态。
type SkillGroupList []SkillGroup

func (l *SkillGroupList) UnmarshalJSON(data []byte) error {
	var probe []map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return fmt.Errorf("skill list: expected array, got %s", shorten(data))
	}
	if len(probe) == 0 {
		*l = SkillGroupList{}
		return nil
	}

	if _, isGrouped := probe[0]["header"]; isGrouped {
		var groups []struct {
			Header string     `json:"header"`
			Skills StringList `json:"skills"`
		}
		if err := json.Unmarshal(data, &groups); err != nil {
			return fmt.Errorf("decode grouped skills: %w", err)
		}
		result := make(SkillGroupList, 0, len(groups))
		for _, g := range groups {
			result = append(result, SkillGroup{Header: g.Header, Skills: g.Skills})
		}
		*l = result
		return nil
	}

	var flat []flatSkill
	if err := json.Unmarshal(data, &flat); err != nil {
		return fmt.Errorf("decode flat skills: %w", err)
	}
	*l = groupFlatSkills(flat)
	return nil
}

// groupFlatSkills 将遗留扁平形态按 category 归并为分组形态，保持首次出现的顺序。
func groupFlatSkills(flat []flatSkill) SkillGroupList {
	order := make([]string, 0)
	byHeader := make(map[string]*SkillGroup)
	for _, s := range flat {
		name := strings.TrimSpace(s.Name)
		if name == "" {
			continue
		}
		header := strings.TrimSpace(s.Category)
		if header == "" {
			header = "Skills"
		}
		group, ok := byHeader[header]
		if !ok {
			group = &SkillGroup{Header: header}
			byHeader[header] = group
			order = append(order, header)
		}
		group.Skills = append(group.Skills, name)
	}

	result := make(SkillGroupList, 0, len(order))
	for _, header := range order {
		result = append(result, *byHeader[header])
	}
	return result
}

// CustomFieldSchema 描述自定义分区中单个字段的名称与类型。
// 支持的类型：text、textarea、url、date、select。
type CustomFieldSchema struct {
	Name    string   `json:"name"`
	Type    string   `json:"type"`
	Options []string `json:"options,omitempty"`
}

// CustomItem 是自定义分区中的一条记录。
type CustomItem struct {
	Order  int            `json:"order"`
	Fields map[string]any `json:"fields"`
}

// CustomSection 是内置分类之外的扩展机制。
// 持久化只使用这一种形态；扁平字段形态仅是视图变换（见 customfields.go）。
type CustomSection struct {
	Name         string              `json:"name"`
	Label        string              `json:"label"`
	Order        int                 `json:"order"`
	FieldsSchema []CustomFieldSchema `json:"fieldsSchema"`
	Items        []CustomItem        `json:"items"`
}

// Document 是一份完整的档案文档（不含归属与时间戳）。
type Document struct {
	Personal       Personal        `json:"personal"`
	Education      []Education     `json:"education"`
	Experience     []Experience    `json:"experience"`
	Projects       []Project       `json:"projects"`
	Skills         SkillGroupList  `json:"skills"`
	Certifications []Certification `json:"certification"`
	CustomSections []CustomSection `json:"customSections"`
	SectionOrder   []string        `json:"sectionOrder"`
}

// Record 是落库档案的解码视图。
type Record struct {
	ID           uint      `json:"id"`
	OwnerID      uint      `json:"ownerUserId"`
	Document     Document  `json:"document"`
	ExportKey    string    `json:"-"`
	ExportStatus string    `json:"exportStatus,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// DefaultSectionOrder 是未显式排序时的分区顺序。
var DefaultSectionOrder = []string{
	"experience",
	"education",
	"projects",
	"skills",
	"certification",
}
