package render

import (
	"fmt"
	"html/template"
	"strings"

	"phPortfolio/internal/profile"
)

// resumeTemplateString 是导出 PDF 用的单栏简历模板。
// 纸张尺寸按 A4 @ 96 DPI 固定，分区顺序与空分区规则由 Go 侧预先算好。
const resumeTemplateString = `
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <style>
        @page { size: A4; margin: 0; }
        body {
            margin: 0;
            padding: 0;
            font-family: 'Helvetica Neue', Arial, sans-serif;
            font-size: 10.5pt;
            color: #1a1a1a;
        }
        .page {
            width: 794px;
            min-height: 1122px;
            box-sizing: border-box;
            padding: 48px 56px;
            background: white;
        }
        .header h1 { margin: 0; font-size: 22pt; }
        .header .designation { margin: 2px 0 0; font-size: 12pt; color: #555; }
        .header .contact { margin-top: 6px; font-size: 9pt; color: #555; }
        .header .contact span + span::before { content: " · "; }
        .bio { margin: 14px 0 0; font-size: 10pt; color: #333; }
        .section { margin-top: 18px; }
        .section h2 {
            font-size: 11pt;
            text-transform: uppercase;
            letter-spacing: 1px;
            border-bottom: 1px solid #ccc;
            padding-bottom: 2px;
            margin: 0 0 8px;
        }
        .entry { margin-bottom: 10px; page-break-inside: avoid; }
        .entry .line {
            display: flex;
            justify-content: space-between;
            font-weight: 600;
        }
        .entry .dates { font-weight: 400; color: #666; font-size: 9pt; white-space: nowrap; }
        .entry .sub { color: #555; font-size: 9.5pt; }
        .entry .desc { margin: 3px 0 0; font-size: 9.5pt; white-space: pre-line; }
        .entry .tech { margin-top: 2px; font-size: 9pt; color: #777; }
        .skills-group { margin-bottom: 4px; font-size: 9.5pt; }
        .skills-group .header { font-weight: 600; }
        .custom-field { font-size: 9.5pt; margin: 1px 0; }
        .custom-field .name { font-weight: 600; }
        .custom-field ul { margin: 2px 0 2px 18px; padding: 0; }
        .custom-field .multiline { white-space: pre-line; }
    </style>
</head>
<body>
<div class="page">
    <div class="header">
        <h1>{{.Doc.Personal.Name}}</h1>
        {{if .Doc.Personal.Designation}}<p class="designation">{{.Doc.Personal.Designation}}</p>{{end}}
        <div class="contact">
            {{if .Doc.Personal.Email}}<span>{{.Doc.Personal.Email}}</span>{{end}}
            {{if .Doc.Personal.Phone}}<span>{{.Doc.Personal.Phone}}</span>{{end}}
            {{if .Doc.Personal.Location}}<span>{{.Doc.Personal.Location}}</span>{{end}}
            {{if .Doc.Personal.Website}}<span>{{.Doc.Personal.Website}}</span>{{end}}
            {{if .Doc.Personal.GitHub}}<span>{{.Doc.Personal.GitHub}}</span>{{end}}
            {{if .Doc.Personal.LinkedIn}}<span>{{.Doc.Personal.LinkedIn}}</span>{{end}}
        </div>
        {{if .Doc.Personal.Bio}}<p class="bio">{{.Doc.Personal.Bio}}</p>{{end}}
    </div>

    {{range .Sections}}
    <div class="section">
        <h2>{{.Title}}</h2>

        {{if eq .Key "experience"}}
            {{range $.Doc.Experience}}
            <div class="entry">
                <div class="line">
                    <span>{{.Position}}{{if .Company}} · {{.Company}}{{end}}</span>
                    <span class="dates">{{dateRange .StartDate .EndDate}}</span>
                </div>
                {{if .Location}}<div class="sub">{{.Location}}</div>{{end}}
                {{if .Description}}<p class="desc">{{.Description}}</p>{{end}}
                {{if .Technologies}}<div class="tech">{{joinList .Technologies}}</div>{{end}}
            </div>
            {{end}}
        {{else if eq .Key "education"}}
            {{range $.Doc.Education}}
            <div class="entry">
                <div class="line">
                    <span>{{.Degree}}{{if .Field}}, {{.Field}}{{end}}</span>
                    <span class="dates">{{dateRange .StartDate .EndDate}}</span>
                </div>
                <div class="sub">{{.Institution}}</div>
                {{if .Description}}<p class="desc">{{.Description}}</p>{{end}}
            </div>
            {{end}}
        {{else if eq .Key "projects"}}
            {{range $.Doc.Projects}}
            <div class="entry">
                <div class="line">
                    <span>{{.Name}}</span>
                    <span class="dates">{{dateRange .StartDate .EndDate}}</span>
                </div>
                {{if .URL}}<div class="sub">{{.URL}}</div>{{end}}
                {{if .Description}}<p class="desc">{{.Description}}</p>{{end}}
                {{if .Technologies}}<div class="tech">{{joinList .Technologies}}</div>{{end}}
            </div>
            {{end}}
        {{else if eq .Key "skills"}}
            {{range $.Doc.Skills}}
            <div class="skills-group">
                <span class="header">{{.Header}}:</span> {{joinList .Skills}}
            </div>
            {{end}}
        {{else if eq .Key "certification"}}
            {{range $.Doc.Certifications}}
            <div class="entry">
                <div class="line">
                    <span>{{.Name}}{{if .Issuer}} · {{.Issuer}}{{end}}</span>
                    <span class="dates">{{.Date}}</span>
                </div>
            </div>
            {{end}}
        {{else if .Custom}}
            {{range customItems .Custom}}
            <div class="entry">
                {{range .Fields}}
                <div class="custom-field theme-{{.Theme}}">
                    <span class="name">{{.Name}}:</span>
                    {{if eq .Kind "list"}}
                        <ul>{{range .Items}}<li>{{.}}</li>{{end}}</ul>
                    {{else if eq .Kind "link"}}
                        <span>{{.Text}}</span>
                    {{else if eq .Kind "multiline"}}
                        <span class="multiline">{{.Text}}</span>
                    {{else}}
                        <span>{{.Text}}</span>
                    {{end}}
                </div>
                {{end}}
            </div>
            {{end}}
        {{end}}
    </div>
    {{end}}
</div>
</body>
</html>
`

var resumeTemplate = template.Must(template.New("resume").Funcs(template.FuncMap{
	"dateRange": dateRange,
	"joinList":  func(items profile.StringList) string { return strings.Join(items, ", ") },
	"customItems": func(section *profile.CustomSection) []customItemView {
		return buildCustomItems(*section)
	},
}).Parse(resumeTemplateString))

// Resume 把档案文档渲染为单栏简历 HTML，交给无头浏览器导出 PDF。
func Resume(doc profile.Document) (string, error) {
	view := ViewModel(doc)
	data := struct {
		Doc      profile.Document
		Sections []sectionView
	}{
		Doc:      view,
		Sections: orderedSections(view),
	}

	var b strings.Builder
	if err := resumeTemplate.Execute(&b, data); err != nil {
		return "", fmt.Errorf("render resume template: %w", err)
	}
	return b.String(), nil
}
