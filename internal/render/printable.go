package render

import (
	"fmt"
	"html/template"
	"strings"

	"phPortfolio/internal/profile"
)

// printableTemplateString 是独立的可打印作品集页面：内联全部样式，
// 加载完成后自动触发浏览器打印对话框。所有用户文本经模板转义输出。
const printableTemplateString = `
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>{{.Doc.Personal.Name}}</title>
    <style>
        body {
            margin: 0;
            padding: 32px;
            font-family: Georgia, 'Times New Roman', serif;
            color: #222;
            max-width: 820px;
            margin: 0 auto;
        }
        .header { display: flex; align-items: center; gap: 24px; }
        .header img { width: 96px; height: 96px; border-radius: 50%; object-fit: cover; }
        .header h1 { margin: 0; font-size: 28px; }
        .header .designation { margin: 2px 0 0; color: #666; }
        .contact { margin-top: 8px; font-size: 13px; color: #666; }
        .contact span + span::before { content: " | "; }
        .bio { margin-top: 16px; color: #444; }
        .section { margin-top: 28px; }
        .section h2 { font-size: 18px; border-bottom: 2px solid #222; padding-bottom: 4px; }
        .entry { margin-bottom: 14px; }
        .entry .line { display: flex; justify-content: space-between; font-weight: bold; }
        .entry .dates { font-weight: normal; color: #888; font-size: 13px; }
        .entry .sub { color: #666; font-size: 14px; }
        .entry .desc { margin: 4px 0 0; font-size: 14px; white-space: pre-line; }
        .entry .tech { margin-top: 2px; font-size: 13px; color: #888; }
        .skills-group { margin-bottom: 6px; }
        .skills-group .header { font-weight: bold; }
        .custom-field { margin: 2px 0; font-size: 14px; }
        .custom-field .name { font-weight: bold; }
        .custom-field ul { margin: 4px 0 4px 20px; padding: 0; }
        .custom-field .multiline { white-space: pre-line; }
        .theme-muted { color: #888; }
        .theme-accent a { color: #0a58ca; }
        @media print {
            body { padding: 0; }
        }
    </style>
</head>
<body>
    <div class="header">
        {{if .AvatarURL}}<img src="{{.AvatarURL}}" alt="avatar">{{end}}
        <div>
            <h1>{{.Doc.Personal.Name}}</h1>
            {{if .Doc.Personal.Designation}}<p class="designation">{{.Doc.Personal.Designation}}</p>{{end}}
            <div class="contact">
                {{if .Doc.Personal.Email}}<span>{{.Doc.Personal.Email}}</span>{{end}}
                {{if .Doc.Personal.Phone}}<span>{{.Doc.Personal.Phone}}</span>{{end}}
                {{if .Doc.Personal.Location}}<span>{{.Doc.Personal.Location}}</span>{{end}}
                {{if .Doc.Personal.Website}}<span>{{.Doc.Personal.Website}}</span>{{end}}
            </div>
        </div>
    </div>
    {{if .Doc.Personal.Bio}}<p class="bio">{{.Doc.Personal.Bio}}</p>{{end}}

    {{range .Sections}}
    <div class="section">
        <h2>{{.Title}}</h2>

        {{if eq .Key "experience"}}
            {{range $.Doc.Experience}}
            <div class="entry">
                <div class="line">
                    <span>{{.Position}}{{if .Company}} at {{.Company}}{{end}}</span>
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
                {{if .URL}}<div class="sub"><a href="{{.URL}}">{{.URL}}</a></div>{{end}}
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
                {{if .URL}}<div class="sub"><a href="{{.URL}}">{{.URL}}</a></div>{{end}}
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
                        <a href="{{.Text}}">{{.Text}}</a>
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

    <script>
        window.addEventListener('load', function () {
            window.print();
        });
    </script>
</body>
</html>
`

var printableTemplate = template.Must(template.New("printable").Funcs(template.FuncMap{
	"dateRange": dateRange,
	"joinList":  func(items profile.StringList) string { return strings.Join(items, ", ") },
	"customItems": func(section *profile.CustomSection) []customItemView {
		return buildCustomItems(*section)
	},
}).Parse(printableTemplateString))

// Printable 渲染独立的自打印作品集页面。
func Printable(doc profile.Document) (string, error) {
	view := ViewModel(doc)
	data := struct {
		Doc       profile.Document
		AvatarURL string
		Sections  []sectionView
	}{
		Doc:      view,
		Sections: orderedSections(view),
	}
	if view.Personal.Avatar != nil {
		data.AvatarURL = view.Personal.Avatar.URL
	}

	var b strings.Builder
	if err := printableTemplate.Execute(&b, data); err != nil {
		return "", fmt.Errorf("render printable template: %w", err)
	}
	return b.String(), nil
}
