package export

import (
	"bytes"
	"html/template"
	"strings"
	"time"
)

var reportTemplate *template.Template

func init() {
	funcMap := template.FuncMap{
		"lower": strings.ToLower,
		"formatDate": func(t time.Time, layout string) string {
			return t.Format(layout)
		},
	}
	reportTemplate = template.Must(template.New("report").Funcs(funcMap).Parse(reportHTML))
}

// TemplateData holds data for report rendering.
type TemplateData struct {
	ProjectName     string
	ClientName      string
	Status          string
	OverallProgress int
	GeneratedAt     time.Time
	Milestones      []TemplateMilestone
	Tasks           []TemplateTask
	Documents       []TemplateDocument
}

type TemplateMilestone struct {
	Name   string
	Status string
}

type TemplateTask struct {
	Title    string
	Assignee string
	Status   string
	DueDate  string
}

type TemplateDocument struct {
	Name       string
	Type       string
	Status     string
	Version    int
	UploadedBy string
}

// RenderReportHTML renders the progress report template.
func RenderReportHTML(data TemplateData) (string, error) {
	var buf bytes.Buffer
	if err := reportTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

const reportHTML = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <title>{{.ProjectName}} Progress Report</title>
  <style>
    body { font-family: Arial, sans-serif; line-height: 1.6; max-width: 800px; margin: 2rem auto; color: #1a1a1a; }
    h1 { border-bottom: 2px solid #1a1a1a; padding-bottom: 0.5rem; }
    .meta { color: #666; font-size: 0.9em; margin-bottom: 2rem; }
    .progress-bar { background: #eee; border-radius: 4px; height: 18px; overflow: hidden; margin: 0.5rem 0 2rem; }
    .progress-fill { background: #1a1a1a; height: 100%; }
    table { width: 100%; border-collapse: collapse; margin-bottom: 2rem; }
    th, td { text-align: left; padding: 6px 8px; border-bottom: 1px solid #eee; font-size: 0.95em; }
    th { border-bottom: 2px solid #1a1a1a; }
    .status { text-transform: capitalize; }
  </style>
</head>
<body>
  <h1>{{.ProjectName}}</h1>
  <div class="meta">
    Client: {{.ClientName}} | Status: <span class="status">{{.Status}}</span> | Generated {{formatDate .GeneratedAt "Jan 2, 2006"}}
  </div>

  <h2>Overall Progress: {{.OverallProgress}}%</h2>
  <div class="progress-bar"><div class="progress-fill" style="width: {{.OverallProgress}}%"></div></div>

  {{if .Milestones}}
  <h2>Milestones</h2>
  <table>
    <tr><th>Milestone</th><th>Status</th></tr>
    {{range .Milestones}}<tr><td>{{.Name}}</td><td class="status">{{.Status}}</td></tr>{{end}}
  </table>
  {{end}}

  {{if .Tasks}}
  <h2>Tasks</h2>
  <table>
    <tr><th>Task</th><th>Assignee</th><th>Status</th><th>Due</th></tr>
    {{range .Tasks}}<tr><td>{{.Title}}</td><td>{{.Assignee}}</td><td class="status">{{.Status}}</td><td>{{.DueDate}}</td></tr>{{end}}
  </table>
  {{end}}

  {{if .Documents}}
  <h2>Documents</h2>
  <table>
    <tr><th>Name</th><th>Type</th><th>Status</th><th>Version</th><th>Uploaded by</th></tr>
    {{range .Documents}}<tr><td>{{.Name}}</td><td>{{.Type}}</td><td class="status">{{.Status}}</td><td>v{{.Version}}</td><td>{{.UploadedBy}}</td></tr>{{end}}
  </table>
  {{end}}
</body>
</html>`
