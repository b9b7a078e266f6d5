package report

import (
	"fmt"
	"html/template"
	"strings"

	"leasing-sync/internal/models"
)

const htmlSource = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<style>
  body { font-family: Arial, Helvetica, sans-serif; color: #222; }
  table { border-collapse: collapse; margin: 12px 0; }
  th, td { border: 1px solid #ccc; padding: 4px 10px; text-align: left; }
  th { background: #f2f2f2; }
  h2 { border-bottom: 1px solid #ddd; padding-bottom: 4px; }
  .meta { color: #555; }
</style>
</head>
<body>
<h1>Daily Reconciliation Report</h1>
<p class="meta">
  Batch: {{.BatchID}}<br>
  Date: {{.Date}}<br>
  Status: {{.Status}}{{if .Properties}}<br>
  Properties processed: {{join .Properties ", "}}{{end}}
</p>
{{if .Summary}}
<h2>Property Summaries</h2>
<table>
  <tr><th>Property</th>{{range .Columns}}<th>{{.}}</th>{{end}}</tr>
  {{range .Summary}}<tr><td>{{.Property}}</td>{{range .Cells}}<td>{{.}}</td>{{end}}</tr>
  {{end}}
</table>
{{end}}
{{range .Sections}}
<h2>{{.Title}}</h2>
<ul>
  {{range .Items}}<li>{{.}}</li>
  {{end}}
</ul>
{{end}}
{{if .Skips}}
<h2>Skipped Rows</h2>
<ul>
  {{range .Skips}}<li>{{.}}</li>
  {{end}}
</ul>
{{end}}
</body>
</html>
`

var htmlTmpl = template.Must(template.New("report").Funcs(template.FuncMap{
	"join": strings.Join,
}).Parse(htmlSource))

// RenderHTML produces the email-ready HTML run report.
func RenderHTML(run *models.SyncRun, events []models.SolverEvent, known map[string]struct{}) (string, error) {
	v := buildView(run, events, known)
	data := struct {
		view
		Columns []string
	}{view: v, Columns: summaryColumns}

	var b strings.Builder
	if err := htmlTmpl.Execute(&b, data); err != nil {
		return "", fmt.Errorf("render html report: %w", err)
	}
	return b.String(), nil
}
