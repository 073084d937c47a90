package render

import (
	"fmt"
	"html/template"
	"io"
	"strings"
	"text/tabwriter"
)

var htmlView = template.Must(template.New("view").Parse(`<section class="view">
<h2>{{.Title}}</h2>
{{- if not .Rows}}
<div class="empty-message">{{.Empty}}</div>
{{- else}}
<table>
<thead><tr>{{range .Columns}}<th>{{.}}</th>{{end}}</tr></thead>
<tbody>
{{- range .Rows}}
<tr data-id="{{.ID}}"{{if .Pending}} class="pending"{{end}}>{{range .Cells}}<td>{{.}}</td>{{end}}</tr>
{{- end}}
</tbody>
</table>
{{- end}}
</section>
`))

// WriteHTML renders v as an HTML fragment. Cell text is always escaped.
func WriteHTML(w io.Writer, v View) error {
	return htmlView.Execute(w, v)
}

// WriteText renders v as a tab-aligned table for terminals. Control characters
// in cells are replaced so stored text cannot move the cursor or recolor output.
func WriteText(w io.Writer, v View) error {
	if v.Title != "" {
		if _, err := fmt.Fprintf(w, "%s\n\n", sanitize(v.Title)); err != nil {
			return err
		}
	}
	if len(v.Rows) == 0 {
		_, err := fmt.Fprintln(w, sanitize(v.Empty))
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(v.Columns, "\t"))
	for _, r := range v.Rows {
		cells := make([]string, len(r.Cells))
		for i, c := range r.Cells {
			cells[i] = sanitize(c)
		}
		line := strings.Join(cells, "\t")
		if r.Pending {
			line += "\t(pending)"
		}
		fmt.Fprintln(tw, line)
	}
	return tw.Flush()
}

func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '\t' || r == '\n' || r == '\r' {
			return ' '
		}
		if r < 0x20 || r == 0x7f {
			return '?'
		}
		return r
	}, s)
}
