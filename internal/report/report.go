// Package report renders the weakest-items study sheet as plain text or HTML.
package report

import (
	"bytes"
	"fmt"
	"html/template"
	"io"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"vocabtrainer/internal/session"
)

// Report is a rendered weakest-items summary for one skill.
type Report struct {
	Title   string
	Entries []session.WeakEntry
}

// WriteText writes the report as aligned terminal text.
func WriteText(w io.Writer, rep Report) error {
	if _, err := fmt.Fprintf(w, "%s\n", rep.Title); err != nil {
		return err
	}
	if len(rep.Entries) == 0 {
		_, err := fmt.Fprintln(w, "  (no weak words)")
		return err
	}
	for i, e := range rep.Entries {
		if _, err := fmt.Fprintf(w, "  %2d. %-20s %s (score %d)\n", i+1, e.Item.Word, e.Item.Meaning, e.Score); err != nil {
			return err
		}
	}
	return nil
}

// HTMLWriter renders reports as standalone HTML pages. Item notes are
// markdown and run through goldmark.
type HTMLWriter struct {
	markdown goldmark.Markdown
	template *template.Template
}

// NewHTMLWriter creates an HTMLWriter.
func NewHTMLWriter() *HTMLWriter {
	return &HTMLWriter{
		markdown: goldmark.New(goldmark.WithExtensions(extension.GFM)),
		template: template.Must(template.New("report").Parse(reportTemplate)),
	}
}

type htmlEntry struct {
	Rank    int
	Word    string
	Meaning string
	Example string
	Score   int
	Notes   template.HTML
}

type htmlPage struct {
	Title   string
	Entries []htmlEntry
}

// WriteHTML writes one or more reports as a single HTML page.
func (hw *HTMLWriter) WriteHTML(w io.Writer, title string, reps ...Report) error {
	var pages []htmlPage
	for _, rep := range reps {
		page := htmlPage{Title: rep.Title}
		for i, e := range rep.Entries {
			notes, err := hw.renderNotes(e.Item.Notes)
			if err != nil {
				return err
			}
			page.Entries = append(page.Entries, htmlEntry{
				Rank:    i + 1,
				Word:    e.Item.Word,
				Meaning: e.Item.Meaning,
				Example: e.Item.ExampleEN,
				Score:   e.Score,
				Notes:   notes,
			})
		}
		pages = append(pages, page)
	}
	return hw.template.Execute(w, struct {
		Title    string
		Sections []htmlPage
	}{Title: title, Sections: pages})
}

func (hw *HTMLWriter) renderNotes(notes string) (template.HTML, error) {
	if notes == "" {
		return "", nil
	}
	var buf bytes.Buffer
	if err := hw.markdown.Convert([]byte(notes), &buf); err != nil {
		return "", fmt.Errorf("failed to render notes: %w", err)
	}
	return template.HTML(buf.String()), nil
}

const reportTemplate = `<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <title>{{.Title}}</title>
  <style>
    body {
      font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', sans-serif;
      margin: 0 auto;
      padding: 2rem;
      max-width: 720px;
      line-height: 1.6;
    }
    h1 { font-size: 1.6rem; }
    h2 { font-size: 1.2rem; margin-top: 2rem; }
    table { border-collapse: collapse; width: 100%; }
    th, td { border-bottom: 1px solid #ddd; padding: 0.5rem; text-align: left; }
    .score { text-align: right; }
    .notes { color: #555; font-size: 0.9rem; }
  </style>
</head>
<body>
  <h1>{{.Title}}</h1>
  {{range .Sections}}
  <h2>{{.Title}}</h2>
  {{if .Entries}}
  <table>
    <tr><th>#</th><th>Word</th><th>Meaning</th><th>Example</th><th class="score">Score</th></tr>
    {{range .Entries}}
    <tr>
      <td>{{.Rank}}</td>
      <td><strong>{{.Word}}</strong></td>
      <td>{{.Meaning}}{{if .Notes}}<div class="notes">{{.Notes}}</div>{{end}}</td>
      <td>{{.Example}}</td>
      <td class="score">{{.Score}}</td>
    </tr>
    {{end}}
  </table>
  {{else}}
  <p>No weak words.</p>
  {{end}}
  {{end}}
</body>
</html>
`
