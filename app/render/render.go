// Package render turns synthesized sections into the newsletter HTML body.
package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"os"
	"strings"
	"time"
	"unicode"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"

	"github.com/lysyi3m/daily-briefing/app/synthesis"
)

const fallbackHTML = `<html><body><h1>Daily Briefing</h1><p>There was an error generating the newsletter content.</p></body></html>`

//go:embed templates/newsletter.html
var templateFS embed.FS

type Newsletter struct {
	Date     time.Time
	Sections []synthesis.Section
	// Charts holds the content ids of inline chart images.
	Charts []string
	// Images holds the content ids of generated story images.
	Images map[string]bool
}

type Renderer struct {
	tmpl     *template.Template
	markdown goldmark.Markdown
	policy   *bluemonday.Policy
}

// NewRenderer parses the template at path, or the built-in one when path
// is empty.
func NewRenderer(path string) (*Renderer, error) {
	var (
		tmpl *template.Template
		err  error
	)
	if path == "" {
		tmpl, err = template.New("newsletter.html").ParseFS(templateFS, "templates/newsletter.html")
	} else {
		var data []byte
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read template %s: %w", path, err)
		}
		tmpl, err = template.New("newsletter.html").Parse(string(data))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse template: %w", err)
	}

	return &Renderer{
		tmpl:     tmpl,
		markdown: goldmark.New(),
		policy:   bluemonday.UGCPolicy(),
	}, nil
}

// Fallback is the body sent when the newsletter cannot be rendered.
func Fallback() string {
	return fallbackHTML
}

// ImageCID names the inline image of the n-th story (from 1) of a topic.
func ImageCID(topic string, n int) string {
	return fmt.Sprintf("story-%s-%d", slug(topic), n)
}

type viewBullet struct {
	Label string
	Text  template.HTML
}

type viewStory struct {
	Headline   string
	Summary    template.HTML
	Bullets    []viewBullet
	SourceName string
	URL        string
	Sender     string
	Subject    string
	ImageCID   string
	Caption    string
}

type viewSection struct {
	Title   string
	Stories []viewStory
}

type view struct {
	Date     string
	Sections []viewSection
	Charts   []string
}

func (r *Renderer) Render(n Newsletter) (string, error) {
	v := view{
		Date:   n.Date.Format("Monday, January 2, 2006"),
		Charts: n.Charts,
	}

	for _, section := range n.Sections {
		vs := viewSection{Title: section.Title}
		for i, story := range section.Stories {
			st := viewStory{
				Headline:   story.Headline,
				Summary:    r.inline(story.Summary),
				SourceName: story.SourceName,
				URL:        story.URL,
				Sender:     story.Sender,
				Subject:    story.Subject,
				Caption:    story.Caption,
			}
			if st.URL != "" && st.SourceName == "" {
				st.SourceName = st.URL
			}
			for _, b := range story.Bullets {
				st.Bullets = append(st.Bullets, viewBullet{Label: b.Label, Text: r.inline(b.Text)})
			}
			if cid := ImageCID(section.Title, i+1); n.Images[cid] {
				st.ImageCID = cid
			}
			vs.Stories = append(vs.Stories, st)
		}
		v.Sections = append(v.Sections, vs)
	}

	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, v); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}
	return buf.String(), nil
}

// inline renders a short markdown fragment without its paragraph wrapper.
func (r *Renderer) inline(md string) template.HTML {
	var buf bytes.Buffer
	if err := r.markdown.Convert([]byte(md), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(md))
	}
	out := strings.TrimSpace(r.policy.Sanitize(buf.String()))
	if strings.HasPrefix(out, "<p>") && strings.HasSuffix(out, "</p>") && strings.Count(out, "<p>") == 1 {
		out = strings.TrimSuffix(strings.TrimPrefix(out, "<p>"), "</p>")
	}
	return template.HTML(out)
}

func slug(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
