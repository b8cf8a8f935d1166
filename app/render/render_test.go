package render

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lysyi3m/daily-briefing/app/synthesis"
)

func sampleNewsletter() Newsletter {
	return Newsletter{
		Date: time.Date(2024, 10, 14, 6, 0, 0, 0, time.UTC),
		Sections: []synthesis.Section{
			{
				Title:       "Alternative Protein",
				ContentType: "articles",
				Stories: []synthesis.Story{{
					Headline:   "Cultivated meat approved",
					Summary:    "A **first** approval in the region.",
					Bullets:    []synthesis.Bullet{{Label: "Why it matters", Text: "Opens a new market <script>alert(1)</script>"}},
					SourceName: "Green Queen",
					URL:        "https://www.greenqueen.com.hk/post",
					Caption:    "A lab bench",
				}},
			},
			{
				Title:       "Vegan Movement",
				ContentType: "emails",
				Stories: []synthesis.Story{{
					Headline: "Campaign win",
					Summary:  "A retailer changed policy.",
					Sender:   "Alice",
					Subject:  "Good news",
				}},
			},
			{Title: "AI"},
		},
		Charts: []string{"sp500-chart"},
		Images: map[string]bool{"story-alternative-protein-1": true},
	}
}

func TestRender_DefaultTemplate(t *testing.T) {
	r, err := NewRenderer("")
	require.NoError(t, err)

	out, err := r.Render(sampleNewsletter())
	require.NoError(t, err)

	assert.Contains(t, out, "Monday, October 14, 2024")
	assert.Contains(t, out, "<h2")
	assert.Contains(t, out, "Alternative Protein")
	assert.Contains(t, out, "A <strong>first</strong> approval in the region.")
	assert.Contains(t, out, `<a href="https://www.greenqueen.com.hk/post">Green Queen</a>`)
	assert.Contains(t, out, "Email from Alice with subject &#34;Good news&#34;")
	assert.Contains(t, out, `src="cid:story-alternative-protein-1"`)
	assert.Contains(t, out, `src="cid:sp500-chart"`)
	assert.Contains(t, out, "No new items in this window.")
	assert.NotContains(t, out, "<script>")
}

func TestRender_NoImageWithoutCID(t *testing.T) {
	r, err := NewRenderer("")
	require.NoError(t, err)

	n := sampleNewsletter()
	n.Images = nil
	out, err := r.Render(n)
	require.NoError(t, err)
	assert.NotContains(t, out, "cid:story-")
}

func TestNewRenderer_CustomTemplate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.html")
	require.NoError(t, os.WriteFile(path, []byte(`{{range .Sections}}[{{.Title}}]{{end}}`), 0o644))

	r, err := NewRenderer(path)
	require.NoError(t, err)

	out, err := r.Render(sampleNewsletter())
	require.NoError(t, err)
	assert.Equal(t, "[Alternative Protein][Vegan Movement][AI]", out)
}

func TestNewRenderer_Errors(t *testing.T) {
	_, err := NewRenderer(filepath.Join(t.TempDir(), "missing.html"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "broken.html")
	require.NoError(t, os.WriteFile(path, []byte(`{{range}}`), 0o644))
	_, err = NewRenderer(path)
	assert.Error(t, err)
}

func TestFallback(t *testing.T) {
	assert.Equal(t, `<html><body><h1>Daily Briefing</h1><p>There was an error generating the newsletter content.</p></body></html>`, Fallback())
}

func TestImageCID(t *testing.T) {
	assert.Equal(t, "story-alternative-protein-2", ImageCID("Alternative Protein", 2))
	assert.Equal(t, "story-ai-1", ImageCID("AI", 1))
	assert.Equal(t, "story-effective-altruism-3", ImageCID("  Effective Altruism! ", 3))
}
