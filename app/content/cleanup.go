package content

import (
	"fmt"
	"regexp"
	"strings"
)

// Cleanup removes source-specific boilerplate from extracted text, such as
// a "Published on ..." byline or a trailing "Discuss" link.
type Cleanup []*regexp.Regexp

func CompileCleanup(patterns []string) (Cleanup, error) {
	cleanup := make(Cleanup, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid cleanup pattern %q: %w", p, err)
		}
		cleanup = append(cleanup, re)
	}
	return cleanup, nil
}

func (c Cleanup) Apply(text string) string {
	for _, re := range c {
		text = re.ReplaceAllString(text, "")
	}
	return strings.TrimSpace(text)
}
