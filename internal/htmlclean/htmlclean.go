// Package htmlclean turns crawled job-description HTML into the markdown used
// for display and embedding input.
package htmlclean

import (
	"fmt"
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
)

var blankRuns = regexp.MustCompile(`\n{3,}`)

type Cleaner struct {
	converter *md.Converter
	maxRunes  int
}

// New creates a cleaner. maxRunes <= 0 disables truncation.
func New(maxRunes int) *Cleaner {
	conv := md.NewConverter("", true, nil)
	conv.Remove("script", "style", "noscript", "iframe", "form")
	return &Cleaner{converter: conv, maxRunes: maxRunes}
}

// ToMarkdown converts html to markdown. Input without markup is only trimmed.
func (c *Cleaner) ToMarkdown(html string) (string, error) {
	html = strings.TrimSpace(html)
	if html == "" {
		return "", nil
	}

	out := html
	if strings.Contains(html, "<") {
		converted, err := c.converter.ConvertString(html)
		if err != nil {
			return "", fmt.Errorf("convert html: %w", err)
		}
		out = converted
	}

	out = strings.ReplaceAll(out, "\r\n", "\n")
	out = blankRuns.ReplaceAllString(out, "\n\n")
	out = strings.TrimSpace(out)

	if c.maxRunes > 0 {
		if r := []rune(out); len(r) > c.maxRunes {
			out = strings.TrimSpace(string(r[:c.maxRunes]))
		}
	}
	return out, nil
}
