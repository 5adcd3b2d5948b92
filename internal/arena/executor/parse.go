package executor

import (
	"regexp"
	"strings"
)

var (
	leadingFence  = regexp.MustCompile(`(?i)^` + "```" + `(?:html|css|javascript|js)?\n?`)
	trailingFence = regexp.MustCompile(`\n?` + "```" + `$`)
	styleBlock    = regexp.MustCompile(`(?s)<style>(.*?)</style>`)
)

// Result is the structured output of one generation
type Result struct {
	HTML string
	CSS  string
}

// ParseOutput splits raw model text into markup and stylesheet.
// It is best effort and never rejects text.
func ParseOutput(raw string) Result {
	content := leadingFence.ReplaceAllString(raw, "")
	content = trailingFence.ReplaceAllString(content, "")

	var res Result
	loc := styleBlock.FindStringSubmatchIndex(content)
	if loc == nil {
		res.HTML = strings.TrimSpace(content)
		return res
	}
	res.CSS = strings.TrimSpace(content[loc[2]:loc[3]])
	res.HTML = strings.TrimSpace(content[:loc[0]] + content[loc[1]:])
	return res
}
