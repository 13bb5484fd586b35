package refine

import (
	"regexp"
	"strings"
)

type replacement struct {
	pattern *regexp.Regexp
	with    string
}

// replacements run in order, each over the output of the previous one.
// "free" is matched as a whole word; the others as plain substrings.
var replacements = []replacement{
	{regexp.MustCompile(`(?i)\bfree\b`), "complimentary"},
	{regexp.MustCompile(`(?i)buy now`), "learn more"},
	{regexp.MustCompile(`(?i)click here`), "see details"},
	{regexp.MustCompile(`(?i)winner`), "selected"},
	{regexp.MustCompile(`(?i)cash`), "funds"},
}

func rewriteText(text string) string {
	for _, r := range replacements {
		text = r.pattern.ReplaceAllLiteralString(text, r.with)
	}
	return strings.TrimSpace(text)
}

// Rewrite applies the local keyword substitutions to both fields of d.
func Rewrite(d Draft) Draft {
	return Draft{
		Subject: rewriteText(d.Subject),
		Body:    rewriteText(d.Body),
	}
}
