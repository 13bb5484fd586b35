// Package spam scores message text against a fixed list of marketing keywords.
package spam

import "strings"

const (
	subjectWeight = 2
	bodyWeight    = 1
)

// Keywords are matched as lower-case substrings, so "cash" also matches "cashier".
var Keywords = []string{"free", "buy now", "click here", "winner", "cash"}

// Score adds 2 for every keyword found in subject and 1 for every keyword found in
// body, ignoring case. A keyword present in both contributes 3.
func Score(subject, body string) int {
	subject = strings.ToLower(subject)
	body = strings.ToLower(body)

	score := 0
	for _, kw := range Keywords {
		if strings.Contains(subject, kw) {
			score += subjectWeight
		}
		if strings.Contains(body, kw) {
			score += bodyWeight
		}
	}
	return score
}
