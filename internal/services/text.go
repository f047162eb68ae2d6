package services

import (
	"html"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/tbourn/go-forum-backend/internal/domain"
)

var (
	strictPolicy = bluemonday.StrictPolicy()
	whitespaceRE = regexp.MustCompile(`[ \t\r\n]+`)
	usernameRE   = regexp.MustCompile(`^[\p{L}\p{N}_.@+-]+$`)
)

// cleanText strips markup and surrounding whitespace. The result is stored
// as plain text, so entities produced by the sanitizer are decoded again.
func cleanText(s string) string {
	return strings.TrimSpace(html.UnescapeString(strictPolicy.Sanitize(s)))
}

// cleanLine is cleanText plus collapsing internal whitespace, for single-line
// fields such as names and topics.
func cleanLine(s string) string {
	return whitespaceRE.ReplaceAllString(cleanText(s), " ")
}

// normalizeUsername lowercases a username. Usernames are compared and stored
// only in this form.
func normalizeUsername(s string) string {
	return cases.Lower(language.Und).String(strings.TrimSpace(s))
}

// normalizeEmail lowercases an email address for storage and lookup.
func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// topicKey folds a topic name so lookups ignore case.
func topicKey(name string) string {
	return domain.SearchKey(name)
}

func tooLong(s string, max int) bool {
	return max > 0 && utf8.RuneCountInString(s) > max
}
