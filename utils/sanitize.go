package utils

import "github.com/microcosm-cc/bluemonday"

var (
	// ugc allows a safe subset of markup in post and comment content
	ugc = bluemonday.UGCPolicy()
	// strict strips all markup, used for nicknames and signatures
	strict = bluemonday.StrictPolicy()
)

// Sanitize cleans user generated HTML content to prevent XSS.
func Sanitize(input string) string {
	return ugc.Sanitize(input)
}

// SanitizePlain strips every tag, leaving plain text only.
func SanitizePlain(input string) string {
	return strict.Sanitize(input)
}
