package ingest

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/russross/blackfriday/v2"
	"golang.org/x/net/html"
)

var urlPattern = regexp.MustCompile(`https?://\S+|www\.\S+`)

// StripMarkup reduces a markdown/HTML journal entry to its visible text.
// Link text is kept, link targets and bare URLs are dropped, and whitespace
// is collapsed to single spaces.
func StripMarkup(text string) string {
	rendered := blackfriday.Run([]byte(text), blackfriday.WithNoExtensions())

	var parts []string
	z := html.NewTokenizer(bytes.NewReader(rendered))
	for {
		switch z.Next() {
		case html.ErrorToken:
			plain := urlPattern.ReplaceAllString(strings.Join(parts, " "), "")
			return strings.Join(strings.Fields(plain), " ")
		case html.TextToken:
			parts = append(parts, string(z.Text()))
		}
	}
}
