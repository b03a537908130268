package discussion

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// HTMLExtractor tokenizes the page instead of matching raw text, so attribute order, quoting and entities don't matter.
// It looks for the same things as MarkerExtractor: the <title> text up to TitleDelimiter, and the datetime attribute
// of the first <relative-time> element that has one.
type HTMLExtractor struct{}

func (HTMLExtractor) Extract(page string) (string, string, error) {
	var title, date string
	var titleFound, dateFound, inTitle bool

	z := html.NewTokenizer(strings.NewReader(page))
	for !(titleFound && dateFound) {
		tt := z.Next()
		if tt == html.ErrorToken {
			break
		}
		token := z.Token()
		switch tt {
		case html.StartTagToken, html.SelfClosingTagToken:
			if token.DataAtom == atom.Title && !titleFound {
				inTitle = true
			} else if token.Data == "relative-time" && !dateFound {
				for _, attr := range token.Attr {
					if attr.Key == "datetime" && attr.Val != "" {
						date = datePart(attr.Val)
						dateFound = true
						break
					}
				}
			}
		case html.TextToken:
			if inTitle {
				if before, _, ok := strings.Cut(token.Data, TitleDelimiter); ok {
					title = strings.TrimSpace(before)
					titleFound = true
				}
			}
		case html.EndTagToken:
			if token.DataAtom == atom.Title {
				inTitle = false
			}
		}
	}

	if !titleFound {
		return "", "", &ExtractionError{Field: "title"}
	}
	if !dateFound {
		return "", "", &ExtractionError{Field: "date"}
	}
	return title, date, nil
}
