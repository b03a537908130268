// Package discussion extracts the title and date of a discussion from the text of its web page.
//
// Extraction is marker based rather than structural, so it is kept behind the Extractor interface and can be swapped
// without touching anything that consumes the result.
package discussion

import (
	"fmt"
	"regexp"
	"strings"
)

// TitleDelimiter ends the discussion title inside the page <title>.
const TitleDelimiter = " · Discussion"

// ExtractionError reports that a field could not be found in the page.
type ExtractionError struct {
	Field string
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("%s not found", e.Field)
}

// Extractor finds the discussion title and date (YYYY-MM-DD) in page text, or fails with an *ExtractionError.
type Extractor interface {
	Extract(page string) (title string, date string, err error)
}

var (
	titlePattern = regexp.MustCompile(`<title>(.*?)` + regexp.QuoteMeta(TitleDelimiter))
	datePattern  = regexp.MustCompile(`<relative-time[^>]+datetime="([^"]+)"`)
)

// MarkerExtractor matches the page <title> and the first <relative-time datetime="..."> with regular expressions.
type MarkerExtractor struct{}

func (MarkerExtractor) Extract(page string) (string, string, error) {
	titleMatch := titlePattern.FindStringSubmatch(page)
	if titleMatch == nil {
		return "", "", &ExtractionError{Field: "title"}
	}
	dateMatch := datePattern.FindStringSubmatch(page)
	if dateMatch == nil {
		return "", "", &ExtractionError{Field: "date"}
	}
	return strings.TrimSpace(titleMatch[1]), datePart(dateMatch[1]), nil
}

// datePart returns the date-only prefix of an ISO 8601 timestamp.
func datePart(timestamp string) string {
	date, _, _ := strings.Cut(timestamp, "T")
	return date
}

// New returns the named Extractor: "marker" (the default when name is empty) or "html".
func New(name string) (Extractor, error) {
	switch name {
	case "", "marker":
		return MarkerExtractor{}, nil
	case "html":
		return HTMLExtractor{}, nil
	default:
		return nil, fmt.Errorf("unknown extractor %q", name)
	}
}
