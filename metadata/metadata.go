// Package metadata builds the Internet Archive metadata attached to every file of an archived recording.
package metadata

import (
	"fmt"
	"html"
	"io"
	"strings"

	"github.com/alanbriolat/office-hours-archiver/generic"
)

const (
	ContentType = "application/octet-stream"
	Collection  = "opensource_movies"
	Creator     = "Dan Connolly"
	Language    = "eng"
	LicenseURL  = "https://creativecommons.org/licenses/by/4.0/"
)

// Prefix of every archive metadata header.
const MetaPrefix = "x-archive-meta-"

// Subjects are the subject tags of every item.
var Subjects = []string{
	"Agoric",
	"JavaScript",
	"security",
	"programming",
	"smart contracts",
	"capability security",
	"office hours",
}

// Record is an immutable, ordered set of metadata headers.
type Record struct {
	fields generic.OrderedMap[string, string]
}

// Build returns the metadata for a recording titled title, held on date, discussed at sourceRef.
//
// The title is placed in the HTML description as given, so it must not carry markup from an untrusted source.
func Build(title, date, sourceRef string) Record {
	var fields generic.OrderedMap[string, string]
	fields.Set("Content-Type", ContentType)
	fields.Set(MetaPrefix+"collection", Collection)
	fields.Set(MetaPrefix+"title", title)
	fields.Set(MetaPrefix+"creator", Creator)
	fields.Set(MetaPrefix+"date", date)
	fields.Set(MetaPrefix+"language", Language)
	fields.Set(MetaPrefix+"licenseurl", LicenseURL)
	fields.Set(MetaPrefix+"subject", strings.Join(Subjects, ", "))
	fields.Set(MetaPrefix+"description", description(title, sourceRef))
	return Record{fields: fields}
}

func description(title, sourceRef string) string {
	return "<div>Recording of Agoric Office Hours.</div>" +
		"<div>See also GitHub discussion:</div>" +
		"<div><ul><li>" +
		fmt.Sprintf(`<a href="%s">%s</a>`, html.EscapeString(sourceRef), title) +
		"</li></ul></div>"
}

// Get returns the value of the named field.
func (r Record) Get(key string) (string, bool) {
	return r.fields.Get(key)
}

// Keys returns the field names in order.
func (r Record) Keys() []string {
	return r.fields.Keys()
}

func (r Record) Len() int {
	return r.fields.Len()
}

// Headers returns a copy of the record as request headers.
func (r Record) Headers() generic.OrderedMap[string, string] {
	return r.fields.Clone()
}

// WriteTo writes one "key: value" line per field.
func (r Record) WriteTo(w io.Writer) (int64, error) {
	var total int64
	var err error
	r.fields.Each(func(key, value string) {
		if err != nil {
			return
		}
		var n int
		n, err = fmt.Fprintf(w, "%s: %s\n", key, value)
		total += int64(n)
	})
	return total, err
}
