// Package identifier parses and canonicalizes participant, document type and
// process identifiers.
package identifier

import (
	"net/url"
	"strings"
)

// separator joins scheme and value in the URI form.
const separator = "::"

// Participant names a network participant.
type Participant struct {
	Scheme string `json:"scheme"`
	Value  string `json:"value"`
}

// DocumentType names a kind of business document.
type DocumentType struct {
	Scheme string `json:"scheme"`
	Value  string `json:"value"`
}

// Process names the business process a document is exchanged under.
type Process struct {
	Scheme string `json:"scheme"`
	Value  string `json:"value"`
}

func uriEncode(scheme, value string) string {
	return scheme + separator + value
}

// URIEncoded returns "scheme::value". Service group IDs use this form.
func (p Participant) URIEncoded() string { return uriEncode(p.Scheme, p.Value) }

// URIPercentEncoded escapes the URI form for use as a single path segment.
func (p Participant) URIPercentEncoded() string { return url.PathEscape(p.URIEncoded()) }

func (p Participant) IsZero() bool { return p.Scheme == "" && p.Value == "" }

func (p Participant) String() string { return p.URIEncoded() }

func (d DocumentType) URIEncoded() string { return uriEncode(d.Scheme, d.Value) }

func (d DocumentType) URIPercentEncoded() string { return url.PathEscape(d.URIEncoded()) }

func (d DocumentType) IsZero() bool { return d.Scheme == "" && d.Value == "" }

func (d DocumentType) String() string { return d.URIEncoded() }

func (p Process) URIEncoded() string { return uriEncode(p.Scheme, p.Value) }

func (p Process) IsZero() bool { return p.Scheme == "" && p.Value == "" }

func (p Process) String() string { return p.URIEncoded() }

// split breaks "scheme::value" at the first separator. ok is false when no
// separator is present.
func split(s string) (scheme, value string, ok bool) {
	scheme, value, ok = strings.Cut(s, separator)
	return scheme, value, ok
}
