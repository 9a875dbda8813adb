package bsky

import (
	"regexp"
	"strings"
)

// Facet marks a byte range of post text as rich text. Offsets are UTF-8
// byte positions.
type Facet struct {
	Index    ByteSlice      `json:"index"`
	Features []FacetFeature `json:"features"`
}

type ByteSlice struct {
	ByteStart int `json:"byteStart"`
	ByteEnd   int `json:"byteEnd"`
}

type FacetFeature struct {
	Type string `json:"$type"`
	URI  string `json:"uri"`
}

const linkFeature = "app.bsky.richtext.facet#link"

var urlPattern = regexp.MustCompile(`(?i)https?://[^\s)\]}>,"']+`)

// DetectLinkFacets finds URLs in text so they render as clickable links.
// Trailing punctuation is left out of the link.
func DetectLinkFacets(text string) []Facet {
	var facets []Facet
	for _, m := range urlPattern.FindAllStringIndex(text, -1) {
		link := strings.TrimRight(text[m[0]:m[1]], ".,:;!?)")
		if link == "" {
			continue
		}
		facets = append(facets, Facet{
			Index:    ByteSlice{ByteStart: m[0], ByteEnd: m[0] + len(link)},
			Features: []FacetFeature{{Type: linkFeature, URI: link}},
		})
	}
	return facets
}
