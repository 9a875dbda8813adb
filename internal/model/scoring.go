package model

import (
	"time"

	"hypebot/internal/logging"
)

// Engagement is likes + reposts + replies.
func Engagement(p Post) int {
	if p == nil {
		return 0
	}
	return p.Likes() + p.Reposts() + p.Replies()
}

// Ratio is replies per like with the like count floored at 1, so a post with
// no likes scores its raw reply count.
func Ratio(p Post) float64 {
	if p == nil {
		return 0
	}
	likes := p.Likes()
	if likes < 1 {
		likes = 1
	}
	return float64(p.Replies()) / float64(likes)
}

// Timestamp is a parsed ISO-8601 time. Naive is set when the source string
// carried no zone; Time then holds the wall clock in UTC.
type Timestamp struct {
	Time  time.Time
	Naive bool
}

var (
	zonedLayouts = []string{
		time.RFC3339Nano,
		"2006-01-02T15:04:05Z0700",
		"2006-01-02 15:04:05Z07:00",
		"2006-01-02T15:04Z07:00",
	}
	naiveLayouts = []string{
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04",
		"2006-01-02",
	}
)

// ParseTimestamp parses s as ISO-8601, with or without zone information.
func ParseTimestamp(s string) (Timestamp, bool) {
	if s == "" {
		return Timestamp{}, false
	}
	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Timestamp{Time: t}, true
		}
	}
	for _, layout := range naiveLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Timestamp{Time: t, Naive: true}, true
		}
	}
	return Timestamp{}, false
}

// PostTimestamp returns the post's indexedAt time, falling back to the
// record's createdAt. Missing or unparseable values yield ok=false.
func PostTimestamp(p Post) (Timestamp, bool) {
	if p == nil {
		return Timestamp{}, false
	}
	raw := p.IndexedTime()
	if raw == "" {
		raw = p.CreatedTime()
	}
	if raw == "" {
		return Timestamp{}, false
	}
	ts, ok := ParseTimestamp(raw)
	if !ok {
		logging.Warn("post_date_unparseable", map[string]any{"value": raw, "uri": p.PostURI()})
	}
	return ts, ok
}
