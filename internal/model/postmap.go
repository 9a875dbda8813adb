package model

import (
	"encoding/json"
	"math"
	"strconv"
)

// PostMap is a post held as a plain key/value mapping, as decoded from
// exported JSON. Keys follow the snake_case export format:
//
//	like_count, repost_count, reply_count, uri, indexed_at, created_at,
//	record_text, record{text, created_at}
//
// camelCase spellings of the same keys are accepted too.
type PostMap map[string]any

func (m PostMap) Likes() int   { return intValue(m.lookup("like_count", "likeCount")) }
func (m PostMap) Reposts() int { return intValue(m.lookup("repost_count", "repostCount")) }
func (m PostMap) Replies() int { return intValue(m.lookup("reply_count", "replyCount")) }

func (m PostMap) PostURI() string { return stringValue(m.lookup("uri")) }

func (m PostMap) IndexedTime() string {
	return stringValue(m.lookup("indexed_at", "indexedAt"))
}

func (m PostMap) CreatedTime() string {
	if s := stringValue(m.record().lookup("created_at", "createdAt")); s != "" {
		return s
	}
	return stringValue(m.lookup("created_at", "createdAt"))
}

func (m PostMap) Body() (string, bool) {
	s := stringValue(m.lookup("record_text"))
	if s == "" {
		s = stringValue(m.record().lookup("text"))
	}
	return s, s != ""
}

func (m PostMap) record() PostMap {
	switch r := m.lookup("record").(type) {
	case map[string]any:
		return PostMap(r)
	case PostMap:
		return r
	}
	return nil
}

func (m PostMap) lookup(keys ...string) any {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

func intValue(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int32:
		return int(n)
	case int64:
		return int(n)
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return 0
		}
		return int(n)
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return int(i)
		}
	case string:
		if i, err := strconv.Atoi(n); err == nil {
			return i
		}
	}
	return 0
}

func stringValue(v any) string {
	s, _ := v.(string)
	return s
}
