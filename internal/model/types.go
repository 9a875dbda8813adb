package model

// Post is the read-only view of a post that scoring and composition work on.
// Every accessor tolerates missing data: counters default to 0 and strings
// to "".
type Post interface {
	Likes() int
	Reposts() int
	Replies() int
	PostURI() string
	// IndexedTime is the raw indexedAt timestamp, "" when absent.
	IndexedTime() string
	// CreatedTime is the raw record createdAt timestamp, "" when absent.
	CreatedTime() string
	// Body returns the post text; ok is false when there is none.
	Body() (text string, ok bool)
}

// Author identifies the account behind a post or notification.
type Author struct {
	DID    string `json:"did"`
	Handle string `json:"handle"`
}

// PostRecord is the app.bsky.feed.post record embedded in a post view.
type PostRecord struct {
	Type      string `json:"$type,omitempty"`
	Text      string `json:"text"`
	CreatedAt string `json:"createdAt"`
}

// PostView is a post as returned by the feed endpoints.
type PostView struct {
	URI         string      `json:"uri"`
	CID         string      `json:"cid"`
	Author      Author      `json:"author"`
	Record      *PostRecord `json:"record,omitempty"`
	LikeCount   int         `json:"likeCount"`
	RepostCount int         `json:"repostCount"`
	ReplyCount  int         `json:"replyCount"`
	IndexedAt   string      `json:"indexedAt"`
}

func (p *PostView) Likes() int {
	if p == nil {
		return 0
	}
	return p.LikeCount
}

func (p *PostView) Reposts() int {
	if p == nil {
		return 0
	}
	return p.RepostCount
}

func (p *PostView) Replies() int {
	if p == nil {
		return 0
	}
	return p.ReplyCount
}

func (p *PostView) PostURI() string {
	if p == nil {
		return ""
	}
	return p.URI
}

func (p *PostView) IndexedTime() string {
	if p == nil {
		return ""
	}
	return p.IndexedAt
}

func (p *PostView) CreatedTime() string {
	if p == nil || p.Record == nil {
		return ""
	}
	return p.Record.CreatedAt
}

func (p *PostView) Body() (string, bool) {
	if p == nil || p.Record == nil || p.Record.Text == "" {
		return "", false
	}
	return p.Record.Text, true
}

// Mention is a notification whose reason is "mention".
type Mention struct {
	URI       string `json:"uri"`
	CID       string `json:"cid"`
	Author    Author `json:"author"`
	Reason    string `json:"reason"`
	IndexedAt string `json:"indexedAt"`
}

// Ref returns the strong reference used to reply to the mention.
func (m Mention) Ref() StrongRef { return StrongRef{URI: m.URI, CID: m.CID} }

// StrongRef points at an exact version of a record.
type StrongRef struct {
	URI string `json:"uri"`
	CID string `json:"cid"`
}

// IsZero reports whether the reference is empty.
func (r StrongRef) IsZero() bool { return r.URI == "" && r.CID == "" }

// Scored pairs a post with the score it was ranked by.
type Scored[S int | float64] struct {
	Post  Post
	Score S
}

// AnalysisResult holds the three ranked highlights. A nil slot means no post
// qualified for that category.
type AnalysisResult struct {
	TopRecent   *Scored[int]
	TopAllTime  *Scored[int]
	MostRatioed *Scored[float64]
}

// Category names, in thread order.
const (
	CategoryTopRecent   = "top_recent"
	CategoryTopAllTime  = "top_all_time"
	CategoryMostRatioed = "most_ratioed"
)

// Found reports, per category name, whether a post was selected. All three
// keys are always present.
func (r AnalysisResult) Found() map[string]bool {
	return map[string]bool{
		CategoryTopRecent:   r.TopRecent != nil,
		CategoryTopAllTime:  r.TopAllTime != nil,
		CategoryMostRatioed: r.MostRatioed != nil,
	}
}
