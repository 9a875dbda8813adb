package analytics

import (
	"sort"
	"time"

	"hypebot/internal/logging"
	"hypebot/internal/model"
)

// DefaultMinLikesForRatio filters out low-sample posts where a single reply
// on a one-like post would dominate the ratio ranking.
const DefaultMinLikesForRatio = 5

// Analyzer ranks a user's posts into the three highlight categories.
type Analyzer struct {
	MinLikesForRatio int
	// Now returns the current wall clock; it defaults to time.Now.
	Now func() time.Time
}

// New returns an Analyzer with the given ratio threshold.
func New(minLikesForRatio int) *Analyzer {
	return &Analyzer{MinLikesForRatio: minLikesForRatio, Now: time.Now}
}

func (a *Analyzer) now() time.Time {
	if a.Now == nil {
		return time.Now()
	}
	return a.Now()
}

// TopRecent returns the highest-engagement post whose timestamp falls within
// the last windowDays days, or nil.
//
// The cutoff is the local wall clock minus windowDays. A zoned post is
// compared against that wall clock read in the post's own zone; a naive post
// is compared wall clock to wall clock.
func (a *Analyzer) TopRecent(posts []model.Post, windowDays int) *model.Scored[int] {
	n := a.now().Local()
	var recent []model.Scored[int]
	for _, p := range posts {
		ts, ok := model.PostTimestamp(p)
		if !ok {
			continue
		}
		loc := ts.Time.Location()
		if ts.Naive {
			loc = time.UTC
		}
		cutoff := time.Date(n.Year(), n.Month(), n.Day()-windowDays, n.Hour(), n.Minute(), n.Second(), n.Nanosecond(), loc)
		if ts.Time.Before(cutoff) {
			continue
		}
		recent = append(recent, model.Scored[int]{Post: p, Score: model.Engagement(p)})
	}
	if len(recent) == 0 {
		logging.Info("no_recent_posts", map[string]any{"days": windowDays})
		return nil
	}
	top := first(recent)
	logging.Info("top_recent_post", map[string]any{"days": windowDays, "engagement": top.Score})
	return top
}

// TopAllTime returns the highest-engagement post overall, or nil when posts
// is empty.
func (a *Analyzer) TopAllTime(posts []model.Post) *model.Scored[int] {
	if len(posts) == 0 {
		logging.Info("no_posts", nil)
		return nil
	}
	scored := make([]model.Scored[int], 0, len(posts))
	for _, p := range posts {
		scored = append(scored, model.Scored[int]{Post: p, Score: model.Engagement(p)})
	}
	top := first(scored)
	logging.Info("top_all_time_post", map[string]any{"engagement": top.Score})
	return top
}

// MostRatioed returns the post with the highest reply:like ratio among posts
// with at least MinLikesForRatio likes, or nil.
func (a *Analyzer) MostRatioed(posts []model.Post) *model.Scored[float64] {
	var qualifying []model.Scored[float64]
	for _, p := range posts {
		if p == nil || p.Likes() < a.MinLikesForRatio {
			continue
		}
		qualifying = append(qualifying, model.Scored[float64]{Post: p, Score: model.Ratio(p)})
	}
	if len(qualifying) == 0 {
		logging.Info("no_ratio_candidates", map[string]any{"min_likes": a.MinLikesForRatio})
		return nil
	}
	top := first(qualifying)
	logging.Info("most_ratioed_post", map[string]any{"ratio": top.Score})
	return top
}

// Analyze runs all three queries.
func (a *Analyzer) Analyze(posts []model.Post, windowDays int) model.AnalysisResult {
	logging.Info("analyzing_posts", map[string]any{"count": len(posts)})
	res := model.AnalysisResult{
		TopRecent:   a.TopRecent(posts, windowDays),
		TopAllTime:  a.TopAllTime(posts),
		MostRatioed: a.MostRatioed(posts),
	}
	found := res.Found()
	for _, k := range []string{model.CategoryTopRecent, model.CategoryTopAllTime, model.CategoryMostRatioed} {
		if found[k] {
			logging.Info("category_found", map[string]any{"category": k})
		} else {
			logging.Warn("category_missing", map[string]any{"category": k})
		}
	}
	return res
}

// first sorts by score descending, keeping input order among equal scores,
// and returns the head.
func first[S int | float64](scored []model.Scored[S]) *model.Scored[S] {
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	top := scored[0]
	return &top
}
