package compose

import (
	"strings"
	"testing"

	"hypebot/internal/model"
	"hypebot/internal/util"
)

func post(likes, reposts, replies int, text string) *model.PostView {
	return &model.PostView{
		URI:         "at://did:plc:abc123/app.bsky.feed.post/xyz789",
		LikeCount:   likes,
		RepostCount: reposts,
		ReplyCount:  replies,
		Record:      &model.PostRecord{Text: text},
	}
}

func TestPermalink(t *testing.T) {
	uri := "at://did:plc:abc123/app.bsky.feed.post/xyz789"
	cases := []struct {
		uri, handle, want string
	}{
		{uri, "user.handle", "https://bsky.app/profile/user.handle/post/xyz789"},
		{uri, "", "https://bsky.app/profile/did:plc:abc123/post/xyz789"},
		{"not-a-valid-uri", "", "not-a-valid-uri"},
		{"", "user.handle", ""},
	}
	for _, c := range cases {
		if got := Permalink(c.uri, c.handle); got != c.want {
			t.Fatalf("Permalink(%q,%q)=%q want %q", c.uri, c.handle, got, c.want)
		}
	}
}

func TestStatsLineContainsCounts(t *testing.T) {
	got := StatsLine(100, 50, 20)
	for _, s := range []string{"100", "50", "20", "❤️", "🔄", "💬"} {
		if !strings.Contains(got, s) {
			t.Fatalf("%q missing %q", got, s)
		}
	}
	if !strings.Contains(StatsLine(0, 0, 0), "0") {
		t.Fatal("zeros missing")
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("short", 10); got != "short" {
		t.Fatalf("got %q", got)
	}
	if got := Truncate("12345", 5); got != "12345" {
		t.Fatalf("got %q", got)
	}
	got := Truncate("this is a long string", 10)
	if util.RuneLen(got) != 10 || !strings.HasSuffix(got, "...") {
		t.Fatalf("got %q", got)
	}
	got = Truncate(strings.Repeat("é", 20), 8)
	if util.RuneLen(got) != 8 || got != "ééééé..." {
		t.Fatalf("multibyte truncate got %q", got)
	}
	if got := Truncate("abcdef", 2); got != "ab" {
		t.Fatalf("tiny limit got %q", got)
	}
}

func TestPreview(t *testing.T) {
	got := Preview(post(0, 0, 0, "Hello world"))
	if got != `"Hello world"` {
		t.Fatalf("got %q", got)
	}
	if got := Preview(&model.PostView{}); got != "[Post content unavailable]" {
		t.Fatalf("got %q", got)
	}
	if got := Preview(model.PostMap{}); got != "[Post content unavailable]" {
		t.Fatalf("map got %q", got)
	}
	if got := Preview(post(0, 0, 0, "hello   world\n\nnewlines")); !strings.Contains(got, "hello world newlines") {
		t.Fatalf("got %q", got)
	}
	long := Preview(post(0, 0, 0, strings.Repeat("a", 200)))
	if util.RuneLen(long) != MaxPreviewLength+2 {
		t.Fatalf("long preview length %d", util.RuneLen(long))
	}
	if got := Preview(model.PostMap{"record_text": "from map"}); got != `"from map"` {
		t.Fatalf("map got %q", got)
	}
}

func TestRenderBlock(t *testing.T) {
	got := RenderBlock("🔥", "Test", post(10, 5, 2, "My post"), "", "user.bsky.social")
	want := "🔥 Test\n\n❤️ 10 | 🔄 5 | 💬 2\n\n\"My post\"\n\nhttps://bsky.app/profile/user.bsky.social/post/xyz789"
	if got != want {
		t.Fatalf("got %q\nwant %q", got, want)
	}
	withScore := RenderBlock("🌶️", "Most Ratioed", post(10, 0, 40, "x"), "Ratio: 4.0", "")
	if !strings.Contains(withScore, "\n\nRatio: 4.0\n\n\"x\"") {
		t.Fatalf("score annotation out of order: %q", withScore)
	}
}

func TestRenderBlockShrinksPreview(t *testing.T) {
	longHandle := strings.Repeat("h", 150) + ".bsky.social"
	got := RenderBlock("🔥", strings.Repeat("T", 40), post(1, 2, 3, strings.Repeat("word ", 60)), "", longHandle)
	if n := util.RuneLen(got); n > MaxPostLength {
		t.Fatalf("block length %d over limit:\n%s", n, got)
	}
	if !strings.Contains(got, "...") {
		t.Fatalf("expected shrunk preview: %q", got)
	}
}

func TestRenderBlockPreviewFloor(t *testing.T) {
	// Header and link alone leave less than the floor; the block is allowed
	// to run over rather than lose the preview entirely.
	hugeHandle := strings.Repeat("h", 260)
	got := RenderBlock("🔥", "Title", post(1, 1, 1, strings.Repeat("z", 100)), "", hugeHandle)
	if !strings.Contains(got, `"zzzzzzzzzzzzzzzz...`) {
		t.Fatalf("expected 20-rune preview, got %q", got)
	}
}

func TestRenderThreadAllPresent(t *testing.T) {
	res := model.AnalysisResult{
		TopRecent:   &model.Scored[int]{Post: post(100, 50, 20, "a"), Score: 170},
		TopAllTime:  &model.Scored[int]{Post: post(200, 100, 50, "b"), Score: 350},
		MostRatioed: &model.Scored[float64]{Post: post(5, 0, 30, "c"), Score: 6.0},
	}
	thread := RenderThread(res, "user.bsky.social", 30)
	if !strings.HasPrefix(thread[0], "🔥 Recent (30d) - 170 total engagement") {
		t.Fatalf("recent: %q", thread[0])
	}
	if !strings.HasPrefix(thread[1], "👑 All-Time - 350 total engagement") {
		t.Fatalf("all-time: %q", thread[1])
	}
	if !strings.HasPrefix(thread[2], "🌶️ Most Ratioed") || !strings.Contains(thread[2], "Ratio: 6.0") {
		t.Fatalf("ratio: %q", thread[2])
	}
}

func TestRenderThreadRatioFallback(t *testing.T) {
	low := RenderThread(model.AnalysisResult{
		MostRatioed: &model.Scored[float64]{Post: post(10, 0, 5, "x"), Score: 0.5},
	}, "user.bsky.social", 30)
	none := RenderThread(model.AnalysisResult{}, "user.bsky.social", 30)
	if low[2] != none[2] {
		t.Fatalf("fallbacks differ: %q vs %q", low[2], none[2])
	}
	if !strings.Contains(none[2], "No ratio here") || !strings.Contains(none[2], "bangers") {
		t.Fatalf("fallback text %q", none[2])
	}
	edge := RenderThread(model.AnalysisResult{
		MostRatioed: &model.Scored[float64]{Post: post(10, 0, 30, "x"), Score: 3.0},
	}, "", 30)
	if !strings.Contains(edge[2], "🌶️") {
		t.Fatalf("ratio at threshold should be called out: %q", edge[2])
	}
}

func TestRenderThreadMissing(t *testing.T) {
	thread := RenderThread(model.AnalysisResult{}, "", 7)
	if thread[0] != "🔥 No posts found in the last 7 days" {
		t.Fatalf("recent placeholder %q", thread[0])
	}
	if !strings.Contains(thread[1], "No all-time") {
		t.Fatalf("all-time placeholder %q", thread[1])
	}
}

func TestRenderThreadLengths(t *testing.T) {
	p := post(100, 50, 20, strings.Repeat("A", 200))
	inputs := []model.AnalysisResult{
		{},
		{TopRecent: &model.Scored[int]{Post: p, Score: 170}},
		{
			TopRecent:   &model.Scored[int]{Post: p, Score: 170},
			TopAllTime:  &model.Scored[int]{Post: p, Score: 170},
			MostRatioed: &model.Scored[float64]{Post: p, Score: 5.0},
		},
	}
	for _, in := range inputs {
		thread := RenderThread(in, "user.bsky.social", 30)
		for i, text := range thread {
			if n := util.RuneLen(text); n > MaxPostLength {
				t.Fatalf("post %d length %d", i, n)
			}
		}
	}
}

func TestDegenerateReplies(t *testing.T) {
	if got := NoPosts("alice.test"); !strings.Contains(got, "@alice.test doesn't have any posts") {
		t.Fatalf("got %q", got)
	}
	if got := NoPosts(""); !strings.HasPrefix(got, "No posts found") {
		t.Fatalf("got %q", got)
	}
	if got := Error("boom", "alice.test"); got != "Sorry @alice.test, I couldn't analyze your posts: boom" {
		t.Fatalf("got %q", got)
	}
	if got := Error(strings.Repeat("x", 400), ""); util.RuneLen(got) != MaxPostLength {
		t.Fatalf("long error not capped: %d", util.RuneLen(got))
	}
	if got := FollowPrompt("alice.test"); !strings.Contains(got, "Follow me first") {
		t.Fatalf("got %q", got)
	}
}
