// Package compose renders analysis results into reply text that fits the
// network's post length limit.
package compose

import (
	"fmt"
	"strings"

	"hypebot/internal/model"
	"hypebot/internal/util"
)

const (
	// MaxPostLength is the platform limit, counted in code points.
	MaxPostLength = 300
	// MaxPreviewLength bounds the quoted post text inside a block.
	MaxPreviewLength = 80
	// MinPreviewLength is the floor the fit pass will shrink the preview to.
	MinPreviewLength = 20
	// RatioCallout is the ratio at which the most-ratioed post is worth
	// calling out.
	RatioCallout = 3.0

	ellipsis           = "..."
	blockSeparator     = "\n\n"
	contentUnavailable = "[Post content unavailable]"
	noRatio            = "No ratio here! Keep posting those bangers 🔥"
)

// StatsLine renders the three counters with their glyphs.
func StatsLine(likes, reposts, replies int) string {
	return fmt.Sprintf("❤️ %d | 🔄 %d | 💬 %d", likes, reposts, replies)
}

// Truncate shortens text to maxLen code points, ending in "..." when cut.
func Truncate(text string, maxLen int) string {
	if util.RuneLen(text) <= maxLen {
		return text
	}
	r := []rune(text)
	if maxLen <= len(ellipsis) {
		if maxLen < 0 {
			maxLen = 0
		}
		return string(r[:maxLen])
	}
	return string(r[:maxLen-len(ellipsis)]) + ellipsis
}

// Preview quotes the post text with whitespace collapsed and the inside
// truncated to MaxPreviewLength.
func Preview(p model.Post) string {
	if p == nil {
		return contentUnavailable
	}
	text, ok := p.Body()
	if !ok {
		return contentUnavailable
	}
	return `"` + Truncate(util.NormalizeWhitespace(text), MaxPreviewLength) + `"`
}

// Permalink turns an at:// URI into a bsky.app web URL, preferring handle
// over the URI's authority. URIs without authority/collection/rkey come back
// unchanged.
func Permalink(uri, handle string) string {
	parts := strings.Split(strings.ReplaceAll(uri, "at://", ""), "/")
	if len(parts) < 3 {
		return uri
	}
	actor := util.Coalesce(handle, parts[0])
	return fmt.Sprintf("https://bsky.app/profile/%s/post/%s", actor, parts[2])
}

// RenderBlock assembles one thread post: header, stats, optional score,
// preview and link. When the result is over MaxPostLength only the preview is
// shrunk, never below MinPreviewLength.
func RenderBlock(emoji, title string, p model.Post, scoreText, handle string) string {
	var likes, reposts, replies int
	var uri string
	if p != nil {
		likes, reposts, replies, uri = p.Likes(), p.Reposts(), p.Replies(), p.PostURI()
	}
	preview := Preview(p)
	parts := []string{emoji + " " + title, StatsLine(likes, reposts, replies)}
	if scoreText != "" {
		parts = append(parts, scoreText)
	}
	parts = append(parts, preview, Permalink(uri, handle))

	text := strings.Join(parts, blockSeparator)
	if n := util.RuneLen(text); n > MaxPostLength {
		budget := MaxPostLength - (n - util.RuneLen(preview))
		parts[len(parts)-2] = Truncate(preview, max(MinPreviewLength, budget))
		text = strings.Join(parts, blockSeparator)
	}
	return text
}

// RenderThread produces the three thread posts in fixed order: recent,
// all-time, most ratioed. Missing categories get placeholder text, and the
// ratio post is only rendered at or above RatioCallout.
func RenderThread(res model.AnalysisResult, handle string, windowDays int) [3]string {
	var thread [3]string
	if r := res.TopRecent; r != nil {
		title := fmt.Sprintf("Recent (%dd) - %d total engagement", windowDays, r.Score)
		thread[0] = RenderBlock("🔥", title, r.Post, "", handle)
	} else {
		thread[0] = fmt.Sprintf("🔥 No posts found in the last %d days", windowDays)
	}
	if r := res.TopAllTime; r != nil {
		title := fmt.Sprintf("All-Time - %d total engagement", r.Score)
		thread[1] = RenderBlock("👑", title, r.Post, "", handle)
	} else {
		thread[1] = "👑 No all-time posts found"
	}
	if r := res.MostRatioed; r != nil && r.Score >= RatioCallout {
		thread[2] = RenderBlock("🌶️", "Most Ratioed", r.Post, fmt.Sprintf("Ratio: %.1f", r.Score), handle)
	} else {
		thread[2] = noRatio
	}
	return thread
}

// NoPosts is the reply for an account with nothing to analyze.
func NoPosts(handle string) string {
	if handle != "" {
		return fmt.Sprintf("@%s doesn't have any posts yet! Start posting to build your engagement history. 🚀", handle)
	}
	return "No posts found to analyze. Start posting to build your engagement history! 🚀"
}

// Error is the best-effort reply sent when processing a mention fails.
func Error(message, handle string) string {
	var text string
	if handle != "" {
		text = fmt.Sprintf("Sorry @%s, I couldn't analyze your posts: %s", handle, message)
	} else {
		text = fmt.Sprintf("Sorry, I couldn't complete the analysis: %s", message)
	}
	return Truncate(text, MaxPostLength)
}

// FollowPrompt asks a non-follower to follow before mentioning again.
func FollowPrompt(handle string) string {
	if handle != "" {
		return fmt.Sprintf("@%s Follow me first, then mention me again to get your stats! 👋", handle)
	}
	return "Follow me first, then mention me again to get your stats! 👋"
}
