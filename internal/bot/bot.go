// Package bot answers mentions with an engagement summary thread.
package bot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"hypebot/internal/analytics"
	"hypebot/internal/compose"
	"hypebot/internal/config"
	"hypebot/internal/engage"
	"hypebot/internal/logging"
	"hypebot/internal/metrics"
	"hypebot/internal/model"
)

// Client is the slice of the network client the bot needs.
type Client interface {
	ListMentions(ctx context.Context, seenAt string) ([]model.Mention, error)
	UpdateSeen(ctx context.Context, seenAt string) error
	FetchAllPosts(ctx context.Context, actor string, limit int) ([]model.Post, error)
	IsFollowing(ctx context.Context, actor string) (bool, error)
	SendReply(ctx context.Context, text string, parent, root model.StrongRef) (model.StrongRef, error)
}

// ErrEmptyReply is returned when the network accepts a reply but hands back no reference.
var ErrEmptyReply = errors.New("reply returned no reference")

type Bot struct {
	client   Client
	tracker  Tracker
	analyzer *analytics.Analyzer
	cfg      config.BotConfig

	// Budget is optional; nil answers every mention.
	Budget *engage.Budget
	Status *Status

	now   func() time.Time
	pause func(ctx context.Context, d time.Duration) error
}

func New(client Client, tracker Tracker, cfg config.BotConfig) *Bot {
	if tracker == nil {
		tracker = NewMemoryTracker()
	}
	return &Bot{
		client:   client,
		tracker:  tracker,
		analyzer: analytics.New(cfg.MinLikesForRatio),
		cfg:      cfg,
		Status:   &Status{},
		now:      time.Now,
		pause:    sleep,
	}
}

// ProcessMention answers one mention. A mention is answered at most once:
// it is marked processed even when handling fails, after a best-effort
// error reply. Mentions over the reply budget are left for a later poll.
func (b *Bot) ProcessMention(ctx context.Context, m model.Mention) error {
	fields := map[string]any{"uri": m.URI, "author": m.Author.Handle}
	done, err := b.tracker.IsProcessed(ctx, m.URI)
	if err != nil {
		return fmt.Errorf("check processed %s: %w", m.URI, err)
	}
	if done {
		metrics.IncMention(metrics.OutcomeDuplicate)
		logging.Debug("mention_duplicate", fields)
		return nil
	}
	ok, err := b.Budget.Allow(ctx, b.now())
	if err != nil {
		return fmt.Errorf("check budget: %w", err)
	}
	if !ok {
		metrics.IncMention(metrics.OutcomeDeferred)
		logging.Info("mention_deferred", fields)
		return nil
	}

	logging.Info("mention_processing", fields)
	outcome, err := b.answer(ctx, m)
	if err != nil {
		outcome = metrics.OutcomeFailed
		logging.Error("mention_failed", map[string]any{"uri": m.URI, "author": m.Author.Handle, "error": err})
		notice := compose.Error(err.Error(), m.Author.Handle)
		if _, rerr := b.client.SendReply(ctx, notice, m.Ref(), model.StrongRef{}); rerr != nil {
			logging.Error("error_reply_failed", map[string]any{"uri": m.URI, "error": rerr})
		}
	} else if rerr := b.Budget.Record(ctx, b.now()); rerr != nil {
		logging.Warn("budget_record_failed", map[string]any{"error": rerr})
	}
	if merr := b.tracker.MarkProcessed(ctx, m.URI); merr != nil {
		logging.Error("mark_processed_failed", map[string]any{"uri": m.URI, "error": merr})
		if err == nil {
			err = merr
		}
	}
	metrics.IncMention(outcome)
	return err
}

func (b *Bot) answer(ctx context.Context, m model.Mention) (string, error) {
	actor := m.Author.DID
	if actor == "" {
		actor = m.Author.Handle
	}
	handle := m.Author.Handle

	if b.cfg.RequireFollow {
		following, err := b.client.IsFollowing(ctx, actor)
		if err != nil {
			return "", fmt.Errorf("check follower: %w", err)
		}
		if !following {
			logging.Info("mention_not_following", map[string]any{"author": handle})
			if _, err := b.reply(ctx, compose.FollowPrompt(handle), m.Ref(), model.StrongRef{}); err != nil {
				return "", err
			}
			return metrics.OutcomeNotFollow, nil
		}
	}

	posts, err := b.client.FetchAllPosts(ctx, actor, b.cfg.MaxPosts)
	if err != nil {
		return "", fmt.Errorf("fetch posts: %w", err)
	}
	metrics.PostsAnalyzed.Observe(float64(len(posts)))
	if len(posts) == 0 {
		logging.Warn("mention_no_posts", map[string]any{"author": handle})
		if _, err := b.reply(ctx, compose.NoPosts(handle), m.Ref(), model.StrongRef{}); err != nil {
			return "", err
		}
		return metrics.OutcomeNoPosts, nil
	}

	res := b.analyzer.Analyze(posts, b.cfg.RecentDays)
	thread := compose.RenderThread(res, handle, b.cfg.RecentDays)
	if err := b.sendThread(ctx, m.Ref(), thread[:]); err != nil {
		return "", err
	}
	logging.Info("mention_answered", map[string]any{"author": handle, "posts": len(posts)})
	return metrics.OutcomeAnswered, nil
}

// sendThread posts parts as a reply chain under mention. Only the first
// reply is required; a later failure leaves a partial thread.
func (b *Bot) sendThread(ctx context.Context, mention model.StrongRef, parts []string) error {
	first, err := b.reply(ctx, parts[0], mention, mention)
	if err != nil {
		return fmt.Errorf("send thread post 1: %w", err)
	}
	parent := first
	for i, text := range parts[1:] {
		if err := b.pause(ctx, b.cfg.ThreadDelay); err != nil {
			return err
		}
		ref, err := b.reply(ctx, text, parent, first)
		if err != nil {
			logging.Error("thread_post_failed", map[string]any{"post": i + 2, "of": len(parts), "error": err})
			continue
		}
		parent = ref
	}
	return nil
}

func (b *Bot) reply(ctx context.Context, text string, parent, root model.StrongRef) (model.StrongRef, error) {
	ref, err := b.client.SendReply(ctx, text, parent, root)
	if err != nil {
		return model.StrongRef{}, err
	}
	if ref.IsZero() {
		return model.StrongRef{}, ErrEmptyReply
	}
	return ref, nil
}

// PollOnce fetches new mentions and processes each in order. Processing is
// not interrupted by ctx cancellation once a mention has been picked up.
func (b *Bot) PollOnce(ctx context.Context) error {
	start := time.Now()
	defer metrics.ObservePollDuration(start)
	metrics.PollRuns.Inc()

	seen, err := b.tracker.LastSeen(ctx)
	if err != nil {
		metrics.PollErrors.Inc()
		return fmt.Errorf("load last seen: %w", err)
	}
	mentions, err := b.client.ListMentions(ctx, seen)
	if err != nil {
		metrics.PollErrors.Inc()
		return fmt.Errorf("list mentions: %w", err)
	}
	if len(mentions) == 0 {
		logging.Debug("no_new_mentions", nil)
		return nil
	}
	logging.Info("mentions_processing", map[string]any{"count": len(mentions)})
	work := context.WithoutCancel(ctx)
	for _, m := range mentions {
		if err := b.ProcessMention(work, m); err != nil {
			logging.Warn("mention_error", map[string]any{"uri": m.URI, "error": err})
		}
	}

	latest := mentions[0].IndexedAt
	if latest == "" {
		return nil
	}
	if err := b.tracker.UpdateLastSeen(work, latest); err != nil {
		metrics.PollErrors.Inc()
		return fmt.Errorf("save last seen: %w", err)
	}
	if err := b.client.UpdateSeen(work, latest); err != nil {
		logging.Warn("update_seen_failed", map[string]any{"error": err})
	}
	return nil
}

// Run polls until ctx is cancelled. Errors inside an iteration are logged
// and never stop the loop.
func (b *Bot) Run(ctx context.Context) error {
	b.Status.Set(true)
	defer b.Status.Set(false)
	logging.Info("bot_started", map[string]any{"poll_interval": b.cfg.PollInterval.String()})
	for {
		if err := b.PollOnce(ctx); err != nil {
			logging.Error("poll_failed", map[string]any{"error": err})
		}
		if err := b.pause(ctx, b.cfg.PollInterval); err != nil {
			logging.Info("bot_stopped", nil)
			return nil
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
