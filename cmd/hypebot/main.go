package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"hypebot/internal/analytics"
	"hypebot/internal/bot"
	"hypebot/internal/bsky"
	"hypebot/internal/cmdlog"
	"hypebot/internal/compose"
	"hypebot/internal/config"
	"hypebot/internal/engage"
	"hypebot/internal/logging"
	"hypebot/internal/metrics"
	"hypebot/internal/model"
	"hypebot/internal/store/sqlitestore"
	"hypebot/internal/theme"
)

func main() {
	_ = godotenv.Load()
	cmd := ""
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}
	var err error
	switch cmd {
	case "run":
		err = cmdlog.Run("run", cmdRun)
	case "analyze":
		err = cmdlog.Run("analyze", cmdAnalyze)
	case "init":
		err = cmdlog.Run("init", cmdInit)
	default:
		printHelp()
		return
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func printHelp() {
	theme.PrintBanner()
	fmt.Println("Usage: hypebot <command> [options]")
	fmt.Println("Commands:")
	fmt.Println("  run         Poll mentions and reply with engagement threads")
	fmt.Println("  analyze     Print the thread for a handle or a posts JSON file")
	fmt.Println("  init        Create a config file at ./hypebot.yaml")
}

func loadConfig(path string) (config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, err
	}
	logging.SetLevel(cfg.Log.Level)
	return cfg, nil
}

func cmdInit() error {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	path := fs.String("path", "./hypebot.yaml", "path to write config")
	_ = fs.Parse(os.Args[2:])
	if err := config.Save(*path, config.Default()); err != nil {
		return err
	}
	abs, _ := filepath.Abs(*path)
	theme.PrintBanner()
	fmt.Println("Config written to:", abs)
	return nil
}

func cmdRun() error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	cfgPath := fs.String("config", "./hypebot.yaml", "config path")
	_ = fs.Parse(os.Args[2:])
	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := bsky.NewClient(cfg.Account, cfg.API)
	if err := client.Login(ctx); err != nil {
		return err
	}

	var tracker bot.Tracker
	var budget *engage.Budget
	if cfg.Storage.DBPath != "" {
		db, err := sqlitestore.Open(cfg.Storage.DBPath)
		if err != nil {
			return err
		}
		defer db.Close()
		tracker = db
		budget = &engage.Budget{Log: db, Cfg: cfg.Budget}
	}

	b := bot.New(client, tracker, cfg.Bot)
	b.Budget = budget

	srv := metrics.StartServer(fmt.Sprintf(":%d", cfg.Health.Port), b.Status.Running)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	theme.PrintBanner()
	logging.Info("bot_config", map[string]any{
		"handle":        cfg.Account.Handle,
		"poll_interval": cfg.Bot.PollInterval.String(),
		"recent_days":   cfg.Bot.RecentDays,
		"max_posts":     cfg.Bot.MaxPosts,
		"durable":       cfg.Storage.DBPath != "",
		"health_port":   cfg.Health.Port,
	})
	return b.Run(ctx)
}

func cmdAnalyze() error {
	fs := flag.NewFlagSet("analyze", flag.ExitOnError)
	cfgPath := fs.String("config", "./hypebot.yaml", "config path")
	handle := fs.String("handle", "", "account to analyze")
	file := fs.String("file", "", "JSON array of posts to analyze instead of fetching")
	_ = fs.Parse(os.Args[2:])
	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		return err
	}
	name := strings.TrimPrefix(*handle, "@")

	var posts []model.Post
	switch {
	case *file != "":
		posts, err = readPosts(*file)
	case name != "":
		posts, err = fetchPosts(cfg, name)
	default:
		return errors.New("analyze needs -handle or -file")
	}
	if err != nil {
		return err
	}
	if len(posts) == 0 {
		fmt.Println(compose.NoPosts(name))
		return nil
	}
	fmt.Printf("Analyzed %d posts\n\n", len(posts))

	res := analytics.New(cfg.Bot.MinLikesForRatio).Analyze(posts, cfg.Bot.RecentDays)
	printThread(os.Stdout, compose.RenderThread(res, name, cfg.Bot.RecentDays))
	return nil
}

func fetchPosts(cfg config.Config, handle string) ([]model.Post, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	client := bsky.NewClient(cfg.Account, cfg.API)
	if err := client.Login(ctx); err != nil {
		return nil, err
	}
	if cfg.Bot.RequireFollow {
		ok, err := client.IsFollowing(ctx, handle)
		if err != nil {
			return nil, err
		}
		if !ok {
			fmt.Printf("@%s does not follow the bot; they would be asked to follow first.\n\n", handle)
		}
	}
	return client.FetchAllPosts(ctx, handle, cfg.Bot.MaxPosts)
}

func readPosts(path string) ([]model.Post, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var raw []model.PostMap
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	posts := make([]model.Post, len(raw))
	for i, p := range raw {
		posts[i] = p
	}
	return posts, nil
}

func printThread(w io.Writer, thread [3]string) {
	rule := strings.Repeat("=", 60)
	fmt.Fprintln(w, rule)
	for i, text := range thread {
		fmt.Fprintf(w, "--- Post %d ---\n%s\n\n", i+1, text)
	}
	fmt.Fprintln(w, rule)
}
