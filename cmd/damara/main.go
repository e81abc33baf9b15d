// Command damara is the terminal client of the Damara group-buy platform.
//
//	damara login <studentId> <password>
//	damara posts [-q text] [-category c]
//	damara show <postId>
//	damara join|leave|fav <postId>
//	damara status <postId> <open|closed|in_progress|completed>
//	damara chat <postId>
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"damara/internal/cache"
	"damara/internal/client"
	"damara/internal/config"
	"damara/internal/groupbuy"
	"damara/internal/imageurl"
	"damara/internal/session"
)

// app holds everything a command needs.
type app struct {
	cfg    *config.Config
	sess   *session.Session
	api    *client.Client
	term   *terminal
	images *imageurl.Resolver
	out    io.Writer

	view  *groupbuy.PostView
	posts *groupbuy.Controller
	joins *groupbuy.Participation
	fav   *groupbuy.Favorite
}

func newApp(cfg *config.Config, sess *session.Session, in io.Reader, out io.Writer) *app {
	term := newTerminal(in, out)
	api := client.New(cfg.APIBaseURL, client.WithTokenSource(sess))
	view := groupbuy.NewPostView()
	return &app{
		cfg:    cfg,
		sess:   sess,
		api:    api,
		term:   term,
		images: imageurl.New(cfg.PublicBaseURL, cfg.LegacyHosts()),
		out:    out,
		view:   view,
		posts:  groupbuy.NewController(api, term, view),
		joins:  groupbuy.NewParticipation(api, term, term, view),
		fav:    groupbuy.NewFavorite(api, term, view, groupbuy.KeepOptimistic),
	}
}

func openSessionStore(cfg *config.Config) (session.Store, error) {
	if cfg.SessionStore != "redis" {
		return session.NewFileStore(cfg.SessionPath), nil
	}
	rdb, err := cache.NewClient(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("session redis: %w", err)
	}
	device, err := os.Hostname()
	if err != nil || device == "" {
		device = "default"
	}
	return session.NewRedisStore(rdb, device), nil
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openSessionStore(cfg)
	if err != nil {
		log.Fatal(err)
	}
	sess, err := session.Open(ctx, store)
	if err != nil {
		log.Fatal(err)
	}

	a := newApp(cfg, sess, os.Stdin, os.Stdout)
	if err := a.run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
