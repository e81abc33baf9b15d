package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"strings"
	"text/tabwriter"

	"damara/internal/chat"
	"damara/internal/client"
	"damara/internal/groupbuy"
	"damara/internal/models"
	"damara/internal/session"
)

var errUsage = errors.New("usage: damara <register|login|logout|whoami|prefs|posts|show|status|join|leave|fav|favorites|chat|notifications> [args]")

func (a *app) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "register":
		return a.register(ctx, rest)
	case "login":
		return a.login(ctx, rest)
	case "logout":
		return a.sess.Logout(ctx)
	case "whoami":
		return a.whoami()
	case "prefs":
		return a.prefs(ctx, rest)
	case "posts":
		return a.listPosts(ctx, rest)
	case "show":
		return a.withPost(rest, 1, func(id string, _ []string) error { return a.show(ctx, id) })
	case "status":
		return a.withPost(rest, 2, func(id string, more []string) error {
			if _, err := a.posts.LoadPost(ctx, id); err != nil {
				return err
			}
			return a.posts.ChangeStatus(ctx, id, models.Status(more[0]), a.sess.CurrentUserID())
		})
	case "join":
		return a.withPost(rest, 1, func(id string, _ []string) error {
			if err := a.load(ctx, id); err != nil {
				return err
			}
			return a.joins.Join(ctx, id, a.sess.CurrentUserID())
		})
	case "leave":
		return a.withPost(rest, 1, func(id string, _ []string) error {
			if err := a.load(ctx, id); err != nil {
				return err
			}
			err := a.joins.Leave(ctx, id, a.sess.CurrentUserID())
			if errors.Is(err, groupbuy.ErrCancelled) {
				return nil
			}
			return err
		})
	case "fav":
		return a.withPost(rest, 1, func(id string, _ []string) error {
			if err := a.load(ctx, id); err != nil {
				return err
			}
			on, err := a.fav.Toggle(ctx, id, a.sess.CurrentUserID())
			if err == nil {
				fmt.Fprintf(a.out, "favorite: %v\n", on)
			}
			return err
		})
	case "favorites":
		return a.favorites(ctx)
	case "chat":
		return a.withPost(rest, 1, func(id string, _ []string) error { return a.chat(ctx, id) })
	case "notifications":
		return a.notifications(ctx, rest)
	}
	return errUsage
}

func (a *app) withPost(args []string, n int, fn func(id string, more []string) error) error {
	if len(args) < n {
		return errUsage
	}
	return fn(args[0], args[1:])
}

// load fetches the post and the user's participation and favorite markers.
func (a *app) load(ctx context.Context, id string) error {
	if _, err := a.posts.LoadPost(ctx, id); err != nil {
		return err
	}
	if user := a.sess.CurrentUserID(); user != "" {
		a.joins.Check(ctx, id, user)
		a.fav.Check(ctx, id, user)
	}
	return nil
}

func (a *app) register(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("register", flag.ContinueOnError)
	fs.SetOutput(a.out)
	var in client.RegisterInput
	fs.StringVar(&in.Email, "email", "", "email address")
	fs.StringVar(&in.Password, "password", "", "password")
	fs.StringVar(&in.Nickname, "nickname", "", "display name")
	fs.StringVar(&in.StudentID, "student-id", "", "student id")
	fs.StringVar(&in.Department, "department", "", "department")
	if err := fs.Parse(args); err != nil {
		return err
	}
	u, err := a.api.Register(ctx, in)
	if err != nil {
		return err
	}
	a.term.Notify(groupbuy.Notice{Level: groupbuy.LevelSuccess, Message: fmt.Sprintf("registered %s (%s)", u.Nickname, u.StudentID)})
	return nil
}

func (a *app) login(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return errUsage
	}
	res, err := a.api.Login(ctx, args[0], args[1])
	if err != nil {
		return err
	}
	if err := a.sess.Login(ctx, &res.User, res.Token); err != nil {
		return err
	}
	a.term.Notify(groupbuy.Notice{Level: groupbuy.LevelSuccess, Message: "welcome, " + res.Nickname})
	return nil
}

func (a *app) whoami() error {
	st := a.sess.State()
	if st.User == nil {
		fmt.Fprintln(a.out, "not logged in")
		return nil
	}
	fmt.Fprintf(a.out, "%s (%s) %s\n", st.User.Nickname, st.User.StudentID, st.User.Email)
	fmt.Fprintf(a.out, "dark mode: %v, font: %s\n", st.DarkMode, st.FontSize)
	return nil
}

func (a *app) prefs(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("prefs", flag.ContinueOnError)
	fs.SetOutput(a.out)
	dark := fs.String("dark", "", "on or off")
	font := fs.String("font", "", "small, medium or large")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *dark != "" {
		if err := a.sess.SetDarkMode(ctx, *dark == "on" || *dark == "true"); err != nil {
			return err
		}
	}
	if *font != "" {
		if err := a.sess.SetFontSize(ctx, session.ParseFontSize(*font)); err != nil {
			return err
		}
	}
	return a.whoami()
}

func (a *app) listPosts(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("posts", flag.ContinueOnError)
	fs.SetOutput(a.out)
	query := fs.String("q", "", "search title, content and pickup location")
	category := fs.String("category", "all", "category filter")
	status := fs.String("status", "", "status filter")
	limit := fs.Int("limit", 50, "page size")
	if err := fs.Parse(args); err != nil {
		return err
	}
	filter := models.Category(strings.ToLower(strings.TrimSpace(*category)))
	if filter != "" && filter != models.CategoryAll && !filter.Filterable() {
		return fmt.Errorf("unknown category %q", *category)
	}
	posts, err := a.api.ListPosts(ctx, client.ListOptions{Limit: *limit, Status: models.Status(*status)})
	if err != nil {
		return err
	}
	printPosts(a.out, groupbuy.FilterPosts(posts, *query, filter))
	return nil
}

func printPosts(w io.Writer, posts []models.Post) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tCATEGORY\tSTATUS\tJOINED\tPRICE")
	for _, p := range posts {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d/%d\t%d\n",
			p.ID, p.Title, p.Category, p.Status, p.CurrentQuantity, p.MinParticipants, p.Price)
	}
	_ = tw.Flush()
}

func (a *app) show(ctx context.Context, id string) error {
	if err := a.load(ctx, id); err != nil {
		return err
	}
	st := a.view.Snapshot()
	p := st.Post
	fmt.Fprintf(a.out, "%s [%s]\n", p.Title, p.Status)
	fmt.Fprintf(a.out, "%s\n\n", p.Content)
	fmt.Fprintf(a.out, "price %d, pickup at %s, deadline %s\n", p.Price, p.PickupLocation, p.Deadline.Format("2006-01-02"))
	fmt.Fprintf(a.out, "participants %d/%d", p.CurrentQuantity, p.MinParticipants)
	if groupbuy.RecruitmentComplete(p) {
		fmt.Fprint(a.out, " (recruitment complete)")
	}
	fmt.Fprintln(a.out)
	for _, img := range a.images.ResolveAll(p.ImageURLs()) {
		fmt.Fprintln(a.out, "  "+img)
	}
	if a.sess.LoggedIn() {
		fmt.Fprintf(a.out, "joined: %v, favorite: %v\n", st.IsParticipant, st.IsFavorite)
		if p.AuthorID == a.sess.CurrentUserID() {
			next := make([]string, 0, 3)
			for _, s := range a.posts.NextStatuses() {
				next = append(next, string(s))
			}
			fmt.Fprintf(a.out, "next status: %s\n", strings.Join(next, ", "))
		} else if a.joins.CanJoin(a.sess.CurrentUserID()) {
			fmt.Fprintln(a.out, "you can join this post")
		}
	}
	return nil
}

func (a *app) favorites(ctx context.Context) error {
	user := a.sess.CurrentUserID()
	if user == "" {
		return groupbuy.ErrLoginRequired
	}
	posts, err := a.api.FavoritePosts(ctx, user)
	if err != nil {
		return err
	}
	printPosts(a.out, posts)
	return nil
}

func (a *app) notifications(ctx context.Context, args []string) error {
	user := a.sess.CurrentUserID()
	if user == "" {
		return groupbuy.ErrLoginRequired
	}
	if len(args) > 0 && args[0] == "read" {
		return a.api.MarkAllNotificationsRead(ctx, user)
	}
	list, err := a.api.Notifications(ctx, user, false)
	if err != nil {
		return err
	}
	for _, n := range list {
		mark := " "
		if !n.IsRead {
			mark = "*"
		}
		fmt.Fprintf(a.out, "%s %s  %s\n", mark, n.Title, n.Body)
	}
	return nil
}

// chat prints the room of postID as it changes and sends every line typed
// on stdin. An empty line or EOF leaves the room.
func (a *app) chat(ctx context.Context, postID string) error {
	user := a.sess.CurrentUserID()
	if user == "" {
		return groupbuy.ErrLoginRequired
	}
	room, err := a.api.ChatRoomForPost(ctx, postID)
	if client.IsStatus(err, http.StatusNotFound) {
		room, err = a.api.CreateChatRoom(ctx, postID)
	}
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	sub := chat.Subscribe(ctx, a.api, room.ID, chat.Config{
		Interval:   a.cfg.ChatPollInterval,
		MaxBackoff: a.cfg.ChatMaxBackoff,
		LongPoll:   a.cfg.ChatLongPoll,
	})

	go func() {
		var shown int
		for msgs := range sub.Updates() {
			if shown > len(msgs) {
				shown = 0
			}
			for _, m := range msgs[shown:] {
				a.term.printf("[%s] %s: %s\n", m.CreatedAt.Format("15:04"), senderName(m), m.Content)
			}
			shown = len(msgs)
		}
	}()

	for {
		line, err := a.term.readLine()
		if err != nil || strings.TrimSpace(line) == "" {
			break
		}
		if _, err := a.api.SendMessage(ctx, room.ID, user, line); err != nil {
			a.term.Notify(groupbuy.Notice{Level: groupbuy.LevelError, Message: err.Error()})
		}
	}
	cancel()
	<-sub.Done()
	return a.api.MarkRoomRead(context.WithoutCancel(ctx), room.ID, user)
}

func senderName(m models.Message) string {
	if m.Sender != nil && m.Sender.Nickname != "" {
		return m.Sender.Nickname
	}
	return m.SenderID
}
