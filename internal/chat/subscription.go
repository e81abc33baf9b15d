// Package chat keeps a room's message list fresh on the client.
package chat

import (
	"context"
	"sync"
	"time"

	"damara/internal/models"
	"damara/internal/observability"

	"github.com/cenkalti/backoff/v5"
	"golang.org/x/time/rate"
)

const (
	DefaultInterval        = 3 * time.Second
	DefaultMaxBackoff      = 30 * time.Second
	DefaultLongPollTimeout = 25 * time.Second
	DefaultPageSize        = 50
)

// Source fetches room messages. *client.Client satisfies it.
type Source interface {
	Messages(ctx context.Context, roomID string, limit, offset int) ([]models.Message, error)
	WaitForMessages(ctx context.Context, roomID string, timeout time.Duration) (bool, error)
}

// Config tunes a Subscription. Zero values take the defaults.
type Config struct {
	Interval        time.Duration
	MaxBackoff      time.Duration
	LongPoll        bool
	LongPollTimeout time.Duration
	PageSize        int
}

func (c Config) withDefaults() Config {
	if c.Interval <= 0 {
		c.Interval = DefaultInterval
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = DefaultMaxBackoff
	}
	if c.MaxBackoff < c.Interval {
		c.MaxBackoff = c.Interval
	}
	if c.LongPollTimeout <= 0 {
		c.LongPollTimeout = DefaultLongPollTimeout
	}
	if c.PageSize <= 0 {
		c.PageSize = DefaultPageSize
	}
	return c
}

// Subscription delivers the merged message list of one room every time it
// changes. It stops when its context is cancelled.
type Subscription struct {
	src     Source
	roomID  string
	cfg     Config
	limiter *rate.Limiter
	updates chan []models.Message
	done    chan struct{}

	mu       sync.Mutex
	messages []models.Message
}

// Subscribe starts watching roomID.
func Subscribe(ctx context.Context, src Source, roomID string, cfg Config) *Subscription {
	cfg = cfg.withDefaults()
	s := &Subscription{
		src:     src,
		roomID:  roomID,
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Every(cfg.Interval), 1),
		updates: make(chan []models.Message, 1),
		done:    make(chan struct{}),
	}
	go s.run(ctx)
	return s
}

// Updates yields each new merged list. It is closed when the subscription
// stops.
func (s *Subscription) Updates() <-chan []models.Message { return s.updates }

// Done is closed when the subscription stops.
func (s *Subscription) Done() <-chan struct{} { return s.done }

// Messages returns the latest merged list.
func (s *Subscription) Messages() []models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Message(nil), s.messages...)
}

func (s *Subscription) run(ctx context.Context) {
	defer close(s.done)
	defer close(s.updates)

	log := observability.Logger.With("room_id", s.roomID)
	bo := newBackoff(s.cfg.Interval, s.cfg.MaxBackoff)
	first := true

	for {
		if err := s.limiter.Wait(ctx); err != nil {
			return
		}
		err := s.cycle(ctx, first)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			observability.ChatPollErrors.Inc()
			delay := min(bo.NextBackOff(), s.cfg.MaxBackoff)
			log.Warn("chat fetch failed", "error", err, "retry_in", delay)
			if !sleep(ctx, delay) {
				return
			}
			continue
		}
		bo.Reset()
		first = false
	}
}

// cycle waits for news (long-poll mode, after the first load), fetches and
// publishes the merged list when it changed.
func (s *Subscription) cycle(ctx context.Context, first bool) error {
	if s.cfg.LongPoll && !first {
		if _, err := s.src.WaitForMessages(ctx, s.roomID, s.cfg.LongPollTimeout); err != nil {
			return err
		}
	}
	fetched, err := s.src.Messages(ctx, s.roomID, s.cfg.PageSize, 0)
	if err != nil {
		return err
	}

	s.mu.Lock()
	merged, changed := Merge(s.messages, fetched)
	if first {
		changed = true
	}
	s.messages = merged
	s.mu.Unlock()

	if !changed {
		return nil
	}
	out := append([]models.Message(nil), merged...)
	select {
	case s.updates <- out:
	case <-ctx.Done():
	}
	return nil
}

// Merge folds a fetched page into the current list. Any unknown id means
// the fetched list replaces the current one; otherwise only the read flags
// of known messages are refreshed.
func Merge(current, fetched []models.Message) ([]models.Message, bool) {
	known := make(map[string]int, len(current))
	for i, m := range current {
		known[m.ID] = i
	}
	for _, m := range fetched {
		if _, ok := known[m.ID]; !ok {
			return append([]models.Message(nil), fetched...), true
		}
	}

	merged := append([]models.Message(nil), current...)
	changed := false
	for _, m := range fetched {
		i := known[m.ID]
		if merged[i].IsRead != m.IsRead {
			merged[i].IsRead = m.IsRead
			changed = true
		}
	}
	return merged, changed
}

func newBackoff(initial, maxDelay time.Duration) *backoff.ExponentialBackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = initial
	bo.MaxInterval = maxDelay
	bo.Multiplier = 2
	bo.RandomizationFactor = 0.5
	bo.Reset()
	return bo
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
