package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"damara/internal/groupbuy"
)

// terminal is the notifier and confirmer of the command line client.
type terminal struct {
	mu  sync.Mutex
	in  *bufio.Reader
	out io.Writer
}

func newTerminal(in io.Reader, out io.Writer) *terminal {
	return &terminal{in: bufio.NewReader(in), out: out}
}

func (t *terminal) Notify(n groupbuy.Notice) {
	prefix := "·"
	switch n.Level {
	case groupbuy.LevelSuccess:
		prefix = "✓"
	case groupbuy.LevelError:
		prefix = "✗"
	}
	t.printf("%s %s\n", prefix, n.Message)
}

// Confirm reads a y/n answer. Anything but y or yes, EOF or a cancelled
// context is a no.
func (t *terminal) Confirm(ctx context.Context, prompt string) bool {
	t.printf("%s [y/N] ", prompt)
	answer := make(chan string, 1)
	go func() {
		line, _ := t.readLine()
		answer <- line
	}()
	select {
	case <-ctx.Done():
		return false
	case line := <-answer:
		line = strings.ToLower(strings.TrimSpace(line))
		return line == "y" || line == "yes"
	}
}

func (t *terminal) readLine() (string, error) {
	line, err := t.in.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (t *terminal) printf(format string, args ...any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.out, format, args...)
}
