package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"go.uber.org/zap"

	"github.com/ava-labs/avalanche-window/pkg/slidingwindow"
)

const prompt = "windowctl> "

const helpText = `commands:
  next [n], n [n]   extend the window forward by n items (default: page size)
  prev [n], p [n]   extend the window backward by n items (default: page size)
  show              print the window bounds and items
  reset <start>     drop every item and move the window to start
  help              print this help
  quit, q           exit
`

// lineReader is satisfied by *readline.Instance.
type lineReader interface {
	Readline() (string, error)
}

// session pages a window interactively. Items are printed as JSON lines.
type session[T any] struct {
	win      *slidingwindow.Window[T]
	in       lineReader
	out      io.Writer
	pageSize int
	log      *zap.SugaredLogger
}

func newSession[T any](
	win *slidingwindow.Window[T],
	in lineReader,
	out io.Writer,
	pageSize int,
	log *zap.SugaredLogger,
) *session[T] {
	return &session[T]{win: win, in: in, out: out, pageSize: pageSize, log: log}
}

// Run reads commands until quit, end of input, an interrupt on an empty line,
// or ctx is done. Command errors are printed and do not end the session.
func (s *session[T]) Run(ctx context.Context) error {
	fmt.Fprint(s.out, helpText)
	s.show()
	for {
		if ctx.Err() != nil {
			return nil
		}
		line, err := s.in.Readline()
		switch {
		case errors.Is(err, readline.ErrInterrupt):
			if line == "" {
				return nil
			}
			continue
		case errors.Is(err, io.EOF):
			return nil
		case err != nil:
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("failed to read command: %w", err)
		}

		quit, err := s.exec(ctx, line)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			s.log.Warnw("command failed", "command", line, "error", err)
			fmt.Fprintf(s.out, "error: %v\n", err)
			continue
		}
		if quit {
			return nil
		}
	}
}

// exec runs one command line and reports whether the session should end.
func (s *session[T]) exec(ctx context.Context, line string) (bool, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false, nil
	}
	cmd, args := strings.ToLower(fields[0]), fields[1:]

	switch cmd {
	case "next", "n":
		n, err := s.count(args)
		if err != nil {
			return false, err
		}
		got, err := s.win.ExtendForward(ctx, n)
		if err != nil {
			return false, err
		}
		fmt.Fprintf(s.out, "fetched %d of %d forward\n", got, n)
		s.show()
	case "prev", "p":
		n, err := s.count(args)
		if err != nil {
			return false, err
		}
		got, err := s.win.ExtendBackward(ctx, n)
		if err != nil {
			return false, err
		}
		fmt.Fprintf(s.out, "fetched %d of %d backward\n", got, n)
		s.show()
	case "show":
		s.show()
	case "reset":
		if len(args) != 1 {
			return false, errors.New("usage: reset <start>")
		}
		start, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return false, fmt.Errorf("invalid start %q: %w", args[0], err)
		}
		s.win.Reset(start)
		s.show()
	case "help", "?":
		fmt.Fprint(s.out, helpText)
	case "quit", "q", "exit":
		return true, nil
	default:
		return false, fmt.Errorf("unknown command %q, type help for a list", cmd)
	}
	return false, nil
}

func (s *session[T]) count(args []string) (int, error) {
	if len(args) == 0 {
		return s.pageSize, nil
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, fmt.Errorf("invalid count %q: %w", args[0], err)
	}
	return n, nil
}

func (s *session[T]) show() {
	fmt.Fprintf(s.out, "window [%d, %d) %d/%d\n",
		s.win.Start(), s.win.End(), s.win.Len(), s.win.Capacity())
	enc := json.NewEncoder(s.out)
	for _, item := range s.win.Items() {
		if err := enc.Encode(item); err != nil {
			s.log.Warnw("failed to encode item", "error", err)
		}
	}
}
