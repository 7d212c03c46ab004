// Package decoder reads SAME decoder output lines, either directly from
// standard input or from a decoder subprocess fed with raw audio.
package decoder

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/couchcryptid/eas-mesh-relay/internal/domain"
	"github.com/mattn/go-isatty"
)

// Source yields one RawHeader per non-blank line. It implements
// pipeline.Source.
type Source struct {
	name   string
	lines  chan domain.RawHeader
	done   chan struct{}
	once   sync.Once
	errc   chan error // holds the read error, if any, until Next takes it
	cmd    *exec.Cmd
	logger *slog.Logger
}

// NewSource reads decoder output lines from r.
func NewSource(r io.Reader, name string, logger *slog.Logger) *Source {
	s := newSource(name, logger)
	go s.scan(r, nil)
	return s
}

// StartCommand runs a decoder with audio on its stdin and reads the lines it
// prints. The process is killed when ctx is cancelled.
func StartCommand(ctx context.Context, name string, args []string, audio io.Reader, logger *slog.Logger) (*Source, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = audio
	cmd.Stderr = &logWriter{logger: logger}
	// audio is usually a pipe, so Wait would otherwise block on the copy
	// into stdin after the process is gone.
	cmd.WaitDelay = waitDelay
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("decoder stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start decoder %q: %w", name, err)
	}
	logger.Info("decoder started", "command", name, "args", args, "pid", cmd.Process.Pid)

	s := newSource("decoder:"+name, logger)
	s.cmd = cmd
	go s.scan(stdout, cmd.Wait)
	return s, nil
}

// waitDelay bounds how long reaping a killed decoder waits for its I/O.
const waitDelay = time.Second

func newSource(name string, logger *slog.Logger) *Source {
	return &Source{
		name:   name,
		lines:  make(chan domain.RawHeader),
		done:   make(chan struct{}),
		errc:   make(chan error, 1),
		logger: logger,
	}
}

func (s *Source) scan(r io.Reader, wait func() error) {
	defer close(s.lines)
	if wait != nil {
		// Reap on every exit path, including Close, before lines is closed.
		defer s.reap(wait)
	}

	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		raw := domain.RawHeader{Text: line, Source: s.name, ReceivedAt: domain.Now()}
		select {
		case s.lines <- raw:
		case <-s.done:
			return
		}
	}
	if err := sc.Err(); err != nil {
		s.errc <- fmt.Errorf("read %s: %w", s.name, err)
	}
}

func (s *Source) reap(wait func() error) {
	err := wait()
	if err == nil {
		return
	}
	select {
	case <-s.done:
		s.logger.Debug("decoder stopped", "source", s.name, "error", err)
	default:
		s.logger.Warn("decoder exited", "source", s.name, "error", err)
	}
}

// Next blocks until a line is available. When the input ends it returns the
// read error that ended it once, then io.EOF on every later call.
func (s *Source) Next(ctx context.Context) (domain.RawHeader, error) {
	select {
	case <-ctx.Done():
		return domain.RawHeader{}, ctx.Err()
	case raw, ok := <-s.lines:
		if !ok {
			select {
			case err := <-s.errc:
				return domain.RawHeader{}, err
			default:
				return domain.RawHeader{}, io.EOF
			}
		}
		return raw, nil
	}
}

// Close stops delivering lines and kills the decoder process, if any.
func (s *Source) Close() error {
	s.once.Do(func() { close(s.done) })
	if s.cmd != nil && s.cmd.Process != nil {
		if err := s.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
			return fmt.Errorf("kill decoder: %w", err)
		}
	}
	return nil
}

// StdinIsTerminal reports whether standard input is an interactive terminal
// rather than a pipe carrying audio or decoder output.
func StdinIsTerminal() bool {
	fd := os.Stdin.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// logWriter forwards decoder stderr to the logger.
type logWriter struct {
	logger *slog.Logger
}

func (w *logWriter) Write(p []byte) (int, error) {
	for _, line := range strings.Split(strings.TrimRight(string(p), "\n"), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			w.logger.Debug("decoder stderr", "line", line)
		}
	}
	return len(p), nil
}
