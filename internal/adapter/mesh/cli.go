// Package mesh provides delivery.Sink implementations that hand text to a
// mesh radio: the radio's command-line client, an HTTP gateway, or the log.
package mesh

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/couchcryptid/eas-mesh-relay/internal/domain"
)

// Runner executes a command and returns its combined output.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// CLISink sends each fragment by invoking the radio's command-line client
// once. The radio is reached over a serial device (Port) or TCP (Host).
type CLISink struct {
	Path    string
	Port    string
	Host    string
	WantAck bool

	run Runner
}

// NewCLISink creates a CLISink that executes the real client.
func NewCLISink(path, port, host string, wantAck bool) *CLISink {
	return &CLISink{Path: path, Port: port, Host: host, WantAck: wantAck, run: execRunner}
}

// WithRunner replaces the command runner. Used by tests.
func (s *CLISink) WithRunner(r Runner) *CLISink {
	s.run = r
	return s
}

func (s *CLISink) Validate() error {
	if s.Path == "" {
		return errors.New("mesh cli: path is required")
	}
	if s.Port != "" && s.Host != "" {
		return errors.New("mesh cli: port and host are mutually exclusive")
	}
	if s.Port == "" && s.Host == "" {
		return errors.New("mesh cli: port or host is required")
	}
	return nil
}

// Args returns the client arguments for one fragment.
func (s *CLISink) Args(text string, channel domain.Channel) []string {
	args := []string{"--ch-index", strconv.Itoa(int(channel)), "--sendtext", text}
	if s.WantAck {
		args = append(args, "--ack")
	}
	if s.Host != "" {
		return append(args, "--host", s.Host)
	}
	return append(args, "--port", s.Port)
}

// Deliver implements delivery.Sink.
func (s *CLISink) Deliver(ctx context.Context, text string, channel domain.Channel) error {
	out, err := s.run(ctx, s.Path, s.Args(text, channel)...)
	if err != nil {
		if msg := strings.TrimSpace(string(bytes.ToValidUTF8(out, nil))); msg != "" {
			return fmt.Errorf("mesh cli: %w: %s", err, msg)
		}
		return fmt.Errorf("mesh cli: %w", err)
	}
	return nil
}
