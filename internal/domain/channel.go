package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// MaxChannel is the highest mesh channel index.
const MaxChannel = 7

// ErrInvalidChannel is returned for channel values outside 0–MaxChannel.
var ErrInvalidChannel = errors.New("channel must be between 0 and 7")

// Channel is a mesh broadcast channel index.
type Channel uint8

// ParseChannel parses a channel index, rejecting anything outside 0–7.
func ParseChannel(s string) (Channel, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("parse channel %q: %w", s, ErrInvalidChannel)
	}
	if n < 0 || n > MaxChannel {
		return 0, fmt.Errorf("channel %d: %w", n, ErrInvalidChannel)
	}
	return Channel(n), nil
}

func (c Channel) String() string {
	return strconv.Itoa(int(c))
}
