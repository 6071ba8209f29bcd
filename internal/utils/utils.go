package utils

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"
)

const previewEllipsis = "..."

var sleep = time.Sleep

// WaitFor blocks for d or until ctx is done, whichever happens first.
func WaitFor(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	pause := sleep
	done := make(chan struct{})
	go func() {
		defer close(done)
		pause(d)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

// Chunk splits items into consecutive groups of at most size elements,
// keeping their order.
func Chunk[T any](items []T, size int) [][]T {
	if size <= 0 {
		size = 1
	}

	groups := make([][]T, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		groups = append(groups, items[start:end])
	}

	return groups
}

// Preview flattens s onto one line and keeps at most limit runes of it,
// marking a cut with "...". The result never exceeds limit+3 runes.
func Preview(s string, limit int) string {
	if limit <= 0 {
		return ""
	}

	flat := strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(flat) <= limit {
		return flat
	}

	return string([]rune(flat)[:limit]) + previewEllipsis
}
