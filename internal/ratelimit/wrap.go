package ratelimit

import (
	"context"

	"telegram-bridge/internal/telegram"
)

// maxAttempts bounds flood-wait retries per call, first attempt included.
const maxAttempts = 3

// Do runs fn under the category's limiter. Flood-wait errors trigger the
// demanded pause and a retry, up to maxAttempts total; any other error
// propagates immediately.
func Do(ctx context.Context, reg *Registry, category string, fn func(context.Context) error) error {
	if err := reg.Acquire(ctx, category); err != nil {
		return err
	}
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		wait, ok := telegram.AsFloodWait(err)
		if !ok {
			return err
		}
		lastErr = err
		if attempt < maxAttempts-1 {
			if werr := reg.HandleFloodWait(ctx, category, wait); werr != nil {
				return werr
			}
		}
	}
	return lastErr
}

// Wrap returns fn with rate limiting and flood-wait retry applied, leaving
// composition to the caller.
func Wrap(reg *Registry, category string, fn func(context.Context) error) func(context.Context) error {
	return func(ctx context.Context) error {
		return Do(ctx, reg, category, fn)
	}
}
