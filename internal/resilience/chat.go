package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lisan-app/lisan/pkg/provider/chat"
)

// ErrAllBackendsFailed is returned by [ChatFailover.Complete] when every
// registered backend fails.
var ErrAllBackendsFailed = errors.New("all chat backends failed")

// RetryingChat implements [chat.Provider] by wrapping another provider with a
// [Retrier]. Client errors (4xx-equivalent, see [chat.IsClientError]) are
// surfaced immediately; network and server-side failures are retried with
// exponential backoff.
type RetryingChat struct {
	inner   chat.Provider
	retrier *Retrier
}

// Compile-time interface assertion.
var _ chat.Provider = (*RetryingChat)(nil)

// NewRetryingChat wraps inner with the retry policy described by cfg.
func NewRetryingChat(inner chat.Provider, cfg RetryConfig) *RetryingChat {
	return &RetryingChat{
		inner: inner,
		retrier: NewRetrier(cfg, func(err error) bool {
			return !chat.IsClientError(err)
		}),
	}
}

// Complete implements chat.Provider.
func (r *RetryingChat) Complete(ctx context.Context, req chat.Request) (string, error) {
	return DoWithResult(ctx, r.retrier, func() (string, error) {
		return r.inner.Complete(ctx, req)
	})
}

// chatEntry pairs a chat backend with its name for log messages.
type chatEntry struct {
	name     string
	provider chat.Provider
}

// ChatFailover implements [chat.Provider] with ordered failover across
// multiple chat backends. When the primary fails, the next fallback is tried
// in registration order. Client errors do not trigger failover — a malformed
// request will fail identically everywhere.
type ChatFailover struct {
	entries []chatEntry
}

// Compile-time interface assertion.
var _ chat.Provider = (*ChatFailover)(nil)

// NewChatFailover creates a [ChatFailover] with primary as the preferred
// backend. Additional fallbacks are registered via [ChatFailover.AddFallback].
func NewChatFailover(primary chat.Provider, primaryName string) *ChatFailover {
	return &ChatFailover{
		entries: []chatEntry{{name: primaryName, provider: primary}},
	}
}

// AddFallback appends a fallback backend. Fallbacks are tried in the order
// they are added, after the primary.
func (f *ChatFailover) AddFallback(name string, provider chat.Provider) {
	f.entries = append(f.entries, chatEntry{name: name, provider: provider})
}

// Complete implements chat.Provider.
func (f *ChatFailover) Complete(ctx context.Context, req chat.Request) (string, error) {
	var lastErr error
	for _, entry := range f.entries {
		reply, err := entry.provider.Complete(ctx, req)
		if err == nil {
			return reply, nil
		}
		lastErr = err
		if chat.IsClientError(err) {
			return "", err
		}
		if ctx.Err() != nil {
			return "", fmt.Errorf("chat failover aborted: %w", ctx.Err())
		}
		slog.Warn("chat backend failed, trying next", "backend", entry.name, "error", err)
	}
	return "", fmt.Errorf("%w: %v", ErrAllBackendsFailed, lastErr)
}
