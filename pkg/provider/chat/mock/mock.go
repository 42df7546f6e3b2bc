// Package mock provides a test double for the chat.Provider interface.
//
// Use Provider in unit tests to verify the requests the tutoring agent sends
// and to feed controlled replies without a live LLM backend.
//
// Example:
//
//	p := &mock.Provider{Response: `{"arabic": "مرحبا"}`}
//	reply, err := p.Complete(ctx, req)
package mock

import (
	"context"
	"sync"

	"github.com/lisan-app/lisan/pkg/provider/chat"
)

// Call records a single invocation of Complete.
type Call struct {
	// Ctx is the context passed to Complete.
	Ctx context.Context
	// Req is the Request passed to Complete.
	Req chat.Request
}

// Provider is a mock implementation of chat.Provider.
// Zero values cause Complete to return ("", nil). Set Err to inject a
// failure, or CompleteFunc to script per-call behaviour.
type Provider struct {
	mu sync.Mutex

	// Response is returned by Complete when CompleteFunc is nil.
	Response string

	// Err, if non-nil, is returned as the error from Complete.
	Err error

	// CompleteFunc, if non-nil, overrides Response/Err entirely. The call is
	// still recorded. The int argument is the zero-based call index.
	CompleteFunc func(callIndex int, req chat.Request) (string, error)

	// Calls records every invocation of Complete in order.
	Calls []Call
}

// Compile-time check that *Provider satisfies [chat.Provider].
var _ chat.Provider = (*Provider)(nil)

// Complete implements chat.Provider.
func (p *Provider) Complete(ctx context.Context, req chat.Request) (string, error) {
	p.mu.Lock()
	idx := len(p.Calls)
	p.Calls = append(p.Calls, Call{Ctx: ctx, Req: req})
	fn := p.CompleteFunc
	resp, err := p.Response, p.Err
	p.mu.Unlock()

	if fn != nil {
		return fn(idx, req)
	}
	return resp, err
}

// CallCount returns the number of Complete invocations so far.
func (p *Provider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Calls)
}
