package viberbot

import (
	"context"
)

// Handler acts on a matched event. A non-nil Entity becomes the webhook reply;
// a nil Entity means no reply.
//
// Example:
//
//	type welcome struct{}
//
//	func (welcome) Handle(ctx context.Context, ev viberbot.Event) (viberbot.Entity, error) {
//	    return viberbot.TextMessage{Text: "Hi!"}, nil
//	}
type Handler interface {
	Handle(ctx context.Context, ev Event) (Entity, error)
}

// HandlerFunc is a function adapter for Handler.
type HandlerFunc func(ctx context.Context, ev Event) (Entity, error)

// Handle implements Handler.
func (f HandlerFunc) Handle(ctx context.Context, ev Event) (Entity, error) {
	return f(ctx, ev)
}

// ProcFunc adapts a function that never replies. Use it for delivery receipts
// and other fire-and-forget events:
//
//	bot.OnSeen(viberbot.ProcFunc(func(ctx context.Context, ev viberbot.Event) error {
//	    return receipts.MarkSeen(ctx, ev.(viberbot.SeenEvent).UserID)
//	}))
type ProcFunc func(ctx context.Context, ev Event) error

// Handle implements Handler.
func (f ProcFunc) Handle(ctx context.Context, ev Event) (Entity, error) {
	return nil, f(ctx, ev)
}

// Rule binds a Matcher to a Handler. Rules are evaluated in the order they
// were registered and are not modified afterwards.
type Rule struct {
	matcher Matcher
	handler Handler
}

// NewRule returns a Rule running h for events matched by m.
func NewRule(m Matcher, h Handler) Rule {
	return Rule{matcher: m, handler: h}
}

// IsMatch reports whether the rule applies to ev.
func (r Rule) IsMatch(ev Event) bool {
	return r.matcher.Match(ev)
}

// RunHandler runs the handler once and returns its reply, if any.
func (r Rule) RunHandler(ctx context.Context, ev Event) (Entity, error) {
	return r.handler.Handle(ctx, ev)
}
