package viberbot

import (
	"context"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

// OnEventFunc is called once the event is built, before matching.
// Use this to enrich the context with logging fields or trace spans.
// The returned context is used for the rest of the request.
type OnEventFunc func(ctx context.Context, ev Event) context.Context

// OnDispatchFunc is called just before the matched rule's handler executes.
// index is the rule's registration position.
type OnDispatchFunc func(ctx context.Context, ev Event, index int)

// OnSuccessFunc is called after the handler completes successfully. reply is
// nil when the handler produced no reply.
type OnSuccessFunc func(ctx context.Context, ev Event, reply Entity, duration time.Duration)

// OnFailureFunc is called after the handler fails.
type OnFailureFunc func(ctx context.Context, ev Event, err error, duration time.Duration)

// OnNoMatchFunc is called when no rule matches the event.
type OnNoMatchFunc func(ctx context.Context, ev Event)

// OnRejectFunc is called when the request is rejected before matching:
// missing or invalid signature, bad JSON, or an unbuildable event.
type OnRejectFunc func(ctx context.Context, err error)

// hooks holds all configured hook functions.
type hooks struct {
	onEvent    []OnEventFunc
	onDispatch []OnDispatchFunc
	onSuccess  []OnSuccessFunc
	onFailure  []OnFailureFunc
	onNoMatch  []OnNoMatchFunc
	onReject   []OnRejectFunc
}

// Option configures a Bot.
type Option func(*Bot)

// WithLogger sets the logger the bot reports rejections, matches and handler
// failures to. The default discards everything.
func WithLogger(logger glog.Logger) Option {
	return func(b *Bot) {
		b.logger = glog.Ensure(logger)
	}
}

// WithMaxBodyBytes bounds the body ServeHTTP reads. Zero or negative disables
// the bound.
func WithMaxBodyBytes(n int64) Option {
	return func(b *Bot) {
		b.maxBodyBytes = n
	}
}

// WithOnEvent adds a hook called after the event is built.
// Multiple hooks are called in order, with context chaining through each.
//
// Example:
//
//	viberbot.WithOnEvent(func(ctx context.Context, ev viberbot.Event) context.Context {
//	    return logx.WithCtx(ctx, slog.String("event", string(ev.Kind())))
//	})
func WithOnEvent(fn OnEventFunc) Option {
	return func(b *Bot) {
		b.hooks.onEvent = append(b.hooks.onEvent, fn)
	}
}

// WithOnDispatch adds a hook called just before the handler executes.
func WithOnDispatch(fn OnDispatchFunc) Option {
	return func(b *Bot) {
		b.hooks.onDispatch = append(b.hooks.onDispatch, fn)
	}
}

// WithOnSuccess adds a hook called after the handler completes successfully.
//
// Example:
//
//	viberbot.WithOnSuccess(func(ctx context.Context, ev viberbot.Event, reply viberbot.Entity, d time.Duration) {
//	    metrics.Timing("viber.handler", d, "event:"+string(ev.Kind()))
//	})
func WithOnSuccess(fn OnSuccessFunc) Option {
	return func(b *Bot) {
		b.hooks.onSuccess = append(b.hooks.onSuccess, fn)
	}
}

// WithOnFailure adds a hook called after the handler fails.
func WithOnFailure(fn OnFailureFunc) Option {
	return func(b *Bot) {
		b.hooks.onFailure = append(b.hooks.onFailure, fn)
	}
}

// WithOnNoMatch adds a hook called when no rule matches. No match is not an
// error; the hook is for observation only.
func WithOnNoMatch(fn OnNoMatchFunc) Option {
	return func(b *Bot) {
		b.hooks.onNoMatch = append(b.hooks.onNoMatch, fn)
	}
}

// WithOnReject adds a hook called when a request fails before matching.
func WithOnReject(fn OnRejectFunc) Option {
	return func(b *Bot) {
		b.hooks.onReject = append(b.hooks.onReject, fn)
	}
}

func (h *hooks) callOnEvent(ctx context.Context, ev Event) context.Context {
	for _, fn := range h.onEvent {
		ctx = fn(ctx, ev)
	}
	return ctx
}

func (h *hooks) callOnDispatch(ctx context.Context, ev Event, index int) {
	for _, fn := range h.onDispatch {
		fn(ctx, ev, index)
	}
}

func (h *hooks) callOnSuccess(ctx context.Context, ev Event, reply Entity, d time.Duration) {
	for _, fn := range h.onSuccess {
		fn(ctx, ev, reply, d)
	}
}

func (h *hooks) callOnFailure(ctx context.Context, ev Event, err error, d time.Duration) {
	for _, fn := range h.onFailure {
		fn(ctx, ev, err, d)
	}
}

func (h *hooks) callOnNoMatch(ctx context.Context, ev Event) {
	for _, fn := range h.onNoMatch {
		fn(ctx, ev)
	}
}

func (h *hooks) callOnReject(ctx context.Context, err error) {
	for _, fn := range h.onReject {
		fn(ctx, err)
	}
}
