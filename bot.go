package viberbot

import (
	"bytes"
	"context"
	"encoding/json"
	"reflect"
	"time"

	"github.com/dlclark/regexp2"
	glog "github.com/goliatone/go-logger/glog"
)

// DefaultMaxBodyBytes bounds the request body read by ServeHTTP.
const DefaultMaxBodyBytes int64 = 1 << 20

// Config holds the bot's credentials. Exactly one of Token or Client must be
// set: a Token makes the bot build its own APIClient, a Client is used as is.
type Config struct {
	Token  string
	Client Client
}

// Bot verifies webhook requests, builds events and dispatches each event to the
// first matching rule.
//
// Usage:
//  1. Create a bot with New
//  2. Register rules with On, OnText, OnSubscribe, ...
//  3. Serve requests with Run, RunEvent, or the http.Handler
//
// Bot is safe for concurrent use after configuration. Do not register rules
// after the first call to Run, RunEvent or ServeHTTP.
type Bot struct {
	client       Client
	rules        []Rule
	hooks        hooks
	logger       glog.Logger
	maxBodyBytes int64
}

// New creates a Bot from cfg and the given options.
//
// Example:
//
//	bot, err := viberbot.New(viberbot.Config{Token: os.Getenv("VIBER_AUTH_TOKEN")},
//	    viberbot.WithLogger(logger),
//	)
func New(cfg Config, opts ...Option) (*Bot, error) {
	client, err := resolveClient(cfg)
	if err != nil {
		return nil, err
	}
	b := &Bot{
		client:       client,
		logger:       glog.Nop(),
		maxBodyBytes: DefaultMaxBodyBytes,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

func resolveClient(cfg Config) (Client, error) {
	hasToken := cfg.Token != ""
	hasClient := !isNil(cfg.Client)
	switch {
	case hasToken && hasClient:
		return nil, &Error{Kind: ErrConflictingCredentials, Stage: StageConfig}
	case hasToken:
		return NewClient(cfg.Token), nil
	case hasClient:
		return cfg.Client, nil
	default:
		return nil, &Error{Kind: ErrMissingCredentials, Stage: StageConfig}
	}
}

// isNil reports whether c is nil or an interface holding a nil pointer.
func isNil(c Client) bool {
	if c == nil {
		return true
	}
	v := reflect.ValueOf(c)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return v.IsNil()
	default:
		return false
	}
}

// Client returns the resolved credential source.
func (b *Bot) Client() Client { return b.client }

// Rules returns a copy of the registered rules in evaluation order.
func (b *Bot) Rules() []Rule {
	return append([]Rule(nil), b.rules...)
}

// On registers h for events matched by m. Every other registration method
// is a shorthand for On.
func (b *Bot) On(m Matcher, h Handler) *Bot {
	b.rules = append(b.rules, NewRule(m, h))
	return b
}

// OnFunc registers a handler function for events matched by m.
func (b *Bot) OnFunc(m Matcher, fn func(ctx context.Context, ev Event) (Entity, error)) *Bot {
	return b.On(m, HandlerFunc(fn))
}

// OnText registers h for text messages matching pattern. The pattern uses
// Perl/.NET syntax (lookarounds and backreferences allowed); use inline flags
// such as (?i) for modifiers. OnText panics if pattern does not compile.
//
// Example:
//
//	bot.OnText(`(?i)^hello\b`, greet)
func (b *Bot) OnText(pattern string, h Handler) *Bot {
	return b.OnTextRegexp(regexp2.MustCompile(pattern, regexp2.None), h)
}

// OnTextRegexp registers h for text messages matching re.
func (b *Bot) OnTextRegexp(re *regexp2.Regexp, h Handler) *Bot {
	return b.On(MatchText(re), h)
}

// OnMessage registers h for every message event.
func (b *Bot) OnMessage(h Handler) *Bot {
	return b.On(MatchKind(KindMessage), h)
}

// OnSubscribe registers h for subscription events.
func (b *Bot) OnSubscribe(h Handler) *Bot {
	return b.On(MatchKind(KindSubscribed), h)
}

// OnUnsubscribe registers h for unsubscription events.
func (b *Bot) OnUnsubscribe(h Handler) *Bot {
	return b.On(MatchKind(KindUnsubscribed), h)
}

// OnConversation registers h for conversation started events. A reply is
// shown to the user as the welcome message.
func (b *Bot) OnConversation(h Handler) *Bot {
	return b.On(MatchKind(KindConversationStarted), h)
}

// OnDelivered registers h for delivery receipts.
func (b *Bot) OnDelivered(h Handler) *Bot {
	return b.On(MatchKind(KindDelivered), h)
}

// OnSeen registers h for read receipts.
func (b *Bot) OnSeen(h Handler) *Bot {
	return b.On(MatchKind(KindSeen), h)
}

// OnFailed registers h for delivery failures.
func (b *Bot) OnFailed(h Handler) *Bot {
	return b.On(MatchKind(KindFailed), h)
}

// Response is the outcome of one dispatch.
type Response struct {
	// Event is the event that was dispatched.
	Event Event

	// Matched reports whether a rule matched. Index is its position.
	Matched bool
	Index   int

	// Body is the reply's canonical JSON, or nil when there is no reply.
	Body        []byte
	ContentType string
}

// HasBody reports whether the response carries a reply.
func (r Response) HasBody() bool { return r.Body != nil }

// Run authenticates req, builds its event and dispatches it.
//
// The processing flow:
//  1. Take the signature from the "sig" query parameter, else the
//     X-Viber-Content-Signature header
//  2. Verify it over the raw body with the client's token
//  3. Decode the body; it must be a non-empty JSON object
//  4. Build the event with MakeFromAPI
//  5. Run the first matching rule, in registration order
//  6. Encode the handler's Entity, if any, as the response body
//
// Failures in steps 1-4 return an *Error and no handler runs.
func (b *Bot) Run(ctx context.Context, req Request) (Response, error) {
	ev, err := b.resolve(req)
	if err != nil {
		b.reject(ctx, err)
		return Response{}, err
	}
	return b.dispatch(ctx, ev)
}

// RunEvent dispatches an already built event, skipping verification and
// decoding. It fails with ErrInvalidEventArgument when ev is nil or is not one
// of the event types declared in this package.
func (b *Bot) RunEvent(ctx context.Context, ev Event) (Response, error) {
	if !isVariant(ev) {
		err := &Error{Kind: ErrInvalidEventArgument, Stage: StageArgument}
		b.reject(ctx, err)
		return Response{}, err
	}
	return b.dispatch(ctx, ev)
}

// isVariant reports whether ev is one of the package's event values. Types
// that embed a variant still satisfy Event, so the check is by concrete type.
func isVariant(ev Event) bool {
	switch ev.(type) {
	case WebhookEvent, MessageEvent, SubscribedEvent, UnsubscribedEvent,
		ConversationStartedEvent, DeliveredEvent, SeenEvent, FailedEvent:
		return true
	default:
		return false
	}
}

func (b *Bot) resolve(req Request) (Event, error) {
	sig, source, ok := req.signature()
	if !ok {
		return nil, &Error{Kind: ErrMissingSignatureHeader, Stage: StageSignature, Header: SignatureHeader}
	}
	if !IsValid(sig, req.Body, b.client.Token()) {
		return nil, &Error{Kind: ErrInvalidSignature, Stage: StageSignature, Header: source}
	}

	payload, err := decodePayload(req.Body)
	if err != nil {
		return nil, err
	}
	return MakeFromAPI(payload)
}

// decodePayload decodes body into a non-empty mapping, keeping numbers exact.
func decodePayload(body []byte) (map[string]any, error) {
	if !validJSONObject(body) {
		return nil, &Error{Kind: ErrInvalidJSONPayload, Stage: StageDecode}
	}
	var payload map[string]any
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&payload); err != nil {
		return nil, &Error{Kind: ErrInvalidJSONPayload, Stage: StageDecode, Cause: err}
	}
	if len(payload) == 0 {
		return nil, &Error{Kind: ErrInvalidJSONPayload, Stage: StageDecode}
	}
	return payload, nil
}

func (b *Bot) dispatch(ctx context.Context, ev Event) (Response, error) {
	ctx = b.hooks.callOnEvent(ctx, ev)
	logger := b.logger.WithContext(ctx)
	resp := Response{Event: ev}

	for i, rule := range b.rules {
		if !rule.IsMatch(ev) {
			continue
		}
		resp.Matched = true
		resp.Index = i
		logger.Debug("viberbot: rule matched", "event", string(ev.Kind()), "rule", i)

		b.hooks.callOnDispatch(ctx, ev, i)
		start := time.Now()
		reply, err := rule.RunHandler(ctx, ev)
		duration := time.Since(start)
		if err != nil {
			b.hooks.callOnFailure(ctx, ev, err, duration)
			logger.Error("viberbot: handler failed", "event", string(ev.Kind()), "rule", i, "error", err)
			return resp, &Error{Kind: ErrHandlerFailed, Stage: StageHandler, EventKind: string(ev.Kind()), Cause: err}
		}
		b.hooks.callOnSuccess(ctx, ev, reply, duration)

		if reply == nil {
			return resp, nil
		}
		body, err := encodeEntity(reply)
		if err != nil {
			return resp, &Error{Kind: ErrHandlerFailed, Stage: StageHandler, EventKind: string(ev.Kind()), Cause: err}
		}
		if body == nil {
			return resp, nil
		}
		resp.Body = body
		resp.ContentType = ContentTypeJSON
		return resp, nil
	}

	b.hooks.callOnNoMatch(ctx, ev)
	logger.Debug("viberbot: no rule matched", "event", string(ev.Kind()))
	return resp, nil
}

func (b *Bot) reject(ctx context.Context, err error) {
	b.hooks.callOnReject(ctx, err)
	b.logger.WithContext(ctx).Warn("viberbot: request rejected", "error", err)
}
