// Package viberbot dispatches Viber bot webhook requests to handlers.
//
// A Bot verifies the request signature, decodes the JSON body into a typed
// Event, runs the first registered rule that matches the event, and encodes
// the handler's reply, if any, as the response body.
//
// # Quick Start
//
//	bot, err := viberbot.New(viberbot.Config{Token: os.Getenv("VIBER_AUTH_TOKEN")})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	bot.OnConversation(viberbot.HandlerFunc(func(ctx context.Context, ev viberbot.Event) (viberbot.Entity, error) {
//	    return viberbot.TextMessage{Text: "Welcome!"}, nil
//	}))
//
//	http.Handle("/webhook", bot)
//
// # Pipeline
//
// Each request goes through the same steps, and stops at the first failure:
//
//  1. Signature: the "sig" query parameter, else the X-Viber-Content-Signature
//     header, must hold the hex HMAC-SHA256 of the raw body keyed by the token
//  2. Decode: the body must be a non-empty JSON object
//  3. Event: the "event" field selects the Event variant; required fields of
//     that variant must be present
//  4. Match: rules are tried in registration order; only the first match runs
//  5. Reply: a non-nil Entity returned by the handler is written as JSON
//
// No matching rule is a normal outcome: nothing runs and nothing is written.
//
// # Events
//
// Event is a closed set of variants: WebhookEvent, MessageEvent,
// SubscribedEvent, UnsubscribedEvent, ConversationStartedEvent,
// DeliveredEvent, SeenEvent and FailedEvent. Handlers tell them apart with a
// type switch or Kind:
//
//	switch ev := ev.(type) {
//	case viberbot.MessageEvent:
//	    text, _ := ev.Text()
//	case viberbot.SubscribedEvent:
//	    _ = ev.User.ID
//	}
//
// # Matchers
//
// A rule pairs a Matcher with a Handler. Composable matchers are provided:
//   - MatchKind: event kind is one of the given kinds
//   - MatchText: text message matching a pattern
//   - HasFields: payload paths exist
//   - FieldEquals: payload path equals a string
//   - And, Or, Not: composition
//
// The On* registration methods are shorthands that append one rule each:
//
//	bot.OnText(`(?i)^help`, help).
//	    OnSubscribe(subscribed).
//	    On(viberbot.FieldEquals("message.type", "location"), locate)
//
// # Hooks
//
// Hooks provide observability without coupling to a logging or metrics system:
//
//	bot, _ := viberbot.New(cfg,
//	    viberbot.WithOnSuccess(func(ctx context.Context, ev viberbot.Event, reply viberbot.Entity, d time.Duration) {
//	        metrics.Timing("viber.handler", d, "event:"+string(ev.Kind()))
//	    }),
//	    viberbot.WithOnReject(func(ctx context.Context, err error) {
//	        metrics.Incr("viber.rejected")
//	    }),
//	)
//
// # Error Handling
//
// Every failure is an *Error whose Kind is one of the Err* sentinels, so
// callers can use errors.Is:
//
//	_, err := bot.Run(ctx, req)
//	if errors.Is(err, viberbot.ErrInvalidSignature) {
//	    // forged or misconfigured sender
//	}
//
// ToServiceError maps an *Error to a go-errors envelope carrying the HTTP
// status; ServeHTTP uses it to answer failed requests. Handler errors are
// returned wrapped in ErrHandlerFailed and still match the original error.
//
// # Thread Safety
//
// Bot is safe for concurrent use once registration is complete. Do not
// register rules after serving starts.
package viberbot
