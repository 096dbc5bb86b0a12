package viberbot

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testToken = "test-token"

const subscribedBody = `{"event":"subscribed","user":{"id":"u1"}}`

// signedRequest returns a request whose header carries a valid signature.
func signedRequest(body string) Request {
	h := http.Header{}
	h.Set(SignatureHeader, Sign(testToken, []byte(body)))
	return Request{Body: []byte(body), Header: h, Query: url.Values{}}
}

func newTestBot(t *testing.T, opts ...Option) *Bot {
	t.Helper()
	b, err := New(Config{Token: testToken}, opts...)
	require.NoError(t, err)
	return b
}

type countingHandler struct {
	calls int
	reply Entity
	err   error
}

func (h *countingHandler) Handle(ctx context.Context, ev Event) (Entity, error) {
	h.calls++
	return h.reply, h.err
}

func TestNew(t *testing.T) {
	t.Run("token builds an api client", func(t *testing.T) {
		b, err := New(Config{Token: "abc"})
		require.NoError(t, err)

		c, ok := b.Client().(*APIClient)
		require.True(t, ok)
		assert.Equal(t, "abc", c.Token())
		assert.Equal(t, DefaultAPIBaseURL, c.BaseURL())
	})

	t.Run("client is used directly", func(t *testing.T) {
		client := NewClient("xyz", WithBaseURL("http://localhost:9000/"))
		b, err := New(Config{Client: client})
		require.NoError(t, err)

		assert.Same(t, client, b.Client())
		assert.Equal(t, "http://localhost:9000", client.BaseURL())
	})

	t.Run("missing credentials", func(t *testing.T) {
		_, err := New(Config{})
		assert.ErrorIs(t, err, ErrMissingCredentials)
	})

	t.Run("conflicting credentials", func(t *testing.T) {
		_, err := New(Config{Token: "abc", Client: NewClient("xyz")})
		assert.ErrorIs(t, err, ErrConflictingCredentials)
	})
}

func TestBot_Run(t *testing.T) {
	t.Run("subscribe reply is written as json", func(t *testing.T) {
		b := newTestBot(t)
		b.OnSubscribe(HandlerFunc(func(ctx context.Context, ev Event) (Entity, error) {
			return Fields{"text": "welcome"}, nil
		}))

		resp, err := b.Run(context.Background(), signedRequest(subscribedBody))
		require.NoError(t, err)

		assert.True(t, resp.Matched)
		assert.Equal(t, `{"text":"welcome"}`, string(resp.Body))
		assert.Equal(t, ContentTypeJSON, resp.ContentType)
		assert.Equal(t, KindSubscribed, resp.Event.Kind())
	})

	t.Run("wrong signature aborts before handlers", func(t *testing.T) {
		b := newTestBot(t)
		h := &countingHandler{}
		b.OnSubscribe(h)

		req := signedRequest(subscribedBody)
		req.Header.Set(SignatureHeader, Sign("other-token", []byte(subscribedBody)))

		_, err := b.Run(context.Background(), req)

		assert.ErrorIs(t, err, ErrInvalidSignature)
		assert.Equal(t, 0, h.calls)

		var e *Error
		require.ErrorAs(t, err, &e)
		assert.Equal(t, StageSignature, e.Stage)
		assert.Equal(t, SignatureHeader, e.Header)
	})

	t.Run("signed non-json body is rejected", func(t *testing.T) {
		b := newTestBot(t)

		_, err := b.Run(context.Background(), signedRequest("not json"))

		assert.ErrorIs(t, err, ErrInvalidJSONPayload)
	})

	t.Run("empty object and non-object bodies are rejected", func(t *testing.T) {
		b := newTestBot(t)
		for _, body := range []string{`{}`, `[1,2]`, `"text"`, `42`, ``} {
			_, err := b.Run(context.Background(), signedRequest(body))
			assert.ErrorIs(t, err, ErrInvalidJSONPayload, "body %q", body)
		}
	})

	t.Run("missing signature", func(t *testing.T) {
		b := newTestBot(t)

		_, err := b.Run(context.Background(), Request{Body: []byte(subscribedBody)})

		assert.ErrorIs(t, err, ErrMissingSignatureHeader)
		var e *Error
		require.ErrorAs(t, err, &e)
		assert.Equal(t, SignatureHeader, e.Header)
	})

	t.Run("query signature overrides header", func(t *testing.T) {
		b := newTestBot(t)
		h := &countingHandler{}
		b.OnSubscribe(h)

		req := signedRequest(subscribedBody)
		req.Query.Set(SignatureQueryParam, req.Header.Get(SignatureHeader))
		req.Header.Set(SignatureHeader, "bogus")

		_, err := b.Run(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, 1, h.calls)
	})

	t.Run("wrong query signature is not rescued by header", func(t *testing.T) {
		b := newTestBot(t)

		req := signedRequest(subscribedBody)
		req.Query.Set(SignatureQueryParam, "bogus")

		_, err := b.Run(context.Background(), req)

		assert.ErrorIs(t, err, ErrInvalidSignature)
		var e *Error
		require.ErrorAs(t, err, &e)
		assert.Equal(t, "query:sig", e.Header)
	})

	t.Run("empty query signature falls back to header", func(t *testing.T) {
		b := newTestBot(t)

		req := signedRequest(subscribedBody)
		req.Query.Set(SignatureQueryParam, "")

		_, err := b.Run(context.Background(), req)
		assert.NoError(t, err)
	})

	t.Run("present but empty header is an invalid signature", func(t *testing.T) {
		b := newTestBot(t)

		req := signedRequest(subscribedBody)
		req.Header.Set(SignatureHeader, "")

		_, err := b.Run(context.Background(), req)
		assert.ErrorIs(t, err, ErrInvalidSignature)
	})

	t.Run("unknown event kind", func(t *testing.T) {
		b := newTestBot(t)
		b.On(MatchAll(), &countingHandler{})

		_, err := b.Run(context.Background(), signedRequest(`{"event":"teleported","user_id":"u1"}`))

		assert.ErrorIs(t, err, ErrUnrecognizedEventKind)
	})

	t.Run("malformed event payload", func(t *testing.T) {
		b := newTestBot(t)

		_, err := b.Run(context.Background(), signedRequest(`{"event":"subscribed","user":{}}`))

		assert.ErrorIs(t, err, ErrMalformedEventPayload)
		var e *Error
		require.ErrorAs(t, err, &e)
		assert.Equal(t, []string{"user.id"}, e.Fields)
		assert.Equal(t, "subscribed", e.EventKind)
	})

	t.Run("no match is not an error", func(t *testing.T) {
		b := newTestBot(t)
		h := &countingHandler{reply: Fields{"text": "x"}}
		b.OnConversation(h)

		resp, err := b.Run(context.Background(), signedRequest(subscribedBody))
		require.NoError(t, err)

		assert.False(t, resp.Matched)
		assert.False(t, resp.HasBody())
		assert.Equal(t, 0, h.calls)
	})
}

func TestBot_FirstMatchWins(t *testing.T) {
	var evaluated []int
	matcher := func(i int, match bool) Matcher {
		return MatcherFunc(func(Event) bool {
			evaluated = append(evaluated, i)
			return match
		})
	}

	b := newTestBot(t)
	first := &countingHandler{}
	second := &countingHandler{reply: Fields{"rule": 2}}
	third := &countingHandler{reply: Fields{"rule": 3}}
	b.On(matcher(0, false), first).
		On(matcher(1, true), second).
		On(matcher(2, true), third)

	resp, err := b.Run(context.Background(), signedRequest(subscribedBody))
	require.NoError(t, err)

	assert.Equal(t, []int{0, 1}, evaluated)
	assert.Equal(t, 0, first.calls)
	assert.Equal(t, 1, second.calls)
	assert.Equal(t, 0, third.calls)
	assert.Equal(t, 1, resp.Index)
	assert.JSONEq(t, `{"rule":2}`, string(resp.Body))
}

func TestBot_Replies(t *testing.T) {
	t.Run("nil entity produces no body", func(t *testing.T) {
		b := newTestBot(t)
		h := &countingHandler{}
		b.OnSubscribe(h)

		resp, err := b.Run(context.Background(), signedRequest(subscribedBody))
		require.NoError(t, err)

		assert.True(t, resp.Matched)
		assert.Nil(t, resp.Body)
		assert.Empty(t, resp.ContentType)
		assert.Equal(t, 1, h.calls)
	})

	t.Run("proc produces no body", func(t *testing.T) {
		b := newTestBot(t)
		called := false
		b.OnSubscribe(ProcFunc(func(ctx context.Context, ev Event) error {
			called = true
			return nil
		}))

		resp, err := b.Run(context.Background(), signedRequest(subscribedBody))
		require.NoError(t, err)

		assert.True(t, called)
		assert.False(t, resp.HasBody())
	})

	t.Run("reply round trips to the same structure", func(t *testing.T) {
		b := newTestBot(t)
		reply := TextMessage{
			Text:         "hello",
			Sender:       &Sender{Name: "bot"},
			TrackingData: "t-1",
			Keyboard: &Keyboard{Buttons: []Button{
				{ActionType: "reply", ActionBody: "yes", Text: "Yes"},
			}},
		}
		b.OnSubscribe(HandlerFunc(func(ctx context.Context, ev Event) (Entity, error) {
			return reply, nil
		}))

		resp, err := b.Run(context.Background(), signedRequest(subscribedBody))
		require.NoError(t, err)

		want, err := json.Marshal(reply.APIPayload())
		require.NoError(t, err)
		assert.Equal(t, string(want), string(resp.Body))

		var decoded map[string]any
		require.NoError(t, json.Unmarshal(resp.Body, &decoded))
		again, err := json.Marshal(decoded)
		require.NoError(t, err)
		assert.JSONEq(t, string(resp.Body), string(again))
	})

	t.Run("handler error propagates", func(t *testing.T) {
		b := newTestBot(t)
		wantErr := errors.New("downstream unavailable")
		b.OnSubscribe(&countingHandler{err: wantErr, reply: Fields{"text": "ignored"}})

		resp, err := b.Run(context.Background(), signedRequest(subscribedBody))

		assert.ErrorIs(t, err, ErrHandlerFailed)
		assert.ErrorIs(t, err, wantErr)
		assert.Nil(t, resp.Body)
	})
}

func TestBot_OnText(t *testing.T) {
	message := func(msgType, text string) string {
		return `{"event":"message","sender":{"id":"u1"},"message":{"type":"` + msgType + `","text":"` + text + `"}}`
	}

	t.Run("matches pattern", func(t *testing.T) {
		b := newTestBot(t)
		b.OnText(`(?i)^hello\b`, HandlerFunc(func(ctx context.Context, ev Event) (Entity, error) {
			text, _ := ev.(MessageEvent).Text()
			return TextMessage{Text: "echo: " + text}, nil
		}))

		resp, err := b.Run(context.Background(), signedRequest(message("text", "Hello there")))
		require.NoError(t, err)
		assert.JSONEq(t, `{"type":"text","text":"echo: Hello there"}`, string(resp.Body))
	})

	t.Run("lookahead patterns are supported", func(t *testing.T) {
		b := newTestBot(t)
		h := &countingHandler{}
		b.OnText(`^(?!stop).*`, h)

		_, err := b.Run(context.Background(), signedRequest(message("text", "stop now")))
		require.NoError(t, err)
		assert.Equal(t, 0, h.calls)

		_, err = b.Run(context.Background(), signedRequest(message("text", "go on")))
		require.NoError(t, err)
		assert.Equal(t, 1, h.calls)
	})

	t.Run("skips non-text messages", func(t *testing.T) {
		b := newTestBot(t)
		h := &countingHandler{}
		b.OnText(`.*`, h)

		resp, err := b.Run(context.Background(), signedRequest(message("picture", "caption")))
		require.NoError(t, err)
		assert.False(t, resp.Matched)
		assert.Equal(t, 0, h.calls)
	})

	t.Run("panics on invalid pattern", func(t *testing.T) {
		b := newTestBot(t)
		assert.Panics(t, func() { b.OnText(`(`, &countingHandler{}) })
	})
}

func TestBot_Registration(t *testing.T) {
	b := newTestBot(t)
	h := &countingHandler{}
	b.OnMessage(h).
		OnSubscribe(h).
		OnUnsubscribe(h).
		OnConversation(h).
		OnDelivered(h).
		OnSeen(h).
		OnFailed(h).
		OnText(`x`, h).
		OnFunc(MatchAll(), func(ctx context.Context, ev Event) (Entity, error) { return nil, nil })

	rules := b.Rules()
	require.Len(t, rules, 9)

	tests := []struct {
		ev   Event
		rule int
	}{
		{MessageEvent{Message: Message{Type: MessageTypeText, Text: "x"}}, 0},
		{SubscribedEvent{}, 1},
		{UnsubscribedEvent{}, 2},
		{ConversationStartedEvent{}, 3},
		{DeliveredEvent{}, 4},
		{SeenEvent{}, 5},
		{FailedEvent{}, 6},
		{WebhookEvent{}, 8},
	}
	for _, tt := range tests {
		t.Run(string(tt.ev.Kind()), func(t *testing.T) {
			resp, err := b.RunEvent(context.Background(), tt.ev)
			require.NoError(t, err)
			assert.Equal(t, tt.rule, resp.Index)
		})
	}

	t.Run("rules is a copy", func(t *testing.T) {
		got := b.Rules()
		got[0] = NewRule(MatchAll(), h)
		assert.Len(t, b.Rules(), 9)
	})
}

// relabeledEvent embeds a package event under a kind the factory rejects.
type relabeledEvent struct {
	SeenEvent
}

func (relabeledEvent) Kind() Kind { return "totally_unknown" }

func TestBot_RunEvent(t *testing.T) {
	t.Run("nil event", func(t *testing.T) {
		b := newTestBot(t)
		h := &countingHandler{}
		b.On(MatchAll(), h)

		_, err := b.RunEvent(context.Background(), nil)

		assert.ErrorIs(t, err, ErrInvalidEventArgument)
		assert.Equal(t, 0, h.calls)
	})

	t.Run("foreign event types", func(t *testing.T) {
		b := newTestBot(t)
		h := &countingHandler{reply: Fields{"text": "should not run"}}
		b.On(MatchAll(), h)

		for name, ev := range map[string]Event{
			"embedded variant": relabeledEvent{SeenEvent: SeenEvent{UserID: "u1"}},
			"pointer variant":  &SeenEvent{UserID: "u1"},
		} {
			t.Run(name, func(t *testing.T) {
				resp, err := b.RunEvent(context.Background(), ev)

				assert.ErrorIs(t, err, ErrInvalidEventArgument)
				assert.False(t, resp.HasBody())
			})
		}
		assert.Equal(t, 0, h.calls)
	})

	t.Run("dispatches a built event without verification", func(t *testing.T) {
		b := newTestBot(t)
		b.OnConversation(HandlerFunc(func(ctx context.Context, ev Event) (Entity, error) {
			return Fields{"text": "hi " + ev.(ConversationStartedEvent).User.Name}, nil
		}))

		resp, err := b.RunEvent(context.Background(), ConversationStartedEvent{User: User{ID: "u1", Name: "Ann"}})
		require.NoError(t, err)
		assert.Equal(t, `{"text":"hi Ann"}`, string(resp.Body))
	})
}

func TestNew_TypedNilClient(t *testing.T) {
	var c *APIClient

	_, err := New(Config{Client: c})
	assert.ErrorIs(t, err, ErrMissingCredentials)

	_, err = New(Config{Token: "abc", Client: c})
	assert.NoError(t, err)
}

func TestBot_NilFieldsIsNoReply(t *testing.T) {
	b := newTestBot(t)
	b.OnSubscribe(HandlerFunc(func(ctx context.Context, ev Event) (Entity, error) {
		return Fields(nil), nil
	}))

	resp, err := b.Run(context.Background(), signedRequest(subscribedBody))

	require.NoError(t, err)
	assert.True(t, resp.Matched)
	assert.False(t, resp.HasBody())
	assert.Empty(t, resp.ContentType)
}
