package viberbot

import (
	"bytes"
	"encoding/json"
	"errors"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

// DiscriminantField is the payload field selecting the event variant.
const DiscriminantField = "event"

// validate is shared; building a validator caches struct metadata.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// builder decodes a canonical payload into one variant.
type builder func(raw []byte) (Event, error)

var builders = map[Kind]builder{
	KindWebhook:             build[WebhookEvent],
	KindMessage:             build[MessageEvent],
	KindSubscribed:          build[SubscribedEvent],
	KindUnsubscribed:        build[UnsubscribedEvent],
	KindConversationStarted: build[ConversationStartedEvent],
	KindDelivered:           build[DeliveredEvent],
	KindSeen:                build[SeenEvent],
	KindFailed:              build[FailedEvent],
}

// envelopeSetter lets build attach the view after decoding.
type envelopeSetter interface {
	setView(View)
}

func (e *Envelope) setView(v View) { e.view = v }

// build decodes raw into T, validates its required fields and attaches a view.
func build[T Event](raw []byte) (Event, error) {
	var ev T
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&ev); err != nil {
		return nil, &Error{Kind: ErrMalformedEventPayload, Stage: StageEvent, Cause: err}
	}
	if err := validate.Struct(ev); err != nil {
		return nil, &Error{
			Kind:   ErrMalformedEventPayload,
			Stage:  StageEvent,
			Fields: failedFields(err),
			Cause:  err,
		}
	}
	if s, ok := any(&ev).(envelopeSetter); ok {
		s.setView(newView(raw))
	}
	return ev, nil
}

// failedFields converts validator errors to payload paths such as "sender.id".
func failedFields(err error) []string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		ns := fe.Namespace()
		if _, rest, ok := strings.Cut(ns, "."); ok {
			ns = rest
		}
		fields = append(fields, ns)
	}
	return fields
}

// Kinds returns every discriminant value MakeFromAPI accepts, sorted.
func Kinds() []Kind {
	kinds := make([]Kind, 0, len(builders))
	for k := range builders {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// MakeFromAPI builds the Event variant selected by the payload's "event" field.
//
// It fails with ErrUnrecognizedEventKind when the discriminant is missing, not
// a string, or not a supported kind, and with ErrMalformedEventPayload when the
// selected variant is missing a required field. Numbers should be json.Number
// values (as produced by a decoder with UseNumber) to keep message tokens exact.
func MakeFromAPI(payload map[string]any) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, &Error{Kind: ErrMalformedEventPayload, Stage: StageEvent, Cause: err}
	}
	return ParseEvent(raw)
}

// ParseEvent builds an Event from a raw JSON object.
func ParseEvent(raw []byte) (Event, error) {
	if !validJSONObject(raw) {
		return nil, &Error{Kind: ErrInvalidJSONPayload, Stage: StageDecode}
	}
	view := newView(raw)

	kind, ok := view.GetString(DiscriminantField)
	if !ok {
		return nil, &Error{Kind: ErrUnrecognizedEventKind, Stage: StageEvent}
	}
	b, found := builders[Kind(kind)]
	if !found {
		return nil, &Error{Kind: ErrUnrecognizedEventKind, Stage: StageEvent, EventKind: kind}
	}

	ev, err := b(raw)
	if err != nil {
		var e *Error
		if errors.As(err, &e) {
			e.EventKind = kind
		}
		return nil, err
	}
	return ev, nil
}
