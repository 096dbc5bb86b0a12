package viberbot

import (
	"errors"
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

// Error kinds. Every error returned by this package matches exactly one of
// these with errors.Is.
var (
	ErrMissingCredentials     = errors.New("viberbot: specify client or token")
	ErrConflictingCredentials = errors.New("viberbot: specify only one of client or token")
	ErrMissingSignatureHeader = errors.New("viberbot: signature header not found")
	ErrInvalidSignature       = errors.New("viberbot: invalid signature")
	ErrInvalidJSONPayload     = errors.New("viberbot: invalid json payload")
	ErrUnrecognizedEventKind  = errors.New("viberbot: unrecognized event kind")
	ErrMalformedEventPayload  = errors.New("viberbot: malformed event payload")
	ErrInvalidEventArgument   = errors.New("viberbot: invalid event argument")
	ErrHandlerFailed          = errors.New("viberbot: handler failed")
)

// Stage names the pipeline step an Error came from.
type Stage string

const (
	StageConfig    Stage = "config"
	StageSignature Stage = "signature"
	StageDecode    Stage = "decode"
	StageEvent     Stage = "event"
	StageArgument  Stage = "argument"
	StageHandler   Stage = "handler"
)

// Text codes reported by ToServiceError.
const (
	TextCodeCredentials      = "VIBER_CREDENTIALS"
	TextCodeSignatureMissing = "VIBER_SIGNATURE_MISSING"
	TextCodeSignatureInvalid = "VIBER_SIGNATURE_INVALID"
	TextCodeInvalidJSON      = "VIBER_INVALID_JSON"
	TextCodeUnknownEvent     = "VIBER_UNKNOWN_EVENT"
	TextCodeMalformedEvent   = "VIBER_MALFORMED_EVENT"
	TextCodeInvalidEventArg  = "VIBER_INVALID_EVENT_ARGUMENT"
	TextCodeHandlerFailed    = "VIBER_HANDLER_FAILED"
	TextCodeInternal         = "VIBER_INTERNAL"
)

// Error is the error type returned by New, Run and RunEvent. Kind is one of
// the Err* sentinels; the remaining fields carry diagnostic context.
type Error struct {
	Kind  error
	Stage Stage

	// Header is the signature source that was consulted, if any.
	Header string

	// EventKind is the discriminant value seen in the payload, if any.
	EventKind string

	// Fields lists the payload paths that failed validation.
	Fields []string

	Cause error
}

func (e *Error) Error() string {
	if e == nil || e.Kind == nil {
		return "viberbot: unknown error"
	}
	var b strings.Builder
	b.WriteString(e.Kind.Error())
	if e.Header != "" {
		b.WriteString(" (")
		b.WriteString(e.Header)
		b.WriteString(")")
	}
	if e.EventKind != "" {
		b.WriteString(": event ")
		b.WriteString(e.EventKind)
	}
	if len(e.Fields) > 0 {
		b.WriteString(": fields ")
		b.WriteString(strings.Join(e.Fields, ", "))
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	if e.Cause == nil {
		return e.Kind
	}
	return errors.Join(e.Kind, e.Cause)
}

// ToServiceError maps the error onto a go-errors envelope carrying the HTTP
// status a hosting layer should answer with.
func (e *Error) ToServiceError() *goerrors.Error {
	category, code, textCode := classify(e.Kind)
	out := goerrors.New(e.Error(), category).
		WithCode(code).
		WithTextCode(textCode)
	if meta := e.metadata(); len(meta) > 0 {
		out.WithMetadata(meta)
	}
	return out
}

func (e *Error) metadata() map[string]any {
	meta := map[string]any{}
	if e.Stage != "" {
		meta["stage"] = string(e.Stage)
	}
	if e.Header != "" {
		meta["header"] = e.Header
	}
	if e.EventKind != "" {
		meta["event"] = e.EventKind
	}
	if len(e.Fields) > 0 {
		meta["fields"] = append([]string(nil), e.Fields...)
	}
	return meta
}

func classify(kind error) (goerrors.Category, int, string) {
	switch kind {
	case ErrMissingCredentials, ErrConflictingCredentials:
		return goerrors.CategoryInternal, http.StatusInternalServerError, TextCodeCredentials
	case ErrMissingSignatureHeader:
		return goerrors.CategoryBadInput, http.StatusBadRequest, TextCodeSignatureMissing
	case ErrInvalidSignature:
		return goerrors.CategoryAuth, http.StatusUnauthorized, TextCodeSignatureInvalid
	case ErrInvalidJSONPayload:
		return goerrors.CategoryBadInput, http.StatusBadRequest, TextCodeInvalidJSON
	case ErrUnrecognizedEventKind:
		return goerrors.CategoryValidation, http.StatusUnprocessableEntity, TextCodeUnknownEvent
	case ErrMalformedEventPayload:
		return goerrors.CategoryValidation, http.StatusUnprocessableEntity, TextCodeMalformedEvent
	case ErrInvalidEventArgument:
		return goerrors.CategoryInternal, http.StatusInternalServerError, TextCodeInvalidEventArg
	case ErrHandlerFailed:
		return goerrors.CategoryOperation, http.StatusInternalServerError, TextCodeHandlerFailed
	default:
		return goerrors.CategoryInternal, http.StatusInternalServerError, TextCodeInternal
	}
}

// ServiceError maps any error onto a go-errors envelope. Errors that did not
// come from this package map to an internal error.
func ServiceError(err error) *goerrors.Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e.ToServiceError()
	}
	return goerrors.Wrap(err, goerrors.CategoryInternal, "viberbot: internal error").
		WithCode(http.StatusInternalServerError).
		WithTextCode(TextCodeInternal)
}
