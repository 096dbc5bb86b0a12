package viberbot

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// RequestIDHeader is read from inbound requests and echoed on responses.
const RequestIDHeader = "X-Request-Id"

const tracerName = "github.com/bjaus/viberbot"

// ServeHTTP runs the webhook pipeline for one HTTP request.
//
// A reply entity is written as the JSON body with a 200 status; otherwise the
// response is an empty 200. Errors are answered with the status from
// ToServiceError and a JSON error envelope.
func (b *Bot) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestID := strings.TrimSpace(r.Header.Get(RequestIDHeader))
	if requestID == "" {
		requestID = uuid.NewString()
	}
	w.Header().Set(RequestIDHeader, requestID)

	ctx, span := otel.Tracer(tracerName).Start(r.Context(), "viberbot.webhook",
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(attribute.String("viber.request_id", requestID)),
	)
	defer span.End()

	logger := b.logger.WithContext(ctx)

	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, goerrors.New("viberbot: method not allowed", goerrors.CategoryBadInput).
			WithCode(http.StatusMethodNotAllowed).
			WithTextCode("VIBER_METHOD_NOT_ALLOWED"))
		return
	}

	req, err := NewRequest(r, b.maxBodyBytes)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "read body")
		logger.Warn("viberbot: read body failed", "request_id", requestID, "error", err)
		writeError(w, bodyError(err))
		return
	}

	resp, err := b.Run(ctx, req)
	if resp.Event != nil {
		span.SetAttributes(attribute.String("viber.event", string(resp.Event.Kind())))
	}
	span.SetAttributes(attribute.Bool("viber.matched", resp.Matched))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, stageOf(err))
		writeError(w, ServiceError(err))
		return
	}

	if !resp.HasBody() {
		w.WriteHeader(http.StatusOK)
		return
	}
	w.Header().Set("Content-Type", resp.ContentType)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(resp.Body); err != nil {
		logger.Error("viberbot: write reply failed", "request_id", requestID, "error", err)
	}
}

// bodyError answers an oversized body with 413 and any other read failure
// with 400.
func bodyError(err error) *goerrors.Error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return goerrors.Wrap(err, goerrors.CategoryBadInput, "viberbot: request body too large").
			WithCode(http.StatusRequestEntityTooLarge).
			WithTextCode("VIBER_BODY_TOO_LARGE")
	}
	return goerrors.Wrap(err, goerrors.CategoryBadInput, "viberbot: read body").
		WithCode(http.StatusBadRequest).
		WithTextCode("VIBER_BODY_UNREADABLE")
}

func stageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return string(e.Stage)
	}
	return "unknown"
}

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Category string         `json:"category"`
	Code     string         `json:"code"`
	Message  string         `json:"message"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

func writeError(w http.ResponseWriter, e *goerrors.Error) {
	status := e.Code
	if status == 0 {
		status = http.StatusInternalServerError
	}
	w.Header().Set("Content-Type", ContentTypeJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorEnvelope{Error: errorBody{
		Category: string(e.Category),
		Code:     e.TextCode,
		Message:  e.Message,
		Metadata: e.Metadata,
	}})
}
