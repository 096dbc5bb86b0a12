package viberbot

import (
	"encoding/json"
)

// Kind is the value of the "event" discriminant field of a webhook payload.
type Kind string

// Supported event kinds.
const (
	KindWebhook             Kind = "webhook"
	KindMessage             Kind = "message"
	KindSubscribed          Kind = "subscribed"
	KindUnsubscribed        Kind = "unsubscribed"
	KindConversationStarted Kind = "conversation_started"
	KindDelivered           Kind = "delivered"
	KindSeen                Kind = "seen"
	KindFailed              Kind = "failed"
)

// Message types carried by MessageEvent.
const (
	MessageTypeText     = "text"
	MessageTypePicture  = "picture"
	MessageTypeVideo    = "video"
	MessageTypeFile     = "file"
	MessageTypeSticker  = "sticker"
	MessageTypeContact  = "contact"
	MessageTypeURL      = "url"
	MessageTypeLocation = "location"
)

// Event is one inbound platform occurrence. The set of implementations is
// closed: only the variants in this package satisfy it. Use a type switch or
// Kind to tell them apart.
//
// Events are values. They are built once by MakeFromAPI and are not mutated
// afterwards.
type Event interface {
	// Kind returns the discriminant the event was built from.
	Kind() Kind

	// Common returns the fields shared by every event.
	Common() Envelope

	// View returns read-only field access to the event's JSON.
	View() View

	isEvent()
}

// Envelope holds the fields shared by every event.
type Envelope struct {
	// Timestamp is the event time in milliseconds since the Unix epoch.
	Timestamp int64 `json:"timestamp"`

	// MessageToken identifies the message. It is kept as a json.Number since
	// tokens exceed the float64 integer range.
	MessageToken json.Number `json:"message_token,omitempty"`

	ChatHostname string `json:"chat_hostname,omitempty"`

	view View
}

// Common implements Event.
func (e Envelope) Common() Envelope { return e }

// View implements Event. Events built by hand have an empty view.
func (e Envelope) View() View {
	if e.view == nil {
		return newView([]byte(`{}`))
	}
	return e.view
}

// User describes a platform user.
type User struct {
	ID         string `json:"id" validate:"required"`
	Name       string `json:"name,omitempty"`
	Avatar     string `json:"avatar,omitempty"`
	Country    string `json:"country,omitempty"`
	Language   string `json:"language,omitempty"`
	APIVersion int    `json:"api_version,omitempty"`
}

// Location is a geographic point.
type Location struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Contact is a shared phone book entry.
type Contact struct {
	Name        string `json:"name,omitempty"`
	PhoneNumber string `json:"phone_number,omitempty"`
}

// Message is the content of a MessageEvent. Which fields are set depends on
// Type.
type Message struct {
	Type         string   `json:"type" validate:"required"`
	Text         string   `json:"text,omitempty"`
	Media        string   `json:"media,omitempty"`
	Thumbnail    string   `json:"thumbnail,omitempty"`
	FileName     string   `json:"file_name,omitempty"`
	FileSize     int64    `json:"size,omitempty"`
	Duration     int      `json:"duration,omitempty"`
	StickerID    int64    `json:"sticker_id,omitempty"`
	TrackingData string   `json:"tracking_data,omitempty"`
	Location     Location `json:"location"`
	Contact      Contact  `json:"contact"`
}

// WebhookEvent is sent when a webhook URL is registered.
type WebhookEvent struct {
	Envelope
}

func (WebhookEvent) Kind() Kind { return KindWebhook }
func (WebhookEvent) isEvent() {}

// MessageEvent is a message sent by a user to the bot.
type MessageEvent struct {
	Envelope
	Sender  User    `json:"sender"`
	Message Message `json:"message"`
	Silent  bool    `json:"silent,omitempty"`
}

func (MessageEvent) Kind() Kind { return KindMessage }
func (MessageEvent) isEvent() {}

// Text returns the message text for text messages, or false for any other
// message type.
func (e MessageEvent) Text() (string, bool) {
	if e.Message.Type != MessageTypeText {
		return "", false
	}
	return e.Message.Text, true
}

// SubscribedEvent is sent when a user subscribes to the bot.
type SubscribedEvent struct {
	Envelope
	User User `json:"user"`
}

func (SubscribedEvent) Kind() Kind { return KindSubscribed }
func (SubscribedEvent) isEvent() {}

// UnsubscribedEvent is sent when a user unsubscribes from the bot.
type UnsubscribedEvent struct {
	Envelope
	UserID string `json:"user_id" validate:"required"`
}

func (UnsubscribedEvent) Kind() Kind { return KindUnsubscribed }
func (UnsubscribedEvent) isEvent() {}

// ConversationStartedEvent is sent when a user opens a conversation with the
// bot. A reply to this event is shown as the welcome message.
type ConversationStartedEvent struct {
	Envelope
	Type       string `json:"type,omitempty"`
	Context    string `json:"context,omitempty"`
	User       User   `json:"user"`
	Subscribed bool   `json:"subscribed"`
}

func (ConversationStartedEvent) Kind() Kind { return KindConversationStarted }
func (ConversationStartedEvent) isEvent() {}

// DeliveredEvent is sent when a message reached the user's device.
type DeliveredEvent struct {
	Envelope
	UserID string `json:"user_id" validate:"required"`
}

func (DeliveredEvent) Kind() Kind { return KindDelivered }
func (DeliveredEvent) isEvent() {}

// SeenEvent is sent when the user read a message.
type SeenEvent struct {
	Envelope
	UserID string `json:"user_id" validate:"required"`
}

func (SeenEvent) Kind() Kind { return KindSeen }
func (SeenEvent) isEvent() {}

// FailedEvent is sent when a message could not be delivered.
type FailedEvent struct {
	Envelope
	UserID string `json:"user_id" validate:"required"`
	Desc   string `json:"desc,omitempty"`
}

func (FailedEvent) Kind() Kind { return KindFailed }
func (FailedEvent) isEvent() {}

var (
	_ Event = WebhookEvent{}
	_ Event = MessageEvent{}
	_ Event = SubscribedEvent{}
	_ Event = UnsubscribedEvent{}
	_ Event = ConversationStartedEvent{}
	_ Event = DeliveredEvent{}
	_ Event = SeenEvent{}
	_ Event = FailedEvent{}
)
