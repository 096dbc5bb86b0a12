package viberbot

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ContentTypeJSON is the content type of serialized replies.
const ContentTypeJSON = "application/json"

// Entity is a reply payload a handler wants sent back on the webhook response.
//
// APIPayload returns the entity's canonical projection; it is JSON encoded
// as-is to form the response body.
type Entity interface {
	APIPayload() any
}

// Fields is a free-form Entity. It encodes to exactly its own keys and values.
// A nil Fields is no reply.
//
//	return viberbot.Fields{"text": "welcome"}, nil
type Fields map[string]any

// APIPayload implements Entity.
func (f Fields) APIPayload() any { return map[string]any(f) }

// Sender overrides the bot name and avatar shown with a message.
type Sender struct {
	Name   string `json:"name"`
	Avatar string `json:"avatar,omitempty"`
}

// Button is one keyboard button.
type Button struct {
	Columns    int    `json:"Columns,omitempty"`
	Rows       int    `json:"Rows,omitempty"`
	ActionType string `json:"ActionType,omitempty"`
	ActionBody string `json:"ActionBody"`
	Text       string `json:"Text,omitempty"`
	BgColor    string `json:"BgColor,omitempty"`
	Silent     bool   `json:"Silent,omitempty"`
}

// Keyboard is a custom keyboard attached to a message.
type Keyboard struct {
	Buttons       []Button `json:"Buttons"`
	DefaultHeight bool     `json:"DefaultHeight,omitempty"`
	BgColor       string   `json:"BgColor,omitempty"`
}

// messageBase holds the fields shared by outgoing messages.
type messageBase struct {
	Type          string    `json:"type"`
	Sender        *Sender   `json:"sender,omitempty"`
	TrackingData  string    `json:"tracking_data,omitempty"`
	MinAPIVersion int       `json:"min_api_version,omitempty"`
	Keyboard      *Keyboard `json:"keyboard,omitempty"`
}

// TextMessage is a plain text reply.
type TextMessage struct {
	Text          string
	Sender        *Sender
	TrackingData  string
	MinAPIVersion int
	Keyboard      *Keyboard
}

// APIPayload implements Entity.
func (m TextMessage) APIPayload() any {
	return struct {
		messageBase
		Text string `json:"text"`
	}{
		messageBase: messageBase{
			Type:          MessageTypeText,
			Sender:        m.Sender,
			TrackingData:  m.TrackingData,
			MinAPIVersion: m.MinAPIVersion,
			Keyboard:      m.Keyboard,
		},
		Text: m.Text,
	}
}

// PictureMessage is an image reply.
type PictureMessage struct {
	Media     string
	Text      string
	Thumbnail string
	Sender    *Sender
	Keyboard  *Keyboard
}

// APIPayload implements Entity.
func (m PictureMessage) APIPayload() any {
	return struct {
		messageBase
		Media     string `json:"media"`
		Text      string `json:"text,omitempty"`
		Thumbnail string `json:"thumbnail,omitempty"`
	}{
		messageBase: messageBase{Type: MessageTypePicture, Sender: m.Sender, Keyboard: m.Keyboard},
		Media:       m.Media,
		Text:        m.Text,
		Thumbnail:   m.Thumbnail,
	}
}

// URLMessage is a link reply.
type URLMessage struct {
	Media    string
	Sender   *Sender
	Keyboard *Keyboard
}

// APIPayload implements Entity.
func (m URLMessage) APIPayload() any {
	return struct {
		messageBase
		Media string `json:"media"`
	}{
		messageBase: messageBase{Type: MessageTypeURL, Sender: m.Sender, Keyboard: m.Keyboard},
		Media:       m.Media,
	}
}

// encodeEntity returns the canonical JSON of e. A projection that encodes to
// null, such as a nil Fields, yields a nil body and means no reply.
func encodeEntity(e Entity) ([]byte, error) {
	body, err := json.Marshal(e.APIPayload())
	if err != nil {
		return nil, fmt.Errorf("encode reply: %w", err)
	}
	if bytes.Equal(body, jsonNull) {
		return nil, nil
	}
	return body, nil
}

var jsonNull = []byte("null")

var (
	_ Entity = Fields(nil)
	_ Entity = TextMessage{}
	_ Entity = PictureMessage{}
	_ Entity = URLMessage{}
)
