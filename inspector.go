package viberbot

import (
	"github.com/tidwall/gjson"
)

// View provides read-only field access to an event's JSON for matchers.
// Paths use gjson syntax ("sender.id", "message.text").
type View interface {
	// HasField returns true if the path exists in the payload.
	HasField(path string) bool

	// GetString returns the string value at path, or false if not found
	// or not a string.
	GetString(path string) (string, bool)

	// GetBytes returns the raw JSON at path (including quotes for strings),
	// or false if not found.
	GetBytes(path string) ([]byte, bool)
}

// validJSONObject reports whether raw is well formed JSON whose top level value
// is an object.
func validJSONObject(raw []byte) bool {
	if !gjson.ValidBytes(raw) {
		return false
	}
	return gjson.ParseBytes(raw).IsObject()
}

// newView returns a View over a private copy of raw.
func newView(raw []byte) View {
	cp := make([]byte, len(raw))
	copy(cp, raw)
	return jsonView{raw: cp}
}

type jsonView struct {
	raw []byte
}

func (v jsonView) HasField(path string) bool {
	return gjson.GetBytes(v.raw, path).Exists()
}

func (v jsonView) GetString(path string) (string, bool) {
	r := gjson.GetBytes(v.raw, path)
	if !r.Exists() {
		return "", false
	}
	if r.Type != gjson.String {
		return "", false
	}
	return r.String(), true
}

func (v jsonView) GetBytes(path string) ([]byte, bool) {
	r := gjson.GetBytes(v.raw, path)
	if !r.Exists() {
		return nil, false
	}
	return []byte(r.Raw), true
}
