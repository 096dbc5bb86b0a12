package viberbot

import (
	"github.com/dlclark/regexp2"
)

// Matcher decides whether a rule applies to an event. Matchers should be pure
// predicates; they run for every rule in order until one matches.
type Matcher interface {
	Match(ev Event) bool
}

// MatcherFunc adapts a function to Matcher.
type MatcherFunc func(ev Event) bool

// Match implements Matcher.
func (f MatcherFunc) Match(ev Event) bool { return f(ev) }

// MatchAll returns a Matcher that matches every event.
func MatchAll() Matcher {
	return MatcherFunc(func(Event) bool { return true })
}

// MatchKind returns a Matcher that matches events of any of the given kinds.
func MatchKind(kinds ...Kind) Matcher {
	return matchKind{kinds: kinds}
}

type matchKind struct {
	kinds []Kind
}

func (m matchKind) Match(ev Event) bool {
	k := ev.Kind()
	for _, want := range m.kinds {
		if k == want {
			return true
		}
	}
	return false
}

// MatchText returns a Matcher for text messages whose text matches re.
// A pattern that errors while matching (for example on timeout) does not
// match.
func MatchText(re *regexp2.Regexp) Matcher {
	return matchText{re: re}
}

type matchText struct {
	re *regexp2.Regexp
}

func (m matchText) Match(ev Event) bool {
	msg, ok := ev.(MessageEvent)
	if !ok {
		return false
	}
	text, ok := msg.Text()
	if !ok {
		return false
	}
	matched, err := m.re.MatchString(text)
	return err == nil && matched
}

// HasFields returns a Matcher that matches when all paths exist in the event
// payload.
func HasFields(paths ...string) Matcher {
	return hasFields{paths: paths}
}

type hasFields struct {
	paths []string
}

func (m hasFields) Match(ev Event) bool {
	v := ev.View()
	for _, p := range m.paths {
		if !v.HasField(p) {
			return false
		}
	}
	return true
}

// FieldEquals returns a Matcher that matches when the path exists in the event
// payload and equals the given string value.
func FieldEquals(path, value string) Matcher {
	return fieldEquals{path: path, value: value}
}

type fieldEquals struct {
	path  string
	value string
}

func (m fieldEquals) Match(ev Event) bool {
	s, ok := ev.View().GetString(m.path)
	return ok && s == m.value
}

// And returns a Matcher that matches when all matchers match.
func And(ms ...Matcher) Matcher {
	return and{ms: ms}
}

type and struct {
	ms []Matcher
}

func (m and) Match(ev Event) bool {
	for _, inner := range m.ms {
		if !inner.Match(ev) {
			return false
		}
	}
	return true
}

// Or returns a Matcher that matches when any matcher matches.
func Or(ms ...Matcher) Matcher {
	return or{ms: ms}
}

type or struct {
	ms []Matcher
}

func (m or) Match(ev Event) bool {
	for _, inner := range m.ms {
		if inner.Match(ev) {
			return true
		}
	}
	return false
}

// Not returns a Matcher that inverts m.
func Not(m Matcher) Matcher {
	return MatcherFunc(func(ev Event) bool { return !m.Match(ev) })
}
