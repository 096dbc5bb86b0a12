package viberbot

import (
	"strings"
)

// DefaultAPIBaseURL is the platform API root used by clients built from a token.
const DefaultAPIBaseURL = "https://chatapi.viber.com/pa"

// Client is the credential source the bot verifies signatures with. Outbound
// API clients satisfy it by exposing their auth token.
type Client interface {
	Token() string
}

// APIClient is the client a Bot builds for itself from a token.
type APIClient struct {
	token   string
	baseURL string
}

// ClientOption configures an APIClient.
type ClientOption func(*APIClient)

// WithBaseURL overrides DefaultAPIBaseURL.
func WithBaseURL(u string) ClientOption {
	return func(c *APIClient) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// NewClient returns an APIClient authenticating with token.
func NewClient(token string, opts ...ClientOption) *APIClient {
	c := &APIClient{token: token, baseURL: DefaultAPIBaseURL}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Token implements Client.
func (c *APIClient) Token() string { return c.token }

// BaseURL returns the API root outbound calls are made against.
func (c *APIClient) BaseURL() string { return c.baseURL }
