package inference

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	// DefaultTimeout bounds one completion request
	DefaultTimeout = 60 * time.Second
	DefaultModel   = "gpt-4o-mini"
)

var ErrEmptyCompletion = errors.New("no choices returned from inference API")

// Message is one turn of a chat completion request
type Message struct {
	Role    string `json:"role"` // "system", "user", "assistant"
	Content string `json:"content"`
}

// ResponseFormat selects plain text or JSON object output
type ResponseFormat struct {
	Type string `json:"type"`
}

// Request is an OpenAI-compatible chat completion request
type Request struct {
	Model          string          `json:"model"`
	Messages       []Message       `json:"messages"`
	Temperature    float64         `json:"temperature"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *ResponseFormat `json:"response_format,omitempty"`
}

type choice struct {
	Index        int     `json:"index"`
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

// Response is the subset of the completion response the API uses
type Response struct {
	ID      string   `json:"id"`
	Model   string   `json:"model"`
	Choices []choice `json:"choices"`
}

type apiError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Option modifies a request
type Option func(*Request)

// WithTemperature sets the temperature for the request
func WithTemperature(temp float64) Option {
	return func(req *Request) { req.Temperature = temp }
}

// WithMaxTokens sets the max tokens for the request
func WithMaxTokens(tokens int) Option {
	return func(req *Request) { req.MaxTokens = tokens }
}

// WithJSONResponse enables JSON object output mode
func WithJSONResponse() Option {
	return func(req *Request) { req.ResponseFormat = &ResponseFormat{Type: "json_object"} }
}

// LLM is the language model collaborator
type LLM interface {
	Complete(ctx context.Context, messages []Message, opts ...Option) (string, error)
}

// Config holds configuration for the inference client
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// Client talks to an OpenAI-compatible chat completion endpoint
type Client struct {
	http  *resty.Client
	model string
}

// NewClient creates a client. No retries are configured.
func NewClient(config Config) *Client {
	if config.Timeout == 0 {
		config.Timeout = DefaultTimeout
	}
	if config.Model == "" {
		config.Model = DefaultModel
	}

	http := resty.New().
		SetBaseURL(strings.TrimRight(config.BaseURL, "/")).
		SetTimeout(config.Timeout).
		SetAuthToken(config.APIKey).
		SetHeader("Accept", "application/json")

	return &Client{http: http, model: config.Model}
}

// Complete sends the conversation and returns the first choice's content
func (c *Client) Complete(ctx context.Context, messages []Message, opts ...Option) (string, error) {
	req := Request{
		Model:       c.model,
		Messages:    messages,
		Temperature: 0.3,
		MaxTokens:   2048,
	}
	for _, opt := range opts {
		opt(&req)
	}

	var result Response
	var failure apiError
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&result).
		SetError(&failure).
		Post("/chat/completions")
	if err != nil {
		return "", fmt.Errorf("inference request failed: %w", err)
	}
	if resp.IsError() {
		msg := failure.Error.Message
		if msg == "" {
			msg = resp.String()
		}
		return "", fmt.Errorf("inference API error (status %d): %s", resp.StatusCode(), msg)
	}

	if len(result.Choices) == 0 {
		return "", ErrEmptyCompletion
	}
	content := strings.TrimSpace(result.Choices[0].Message.Content)
	if content == "" {
		return "", ErrEmptyCompletion
	}
	return content, nil
}
