// Package client implements the Test Service contract over HTTP,
// speaking the examination server's response envelope.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/examind/proctor/internal/model"
	"github.com/examind/proctor/internal/response"
	"github.com/examind/proctor/internal/session"
)

// Client is an HTTP implementation of session.TestService.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	log     zerolog.Logger
}

// New creates a Client for the given API base URL (e.g.
// "http://localhost:8080/api/v1").
func New(baseURL string, log zerolog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 15 * time.Second},
		log:     log.With().Str("component", "client").Logger(),
	}
}

// SetToken installs the bearer credential used on authenticated calls.
func (c *Client) SetToken(token string) {
	c.token = token
}

// Token returns the current bearer credential.
func (c *Client) Token() string {
	return c.token
}

// APIError is a structured error returned by the test service.
type APIError struct {
	Status  int
	Code    response.ErrCode
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s (%s)", e.Message, e.Code)
}

// Login authenticates and installs the returned bearer token.
func (c *Client) Login(ctx context.Context, email, password string) (*model.Student, error) {
	var out model.LoginResponse
	err := c.do(ctx, http.MethodPost, "/auth/login", model.LoginRequest{
		Email:    email,
		Password: password,
	}, &out)
	if err != nil {
		return nil, err
	}
	c.token = out.Token
	return &out.Student, nil
}

// FetchTest retrieves the test definition (correct answers stripped
// server-side).
func (c *Client) FetchTest(ctx context.Context, testID uuid.UUID) (*model.TestForStudent, error) {
	var out struct {
		Test *model.TestForStudent `json:"test"`
	}
	if err := c.do(ctx, http.MethodGet, "/tests/"+testID.String(), nil, &out); err != nil {
		return nil, err
	}
	return out.Test, nil
}

// FetchAttempts retrieves the caller's prior results.
func (c *Client) FetchAttempts(ctx context.Context) ([]model.ResultSummary, error) {
	var out struct {
		Results []model.ResultSummary `json:"results"`
	}
	if err := c.do(ctx, http.MethodGet, "/results/mine", nil, &out); err != nil {
		return nil, err
	}
	return out.Results, nil
}

// Submit sends the final answer payload. A server-side rejection that
// can never succeed on retry (attempt already recorded) is surfaced as
// session.RejectedError so the state machine closes out instead of
// retrying.
func (c *Client) Submit(ctx context.Context, testID uuid.UUID, sub model.Submission) error {
	err := c.do(ctx, http.MethodPost, "/tests/"+testID.String()+"/submit", sub, nil)
	if err == nil {
		return nil
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Code == response.ErrAlreadyAttempted {
		return &session.RejectedError{Message: apiErr.Message}
	}
	return err
}

// do performs one request/response cycle against the envelope format.
func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer res.Body.Close()

	var envelope struct {
		Data  json.RawMessage     `json:"data"`
		Error *response.ErrorBody `json:"error"`
	}
	if err := json.NewDecoder(res.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("decode response (%d): %w", res.StatusCode, err)
	}

	if res.StatusCode >= 400 {
		apiErr := &APIError{Status: res.StatusCode, Code: response.ErrInternal, Message: "request failed"}
		if envelope.Error != nil {
			apiErr.Code = envelope.Error.Code
			apiErr.Message = envelope.Error.Message
		}
		c.log.Debug().Int("status", res.StatusCode).Str("code", string(apiErr.Code)).Str("path", path).Msg("Request failed")
		return apiErr
	}

	if out != nil {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return fmt.Errorf("decode data: %w", err)
		}
	}
	return nil
}
