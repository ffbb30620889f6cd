// Package relayclient talks to a running chatrelay from the CLI: it
// exchanges credentials for a token and consumes the token stream of the
// chat route.
package relayclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/papercomputeco/chatrelay/pkg/llm"
	"github.com/papercomputeco/chatrelay/pkg/transcode"
)

const (
	chatRoute  = "/api/chat"
	loginRoute = "/api/login"

	// DefaultTimeout bounds one whole exchange. Replies can be slow.
	DefaultTimeout = 5 * time.Minute

	maxErrorBody = 64 * 1024
)

// StatusError is returned when the relay answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("relay returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("relay returned status %d: %s", e.StatusCode, e.Message)
}

// ErrEmptyToken is returned by Login when the relay answers 200 without an
// access token.
var ErrEmptyToken = errors.New("login response carried no access token")

// Client is an HTTP client for the relay routes.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New returns a Client for the relay at baseURL. A non-positive timeout
// selects DefaultTimeout.
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Login exchanges username and password for a bearer token.
func (c *Client) Login(ctx context.Context, username, password string) (*llm.LoginResponse, error) {
	body, err := json.Marshal(llm.LoginRequest{Username: username, Password: password})
	if err != nil {
		return nil, fmt.Errorf("marshaling login request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+loginRoute, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending login request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp)
	}

	out := &llm.LoginResponse{}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return nil, fmt.Errorf("decoding login response: %w", err)
	}
	if out.AccessToken == "" {
		return nil, ErrEmptyToken
	}

	return out, nil
}

// Chat sends messages to the chat route and decodes the token stream. Each
// delta is handed to onDelta as it arrives. The returned reply holds every
// delta received, also when the stream broke off with an error.
func (c *Client) Chat(ctx context.Context, token string, messages []llm.Message, onDelta func(string)) (string, error) {
	body, err := json.Marshal(llm.ChatRequest{Messages: messages})
	if err != nil {
		return "", fmt.Errorf("marshaling chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+chatRoute, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("sending chat request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", statusError(resp)
	}

	var reply strings.Builder
	dec := transcode.NewDecoder(resp.Body)
	for {
		delta, err := dec.Next()
		if errors.Is(err, io.EOF) {
			return reply.String(), nil
		}
		if err != nil {
			return reply.String(), fmt.Errorf("reading token stream: %w", err)
		}

		reply.WriteString(delta)
		if onDelta != nil {
			onDelta(delta)
		}
	}
}

func statusError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	errResp := llm.ErrorResponse{}
	if err := json.Unmarshal(data, &errResp); err == nil && errResp.Error != "" {
		return &StatusError{StatusCode: resp.StatusCode, Message: errResp.Error}
	}

	return &StatusError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(data))}
}
