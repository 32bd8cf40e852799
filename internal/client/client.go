// Package client talks to a BlogSphere server on behalf of a signed-in user.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/blogsphere/backend/internal/models"
	"github.com/blogsphere/backend/internal/realtime"
	"github.com/gorilla/websocket"
)

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server answered %d: %s", e.Status, e.Message)
}

// Unread is the caller's unread notification list and total count.
type Unread struct {
	Notifications []models.NotificationView `json:"notifications"`
	UnreadCount   int64                     `json:"unreadCount"`
}

type Client struct {
	baseURL string
	token   string
	http    *http.Client
	dialer  *websocket.Dialer
}

func New(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 15 * time.Second},
		dialer:  websocket.DefaultDialer,
	}
}

// Me returns the identity the token belongs to.
func (c *Client) Me(ctx context.Context) (*models.PublicUser, error) {
	var out struct {
		User models.PublicUser `json:"user"`
	}
	if err := c.call(ctx, http.MethodGet, "/api/users/verify", nil, &out); err != nil {
		return nil, err
	}
	return &out.User, nil
}

func (c *Client) Unread(ctx context.Context) (*Unread, error) {
	var out Unread
	if err := c.call(ctx, http.MethodGet, "/api/notifications", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// MarkRead marks one notification read and returns the server's message
// ("Marked as read" or "Already read").
func (c *Client) MarkRead(ctx context.Context, id string) (string, error) {
	var out struct {
		Message string `json:"message"`
	}
	err := c.call(ctx, http.MethodPatch, "/api/notifications/"+url.PathEscape(id)+"/read", nil, &out)
	return out.Message, err
}

func (c *Client) MarkAllRead(ctx context.Context) (int64, error) {
	var out struct {
		ModifiedCount int64 `json:"modifiedCount"`
	}
	err := c.call(ctx, http.MethodPatch, "/api/notifications/mark-all-read", nil, &out)
	return out.ModifiedCount, err
}

func (c *Client) call(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var apiErr struct {
			Message string `json:"message"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		return &APIError{Status: resp.StatusCode, Message: apiErr.Message}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Watch opens the websocket, joins room and calls handle for every frame until the
// connection drops or ctx is cancelled. joined, if not nil, runs once the join frame
// is sent and before any frame is handled; frames arriving meanwhile are buffered.
func (c *Client) Watch(ctx context.Context, room string, joined func(), handle func(realtime.Frame)) error {
	wsURL, err := c.websocketURL()
	if err != nil {
		return err
	}
	conn, _, err := c.dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", wsURL, err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	payload, _ := json.Marshal(room)
	if err := conn.WriteJSON(realtime.Frame{Event: models.EventJoin, Payload: payload}); err != nil {
		return fmt.Errorf("join %s: %w", room, err)
	}
	if joined != nil {
		joined()
	}

	for {
		var frame realtime.Frame
		if err := conn.ReadJSON(&frame); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("websocket read: %w", err)
		}
		handle(frame)
	}
}

func (c *Client) websocketURL() (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid server url: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws"
	q := u.Query()
	if c.token != "" {
		q.Set("token", c.token)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}
