// Package telegram is a minimal Bot API client: long-poll updates out,
// messages and reply keyboards in.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

const apiBase = "https://api.telegram.org"

// Update is one long-poll result. Only message updates are consumed.
type Update struct {
	UpdateID int64    `json:"update_id"`
	Message  *Message `json:"message"`
}

// Message is an incoming chat message.
type Message struct {
	MessageID int64  `json:"message_id"`
	From      *User  `json:"from"`
	Chat      Chat   `json:"chat"`
	Text      string `json:"text"`
}

// User identifies the sender.
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

// Chat identifies where to reply.
type Chat struct {
	ID int64 `json:"id"`
}

// Client talks to the Bot API for a single bot token.
type Client struct {
	baseURL     string
	token       string
	pollTimeout time.Duration
	httpClient  *http.Client
}

// NewClient creates a Bot API client. pollTimeout is the server-side
// getUpdates long-poll window; the HTTP timeout is set safely above it.
func NewClient(token string, pollTimeout time.Duration) *Client {
	return &Client{
		baseURL:     apiBase,
		token:       token,
		pollTimeout: pollTimeout,
		httpClient:  &http.Client{Timeout: pollTimeout + 10*time.Second},
	}
}

// NewClientWithBase creates a client against a custom API base URL.
func NewClientWithBase(baseURL, token string, pollTimeout time.Duration) *Client {
	c := NewClient(token, pollTimeout)
	c.baseURL = baseURL
	return c
}

type apiResponse struct {
	OK          bool            `json:"ok"`
	Description string          `json:"description"`
	Result      json.RawMessage `json:"result"`
}

func (c *Client) call(ctx context.Context, method string, payload any, result any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", method, err)
	}

	url := c.baseURL + "/bot" + c.token + "/" + method
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	defer resp.Body.Close()

	var api apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&api); err != nil {
		return fmt.Errorf("decode %s response: %w", method, err)
	}
	if !api.OK {
		return fmt.Errorf("%s: api error: %s", method, api.Description)
	}
	if result != nil {
		if err := json.Unmarshal(api.Result, result); err != nil {
			return fmt.Errorf("decode %s result: %w", method, err)
		}
	}
	return nil
}

// GetUpdates long-polls for updates after the given offset.
func (c *Client) GetUpdates(ctx context.Context, offset int64) ([]Update, error) {
	payload := map[string]any{
		"offset":          offset,
		"timeout":         int(c.pollTimeout.Seconds()),
		"allowed_updates": []string{"message"},
	}
	var updates []Update
	if err := c.call(ctx, "getUpdates", payload, &updates); err != nil {
		return nil, err
	}
	return updates, nil
}

// SendText sends a plain message, removing any open reply keyboard.
func (c *Client) SendText(ctx context.Context, chatID int64, text string) error {
	payload := map[string]any{
		"chat_id":      chatID,
		"text":         text,
		"reply_markup": map[string]any{"remove_keyboard": true},
	}
	return c.call(ctx, "sendMessage", payload, nil)
}

// SendKeyboard sends a message with a one-time reply keyboard, one row
// per entry in buttons.
func (c *Client) SendKeyboard(ctx context.Context, chatID int64, text string, buttons [][]string) error {
	rows := make([][]map[string]string, 0, len(buttons))
	for _, row := range buttons {
		r := make([]map[string]string, 0, len(row))
		for _, label := range row {
			r = append(r, map[string]string{"text": label})
		}
		rows = append(rows, r)
	}
	payload := map[string]any{
		"chat_id": chatID,
		"text":    text,
		"reply_markup": map[string]any{
			"keyboard":          rows,
			"one_time_keyboard": true,
			"resize_keyboard":   true,
		},
	}
	return c.call(ctx, "sendMessage", payload, nil)
}

// UserID renders a numeric Telegram user ID as the store's string key.
func UserID(id int64) string {
	return strconv.FormatInt(id, 10)
}
