package chatbot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

// sendRetries bounds delivery attempts for one reply.  Transport failures
// never corrupt credential state — by the time a reply is being delivered,
// every domain mutation has already committed — so giving up is safe.
const sendRetries = 3

// ReplySender delivers replies to the conversational channel.
type ReplySender interface {
	Send(ctx context.Context, reply Reply) error
}

// Client posts replies to the channel platform's send endpoint.
type Client struct {
	baseURL string
	token   string
	httpc   *http.Client
	logger  *log.Logger
}

func NewClient(baseURL, token string, logger *log.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		httpc:   &http.Client{Timeout: 10 * time.Second},
		logger:  logger,
	}
}

// LogSender logs replies instead of delivering them.  Used in dev when no
// channel API is configured.
type LogSender struct {
	logger *log.Logger
}

func NewLogSender(logger *log.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(_ context.Context, reply Reply) error {
	s.logger.Printf("reply to %s: %s (%d button rows)", reply.ChannelID, reply.Text, len(reply.Buttons))
	return nil
}

// Send delivers one reply, retrying transient failures a fixed number of
// times with a short linear backoff.
func (c *Client) Send(ctx context.Context, reply Reply) error {
	body, err := json.Marshal(reply)
	if err != nil {
		return fmt.Errorf("marshal reply: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= sendRetries; attempt++ {
		lastErr = c.post(ctx, body)
		if lastErr == nil {
			return nil
		}
		c.logger.Printf("send reply attempt %d/%d: %v", attempt, sendRetries, lastErr)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * 500 * time.Millisecond):
		}
	}
	return fmt.Errorf("send reply: %w", lastErr)
}

func (c *Client) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/send", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("channel API status %d", resp.StatusCode)
	}
	return nil
}
