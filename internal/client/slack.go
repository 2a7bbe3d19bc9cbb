package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// SlackClient posts plain-text notifications to an incoming-webhook URL.
// A nil receiver or empty URL disables it so callers never need to
// check configuration themselves.
type SlackClient struct {
	url    string
	client *http.Client
}

func NewSlackClient(url string) *SlackClient {
	if url == "" {
		return nil
	}
	return &SlackClient{
		url: url,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type slackMessage struct {
	Text string `json:"text"`
}

func (c *SlackClient) Notify(ctx context.Context, text string) error {
	if c == nil {
		return nil
	}

	reqBody, err := json.Marshal(slackMessage{Text: text})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(reqBody))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	return nil
}
