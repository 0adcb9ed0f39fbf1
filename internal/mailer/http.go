package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

type HTTPConfig struct {
	APIURL  string
	APIKey  string
	From    string
	Timeout time.Duration
}

// HTTPClient posts rendered messages to a transactional mail API.
type HTTPClient struct {
	apiURL   string
	apiKey   string
	from     string
	client   *http.Client
	renderer *Renderer
	logger   *slog.Logger
}

func NewHTTPClient(config HTTPConfig, renderer *Renderer, logger *slog.Logger) *HTTPClient {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPClient{
		apiURL:   strings.TrimRight(config.APIURL, "/"),
		apiKey:   config.APIKey,
		from:     config.From,
		client:   &http.Client{Timeout: timeout},
		renderer: renderer,
		logger:   logger,
	}
}

type sendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
	Text    string   `json:"text"`
	Tag     string   `json:"tag"`
}

func (c *HTTPClient) Send(ctx context.Context, msg Message) error {
	rendered, err := c.renderer.Render(msg)
	if err != nil {
		return err
	}

	jsonData, err := json.Marshal(sendRequest{
		From:    c.from,
		To:      []string{msg.To},
		Subject: rendered.Subject,
		HTML:    rendered.HTML,
		Text:    rendered.Text,
		Tag:     string(msg.Kind),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal mail request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+"/messages", bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create HTTP request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("mail API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("mail API returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var apiResponse struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResponse); err != nil && err != io.EOF {
		c.logger.Warn("mail API response was not JSON", "error", err)
	}

	c.logger.Info("invitation email accepted by mail API", "to", msg.To, "kind", msg.Kind, "message_id", apiResponse.ID)
	return nil
}
