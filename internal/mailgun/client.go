package mailgun

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const DefaultBaseURL = "https://api.mailgun.net"

// Message письмо для отправки через Mailgun. HTML необязателен.
type Message struct {
	From    string
	To      string
	Subject string
	Text    string
	HTML    string
}

// Client отправляет письма через HTTP API Mailgun.
type Client struct {
	baseURL    string
	domain     string
	apiKey     string
	httpClient *http.Client
}

// NewClient создаёт экземпляр клиента.
func NewClient(apiKey, domain, baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		domain:  domain,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Send отправляет текстовое письмо.
func (c *Client) Send(ctx context.Context, from, to, subject, text string) error {
	return c.SendMessage(ctx, Message{From: from, To: to, Subject: subject, Text: text})
}

// SendMessage отправляет письмо формой на /v3/<domain>/messages.
// Любой ответ вне 2xx считается ошибкой доставки.
func (c *Client) SendMessage(ctx context.Context, msg Message) error {
	form := url.Values{}
	form.Set("from", msg.From)
	form.Set("to", msg.To)
	form.Set("subject", msg.Subject)
	form.Set("text", msg.Text)
	if msg.HTML != "" {
		form.Set("html", msg.HTML)
	}

	endpoint := fmt.Sprintf("%s/v3/%s/messages", c.baseURL, url.PathEscape(c.domain))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("mailgun: создание запроса: %w", err)
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth("api", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("mailgun: запрос: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("mailgun: код ответа %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return nil
}
