package pushover

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/zaltra000/mihrab-sala/internal/model"
)

const defaultAPIURL = "https://api.pushover.net/1/messages.json"

type Client struct {
	Token string
	User  string

	apiURL     string
	httpClient *http.Client
}

func NewClient(token, user string) *Client {
	return &Client{
		Token:      token,
		User:       user,
		apiURL:     defaultAPIURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type Message struct {
	Title     string
	Body      string
	Sound     string
	Timestamp time.Time
}

func (c *Client) SendMessage(ctx context.Context, msg Message) error {
	params := url.Values{}
	params.Set("token", c.Token)
	params.Set("user", c.User)
	params.Set("title", msg.Title)
	params.Set("message", msg.Body)
	params.Set("html", "1")
	if msg.Sound != "" {
		params.Set("sound", soundName(msg.Sound))
	}
	if !msg.Timestamp.IsZero() {
		params.Set("timestamp", strconv.FormatInt(msg.Timestamp.Unix(), 10))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, strings.NewReader(params.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("pushover api error: status %s, body %s", resp.Status, string(body))
	}

	return nil
}

// soundName maps a sound file such as "notifications.wav" to the name of a
// custom sound uploaded to Pushover.
func soundName(file string) string {
	return strings.TrimSuffix(file, path.Ext(file))
}

// Sender delivers dispatcher entries with the credentials stored in the
// settings at send time.
type Sender struct {
	apiURL     string
	httpClient *http.Client
}

func NewSender() *Sender {
	return &Sender{apiURL: defaultAPIURL, httpClient: &http.Client{Timeout: 10 * time.Second}}
}

// NewSenderWithClient points the sender at another endpoint, for tests.
func NewSenderWithClient(apiURL string, httpClient *http.Client) *Sender {
	return &Sender{apiURL: apiURL, httpClient: httpClient}
}

func (s *Sender) Name() string { return "pushover" }

func (s *Sender) Ready(settings model.Settings) bool {
	return settings.PushoverToken != "" && settings.PushoverUser != ""
}

func (s *Sender) Send(ctx context.Context, settings model.Settings, n model.Notification) error {
	c := NewClient(settings.PushoverToken, settings.PushoverUser)
	c.apiURL = s.apiURL
	c.httpClient = s.httpClient
	return c.SendMessage(ctx, Message{
		Title:     n.Title,
		Body:      n.Body,
		Sound:     n.Sound,
		Timestamp: n.FireAt,
	})
}
