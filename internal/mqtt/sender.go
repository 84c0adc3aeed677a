// Package mqtt publishes due prayer notifications to an MQTT broker so that
// devices subscribed to the topic can sound the call.
package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/zaltra000/mihrab-sala/internal/config"
	"github.com/zaltra000/mihrab-sala/internal/model"
)

const qos = 1

type payload struct {
	ID      int       `json:"id"`
	Title   string    `json:"title"`
	Body    string    `json:"body"`
	FireAt  time.Time `json:"fire_at"`
	Sound   string    `json:"sound,omitempty"`
	Channel string    `json:"channel,omitempty"`
}

type Sender struct {
	client paho.Client
	topic  string
}

// Connect dials the broker. Paho reconnects on its own after a lost
// connection.
func Connect(cfg config.MQTTConfig) (*Sender, error) {
	opts := paho.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectTimeout(10 * time.Second)
	opts.OnConnect = func(paho.Client) {
		slog.Info("Connected to MQTT broker", "broker", cfg.Broker)
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		slog.Warn("MQTT connection lost", "error", err)
	}

	client := paho.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("connect to mqtt broker: %w", token.Error())
	}
	return NewSender(client, cfg.TopicPrefix), nil
}

func NewSender(client paho.Client, topicPrefix string) *Sender {
	prefix := strings.TrimSuffix(topicPrefix, "/")
	if prefix == "" {
		prefix = "mihrab"
	}
	return &Sender{client: client, topic: prefix + "/notifications"}
}

func (s *Sender) Name() string { return "mqtt" }

func (s *Sender) Topic() string { return s.topic }

func (s *Sender) Ready(model.Settings) bool {
	return s.client != nil && s.client.IsConnected()
}

func (s *Sender) Send(ctx context.Context, _ model.Settings, n model.Notification) error {
	body, err := json.Marshal(payload{
		ID:      n.ID,
		Title:   n.Title,
		Body:    n.Body,
		FireAt:  n.FireAt,
		Sound:   n.Sound,
		Channel: n.Channel,
	})
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}

	token := s.client.Publish(s.topic, qos, false, body)
	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish to %s: %w", s.topic, err)
	}
	return nil
}

func (s *Sender) Close() {
	if s.client != nil {
		s.client.Disconnect(250)
	}
}
