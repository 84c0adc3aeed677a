package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zaltra000/mihrab-sala/internal/model"
)

type fakeToken struct {
	err  error
	done chan struct{}
}

func newToken(err error) *fakeToken {
	t := &fakeToken{err: err, done: make(chan struct{})}
	close(t.done)
	return t
}

func (t *fakeToken) Wait() bool                     { return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t *fakeToken) Done() <-chan struct{}          { return t.done }
func (t *fakeToken) Error() error                   { return t.err }

// fakeClient overrides the calls the sender makes; the embedded interface
// panics on anything else.
type fakeClient struct {
	paho.Client
	connected bool
	err       error
	topic     string
	payload   []byte
}

func (c *fakeClient) IsConnected() bool { return c.connected }

func (c *fakeClient) Publish(topic string, _ byte, _ bool, payload interface{}) paho.Token {
	c.topic = topic
	c.payload = payload.([]byte)
	return newToken(c.err)
}

func TestSendPublishesJSON(t *testing.T) {
	client := &fakeClient{connected: true}
	sender := NewSender(client, "home/")

	n := model.Notification{ID: 3, Title: "t", Body: "b", FireAt: time.Date(2024, 5, 10, 18, 0, 0, 0, time.UTC), Sound: model.DefaultSound}
	require.NoError(t, sender.Send(context.Background(), model.Settings{}, n))

	assert.Equal(t, "home/notifications", client.topic)
	var got payload
	require.NoError(t, json.Unmarshal(client.payload, &got))
	assert.Equal(t, 3, got.ID)
	assert.Equal(t, model.DefaultSound, got.Sound)
	assert.True(t, n.FireAt.Equal(got.FireAt))
}

func TestSendReportsPublishError(t *testing.T) {
	client := &fakeClient{connected: true, err: errors.New("broker gone")}
	err := NewSender(client, "").Send(context.Background(), model.Settings{}, model.Notification{ID: 1})
	assert.ErrorContains(t, err, "broker gone")
	assert.Equal(t, "mihrab/notifications", client.topic)
}

func TestReadyFollowsConnection(t *testing.T) {
	client := &fakeClient{}
	sender := NewSender(client, "x")
	assert.False(t, sender.Ready(model.Settings{}))
	client.connected = true
	assert.True(t, sender.Ready(model.Settings{}))
	assert.Equal(t, "mqtt", sender.Name())
}
