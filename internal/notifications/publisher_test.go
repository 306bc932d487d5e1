package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/fleet-backoffice/internal/models"
)

type fakeToken struct {
	done chan struct{}
	err  error
}

func newFakeToken(err error, completed bool) *fakeToken {
	t := &fakeToken{done: make(chan struct{}), err: err}
	if completed {
		close(t.done)
	}
	return t
}

func (t *fakeToken) Wait() bool {
	<-t.done
	return true
}

func (t *fakeToken) WaitTimeout(d time.Duration) bool {
	select {
	case <-t.done:
		return true
	case <-time.After(d):
		return false
	}
}

func (t *fakeToken) Done() <-chan struct{} { return t.done }
func (t *fakeToken) Error() error          { return t.err }

type published struct {
	topic   string
	qos     byte
	payload []byte
}

// fakeClient implements the parts of mqtt.Client the publisher uses.
type fakeClient struct {
	mqtt.Client
	token        *fakeToken
	messages     []published
	disconnected bool
}

func (c *fakeClient) Publish(topic string, qos byte, _ bool, payload interface{}) mqtt.Token {
	c.messages = append(c.messages, published{topic: topic, qos: qos, payload: payload.([]byte)})
	return c.token
}

func (c *fakeClient) Disconnect(uint) { c.disconnected = true }

func TestMQTTPublisher_PublishesPerUserTopic(t *testing.T) {
	client := &fakeClient{token: newFakeToken(nil, true)}
	p := newMQTTPublisher(client, "fleet/notifications", 1, newTestLogger().WithField("test", "mqtt"))

	n := models.Notification{ID: "n1", UserID: "u1", Type: models.NotificationCritical, Link: "/fleet/drivers/d1", Message: "expired"}
	require.NoError(t, p.Publish(context.Background(), n))

	require.Len(t, client.messages, 1)
	assert.Equal(t, "fleet/notifications/u1", client.messages[0].topic)
	assert.Equal(t, byte(1), client.messages[0].qos)

	var got models.Notification
	require.NoError(t, json.Unmarshal(client.messages[0].payload, &got))
	assert.Equal(t, n.ID, got.ID)
	assert.Equal(t, n.Link, got.Link)

	p.Close()
	assert.True(t, client.disconnected)
}

func TestMQTTPublisher_ReturnsBrokerError(t *testing.T) {
	client := &fakeClient{token: newFakeToken(errors.New("not connected"), true)}
	p := newMQTTPublisher(client, "t", 0, newTestLogger().WithField("test", "mqtt"))

	err := p.Publish(context.Background(), models.Notification{UserID: "u1"})
	assert.EqualError(t, err, "not connected")
}

func TestMQTTPublisher_HonorsContext(t *testing.T) {
	client := &fakeClient{token: newFakeToken(nil, false)}
	p := newMQTTPublisher(client, "t", 0, newTestLogger().WithField("test", "mqtt"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := p.Publish(ctx, models.Notification{UserID: "u1"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewPublisher_WithoutBrokerIsNop(t *testing.T) {
	p := NewPublisher(MQTTConfig{}, newTestLogger())
	assert.IsType(t, NopPublisher{}, p)
	assert.NoError(t, p.Publish(context.Background(), models.Notification{}))
}
