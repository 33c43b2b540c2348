package mqtt

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"card/internal/core"
)

type fakeToken struct {
	done chan struct{}
	err  error
}

func doneToken(err error) *fakeToken {
	t := &fakeToken{done: make(chan struct{}), err: err}
	close(t.done)
	return t
}

func (t *fakeToken) Wait() bool                     { <-t.done; return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t *fakeToken) Done() <-chan struct{}          { return t.done }
func (t *fakeToken) Error() error                   { return t.err }

type published struct {
	topic    string
	qos      byte
	retained bool
	payload  []byte
}

// fakeClient implements only what the publisher calls.
type fakeClient struct {
	pahomqtt.Client
	token        pahomqtt.Token
	sent         []published
	disconnected bool
}

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) pahomqtt.Token {
	c.sent = append(c.sent, published{topic, qos, retained, payload.([]byte)})
	return c.token
}

func (c *fakeClient) IsConnected() bool { return !c.disconnected }

func (c *fakeClient) Disconnect(uint) { c.disconnected = true }

func TestPublishRetainsOnScreenTopic(t *testing.T) {
	client := &fakeClient{token: doneToken(nil)}
	p := NewWithClient(client, "home/card/", nil)

	msg := core.NewSummaryChanged(core.SummaryChange{Display: "₩123,456", Total: 123456, OK: true}, time.Now())
	if err := p.Publish(context.Background(), msg); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	if len(client.sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(client.sent))
	}
	got := client.sent[0]
	if got.topic != "home/card/summary" {
		t.Errorf("topic = %q, want home/card/summary", got.topic)
	}
	if !got.retained || got.qos != 1 {
		t.Errorf("qos/retained = %d/%v, want 1/true", got.qos, got.retained)
	}
	decoded, err := core.StateChangedFromJSON(got.payload)
	if err != nil {
		t.Fatalf("payload not a state change: %v", err)
	}
	if decoded.ID != msg.ID || decoded.Summary.Display != "₩123,456" {
		t.Errorf("payload = %+v", decoded)
	}
}

func TestPublishErrors(t *testing.T) {
	t.Run("broker error", func(t *testing.T) {
		boom := errors.New("not authorized")
		p := NewWithClient(&fakeClient{token: doneToken(boom)}, "card", nil)

		err := p.Publish(context.Background(), core.NewUsagesChanged(nil, "", time.Now()))
		if !errors.Is(err, boom) || !strings.Contains(err.Error(), "card/usages") {
			t.Errorf("Publish() error = %v", err)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		pending := &fakeToken{done: make(chan struct{})}
		p := NewWithClient(&fakeClient{token: pending}, "card", nil)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if err := p.Publish(ctx, core.NewUsagesChanged(nil, "", time.Now())); !errors.Is(err, context.Canceled) {
			t.Errorf("Publish() error = %v, want context.Canceled", err)
		}
	})
}

func TestDefaultsAndClose(t *testing.T) {
	client := &fakeClient{}
	p := NewWithClient(client, "", nil)
	if got := p.Topic(core.ScreenUsages); got != "card/usages" {
		t.Errorf("Topic() = %q, want card/usages", got)
	}
	if err := p.Close(); err != nil || !client.disconnected {
		t.Errorf("Close() = %v, disconnected = %v", err, client.disconnected)
	}
}

func TestNewRequiresBroker(t *testing.T) {
	if _, err := New(Config{}, nil); err == nil {
		t.Error("New() should reject an empty broker")
	}
}
