package mqtt

import (
	"context"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/vidmarko/voicelink/core/command"
)

type fakeToken struct {
	done chan struct{}
	err  error
}

func newFakeToken(err error) *fakeToken {
	done := make(chan struct{})
	close(done)
	return &fakeToken{done: done, err: err}
}

func (t *fakeToken) Wait() bool                       { return true }
func (t *fakeToken) WaitTimeout(_ time.Duration) bool { return true }
func (t *fakeToken) Done() <-chan struct{}            { return t.done }
func (t *fakeToken) Error() error                     { return t.err }

type publishRecord struct {
	topic   string
	payload string
}

type fakeClient struct {
	mqtt.Client

	published    []publishRecord
	errPerTopic  map[string]error
	disconnected bool
}

func (c *fakeClient) Publish(topic string, _ byte, _ bool, payload interface{}) mqtt.Token {
	c.published = append(c.published, publishRecord{topic: topic, payload: string(payload.([]byte))})
	return newFakeToken(c.errPerTopic[topic])
}

func (c *fakeClient) Disconnect(_ uint) {
	c.disconnected = true
}

func TestDispatchPublishesPayloadAndActuationFrames(t *testing.T) {
	client := &fakeClient{}
	dispatcher := newDispatcher(client)

	err := dispatcher.Dispatch(context.Background(), &command.TurnPayload{
		Speak: "turning on the red and blue lights",
		Command: &command.Command{
			Action: command.ActionTurnOn,
			Device: command.DeviceLights,
			Target: command.Target{"red", "blue"},
		},
	})
	if err != nil {
		t.Fatalf("expected dispatch to succeed, got %v", err)
	}

	expected := []publishRecord{
		{
			topic:   "voice/commands",
			payload: `{"speak":"turning on the red and blue lights","command":{"action":"turn_on","device":"lights","target":["red","blue"]}}`,
		},
		{topic: "lights/red", payload: "ON"},
		{topic: "lights/blue", payload: "ON"},
	}
	if len(client.published) != len(expected) {
		t.Fatalf("expected %d publishes, got %+v", len(expected), client.published)
	}
	for i, record := range expected {
		if client.published[i] != record {
			t.Fatalf("expected publish %d to be %+v, got %+v", i, record, client.published[i])
		}
	}
}

func TestDispatchSendsOffFrames(t *testing.T) {
	client := &fakeClient{}
	dispatcher := newDispatcher(client)

	err := dispatcher.Dispatch(context.Background(), &command.TurnPayload{
		Speak: "lights out",
		Command: &command.Command{
			Action: command.ActionTurnOff,
			Device: command.DeviceLights,
			Target: command.Target{"green"},
		},
	})
	if err != nil {
		t.Fatalf("expected dispatch to succeed, got %v", err)
	}

	if len(client.published) != 2 || client.published[1].payload != "OFF" {
		t.Fatalf("expected an OFF frame on the target topic, got %+v", client.published)
	}
}

func TestDispatchSkipsActuationForNonPowerActions(t *testing.T) {
	client := &fakeClient{}
	dispatcher := newDispatcher(client, WithCommandsTopic("home/voice"))

	err := dispatcher.Dispatch(context.Background(), &command.TurnPayload{
		Speak: "locking the red door",
		Command: &command.Command{
			Action: command.ActionLock,
			Device: command.DeviceDoor,
			Target: command.Target{"red"},
		},
	})
	if err != nil {
		t.Fatalf("expected dispatch to succeed, got %v", err)
	}

	if len(client.published) != 1 || client.published[0].topic != "home/voice" {
		t.Fatalf("expected only the commands-topic publish, got %+v", client.published)
	}
}

func TestDispatchIgnoresSpeakOnlyPayloads(t *testing.T) {
	client := &fakeClient{}
	dispatcher := newDispatcher(client)

	if err := dispatcher.Dispatch(context.Background(), &command.TurnPayload{Speak: "hello"}); err != nil {
		t.Fatalf("expected a speak-only payload to be a no-op, got %v", err)
	}
	if len(client.published) != 0 {
		t.Fatalf("expected no publishes, got %+v", client.published)
	}
}

func TestDispatchAggregatesPerTopicErrors(t *testing.T) {
	client := &fakeClient{errPerTopic: map[string]error{
		"lights/red": context.DeadlineExceeded,
	}}
	dispatcher := newDispatcher(client)

	err := dispatcher.Dispatch(context.Background(), &command.TurnPayload{
		Speak: "on it",
		Command: &command.Command{
			Action: command.ActionTurnOn,
			Device: command.DeviceLights,
			Target: command.Target{"red", "blue"},
		},
	})
	if err == nil {
		t.Fatalf("expected the failed topic to surface an error")
	}

	// The remaining topics are still attempted.
	if len(client.published) != 3 {
		t.Fatalf("expected all publishes to be attempted, got %+v", client.published)
	}
}

func TestCloseDisconnects(t *testing.T) {
	client := &fakeClient{}
	newDispatcher(client).Close()

	if !client.disconnected {
		t.Fatalf("expected Close to disconnect the client")
	}
}
