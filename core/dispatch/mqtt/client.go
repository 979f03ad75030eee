// Package mqtt publishes resolved voice commands to an MQTT broker for
// downstream actuation.
package mqtt

import (
	"context"
	"errors"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/vidmarko/voicelink/core/command"
)

const (
	defaultCommandsTopic  = "voice/commands"
	defaultPublishTimeout = 5 * time.Second
)

// Dispatcher publishes each resolved turn twice: the full payload as compact
// JSON on the commands topic, and, for power actions, bare ON/OFF frames on
// one `<device>/<target>` topic per target. Publishing the whole payload
// (rather than command-only) on the commands topic is deliberate; downstream
// displays want the spoken reply too.
type Dispatcher struct {
	client         mqtt.Client
	commandsTopic  string
	publishTimeout time.Duration
}

type Option func(*Dispatcher)

func WithCommandsTopic(topic string) Option {
	return func(d *Dispatcher) { d.commandsTopic = topic }
}

func WithPublishTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) { d.publishTimeout = timeout }
}

// NewDispatcher connects to the broker at brokerURL (e.g. tcp://host:1883).
func NewDispatcher(brokerURL string, opts ...Option) (*Dispatcher, error) {
	clientOptions := mqtt.NewClientOptions().
		AddBroker(brokerURL).
		SetClientID("voicelink-" + uuid.NewString()[:8]).
		SetConnectTimeout(defaultPublishTimeout)

	dispatcher := newDispatcher(mqtt.NewClient(clientOptions), opts...)

	token := dispatcher.client.Connect()
	if !token.WaitTimeout(dispatcher.publishTimeout) {
		return nil, fmt.Errorf("timed out connecting to mqtt broker %s", brokerURL)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("failed to connect to mqtt broker %s: %w", brokerURL, err)
	}

	return dispatcher, nil
}

func newDispatcher(client mqtt.Client, opts ...Option) *Dispatcher {
	dispatcher := &Dispatcher{
		client:         client,
		commandsTopic:  defaultCommandsTopic,
		publishTimeout: defaultPublishTimeout,
	}
	for _, opt := range opts {
		opt(dispatcher)
	}
	return dispatcher
}

func (d *Dispatcher) Dispatch(ctx context.Context, payload *command.TurnPayload) error {
	if payload == nil || payload.Command == nil {
		return nil
	}

	encoded, err := payload.CompactJSON()
	if err != nil {
		return err
	}

	errs := d.publish(ctx, d.commandsTopic, encoded)

	cmd := payload.Command
	if actuation, ok := actuationPayload(cmd.Action); ok {
		for _, target := range cmd.Target {
			topic := fmt.Sprintf("%s/%s", cmd.Device, target)
			errs = errors.Join(errs, d.publish(ctx, topic, []byte(actuation)))
		}
	}

	return errs
}

func (d *Dispatcher) publish(ctx context.Context, topic string, payload []byte) error {
	token := d.client.Publish(topic, 0, false, payload)

	select {
	case <-token.Done():
	case <-ctx.Done():
		return fmt.Errorf("publish to %s cancelled: %w", topic, ctx.Err())
	case <-time.After(d.publishTimeout):
		return fmt.Errorf("timed out publishing to %s", topic)
	}

	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", topic, err)
	}
	return nil
}

func (d *Dispatcher) Close() {
	d.client.Disconnect(250)
}

func actuationPayload(action command.Action) (string, bool) {
	switch action {
	case command.ActionTurnOn:
		return "ON", true
	case command.ActionTurnOff:
		return "OFF", true
	}
	return "", false
}
