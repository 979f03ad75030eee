//go:build cgo

package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	orchestration "github.com/vidmarko/voicelink/core"
	"github.com/vidmarko/voicelink/core/audio/miniaudio"
	"github.com/vidmarko/voicelink/core/command"
	mqttdispatch "github.com/vidmarko/voicelink/core/dispatch/mqtt"
	"github.com/vidmarko/voicelink/core/events"
	llmopenai "github.com/vidmarko/voicelink/core/llms/openai"
	rtopenai "github.com/vidmarko/voicelink/core/realtime/openai"
)

func main() {
	logger := log.New(os.Stdout, "", log.LstdFlags)

	brokerURL := envOr("VOICELINK_MQTT_BROKER", "tcp://localhost:1883")
	commandsTopic := envOr("VOICELINK_MQTT_TOPIC", "voice/commands")

	apiKey, ok := os.LookupEnv("OPENAI_API_KEY")
	if !ok {
		logger.Fatal("OPENAI_API_KEY is not set")
	}

	realtimeClient, err := rtopenai.NewClient(
		rtopenai.WithInstructions(command.Instructions()),
	)
	if err != nil {
		logger.Fatalf("init realtime client: %v", err)
	}

	dispatcher, err := mqttdispatch.NewDispatcher(brokerURL,
		mqttdispatch.WithCommandsTopic(commandsTopic),
	)
	if err != nil {
		logger.Fatalf("connect to broker: %v", err)
	}
	defer dispatcher.Close()

	audioClient, err := miniaudio.NewClient()
	if err != nil {
		logger.Fatalf("init audio device: %v", err)
	}
	defer audioClient.Close()

	orchestrator := orchestration.NewOrchestrator(
		orchestration.WithRealtimeClient(realtimeClient),
		orchestration.WithAudioInput(audioClient),
		orchestration.WithPlayback(audioClient),
		orchestration.WithDispatcher(dispatcher),
		orchestration.WithFallbackModel(llmopenai.NewClient(apiKey)),
		orchestration.WithEventHandler(func(event events.Event) {
			switch typed := event.(type) {
			case events.TurnResolved:
				logger.Printf("turn %s resolved: %q", typed.TurnID, typed.Payload.Speak)
			case events.TurnDropped:
				logger.Printf("turn %s dropped: %v", typed.TurnID, typed.Cause)
			case events.CommandDispatched:
				logger.Printf("dispatched %s %s -> %v", typed.Command.Action, typed.Command.Device, typed.Command.Target)
			}
		}),
	)
	defer orchestrator.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Print("relay session starting, speak now")
	if err := orchestrator.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatalf("session ended: %v", err)
	}
	logger.Print("stopped")
}

func envOr(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}
