// Package openai implements the realtime transport against the OpenAI
// Realtime API: REST session negotiation followed by a websocket carrying
// audio append frames out and streamed response events in.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/vidmarko/voicelink/core/realtime"
)

const (
	defaultSessionsURL  = "https://api.openai.com/v1/realtime/sessions"
	defaultWebsocketURL = "wss://api.openai.com/v1/realtime"

	defaultModel = "gpt-4o-realtime-preview"
	defaultVoice = "alloy"
)

type Client struct {
	apiKey       string
	model        string
	voice        string
	instructions string

	sessionsURL  string
	websocketURL string

	httpClient *http.Client
}

type ClientOption func(*Client)

func WithModel(model string) ClientOption {
	return func(c *Client) { c.model = model }
}

func WithVoice(voice string) ClientOption {
	return func(c *Client) { c.voice = voice }
}

// WithInstructions sets the system instructions block sent when the session
// is negotiated.
func WithInstructions(instructions string) ClientOption {
	return func(c *Client) { c.instructions = instructions }
}

// WithEndpoints overrides the REST and websocket endpoints, primarily for
// tests against local servers.
func WithEndpoints(sessionsURL, websocketURL string) ClientOption {
	return func(c *Client) {
		c.sessionsURL = sessionsURL
		c.websocketURL = websocketURL
	}
}

func NewClient(opts ...ClientOption) (*Client, error) {
	apiKey, ok := os.LookupEnv("OPENAI_API_KEY")
	if !ok {
		return nil, fmt.Errorf("openai api key not found")
	}

	client := &Client{
		apiKey:       apiKey,
		model:        defaultModel,
		voice:        defaultVoice,
		sessionsURL:  defaultSessionsURL,
		websocketURL: defaultWebsocketURL,
		httpClient:   &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
	}
	for _, opt := range opts {
		opt(client)
	}

	return client, nil
}

type sessionCredentials struct {
	id           string
	clientSecret string
}

func (c *Client) createSession(ctx context.Context) (*sessionCredentials, error) {
	ctx, span := tracer.Start(ctx, "create realtime session")
	defer span.End()

	requestBody, err := json.Marshal(map[string]any{
		"model":                     c.model,
		"modalities":                []string{"audio", "text"},
		"instructions":              c.instructions,
		"voice":                     c.voice,
		"input_audio_format":        "pcm16",
		"output_audio_format":       "pcm16",
		"input_audio_transcription": map[string]any{"model": "whisper-1"},
	})
	if err != nil {
		return nil, fmt.Errorf("error marshalling session request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.sessionsURL, bytes.NewBuffer(requestBody))
	if err != nil {
		return nil, fmt.Errorf("error creating session request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("OpenAI-Beta", "realtime=v1")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		err = fmt.Errorf("error requesting realtime session: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("response.status_code", resp.StatusCode))
	if resp.StatusCode != http.StatusOK {
		if errorBody, readErr := io.ReadAll(resp.Body); readErr == nil {
			span.SetAttributes(attribute.String("response.error", string(errorBody)))
		}
		err := fmt.Errorf("non-OK HTTP status creating realtime session: %s", resp.Status)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	var responseBody struct {
		ID           string `json:"id"`
		ClientSecret struct {
			Value string `json:"value"`
		} `json:"client_secret"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&responseBody); err != nil {
		return nil, fmt.Errorf("error decoding session response: %w", err)
	}
	if responseBody.ID == "" || responseBody.ClientSecret.Value == "" {
		return nil, fmt.Errorf("session response missing id or client secret")
	}

	span.SetAttributes(attribute.String("session.id", responseBody.ID))
	return &sessionCredentials{
		id:           responseBody.ID,
		clientSecret: responseBody.ClientSecret.Value,
	}, nil
}

// OpenSession negotiates a session credential and opens the websocket.
func (c *Client) OpenSession(ctx context.Context) (realtime.Session, error) {
	credentials, err := c.createSession(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to negotiate realtime session: %w", err)
	}

	session, err := connectWebsocket(ctx, c.websocketURL, *credentials)
	if err != nil {
		return nil, fmt.Errorf("failed to open realtime websocket: %w", err)
	}

	return session, nil
}
