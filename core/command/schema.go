package command

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
	"github.com/vidmarko/voicelink/internal/utils"
)

// PayloadSchema builds the JSON Schema for TurnPayload. The same document is
// embedded in the realtime session instructions and sent as the structured
// response format of fallback repair calls, so validation, prompting and
// repair can never drift apart.
func PayloadSchema() *jsonschema.Schema {
	commandSchema := &jsonschema.Schema{
		Type:     "object",
		Required: []string{"action", "device", "target"},
	}
	commandProperties := jsonschema.NewProperties()
	commandProperties.Set("action", &jsonschema.Schema{Type: "string", Enum: enumValues(actions)})
	commandProperties.Set("device", &jsonschema.Schema{Type: "string", Enum: enumValues(devices)})
	commandProperties.Set("target", &jsonschema.Schema{
		AnyOf: []*jsonschema.Schema{
			{Type: "string", Enum: enumValues(targets)},
			{
				Type:        "array",
				Items:       &jsonschema.Schema{Type: "string", Enum: enumValues(targets)},
				MinItems:    utils.Ptr(uint64(1)),
				MaxItems:    utils.Ptr(uint64(3)),
				UniqueItems: true,
			},
		},
	})
	commandSchema.Properties = commandProperties

	payloadSchema := &jsonschema.Schema{
		Type:     "object",
		Required: []string{"speak", "command"},
	}
	payloadProperties := jsonschema.NewProperties()
	payloadProperties.Set("speak", &jsonschema.Schema{Type: "string"})
	payloadProperties.Set("command", &jsonschema.Schema{
		AnyOf: []*jsonschema.Schema{commandSchema, {Type: "null"}},
	})
	payloadSchema.Properties = payloadProperties

	return payloadSchema
}

// Instructions renders the system instructions block sent when negotiating a
// realtime session.
func Instructions() string {
	schemaJSON, err := json.MarshalIndent(PayloadSchema(), "", "  ")
	if err != nil {
		// The schema is a fixed document; failing to marshal it is a bug.
		panic(fmt.Sprintf("failed to marshal payload schema: %v", err))
	}

	return "You must respond with a single valid JSON object that conforms to the following schema:\n\n" +
		string(schemaJSON) + "\n\n" +
		"If the command is generally about the lights, add all lights to the array to turn off or on. " +
		"If the command is entirely unclear, set `command` to null and clarify in the `speak` field.\n" +
		"Do not include any explanation, markdown, or unstructured output; respond with only JSON matching this schema."
}

func enumValues[T ~string](values []T) []any {
	enum := make([]any, 0, len(values))
	for _, value := range values {
		enum = append(enum, string(value))
	}
	return enum
}
