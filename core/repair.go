package orchestration

import (
	"context"
	"fmt"

	"github.com/invopop/jsonschema"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/vidmarko/voicelink/core/command"
)

// Repairer attempts to coerce an invalid raw model reply into a valid
// payload, using the originating transcript for context.
type Repairer interface {
	Repair(ctx context.Context, transcript, rawResponse string) (*command.TurnPayload, error)
}

// StructuredLLM is the secondary model call used for fallback repair.
type StructuredLLM interface {
	PromptJSONSchema(ctx context.Context, prompt, systemPrompt, schemaName string, schema *jsonschema.Schema) (string, error)
}

// RepairError wraps every failure mode of the fallback path: the model call
// itself, or the repaired output failing validation. It never escapes the
// turn that triggered it.
type RepairError struct {
	cause error
}

func (e *RepairError) Error() string {
	return fmt.Sprintf("fallback repair failed: %v", e.cause)
}

func (e *RepairError) Unwrap() error { return e.cause }

const repairInstructions = "The following model output was supposed to be a single JSON object " +
	"matching the provided schema but failed validation. Produce a corrected JSON object that " +
	"captures the user's intent from the transcript. Respond with only the JSON object."

type fallbackRepairer struct {
	llm StructuredLLM

	// schema is built once; the repair call and the validator must agree.
	schema *jsonschema.Schema
}

func newFallbackRepairer(llm StructuredLLM) *fallbackRepairer {
	return &fallbackRepairer{llm: llm, schema: command.PayloadSchema()}
}

func (r *fallbackRepairer) Repair(ctx context.Context, transcript, rawResponse string) (*command.TurnPayload, error) {
	ctx, span := tracer.Start(ctx, "fallback repair")
	defer span.End()

	if r == nil || r.llm == nil {
		err := &RepairError{cause: fmt.Errorf("no fallback model configured")}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	prompt := fmt.Sprintf("Transcript: %s\nInvalid output: %s", transcript, rawResponse)
	repaired, err := r.llm.PromptJSONSchema(ctx, prompt, repairInstructions, "TurnPayload", r.schema)
	if err != nil {
		err := &RepairError{cause: err}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	// The repaired text goes through the same validator exactly once; a
	// repair that fails validation is a failed repair, not a reason to
	// recurse.
	payload, err := command.Validate(repaired)
	if err != nil {
		err := &RepairError{cause: fmt.Errorf("repaired output failed validation: %w", err)}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.Bool("repair.succeeded", true))
	return payload, nil
}
