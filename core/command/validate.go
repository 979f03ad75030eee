package command

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// MalformedJSONError reports the first JSON syntax error in a raw model
// reply, with enough position information to log the failure usefully.
type MalformedJSONError struct {
	Offset int64
	Line   int
	Column int
	cause  error
}

func (e *MalformedJSONError) Error() string {
	return fmt.Sprintf("malformed JSON at line %d, column %d (offset %d): %v", e.Line, e.Column, e.Offset, e.cause)
}

func (e *MalformedJSONError) Unwrap() error { return e.cause }

// SchemaMismatchError reports well-formed JSON that does not match the
// command schema, pointing at the offending field.
type SchemaMismatchError struct {
	Path   string
	Reason string
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("schema mismatch at %s: %s", e.Path, e.Reason)
}

// Validate parses text as JSON and checks it structurally against the
// command schema. It returns the typed payload on success, a
// *MalformedJSONError when the text is not JSON, or a *SchemaMismatchError
// when it is JSON of the wrong shape. It has no side effects.
func Validate(text string) (*TurnPayload, error) {
	cleaned := strings.TrimSpace(text)

	var parsed any
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		return nil, malformedError(cleaned, err)
	}

	object, ok := parsed.(map[string]any)
	if !ok {
		return nil, &SchemaMismatchError{Path: "$", Reason: "top-level value must be an object"}
	}

	speakValue, ok := object["speak"]
	if !ok {
		return nil, &SchemaMismatchError{Path: "speak", Reason: "required key is missing"}
	}
	speak, ok := speakValue.(string)
	if !ok {
		return nil, &SchemaMismatchError{Path: "speak", Reason: "must be a string"}
	}

	commandValue, ok := object["command"]
	if !ok {
		return nil, &SchemaMismatchError{Path: "command", Reason: "required key is missing"}
	}

	payload := &TurnPayload{Speak: speak}
	if commandValue == nil {
		return payload, nil
	}

	commandObject, ok := commandValue.(map[string]any)
	if !ok {
		return nil, &SchemaMismatchError{Path: "command", Reason: "must be an object or null"}
	}

	cmd, err := validateCommand(commandObject)
	if err != nil {
		return nil, err
	}

	payload.Command = cmd
	return payload, nil
}

func validateCommand(object map[string]any) (*Command, error) {
	actionValue, ok := object["action"]
	if !ok {
		return nil, &SchemaMismatchError{Path: "command.action", Reason: "required key is missing"}
	}
	action, ok := actionValue.(string)
	if !ok || !contains(actions, Action(action)) {
		return nil, &SchemaMismatchError{Path: "command.action", Reason: fmt.Sprintf("must be one of %v", actions)}
	}

	deviceValue, ok := object["device"]
	if !ok {
		return nil, &SchemaMismatchError{Path: "command.device", Reason: "required key is missing"}
	}
	device, ok := deviceValue.(string)
	if !ok || !contains(devices, Device(device)) {
		return nil, &SchemaMismatchError{Path: "command.device", Reason: fmt.Sprintf("must be one of %v", devices)}
	}

	targetValue, ok := object["target"]
	if !ok {
		return nil, &SchemaMismatchError{Path: "command.target", Reason: "required key is missing"}
	}
	target, err := validateTarget(targetValue)
	if err != nil {
		return nil, err
	}

	return &Command{Action: Action(action), Device: Device(device), Target: target}, nil
}

func validateTarget(value any) (Target, error) {
	switch typed := value.(type) {
	case string:
		if !contains(targets, typed) {
			return nil, &SchemaMismatchError{Path: "command.target", Reason: fmt.Sprintf("must be one of %v", targets)}
		}
		return Target{typed}, nil

	case []any:
		if len(typed) < 1 || len(typed) > 3 {
			return nil, &SchemaMismatchError{Path: "command.target", Reason: "array must hold between 1 and 3 targets"}
		}

		seen := map[string]bool{}
		target := make(Target, 0, len(typed))
		for i, element := range typed {
			name, ok := element.(string)
			if !ok || !contains(targets, name) {
				return nil, &SchemaMismatchError{
					Path:   fmt.Sprintf("command.target[%d]", i),
					Reason: fmt.Sprintf("must be one of %v", targets),
				}
			}
			if seen[name] {
				return nil, &SchemaMismatchError{
					Path:   fmt.Sprintf("command.target[%d]", i),
					Reason: fmt.Sprintf("duplicate target %q", name),
				}
			}
			seen[name] = true
			target = append(target, name)
		}
		return target, nil

	default:
		return nil, &SchemaMismatchError{Path: "command.target", Reason: "must be a string or an array of strings"}
	}
}

func malformedError(text string, err error) error {
	var offset int64

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &syntaxErr):
		offset = syntaxErr.Offset
	case errors.As(err, &typeErr):
		offset = typeErr.Offset
	}

	line, column := positionAt(text, offset)
	return &MalformedJSONError{Offset: offset, Line: line, Column: column, cause: err}
}

func positionAt(text string, offset int64) (line, column int) {
	if offset > int64(len(text)) {
		offset = int64(len(text))
	}

	line, column = 1, 1
	for _, b := range []byte(text)[:offset] {
		if b == '\n' {
			line++
			column = 1
			continue
		}
		column++
	}
	return line, column
}

func contains[T comparable](values []T, value T) bool {
	for _, candidate := range values {
		if candidate == value {
			return true
		}
	}
	return false
}
