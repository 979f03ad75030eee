package command

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"
)

func TestValidateRoundTripsValidPayloads(t *testing.T) {
	payloads := []TurnPayload{
		{Speak: "hi"},
		{Speak: "turning on the red light", Command: &Command{
			Action: ActionTurnOn, Device: DeviceLights, Target: Target{"red"},
		}},
		{Speak: "locking up", Command: &Command{
			Action: ActionLock, Device: DeviceDoor, Target: Target{"red", "green", "blue"},
		}},
	}

	for _, payload := range payloads {
		serialized, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("expected payload to serialize, got %v", err)
		}

		parsed, err := Validate(string(serialized))
		if err != nil {
			t.Fatalf("expected %s to validate, got %v", serialized, err)
		}

		if !reflect.DeepEqual(*parsed, payload) {
			t.Fatalf("expected round-tripped payload %+v, got %+v", payload, *parsed)
		}
	}
}

func TestValidateAcceptsSingleTargetString(t *testing.T) {
	parsed, err := Validate(`{"speak":"ok","command":{"action":"turn_on","device":"lights","target":"blue"}}`)
	if err != nil {
		t.Fatalf("expected single-string target to validate, got %v", err)
	}

	if !reflect.DeepEqual(parsed.Command.Target, Target{"blue"}) {
		t.Fatalf("expected normalized target [blue], got %v", parsed.Command.Target)
	}
}

func TestValidateAcceptsNullCommand(t *testing.T) {
	parsed, err := Validate(`{"speak":"could you repeat that?","command":null}`)
	if err != nil {
		t.Fatalf("expected null command to validate, got %v", err)
	}

	if parsed.Command != nil {
		t.Fatalf("expected nil command, got %+v", parsed.Command)
	}
}

func TestValidateReportsMalformedJSONPosition(t *testing.T) {
	_, err := Validate("{\"speak\": \"hi\",\n\"command\": {invalid}")

	var malformed *MalformedJSONError
	if !errors.As(err, &malformed) {
		t.Fatalf("expected MalformedJSONError, got %v", err)
	}

	if malformed.Line != 2 {
		t.Fatalf("expected error on line 2, got line %d (offset %d)", malformed.Line, malformed.Offset)
	}
	if malformed.Offset == 0 || malformed.Column == 0 {
		t.Fatalf("expected non-zero offset and column, got offset %d column %d", malformed.Offset, malformed.Column)
	}
}

func TestValidateNeverPanicsOnGarbage(t *testing.T) {
	inputs := []string{"", "   ", "{", "[1,2", "null", "42", `"just a string"`, "{invalid", "\x00\x01"}

	for _, input := range inputs {
		if _, err := Validate(input); err == nil {
			t.Fatalf("expected %q to fail validation", input)
		}
	}
}

func TestValidateRejectsDuplicateTargets(t *testing.T) {
	_, err := Validate(`{"speak":"ok","command":{"action":"turn_on","device":"lights","target":["red","red"]}}`)

	var mismatch *SchemaMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("expected SchemaMismatchError, got %v", err)
	}
	if mismatch.Path != "command.target[1]" {
		t.Fatalf("expected path command.target[1], got %q", mismatch.Path)
	}
}

func TestValidateReportsFieldPaths(t *testing.T) {
	cases := []struct {
		name string
		text string
		path string
	}{
		{"top-level array", `[]`, "$"},
		{"missing speak", `{"command":null}`, "speak"},
		{"speak not a string", `{"speak":1,"command":null}`, "speak"},
		{"missing command", `{"speak":"hi"}`, "command"},
		{"command not an object", `{"speak":"hi","command":"lights"}`, "command"},
		{"missing action", `{"speak":"hi","command":{"device":"lights","target":"red"}}`, "command.action"},
		{"bad action", `{"speak":"hi","command":{"action":"explode","device":"lights","target":"red"}}`, "command.action"},
		{"bad device", `{"speak":"hi","command":{"action":"turn_on","device":"toaster","target":"red"}}`, "command.device"},
		{"missing target", `{"speak":"hi","command":{"action":"turn_on","device":"lights"}}`, "command.target"},
		{"bad target value", `{"speak":"hi","command":{"action":"turn_on","device":"lights","target":"purple"}}`, "command.target"},
		{"bad target element", `{"speak":"hi","command":{"action":"turn_on","device":"lights","target":["red","purple"]}}`, "command.target[1]"},
		{"empty target array", `{"speak":"hi","command":{"action":"turn_on","device":"lights","target":[]}}`, "command.target"},
		{"too many targets", `{"speak":"hi","command":{"action":"turn_on","device":"lights","target":["red","green","blue","red"]}}`, "command.target"},
		{"target not a string", `{"speak":"hi","command":{"action":"turn_on","device":"lights","target":7}}`, "command.target"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Validate(tc.text)

			var mismatch *SchemaMismatchError
			if !errors.As(err, &mismatch) {
				t.Fatalf("expected SchemaMismatchError, got %v", err)
			}
			if mismatch.Path != tc.path {
				t.Fatalf("expected path %q, got %q (%v)", tc.path, mismatch.Path, mismatch)
			}
		})
	}
}

func TestValidateToleratesSurroundingWhitespace(t *testing.T) {
	if _, err := Validate("  \n{\"speak\":\"hi\",\"command\":null}\n "); err != nil {
		t.Fatalf("expected padded payload to validate, got %v", err)
	}
}
