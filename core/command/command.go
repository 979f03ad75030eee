// Package command defines the smart-home command payload exchanged with the
// realtime model and the structural validator that gates dispatching.
package command

import (
	"encoding/json"
	"fmt"
)

type Action string

const (
	ActionTurnOn         Action = "turn_on"
	ActionTurnOff        Action = "turn_off"
	ActionSetBrightness  Action = "set_brightness"
	ActionSetTemperature Action = "set_temperature"
	ActionLock           Action = "lock"
	ActionUnlock         Action = "unlock"
)

type Device string

const (
	DeviceLights     Device = "lights"
	DeviceThermostat Device = "thermostat"
	DeviceDoor       Device = "door"
	DeviceFan        Device = "fan"
)

const (
	TargetRed   = "red"
	TargetGreen = "green"
	TargetBlue  = "blue"
)

var (
	actions = []Action{ActionTurnOn, ActionTurnOff, ActionSetBrightness, ActionSetTemperature, ActionLock, ActionUnlock}
	devices = []Device{DeviceLights, DeviceThermostat, DeviceDoor, DeviceFan}
	targets = []string{TargetRed, TargetGreen, TargetBlue}
)

// Target holds one to three de-duplicated target names. The wire format
// accepts either a bare string or an array of strings; both decode into the
// same slice representation.
type Target []string

func (t *Target) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*t = Target{single}
		return nil
	}

	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("target must be a string or an array of strings")
	}

	*t = Target(many)
	return nil
}

type Command struct {
	Action Action `json:"action"`
	Device Device `json:"device"`
	Target Target `json:"target"`
}

// TurnPayload is the complete per-turn reply. A nil Command is a legitimate
// outcome (the model could not derive an actionable intent) and must not be
// treated as a validation failure.
type TurnPayload struct {
	Speak   string   `json:"speak"`
	Command *Command `json:"command"`
}

// CompactJSON serializes the payload without insignificant whitespace, the
// form published to the command bus.
func (p TurnPayload) CompactJSON() ([]byte, error) {
	encoded, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to encode turn payload: %w", err)
	}
	return encoded, nil
}
