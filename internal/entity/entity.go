package entity

import (
	"fmt"
	"strings"
)

// Kind classifies an entity by how the dashboard can present it
type Kind int

const (
	// KindGeneric is any entity the dashboard has no typed rendering for
	KindGeneric Kind = iota
	// KindSwitch is an entity with a boolean state that can be toggled
	KindSwitch
	// KindSensor is a read-only entity with a free-text state and optional units
	KindSensor
)

// String returns a human-readable name for the kind
func (k Kind) String() string {
	switch k {
	case KindGeneric:
		return "generic"
	case KindSwitch:
		return "switch"
	case KindSensor:
		return "sensor"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// SwitchState is the last confirmed state of a switch
type SwitchState int

const (
	SwitchUnknown SwitchState = iota
	SwitchOff
	SwitchOn
)

// String returns the state as Home Assistant spells it
func (s SwitchState) String() string {
	switch s {
	case SwitchOn:
		return "on"
	case SwitchOff:
		return "off"
	default:
		return "unknown"
	}
}

// ParseSwitchState maps a Home Assistant state string onto a SwitchState.
// Anything other than on/off ("unavailable", "unknown") is SwitchUnknown.
func ParseSwitchState(state string) SwitchState {
	switch strings.ToLower(state) {
	case "on":
		return SwitchOn
	case "off":
		return SwitchOff
	default:
		return SwitchUnknown
	}
}

// Entity is one remote record. Entities are owned by a Store and mutated in
// place on refresh; callers must not replace them.
type Entity struct {
	// ID is the stable remote identifier (e.g., "switch.kitchen_light")
	ID string

	// Name is the display name reported by the remote side
	Name string

	Kind Kind

	// Switch is meaningful only for KindSwitch
	Switch SwitchState

	// State is the sensor reading; empty means unknown. Meaningful only for KindSensor.
	State string

	// Units is the sensor unit of measurement, possibly empty
	Units string
}

// Domain returns the part of the id before the first dot
func (e *Entity) Domain() string {
	domain, _, found := strings.Cut(e.ID, ".")
	if !found {
		return ""
	}
	return domain
}

// merge copies the observable attributes of other into e.
// Entities of a different kind are ignored.
func (e *Entity) merge(other *Entity) bool {
	if other == nil || other.Kind != e.Kind {
		return false
	}
	e.Name = other.Name
	e.Switch = other.Switch
	e.State = other.State
	e.Units = other.Units
	return true
}

// String implements fmt.Stringer
func (e *Entity) String() string {
	switch e.Kind {
	case KindSwitch:
		return fmt.Sprintf("%s(%q, %q, %s)", e.Kind, e.ID, e.Name, e.Switch)
	case KindSensor:
		return fmt.Sprintf("%s(%q, %q, %q %s)", e.Kind, e.ID, e.Name, e.State, e.Units)
	default:
		return fmt.Sprintf("%s(%q)", e.Kind, e.ID)
	}
}
