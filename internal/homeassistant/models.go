package homeassistant

import (
	"strings"

	"github.com/muurk/vtdash/internal/entity"
)

// State is one entry of the Home Assistant state machine as returned by
// GET /api/states and the websocket get_states command
type State struct {
	EntityID   string         `json:"entity_id"`
	State      string         `json:"state"`
	Attributes map[string]any `json:"attributes"`
}

// serviceCall is the body of POST /api/services/<domain>/<service>
type serviceCall struct {
	EntityID string `json:"entity_id"`
}

// Domains whose entities the dashboard can turn on and off
var switchDomains = map[string]bool{
	"switch":        true,
	"light":         true,
	"input_boolean": true,
	"fan":           true,
}

var sensorDomains = map[string]bool{
	"sensor":        true,
	"binary_sensor": true,
}

func (s *State) attribute(key string) string {
	if s.Attributes == nil {
		return ""
	}
	v, ok := s.Attributes[key].(string)
	if !ok {
		return ""
	}
	return v
}

func (s *State) domain() string {
	domain, _, _ := strings.Cut(s.EntityID, ".")
	return domain
}

// ToEntity classifies a state entry into a typed Entity.
// Returns nil for entries without an entity_id.
func (s *State) ToEntity() *entity.Entity {
	if s.EntityID == "" {
		return nil
	}

	name := s.attribute("friendly_name")
	if name == "" {
		name = s.EntityID
	}

	e := &entity.Entity{ID: s.EntityID, Name: name}

	switch {
	case switchDomains[s.domain()] || s.attribute("device_class") == "switch":
		e.Kind = entity.KindSwitch
		e.Switch = entity.ParseSwitchState(s.State)
	case sensorDomains[s.domain()]:
		e.Kind = entity.KindSensor
		e.State = s.State
		e.Units = s.attribute("unit_of_measurement")
	default:
		e.Kind = entity.KindGeneric
	}

	return e
}

// serviceDomain picks the domain to call turn_on/turn_off under. Entities
// outside the known switch domains go through the homeassistant domain,
// which dispatches to the right integration.
func serviceDomain(id string) string {
	domain, _, _ := strings.Cut(id, ".")
	if switchDomains[domain] {
		return domain
	}
	return "homeassistant"
}

func serviceName(on bool) string {
	if on {
		return "turn_on"
	}
	return "turn_off"
}

func toEntities(states []State) []*entity.Entity {
	entities := make([]*entity.Entity, 0, len(states))
	for i := range states {
		if e := states[i].ToEntity(); e != nil {
			entities = append(entities, e)
		}
	}
	return entities
}
