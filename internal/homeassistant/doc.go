// Package homeassistant implements entity.Provider against a Home Assistant
// instance, over either the REST API or the websocket API.
//
// The REST Client is the default:
//
//	client := homeassistant.NewClient("http://hass.local:8123", token)
//	entities, err := client.ListEntities(ctx)
//
// States are classified on the way in: switch, light, input_boolean and fan
// entities (or anything with device_class "switch") become switches, sensor
// and binary_sensor entities become sensors, everything else is generic.
//
// Every failure is returned as an *Error carrying an ErrorType, so callers can
// tell an unreachable instance from a rejected token:
//
//	if homeassistant.IsAuthError(err) {
//	    for _, hint := range homeassistant.TroubleshootingHints(err) {
//	        fmt.Println(hint)
//	    }
//	}
package homeassistant
