// Package config loads the dashboard configuration.
//
// The file is YAML, or TOML when its name ends in .toml:
//
//	homeassistant:
//	  url: http://hass.local:8123
//	  token: "..."
//	terminal:
//	  port: /dev/ttyUSB0
//	  baud: 9600
//	layout:
//	  - name: Lights
//	    entities:
//	      - switch.kitchen
//	      - {entity: sensor.temp, name: Temperature, units: "°C"}
//	      - "<hr>"
//	      - "<label Downstairs>"
//
// Layout entries are either entity ids or one of the markers <hr>,
// <label caption> and <template text>. WidgetEntry.Spec parses them.
//
// The access token may be left out of the file and supplied through
// VTDASH_HASS_TOKEN instead.
package config
