// Package monitor serves a small HTTP status endpoint for the dashboard.
//
// GET / returns a JSON document identifying the terminal:
//
//	{"type":"vt-100","version":"v1.2.0","instance":"<uuid>",
//	 "started":"2024-05-01T10:00:00Z","uptime":"3 hours"}
//
// GET /healthz returns "ok". When advertising is enabled the endpoint is
// registered over mDNS as _vtdash._tcp with the instance id and version in
// its TXT records, so a Home Assistant integration can find the terminal.
//
// The server runs on its own goroutines and never touches session state.
package monitor
