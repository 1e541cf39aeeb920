package homeassistant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/muurk/vtdash/internal/entity"
)

// fakeHass speaks enough of the websocket API for the provider
type fakeHass struct {
	mu       sync.Mutex
	states   map[string]string
	calls    []wsCommand
	dials    int
	badToken bool
}

func (f *fakeHass) handler(t *testing.T) http.HandlerFunc {
	upgrader := websocket.Upgrader{}

	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/websocket" {
			http.NotFound(w, r)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		defer conn.Close()

		f.mu.Lock()
		f.dials++
		f.mu.Unlock()

		_ = conn.WriteJSON(map[string]string{"type": "auth_required"})

		var auth wsAuth
		if err := conn.ReadJSON(&auth); err != nil {
			return
		}
		if auth.AccessToken != testToken || f.badToken {
			_ = conn.WriteJSON(map[string]string{"type": "auth_invalid", "message": "Invalid access token"})
			return
		}
		_ = conn.WriteJSON(map[string]string{"type": "auth_ok"})

		for {
			var cmd wsCommand
			if err := conn.ReadJSON(&cmd); err != nil {
				return
			}

			f.mu.Lock()
			f.calls = append(f.calls, cmd)

			// An unrelated event precedes every result
			_ = conn.WriteJSON(map[string]any{"id": 999, "type": "event"})

			switch cmd.Type {
			case "get_states":
				var states []State
				for id, s := range f.states {
					states = append(states, State{EntityID: id, State: s})
				}
				result, _ := json.Marshal(states)
				_ = conn.WriteJSON(wsMessage{ID: cmd.ID, Type: "result", Success: boolPtr(true), Result: result})
			case "call_service":
				if cmd.Service == "turn_on" {
					f.states[cmd.ServiceData.EntityID] = "on"
				} else {
					f.states[cmd.ServiceData.EntityID] = "off"
				}
				_ = conn.WriteJSON(wsMessage{ID: cmd.ID, Type: "result", Success: boolPtr(true)})
			default:
				_ = conn.WriteJSON(wsMessage{ID: cmd.ID, Type: "result", Success: boolPtr(false),
					Error: &wsError{Code: "unknown_command", Message: "Unknown command."}})
			}
			f.mu.Unlock()
		}
	}
}

func boolPtr(b bool) *bool { return &b }

func TestWebsocketURL(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"http://hass.local:8123", "ws://hass.local:8123/api/websocket", false},
		{"https://hass.example.com/", "wss://hass.example.com/api/websocket", false},
		{"http://proxy/ha/", "ws://proxy/ha/api/websocket", false},
		{"ftp://hass.local", "", true},
	}

	for _, tt := range tests {
		got, err := websocketURL(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("websocketURL(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("websocketURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestWebsocketClient_ListAndToggle(t *testing.T) {
	hass := &fakeHass{states: map[string]string{"switch.kitchen": "off", "sensor.temp": "20"}}
	server := httptest.NewServer(hass.handler(t))
	defer server.Close()

	client, err := NewWebsocketClient(server.URL, testToken)
	if err != nil {
		t.Fatalf("NewWebsocketClient() error = %v", err)
	}
	defer client.Close()

	store := entity.NewStore(client, 0)
	if err := store.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if store.Len() != 2 {
		t.Errorf("Len() = %d, want 2", store.Len())
	}

	if err := store.Toggle(context.Background(), "switch.kitchen"); err != nil {
		t.Fatalf("Toggle() error = %v", err)
	}
	e, _ := store.Get("switch.kitchen")
	if e.Switch != entity.SwitchOn {
		t.Errorf("Switch = %v, want on", e.Switch)
	}

	hass.mu.Lock()
	defer hass.mu.Unlock()
	if hass.dials != 1 {
		t.Errorf("dials = %d, want 1 (connection reused)", hass.dials)
	}

	var service *wsCommand
	for i := range hass.calls {
		if hass.calls[i].Type == "call_service" {
			service = &hass.calls[i]
		}
	}
	if service == nil {
		t.Fatal("no call_service command sent")
	}
	if service.Domain != "switch" || service.Service != "turn_on" {
		t.Errorf("call_service = %s.%s, want switch.turn_on", service.Domain, service.Service)
	}
}

func TestWebsocketClient_AuthInvalid(t *testing.T) {
	hass := &fakeHass{states: map[string]string{}, badToken: true}
	server := httptest.NewServer(hass.handler(t))
	defer server.Close()

	client, _ := NewWebsocketClient(server.URL, testToken)
	defer client.Close()

	_, err := client.ListEntities(context.Background())
	if !IsAuthError(err) {
		t.Errorf("ListEntities() error = %v, want auth error", err)
	}
}

func TestWebsocketClient_RedialsAfterDrop(t *testing.T) {
	hass := &fakeHass{states: map[string]string{"switch.kitchen": "on"}}
	server := httptest.NewServer(hass.handler(t))
	defer server.Close()

	client, _ := NewWebsocketClient(server.URL, testToken)
	defer client.Close()

	if _, err := client.ListEntities(context.Background()); err != nil {
		t.Fatalf("ListEntities() error = %v", err)
	}
	_ = client.Close()

	state, err := client.SwitchState(context.Background(), "switch.kitchen")
	if err != nil {
		t.Fatalf("SwitchState() error = %v", err)
	}
	if state != entity.SwitchOn {
		t.Errorf("SwitchState() = %v, want on", state)
	}

	hass.mu.Lock()
	defer hass.mu.Unlock()
	if hass.dials != 2 {
		t.Errorf("dials = %d, want 2", hass.dials)
	}
}

func TestWebsocketClient_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	client, _ := NewWebsocketClient(url, testToken)
	_, err := client.ListEntities(context.Background())
	if !IsNetworkError(err) {
		t.Errorf("ListEntities() error = %v, want network error", err)
	}
}
