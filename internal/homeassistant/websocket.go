package homeassistant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/muurk/vtdash/internal/entity"
	"github.com/muurk/vtdash/internal/logging"
	"github.com/muurk/vtdash/internal/version"
	"go.uber.org/zap"
)

const (
	// Time allowed for a full request/response exchange when ctx has no deadline
	wsExchangeWait = DefaultTimeout

	// Maximum message size accepted from Home Assistant (state dumps can be large)
	wsMaxMessageSize = 16 << 20
)

// wsMessage is the envelope shared by every websocket API message
type wsMessage struct {
	ID      int64           `json:"id,omitempty"`
	Type    string          `json:"type"`
	Success *bool           `json:"success,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *wsError        `json:"error,omitempty"`
	Message string          `json:"message,omitempty"`
}

type wsError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type wsAuth struct {
	Type        string `json:"type"`
	AccessToken string `json:"access_token"`
}

type wsCommand struct {
	ID          int64        `json:"id"`
	Type        string       `json:"type"`
	Domain      string       `json:"domain,omitempty"`
	Service     string       `json:"service,omitempty"`
	ServiceData *serviceCall `json:"service_data,omitempty"`
}

// WebsocketClient talks to the Home Assistant websocket API. It implements
// entity.Provider with the same semantics as Client. The connection is dialled
// lazily and dropped on any I/O failure; the next call redials.
type WebsocketClient struct {
	// URL is the websocket endpoint (ws://host:8123/api/websocket)
	URL string

	// Token is the long-lived access token
	Token string

	Dialer *websocket.Dialer

	mu     sync.Mutex
	conn   *websocket.Conn
	nextID int64
}

var _ entity.Provider = (*WebsocketClient)(nil)

// NewWebsocketClient creates a websocket client for the instance at baseURL
// (the same http(s) URL the REST client uses)
func NewWebsocketClient(baseURL, token string) (*WebsocketClient, error) {
	wsURL, err := websocketURL(baseURL)
	if err != nil {
		return nil, err
	}

	return &WebsocketClient{
		URL:    wsURL,
		Token:  token,
		Dialer: &websocket.Dialer{HandshakeTimeout: DefaultTimeout},
	}, nil
}

// websocketURL maps http(s)://host/prefix to ws(s)://host/prefix/api/websocket
func websocketURL(baseURL string) (string, error) {
	u, err := url.Parse(normalizeBaseURL(baseURL))
	if err != nil {
		return "", fmt.Errorf("invalid Home Assistant URL %q: %w", baseURL, err)
	}

	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported URL scheme %q", u.Scheme)
	}

	u.Path = strings.TrimSuffix(u.Path, "/") + "/api/websocket"
	return u.String(), nil
}

// Close drops the connection, if any
func (w *WebsocketClient) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.dropLocked()
}

func (w *WebsocketClient) dropLocked() error {
	if w.conn == nil {
		return nil
	}
	err := w.conn.Close()
	w.conn = nil
	return err
}

func exchangeDeadline(ctx context.Context) time.Time {
	if deadline, ok := ctx.Deadline(); ok {
		return deadline
	}
	return time.Now().Add(wsExchangeWait)
}

// connectLocked dials and authenticates when there is no live connection
func (w *WebsocketClient) connectLocked(ctx context.Context) error {
	if w.conn != nil {
		return nil
	}

	header := http.Header{}
	header.Set("User-Agent", version.UserAgent())

	conn, resp, err := w.Dialer.DialContext(ctx, w.URL, header)
	if err != nil {
		if resp != nil && resp.StatusCode != http.StatusSwitchingProtocols {
			return newHTTPError(resp.StatusCode, fmt.Sprintf("websocket upgrade failed with status %d", resp.StatusCode))
		}
		return classifyNetworkError("websocket dial failed", err)
	}
	conn.SetReadLimit(wsMaxMessageSize)

	deadline := exchangeDeadline(ctx)
	_ = conn.SetReadDeadline(deadline)
	_ = conn.SetWriteDeadline(deadline)

	var hello wsMessage
	if err := conn.ReadJSON(&hello); err != nil {
		_ = conn.Close()
		return classifyNetworkError("failed to read auth_required", err)
	}
	if hello.Type != "auth_required" {
		_ = conn.Close()
		return newParseError(fmt.Sprintf("unexpected greeting %q", hello.Type), nil)
	}

	if err := conn.WriteJSON(wsAuth{Type: "auth", AccessToken: w.Token}); err != nil {
		_ = conn.Close()
		return classifyNetworkError("failed to send auth", err)
	}

	var reply wsMessage
	if err := conn.ReadJSON(&reply); err != nil {
		_ = conn.Close()
		return classifyNetworkError("failed to read auth result", err)
	}

	switch reply.Type {
	case "auth_ok":
	case "auth_invalid":
		_ = conn.Close()
		return newAuthError(reply.Message)
	default:
		_ = conn.Close()
		return newParseError(fmt.Sprintf("unexpected auth reply %q", reply.Type), nil)
	}

	logging.Info("Connected to Home Assistant websocket", zap.String("url", w.URL))
	w.conn = conn
	return nil
}

// exchange sends one command and waits for its result. Messages for other
// ids (event subscriptions of earlier sessions) are skipped.
func (w *WebsocketClient) exchange(ctx context.Context, cmd wsCommand, out any) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.connectLocked(ctx); err != nil {
		return err
	}

	w.nextID++
	cmd.ID = w.nextID

	deadline := exchangeDeadline(ctx)
	_ = w.conn.SetReadDeadline(deadline)
	_ = w.conn.SetWriteDeadline(deadline)

	if err := w.conn.WriteJSON(cmd); err != nil {
		_ = w.dropLocked()
		return classifyNetworkError(fmt.Sprintf("failed to send %s", cmd.Type), err)
	}

	for {
		var msg wsMessage
		if err := w.conn.ReadJSON(&msg); err != nil {
			_ = w.dropLocked()
			var syntaxErr *json.SyntaxError
			if errors.As(err, &syntaxErr) {
				return newParseError("malformed websocket message", err)
			}
			return classifyNetworkError(fmt.Sprintf("failed to read %s result", cmd.Type), err)
		}

		if msg.ID != cmd.ID || msg.Type != "result" {
			continue
		}

		if msg.Success == nil || !*msg.Success {
			message := "command failed"
			if msg.Error != nil {
				message = fmt.Sprintf("%s: %s", msg.Error.Code, msg.Error.Message)
			}
			return newHTTPError(http.StatusBadRequest, message)
		}

		if out == nil {
			return nil
		}
		if err := json.Unmarshal(msg.Result, out); err != nil {
			return newParseError(fmt.Sprintf("failed to parse %s result", cmd.Type), err)
		}
		return nil
	}
}

// States fetches the raw state list
func (w *WebsocketClient) States(ctx context.Context) ([]State, error) {
	var states []State
	if err := w.exchange(ctx, wsCommand{Type: "get_states"}, &states); err != nil {
		return nil, err
	}
	return states, nil
}

// ListEntities fetches and classifies every entity
func (w *WebsocketClient) ListEntities(ctx context.Context) ([]*entity.Entity, error) {
	states, err := w.States(ctx)
	if err != nil {
		return nil, err
	}
	return toEntities(states), nil
}

// SwitchState reads one entity out of a fresh state dump. The websocket API
// has no single-entity read.
func (w *WebsocketClient) SwitchState(ctx context.Context, id string) (entity.SwitchState, error) {
	states, err := w.States(ctx)
	if err != nil {
		return entity.SwitchUnknown, err
	}
	for i := range states {
		if states[i].EntityID == id {
			return entity.ParseSwitchState(states[i].State), nil
		}
	}
	return entity.SwitchUnknown, nil
}

// SetSwitch calls turn_on or turn_off for the entity
func (w *WebsocketClient) SetSwitch(ctx context.Context, id string, on bool) error {
	return w.exchange(ctx, wsCommand{
		Type:        "call_service",
		Domain:      serviceDomain(id),
		Service:     serviceName(on),
		ServiceData: &serviceCall{EntityID: id},
	}, nil)
}
