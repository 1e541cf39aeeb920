package homeassistant

import (
	"fmt"

	"github.com/muurk/vtdash/internal/entity"
)

// Transport names accepted by NewProvider
const (
	TransportREST      = "rest"
	TransportWebsocket = "websocket"
)

// NewProvider builds the entity.Provider for the configured transport.
// An empty transport selects REST.
func NewProvider(transport, baseURL, token string) (entity.Provider, error) {
	switch transport {
	case "", TransportREST:
		return NewClient(baseURL, token), nil
	case TransportWebsocket:
		return NewWebsocketClient(baseURL, token)
	default:
		return nil, fmt.Errorf("unknown Home Assistant transport %q (want %s or %s)",
			transport, TransportREST, TransportWebsocket)
	}
}
