package urls

// Documentation URLs for setup and troubleshooting.
// Home Assistant pages live under https://www.home-assistant.io/

// AccessTokens explains how to create a long-lived access token
// from the Home Assistant profile page.
const AccessTokens = "https://www.home-assistant.io/docs/authentication/#your-account-profile"

// RestAPI documents the REST API the rest transport talks to.
const RestAPI = "https://developers.home-assistant.io/docs/api/rest/"

// WebsocketAPI documents the websocket API used by the websocket transport.
const WebsocketAPI = "https://developers.home-assistant.io/docs/api/websocket/"

// APIIntegration is the integration that must be enabled for either API
// to answer.
const APIIntegration = "https://www.home-assistant.io/integrations/api/"

// Zeroconf is the integration that advertises Home Assistant over mDNS,
// which 'vtdash discover' relies on.
const Zeroconf = "https://www.home-assistant.io/integrations/zeroconf/"
