// Package health provides shared types for gateway health check responses.
package health

// Response mirrors the GET /health payload of the gateway.
type Response struct {
	Status       string `json:"status"`
	BotConnected bool   `json:"bot_connected"`
}

// RootResponse mirrors the GET / liveness payload of the gateway.
type RootResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Version string `json:"version"`
	Message string `json:"message"`
}
