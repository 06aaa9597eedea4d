// internal/handlers/ws_codes.go
package handlers

// Custom WebSocket close codes used by the chat gateway. These give clients
// more specific refusal reasons than the standard codes.
const (
	BadSubprotocolError   = 3000 // Client connected with an unsupported subprotocol.
	InvalidAuthTokenError = 3001 // Provided auth token was missing, invalid or expired.
	InvalidUserIDError    = 3002 // Token resolved to a malformed or unknown user.
)
