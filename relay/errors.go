package relay

import "errors"

// ErrBodyTooLarge is returned when a backend body exceeds Config.MaxBodyBytes.
var ErrBodyTooLarge = errors.New("upstream body exceeds limit")

// Client-facing error messages.
const (
	msgTokenRequired       = "Token is required"
	msgMessagesRequired    = "Messages are required"
	msgInvalidBody         = "Invalid request body"
	msgInternal            = "Internal server error"
	msgChatFailed          = "Failed to get response from chat service"
	msgFakeStreamFailed    = "Failed to get response from fake stream"
	msgCredentialsRequired = "Username and password are required"
	msgInvalidCredentials  = "Invalid credentials"
)

// tokenRequiredEvent is the 401 body of the pass-through route, framed as
// a single event-stream event.
const tokenRequiredEvent = "data: {\"error\":\"" + msgTokenRequired + "\"}\n\n"
