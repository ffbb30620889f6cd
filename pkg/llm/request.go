package llm

// ChatRequest is the body a client posts to the relay's chat route.
type ChatRequest struct {
	Messages []Message `json:"messages"`
}

// UpstreamChatRequest is the body the relay posts to the chat backend. Stream
// is always true; the backend may still answer with a single payload.
type UpstreamChatRequest struct {
	Messages []Message `json:"messages"`
	Stream   bool      `json:"stream"`
}

// LoginRequest is the body a client posts to the relay's login route.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse is the token payload issued by the chat backend.
type LoginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// ErrorResponse is the failure payload of every relay route.
type ErrorResponse struct {
	Error string `json:"error"`
}
