package event

// SessionCreatedData is the data for session.created events.
type SessionCreatedData struct {
	SessionID string `json:"sessionID"`
}

// ServerConnectedData is the data for server.connected events.
type ServerConnectedData struct {
	SessionID string `json:"sessionID"`
	Server    string `json:"server"`
	ToolCount int    `json:"toolCount"`
}

// RecommendationSentData is the data for recommendation.sent events.
type RecommendationSentData struct {
	SessionID string   `json:"sessionID"`
	Servers   []string `json:"servers"`
}

// MessageSentData is the data for message.sent events.
type MessageSentData struct {
	SessionID string `json:"sessionID"`
	Text      string `json:"text"`
}

// MessageTokenData is the data for message.token events emitted while a
// reply streams.
type MessageTokenData struct {
	SessionID string `json:"sessionID"`
	Token     string `json:"token"`
}
