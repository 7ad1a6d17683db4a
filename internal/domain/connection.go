package domain

// Connection binds a live websocket session to its chosen nickname.
// The connection id is assigned by the gateway when the session opens.
type Connection struct {
	ConnectionID string `dynamodbav:"connectionId" json:"connectionId"`
	Nickname     string `dynamodbav:"nickname" json:"nickname"`
}
